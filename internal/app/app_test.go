package app

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"homeworkbot/internal/config"
)

func lookup(m map[string]string) config.LookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func noConfigFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "config.yaml")
}

func TestNewMissingCredentialsTouchesNothing(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := New(noConfigFile(t), WithOffline(), WithLookup(lookup(map[string]string{
		config.EnvPracticumEndpoint: srv.URL,
		config.EnvTelegramChatID:    "42",
	})))
	if !errors.Is(err, config.ErrMissingCredentials) {
		t.Fatalf("New() = %v, want ErrMissingCredentials", err)
	}
	var mc *config.MissingCredentialsError
	if !errors.As(err, &mc) || len(mc.Missing) != 2 {
		t.Fatalf("missing = %+v", mc)
	}
	if n := hits.Load(); n != 0 {
		t.Fatalf("status API was called %d times", n)
	}
}

func TestNewRejectsBadChatID(t *testing.T) {
	_, err := New(noConfigFile(t), WithOffline(), WithLookup(lookup(map[string]string{
		config.EnvPracticumToken: "p",
		config.EnvTelegramToken:  "123:abc",
		config.EnvTelegramChatID: "not-a-number",
	})))
	if err == nil || errors.Is(err, config.ErrMissingCredentials) {
		t.Fatalf("New() = %v", err)
	}
}

func TestNewWiresCommands(t *testing.T) {
	a, err := New(noConfigFile(t), WithOffline(), WithLookup(lookup(map[string]string{
		config.EnvPracticumToken: "p",
		config.EnvTelegramToken:  "123:abc",
		config.EnvTelegramChatID: "42",
		config.EnvLogLevel:       "error",
	})))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	defer a.logs.Close()

	if a.target.ChatID != 42 {
		t.Fatalf("target = %+v", a.target)
	}
	names := map[string]bool{}
	for _, c := range a.commands() {
		names[c.Name] = true
	}
	if !names["check"] || !names["status"] {
		t.Fatalf("commands = %v", names)
	}
	st := a.statusText()
	if !strings.Contains(st, "iterations: 0") || !strings.Contains(st, "interval: 10m0s") {
		t.Fatalf("status = %q", st)
	}
}

func TestApplyConfigUpdatesOwners(t *testing.T) {
	a, err := New(noConfigFile(t), WithOffline(), WithLookup(lookup(map[string]string{
		config.EnvPracticumToken: "p",
		config.EnvTelegramToken:  "123:abc",
		config.EnvTelegramChatID: "42",
		config.EnvLogLevel:       "error",
	})))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	defer a.logs.Close()

	next := *a.cfgm.Get()
	next.Telegram.OwnerUserIDs = []int64{9}
	next.Notifier = &config.NotifierConfig{RatePerSec: 10, RetryBase: "bad"}
	a.applyConfig(a.cfgm.Get(), &next)
}

func TestMapNotifierConfigDefaults(t *testing.T) {
	n, err := mapNotifierConfig(config.Default())
	if err != nil {
		t.Fatal(err)
	}
	if n.RatePerSec != 3 || n.RetryMax != 3 || n.RetryBase.String() != "500ms" {
		t.Fatalf("notifier defaults = %+v", n)
	}
}
