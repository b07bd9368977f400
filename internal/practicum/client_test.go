package practicum

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	logx "homeworkbot/pkg/logx"
)

func newClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	c, err := New(Config{Endpoint: endpoint, Token: "secret", Timeout: 2 * time.Second}, logx.Nop())
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	return c
}

func TestFetchSendsAuthAndCursor(t *testing.T) {
	var gotAuth, gotFrom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotFrom = r.URL.Query().Get("from_date")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"homeworks":[{"homework_name":"hw","status":"approved"}],"current_date":1700000123}`))
	}))
	defer srv.Close()

	raw, err := newClient(t, srv.URL).Fetch(context.Background(), 1699999999)
	if err != nil {
		t.Fatalf("Fetch() = %v", err)
	}
	if gotAuth != "OAuth secret" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotFrom != "1699999999" {
		t.Fatalf("from_date = %q", gotFrom)
	}
	m, ok := raw.(map[string]any)
	if !ok {
		t.Fatalf("payload type %T", raw)
	}
	if n, ok := m["current_date"].(json.Number); !ok || n.String() != "1700000123" {
		t.Fatalf("current_date = %#v, want json.Number", m["current_date"])
	}
}

func TestFetchNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"code":"oops","message":"should not leak"}`))
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).Fetch(context.Background(), 0)
	var se *UnexpectedStatusError
	if !errors.As(err, &se) {
		t.Fatalf("Fetch() error = %v, want *UnexpectedStatusError", err)
	}
	if se.Code != http.StatusServiceUnavailable {
		t.Fatalf("code = %d", se.Code)
	}
	if se.Error() != "status api responded with 503" {
		t.Fatalf("message = %q", se.Error())
	}
}

func TestFetchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	_, err := newClient(t, endpoint).Fetch(context.Background(), 0)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("Fetch() error = %v, want *TransportError", err)
	}
}

func TestFetchInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).Fetch(context.Background(), 0)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("Fetch() error = %v, want *DecodeError", err)
	}
}

func TestFetchCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newClient(t, srv.URL).Fetch(ctx, 0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Fetch() error = %v, want context.Canceled", err)
	}
}

func TestNewRequiresToken(t *testing.T) {
	if _, err := New(Config{}, logx.Nop()); err == nil {
		t.Fatalf("expected error for empty token")
	}
	c, err := New(Config{Token: "t"}, logx.Nop())
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	if c.endpoint != DefaultEndpoint {
		t.Fatalf("endpoint = %q", c.endpoint)
	}
}
