package router

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	kit "homeworkbot/internal/transport"
	logx "homeworkbot/pkg/logx"
)

type recSender struct {
	mu    sync.Mutex
	sent  []string
	menus [][]kit.BotCommand
	ch    chan string
}

func newRecSender() *recSender { return &recSender{ch: make(chan string, 16)} }

func (s *recSender) SendText(_ context.Context, _ kit.ChatTarget, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
	s.mu.Lock()
	s.sent = append(s.sent, text)
	s.mu.Unlock()
	s.ch <- text
	return kit.MessageRef{}, nil
}

func (s *recSender) UpdateMenuCommands(_ context.Context, cmds []kit.BotCommand) error {
	s.mu.Lock()
	s.menus = append(s.menus, cmds)
	s.mu.Unlock()
	return nil
}

func (s *recSender) next(t *testing.T) string {
	t.Helper()
	select {
	case txt := <-s.ch:
		return txt
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for reply")
		return ""
	}
}

func msg(from int64, text string) kit.Update {
	return kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{ChatID: 10, FromID: from, Text: text}}
}

func startDispatcher(t *testing.T, m *CommandManager) chan kit.Update {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan kit.Update, 8)
	done := make(chan struct{})
	go func() {
		_ = m.DispatchLoop(ctx, updates)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return updates
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		word string
		args int
		ok   bool
	}{
		{"/check", "check", 0, true},
		{"  /Check@homework_bot now ", "check", 1, true},
		{"/status a b", "status", 2, true},
		{"hello", "", 0, false},
		{"/", "", 0, false},
		{"/@bot", "", 0, false},
	}
	for _, tt := range tests {
		word, args, ok := parseCommand(tt.in)
		if ok != tt.ok || word != tt.word || len(args) != tt.args {
			t.Fatalf("parseCommand(%q) = %q, %v, %v", tt.in, word, args, ok)
		}
	}
}

func TestSanitizeTelegramCommand(t *testing.T) {
	tests := map[string]string{
		"check":        "check",
		"Last-Day":     "last_day",
		" status now ": "status_now",
		"1st":          "cmd_1st",
		"!!!":          "",
	}
	for in, want := range tests {
		if got := sanitizeTelegramCommand(in); got != want {
			t.Fatalf("sanitizeTelegramCommand(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDispatchRunsCommandAndAlias(t *testing.T) {
	s := newRecSender()
	m := NewCommandManager(logx.Nop(), s, nil)
	m.SetRegistry([]Command{{
		Name:    "check",
		Aliases: []string{"c"},
		Handle: func(ctx context.Context, req *Request) error {
			return req.Reply(ctx, "ran "+req.Command+" "+strings.Join(req.Args, ","))
		},
	}})
	updates := startDispatcher(t, m)

	updates <- msg(1, "/check@bot a")
	if got := s.next(t); got != "ran check a" {
		t.Fatalf("reply = %q", got)
	}
	updates <- msg(1, "/c")
	if got := s.next(t); got != "ran check " {
		t.Fatalf("alias reply = %q", got)
	}
}

func TestDispatchUnknownAndOwnerOnly(t *testing.T) {
	s := newRecSender()
	m := NewCommandManager(logx.Nop(), s, []int64{7})
	m.SetRegistry([]Command{{
		Name:   "status",
		Access: AccessOwnerOnly,
		Handle: func(ctx context.Context, req *Request) error { return req.Reply(ctx, "ok") },
	}})
	updates := startDispatcher(t, m)

	updates <- msg(1, "/nope")
	if got := s.next(t); !strings.Contains(got, "/help") {
		t.Fatalf("unknown reply = %q", got)
	}
	updates <- msg(1, "/status")
	if got := s.next(t); got != "unauthorized" {
		t.Fatalf("non-owner reply = %q", got)
	}
	updates <- msg(7, "/status")
	if got := s.next(t); got != "ok" {
		t.Fatalf("owner reply = %q", got)
	}
	updates <- msg(7, "plain text is ignored")
	updates <- msg(7, "/help")
	if got := s.next(t); !strings.Contains(got, "/status") || !strings.Contains(got, "(owner)") {
		t.Fatalf("help = %q", got)
	}
}

func TestPanicInHandlerKeepsDispatcherAlive(t *testing.T) {
	s := newRecSender()
	m := NewCommandManager(logx.Nop(), s, nil)
	m.SetRegistry([]Command{
		{Name: "boom", Handle: func(context.Context, *Request) error { panic("boom") }},
		{Name: "ping", Handle: func(ctx context.Context, req *Request) error { return req.Reply(ctx, "pong") }},
	})
	updates := startDispatcher(t, m)

	updates <- msg(1, "/boom")
	updates <- msg(1, "/ping")
	if got := s.next(t); got != "pong" {
		t.Fatalf("reply = %q", got)
	}
}

func TestUpdateMenuSkipsOwnerOnly(t *testing.T) {
	s := newRecSender()
	m := NewCommandManager(logx.Nop(), s, nil)
	noop := func(context.Context, *Request) error { return nil }
	m.SetRegistry([]Command{
		{Name: "check", Description: "check now", Handle: noop},
		{Name: "status", Access: AccessOwnerOnly, Handle: noop},
	})
	if err := m.UpdateMenu(context.Background()); err != nil {
		t.Fatalf("UpdateMenu() = %v", err)
	}
	if len(s.menus) != 1 {
		t.Fatalf("menus = %v", s.menus)
	}
	got := s.menus[0]
	if len(got) != 2 || got[0].Command != "check" || got[1].Command != "help" {
		t.Fatalf("menu = %+v", got)
	}
}

func TestMiddlewareChain(t *testing.T) {
	h := Chain(
		func(ctx context.Context, _ *Request) error {
			if _, ok := ctx.Deadline(); !ok {
				return errors.New("no deadline")
			}
			panic("inner")
		},
		MWPanicRecover(logx.Nop()),
		MWRequestLog(logx.Nop()),
		MWTimeout(time.Second),
	)
	err := h(context.Background(), &Request{})
	if err == nil || !strings.Contains(err.Error(), "inner") {
		t.Fatalf("err = %v", err)
	}
}
