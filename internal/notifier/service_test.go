package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	kit "homeworkbot/internal/transport"
	logx "homeworkbot/pkg/logx"
)

type fakeSender struct {
	mu     sync.Mutex
	failN  int
	calls  int
	texts  []string
	chats  []int64
	errVal error
}

func (f *fakeSender) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failN {
		if f.errVal != nil {
			return kit.MessageRef{}, f.errVal
		}
		return kit.MessageRef{}, errors.New("telegram: bad gateway")
	}
	f.texts = append(f.texts, text)
	f.chats = append(f.chats, to.ChatID)
	return kit.MessageRef{ChatID: to.ChatID, MessageID: f.calls}, nil
}

func fastConfig(retryMax int) Config {
	return Config{
		RatePerSec:    1000,
		RetryMax:      retryMax,
		RetryBase:     time.Millisecond,
		RetryMaxDelay: 5 * time.Millisecond,
		HistorySize:   3,
	}
}

func TestSendDelivers(t *testing.T) {
	fs := &fakeSender{}
	svc := New(fastConfig(0), fs, logx.Nop())

	if err := svc.Send(context.Background(), kit.ChatTarget{ChatID: 42}, "hello"); err != nil {
		t.Fatalf("Send() = %v", err)
	}
	if len(fs.texts) != 1 || fs.texts[0] != "hello" || fs.chats[0] != 42 {
		t.Fatalf("unexpected deliveries: %v %v", fs.texts, fs.chats)
	}
	h := svc.History()
	if len(h) != 1 || h[0].Text != "hello" || h[0].Err != "" {
		t.Fatalf("history = %+v", h)
	}
}

func TestSendRetriesTransientFailures(t *testing.T) {
	fs := &fakeSender{failN: 2}
	svc := New(fastConfig(2), fs, logx.Nop())

	if err := svc.Send(context.Background(), kit.ChatTarget{ChatID: 1}, "x"); err != nil {
		t.Fatalf("Send() = %v", err)
	}
	if fs.calls != 3 {
		t.Fatalf("calls = %d, want 3", fs.calls)
	}
}

func TestSendReturnsDeliveryError(t *testing.T) {
	fs := &fakeSender{failN: 100}
	svc := New(fastConfig(1), fs, logx.Nop())

	err := svc.Send(context.Background(), kit.ChatTarget{ChatID: 7}, "x")
	var de *DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("Send() = %v, want *DeliveryError", err)
	}
	if de.ChatID != 7 || de.Attempts != 2 {
		t.Fatalf("DeliveryError = %+v", de)
	}
	if fs.calls != 2 {
		t.Fatalf("calls = %d, want 2", fs.calls)
	}
	h := svc.History()
	if len(h) != 1 || h[0].Err == "" {
		t.Fatalf("failed delivery should be recorded: %+v", h)
	}
}

func TestSendWithoutSender(t *testing.T) {
	svc := New(fastConfig(0), nil, logx.Nop())
	err := svc.Send(context.Background(), kit.ChatTarget{ChatID: 1}, "x")
	if !errors.Is(err, ErrNoAdapter) {
		t.Fatalf("Send() = %v, want ErrNoAdapter", err)
	}
}

func TestSendHonorsCanceledContext(t *testing.T) {
	fs := &fakeSender{}
	svc := New(fastConfig(0), fs, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := svc.Send(ctx, kit.ChatTarget{ChatID: 1}, "x"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Send() = %v, want context.Canceled", err)
	}
	if fs.calls != 0 {
		t.Fatalf("calls = %d, want 0", fs.calls)
	}
}

func TestHistoryIsBounded(t *testing.T) {
	fs := &fakeSender{}
	svc := New(fastConfig(0), fs, logx.Nop())
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		if err := svc.Send(context.Background(), kit.ChatTarget{ChatID: 1}, s); err != nil {
			t.Fatalf("Send(%q) = %v", s, err)
		}
	}
	h := svc.History()
	if len(h) != 3 {
		t.Fatalf("history len = %d, want 3", len(h))
	}
	if h[0].Text != "c" || h[2].Text != "e" {
		t.Fatalf("history = %+v", h)
	}
}
