// Package notifier delivers plain-text messages to chats.
//
// Delivery is synchronous: Send blocks on a token bucket, then tries the
// transport with exponential backoff. A DeliveryError is returned once
// attempts are exhausted; callers log it and carry on.
package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"golang.org/x/time/rate"

	kit "homeworkbot/internal/transport"
	logx "homeworkbot/pkg/logx"
)

// Service is safe for concurrent use.
type Service struct {
	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter

	sender kit.Sender
	log    logx.Logger

	hmu     sync.Mutex
	history []HistoryItem
}

func New(cfg Config, sender kit.Sender, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{sender: sender, log: log}
	s.Apply(cfg)
	return s
}

// Apply swaps pacing/retry settings at runtime.
func (s *Service) Apply(cfg Config) {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 3
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = 10 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 50
	}

	s.mu.Lock()
	s.cfg = cfg
	// Token bucket: burst = rate per sec, so short spikes don't block too hard.
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	s.mu.Unlock()
}

// Send delivers text to the chat. It returns *DeliveryError when every
// attempt failed, or the context error when ctx ends first.
func (s *Service) Send(ctx context.Context, to kit.ChatTarget, text string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	cfg := s.cfg
	lim := s.limiter
	s.mu.Unlock()

	if s.sender == nil {
		return &DeliveryError{ChatID: to.ChatID, Err: ErrNoAdapter}
	}
	log := s.log.With(logx.Int64("chat_id", to.ChatID))

	jitter := cfg.RetryBase / 2
	if jitter <= 0 {
		jitter = time.Millisecond
	}
	attempts := 0
	err := retry.Do(
		func() error {
			if err := lim.Wait(ctx); err != nil {
				return err
			}
			attempts++
			callCtx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
			defer cancel()
			_, err := s.sender.SendText(callCtx, to, text, &kit.SendOptions{DisablePreview: true})
			return err
		},
		retry.Attempts(uint(1+cfg.RetryMax)),
		retry.Delay(cfg.RetryBase),
		retry.MaxDelay(cfg.RetryMaxDelay),
		retry.MaxJitter(jitter),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			log.Debug("send failed; retrying", logx.Int("attempt", int(n)+1), logx.Err(err))
		}),
	)
	if err == nil {
		s.appendHistory(to, text, nil)
		log.Info("message sent", logx.String("text", text))
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	derr := &DeliveryError{ChatID: to.ChatID, Attempts: attempts, Err: err}
	s.appendHistory(to, text, derr)
	return derr
}

// History returns the most recent deliveries, oldest first.
func (s *Service) History() []HistoryItem {
	s.hmu.Lock()
	out := append([]HistoryItem(nil), s.history...)
	s.hmu.Unlock()
	return out
}

func (s *Service) appendHistory(to kit.ChatTarget, text string, err error) {
	s.mu.Lock()
	limit := s.cfg.HistorySize
	s.mu.Unlock()

	it := HistoryItem{At: time.Now(), ChatID: to.ChatID, Text: text}
	if err != nil {
		it.Err = err.Error()
	}
	s.hmu.Lock()
	s.history = append(s.history, it)
	if len(s.history) > limit {
		s.history = s.history[len(s.history)-limit:]
	}
	s.hmu.Unlock()
}
