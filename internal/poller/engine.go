// Package poller runs the homework status poll loop and the on-demand check.
package poller

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"homeworkbot/internal/homework"
	"homeworkbot/internal/practicum"
	kit "homeworkbot/internal/transport"
	logx "homeworkbot/pkg/logx"
)

const DefaultInterval = 600 * time.Second

// Fetcher queries the status API for items changed since a Unix timestamp.
type Fetcher interface {
	Fetch(ctx context.Context, since int64) (any, error)
}

// Sender delivers one text message to a chat.
type Sender interface {
	Send(ctx context.Context, to kit.ChatTarget, text string) error
}

// StatusReporter receives a one-line summary after each iteration.
type StatusReporter interface {
	Status(text string)
}

type Config struct {
	Interval time.Duration
	Target   kit.ChatTarget
	// ErrorMemoMax bounds the failure dedup set; <= 0 keeps every identity.
	ErrorMemoMax int
}

// Outcome summarizes one iteration.
type Outcome struct {
	Fetched   int
	Delivered int
	// Undelivered counts formatted messages the transport rejected.
	Undelivered int
	Err         error
	// Reported is true when Err was new and a failure message was sent.
	Reported bool
}

// Snapshot is a read-only view for operational commands.
type Snapshot struct {
	Cursor      int64
	Iterations  uint64
	LastRunAt   time.Time
	LastErr     string
	MemoSize    int
	Interval    time.Duration
	LastOutcome Outcome
}

type Option func(*Engine)

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithSleeper overrides the pause between iterations (tests).
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Engine) { e.sleep = fn }
}

func WithStatusReporter(r StatusReporter) Option { return func(e *Engine) { e.status = r } }

// Engine owns the cursor and the error memo. Only the Run loop mutates them.
type Engine struct {
	cfg    Config
	api    Fetcher
	out    Sender
	log    logx.Logger
	status StatusReporter

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu         sync.Mutex
	cursor     int64
	memo       *ErrorMemo
	iterations uint64
	lastRunAt  time.Time
	last       Outcome
}

func NewEngine(cfg Config, api Fetcher, out Sender, log logx.Logger, opts ...Option) *Engine {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	e := &Engine{
		cfg:   cfg,
		api:   api,
		out:   out,
		log:   log,
		now:   time.Now,
		sleep: sleepCtx,
		memo:  NewErrorMemo(cfg.ErrorMemoMax),
	}
	for _, o := range opts {
		o(e)
	}
	e.cursor = e.now().Unix()
	return e
}

// Run iterates until ctx is canceled, sleeping Interval after every
// iteration whatever its outcome.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("polling started",
		logx.Int64("cursor", e.Cursor()),
		logx.Duration("interval", e.cfg.Interval),
		logx.Int64("chat_id", e.cfg.Target.ChatID),
	)
	for {
		e.Iterate(ctx)
		if err := e.sleep(ctx, e.cfg.Interval); err != nil {
			e.log.Info("polling stopped", logx.Int64("cursor", e.Cursor()))
			return nil
		}
	}
}

// Iterate runs one fetch, validate, deliver pass and contains any failure.
func (e *Engine) Iterate(ctx context.Context) Outcome {
	out := e.process(ctx)

	switch {
	case out.Err == nil:
	case ctx.Err() != nil:
		// Shutdown in progress; nothing to report.
	default:
		out.Reported = e.reportFailure(ctx, out.Err)
	}

	e.mu.Lock()
	e.iterations++
	e.lastRunAt = e.now()
	e.last = out
	cursor := e.cursor
	e.mu.Unlock()

	if e.status != nil {
		if out.Err != nil {
			e.status.Status("last poll failed: " + out.Err.Error())
		} else {
			e.status.Status(fmt.Sprintf("last poll ok, %d delivered, cursor %d", out.Delivered, cursor))
		}
	}
	return out
}

func (e *Engine) process(ctx context.Context) Outcome {
	var out Outcome

	raw, err := e.api.Fetch(ctx, e.Cursor())
	if err != nil {
		out.Err = err
		return out
	}
	resp, err := homework.Validate(raw)
	if err != nil {
		out.Err = err
		return out
	}
	out.Fetched = len(resp.Items)
	if len(resp.Items) == 0 {
		e.log.Debug("no new statuses")
	}

	for _, item := range resp.Items {
		msg, err := homework.Format(item)
		if err != nil {
			out.Err = err
			return out
		}
		if err := e.out.Send(ctx, e.cfg.Target, msg); err != nil {
			if ctx.Err() != nil {
				out.Err = ctx.Err()
				return out
			}
			out.Undelivered++
			e.log.Error("failed to send status notification", logx.Err(err))
		} else {
			out.Delivered++
		}
		// Advanced per item; every item in a batch carries the same current_date.
		e.advance(resp)
	}
	return out
}

func (e *Engine) advance(resp homework.Response) {
	if !resp.HasDate {
		e.log.Debug("response has no usable current_date; cursor kept")
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if resp.CurrentDate < e.cursor {
		e.log.Warn("server current_date is behind cursor; cursor kept",
			logx.Int64("cursor", e.cursor),
			logx.Int64("current_date", resp.CurrentDate),
		)
		return
	}
	e.cursor = resp.CurrentDate
}

func (e *Engine) reportFailure(ctx context.Context, err error) bool {
	text := failureText(err)
	e.log.Error(text, logx.String("kind", failureKind(err)))

	e.mu.Lock()
	fresh := e.memo.Remember(err.Error())
	e.mu.Unlock()
	if !fresh {
		return false
	}
	if serr := e.out.Send(ctx, e.cfg.Target, text); serr != nil {
		e.log.Error("failed to send failure notification", logx.Err(serr))
	}
	return true
}

func (e *Engine) Cursor() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Snapshot{
		Cursor:      e.cursor,
		Iterations:  e.iterations,
		LastRunAt:   e.lastRunAt,
		MemoSize:    e.memo.Len(),
		Interval:    e.cfg.Interval,
		LastOutcome: e.last,
	}
	if e.last.Err != nil {
		s.LastErr = e.last.Err.Error()
	}
	return s
}

func failureText(err error) string { return "service failed: " + err.Error() }

func failureKind(err error) string {
	var (
		te *practicum.TransportError
		se *practicum.UnexpectedStatusError
		de *practicum.DecodeError
	)
	switch {
	case errors.As(err, &te):
		return "transport"
	case errors.As(err, &se):
		return "http_" + strconv.Itoa(se.Code)
	case errors.As(err, &de):
		return "decode"
	case errors.Is(err, homework.ErrInvalidPayload):
		return "payload"
	default:
		return "other"
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
