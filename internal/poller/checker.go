package poller

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"homeworkbot/internal/homework"
	kit "homeworkbot/internal/transport"
	logx "homeworkbot/pkg/logx"
)

const CheckWindow = 24 * time.Hour

const (
	checkStartText   = "checking statuses for the last 24 hours..."
	checkNothingText = "no updated statuses"
)

// Checker runs the pipeline once over the last 24 hours and replies in the
// chat that asked. It shares nothing with Engine.
type Checker struct {
	api Fetcher
	out Sender
	log logx.Logger
	now func() time.Time
}

func NewChecker(api Fetcher, out Sender, log logx.Logger) *Checker {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Checker{api: api, out: out, log: log, now: time.Now}
}

// CheckResult reports what a Check did. Err is informational only.
type CheckResult struct {
	Replies int
	Err     error
}

// Check never panics and never returns an error to the caller; failures are
// logged and replied to the chat.
func (c *Checker) Check(ctx context.Context, to kit.ChatTarget) (res CheckResult) {
	log := c.log.With(logx.Int64("chat_id", to.ChatID))
	log.Info("check command received")

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic in check", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			res.Err = fmt.Errorf("panic: %v", r)
			c.fail(ctx, log, to, res.Err, &res)
		}
	}()

	c.reply(ctx, log, to, checkStartText, &res)

	since := c.now().Add(-CheckWindow).Unix()
	raw, err := c.api.Fetch(ctx, since)
	if err != nil {
		res.Err = err
		c.fail(ctx, log, to, err, &res)
		return res
	}
	resp, err := homework.Validate(raw)
	if err != nil {
		res.Err = err
		c.fail(ctx, log, to, err, &res)
		return res
	}
	if len(resp.Items) == 0 {
		c.reply(ctx, log, to, checkNothingText, &res)
		return res
	}
	for _, item := range resp.Items {
		msg, err := homework.Format(item)
		if err != nil {
			res.Err = err
			c.fail(ctx, log, to, err, &res)
			return res
		}
		c.reply(ctx, log, to, msg, &res)
	}
	return res
}

func (c *Checker) fail(ctx context.Context, log logx.Logger, to kit.ChatTarget, err error, res *CheckResult) {
	text := failureText(err)
	log.Error(text, logx.String("kind", failureKind(err)))
	c.reply(ctx, log, to, text, res)
}

func (c *Checker) reply(ctx context.Context, log logx.Logger, to kit.ChatTarget, text string, res *CheckResult) {
	if err := c.out.Send(ctx, to, text); err != nil {
		log.Error("failed to reply", logx.Err(err))
		return
	}
	res.Replies++
}
