package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrMissingCredentials = errors.New("required credentials are missing")

// MissingCredentialsError lists the environment variables that were empty.
type MissingCredentialsError struct {
	Missing []string
}

func (e *MissingCredentialsError) Error() string {
	return "missing credentials: " + strings.Join(e.Missing, ", ")
}

func (e *MissingCredentialsError) Is(target error) bool { return target == ErrMissingCredentials }

// CheckCredentials reports every absent credential at once.
func (c *Config) CheckCredentials() error {
	var missing []string
	if strings.TrimSpace(c.Practicum.Token) == "" {
		missing = append(missing, EnvPracticumToken)
	}
	if strings.TrimSpace(c.Telegram.Token) == "" {
		missing = append(missing, EnvTelegramToken)
	}
	if strings.TrimSpace(c.Telegram.ChatID) == "" {
		missing = append(missing, EnvTelegramChatID)
	}
	if len(missing) > 0 {
		return &MissingCredentialsError{Missing: missing}
	}
	return nil
}

// TargetChatID parses telegram.chat_id.
func (c *Config) TargetChatID() (int64, error) {
	raw := strings.TrimSpace(c.Telegram.ChatID)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram.chat_id: invalid chat id %q", raw)
	}
	return id, nil
}

// Validate checks credentials first, then every field that would otherwise
// fail later at wiring time.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := c.CheckCredentials(); err != nil {
		return err
	}
	if _, err := c.TargetChatID(); err != nil {
		return err
	}

	checks := []struct{ path, raw string }{
		{"telegram.poll_timeout", c.Telegram.PollTimeout},
		{"practicum.timeout", c.Practicum.Timeout},
		{"poll.interval", c.Poll.Interval},
	}
	if n := c.Notifier; n != nil {
		checks = append(checks,
			struct{ path, raw string }{"notifier.retry_base", n.RetryBase},
			struct{ path, raw string }{"notifier.retry_max_delay", n.RetryMaxDelay},
			struct{ path, raw string }{"notifier.send_timeout", n.SendTimeout},
		)
		if n.RatePerSec < 0 || n.RetryMax < 0 || n.HistorySize < 0 {
			return errors.New("notifier: numeric fields must be >= 0")
		}
	}
	for _, ch := range checks {
		if _, err := ParseDurationField(ch.path, ch.raw); err != nil {
			return err
		}
	}
	if c.Poll.ErrorMemoMax < 0 {
		return errors.New("poll.error_memo_max must be >= 0")
	}
	return nil
}
