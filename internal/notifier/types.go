package notifier

import (
	"errors"
	"time"
)

// ErrNoAdapter is returned when the service was built without a transport.
var ErrNoAdapter = errors.New("notifier has no transport")

// Config controls delivery pacing and retries.
type Config struct {
	RatePerSec    int
	RetryMax      int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
	SendTimeout   time.Duration
	HistorySize   int
}

type HistoryItem struct {
	At     time.Time
	ChatID int64
	Text   string
	Err    string
}

// DeliveryError reports that a message could not be delivered after all attempts.
type DeliveryError struct {
	ChatID   int64
	Attempts int
	Err      error
}

func (e *DeliveryError) Error() string {
	return "delivery failed: " + e.Err.Error()
}

func (e *DeliveryError) Unwrap() error { return e.Err }
