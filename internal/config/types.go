package config

// Config is the on-disk (JSON or YAML) configuration, with environment
// overrides applied on top.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "10m").
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Practicum PracticumConfig `json:"practicum"`
	Poll      PollConfig      `json:"poll"`
	Logging   LoggingConfig   `json:"logging"`
	Notifier  *NotifierConfig `json:"notifier,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token,omitempty"`
	// ChatID is the chat that receives status notifications. Kept as a
	// string so env and file values go through the same parser.
	ChatID string `json:"chat_id,omitempty"`
	// OwnerUserIDs restricts owner-only commands (/status). Empty means nobody.
	OwnerUserIDs []int64 `json:"owner_user_ids,omitempty"`
	PollTimeout  string  `json:"poll_timeout,omitempty"`
	// APIURL overrides the Bot API base URL (self-hosted bot API server).
	APIURL string `json:"api_url,omitempty"`
}

type PracticumConfig struct {
	Endpoint string `json:"endpoint,omitempty"`
	Token    string `json:"token,omitempty"`
	// Timeout bounds one status API request. Default "30s".
	Timeout string `json:"timeout,omitempty"`
}

type PollConfig struct {
	// Interval between iterations. Default "10m".
	Interval string `json:"interval,omitempty"`
	// ErrorMemoMax bounds the failure dedup set; 0 keeps every identity.
	ErrorMemoMax int `json:"error_memo_max,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// NotifierConfig controls outbound message pacing and retries.
//
// If the whole section is omitted, runtime defaults apply:
// rate_per_sec 3, retry_max 3, retry_base "500ms", retry_max_delay "10s",
// send_timeout "10s", history_size 50.
type NotifierConfig struct {
	RatePerSec    int    `json:"rate_per_sec"`
	RetryMax      int    `json:"retry_max"`
	RetryBase     string `json:"retry_base"`
	RetryMaxDelay string `json:"retry_max_delay"`
	SendTimeout   string `json:"send_timeout,omitempty"`
	HistorySize   int    `json:"history_size,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Poll:    PollConfig{Interval: "10m"},
		Logging: LoggingConfig{Level: "info", Console: true},
	}
}
