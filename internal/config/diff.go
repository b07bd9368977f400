package config

import (
	"reflect"
	"sort"
	"strings"

	logx "homeworkbot/pkg/logx"
)

// SummarizeConfigChange returns (1) the changed sections that apply live,
// (2) safe structured attrs for logging (never tokens), and (3) changed
// sections that only take effect after a restart.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field, []string) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 2)
	restart := make([]string, 0, 3)
	attrs := make([]logx.Field, 0, 12)

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	oldN, newN := derefNotifier(oldCfg.Notifier), derefNotifier(newCfg.Notifier)
	if oldN != newN {
		changed = append(changed, "notifier")
		attrs = append(attrs,
			logx.Int("notifier.rate_per_sec", newN.RatePerSec),
			logx.Int("notifier.retry_max", newN.RetryMax),
			logx.String("notifier.retry_base", strings.TrimSpace(newN.RetryBase)),
			logx.Int("notifier.history_size", newN.HistorySize),
		)
	}

	// Credentials and loop settings are read once at startup.
	if oldCfg.Telegram.Token != newCfg.Telegram.Token ||
		oldCfg.Telegram.ChatID != newCfg.Telegram.ChatID ||
		strings.TrimSpace(oldCfg.Telegram.PollTimeout) != strings.TrimSpace(newCfg.Telegram.PollTimeout) ||
		oldCfg.Telegram.APIURL != newCfg.Telegram.APIURL ||
		!reflect.DeepEqual(oldCfg.Telegram.OwnerUserIDs, newCfg.Telegram.OwnerUserIDs) {
		restart = append(restart, "telegram")
		attrs = append(attrs, logx.Int("telegram.owner_count", len(newCfg.Telegram.OwnerUserIDs)))
	}
	if oldCfg.Practicum != newCfg.Practicum {
		restart = append(restart, "practicum")
	}
	if oldCfg.Poll != newCfg.Poll {
		restart = append(restart, "poll")
		attrs = append(attrs, logx.String("poll.interval", strings.TrimSpace(newCfg.Poll.Interval)))
	}

	sort.Strings(changed)
	sort.Strings(restart)
	return changed, attrs, restart
}

func derefNotifier(n *NotifierConfig) NotifierConfig {
	if n == nil {
		return NotifierConfig{}
	}
	return *n
}
