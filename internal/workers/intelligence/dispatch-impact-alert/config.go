// internal/workers/intelligence/dispatch-impact-alert/config.go
package dispatchimpactalert

import (
	"time"

	"intelligence-workers/internal/common/config"
)

type Config struct {
	Timeout            time.Duration
	EmailEnabled       bool
	SMSEnabled         bool
	WebhookURL         string
	WebhookSecret      string
	RelevanceThreshold float64
}

func NewConfig(appCfg *config.Config) *Config {
	cfg := &Config{Timeout: 30 * time.Second, RelevanceThreshold: 0.7}
	if appCfg == nil {
		return cfg
	}
	if wc := config.GetWorkerConfig(appCfg, TaskType); wc.Timeout > 0 {
		cfg.Timeout = config.GetDuration(wc.Timeout)
	}
	n := appCfg.Notifications
	cfg.EmailEnabled = n.EmailEnabled
	cfg.SMSEnabled = n.SMSEnabled
	cfg.WebhookURL = n.WebhookURL
	cfg.WebhookSecret = n.WebhookSecret
	if n.RelevanceThreshold > 0 {
		cfg.RelevanceThreshold = n.RelevanceThreshold
	}
	return cfg
}
