// internal/workers/intelligence/personalize-insights/config.go
package personalizeinsights

import (
	"time"

	"intelligence-workers/internal/common/config"
)

type Config struct {
	Timeout     time.Duration
	FixtureMode bool
	// MaxInsights bounds a single job; larger batches are rejected.
	MaxInsights int
}

func NewConfig(appCfg *config.Config) *Config {
	cfg := &Config{Timeout: 60 * time.Second, MaxInsights: 500}
	if appCfg == nil {
		return cfg
	}
	if wc := config.GetWorkerConfig(appCfg, TaskType); wc.Timeout > 0 {
		cfg.Timeout = config.GetDuration(wc.Timeout)
	}
	cfg.FixtureMode = appCfg.Personalization.FixtureMode
	return cfg
}
