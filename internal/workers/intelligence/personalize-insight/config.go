// internal/workers/intelligence/personalize-insight/config.go
package personalizeinsight

import (
	"time"

	"intelligence-workers/internal/common/config"
)

type Config struct {
	Timeout     time.Duration
	FixtureMode bool
}

// NewConfig reads the worker timeout and the fixture-mode default. A nil
// appCfg yields the defaults.
func NewConfig(appCfg *config.Config) *Config {
	cfg := &Config{Timeout: 30 * time.Second}
	if appCfg == nil {
		return cfg
	}
	if wc := config.GetWorkerConfig(appCfg, TaskType); wc.Timeout > 0 {
		cfg.Timeout = config.GetDuration(wc.Timeout)
	}
	cfg.FixtureMode = appCfg.Personalization.FixtureMode
	return cfg
}
