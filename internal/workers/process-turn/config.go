// internal/workers/process-turn/config.go
package processturn

import "time"

type Config struct {
	Timeout       time.Duration
	MaxJobsActive int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       30 * time.Second,
		MaxJobsActive: 10,
	}
}
