package application

import (
	"errors"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	alerts "firewatch-cloud/internal/alerts/domain"
)

// Config defines lifecycle engine tuning.
type Config struct {
	Timeouts       alerts.TimeoutPolicy
	EscalationStep float64
	UpdateRetries  int
}

type yamlConfig struct {
	Timeouts struct {
		High   string `yaml:"high"`
		Mid    string `yaml:"mid"`
		Normal string `yaml:"normal"`
	} `yaml:"timeouts"`
	EscalationStep float64 `yaml:"escalation_step"`
	UpdateRetries  int     `yaml:"update_retries"`
}

// LoadConfig loads engine config from yaml or env.
func LoadConfig() (Config, error) {
	cfg := Config{
		Timeouts:       alerts.DefaultTimeoutPolicy(),
		EscalationStep: getenvFloatDefault("ALERTS_ESCALATION_STEP", 20),
		UpdateRetries:  getenvIntDefault("ALERTS_UPDATE_RETRIES", 3),
	}

	if path := os.Getenv("ALERTS_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		var raw yamlConfig
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return cfg, err
		}
		if err := applyDuration(&cfg.Timeouts.High, raw.Timeouts.High); err != nil {
			return cfg, err
		}
		if err := applyDuration(&cfg.Timeouts.Mid, raw.Timeouts.Mid); err != nil {
			return cfg, err
		}
		if err := applyDuration(&cfg.Timeouts.Normal, raw.Timeouts.Normal); err != nil {
			return cfg, err
		}
		if raw.EscalationStep != 0 {
			cfg.EscalationStep = raw.EscalationStep
		}
		if raw.UpdateRetries != 0 {
			cfg.UpdateRetries = raw.UpdateRetries
		}
	}

	if cfg.Timeouts.High <= 0 || cfg.Timeouts.Mid <= 0 || cfg.Timeouts.Normal <= 0 {
		return cfg, errors.New("alerts: response timeouts must be positive")
	}
	if cfg.EscalationStep <= 0 {
		return cfg, errors.New("alerts: escalation step must be positive")
	}
	if cfg.UpdateRetries < 1 {
		cfg.UpdateRetries = 1
	}
	return cfg, nil
}

func applyDuration(target *time.Duration, value string) error {
	if value == "" {
		return nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	*target = parsed
	return nil
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
