package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Classifier struct {
		URL            string `yaml:"url"`
		TimeoutSeconds int64  `yaml:"timeout_seconds"`
	} `yaml:"classifier"`
	PushGateway struct {
		URL     string `yaml:"url"`
		Enabled bool   `yaml:"enabled"`
	} `yaml:"push_gateway"`
	OpsAlerts struct {
		Enabled          bool   `yaml:"enabled"`
		TelegramBotToken string `yaml:"telegram_bot_token"`
		TelegramChatID   int64  `yaml:"telegram_chat_id"`
	} `yaml:"ops_alerts"`
	Cadence struct {
		CooldownHours int64 `yaml:"cooldown_hours"`
	} `yaml:"cadence"`
	Baseline struct {
		WindowDays int `yaml:"window_days"`
		MinSamples int `yaml:"min_samples"`
	} `yaml:"baseline"`
	Recency struct {
		WindowDays int `yaml:"window_days"`
	} `yaml:"recency"`
	Escalation struct {
		WidenAfterHours int64 `yaml:"widen_after_hours"`
	} `yaml:"escalation"`
	Scheduler struct {
		AvailabilityIntervalSeconds int64 `yaml:"availability_interval_seconds"`
		EscalationIntervalSeconds   int64 `yaml:"escalation_interval_seconds"`
	} `yaml:"scheduler"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
}

// LoadConfig reads configuration from the specified YAML file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyDefaults()

	// Environment overrides for secrets and deploy-specific values
	if url := os.Getenv("DATABASE_URL"); url != "" {
		config.Database.URL = url
	}
	if token := os.Getenv("OPS_TELEGRAM_BOT_TOKEN"); token != "" {
		config.OpsAlerts.TelegramBotToken = token
	}

	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Cadence.CooldownHours == 0 {
		c.Cadence.CooldownHours = 24
	}
	if c.Baseline.WindowDays == 0 {
		c.Baseline.WindowDays = 14
	}
	if c.Baseline.MinSamples == 0 {
		c.Baseline.MinSamples = 3
	}
	if c.Recency.WindowDays == 0 {
		c.Recency.WindowDays = 3
	}
	if c.Escalation.WidenAfterHours == 0 {
		c.Escalation.WidenAfterHours = 6
	}
	if c.Scheduler.AvailabilityIntervalSeconds == 0 {
		c.Scheduler.AvailabilityIntervalSeconds = 30
	}
	if c.Scheduler.EscalationIntervalSeconds == 0 {
		c.Scheduler.EscalationIntervalSeconds = 300
	}
	if c.Classifier.TimeoutSeconds == 0 {
		c.Classifier.TimeoutSeconds = 30
	}
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
}

// CooldownDuration returns the check-in cooldown as a time.Duration.
func (c *Config) CooldownDuration() time.Duration {
	return time.Duration(c.Cadence.CooldownHours) * time.Hour
}

// WidenAfter returns how long a support request may sit unaddressed at one
// tier before it is widened to the next.
func (c *Config) WidenAfter() time.Duration {
	return time.Duration(c.Escalation.WidenAfterHours) * time.Hour
}
