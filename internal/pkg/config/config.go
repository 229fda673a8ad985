package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	WinixCfg *WinixConfig
	MqttCfg  *MqttConfig
	LogLevel string
	HTTPAddr string
	// empty disables the history store
	DatabaseURL      string
	MigrationsFolder string
	// bcrypt hash of the API key; empty leaves the HTTP API open
	APIKeyHash string
}

type WinixConfig struct {
	BaseURL          string        `env:"WINIX_BASE_URL" envDefault:"https://us.api.winix-iot.com"`
	AccessToken      string        `env:"WINIX_ACCESS_TOKEN"`
	DevicesFile      string        `env:"WINIX_DEVICES_FILE"`
	PollSchedule     string        `env:"WINIX_POLL_SCHEDULE" envDefault:"@every 30s"`
	RequestTimeout   time.Duration `env:"WINIX_REQUEST_TIMEOUT" envDefault:"15s"`
	HistoryRetention time.Duration `env:"WINIX_HISTORY_RETENTION" envDefault:"192h"`
}

type MqttConfig struct {
	Host     string
	Username string
	Password string
}

func (m *MqttConfig) Enabled() bool {
	return m != nil && m.Host != ""
}

// LoadWinix reads the vendor block from the environment.
func LoadWinix() (*WinixConfig, error) {
	cfg, err := env.ParseAs[WinixConfig]()
	if err != nil {
		return nil, fmt.Errorf("parse winix config: %w", err)
	}
	return &cfg, nil
}

// LoadWinixFrom is LoadWinix over an explicit environment.
func LoadWinixFrom(environment map[string]string) (*WinixConfig, error) {
	cfg, err := env.ParseAsWithOptions[WinixConfig](env.Options{Environment: environment})
	if err != nil {
		return nil, fmt.Errorf("parse winix config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.WinixCfg == nil {
		return errors.New("winix config missing")
	}
	if c.WinixCfg.AccessToken == "" {
		errs = append(errs, errors.New("WINIX_ACCESS_TOKEN is required"))
	}
	if c.WinixCfg.DevicesFile == "" {
		errs = append(errs, errors.New("WINIX_DEVICES_FILE is required"))
	}
	if c.WinixCfg.RequestTimeout <= 0 {
		errs = append(errs, errors.New("WINIX_REQUEST_TIMEOUT must be positive"))
	}
	if c.DatabaseURL != "" && c.MigrationsFolder == "" {
		errs = append(errs, errors.New("migrations-folder is required with database-url"))
	}
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http-addr is required"))
	}
	return errors.Join(errs...)
}
