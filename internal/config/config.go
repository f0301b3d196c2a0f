package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"barberdesk/internal/schedule"
	"barberdesk/internal/timeslot"
)

type Config struct {
	Server struct {
		Port        int     `yaml:"port"`
		AdminAPIKey string  `yaml:"admin_api_key"`
		RateLimit   float64 `yaml:"rate_limit_rps"`
		RateBurst   int     `yaml:"rate_limit_burst"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Shop struct {
		Timezone     string `yaml:"timezone"`
		OpenTime     string `yaml:"open_time"`
		CloseTime    string `yaml:"close_time"`
		CutoffMin    int    `yaml:"cutoff_minutes"`
		BarberChairs bool   `yaml:"per_barber_capacity"`
	} `yaml:"shop"`

	Booking struct {
		DuplicateWindowHours int `yaml:"duplicate_window_hours"`
		SweepIntervalMinutes int `yaml:"sweep_interval_minutes"`
	} `yaml:"booking"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		StoragePath   string `yaml:"storage_path"`
		IntervalHours int    `yaml:"interval_hours"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimit <= 0 {
		c.Server.RateLimit = 10
	}
	if c.Server.RateBurst <= 0 {
		c.Server.RateBurst = 20
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/barberdesk.db"
	}
	if c.Shop.Timezone == "" {
		c.Shop.Timezone = "Local"
	}
	if c.Shop.OpenTime == "" {
		c.Shop.OpenTime = "09:00"
	}
	if c.Shop.CloseTime == "" {
		c.Shop.CloseTime = "19:30"
	}
	if c.Shop.CutoffMin <= 0 {
		c.Shop.CutoffMin = 60
	}
	if c.Booking.DuplicateWindowHours <= 0 {
		c.Booking.DuplicateWindowHours = 3
	}
	if c.Booking.SweepIntervalMinutes <= 0 {
		c.Booking.SweepIntervalMinutes = 60
	}
	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "data/backups"
	}
	if c.Backup.IntervalHours <= 0 {
		c.Backup.IntervalHours = 24
	}
	if c.Backup.RetentionDays <= 0 {
		c.Backup.RetentionDays = 14
	}
}

// Location resolves the shop timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Shop.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Shop.Timezone, err)
	}
	return loc, nil
}

// BusinessHours builds the opening window from the configured times.
func (c *Config) BusinessHours() (schedule.Hours, error) {
	open, err := timeslot.ParseTimeOfDay(c.Shop.OpenTime)
	if err != nil {
		return schedule.Hours{}, fmt.Errorf("shop.open_time: %w", err)
	}
	closeAt, err := timeslot.ParseTimeOfDay(c.Shop.CloseTime)
	if err != nil {
		return schedule.Hours{}, fmt.Errorf("shop.close_time: %w", err)
	}
	if closeAt <= open {
		return schedule.Hours{}, fmt.Errorf("shop.close_time %s is not after open_time %s", closeAt, open)
	}
	return schedule.Hours{Open: open, Close: closeAt, CutoffMin: c.Shop.CutoffMin}, nil
}

func (c *Config) DuplicateWindow() time.Duration {
	return time.Duration(c.Booking.DuplicateWindowHours) * time.Hour
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Booking.SweepIntervalMinutes) * time.Minute
}

func (c *Config) BackupInterval() time.Duration {
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}
