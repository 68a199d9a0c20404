// Package config loads server settings from an optional YAML file and
// CHORELEDGER_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const envPrefix = "CHORELEDGER_"

type Config struct {
	Port           string   `yaml:"port"`
	DBPath         string   `yaml:"db_path"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	CronSecret     string   `yaml:"cron_secret"`

	Log    LogConfig    `yaml:"log"`
	Push   PushConfig   `yaml:"push"`
	Backup BackupConfig `yaml:"backup"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type PushConfig struct {
	VAPIDPublicKey  string `yaml:"vapid_public_key"`
	VAPIDPrivateKey string `yaml:"vapid_private_key"`
	Subscriber      string `yaml:"subscriber"`
	// ReminderWindow is the tolerance around a user's notification time.
	ReminderWindow time.Duration `yaml:"reminder_window"`
	// ReminderInterval runs the sweep in-process when positive. Zero leaves
	// it to an external cron.
	ReminderInterval time.Duration `yaml:"reminder_interval"`
}

type BackupConfig struct {
	Endpoint      string `yaml:"endpoint"`
	Bucket        string `yaml:"bucket"`
	Region        string `yaml:"region"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	Prefix        string `yaml:"prefix"`
	Passphrase    string `yaml:"passphrase"`
	RetentionDays int    `yaml:"retention_days"`
	// Interval schedules backups in-process when positive.
	Interval time.Duration `yaml:"interval"`
}

// Enabled reports whether enough is configured to upload backups.
func (b BackupConfig) Enabled() bool {
	return b.Bucket != "" && b.AccessKey != "" && b.SecretKey != "" && b.Passphrase != ""
}

func Default() Config {
	return Config{
		Port:   "8080",
		DBPath: "choreledger.db",
		Log:    LogConfig{Level: "info", Format: "text"},
		Push: PushConfig{
			Subscriber:     "mailto:noreply@choreledger.app",
			ReminderWindow: 30 * time.Minute,
		},
		Backup: BackupConfig{
			Region:        "us-east-1",
			Prefix:        "choreledger/",
			RetentionDays: 30,
		},
	}
}

// Load reads path (skipped when empty) over the defaults, then applies
// environment overrides looked up through getenv.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, getenv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	str := func(name string, dst *string) {
		if v := getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}
	var errs []error
	dur := func(name string, dst *time.Duration) {
		if v := getenv(envPrefix + name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = d
		}
	}

	str("PORT", &cfg.Port)
	str("DB_PATH", &cfg.DBPath)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("CRON_SECRET", &cfg.CronSecret)
	if cfg.CronSecret == "" {
		cfg.CronSecret = getenv("CRON_SECRET")
	}
	if v := getenv(envPrefix + "ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	str("VAPID_PUBLIC_KEY", &cfg.Push.VAPIDPublicKey)
	str("VAPID_PRIVATE_KEY", &cfg.Push.VAPIDPrivateKey)
	str("PUSH_SUBSCRIBER", &cfg.Push.Subscriber)
	dur("REMINDER_WINDOW", &cfg.Push.ReminderWindow)
	dur("REMINDER_INTERVAL", &cfg.Push.ReminderInterval)

	str("S3_ENDPOINT", &cfg.Backup.Endpoint)
	str("S3_BUCKET", &cfg.Backup.Bucket)
	str("S3_REGION", &cfg.Backup.Region)
	str("S3_ACCESS_KEY", &cfg.Backup.AccessKey)
	str("S3_SECRET_KEY", &cfg.Backup.SecretKey)
	str("S3_PREFIX", &cfg.Backup.Prefix)
	str("BACKUP_PASSPHRASE", &cfg.Backup.Passphrase)
	dur("BACKUP_INTERVAL", &cfg.Backup.Interval)
	if v := getenv(envPrefix + "BACKUP_RETENTION_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sBACKUP_RETENTION_DAYS: %w", envPrefix, err))
		} else {
			cfg.Backup.RetentionDays = n
		}
	}

	return errors.Join(errs...)
}

func (c Config) Validate() error {
	var errs []error
	if p, err := strconv.Atoi(c.Port); err != nil || p <= 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("port %q is not a valid TCP port", c.Port))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if (c.Push.VAPIDPublicKey == "") != (c.Push.VAPIDPrivateKey == "") {
		errs = append(errs, errors.New("push: set both VAPID keys or neither"))
	}
	if c.Push.ReminderWindow < 0 || c.Push.ReminderInterval < 0 || c.Backup.Interval < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}
	if c.Backup.RetentionDays < 0 {
		errs = append(errs, errors.New("backup: retention_days must not be negative"))
	}
	return errors.Join(errs...)
}
