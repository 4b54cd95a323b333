package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ExpiryConfig is the runtime-tunable expiry policy read from expiry.yml.
type ExpiryConfig struct {
	SoonWindowDays     int `mapstructure:"soonWindowDays"`
	DefaultWarningDays int `mapstructure:"defaultWarningDays"`
	ReminderDaysBefore int `mapstructure:"reminderDaysBefore"`
}

func DefaultExpiryConfig() ExpiryConfig {
	return ExpiryConfig{
		SoonWindowDays:     7,
		DefaultWarningDays: 7,
		ReminderDaysBefore: 3,
	}
}

type ExpiryConfigHolder struct {
	current atomic.Value // holds ExpiryConfig
}

// NewStaticExpiryConfigHolder returns a holder that never reloads.
func NewStaticExpiryConfigHolder(cfg ExpiryConfig) *ExpiryConfigHolder {
	holder := &ExpiryConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewExpiryConfigHolder(log *zap.Logger) (*ExpiryConfigHolder, error) {
	log = log.Named("config.expiry")
	v := viper.New()

	v.SetConfigName("expiry")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/shelflife/config")
	v.AddConfigPath("/etc/shelflife")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SHELFLIFE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultExpiryConfig()
	v.SetDefault("expiry.soonWindowDays", defaults.SoonWindowDays)
	v.SetDefault("expiry.defaultWarningDays", defaults.DefaultWarningDays)
	v.SetDefault("expiry.reminderDaysBefore", defaults.ReminderDaysBefore)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg ExpiryConfig
	if err := v.UnmarshalKey("expiry", &cfg); err != nil {
		return nil, err
	}
	if err := validateExpiryConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticExpiryConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated ExpiryConfig
		if err := v.UnmarshalKey("expiry", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateExpiryConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *ExpiryConfigHolder) Get() ExpiryConfig {
	return h.current.Load().(ExpiryConfig)
}

func validateExpiryConfig(cfg ExpiryConfig) error {
	if cfg.SoonWindowDays < 0 {
		return errors.New("expiry.soonWindowDays cannot be negative")
	}
	if cfg.DefaultWarningDays < 1 || cfg.DefaultWarningDays > 30 {
		return errors.New("expiry.defaultWarningDays must be between 1 and 30")
	}
	if cfg.ReminderDaysBefore < 1 || cfg.ReminderDaysBefore > 30 {
		return errors.New("expiry.reminderDaysBefore must be between 1 and 30")
	}
	return nil
}
