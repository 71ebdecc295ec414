package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// SiteSettings carries host-level presentation settings: where admins are reached and how
// dates are displayed.
type SiteSettings struct {
	SiteName   string `mapstructure:"siteName"`
	SiteURL    string `mapstructure:"siteURL"`
	AdminEmail string `mapstructure:"adminEmail"`
	// AdminUserEditURL is a URL prefix; the user id is appended as the user_id query value.
	AdminUserEditURL string `mapstructure:"adminUserEditURL"`
	Timezone         string `mapstructure:"timezone"`
	// DateFormat is a Go time layout.
	DateFormat string `mapstructure:"dateFormat"`
}

// Location resolves the configured timezone, falling back to UTC.
func (s SiteSettings) Location() *time.Location {
	name := strings.TrimSpace(s.Timezone)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func DefaultSiteSettings() SiteSettings {
	return SiteSettings{
		SiteName:         "Membership",
		SiteURL:          "http://localhost:8080",
		AdminEmail:       "admin@localhost",
		AdminUserEditURL: "http://localhost:8080/admin/user-edit",
		Timezone:         "UTC",
		DateFormat:       "January 2, 2006",
	}
}

// SiteSettingsProvider returns the current site settings.
type SiteSettingsProvider interface {
	Get() SiteSettings
}

// StaticSiteSettings is a fixed SiteSettingsProvider.
type StaticSiteSettings SiteSettings

func (s StaticSiteSettings) Get() SiteSettings { return SiteSettings(s) }

type SiteSettingsHolder struct {
	current atomic.Value // holds SiteSettings
}

func NewSiteSettingsHolder(log *zap.Logger) (*SiteSettingsHolder, error) {
	log = log.Named("config.site")

	v := viper.New()
	v.SetConfigName("site")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/membership")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MEMBERSHIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultSiteSettings()
	v.SetDefault("site.siteName", defaults.SiteName)
	v.SetDefault("site.siteURL", defaults.SiteURL)
	v.SetDefault("site.adminEmail", defaults.AdminEmail)
	v.SetDefault("site.adminUserEditURL", defaults.AdminUserEditURL)
	v.SetDefault("site.timezone", defaults.Timezone)
	v.SetDefault("site.dateFormat", defaults.DateFormat)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		watch = false
	}

	var cfg SiteSettings
	if err := v.UnmarshalKey("site", &cfg); err != nil {
		return nil, err
	}
	if err := validateSiteSettings(cfg); err != nil {
		return nil, err
	}

	holder := &SiteSettingsHolder{}
	holder.current.Store(cfg)

	if watch {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated SiteSettings
			if err := v.UnmarshalKey("site", &updated); err != nil {
				log.Warn("site settings reload failed", zap.Error(err))
				return
			}
			if err := validateSiteSettings(updated); err != nil {
				log.Warn("invalid site settings ignored", zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("site settings reloaded", zap.String("file", e.Name))
		})
	}

	return holder, nil
}

func (h *SiteSettingsHolder) Get() SiteSettings {
	return h.current.Load().(SiteSettings)
}

func validateSiteSettings(cfg SiteSettings) error {
	if strings.TrimSpace(cfg.DateFormat) == "" {
		return errors.New("site.dateFormat cannot be empty")
	}
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return errors.New("site.timezone is not a known location")
		}
	}
	return nil
}
