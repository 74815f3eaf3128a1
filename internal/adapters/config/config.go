package config

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "TELEVAULT"

// ServerConfig holds the local HTTP surface (health, readiness, metrics).
type ServerConfig struct {
	HTTPPort int `mapstructure:"http_port"`
}

// TraktConfig holds the upstream API endpoints and OAuth client
// credentials. Secrets are expected from ENV (TELEVAULT_TRAKT_CLIENT_ID,
// TELEVAULT_TRAKT_CLIENT_SECRET), not the config file.
type TraktConfig struct {
	APIHost               string `mapstructure:"api_host"`
	SiteHost              string `mapstructure:"site_host"`
	ClientID              string `mapstructure:"client_id"`
	ClientSecret          string `mapstructure:"client_secret"`
	RedirectURI           string `mapstructure:"redirect_uri"`
	OAuthPort             int    `mapstructure:"oauth_port"`
	ConnectTimeoutSeconds int    `mapstructure:"connect_timeout_seconds"`
	UserAgent             string `mapstructure:"user_agent"`
}

// StoreConfig holds the local SQLite engine settings.
type StoreConfig struct {
	Path     string `mapstructure:"path"`
	PoolSize int    `mapstructure:"pool_size"`
}

// CacheConfig holds the per-category TTL and staleness windows. These
// and the pool size are the only externally tunable cache parameters.
type CacheConfig struct {
	MediaTTLHours          int `mapstructure:"media_ttl_hours"`
	MediaLongTTLDays       int `mapstructure:"media_long_ttl_days"`
	MediaStaleMinutes      int `mapstructure:"media_stale_minutes"`
	ResponseTTLHours       int `mapstructure:"response_ttl_hours"`
	UserStaleMinutes       int `mapstructure:"user_stale_minutes"`
	TranslationTTLDays     int `mapstructure:"translation_ttl_days"`
	RevalidateQueueSize    int `mapstructure:"revalidate_queue_size"`
	RevalidateWorkerCount  int `mapstructure:"revalidate_worker_count"`
	UpNextScanWindowFactor int `mapstructure:"up_next_scan_window_factor"`
}

// NATSConfig holds the notification sink settings.
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// LogConfig holds logging-related configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// AppConfig holds application-wide settings.
type AppConfig struct {
	ServiceName            string `mapstructure:"service_name"`
	Version                string `mapstructure:"version"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
}

// Config is the root configuration tree.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Trakt  TraktConfig  `mapstructure:"trakt"`
	Store  StoreConfig  `mapstructure:"store"`
	Cache  CacheConfig  `mapstructure:"cache"`
	NATS   NATSConfig   `mapstructure:"nats"`
	Log    LogConfig    `mapstructure:"log"`
	App    AppConfig    `mapstructure:"app"`
}

// ConnectTimeout returns the upstream connect timeout, defaulting to 5s.
func (t TraktConfig) ConnectTimeout() time.Duration {
	if t.ConnectTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(t.ConnectTimeoutSeconds) * time.Second
}

// Provider is the interface for accessing application configuration,
// decoupling the rest of the app from Viper and easing test fakes.
type Provider interface {
	Get() *Config
}

// viperProvider implements Provider using Viper. The config pointer
// is atomic: reload goroutines swap it while Get reads it.
type viperProvider struct {
	config atomic.Pointer[Config]
	logger *zap.Logger // raw zap here; domain.Logger would be a circular dep
}

// NewViperProvider loads configuration from a YAML file plus
// TELEVAULT_-prefixed environment variables, applies defaults, and
// sets up hot reload via SIGHUP and file-change watching.
func NewViperProvider(appCtx context.Context, logger *zap.Logger) (Provider, error) {
	cfg := &Config{}
	v := viper.New()

	setDefaults(v)

	configName := os.Getenv("TELEVAULT_CONFIG_NAME")
	if configName == "" {
		configName = "config"
	}
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	if path := os.Getenv("TELEVAULT_CONFIG_PATH"); path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.Warn("Config file not found; relying on defaults and environment variables", zap.Error(err))
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	p := &viperProvider{
		logger: logger,
	}
	p.config.Store(cfg)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("Panic recovered in SIGHUP handler goroutine",
					zap.Any("panic_info", r),
					zap.String("stacktrace", string(debug.Stack())),
				)
			}
		}()
		for {
			select {
			case sig := <-sigChan:
				p.logger.Info("SIGHUP received, reloading configuration", zap.String("signal", sig.String()))
				if err := v.ReadInConfig(); err != nil {
					p.logger.Error("Failed to re-read config file on SIGHUP", zap.Error(err))
					continue
				}
				newCfg := &Config{}
				if err := v.Unmarshal(newCfg); err != nil {
					p.logger.Error("Failed to unmarshal re-read config on SIGHUP", zap.Error(err))
				} else {
					p.config.Store(newCfg)
					p.logger.Info("Configuration reloaded via SIGHUP")
				}
			case <-appCtx.Done():
				return
			}
		}
	}()

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("Panic recovered in OnConfigChange callback",
					zap.String("event_name", e.Name),
					zap.Any("panic_info", r),
					zap.String("stacktrace", string(debug.Stack())),
				)
			}
		}()
		newCfg := &Config{}
		if err := v.Unmarshal(newCfg); err != nil {
			p.logger.Error("Failed to unmarshal config on file change", zap.Error(err))
		} else {
			p.config.Store(newCfg)
			p.logger.Info("Configuration reloaded via file change", zap.String("name", e.Name))
		}
	})

	p.logger.Info("Configuration loaded", zap.String("config_file_used", v.ConfigFileUsed()))

	return p, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", 8099)
	v.SetDefault("trakt.api_host", "https://api.trakt.tv")
	v.SetDefault("trakt.site_host", "https://trakt.tv")
	v.SetDefault("trakt.redirect_uri", "/oauth/callback")
	v.SetDefault("trakt.oauth_port", 4396)
	v.SetDefault("trakt.connect_timeout_seconds", 5)
	v.SetDefault("trakt.user_agent", "televault/1.0")
	v.SetDefault("store.path", "televault.db")
	v.SetDefault("store.pool_size", 5)
	v.SetDefault("cache.media_ttl_hours", 24)
	v.SetDefault("cache.media_long_ttl_days", 30)
	v.SetDefault("cache.media_stale_minutes", 60)
	v.SetDefault("cache.response_ttl_hours", 4)
	v.SetDefault("cache.user_stale_minutes", 5)
	v.SetDefault("cache.translation_ttl_days", 7)
	v.SetDefault("cache.revalidate_queue_size", 64)
	v.SetDefault("cache.revalidate_worker_count", 4)
	v.SetDefault("cache.up_next_scan_window_factor", 3)
	v.SetDefault("nats.subject_prefix", "televault")
	v.SetDefault("log.level", "info")
	v.SetDefault("app.service_name", "televault")
	v.SetDefault("app.shutdown_timeout_seconds", 10)
}

// Get returns the current configuration.
func (p *viperProvider) Get() *Config {
	return p.config.Load()
}
