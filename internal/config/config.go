package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Navigation NavigationConfig `mapstructure:"navigation"`
	Devtools   DevtoolsConfig   `mapstructure:"devtools"`
	Queries    QueriesConfig    `mapstructure:"queries"`
	Settings   SettingsConfig   `mapstructure:"settings"`
	Session    SessionConfig    `mapstructure:"session"`
	TimeWindow TimeWindowConfig `mapstructure:"timewindow"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Log        LogConfig        `mapstructure:"log"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// NavigationConfig holds the start location and the known routes.
type NavigationConfig struct {
	InitialPath string   `mapstructure:"initial_path"`
	Routes      []string `mapstructure:"routes"`
}

// DevtoolsConfig controls the inspection tap. Addr empty disables the
// websocket server; Journal persists records to the database.
type DevtoolsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	MaxAge  int    `mapstructure:"max_age"`
	Journal bool   `mapstructure:"journal"`
}

// QueriesConfig drives the query manager.
type QueriesConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
}

// SettingsConfig locates the local settings file.
type SettingsConfig struct {
	Path  string `mapstructure:"path"`
	Watch bool   `mapstructure:"watch"`
}

// SessionConfig locates the encrypted login session.
type SessionConfig struct {
	Dir string `mapstructure:"dir"`
}

type TimeWindowConfig struct {
	Scale string `mapstructure:"scale"`
}

// MetricsConfig exposes prometheus metrics when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig selects level, format (text or json) and an optional file.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// DefaultRoutes are the admin UI screens.
var DefaultRoutes = []string{"/", "/overview", "/nodes", "/nodes/:id", "/jobs", "/jobs/:id", "/metrics/*", "/settings", "/login"}

// Load reads configuration from file and env. Env var overrides use prefix ADMINUI_.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("ADMINUI_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "adminui"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("ADMINUI")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	data := filepath.Join(os.Getenv("HOME"), ".local", "share", "adminui")
	v.SetDefault("database.path", filepath.Join(data, "adminui.db"))
	v.SetDefault("navigation.initial_path", "/overview")
	v.SetDefault("navigation.routes", DefaultRoutes)
	v.SetDefault("devtools.enabled", false)
	v.SetDefault("devtools.addr", "")
	v.SetDefault("devtools.max_age", 50)
	v.SetDefault("devtools.journal", false)
	v.SetDefault("queries.refresh_interval", 10*time.Second)
	v.SetDefault("queries.retry_delay", 2*time.Second)
	v.SetDefault("settings.path", filepath.Join(os.Getenv("HOME"), ".config", "adminui", "settings.json"))
	v.SetDefault("settings.watch", true)
	v.SetDefault("session.dir", filepath.Join(data, "session"))
	v.SetDefault("timewindow.scale", "10m")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
}

// Path is where Save writes: $ADMINUI_CONFIG or the default location.
func Path() string {
	if path := os.Getenv("ADMINUI_CONFIG"); path != "" {
		return path
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "adminui", "config.toml")
}

// Save writes the provided config to disk, creating the config directory if needed.
func Save(cfg Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("navigation.initial_path", cfg.Navigation.InitialPath)
	v.Set("navigation.routes", cfg.Navigation.Routes)
	v.Set("devtools.enabled", cfg.Devtools.Enabled)
	v.Set("devtools.addr", cfg.Devtools.Addr)
	v.Set("devtools.max_age", cfg.Devtools.MaxAge)
	v.Set("devtools.journal", cfg.Devtools.Journal)
	v.Set("queries.refresh_interval", cfg.Queries.RefreshInterval.String())
	v.Set("queries.retry_delay", cfg.Queries.RetryDelay.String())
	v.Set("settings.path", cfg.Settings.Path)
	v.Set("settings.watch", cfg.Settings.Watch)
	v.Set("session.dir", cfg.Session.Dir)
	v.Set("timewindow.scale", cfg.TimeWindow.Scale)
	v.Set("metrics.addr", cfg.Metrics.Addr)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)
	v.Set("log.file", cfg.Log.File)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
