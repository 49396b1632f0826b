package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Target    TargetConfig    `mapstructure:"target"`
	Targets   []TargetConfig  `mapstructure:"targets"`
	Probe     ProbeConfig     `mapstructure:"probe"`
	Watch     WatchConfig     `mapstructure:"watch"`
	History   HistoryConfig   `mapstructure:"history"`
	Reporters ReportersConfig `mapstructure:"reporters"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
}

// TargetConfig describes one PostgreSQL endpoint to probe.
type TargetConfig struct {
	Name     string `mapstructure:"name"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Encoding string `mapstructure:"encoding"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// DSN returns the full connection URL, password included.
func (t TargetConfig) DSN() string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(t.User, t.Password),
		Host:   fmt.Sprintf("%s:%d", t.Host, t.Port),
		Path:   "/" + t.Database,
	}
	q := url.Values{}
	q.Set("sslmode", t.SSLMode)
	q.Set("client_encoding", t.Encoding)
	q.Set("application_name", "pgprobe")
	u.RawQuery = q.Encode()
	return u.String()
}

// Redacted is the endpoint without the password, for logs.
func (t TargetConfig) Redacted() string {
	return fmt.Sprintf("%s@%s:%d/%s", t.User, t.Host, t.Port, t.Database)
}

var sslModes = map[string]bool{
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

func (t TargetConfig) validate() error {
	if t.Host == "" {
		return errors.New("host is required")
	}
	if t.Port < 1 || t.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", t.Port)
	}
	if t.User == "" {
		return errors.New("user is required")
	}
	if t.Database == "" {
		return errors.New("database is required")
	}
	if t.Encoding == "" {
		return errors.New("encoding is required")
	}
	if !sslModes[t.SSLMode] {
		return fmt.Errorf("invalid ssl_mode %q", t.SSLMode)
	}
	return nil
}

type ProbeConfig struct {
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	QueryTimeout   time.Duration `mapstructure:"query_timeout"`
}

type WatchConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type HistoryConfig struct {
	Path string `mapstructure:"path"`
	Keep int    `mapstructure:"keep"`
}

type ReportersConfig struct {
	Redis      []RedisReporterConfig      `mapstructure:"redis"`
	ClickHouse []ClickHouseReporterConfig `mapstructure:"clickhouse"`
}

type ReporterBase struct {
	Name  string      `mapstructure:"name"`
	Retry RetryConfig `mapstructure:"retry"`
}

type RedisReporterConfig struct {
	ReporterBase `mapstructure:",squash"`
	URL          string        `mapstructure:"url"`
	KeyPattern   string        `mapstructure:"key_pattern"` // e.g. "pgprobe:{{.Target}}"
	TTL          time.Duration `mapstructure:"ttl"`
}

type ClickHouseReporterConfig struct {
	ReporterBase     `mapstructure:",squash"`
	ConnectionString string `mapstructure:"connection_string"`
	Table            string `mapstructure:"table"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
}

func (r *RetryConfig) setDefaults() {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 3
	}
	if r.Backoff == 0 {
		r.Backoff = 100 * time.Millisecond
	}
}

type TelemetryConfig struct {
	Address string `mapstructure:"address"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PGPROBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults: the dvdrental training endpoint.
	v.SetDefault("target.name", "primary")
	v.SetDefault("target.host", "localhost")
	v.SetDefault("target.port", 5432)
	v.SetDefault("target.user", "postgres")
	v.SetDefault("target.password", "postgres")
	v.SetDefault("target.database", "dvdrental")
	v.SetDefault("target.encoding", "utf8")
	v.SetDefault("target.ssl_mode", "prefer")
	v.SetDefault("probe.connect_timeout", 10*time.Second)
	v.SetDefault("probe.query_timeout", 5*time.Second)
	v.SetDefault("watch.interval", 30*time.Second)
	v.SetDefault("history.keep", 1000)
	v.SetDefault("telemetry.address", ":9187")
	v.SetDefault("log.level", "info")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("pgprobe")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "pgprobe"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Target.Name == "" {
		c.Target.Name = "primary"
	}
	if c.History.Path == "" {
		c.History.Path = defaultHistoryPath()
	}
	for i := range c.Targets {
		if c.Targets[i].Encoding == "" {
			c.Targets[i].Encoding = "utf8"
		}
		if c.Targets[i].SSLMode == "" {
			c.Targets[i].SSLMode = "prefer"
		}
		if c.Targets[i].Port == 0 {
			c.Targets[i].Port = 5432
		}
	}
	for i := range c.Reporters.Redis {
		if c.Reporters.Redis[i].KeyPattern == "" {
			c.Reporters.Redis[i].KeyPattern = "pgprobe:{{.Target}}"
		}
		c.Reporters.Redis[i].Retry.setDefaults()
	}
	for i := range c.Reporters.ClickHouse {
		if c.Reporters.ClickHouse[i].Table == "" {
			c.Reporters.ClickHouse[i].Table = "pgprobe_results"
		}
		c.Reporters.ClickHouse[i].Retry.setDefaults()
	}
}

func defaultHistoryPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "pgprobe-history.db"
	}
	return filepath.Join(dir, "pgprobe", "history.db")
}

func (c *Config) Validate() error {
	if err := c.Target.validate(); err != nil {
		return fmt.Errorf("target: %w", err)
	}

	seen := map[string]bool{c.Target.Name: true}
	for i, t := range c.Targets {
		if t.Name == "" {
			return fmt.Errorf("targets[%d].name is required", i)
		}
		if seen[t.Name] {
			return fmt.Errorf("targets[%d]: duplicate target name %q", i, t.Name)
		}
		seen[t.Name] = true
		if err := t.validate(); err != nil {
			return fmt.Errorf("targets[%d]: %w", i, err)
		}
	}

	if c.Probe.ConnectTimeout <= 0 {
		return errors.New("probe.connect_timeout must be positive")
	}
	if c.Probe.QueryTimeout <= 0 {
		return errors.New("probe.query_timeout must be positive")
	}
	if c.Watch.Interval <= 0 {
		return errors.New("watch.interval must be positive")
	}
	if c.History.Keep < 0 {
		return errors.New("history.keep must not be negative")
	}

	for i, r := range c.Reporters.Redis {
		if r.Name == "" {
			return fmt.Errorf("reporters.redis[%d].name is required", i)
		}
		if r.URL == "" {
			return fmt.Errorf("reporters.redis[%d].url is required", i)
		}
	}
	for i, r := range c.Reporters.ClickHouse {
		if r.Name == "" {
			return fmt.Errorf("reporters.clickhouse[%d].name is required", i)
		}
		if r.ConnectionString == "" {
			return fmt.Errorf("reporters.clickhouse[%d].connection_string is required", i)
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q", c.Log.Level)
	}

	return nil
}

// TargetByName resolves a target by name; the empty name means the primary.
func (c *Config) TargetByName(name string) (TargetConfig, error) {
	if name == "" || name == c.Target.Name {
		return c.Target, nil
	}
	for _, t := range c.Targets {
		if t.Name == name {
			return t, nil
		}
	}
	return TargetConfig{}, fmt.Errorf("unknown target %q", name)
}

// AllTargets lists the primary target followed by the additional ones.
func (c *Config) AllTargets() []TargetConfig {
	out := make([]TargetConfig, 0, len(c.Targets)+1)
	out = append(out, c.Target)
	out = append(out, c.Targets...)
	return out
}
