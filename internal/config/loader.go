package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"flairbridge/internal/entity"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL         = "https://api.flair.co"
	DefaultPollInterval    = time.Minute
	DefaultRefreshDebounce = 2 * time.Second
	DefaultRequestTimeout  = 30 * time.Second
	DefaultDiscoveryPrefix = "homeassistant"
	DefaultBaseTopic       = "flairbridge"
	DefaultAPIPort         = 8080
	DefaultCommandLogSize  = 200
)

// Unit systems.
const (
	UnitSystemMetric   = "metric"
	UnitSystemImperial = "imperial"
)

// FlairConfig holds the Flair API credentials and timing.
type FlairConfig struct {
	BaseURL         string        `yaml:"base_url"`
	ClientID        string        `yaml:"client_id"`
	ClientSecret    string        `yaml:"client_secret"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	RefreshDebounce time.Duration `yaml:"refresh_debounce"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
}

// MQTTConfig holds the broker connection and topic layout.
type MQTTConfig struct {
	Broker          string `yaml:"broker"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	ClientID        string `yaml:"client_id"`
	DiscoveryPrefix string `yaml:"discovery_prefix"`
	BaseTopic       string `yaml:"base_topic"`
}

// APIConfig configures the HTTP API.
type APIConfig struct {
	Port           int `yaml:"port"`
	CommandLogSize int `yaml:"command_log_size"`
}

// Config represents the config.yaml structure
type Config struct {
	Flair          FlairConfig       `yaml:"flair"`
	MQTT           MQTTConfig        `yaml:"mqtt"`
	API            APIConfig         `yaml:"api"`
	UnitSystem     string            `yaml:"unit_system"`
	RoomModePolicy entity.RoomPolicy `yaml:"room_mode_policy"`
	ReadOnly       bool              `yaml:"read_only"`
}

// Imperial reports whether temperatures are shown in Fahrenheit.
func (c *Config) Imperial() bool {
	return c.UnitSystem == UnitSystemImperial
}

// Default returns a config with every optional field set.
func Default() *Config {
	return &Config{
		Flair: FlairConfig{
			BaseURL:         DefaultBaseURL,
			PollInterval:    DefaultPollInterval,
			RefreshDebounce: DefaultRefreshDebounce,
			RequestTimeout:  DefaultRequestTimeout,
		},
		MQTT: MQTTConfig{
			DiscoveryPrefix: DefaultDiscoveryPrefix,
			BaseTopic:       DefaultBaseTopic,
		},
		API: APIConfig{
			Port:           DefaultAPIPort,
			CommandLogSize: DefaultCommandLogSize,
		},
		UnitSystem:     UnitSystemMetric,
		RoomModePolicy: entity.RoomPolicyMirror,
	}
}

// Loader reads the config file and applies environment overrides.
type Loader struct {
	path   string
	getenv func(string) string
	logger *zap.Logger
}

// NewLoader creates a loader for path. An empty path skips the file and
// uses defaults plus the environment.
func NewLoader(path string, logger *zap.Logger) *Loader {
	return &Loader{
		path:   path,
		getenv: os.Getenv,
		logger: logger.Named("config"),
	}
}

// Load reads, overrides and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	if l.path != "" {
		l.logger.Debug("Loading config file", zap.String("path", l.path))
		data, err := os.ReadFile(l.path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			l.logger.Warn("Config file not found, using defaults", zap.String("path", l.path))
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l.logger.Info("Config loaded",
		zap.String("base_url", cfg.Flair.BaseURL),
		zap.Duration("poll_interval", cfg.Flair.PollInterval),
		zap.String("unit_system", cfg.UnitSystem),
		zap.String("room_mode_policy", string(cfg.RoomModePolicy)),
		zap.Bool("read_only", cfg.ReadOnly),
		zap.Bool("mqtt", cfg.MQTT.Broker != ""))
	return cfg, nil
}

func (l *Loader) applyEnv(cfg *Config) error {
	if v := l.getenv("FLAIR_CLIENT_ID"); v != "" {
		cfg.Flair.ClientID = v
	}
	if v := l.getenv("FLAIR_CLIENT_SECRET"); v != "" {
		cfg.Flair.ClientSecret = v
	}
	if v := l.getenv("MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
	if v := l.getenv("READ_ONLY"); v != "" {
		readOnly, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid READ_ONLY %q: %w", v, err)
		}
		cfg.ReadOnly = readOnly
	}
	return nil
}

// Validate checks required fields and enumerations.
func (c *Config) Validate() error {
	var errs []error

	if c.Flair.ClientID == "" || c.Flair.ClientSecret == "" {
		errs = append(errs, errors.New("flair client_id and client_secret are required"))
	}
	if !strings.HasPrefix(c.Flair.BaseURL, "http://") && !strings.HasPrefix(c.Flair.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("flair base_url %q must be an http(s) URL", c.Flair.BaseURL))
	}
	if c.Flair.PollInterval < time.Second {
		errs = append(errs, fmt.Errorf("poll_interval %s is below 1s", c.Flair.PollInterval))
	}
	if c.Flair.RefreshDebounce < 0 {
		errs = append(errs, errors.New("refresh_debounce must not be negative"))
	}
	if c.Flair.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request_timeout must be positive"))
	}
	switch c.UnitSystem {
	case UnitSystemMetric, UnitSystemImperial:
	default:
		errs = append(errs, fmt.Errorf("unit_system %q must be metric or imperial", c.UnitSystem))
	}
	switch c.RoomModePolicy {
	case entity.RoomPolicyMirror, entity.RoomPolicyIndependent:
	default:
		errs = append(errs, fmt.Errorf("room_mode_policy %q must be mirror or independent", c.RoomModePolicy))
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("api port %d out of range", c.API.Port))
	}
	if c.API.CommandLogSize <= 0 {
		errs = append(errs, errors.New("api command_log_size must be positive"))
	}
	if c.MQTT.Broker != "" && (c.MQTT.DiscoveryPrefix == "" || c.MQTT.BaseTopic == "") {
		errs = append(errs, errors.New("mqtt discovery_prefix and base_topic must not be empty"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
