package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bryanchriswhite/tabscout/internal/logger"
	"gopkg.in/yaml.v3"
)

// Backend names accepted in Config.Backend
const (
	BackendATSPI = "atspi"
	BackendNone  = "none"
)

// DiscoveryConfig tunes the initial discovery pass
type DiscoveryConfig struct {
	Concurrency   int     `json:"concurrency" yaml:"concurrency"`
	IncludeTabs   bool    `json:"include_tabs" yaml:"include_tabs"`
	MinWindowSize float64 `json:"min_window_size" yaml:"min_window_size"`
}

// EventsConfig tunes the event pipeline
type EventsConfig struct {
	DebounceInterval    time.Duration `json:"debounce_interval" yaml:"debounce_interval"`
	HealthWindow        time.Duration `json:"health_window" yaml:"health_window"`
	HealthCheckInterval time.Duration `json:"health_check_interval" yaml:"health_check_interval"`
	RecoveryInterval    time.Duration `json:"recovery_interval" yaml:"recovery_interval"`
	QueueSize           int           `json:"queue_size" yaml:"queue_size"`
}

// Config represents the application configuration
type Config struct {
	EnableLogging      bool            `json:"enable_logging" yaml:"enable_logging"`
	NotifyOnMainThread bool            `json:"notify_on_main_thread" yaml:"notify_on_main_thread"`
	LogLevel           string          `json:"log_level" yaml:"log_level"`
	LogPretty          bool            `json:"log_pretty" yaml:"log_pretty"`
	ServerPort         int             `json:"server_port" yaml:"server_port"`
	Backend            string          `json:"backend" yaml:"backend"`
	Discovery          DiscoveryConfig `json:"discovery" yaml:"discovery"`
	Events             EventsConfig    `json:"events" yaml:"events"`
}

// Defaults returns the default configuration
func Defaults() Config {
	return Config{
		EnableLogging:      false,
		NotifyOnMainThread: true,
		LogLevel:           "info",
		LogPretty:          true,
		ServerPort:         8089,
		Backend:            BackendATSPI,
		Discovery: DiscoveryConfig{
			Concurrency:   8,
			IncludeTabs:   true,
			MinWindowSize: 10,
		},
		Events: EventsConfig{
			DebounceInterval:    250 * time.Millisecond,
			HealthWindow:        30 * time.Second,
			HealthCheckInterval: 5 * time.Second,
			RecoveryInterval:    20 * time.Second,
			QueueSize:           256,
		},
	}
}

// normalize fills zero values left by partial config files
func (c *Config) normalize() {
	d := Defaults()
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.ServerPort <= 0 {
		c.ServerPort = d.ServerPort
	}
	if c.Backend == "" {
		c.Backend = d.Backend
	}
	if c.Discovery.Concurrency <= 0 {
		c.Discovery.Concurrency = d.Discovery.Concurrency
	}
	if c.Discovery.MinWindowSize <= 0 {
		c.Discovery.MinWindowSize = d.Discovery.MinWindowSize
	}
	if c.Events.DebounceInterval <= 0 {
		c.Events.DebounceInterval = d.Events.DebounceInterval
	}
	if c.Events.HealthWindow <= 0 {
		c.Events.HealthWindow = d.Events.HealthWindow
	}
	if c.Events.HealthCheckInterval <= 0 {
		c.Events.HealthCheckInterval = d.Events.HealthCheckInterval
	}
	if c.Events.RecoveryInterval <= 0 {
		c.Events.RecoveryInterval = d.Events.RecoveryInterval
	}
	if c.Events.QueueSize <= 0 {
		c.Events.QueueSize = d.Events.QueueSize
	}
}

// Manager handles configuration
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configFile string) (*Manager, error) {
	actualConfigPath := configFile
	if actualConfigPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		actualConfigPath = filepath.Join(homeDir, ".config", "tabscout", "config.yaml")
	}

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(actualConfigPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{
		configPath: actualConfigPath,
	}

	if err := m.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		logger.WithComponent("config").Info().
			Str("path", m.configPath).
			Msg("Config file not found, creating new config")
		cfg := Defaults()
		m.config = &cfg
		if err := m.Save(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Str("backend", m.config.Backend).
		Msg("Config loaded")

	return m, nil
}

// load reads the configuration from disk
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.normalize()

	m.mu.Lock()
	m.config = &cfg
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return Defaults()
	}
	return *m.config
}

// Save saves the current configuration to disk
func (m *Manager) Save() error {
	cfg := m.Get()

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmp := m.configPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmp, m.configPath); err != nil {
		return fmt.Errorf("failed to replace config: %w", err)
	}

	logger.WithComponent("config").Debug().Str("path", m.configPath).Msg("Config saved")
	return nil
}

// Update replaces the configuration and saves it
func (m *Manager) Update(cfg Config) error {
	cfg.normalize()
	m.mu.Lock()
	m.config = &cfg
	m.mu.Unlock()
	return m.Save()
}

// GetConfigPath returns the config file path
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// Keys lists the dotted keys understood by Lookup and Set
func Keys() []string {
	return []string{
		"enable_logging",
		"notify_on_main_thread",
		"log_level",
		"log_pretty",
		"server_port",
		"backend",
		"discovery.concurrency",
		"discovery.include_tabs",
		"discovery.min_window_size",
		"events.debounce_interval",
		"events.health_window",
		"events.health_check_interval",
		"events.recovery_interval",
		"events.queue_size",
	}
}

// Lookup returns the string form of a dotted configuration key
func (m *Manager) Lookup(key string) (string, error) {
	c := m.Get()
	switch key {
	case "enable_logging":
		return strconv.FormatBool(c.EnableLogging), nil
	case "notify_on_main_thread":
		return strconv.FormatBool(c.NotifyOnMainThread), nil
	case "log_level":
		return c.LogLevel, nil
	case "log_pretty":
		return strconv.FormatBool(c.LogPretty), nil
	case "server_port":
		return strconv.Itoa(c.ServerPort), nil
	case "backend":
		return c.Backend, nil
	case "discovery.concurrency":
		return strconv.Itoa(c.Discovery.Concurrency), nil
	case "discovery.include_tabs":
		return strconv.FormatBool(c.Discovery.IncludeTabs), nil
	case "discovery.min_window_size":
		return strconv.FormatFloat(c.Discovery.MinWindowSize, 'f', -1, 64), nil
	case "events.debounce_interval":
		return c.Events.DebounceInterval.String(), nil
	case "events.health_window":
		return c.Events.HealthWindow.String(), nil
	case "events.health_check_interval":
		return c.Events.HealthCheckInterval.String(), nil
	case "events.recovery_interval":
		return c.Events.RecoveryInterval.String(), nil
	case "events.queue_size":
		return strconv.Itoa(c.Events.QueueSize), nil
	}
	return "", fmt.Errorf("configuration key not found: %s", key)
}

// Set parses value for a dotted configuration key and saves the result
func (m *Manager) Set(key, value string) error {
	c := m.Get()
	var err error
	switch key {
	case "enable_logging":
		c.EnableLogging, err = strconv.ParseBool(value)
	case "notify_on_main_thread":
		c.NotifyOnMainThread, err = strconv.ParseBool(value)
	case "log_level":
		switch strings.ToLower(value) {
		case "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(value)
		default:
			return fmt.Errorf("invalid log level: %s (use: debug, info, warn, error)", value)
		}
	case "log_pretty":
		c.LogPretty, err = strconv.ParseBool(value)
	case "server_port":
		c.ServerPort, err = strconv.Atoi(value)
		if err == nil && (c.ServerPort <= 0 || c.ServerPort > 65535) {
			return fmt.Errorf("invalid port number: %s", value)
		}
	case "backend":
		if value != BackendATSPI && value != BackendNone {
			return fmt.Errorf("invalid backend: %s (use: %s, %s)", value, BackendATSPI, BackendNone)
		}
		c.Backend = value
	case "discovery.concurrency":
		c.Discovery.Concurrency, err = strconv.Atoi(value)
	case "discovery.include_tabs":
		c.Discovery.IncludeTabs, err = strconv.ParseBool(value)
	case "discovery.min_window_size":
		c.Discovery.MinWindowSize, err = strconv.ParseFloat(value, 64)
	case "events.debounce_interval":
		c.Events.DebounceInterval, err = time.ParseDuration(value)
	case "events.health_window":
		c.Events.HealthWindow, err = time.ParseDuration(value)
	case "events.health_check_interval":
		c.Events.HealthCheckInterval, err = time.ParseDuration(value)
	case "events.recovery_interval":
		c.Events.RecoveryInterval, err = time.ParseDuration(value)
	case "events.queue_size":
		c.Events.QueueSize, err = strconv.Atoi(value)
	default:
		return fmt.Errorf("configuration key not found: %s", key)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return m.Update(c)
}
