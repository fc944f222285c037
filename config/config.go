package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath = "STATION_CONFIG_PATH"
	EnvAPIBaseURL = "STATION_API_BASE_URL"

	DefaultConfigPath = "data/config"
	DefaultAPIBaseURL = "http://localhost:8000/api/"
)

// Config represents the complete console configuration.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	Selection SelectionConfig `yaml:"selection"`
	Speech    SpeechConfig    `yaml:"speech"`
	History   HistoryConfig   `yaml:"history"`
	UI        UIConfig        `yaml:"ui"`
	Logging   LoggingConfig   `yaml:"logging"`

	// LoadedFrom is the file or directory the config was read from.
	LoadedFrom string `yaml:"-"`
}

// APIConfig addresses the station backend.
type APIConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// RefreshConfig holds the three console cadences.
type RefreshConfig struct {
	ClockSeconds   int `yaml:"clock_seconds"`
	DataSeconds    int `yaml:"data_seconds"`
	RecheckSeconds int `yaml:"recheck_seconds"`
}

// SelectionConfig chooses where the tuned frequency is persisted.
type SelectionConfig struct {
	Backend string      `yaml:"backend"` // pebble, redis or memory
	Path    string      `yaml:"path"`
	Key     string      `yaml:"key"`
	CacheMB int         `yaml:"cache_mb"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig is used when selection.backend is redis.
type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	KeyPrefix  string `yaml:"key_prefix"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// SpeechConfig selects the announcement audio backend.
type SpeechConfig struct {
	Backend      string     `yaml:"backend"` // none, command or mqtt
	SoundOnStart bool       `yaml:"sound_on_start"`
	Locale       string     `yaml:"locale"`
	Rate         float64    `yaml:"rate"`
	Command      string     `yaml:"command"`
	Args         []string   `yaml:"args"`
	MQTT         MQTTConfig `yaml:"mqtt"`
}

// MQTTConfig addresses a remote speaker reached through a broker.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"`
	QoS      int    `yaml:"qos"`
}

// HistoryConfig controls the SQLite announcement log.
type HistoryConfig struct {
	Enabled       *bool  `yaml:"enabled"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// IsEnabled defaults to true when unset.
func (h HistoryConfig) IsEnabled() bool {
	return h.Enabled == nil || *h.Enabled
}

// UIConfig selects the front end.
type UIConfig struct {
	Mode      string `yaml:"mode"` // auto, tview or headless
	TargetFPS int    `yaml:"target_fps"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Dir           string `yaml:"dir"`
	RetentionDays int    `yaml:"retention_days"`
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.normalize()
	cfg.applyEnv()
	return cfg
}

// Load reads a YAML file, or every *.yaml / *.yml file of a directory merged
// in name order (later files win key by key).
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var files []string
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config dir %s: %w", path, err)
		}
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
				continue
			}
			files = append(files, filepath.Join(path, e.Name()))
		}
		sort.Strings(files)
		if len(files) == 0 {
			return nil, fmt.Errorf("no YAML files in config dir %s", path)
		}
	} else {
		files = []string{path}
	}

	merged := map[string]any{}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", file, err)
		}
		mergeMaps(merged, doc)
	}

	raw, err := yaml.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse merged config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.normalize()
	cfg.applyEnv()
	cfg.LoadedFrom = path
	return &cfg, nil
}

func mergeMaps(dst, src map[string]any) {
	for k, v := range src {
		if sv, ok := v.(map[string]any); ok {
			if dv, ok := dst[k].(map[string]any); ok {
				mergeMaps(dv, sv)
				continue
			}
		}
		dst[k] = v
	}
}

func (c *Config) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Selection.Backend)) {
	case "", "pebble", "redis", "memory":
	default:
		return fmt.Errorf("selection.backend %q must be pebble, redis or memory", c.Selection.Backend)
	}
	switch strings.ToLower(strings.TrimSpace(c.Speech.Backend)) {
	case "", "none", "command", "mqtt":
	default:
		return fmt.Errorf("speech.backend %q must be none, command or mqtt", c.Speech.Backend)
	}
	switch strings.ToLower(strings.TrimSpace(c.UI.Mode)) {
	case "", "auto", "tview", "headless":
	default:
		return fmt.Errorf("ui.mode %q must be auto, tview or headless", c.UI.Mode)
	}
	if c.Speech.MQTT.QoS < 0 || c.Speech.MQTT.QoS > 2 {
		return errors.New("speech.mqtt.qos must be 0, 1 or 2")
	}
	return nil
}

func (c *Config) normalize() {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		c.API.BaseURL = DefaultAPIBaseURL
	}
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = 5
	}
	if c.Refresh.ClockSeconds <= 0 {
		c.Refresh.ClockSeconds = 1
	}
	if c.Refresh.DataSeconds <= 0 {
		c.Refresh.DataSeconds = 10
	}
	if c.Refresh.RecheckSeconds <= 0 {
		c.Refresh.RecheckSeconds = 5
	}

	c.Selection.Backend = strings.ToLower(strings.TrimSpace(c.Selection.Backend))
	if c.Selection.Backend == "" {
		c.Selection.Backend = "pebble"
	}
	if strings.TrimSpace(c.Selection.Path) == "" {
		c.Selection.Path = "data/prefs"
	}
	if strings.TrimSpace(c.Selection.Key) == "" {
		c.Selection.Key = "transmission_current_frequency"
	}
	if c.Selection.CacheMB <= 0 {
		c.Selection.CacheMB = 4
	}
	if strings.TrimSpace(c.Selection.Redis.Addr) == "" {
		c.Selection.Redis.Addr = "localhost:6379"
	}

	c.Speech.Backend = strings.ToLower(strings.TrimSpace(c.Speech.Backend))
	if c.Speech.Backend == "" {
		c.Speech.Backend = "none"
	}
	if strings.TrimSpace(c.Speech.Locale) == "" {
		c.Speech.Locale = "en-US"
	}
	if c.Speech.Rate <= 0 {
		c.Speech.Rate = 0.9
	}
	if c.Speech.MQTT.Port <= 0 {
		c.Speech.MQTT.Port = 1883
	}
	if strings.TrimSpace(c.Speech.MQTT.Topic) == "" {
		c.Speech.MQTT.Topic = "stationconsole"
	}

	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = "data/history/announcements.db"
	}
	if c.History.RetentionDays <= 0 {
		c.History.RetentionDays = 30
	}

	c.UI.Mode = strings.ToLower(strings.TrimSpace(c.UI.Mode))
	if c.UI.Mode == "" {
		c.UI.Mode = "auto"
	}
	if c.UI.TargetFPS <= 0 {
		c.UI.TargetFPS = 20
	}

	if strings.TrimSpace(c.Logging.Dir) == "" {
		c.Logging.Dir = "data/logs"
	}
	if c.Logging.RetentionDays <= 0 {
		c.Logging.RetentionDays = 7
	}
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAPIBaseURL)); v != "" {
		c.API.BaseURL = v
	}
}

// Print displays the configuration.
func (c *Config) Print(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintf(w, "API: %s (timeout %ds)\n", c.API.BaseURL, c.API.TimeoutSeconds)
	fmt.Fprintf(w, "Refresh: clock=%ds data=%ds recheck=%ds\n", c.Refresh.ClockSeconds, c.Refresh.DataSeconds, c.Refresh.RecheckSeconds)
	switch c.Selection.Backend {
	case "redis":
		fmt.Fprintf(w, "Selection: redis %s db=%d key=%s\n", c.Selection.Redis.Addr, c.Selection.Redis.DB, c.Selection.Key)
	case "memory":
		fmt.Fprintf(w, "Selection: memory key=%s\n", c.Selection.Key)
	default:
		fmt.Fprintf(w, "Selection: pebble %s key=%s\n", c.Selection.Path, c.Selection.Key)
	}
	switch c.Speech.Backend {
	case "command":
		cmd := c.Speech.Command
		if cmd == "" {
			cmd = "espeak-ng"
		}
		fmt.Fprintf(w, "Speech: command %s (%s, rate %.2f)\n", cmd, c.Speech.Locale, c.Speech.Rate)
	case "mqtt":
		fmt.Fprintf(w, "Speech: mqtt %s:%d topic %s\n", c.Speech.MQTT.Broker, c.Speech.MQTT.Port, c.Speech.MQTT.Topic)
	default:
		fmt.Fprintf(w, "Speech: disabled\n")
	}
	if c.History.IsEnabled() {
		fmt.Fprintf(w, "History: %s (retention %d days)\n", c.History.Path, c.History.RetentionDays)
	}
	if c.Logging.Enabled {
		fmt.Fprintf(w, "Logging: %s (retention %d days)\n", c.Logging.Dir, c.Logging.RetentionDays)
	}
}
