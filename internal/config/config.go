package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "STORYHOOK_"

// Config is the full storyhook configuration.
type Config struct {
	Logging  Logging  `json:"logging"`
	Story    Story    `json:"story"`
	Features Features `json:"features"`
}

// Logging configures the zap logger.
type Logging struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level"`

	// Development switches to the human-readable console encoder.
	Development bool `json:"development"`
}

// Story configures what gets loaded at startup.
type Story struct {
	// Path is the Mangle story program to load.
	Path string `json:"path"`

	// Scripts are Lua handler files, loaded in order after the story
	// module is installed.
	Scripts []string `json:"scripts"`
}

// Features gates optional behavior.
type Features struct {
	// Interception enables patching the engine dispatch tables. With
	// it off, subscriptions register but nothing fires.
	Interception bool `json:"interception"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Logging:  Logging{Level: "info"},
		Features: Features{Interception: true},
	}
}

// Load reads a configuration file and applies environment overrides.
// A missing file is not an error; the defaults are used.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	} else {
		if !gjson.ValidBytes(data) {
			return cfg, fmt.Errorf("%w: %s", ErrInvalidConfig, path)
		}
		applyJSON(&cfg, data)
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyJSON(cfg *Config, data []byte) {
	if v := gjson.GetBytes(data, "logging.level"); v.Exists() {
		cfg.Logging.Level = v.String()
	}
	if v := gjson.GetBytes(data, "logging.development"); v.Exists() {
		cfg.Logging.Development = v.Bool()
	}
	if v := gjson.GetBytes(data, "story.path"); v.Exists() {
		cfg.Story.Path = v.String()
	}
	if v := gjson.GetBytes(data, "story.scripts"); v.IsArray() {
		cfg.Story.Scripts = cfg.Story.Scripts[:0]
		for _, s := range v.Array() {
			cfg.Story.Scripts = append(cfg.Story.Scripts, s.String())
		}
	}
	if v := gjson.GetBytes(data, "features.interception"); v.Exists() {
		cfg.Features.Interception = v.Bool()
	}
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv(EnvPrefix + "LOG_LEVEL"); ok {
		cfg.Logging.Level = v
	}
	if v, ok := os.LookupEnv(EnvPrefix + "LOG_DEV"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Logging.Development = b
		}
	}
	if v, ok := os.LookupEnv(EnvPrefix + "STORY"); ok {
		cfg.Story.Path = v
	}
	if v, ok := os.LookupEnv(EnvPrefix + "INTERCEPTION"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Features.Interception = b
		}
	}
}

// WriteDefault writes the default configuration as formatted JSON,
// creating a starting point a user can edit.
func WriteDefault(path string) error {
	cfg := Default()

	out := "{}"
	var err error
	for _, kv := range []struct {
		path  string
		value any
	}{
		{"logging.level", cfg.Logging.Level},
		{"logging.development", cfg.Logging.Development},
		{"story.path", cfg.Story.Path},
		{"story.scripts", []string{}},
		{"features.interception", cfg.Features.Interception},
	} {
		out, err = sjson.Set(out, kv.path, kv.value)
		if err != nil {
			return fmt.Errorf("build default config: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
