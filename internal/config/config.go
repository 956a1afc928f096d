// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Browser    BrowserConfig    `mapstructure:"browser" yaml:"browser"`
	Content    ContentConfig    `mapstructure:"content" yaml:"content"`
	Navigation NavigationConfig `mapstructure:"navigation" yaml:"navigation"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// ServerConfig identifies the tool server to the host.
type ServerConfig struct {
	Name    string `mapstructure:"name" yaml:"name"`
	Version string `mapstructure:"version" yaml:"version"`
}

// BrowserConfig holds settings for the managed browser session.
type BrowserConfig struct {
	Headless        bool           `mapstructure:"headless" yaml:"headless"`
	ChromePath      string         `mapstructure:"chrome_path" yaml:"chrome_path"`
	Proxy           string         `mapstructure:"proxy" yaml:"proxy"`
	Args            []string       `mapstructure:"args" yaml:"args"`
	IgnoreTLSErrors bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Viewport        ViewportConfig `mapstructure:"viewport" yaml:"viewport"`
	Stealth         StealthConfig  `mapstructure:"stealth" yaml:"stealth"`
	Humanoid        HumanoidConfig `mapstructure:"humanoid" yaml:"humanoid"`
}

// ViewportConfig is the emulated window size.
type ViewportConfig struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// StealthConfig controls the browser persona applied at session start.
type StealthConfig struct {
	Enabled   bool     `mapstructure:"enabled" yaml:"enabled"`
	UserAgent string   `mapstructure:"user_agent" yaml:"user_agent"`
	Timezone  string   `mapstructure:"timezone" yaml:"timezone"`
	Locale    string   `mapstructure:"locale" yaml:"locale"`
	Languages []string `mapstructure:"languages" yaml:"languages"`
}

// HumanoidConfig tunes the human-like input pacing used by type and
// random_scroll.
type HumanoidConfig struct {
	Enabled          bool `mapstructure:"enabled" yaml:"enabled"`
	TypingDelayMinMs int  `mapstructure:"typing_delay_min_ms" yaml:"typing_delay_min_ms"`
	TypingDelayMaxMs int  `mapstructure:"typing_delay_max_ms" yaml:"typing_delay_max_ms"`
	ScrollStepMin    int  `mapstructure:"scroll_step_min" yaml:"scroll_step_min"`
	ScrollStepMax    int  `mapstructure:"scroll_step_max" yaml:"scroll_step_max"`
	ScrollStepsMax   int  `mapstructure:"scroll_steps_max" yaml:"scroll_steps_max"`
}

// ContentConfig bounds the size of content returned to the caller.
type ContentConfig struct {
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens"`
	Encoding  string `mapstructure:"encoding" yaml:"encoding"`
}

// NavigationConfig tunes navigation timeouts and the retry policy.
type NavigationConfig struct {
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
	PostLoadWait   time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
	RetryAttempts  int           `mapstructure:"retry_attempts" yaml:"retry_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff" yaml:"initial_backoff"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "lancet-mcp")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Server --
	v.SetDefault("server.name", "lancet-mcp")
	v.SetDefault("server.version", "dev")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.viewport.width", 1440)
	v.SetDefault("browser.viewport.height", 900)
	v.SetDefault("browser.stealth.enabled", true)
	v.SetDefault("browser.stealth.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36")
	v.SetDefault("browser.stealth.timezone", "America/Los_Angeles")
	v.SetDefault("browser.stealth.locale", "en-US")
	v.SetDefault("browser.stealth.languages", []string{"en-US", "en"})
	v.SetDefault("browser.humanoid.enabled", true)
	v.SetDefault("browser.humanoid.typing_delay_min_ms", 40)
	v.SetDefault("browser.humanoid.typing_delay_max_ms", 160)
	v.SetDefault("browser.humanoid.scroll_step_min", 120)
	v.SetDefault("browser.humanoid.scroll_step_max", 480)
	v.SetDefault("browser.humanoid.scroll_steps_max", 6)

	// -- Content --
	v.SetDefault("content.max_tokens", 25000)
	v.SetDefault("content.encoding", "cl100k_base")

	// -- Navigation --
	v.SetDefault("navigation.timeout", "90s")
	v.SetDefault("navigation.post_load_wait", "1s")
	v.SetDefault("navigation.retry_attempts", 3)
	v.SetDefault("navigation.initial_backoff", "1s")
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with defaults alone.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	if c.Content.MaxTokens <= 0 {
		return fmt.Errorf("content.max_tokens must be a positive integer")
	}
	if c.Navigation.RetryAttempts <= 0 {
		return fmt.Errorf("navigation.retry_attempts must be a positive integer")
	}
	if c.Navigation.InitialBackoff <= 0 {
		return fmt.Errorf("navigation.initial_backoff must be a positive duration")
	}
	if c.Browser.Viewport.Width <= 0 || c.Browser.Viewport.Height <= 0 {
		return fmt.Errorf("browser.viewport dimensions must be positive")
	}
	h := c.Browser.Humanoid
	if h.Enabled {
		if h.TypingDelayMinMs < 0 || h.TypingDelayMaxMs < h.TypingDelayMinMs {
			return fmt.Errorf("browser.humanoid typing delay range is invalid")
		}
		if h.ScrollStepMin <= 0 || h.ScrollStepMax < h.ScrollStepMin {
			return fmt.Errorf("browser.humanoid scroll step range is invalid")
		}
	}
	return nil
}
