package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "lancet-mcp", cfg.Server.Name)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 25000, cfg.Content.MaxTokens)
	assert.Equal(t, "cl100k_base", cfg.Content.Encoding)
	assert.Equal(t, 3, cfg.Navigation.RetryAttempts)
	assert.Equal(t, time.Second, cfg.Navigation.InitialBackoff)
	assert.Equal(t, 90*time.Second, cfg.Navigation.Timeout)

	require.NoError(t, cfg.Validate())
}

func TestNewConfigFromViper_Overrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("browser.headless", false)
	v.Set("content.max_tokens", 4096)
	v.Set("navigation.initial_backoff", "250ms")

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 4096, cfg.Content.MaxTokens)
	assert.Equal(t, 250*time.Millisecond, cfg.Navigation.InitialBackoff)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max tokens", func(c *Config) { c.Content.MaxTokens = 0 }},
		{"zero retry attempts", func(c *Config) { c.Navigation.RetryAttempts = 0 }},
		{"negative backoff", func(c *Config) { c.Navigation.InitialBackoff = -time.Second }},
		{"zero viewport", func(c *Config) { c.Browser.Viewport.Width = 0 }},
		{"inverted typing delay", func(c *Config) {
			c.Browser.Humanoid.TypingDelayMinMs = 200
			c.Browser.Humanoid.TypingDelayMaxMs = 100
		}},
		{"inverted scroll steps", func(c *Config) {
			c.Browser.Humanoid.ScrollStepMin = 500
			c.Browser.Humanoid.ScrollStepMax = 100
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
