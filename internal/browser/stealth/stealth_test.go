package stealth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestApply_BuildsTaskList(t *testing.T) {
	tasks := Apply(DefaultPersona, zap.NewNop())
	// UA override, script injection, timezone, locale, headers.
	assert.Len(t, tasks, 5)
}

func TestApply_FillsEmptyFields(t *testing.T) {
	tasks := Apply(Persona{}, zap.NewNop())
	assert.Len(t, tasks, 5)
}

func TestWithDefaults(t *testing.T) {
	p := withDefaults(Persona{UserAgent: "custom-agent"})
	assert.Equal(t, "custom-agent", p.UserAgent)
	assert.Equal(t, DefaultPersona.Timezone, p.Timezone)
	assert.Equal(t, DefaultPersona.Languages, p.Languages)
}

func TestAcceptLanguage(t *testing.T) {
	assert.Equal(t, "en-US,en;q=0.9", acceptLanguage([]string{"en-US", "en"}))
	assert.Equal(t, "de-DE", acceptLanguage([]string{"de-DE"}))
	assert.Equal(t, "a,b;q=0.9,c;q=0.8", acceptLanguage([]string{"a", "b", "c"}))
}

func TestEvasionsScriptEmbedded(t *testing.T) {
	require.NotEmpty(t, evasionsScript)
	assert.Contains(t, evasionsScript, "webdriver")
	assert.Contains(t, evasionsScript, "plugins")
	assert.False(t, strings.Contains(evasionsScript, "\t"), "script is space-indented")
}
