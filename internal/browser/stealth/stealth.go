// File: internal/browser/stealth/stealth.go

// Package stealth shapes the browser into a consistent, user-like persona
// before any page script gets a chance to fingerprint it.
package stealth

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

//go:embed evasions.js
var evasionsScript string

// Persona defines the browser characteristics to emulate.
type Persona struct {
	UserAgent string
	Platform  string
	Languages []string
	Timezone  string
	Locale    string
}

// DefaultPersona provides a realistic default browser profile.
var DefaultPersona = Persona{
	UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	Platform:  "Win32",
	Languages: []string{"en-US", "en"},
	Timezone:  "America/Los_Angeles",
	Locale:    "en-US",
}

// Apply constructs the Chrome DevTools Protocol actions that make a headless
// browser present like a standard, user-operated one. Empty persona fields
// fall back to the default profile.
func Apply(p Persona, logger *zap.Logger) chromedp.Tasks {
	p = withDefaults(p)
	logger.Debug("applying browser stealth persona",
		zap.String("userAgent", p.UserAgent),
		zap.String("timezone", p.Timezone),
	)

	return chromedp.Tasks{
		emulation.SetUserAgentOverride(p.UserAgent).WithPlatform(p.Platform),

		// The evasions script must run before any document script, so it is
		// registered for every new document rather than evaluated once.
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(evasionsScript).Do(ctx)
			if err != nil {
				return fmt.Errorf("failed to inject evasions script: %w", err)
			}
			return nil
		}),

		emulation.SetTimezoneOverride(p.Timezone),
		emulation.SetLocaleOverride().WithLocale(p.Locale),

		network.SetExtraHTTPHeaders(network.Headers{
			"Accept-Language": acceptLanguage(p.Languages),
		}),
	}
}

func withDefaults(p Persona) Persona {
	if p.UserAgent == "" {
		p.UserAgent = DefaultPersona.UserAgent
	}
	if p.Platform == "" {
		p.Platform = DefaultPersona.Platform
	}
	if len(p.Languages) == 0 {
		p.Languages = DefaultPersona.Languages
	}
	if p.Timezone == "" {
		p.Timezone = DefaultPersona.Timezone
	}
	if p.Locale == "" {
		p.Locale = DefaultPersona.Locale
	}
	return p
}

// acceptLanguage renders the persona languages with descending quality
// values, matching how real Chrome builds the header.
func acceptLanguage(langs []string) string {
	parts := make([]string, 0, len(langs))
	for i, l := range langs {
		if i == 0 {
			parts = append(parts, l)
			continue
		}
		q := 1.0 - 0.1*float64(i)
		parts = append(parts, fmt.Sprintf("%s;q=%.1f", l, q))
	}
	return strings.Join(parts, ",")
}
