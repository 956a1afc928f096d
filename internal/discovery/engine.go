// File: internal/discovery/engine.go

// Package discovery turns a free-text description of an element into ranked
// CSS selector candidates, so the caller never has to hand-author selectors
// against an unfamiliar page.
package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/xkilldash9x/lancet-mcp/api/schemas"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Evaluator runs a JavaScript expression in the page and decodes its result.
type Evaluator interface {
	Evaluate(ctx context.Context, expression string, out interface{}) error
}

// rawCandidate is the per-element descriptor produced by the in-page scan.
// Scoring and ranking happen on the Go side so the ordering contract stays
// testable without a browser.
type rawCandidate struct {
	Selector       string              `json:"selector"`
	Text           string              `json:"text"`
	TagName        string              `json:"tagName"`
	UniqueID       bool                `json:"uniqueId"`
	Exact          bool                `json:"exact"`
	Depth          int                 `json:"depth"`
	SharedClasses  bool                `json:"sharedClasses"`
	StructuralOnly bool                `json:"structuralOnly"`
	Rect           schemas.BoundingRect `json:"rect"`
}

// scanParams is marshaled into the scan script.
type scanParams struct {
	Hints []string `json:"hints"`
	Text  string   `json:"text"`
	Exact bool     `json:"exact"`
}

// Engine scans the live DOM for elements matching a text description and
// synthesizes a unique selector for each.
type Engine struct {
	logger *zap.Logger
}

// NewEngine constructs a discovery engine.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger.Named("discovery")}
}

// hintSelectors resolves an element-type hint to concrete tag/role selectors.
// An unrecognized hint is treated as a literal tag name; an empty hint scans
// everything.
func hintSelectors(elementType string) []string {
	switch strings.ToLower(strings.TrimSpace(elementType)) {
	case "":
		return []string{"*"}
	case "link", "a":
		return []string{"a", `[role="link"]`}
	case "button":
		return []string{"button", `[role="button"]`, `input[type="submit"]`, `input[type="button"]`}
	case "input", "field", "textbox":
		return []string{"input", "textarea", "select", `[role="textbox"]`}
	case "image", "img":
		return []string{"img", `[role="img"]`}
	case "heading":
		return []string{"h1", "h2", "h3", "h4", "h5", "h6", `[role="heading"]`}
	default:
		return []string{strings.ToLower(strings.TrimSpace(elementType))}
	}
}

// FindByText scans the page for elements whose visible text matches the
// target and returns unique selector candidates sorted by confidence
// descending, ties kept in document order. An empty result is not an error;
// the caller decides how to report it.
func (e *Engine) FindByText(ctx context.Context, ev Evaluator, text, elementType string, exact bool) ([]schemas.SelectorCandidate, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("search text must not be empty")
	}

	params, err := json.Marshal(scanParams{
		Hints: hintSelectors(elementType),
		Text:  text,
		Exact: exact,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding scan parameters: %w", err)
	}

	var raw []rawCandidate
	script := fmt.Sprintf(scanScript, params)
	if err := ev.Evaluate(ctx, script, &raw); err != nil {
		return nil, fmt.Errorf("dom scan failed: %w", err)
	}

	candidates := make([]schemas.SelectorCandidate, 0, len(raw))
	for _, rc := range raw {
		candidates = append(candidates, schemas.SelectorCandidate{
			Selector:    rc.Selector,
			MatchedText: rc.Text,
			TagName:     rc.TagName,
			Confidence:  score(rc),
			Rect:        rc.Rect,
		})
	}

	// The scan emits candidates in document order; a stable sort preserves
	// that order among equal confidences.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	e.logger.Debug("selector discovery completed",
		zap.String("text", text),
		zap.String("element_type", elementType),
		zap.Int("candidates", len(candidates)))
	return candidates, nil
}

// score assigns a 0-100 confidence. Exact text on a uniquely-id'd element is
// a perfect match. Selectors carrying no identity at all (pure tag/position
// paths) are capped below everything that carries an id, class or attribute,
// because they break on any layout change.
func score(c rawCandidate) int {
	if c.UniqueID && c.Exact {
		return 100
	}

	if c.StructuralOnly {
		s := 30 - 2*capInt(c.Depth, 10)
		if !c.Exact {
			s -= 5
		}
		return clamp(s, 1, 30)
	}

	s := 45
	if c.UniqueID {
		s += 30
	}
	if c.Exact {
		s += 20
	}
	if c.SharedClasses {
		s -= 5
	}
	if c.Depth > 1 {
		s -= 2 * capInt(c.Depth-1, 5)
	}
	return clamp(s, 35, 95)
}

func capInt(v, max int) int {
	if v > max {
		return max
	}
	return v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
