// File: internal/locator/strategy.go
package locator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xkilldash9x/lancet-mcp/api/schemas"
)

// Strategy produces candidate selectors derived from the caller's original
// selector. Strategies are stateless; the resolver owns ordering and
// short-circuiting.
type Strategy interface {
	Name() schemas.Strategy
	// Candidates returns zero or more selectors to probe, most promising
	// first. An empty slice means the strategy does not apply.
	Candidates(original string) []string
}

// Strategies returns the full fallback chain in resolution priority order.
func Strategies() []Strategy {
	return []Strategy{
		primaryStrategy{},
		semanticStrategy{},
		structuralStrategy{},
		attributeStrategy{},
	}
}

// primaryStrategy tries the caller's selector verbatim.
type primaryStrategy struct{}

func (primaryStrategy) Name() schemas.Strategy { return schemas.StrategyPrimary }

func (primaryStrategy) Candidates(original string) []string {
	return []string{original}
}

// semanticStrategy maps common intent patterns in the original selector to
// semantic equivalents. A selector that mentions "submit" is probably after
// the form's submit control no matter how the page spells it.
type semanticStrategy struct{}

func (semanticStrategy) Name() schemas.Strategy { return schemas.StrategySemantic }

var semanticEquivalents = []struct {
	keywords  []string
	selectors []string
}{
	{
		keywords:  []string{"submit", "login", "log-in", "signin", "sign-in"},
		selectors: []string{`button[type="submit"]`, `input[type="submit"]`, `form button`},
	},
	{
		keywords:  []string{"search"},
		selectors: []string{`input[type="search"]`, `[role="searchbox"]`, `input[name="q"]`},
	},
	{
		keywords:  []string{"email"},
		selectors: []string{`input[type="email"]`, `input[name="email"]`},
	},
	{
		keywords:  []string{"password", "passwd"},
		selectors: []string{`input[type="password"]`},
	},
	{
		keywords:  []string{"checkbox"},
		selectors: []string{`input[type="checkbox"]`, `[role="checkbox"]`},
	},
	{
		keywords:  []string{"button", "btn"},
		selectors: []string{`button`, `[role="button"]`},
	},
	{
		keywords:  []string{"link", "nav"},
		selectors: []string{`a[href]`, `[role="link"]`},
	},
}

func (semanticStrategy) Candidates(original string) []string {
	lowered := strings.ToLower(original)
	var out []string
	seen := make(map[string]bool)
	for _, eq := range semanticEquivalents {
		for _, kw := range eq.keywords {
			if !strings.Contains(lowered, kw) {
				continue
			}
			for _, sel := range eq.selectors {
				if !seen[sel] {
					seen[sel] = true
					out = append(out, sel)
				}
			}
			break
		}
	}
	return out
}

// structuralStrategy relaxes the original selector by stripping its most
// specific qualifier, on the theory that selector drift usually affects the
// narrowest part first (a renamed utility class, a shifted sibling index).
type structuralStrategy struct{}

func (structuralStrategy) Name() schemas.Strategy { return schemas.StrategyStructural }

var (
	trailingNth   = regexp.MustCompile(`:nth-(?:of-type|child)\(\d+\)$`)
	trailingClass = regexp.MustCompile(`\.[A-Za-z_-][\w-]*$`)
)

func (structuralStrategy) Candidates(original string) []string {
	var out []string
	seen := map[string]bool{original: true}
	add := func(sel string) {
		sel = strings.TrimSpace(sel)
		if sel != "" && !seen[sel] {
			seen[sel] = true
			out = append(out, sel)
		}
	}

	// Peel qualifiers off the last compound one at a time.
	cur := original
	for i := 0; i < 3; i++ {
		relaxed := relaxOnce(cur)
		if relaxed == cur {
			break
		}
		add(relaxed)
		cur = relaxed
	}

	// A descendant selector may survive with its first compound dropped
	// entirely, e.g. "#main > .form button" -> ".form button".
	if _, rest, found := strings.Cut(original, " "); found {
		add(strings.TrimPrefix(strings.TrimSpace(rest), "> "))
	}
	return out
}

// relaxOnce removes the single most specific qualifier from the last compound
// of sel. nth clauses go before classes because they encode the most brittle
// assumption.
func relaxOnce(sel string) string {
	if m := trailingNth.FindStringIndex(sel); m != nil {
		return sel[:m[0]]
	}
	if m := trailingClass.FindStringIndex(sel); m != nil && m[0] > 0 {
		return sel[:m[0]]
	}
	return sel
}

// attributeStrategy retries against common automation attributes using any
// text fragment recoverable from the original selector.
type attributeStrategy struct{}

func (attributeStrategy) Name() schemas.Strategy { return schemas.StrategyAttribute }

var fragmentPattern = regexp.MustCompile(`[A-Za-z][\w-]{2,}`)

// attributeStopWords are CSS vocabulary, not element identity.
var attributeStopWords = map[string]bool{
	"div": true, "span": true, "input": true, "button": true, "form": true,
	"nth": true, "child": true, "type": true, "of": true, "not": true,
	"first": true, "last": true, "href": true, "class": true, "role": true,
}

func (attributeStrategy) Candidates(original string) []string {
	fragment := extractFragment(original)
	if fragment == "" {
		return nil
	}
	return []string{
		fmt.Sprintf(`[data-testid="%s"]`, fragment),
		fmt.Sprintf(`[data-testid*="%s"]`, fragment),
		fmt.Sprintf(`[aria-label*="%s" i]`, fragment),
		fmt.Sprintf(`[name="%s"]`, fragment),
	}
}

// extractFragment pulls the longest identifier-looking token out of the
// selector, e.g. "#login-button" -> "login-button".
func extractFragment(sel string) string {
	var best string
	for _, tok := range fragmentPattern.FindAllString(sel, -1) {
		if attributeStopWords[strings.ToLower(tok)] {
			continue
		}
		if len(tok) > len(best) {
			best = tok
		}
	}
	return best
}
