// File: internal/locator/resolver.go

// Package locator resolves caller-supplied CSS selectors into live elements,
// tolerating selector drift by retrying through a fixed chain of fallback
// strategies.
package locator

import (
	"context"
	"fmt"
	"strings"

	"github.com/xkilldash9x/lancet-mcp/api/schemas"
	"go.uber.org/zap"
)

// Querier is the read-only DOM query surface the resolver needs from the
// browser session.
type Querier interface {
	// Probe reports how many elements match the selector and whether the
	// first match is visible and interactable.
	Probe(ctx context.Context, selector string) (schemas.SelectorProbe, error)
}

// Resolver walks the strategy chain until one candidate selector matches
// exactly one visible, interactable element.
type Resolver struct {
	strategies []Strategy
	logger     *zap.Logger
}

// NewResolver builds a resolver over the default strategy chain.
func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		strategies: Strategies(),
		logger:     logger.Named("locator"),
	}
}

// Resolve tries the original selector first, then each fallback strategy in
// priority order. The first candidate matching exactly one visible,
// interactable element wins. Returns (nil, nil) when every strategy exhausts
// without a match; a non-nil error only for driver failures.
func (r *Resolver) Resolve(ctx context.Context, q Querier, selector string) (*schemas.LocatorResult, error) {
	var lastErr error
	for _, strat := range r.strategies {
		for _, candidate := range strat.Candidates(selector) {
			probe, err := q.Probe(ctx, candidate)
			if err != nil {
				if ctx.Err() != nil {
					return nil, err
				}
				lastErr = err
				continue
			}
			if probe.Count == 1 && probe.Visible && probe.Interactable {
				if strat.Name() != schemas.StrategyPrimary {
					r.logger.Info("selector resolved via fallback strategy",
						zap.String("original", selector),
						zap.String("resolved", candidate),
						zap.String("strategy", string(strat.Name())))
				}
				return &schemas.LocatorResult{
					Selector: candidate,
					Strategy: strat.Name(),
				}, nil
			}
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("selector resolution failed: %w", lastErr)
	}
	return nil, nil
}

// FallbackSummary probes every strategy's candidates and reports why each
// failed to produce a usable element. It is computed separately from Resolve
// so the cost is only paid on the failure path, where it becomes part of the
// element-not-found diagnostic.
func (r *Resolver) FallbackSummary(ctx context.Context, q Querier, selector string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "selector %q could not be resolved; strategies attempted:\n", selector)
	for _, strat := range r.strategies {
		candidates := strat.Candidates(selector)
		if len(candidates) == 0 {
			fmt.Fprintf(&b, "  %s: no applicable candidates\n", strat.Name())
			continue
		}
		for _, candidate := range candidates {
			probe, err := q.Probe(ctx, candidate)
			switch {
			case err != nil:
				fmt.Fprintf(&b, "  %s: %q probe failed: %v\n", strat.Name(), candidate, err)
			case probe.Count == 0:
				fmt.Fprintf(&b, "  %s: %q matched no elements\n", strat.Name(), candidate)
			case probe.Count > 1:
				fmt.Fprintf(&b, "  %s: %q matched %d elements (ambiguous)\n", strat.Name(), candidate, probe.Count)
			case !probe.Visible:
				fmt.Fprintf(&b, "  %s: %q matched one element, but it is not visible\n", strat.Name(), candidate)
			case !probe.Interactable:
				fmt.Fprintf(&b, "  %s: %q matched one element, but it is not interactable\n", strat.Name(), candidate)
			default:
				fmt.Fprintf(&b, "  %s: %q is now resolvable (page may have changed)\n", strat.Name(), candidate)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
