// File: internal/locator/resolver_test.go
package locator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/lancet-mcp/api/schemas"
	"go.uber.org/zap"
)

// fakeQuerier answers probes from a canned table and records the order in
// which selectors were probed.
type fakeQuerier struct {
	probes map[string]schemas.SelectorProbe
	errs   map[string]error
	order  []string
}

func (f *fakeQuerier) Probe(_ context.Context, selector string) (schemas.SelectorProbe, error) {
	f.order = append(f.order, selector)
	if err, ok := f.errs[selector]; ok {
		return schemas.SelectorProbe{}, err
	}
	return f.probes[selector], nil
}

func usable() schemas.SelectorProbe {
	return schemas.SelectorProbe{Count: 1, Visible: true, Interactable: true}
}

func TestResolve_PrimaryStrategyWins(t *testing.T) {
	q := &fakeQuerier{probes: map[string]schemas.SelectorProbe{
		"#login-button": usable(),
	}}
	r := NewResolver(zap.NewNop())

	res, err := r.Resolve(context.Background(), q, "#login-button")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, schemas.StrategyPrimary, res.Strategy)
	assert.Equal(t, "#login-button", res.Selector)
	assert.Equal(t, []string{"#login-button"}, q.order, "no fallback probes after primary success")
}

func TestResolve_PrimaryProbedFirst(t *testing.T) {
	q := &fakeQuerier{probes: map[string]schemas.SelectorProbe{
		`button[type="submit"]`: usable(),
	}}
	r := NewResolver(zap.NewNop())

	res, err := r.Resolve(context.Background(), q, "#submit-btn")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, schemas.StrategySemantic, res.Strategy)
	assert.Equal(t, `button[type="submit"]`, res.Selector)

	require.NotEmpty(t, q.order)
	assert.Equal(t, "#submit-btn", q.order[0], "the original selector must be attempted before any fallback")
}

func TestResolve_StructuralRelaxation(t *testing.T) {
	q := &fakeQuerier{probes: map[string]schemas.SelectorProbe{
		"ul > li": usable(),
	}}
	r := NewResolver(zap.NewNop())

	res, err := r.Resolve(context.Background(), q, "ul > li:nth-of-type(3)")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, schemas.StrategyStructural, res.Strategy)
	assert.Equal(t, "ul > li", res.Selector)
}

func TestResolve_AttributeFallback(t *testing.T) {
	q := &fakeQuerier{probes: map[string]schemas.SelectorProbe{
		`[data-testid="checkout-flow"]`: usable(),
	}}
	r := NewResolver(zap.NewNop())

	res, err := r.Resolve(context.Background(), q, "#checkout-flow")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, schemas.StrategyAttribute, res.Strategy)
}

func TestResolve_AmbiguousMatchIsSkipped(t *testing.T) {
	q := &fakeQuerier{probes: map[string]schemas.SelectorProbe{
		".item":                   {Count: 4, Visible: true, Interactable: true},
		`[data-testid*="item"]`:   usable(),
	}}
	r := NewResolver(zap.NewNop())

	res, err := r.Resolve(context.Background(), q, ".item")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, schemas.StrategyAttribute, res.Strategy)
}

func TestResolve_InvisibleMatchIsSkipped(t *testing.T) {
	q := &fakeQuerier{probes: map[string]schemas.SelectorProbe{
		"#hidden-panel": {Count: 1, Visible: false, Interactable: false},
	}}
	r := NewResolver(zap.NewNop())

	res, err := r.Resolve(context.Background(), q, "#hidden-panel")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestResolve_ExhaustedReturnsNil(t *testing.T) {
	q := &fakeQuerier{}
	r := NewResolver(zap.NewNop())

	res, err := r.Resolve(context.Background(), q, "#nonexistent")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestResolve_ProbeErrorSurfacedOnExhaustion(t *testing.T) {
	q := &fakeQuerier{errs: map[string]error{
		"#broken": errors.New("evaluate failed: execution context destroyed"),
	}}
	r := NewResolver(zap.NewNop())

	res, err := r.Resolve(context.Background(), q, "#broken")
	assert.Nil(t, res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execution context destroyed")
}

func TestFallbackSummary_CoversAllStrategies(t *testing.T) {
	q := &fakeQuerier{probes: map[string]schemas.SelectorProbe{
		`button[type="submit"]`: {Count: 2, Visible: true, Interactable: true},
	}}
	r := NewResolver(zap.NewNop())

	summary := r.FallbackSummary(context.Background(), q, "#submit-button")
	for _, strat := range []schemas.Strategy{
		schemas.StrategyPrimary,
		schemas.StrategySemantic,
		schemas.StrategyStructural,
		schemas.StrategyAttribute,
	} {
		assert.Contains(t, summary, string(strat), "summary must cover every strategy")
	}
	assert.Contains(t, summary, "matched no elements")
	assert.Contains(t, summary, "ambiguous")
}

func TestSemanticStrategy_Candidates(t *testing.T) {
	s := semanticStrategy{}

	subs := s.Candidates("#login-submit")
	assert.Contains(t, subs, `button[type="submit"]`)
	assert.Contains(t, subs, `input[type="submit"]`)

	search := s.Candidates(".search-box input")
	assert.Contains(t, search, `input[type="search"]`)

	assert.Empty(t, s.Candidates("#totally-opaque"), "no intent keyword means no candidates")
}

func TestStructuralStrategy_Candidates(t *testing.T) {
	s := structuralStrategy{}

	relaxed := s.Candidates("div.form.compact:nth-of-type(2)")
	require.NotEmpty(t, relaxed)
	assert.Equal(t, "div.form.compact", relaxed[0], "nth clause is dropped first")
	assert.Contains(t, relaxed, "div.form")

	assert.Empty(t, s.Candidates("button"), "nothing left to relax")
}

func TestAttributeStrategy_Candidates(t *testing.T) {
	s := attributeStrategy{}

	cands := s.Candidates("#checkout-button")
	require.NotEmpty(t, cands)
	assert.Contains(t, cands, `[data-testid="checkout-button"]`)
	assert.Contains(t, cands, `[name="checkout-button"]`)

	assert.Empty(t, s.Candidates("div > span"), "pure structure carries no identity fragment")
}
