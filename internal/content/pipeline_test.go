// File: internal/content/pipeline_test.go
package content

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/lancet-mcp/api/schemas"
	"go.uber.org/zap"
)

// charEstimator counts one token per rune, making every budget boundary
// exact in tests.
type charEstimator struct{}

func (charEstimator) Estimate(text string) int { return len([]rune(text)) }

// fakeExtractor serves canned content and counts extraction calls.
type fakeExtractor struct {
	html  string
	text  string
	err   error
	calls int
}

func (f *fakeExtractor) HTML(context.Context, string) (string, error) {
	f.calls++
	return f.html, f.err
}

func (f *fakeExtractor) Text(context.Context, string) (string, error) {
	f.calls++
	return f.text, f.err
}

func TestRetrieve_UnderLimitUnmodified(t *testing.T) {
	ex := &fakeExtractor{text: "short body"}
	p := NewPipeline(charEstimator{}, 100, zap.NewNop())

	chunk, err := p.Retrieve(context.Background(), ex, Request{Type: schemas.ContentText})
	require.NoError(t, err)
	assert.Equal(t, "short body", chunk.Text)
	assert.Equal(t, 10, chunk.TotalEstimatedTokens)
	assert.False(t, chunk.Truncated)
}

func TestRetrieve_ExactlyAtLimitNotTruncated(t *testing.T) {
	ex := &fakeExtractor{text: strings.Repeat("a", 50)}
	p := NewPipeline(charEstimator{}, 50, zap.NewNop())

	chunk, err := p.Retrieve(context.Background(), ex, Request{Type: schemas.ContentText})
	require.NoError(t, err)
	assert.False(t, chunk.Truncated, "content exactly at the limit must pass through")
	assert.Equal(t, 50, chunk.TotalEstimatedTokens)
	assert.NotContains(t, chunk.Text, "truncated")
}

func TestRetrieve_OneOverLimitTruncated(t *testing.T) {
	ex := &fakeExtractor{text: strings.Repeat("a", 51)}
	p := NewPipeline(charEstimator{}, 50, zap.NewNop())

	chunk, err := p.Retrieve(context.Background(), ex, Request{Type: schemas.ContentText})
	require.NoError(t, err)
	assert.True(t, chunk.Truncated)
	assert.Equal(t, 51, chunk.TotalEstimatedTokens, "total must report the full size, not the shown size")
	assert.Contains(t, chunk.Text, "[Content truncated: showing first 50 of 51 estimated tokens")
	assert.True(t, strings.HasPrefix(chunk.Text, strings.Repeat("a", 50)))
}

func TestRetrieve_TruncationIsRuneSafe(t *testing.T) {
	ex := &fakeExtractor{text: strings.Repeat("日本語テキスト", 20)}
	p := NewPipeline(charEstimator{}, 25, zap.NewNop())

	chunk, err := p.Retrieve(context.Background(), ex, Request{Type: schemas.ContentText})
	require.NoError(t, err)
	assert.True(t, chunk.Truncated)

	cut, _, _ := strings.Cut(chunk.Text, "\n\n[Content truncated")
	assert.Equal(t, 25, len([]rune(cut)))
	assert.True(t, strings.HasPrefix(strings.Repeat("日本語テキスト", 20), cut))
}

func TestRetrieve_HTMLPath(t *testing.T) {
	ex := &fakeExtractor{html: "<main><p>hello</p></main>"}
	p := NewPipeline(charEstimator{}, 100, zap.NewNop())

	chunk, err := p.Retrieve(context.Background(), ex, Request{Type: schemas.ContentHTML, Selector: "main"})
	require.NoError(t, err)
	assert.Equal(t, "<main><p>hello</p></main>", chunk.Text)
}

func TestRetrieve_DefaultsToText(t *testing.T) {
	ex := &fakeExtractor{text: "plain"}
	p := NewPipeline(charEstimator{}, 100, zap.NewNop())

	chunk, err := p.Retrieve(context.Background(), ex, Request{})
	require.NoError(t, err)
	assert.Equal(t, "plain", chunk.Text)
}

func TestRetrieve_UnknownTypeRejected(t *testing.T) {
	p := NewPipeline(charEstimator{}, 100, zap.NewNop())

	_, err := p.Retrieve(context.Background(), &fakeExtractor{}, Request{Type: "markdown"})
	require.Error(t, err)
	var toolErr *schemas.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, schemas.ErrInvalidArgument, toolErr.Kind)
}

func TestRetrieve_ExtractorErrorPropagates(t *testing.T) {
	ex := &fakeExtractor{err: errors.New("node not found")}
	p := NewPipeline(charEstimator{}, 100, zap.NewNop())

	_, err := p.Retrieve(context.Background(), ex, Request{Type: schemas.ContentText, Selector: "#gone"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node not found")
}

func TestRetrieve_AlwaysReExtracts(t *testing.T) {
	ex := &fakeExtractor{text: "version one"}
	p := NewPipeline(charEstimator{}, 100, zap.NewNop())

	first, err := p.Retrieve(context.Background(), ex, Request{Type: schemas.ContentText})
	require.NoError(t, err)

	ex.text = "version two"
	second, err := p.Retrieve(context.Background(), ex, Request{Type: schemas.ContentText})
	require.NoError(t, err)

	assert.Equal(t, "version one", first.Text)
	assert.Equal(t, "version two", second.Text, "retrieval must reflect live mutations, never a cache")
	assert.Equal(t, 2, ex.calls)
}

func TestHeuristicEstimator(t *testing.T) {
	e := heuristicEstimator{}
	assert.Equal(t, 0, e.Estimate(""))
	assert.Equal(t, 1, e.Estimate("abc"))
	assert.Equal(t, 1, e.Estimate("abcd"))
	assert.Equal(t, 2, e.Estimate("abcde"))
	// 8 runes, counted per rune rather than per byte.
	assert.Equal(t, 2, e.Estimate("日本語テキスト五"))
}
