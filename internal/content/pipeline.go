// File: internal/content/pipeline.go
package content

import (
	"context"
	"fmt"
	"strings"

	"github.com/xkilldash9x/lancet-mcp/api/schemas"
	"go.uber.org/zap"
)

// Extractor is the slice of the browser session the pipeline reads from. An
// empty selector means the full document.
type Extractor interface {
	HTML(ctx context.Context, selector string) (string, error)
	Text(ctx context.Context, selector string) (string, error)
}

// Request describes one retrieval.
type Request struct {
	// Type is schemas.ContentHTML or schemas.ContentText.
	Type string
	// Selector scopes extraction to one element; empty means the whole page.
	Selector string
}

// Pipeline extracts content from the live page and truncates anything over
// the token budget. Extraction always re-reads the DOM; nothing is cached
// between calls.
type Pipeline struct {
	estimator Estimator
	maxTokens int
	logger    *zap.Logger
}

// NewPipeline builds a pipeline bounded at maxTokens per retrieval.
func NewPipeline(estimator Estimator, maxTokens int, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		estimator: estimator,
		maxTokens: maxTokens,
		logger:    logger.Named("content"),
	}
}

// Retrieve extracts the requested content and bounds it to the configured
// token budget. Oversized content is cut to the largest prefix under the
// budget with an explicit marker appended; content at or under the budget is
// returned unmodified.
func (p *Pipeline) Retrieve(ctx context.Context, ex Extractor, req Request) (*schemas.ContentChunk, error) {
	var (
		raw string
		err error
	)
	switch req.Type {
	case schemas.ContentHTML:
		raw, err = ex.HTML(ctx, req.Selector)
	case schemas.ContentText, "":
		raw, err = ex.Text(ctx, req.Selector)
	default:
		return nil, schemas.NewToolError(schemas.ErrInvalidArgument,
			"unknown content type %q, expected %q or %q", req.Type, schemas.ContentHTML, schemas.ContentText)
	}
	if err != nil {
		return nil, err
	}

	total := p.estimator.Estimate(raw)
	if total <= p.maxTokens {
		return &schemas.ContentChunk{
			Text:                 raw,
			TotalEstimatedTokens: total,
			Truncated:            false,
		}, nil
	}

	prefix := p.largestPrefix(raw)
	shown := p.estimator.Estimate(prefix)
	p.logger.Info("content truncated",
		zap.String("selector", req.Selector),
		zap.Int("total_tokens", total),
		zap.Int("shown_tokens", shown),
		zap.Int("limit", p.maxTokens))

	var b strings.Builder
	b.WriteString(prefix)
	fmt.Fprintf(&b,
		"\n\n[Content truncated: showing first %d of %d estimated tokens. Request a narrower selector to retrieve the remainder.]",
		shown, total)

	return &schemas.ContentChunk{
		Text:                 b.String(),
		TotalEstimatedTokens: total,
		Truncated:            true,
	}, nil
}

// largestPrefix binary-searches the longest rune-aligned prefix whose
// estimated size stays within the budget.
func (p *Pipeline) largestPrefix(raw string) string {
	runes := []rune(raw)
	lo, hi := 0, len(runes)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if p.estimator.Estimate(string(runes[:mid])) <= p.maxTokens {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return string(runes[:lo])
}
