// File: internal/content/estimator.go

// Package content extracts page or element content and bounds its size so a
// single retrieval can never blow past the caller's processing budget.
package content

import (
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// Estimator reports the approximate token count of a content blob.
type Estimator interface {
	Estimate(text string) int
}

// tiktokenEstimator counts tokens with a real BPE encoding.
type tiktokenEstimator struct {
	enc *tiktoken.Tiktoken
}

func (t *tiktokenEstimator) Estimate(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// heuristicEstimator approximates one token per four characters. Used when
// the requested encoding cannot be loaded, e.g. no network access to fetch
// the BPE vocabulary.
type heuristicEstimator struct{}

func (heuristicEstimator) Estimate(text string) int {
	runes := utf8.RuneCountInString(text)
	return (runes + 3) / 4
}

// NewEstimator loads the named tiktoken encoding, falling back to the
// character heuristic if the encoding is unavailable.
func NewEstimator(encoding string, logger *zap.Logger) Estimator {
	if logger == nil {
		logger = zap.NewNop()
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		logger.Named("content").Warn("token encoding unavailable, using character heuristic",
			zap.String("encoding", encoding),
			zap.Error(err))
		return heuristicEstimator{}
	}
	return &tiktokenEstimator{enc: enc}
}
