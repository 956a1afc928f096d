// File: internal/humanoid/humanoid.go

// Package humanoid generates human-like pacing for keyboard and scroll input.
// It only plans timing and distances; driving the browser is the session's
// job.
package humanoid

import (
	"context"
	"math/rand"
	"time"

	"github.com/xkilldash9x/lancet-mcp/internal/config"
	"golang.org/x/time/rate"
)

// Typist produces jittered per-keystroke delays.
type Typist struct {
	rng *rand.Rand
	min time.Duration
	max time.Duration
}

// NewTypist builds a typist from the humanoid configuration. A non-positive
// range collapses to instant typing.
func NewTypist(cfg config.HumanoidConfig, seed int64) *Typist {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Typist{
		rng: rand.New(rand.NewSource(seed)),
		min: time.Duration(cfg.TypingDelayMinMs) * time.Millisecond,
		max: time.Duration(cfg.TypingDelayMaxMs) * time.Millisecond,
	}
}

// Delays returns one delay per rune of text. Word boundaries get a longer
// pause, mimicking the rhythm of someone reading while typing. An explicit
// mean overrides the configured range but keeps the jitter.
func (t *Typist) Delays(text string, mean time.Duration) []time.Duration {
	runes := []rune(text)
	delays := make([]time.Duration, len(runes))
	lo, hi := t.min, t.max
	if mean > 0 {
		lo = mean / 2
		hi = mean + mean/2
	}
	if hi <= lo {
		hi = lo + time.Millisecond
	}
	span := int64(hi - lo)
	for i, r := range runes {
		d := lo + time.Duration(t.rng.Int63n(span))
		if r == ' ' || r == '\n' || r == '.' || r == ',' {
			d += time.Duration(t.rng.Int63n(span))
		}
		delays[i] = d
	}
	return delays
}

// ScrollStep is one scroll movement in the plan.
type ScrollStep struct {
	// DeltaY is the vertical scroll distance in pixels; negative scrolls up.
	DeltaY int
	// Pause is the dwell time after the movement.
	Pause time.Duration
}

// Scroller plans randomized scroll sequences and paces their execution.
type Scroller struct {
	rng     *rand.Rand
	cfg     config.HumanoidConfig
	limiter *rate.Limiter
}

// NewScroller builds a scroller from the humanoid configuration.
func NewScroller(cfg config.HumanoidConfig, seed int64) *Scroller {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Scroller{
		rng: rand.New(rand.NewSource(seed)),
		cfg: cfg,
		// At most one scroll burst every 300ms, with room for an initial
		// pair of movements back to back.
		limiter: rate.NewLimiter(rate.Every(300*time.Millisecond), 2),
	}
}

// Plan produces a randomized scroll sequence. Mostly downward, with an
// occasional short upward correction the way a reader skims.
func (s *Scroller) Plan() []ScrollStep {
	max := s.cfg.ScrollStepsMax
	if max < 1 {
		max = 1
	}
	count := 1 + s.rng.Intn(max)
	steps := make([]ScrollStep, 0, count)
	for i := 0; i < count; i++ {
		delta := s.stepSize()
		if i > 0 && s.rng.Intn(5) == 0 {
			delta = -delta / 2
		}
		steps = append(steps, ScrollStep{
			DeltaY: delta,
			Pause:  time.Duration(100+s.rng.Intn(400)) * time.Millisecond,
		})
	}
	return steps
}

func (s *Scroller) stepSize() int {
	lo, hi := s.cfg.ScrollStepMin, s.cfg.ScrollStepMax
	if lo < 1 {
		lo = 1
	}
	if hi <= lo {
		return lo
	}
	return lo + s.rng.Intn(hi-lo)
}

// Pace blocks until the next scroll movement is allowed to run.
func (s *Scroller) Pace(ctx context.Context) error {
	return s.limiter.Wait(ctx)
}
