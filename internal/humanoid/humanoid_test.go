// File: internal/humanoid/humanoid_test.go
package humanoid

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/lancet-mcp/internal/config"
)

func humanoidCfg() config.HumanoidConfig {
	return config.HumanoidConfig{
		Enabled:          true,
		TypingDelayMinMs: 40,
		TypingDelayMaxMs: 160,
		ScrollStepMin:    120,
		ScrollStepMax:    480,
		ScrollStepsMax:   6,
	}
}

func TestTypist_DelaysWithinConfiguredRange(t *testing.T) {
	typist := NewTypist(humanoidCfg(), 42)
	delays := typist.Delays("hello world", 0)
	require.Len(t, delays, len("hello world"))

	for i, d := range delays {
		assert.GreaterOrEqual(t, d, 40*time.Millisecond, "delay %d too short", i)
		// Word boundaries may double the jitter on top of the base range.
		assert.LessOrEqual(t, d, 2*160*time.Millisecond, "delay %d too long", i)
	}
}

func TestTypist_ExplicitMeanOverridesRange(t *testing.T) {
	typist := NewTypist(humanoidCfg(), 42)
	delays := typist.Delays("abc", 200*time.Millisecond)
	for _, d := range delays {
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, 300*time.Millisecond)
	}
}

func TestTypist_DeterministicWithSeed(t *testing.T) {
	a := NewTypist(humanoidCfg(), 7).Delays("repeatable", 0)
	b := NewTypist(humanoidCfg(), 7).Delays("repeatable", 0)
	assert.Equal(t, a, b)
}

func TestScroller_PlanRespectsBounds(t *testing.T) {
	scroller := NewScroller(humanoidCfg(), 42)

	for i := 0; i < 50; i++ {
		plan := scroller.Plan()
		require.NotEmpty(t, plan)
		assert.LessOrEqual(t, len(plan), 6)
		for _, step := range plan {
			if step.DeltaY > 0 {
				assert.GreaterOrEqual(t, step.DeltaY, 120)
				assert.Less(t, step.DeltaY, 480)
			} else {
				// Upward corrections are half-size.
				assert.GreaterOrEqual(t, step.DeltaY, -240)
				assert.NotZero(t, step.DeltaY)
			}
			assert.Greater(t, step.Pause, time.Duration(0))
		}
	}
}

func TestScroller_FirstStepAlwaysScrollsDown(t *testing.T) {
	scroller := NewScroller(humanoidCfg(), 99)
	for i := 0; i < 20; i++ {
		plan := scroller.Plan()
		assert.Positive(t, plan[0].DeltaY)
	}
}

func TestScroller_PaceHonorsContext(t *testing.T) {
	scroller := NewScroller(humanoidCfg(), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Burst tokens may let the first waits pass; a canceled context must
	// stop the pacing loop quickly regardless.
	var err error
	for i := 0; i < 5; i++ {
		if err = scroller.Pace(ctx); err != nil {
			break
		}
	}
	assert.Error(t, err)
}
