package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// Property: delay(1) == base_delay for every valid policy.
func TestProperty_Delay_FirstRetryIsBase(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		base := time.Duration(rapid.Int64Range(1, int64(time.Minute)).Draw(rt, "base"))
		max := time.Duration(rapid.Int64Range(int64(base), int64(time.Hour)).Draw(rt, "max"))
		mult := rapid.Float64Range(1.0, 10.0).Draw(rt, "mult")

		p := NewPolicy(base, max, mult)
		assert.Equal(t, base, p.Delay(1))
	})
}

// Property: delay(k) is non-decreasing in k and never exceeds max_delay.
func TestProperty_Delay_MonotoneAndBounded(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		base := time.Duration(rapid.Int64Range(1, int64(10*time.Second)).Draw(rt, "base"))
		max := time.Duration(rapid.Int64Range(int64(base), int64(10*time.Minute)).Draw(rt, "max"))
		mult := rapid.Float64Range(1.0, 5.0).Draw(rt, "mult")
		attempts := rapid.IntRange(2, 64).Draw(rt, "attempts")

		p := NewPolicy(base, max, mult)

		prev := p.Delay(1)
		for k := 2; k <= attempts; k++ {
			cur := p.Delay(k)
			assert.GreaterOrEqual(t, cur, prev, "delay must be non-decreasing at k=%d", k)
			assert.LessOrEqual(t, cur, max, "delay must never exceed max at k=%d", k)
			prev = cur
		}
	})
}

// Property: huge attempt numbers never overflow past max_delay.
func TestProperty_Delay_NoOverflow(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		p := NewPolicy(time.Second, time.Minute, rapid.Float64Range(1.1, 10.0).Draw(rt, "mult"))
		attempt := rapid.IntRange(1, 1<<30).Draw(rt, "attempt")

		d := p.Delay(attempt)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, time.Minute)
	})
}
