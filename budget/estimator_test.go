package budget

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedEstimator(t *testing.T) {
	e := FixedEstimator(2000)
	assert.Equal(t, uint64(2000), e.EstimateTokens(""))
	assert.Equal(t, uint64(2000), e.EstimateTokens("anything at all"))
}

func TestTiktokenEstimator_Empty(t *testing.T) {
	e := NewTiktokenEstimator("")
	assert.Equal(t, uint64(0), e.EstimateTokens(""))
}

func TestTiktokenEstimator_NonEmpty(t *testing.T) {
	e := NewTiktokenEstimator("cl100k_base")

	// Works whether the real encoding loads or the fallback kicks in:
	// both give a positive, length-correlated estimate.
	short := e.EstimateTokens("hello")
	long := e.EstimateTokens("hello world, this is a considerably longer prompt for the persona to chew on")
	assert.Greater(t, short, uint64(0))
	assert.Greater(t, long, short)
}

func TestFallbackEstimate(t *testing.T) {
	assert.Equal(t, uint64(1), fallbackEstimate("ab"))
	assert.Equal(t, uint64(2), fallbackEstimate("eight ch"))
	// CJK text weighs heavier per rune than ASCII.
	assert.Greater(t, fallbackEstimate("你好世界你好世界"), fallbackEstimate("abcdefgh"))
}
