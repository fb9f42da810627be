package safety

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/types"
)

func sampleReport() types.FailureReport {
	return types.FailureReport{
		FailedPersona:     "developer",
		TaskName:          "implement-feature",
		ErrorCategory:     types.CategoryTestFailure,
		AttemptsExhausted: 2,
		LastErrorMessage:  "test failed",
		Timestamp:         time.Now(),
	}
}

func TestLogEscalator(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	e := NewLogEscalator(zap.New(core))

	require.NoError(t, e.Escalate(context.Background(), sampleReport()))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Message, "escalating")
	fields := entries[0].ContextMap()
	assert.Equal(t, "developer", fields["failed_persona"])
	assert.Equal(t, "implement-feature", fields["task_name"])
	assert.Equal(t, "TEST_FAILURE", fields["error_category"])
}

func TestRateLimitedEscalator_DropsBeyondBurst(t *testing.T) {
	var delivered int
	inner := EscalatorFunc(func(ctx context.Context, report types.FailureReport) error {
		delivered++
		return nil
	})

	// 1/hour with burst 2: the third report inside the window is dropped.
	e := NewRateLimitedEscalator(inner, rate.Every(time.Hour), 2, zap.NewNop())

	for i := 0; i < 3; i++ {
		require.NoError(t, e.Escalate(context.Background(), sampleReport()))
	}
	assert.Equal(t, 2, delivered)
}
