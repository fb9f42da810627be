package types

import "time"

// Status is the terminal outcome of an execution.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// ExecutionResult is the Level-1 outcome of one Execute call. Immutable
// once produced.
type ExecutionResult struct {
	ExecutionID  string    `json:"execution_id"`
	TaskName     string    `json:"task_name"`
	PersonaID    string    `json:"persona_id"`
	FinalStatus  Status    `json:"final_status"`
	FinalOutput  any       `json:"final_output,omitempty"`
	AttemptCount int       `json:"attempt_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// ToMap serializes the result for audit logging. Calling it twice on the
// same result returns identical output.
func (r *ExecutionResult) ToMap() map[string]any {
	return map[string]any{
		"execution_id":  r.ExecutionID,
		"task_name":     r.TaskName,
		"persona_id":    r.PersonaID,
		"final_status":  string(r.FinalStatus),
		"final_output":  r.FinalOutput,
		"attempt_count": r.AttemptCount,
		"created_at":    r.CreatedAt.UTC().Format(time.RFC3339),
		"success":       r.FinalStatus == StatusSuccess,
	}
}

// BreakerSnapshot is a point-in-time view of a circuit breaker, attached
// to Level-2 results and breaker-open rejections for audit trails.
type BreakerSnapshot struct {
	State               string     `json:"state"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	Threshold           int        `json:"threshold"`
	CooldownSeconds     float64    `json:"cooldown_seconds"`
	OpenedAt            *time.Time `json:"opened_at,omitempty"`
}

// ToMap serializes the snapshot.
func (s BreakerSnapshot) ToMap() map[string]any {
	m := map[string]any{
		"state":                s.State,
		"consecutive_failures": s.ConsecutiveFailures,
		"threshold":            s.Threshold,
		"cooldown_seconds":     s.CooldownSeconds,
	}
	if s.OpenedAt != nil {
		m["opened_at"] = s.OpenedAt.UTC().Format(time.RFC3339)
	}
	return m
}

// Level2Result is the outcome of one ExecuteSafe call, aggregating the
// Level-1 results of every attempt it made. Immutable once produced.
type Level2Result struct {
	TaskName       string            `json:"task_name"`
	FinalStatus    Status            `json:"final_status"`
	Success        bool              `json:"success"`
	Level2Attempts int               `json:"level2_attempts"`
	Level1Results  []ExecutionResult `json:"level1_results"`
	CircuitBreaker BreakerSnapshot   `json:"circuit_breaker_state"`
	CreatedAt      time.Time         `json:"created_at"`
}

// ToMap serializes the result, including the breaker snapshot taken when
// the result was produced.
func (r *Level2Result) ToMap() map[string]any {
	level1 := make([]map[string]any, 0, len(r.Level1Results))
	for i := range r.Level1Results {
		level1 = append(level1, r.Level1Results[i].ToMap())
	}
	return map[string]any{
		"task_name":             r.TaskName,
		"final_status":          string(r.FinalStatus),
		"success":               r.Success,
		"level2_attempts":       r.Level2Attempts,
		"level1_results":        level1,
		"circuit_breaker_state": r.CircuitBreaker.ToMap(),
		"created_at":            r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// FailureReport is the structured diagnostic payload attached to
// UnrecoverableError and HelpNeededError, so a human or ticketing system
// has full context without re-deriving it.
type FailureReport struct {
	FailedPersona     string        `json:"failed_persona"`
	TaskName          string        `json:"task_name"`
	ErrorCategory     ErrorCategory `json:"error_category"`
	AttemptsExhausted int           `json:"attempts_exhausted"`
	LastErrorMessage  string        `json:"last_error_message"`
	Timestamp         time.Time     `json:"timestamp"`
}

// ToMap serializes the report.
func (r FailureReport) ToMap() map[string]any {
	return map[string]any{
		"failed_persona":     r.FailedPersona,
		"task_name":          r.TaskName,
		"error_category":     string(r.ErrorCategory),
		"attempts_exhausted": r.AttemptsExhausted,
		"last_error_message": r.LastErrorMessage,
		"timestamp":          r.Timestamp.UTC().Format(time.RFC3339),
	}
}
