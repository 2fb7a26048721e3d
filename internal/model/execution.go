package model

import "time"

// Execution status constants.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Provider values reported on every result.
const (
	ProviderNone   = "none"
	ProviderLocal  = "local"
	ProviderRemote = "remote"
)

// NoOutputPlaceholder is returned as output when a program printed nothing.
const NoOutputPlaceholder = "Program executed successfully (no output)"

// validTransitions maps each status to the set of statuses it may transition to.
var validTransitions = map[string]map[string]bool{
	StatusPending: {
		StatusRunning: true,
		StatusFailed:  true,
	},
	StatusRunning: {
		StatusCompleted: true,
		StatusFailed:    true,
	},
}

// ValidTransition reports whether transitioning from one status to another is allowed.
func ValidTransition(from, to string) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// IsTerminal reports whether no further transitions are possible from status.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

// ExecutionRequest is one caller submission. It is read-only to the engine.
type ExecutionRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	Input    string `json:"input,omitempty"`
}

// ExecutionResult is the normalized outcome of one execution.
type ExecutionResult struct {
	Success         bool   `json:"success"`
	Output          string `json:"output"`
	Error           string `json:"error,omitempty"`
	ExecutionTimeMS int64  `json:"executionTime"`
	Provider        string `json:"provider,omitempty"`
}

// Execution is the persisted record of a submission and its result.
type Execution struct {
	ID              string     `json:"id"`
	Status          string     `json:"status"`
	Language        string     `json:"language"`
	Provider        string     `json:"provider,omitempty"`
	Code            string     `json:"code"`
	Input           string     `json:"input,omitempty"`
	Success         bool       `json:"success"`
	Output          string     `json:"output,omitempty"`
	Error           string     `json:"error,omitempty"`
	ExecutionTimeMS *int64     `json:"execution_time_ms,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

// Request returns the caller submission carried by the record.
func (e *Execution) Request() ExecutionRequest {
	return ExecutionRequest{Language: e.Language, Code: e.Code, Input: e.Input}
}

// LogLine represents a single persisted output line from an execution.
type LogLine struct {
	ID          int64     `json:"id"`
	ExecutionID string    `json:"execution_id"`
	Seq         int       `json:"seq"`
	Line        string    `json:"line"`
	CreatedAt   time.Time `json:"created_at"`
}

// Result returns the caller-facing outcome recorded on the execution.
func (e *Execution) Result() ExecutionResult {
	res := ExecutionResult{
		Success:  e.Success,
		Output:   e.Output,
		Error:    e.Error,
		Provider: e.Provider,
	}
	if e.ExecutionTimeMS != nil {
		res.ExecutionTimeMS = *e.ExecutionTimeMS
	}
	return res
}
