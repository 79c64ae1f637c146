package harness

import "github.com/roach88/servactory/internal/outcome"

// TraceEvent is one trace entry tagged with the step that produced it. Seq
// is scenario-wide.
type TraceEvent struct {
	Step    int    `json:"step"`
	Service string `json:"service"`
	Kind    string `json:"kind"`
	Stage   int    `json:"stage,omitempty"`
	Action  string `json:"action,omitempty"`
	Detail  string `json:"detail,omitempty"`
	Seq     int64  `json:"seq"`
}

// FailureSnapshot is the comparable part of a failure.
type FailureSnapshot struct {
	Type    string         `json:"type"`
	Message string         `json:"message"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// StepResult records what one step returned.
type StepResult struct {
	Service string           `json:"service"`
	Success bool             `json:"success"`
	Outputs map[string]any   `json:"outputs,omitempty"`
	Failure *FailureSnapshot `json:"failure,omitempty"`
	// Error is set when the call returned an unexpected error.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion matched.
	Pass bool `json:"pass"`

	Steps []StepResult `json:"steps"`

	// Trace contains the events of every step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends the events of one step. next numbers the events across
// the whole scenario.
func (r *Result) AddTrace(step int, service string, events []outcome.Event, next func() int64) {
	for _, e := range events {
		r.Trace = append(r.Trace, TraceEvent{
			Step:    step,
			Service: service,
			Kind:    string(e.Kind),
			Stage:   e.Stage,
			Action:  e.Action,
			Detail:  e.Detail,
			Seq:     next(),
		})
	}
}
