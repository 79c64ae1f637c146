package outcome

import (
	"encoding/json"
	"maps"
	"slices"

	"github.com/roach88/servactory/internal/ir"
)

// EventKind names a step of an invocation trace.
type EventKind string

const (
	EventStarted         EventKind = "started"
	EventStageSkipped    EventKind = "stage_skipped"
	EventStageStarted    EventKind = "stage_started"
	EventActionSkipped   EventKind = "action_skipped"
	EventActionCompleted EventKind = "action_completed"
	EventActionFailed    EventKind = "action_failed"
	EventRescued         EventKind = "rescued"
	EventRolledBack      EventKind = "rolled_back"
	EventSucceededEarly  EventKind = "succeeded_early"
	EventReplayed        EventKind = "replayed"
	EventCompleted       EventKind = "completed"
	EventFailed          EventKind = "failed"
)

// Event is one trace entry. Seq is a logical clock, never wall time.
type Event struct {
	Seq    int64     `json:"seq"`
	Kind   EventKind `json:"kind"`
	Stage  int       `json:"stage,omitempty"`
	Action string    `json:"action,omitempty"`
	Detail string    `json:"detail,omitempty"`
}

// Result is the immutable envelope of one invocation.
type Result struct {
	service      string
	invocationID string
	declared     []string
	outputs      map[string]any
	failure      *Failure
	trace        []Event
}

// NewSuccess builds a successful result. declared lists the output names in
// declaration order.
func NewSuccess(service, invocationID string, declared []string, outputs map[string]any, trace []Event) *Result {
	return &Result{
		service:      service,
		invocationID: invocationID,
		declared:     slices.Clone(declared),
		outputs:      maps.Clone(outputs),
		trace:        slices.Clone(trace),
	}
}

// NewFailureResult builds a failed result.
func NewFailureResult(service, invocationID string, f *Failure, trace []Event) *Result {
	return &Result{
		service:      service,
		invocationID: invocationID,
		failure:      f.Clone(),
		trace:        slices.Clone(trace),
	}
}

// Service returns the name of the invoked service.
func (r *Result) Service() string { return r.service }

// InvocationID returns the unique ID of the invocation.
func (r *Result) InvocationID() string { return r.invocationID }

// IsSuccess reports whether the invocation succeeded.
func (r *Result) IsSuccess() bool { return r.failure == nil }

// IsFailure reports whether the invocation failed.
func (r *Result) IsFailure() bool { return r.failure != nil }

// Err returns a copy of the failure, nil on success.
func (r *Result) Err() *Failure { return r.failure.Clone() }

// Output returns a declared output value. ok is false for undeclared names
// and on failure. A declared output that was never assigned reads as nil.
func (r *Result) Output(name string) (any, bool) {
	if r.failure != nil || !slices.Contains(r.declared, name) {
		return nil, false
	}
	return r.outputs[name], true
}

// Has is the presence accessor of an output.
func (r *Result) Has(name string) bool {
	v, ok := r.Output(name)
	return ok && ir.Truthy(v)
}

// Outputs returns a copy of the assigned outputs.
func (r *Result) Outputs() map[string]any {
	if r.failure != nil {
		return map[string]any{}
	}
	return maps.Clone(r.outputs)
}

// OutputNames returns the declared outputs in declaration order.
func (r *Result) OutputNames() []string {
	return slices.Clone(r.declared)
}

// Trace returns a copy of the invocation trace.
func (r *Result) Trace() []Event {
	return slices.Clone(r.trace)
}

// OnSuccess calls fn when the result is a success.
func (r *Result) OnSuccess(fn func(*Result)) *Result {
	if r.IsSuccess() {
		fn(r)
	}
	return r
}

// OnFailure calls fn when the result is a failure of one of types. No types,
// or TypeAll, selects every failure.
func (r *Result) OnFailure(fn func(*Failure), types ...string) *Result {
	if r.failure == nil {
		return r
	}
	if len(types) == 0 || slices.Contains(types, TypeAll) || slices.Contains(types, r.failure.Type) {
		fn(r.failure.Clone())
	}
	return r
}

type resultJSON struct {
	Service      string         `json:"service"`
	InvocationID string         `json:"invocation_id"`
	Success      bool           `json:"success"`
	Outputs      map[string]any `json:"outputs,omitempty"`
	Error        *failureJSON   `json:"error,omitempty"`
}

type failureJSON struct {
	Type    string         `json:"type"`
	Message string         `json:"message"`
	Meta    map[string]any `json:"meta"`
}

// MarshalJSON renders the envelope for tooling.
func (r *Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		Service:      r.service,
		InvocationID: r.invocationID,
		Success:      r.IsSuccess(),
	}
	if r.failure != nil {
		out.Error = &failureJSON{Type: r.failure.Type, Message: r.failure.Message, Meta: r.failure.Meta}
	} else {
		out.Outputs = r.outputs
	}
	return json.Marshal(out)
}
