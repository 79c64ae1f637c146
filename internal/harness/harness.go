package harness

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/servactory/internal/ir"
	"github.com/roach88/servactory/internal/outcome"
	"github.com/roach88/servactory/internal/store"
	"github.com/roach88/servactory/internal/testutil"
)

// Service is what a scenario step calls. *servactory.Service implements it.
type Service interface {
	Name() string
	Call(ctx context.Context, args map[string]any) (*outcome.Result, error)
}

// Harness runs scenarios against registered services.
type Harness struct {
	services map[string]Service
	journal  *store.Journal
	logger   *zap.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithJournal enables journal_count assertions against j.
func WithJournal(j *store.Journal) Option {
	return func(h *Harness) { h.journal = j }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// New creates a harness with no services.
func New(opts ...Option) *Harness {
	h := &Harness{
		services: make(map[string]Service),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds services. Names must be unique.
func (h *Harness) Register(svcs ...Service) error {
	for _, svc := range svcs {
		if _, dup := h.services[svc.Name()]; dup {
			return fmt.Errorf("service %q already registered", svc.Name())
		}
		h.services[svc.Name()] = svc
	}
	return nil
}

// Run executes a scenario and returns the result.
//
// Expectation and assertion mismatches are collected in Result.Errors. The
// returned error is reserved for scenarios that cannot run at all, such as a
// step calling an unregistered service.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	for i, step := range scenario.Steps {
		if _, ok := h.services[step.Call]; !ok {
			return nil, fmt.Errorf("steps[%d]: unknown service %q", i, step.Call)
		}
	}

	seq := testutil.NewSequence()
	result := NewResult()
	log := h.logger.With(zap.String("scenario", scenario.Name))

	for i, step := range scenario.Steps {
		svc := h.services[step.Call]

		args, err := normalizeArgs(step.Args)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: args: %w", i, err)
		}

		res, callErr := svc.Call(ctx, args)
		sr := StepResult{Service: step.Call}
		if callErr != nil {
			sr.Error = callErr.Error()
			result.Steps = append(result.Steps, sr)
			result.AddError(fmt.Sprintf("step %d (%s): unexpected error: %v", i, step.Call, callErr))
			log.Debug("step errored", zap.Int("step", i), zap.String("service", step.Call), zap.Error(callErr))
			continue
		}

		sr.Success = res.IsSuccess()
		if sr.Success {
			sr.Outputs = normalizeMap(res.Outputs())
		} else {
			f := res.Err()
			sr.Failure = &FailureSnapshot{Type: f.Type, Message: f.Message, Meta: normalizeMap(f.Meta)}
		}
		result.Steps = append(result.Steps, sr)
		result.AddTrace(i, step.Call, res.Trace(), seq.Next)
		log.Debug("step done", zap.Int("step", i), zap.String("service", step.Call), zap.Bool("success", sr.Success))

		for _, msg := range checkExpect(i, step, sr) {
			result.AddError(msg)
		}
	}

	actx := &AssertionContext{Journal: h.journal, Ctx: ctx}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}
	return result, nil
}

// checkExpect compares a step result with its expect clause.
func checkExpect(i int, step Step, sr StepResult) []string {
	e := step.Expect
	if e == nil {
		return nil
	}
	prefix := fmt.Sprintf("step %d (%s)", i, step.Call)

	want := e.Success
	if e.Failure != nil {
		f := false
		want = &f
	}
	if want != nil && *want != sr.Success {
		got := "success"
		if sr.Failure != nil {
			got = fmt.Sprintf("failure %s: %s", sr.Failure.Type, sr.Failure.Message)
		}
		return []string{fmt.Sprintf("%s: expected success=%v, got %s", prefix, *want, got)}
	}

	var errs []string
	if len(e.Outputs) > 0 {
		if key, ok := matchSubset(sr.Outputs, e.Outputs); !ok {
			errs = append(errs, fmt.Sprintf("%s: output %q: expected %v, got %v", prefix, key, e.Outputs[key], sr.Outputs[key]))
		}
	}
	if ef := e.Failure; ef != nil && sr.Failure != nil {
		if ef.Type != "" && ef.Type != sr.Failure.Type {
			errs = append(errs, fmt.Sprintf("%s: failure type: expected %q, got %q", prefix, ef.Type, sr.Failure.Type))
		}
		if ef.Message != "" && ef.Message != sr.Failure.Message {
			errs = append(errs, fmt.Sprintf("%s: failure message: expected %q, got %q", prefix, ef.Message, sr.Failure.Message))
		}
		if len(ef.Meta) > 0 {
			if key, ok := matchSubset(sr.Failure.Meta, ef.Meta); !ok {
				errs = append(errs, fmt.Sprintf("%s: failure meta %q: expected %v, got %v", prefix, key, ef.Meta[key], sr.Failure.Meta[key]))
			}
		}
	}
	return errs
}

// normalizeArgs gives YAML arguments the shape JSON arguments have: plain
// int becomes int64 and nested maps are map[string]any.
func normalizeArgs(args map[string]any) (map[string]any, error) {
	if args == nil {
		return map[string]any{}, nil
	}
	data, err := ir.MarshalCanonical(args)
	if err != nil {
		return nil, err
	}
	return ir.DecodeArgs(data)
}

// normalizeMap makes result values comparable and stable for snapshots.
// Values without a canonical encoding, such as errors, are rendered with
// fmt.
func normalizeMap(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	n, err := ir.DecodeJSON(data)
	if err != nil {
		return fmt.Sprint(v)
	}
	return n
}
