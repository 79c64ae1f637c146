package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/servactory/internal/ir"
)

// Snapshot captures the deterministic part of a scenario execution.
// Invocation IDs are left out so snapshots stay stable.
type Snapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Steps        []StepResult `json:"steps"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonicalMap converts a Snapshot to plain values for canonical JSON.
func (s *Snapshot) toCanonicalMap() map[string]any {
	steps := make([]any, len(s.Steps))
	for i, st := range s.Steps {
		m := map[string]any{
			"service": st.Service,
			"success": st.Success,
		}
		if st.Outputs != nil {
			m["outputs"] = st.Outputs
		}
		if st.Failure != nil {
			f := map[string]any{
				"type":    st.Failure.Type,
				"message": st.Failure.Message,
			}
			if st.Failure.Meta != nil {
				f["meta"] = st.Failure.Meta
			}
			m["failure"] = f
		}
		if st.Error != "" {
			m["error"] = st.Error
		}
		steps[i] = m
	}

	trace := make([]any, len(s.Trace))
	for i, e := range s.Trace {
		m := map[string]any{
			"step":    e.Step,
			"service": e.Service,
			"kind":    e.Kind,
			"seq":     e.Seq,
		}
		if e.Stage != 0 {
			m["stage"] = e.Stage
		}
		if e.Action != "" {
			m["action"] = e.Action
		}
		if e.Detail != "" {
			m["detail"] = e.Detail
		}
		trace[i] = m
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"steps":         steps,
		"trace":         trace,
	}
}

// RunWithGolden runs a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./... -update
func RunWithGolden(t *testing.T, h *Harness, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := h.Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares a result against a golden file without re-running
// the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := Snapshot{
		ScenarioName: scenarioName,
		Steps:        result.Steps,
		Trace:        result.Trace,
	}
	data, err := ir.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
