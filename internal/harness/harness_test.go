package harness

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/servactory"
	"github.com/roach88/servactory/internal/outcome"
	"github.com/roach88/servactory/internal/store"
)

// doubler doubles n. Negative n fails, zero returns an unexpected error.
type doubler struct{}

func (doubler) Name() string { return "Doubler" }

func (doubler) Call(_ context.Context, args map[string]any) (*outcome.Result, error) {
	n, _ := args["n"].(int64)
	switch {
	case n == 0:
		return nil, errors.New("boom")
	case n < 0:
		trace := []outcome.Event{
			{Seq: 1, Kind: outcome.EventStarted},
			{Seq: 2, Kind: outcome.EventActionFailed, Stage: 1, Action: "double", Detail: "n must be positive"},
			{Seq: 3, Kind: outcome.EventFailed},
		}
		f := &outcome.Failure{Type: "negative", Message: "n must be positive", Meta: map[string]any{"n": n}}
		return outcome.NewFailureResult("Doubler", "inv-1", f, trace), nil
	}
	trace := []outcome.Event{
		{Seq: 1, Kind: outcome.EventStarted},
		{Seq: 2, Kind: outcome.EventActionCompleted, Stage: 1, Action: "double"},
		{Seq: 3, Kind: outcome.EventActionCompleted, Stage: 2, Action: "publish"},
		{Seq: 4, Kind: outcome.EventCompleted},
	}
	return outcome.NewSuccess("Doubler", "inv-1", []string{"doubled"}, map[string]any{"doubled": n * 2}, trace), nil
}

func newDoublerHarness(t *testing.T) *Harness {
	t.Helper()
	h := New()
	require.NoError(t, h.Register(doubler{}))
	return h
}

func TestRun_Golden(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "doubling.yaml"))
	require.NoError(t, err)

	result, err := RunWithGolden(t, newDoublerHarness(t), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
}

func TestRun_SeqIsScenarioWide(t *testing.T) {
	scenario := &Scenario{
		Name:        "seq",
		Description: "two calls",
		Steps:       []Step{{Call: "Doubler", Args: map[string]any{"n": 1}}, {Call: "Doubler", Args: map[string]any{"n": 2}}},
	}

	result, err := newDoublerHarness(t).Run(context.Background(), scenario)
	require.NoError(t, err)
	require.Len(t, result.Trace, 8)
	for i, e := range result.Trace {
		assert.Equal(t, int64(i+1), e.Seq)
	}
	assert.Equal(t, 0, result.Trace[3].Step)
	assert.Equal(t, 1, result.Trace[4].Step)
}

func TestRun_ExpectMismatch(t *testing.T) {
	yes := true

	tests := []struct {
		name    string
		step    Step
		wantErr string
	}{
		{
			name:    "success expected, failure returned",
			step:    Step{Call: "Doubler", Args: map[string]any{"n": -3}, Expect: &Expect{Success: &yes}},
			wantErr: "step 0 (Doubler): expected success=true, got failure negative: n must be positive",
		},
		{
			name:    "failure expected, success returned",
			step:    Step{Call: "Doubler", Args: map[string]any{"n": 3}, Expect: &Expect{Failure: &ExpectFailure{Type: "negative"}}},
			wantErr: "step 0 (Doubler): expected success=false, got success",
		},
		{
			name:    "output mismatch",
			step:    Step{Call: "Doubler", Args: map[string]any{"n": 3}, Expect: &Expect{Outputs: map[string]any{"doubled": 7}}},
			wantErr: `step 0 (Doubler): output "doubled": expected 7, got 6`,
		},
		{
			name:    "failure type mismatch",
			step:    Step{Call: "Doubler", Args: map[string]any{"n": -3}, Expect: &Expect{Failure: &ExpectFailure{Type: "other"}}},
			wantErr: `step 0 (Doubler): failure type: expected "other", got "negative"`,
		},
		{
			name:    "failure meta mismatch",
			step:    Step{Call: "Doubler", Args: map[string]any{"n": -3}, Expect: &Expect{Failure: &ExpectFailure{Meta: map[string]any{"n": -4}}}},
			wantErr: `step 0 (Doubler): failure meta "n": expected -4, got -3`,
		},
		{
			name:    "unexpected error",
			step:    Step{Call: "Doubler", Args: map[string]any{"n": 0}},
			wantErr: "step 0 (Doubler): unexpected error: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scenario := &Scenario{Name: "mismatch", Description: "d", Steps: []Step{tt.step}}

			result, err := newDoublerHarness(t).Run(context.Background(), scenario)
			require.NoError(t, err)
			assert.False(t, result.Pass)
			assert.Equal(t, []string{tt.wantErr}, result.Errors)
		})
	}
}

func TestRun_UnknownService(t *testing.T) {
	scenario := &Scenario{Name: "x", Description: "d", Steps: []Step{{Call: "Missing"}}}

	_, err := newDoublerHarness(t).Run(context.Background(), scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown service "Missing"`)
}

func TestRegister_Duplicate(t *testing.T) {
	h := New()
	require.NoError(t, h.Register(doubler{}))
	err := h.Register(doubler{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRun_RealServiceWithJournal(t *testing.T) {
	journal, err := store.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = journal.Close() })

	fw := servactory.MustNew()
	greeter, err := fw.Define("Greeter").
		Input("name", servactory.Type(servactory.String)).
		Output("greeting", servactory.Type(servactory.String)).
		Use(servactory.Idempotent(journal, nil)).
		Make("greet", func(c *servactory.Context) error {
			name, err := servactory.Get[string](c.Inputs(), "name")
			if err != nil {
				return err
			}
			return c.Outputs().Set("greeting", "hello "+name)
		}).
		Build()
	require.NoError(t, err)

	h := New(WithJournal(journal))
	require.NoError(t, h.Register(greeter))

	scenario, err := ParseScenario([]byte(`
name: greeter
description: "Repeated calls replay from the journal"
steps:
  - call: Greeter
    args: { name: ada }
    expect: { outputs: { greeting: "hello ada" } }
  - call: Greeter
    args: { name: ada }
    expect: { outputs: { greeting: "hello ada" } }
  - call: Greeter
    args: { name: 7 }
    expect: { failure: { type: input, meta: { attribute: name } } }
assertions:
  - type: trace_count
    kind: action_completed
    action: greet
    count: 1
  - type: trace_contains
    kind: replayed
  - type: journal_count
    service: Greeter
    count: 1
`))
	require.NoError(t, err)

	result, err := h.Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestValuesEqual(t *testing.T) {
	tests := []struct {
		name     string
		actual   any
		expected any
		want     bool
	}{
		{"int64 vs int", int64(10), 10, true},
		{"integral float vs int", 10.0, 10, true},
		{"fraction vs int", 10.5, 10, false},
		{"nested maps", map[string]any{"a": []any{int64(1)}}, map[string]any{"a": []any{1}}, true},
		{"nil vs nil", nil, nil, true},
		{"nil vs value", nil, "x", false},
		{"unsupported", make(chan int), 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, valuesEqual(tt.actual, tt.expected))
		})
	}
}
