package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/text/language"

	"github.com/roach88/servactory/internal/ir"
	"github.com/roach88/servactory/internal/messages"
	"github.com/roach88/servactory/internal/option"
	"github.com/roach88/servactory/internal/outcome"
	"github.com/roach88/servactory/internal/validation"
)

// =============================================================================
// Helpers
// =============================================================================

func testDecls() *ir.Declarations {
	d := ir.NewDeclarations()
	d.Add(&ir.Attribute{Service: "Orders", Namespace: ir.NamespaceInput, Name: "ids", Types: []ir.TypeTag{ir.Array}, Required: true})
	d.Add(&ir.Attribute{Service: "Orders", Namespace: ir.NamespaceInput, Name: "locked", Types: []ir.TypeTag{ir.Boolean}, Default: ir.StaticDefault(false)})
	d.Add(&ir.Attribute{Service: "Orders", Namespace: ir.NamespaceInternal, Name: "count", Types: []ir.TypeTag{ir.Integer}})
	d.Add(&ir.Attribute{Service: "Orders", Namespace: ir.NamespaceOutput, Name: "first_id", Types: []ir.TypeTag{ir.String}})
	return d
}

func newRunner(p *Pipeline, opts ...RunnerOption) *Runner {
	cat := messages.MustNew("", language.English)
	return NewRunner("Orders", testDecls(), p, validation.New(option.Default(), cat), cat, opts...)
}

func run(t *testing.T, r *Runner, args map[string]any) *outcome.Result {
	t.Helper()
	res, err := r.Run(context.Background(), args)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func args() map[string]any { return map[string]any{"ids": []any{"AA-1", "BB-2"}} }

// recorder returns an action appending name to log.
func recorder(log *[]string, name string) *Action {
	return &Action{Name: name, Func: func(*Context) error {
		*log = append(*log, name)
		return nil
	}}
}

func kinds(trace []outcome.Event) []outcome.EventKind {
	out := make([]outcome.EventKind, len(trace))
	for i, e := range trace {
		out[i] = e.Kind
	}
	return out
}

// =============================================================================
// Ordering
// =============================================================================

func TestStagesAndActionsRunInPositionOrder(t *testing.T) {
	var log []string
	a, b, c, d := recorder(&log, "a"), recorder(&log, "b"), recorder(&log, "c"), recorder(&log, "d")
	a.Position, b.Position, c.Position = 2, 1, 1

	r := newRunner(&Pipeline{Stages: []*Stage{
		{Position: 2, Actions: []*Action{d}},
		{Position: 1, Actions: []*Action{a, b, c}},
	}})
	res := run(t, r, args())

	assert.True(t, res.IsSuccess())
	assert.Equal(t, []string{"b", "c", "a", "d"}, log, "position ties keep declaration order")
}

func TestActionsReadInputsAndWriteOutputs(t *testing.T) {
	r := newRunner(&Pipeline{Stages: []*Stage{{Actions: []*Action{{Name: "assign", Func: func(c *Context) error {
		ids, err := c.Inputs().Get("ids")
		if err != nil {
			return err
		}
		return c.Outputs().Set("first_id", ids.([]any)[0])
	}}}}}})

	res := run(t, r, args())
	v, ok := res.Output("first_id")
	require.True(t, ok)
	assert.Equal(t, "AA-1", v)
}

// =============================================================================
// Conditions
// =============================================================================

func TestSkippedStageAndActionNeverRun(t *testing.T) {
	stageRan, actionRan := false, false
	r := newRunner(&Pipeline{Stages: []*Stage{
		{
			Position:  1,
			Condition: When(func(c *Context) bool { v, _ := c.Inputs().Get("locked"); return v.(bool) }),
			Actions:   []*Action{{Name: "in_locked_stage", Func: func(*Context) error { stageRan = true; return nil }}},
		},
		{
			Position: 2,
			Actions: []*Action{{
				Name:      "unless_true",
				Condition: Static(true).Negate(),
				Func:      func(*Context) error { actionRan = true; return nil },
			}},
		},
	}})

	res := run(t, r, args())
	assert.False(t, stageRan)
	assert.False(t, actionRan)
	assert.Equal(t, []outcome.EventKind{
		outcome.EventStarted,
		outcome.EventStageSkipped,
		outcome.EventStageStarted,
		outcome.EventActionSkipped,
		outcome.EventCompleted,
	}, kinds(res.Trace()))
}

func TestConditionNegate(t *testing.T) {
	assert.True(t, Condition{}.Allows(nil), "zero condition allows")
	assert.False(t, Static(false).Allows(nil))
	assert.True(t, Static(false).Negate().Allows(nil))
	assert.False(t, When(func(*Context) bool { return true }).Negate().Allows(nil))
	assert.True(t, Static(true).Negate().Negate().Allows(nil))
}

// =============================================================================
// Wrappers, rollback, rescue
// =============================================================================

func TestWrapperRunsActionsThroughThunk(t *testing.T) {
	var log []string
	r := newRunner(&Pipeline{Stages: []*Stage{{
		Wrapper: func(c *Context, run func() error) error {
			log = append(log, "begin")
			err := run()
			log = append(log, "commit")
			return err
		},
		Actions: []*Action{recorder(&log, "a"), recorder(&log, "b")},
	}}})

	run(t, r, args())
	assert.Equal(t, []string{"begin", "a", "b", "commit"}, log)
}

func TestRollbackReceivesCauseAndCanResume(t *testing.T) {
	boom := errors.New("constraint violated")
	var got error
	var log []string
	r := newRunner(&Pipeline{Stages: []*Stage{
		{
			Position: 1,
			Wrapper:  func(c *Context, run func() error) error { return run() },
			Rollback: func(c *Context, cause error) error { got = cause; return nil },
			Actions:  []*Action{{Name: "explode", Func: func(*Context) error { return boom }}},
		},
		{Position: 2, Actions: []*Action{recorder(&log, "after")}},
	}})

	res := run(t, r, args())
	assert.True(t, res.IsSuccess())
	assert.Same(t, boom, got)
	assert.Equal(t, []string{"after"}, log)
	assert.Contains(t, kinds(res.Trace()), outcome.EventRolledBack)
}

func TestRollbackReturnValueReplacesError(t *testing.T) {
	r := newRunner(&Pipeline{Stages: []*Stage{{
		Wrapper:  func(c *Context, run func() error) error { return run() },
		Rollback: func(c *Context, cause error) error { return c.Fail("rolled back", FailType("transaction")) },
		Actions:  []*Action{{Name: "explode", Func: func(*Context) error { return errors.New("db") }}},
	}}})

	res := run(t, r, args())
	require.True(t, res.IsFailure())
	assert.Equal(t, "transaction", res.Err().Type)
}

func TestWrapperWithoutRollbackConvertsUnexpectedErrors(t *testing.T) {
	boom := errors.New("db down")
	r := newRunner(&Pipeline{Stages: []*Stage{{
		Wrapper: func(c *Context, run func() error) error { return run() },
		Actions: []*Action{{Name: "explode", Func: func(*Context) error { return boom }}},
	}}})

	res := run(t, r, args())
	require.True(t, res.IsFailure())
	f := res.Err()
	assert.True(t, f.IsBase())
	assert.Equal(t, "db down", f.Message)
	assert.Equal(t, map[string]any{"original_exception": "db down"}, f.Meta)
	assert.ErrorIs(t, f, boom)
}

func TestWrapperPassesExpectedErrorsThrough(t *testing.T) {
	r := newRunner(&Pipeline{Stages: []*Stage{{
		Wrapper: func(c *Context, run func() error) error { return run() },
		Actions: []*Action{{Name: "fail", Func: func(c *Context) error { return c.Fail("Locked!", FailType("lock")) }}},
	}}})

	res := run(t, r, args())
	assert.Equal(t, "lock", res.Err().Type)
	assert.Nil(t, res.Err().Meta)
}

type paymentError struct{ code int }

func (e *paymentError) Error() string { return fmt.Sprintf("payment declined: %d", e.code) }

func TestRescueHandlersNewestFirst(t *testing.T) {
	var tried []string
	handler := func(name string, match bool) RescueHandler {
		return func(c *Context, err error) (*outcome.Failure, bool) {
			tried = append(tried, name)
			var pe *paymentError
			if !match || !errors.As(err, &pe) {
				return nil, false
			}
			return outcome.NewFailure("payment", name, map[string]any{"code": pe.code}), true
		}
	}
	r := newRunner(&Pipeline{
		Stages: []*Stage{{Actions: []*Action{{Name: "charge", Func: func(*Context) error { return &paymentError{code: 51} }}}}},
		Rescue: []RescueHandler{handler("first", true), handler("second", true), handler("third", false)},
	})

	res := run(t, r, args())
	require.True(t, res.IsFailure())
	assert.Equal(t, "second", res.Err().Message)
	assert.Equal(t, []string{"third", "second"}, tried)
	var pe *paymentError
	assert.ErrorAs(t, res.Err(), &pe, "rescued failure keeps the cause")
}

func TestRescueDoesNotMutateSharedFailure(t *testing.T) {
	declined := outcome.NewFailure("payment", "declined", nil)
	r := newRunner(&Pipeline{
		Stages: []*Stage{{Actions: []*Action{{Name: "charge", Func: func(*Context) error { return &paymentError{code: 51} }}}}},
		Rescue: []RescueHandler{func(*Context, error) (*outcome.Failure, bool) { return declined, true }},
	})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := r.Run(context.Background(), args())
			if assert.NoError(t, err) {
				var pe *paymentError
				assert.ErrorAs(t, res.Err(), &pe)
			}
		}()
	}
	wg.Wait()
	assert.Nil(t, declined.Cause, "the handler's failure is copied before the cause is set")
}

func TestUnhandledErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	var log []string
	r := newRunner(&Pipeline{Stages: []*Stage{{Actions: []*Action{
		{Name: "explode", Func: func(*Context) error { return boom }},
		recorder(&log, "never"),
	}}}})

	res, err := r.Run(context.Background(), args())
	assert.Nil(t, res)
	assert.Same(t, boom, err)
	assert.Empty(t, log)
}

// =============================================================================
// Failures and early success
// =============================================================================

func TestInputFailureStopsBeforeActions(t *testing.T) {
	var log []string
	r := newRunner(&Pipeline{Stages: []*Stage{{Actions: []*Action{recorder(&log, "a")}}}})

	res := run(t, r, map[string]any{})
	require.True(t, res.IsFailure())
	assert.True(t, res.Err().IsInput())
	assert.Equal(t, "ids", res.Err().Meta["attribute"])
	assert.True(t, outcome.IsInputError(res.Err().Cause))
	assert.Empty(t, log)
}

func TestOutputFailureFromInvalidWrite(t *testing.T) {
	r := newRunner(&Pipeline{Stages: []*Stage{{Actions: []*Action{{Name: "assign", Func: func(c *Context) error {
		return c.Outputs().Set("first_id", 7)
	}}}}}})

	res := run(t, r, args())
	assert.True(t, res.Err().IsOutput())
}

func TestSucceedStopsPipeline(t *testing.T) {
	var log []string
	r := newRunner(&Pipeline{Stages: []*Stage{
		{Position: 1, Actions: []*Action{
			{Name: "short_circuit", Func: func(c *Context) error {
				if err := c.Outputs().Set("first_id", "early"); err != nil {
					return err
				}
				c.Succeed()
				return nil
			}},
			recorder(&log, "same_stage"),
		}},
		{Position: 2, Actions: []*Action{recorder(&log, "next_stage")}},
	}})

	res := run(t, r, args())
	assert.True(t, res.IsSuccess())
	assert.Empty(t, log)
	v, _ := res.Output("first_id")
	assert.Equal(t, "early", v)
	assert.Contains(t, kinds(res.Trace()), outcome.EventSucceededEarly)
}

func TestFailResultPropagatesNestedFailure(t *testing.T) {
	nested := outcome.NewFailureResult("Nested", "n-1", outcome.NewFailure("payment", "declined", map[string]any{"code": 5}), nil)
	r := newRunner(&Pipeline{Stages: []*Stage{{Actions: []*Action{{Name: "nested", Func: func(c *Context) error {
		return c.FailResult(nested)
	}}}}}})

	res := run(t, r, args())
	assert.Equal(t, "payment", res.Err().Type)
	assert.Equal(t, map[string]any{"code": 5}, res.Err().Meta)
	assert.Nil(t, (&Context{}).FailResult(outcome.NewSuccess("S", "1", nil, nil, nil)))
}

func TestFailAttributeHelpers(t *testing.T) {
	c := &Context{service: "Orders"}
	assert.True(t, outcome.IsInputError(c.FailInput("ids", "bad")))
	assert.True(t, outcome.IsInternalError(c.FailInternal("count", "bad")))
	assert.True(t, outcome.IsOutputError(c.FailOutput("first_id", "bad")))

	f, ok := outcome.AsFailure(c.Fail("nope", FailMeta(map[string]any{"k": 1})))
	require.True(t, ok)
	assert.True(t, f.IsBase())
	assert.Equal(t, map[string]any{"k": 1}, f.Meta)
}

// =============================================================================
// Entry fallback
// =============================================================================

func TestEntryFallback(t *testing.T) {
	called := false
	r := newRunner(&Pipeline{Entry: func(c *Context) error {
		called = true
		assert.Equal(t, EntryName, c.Action())
		return nil
	}})
	run(t, r, args())
	assert.True(t, called)
}

func TestNoActionsIsRuntimeError(t *testing.T) {
	_, err := newRunner(&Pipeline{}).Run(context.Background(), args())
	assert.True(t, IsRuntimeError(err))

	_, err = newRunner(&Pipeline{Stages: []*Stage{{Actions: []*Action{{Name: "ghost"}}}}}).Run(context.Background(), args())
	assert.True(t, IsMissingActionError(err))
	assert.Contains(t, err.Error(), "action=ghost")
}

// =============================================================================
// Extensions, IDs, logging
// =============================================================================

func TestExtensionsWrapInOrder(t *testing.T) {
	var log []string
	ext := func(name string) Extension {
		return func(c *Context, next func() error) error {
			ids, err := c.Inputs().Get("ids")
			require.NoError(t, err, "inputs are populated before extensions run")
			require.NotNil(t, ids)
			log = append(log, name+">")
			err = next()
			log = append(log, "<"+name)
			return err
		}
	}
	r := newRunner(&Pipeline{Stages: []*Stage{{Actions: []*Action{recorder(&log, "action")}}}},
		WithExtensions(ext("outer"), ext("inner")))

	run(t, r, args())
	assert.Equal(t, []string{"outer>", "inner>", "action", "<inner", "<outer"}, log)
}

func TestExtensionCanShortCircuit(t *testing.T) {
	ran := false
	r := newRunner(&Pipeline{Stages: []*Stage{{Actions: []*Action{{Name: "a", Func: func(*Context) error { ran = true; return nil }}}}}},
		WithExtensions(func(c *Context, next func() error) error {
			c.Record(outcome.EventReplayed, "cached")
			return c.Outputs().Set("first_id", "cached")
		}))

	res := run(t, r, args())
	assert.False(t, ran)
	v, _ := res.Output("first_id")
	assert.Equal(t, "cached", v)
}

func TestObserversSeeInputFailures(t *testing.T) {
	var log []string
	var seen []error
	obs := func(name string) Observer {
		return func(c *Context, next func() error) error {
			log = append(log, name+">")
			err := next()
			log = append(log, "<"+name)
			seen = append(seen, err)
			return err
		}
	}
	ext := func(c *Context, next func() error) error {
		log = append(log, "ext")
		return next()
	}
	r := newRunner(&Pipeline{Stages: []*Stage{{Actions: []*Action{recorder(&log, "action")}}}},
		WithObservers(obs("outer"), obs("inner")), WithExtensions(ext))

	run(t, r, args())
	assert.Equal(t, []string{"outer>", "inner>", "ext", "action", "<inner", "<outer"}, log)

	log, seen = nil, nil
	res := run(t, r, nil)
	assert.True(t, res.IsFailure())
	assert.Equal(t, []string{"outer>", "inner>", "<inner", "<outer"}, log)
	require.Len(t, seen, 2)
	assert.True(t, outcome.IsInputError(seen[0]))
}

func TestTraceIsStampedByLogicalClock(t *testing.T) {
	r := newRunner(&Pipeline{Stages: []*Stage{{Position: 3, Actions: []*Action{{Name: "a", Func: func(*Context) error { return nil }}}}}},
		WithIDGenerator(NewFixedGenerator("inv-1")))

	res := run(t, r, args())
	assert.Equal(t, "inv-1", res.InvocationID())
	trace := res.Trace()
	for i, e := range trace {
		assert.Equal(t, int64(i+1), e.Seq)
	}
	assert.Equal(t, outcome.Event{Seq: 3, Kind: outcome.EventActionCompleted, Stage: 3, Action: "a"}, trace[2])
}

func TestLoggerFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := newRunner(&Pipeline{Stages: []*Stage{{Position: 1, Condition: Static(false), Actions: []*Action{{Name: "a"}}}}},
		WithLogger(zap.New(core)), WithIDGenerator(NewFixedGenerator("inv-9")))

	run(t, r, args())
	skipped := logs.FilterMessage("stage skipped").All()
	require.Len(t, skipped, 1)
	fields := skipped[0].ContextMap()
	assert.Equal(t, "Orders", fields["service"])
	assert.Equal(t, "inv-9", fields["invocation_id"])
	assert.Equal(t, int64(1), fields["stage"])
	assert.Equal(t, 1, logs.FilterMessage("service call completed").Len())
}

func TestConcurrentInvocationsAreIsolated(t *testing.T) {
	r := newRunner(&Pipeline{Stages: []*Stage{{Actions: []*Action{{Name: "assign", Func: func(c *Context) error {
		ids, _ := c.Inputs().Get("ids")
		if err := c.Internals().Set("count", len(ids.([]any))); err != nil {
			return err
		}
		return c.Outputs().Set("first_id", ids.([]any)[0])
	}}}}}})

	const n = 50
	var wg sync.WaitGroup
	results := make([]*outcome.Result, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := r.Run(context.Background(), map[string]any{"ids": []any{fmt.Sprintf("id-%d", i)}})
			if err == nil {
				results[i] = res
			}
		}(i)
	}
	wg.Wait()

	for i, res := range results {
		require.NotNil(t, res)
		v, _ := res.Output("first_id")
		assert.Equal(t, fmt.Sprintf("id-%d", i), v)
	}
}

func TestValidateRunsNoActions(t *testing.T) {
	ran := false
	r := newRunner(&Pipeline{Stages: []*Stage{{Actions: []*Action{{Name: "a", Func: func(*Context) error { ran = true; return nil }}}}}})

	assert.NoError(t, r.Validate(args()))
	assert.True(t, outcome.IsInputError(r.Validate(map[string]any{"ids": "x"})))
	assert.False(t, ran)
}

func TestDescribe(t *testing.T) {
	p := (&Pipeline{Stages: []*Stage{
		{Position: 2, Wrapper: func(c *Context, run func() error) error { return run() }, Rollback: func(*Context, error) error { return nil }},
		{Position: 1, Condition: Static(true), Actions: []*Action{{Name: "a", Position: 1, Condition: Static(false)}}},
	}}).Sorted()

	assert.Equal(t, []ir.StageInfo{
		{Position: 1, Conditional: true, Actions: []ir.ActionInfo{{Name: "a", Position: 1, Conditional: true}}},
		{Position: 2, Wrapped: true, Rollback: true, Actions: []ir.ActionInfo{}},
	}, p.Describe())
}
