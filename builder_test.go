package servactory_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/servactory"
	"github.com/roach88/servactory/internal/outcome"
)

func noop(*servactory.Context) error { return nil }

// record returns an action appending name to *log.
func record(log *[]string, name string) servactory.ActionFunc {
	return func(*servactory.Context) error {
		*log = append(*log, name)
		return nil
	}
}

// =============================================================================
// Definition errors
// =============================================================================

func TestBuildDefinitionErrors(t *testing.T) {
	tests := []struct {
		name    string
		declare func(b *servactory.Builder) *servactory.Builder
		code    outcome.DefinitionCode
		message string
	}{
		{
			name:    "reserved input",
			declare: func(b *servactory.Builder) *servactory.Builder { return b.Input("inputs") },
			code:    outcome.ErrCodeReserved,
			message: "[Svc] Input name `inputs` is reserved",
		},
		{
			name:    "reserved output error",
			declare: func(b *servactory.Builder) *servactory.Builder { return b.Output("error") },
			code:    outcome.ErrCodeReserved,
		},
		{
			name: "duplicate input",
			declare: func(b *servactory.Builder) *servactory.Builder {
				return b.Input("id").Input("id")
			},
			code:    outcome.ErrCodeDuplicate,
			message: "[Svc] Input `id` is already declared",
		},
		{
			name: "output after internal of the same name",
			declare: func(b *servactory.Builder) *servactory.Builder {
				return b.Internal("total").Output("total")
			},
			code:    outcome.ErrCodeConflict,
			message: "[Svc] Output `total` conflicts with the internal attribute of the same name",
		},
		{
			name: "internal after output of the same name",
			declare: func(b *servactory.Builder) *servactory.Builder {
				return b.Output("total").Internal("total")
			},
			code:    outcome.ErrCodeConflict,
			message: "[Svc] Internal `total` conflicts with the output attribute of the same name",
		},
		{
			name: "required with default",
			declare: func(b *servactory.Builder) *servactory.Builder {
				return b.Input("page", servactory.Required(true), servactory.Default(1))
			},
			code:    outcome.ErrCodeRequiredDefault,
			message: "[Svc] Input `page` cannot be required and have a default value at the same time",
		},
		{
			name: "aliasing",
			declare: func(b *servactory.Builder) *servactory.Builder {
				return b.Input("user_id", servactory.As("id"))
			},
			code: outcome.ErrCodeUnsupportedOption,
		},
		{
			name: "default on output",
			declare: func(b *servactory.Builder) *servactory.Builder {
				return b.Output("total", servactory.Default(0))
			},
			code: outcome.ErrCodeUnsupportedOption,
		},
		{
			name: "unknown dynamic option",
			declare: func(b *servactory.Builder) *servactory.Builder {
				return b.Input("id", servactory.Opt("telepathy", true))
			},
			code:    outcome.ErrCodeUnknownOption,
			message: "[Svc] Unknown option `telepathy` for input `id`",
		},
		{
			name: "invalid dynamic option value",
			declare: func(b *servactory.Builder) *servactory.Builder {
				return b.Input("total", servactory.MultipleOf("five"))
			},
			code: outcome.ErrCodeInvalidOption,
		},
		{
			name:    "no actions",
			declare: func(b *servactory.Builder) *servactory.Builder { return b.Input("id") },
			code:    outcome.ErrCodeInvalidPipeline,
		},
		{
			name: "empty stage",
			declare: func(b *servactory.Builder) *servactory.Builder {
				return b.Stage(func(*servactory.StageBuilder) {})
			},
			code: outcome.ErrCodeInvalidPipeline,
		},
		{
			name: "rollback without wrapper",
			declare: func(b *servactory.Builder) *servactory.Builder {
				return b.Stage(func(s *servactory.StageBuilder) {
					s.Rollback(func(_ *servactory.Context, err error) error { return err }).Make("a", noop)
				})
			},
			code: outcome.ErrCodeInvalidPipeline,
		},
		{
			name: "unknown shortcut",
			declare: func(b *servactory.Builder) *servactory.Builder {
				return b.Shortcut("assign", "total", noop)
			},
			code:    outcome.ErrCodeInvalidPipeline,
			message: "[Svc] unknown action shortcut `assign`",
		},
		{
			name: "nil rescue handler",
			declare: func(b *servactory.Builder) *servactory.Builder {
				return b.Make("a", noop).RescueFrom(nil)
			},
			code: outcome.ErrCodeInvalidPipeline,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.declare(newFramework(t).Define("Svc")).Build()
			require.Error(t, err)
			assert.True(t, servactory.IsDefinitionError(err))
			assert.False(t, servactory.IsExpected(err))
			assert.True(t, outcome.IsDefinitionCode(err, tt.code), "got %v", err)
			if tt.message != "" {
				var de *servactory.DefinitionError
				require.ErrorAs(t, err, &de)
				assert.Equal(t, tt.message, de.Message)
			}
		})
	}
}

func TestInputDefinitionErrorIsInputError(t *testing.T) {
	_, err := newFramework(t).Define("Svc").Input("inputs").Make("a", noop).Build()
	require.Error(t, err)
	assert.True(t, servactory.IsInputError(err))
}

func TestMustBuildPanicsOnDefinitionError(t *testing.T) {
	assert.Panics(t, func() {
		newFramework(t).Define("Svc").Input("id").Input("id").Make("a", noop).MustBuild()
	})
}

// =============================================================================
// Pipeline order and conditions
// =============================================================================

func TestStagesRunInPositionOrder(t *testing.T) {
	var log []string
	svc := newFramework(t).Define("Ordered").
		Make("third", record(&log, "third"), servactory.Position(30)).
		Stage(func(s *servactory.StageBuilder) {
			s.Position(10).
				Make("first_b", record(&log, "first_b"), servactory.Position(2)).
				Make("first_a", record(&log, "first_a"), servactory.Position(1))
		}).
		Make("second", record(&log, "second"), servactory.Position(20)).
		MustBuild()

	_, err := svc.Call(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"first_a", "first_b", "second", "third"}, log)
}

func TestConditionsSkipWithoutSideEffects(t *testing.T) {
	var log []string
	flagged := servactory.When(func(c *servactory.Context) bool {
		v, _ := servactory.Get[bool](c.Inputs(), "flag")
		return v
	})
	svc := newFramework(t).Define("Gated").
		Input("flag", servactory.Type(servactory.Boolean)).
		Make("if_flag", record(&log, "if_flag"), servactory.If(flagged)).
		Make("unless_flag", record(&log, "unless_flag"), servactory.Unless(flagged)).
		Stage(func(s *servactory.StageBuilder) {
			s.OnlyIf(flagged).Make("stage_if", record(&log, "stage_if"))
		}).
		Stage(func(s *servactory.StageBuilder) {
			s.OnlyUnless(flagged).Make("stage_unless", record(&log, "stage_unless"))
		}).
		MustBuild()

	tests := []struct {
		flag bool
		want []string
	}{
		{flag: true, want: []string{"if_flag", "stage_if"}},
		{flag: false, want: []string{"unless_flag", "stage_unless"}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.flag), func(t *testing.T) {
			log = nil
			res, err := svc.Call(context.Background(), map[string]any{"flag": tt.flag})
			require.NoError(t, err)
			assert.True(t, res.IsSuccess())
			assert.Equal(t, tt.want, log)
		})
	}
}

func TestStaticCondition(t *testing.T) {
	var log []string
	svc := newFramework(t).Define("Static").
		Make("never", record(&log, "never"), servactory.If(servactory.Static(false))).
		Make("always", record(&log, "always"), servactory.Unless(servactory.Static(false))).
		MustBuild()

	_, err := svc.Call(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"always"}, log)
}

func TestSucceedStopsPipeline(t *testing.T) {
	var log []string
	svc := newFramework(t).Define("Early").
		Output("status", servactory.Type(servactory.String)).
		Stage(func(s *servactory.StageBuilder) {
			s.Make("finish", func(c *servactory.Context) error {
				log = append(log, "finish")
				c.Succeed()
				return c.Outputs().Set("status", "done")
			}).Make("same_stage", record(&log, "same_stage"))
		}).
		Make("later", record(&log, "later")).
		MustBuild()

	res, err := svc.Call(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, res.IsSuccess())
	assert.Equal(t, []string{"finish"}, log)

	var kinds []outcome.EventKind
	for _, e := range res.Trace() {
		kinds = append(kinds, e.Kind)
	}
	assert.Contains(t, kinds, outcome.EventSucceededEarly)
}

func TestEntryRunsWithoutActions(t *testing.T) {
	svc := newFramework(t).Define("Entry").
		Output("called", servactory.Type(servactory.Boolean)).
		Entry(func(c *servactory.Context) error { return c.Outputs().Set("called", true) }).
		MustBuild()

	res, err := svc.Call(context.Background(), nil)
	require.NoError(t, err)
	v, _ := res.Output("called")
	assert.Equal(t, true, v)

	var actions []string
	for _, e := range res.Trace() {
		if e.Kind == outcome.EventActionCompleted {
			actions = append(actions, e.Action)
		}
	}
	assert.Equal(t, []string{"call"}, actions)
}

// =============================================================================
// Wrappers, rollbacks and rescue
// =============================================================================

func TestWrapperRollback(t *testing.T) {
	var log []string
	svc := newFramework(t).Define("Transfer").
		Stage(func(s *servactory.StageBuilder) {
			s.WrapIn(func(_ *servactory.Context, run func() error) error {
				log = append(log, "begin")
				return run()
			}).
				Rollback(func(c *servactory.Context, cause error) error {
					log = append(log, "rollback")
					return c.Fail("transfer rolled back: "+cause.Error(), servactory.FailType("rollback"))
				}).
				Make("debit", record(&log, "debit")).
				Make("credit", func(*servactory.Context) error { return errors.New("ledger offline") }).
				Make("notify", record(&log, "notify"))
		}).
		MustBuild()

	res, err := svc.Call(context.Background(), nil)
	require.NoError(t, err)
	f := failureOf(t, res)
	assert.Equal(t, "rollback", f.Type)
	assert.Equal(t, "transfer rolled back: ledger offline", f.Message)
	assert.Equal(t, []string{"begin", "debit", "rollback"}, log)
}

func TestWrapperWithoutRollbackBecomesBaseFailure(t *testing.T) {
	svc := newFramework(t).Define("Transfer").
		Stage(func(s *servactory.StageBuilder) {
			s.WrapIn(func(_ *servactory.Context, run func() error) error { return run() }).
				Make("credit", func(*servactory.Context) error { return errors.New("ledger offline") })
		}).
		MustBuild()

	res, err := svc.Call(context.Background(), nil)
	require.NoError(t, err)
	f := failureOf(t, res)
	assert.True(t, f.IsBase())
	assert.Equal(t, "ledger offline", f.Message)
	assert.Equal(t, "ledger offline", f.Meta["original_exception"])
}

type gatewayError struct{ code int }

func (e *gatewayError) Error() string { return fmt.Sprintf("gateway returned %d", e.code) }

type timeoutError struct{}

func (timeoutError) Error() string { return "timed out" }

func TestRescueNewestHandlerFirst(t *testing.T) {
	build := func(fail error) *servactory.Service {
		return newFramework(t).Define("Charge").
			Make("charge", func(*servactory.Context) error { return fail }).
			RescueFrom(servactory.RescueAs(func(_ *servactory.Context, err *gatewayError) *servactory.Failure {
				return servactory.NewFailure("gateway", err.Error(), map[string]any{"code": err.code})
			})).
			RescueFrom(servactory.RescueAs(func(_ *servactory.Context, err timeoutError) *servactory.Failure {
				return servactory.NewFailure("timeout", err.Error(), nil)
			})).
			RescueFrom(func(_ *servactory.Context, err error) (*servactory.Failure, bool) {
				var ge *gatewayError
				if errors.As(err, &ge) && ge.code == 503 {
					return servactory.NewFailure("unavailable", "try again later", nil), true
				}
				return nil, false
			}).
			MustBuild()
	}

	tests := []struct {
		name     string
		err      error
		wantType string
	}{
		{name: "newest handler wins", err: &gatewayError{code: 503}, wantType: "unavailable"},
		{name: "falls through to older", err: &gatewayError{code: 502}, wantType: "gateway"},
		{name: "matches by type", err: timeoutError{}, wantType: "timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := build(tt.err).Call(context.Background(), nil)
			require.NoError(t, err)
			f := failureOf(t, res)
			assert.Equal(t, tt.wantType, f.Type)
			assert.ErrorIs(t, f, tt.err)
		})
	}

	t.Run("unmatched stays unexpected", func(t *testing.T) {
		boom := errors.New("boom")
		res, err := build(boom).Call(context.Background(), nil)
		assert.Nil(t, res)
		assert.ErrorIs(t, err, boom)
	})
}

func TestRescueSkipsExpectedErrors(t *testing.T) {
	rescued := false
	svc := newFramework(t).Define("Charge").
		Make("charge", func(c *servactory.Context) error { return c.Fail("declined") }).
		RescueFrom(func(*servactory.Context, error) (*servactory.Failure, bool) {
			rescued = true
			return servactory.NewFailure("rescued", "", nil), true
		}).
		MustBuild()

	res, err := svc.Call(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "declined", failureOf(t, res).Message)
	assert.False(t, rescued)
}

// =============================================================================
// Inheritance, shortcuts and aliases
// =============================================================================

func TestInheritExtendsParent(t *testing.T) {
	fw := newFramework(t)
	var log []string
	parent := fw.Define("Base").
		Input("currency", servactory.Type(servactory.String), servactory.Default("EUR")).
		Output("currency", servactory.Type(servactory.String)).
		Make("copy_currency", func(c *servactory.Context) error {
			log = append(log, "copy_currency")
			v, err := c.Inputs().Get("currency")
			if err != nil {
				return err
			}
			return c.Outputs().Set("currency", v)
		}).
		MustBuild()

	child := fw.Define("Child").
		Inherit(parent).
		Input("currency", servactory.Type(servactory.String), servactory.Default("USD")).
		Input("amount", servactory.Type(servactory.Integer)).
		Make("charge", record(&log, "charge")).
		MustBuild()

	res, err := child.Call(context.Background(), map[string]any{"amount": 5})
	require.NoError(t, err)
	v, _ := res.Output("currency")
	assert.Equal(t, "USD", v)
	assert.Equal(t, []string{"copy_currency", "charge"}, log)

	info := child.Info()
	require.Len(t, info.Inputs, 2)
	assert.Equal(t, "currency", info.Inputs[0].Name, "redeclared attribute keeps its position")

	res, err = parent.Call(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, res.IsSuccess(), "parent keeps its own declarations")
	v, _ = res.Output("currency")
	assert.Equal(t, "EUR", v)
	assert.Len(t, parent.Info().Inputs, 1)
}

func TestInheritMustComeFirst(t *testing.T) {
	parent := newFramework(t).Define("Base").Make("a", noop).MustBuild()
	_, err := newFramework(t).Define("Child").Input("id").Inherit(parent).Build()
	assert.True(t, outcome.IsDefinitionCode(err, outcome.ErrCodeInvalidPipeline))
}

func TestInheritedAttributeRedeclaredOnce(t *testing.T) {
	parent := newFramework(t).Define("Base").Input("id").Make("a", noop).MustBuild()
	_, err := newFramework(t).Define("Child").Inherit(parent).Input("id").Input("id").Build()
	assert.True(t, outcome.IsDefinitionCode(err, outcome.ErrCodeDuplicate))
}

func TestShortcutAndAlias(t *testing.T) {
	cfg := servactory.DefaultConfig()
	cfg.ActionShortcuts = []string{"assign"}
	cfg.ActionAliases = []string{"perform"}

	var log []string
	svc := newFramework(t, servactory.WithConfig(cfg)).Define("Short").
		Shortcut("assign", "total", record(&log, "total")).
		Alias("perform", "charge", record(&log, "charge")).
		Stage(func(s *servactory.StageBuilder) {
			s.Shortcut("assign", "tax", record(&log, "tax")).
				Alias("perform", "notify", record(&log, "notify"))
		}).
		MustBuild()

	_, err := svc.Call(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"total", "charge", "tax", "notify"}, log)

	var names []string
	for _, s := range svc.Info().Stages {
		for _, a := range s.Actions {
			names = append(names, a.Name)
		}
	}
	assert.Equal(t, []string{"assign_total", "charge", "assign_tax", "notify"}, names)

	_, err = newFramework(t, servactory.WithConfig(cfg)).Define("Short").Alias("run", "x", noop).Build()
	assert.True(t, outcome.IsDefinitionCode(err, outcome.ErrCodeInvalidPipeline))
}

// =============================================================================
// Info and extensions
// =============================================================================

func TestInfoIsStableAndSideEffectFree(t *testing.T) {
	calls := 0
	svc := newFramework(t).Define("Described").
		Input("ids", servactory.Type(servactory.Array), servactory.ConsistsOf(servactory.String)).
		Input("page", servactory.Type(servactory.Integer), servactory.Default(1), servactory.Min(1)).
		Output("first_id", servactory.Type(servactory.String)).
		Stage(func(s *servactory.StageBuilder) {
			s.WrapIn(func(_ *servactory.Context, run func() error) error { return run() }).
				Make("a", func(*servactory.Context) error { calls++; return nil }, servactory.If(servactory.Static(true)))
		}).
		MustBuild()

	first, second := svc.Info(), svc.Info()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Info changed between calls (-first +second):\n%s", diff)
	}
	assert.Zero(t, calls)

	assert.Equal(t, "Described", first.Service)
	require.Len(t, first.Inputs, 2)
	assert.True(t, first.Inputs[0].Required)
	assert.False(t, first.Inputs[1].Required)
	assert.True(t, first.Inputs[1].HasDefault)
	require.Len(t, first.Stages, 1)
	assert.True(t, first.Stages[0].Wrapped)
	assert.True(t, first.Stages[0].Actions[0].Conditional)

	attr, ok := svc.Attribute("input", "page")
	require.True(t, ok)
	assert.Equal(t, "page", attr.Name)
	_, ok = svc.Attribute("bogus", "page")
	assert.False(t, ok)
}

func TestExtensionsWrapOutsideIn(t *testing.T) {
	var log []string
	ext := func(name string) servactory.Extension {
		return func(_ *servactory.Context, next func() error) error {
			log = append(log, name+":before")
			err := next()
			log = append(log, name+":after")
			return err
		}
	}

	svc := newFramework(t, servactory.WithExtensions(ext("framework"))).Define("Wrapped").
		Use(ext("service")).
		Make("act", record(&log, "act")).
		MustBuild()

	_, err := svc.Call(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"framework:before", "service:before", "act", "service:after", "framework:after"}, log)
}

func TestExtensionNeverSeesInvalidInputs(t *testing.T) {
	entered := false
	svc := newFramework(t).Define("Guarded").
		Input("id", servactory.Type(servactory.String)).
		Use(func(_ *servactory.Context, next func() error) error {
			entered = true
			return next()
		}).
		Make("act", noop).
		MustBuild()

	res, err := svc.Call(context.Background(), map[string]any{"id": 1})
	require.NoError(t, err)
	assert.True(t, res.IsFailure())
	assert.False(t, entered)
}
