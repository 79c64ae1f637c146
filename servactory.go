// Package servactory defines service objects: units of business logic with
// declared, validated inputs, internals and outputs, run through an ordered
// pipeline of actions grouped in stages.
//
// A service is declared once through a Builder and is immutable afterwards:
//
//	fw, _ := servactory.New()
//	svc, err := fw.Define("Orders").
//		Input("ids", servactory.Type(servactory.Array), servactory.ConsistsOf(servactory.String)).
//		Output("first_id", servactory.Type(servactory.String)).
//		Make("assign_first_id", func(c *servactory.Context) error {
//			ids, err := servactory.Get[[]any](c.Inputs(), "ids")
//			if err != nil {
//				return err
//			}
//			return c.Outputs().Set("first_id", ids[0])
//		}).
//		Build()
//
// Call returns a Result for expected failures and an error only for
// unexpected ones; CallStrict returns every failure as an error.
package servactory

import (
	"github.com/roach88/servactory/internal/engine"
	"github.com/roach88/servactory/internal/ir"
	"github.com/roach88/servactory/internal/option"
	"github.com/roach88/servactory/internal/outcome"
	"github.com/roach88/servactory/internal/workspace"
)

type (
	// Context is the per-invocation state passed to actions.
	Context = engine.Context
	// ActionFunc is one step of a service.
	ActionFunc = engine.ActionFunc
	// Wrapper wraps the actions of a stage.
	Wrapper = engine.Wrapper
	// Rollback handles the error of a wrapped stage.
	Rollback = engine.Rollback
	// Extension wraps the whole pipeline of an invocation.
	Extension = engine.Extension
	// Observer wraps input population and the pipeline of an invocation.
	Observer = engine.Observer
	// RescueHandler converts an action error into a failure.
	RescueHandler = engine.RescueHandler
	// Condition gates a stage or an action.
	Condition = engine.Condition
	// FailOption customizes Context.Fail.
	FailOption = engine.FailOption
	// IDGenerator produces invocation IDs.
	IDGenerator = engine.IDGenerator

	// View is a namespace-scoped accessor of the workspace.
	View = workspace.View

	// Result is the outcome of an invocation.
	Result = outcome.Result
	// Failure is a business failure.
	Failure = outcome.Failure
	// Event is one entry of an invocation trace.
	Event = outcome.Event
	// InputError is an input validation error.
	InputError = outcome.InputError
	// InternalError is an internal attribute validation error.
	InternalError = outcome.InternalError
	// OutputError is an output validation error.
	OutputError = outcome.OutputError
	// DefinitionError is a service declaration error.
	DefinitionError = outcome.DefinitionError

	// Info describes a service.
	Info = ir.Info
	// TypeTag is an accepted type of an attribute.
	TypeTag = ir.TypeTag
	// Domain is the value set of an inclusion rule.
	Domain = ir.Domain
	// Predicate is a must rule.
	Predicate = ir.Predicate
	// Message is a literal or computed error message.
	Message = ir.Message
	// MessageContext is passed to computed messages.
	MessageContext = ir.MessageContext
	// SchemaField declares one key of a schema rule.
	SchemaField = ir.SchemaField
	// OptionValue is the value of a dynamic option.
	OptionValue = ir.OptionValue
	// Attribute is a built attribute declaration.
	Attribute = ir.Attribute

	// Registry holds the dynamic option helpers, formats and named types.
	Registry = option.Registry
	// Helper is a dynamic option helper.
	Helper = option.Helper
)

// Built-in type tags.
var (
	String   = ir.String
	Integer  = ir.Integer
	Float    = ir.Float
	Rational = ir.Rational
	Decimal  = ir.Decimal
	Numeric  = ir.Numeric
	Boolean  = ir.Boolean
	Array    = ir.Array
	Hash     = ir.Hash
	Time     = ir.Time
	Duration = ir.Duration
	Nil      = ir.Nil
	Any      = ir.Any
)

// Failure types.
const (
	TypeBase = outcome.TypeBase
	TypeAll  = outcome.TypeAll
)

// TypeOf returns a type tag matching values assignable to T.
func TypeOf[T any]() TypeTag { return ir.TypeOf[T]() }

// NewTypeTag returns a named type tag with a custom matcher.
func NewTypeTag(name string, match func(v any) bool) TypeTag { return ir.NewTypeTag(name, match) }

// NewRegistry returns an empty option registry.
func NewRegistry() *Registry { return option.NewRegistry() }

// DefaultRegistry returns a registry with the built-in helpers and formats.
func DefaultRegistry() *Registry { return option.Default() }

// Domains.
var (
	In               = ir.In
	Between          = ir.Between
	BetweenExclusive = ir.BetweenExclusive
	AtLeast          = ir.AtLeast
	AtMost           = ir.AtMost
)

// Messages and option values.
var (
	Text        = ir.Text
	MessageFunc = ir.MessageFunc
	Literal     = ir.Literal
	WithMessage = ir.WithMessage
	Check       = ir.Check
	Key         = ir.Key
)

// Conditions.
var (
	When   = engine.When
	Static = engine.Static
)

// Fail options.
var (
	FailType = engine.FailType
	FailMeta = engine.FailMeta
)

// Error predicates.
var (
	IsInputError        = outcome.IsInputError
	IsInternalError     = outcome.IsInternalError
	IsOutputError       = outcome.IsOutputError
	IsFailure           = outcome.IsFailure
	AsFailure           = outcome.AsFailure
	IsDefinitionError   = outcome.IsDefinitionError
	IsExpected          = outcome.IsExpected
	NewFixedIDGenerator = engine.NewFixedGenerator
)
