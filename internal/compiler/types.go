package compiler

import "cuelang.org/go/cue/token"

// ServiceDef is a service declared in CUE. It names the Go code it needs
// (actions, wrappers, predicates) and is bound to that code separately.
type ServiceDef struct {
	Name string `json:"name"`

	// Extends names a service this one inherits from.
	Extends string `json:"extends,omitempty"`

	Inputs    []AttributeDef `json:"inputs,omitempty"`
	Internals []AttributeDef `json:"internals,omitempty"`
	Outputs   []AttributeDef `json:"outputs,omitempty"`

	Stages []StageDef `json:"stages,omitempty"`

	// Entry names the action run when there are no stages.
	Entry string `json:"entry,omitempty"`

	Pos token.Pos `json:"-"`
}

// AttributeDef declares one attribute.
type AttributeDef struct {
	Name  string   `json:"name"`
	Types []string `json:"types,omitempty"`

	// Required is nil when not given.
	Required   *bool `json:"required,omitempty"`
	Default    any   `json:"default,omitempty"`
	HasDefault bool  `json:"has_default,omitempty"`

	// Inclusion lists the allowed values.
	Inclusion []any `json:"inclusion,omitempty"`

	// Must names predicates bound at load time.
	Must []string `json:"must,omitempty"`

	// Schema declares the keys of a hash value.
	Schema []SchemaFieldDef `json:"schema,omitempty"`

	// Options are the remaining keyword options in source order.
	Options []OptionDef `json:"options,omitempty"`

	Pos token.Pos `json:"-"`
}

// OptionDef is a keyword option, e.g. `format: "email"` or
// `min: {is: 1, message: "too small"}`.
type OptionDef struct {
	Keyword string `json:"keyword"`
	Value   any    `json:"value"`
	Message string `json:"message,omitempty"`
}

// SchemaFieldDef declares one key of a schema option.
type SchemaFieldDef struct {
	Name       string           `json:"name"`
	Types      []string         `json:"types,omitempty"`
	Required   bool             `json:"required"`
	Default    any              `json:"default,omitempty"`
	HasDefault bool             `json:"has_default,omitempty"`
	Fields     []SchemaFieldDef `json:"fields,omitempty"`
}

// StageDef groups actions.
type StageDef struct {
	Position   int         `json:"position,omitempty"`
	Actions    []ActionDef `json:"actions"`
	WrapIn     string      `json:"wrap_in,omitempty"`
	Rollback   string      `json:"rollback,omitempty"`
	OnlyIf     string      `json:"only_if,omitempty"`
	OnlyUnless string      `json:"only_unless,omitempty"`

	Pos token.Pos `json:"-"`
}

// ActionDef names one action of a stage.
type ActionDef struct {
	Name     string `json:"name"`
	Position int    `json:"position,omitempty"`
	If       string `json:"if,omitempty"`
	Unless   string `json:"unless,omitempty"`
}
