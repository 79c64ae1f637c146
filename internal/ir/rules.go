package ir

import "strings"

// RuleKind is the built-in rule a declared option expands to.
type RuleKind string

const (
	KindInclusion  RuleKind = "inclusion"
	KindMust       RuleKind = "must"
	KindMultipleOf RuleKind = "multiple_of"
	KindFormat     RuleKind = "format"
	KindConsistsOf RuleKind = "consists_of"
	KindSchema     RuleKind = "schema"
	KindTarget     RuleKind = "target"
	KindEqual      RuleKind = "eq"
)

// Rule is a sealed interface implemented by the built-in rule kinds only.
// The validation engine dispatches on the concrete type.
type Rule interface {
	Kind() RuleKind
	Option() string
	Msg() Message
	Describe() map[string]any
	rule() // Sealed
}

// RuleBase holds what every rule carries: the option keyword it was declared
// with and an optional custom message.
type RuleBase struct {
	Keyword string
	Message Message
}

// Option returns the keyword the rule was declared with.
func (b RuleBase) Option() string { return b.Keyword }

// Msg returns the custom message, zero if none.
func (b RuleBase) Msg() Message { return b.Message }

func (RuleBase) rule() {}

// Inclusion restricts the value to a domain. A nil domain is a
// misconfiguration reported at validation time.
type Inclusion struct {
	RuleBase
	In Domain
}

func (*Inclusion) Kind() RuleKind { return KindInclusion }

func (r *Inclusion) Describe() map[string]any {
	d := map[string]any{"in": nil}
	if r.In != nil {
		d["in"] = r.In.String()
	}
	return d
}

// Predicate is a must check. reason is an optional machine-readable code
// explaining a false result.
type Predicate func(value any, attr *Attribute) (ok bool, reason string)

// Check adapts a plain boolean function to a Predicate.
func Check(fn func(value any) bool) Predicate {
	return func(value any, _ *Attribute) (bool, string) {
		return fn(value), ""
	}
}

// Must is one named custom predicate.
type Must struct {
	RuleBase
	Code string
	Is   Predicate
}

func (*Must) Kind() RuleKind { return KindMust }

func (r *Must) Describe() map[string]any {
	return map[string]any{"code": r.Code}
}

// MultipleOf requires numeric values divisible by Of.
type MultipleOf struct {
	RuleBase
	Of any
}

func (*MultipleOf) Kind() RuleKind { return KindMultipleOf }

func (r *MultipleOf) Describe() map[string]any {
	return map[string]any{"is": FormatValue(r.Of)}
}

// Format requires a string matching a named format.
type Format struct {
	RuleBase
	Name string
}

func (*Format) Kind() RuleKind { return KindFormat }

func (r *Format) Describe() map[string]any {
	return map[string]any{"is": r.Name}
}

// ConsistsOf requires every element of a collection to match one of Types.
// Disabled records an explicit opt-out.
type ConsistsOf struct {
	RuleBase
	Types    []TypeTag
	Disabled bool
}

func (*ConsistsOf) Kind() RuleKind { return KindConsistsOf }

func (r *ConsistsOf) Describe() map[string]any {
	if r.Disabled {
		return map[string]any{"type": false}
	}
	return map[string]any{"type": TypeNames(r.Types)}
}

// Schema validates the keys of a hash value.
type Schema struct {
	RuleBase
	Fields []SchemaField
}

func (*Schema) Kind() RuleKind { return KindSchema }

func (r *Schema) Describe() map[string]any {
	return map[string]any{"is": describeFields(r.Fields)}
}

// Target requires the value itself to be one of an allow-list, typically
// reflect.Type values or sentinel identities.
type Target struct {
	RuleBase
	Allowed []any
}

func (*Target) Kind() RuleKind { return KindTarget }

func (r *Target) Describe() map[string]any {
	return map[string]any{"in": Set(r.Allowed).String()}
}

// Equal requires the value to equal Expected.
type Equal struct {
	RuleBase
	Expected any
}

func (*Equal) Kind() RuleKind { return KindEqual }

func (r *Equal) Describe() map[string]any {
	return map[string]any{"is": FormatValue(r.Expected)}
}

// SchemaField is one declared key of a schema rule.
type SchemaField struct {
	Name       string
	Types      []TypeTag
	Required   bool
	Default    any
	HasDefault bool
	Fields     []SchemaField
}

// Key declares a required schema key.
func Key(name string, types ...TypeTag) SchemaField {
	return SchemaField{Name: name, Types: types, Required: true}
}

// Optional marks the key as not required.
func (f SchemaField) Optional() SchemaField {
	f.Required = false
	return f
}

// WithDefault marks the key optional with a default filled in when missing.
func (f SchemaField) WithDefault(v any) SchemaField {
	f.Required = false
	f.Default = v
	f.HasDefault = true
	return f
}

// Nested declares the keys of a hash-typed key.
func (f SchemaField) Nested(fields ...SchemaField) SchemaField {
	f.Fields = fields
	return f
}

func describeFields(fields []SchemaField) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		d := map[string]any{
			"type":     TypeNames(f.Types),
			"required": f.Required,
		}
		if f.HasDefault {
			d["default"] = FormatValue(f.Default)
		}
		if len(f.Fields) > 0 {
			d["schema"] = describeFields(f.Fields)
		}
		out[f.Name] = d
	}
	return out
}

// Humanize turns a rule code like "must_be_6_characters" into
// "must be 6 characters".
func Humanize(code string) string {
	return strings.TrimSpace(strings.ReplaceAll(code, "_", " "))
}
