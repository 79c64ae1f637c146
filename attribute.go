package servactory

import (
	"github.com/roach88/servactory/internal/ir"
	"github.com/roach88/servactory/internal/option"
)

// AttrOption configures an attribute declaration.
type AttrOption func(*attrSpec)

type keyedOption struct {
	keyword string
	value   ir.OptionValue
}

type attrSpec struct {
	types     []TypeTag
	required  *bool
	def       *ir.DefaultValue
	inclusion *ir.Inclusion
	must      []*ir.Must
	options   []keyedOption
	as        string
}

func firstMessage(msg []Message) Message {
	if len(msg) == 0 {
		return Message{}
	}
	return msg[0]
}

// Type sets the accepted types. Without tags the type check is disabled.
func Type(tags ...TypeTag) AttrOption {
	return func(s *attrSpec) { s.types = append([]TypeTag(nil), tags...) }
}

// Required marks an input required (the default) or optional.
func Required(v bool) AttrOption {
	return func(s *attrSpec) { s.required = &v }
}

// Default sets the value of an optional input that was not supplied.
func Default(v any) AttrOption {
	return func(s *attrSpec) { s.def = ir.StaticDefault(v) }
}

// DefaultFunc sets a default computed on every invocation.
func DefaultFunc(fn func() any) AttrOption {
	return func(s *attrSpec) { s.def = ir.LazyDefault(fn) }
}

// Inclusion restricts the value to a domain. A nil domain is reported when
// the attribute is validated.
func Inclusion(d Domain, msg ...Message) AttrOption {
	return func(s *attrSpec) {
		s.inclusion = &ir.Inclusion{RuleBase: ir.RuleBase{Keyword: "inclusion", Message: firstMessage(msg)}, In: d}
	}
}

// Must adds a named predicate. Predicates run in declaration order.
func Must(code string, is Predicate, msg ...Message) AttrOption {
	return func(s *attrSpec) {
		s.must = append(s.must, &ir.Must{RuleBase: ir.RuleBase{Keyword: "must", Message: firstMessage(msg)}, Code: code, Is: is})
	}
}

// Opt applies a dynamic option by keyword. v may be an OptionValue built with
// WithMessage; any other value is taken literally.
func Opt(keyword string, v any) AttrOption {
	return func(s *attrSpec) {
		ov, ok := v.(ir.OptionValue)
		if !ok {
			ov = ir.Literal(v)
		}
		s.options = append(s.options, keyedOption{keyword: keyword, value: ov})
	}
}

func opt(keyword string, v any, msg []Message) AttrOption {
	return Opt(keyword, ir.WithMessage(v, firstMessage(msg)))
}

// ConsistsOf checks the element types of a collection. v is a TypeTag, a
// []TypeTag, a type name, or false to disable the check.
func ConsistsOf(v any, msg ...Message) AttrOption { return opt(option.OptConsistsOf, v, msg) }

// Schema declares the keys of a hash value.
func Schema(fields ...SchemaField) AttrOption { return Opt(option.OptSchema, fields) }

// Format checks a string against a registered format.
func Format(name string, msg ...Message) AttrOption { return opt(option.OptFormat, name, msg) }

// MultipleOf checks numeric divisibility.
func MultipleOf(v any, msg ...Message) AttrOption { return opt(option.OptMultipleOf, v, msg) }

// Min sets an inclusive lower bound.
func Min(v any, msg ...Message) AttrOption { return opt(option.OptMin, v, msg) }

// Max sets an inclusive upper bound.
func Max(v any, msg ...Message) AttrOption { return opt(option.OptMax, v, msg) }

// Target restricts the value to an allow-list.
func Target(allowed ...any) AttrOption { return Opt(option.OptTarget, allowed) }

// Eq requires the value to equal v.
func Eq(v any, msg ...Message) AttrOption { return opt(option.OptEqual, v, msg) }

// JSONSchema validates the value against a JSON Schema document.
func JSONSchema(doc string, msg ...Message) AttrOption { return opt(option.OptJSONSchema, doc, msg) }

// As requests input aliasing. Aliasing is not supported; Build rejects it.
func As(name string) AttrOption {
	return func(s *attrSpec) { s.as = name }
}
