package option

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/roach88/servactory/internal/ir"
)

// Built-in option keywords.
const (
	OptConsistsOf = "consists_of"
	OptSchema     = "schema"
	OptFormat     = "format"
	OptMultipleOf = "multiple_of"
	OptMin        = "min"
	OptMax        = "max"
	OptTarget     = "target"
	OptEqual      = "eq"
	OptJSONSchema = "json_schema"
)

func builtinHelpers() []Helper {
	return []Helper{
		{Name: OptConsistsOf, Kind: ir.KindConsistsOf, Build: buildConsistsOf},
		{Name: OptSchema, Kind: ir.KindSchema, Build: buildSchema},
		{Name: OptFormat, Kind: ir.KindFormat, Build: buildFormat},
		{Name: OptMultipleOf, Kind: ir.KindMultipleOf, Build: buildMultipleOf},
		{Name: OptMin, Kind: ir.KindInclusion, Build: buildBound(ir.AtLeast)},
		{Name: OptMax, Kind: ir.KindInclusion, Build: buildBound(ir.AtMost)},
		{Name: OptTarget, Kind: ir.KindTarget, Build: buildTarget},
		{Name: OptEqual, Kind: ir.KindEqual, Build: buildEqual},
		{Name: OptJSONSchema, Kind: ir.KindMust, Build: buildJSONSchema},
	}
}

func base(keyword string, v ir.OptionValue) ir.RuleBase {
	return ir.RuleBase{Keyword: keyword, Message: v.Message}
}

func buildConsistsOf(keyword string, v ir.OptionValue, r *Registry) (ir.Rule, error) {
	if b, ok := v.Value.(bool); ok {
		if b {
			return nil, fmt.Errorf("%s: expected type tags or false, got true", keyword)
		}
		return &ir.ConsistsOf{RuleBase: base(keyword, v), Disabled: true}, nil
	}
	types, err := r.ResolveTypes(v.Value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", keyword, err)
	}
	if len(types) == 0 {
		return nil, fmt.Errorf("%s: at least one element type is required", keyword)
	}
	return &ir.ConsistsOf{RuleBase: base(keyword, v), Types: types}, nil
}

func buildSchema(keyword string, v ir.OptionValue, _ *Registry) (ir.Rule, error) {
	switch fields := v.Value.(type) {
	case []ir.SchemaField:
		return &ir.Schema{RuleBase: base(keyword, v), Fields: fields}, nil
	case ir.SchemaField:
		return &ir.Schema{RuleBase: base(keyword, v), Fields: []ir.SchemaField{fields}}, nil
	}
	return nil, fmt.Errorf("%s: expected schema fields, got %T", keyword, v.Value)
}

func buildFormat(keyword string, v ir.OptionValue, _ *Registry) (ir.Rule, error) {
	name, ok := v.Value.(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("%s: expected a format name, got %T", keyword, v.Value)
	}
	// Unknown names are reported when the rule runs.
	return &ir.Format{RuleBase: base(keyword, v), Name: name}, nil
}

func buildMultipleOf(keyword string, v ir.OptionValue, _ *Registry) (ir.Rule, error) {
	if !ir.IsNumeric(v.Value) {
		return nil, fmt.Errorf("%s: expected a number, got %T", keyword, v.Value)
	}
	return &ir.MultipleOf{RuleBase: base(keyword, v), Of: v.Value}, nil
}

func buildBound(domain func(any) ir.Domain) BuildFunc {
	return func(keyword string, v ir.OptionValue, _ *Registry) (ir.Rule, error) {
		if !ordered(v.Value) {
			return nil, fmt.Errorf("%s: expected a number, string, time or duration, got %T", keyword, v.Value)
		}
		return &ir.Inclusion{RuleBase: base(keyword, v), In: domain(v.Value)}, nil
	}
}

func ordered(v any) bool {
	switch v.(type) {
	case string, time.Time, time.Duration:
		return true
	}
	return ir.IsNumeric(v)
}

func buildTarget(keyword string, v ir.OptionValue, _ *Registry) (ir.Rule, error) {
	if v.Value == nil {
		return nil, fmt.Errorf("%s: expected allowed values", keyword)
	}
	rv := reflect.ValueOf(v.Value)
	if rv.Kind() == reflect.Slice {
		allowed := make([]any, rv.Len())
		for i := range allowed {
			allowed[i] = rv.Index(i).Interface()
		}
		return &ir.Target{RuleBase: base(keyword, v), Allowed: allowed}, nil
	}
	return &ir.Target{RuleBase: base(keyword, v), Allowed: []any{v.Value}}, nil
}

func buildEqual(keyword string, v ir.OptionValue, _ *Registry) (ir.Rule, error) {
	return &ir.Equal{RuleBase: base(keyword, v), Expected: v.Value}, nil
}

// buildJSONSchema compiles a JSON Schema document into a must predicate.
func buildJSONSchema(keyword string, v ir.OptionValue, _ *Registry) (ir.Rule, error) {
	var doc string
	switch s := v.Value.(type) {
	case string:
		doc = s
	case []byte:
		doc = string(s)
	case map[string]any:
		data, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", keyword, err)
		}
		doc = string(data)
	default:
		return nil, fmt.Errorf("%s: expected a JSON Schema document, got %T", keyword, v.Value)
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	c.AssertFormat = true
	url := fmt.Sprintf("servactory://%s.schema.json", keyword)
	if err := c.AddResource(url, strings.NewReader(doc)); err != nil {
		return nil, fmt.Errorf("%s: schema load failed: %w", keyword, err)
	}
	schema, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("%s: schema compile failed: %w", keyword, err)
	}

	return &ir.Must{
		RuleBase: base(keyword, v),
		Code:     "match_" + keyword,
		Is: func(value any, _ *ir.Attribute) (bool, string) {
			raw, err := toJSONValue(value)
			if err != nil {
				return false, err.Error()
			}
			if err := schema.Validate(raw); err != nil {
				return false, leafReason(err)
			}
			return true, ""
		},
	}, nil
}

// toJSONValue converts a Go value to the decoded-JSON shape jsonschema expects.
func toJSONValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// leafReason returns the most specific cause of a schema validation error.
func leafReason(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	if ve.InstanceLocation == "" {
		return ve.Message
	}
	return ve.InstanceLocation + ": " + ve.Message
}

// ResolveTypes converts type tags or registered type names into tags.
// Accepts a TypeTag, a []TypeTag, a name, a []string or a []any of those.
func (r *Registry) ResolveTypes(v any) ([]ir.TypeTag, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case ir.TypeTag:
		return []ir.TypeTag{t}, nil
	case []ir.TypeTag:
		return t, nil
	case string:
		tag, ok := r.Type(t)
		if !ok {
			return nil, fmt.Errorf("unknown type %q", t)
		}
		return []ir.TypeTag{tag}, nil
	case []string:
		out := make([]ir.TypeTag, 0, len(t))
		for _, name := range t {
			tags, err := r.ResolveTypes(name)
			if err != nil {
				return nil, err
			}
			out = append(out, tags...)
		}
		return out, nil
	case []any:
		out := make([]ir.TypeTag, 0, len(t))
		for _, elem := range t {
			tags, err := r.ResolveTypes(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, tags...)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected type tags, got %T", v)
}
