package validation

import (
	"reflect"

	"github.com/roach88/servactory/internal/ir"
)

// checkSchema validates a hash value key by key and returns a copy with the
// defaults of missing optional keys filled in.
func (v *Validator) checkSchema(attr *ir.Attribute, r *ir.Schema, value any) (any, error) {
	m, ok := toStringMap(value)
	if !ok {
		return nil, v.fail(attr, nil, value, "schema", "wrong_type", nil, ir.TypeName(value))
	}
	filled, err := v.checkFields(attr, r, m, r.Fields, "")
	if err != nil {
		return nil, err
	}
	// Typed maps keep their Go type; defaults only fill generic hashes.
	if _, generic := value.(map[string]any); !generic {
		return value, nil
	}
	return filled, nil
}

func (v *Validator) checkFields(attr *ir.Attribute, r *ir.Schema, m map[string]any, fields []ir.SchemaField, prefix string) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, val := range m {
		out[k] = val
	}

	for _, f := range fields {
		path := prefix + f.Name
		val, present := out[f.Name]
		if !present || ir.IsNil(val) {
			switch {
			case f.Required:
				return nil, v.fail(attr, r, m, "schema", "required", map[string]any{"key": path}, path)
			case f.HasDefault:
				out[f.Name] = f.Default
			}
			continue
		}

		if len(f.Types) > 0 && !ir.MatchesAny(f.Types, val) {
			meta := map[string]any{"key": path, "expected": ir.TypeNames(f.Types), "given": ir.TypeName(val)}
			return nil, v.fail(attr, r, val, "schema", "wrong_key_type", meta, path, ir.TypeNames(f.Types), ir.TypeName(val))
		}

		if len(f.Fields) > 0 {
			nested, ok := toStringMap(val)
			if !ok {
				meta := map[string]any{"key": path, "expected": ir.Hash.Name, "given": ir.TypeName(val)}
				return nil, v.fail(attr, r, val, "schema", "wrong_key_type", meta, path, ir.Hash.Name, ir.TypeName(val))
			}
			filled, err := v.checkFields(attr, r, nested, f.Fields, path+".")
			if err != nil {
				return nil, err
			}
			out[f.Name] = filled
		}
	}
	return out, nil
}

// toStringMap copies any string-keyed map into a map[string]any.
func toStringMap(value any) (map[string]any, bool) {
	if m, ok := value.(map[string]any); ok {
		return m, true
	}
	if ir.IsNil(value) {
		return nil, false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}
