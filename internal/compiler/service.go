package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
)

// Attribute keys handled by the compiler itself. Every other key of an
// attribute is a keyword option.
const (
	keyType      = "type"
	keyRequired  = "required"
	keyDefault   = "default"
	keyInclusion = "inclusion"
	keyMust      = "must"
	keySchema    = "schema"
)

// CompileService parses a CUE value into a ServiceDef.
//
// The CUE value should be the service struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`service: Orders: { ... }`)
//	def, err := CompileService(v.LookupPath(cue.ParsePath("service.Orders")))
func CompileService(v cue.Value) (*ServiceDef, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if !v.Exists() {
		return nil, &CompileError{Field: "service", Message: "service not found"}
	}

	def := &ServiceDef{Pos: v.Pos()}
	if labels := v.Path().Selectors(); len(labels) > 0 {
		def.Name = labels[len(labels)-1].String()
	}

	var err error
	if def.Extends, err = optionalString(v, "extends", "extends"); err != nil {
		return nil, err
	}
	if def.Entry, err = optionalString(v, "entry", "entry"); err != nil {
		return nil, err
	}
	if def.Inputs, err = parseAttributes(v, "input"); err != nil {
		return nil, err
	}
	if def.Internals, err = parseAttributes(v, "internal"); err != nil {
		return nil, err
	}
	if def.Outputs, err = parseAttributes(v, "output"); err != nil {
		return nil, err
	}
	if def.Stages, err = parseStages(v); err != nil {
		return nil, err
	}
	return def, nil
}

// parseAttributes extracts the attributes of one namespace in source order.
func parseAttributes(v cue.Value, ns string) ([]AttributeDef, error) {
	nsVal := v.LookupPath(cue.ParsePath(ns))
	if !nsVal.Exists() {
		return nil, nil
	}

	iter, err := nsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var attrs []AttributeDef
	for iter.Next() {
		attr, err := parseAttribute(iter.Label(), iter.Value(), ns)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

func parseAttribute(name string, v cue.Value, ns string) (AttributeDef, error) {
	attr := AttributeDef{Name: name, Pos: v.Pos()}
	field := func(key string) string { return fmt.Sprintf("%s.%s.%s", ns, name, key) }

	iter, err := v.Fields()
	if err != nil {
		return attr, &CompileError{Field: fmt.Sprintf("%s.%s", ns, name), Message: "attribute must be a struct", Pos: v.Pos()}
	}

	for iter.Next() {
		key, val := iter.Label(), iter.Value()
		switch key {
		case keyType:
			if attr.Types, err = stringList(val, field(key)); err != nil {
				return attr, err
			}
		case keyRequired:
			b, err := val.Bool()
			if err != nil {
				return attr, &CompileError{Field: field(key), Message: "must be a boolean", Pos: val.Pos()}
			}
			attr.Required = &b
		case keyDefault:
			if attr.Default, err = toGo(val); err != nil {
				return attr, err
			}
			attr.HasDefault = true
		case keyInclusion:
			in, err := toGo(val)
			if err != nil {
				return attr, err
			}
			list, ok := in.([]any)
			if !ok {
				return attr, &CompileError{Field: field(key), Message: "must be a list of values", Pos: val.Pos()}
			}
			attr.Inclusion = list
		case keyMust:
			if attr.Must, err = stringList(val, field(key)); err != nil {
				return attr, err
			}
		case keySchema:
			if attr.Schema, err = parseSchema(val, field(key)); err != nil {
				return attr, err
			}
		default:
			opt, err := parseOption(key, val)
			if err != nil {
				return attr, err
			}
			attr.Options = append(attr.Options, opt)
		}
	}
	return attr, nil
}

// parseOption reads a keyword option. A struct with an `is` field carries
// the value and an optional message; anything else is the value itself.
func parseOption(keyword string, v cue.Value) (OptionDef, error) {
	opt := OptionDef{Keyword: keyword}

	is := v.LookupPath(cue.ParsePath("is"))
	if v.Kind() == cue.StructKind && is.Exists() {
		val, err := toGo(is)
		if err != nil {
			return opt, err
		}
		opt.Value = val
		if opt.Message, err = optionalString(v, "message", keyword+".message"); err != nil {
			return opt, err
		}
		return opt, nil
	}

	val, err := toGo(v)
	if err != nil {
		return opt, err
	}
	opt.Value = val
	return opt, nil
}

func parseSchema(v cue.Value, field string) ([]SchemaFieldDef, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "schema must be a struct", Pos: v.Pos()}
	}

	var fields []SchemaFieldDef
	for iter.Next() {
		name, val := iter.Label(), iter.Value()
		path := field + "." + name
		sf := SchemaFieldDef{Name: name, Required: true}

		if t := val.LookupPath(cue.ParsePath(keyType)); t.Exists() {
			if sf.Types, err = stringList(t, path+".type"); err != nil {
				return nil, err
			}
		}
		if r := val.LookupPath(cue.ParsePath(keyRequired)); r.Exists() {
			if sf.Required, err = r.Bool(); err != nil {
				return nil, &CompileError{Field: path + ".required", Message: "must be a boolean", Pos: r.Pos()}
			}
		}
		if d := val.LookupPath(cue.ParsePath(keyDefault)); d.Exists() {
			if sf.Default, err = toGo(d); err != nil {
				return nil, err
			}
			sf.HasDefault = true
			sf.Required = false
		}
		if nested := val.LookupPath(cue.ParsePath(keySchema)); nested.Exists() {
			if sf.Fields, err = parseSchema(nested, path); err != nil {
				return nil, err
			}
		}
		fields = append(fields, sf)
	}
	return fields, nil
}

// parseStages extracts the stage list. A stage is a struct with an
// `actions` list; each action is a name or a struct with `name`.
func parseStages(v cue.Value) ([]StageDef, error) {
	stagesVal := v.LookupPath(cue.ParsePath("stages"))
	if !stagesVal.Exists() {
		return nil, nil
	}

	iter, err := stagesVal.List()
	if err != nil {
		return nil, &CompileError{Field: "stages", Message: "stages must be a list", Pos: stagesVal.Pos()}
	}

	var stages []StageDef
	for i := 0; iter.Next(); i++ {
		stage, err := parseStage(iter.Value(), fmt.Sprintf("stages[%d]", i))
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}
	return stages, nil
}

func parseStage(v cue.Value, field string) (StageDef, error) {
	stage := StageDef{Pos: v.Pos()}

	var err error
	if stage.Position, err = optionalInt(v, "position", field+".position"); err != nil {
		return stage, err
	}
	for path, dst := range map[string]*string{
		"wrap_in":     &stage.WrapIn,
		"rollback":    &stage.Rollback,
		"only_if":     &stage.OnlyIf,
		"only_unless": &stage.OnlyUnless,
	} {
		if *dst, err = optionalString(v, path, field+"."+path); err != nil {
			return stage, err
		}
	}

	actionsVal := v.LookupPath(cue.ParsePath("actions"))
	if !actionsVal.Exists() {
		return stage, &CompileError{Field: field + ".actions", Message: "stage actions are required", Pos: v.Pos()}
	}
	iter, err := actionsVal.List()
	if err != nil {
		return stage, &CompileError{Field: field + ".actions", Message: "actions must be a list", Pos: actionsVal.Pos()}
	}

	for i := 0; iter.Next(); i++ {
		action, err := parseAction(iter.Value(), fmt.Sprintf("%s.actions[%d]", field, i))
		if err != nil {
			return stage, err
		}
		stage.Actions = append(stage.Actions, action)
	}
	return stage, nil
}

func parseAction(v cue.Value, field string) (ActionDef, error) {
	if name, err := v.String(); err == nil {
		return ActionDef{Name: name}, nil
	}

	var (
		action ActionDef
		err    error
	)
	if action.Name, err = optionalString(v, "name", field+".name"); err != nil {
		return action, err
	}
	if action.Name == "" {
		return action, &CompileError{Field: field + ".name", Message: "action name is required", Pos: v.Pos()}
	}
	if action.Position, err = optionalInt(v, "position", field+".position"); err != nil {
		return action, err
	}
	if action.If, err = optionalString(v, "only_if", field+".only_if"); err != nil {
		return action, err
	}
	if action.Unless, err = optionalString(v, "only_unless", field+".only_unless"); err != nil {
		return action, err
	}
	return action, nil
}
