package compiler

import (
	"fmt"
	"regexp"
	"strings"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedType = "E100" // unsupported value passed to Validate

	// ServiceDef errors (E101-E109)
	ErrEmptyStage          = "E101" // stage without actions
	ErrNoActions           = "E102" // no stages, no entry and no parent
	ErrRollbackWithoutWrap = "E103" // rollback requires wrap_in
	ErrInvalidTypeName     = "E104" // empty type name
	ErrDuplicateName       = "E105" // duplicate action name
	ErrInvalidName         = "E106" // malformed action or attribute name

	// Service set errors (E110-E119)
	ErrExtendsCycle     = "E110" // services inherit from each other
	ErrUnknownParent    = "E111" // extends names an unknown service
	ErrDuplicateService = "E112" // service declared twice
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Service string `json:"service,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	field := e.Field
	if e.Service != "" {
		field = e.Service + "." + field
	}
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, field, e.Message)
}

// Validate validates a compiled definition, or a set of definitions
// together with their inheritance. Returns all errors found (does not
// fail-fast).
func Validate(v any) []ValidationError {
	switch def := v.(type) {
	case *ServiceDef:
		return validateService(def)
	case ServiceDef:
		return validateService(&def)
	case []ServiceDef:
		return validateSet(def)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported definition type: %T", v),
			Code:    ErrUnsupportedType,
		}}
	}
}

var namePattern = regexp.MustCompile(`^[a-z_][a-zA-Z0-9_]*$`)

func validateService(def *ServiceDef) []ValidationError {
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{
			Service: def.Name,
			Field:   field,
			Message: fmt.Sprintf(format, args...),
			Code:    code,
			Line:    def.Pos.Line(),
		})
	}

	// E102: something must run
	if len(def.Stages) == 0 && def.Entry == "" && def.Extends == "" {
		add("stages", ErrNoActions, "at least one stage or an entry action is required")
	}

	namespaces := []struct {
		name  string
		attrs []AttributeDef
	}{
		{"input", def.Inputs},
		{"internal", def.Internals},
		{"output", def.Outputs},
	}
	for _, ns := range namespaces {
		for _, attr := range ns.attrs {
			field := fmt.Sprintf("%s.%s", ns.name, attr.Name)
			if !namePattern.MatchString(attr.Name) {
				add(field, ErrInvalidName, "invalid attribute name %q", attr.Name)
			}
			for _, t := range attr.Types {
				if strings.TrimSpace(t) == "" {
					add(field+".type", ErrInvalidTypeName, "type names must be non-empty")
				}
			}
		}
	}

	actionNames := make(map[string]bool)
	for i, stage := range def.Stages {
		field := fmt.Sprintf("stages[%d]", i)

		// E101: empty stage
		if len(stage.Actions) == 0 {
			add(field+".actions", ErrEmptyStage, "stage must have at least one action")
		}
		// E103: rollback without wrap_in
		if stage.Rollback != "" && stage.WrapIn == "" {
			add(field+".rollback", ErrRollbackWithoutWrap, "rollback %q requires wrap_in", stage.Rollback)
		}

		for j, action := range stage.Actions {
			afield := fmt.Sprintf("%s.actions[%d]", field, j)
			if !namePattern.MatchString(action.Name) {
				add(afield, ErrInvalidName, "invalid action name %q", action.Name)
			}
			// E105: duplicate action name
			if actionNames[action.Name] {
				add(afield, ErrDuplicateName, "duplicate action name: %q", action.Name)
			}
			actionNames[action.Name] = true
		}
	}

	return errs
}

// validateSet validates each definition and the inheritance between them.
func validateSet(defs []ServiceDef) []ValidationError {
	var errs []ValidationError
	names := make(map[string]bool)
	for i := range defs {
		errs = append(errs, validateService(&defs[i])...)

		// E112: duplicate service
		if names[defs[i].Name] {
			errs = append(errs, ValidationError{
				Service: defs[i].Name,
				Field:   "service",
				Message: fmt.Sprintf("duplicate service: %q", defs[i].Name),
				Code:    ErrDuplicateService,
				Line:    defs[i].Pos.Line(),
			})
		}
		names[defs[i].Name] = true
	}

	for _, def := range defs {
		// E111: unknown parent
		if def.Extends != "" && !names[def.Extends] {
			errs = append(errs, ValidationError{
				Service: def.Name,
				Field:   "extends",
				Message: fmt.Sprintf("unknown service %q", def.Extends),
				Code:    ErrUnknownParent,
				Line:    def.Pos.Line(),
			})
		}
	}

	// E110: inheritance cycles
	for _, c := range AnalyzeExtends(defs) {
		errs = append(errs, ValidationError{
			Service: c.Path[0],
			Field:   "extends",
			Message: c.Message,
			Code:    ErrExtendsCycle,
		})
	}
	return errs
}
