package cli

import (
	"errors"

	"github.com/roach88/servactory/internal/compiler"
	"github.com/roach88/servactory/internal/outcome"
)

// Problem is one definition error in CLI output.
type Problem struct {
	Code    string `json:"code"`
	Service string `json:"service,omitempty"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// problemsOf flattens joined errors into problems.
func problemsOf(err error) []Problem {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []Problem
		for _, e := range joined.Unwrap() {
			out = append(out, problemsOf(e)...)
		}
		return out
	}
	return []Problem{problemOf(err)}
}

func problemOf(err error) Problem {
	var loadErr *compiler.LoadError
	if errors.As(err, &loadErr) {
		p := Problem{Code: loadErr.Code, Message: loadErr.Message}
		if loadErr.Pos.IsValid() {
			p.File = loadErr.Pos.Filename()
			p.Line = loadErr.Pos.Line()
		}
		return p
	}
	var verr compiler.ValidationError
	if errors.As(err, &verr) {
		msg := verr.Field + ": " + verr.Message
		if verr.Field == "" {
			msg = verr.Message
		}
		return Problem{Code: verr.Code, Service: verr.Service, Message: msg, Line: verr.Line}
	}
	var derr *outcome.DefinitionError
	if errors.As(err, &derr) {
		return Problem{Code: string(derr.Code), Service: derr.Service, Message: derr.Message}
	}
	return Problem{Code: compiler.ErrCodeGeneric, Message: err.Error()}
}

func validationProblems(errs []compiler.ValidationError) []Problem {
	out := make([]Problem, len(errs))
	for i, e := range errs {
		out[i] = problemOf(e)
	}
	return out
}
