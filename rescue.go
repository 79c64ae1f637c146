package servactory

import (
	"errors"

	"github.com/roach88/servactory/internal/outcome"
)

// RescueAs returns a rescue handler for errors of type E. fn builds the
// failure; returning nil lets older handlers try.
//
//	b.RescueFrom(servactory.RescueAs(func(c *servactory.Context, err *PaymentError) *servactory.Failure {
//		return servactory.NewFailure("payment", err.Error(), nil)
//	}))
func RescueAs[E error](fn func(c *Context, err E) *Failure) RescueHandler {
	return func(c *Context, err error) (*Failure, bool) {
		var target E
		if !errors.As(err, &target) {
			return nil, false
		}
		f := fn(c, target)
		return f, f != nil
	}
}

// NewFailure builds a business failure. An empty type means "base".
func NewFailure(typ, message string, meta map[string]any) *Failure {
	return outcome.NewFailure(typ, message, meta)
}
