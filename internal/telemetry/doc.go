// Package telemetry provides service extensions that report invocations to
// Prometheus and OpenTelemetry.
//
// Both extensions observe the error returned by the pipeline before it is
// turned into a Result, so they classify every call as success, failure
// (an expected failure, labelled by its type) or error (unexpected).
package telemetry

import (
	"github.com/roach88/servactory/internal/outcome"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// classify returns the outcome label and the failure type of err.
func classify(err error) (string, string) {
	if err == nil {
		return OutcomeSuccess, ""
	}
	if f, ok := outcome.ToFailure(err); ok {
		return OutcomeFailure, f.Type
	}
	return OutcomeError, ""
}
