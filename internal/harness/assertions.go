package harness

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/roach88/servactory/internal/ir"
	"github.com/roach88/servactory/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d.%d] %s %s", event.Step, event.Seq, event.Service, event.Kind)
			if event.Action != "" {
				fmt.Fprintf(&buf, " %s", event.Action)
			}
			buf.WriteByte('\n')
		}
	}
	return buf.String()
}

func describe(a Assertion) string {
	var parts []string
	if a.Service != "" {
		parts = append(parts, "service "+a.Service)
	}
	if a.Kind != "" {
		parts = append(parts, "kind "+a.Kind)
	}
	if a.Action != "" {
		parts = append(parts, "action "+a.Action)
	}
	return strings.Join(parts, ", ")
}

func matchEvent(event TraceEvent, a Assertion) bool {
	if a.Service != "" && event.Service != a.Service {
		return false
	}
	if a.Kind != "" && event.Kind != a.Kind {
		return false
	}
	if a.Action != "" && event.Action != a.Action {
		return false
	}
	return true
}

// assertTraceContains checks that at least one event matches.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if matchEvent(event, assertion) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: "event with " + describe(assertion),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that actions completed in the specified order.
// Actions don't need to be consecutive.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if event.Kind != "action_completed" {
			continue
		}
		if assertion.Service != "" && event.Service != assertion.Service {
			continue
		}
		if _, seen := positions[event.Action]; !seen {
			positions[event.Action] = i + 1
		}
	}

	for _, action := range assertion.Actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all actions completed: %v", assertion.Actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Actions); i++ {
		prev := assertion.Actions[i-1]
		curr := assertion.Actions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks that exactly Count events match.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if matchEvent(event, assertion) {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d events with %s", assertion.Count, describe(assertion)),
			Actual:   fmt.Sprintf("%d events", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertJournalCount checks the number of journal entries of a service.
func assertJournalCount(ctx context.Context, j *store.Journal, assertion Assertion) error {
	entries, err := j.Entries(ctx, assertion.Service)
	if err != nil {
		return fmt.Errorf("journal_count: %w", err)
	}
	if len(entries) != assertion.Count {
		keys := make([]string, len(entries))
		for i, e := range entries {
			keys[i] = e.Key
		}
		return &AssertionError{
			Type:     AssertJournalCount,
			Expected: fmt.Sprintf("%d journal entries for %s", assertion.Count, assertion.Service),
			Actual:   fmt.Sprintf("%d entries %v", len(entries), keys),
		}
	}
	return nil
}

// matchSubset checks that actual contains every expected key with an equal
// value. Extra keys in actual are ignored.
func matchSubset(actual, expected map[string]any) (string, bool) {
	for _, key := range ir.SortedKeys(expected) {
		actualVal, exists := actual[key]
		if !exists {
			return key, false
		}
		if !valuesEqual(actualVal, expected[key]) {
			return key, false
		}
	}
	return "", true
}

// valuesEqual compares two values by their canonical JSON encoding, so an
// int64 10 equals a float64 10 and YAML maps equal decoded JSON objects.
func valuesEqual(actual, expected any) bool {
	a, err := ir.MarshalCanonical(actual)
	if err != nil {
		return false
	}
	e, err := ir.MarshalCanonical(expected)
	if err != nil {
		return false
	}
	return bytes.Equal(a, e)
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Journal *store.Journal
	Ctx     context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides journal access for journal_count assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertJournalCount:
			if actx == nil || actx.Journal == nil {
				err = fmt.Errorf("assertion[%d]: journal_count requires a journal", i)
			} else {
				ctx := actx.Ctx
				if ctx == nil {
					ctx = context.Background()
				}
				err = assertJournalCount(ctx, actx.Journal, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
