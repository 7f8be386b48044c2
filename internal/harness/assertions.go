package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
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
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s -> %s", ev.Seq, ev.Op, jsonString(ev.Args), ev.Outcome)
			if ev.Code != "" {
				fmt.Fprintf(&buf, " %s", ev.Code)
			}
			buf.WriteString("\n")
		}
	}

	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns one message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			err = assertFinalState(result, assertion)
		case AssertFinalCount:
			err = assertFinalCount(result, assertion)
		default:
			err = fmt.Errorf("unknown assertion type %q", assertion.Type)
		}

		if err != nil {
			failures = append(failures, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}

	return failures
}

// assertTraceOrder checks that the ops appear in the trace in the given
// order. Other events may appear in between, and an op may be listed more
// than once.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	next := 0
	for _, ev := range trace {
		if next < len(assertion.Ops) && ev.Op == assertion.Ops[next] {
			next++
		}
	}

	if next < len(assertion.Ops) {
		return &AssertionError{
			Type:     AssertTraceOrder,
			Expected: fmt.Sprintf("ops in order: %v", assertion.Ops),
			Actual:   fmt.Sprintf("matched %v, then no %s", assertion.Ops[:next], assertion.Ops[next]),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceCount checks that an op appears exactly Count times, counting
// only events with the given outcome when one is set.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Op != assertion.Op {
			continue
		}
		if assertion.Outcome != "" && ev.Outcome != assertion.Outcome {
			continue
		}
		count++
	}

	if count != assertion.Count {
		what := assertion.Op
		if assertion.Outcome != "" {
			what = fmt.Sprintf("%s (%s)", assertion.Op, assertion.Outcome)
		}
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, what),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks the final collection against the expected
// invoices, one subset match per record in ID order.
func assertFinalState(result *Result, assertion Assertion) error {
	actual, err := normalize(result.State)
	if err != nil {
		return err
	}
	rows, _ := actual.([]any)

	fail := func(actual string) error {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("invoices %s", jsonString(assertion.Invoices)),
			Actual:   actual,
		}
	}

	if len(rows) != len(assertion.Invoices) {
		return fail(fmt.Sprintf("%d invoices: %s", len(rows), jsonString(rows)))
	}

	for i, want := range assertion.Invoices {
		exp, err := normalize(want)
		if err != nil {
			return err
		}
		if !matchValue(exp, rows[i]) {
			return fail(fmt.Sprintf("invoice %d is %s", i, jsonString(rows[i])))
		}
	}
	return nil
}

// assertFinalCount checks the number of invoices left in the store.
func assertFinalCount(result *Result, assertion Assertion) error {
	if len(result.State) != assertion.Count {
		return &AssertionError{
			Type:     AssertFinalCount,
			Expected: fmt.Sprintf("%d invoices", assertion.Count),
			Actual:   fmt.Sprintf("%d invoices", len(result.State)),
		}
	}
	return nil
}

// matchValue reports whether actual satisfies expected. Objects match when
// every expected key matches; lists match element by element.
func matchValue(expected, actual any) bool {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for key, want := range exp {
			got, present := act[key]
			if !present || !matchValue(want, got) {
				return false
			}
		}
		return true

	case []any:
		act, ok := actual.([]any)
		if !ok || len(act) != len(exp) {
			return false
		}
		for i := range exp {
			if !matchValue(exp[i], act[i]) {
				return false
			}
		}
		return true

	default:
		return reflect.DeepEqual(expected, actual)
	}
}

func jsonString(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
