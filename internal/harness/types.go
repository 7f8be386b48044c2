package harness

import "github.com/roach88/invstore/internal/invoice"

// Outcome values recorded in the trace.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// TraceEvent records one operation the harness issued and how it resolved.
type TraceEvent struct {
	Seq     int64          `json:"seq"`
	Op      string         `json:"op"`
	Args    map[string]any `json:"args,omitempty"`
	Outcome string         `json:"outcome"`
	Code    string         `json:"code,omitempty"`
	Result  any            `json:"result,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds one event per step, in step order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// State is the collection in ascending ID order after the last step.
	State []invoice.Invoice `json:"state"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  []invoice.Invoice{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addTrace appends an event and returns it for expectation checks.
func (r *Result) addTrace(op string, args map[string]any, result any, err error, code string) TraceEvent {
	ev := TraceEvent{
		Seq:     int64(len(r.Trace) + 1),
		Op:      op,
		Args:    args,
		Outcome: OutcomeOK,
		Result:  result,
	}
	if err != nil {
		ev.Outcome = OutcomeError
		ev.Code = code
		ev.Result = nil
	}
	r.Trace = append(r.Trace, ev)
	return ev
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type is one of trace_order, trace_count, final_state, final_count.
	Type string `yaml:"type"`

	// Op is the operation counted by trace_count.
	Op string `yaml:"op,omitempty"`

	// Ops is the expected order for trace_order.
	Ops []string `yaml:"ops,omitempty"`

	// Outcome optionally restricts trace_count to ok or error events.
	Outcome string `yaml:"outcome,omitempty"`

	// Count is used by trace_count and final_count.
	Count int `yaml:"count,omitempty"`

	// Invoices is the expected collection for final_state.
	// Each entry is a subset match; the length must match exactly.
	Invoices []map[string]any `yaml:"invoices,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceOrder = "trace_order"
	AssertTraceCount = "trace_count"
	AssertFinalState = "final_state"
	AssertFinalCount = "final_count"
)
