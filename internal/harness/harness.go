package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/roach88/invstore/internal/invoice"
	"github.com/roach88/invstore/internal/logging"
	"github.com/roach88/invstore/internal/manager"
)

// Harness drives one scenario against one Manager.
type Harness struct {
	scenario *Scenario
	reg      *manager.Registry
	mgr      *manager.Manager
	logger   *slog.Logger
	version  int // last successfully opened version
}

// openResult is the trace form of a successful open. The store path is
// left out so traces do not depend on the temporary directory.
type openResult struct {
	Version  int   `json:"version"`
	Migrated []int `json:"migrated,omitempty"`
}

// Run executes a scenario in a fresh temporary directory.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario, logging.Discard())
}

// RunContext executes a scenario and returns the result.
//
// Execution flow:
//  1. Create a temporary store directory and registry
//  2. Issue each step through the Manager and wait for it to resolve
//  3. Check the step's expect clause against the recorded trace event
//  4. Read the final collection and evaluate assertions
//
// The returned error reports harness failures only. Unmet expectations and
// assertions are collected in Result.Errors.
func RunContext(ctx context.Context, scenario *Scenario, logger *slog.Logger) (*Result, error) {
	dir, err := os.MkdirTemp("", "invstore-harness-")
	if err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	defer os.RemoveAll(dir)

	reg := manager.NewRegistry(dir, manager.WithRegistryLogger(logger))
	h := &Harness{
		scenario: scenario,
		reg:      reg,
		logger:   logger,
		mgr: manager.New(reg,
			manager.WithLogger(logger),
			manager.WithRequestIDs(manager.NewSequenceGenerator("step")),
		),
	}
	defer h.mgr.Close()

	result := NewResult()
	for i, step := range scenario.Steps {
		ev, err := h.execute(ctx, step, result)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
		if msg := checkExpect(step.Expect, ev); msg != "" {
			result.AddError(fmt.Sprintf("step %d (%s): %s", i, step.Op, msg))
		}

		h.logger.Debug("scenario step completed",
			"scenario", scenario.Name,
			"step", i,
			"op", step.Op,
			"outcome", ev.Outcome,
			"code", ev.Code,
		)
	}

	state, err := h.finalState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read final state: %w", err)
	}
	result.State = state

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// execute issues one step and records its resolution.
func (h *Harness) execute(ctx context.Context, step Step, result *Result) (TraceEvent, error) {
	name := h.scenario.storeName()

	switch step.Op {
	case OpOpen:
		version := h.scenario.openVersion(step)
		info, err := h.mgr.Open(ctx, name, version).Wait(ctx)
		if err == nil {
			h.version = info.Version
		}
		args := map[string]any{"name": name, "version": version}
		return record(result, step.Op, args, openResult{Version: info.Version, Migrated: info.Migrated}, err)

	case OpClose:
		return record(result, step.Op, nil, nil, h.mgr.Close())

	case OpAdd:
		args := map[string]any{"number": step.Number}
		if step.Name != "" {
			args["name"] = step.Name
		}
		inv, err := h.mgr.Add(ctx, invoice.New(step.Number, step.Name)).Wait(ctx)
		return record(result, step.Op, args, inv, err)

	case OpDelete:
		deleted, err := h.mgr.Delete(ctx, step.ID).Wait(ctx)
		return record(result, step.Op, map[string]any{"id": step.ID}, deleted, err)

	case OpFind:
		inv, err := h.mgr.Find(ctx, step.Number).Wait(ctx)
		return record(result, step.Op, map[string]any{"number": step.Number}, inv, err)

	case OpList:
		dir, err := invoice.ParseDirection(step.Direction)
		if err != nil {
			return TraceEvent{}, err
		}
		invoices := []invoice.Invoice{}
		var listErr error
		for inv, err := range h.mgr.List(ctx, dir) {
			if err != nil {
				listErr = err
				break
			}
			invoices = append(invoices, inv)
		}
		return record(result, step.Op, map[string]any{"direction": dir.String()}, invoices, listErr)

	case OpClear:
		n, err := h.mgr.Clear(ctx).Wait(ctx)
		return record(result, step.Op, nil, n, err)

	case OpCount:
		n, err := h.mgr.Count(ctx).Wait(ctx)
		return record(result, step.Op, nil, n, err)

	default:
		return TraceEvent{}, fmt.Errorf("unknown op %q", step.Op)
	}
}

// record converts value to its JSON form and appends the trace event.
func record(result *Result, op string, args map[string]any, value any, err error) (TraceEvent, error) {
	var normalized any
	if err == nil && value != nil {
		var nerr error
		normalized, nerr = normalize(value)
		if nerr != nil {
			return TraceEvent{}, nerr
		}
	}
	return result.addTrace(op, args, normalized, err, string(manager.CodeOf(err))), nil
}

// finalState reads the collection through a separate Manager at the last
// version the scenario opened. A scenario that never opened has no state.
func (h *Harness) finalState(ctx context.Context) ([]invoice.Invoice, error) {
	if h.version == 0 {
		return []invoice.Invoice{}, nil
	}

	reader := manager.New(h.reg, manager.WithLogger(h.logger))
	if _, err := reader.Open(ctx, h.scenario.storeName(), h.version).Wait(ctx); err != nil {
		return nil, err
	}
	defer reader.Close()

	invoices, err := reader.All(ctx, invoice.Next).Wait(ctx)
	if err != nil {
		return nil, err
	}
	if invoices == nil {
		invoices = []invoice.Invoice{}
	}
	return invoices, nil
}

// normalize round-trips v through JSON so results compare the same way
// whether they came from the store or from scenario YAML.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal %T: %w", v, err)
	}
	return out, nil
}

// checkExpect compares a trace event with the step's expect clause and
// returns a failure message, or "" when it matches.
func checkExpect(expect *ExpectClause, ev TraceEvent) string {
	if expect == nil {
		return ""
	}

	want := expect.Outcome
	if want == "" {
		want = OutcomeOK
		if expect.Code != "" {
			want = OutcomeError
		}
	}
	if ev.Outcome != want {
		if ev.Code != "" {
			return fmt.Sprintf("expected outcome %s, got %s (%s)", want, ev.Outcome, ev.Code)
		}
		return fmt.Sprintf("expected outcome %s, got %s", want, ev.Outcome)
	}
	if expect.Code != "" && ev.Code != expect.Code {
		return fmt.Sprintf("expected code %s, got %s", expect.Code, ev.Code)
	}

	if expect.Result != nil {
		exp, err := normalize(expect.Result)
		if err != nil {
			return fmt.Sprintf("invalid expected result: %v", err)
		}
		if !matchValue(exp, ev.Result) {
			return fmt.Sprintf("result mismatch: expected %s, got %s", jsonString(exp), jsonString(ev.Result))
		}
	}
	return ""
}
