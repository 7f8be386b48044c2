package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/invstore/internal/invoice"
	"github.com/roach88/invstore/internal/testutil"
)

func TestRun_ExampleScenariosPass(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		t.Run(strings.TrimSuffix(filepath.Base(file), ".yaml"), func(t *testing.T) {
			scenario, err := LoadScenario(file)
			require.NoError(t, err)

			result, err := RunContext(testutil.Context(t), scenario, testutil.Logger(t))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Len(t, result.Trace, len(scenario.Steps))
		})
	}
}

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"open_add_list_delete", "duplicate_and_missing"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata/scenarios", name+".yaml"))
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/duplicate_and_missing.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := (&TraceSnapshot{Scenario: scenario.Name, Trace: first.Trace, State: first.State}).Marshal()
	require.NoError(t, err)
	b, err := (&TraceSnapshot{Scenario: scenario.Name, Trace: second.Trace, State: second.State}).Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_TraceRecordsOutcomes(t *testing.T) {
	scenario := &Scenario{
		Name:        "outcomes",
		Description: "records ok and error events",
		Steps: []Step{
			{Op: OpOpen},
			{Op: OpAdd, Number: "X", Name: "Acme"},
			{Op: OpAdd, Number: "X"},
			{Op: OpClose},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "steps without expect clauses never fail")
	require.Len(t, result.Trace, 4)

	assert.Equal(t, int64(1), result.Trace[0].Seq)
	assert.Equal(t, map[string]any{"name": "dbInvoices", "version": 1}, result.Trace[0].Args)
	assert.Equal(t, map[string]any{"version": float64(1), "migrated": []any{float64(1)}}, result.Trace[0].Result)

	assert.Equal(t, map[string]any{"number": "X", "name": "Acme"}, result.Trace[1].Args)
	assert.Equal(t, OutcomeOK, result.Trace[1].Outcome)

	assert.Equal(t, OutcomeError, result.Trace[2].Outcome)
	assert.Equal(t, "CONSTRAINT_VIOLATION", result.Trace[2].Code)
	assert.Nil(t, result.Trace[2].Result)

	assert.Equal(t, OpClose, result.Trace[3].Op)
	assert.Nil(t, result.Trace[3].Args)

	assert.Equal(t, []invoice.Invoice{{ID: 1, Number: "X", Name: "Acme"}}, result.State,
		"final state is read even after the scenario closes its store")
}

func TestRun_ExpectationFailures(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong_expectations",
		Description: "every expect clause is wrong",
		Steps: []Step{
			{Op: OpOpen, Expect: &ExpectClause{Outcome: OutcomeError}},
			{Op: OpAdd, Number: "A", Expect: &ExpectClause{Result: map[string]any{"invoiceID": 7}}},
			{Op: OpAdd, Number: "A", Expect: &ExpectClause{Code: "NOT_FOUND"}},
			{Op: OpFind, Number: "A", Expect: &ExpectClause{Code: "NOT_FOUND"}},
		},
		Assertions: []Assertion{
			{Type: AssertFinalCount, Count: 5},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)

	assert.Equal(t, "step 0 (open): expected outcome error, got ok", result.Errors[0])
	assert.Equal(t, `step 1 (add): result mismatch: expected {"invoiceID":7}, got {"invNumber":"A","invoiceID":1}`, result.Errors[1])
	assert.Equal(t, "step 2 (add): expected code NOT_FOUND, got CONSTRAINT_VIOLATION", result.Errors[2])
	assert.Equal(t, "step 3 (find): expected outcome error, got ok", result.Errors[3])
	assert.Contains(t, result.Errors[4], "final_count")
}

func TestRun_NeverOpened(t *testing.T) {
	scenario := &Scenario{
		Name:        "never_opened",
		Description: "no open step",
		Steps: []Step{
			{Op: OpCount, Expect: &ExpectClause{Code: "NOT_READY"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.State)
}

func TestRun_ListDirections(t *testing.T) {
	scenario := &Scenario{
		Name:        "directions",
		Description: "next and prev traversal",
		Steps: []Step{
			{Op: OpOpen},
			{Op: OpAdd, Number: "A"},
			{Op: OpAdd, Number: "B"},
			{Op: OpList, Direction: "next"},
			{Op: OpList, Direction: "prev"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Trace, 5)

	ids := func(ev TraceEvent) []float64 {
		var out []float64
		for _, row := range ev.Result.([]any) {
			out = append(out, row.(map[string]any)["invoiceID"].(float64))
		}
		return out
	}
	assert.Equal(t, []float64{1, 2}, ids(result.Trace[3]))
	assert.Equal(t, []float64{2, 1}, ids(result.Trace[4]))
	assert.Equal(t, map[string]any{"direction": "prev"}, result.Trace[4].Args)
}

func TestCheckExpect(t *testing.T) {
	ok := TraceEvent{Op: OpCount, Outcome: OutcomeOK, Result: float64(0)}
	failed := TraceEvent{Op: OpCount, Outcome: OutcomeError, Code: "NOT_READY"}

	assert.Empty(t, checkExpect(nil, failed))
	assert.Empty(t, checkExpect(&ExpectClause{}, ok))
	assert.Empty(t, checkExpect(&ExpectClause{Result: 0}, ok))
	assert.Empty(t, checkExpect(&ExpectClause{Outcome: OutcomeError}, failed))
	assert.Empty(t, checkExpect(&ExpectClause{Code: "NOT_READY"}, failed))

	assert.Equal(t, "expected outcome ok, got error (NOT_READY)", checkExpect(&ExpectClause{}, failed))
	assert.Equal(t, "result mismatch: expected 1, got 0", checkExpect(&ExpectClause{Result: 1}, ok))
}
