// Package harness replays scripted invoice store sessions and checks the
// outcome of every operation.
//
// A scenario opens a fresh store in a temporary directory, issues its steps
// one at a time through a manager.Manager, and records each resolution as a
// trace event. Assertions are then evaluated against the trace and against
// the final contents of the store.
//
// # Scenario Format
//
//	name: add_then_delete
//	description: "Adding and deleting a single invoice"
//	store: dbInvoices
//	steps:
//	  - op: open
//	    version: 1
//	  - op: add
//	    number: LC4578
//	    expect:
//	      result: { invoiceID: 1, invNumber: LC4578 }
//	  - op: add
//	    number: LC4578
//	    expect:
//	      code: CONSTRAINT_VIOLATION
//	  - op: delete
//	    id: 1
//	assertions:
//	  - type: trace_count
//	    op: add
//	    outcome: error
//	    count: 1
//	  - type: final_state
//	    invoices: []
//
// # Operations
//
//   - open: connect at version (defaults to the scenario version)
//   - close: release the connection
//   - add: insert number with an optional name
//   - delete: remove id
//   - find: look up number
//   - list: walk the collection in direction (next or prev)
//   - clear: remove every invoice
//   - count: number of live invoices
//
// # Assertion Types
//
//   - trace_order: ops appear in the given order
//   - trace_count: op appears exactly count times, optionally filtered by outcome
//   - final_state: the store holds exactly the given invoices, in ID order
//   - final_count: the store holds exactly count invoices
//
// # Deterministic Testing
//
// Every run uses a new directory, sequential request IDs and a trace
// sequence starting at 1. Store paths never appear in the trace, so the
// same scenario always yields byte-identical golden output.
package harness
