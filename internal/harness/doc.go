// Package harness runs rotation scenarios as executable contract tests.
//
// A scenario is a YAML file listing engine operations and what each one is
// expected to return. Run executes the steps in order against a fresh store,
// using a deterministic clock, and records a trace of what actually
// happened. Expectations are checked against the real engine output, and
// the trace can be compared with a golden file.
//
// # Scenario Format
//
//	name: rotation_basic
//	description: "Four calls walk the sorted candidates and wrap"
//	backend: memory            # memory (default) or sqlite
//	steps:
//	  - op: next
//	    group: g1
//	    candidates: [3, 1, 2]
//	    expect: 1
//	  - op: next
//	    group: g3
//	    candidates: []
//	    expect_none: true
//	  - op: stats
//	    group: g1
//	    expect_stats: { last_assigned_id: 1, total_assignments: 1 }
//	  - op: reset
//	    group: g1
//	    expect_existed: true
//
// Supported ops are next, peek, reset and stats. A step may instead set
// expect_error to "validation" or "store" when the call must fail with
// that error kind.
//
// # Golden Files
//
// AssertGolden writes the trace as indented JSON and compares it with
// testdata/golden/<name>.golden. Timestamps are left out of the trace so
// that golden files do not depend on the clock. Regenerate with:
//
//	go test ./internal/harness -update
package harness
