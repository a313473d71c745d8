// Package harness runs end-to-end audit scenarios against the wired
// pipeline.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: budget_breach
//	description: "Over-cap invoice is held for review"
//	now: 2025-02-14T09:00:00Z
//	settings:
//	  cooldown: 5s
//	  notificationRules:
//	    - { trigger: AUDIT_FAILED, inApp: true, email: true, recipients: "ap@example.org" }
//	fixtures:
//	  purchaseOrders: [...]
//	  clients: [...]
//	  invoices: [...]
//	replies:
//	  - match: "forensic auditor"
//	    text: '{"report": "...", "riskAssessment": {...}, "validationResults": [...]}'
//	  - match: "chief auditor"
//	    error: "upstream timeout"
//	steps:
//	  - audit: inv-1
//	    expect:
//	      status: NEEDS_REVIEW
//	      risk: LOW
//	      results: [SYS-PO-LOOKUP:PASS, SYS-BUDGET:FAIL]
//	  - advance: 5s
//	  - escalate: inv-1
//	    expect: { error: NOT_ELIGIBLE }
//	notifications:
//	  - { trigger: AUDIT_FAILED, invoice: inv-1, channel: in_app }
//
// Each step performs exactly one of audit, escalate, draft, approve, reject
// or advance (moves the fake clock). Expect fields left empty are not
// checked, except error, which must match exactly: a step without an
// expected error must succeed.
//
// # Deterministic Testing
//
// The harness uses:
//   - A fresh in-memory SQLite store per scenario
//   - testutil.FakeClock starting at the scenario's now
//   - testutil.SequentialIDs for every generated ID
//   - testutil.ScriptedProvider behind a single-profile router
//   - testutil.RecordingGateway for email
//
// Notifications are awaited after every step, so the delivery order is the
// order the pipeline committed its changes. RunWithGolden compares the
// canonical JSON snapshot against testdata/golden.
package harness
