// Package rules implements the deterministic rule engine: the SYS- checks
// of an invoice against its purchase order.
//
// Checks run in order and only the first two short-circuit:
//
//  1. SYS-PO-PRESENT: the invoice carries a PO number
//  2. SYS-PO-LOOKUP: the PO number resolves in the registry
//  3. SYS-BUDGET: the total fits the remaining annual balance
//  4. SYS-SERVICE-PERIOD: the invoice date lies in the PO validity window
//  5. SYS-CARE-PLAN: every line item maps to an approved category
//
// Evaluate never returns an error; registry failures become blocking
// results.
package rules
