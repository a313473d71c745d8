// Package audit drives one invoice through the compliance pipeline.
//
// A run evaluates the deterministic rules, asks the reasoning tier for the
// deep audit, merges both result sets by stage ownership and moves the
// invoice to its verdict. The merged invoice replaces the stored copy and
// any open Selection of the same invoice in one step.
//
// At most one run per invoice is in flight. A run that degraded arms a
// cooldown, and further runs are refused until it elapses.
package audit
