// Package domain provides the invoice audit types shared by every stage of
// the pipeline.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import domain; domain imports nothing internal.
//
// Key design constraints:
//   - Every ValidationResult carries a rule ID prefixed with its owning stage
//     (SYS- for the rule engine, AI- for the reasoning tier)
//   - A stage only ever replaces the results it owns (see ReplaceOwned)
//   - Status is derived from the current result set, except while the
//     reasoning stage is degraded (see HasReasoningError)
//   - All JSON tags use camelCase to match the extraction collaborator
package domain
