// Package reasoning invokes AI reasoning providers on behalf of the
// pipeline.
//
// The package has four layers:
//   - Provider adapters (Anthropic Messages, OpenAI-compatible chat
//     completions) that retry 429/5xx with exponential backoff
//   - Client, which routes a tier to a provider and decodes JSON replies
//   - Auditor, the COMPLEX-tier deep audit producing AI- results, which
//     never returns an error and instead degrades to AI-ERROR and arms the
//     RetryGate
//   - VelocityAnalyzer, the advisory spend projection run after a budget
//     failure
package reasoning
