// Package notify delivers trigger notifications.
//
// Each trigger maps to one NotificationRule. An enabled in-app channel
// enqueues an inbox entry; an enabled email channel sends one message per
// configured recipient. Sends are attempted independently: a failed
// recipient is recorded in the Report and logged, and the remaining
// recipients are still attempted.
//
// Async runs dispatches on a single background worker in submission order
// so callers never wait for delivery.
package notify
