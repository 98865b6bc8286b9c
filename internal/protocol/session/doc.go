// Package session owns delivery-session primitives shared by the sender.
//
// Ownership boundary:
// - retry policy (attempt budget, per-attempt timeout)
// - inter-retry backoff schedule
//
// The sender state machine is expressed as an AttemptFunc driven by Retry, so
// the attempt budget and timing live here and nowhere else.
package session
