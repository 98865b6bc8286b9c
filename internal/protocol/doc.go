// Package protocol owns the shared wire vocabulary of the stop-and-wait link.
//
// Ownership boundary:
// - sequence bit and acknowledgment kinds
// - error taxonomy shared by sender and receiver
//
// Subpackages:
// - crc: CRC-16/CCITT-FALSE integrity code
// - frame: text frame and acknowledgment codec
// - session: retry policy and backoff primitives
package protocol
