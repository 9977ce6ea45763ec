// Package scan drives the operator scan session: a single state machine
// turning scanned tokens into bus commands, with countdown-based resets so
// an abandoned flow never blocks the next operator.
package scan
