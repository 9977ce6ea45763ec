// Package printqueue serializes label printing through a FIFO queue with a
// single worker, so the device never receives interleaved jobs and a failed
// head job holds the line until the printer recovers.
package printqueue
