// Package daemon assembles the long-running battrack process: the serial
// ledger, the print queue worker, the device status publisher, and the bus
// command router, guarded by a per-data-directory instance lock.
package daemon
