// Package router maps consumed bus commands onto ledger mutations and
// print jobs, publishing one operation result per command.
package router
