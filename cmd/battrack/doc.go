// Package main hosts the battrack CLI entrypoint and command graph.
//
// The Cobra-based command tree covers the long-running daemon, the
// interactive operator scan console, ledger inspection, production
// statistics, and configuration scaffolding. Configuration resolution
// happens once per invocation through commandContext so subcommands stay
// declarative; the actual work lives in the internal packages.
package main
