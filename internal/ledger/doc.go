// Package ledger persists battery unit records in two header-schema CSV
// files: the serial ledger and the service (SAV) sub-ledger. Files heal
// their header on first touch and every mutation rewrites the full set.
package ledger
