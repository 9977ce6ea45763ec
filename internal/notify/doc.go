// Package notify sends operator-facing notifications, currently the
// shipment summary mail emitted when an expedition batch is finalized.
package notify
