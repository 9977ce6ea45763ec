// Package bus defines the message bus the daemon listens on, the topic
// layout, and the command and status payloads exchanged over it.
package bus
