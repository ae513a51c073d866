// Package notifications delivers run lifecycle events to an ntfy topic when
// one is configured.
package notifications
