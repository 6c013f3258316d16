// Package payload provides payload shapes commonly passed to signal handlers.
package payload
