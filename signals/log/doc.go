// Package log defines the logging interface used across lib-signals and its
// typed logging fields.
//
// Adapters (such as the zap package) implement Logger so dispatchers,
// transaction managers and resources can log without binding to a backend.
package log
