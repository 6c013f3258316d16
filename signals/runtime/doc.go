// Package runtime converts recovered panics into errors and forwards them to
// an optional external error reporter.
//
// The dispatcher uses RecoverInto when panic recovery is enabled, so a
// panicking handler surfaces to the emitter as an ordinary handler failure.
package runtime
