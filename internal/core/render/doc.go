// Package render provides pure functions for generating host artifacts.
//
// All rendering is deterministic: the same inputs produce byte-identical
// output, so an unconditionally rewritten artifact (the service unit, the
// proxy vhost) does not drift between consecutive deploy runs.
package render
