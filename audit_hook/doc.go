// Package audithook bridges job lifecycle events to an audit trail
// backend. Each lifecycle hook emits a structured audit event through a
// caller-provided Recorder, so the package has no opinion about where
// the trail is stored.
package audithook
