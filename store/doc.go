// Package store groups the job record store implementations.
//
// Two implementations exist: memory (development and tests) and bun
// (PostgreSQL via the bun ORM, used in production). Both satisfy
// job.Store; the environment selects which one the process wires in.
package store
