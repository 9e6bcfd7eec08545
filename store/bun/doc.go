// Package bunstore implements job.Store on PostgreSQL via the Bun ORM.
// It is the production record store; local development uses the memory
// store instead.
package bunstore
