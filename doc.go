// Package sudoai is the root of the media job processing service. It holds
// the shared configuration tree and the sentinel errors used across the
// submission, dispatch, and worker layers.
//
// The system submits, dispatches, tracks, and reconciles asynchronous
// media-processing jobs (split, merge, transcribe, rename) across two
// interchangeable dispatch backends:
//
//   - Direct-Broker: a Redis-backed asynq broker with in-process workers,
//     used for local development.
//   - Managed-Queue+Compute: SQS plus AWS Batch, used in production, with
//     a GPU lane for source separation and a CPU lane for everything else.
//
// The backend is selected once at startup from configuration; everything
// above the backend boundary is identical in both modes. The persisted job
// record is the single source of truth for job history; live broker or
// Batch state is merged into status reads best-effort, and terminal
// upstream failures are folded back into the record.
//
// # Layout
//
//   - job: the Job model, typed per-type parameters, canonical input
//     hashing, and the record store contract
//   - store/memory, store/bun: record store implementations
//   - backend, backend/broker, backend/batch: dispatch backends
//   - engine: idempotent submission, status merging, cancel/requeue/sweep
//   - storage, upload: object store facade and upload sessions
//   - pipeline: the worker-side execution pipeline for each job type
package sudoai
