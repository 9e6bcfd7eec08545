package sudoai

import "errors"

var (
	// Record store errors.
	ErrJobNotFound       = errors.New("sudoai: job not found")
	ErrJobAlreadyExists  = errors.New("sudoai: job already exists")
	ErrJobTerminal       = errors.New("sudoai: job already in a terminal state")
	ErrInvalidTransition = errors.New("sudoai: status transition not permitted")

	// Submission errors.
	ErrInvalidParams  = errors.New("sudoai: invalid job parameters")
	ErrUnknownJobType = errors.New("sudoai: unknown job type")
	ErrDispatchFailed = errors.New("sudoai: dispatch failed")

	// Administrative errors.
	ErrNotCancellable = errors.New("sudoai: job is not in a cancellable state")
	ErrNotRequeueable = errors.New("sudoai: job is not in a requeueable state")

	// Upload session errors.
	ErrUploadSessionNotFound = errors.New("sudoai: upload session not found")

	// Configuration errors (fatal at startup, never per-request).
	ErrInvalidConfig = errors.New("sudoai: invalid configuration")
)
