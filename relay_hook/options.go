package relayhook

import (
	"log/slog"
	"net/http"

	"github.com/Sukudo1234/sudoai-mvp/backoff"
)

// Option configures a Hook.
type Option func(*Hook)

// WithEvents restricts delivery to the listed event types. By default
// all events are delivered.
func WithEvents(events ...string) Option {
	return func(h *Hook) {
		h.enabled = make(map[string]bool, len(events))
		for _, e := range events {
			h.enabled[e] = true
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *Hook) { h.client = c }
}

// WithBackoff sets the retry strategy and attempt limit for a single
// delivery. Attempts below 1 are clamped to 1.
func WithBackoff(strategy backoff.Strategy, maxAttempts int) Option {
	return func(h *Hook) {
		h.backoff = strategy
		if maxAttempts < 1 {
			maxAttempts = 1
		}
		h.maxAttempts = maxAttempts
	}
}

// WithLogger sets a custom logger for the hook.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hook) { h.logger = l }
}
