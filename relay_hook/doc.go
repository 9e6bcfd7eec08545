// Package relayhook delivers job lifecycle events to an external HTTP
// endpoint as JSON webhooks. Deliveries are retried with backoff, and a
// delivery that keeps failing is reported but never blocks the job.
package relayhook
