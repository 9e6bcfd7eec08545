package relayhook

// Webhook event types. Each constant becomes the "type" field of the
// delivered envelope.
const (
	EventJobSubmitted    = "job.submitted"
	EventJobDeduplicated = "job.deduplicated"
	EventJobStarted      = "job.started"
	EventJobCompleted    = "job.completed"
	EventJobFailed       = "job.failed"
	EventJobCancelled    = "job.cancelled"
	EventJobRequeued     = "job.requeued"
)

// AllEvents returns every event type this hook can deliver.
func AllEvents() []string {
	return []string{
		EventJobSubmitted,
		EventJobDeduplicated,
		EventJobStarted,
		EventJobCompleted,
		EventJobFailed,
		EventJobCancelled,
		EventJobRequeued,
	}
}

// Envelope is the wire shape of a delivered webhook.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type jobPayload struct {
	TaskID  string `json:"task_id"`
	JobType string `json:"job_type"`
	Status  string `json:"status"`
}

type deduplicatedPayload struct {
	jobPayload
	InputHash string `json:"input_hash"`
}

type completedPayload struct {
	jobPayload
	ElapsedMS int64 `json:"elapsed_ms"`
}

type failedPayload struct {
	jobPayload
	Error string `json:"error"`
}

type requeuedPayload struct {
	jobPayload
	NewTaskID string `json:"new_task_id"`
}
