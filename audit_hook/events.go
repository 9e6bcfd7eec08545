package audithook

// Audit event actions. Each constant corresponds to one lifecycle hook
// and becomes the Action field of the audit event.
const (
	ActionJobSubmitted    = "job.submitted"
	ActionJobDeduplicated = "job.deduplicated"
	ActionJobStarted      = "job.started"
	ActionJobCompleted    = "job.completed"
	ActionJobFailed       = "job.failed"
	ActionJobCancelled    = "job.cancelled"
	ActionJobRequeued     = "job.requeued"
)

// CategoryJob groups all job lifecycle actions.
const CategoryJob = "sudoai.job"

// ResourceJob is the resource type used in audit events.
const ResourceJob = "job"

// AllActions returns every action this hook can emit.
func AllActions() []string {
	return []string{
		ActionJobSubmitted,
		ActionJobDeduplicated,
		ActionJobStarted,
		ActionJobCompleted,
		ActionJobFailed,
		ActionJobCancelled,
		ActionJobRequeued,
	}
}
