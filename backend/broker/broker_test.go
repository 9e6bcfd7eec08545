package broker

import (
	"testing"

	"github.com/hibiken/asynq"

	"github.com/Sukudo1234/sudoai-mvp/backend"
	"github.com/Sukudo1234/sudoai-mvp/job"
)

func TestQueueFor_SplitGetsGPULane(t *testing.T) {
	if QueueFor(job.TypeSplit) != QueueGPU {
		t.Fatal("split must dispatch onto the GPU lane")
	}
	for _, typ := range []job.Type{job.TypeMerge, job.TypeTranscribe, job.TypeRename} {
		if QueueFor(typ) != QueueDefault {
			t.Fatalf("%s must dispatch onto the default lane", typ)
		}
	}
}

func TestTaskName(t *testing.T) {
	if got := TaskName(job.TypeTranscribe); got != "task:transcribe" {
		t.Fatalf("unexpected task name %q", got)
	}
}

func TestMapTaskState(t *testing.T) {
	cases := map[asynq.TaskState]backend.UpstreamStatus{
		asynq.TaskStateActive:      backend.UpstreamStarted,
		asynq.TaskStateCompleted:   backend.UpstreamSuccess,
		asynq.TaskStateArchived:    backend.UpstreamFailure,
		asynq.TaskStatePending:     backend.UpstreamPending,
		asynq.TaskStateScheduled:   backend.UpstreamPending,
		asynq.TaskStateRetry:       backend.UpstreamPending,
		asynq.TaskStateAggregating: backend.UpstreamPending,
	}
	for state, want := range cases {
		if got := mapTaskState(state); got != want {
			t.Fatalf("%v: got %s, want %s", state, got, want)
		}
	}
}
