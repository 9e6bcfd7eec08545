package backend

import (
	"testing"

	"github.com/Sukudo1234/sudoai-mvp/job"
)

func TestUpstreamStatus_Terminal(t *testing.T) {
	for _, s := range []UpstreamStatus{UpstreamSuccess, UpstreamFailure, UpstreamRevoked} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []UpstreamStatus{UpstreamPending, UpstreamStarted} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}

func TestFromRecordStatus(t *testing.T) {
	cases := map[job.Status]UpstreamStatus{
		job.StatusPending:   UpstreamPending,
		job.StatusQueued:    UpstreamPending,
		job.StatusRunning:   UpstreamStarted,
		job.StatusCompleted: UpstreamSuccess,
		job.StatusFailed:    UpstreamFailure,
		job.StatusCancelled: UpstreamRevoked,
	}
	for rec, want := range cases {
		if got := FromRecordStatus(rec); got != want {
			t.Fatalf("%s: got %s, want %s", rec, got, want)
		}
	}
}
