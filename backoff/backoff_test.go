package backoff

import (
	"testing"
	"time"
)

func TestConstant(t *testing.T) {
	c := NewConstant(2 * time.Second)
	for _, attempt := range []int{1, 5, 100} {
		if d := c.Delay(attempt); d != 2*time.Second {
			t.Fatalf("attempt %d: got %v, want 2s", attempt, d)
		}
	}
}

func TestExponential(t *testing.T) {
	e := NewExponential(time.Second, 10*time.Second)

	cases := map[int]time.Duration{
		1: time.Second,
		2: 2 * time.Second,
		3: 4 * time.Second,
		4: 8 * time.Second,
		5: 10 * time.Second, // capped
		9: 10 * time.Second,
	}
	for attempt, want := range cases {
		if got := e.Delay(attempt); got != want {
			t.Fatalf("attempt %d: got %v, want %v", attempt, got, want)
		}
	}
}

func TestExponentialWithJitter_Bounds(t *testing.T) {
	e := NewExponentialWithJitter(time.Second, 8*time.Second)

	for attempt := 1; attempt <= 10; attempt++ {
		for i := 0; i < 20; i++ {
			d := e.Delay(attempt)
			if d < 0 {
				t.Fatalf("attempt %d: negative delay %v", attempt, d)
			}
			if d > 8*time.Second {
				t.Fatalf("attempt %d: delay %v exceeds cap", attempt, d)
			}
		}
	}
}

func TestDefaultStrategy(t *testing.T) {
	s := DefaultStrategy()
	if d := s.Delay(20); d > 30*time.Second {
		t.Fatalf("default strategy exceeds 30s cap: %v", d)
	}
}
