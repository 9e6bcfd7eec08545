package id

import (
	"encoding/json"
	"testing"
)

// ---------------------------------------------------------------------------
// Generation and parsing
// ---------------------------------------------------------------------------

func TestNew_JobPrefix(t *testing.T) {
	jid := NewJobID()
	if jid.IsNil() {
		t.Fatal("NewJobID returned nil ID")
	}
	if jid.Prefix() != PrefixJob {
		t.Fatalf("expected prefix %q, got %q", PrefixJob, jid.Prefix())
	}
}

func TestNew_Unique(t *testing.T) {
	a := NewJobID()
	b := NewJobID()
	if a.String() == b.String() {
		t.Fatalf("two generated IDs collided: %s", a)
	}
}

func TestParse_RoundTrip(t *testing.T) {
	orig := NewWorkerID()
	parsed, err := Parse(orig.String())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.String() != orig.String() {
		t.Fatalf("round trip mismatch: %s != %s", parsed, orig)
	}
}

func TestParse_Empty(t *testing.T) {
	if _, err := Parse(""); err == nil {
		t.Fatal("expected error for empty string")
	}
}

func TestParseWithPrefix_Mismatch(t *testing.T) {
	wid := NewWorkerID()
	if _, err := ParseJobID(wid.String()); err == nil {
		t.Fatal("expected prefix mismatch error")
	}
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

func TestID_JSONRoundTrip(t *testing.T) {
	orig := NewJobID()
	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded ID
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.String() != orig.String() {
		t.Fatalf("JSON round trip mismatch: %s != %s", decoded, orig)
	}
}

func TestID_NilValue(t *testing.T) {
	v, err := Nil.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if v != nil {
		t.Fatalf("expected NULL for nil ID, got %v", v)
	}
}

func TestID_ScanString(t *testing.T) {
	orig := NewJobID()

	var scanned ID
	if err := scanned.Scan(orig.String()); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if scanned.String() != orig.String() {
		t.Fatalf("scan mismatch: %s != %s", scanned, orig)
	}

	var fromNil ID
	if err := fromNil.Scan(nil); err != nil {
		t.Fatalf("Scan(nil): %v", err)
	}
	if !fromNil.IsNil() {
		t.Fatal("expected nil ID after scanning NULL")
	}
}
