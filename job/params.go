package job

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ---------------------------------------------------------------------------
// Per-type parameter payloads
// ---------------------------------------------------------------------------

// SplitParams are the inputs for a source-separation job.
type SplitParams struct {
	SourceURL string `json:"sourceUrl" validate:"required"`
}

// MergeParams are the inputs for a video/audio mux job. OffsetSeconds is a
// signed delay applied to the audio stream.
type MergeParams struct {
	VideoURL      string  `json:"videoUrl" validate:"required"`
	AudioURL      string  `json:"audioUrl" validate:"required"`
	OffsetSeconds float64 `json:"offsetSeconds"`
}

// TranscribeParams are the inputs for a subtitle generation job.
type TranscribeParams struct {
	SourceURL       string   `json:"sourceUrl" validate:"required"`
	TargetLanguages []string `json:"targetLanguages" validate:"omitempty,min=1,dive,required"`
}

// RenameParams are the inputs for a batch key-rename job. Pattern supports
// {basename}, {ext} and {index} placeholders; {index} is zero-padded to Pad
// digits starting at StartIndex.
type RenameParams struct {
	Keys       []string `json:"keys" validate:"required,min=1,dive,required"`
	Pattern    string   `json:"pattern" validate:"required"`
	StartIndex int      `json:"startIndex" validate:"omitempty,min=0"`
	Pad        int      `json:"pad" validate:"omitempty,min=1,max=10"`
	Preview    bool     `json:"preview"`
}

// ---------------------------------------------------------------------------
// Parsing and validation
// ---------------------------------------------------------------------------

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func paramValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ParseParams decodes, defaults, and validates the raw parameter payload for
// the given job type. It returns the typed payload plus its re-marshalled
// canonical form with defaults applied; that form is what gets persisted and
// hashed, so "offset omitted" and "offset: 0" are the same job.
func ParseParams(t Type, raw json.RawMessage) (any, json.RawMessage, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	var params any
	switch t {
	case TypeSplit:
		p := SplitParams{}
		if err := strictDecode(raw, &p); err != nil {
			return nil, nil, err
		}
		params = p

	case TypeMerge:
		p := MergeParams{}
		if err := strictDecode(raw, &p); err != nil {
			return nil, nil, err
		}
		params = p

	case TypeTranscribe:
		p := TranscribeParams{}
		if err := strictDecode(raw, &p); err != nil {
			return nil, nil, err
		}
		if len(p.TargetLanguages) == 0 {
			p.TargetLanguages = []string{"original"}
		}
		params = p

	case TypeRename:
		p := RenameParams{StartIndex: 1, Pad: 2}
		if err := strictDecode(raw, &p); err != nil {
			return nil, nil, err
		}
		params = p

	default:
		return nil, nil, fmt.Errorf("job: unknown type %q", t)
	}

	if err := paramValidator().Struct(params); err != nil {
		return nil, nil, fmt.Errorf("job: invalid %s params: %w", t, err)
	}

	canonical, err := json.Marshal(params)
	if err != nil {
		return nil, nil, fmt.Errorf("job: marshal %s params: %w", t, err)
	}

	return params, canonical, nil
}

// strictDecode rejects unknown fields so a typo never silently alters
// the canonical hash.
func strictDecode(raw json.RawMessage, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("job: decode params: %w", err)
	}
	return nil
}
