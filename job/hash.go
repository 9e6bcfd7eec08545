package job

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// InputHash computes the deduplication digest for a (type, params) pair.
// The params payload must already be the defaults-applied canonical form
// produced by ParseParams.
//
// The digest is SHA-256 over a canonical serialization: mapping keys sorted
// recursively, numbers rendered with fixed precision so that 0, 0.0 and
// 0.000000 hash identically. Two jobs with equal hash and type are treated
// as duplicates by the submission path.
func InputHash(t Type, params json.RawMessage) (string, error) {
	var decoded any
	dec := json.NewDecoder(strings.NewReader(string(params)))
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		return "", fmt.Errorf("job: hash params: %w", err)
	}

	var b strings.Builder
	b.WriteString(`{"job_type":`)
	writeCanonicalString(&b, string(t))
	b.WriteString(`,"params":`)
	if err := writeCanonical(&b, decoded); err != nil {
		return "", err
	}
	b.WriteByte('}')

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:]), nil
}

func writeCanonical(b *strings.Builder, v any) error {
	switch val := v.(type) {
	case nil:
		b.WriteString("null")

	case bool:
		if val {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}

	case string:
		writeCanonicalString(b, val)

	case json.Number:
		b.WriteString(canonicalNumber(val))

	case []any:
		b.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeCanonical(b, item); err != nil {
				return err
			}
		}
		b.WriteByte(']')

	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonicalString(b, k)
			b.WriteByte(':')
			if err := writeCanonical(b, val[k]); err != nil {
				return err
			}
		}
		b.WriteByte('}')

	default:
		return fmt.Errorf("job: hash: unsupported value %T", v)
	}

	return nil
}

// canonicalNumber renders every number at fixed six-digit precision so that
// "0", "0.0" and "0.000000" all hash identically.
func canonicalNumber(n json.Number) string {
	f, err := n.Float64()
	if err != nil {
		return n.String()
	}
	return strconv.FormatFloat(f, 'f', 6, 64)
}

func writeCanonicalString(b *strings.Builder, s string) {
	// Encoding a bare string never fails.
	enc, _ := json.Marshal(s)
	b.Write(enc)
}
