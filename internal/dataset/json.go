// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/titanous/json5"

	"github.com/pdiddy/openreview-harvest/pkg/types"
)

// WriteJSON writes v as a 2-space indented JSON document. Non-ASCII text
// and HTML characters are written literally.
func WriteJSON(path string, v any) error {
	return writeAtomic(path, func(w io.Writer) error {
		return encodeJSON(w, v)
	})
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// WriteSubmissions writes subs as a JSON array. A nil slice is written as [].
func WriteSubmissions(path string, subs []types.Submission) error {
	if subs == nil {
		subs = []types.Submission{}
	}
	return WriteJSON(path, subs)
}

// WriteRatings writes records as a JSON array. A nil slice is written as [].
func WriteRatings(path string, records []types.RatingRecord) error {
	if records == nil {
		records = []types.RatingRecord{}
	}
	return WriteJSON(path, records)
}

// ReadSubmissions reads a JSON array of submissions.
func ReadSubmissions(path string) ([]types.Submission, error) {
	var subs []types.Submission
	if err := readLenient(path, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// ReadRatings reads a JSON array of rating records.
func ReadRatings(path string) ([]types.RatingRecord, error) {
	var records []types.RatingRecord
	if err := readLenient(path, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ErrNonFinite reports a NaN or infinity inside a list. A list element
// has no null form that survives the typed decode, so the file is rejected
// rather than read with an invented value.
var ErrNonFinite = errors.New("non-finite number in list")

// readLenient decodes path with JSON5 rules, so files from other tools
// that carry comments, trailing commas or NaN still load. A non-finite
// number in a field becomes null before the typed decode; one inside a
// list fails with ErrNonFinite.
func readLenient(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var generic any
	if err := json5.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	generic, err = sanitize(generic, "$", false)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	var clean bytes.Buffer
	enc := json.NewEncoder(&clean)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(generic); err != nil {
		return fmt.Errorf("normalizing %s: %w", path, err)
	}
	if err := json.Unmarshal(clean.Bytes(), out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// sanitize replaces non-finite numbers with nil. at is the location of v
// for error messages; inList is set for list elements.
func sanitize(v any, at string, inList bool) (any, error) {
	switch t := v.(type) {
	case float64:
		if !math.IsNaN(t) && !math.IsInf(t, 0) {
			return t, nil
		}
		if inList {
			return nil, fmt.Errorf("%w at %s", ErrNonFinite, at)
		}
		return nil, nil
	case []any:
		for i := range t {
			clean, err := sanitize(t[i], fmt.Sprintf("%s[%d]", at, i), true)
			if err != nil {
				return nil, err
			}
			t[i] = clean
		}
		return t, nil
	case map[string]any:
		for k := range t {
			clean, err := sanitize(t[k], at+"."+k, false)
			if err != nil {
				return nil, err
			}
			t[k] = clean
		}
		return t, nil
	default:
		return v, nil
	}
}
