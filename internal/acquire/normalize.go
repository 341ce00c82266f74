// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/pdiddy/openreview-harvest/pkg/types"
)

// ErrMissingID marks a note without a primary key. The normalized record
// is still returned; it cannot take part in joins.
var ErrMissingID = errors.New("note has no id")

// Base URLs for the links derived from a note id. Declared as vars so
// tests and mirrors can substitute them.
var (
	pdfURLBase   = "https://openreview.net/attachment?id="
	forumURLBase = "https://openreview.net/forum?id="
)

// Normalize flattens one raw note into a Submission. It never fails on a
// missing optional field; a missing id yields the record and ErrMissingID.
func Normalize(raw RawNote) (types.Submission, error) {
	content, _ := raw["content"].(map[string]any)

	s := types.Submission{
		ID:          scalarString(raw["id"]),
		Number:      intValue(raw["number"]),
		Title:       unwrapString(content["title"]),
		Abstract:    unwrapString(content["abstract"]),
		Keywords:    strings.Join(unwrapStrings(content["keywords"]), " "),
		PrimaryArea: unwrapString(content["primary_area"]),
		ReplyCount:  replyCount(raw["details"]),
	}
	s.PDFURL, s.OpenReviewURL = DeriveURLs(s.ID)

	if s.ID == "" {
		return s, ErrMissingID
	}
	return s, nil
}

// DeriveURLs returns the PDF and forum links for id, or two empty strings
// when id is empty.
func DeriveURLs(id string) (pdfURL, forumURL string) {
	if id == "" {
		return "", ""
	}
	return pdfURLBase + id + "&name=pdf", forumURLBase + id
}

// unwrap returns the "value" of a wrapper object, or v itself when v is a
// plain value. A wrapper without "value" yields nil.
func unwrap(v any) any {
	if m, ok := v.(map[string]any); ok {
		return m["value"]
	}
	return v
}

func unwrapString(v any) string {
	return scalarString(unwrap(v))
}

// unwrapStrings returns the list behind v, or nil when v is not a list.
func unwrapStrings(v any) []string {
	list, ok := unwrap(v).([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s := scalarString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func scalarString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case map[string]any, []any:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

// intValue converts a JSON number to an int. Anything else, including a
// fractional number, yields nil.
func intValue(v any) *int {
	var n int
	switch x := v.(type) {
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return nil
		}
		n = int(i)
	case float64:
		if x != math.Trunc(x) {
			return nil
		}
		n = int(x)
	case int:
		n = x
	default:
		return nil
	}
	return &n
}

func replyCount(details any) int {
	m, ok := details.(map[string]any)
	if !ok {
		return 0
	}
	if n := intValue(m["replyCount"]); n != nil && *n > 0 {
		return *n
	}
	return 0
}
