// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }
func intPtr(n int) *int           { return &n }

func TestSubmission_MarshalWithoutReview(t *testing.T) {
	s := Submission{ID: "a1", Title: "Graphs <and> Trees & More", ReplyCount: 3}

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var keys map[string]any
	require.NoError(t, json.Unmarshal(data, &keys))
	assert.NotContains(t, keys, "ratings")
	assert.NotContains(t, keys, "avg_rating")
	assert.Contains(t, string(data), `"Graphs <and> Trees & More"`)
	assert.Contains(t, string(data), `"number":null`)
}

func TestSubmission_MarshalWithReview(t *testing.T) {
	s := Submission{
		ID:     "a1",
		Number: intPtr(7),
		Review: &ReviewStats{
			Ratings:       []float64{6, 8},
			MinRating:     floatPtr(6),
			MaxRating:     floatPtr(8),
			AvgRating:     floatPtr(7),
			ReviewerCount: intPtr(2),
		},
	}
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ratings":[6,8]`)
	assert.Contains(t, string(data), `"reviewer_count":2`)

	var back Submission
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, s, back)
}

func TestSubmission_EmptyReviewWritesEmptyList(t *testing.T) {
	data, err := json.Marshal(Submission{ID: "a1", Review: &ReviewStats{}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ratings":[]`)
	assert.Contains(t, string(data), `"avg_rating":null`)
}

func TestSubmission_UnmarshalPlain(t *testing.T) {
	var s Submission
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","number":3,"replyCount":4}`), &s))
	assert.Equal(t, "x", s.ID)
	assert.Equal(t, 4, s.ReplyCount)
	assert.Nil(t, s.Review)
}

func TestSubmission_PreservesUnknownKeys(t *testing.T) {
	in := `{"id":"p1","title":"T","venue":"ICLR 2026","authors":["a","b"],"avg_rating":7,"ratings":[7]}`

	var s Submission
	require.NoError(t, json.Unmarshal([]byte(in), &s))
	assert.Equal(t, "T", s.Title)
	require.NotNil(t, s.Review)
	require.Len(t, s.Extra, 2)
	assert.JSONEq(t, `["a","b"]`, string(s.Extra["authors"]))

	out, err := json.Marshal(s)
	require.NoError(t, err)
	text := string(out)
	assert.Contains(t, text, `"venue":"ICLR 2026"`)
	assert.Contains(t, text, `"authors":["a","b"]`)
	assert.Less(t, strings.Index(text, `"reviewer_count"`), strings.Index(text, `"authors"`))
	assert.Less(t, strings.Index(text, `"authors"`), strings.Index(text, `"venue"`))

	var back Submission
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, s.Extra, back.Extra)
}

func TestSubmission_ExtraNeverShadowsKnownKeys(t *testing.T) {
	s := Submission{ID: "p1", Extra: map[string]json.RawMessage{"id": json.RawMessage(`"other"`)}}
	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(out), `"id"`))
}

func TestReviewStats_Clone(t *testing.T) {
	orig := ReviewStats{Ratings: []float64{1, 2}, AvgRating: floatPtr(1.5), ReviewerCount: intPtr(2)}
	cp := orig.Clone()
	cp.Ratings[0] = 9
	*cp.AvgRating = 9
	*cp.ReviewerCount = 9

	assert.Equal(t, 1.0, orig.Ratings[0])
	assert.Equal(t, 1.5, *orig.AvgRating)
	assert.Equal(t, 2, *orig.ReviewerCount)
	assert.Nil(t, cp.MinRating)
}

func TestRatingRecord_PreservesUnknownKeys(t *testing.T) {
	in := `{"paper_id":"p1","ratings":[4,6],"avg_rating":5,"decision":"Reject","title":"T","accepted_flag":true}`

	var r RatingRecord
	require.NoError(t, json.Unmarshal([]byte(in), &r))
	assert.Equal(t, "p1", r.PaperID)
	assert.Equal(t, []float64{4, 6}, r.Ratings)
	assert.True(t, r.AcceptedFlag)
	require.Len(t, r.Extra, 2)
	assert.JSONEq(t, `"Reject"`, string(r.Extra["decision"]))

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"paper_id":"p1","ratings":[4,6],"min_rating":null,"max_rating":null,
		"avg_rating":5,"reviewer_count":null,"accepted_flag":true,
		"decision":"Reject","title":"T"
	}`, string(out))
	assert.Less(t, strings.Index(string(out), `"accepted_flag"`), strings.Index(string(out), `"decision"`))
}

func TestRatingRecord_NilRatingsMarshalAsEmptyList(t *testing.T) {
	out, err := json.Marshal(RatingRecord{PaperID: "p"})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"ratings":[]`)
}

