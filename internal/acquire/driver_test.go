// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/openreview-harvest/internal/httputil"
)

// fakeFetcher serves total synthetic notes in pages of limit and fails the
// offsets in fail.
type fakeFetcher struct {
	total int
	limit int
	fail  map[int]error
	calls []int

	// onFetch runs before each response when set.
	onFetch func(offset int)
}

func (f *fakeFetcher) FetchPage(ctx context.Context, offset int) (*Page, error) {
	f.calls = append(f.calls, offset)
	if f.onFetch != nil {
		f.onFetch(offset)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.fail[offset]; ok {
		return nil, err
	}
	n := min(f.limit, f.total-offset)
	if n < 0 {
		n = 0
	}
	notes := make([]RawNote, n)
	for i := range notes {
		notes[i] = RawNote{"id": fmt.Sprintf("p%d", offset+i)}
	}
	page := &Page{Notes: notes}
	if offset == 0 {
		c := f.total
		page.Count = &c
	}
	return page, nil
}

// recordingPacer returns a Pacer that records waits instead of sleeping.
func recordingPacer(waits *[]int) httputil.Pacer {
	return httputil.Pacer{
		PerOffset: time.Millisecond,
		Max:       time.Second,
		Sleep: func(_ context.Context, d time.Duration) error {
			*waits = append(*waits, int(d/time.Millisecond))
			return nil
		},
	}
}

func transportErr(offset int) error {
	return &FetchError{Offset: offset, Kind: KindTransport, Err: errors.New("connection reset")}
}

func TestDriver_FetchCountMatchesPages(t *testing.T) {
	for total := 1; total <= 40; total++ {
		for limit := 1; limit <= 7; limit++ {
			f := &fakeFetcher{total: total, limit: limit}
			var waits []int
			d := &Driver{Fetcher: f, Limit: limit, Pacer: recordingPacer(&waits)}

			res, err := d.Run(context.Background())
			require.NoError(t, err)

			pages := (total + limit - 1) / limit
			if len(f.calls) != pages {
				t.Fatalf("total=%d limit=%d: %d fetches, want %d", total, limit, len(f.calls), pages)
			}
			for _, off := range f.calls {
				if off >= total {
					t.Fatalf("total=%d limit=%d: fetched offset %d", total, limit, off)
				}
			}
			assert.Equal(t, total, res.Obtained())
			assert.Equal(t, pages, res.SuccessfulPages)
			assert.Equal(t, pages, res.Pages)
			assert.True(t, res.Complete())
		}
	}
}

func TestDriver_ZeroTotal(t *testing.T) {
	f := &fakeFetcher{total: 0, limit: 25}
	d := &Driver{Fetcher: f, Limit: 25}

	res, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.False(t, res.Aborted())
	assert.Empty(t, res.Submissions)
	assert.Equal(t, []int{0}, f.calls)
}

func TestDriver_MissingCountIsZeroTotal(t *testing.T) {
	d := &Driver{Fetcher: fetcherFunc(func(context.Context, int) (*Page, error) {
		return &Page{Notes: []RawNote{{"id": "a"}}}, nil
	}), Limit: 25}

	res, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.Empty(t, res.Submissions)
}

func TestDriver_FirstPageFailureAborts(t *testing.T) {
	for _, total := range []int{0, 1, 100} {
		f := &fakeFetcher{total: total, limit: 10, fail: map[int]error{0: transportErr(0)}}
		d := &Driver{Fetcher: f, Limit: 10}

		res, err := d.Run(context.Background())
		require.ErrorIs(t, err, ErrAborted)
		var fe *FetchError
		assert.True(t, errors.As(err, &fe))
		assert.True(t, res.Aborted())
		assert.Equal(t, StateAborted, res.State)
		assert.Empty(t, res.Submissions)
		assert.Equal(t, []int{0}, f.calls)
	}
}

func TestDriver_InvalidLimit(t *testing.T) {
	d := &Driver{Fetcher: &fakeFetcher{total: 3, limit: 1}, Limit: 0}
	res, err := d.Run(context.Background())
	assert.ErrorIs(t, err, ErrAborted)
	assert.True(t, res.Aborted())
}

func TestDriver_SecondPageTransportError(t *testing.T) {
	f := &fakeFetcher{total: 4, limit: 2, fail: map[int]error{2: transportErr(2)}}
	d := &Driver{Fetcher: f, Limit: 2}

	res, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Aborted())
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, 1, res.FailedPages)
	assert.Equal(t, 1, res.SuccessfulPages)
	assert.Equal(t, []int{2}, res.SkippedOffsets)
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 2, res.Shortfall())
	assert.False(t, res.Complete())

	ids := []string{res.Submissions[0].ID, res.Submissions[1].ID}
	assert.Equal(t, []string{"p0", "p1"}, ids)
}

func TestDriver_AllButFirstFail(t *testing.T) {
	fail := map[int]error{}
	for off := 10; off < 95; off += 10 {
		fail[off] = transportErr(off)
	}
	f := &fakeFetcher{total: 95, limit: 10, fail: fail}
	d := &Driver{Fetcher: f, Limit: 10}

	res, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, 10, res.Pages)
	assert.Equal(t, res.Pages-1, res.FailedPages)
	assert.Len(t, res.Submissions, 10)
	assert.Len(t, f.calls, 10)
}

func TestDriver_PacingSchedule(t *testing.T) {
	var waits []int
	f := &fakeFetcher{total: 7, limit: 2}
	d := &Driver{Fetcher: f, Limit: 2, Pacer: recordingPacer(&waits)}

	_, err := d.Run(context.Background())
	require.NoError(t, err)
	// Pages at 0,2,4,6: no wait after the first page or after the last;
	// waits precede offsets 4 and 6.
	assert.Equal(t, []int{4, 6}, waits)
}

func TestDriver_SinglePageNoPacing(t *testing.T) {
	var waits []int
	f := &fakeFetcher{total: 3, limit: 25}
	d := &Driver{Fetcher: f, Limit: 25, Pacer: recordingPacer(&waits)}

	res, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Submissions, 3)
	assert.Len(t, f.calls, 1)
	assert.Empty(t, waits)
}

func TestDriver_InterruptedMidRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := &fakeFetcher{total: 10, limit: 2}
	f.onFetch = func(offset int) {
		if offset == 4 {
			cancel()
		}
	}
	d := &Driver{Fetcher: f, Limit: 2}

	res, err := d.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateInterrupted, res.State)
	assert.Len(t, res.Submissions, 4)
	assert.Zero(t, res.FailedPages)
}

func TestDriver_InterruptedDuringPacing(t *testing.T) {
	f := &fakeFetcher{total: 10, limit: 2}
	d := &Driver{
		Fetcher: f,
		Limit:   2,
		Pacer: httputil.Pacer{Sleep: func(context.Context, time.Duration) error {
			return context.Canceled
		}},
	}

	res, err := d.Run(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateInterrupted, res.State)
	assert.Equal(t, []int{0, 2}, f.calls)
}

func TestDriver_MissingIDsCounted(t *testing.T) {
	count := 3
	d := &Driver{Fetcher: fetcherFunc(func(context.Context, int) (*Page, error) {
		return &Page{
			Notes: []RawNote{{"id": "a"}, {"content": map[string]any{"title": "no id"}}, {"id": "c"}},
			Count: &count,
		}, nil
	}), Limit: 25}

	res, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.MissingIDs)
	assert.Len(t, res.Submissions, 3)
	assert.Empty(t, res.Submissions[1].ID)
}

type mockObserver struct{ mock.Mock }

func (m *mockObserver) Started(total, pages int) { m.Called(total, pages) }
func (m *mockObserver) PageDone(ev PageEvent)    { m.Called(ev) }

func TestDriver_NotifiesObserver(t *testing.T) {
	obs := &mockObserver{}
	obs.On("Started", 5, 3).Once()
	obs.On("PageDone", mock.MatchedBy(func(ev PageEvent) bool {
		return ev.Err == nil && ev.Total == 5
	})).Twice()
	obs.On("PageDone", mock.MatchedBy(func(ev PageEvent) bool {
		return ev.Err != nil && ev.Offset == 2 && ev.Obtained == 2
	})).Once()

	f := &fakeFetcher{total: 5, limit: 2, fail: map[int]error{2: transportErr(2)}}
	d := &Driver{Fetcher: f, Limit: 2, Observer: obs}

	_, err := d.Run(context.Background())
	require.NoError(t, err)
	obs.AssertExpectations(t)
}

func TestDriver_EndToEndOverHTTP(t *testing.T) {
	ts := notesServer(t, 4, map[int]bool{2: true})
	defer ts.Close()

	cfg := testAcquisitionConfig(ts.URL)
	d := NewDriver(NewClient(cfg, nil), cfg, nil, nil)

	res, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Aborted())
	assert.Equal(t, 1, res.FailedPages)
	require.Len(t, res.Submissions, 2)
	assert.Equal(t, "n0", res.Submissions[0].ID)
	assert.Equal(t, "Paper 1", res.Submissions[1].Title)
	assert.Equal(t, 1, res.Submissions[1].ReplyCount)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "aborted", StateAborted.String())
	assert.Equal(t, "state(42)", State(42).String())
}

type fetcherFunc func(ctx context.Context, offset int) (*Page, error)

func (f fetcherFunc) FetchPage(ctx context.Context, offset int) (*Page, error) {
	return f(ctx, offset)
}
