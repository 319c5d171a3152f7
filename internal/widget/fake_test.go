package widget

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/cotisation-live/internal/live"
	"github.com/Shivanand-hulikatti/cotisation-live/internal/model"
)

// fakeBackend answers from canned values. searchFn, when set, replaces the
// canned search answer and may block.
type fakeBackend struct {
	mu sync.Mutex

	stats    model.Stats
	statsErr error

	searchFn      func(ctx context.Context, q model.SearchQuery) ([]model.ActivitySummary, error)
	searchResults []model.ActivitySummary
	searchErr     error
	searches      []model.SearchQuery

	eligibility model.EligibilityResult
	eligErr     error
	eligCalls   []int64

	status      map[int64]model.StatusResponse
	statusErr   map[int64]error
	statusCalls map[int64]int
}

func (f *fakeBackend) Stats(ctx context.Context) (model.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats, f.statsErr
}

func (f *fakeBackend) Search(ctx context.Context, q model.SearchQuery) ([]model.ActivitySummary, error) {
	f.mu.Lock()
	f.searches = append(f.searches, q)
	fn, results, err := f.searchFn, f.searchResults, f.searchErr
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, q)
	}
	return results, err
}

func (f *fakeBackend) CheckEligibility(ctx context.Context, id int64) (model.EligibilityResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eligCalls = append(f.eligCalls, id)
	return f.eligibility, f.eligErr
}

func (f *fakeBackend) CotisationStatus(ctx context.Context, id int64) (model.StatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusCalls == nil {
		f.statusCalls = map[int64]int{}
	}
	f.statusCalls[id]++
	if err := f.statusErr[id]; err != nil {
		return model.StatusResponse{}, err
	}
	return f.status[id], nil
}

func (f *fakeBackend) searchLog() []model.SearchQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.SearchQuery(nil), f.searches...)
}

func (f *fakeBackend) eligibilityCalls() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.eligCalls...)
}

func (f *fakeBackend) statusCount(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls[id]
}

var testToday = time.Date(2026, 10, 19, 15, 30, 0, 0, time.UTC)

func testOptions() Options {
	return Options{
		SearchDebounce: 30 * time.Millisecond,
		SearchLimit:    12,
		PollInterval:   time.Hour,
		NoticeTTL:      time.Hour,
		LoginURL:       "/web/login",
	}
}

type harness struct {
	t    *testing.T
	w    live.Widget
	loop *live.Loop
	page *live.Recorder
}

func mount(t *testing.T, desc model.PageDescriptor, be Backend, opts Options) *harness {
	t.Helper()
	loop := live.NewLoop()
	t.Cleanup(loop.Close)
	page := &live.Recorder{}
	w, err := Mount("test-session", desc, Deps{
		Backend: be,
		Log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Options: opts,
		Now:     func() time.Time { return testToday },
	}, loop, page)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	h := &harness{t: t, w: w, loop: loop, page: page}
	loop.Do(w.Start)
	return h
}

func (h *harness) send(ev model.Event) {
	h.loop.Do(func() { h.w.Handle(ev) })
}

// waitFor polls cond on the loop until it holds.
func (h *harness) waitFor(what string, cond func() bool) {
	h.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var ok bool
		h.loop.Do(func() { ok = cond() })
		if ok {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	h.t.Fatalf("timed out waiting for %s", what)
}

// settle lets in-flight calls post their results and runs them.
func (h *harness) settle() {
	time.Sleep(20 * time.Millisecond)
	h.loop.Flush()
}

func (h *harness) has(op, target string) bool {
	return len(h.page.Find(op, target)) > 0
}

func (h *harness) htmlContains(op, target, substr string) bool {
	p, ok := h.page.Last(op, target)
	return ok && strings.Contains(string(p.HTML), substr)
}
