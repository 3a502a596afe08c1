package gallery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"clipdeck/internal/model"
)

type call struct {
	limit, offset int
}

type fakeSource struct {
	mu    sync.Mutex
	pages map[int]model.ClipPage
	errs  map[int]error
	calls []call
}

func newFakeSource() *fakeSource {
	return &fakeSource{pages: map[int]model.ClipPage{}, errs: map[int]error{}}
}

func (f *fakeSource) ListClips(ctx context.Context, limit, offset int) (model.ClipPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{limit: limit, offset: offset})
	if err := f.errs[offset]; err != nil {
		return model.ClipPage{}, err
	}
	return f.pages[offset], nil
}

func (f *fakeSource) setPage(offset int, page model.ClipPage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[offset] = page
}

func (f *fakeSource) setErr(offset int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, offset)
		return
	}
	f.errs[offset] = err
}

func clips(job string, from, n int) []model.Clip {
	out := make([]model.Clip, 0, n)
	for i := from; i < from+n; i++ {
		out = append(out, model.Clip{JobID: job, Index: i, URL: fmt.Sprintf("https://cdn/%s/%d.mp4", job, i)})
	}
	return out
}

func boolPtr(v bool) *bool { return &v }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newController(src Source) *Controller {
	return New(context.Background(), src, testLogger())
}

func mustIssue(t *testing.T) func(Request, bool) Request {
	return func(req Request, ok bool) Request {
		t.Helper()
		if !ok {
			t.Fatal("expected a request to be issued")
		}
		return req
	}
}

func TestPagesAccumulateWithoutDuplicates(t *testing.T) {
	src := newFakeSource()
	src.setPage(0, model.ClipPage{Clips: clips("a", 0, 20)})
	src.setPage(20, model.ClipPage{Clips: clips("b", 0, 20)})
	src.setPage(40, model.ClipPage{Clips: clips("c", 0, 7)})
	c := newController(src)

	req := mustIssue(t)(c.InitialLoad())
	c.Apply(req.Fetch())
	for c.HasMore() {
		req, ok := c.LoadMore()
		if !ok {
			t.Fatal("load more refused while idle with more pages")
		}
		c.Apply(req.Fetch())
	}

	if got := c.Len(); got != 47 {
		t.Fatalf("items = %d, want 47", got)
	}
	seen := map[model.ClipKey]bool{}
	for _, clip := range c.Items() {
		if seen[clip.Key()] {
			t.Fatalf("duplicate clip %s", clip.Key())
		}
		seen[clip.Key()] = true
	}
	if c.Cursor() != 47 {
		t.Errorf("cursor = %d, want 47", c.Cursor())
	}
}

func TestDuplicateKeysAcrossPagesAreSkipped(t *testing.T) {
	src := newFakeSource()
	src.setPage(0, model.ClipPage{Clips: clips("a", 0, 20)})
	src.setPage(20, model.ClipPage{Clips: clips("a", 18, 5)})
	c := newController(src)

	c.Apply(mustIssue(t)(c.InitialLoad()).Fetch())
	c.Apply(mustIssue(t)(c.LoadMore()).Fetch())

	if c.Len() != 23 {
		t.Fatalf("items = %d, want 23", c.Len())
	}
	// Cursor follows what the server sent, not what was kept.
	if c.Cursor() != 25 {
		t.Fatalf("cursor = %d, want 25", c.Cursor())
	}
}

func TestShortPageEndsPagination(t *testing.T) {
	src := newFakeSource()
	src.setPage(0, model.ClipPage{Clips: clips("a", 0, 12)})
	c := newController(src)

	c.Apply(mustIssue(t)(c.InitialLoad()).Fetch())
	if c.HasMore() {
		t.Fatal("short page should clear hasMore")
	}
	if _, ok := c.LoadMore(); ok {
		t.Fatal("load more should be gated once exhausted")
	}
	if len(src.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(src.calls))
	}
	if got := c.CountLabel(); got != "12 Clips" {
		t.Errorf("count label = %q", got)
	}
}

func TestExplicitHasMoreWins(t *testing.T) {
	src := newFakeSource()
	src.setPage(0, model.ClipPage{Clips: clips("a", 0, 20), HasMore: boolPtr(true)})
	src.setPage(20, model.ClipPage{Clips: clips("b", 0, 3), HasMore: boolPtr(true)})
	src.setPage(23, model.ClipPage{Clips: clips("c", 0, 20), HasMore: boolPtr(false)})
	c := newController(src)

	c.Apply(mustIssue(t)(c.InitialLoad()).Fetch())
	if !c.HasMore() || c.Cursor() != 20 {
		t.Fatalf("after first page hasMore=%v cursor=%d", c.HasMore(), c.Cursor())
	}
	req := mustIssue(t)(c.LoadMore())
	if req.Offset != 20 {
		t.Fatalf("offset = %d, want 20", req.Offset)
	}
	c.Apply(req.Fetch())
	if !c.HasMore() || c.Cursor() != 23 {
		t.Fatalf("explicit has_more=true on short page: hasMore=%v cursor=%d", c.HasMore(), c.Cursor())
	}
	req = mustIssue(t)(c.LoadMore())
	if req.Offset != 23 {
		t.Fatalf("offset = %d, want 23", req.Offset)
	}
	c.Apply(req.Fetch())
	if c.HasMore() {
		t.Fatal("explicit has_more=false on full page should stop")
	}
	if got := c.CountLabel(); got != "43 Clips" {
		t.Errorf("count label = %q", got)
	}
}

func TestEmptyPageWithHasMoreStops(t *testing.T) {
	src := newFakeSource()
	src.setPage(0, model.ClipPage{Clips: clips("a", 0, 20)})
	src.setPage(20, model.ClipPage{Clips: nil, HasMore: boolPtr(true)})
	c := newController(src)

	c.Apply(mustIssue(t)(c.InitialLoad()).Fetch())
	c.Apply(mustIssue(t)(c.LoadMore()).Fetch())
	if c.HasMore() {
		t.Fatal("empty page must end pagination")
	}
	if _, ok := c.LoadMore(); ok {
		t.Fatal("load more should be gated")
	}
}

func TestSingleRequestInFlight(t *testing.T) {
	src := newFakeSource()
	src.setPage(0, model.ClipPage{Clips: clips("a", 0, 20)})
	src.setPage(20, model.ClipPage{Clips: clips("b", 0, 20)})
	c := newController(src)

	if _, ok := c.LoadMore(); ok {
		t.Fatal("load more before initial load should be refused")
	}
	first := mustIssue(t)(c.InitialLoad())
	if _, ok := c.LoadMore(); ok {
		t.Fatal("load more during initial load should be refused")
	}
	c.Apply(first.Fetch())

	req := mustIssue(t)(c.LoadMore())
	for i := 0; i < 5; i++ {
		if _, ok := c.LoadMore(); ok {
			t.Fatalf("trigger %d issued a second concurrent request", i)
		}
	}
	if !c.InFlight() {
		t.Fatal("expected request in flight")
	}
	c.Apply(req.Fetch())
	if c.InFlight() {
		t.Fatal("request should be settled")
	}
	if len(src.calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(src.calls))
	}
}

func TestInferredHasMoreScenario(t *testing.T) {
	src := newFakeSource()
	src.setPage(0, model.ClipPage{Clips: clips("a", 0, 20)})
	src.setPage(20, model.ClipPage{Clips: clips("a", 20, 5)})
	c := newController(src)

	c.Apply(mustIssue(t)(c.InitialLoad()).Fetch())
	if !c.HasMore() || c.Cursor() != 20 {
		t.Fatalf("hasMore=%v cursor=%d, want true 20", c.HasMore(), c.Cursor())
	}
	if got := c.CountLabel(); got != "20 Clips+" {
		t.Errorf("count label = %q", got)
	}
	req := mustIssue(t)(c.LoadMore())
	if req.Offset != 20 || req.Limit != PageSize {
		t.Fatalf("request = %+v", req)
	}
	c.Apply(req.Fetch())
	if c.Len() != 25 || c.HasMore() {
		t.Fatalf("items=%d hasMore=%v, want 25 false", c.Len(), c.HasMore())
	}
}

func TestInitialFailureThenRetry(t *testing.T) {
	src := newFakeSource()
	netErr := errors.New("connection refused")
	src.setErr(0, netErr)
	c := newController(src)

	c.Apply(mustIssue(t)(c.InitialLoad()).Fetch())
	if c.Phase() != model.PhaseError {
		t.Fatalf("phase = %q", c.Phase())
	}
	if c.Len() != 0 {
		t.Fatalf("items = %d, want 0", c.Len())
	}
	f, ok := c.Failure()
	if !ok || !errors.Is(f.Err, netErr) || f.LoadMore() {
		t.Fatalf("failure = %+v ok=%v", f, ok)
	}
	if _, ok := c.RetryInPlace(); ok {
		t.Fatal("retry in place is only for failed load-more")
	}
	if _, ok := c.LoadMore(); ok {
		t.Fatal("load more should be gated in error phase")
	}

	src.setErr(0, nil)
	src.setPage(0, model.ClipPage{Clips: clips("a", 0, 4)})
	req := mustIssue(t)(c.Retry())
	if req.Offset != 0 || req.Append {
		t.Fatalf("retry request = %+v", req)
	}
	c.Apply(req.Fetch())
	if c.Phase() != model.PhaseIdle || c.Len() != 4 {
		t.Fatalf("phase=%q items=%d", c.Phase(), c.Len())
	}
	if _, ok := c.Failure(); ok {
		t.Fatal("failure should be cleared")
	}
}

func TestRetryDiscardsPriorItems(t *testing.T) {
	src := newFakeSource()
	src.setPage(0, model.ClipPage{Clips: clips("a", 0, 20)})
	src.setErr(20, errors.New("boom"))
	c := newController(src)

	c.Apply(mustIssue(t)(c.InitialLoad()).Fetch())
	c.Apply(mustIssue(t)(c.LoadMore()).Fetch())
	if c.Phase() != model.PhaseError || c.Len() != 20 {
		t.Fatalf("phase=%q items=%d", c.Phase(), c.Len())
	}

	src.setPage(0, model.ClipPage{Clips: clips("fresh", 0, 2)})
	req := mustIssue(t)(c.Retry())
	if c.Len() != 0 || c.Cursor() != 0 {
		t.Fatalf("retry should reset state, items=%d cursor=%d", c.Len(), c.Cursor())
	}
	c.Apply(req.Fetch())
	items := c.Items()
	if len(items) != 2 || items[0].JobID != "fresh" {
		t.Fatalf("items = %+v", items)
	}
}

func TestLoadMoreFailureKeepsItemsAndRetriesInPlace(t *testing.T) {
	src := newFakeSource()
	src.setPage(0, model.ClipPage{Clips: clips("a", 0, 20)})
	src.setErr(20, errors.New("timeout"))
	c := newController(src)

	c.Apply(mustIssue(t)(c.InitialLoad()).Fetch())
	c.Apply(mustIssue(t)(c.LoadMore()).Fetch())

	f, ok := c.Failure()
	if !ok || !f.LoadMore() || f.Offset != 20 {
		t.Fatalf("failure = %+v ok=%v", f, ok)
	}
	if c.Len() != 20 {
		t.Fatalf("items = %d, want 20 kept", c.Len())
	}

	src.setErr(20, nil)
	src.setPage(20, model.ClipPage{Clips: clips("a", 20, 3)})
	req := mustIssue(t)(c.RetryInPlace())
	if req.Offset != 20 || !req.Append {
		t.Fatalf("request = %+v", req)
	}
	if c.Phase() != model.PhaseLoadingMore {
		t.Fatalf("phase = %q", c.Phase())
	}
	c.Apply(req.Fetch())
	if c.Len() != 23 || c.HasMore() {
		t.Fatalf("items=%d hasMore=%v", c.Len(), c.HasMore())
	}
}

func TestStaleResultDropped(t *testing.T) {
	src := newFakeSource()
	src.setPage(0, model.ClipPage{Clips: clips("old", 0, 20)})
	c := newController(src)

	stale := mustIssue(t)(c.InitialLoad())
	fresh := mustIssue(t)(c.InitialLoad())
	if stale.ctx.Err() == nil {
		t.Fatal("superseded request context should be cancelled")
	}

	if c.Apply(stale.Fetch()) {
		t.Fatal("stale result applied")
	}
	if c.Phase() != model.PhaseInitialLoading {
		t.Fatalf("phase = %q", c.Phase())
	}
	src.setPage(0, model.ClipPage{Clips: clips("new", 0, 1)})
	if !c.Apply(fresh.Fetch()) {
		t.Fatal("fresh result dropped")
	}
	if items := c.Items(); len(items) != 1 || items[0].JobID != "new" {
		t.Fatalf("items = %+v", items)
	}
	if c.Apply(fresh.Fetch()) {
		t.Fatal("result applied twice")
	}
}

func TestCloseCancelsAndDrops(t *testing.T) {
	src := newFakeSource()
	src.setPage(0, model.ClipPage{Clips: clips("a", 0, 20)})
	c := newController(src)

	req := mustIssue(t)(c.InitialLoad())
	c.Close()
	if req.ctx.Err() == nil {
		t.Fatal("close should cancel the in-flight request")
	}
	res := req.Fetch()
	if !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("fetch after close err = %v", res.Err)
	}
	if c.Apply(res) {
		t.Fatal("result applied after close")
	}
	if _, ok := c.InitialLoad(); ok {
		t.Fatal("closed controller issued a request")
	}
	if len(src.calls) != 0 {
		t.Fatalf("source called %d times", len(src.calls))
	}
	c.Close()
}

func TestParentCancelPropagates(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	c := New(parent, newFakeSource(), testLogger())
	req := mustIssue(t)(c.InitialLoad())
	cancel()
	if req.ctx.Err() == nil {
		t.Fatal("request context should follow parent")
	}
}

func TestCountLabelSingular(t *testing.T) {
	src := newFakeSource()
	src.setPage(0, model.ClipPage{Clips: clips("a", 0, 1)})
	c := newController(src)
	c.Apply(mustIssue(t)(c.InitialLoad()).Fetch())
	if got := c.CountLabel(); got != "1 Clip" {
		t.Fatalf("count label = %q", got)
	}
}

func TestLoadAll(t *testing.T) {
	src := newFakeSource()
	src.setPage(0, model.ClipPage{Clips: clips("a", 0, 20)})
	src.setPage(20, model.ClipPage{Clips: clips("a", 20, 20)})
	src.setPage(40, model.ClipPage{Clips: clips("a", 40, 1)})

	c := newController(src)
	if err := LoadAll(c, 0); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if c.Len() != 41 {
		t.Fatalf("items = %d", c.Len())
	}

	c = newController(src)
	if err := LoadAll(c, 2); err != nil {
		t.Fatalf("LoadAll limited: %v", err)
	}
	if c.Len() != 40 || !c.HasMore() {
		t.Fatalf("items=%d hasMore=%v", c.Len(), c.HasMore())
	}

	src.setErr(20, errors.New("down"))
	c = newController(src)
	if err := LoadAll(c, 0); err == nil {
		t.Fatal("expected error")
	}
}
