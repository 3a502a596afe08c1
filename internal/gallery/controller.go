// Package gallery owns the paginated clip list: which pages have been
// fetched, whether more exist, and which request is currently in flight.
//
// The controller is driven from a single goroutine. Fetching is split out so
// the slow part can run elsewhere:
//
//	req, ok := c.LoadMore()
//	if ok {
//		res := req.Fetch()   // any goroutine
//		c.Apply(res)         // back on the owning goroutine
//	}
package gallery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"clipdeck/internal/model"
)

// PageSize is the number of clips requested per page.
const PageSize = 20

var ErrClosed = errors.New("gallery closed")

// Source returns one page of clips starting at offset.
type Source interface {
	ListClips(ctx context.Context, limit, offset int) (model.ClipPage, error)
}

// Request describes one page fetch issued by the controller.
type Request struct {
	Seq    uint64
	Offset int
	Limit  int
	Append bool

	ctx context.Context
	src Source
}

// Fetch runs the request against its source. It does not touch controller
// state and may be called from any goroutine.
func (r Request) Fetch() Result {
	if r.src == nil || r.ctx == nil {
		return Result{Request: r, Err: fmt.Errorf("fetch page at offset %d: request was not issued by a controller", r.Offset)}
	}
	if err := r.ctx.Err(); err != nil {
		return Result{Request: r, Err: err}
	}
	page, err := r.src.ListClips(r.ctx, r.Limit, r.Offset)
	if err != nil {
		return Result{Request: r, Err: fmt.Errorf("fetch page at offset %d: %w", r.Offset, err)}
	}
	return Result{Request: r, Page: page}
}

// Result is the outcome of a Request, handed back to Apply.
type Result struct {
	Request Request
	Page    model.ClipPage
	Err     error
}

// Failure records the last failed fetch and the phase it interrupted.
type Failure struct {
	Err    error
	During model.Phase
	Offset int
}

func (f Failure) LoadMore() bool {
	return f.During == model.PhaseLoadingMore
}

type inflight struct {
	seq    uint64
	cancel context.CancelFunc
}

type Controller struct {
	src    Source
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	closed bool

	items   []model.Clip
	keys    map[model.ClipKey]struct{}
	cursor  int
	hasMore bool
	phase   model.Phase
	failure *Failure

	seq     uint64
	pending *inflight
}

// New creates an idle controller. Requests it issues derive from parent and
// are cancelled by Close.
func New(parent context.Context, src Source, logger *slog.Logger) *Controller {
	if parent == nil {
		parent = context.Background()
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Controller{
		src:     src,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		keys:    map[model.ClipKey]struct{}{},
		hasMore: true,
	}
}

// InitialLoad discards everything and requests the first page. Any request
// still in flight is cancelled and its result will be ignored.
func (c *Controller) InitialLoad() (Request, bool) {
	if c.closed {
		return Request{}, false
	}
	c.cancelPending()
	c.reset()
	c.failure = nil
	c.hasMore = true
	c.setPhase(model.PhaseInitialLoading)
	return c.issue(0, false), true
}

// Retry starts over from the first page. Only valid in the error phase.
func (c *Controller) Retry() (Request, bool) {
	if c.closed || c.phase != model.PhaseError {
		return Request{}, false
	}
	return c.InitialLoad()
}

// RetryInPlace re-requests the page that failed to append, keeping the
// clips already loaded. Only valid after a failed load-more.
func (c *Controller) RetryInPlace() (Request, bool) {
	if c.closed || c.phase != model.PhaseError || c.failure == nil || !c.failure.LoadMore() {
		return Request{}, false
	}
	c.failure = nil
	c.setPhase(model.PhaseLoadingMore)
	return c.issue(c.cursor, true), true
}

// LoadMore requests the next page. It reports false, and issues nothing,
// while a request is in flight, after an error, or once the list is
// exhausted.
func (c *Controller) LoadMore() (Request, bool) {
	if c.closed || c.pending != nil || !c.hasMore || c.phase != model.PhaseIdle {
		return Request{}, false
	}
	c.setPhase(model.PhaseLoadingMore)
	return c.issue(c.cursor, true), true
}

// Apply folds a fetch result into the list. Results for requests that were
// superseded, or that arrive after Close, are dropped and Apply reports
// false.
func (c *Controller) Apply(res Result) bool {
	if c.closed {
		c.logger.Debug("dropping page result after close", "seq", res.Request.Seq)
		return false
	}
	if c.pending == nil || res.Request.Seq != c.pending.seq {
		c.logger.Debug("dropping stale page result", "seq", res.Request.Seq, "offset", res.Request.Offset)
		return false
	}
	c.pending.cancel()
	c.pending = nil

	if res.Err != nil {
		during := c.phase
		if !res.Request.Append {
			c.reset()
		}
		c.failure = &Failure{Err: res.Err, During: during, Offset: res.Request.Offset}
		c.setPhase(model.PhaseError)
		c.logger.Warn("page fetch failed", "offset", res.Request.Offset, "append", res.Request.Append, "error", res.Err)
		return true
	}

	if !res.Request.Append {
		c.reset()
	}
	clips := res.Page.Clips
	skipped := 0
	for _, clip := range clips {
		k := clip.Key()
		if _, dup := c.keys[k]; dup {
			skipped++
			continue
		}
		c.keys[k] = struct{}{}
		c.items = append(c.items, clip)
	}
	if skipped > 0 {
		c.logger.Warn("skipped duplicate clips", "offset", res.Request.Offset, "count", skipped)
	}

	c.cursor = res.Request.Offset + len(clips)
	if res.Page.HasMore != nil {
		c.hasMore = *res.Page.HasMore
	} else {
		c.hasMore = len(clips) == res.Request.Limit
	}
	// An empty page cannot advance the cursor; asking again would loop.
	if len(clips) == 0 {
		c.hasMore = false
	}
	c.failure = nil
	c.setPhase(model.PhaseIdle)
	c.logger.Debug("page applied", "offset", res.Request.Offset, "received", len(clips), "total", len(c.items), "has_more", c.hasMore)
	return true
}

// Close cancels any in-flight request. The controller ignores everything
// afterwards.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.cancelPending()
	c.cancel()
}

func (c *Controller) Items() []model.Clip {
	out := make([]model.Clip, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Controller) Len() int { return len(c.items) }

func (c *Controller) Item(i int) (model.Clip, bool) {
	if i < 0 || i >= len(c.items) {
		return model.Clip{}, false
	}
	return c.items[i], true
}

func (c *Controller) Cursor() int        { return c.cursor }
func (c *Controller) HasMore() bool      { return c.hasMore }
func (c *Controller) Phase() model.Phase { return c.phase }
func (c *Controller) InFlight() bool     { return c.pending != nil }
func (c *Controller) Closed() bool       { return c.closed }

// Failure returns the last fetch failure while in the error phase.
func (c *Controller) Failure() (Failure, bool) {
	if c.failure == nil {
		return Failure{}, false
	}
	return *c.failure, true
}

// CountLabel renders the clip count badge, e.g. "1 Clip" or "40 Clips+".
func (c *Controller) CountLabel() string {
	n := len(c.items)
	label := fmt.Sprintf("%d Clip", n)
	if n != 1 {
		label += "s"
	}
	if c.hasMore {
		label += "+"
	}
	return label
}

func (c *Controller) issue(offset int, appendPage bool) Request {
	c.seq++
	ctx, cancel := context.WithCancel(c.ctx)
	c.pending = &inflight{seq: c.seq, cancel: cancel}
	return Request{
		Seq:    c.seq,
		Offset: offset,
		Limit:  PageSize,
		Append: appendPage,
		ctx:    ctx,
		src:    c.src,
	}
}

func (c *Controller) cancelPending() {
	if c.pending == nil {
		return
	}
	c.pending.cancel()
	c.pending = nil
}

func (c *Controller) reset() {
	c.items = nil
	c.keys = map[model.ClipKey]struct{}{}
	c.cursor = 0
}

func (c *Controller) setPhase(to model.Phase) {
	if err := model.TransitionPhase(&c.phase, to); err != nil {
		c.logger.Error("forcing gallery phase", "error", err)
		c.phase = to
	}
}
