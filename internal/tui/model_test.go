package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"clipdeck/internal/api"
	"clipdeck/internal/card"
	"clipdeck/internal/model"
)

type fakeSource struct {
	mu    sync.Mutex
	total int
	fail  map[int]error
	calls []int
}

func (f *fakeSource) ListClips(ctx context.Context, limit, offset int) (model.ClipPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, offset)
	if err := f.fail[offset]; err != nil {
		return model.ClipPage{}, err
	}
	var clips []model.Clip
	for i := offset; i < offset+limit && i < f.total; i++ {
		clips = append(clips, model.Clip{
			JobID:      "job",
			Index:      i,
			URL:        fmt.Sprintf("https://cdn/job/%d.mp4", i),
			Title:      fmt.Sprintf("Title %d", i),
			TiktokDesc: fmt.Sprintf("Caption %d", i),
			Duration:   12.5,
		})
	}
	return model.ClipPage{Clips: clips}, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeProber struct {
	mu   sync.Mutex
	urls []string
}

func (p *fakeProber) ProbeMedia(ctx context.Context, url string) (api.MediaInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.urls = append(p.urls, url)
	return api.MediaInfo{ContentType: "video/mp4", Size: 2048}, nil
}

type fakeClipboard struct {
	mu    sync.Mutex
	texts []string
}

func (c *fakeClipboard) WriteText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, text)
	return nil
}

type fakeHooks struct {
	err  error
	reqs []model.HookRequest
}

func (h *fakeHooks) SubmitHook(ctx context.Context, req model.HookRequest) (model.HookResult, error) {
	h.reqs = append(h.reqs, req)
	if h.err != nil {
		return model.HookResult{}, h.err
	}
	return model.HookResult{URL: "https://cdn/hooked.mp4"}, nil
}

// run executes cmd and returns the messages it produced. Commands that do
// not finish promptly, such as ticks, are abandoned.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		switch msg := msg.(type) {
		case nil:
			return nil
		case tea.BatchMsg:
			var out []tea.Msg
			for _, c := range msg {
				out = append(out, run(c)...)
			}
			return out
		case spinner.TickMsg:
			return nil
		default:
			return []tea.Msg{msg}
		}
	case <-time.After(200 * time.Millisecond):
		return nil
	}
}

// settle feeds the messages produced by cmd back into the model until no
// more arrive.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := run(cmd)
	for i := 0; len(queue) > 0; i++ {
		if i > 100 {
			t.Fatal("model did not settle")
		}
		msg := queue[0]
		queue = queue[1:]
		next, c := m.Update(msg)
		m = next.(Model)
		queue = append(queue, run(c)...)
	}
	return m
}

func press(t *testing.T, m Model, key string) Model {
	t.Helper()
	var msg tea.KeyMsg
	switch key {
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+s":
		msg = tea.KeyMsg{Type: tea.KeyCtrlS}
	case "right":
		msg = tea.KeyMsg{Type: tea.KeyRight}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, cmd := m.Update(msg)
	return settle(t, next.(Model), cmd)
}

type fixture struct {
	src       *fakeSource
	prober    *fakeProber
	clipboard *fakeClipboard
	hooks     *fakeHooks
}

func newTestModel(t *testing.T, total int) (Model, *fixture) {
	t.Helper()
	fx := &fixture{
		src:       &fakeSource{total: total, fail: map[int]error{}},
		prober:    &fakeProber{},
		clipboard: &fakeClipboard{},
		hooks:     &fakeHooks{},
	}
	m := New(context.Background(), Options{
		Source:       fx.src,
		Prober:       fx.prober,
		Hooks:        fx.hooks,
		Clipboard:    fx.clipboard,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		RevealMargin: 2,
	})
	next, cmd := m.Update(tea.WindowSizeMsg{Width: 100, Height: 29})
	m = settle(t, next.(Model), cmd)
	m = settle(t, m, m.Init())
	t.Cleanup(m.shutdown)
	return m, fx
}

func TestInitialLoadRevealsOnlyNearbyCards(t *testing.T) {
	m, fx := newTestModel(t, 50)

	if len(m.cards) != 20 {
		t.Fatalf("cards = %d, want 20", len(m.cards))
	}
	// 24 body rows with a 2 row margin reach into the fifth card.
	revealed := 0
	for _, c := range m.cards {
		if c.Revealed() {
			revealed++
		}
	}
	if revealed != 5 {
		t.Fatalf("revealed = %d, want 5", revealed)
	}
	if len(fx.prober.urls) != 5 {
		t.Fatalf("probes = %d, want 5", len(fx.prober.urls))
	}
	if got := m.cards[0].Media(); got.State != card.MediaReady || got.Size != 2048 {
		t.Fatalf("media = %+v", got)
	}
	if fx.src.callCount() != 1 {
		t.Fatalf("source calls = %d, want 1", fx.src.callCount())
	}
	if !strings.Contains(m.View(), "20 Clips+") {
		t.Fatal("expected count badge in view")
	}
}

func TestScrollingToEndLoadsNextPageOnce(t *testing.T) {
	m, fx := newTestModel(t, 25)

	for i := 0; i < 19; i++ {
		m = press(t, m, "j")
	}
	if fx.src.callCount() != 2 {
		t.Fatalf("source calls = %d, want 2", fx.src.callCount())
	}
	if len(m.cards) != 25 {
		t.Fatalf("cards = %d, want 25", len(m.cards))
	}
	if m.ctrl.HasMore() {
		t.Fatal("short page should end pagination")
	}
	for i := 0; i < 10; i++ {
		m = press(t, m, "j")
	}
	if fx.src.callCount() != 2 {
		t.Fatalf("exhausted gallery fetched again: %d calls", fx.src.callCount())
	}
	if !strings.Contains(m.View(), "end of gallery") {
		t.Fatal("expected end marker")
	}
}

func TestRevealedCardsStayRevealed(t *testing.T) {
	m, _ := newTestModel(t, 40)
	first := m.cards[0]
	for i := 0; i < 15; i++ {
		m = press(t, m, "j")
	}
	for i := 0; i < 15; i++ {
		m = press(t, m, "k")
	}
	if !first.Revealed() {
		t.Fatal("card reverted to hidden after scrolling away")
	}
	if m.cards[0] != first {
		t.Fatal("card state lost across pages")
	}
}

func TestCopyMarksOnlyLatestField(t *testing.T) {
	m, fx := newTestModel(t, 3)

	m = press(t, m, "y")
	m = press(t, m, "c")
	c := m.cards[0]
	if c.Copied(card.FieldTitle) || !c.Copied(card.FieldCaption) {
		t.Fatalf("copied = %q, want caption only", c.CopiedField())
	}
	fx.clipboard.mu.Lock()
	texts := append([]string(nil), fx.clipboard.texts...)
	fx.clipboard.mu.Unlock()
	if len(texts) != 2 || texts[0] != "Title 0" || texts[1] != "Caption 0" {
		t.Fatalf("clipboard = %q", texts)
	}

	// The revert scheduled by the first copy must not clear the second.
	next, _ := m.Update(copyExpiredMsg{key: c.Clip.Key().String(), token: 1})
	m = next.(Model)
	if !c.Copied(card.FieldCaption) {
		t.Fatal("stale revert cleared the caption indicator")
	}
	next, _ = m.Update(copyExpiredMsg{key: c.Clip.Key().String(), token: 2})
	m = next.(Model)
	if c.CopiedField() != "" {
		t.Fatal("current revert should clear the indicator")
	}
}

func TestInitialErrorThenRetry(t *testing.T) {
	src := &fakeSource{total: 3, fail: map[int]error{0: errors.New("connection refused")}}
	m := New(context.Background(), Options{Source: src, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	defer m.shutdown()
	next, cmd := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = settle(t, next.(Model), cmd)
	m = settle(t, m, m.Init())

	if m.ctrl.Phase() != model.PhaseError {
		t.Fatalf("phase = %q", m.ctrl.Phase())
	}
	if !strings.Contains(m.View(), "Error loading gallery") {
		t.Fatal("expected full-screen error")
	}

	src.mu.Lock()
	delete(src.fail, 0)
	src.mu.Unlock()
	m = press(t, m, "r")
	if len(m.cards) != 3 || m.ctrl.Phase() != model.PhaseIdle {
		t.Fatalf("cards=%d phase=%q", len(m.cards), m.ctrl.Phase())
	}
}

func TestLoadMoreErrorIsInlineAndRetriesInPlace(t *testing.T) {
	m, fx := newTestModel(t, 30)
	fx.src.mu.Lock()
	fx.src.fail[20] = errors.New("gateway timeout")
	fx.src.mu.Unlock()

	for i := 0; i < 19; i++ {
		m = press(t, m, "j")
	}
	if len(m.cards) != 20 {
		t.Fatalf("cards = %d, want 20 kept", len(m.cards))
	}
	view := m.View()
	if !strings.Contains(view, "Could not load more clips") || strings.Contains(view, "Error loading gallery") {
		t.Fatalf("expected inline load-more error, got:\n%s", view)
	}

	fx.src.mu.Lock()
	delete(fx.src.fail, 20)
	fx.src.mu.Unlock()
	m = press(t, m, "r")
	if len(m.cards) != 30 {
		t.Fatalf("cards = %d, want 30", len(m.cards))
	}
	if m.cursor != 19 {
		t.Fatalf("cursor moved to %d", m.cursor)
	}
}

func TestHookModalSubmit(t *testing.T) {
	m, fx := newTestModel(t, 2)

	m = press(t, m, "h")
	if m.mode != modeHook || m.modal == nil {
		t.Fatal("expected hook modal")
	}
	if m.modal.form.Text != "POV: You are using the viral hook feature" {
		t.Fatalf("default text = %q", m.modal.form.Text)
	}
	m = press(t, m, "tab")
	m = press(t, m, "right")
	if m.modal.form.Position != model.HookCenter {
		t.Fatalf("position = %q", m.modal.form.Position)
	}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	m = next.(Model)
	if !m.modal.form.Processing {
		t.Fatal("expected processing while request runs")
	}
	m = settle(t, m, cmd)
	if m.mode != modeBrowse || m.modal != nil {
		t.Fatal("modal should close after success")
	}
	if len(fx.hooks.reqs) != 1 || fx.hooks.reqs[0].Position != model.HookCenter || fx.hooks.reqs[0].JobID != "job" {
		t.Fatalf("requests = %+v", fx.hooks.reqs)
	}
	if !strings.Contains(m.status, "hook ready") {
		t.Fatalf("status = %q", m.status)
	}
}

func TestHookModalBlankTextCannotSubmit(t *testing.T) {
	m, fx := newTestModel(t, 1)
	m = press(t, m, "h")
	m.modal.text.SetValue("   ")
	m.modal.form.Text = "   "

	m = press(t, m, "ctrl+s")
	if len(fx.hooks.reqs) != 0 {
		t.Fatal("blank hook was submitted")
	}
	if m.modal.form.Processing {
		t.Fatal("blank submit should not start processing")
	}
}

func TestHookModalErrorStaysOpen(t *testing.T) {
	m, fx := newTestModel(t, 1)
	fx.hooks.err = errors.New("HTTP 500")
	m = press(t, m, "h")
	m = press(t, m, "ctrl+s")
	if m.modal == nil || m.modal.err == "" || m.modal.form.Processing {
		t.Fatalf("modal = %+v", m.modal)
	}
	m = press(t, m, "esc")
	if m.mode != modeBrowse || m.modal != nil {
		t.Fatal("esc should close the modal")
	}
}

func TestEmptyGallery(t *testing.T) {
	m, _ := newTestModel(t, 0)
	view := m.View()
	if !strings.Contains(view, "No clips found yet.") || !strings.Contains(view, "0 Clips") {
		t.Fatalf("view = %s", view)
	}
}

func TestQuitClosesController(t *testing.T) {
	m, _ := newTestModel(t, 1)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m = next.(Model)
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if !m.ctrl.Closed() || m.ctx.Err() == nil {
		t.Fatal("quit should close the controller and cancel the context")
	}
}
