// Package tui is the interactive gallery: a scrolling list of clip cards
// that loads pages as the user nears the end, plus the hook overlay modal.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"clipdeck/internal/api"
	"clipdeck/internal/card"
	"clipdeck/internal/download"
	"clipdeck/internal/gallery"
	"clipdeck/internal/model"
	"clipdeck/internal/viewport"
)

// Every card takes the same number of rows: a border plus four lines.
const cardHeight = 6

const sentinelID = "load-more"

type Prober interface {
	ProbeMedia(ctx context.Context, url string) (api.MediaInfo, error)
}

type HookSubmitter interface {
	SubmitHook(ctx context.Context, req model.HookRequest) (model.HookResult, error)
}

type Options struct {
	Source      gallery.Source
	SourceLabel string
	Prober      Prober
	Hooks       HookSubmitter
	Downloads   *download.Service
	Clipboard   card.Clipboard
	Logger      *slog.Logger
	// RevealMargin is how many rows outside the screen still count as near.
	RevealMargin int
}

type mode int

const (
	modeBrowse mode = iota
	modeHook
)

type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	ctrl      *gallery.Controller
	cards     []*card.Card
	byKey     map[string]*card.Card
	observer  *viewport.Observer
	prober    Prober
	hooks     HookSubmitter
	downloads *download.Service
	clipboard card.Clipboard
	logger    *slog.Logger
	source    string

	cursor int
	scroll int
	width  int
	height int

	mode        mode
	modal       *hookModal
	spinner     spinner.Model
	status      string
	downloading map[string]bool
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	badgeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Padding(0, 1)
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	selPanelStyle = panelStyle.BorderForeground(lipgloss.Color("212"))
)

// New builds the gallery model. The returned model owns a context that is
// cancelled when the user quits.
func New(parent context.Context, opts Options) Model {
	if parent == nil {
		parent = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(parent)
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		ctx:         ctx,
		cancel:      cancel,
		ctrl:        gallery.New(ctx, opts.Source, logger.With("component", "gallery")),
		byKey:       map[string]*card.Card{},
		observer:    viewport.New(opts.RevealMargin),
		prober:      opts.Prober,
		hooks:       opts.Hooks,
		downloads:   opts.Downloads,
		clipboard:   opts.Clipboard,
		logger:      logger.With("component", "tui"),
		source:      opts.SourceLabel,
		spinner:     sp,
		downloading: map[string]bool{},
	}
}

// Run shows the gallery until the user quits.
func Run(ctx context.Context, opts Options) error {
	m := New(ctx, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.shutdown()
	} else {
		m.shutdown()
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		if strings.Contains(strings.ToLower(err.Error()), "tty") {
			return errors.New("gallery requires an interactive terminal (TTY)")
		}
		return err
	}
	return nil
}

func (m Model) Init() tea.Cmd {
	load := m.reload()
	return tea.Batch(load, m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.modal != nil {
			m.modal.resize(m.width)
		}
		m.ensureVisible()
		cmd := m.syncViewport()
		return m, cmd
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case pageMsg:
		if !m.ctrl.Apply(msg.res) {
			return m, nil
		}
		m.syncCards()
		if m.cursor >= len(m.cards) {
			m.cursor = max(len(m.cards)-1, 0)
		}
		m.ensureVisible()
		cmd := m.syncViewport()
		return m, cmd
	case probeMsg:
		if c, ok := m.byKey[msg.key]; ok {
			c.SetMedia(msg.info.ContentType, msg.info.Size, msg.err)
			if msg.err != nil {
				m.logger.Warn("media probe failed", "clip", msg.key, "error", msg.err)
			}
		}
		return m, nil
	case clipboardMsg:
		if msg.err != nil {
			m.logger.Warn("clipboard write failed", "field", msg.field, "error", msg.err)
		}
		return m, nil
	case copyExpiredMsg:
		if c, ok := m.byKey[msg.key]; ok {
			c.ExpireCopy(msg.token)
		}
		return m, nil
	case downloadMsg:
		delete(m.downloading, msg.key)
		m.status = downloadStatus(msg.outcome)
		return m, nil
	case hookMsg:
		return m.applyHookResult(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch m.mode {
	case modeHook:
		return m.updateHook(keyMsg)
	default:
		return m.updateBrowse(keyMsg)
	}
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.shutdown()
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.cards)-1 {
			m.cursor++
		}
	case "pgup":
		m.cursor = max(m.cursor-m.cardsPerView(), 0)
	case "pgdown", " ":
		m.cursor = min(m.cursor+m.cardsPerView(), max(len(m.cards)-1, 0))
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = max(len(m.cards)-1, 0)
	case "y":
		return m.copyField(card.FieldTitle)
	case "c":
		return m.copyField(card.FieldCaption)
	case "d":
		return m.startDownload()
	case "h", "enter":
		return m.openHook()
	case "r":
		return m.retry()
	case "R":
		m.status = "reloading gallery..."
		cmd := m.reload()
		return m, cmd
	default:
		return m, nil
	}
	m.ensureVisible()
	cmd := m.syncViewport()
	return m, cmd
}

func (m Model) selected() (*card.Card, bool) {
	if m.cursor < 0 || m.cursor >= len(m.cards) {
		return nil, false
	}
	return m.cards[m.cursor], true
}

func (m Model) copyField(field string) (tea.Model, tea.Cmd) {
	c, ok := m.selected()
	if !ok {
		return m, nil
	}
	text := c.CopyText(field)
	if strings.TrimSpace(text) == "" {
		m.status = "nothing to copy"
		return m, nil
	}
	token := c.MarkCopied(field)
	key := c.Clip.Key().String()
	cmds := []tea.Cmd{copyExpireCmd(key, token)}
	if m.clipboard != nil {
		cmds = append(cmds, clipboardCmd(m.clipboard, field, text))
	}
	return m, tea.Batch(cmds...)
}

func (m Model) startDownload() (tea.Model, tea.Cmd) {
	c, ok := m.selected()
	if !ok || m.downloads == nil {
		return m, nil
	}
	key := c.Clip.Key().String()
	if m.downloading[key] {
		m.status = "already downloading " + c.Clip.DownloadName()
		return m, nil
	}
	m.downloading[key] = true
	m.status = "downloading " + c.Clip.DownloadName() + "..."
	return m, downloadCmd(m.ctx, m.downloads, key, c.Clip)
}

func downloadStatus(o download.Outcome) string {
	name := o.Clip.DownloadName()
	switch {
	case o.Err == nil:
		return fmt.Sprintf("saved %s (%s)", o.Path, download.FormatBytes(o.Bytes))
	case o.FellBack && o.OpenErr == nil:
		return "download failed, opened " + name + " in browser"
	case errors.Is(o.Err, context.Canceled):
		return "download cancelled: " + name
	default:
		return "error: download " + name + ": " + o.Err.Error()
	}
}

func (m Model) retry() (tea.Model, tea.Cmd) {
	f, failed := m.ctrl.Failure()
	if !failed {
		return m, nil
	}
	if f.LoadMore() {
		req, ok := m.ctrl.RetryInPlace()
		if !ok {
			return m, nil
		}
		m.status = "retrying..."
		return m, fetchPageCmd(req)
	}
	m.resetCards()
	req, ok := m.ctrl.Retry()
	if !ok {
		return m, nil
	}
	m.status = ""
	return m, fetchPageCmd(req)
}

// reload throws away every card and starts again from the first page.
func (m *Model) reload() tea.Cmd {
	m.resetCards()
	req, ok := m.ctrl.InitialLoad()
	if !ok {
		return nil
	}
	return fetchPageCmd(req)
}

func (m *Model) resetCards() {
	for _, c := range m.cards {
		m.observer.Unobserve(c.Clip.Key().String())
	}
	m.observer.Unobserve(sentinelID)
	m.cards = nil
	m.byKey = map[string]*card.Card{}
	m.cursor = 0
	m.scroll = 0
}

// syncCards mirrors the controller's items into cards, keeping existing
// cards so their reveal and copy state survive.
func (m *Model) syncCards() {
	items := m.ctrl.Items()
	cards := make([]*card.Card, 0, len(items))
	seen := make(map[string]*card.Card, len(items))
	for i, clip := range items {
		key := clip.Key().String()
		rect := viewport.Rect{Top: i * cardHeight, Height: cardHeight}
		c, ok := m.byKey[key]
		if ok {
			if !c.Revealed() {
				m.observer.Move(key, rect)
			}
		} else {
			c = card.New(clip)
			m.observer.Observe(key, rect, true)
		}
		cards = append(cards, c)
		seen[key] = c
	}
	for key := range m.byKey {
		if _, ok := seen[key]; !ok {
			m.observer.Unobserve(key)
		}
	}
	m.cards = cards
	m.byKey = seen

	if m.ctrl.HasMore() {
		m.observer.Observe(sentinelID, viewport.Rect{Top: len(cards) * cardHeight, Height: 1}, false)
	} else {
		m.observer.Unobserve(sentinelID)
	}
}

// syncViewport points the observer at the visible rows and acts on what
// came into range: cards reveal and probe their media, the sentinel asks
// for the next page.
func (m *Model) syncViewport() tea.Cmd {
	if m.height <= 0 {
		return nil
	}
	m.observer.SetWindow(viewport.Rect{Top: m.scroll * cardHeight, Height: m.bodyHeight()})
	var cmds []tea.Cmd
	for _, id := range m.observer.Check() {
		if id == sentinelID {
			if req, ok := m.ctrl.LoadMore(); ok {
				cmds = append(cmds, fetchPageCmd(req))
			}
			continue
		}
		c, ok := m.byKey[id]
		if !ok || !c.Reveal() {
			continue
		}
		if cmd := probeCmd(m.ctx, m.prober, id, c.Clip.URL); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return tea.Batch(cmds...)
}

func (m *Model) ensureVisible() {
	per := m.cardsPerView()
	if m.cursor < m.scroll {
		m.scroll = m.cursor
	}
	if m.cursor >= m.scroll+per {
		m.scroll = m.cursor - per + 1
	}
	if m.scroll < 0 {
		m.scroll = 0
	}
}

func (m Model) bodyHeight() int {
	// header (2) + count line (1) + footer (2)
	return max(m.height-5, cardHeight)
}

func (m Model) cardsPerView() int {
	return max(m.bodyHeight()/cardHeight, 1)
}

func (m *Model) shutdown() {
	m.ctrl.Close()
	m.cancel()
}
