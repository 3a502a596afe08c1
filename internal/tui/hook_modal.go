package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"clipdeck/internal/hook"
	"clipdeck/internal/model"
)

type hookFocus int

const (
	focusText hookFocus = iota
	focusPosition
	focusSize
	focusSubmit
	hookFocusCount
)

const (
	previewWidth  = 30
	previewHeight = 24
)

var (
	overlayStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("16")).Background(lipgloss.Color("255")).Bold(true)
	previewStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238"))
	choiceStyle   = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245"))
	chosenStyle   = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("16")).Background(lipgloss.Color("255")).Bold(true)
	submitStyle   = lipgloss.NewStyle().Padding(0, 2).Foreground(lipgloss.Color("16")).Background(lipgloss.Color("214")).Bold(true)
	disabledStyle = lipgloss.NewStyle().Padding(0, 2).Foreground(lipgloss.Color("240")).Background(lipgloss.Color("236"))
)

type hookModal struct {
	clip  model.Clip
	key   string
	form  hook.Form
	text  textarea.Model
	focus hookFocus
	err   string
}

func newHookModal(clip model.Clip, width int) *hookModal {
	ta := textarea.New()
	ta.Placeholder = hook.Placeholder
	ta.ShowLineNumbers = false
	ta.CharLimit = 280
	ta.SetHeight(4)
	form := hook.NewForm("")
	ta.SetValue(form.Text)
	ta.Focus()
	hm := &hookModal{clip: clip, key: clip.Key().String(), form: form, text: ta}
	hm.resize(width)
	return hm
}

func (h *hookModal) resize(width int) {
	h.text.SetWidth(min(max(width-previewWidth-12, 20), 60))
}

func (h *hookModal) setFocus(f hookFocus) {
	h.focus = (f + hookFocusCount) % hookFocusCount
	if h.focus == focusText {
		h.text.Focus()
	} else {
		h.text.Blur()
	}
}

func (m Model) openHook() (tea.Model, tea.Cmd) {
	c, ok := m.selected()
	if !ok || m.hooks == nil {
		return m, nil
	}
	if m.modal == nil || m.modal.key != c.Clip.Key().String() {
		m.modal = newHookModal(c.Clip, m.width)
	}
	m.mode = modeHook
	return m, nil
}

func (m Model) updateHook(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	h := m.modal
	if h == nil {
		m.mode = modeBrowse
		return m, nil
	}
	switch msg.String() {
	case "esc":
		m.mode = modeBrowse
		if !h.form.Processing {
			m.modal = nil
		}
		return m, nil
	case "ctrl+c":
		m.shutdown()
		return m, tea.Quit
	case "tab":
		h.setFocus(h.focus + 1)
		return m, nil
	case "shift+tab":
		h.setFocus(h.focus - 1)
		return m, nil
	case "ctrl+s":
		return m.submitHook()
	}

	switch h.focus {
	case focusText:
		if h.form.Processing {
			return m, nil
		}
		var cmd tea.Cmd
		h.text, cmd = h.text.Update(msg)
		h.form.Text = h.text.Value()
		return m, cmd
	case focusPosition, focusSize:
		delta := 0
		switch msg.String() {
		case "left", "h":
			delta = -1
		case "right", "l", " ":
			delta = 1
		case "enter":
			h.setFocus(h.focus + 1)
		}
		if delta != 0 && !h.form.Processing {
			if h.focus == focusPosition {
				h.form.CyclePosition(delta)
			} else {
				h.form.CycleSize(delta)
			}
		}
		return m, nil
	case focusSubmit:
		if msg.String() == "enter" || msg.String() == " " {
			return m.submitHook()
		}
	}
	return m, nil
}

func (m Model) submitHook() (tea.Model, tea.Cmd) {
	h := m.modal
	if h == nil || !h.form.CanSubmit() {
		return m, nil
	}
	req, err := h.form.Request(h.clip)
	if err != nil {
		h.err = err.Error()
		return m, nil
	}
	h.err = ""
	h.form.Processing = true
	m.logger.Info("hook requested", "clip", h.key, "position", req.Position, "size", req.Size)
	return m, tea.Batch(hookCmd(m.ctx, m.hooks, h.key, req), m.spinner.Tick)
}

func (m Model) applyHookResult(msg hookMsg) (tea.Model, tea.Cmd) {
	h := m.modal
	if h != nil && h.key == msg.key {
		h.form.Processing = false
		if msg.err != nil {
			h.err = msg.err.Error()
			if m.mode != modeHook {
				m.status = "error: hook: " + msg.err.Error()
			}
			return m, nil
		}
		m.modal = nil
		m.mode = modeBrowse
	}
	if msg.err != nil {
		m.status = "error: hook: " + msg.err.Error()
		return m, nil
	}
	m.status = "hook ready"
	if msg.result.URL != "" {
		m.status += ": " + msg.result.URL
	}
	return m, nil
}

func (m Model) viewHook() string {
	h := m.modal
	if h == nil {
		return ""
	}
	preview := previewStyle.Render(renderPreview(h.form, previewWidth, previewHeight))

	lines := []string{
		titleStyle.Render("Viral Hook"),
		mutedStyle.Render(truncateCells(oneLine(h.clip.Title), 40)),
		"",
		focusLabel("TEXT", h.focus == focusText),
		h.text.View(),
		"",
		focusLabel("POSITION", h.focus == focusPosition),
		renderChoices(positionLabels(), string(h.form.Position)),
		"",
		focusLabel("SIZE", h.focus == focusSize),
		renderChoices(sizeLabels(), string(h.form.Size)),
		"",
		mutedStyle.Render("Tip: keep it short and punchy. \"POV:\" or a direct question works best."),
		"",
		m.renderSubmit(),
	}
	if h.err != "" {
		lines = append(lines, errorStyle.Render(h.err))
	}
	lines = append(lines, "", mutedStyle.Render("tab: next field | left/right: change | ctrl+s: add hook | esc: close"))

	controls := panelStyle.Render(strings.Join(lines, "\n"))
	body := lipgloss.JoinHorizontal(lipgloss.Top, preview, " ", controls)
	if m.width <= 0 || m.height <= 0 {
		return body
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
}

func (m Model) renderSubmit() string {
	h := m.modal
	label := "Add Hook"
	if h.form.Processing {
		label = m.spinner.View() + " Generating..."
	}
	style := submitStyle
	if !h.form.CanSubmit() {
		style = disabledStyle
	}
	btn := style.Render(label)
	if h.focus == focusSubmit {
		return "> " + btn
	}
	return "  " + btn
}

// renderPreview draws the overlay box where the rendered hook will sit.
func renderPreview(f hook.Form, width, height int) string {
	p := hook.Layout(f.Text, f.Position, f.Size, width, height)
	rows := make([]string, height)
	blank := strings.Repeat(" ", width)
	for i := range rows {
		rows[i] = blank
	}
	for i, line := range p.Lines {
		row := p.Top + i
		if row < 0 || row >= height {
			continue
		}
		box := overlayStyle.Width(p.Width).Align(lipgloss.Center).Render(line)
		right := max(width-p.Left-p.Width, 0)
		rows[row] = strings.Repeat(" ", p.Left) + box + strings.Repeat(" ", right)
	}
	return strings.Join(rows, "\n")
}

func focusLabel(label string, focused bool) string {
	if focused {
		return okStyle.Render("> " + label)
	}
	return mutedStyle.Render("  " + label)
}

func renderChoices(options [][2]string, current string) string {
	parts := make([]string, 0, len(options))
	for _, opt := range options {
		if opt[0] == current {
			parts = append(parts, chosenStyle.Render(opt[1]))
		} else {
			parts = append(parts, choiceStyle.Render(opt[1]))
		}
	}
	return strings.Join(parts, " ")
}

func positionLabels() [][2]string {
	out := make([][2]string, 0, len(model.HookPositions))
	for _, p := range model.HookPositions {
		out = append(out, [2]string{string(p), strings.ToUpper(string(p)[:1]) + string(p)[1:]})
	}
	return out
}

func sizeLabels() [][2]string {
	out := make([][2]string, 0, len(model.HookSizes))
	for _, s := range model.HookSizes {
		out = append(out, [2]string{string(s), s.Label()})
	}
	return out
}

func hookSummary(f hook.Form) string {
	return fmt.Sprintf("%s, %s", f.Position, f.Size.Label())
}
