package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"clipdeck/internal/card"
	"clipdeck/internal/download"
	"clipdeck/internal/model"
)

func (m Model) View() string {
	if m.width <= 0 {
		m.width = 100
	}
	if m.height <= 0 {
		m.height = 30
	}
	if m.mode == modeHook {
		return m.viewHook()
	}
	return m.viewBrowse()
}

func (m Model) viewBrowse() string {
	header := titleStyle.Render("clipdeck gallery") + "  " + badgeStyle.Render(m.ctrl.CountLabel())
	if m.source != "" {
		header += "  " + mutedStyle.Render(m.source)
	}
	hints := mutedStyle.Render("j/k: move | y: copy title | c: copy caption | d: download | h: hook | r: retry | R: reload | q: quit")

	var body string
	switch {
	case m.ctrl.Phase() == model.PhaseInitialLoading && len(m.cards) == 0:
		body = m.viewCentered(m.spinner.View() + " Loading clips...")
	case m.initialFailure():
		f, _ := m.ctrl.Failure()
		body = m.viewCentered(
			errorStyle.Render("Error loading gallery: "+f.Err.Error()) + "\n\n" +
				mutedStyle.Render("press r to retry"))
	case len(m.cards) == 0:
		body = m.viewCentered("No clips found yet.\n\n" + mutedStyle.Render("Process some videos to populate your gallery!"))
	default:
		body = m.viewCards()
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, hints, "", body, m.renderStatusLine())
}

func (m Model) initialFailure() bool {
	f, ok := m.ctrl.Failure()
	return ok && !f.LoadMore()
}

func (m Model) viewCentered(content string) string {
	return lipgloss.Place(m.width, m.bodyHeight(), lipgloss.Center, lipgloss.Center, content)
}

func (m Model) viewCards() string {
	start := min(max(m.scroll, 0), max(len(m.cards)-1, 0))
	end := minInt(start+m.cardsPerView(), len(m.cards))
	rows := make([]string, 0, end-start+1)
	for i := start; i < end; i++ {
		rows = append(rows, m.renderCard(i))
	}
	if end == len(m.cards) {
		rows = append(rows, m.renderListTail())
	}
	return strings.Join(rows, "\n")
}

// renderListTail is the row below the last card: load-more progress, the
// inline load-more error, or the end marker.
func (m Model) renderListTail() string {
	if f, ok := m.ctrl.Failure(); ok && f.LoadMore() {
		return errorStyle.Render("Could not load more clips: "+truncateCells(f.Err.Error(), max(m.width-40, 20))) +
			"  " + mutedStyle.Render("r: retry | R: reload all")
	}
	if m.ctrl.InFlight() {
		return mutedStyle.Render(m.spinner.View() + " Loading more clips...")
	}
	if !m.ctrl.HasMore() {
		return mutedStyle.Render("end of gallery")
	}
	return ""
}

func (m Model) renderCard(i int) string {
	c := m.cards[i]
	clip := c.Clip
	inner := max(m.width-6, 20)

	title := fmt.Sprintf("#%d  %s", i+1, defaultIfEmpty(oneLine(clip.Title), "(untitled)"))
	meta := []string{fmt.Sprintf("%.1fs", clip.Duration), "ID: " + clip.ShortJobID()}
	if t, ok := clip.CreatedTime(); ok {
		meta = append(meta, t.Local().Format("2006-01-02"))
	}
	line1 := fitWidth(title, inner-lipgloss.Width(strings.Join(meta, "  "))-2) + "  " + mutedStyle.Render(strings.Join(meta, "  "))
	line2 := mutedStyle.Render(fitWidth(defaultIfEmpty(oneLine(clip.Caption()), "(no caption)"), inner))
	line3 := renderMedia(c)
	line4 := m.renderActions(c)

	style := panelStyle
	if i == m.cursor {
		style = selPanelStyle
	}
	return style.Width(max(m.width-2, 24)).Render(strings.Join([]string{line1, line2, line3, line4}, "\n"))
}

func renderMedia(c *card.Card) string {
	if !c.Revealed() {
		return mutedStyle.Render("▷ media not loaded")
	}
	media := c.Media()
	switch media.State {
	case card.MediaReady:
		parts := []string{"▶ ready"}
		if media.Size > 0 {
			parts = append(parts, download.FormatBytes(media.Size))
		}
		if media.ContentType != "" {
			parts = append(parts, media.ContentType)
		}
		return okStyle.Render(strings.Join(parts, "  "))
	case card.MediaFailed:
		return errorStyle.Render("media unavailable")
	default:
		return mutedStyle.Render("loading media...")
	}
}

func (m Model) renderActions(c *card.Card) string {
	key := c.Clip.Key().String()
	actions := []string{
		copyAction("y", "title", c.Copied(card.FieldTitle)),
		copyAction("c", "caption", c.Copied(card.FieldCaption)),
	}
	if m.downloading[key] {
		actions = append(actions, mutedStyle.Render("[d] downloading..."))
	} else {
		actions = append(actions, "[d] download")
	}
	if m.modal != nil && m.modal.key == key && m.modal.form.Processing {
		actions = append(actions, mutedStyle.Render("[h] hook: "+hookSummary(m.modal.form)+" "+m.spinner.View()))
	} else {
		actions = append(actions, "[h] hook")
	}
	return strings.Join(actions, "  ")
}

func copyAction(key, label string, copied bool) string {
	if copied {
		return okStyle.Render(fmt.Sprintf("[%s] %s ✓ copied", key, label))
	}
	return fmt.Sprintf("[%s] copy %s", key, label)
}

func (m Model) renderStatusLine() string {
	msg := strings.TrimSpace(m.status)
	if msg == "" {
		return mutedStyle.Render(" ")
	}
	style := mutedStyle
	lower := strings.ToLower(msg)
	if strings.HasPrefix(lower, "error:") {
		style = errorStyle
	} else if strings.HasPrefix(lower, "saved") || strings.HasPrefix(lower, "hook ready") {
		style = okStyle
	}
	return style.Width(m.width).Render(truncateCells(msg, max(m.width-2, 10)))
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
