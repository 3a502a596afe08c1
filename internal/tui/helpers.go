package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// truncateCells cuts s to at most width terminal cells, marking the cut with an ellipsis.
func truncateCells(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}

// fitWidth is truncateCells that treats a non-positive width as unbounded.
func fitWidth(s string, width int) string {
	if width <= 0 {
		return s
	}
	return truncateCells(s, width)
}

// oneLine flattens newlines so multi-line captions fit a card row.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func defaultIfEmpty(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
