package hook

import (
	"math"
	"strings"

	"github.com/mattn/go-runewidth"

	"clipdeck/internal/model"
)

// Box padding in cells around the wrapped text.
const (
	padX = 1
	padY = 0
)

// Placement is where the overlay box lands inside a preview area.
type Placement struct {
	Lines  []string
	Left   int
	Top    int
	Width  int
	Height int
}

// MaxWidthFraction is the widest the box may get relative to the preview.
func MaxWidthFraction(s model.HookSize) float64 {
	switch s {
	case model.HookSmall:
		return 0.80
	case model.HookLarge:
		return 0.95
	default:
		return 0.90
	}
}

// Layout wraps text and positions its box inside a width x height preview.
func Layout(text string, pos model.HookPosition, size model.HookSize, width, height int) Placement {
	if text == "" {
		text = Placeholder
	}
	maxBox := int(math.Floor(float64(width) * MaxWidthFraction(size)))
	inner := maxBox - 2*padX
	if inner < 1 {
		inner = 1
	}
	lines := Wrap(text, inner)

	longest := 0
	for _, l := range lines {
		if w := runewidth.StringWidth(l); w > longest {
			longest = w
		}
	}
	boxW := longest + 2*padX
	if minW := int(float64(maxBox) * 0.3); boxW < minW {
		boxW = minW
	}
	if boxW > width {
		boxW = width
	}
	boxH := len(lines) + 2*padY

	var top int
	switch pos {
	case model.HookCenter:
		top = (height - boxH) / 2
	case model.HookBottom:
		top = height - int(math.Round(float64(height)*0.2)) - boxH
	default:
		top = int(math.Round(float64(height) * 0.2))
	}
	if top+boxH > height {
		top = height - boxH
	}
	if top < 0 {
		top = 0
	}

	return Placement{
		Lines:  lines,
		Left:   max((width-boxW)/2, 0),
		Top:    top,
		Width:  boxW,
		Height: boxH,
	}
}

// Wrap breaks text into lines no wider than width cells. Manual newlines
// start new paragraphs, blank paragraphs stay as empty lines, and a word
// longer than width gets a line of its own.
func Wrap(text string, width int) []string {
	if width < 1 {
		width = 1
	}
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		if strings.TrimSpace(para) == "" {
			lines = append(lines, "")
			continue
		}
		var current []string
		currentW := 0
		for _, word := range strings.Fields(para) {
			w := runewidth.StringWidth(word)
			next := w
			if len(current) > 0 {
				next = currentW + 1 + w
			}
			if next <= width {
				current = append(current, word)
				currentW = next
				continue
			}
			if len(current) > 0 {
				lines = append(lines, strings.Join(current, " "))
				current = []string{word}
				currentW = w
				if w > width {
					lines = append(lines, word)
					current = nil
					currentW = 0
				}
				continue
			}
			lines = append(lines, word)
		}
		if len(current) > 0 {
			lines = append(lines, strings.Join(current, " "))
		}
	}
	return lines
}
