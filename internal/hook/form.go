// Package hook holds the state of the hook overlay form and the layout used
// to preview the overlay before it is burned into a clip.
package hook

import (
	"fmt"
	"strings"

	"clipdeck/internal/model"
)

const (
	DefaultText = "POV: You are using the viral hook feature"
	Placeholder = "Enter your text..."
)

// Form is the editable hook configuration. Submission is the caller's job;
// the form only tracks whether one is running.
type Form struct {
	Text       string
	Position   model.HookPosition
	Size       model.HookSize
	Processing bool
}

// NewForm starts with initial text, or the default text when empty.
func NewForm(initial string) Form {
	text := initial
	if strings.TrimSpace(text) == "" {
		text = DefaultText
	}
	return Form{Text: text, Position: model.HookTop, Size: model.HookMedium}
}

// CanSubmit is false while a submission runs or the text is blank.
func (f Form) CanSubmit() bool {
	return !f.Processing && strings.TrimSpace(f.Text) != ""
}

// Request builds the backend request for clip.
func (f Form) Request(clip model.Clip) (model.HookRequest, error) {
	if f.Processing {
		return model.HookRequest{}, fmt.Errorf("hook generation already in progress")
	}
	req := model.HookRequest{
		JobID:    clip.JobID,
		Index:    clip.Index,
		Text:     f.Text,
		Position: f.Position,
		Size:     f.Size,
	}
	if err := req.Validate(); err != nil {
		return model.HookRequest{}, err
	}
	return req, nil
}

func (f *Form) CyclePosition(delta int) {
	f.Position = model.HookPositions[cycle(indexOf(model.HookPositions, f.Position), delta, len(model.HookPositions))]
}

func (f *Form) CycleSize(delta int) {
	f.Size = model.HookSizes[cycle(indexOf(model.HookSizes, f.Size), delta, len(model.HookSizes))]
}

// DisplayText is what the preview shows.
func (f Form) DisplayText() string {
	if f.Text == "" {
		return Placeholder
	}
	return f.Text
}

// FontScale is the size multiplier relative to medium.
func FontScale(s model.HookSize) float64 {
	switch s {
	case model.HookSmall:
		return 14.0 / 18.0
	case model.HookLarge:
		return 24.0 / 18.0
	default:
		return 1
	}
}

func indexOf[T comparable](values []T, v T) int {
	for i, x := range values {
		if x == v {
			return i
		}
	}
	return 0
}

func cycle(i, delta, n int) int {
	if n == 0 {
		return 0
	}
	return ((i+delta)%n + n) % n
}
