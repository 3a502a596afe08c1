package model

import (
	"fmt"
	"strings"
)

type HookPosition string

const (
	HookTop    HookPosition = "top"
	HookCenter HookPosition = "center"
	HookBottom HookPosition = "bottom"
)

type HookSize string

const (
	HookSmall  HookSize = "S"
	HookMedium HookSize = "M"
	HookLarge  HookSize = "L"
)

var (
	HookPositions = []HookPosition{HookTop, HookCenter, HookBottom}
	HookSizes     = []HookSize{HookSmall, HookMedium, HookLarge}
)

// HookRequest asks the backend to burn a text overlay into a clip.
type HookRequest struct {
	JobID    string       `json:"job_id"`
	Index    int          `json:"index"`
	Text     string       `json:"text"`
	Position HookPosition `json:"position"`
	Size     HookSize     `json:"size"`
}

type HookResult struct {
	URL string `json:"url,omitempty"`
}

func ParseHookPosition(raw string) (HookPosition, error) {
	v := HookPosition(strings.ToLower(strings.TrimSpace(raw)))
	for _, p := range HookPositions {
		if p == v {
			return p, nil
		}
	}
	return "", fmt.Errorf("invalid hook position %q (expected top, center, or bottom)", strings.TrimSpace(raw))
}

func ParseHookSize(raw string) (HookSize, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s", "small":
		return HookSmall, nil
	case "m", "medium":
		return HookMedium, nil
	case "l", "large":
		return HookLarge, nil
	}
	return "", fmt.Errorf("invalid hook size %q (expected S, M, or L)", strings.TrimSpace(raw))
}

func (s HookSize) Label() string {
	switch s {
	case HookSmall:
		return "Small"
	case HookLarge:
		return "Large"
	default:
		return "Medium"
	}
}

func (r HookRequest) Validate() error {
	if strings.TrimSpace(r.JobID) == "" {
		return fmt.Errorf("hook request: job id is required")
	}
	if r.Index < 0 {
		return fmt.Errorf("hook request: clip index must be >= 0")
	}
	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("hook request: text is required")
	}
	if _, err := ParseHookPosition(string(r.Position)); err != nil {
		return err
	}
	if _, err := ParseHookSize(string(r.Size)); err != nil {
		return err
	}
	return nil
}
