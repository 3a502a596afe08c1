package model

import (
	"fmt"
	"strings"
	"time"
)

// Clip is one generated short tied to a processing job and its position in
// that job's output set.
type Clip struct {
	JobID      string  `json:"job_id"`
	Index      int     `json:"index"`
	URL        string  `json:"url"`
	Title      string  `json:"title,omitempty"`
	TiktokDesc string  `json:"tiktok_desc,omitempty"`
	InstaDesc  string  `json:"insta_desc,omitempty"`
	Duration   float64 `json:"duration"`
	CreatedAt  string  `json:"created_at,omitempty"`
}

// ClipKey is the identity of a clip.
type ClipKey struct {
	JobID string
	Index int
}

func (k ClipKey) String() string {
	return fmt.Sprintf("%s#%d", k.JobID, k.Index)
}

// ClipPage is the wire shape of one page of the clip listing.
type ClipPage struct {
	Clips   []Clip `json:"clips"`
	HasMore *bool  `json:"has_more,omitempty"`
}

func (c Clip) Key() ClipKey {
	return ClipKey{JobID: c.JobID, Index: c.Index}
}

// Caption prefers the TikTok description and falls back to Instagram.
func (c Clip) Caption() string {
	if strings.TrimSpace(c.TiktokDesc) != "" {
		return c.TiktokDesc
	}
	return c.InstaDesc
}

// DownloadName is the local filename for a clip; the clip number is 1-based.
func (c Clip) DownloadName() string {
	return fmt.Sprintf("clip_%s_%d.mp4", c.JobID, c.Index+1)
}

// ShortJobID trims the job id for badges.
func (c Clip) ShortJobID() string {
	r := []rune(c.JobID)
	if len(r) <= 8 {
		return c.JobID
	}
	return string(r[:8])
}

var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (c Clip) CreatedTime() (time.Time, bool) {
	raw := strings.TrimSpace(c.CreatedAt)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
