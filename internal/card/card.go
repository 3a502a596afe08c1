// Package card holds the per-clip view state of the gallery: whether the
// clip has been revealed, what the media probe found, and which text field
// was copied last.
package card

import (
	"time"

	"clipdeck/internal/model"
)

// CopyFeedback is how long a copied field stays marked.
const CopyFeedback = 2 * time.Second

// Copyable fields.
const (
	FieldTitle   = "yt"
	FieldCaption = "caption"
)

type MediaState int

const (
	MediaPending MediaState = iota
	MediaLoading
	MediaReady
	MediaFailed
)

// Media is what the reveal probe learned about a clip's media.
type Media struct {
	State       MediaState
	ContentType string
	Size        int64
	Err         error
}

// Card is the view state of one clip.
type Card struct {
	Clip model.Clip

	revealed  bool
	media     Media
	copied    string
	copyToken uint64
}

func New(clip model.Clip) *Card {
	return &Card{Clip: clip}
}

// Reveal marks the card visible. It reports true only for the call that
// flipped it; a revealed card never becomes hidden again.
func (c *Card) Reveal() bool {
	if c.revealed {
		return false
	}
	c.revealed = true
	c.media.State = MediaLoading
	return true
}

func (c *Card) Revealed() bool { return c.revealed }

func (c *Card) Media() Media { return c.media }

// SetMedia records the probe outcome. Ignored before reveal.
func (c *Card) SetMedia(contentType string, size int64, err error) {
	if !c.revealed {
		return
	}
	if err != nil {
		c.media = Media{State: MediaFailed, Err: err}
		return
	}
	c.media = Media{State: MediaReady, ContentType: contentType, Size: size}
}

// CopyText returns the text behind a copyable field.
func (c *Card) CopyText(field string) string {
	switch field {
	case FieldTitle:
		return c.Clip.Title
	case FieldCaption:
		return c.Clip.Caption()
	}
	return ""
}

// MarkCopied marks field as the copied one and returns a token identifying
// this copy. A later copy supersedes it.
func (c *Card) MarkCopied(field string) uint64 {
	c.copyToken++
	c.copied = field
	return c.copyToken
}

// ExpireCopy clears the indicator if token still belongs to the latest copy.
func (c *Card) ExpireCopy(token uint64) bool {
	if token != c.copyToken || c.copied == "" {
		return false
	}
	c.copied = ""
	return true
}

func (c *Card) Copied(field string) bool {
	return field != "" && c.copied == field
}

func (c *Card) CopiedField() string { return c.copied }
