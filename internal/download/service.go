// Package download saves clip media to disk and falls back to handing the
// media URL to the system browser when the direct fetch fails.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/pkg/browser"

	"clipdeck/internal/logging"
	"clipdeck/internal/model"
	"clipdeck/internal/store"
)

// MediaFetcher streams a clip's media bytes. size is -1 when unknown.
type MediaFetcher interface {
	OpenMedia(ctx context.Context, url string) (io.ReadCloser, int64, error)
}

// Opener hands a URL to something outside the process.
type Opener interface {
	Open(url string) error
}

// BrowserOpener opens URLs in the system browser.
type BrowserOpener struct{}

func (BrowserOpener) Open(url string) error {
	return browser.OpenURL(url)
}

// Outcome describes what happened to one clip.
type Outcome struct {
	Clip     model.Clip
	Path     string
	Bytes    int64
	Skipped  bool
	FellBack bool
	// Err is the fetch failure. With FellBack set the clip was still handed
	// to the browser.
	Err error
	// OpenErr is set when the browser fallback failed as well.
	OpenErr error
}

func (o Outcome) Saved() bool {
	return o.Err == nil && !o.Skipped
}

type Service struct {
	fetcher MediaFetcher
	opener  Opener
	dir     string
	logger  *slog.Logger
}

// NewService saves into dir. opener may be nil to disable the fallback.
func NewService(fetcher MediaFetcher, opener Opener, dir string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{fetcher: fetcher, opener: opener, dir: dir, logger: logger}
}

func (s *Service) Dir() string { return s.dir }

// PathFor is where clip is saved.
func (s *Service) PathFor(clip model.Clip) string {
	return filepath.Join(s.dir, clip.DownloadName())
}

// Download saves clip, reporting progress as bytes arrive. On a fetch or
// write failure the media URL is opened instead. A cancelled context never
// falls back.
func (s *Service) Download(ctx context.Context, clip model.Clip, progress func(done, total int64)) Outcome {
	out := s.fetch(ctx, clip, progress)
	if out.Err == nil {
		return out
	}
	if ctx.Err() != nil || s.opener == nil {
		return out
	}
	return s.fallback(out)
}

// Fetch saves clip without any fallback.
func (s *Service) Fetch(ctx context.Context, clip model.Clip, progress func(done, total int64)) Outcome {
	return s.fetch(ctx, clip, progress)
}

func (s *Service) fetch(ctx context.Context, clip model.Clip, progress func(done, total int64)) Outcome {
	logger := logging.WithClip(s.logger, clip.JobID, clip.Index)
	out := Outcome{Clip: clip, Path: s.PathFor(clip)}
	if clip.URL == "" {
		out.Err = errors.New("clip has no media url")
		return out
	}

	body, size, err := s.fetcher.OpenMedia(ctx, clip.URL)
	if err != nil {
		out.Err = fmt.Errorf("fetch %s: %w", clip.DownloadName(), err)
		logger.Warn("media fetch failed", "url", logging.RedactURL(clip.URL), "error", err)
		return out
	}
	defer body.Close()

	var r io.Reader = body
	if progress != nil {
		r = &countingReader{r: body, total: size, report: progress}
	}
	n, err := store.WriteStream(out.Path, r)
	if err != nil {
		out.Err = fmt.Errorf("save %s: %w", clip.DownloadName(), err)
		logger.Warn("media save failed", "path", out.Path, "error", err)
		return out
	}
	out.Bytes = n
	logger.Info("clip saved", "path", out.Path, "bytes", n)
	return out
}

func (s *Service) fallback(out Outcome) Outcome {
	out.FellBack = true
	if err := s.opener.Open(out.Clip.URL); err != nil {
		out.OpenErr = err
		s.logger.Warn("browser fallback failed", "job_id", out.Clip.JobID, "clip_index", out.Clip.Index, "error", err)
		return out
	}
	s.logger.Info("opened clip in browser", "job_id", out.Clip.JobID, "clip_index", out.Clip.Index)
	return out
}

type countingReader struct {
	r      io.Reader
	done   int64
	total  int64
	report func(done, total int64)
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.done += int64(n)
		c.report(c.done, c.total)
	}
	return n, err
}
