package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"clipdeck/internal/model"
)

type BatchOptions struct {
	Workers      int
	Retries      int
	SkipExisting bool
	// Fallback opens each clip that failed to save in the browser.
	Fallback bool
	Progress bool
	Out      io.Writer
}

type BatchResult struct {
	Outcomes        []Outcome
	Saved           int
	Skipped         int
	FellBack        int
	FailedRetryable int
	FailedPermanent int
	Bytes           int64
}

func (r BatchResult) Failed() int {
	return r.FailedRetryable + r.FailedPermanent
}

// DownloadAll saves clips using a pool of workers. Outcomes keep the order
// of clips. Cancelling ctx stops handing out new clips.
func (s *Service) DownloadAll(ctx context.Context, clips []model.Clip, opts BatchOptions) BatchResult {
	workers := opts.Workers
	if workers <= 0 {
		workers = 3
	}
	if workers > len(clips) && len(clips) > 0 {
		workers = len(clips)
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	result := BatchResult{Outcomes: make([]Outcome, len(clips))}
	estimate := int64(0)
	for _, c := range clips {
		estimate += estimateBytesFromDuration(c.Duration, shortsMbps)
	}

	dashboardEnabled := opts.Progress && workers > 1
	var board *batchBoard
	if dashboardEnabled {
		board = newBatchBoard(out, workers)
		board.Totals(batchTotals{Target: len(clips), Pending: len(clips), BytesEstimate: estimate})
		board.Start()
		defer board.Stop()
	}

	jobCh := make(chan int)
	var stateMu sync.Mutex
	var logMu sync.Mutex
	var wg sync.WaitGroup
	var processed atomic.Int64

	record := func(i int, o Outcome) {
		stateMu.Lock()
		defer stateMu.Unlock()
		result.Outcomes[i] = o
		switch {
		case o.Skipped:
			result.Skipped++
		case o.Err == nil:
			result.Saved++
			result.Bytes += o.Bytes
		case isRetryable(o.Err):
			result.FailedRetryable++
		default:
			result.FailedPermanent++
		}
		if o.FellBack {
			result.FellBack++
		}
		if dashboardEnabled {
			board.Totals(batchTotals{
				Done:            result.Saved + result.Skipped,
				Target:          len(clips),
				Pending:         len(clips) - int(processed.Load()),
				FailedRetryable: result.FailedRetryable,
				FailedPermanent: result.FailedPermanent,
				BytesDone:       result.Bytes,
				BytesEstimate:   estimate,
			})
		}
	}

	workerFn := func(workerID int) {
		defer wg.Done()
		for i := range jobCh {
			clip := clips[i]
			name := clip.DownloadName()
			if ctx.Err() != nil {
				processed.Add(1)
				record(i, Outcome{Clip: clip, Path: s.PathFor(clip), Err: ctx.Err()})
				continue
			}
			if opts.SkipExisting {
				if st, err := os.Stat(s.PathFor(clip)); err == nil && st.Size() > 0 {
					processed.Add(1)
					record(i, Outcome{Clip: clip, Path: s.PathFor(clip), Skipped: true, Bytes: st.Size()})
					continue
				}
			}

			progressEnabled := opts.Progress && workers == 1
			progress := newLiveProgress(out, progressEnabled, i+1, len(clips), name)
			progress.Start()
			if dashboardEnabled {
				board.Attach(workerID, progress)
			}
			if !progressEnabled && !dashboardEnabled && opts.Progress {
				logMu.Lock()
				fmt.Fprintf(out, "[w%d %d/%d] start %s\n", workerID, i+1, len(clips), name)
				logMu.Unlock()
			}

			var o Outcome
			for attempt := 0; ; attempt++ {
				o = s.Fetch(ctx, clip, progress.Update)
				if o.Err == nil || attempt >= opts.Retries || !isRetryable(o.Err) || ctx.Err() != nil {
					break
				}
				progress.SetPhase(fmt.Sprintf("retry %d", attempt+1))
			}
			if o.Err != nil && opts.Fallback && s.opener != nil && ctx.Err() == nil {
				o = s.fallback(o)
			}
			processed.Add(1)
			record(i, o)

			event := fmt.Sprintf("saved %s (%s)", name, formatBytesIEC(o.Bytes))
			if o.Err != nil {
				event = fmt.Sprintf("failed %s: %s", name, truncate(o.Err.Error(), 80))
			}
			progress.Stop(event)
			if dashboardEnabled {
				board.Detach(workerID, event)
			}
		}
	}

	wg.Add(workers)
	for w := 1; w <= workers; w++ {
		go workerFn(w)
	}
	for i := range clips {
		jobCh <- i
	}
	close(jobCh)
	wg.Wait()
	return result
}

// isRetryable reports failures worth another attempt: typed errors that say
// so, and the usual transient network messages.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var temp interface{ Temporary() bool }
	if errors.As(err, &temp) && temp.Temporary() {
		return true
	}
	text := strings.ToLower(err.Error())
	for _, h := range []string{
		"429",
		"too many requests",
		"timed out",
		"timeout",
		"temporarily unavailable",
		"connection reset",
		"connection refused",
		"unexpected eof",
		"network is unreachable",
	} {
		if strings.Contains(text, h) {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
