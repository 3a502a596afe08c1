package download

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	boardRecentEvents = 8
	boardRuleWidth    = 100
	clearScreen       = "\033[H\033[2J"
)

// batchTotals is the aggregate state shown in the board header.
type batchTotals struct {
	Done            int
	Target          int
	Pending         int
	FailedRetryable int
	FailedPermanent int
	BytesDone       int64
	BytesEstimate   int64
}

// batchBoard repaints a summary of every busy worker while a multi-worker
// batch runs. Single-worker batches use liveProgress directly.
type batchBoard struct {
	out     io.Writer
	workers int

	mu     sync.Mutex
	totals batchTotals
	busy   map[int]*liveProgress
	recent []string

	quit chan struct{}
	done chan struct{}
}

func newBatchBoard(out io.Writer, workers int) *batchBoard {
	return &batchBoard{
		out:     out,
		workers: workers,
		busy:    make(map[int]*liveProgress, workers),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (b *batchBoard) Start() {
	go func() {
		defer close(b.done)
		tick := time.NewTicker(refreshInterval)
		defer tick.Stop()
		for {
			select {
			case <-b.quit:
				return
			case <-tick.C:
				b.paint()
			}
		}
	}()
}

// Stop halts the repaint loop and draws the final frame.
func (b *batchBoard) Stop() {
	close(b.quit)
	<-b.done
	b.paint()
}

func (b *batchBoard) Totals(t batchTotals) {
	b.mu.Lock()
	if t.BytesEstimate < t.BytesDone {
		t.BytesEstimate = t.BytesDone
	}
	b.totals = t
	b.mu.Unlock()
}

func (b *batchBoard) Attach(workerID int, p *liveProgress) {
	b.mu.Lock()
	b.busy[workerID] = p
	b.mu.Unlock()
}

// Detach frees a worker slot and pushes event onto the recent list, newest first.
func (b *batchBoard) Detach(workerID int, event string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.busy, workerID)
	if strings.TrimSpace(event) == "" {
		return
	}
	b.recent = append(b.recent, "")
	copy(b.recent[1:], b.recent)
	b.recent[0] = event
	if len(b.recent) > boardRecentEvents {
		b.recent = b.recent[:boardRecentEvents]
	}
}

func (b *batchBoard) paint() {
	if b.out == nil {
		return
	}
	fmt.Fprint(b.out, clearScreen+b.frame())
}

func (b *batchBoard) frame() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]int, 0, len(b.busy))
	for id := range b.busy {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var inFlight int64
	var mbps float64
	rows := make([]string, 0, len(ids))
	for _, id := range ids {
		p := b.busy[id]
		done, _, rate := p.snapshot()
		inFlight += done
		mbps += rate
		rows = append(rows, fmt.Sprintf("w%d %s", id, p.render()))
	}

	t := b.totals
	header := []string{
		"clipdeck downloads",
		fmt.Sprintf("active %d/%d", len(ids), b.workers),
		fmt.Sprintf("saved %d/%d", t.Done, t.Target),
		fmt.Sprintf("pending %d", t.Pending),
		fmt.Sprintf("fail r:%d p:%d", t.FailedRetryable, t.FailedPermanent),
		fmt.Sprintf("%.2f MB/s", mbps/8),
	}
	if t.BytesEstimate > 0 {
		got := t.BytesDone + inFlight
		eta := estimateTotalETA(t.BytesEstimate, got, mbps)
		if eta == "" {
			eta = "calculating"
		}
		header = append(header,
			"eta ~ "+eta,
			fmt.Sprintf("size ~ %s/%s", formatBytesIEC(got), formatBytesIEC(t.BytesEstimate)))
	}

	rule := strings.Repeat("-", boardRuleWidth)
	lines := []string{strings.Join(header, " | "), rule}
	if len(rows) == 0 {
		lines = append(lines, "(no active workers)")
	}
	lines = append(lines, rows...)
	if len(b.recent) > 0 {
		lines = append(lines, rule)
		lines = append(lines, b.recent...)
	}
	return strings.Join(lines, "\n") + "\n"
}
