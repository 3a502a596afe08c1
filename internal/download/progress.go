package download

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const (
	refreshInterval = 700 * time.Millisecond
	eraseLine       = "\r\033[2K"
)

// clipProgress is a point-in-time view of one transfer.
type clipProgress struct {
	phase string
	done  int64
	size  int64 // -1 while unknown
	mbps  float64
}

// liveProgress tracks one clip download and, when enabled, repaints its
// status line in place.
type liveProgress struct {
	out     io.Writer
	enabled bool
	label   string
	now     func() time.Time

	mu      sync.Mutex
	state   clipProgress
	started time.Time

	quit chan struct{}
	once sync.Once
}

func newLiveProgress(out io.Writer, enabled bool, index, total int, name string) *liveProgress {
	return &liveProgress{
		out:     out,
		enabled: enabled && out != nil,
		label:   fmt.Sprintf("[%d/%d] %s", index, total, name),
		now:     time.Now,
		state:   clipProgress{phase: "starting", size: -1},
		quit:    make(chan struct{}),
	}
}

func (p *liveProgress) Start() {
	p.mu.Lock()
	p.started = p.now()
	p.mu.Unlock()
	if !p.enabled {
		return
	}
	go func() {
		tick := time.NewTicker(refreshInterval)
		defer tick.Stop()
		for {
			select {
			case <-p.quit:
				return
			case <-tick.C:
				fmt.Fprint(p.out, eraseLine+p.render())
			}
		}
	}()
}

// Stop ends the repaint loop and leaves final on the line.
func (p *liveProgress) Stop(final string) {
	if !p.enabled {
		return
	}
	p.once.Do(func() {
		close(p.quit)
		fmt.Fprintln(p.out, eraseLine+final)
	})
}

func (p *liveProgress) SetPhase(phase string) {
	p.mu.Lock()
	p.state.phase = phase
	p.mu.Unlock()
}

// Update is the byte callback handed to Service.Fetch.
func (p *liveProgress) Update(done, size int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.phase = "downloading"
	p.state.done = done
	p.state.size = size
	if p.started.IsZero() {
		return
	}
	if secs := p.now().Sub(p.started).Seconds(); secs > 0 {
		p.state.mbps = float64(done) * 8 / secs / 1_000_000
	}
}

func (p *liveProgress) snapshot() (done, size int64, mbps float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.done, p.state.size, p.state.mbps
}

func (p *liveProgress) render() string {
	p.mu.Lock()
	s := p.state
	p.mu.Unlock()

	parts := []string{p.label, s.phase}
	switch {
	case s.size > 0:
		parts = append(parts,
			fmt.Sprintf("%.0f%%", float64(s.done)*100/float64(s.size)),
			formatBytesIEC(s.done)+"/"+formatBytesIEC(s.size))
	case s.done > 0:
		parts = append(parts, formatBytesIEC(s.done))
	}
	if s.mbps <= 0 {
		return strings.Join(parts, "  ")
	}
	parts = append(parts, fmt.Sprintf("%.2f Mbps", s.mbps))
	if s.size > s.done {
		if eta := formatETA(transferTime(s.size-s.done, s.mbps)); eta != "" {
			parts = append(parts, "ETA "+eta)
		}
	}
	return strings.Join(parts, "  ")
}
