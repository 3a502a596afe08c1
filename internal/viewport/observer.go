// Package viewport detects when laid-out elements come near the visible
// window. It is polled: callers move the window or the elements, then call
// Check to learn which elements just entered the expanded window.
package viewport

// Rect is a vertical span in content rows.
type Rect struct {
	Top    int
	Height int
}

func (r Rect) Bottom() int {
	h := r.Height
	if h < 1 {
		h = 1
	}
	return r.Top + h
}

func (r Rect) overlaps(o Rect) bool {
	return r.Top < o.Bottom() && o.Top < r.Bottom()
}

type entry struct {
	rect   Rect
	once   bool
	inside bool
}

// Observer tracks elements against a window grown by Margin rows on both
// sides. Not safe for concurrent use.
type Observer struct {
	Margin int

	window  Rect
	entries map[string]*entry
	order   []string
}

func New(margin int) *Observer {
	if margin < 0 {
		margin = 0
	}
	return &Observer{Margin: margin, entries: map[string]*entry{}}
}

// Observe registers id at r. A once entry is dropped after it first fires.
// Re-observing an existing id replaces its rect and re-arms it.
func (o *Observer) Observe(id string, r Rect, once bool) {
	if e, ok := o.entries[id]; ok {
		e.rect = r
		e.once = once
		e.inside = false
		return
	}
	o.entries[id] = &entry{rect: r, once: once}
	o.order = append(o.order, id)
}

// Move updates the rect of an observed element without re-arming it.
func (o *Observer) Move(id string, r Rect) {
	if e, ok := o.entries[id]; ok {
		e.rect = r
	}
}

func (o *Observer) Unobserve(id string) {
	if _, ok := o.entries[id]; !ok {
		return
	}
	delete(o.entries, id)
	for i, v := range o.order {
		if v == id {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
}

// Rearm makes id fire on the next Check if it is still in range.
func (o *Observer) Rearm(id string) {
	if e, ok := o.entries[id]; ok {
		e.inside = false
	}
}

func (o *Observer) Observing(id string) bool {
	_, ok := o.entries[id]
	return ok
}

func (o *Observer) Len() int {
	return len(o.order)
}

// SetWindow sets the visible span, top row plus height.
func (o *Observer) SetWindow(w Rect) {
	o.window = w
}

func (o *Observer) Window() Rect {
	return o.window
}

// InRange reports whether r touches the margin-expanded window.
func (o *Observer) InRange(r Rect) bool {
	if o.window.Height <= 0 {
		return false
	}
	expanded := Rect{Top: o.window.Top - o.Margin, Height: o.window.Height + 2*o.Margin}
	return expanded.overlaps(r)
}

// Check returns, in registration order, the ids that entered range since
// the last Check.
func (o *Observer) Check() []string {
	var fired []string
	var done []string
	for _, id := range o.order {
		e := o.entries[id]
		in := o.InRange(e.rect)
		if in && !e.inside {
			fired = append(fired, id)
			if e.once {
				done = append(done, id)
			}
		}
		e.inside = in
	}
	for _, id := range done {
		o.Unobserve(id)
	}
	return fired
}
