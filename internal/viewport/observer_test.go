package viewport

import (
	"reflect"
	"testing"
)

func TestCheckFiresOnEnterOnly(t *testing.T) {
	o := New(0)
	o.Observe("a", Rect{Top: 0, Height: 5}, false)
	o.Observe("b", Rect{Top: 20, Height: 5}, false)
	o.SetWindow(Rect{Top: 0, Height: 10})

	if got := o.Check(); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("first check = %v, want [a]", got)
	}
	if got := o.Check(); len(got) != 0 {
		t.Fatalf("second check should not refire, got %v", got)
	}

	o.SetWindow(Rect{Top: 18, Height: 10})
	if got := o.Check(); !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("after scroll = %v, want [b]", got)
	}

	o.SetWindow(Rect{Top: 0, Height: 10})
	if got := o.Check(); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("scroll back should refire non-once entry a, got %v", got)
	}
}

func TestOnceEntryFiresExactlyOnce(t *testing.T) {
	o := New(0)
	o.Observe("card", Rect{Top: 0, Height: 3}, true)
	o.SetWindow(Rect{Top: 0, Height: 10})

	if got := o.Check(); !reflect.DeepEqual(got, []string{"card"}) {
		t.Fatalf("got %v", got)
	}
	if o.Observing("card") {
		t.Fatal("once entry should be dropped after firing")
	}
	o.SetWindow(Rect{Top: 50, Height: 10})
	o.Check()
	o.SetWindow(Rect{Top: 0, Height: 10})
	if got := o.Check(); len(got) != 0 {
		t.Fatalf("once entry fired again: %v", got)
	}
}

func TestMarginExpandsWindow(t *testing.T) {
	o := New(4)
	o.Observe("near", Rect{Top: 13, Height: 1}, false)
	o.Observe("far", Rect{Top: 15, Height: 1}, false)
	o.SetWindow(Rect{Top: 0, Height: 10})

	if got := o.Check(); !reflect.DeepEqual(got, []string{"near"}) {
		t.Fatalf("got %v, want [near]", got)
	}
}

func TestRearmRefiresWhileStillInRange(t *testing.T) {
	o := New(2)
	o.Observe("sentinel", Rect{Top: 5, Height: 0}, false)
	o.SetWindow(Rect{Top: 0, Height: 10})

	if got := o.Check(); len(got) != 1 {
		t.Fatalf("expected sentinel to fire, got %v", got)
	}
	if got := o.Check(); len(got) != 0 {
		t.Fatalf("sentinel should be quiet without rearm, got %v", got)
	}
	o.Rearm("sentinel")
	if got := o.Check(); !reflect.DeepEqual(got, []string{"sentinel"}) {
		t.Fatalf("rearmed sentinel should fire, got %v", got)
	}
}

func TestMoveDoesNotRearm(t *testing.T) {
	o := New(0)
	o.Observe("s", Rect{Top: 2, Height: 1}, false)
	o.SetWindow(Rect{Top: 0, Height: 10})
	o.Check()

	o.Move("s", Rect{Top: 4, Height: 1})
	if got := o.Check(); len(got) != 0 {
		t.Fatalf("move within range should not fire, got %v", got)
	}
	o.Move("s", Rect{Top: 40, Height: 1})
	o.Check()
	o.Move("s", Rect{Top: 5, Height: 1})
	if got := o.Check(); !reflect.DeepEqual(got, []string{"s"}) {
		t.Fatalf("re-entering range should fire, got %v", got)
	}
}

func TestZeroHeightWindowSeesNothing(t *testing.T) {
	o := New(10)
	o.Observe("a", Rect{Top: 0, Height: 1}, false)
	if got := o.Check(); len(got) != 0 {
		t.Fatalf("got %v before window is set", got)
	}
}

func TestUnobserve(t *testing.T) {
	o := New(0)
	o.Observe("a", Rect{Top: 0, Height: 1}, false)
	o.Observe("b", Rect{Top: 1, Height: 1}, false)
	o.Unobserve("a")
	o.Unobserve("missing")
	o.SetWindow(Rect{Top: 0, Height: 5})
	if got := o.Check(); !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("got %v", got)
	}
	if o.Len() != 1 {
		t.Fatalf("len = %d", o.Len())
	}
}
