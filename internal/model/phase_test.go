package model

import "testing"

func TestCanTransition_AllowsExpectedPaths(t *testing.T) {
	cases := []struct {
		from Phase
		to   Phase
	}{
		{"", PhaseInitialLoading},
		{PhaseInitialLoading, PhaseIdle},
		{PhaseInitialLoading, PhaseError},
		{PhaseIdle, PhaseLoadingMore},
		{PhaseLoadingMore, PhaseIdle},
		{PhaseLoadingMore, PhaseError},
		{PhaseError, PhaseInitialLoading},
		{PhaseError, PhaseLoadingMore},
	}

	for _, tc := range cases {
		if !CanTransition(tc.from, tc.to) {
			t.Fatalf("expected transition %q -> %q to be allowed", tc.from, tc.to)
		}
	}
}

func TestCanTransition_RejectsInvalidPaths(t *testing.T) {
	cases := []struct {
		from Phase
		to   Phase
	}{
		{"", PhaseIdle},
		{PhaseIdle, PhaseError},
		{PhaseIdle, PhaseIdle},
		{PhaseError, PhaseIdle},
		{PhaseInitialLoading, PhaseLoadingMore},
		{"not_a_phase", PhaseIdle},
	}

	for _, tc := range cases {
		if CanTransition(tc.from, tc.to) {
			t.Fatalf("expected transition %q -> %q to be rejected", tc.from, tc.to)
		}
	}
}

func TestTransitionPhase_BlocksIllegalTransition(t *testing.T) {
	p := PhaseIdle
	if err := TransitionPhase(&p, PhaseError); err == nil {
		t.Fatalf("expected illegal transition error")
	}
	if p != PhaseIdle {
		t.Fatalf("phase changed on rejected transition: %q", p)
	}
	if err := TransitionPhase(&p, PhaseLoadingMore); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != PhaseLoadingMore {
		t.Fatalf("expected loading-more, got %q", p)
	}
}

func TestIsKnownPhase(t *testing.T) {
	if !IsKnownPhase(PhaseError) {
		t.Fatal("error should be a known phase")
	}
	if IsKnownPhase("") || IsKnownPhase("paused") {
		t.Fatal("empty and unknown phases must not be known")
	}
}
