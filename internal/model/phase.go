package model

import "fmt"

type Phase string

const (
	PhaseInitialLoading Phase = "initial-loading"
	PhaseIdle           Phase = "idle"
	PhaseLoadingMore    Phase = "loading-more"
	PhaseError          Phase = "error"
)

var allowedPhaseTransitions = map[Phase]map[Phase]bool{
	"": {
		PhaseInitialLoading: true,
	},
	PhaseInitialLoading: {
		PhaseInitialLoading: true, // reload while the first page is in flight
		PhaseIdle:           true,
		PhaseError:          true,
	},
	PhaseIdle: {
		PhaseInitialLoading: true,
		PhaseLoadingMore:    true,
	},
	PhaseLoadingMore: {
		PhaseInitialLoading: true,
		PhaseIdle:           true,
		PhaseError:          true,
	},
	PhaseError: {
		PhaseInitialLoading: true,
		PhaseLoadingMore:    true, // retry in place after a failed append
	},
}

func IsKnownPhase(p Phase) bool {
	_, ok := allowedPhaseTransitions[p]
	return ok && p != ""
}

func CanTransition(from, to Phase) bool {
	next, ok := allowedPhaseTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

func TransitionPhase(current *Phase, to Phase) error {
	if !CanTransition(*current, to) {
		return fmt.Errorf("invalid gallery phase transition: %q -> %q", *current, to)
	}
	*current = to
	return nil
}
