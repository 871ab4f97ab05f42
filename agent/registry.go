package agent

import (
	"fmt"

	"go.uber.org/zap"
)

// Transition phrases are user-facing: they must read as one continuous
// persona, never mentioning agents or routing.
const (
	transitionToMain = "Alright, I understand. Let's get back to our conversation."
	transitionOther  = "Okay, I can help you with that."
)

// Registry holds the fixed specialist set for one session and performs
// handoffs. Registration happens once at session start; the map is read-only
// afterwards.
type Registry struct {
	agents    map[Kind]*Agent
	carryover *Carryover
	logger    *zap.Logger
}

// NewRegistry creates a registry over the given specialists.
func NewRegistry(agents map[Kind]*Agent, carryover *Carryover, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if carryover == nil {
		carryover = NewCarryover(logger)
	}
	return &Registry{
		agents:    agents,
		carryover: carryover,
		logger:    logger.With(zap.String("component", "registry")),
	}
}

// Get looks up a specialist by kind.
func (r *Registry) Get(kind Kind) (*Agent, bool) {
	a, ok := r.agents[kind]
	return a, ok
}

// Transfer hands the conversation from the requesting specialist to the named
// target. It is total: an unknown target keeps the current specialist active
// and returns an apologetic utterance instead of failing the session.
//
// On success the requesting specialist becomes Previous, the target becomes
// Active, carryover rebuilds the target's context, and the returned utterance
// is the fixed transition phrase.
func (r *Registry) Transfer(target string, from *Agent, state SessionState) (*Agent, string) {
	next, ok := r.agents[Kind(target)]
	if !ok {
		r.logger.Error("transfer target not registered", zap.String("target", target))
		return from, fmt.Sprintf("Sorry, I encountered an issue and cannot help with %s right now.", target)
	}

	state.SetActive(next, from)
	r.logger.Info("handoff",
		zap.String("from", string(from.Kind())),
		zap.String("to", string(next.Kind())),
	)

	r.carryover.OnActivate(next, state)

	return next, TransitionPhrase(next.Kind())
}

// TransitionPhrase is the fixed utterance spoken when the named specialist
// takes over.
func TransitionPhrase(kind Kind) string {
	if kind == KindMain {
		return transitionToMain
	}
	return transitionOther
}
