package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Step is what a handler returns: an optional reply, the phase the session
// moves to, and whether that phase runs in the same turn without new input.
type Step struct {
	Reply    string
	Next     Phase
	Continue bool
}

// HandlerFunc runs one phase of the dialogue.
type HandlerFunc func(ctx context.Context, t *TurnContext) (Step, error)

// Handler binds a phase to its implementation and to the phases allowed to
// hand control to it.
type Handler struct {
	Phase        Phase
	Predecessors []Phase
	Run          HandlerFunc
}

func (h Handler) allows(from Phase) bool {
	for _, p := range h.Predecessors {
		if p == from {
			return true
		}
	}
	return false
}

// Router maps every declared phase to exactly one handler.
type Router struct {
	handlers map[Phase]Handler
	dupes    []Phase
}

// NewRouter registers handlers. Problems are reported by Validate.
func NewRouter(handlers ...Handler) *Router {
	r := &Router{handlers: make(map[Phase]Handler, len(handlers))}
	for _, h := range handlers {
		if _, exists := r.handlers[h.Phase]; exists {
			r.dupes = append(r.dupes, h.Phase)
			continue
		}
		r.handlers[h.Phase] = h
	}
	return r
}

// Validate checks the table is total over the declared phases, has no
// duplicate registrations and references only declared predecessors.
func (r *Router) Validate() error {
	var problems []string
	for _, p := range r.dupes {
		problems = append(problems, fmt.Sprintf("phase %s registered twice", p))
	}
	for _, p := range AllPhases {
		if _, ok := r.handlers[p]; !ok {
			problems = append(problems, fmt.Sprintf("phase %s has no handler", p))
		}
	}
	for phase, h := range r.handlers {
		if !phase.declared() {
			problems = append(problems, fmt.Sprintf("handler registered for undeclared phase %q", phase))
		}
		if h.Run == nil {
			problems = append(problems, fmt.Sprintf("phase %s has nil handler func", phase))
		}
		for _, pred := range h.Predecessors {
			if !pred.declared() {
				problems = append(problems, fmt.Sprintf("phase %s lists undeclared predecessor %q", phase, pred))
			}
		}
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return errors.New("scheduling: invalid router: " + strings.Join(problems, "; "))
}

// Lookup returns the handler for phase or ErrUnknownPhase.
func (r *Router) Lookup(phase Phase) (Handler, error) {
	h, ok := r.handlers[phase]
	if !ok {
		return Handler{}, fmt.Errorf("%w: %q", ErrUnknownPhase, phase)
	}
	return h, nil
}
