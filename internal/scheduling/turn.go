package scheduling

import (
	"time"

	"github.com/Erick-Marinho/Health-AI/pkg/logging"
)

// TurnContext is the per-turn view handed to phase handlers.
type TurnContext struct {
	engine *Engine
	State  *State
	Text   string
	fresh  bool
	log    *logging.Logger
	// booked is set when the turn committed an appointment.
	booked *CommittedBooking
}

// Fresh reports whether the handler received a new user message, as opposed
// to being entered by a chained continuation or a retry.
func (t *TurnContext) Fresh() bool {
	return t.fresh
}

func (t *TurnContext) reasoning() Reasoning { return t.engine.reasoning }

func (t *TurnContext) directory() Directory { return t.engine.directory }

func (t *TurnContext) today() time.Time {
	now := t.engine.now().In(t.engine.location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, t.engine.location)
}

// ask ends the turn waiting in next.
func ask(next Phase, reply string) Step {
	return Step{Reply: reply, Next: next}
}

// proceed runs next in the same turn.
func proceed(next Phase, reply string) Step {
	return Step{Reply: reply, Next: next, Continue: true}
}

// fallback routes to the recovery menu remembering which phase to retry.
func (t *TurnContext) fallback(previous Phase, reason string) Step {
	t.State.PreviousPhase = previous
	t.State.FallbackReason = reason
	return proceed(PhaseAwaitFallbackChoice, "")
}

// externalFailure logs a capability failure and opens the recovery menu.
func (t *TurnContext) externalFailure(previous Phase, op string, err error) Step {
	t.log.Warn("external capability failed", "operation", op, "phase", previous, "timeout", isTimeout(err), "error", err)
	return t.fallback(previous, msgExternalFailure)
}
