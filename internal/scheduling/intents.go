package scheduling

import (
	"context"
	"fmt"
	"strings"
)

// routeIntent handles a message when no operation is running.
func (e *Engine) routeIntent(ctx context.Context, t *TurnContext) (string, string) {
	if !t.fresh {
		return msgGreeting, "intent_greeting"
	}
	intent, err := e.reasoning.Classify(ctx, t.Text, IntentLabels)
	if err != nil {
		t.log.Warn("intent classification failed", "error", err)
		return msgIntentRetry, "intent_failed"
	}
	t.log.Debug("intent classified", "intent", intent)

	switch intent {
	case IntentCreate:
		t.State.BeginScheduling()
		t.fresh = false
		return e.runChain(ctx, t, PhaseStart)
	case IntentQuery:
		return msgQueryUnavailable, "intent_query"
	case IntentUpdate:
		return msgUpdateUnavailable, "intent_update"
	case IntentCancel:
		return msgCancelUnavailable, "intent_cancel"
	case IntentUnitInfo:
		return e.unitInfo(ctx, t), "intent_unit_info"
	case IntentGreeting:
		return e.greetingOrFarewell(ctx, t), "intent_greeting"
	default:
		return msgOutOfScope, "intent_out_of_scope"
	}
}

func (e *Engine) unitInfo(ctx context.Context, t *TurnContext) string {
	units, err := e.directory.ListUnits(ctx)
	if err != nil {
		t.log.Warn("list units failed", "error", err)
		return msgUnitsFailure
	}
	if len(units) == 0 {
		return msgUnitsEmpty
	}
	var b strings.Builder
	b.WriteString(msgUnitsHeader)
	for _, u := range units {
		b.WriteString("\n\n• ")
		b.WriteString(u.Name)
		if u.Address != "" {
			fmt.Fprintf(&b, "\n  Endereço: %s", u.Address)
		}
		if u.Phone != "" {
			fmt.Fprintf(&b, "\n  Telefone: %s", u.Phone)
		}
	}
	return b.String()
}

func (e *Engine) greetingOrFarewell(ctx context.Context, t *TurnContext) string {
	label, err := e.reasoning.Classify(ctx, t.Text, GreetingLabels)
	if err != nil {
		t.log.Warn("greeting classification failed", "error", err)
		return msgGreeting
	}
	if label == LabelFarewell {
		return msgFarewell
	}
	return msgGreeting
}
