package scheduling

import (
	"context"
	"strings"
)

type menuOption struct {
	label  string
	action string
}

// fallbackMenu lists the recovery options in display order. The specialty
// option is omitted when the failure happened before a specialty existed.
func fallbackMenu(previous Phase) []menuOption {
	retry, ok := retryOptionLabels[previous]
	if !ok {
		retry = optRetryDefault
	}
	opts := []menuOption{{label: retry, action: LabelRetry}}
	switch previous {
	case PhaseAwaitSpecialty, PhaseAwaitName, PhaseStart:
	default:
		opts = append(opts, menuOption{label: optGoToSpecialty, action: LabelGoToSpecialty})
	}
	return append(opts, menuOption{label: optCancelFlow, action: LabelCancelFlow})
}

func menuText(reason string, opts []menuOption) string {
	labels := make([]string, len(opts))
	for i, o := range opts {
		labels[i] = o.label
	}
	var b strings.Builder
	if reason != "" {
		b.WriteString(reason)
		b.WriteString("\n\n")
	}
	b.WriteString(present(msgFallbackQuestion, labels))
	return b.String()
}

func handleFallbackChoice(ctx context.Context, t *TurnContext) (Step, error) {
	st := t.State
	previous := st.PreviousPhase
	if previous == "" || previous == PhaseAwaitFallbackChoice || previous.IsTerminal() || !previous.declared() {
		return Step{}, ErrUnknownPhase
	}
	opts := fallbackMenu(previous)
	menu := menuText(st.FallbackReason, opts)
	if !t.Fresh() {
		return ask(PhaseAwaitFallbackChoice, menu), nil
	}

	action := ""
	if n, ok := parseOrdinal(t.Text); ok {
		if n >= 1 && n <= len(opts) {
			action = opts[n-1].action
		}
	} else {
		label, err := t.reasoning().Classify(ctx, t.Text, FallbackLabels.WithContext(menuText("", opts)))
		if err != nil {
			t.log.Warn("fallback classification failed", "error", err)
		}
		for _, o := range opts {
			if o.action == label {
				action = label
				break
			}
		}
	}

	switch action {
	case LabelRetry:
		st.PreviousPhase = ""
		st.FallbackReason = ""
		return proceed(previous, ""), nil
	case LabelGoToSpecialty:
		st.PreviousPhase = ""
		st.FallbackReason = ""
		st.ResetFromSpecialty()
		return proceed(PhaseAwaitSpecialty, ""), nil
	case LabelCancelFlow:
		return proceed(PhaseCancelled, ""), nil
	default:
		return ask(PhaseAwaitFallbackChoice, msgFallbackUnclear+"\n\n"+menuText("", opts)), nil
	}
}
