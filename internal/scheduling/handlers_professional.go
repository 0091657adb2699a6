package scheduling

import (
	"context"
	"fmt"
)

const maxPresentedProfessionals = 5

func requireSpecialty(st *State) error {
	if st.Slots.SpecialtyID == "" {
		return fmt.Errorf("%w: specialty", ErrMissingSlot)
	}
	return nil
}

func handleProfessionalPreference(ctx context.Context, t *TurnContext) (Step, error) {
	st := t.State
	if err := requireSpecialty(st); err != nil {
		return Step{}, err
	}
	if !t.Fresh() {
		return ask(PhaseAwaitProfessionalPreference, fmt.Sprintf(msgAskPreference, st.Slots.SpecialtyName)), nil
	}

	label, err := t.reasoning().Classify(ctx, t.Text, PreferenceLabels)
	if err != nil {
		return t.externalFailure(PhaseAwaitProfessionalPreference, "classify_preference", err), nil
	}
	switch Preference(label) {
	case PreferenceRecommendation:
		st.Slots.Preference = PreferenceRecommendation
		return proceed(PhaseListProfessionals, ""), nil
	case PreferenceNamedNow:
		st.Slots.Preference = PreferenceNamedNow
		name, found, err := t.reasoning().Extract(ctx, t.Text, FieldProfessionalName)
		if err != nil {
			return t.externalFailure(PhaseAwaitProfessionalPreference, "extract_professional", err), nil
		}
		if !found || stripTitle(name) == "" {
			return proceed(PhaseAwaitProfessionalName, ""), nil
		}
		st.Slots.ProfessionalNameHint = stripTitle(name)
		return proceed(PhaseValidateProfessionalName, ""), nil
	case PreferenceNamedLater:
		st.Slots.Preference = PreferenceNamedLater
		return proceed(PhaseAwaitProfessionalName, ""), nil
	default:
		return ask(PhaseAwaitProfessionalPreference, msgPreferenceUnclear), nil
	}
}

func handleAwaitProfessionalName(ctx context.Context, t *TurnContext) (Step, error) {
	if err := requireSpecialty(t.State); err != nil {
		return Step{}, err
	}
	if !t.Fresh() {
		return ask(PhaseAwaitProfessionalName, msgAskProfessionalName), nil
	}
	name, found, err := t.reasoning().Extract(ctx, t.Text, FieldProfessionalName)
	if err != nil {
		return t.externalFailure(PhaseAwaitProfessionalName, "extract_professional", err), nil
	}
	name = stripTitle(name)
	if !found || name == "" {
		return ask(PhaseAwaitProfessionalName, msgAskProfessionalName), nil
	}
	t.State.Slots.Preference = PreferenceNamedNow
	t.State.Slots.ProfessionalNameHint = name
	return proceed(PhaseValidateProfessionalName, ""), nil
}

func handleValidateProfessionalName(ctx context.Context, t *TurnContext) (Step, error) {
	st := t.State
	if err := requireSpecialty(st); err != nil {
		return Step{}, err
	}
	hint := st.Slots.ProfessionalNameHint
	if hint == "" {
		return Step{}, fmt.Errorf("%w: professional name", ErrMissingSlot)
	}

	pros, err := t.directory().ListProfessionals(ctx, st.Slots.SpecialtyID, true)
	if err != nil {
		return t.externalFailure(PhaseValidateProfessionalName, "list_professionals", err), nil
	}
	if len(pros) == 0 {
		st.Slots.ProfessionalNameHint = ""
		return t.fallback(PhaseAwaitProfessionalPreference, fmt.Sprintf(msgNoProfessionals, st.Slots.SpecialtyName)), nil
	}
	names := make([]string, len(pros))
	for i, p := range pros {
		names[i] = stripTitle(p.Name)
	}

	idx, ok, err := t.matchText(ctx, hint, names, "profissionais de "+st.Slots.SpecialtyName)
	if err != nil {
		return t.externalFailure(PhaseValidateProfessionalName, "match_professional", err), nil
	}
	st.Slots.ProfessionalNameHint = ""
	if !ok {
		st.Slots.Preference = ""
		return proceed(PhaseAwaitProfessionalPreference, fmt.Sprintf(msgProfessionalMissing, hint, st.Slots.SpecialtyName)), nil
	}
	st.Slots.ProfessionalID = pros[idx].ID
	st.Slots.ProfessionalName = pros[idx].Name
	return proceed(PhaseAwaitPeriod, fmt.Sprintf(msgProfessionalFound, pros[idx].Name, st.Slots.SpecialtyName)), nil
}

func handleListProfessionals(ctx context.Context, t *TurnContext) (Step, error) {
	st := t.State
	if err := requireSpecialty(st); err != nil {
		return Step{}, err
	}
	pros, err := t.directory().ListProfessionals(ctx, st.Slots.SpecialtyID, true)
	if err != nil {
		return t.externalFailure(PhaseListProfessionals, "list_professionals", err), nil
	}
	if len(pros) == 0 {
		return t.fallback(PhaseAwaitProfessionalPreference, fmt.Sprintf(msgNoProfessionals, st.Slots.SpecialtyName)), nil
	}
	if len(pros) > maxPresentedProfessionals {
		pros = pros[:maxPresentedProfessionals]
	}
	listed := make([]Option, len(pros))
	for i, p := range pros {
		listed[i] = Option{ID: p.ID, Name: p.Name}
	}
	st.Presented.Professionals = listed
	return ask(PhaseAwaitProfessionalChoice, present(fmt.Sprintf(msgPickProfessional, st.Slots.SpecialtyName), optionNames(listed))), nil
}

func handleProfessionalChoice(ctx context.Context, t *TurnContext) (Step, error) {
	st := t.State
	cached := st.Presented.Professionals
	if len(cached) == 0 {
		return proceed(PhaseListProfessionals, ""), nil
	}
	if !t.Fresh() {
		return ask(PhaseAwaitProfessionalChoice, present(fmt.Sprintf(msgPickProfessional, st.Slots.SpecialtyName), optionNames(cached))), nil
	}
	idx, ok, err := t.resolveChoice(ctx, optionNames(cached), "profissionais de "+st.Slots.SpecialtyName)
	if err != nil {
		return t.externalFailure(PhaseAwaitProfessionalChoice, "match_professional", err), nil
	}
	if !ok {
		return ask(PhaseAwaitProfessionalChoice, msgChoiceUnclear+"\n\n"+numbered(optionNames(cached))), nil
	}
	st.Slots.ProfessionalID = cached[idx].ID
	st.Slots.ProfessionalName = cached[idx].Name
	st.Presented.Professionals = nil
	return proceed(PhaseAwaitPeriod, ""), nil
}
