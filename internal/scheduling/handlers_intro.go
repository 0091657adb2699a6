package scheduling

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

const maxPresentedSpecialties = 10

var fullNamePattern = regexp.MustCompile(`^[\p{L}][\p{L}'’\- ]*[\p{L}]$`)

// validFullName accepts at least two words made of letters, apostrophes
// and hyphens.
func validFullName(name string) bool {
	name = strings.Join(strings.Fields(name), " ")
	if len(name) > 120 || !fullNamePattern.MatchString(name) {
		return false
	}
	return len(strings.Fields(name)) >= 2
}

func handleStart(_ context.Context, t *TurnContext) (Step, error) {
	return proceed(PhaseAwaitName, ""), nil
}

func handleAwaitName(ctx context.Context, t *TurnContext) (Step, error) {
	if !t.Fresh() {
		return ask(PhaseAwaitName, msgAskName), nil
	}
	candidate := strings.Join(strings.Fields(t.Text), " ")
	if !validFullName(candidate) {
		extracted, found, err := t.reasoning().Extract(ctx, t.Text, FieldFullName)
		if err != nil {
			return t.externalFailure(PhaseAwaitName, "extract_name", err), nil
		}
		candidate = strings.Join(strings.Fields(extracted), " ")
		if !found || !validFullName(candidate) {
			return ask(PhaseAwaitName, msgInvalidName), nil
		}
	}
	t.State.Slots.PatientName = candidate
	return proceed(PhaseAwaitSpecialty, ""), nil
}

func handleAwaitSpecialty(ctx context.Context, t *TurnContext) (Step, error) {
	st := t.State
	if !t.Fresh() {
		if len(st.Presented.Specialties) > 0 {
			return ask(PhaseAwaitSpecialty, present(msgPickSpecialty, optionNames(st.Presented.Specialties))), nil
		}
		if st.Slots.PatientName != "" {
			return ask(PhaseAwaitSpecialty, fmt.Sprintf(msgAskSpecialty, firstName(st.Slots.PatientName))), nil
		}
		return ask(PhaseAwaitSpecialty, msgAskSpecialtyBare), nil
	}

	cached := st.Presented.Specialties
	if n, ok := parseOrdinal(t.Text); ok && len(cached) > 0 {
		if n < 1 || n > len(cached) {
			return ask(PhaseAwaitSpecialty, msgChoiceUnclear+"\n\n"+numbered(optionNames(cached))), nil
		}
		return selectSpecialty(t, cached[n-1]), nil
	}

	// Free text is matched against the whole catalog; the presented list is
	// only a hint.
	specialties, err := t.directory().ListSpecialties(ctx)
	if err != nil {
		return t.externalFailure(PhaseAwaitSpecialty, "list_specialties", err), nil
	}
	if len(specialties) == 0 {
		return t.fallback(PhaseAwaitSpecialty, msgNoSpecialties), nil
	}
	names := make([]string, len(specialties))
	for i, s := range specialties {
		names[i] = s.Name
	}
	idx, ok, err := t.matchText(ctx, t.Text, names, "especialidades médicas")
	if err != nil {
		return t.externalFailure(PhaseAwaitSpecialty, "match_specialty", err), nil
	}
	if ok {
		return selectSpecialty(t, Option{ID: specialties[idx].ID, Name: specialties[idx].Name}), nil
	}
	if len(cached) > 0 {
		return ask(PhaseAwaitSpecialty, msgChoiceUnclear+"\n\n"+numbered(optionNames(cached))), nil
	}

	limit := len(specialties)
	if limit > maxPresentedSpecialties {
		limit = maxPresentedSpecialties
	}
	listed := make([]Option, limit)
	for i := 0; i < limit; i++ {
		listed[i] = Option{ID: specialties[i].ID, Name: specialties[i].Name}
	}
	st.Presented.Specialties = listed
	return ask(PhaseAwaitSpecialty, present(msgSpecialtyList, optionNames(listed))), nil
}

func selectSpecialty(t *TurnContext, chosen Option) Step {
	t.State.Slots.SpecialtyID = chosen.ID
	t.State.Slots.SpecialtyName = chosen.Name
	t.State.Presented.Specialties = nil
	return proceed(PhaseAwaitProfessionalPreference, "")
}
