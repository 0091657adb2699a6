package scheduling

import (
	"context"
	"fmt"
	"time"
)

const (
	minDateCandidates   = 3
	maxPresentedDates   = 3
	maxPresentedTimes   = 3
	dateLookaheadMonths = 2
)

func requireProfessional(st *State) error {
	if st.Slots.ProfessionalID == "" {
		return fmt.Errorf("%w: professional", ErrMissingSlot)
	}
	return nil
}

func handleAwaitPeriod(ctx context.Context, t *TurnContext) (Step, error) {
	st := t.State
	if err := requireProfessional(st); err != nil {
		return Step{}, err
	}
	if !t.Fresh() {
		return ask(PhaseAwaitPeriod, msgAskPeriod), nil
	}
	label, err := t.reasoning().Classify(ctx, t.Text, PeriodLabels)
	if err != nil {
		return t.externalFailure(PhaseAwaitPeriod, "classify_period", err), nil
	}
	switch label {
	case LabelMorning:
		st.Slots.Period = PeriodMorning
	case LabelAfternoon:
		st.Slots.Period = PeriodAfternoon
	default:
		return ask(PhaseAwaitPeriod, msgPeriodUnclear), nil
	}
	return proceed(PhaseFetchDates, ""), nil
}

func handleFetchDates(ctx context.Context, t *TurnContext) (Step, error) {
	st := t.State
	if err := requireProfessional(st); err != nil {
		return Step{}, err
	}
	today := t.today()
	var collected []string
	for i := 0; i < dateLookaheadMonths; i++ {
		month := time.Date(today.Year(), today.Month()+time.Month(i), 1, 0, 0, 0, 0, today.Location())
		raw, err := t.directory().ListAvailableDates(ctx, st.Slots.ProfessionalID, int(month.Month()), month.Year())
		if err != nil {
			return t.externalFailure(PhaseFetchDates, "list_dates", err), nil
		}
		collected = upcomingDates(append(collected, raw...), today)
		if len(collected) >= minDateCandidates {
			break
		}
	}
	if len(collected) == 0 {
		return t.fallback(PhaseAwaitProfessionalPreference, fmt.Sprintf(msgNoDates, st.Slots.ProfessionalName)), nil
	}
	if len(collected) > maxPresentedDates {
		collected = collected[:maxPresentedDates]
	}
	st.Presented.Dates = collected
	return ask(PhaseAwaitDateChoice, present(fmt.Sprintf(msgPickDate, st.Slots.ProfessionalName), dateLabels(collected))), nil
}

func handleDateChoice(ctx context.Context, t *TurnContext) (Step, error) {
	st := t.State
	cached := st.Presented.Dates
	if len(cached) == 0 {
		return proceed(PhaseFetchDates, ""), nil
	}
	if !t.Fresh() {
		return ask(PhaseAwaitDateChoice, present(fmt.Sprintf(msgPickDate, st.Slots.ProfessionalName), dateLabels(cached))), nil
	}
	idx, ok, err := t.resolveChoice(ctx, dateLabels(cached), "datas disponíveis para consulta")
	if err != nil {
		return t.externalFailure(PhaseAwaitDateChoice, "match_date", err), nil
	}
	if !ok {
		return ask(PhaseAwaitDateChoice, msgChoiceUnclear+"\n\n"+numbered(dateLabels(cached))), nil
	}
	st.Slots.Date = cached[idx]
	st.Presented.Dates = nil
	return proceed(PhaseFetchTimes, ""), nil
}

func handleFetchTimes(ctx context.Context, t *TurnContext) (Step, error) {
	st := t.State
	if err := requireProfessional(st); err != nil {
		return Step{}, err
	}
	if st.Slots.Date == "" {
		return Step{}, fmt.Errorf("%w: date", ErrMissingSlot)
	}
	if st.Slots.Period == "" {
		return Step{}, fmt.Errorf("%w: period", ErrMissingSlot)
	}
	slots, err := t.directory().ListAvailableTimes(ctx, st.Slots.ProfessionalID, st.Slots.Date)
	if err != nil {
		return t.externalFailure(PhaseFetchTimes, "list_times", err), nil
	}
	times := slotsForPeriod(slots, st.Slots.Period)
	if len(times) == 0 {
		reason := fmt.Sprintf(msgNoTimes, st.Slots.Period.Label(), shortDate(st.Slots.Date))
		st.Slots.Date = ""
		return t.fallback(PhaseFetchDates, reason), nil
	}
	if len(times) > maxPresentedTimes {
		times = times[:maxPresentedTimes]
	}
	st.Presented.Times = times
	header := fmt.Sprintf(msgPickTime, st.Slots.Period.Label(), shortDate(st.Slots.Date))
	return ask(PhaseAwaitTimeChoice, present(header, timeLabels(times))), nil
}

func handleTimeChoice(ctx context.Context, t *TurnContext) (Step, error) {
	st := t.State
	cached := st.Presented.Times
	if len(cached) == 0 {
		return proceed(PhaseFetchTimes, ""), nil
	}
	if !t.Fresh() {
		header := fmt.Sprintf(msgPickTime, st.Slots.Period.Label(), shortDate(st.Slots.Date))
		return ask(PhaseAwaitTimeChoice, present(header, timeLabels(cached))), nil
	}
	idx, ok, err := t.resolveChoice(ctx, timeLabels(cached), "horários disponíveis para consulta")
	if err != nil {
		return t.externalFailure(PhaseAwaitTimeChoice, "match_time", err), nil
	}
	if !ok {
		return ask(PhaseAwaitTimeChoice, msgChoiceUnclear+"\n\n"+numbered(timeLabels(cached))), nil
	}
	st.Slots.StartTime = cached[idx].Start
	st.Slots.EndTime = cached[idx].End
	st.Presented.Times = nil
	return proceed(PhaseAwaitFinalConfirmation, ""), nil
}
