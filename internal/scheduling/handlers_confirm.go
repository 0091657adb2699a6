package scheduling

import (
	"context"
	"errors"
	"fmt"
)

var errEmptyAppointmentID = errors.New("scheduling: directory returned an empty appointment id")

func requireBookingSlots(st *State) error {
	missing := func(name string) error { return fmt.Errorf("%w: %s", ErrMissingSlot, name) }
	switch {
	case st.Slots.PatientName == "":
		return missing("patient name")
	case st.Slots.SpecialtyID == "":
		return missing("specialty")
	case st.Slots.ProfessionalID == "":
		return missing("professional")
	case st.Slots.Date == "":
		return missing("date")
	case st.Slots.StartTime == "":
		return missing("start time")
	}
	return nil
}

func confirmationSummary(st *State) string {
	return fmt.Sprintf(msgConfirmSummary,
		st.Slots.PatientName,
		st.Slots.SpecialtyName,
		st.Slots.ProfessionalName,
		displayDate(st.Slots.Date),
		st.Slots.StartTime,
	)
}

func handleFinalConfirmation(ctx context.Context, t *TurnContext) (Step, error) {
	st := t.State
	if err := requireBookingSlots(st); err != nil {
		return Step{}, err
	}
	if !t.Fresh() {
		return ask(PhaseAwaitFinalConfirmation, confirmationSummary(st)), nil
	}

	label, err := t.reasoning().Classify(ctx, t.Text, ConfirmationLabels)
	if err != nil {
		return t.externalFailure(PhaseAwaitFinalConfirmation, "classify_confirmation", err), nil
	}
	switch label {
	case LabelConfirmed:
		return t.engine.commit(ctx, t)
	case LabelCancelled:
		return proceed(PhaseCancelled, ""), nil
	default:
		return ask(PhaseAwaitFinalConfirmation, msgConfirmUnclear), nil
	}
}

// commit books the appointment. Slots survive any failure so the patient
// does not restart the dialogue.
func (e *Engine) commit(ctx context.Context, t *TurnContext) (Step, error) {
	st := t.State
	req := AppointmentRequest{
		ProfessionalID: st.Slots.ProfessionalID,
		SpecialtyID:    st.Slots.SpecialtyID,
		UnitID:         e.unitID,
		Date:           st.Slots.Date,
		Start:          st.Slots.StartTime,
		End:            st.Slots.EndTime,
		PatientName:    st.Slots.PatientName,
		Contact:        st.Contact,
	}
	appt, err := e.directory.CreateAppointment(ctx, req)
	if err != nil {
		if isDomainError(err) {
			t.log.Warn("appointment rejected by directory", "error", err, "date", req.Date, "start", req.Start)
			st.Slots.StartTime = ""
			st.Slots.EndTime = ""
			return t.fallback(PhaseFetchTimes, msgBookingRejected), nil
		}
		t.log.Warn("appointment creation failed", "error", err, "timeout", isTimeout(err))
		return ask(PhaseAwaitFinalConfirmation, msgBookingRetry), nil
	}
	if appt.ID == "" {
		// The directory may have booked anyway; keep the slots and let the
		// patient retry or cancel instead of reporting an internal error.
		return t.externalFailure(PhaseAwaitFinalConfirmation, "create_appointment", errEmptyAppointmentID), nil
	}

	st.Slots.Confirmed = true
	st.SchedulingCompleted = true
	st.LastAppointmentID = appt.ID
	reply := fmt.Sprintf(msgBooked, st.Slots.SpecialtyName, st.Slots.ProfessionalName, shortDate(st.Slots.Date), st.Slots.StartTime, appt.ID)
	t.log.Info("appointment booked", "appointment_id", appt.ID, "professional_id", req.ProfessionalID, "date", req.Date, "start", req.Start)

	booking := CommittedBooking{
		AppointmentID:    appt.ID,
		SessionID:        st.SessionID,
		Contact:          st.Contact,
		PatientName:      st.Slots.PatientName,
		SpecialtyID:      st.Slots.SpecialtyID,
		SpecialtyName:    st.Slots.SpecialtyName,
		ProfessionalID:   st.Slots.ProfessionalID,
		ProfessionalName: st.Slots.ProfessionalName,
		UnitID:           e.unitID,
		Date:             st.Slots.Date,
		Start:            st.Slots.StartTime,
		End:              st.Slots.EndTime,
		CreatedAt:        e.now().UTC(),
		Transcript:       append([]Turn(nil), st.History...),
	}
	t.booked = &booking
	return proceed(PhaseCompleted, reply), nil
}

func handleCompleted(_ context.Context, t *TurnContext) (Step, error) {
	t.State.ResetOperation()
	return Step{}, nil
}

func handleCancelled(_ context.Context, t *TurnContext) (Step, error) {
	t.State.ResetOperation()
	return Step{Reply: msgCancelled}, nil
}
