package archive

import (
	"context"

	"github.com/Erick-Marinho/Health-AI/internal/scheduling"
)

// BookingArchiver stores the transcript behind every committed appointment.
// Contacts and session ids are hashed and message text is scrubbed before
// anything leaves the process.
type BookingArchiver struct {
	store *Store
}

// NewBookingArchiver wraps store as a scheduling.BookingRecorder.
func NewBookingArchiver(store *Store) *BookingArchiver {
	return &BookingArchiver{store: store}
}

// RecordBooking implements scheduling.BookingRecorder.
func (a *BookingArchiver) RecordBooking(ctx context.Context, b scheduling.CommittedBooking) error {
	if a == nil || !a.store.Enabled() {
		return nil
	}
	return a.store.ArchiveBooking(ctx, NewBookingRecord(b))
}

// NewBookingRecord converts a committed booking into its archived form.
func NewBookingRecord(b scheduling.CommittedBooking) BookingRecord {
	msgs := make([]Message, 0, len(b.Transcript))
	for _, turn := range b.Transcript {
		msgs = append(msgs, Message{Role: string(turn.Role), Content: turn.Text, Timestamp: turn.Timestamp})
	}
	ScrubMessages(msgs)

	var duration int
	if n := len(b.Transcript); n > 1 {
		duration = int(b.Transcript[n-1].Timestamp.Sub(b.Transcript[0].Timestamp).Seconds())
	}

	return BookingRecord{
		Version:          recordVersion,
		AppointmentID:    b.AppointmentID,
		SessionHash:      HashContact(b.SessionID),
		ContactHash:      HashContact(b.Contact),
		SpecialtyName:    b.SpecialtyName,
		ProfessionalName: b.ProfessionalName,
		Date:             b.Date,
		Start:            b.Start,
		End:              b.End,
		DurationSeconds:  duration,
		MessageCount:     len(msgs),
		Messages:         msgs,
	}
}
