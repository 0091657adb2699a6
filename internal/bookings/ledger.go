// Package bookings keeps a local ledger of appointments committed through the
// assistant, independent of the clinic scheduling API.
package bookings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Erick-Marinho/Health-AI/internal/scheduling"
	"github.com/Erick-Marinho/Health-AI/pkg/logging"
)

const uniqueViolation = "23505"

// Entry is one ledger row.
type Entry struct {
	AppointmentID    string    `json:"appointment_id"`
	SessionID        string    `json:"session_id"`
	Contact          string    `json:"contact"`
	PatientName      string    `json:"patient_name"`
	SpecialtyName    string    `json:"specialty_name"`
	ProfessionalName string    `json:"professional_name"`
	Date             string    `json:"date"`
	Start            string    `json:"start"`
	End              string    `json:"end"`
	CreatedAt        time.Time `json:"created_at"`
}

// Ledger records committed bookings in Postgres.
type Ledger struct {
	db     *sql.DB
	logger *logging.Logger
}

// Open connects to Postgres through lib/pq.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("bookings: open db: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

func NewLedger(db *sql.DB, logger *logging.Logger) *Ledger {
	if db == nil {
		panic("bookings: sql db required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Ledger{db: db, logger: logger}
}

var _ scheduling.BookingRecorder = (*Ledger)(nil)

// RecordBooking inserts the booking. A second insert of the same appointment
// id is ignored.
func (l *Ledger) RecordBooking(ctx context.Context, b scheduling.CommittedBooking) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO bookings (appointment_id, session_id, contact, patient_name,
		                      specialty_id, specialty_name, professional_id, professional_name,
		                      unit_id, appointment_date, start_time, end_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		b.AppointmentID, b.SessionID, b.Contact, b.PatientName,
		b.SpecialtyID, b.SpecialtyName, b.ProfessionalID, b.ProfessionalName,
		nullString(b.UnitID), b.Date, b.Start, b.End, b.CreatedAt.UTC())
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			l.logger.Info("booking already recorded", "appointment_id", b.AppointmentID)
			return nil
		}
		return fmt.Errorf("bookings: insert: %w", err)
	}
	return nil
}

// ListBySession returns the bookings made in a session, newest first.
func (l *Ledger) ListBySession(ctx context.Context, sessionID string) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT appointment_id, session_id, contact, patient_name, specialty_name,
		       professional_name, appointment_date, start_time, end_time, created_at
		FROM bookings WHERE session_id = $1 ORDER BY created_at DESC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("bookings: list: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.AppointmentID, &e.SessionID, &e.Contact, &e.PatientName, &e.SpecialtyName,
			&e.ProfessionalName, &e.Date, &e.Start, &e.End, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("bookings: scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
