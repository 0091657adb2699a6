package archive

import "time"

// BookingRecord is the document archived to S3 for each committed appointment.
type BookingRecord struct {
	Version          string    `json:"version"` // "1.0"
	AppointmentID    string    `json:"appointment_id"`
	SessionHash      string    `json:"session_hash"` // sha256 of session id
	ContactHash      string    `json:"contact_hash"` // sha256 of phone/contact
	ArchivedAt       time.Time `json:"archived_at"`
	SpecialtyName    string    `json:"specialty_name"`
	ProfessionalName string    `json:"professional_name"`
	Date             string    `json:"date"`
	Start            string    `json:"start"`
	End              string    `json:"end"`
	DurationSeconds  int       `json:"duration_seconds"`
	MessageCount     int       `json:"message_count"`
	Messages         []Message `json:"messages"`
}

// Message is a single conversation turn.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ManifestEntry is one JSONL line in the monthly manifest file.
type ManifestEntry struct {
	AppointmentID string `json:"appointment_id"`
	S3Key         string `json:"s3_key"`
	SpecialtyName string `json:"specialty_name"`
	Date          string `json:"date"`
	ArchivedAt    string `json:"archived_at"`
	MessageCount  int    `json:"message_count"`
}
