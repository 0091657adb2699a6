package scheduling

import "context"

// Specialty is a medical specialty offered by the clinic.
type Specialty struct {
	ID   string
	Name string
}

// Professional is a practitioner registered in the directory.
type Professional struct {
	ID   string
	Name string
}

// TimeSlot is an open slot on a given date. Start and End are HH:MM.
type TimeSlot struct {
	Start string
	End   string
}

// Unit is a clinic location.
type Unit struct {
	ID      string
	Name    string
	Address string
	Phone   string
}

// AppointmentRequest carries every resolved slot needed to book.
type AppointmentRequest struct {
	ProfessionalID string
	SpecialtyID    string
	UnitID         string
	Date           string
	Start          string
	End            string
	PatientName    string
	Contact        string
}

// Appointment is the directory's reply to a successful booking.
type Appointment struct {
	ID string
}

// Directory is the clinic scheduling API. Errors that represent a business
// rejection should implement DomainError.
type Directory interface {
	ListSpecialties(ctx context.Context) ([]Specialty, error)
	ListProfessionals(ctx context.Context, specialtyID string, activeOnly bool) ([]Professional, error)
	ListAvailableDates(ctx context.Context, professionalID string, month, year int) ([]string, error)
	ListAvailableTimes(ctx context.Context, professionalID, date string) ([]TimeSlot, error)
	CreateAppointment(ctx context.Context, req AppointmentRequest) (Appointment, error)
	ListUnits(ctx context.Context) ([]Unit, error)
}
