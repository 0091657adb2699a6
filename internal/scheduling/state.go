package scheduling

import "time"

// Role tags a history turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of the append-only conversation history.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Option is a directory entity shown to the user in a numbered list.
type Option struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TimeOption is a presented time slot. Start and End are HH:MM.
type TimeOption struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Slots are the values collected by the scheduling dialogue. Each one is set
// by the handler that owns its collection phase.
type Slots struct {
	PatientName          string     `json:"patient_name,omitempty"`
	SpecialtyID          string     `json:"specialty_id,omitempty"`
	SpecialtyName        string     `json:"specialty_name,omitempty"`
	Preference           Preference `json:"preference,omitempty"`
	ProfessionalNameHint string     `json:"professional_name_hint,omitempty"`
	ProfessionalID       string     `json:"professional_id,omitempty"`
	ProfessionalName     string     `json:"professional_name,omitempty"`
	Period               Period     `json:"period,omitempty"`
	Date                 string     `json:"date,omitempty"`
	StartTime            string     `json:"start_time,omitempty"`
	EndTime              string     `json:"end_time,omitempty"`
	Confirmed            bool       `json:"confirmed,omitempty"`
}

// Presented holds the exact lists most recently shown to the user.
type Presented struct {
	Specialties   []Option     `json:"specialties,omitempty"`
	Professionals []Option     `json:"professionals,omitempty"`
	Dates         []string     `json:"dates,omitempty"`
	Times         []TimeOption `json:"times,omitempty"`
}

// State is the full persisted record of one session.
type State struct {
	SessionID string    `json:"session_id"`
	Contact   string    `json:"contact,omitempty"`
	History   []Turn    `json:"history"`
	Operation Operation `json:"operation"`
	Phase     Phase     `json:"phase,omitempty"`
	Slots     Slots     `json:"slots"`
	Presented Presented `json:"presented"`

	PreviousPhase  Phase  `json:"previous_phase,omitempty"`
	FallbackReason string `json:"fallback_reason,omitempty"`

	SchedulingCompleted bool   `json:"scheduling_completed,omitempty"`
	LastAppointmentID   string `json:"last_appointment_id,omitempty"`

	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewState returns an empty state for a session with no operation running.
func NewState(sessionID string) *State {
	return &State{
		SessionID: sessionID,
		History:   []Turn{},
		Operation: OperationNone,
	}
}

// Append adds a turn to the history.
func (s *State) Append(role Role, text string, at time.Time) {
	s.History = append(s.History, Turn{Role: role, Text: text, Timestamp: at})
}

// InProgress reports whether a scheduling operation is running.
func (s *State) InProgress() bool {
	return s.Operation == OperationScheduling
}

// BeginScheduling starts a fresh scheduling operation.
func (s *State) BeginScheduling() {
	s.ResetOperation()
	s.SchedulingCompleted = false
	s.LastAppointmentID = ""
	s.Operation = OperationScheduling
	s.Phase = PhaseStart
}

// ResetOperation ends any running operation and clears every scheduling slot,
// cache and fallback field. History and outcome fields are kept.
func (s *State) ResetOperation() {
	s.Operation = OperationNone
	s.Phase = ""
	s.Slots = Slots{}
	s.Presented = Presented{}
	s.PreviousPhase = ""
	s.FallbackReason = ""
}

// ResetFromSpecialty clears the specialty and every slot collected after it.
func (s *State) ResetFromSpecialty() {
	name := s.Slots.PatientName
	s.Slots = Slots{PatientName: name}
	s.Presented = Presented{}
}

// clone returns a deep copy, used by the memory store so callers cannot
// mutate persisted data in place.
func (s *State) clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	out.History = append([]Turn(nil), s.History...)
	out.Presented = Presented{
		Specialties:   append([]Option(nil), s.Presented.Specialties...),
		Professionals: append([]Option(nil), s.Presented.Professionals...),
		Dates:         append([]string(nil), s.Presented.Dates...),
		Times:         append([]TimeOption(nil), s.Presented.Times...),
	}
	return &out
}
