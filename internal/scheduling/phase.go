package scheduling

// Operation is the structured operation a session is running.
type Operation string

const (
	OperationNone       Operation = "NONE"
	OperationScheduling Operation = "SCHEDULING"
)

// Phase names the single step currently owned by the scheduling dialogue.
type Phase string

const (
	PhaseStart                       Phase = "START"
	PhaseAwaitName                   Phase = "AWAIT_NAME"
	PhaseAwaitSpecialty              Phase = "AWAIT_SPECIALTY"
	PhaseAwaitProfessionalPreference Phase = "AWAIT_PROFESSIONAL_PREFERENCE"
	PhaseAwaitProfessionalName       Phase = "AWAIT_PROFESSIONAL_NAME"
	PhaseValidateProfessionalName    Phase = "VALIDATE_PROFESSIONAL_NAME"
	PhaseListProfessionals           Phase = "LIST_PROFESSIONALS"
	PhaseAwaitProfessionalChoice     Phase = "AWAIT_PROFESSIONAL_CHOICE"
	PhaseAwaitPeriod                 Phase = "AWAIT_PERIOD"
	PhaseFetchDates                  Phase = "FETCH_DATES"
	PhaseAwaitDateChoice             Phase = "AWAIT_DATE_CHOICE"
	PhaseFetchTimes                  Phase = "FETCH_TIMES"
	PhaseAwaitTimeChoice             Phase = "AWAIT_TIME_CHOICE"
	PhaseAwaitFinalConfirmation      Phase = "AWAIT_FINAL_CONFIRMATION"
	PhaseAwaitFallbackChoice         Phase = "AWAIT_FALLBACK_CHOICE"
	PhaseCompleted                   Phase = "COMPLETED"
	PhaseCancelled                   Phase = "CANCELLED"
)

// AllPhases lists every declared phase. The router must register exactly one
// handler for each of them.
var AllPhases = []Phase{
	PhaseStart,
	PhaseAwaitName,
	PhaseAwaitSpecialty,
	PhaseAwaitProfessionalPreference,
	PhaseAwaitProfessionalName,
	PhaseValidateProfessionalName,
	PhaseListProfessionals,
	PhaseAwaitProfessionalChoice,
	PhaseAwaitPeriod,
	PhaseFetchDates,
	PhaseAwaitDateChoice,
	PhaseFetchTimes,
	PhaseAwaitTimeChoice,
	PhaseAwaitFinalConfirmation,
	PhaseAwaitFallbackChoice,
	PhaseCompleted,
	PhaseCancelled,
}

// IsTerminal reports whether reaching p ends the scheduling operation.
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseCancelled
}

func (p Phase) declared() bool {
	for _, known := range AllPhases {
		if known == p {
			return true
		}
	}
	return false
}

// Preference is how the patient wants the professional picked.
type Preference string

const (
	PreferenceRecommendation Preference = "RECOMMENDATION"
	PreferenceNamedNow       Preference = "NAMED_NOW"
	PreferenceNamedLater     Preference = "NAMED_LATER"
)

// Period is the preferred period of the day.
type Period string

const (
	PeriodMorning   Period = "MORNING"
	PeriodAfternoon Period = "AFTERNOON"
)

// Label returns the pt-BR name of the period.
func (p Period) Label() string {
	switch p {
	case PeriodMorning:
		return "manhã"
	case PeriodAfternoon:
		return "tarde"
	default:
		return ""
	}
}
