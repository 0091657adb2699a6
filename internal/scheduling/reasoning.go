package scheduling

import "context"

// LabelSet is a closed classification contract. Classify must return one of
// Labels; anything else is treated as the set's fallback label by callers.
type LabelSet struct {
	Name        string
	Instruction string
	Labels      []string
	// Context is extra text shown to the classifier, e.g. the menu on screen.
	Context string
}

// Has reports whether label belongs to the set.
func (ls LabelSet) Has(label string) bool {
	for _, l := range ls.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// WithContext returns a copy of the set carrying ctx as classifier context.
func (ls LabelSet) WithContext(ctx string) LabelSet {
	ls.Context = ctx
	return ls
}

// Field describes a value to extract from free text.
type Field struct {
	Name        string
	Description string
}

// MatchOutcome is the closed result of a Match call.
type MatchOutcome string

const (
	MatchFound     MatchOutcome = "matched"
	MatchNone      MatchOutcome = "no_match"
	MatchAmbiguous MatchOutcome = "ambiguous"
)

// MatchResult carries the index of the matched candidate when Outcome is MatchFound.
type MatchResult struct {
	Outcome MatchOutcome
	Index   int
}

// Reasoning is the semantic capability used by every handler. Implementations
// never return free prose into control flow.
type Reasoning interface {
	Classify(ctx context.Context, text string, set LabelSet) (string, error)
	Extract(ctx context.Context, text string, field Field) (string, bool, error)
	Match(ctx context.Context, text string, candidates []string, context string) (MatchResult, error)
}

const (
	LabelYes = "SIM"
	LabelNo  = "NAO"

	IntentCreate       = "CREATE_APPOINTMENT"
	IntentQuery        = "QUERY_APPOINTMENT"
	IntentUpdate       = "UPDATE_APPOINTMENT"
	IntentCancel       = "CANCEL_APPOINTMENT"
	IntentUnitInfo     = "UNIT_INFO"
	IntentGreeting     = "GREETING_OR_FAREWELL"
	IntentOutOfScope   = "OUT_OF_SCOPE"
	LabelGreeting      = "GREETING"
	LabelFarewell      = "FAREWELL"
	LabelAmbiguous     = "AMBIGUOUS"
	LabelConfirmed     = "CONFIRMED"
	LabelCancelled     = "CANCELLED"
	LabelRetry         = "RETRY_PREVIOUS_STEP"
	LabelGoToSpecialty = "GO_TO_SPECIALTY"
	LabelCancelFlow    = "CANCEL_SCHEDULING"
	LabelMorning       = "MORNING"
	LabelAfternoon     = "AFTERNOON"
)

var (
	CancellationLabels = LabelSet{
		Name:        "cancellation",
		Instruction: "O paciente está no meio de um agendamento. A mensagem expressa claramente a intenção de desistir, parar ou cancelar o agendamento em andamento? Responda SIM apenas se a desistência for explícita.",
		Labels:      []string{LabelYes, LabelNo},
	}
	IntentLabels = LabelSet{
		Name:        "intent",
		Instruction: "Classifique a intenção principal da mensagem de um paciente para uma clínica médica.",
		Labels:      []string{IntentCreate, IntentQuery, IntentUpdate, IntentCancel, IntentUnitInfo, IntentGreeting, IntentOutOfScope},
	}
	GreetingLabels = LabelSet{
		Name:        "greeting",
		Instruction: "A mensagem é uma saudação inicial ou uma despedida?",
		Labels:      []string{LabelGreeting, LabelFarewell},
	}
	PreferenceLabels = LabelSet{
		Name:        "professional_preference",
		Instruction: "O paciente quer uma indicação de profissional (RECOMMENDATION), já informou o nome do profissional na mensagem (NAMED_NOW) ou quer escolher pelo nome mas ainda não disse qual (NAMED_LATER)?",
		Labels:      []string{string(PreferenceRecommendation), string(PreferenceNamedNow), string(PreferenceNamedLater), LabelAmbiguous},
	}
	PeriodLabels = LabelSet{
		Name:        "period",
		Instruction: "Qual turno o paciente prefere para a consulta?",
		Labels:      []string{LabelMorning, LabelAfternoon, LabelAmbiguous},
	}
	ConfirmationLabels = LabelSet{
		Name:        "final_confirmation",
		Instruction: "O paciente confirmou o agendamento apresentado (CONFIRMED), recusou (CANCELLED) ou a resposta não é clara (AMBIGUOUS)?",
		Labels:      []string{LabelConfirmed, LabelCancelled, LabelAmbiguous},
	}
	FallbackLabels = LabelSet{
		Name:        "fallback_choice",
		Instruction: "O paciente recebeu o menu abaixo. Qual opção ele escolheu?",
		Labels:      []string{LabelRetry, LabelGoToSpecialty, LabelCancelFlow, LabelAmbiguous},
	}

	FieldFullName = Field{
		Name:        "full_name",
		Description: "nome completo do paciente (nome e sobrenome)",
	}
	FieldProfessionalName = Field{
		Name:        "professional_name",
		Description: "nome do médico ou profissional de saúde citado, sem títulos como Dr. ou Dra.",
	}
)
