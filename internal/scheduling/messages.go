package scheduling

// User-facing texts. Everything the patient reads is pt-BR.
const (
	msgInternalError = "Desculpe, ocorreu um erro interno e precisei reiniciar o atendimento. Se quiser agendar uma consulta, é só me avisar."
	msgIntentRetry   = "Desculpe, não consegui entender sua mensagem agora. Pode repetir, por favor?"

	msgGreeting   = "Olá! Sou a assistente virtual da clínica. Posso ajudar você a agendar uma consulta ou informar nossas unidades. Como posso ajudar?"
	msgFarewell   = "Foi um prazer ajudar! Se precisar de algo, é só chamar. Até logo!"
	msgOutOfScope = "Posso ajudar com o agendamento de consultas e com informações sobre as unidades da clínica. Para outros assuntos, entre em contato com a recepção."

	msgQueryUnavailable  = "A consulta de agendamentos ainda não está disponível por aqui. Para saber detalhes da sua consulta, entre em contato com a recepção."
	msgUpdateUnavailable = "A remarcação de consultas ainda não está disponível por aqui. Por favor, entre em contato com a recepção para alterar sua consulta."
	msgCancelUnavailable = "O cancelamento de consultas ainda não está disponível por aqui. Por favor, entre em contato com a recepção para cancelar sua consulta."

	msgUnitsHeader  = "Estas são as nossas unidades:"
	msgUnitsEmpty   = "No momento não tenho informações sobre as unidades. Por favor, entre em contato com a recepção."
	msgUnitsFailure = "Desculpe, não consegui consultar as unidades agora. Tente novamente em instantes."

	msgCancelled = "Tudo bem, o agendamento foi cancelado. Se quiser marcar uma consulta depois, é só me chamar."

	msgAskName          = "Vamos agendar sua consulta! Para começar, qual é o seu nome completo?"
	msgInvalidName      = "Não consegui identificar seu nome completo. Por favor, informe seu nome e sobrenome."
	msgAskSpecialty     = "Obrigada, %s! Para qual especialidade você deseja agendar a consulta?"
	msgAskSpecialtyBare = "Para qual especialidade você deseja agendar a consulta?"
	msgSpecialtyList    = "Não encontrei a especialidade informada. Estas são as especialidades disponíveis:"
	msgPickSpecialty    = "Para qual especialidade você deseja agendar? Escolha uma opção:"

	msgAskPreference       = "Certo, %s. Você gostaria que eu indicasse um profissional ou prefere escolher alguém pelo nome?"
	msgPreferenceUnclear   = "Não entendi sua preferência. Quer que eu indique um profissional ou tem algum nome em mente?"
	msgAskProfessionalName = "Qual é o nome do profissional com quem você deseja se consultar?"
	msgProfessionalMissing = "Não encontrei nenhum profissional chamado %s em %s."
	msgProfessionalFound   = "Encontrei %s em %s."
	msgPickProfessional    = "Estes são os profissionais disponíveis em %s. Escolha uma opção:"

	msgAskPeriod     = "Você prefere atendimento pela manhã ou à tarde?"
	msgPeriodUnclear = "Não entendi o turno. Responda manhã ou tarde, por favor."
	msgPickDate      = "Estas são as próximas datas disponíveis com %s. Escolha uma opção:"
	msgPickTime      = "Estes são os horários disponíveis pela %s em %s. Escolha uma opção:"
	msgChoiceUnclear = "Não consegui identificar sua escolha. Responda com o número da opção, por favor."

	msgConfirmSummary  = "Confira os dados do agendamento:\n\nPaciente: %s\nEspecialidade: %s\nProfissional: %s\nData: %s\nHorário: %s\n\nPosso confirmar o agendamento?"
	msgConfirmUnclear  = "Não entendi sua resposta. Deseja confirmar o agendamento? Responda sim ou não."
	msgBooked          = "Agendamento confirmado! Sua consulta de %s com %s está marcada para %s às %s. Número do agendamento: %s."
	msgBookingRetry    = "Desculpe, não consegui concluir o agendamento agora. Seus dados foram mantidos. Deseja que eu tente confirmar novamente?"
	msgBookingRejected = "Desculpe, não foi possível agendar nesse horário."

	msgExternalFailure  = "Desculpe, tive um problema ao consultar as informações da clínica."
	msgNoSpecialties    = "Desculpe, não encontrei especialidades disponíveis no momento."
	msgNoProfessionals  = "Desculpe, não há profissionais disponíveis em %s no momento."
	msgNoDates          = "Desculpe, não há datas disponíveis com %s nos próximos dois meses."
	msgNoTimes          = "Desculpe, não há horários disponíveis pela %s em %s."
	msgFallbackQuestion = "O que você prefere fazer?"
	msgFallbackUnclear  = "Não entendi sua escolha."

	optRetryDefault  = "Tentar novamente"
	optGoToSpecialty  = "Escolher outra especialidade"
	optCancelFlow    = "Cancelar o agendamento"
)

var retryOptionLabels = map[Phase]string{
	PhaseAwaitName:                   "Informar seu nome novamente",
	PhaseAwaitSpecialty:              "Tentar novamente a escolha da especialidade",
	PhaseAwaitProfessionalPreference: "Escolher o profissional de outra forma",
	PhaseAwaitProfessionalName:       "Informar o nome do profissional novamente",
	PhaseValidateProfessionalName:    "Buscar o profissional novamente",
	PhaseListProfessionals:           "Ver a lista de profissionais novamente",
	PhaseAwaitProfessionalChoice:     "Ver a lista de profissionais novamente",
	PhaseAwaitPeriod:                 "Escolher o turno novamente",
	PhaseFetchDates:                  "Ver as datas disponíveis novamente",
	PhaseAwaitDateChoice:             "Ver as datas disponíveis novamente",
	PhaseFetchTimes:                  "Ver os horários disponíveis novamente",
	PhaseAwaitTimeChoice:             "Ver os horários disponíveis novamente",
	PhaseAwaitFinalConfirmation:      "Tentar confirmar o agendamento novamente",
}
