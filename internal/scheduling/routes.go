package scheduling

// recoverable lists the phases that may fail into the recovery menu and be
// retried from it.
var recoverable = []Phase{
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
}

func preds(phases ...Phase) []Phase {
	return phases
}

func defaultRouter() *Router {
	cancellable := append([]Phase{PhaseStart, PhaseAwaitFallbackChoice}, recoverable...)
	return NewRouter(
		Handler{Phase: PhaseStart, Run: handleStart},
		Handler{Phase: PhaseAwaitName, Predecessors: preds(PhaseStart, PhaseAwaitFallbackChoice), Run: handleAwaitName},
		Handler{Phase: PhaseAwaitSpecialty, Predecessors: preds(PhaseAwaitName, PhaseAwaitFallbackChoice), Run: handleAwaitSpecialty},
		Handler{
			Phase:        PhaseAwaitProfessionalPreference,
			Predecessors: preds(PhaseAwaitSpecialty, PhaseValidateProfessionalName, PhaseAwaitFallbackChoice),
			Run:          handleProfessionalPreference,
		},
		Handler{
			Phase:        PhaseAwaitProfessionalName,
			Predecessors: preds(PhaseAwaitProfessionalPreference, PhaseAwaitFallbackChoice),
			Run:          handleAwaitProfessionalName,
		},
		Handler{
			Phase:        PhaseValidateProfessionalName,
			Predecessors: preds(PhaseAwaitProfessionalPreference, PhaseAwaitProfessionalName, PhaseAwaitFallbackChoice),
			Run:          handleValidateProfessionalName,
		},
		Handler{
			Phase:        PhaseListProfessionals,
			Predecessors: preds(PhaseAwaitProfessionalPreference, PhaseAwaitProfessionalChoice, PhaseAwaitFallbackChoice),
			Run:          handleListProfessionals,
		},
		Handler{
			Phase:        PhaseAwaitProfessionalChoice,
			Predecessors: preds(PhaseListProfessionals, PhaseAwaitFallbackChoice),
			Run:          handleProfessionalChoice,
		},
		Handler{
			Phase:        PhaseAwaitPeriod,
			Predecessors: preds(PhaseValidateProfessionalName, PhaseAwaitProfessionalChoice, PhaseAwaitFallbackChoice),
			Run:          handleAwaitPeriod,
		},
		Handler{
			Phase:        PhaseFetchDates,
			Predecessors: preds(PhaseAwaitPeriod, PhaseAwaitDateChoice, PhaseAwaitFallbackChoice),
			Run:          handleFetchDates,
		},
		Handler{Phase: PhaseAwaitDateChoice, Predecessors: preds(PhaseFetchDates, PhaseAwaitFallbackChoice), Run: handleDateChoice},
		Handler{
			Phase:        PhaseFetchTimes,
			Predecessors: preds(PhaseAwaitDateChoice, PhaseAwaitTimeChoice, PhaseAwaitFallbackChoice),
			Run:          handleFetchTimes,
		},
		Handler{Phase: PhaseAwaitTimeChoice, Predecessors: preds(PhaseFetchTimes, PhaseAwaitFallbackChoice), Run: handleTimeChoice},
		Handler{
			Phase:        PhaseAwaitFinalConfirmation,
			Predecessors: preds(PhaseAwaitTimeChoice, PhaseAwaitFallbackChoice),
			Run:          handleFinalConfirmation,
		},
		Handler{Phase: PhaseAwaitFallbackChoice, Predecessors: recoverable, Run: handleFallbackChoice},
		Handler{Phase: PhaseCompleted, Predecessors: preds(PhaseAwaitFinalConfirmation), Run: handleCompleted},
		Handler{Phase: PhaseCancelled, Predecessors: cancellable, Run: handleCancelled},
	)
}
