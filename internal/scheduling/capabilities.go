package scheduling

import (
	"context"
	"time"

	"github.com/Erick-Marinho/Health-AI/internal/observability/metrics"
)

// timedReasoning bounds every reasoning call and records its latency.
type timedReasoning struct {
	inner   Reasoning
	timeout time.Duration
	metrics *metrics.DialogueMetrics
}

func (r timedReasoning) Classify(ctx context.Context, text string, set LabelSet) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	start := time.Now()
	label, err := r.inner.Classify(ctx, text, set)
	r.metrics.ObserveExternalCall("reasoning", "classify_"+set.Name, time.Since(start).Seconds(), err != nil)
	return label, err
}

func (r timedReasoning) Extract(ctx context.Context, text string, field Field) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	start := time.Now()
	value, found, err := r.inner.Extract(ctx, text, field)
	r.metrics.ObserveExternalCall("reasoning", "extract_"+field.Name, time.Since(start).Seconds(), err != nil)
	return value, found, err
}

func (r timedReasoning) Match(ctx context.Context, text string, candidates []string, hint string) (MatchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	start := time.Now()
	res, err := r.inner.Match(ctx, text, candidates, hint)
	r.metrics.ObserveExternalCall("reasoning", "match", time.Since(start).Seconds(), err != nil)
	if err == nil && res.Outcome == MatchFound && (res.Index < 0 || res.Index >= len(candidates)) {
		res = MatchResult{Outcome: MatchNone}
	}
	return res, err
}

// timedDirectory bounds every directory call and records its latency.
type timedDirectory struct {
	inner   Directory
	timeout time.Duration
	metrics *metrics.DialogueMetrics
}

func (d timedDirectory) observe(op string, start time.Time, err error) {
	d.metrics.ObserveExternalCall("directory", op, time.Since(start).Seconds(), err != nil)
}

func (d timedDirectory) ListSpecialties(ctx context.Context) ([]Specialty, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	start := time.Now()
	out, err := d.inner.ListSpecialties(ctx)
	d.observe("list_specialties", start, err)
	return out, err
}

func (d timedDirectory) ListProfessionals(ctx context.Context, specialtyID string, activeOnly bool) ([]Professional, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	start := time.Now()
	out, err := d.inner.ListProfessionals(ctx, specialtyID, activeOnly)
	d.observe("list_professionals", start, err)
	return out, err
}

func (d timedDirectory) ListAvailableDates(ctx context.Context, professionalID string, month, year int) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	start := time.Now()
	out, err := d.inner.ListAvailableDates(ctx, professionalID, month, year)
	d.observe("list_dates", start, err)
	return out, err
}

func (d timedDirectory) ListAvailableTimes(ctx context.Context, professionalID, date string) ([]TimeSlot, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	start := time.Now()
	out, err := d.inner.ListAvailableTimes(ctx, professionalID, date)
	d.observe("list_times", start, err)
	return out, err
}

func (d timedDirectory) CreateAppointment(ctx context.Context, req AppointmentRequest) (Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	start := time.Now()
	out, err := d.inner.CreateAppointment(ctx, req)
	d.observe("create_appointment", start, err)
	return out, err
}

func (d timedDirectory) ListUnits(ctx context.Context) ([]Unit, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	start := time.Now()
	out, err := d.inner.ListUnits(ctx)
	d.observe("list_units", start, err)
	return out, err
}
