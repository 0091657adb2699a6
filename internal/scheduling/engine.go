package scheduling

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Erick-Marinho/Health-AI/internal/observability/metrics"
	"github.com/Erick-Marinho/Health-AI/pkg/logging"
)

const (
	maxChainHops          = 16
	defaultExternalTimeout = 15 * time.Second
	replySeparator        = "\n\n"
)

// Inbound is one user message addressed to a session.
type Inbound struct {
	SessionID string
	MessageID string
	Text      string
	Contact   string
	Channel   string
}

// Outbound is the reply for a turn. An empty Text means no message is sent.
type Outbound struct {
	SessionID string
	Text      string
}

// BookingRecorder receives every appointment the engine commits.
type BookingRecorder interface {
	RecordBooking(ctx context.Context, b CommittedBooking) error
}

// CommittedBooking is the record handed to a BookingRecorder.
type CommittedBooking struct {
	AppointmentID    string
	SessionID        string
	Contact          string
	PatientName      string
	SpecialtyID      string
	SpecialtyName    string
	ProfessionalID   string
	ProfessionalName string
	UnitID           string
	Date             string
	Start            string
	End              string
	CreatedAt        time.Time
	// Transcript is the session history up to the confirming message.
	Transcript []Turn
}

// Engine runs dialogue turns. It is safe for concurrent use; turns for the
// same session are serialized by the Locker.
type Engine struct {
	store     StateStore
	locker    Locker
	reasoning Reasoning
	directory Directory
	router    *Router
	logger    *logging.Logger
	metrics   *metrics.DialogueMetrics
	tracer    trace.Tracer
	recorders []BookingRecorder
	unitID    string
	timeout   time.Duration
	now       func() time.Time
	location  *time.Location
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithLocker replaces the default in-process locker.
func WithLocker(l Locker) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.locker = l
		}
	}
}

// WithExternalTimeout bounds every reasoning and directory call.
func WithExternalTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithMetrics attaches Prometheus observers.
func WithMetrics(m *metrics.DialogueMetrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithUnitID sets the clinic unit used when booking.
func WithUnitID(id string) EngineOption {
	return func(e *Engine) { e.unitID = strings.TrimSpace(id) }
}

// WithBookingRecorder registers a hook called after each successful booking.
// Recorders run once the session is saved and unlocked, each bounded by the
// external timeout. Failures are logged and never change the reply.
func WithBookingRecorder(r BookingRecorder) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.recorders = append(e.recorders, r)
		}
	}
}

// WithClock overrides the wall clock and the timezone used to decide which
// dates are in the past.
func WithClock(now func() time.Time, loc *time.Location) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
		if loc != nil {
			e.location = loc
		}
	}
}

// NewEngine wires the engine and validates the phase table.
func NewEngine(store StateStore, reasoning Reasoning, directory Directory, logger *logging.Logger, opts ...EngineOption) (*Engine, error) {
	if store == nil {
		panic("scheduling: state store cannot be nil")
	}
	if reasoning == nil {
		panic("scheduling: reasoning cannot be nil")
	}
	if directory == nil {
		panic("scheduling: directory cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	e := &Engine{
		store:    store,
		locker:   NewLocalLocker(),
		logger:   logger.WithComponent("scheduling"),
		tracer:   otel.Tracer("healthai.internal.scheduling"),
		timeout:  defaultExternalTimeout,
		now:      time.Now,
		location: clinicLocation(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.reasoning = timedReasoning{inner: reasoning, timeout: e.timeout, metrics: e.metrics}
	e.directory = timedDirectory{inner: directory, timeout: e.timeout, metrics: e.metrics}
	e.router = defaultRouter()
	if err := e.router.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Store exposes the state store, used by the admin API.
func (e *Engine) Store() StateStore {
	return e.store
}

// HandleTurn processes one inbound message end to end: lock, load,
// dispatch, save, unlock.
func (e *Engine) HandleTurn(ctx context.Context, in Inbound) (Outbound, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return Outbound{}, errors.New("scheduling: session id required")
	}
	ctx, span := e.tracer.Start(ctx, "scheduling.turn", trace.WithAttributes(
		attribute.String("session_id", sessionID),
		attribute.String("channel", in.Channel),
	))
	defer span.End()

	unlock, err := e.locker.Lock(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return Outbound{}, fmt.Errorf("scheduling: lock session: %w", err)
	}
	locked := true
	release := func() {
		if locked {
			locked = false
			unlock()
		}
	}
	defer release()

	state, err := e.store.Load(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return Outbound{}, fmt.Errorf("scheduling: load session: %w", err)
	}
	if c := strings.TrimSpace(in.Contact); c != "" {
		state.Contact = c
	}
	if state.Contact == "" {
		state.Contact = sessionID
	}

	log := e.logger.WithSession(sessionID)
	text := strings.TrimSpace(in.Text)
	state.Append(RoleUser, text, e.now().UTC())

	t := &TurnContext{engine: e, State: state, Text: text, fresh: text != "", log: log}
	reply, outcome := e.dispatch(ctx, t)
	if reply != "" {
		state.Append(RoleAssistant, reply, e.now().UTC())
	}

	if err := e.store.Save(ctx, state); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		e.metrics.ObserveTurn("save_failed")
		return Outbound{}, fmt.Errorf("scheduling: save session: %w", err)
	}
	e.metrics.ObserveTurn(outcome)
	span.SetAttributes(attribute.String("outcome", outcome), attribute.String("phase", string(state.Phase)))
	log.Info("turn processed", "outcome", outcome, "operation", state.Operation, "phase", state.Phase)
	release()

	if t.booked != nil {
		e.recordBooking(ctx, *t.booked, log)
	}
	return Outbound{SessionID: sessionID, Text: reply}, nil
}

// recordBooking hands a committed appointment to every recorder. Each call
// gets its own deadline and survives cancellation of the turn context, since
// the appointment already exists.
func (e *Engine) recordBooking(ctx context.Context, b CommittedBooking, log *logging.Logger) {
	base := context.WithoutCancel(ctx)
	for _, r := range e.recorders {
		rctx, cancel := context.WithTimeout(base, e.timeout)
		err := r.RecordBooking(rctx, b)
		cancel()
		if err != nil {
			log.Warn("booking recorder failed", "appointment_id", b.AppointmentID, "timeout", isTimeout(err), "error", err)
		}
	}
}

// dispatch decides between the cancellation check, the phase router and
// intent classification. It never returns an error: failures become replies.
func (e *Engine) dispatch(ctx context.Context, t *TurnContext) (string, string) {
	state := t.State
	if !state.InProgress() {
		return e.routeIntent(ctx, t)
	}
	if !t.fresh {
		return e.runChain(ctx, t, state.Phase)
	}

	label, err := e.reasoning.Classify(ctx, t.Text, CancellationLabels)
	switch {
	case err != nil && canRecover(state.Phase):
		// The message may have been a cancellation; it is not fed to the
		// phase handler. The recovery menu offers cancel and retry.
		t.externalFailure(state.Phase, "classify_cancellation", err)
		t.fresh = false
		return e.runChain(ctx, t, PhaseAwaitFallbackChoice)
	case err != nil:
		t.log.Warn("cancellation check failed", "error", err, "phase", state.Phase)
	case label == LabelYes:
		t.fresh = false
		return e.runChain(ctx, t, PhaseCancelled)
	}
	return e.runChain(ctx, t, state.Phase)
}

func canRecover(p Phase) bool {
	for _, r := range recoverable {
		if r == p {
			return true
		}
	}
	return false
}

// runChain executes handlers starting at phase until one ends the turn.
func (e *Engine) runChain(ctx context.Context, t *TurnContext, phase Phase) (string, string) {
	var replies []string
	current := phase
	for hop := 0; ; hop++ {
		if hop >= maxChainHops {
			return e.internalError(t, replies, fmt.Errorf("%w at %s", ErrChainOverflow, current))
		}
		h, err := e.router.Lookup(current)
		if err != nil {
			return e.internalError(t, replies, err)
		}
		t.State.Phase = current
		step, err := e.runHandler(ctx, h, t)
		if err != nil {
			e.metrics.ObservePhase(string(current), "error")
			return e.internalError(t, replies, fmt.Errorf("phase %s: %w", current, err))
		}
		e.metrics.ObservePhase(string(current), "ok")
		if step.Reply != "" {
			replies = append(replies, step.Reply)
		}

		if step.Next == "" {
			// Terminal handlers reset the operation and leave no phase behind.
			t.State.Phase = ""
			return strings.Join(replies, replySeparator), terminalOutcome(current)
		}
		if step.Next != current {
			next, err := e.router.Lookup(step.Next)
			if err != nil {
				return e.internalError(t, replies, err)
			}
			if !next.allows(current) {
				return e.internalError(t, replies, fmt.Errorf("scheduling: illegal transition %s -> %s", current, step.Next))
			}
		}
		t.State.Phase = step.Next
		if !step.Continue {
			return strings.Join(replies, replySeparator), "reply"
		}
		current = step.Next
		t.fresh = false
	}
}

func terminalOutcome(p Phase) string {
	switch p {
	case PhaseCompleted:
		return "completed"
	case PhaseCancelled:
		return "cancelled"
	default:
		return "reply"
	}
}

func (e *Engine) runHandler(ctx context.Context, h Handler, t *TurnContext) (step Step, err error) {
	defer func() {
		if r := recover(); r != nil {
			t.log.Error("phase handler panicked", "phase", h.Phase, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("scheduling: handler panic: %v", r)
		}
	}()
	return h.Run(ctx, t)
}

// internalError aborts the running operation so the session cannot get stuck.
func (e *Engine) internalError(t *TurnContext, replies []string, err error) (string, string) {
	t.log.Error("aborting scheduling operation", "error", err, "phase", t.State.Phase)
	t.State.ResetOperation()
	replies = append(replies, msgInternalError)
	return strings.Join(replies, replySeparator), "internal_error"
}

func clinicLocation() *time.Location {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		return time.FixedZone("BRT", -3*60*60)
	}
	return loc
}
