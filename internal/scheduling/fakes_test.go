package scheduling

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Erick-Marinho/Health-AI/pkg/logging"
)

// fakeReasoning answers with simple keyword rules so dialogue tests are
// deterministic. Overrides win over the rules.
type fakeReasoning struct {
	mu         sync.Mutex
	overrides  map[string]string
	errs       map[string]error
	panicOn    string
	matchCalls int
	classified []string
}

func newFakeReasoning() *fakeReasoning {
	return &fakeReasoning{
		overrides: map[string]string{},
		errs:      map[string]error{},
	}
}

func (f *fakeReasoning) override(set LabelSet, text, label string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overrides[set.Name+"|"+fold(text)] = label
}

func (f *fakeReasoning) fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, op)
		return
	}
	f.errs[op] = err
}

func (f *fakeReasoning) err(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs[op]
}

func (f *fakeReasoning) Classify(ctx context.Context, text string, set LabelSet) (string, error) {
	if f.panicOn == set.Name {
		panic("classifier exploded")
	}
	if err := f.err(set.Name); err != nil {
		return "", err
	}
	folded := fold(text)
	f.mu.Lock()
	f.classified = append(f.classified, set.Name)
	label, ok := f.overrides[set.Name+"|"+folded]
	f.mu.Unlock()
	if ok {
		return label, nil
	}
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(folded, w) {
				return true
			}
		}
		return false
	}
	switch set.Name {
	case CancellationLabels.Name:
		if has("desisto", "cancela", "parar") {
			return LabelYes, nil
		}
		return LabelNo, nil
	case IntentLabels.Name:
		switch {
		case has("remarcar"):
			return IntentUpdate, nil
		case has("agendar", "marcar"):
			return IntentCreate, nil
		case has("unidade", "endereco"):
			return IntentUnitInfo, nil
		case has("oi", "ola", "tchau", "bom dia"):
			return IntentGreeting, nil
		}
		return IntentOutOfScope, nil
	case GreetingLabels.Name:
		if has("tchau", "ate logo") {
			return LabelFarewell, nil
		}
		return LabelGreeting, nil
	case PreferenceLabels.Name:
		switch {
		case has("indique", "indica", "recomend"):
			return string(PreferenceRecommendation), nil
		case has("dr", "dra"):
			return string(PreferenceNamedNow), nil
		case has("nome"):
			return string(PreferenceNamedLater), nil
		}
		return LabelAmbiguous, nil
	case PeriodLabels.Name:
		switch {
		case has("manha"):
			return LabelMorning, nil
		case has("tarde"):
			return LabelAfternoon, nil
		}
		return LabelAmbiguous, nil
	case ConfirmationLabels.Name:
		switch {
		case has("sim", "confirmo"):
			return LabelConfirmed, nil
		case has("nao"):
			return LabelCancelled, nil
		}
		return LabelAmbiguous, nil
	case FallbackLabels.Name:
		switch {
		case has("tentar", "de novo"):
			return LabelRetry, nil
		case has("especialidade"):
			return LabelGoToSpecialty, nil
		}
		return LabelAmbiguous, nil
	}
	return "", fmt.Errorf("unexpected label set %s", set.Name)
}

func (f *fakeReasoning) Extract(ctx context.Context, text string, field Field) (string, bool, error) {
	if err := f.err("extract"); err != nil {
		return "", false, err
	}
	switch field.Name {
	case FieldFullName.Name:
		lower := strings.ToLower(text)
		if i := strings.Index(lower, "meu nome é "); i >= 0 {
			return strings.TrimSpace(text[i+len("meu nome é "):]), true, nil
		}
		return "", false, nil
	case FieldProfessionalName.Name:
		words := strings.Fields(text)
		for i, w := range words {
			switch fold(strings.TrimSuffix(w, ".")) {
			case "dr", "dra":
				if i+1 < len(words) {
					return strings.Join(words[i+1:], " "), true, nil
				}
			}
		}
		if len(words) >= 2 && !strings.Contains(fold(text), "nome") {
			return text, true, nil
		}
		return "", false, nil
	}
	return "", false, nil
}

func (f *fakeReasoning) Match(ctx context.Context, text string, candidates []string, hint string) (MatchResult, error) {
	f.mu.Lock()
	f.matchCalls++
	f.mu.Unlock()
	if err := f.err("match"); err != nil {
		return MatchResult{}, err
	}
	needle := fold(text)
	found := -1
	for i, c := range candidates {
		hay := fold(c)
		if strings.Contains(hay, needle) || strings.Contains(needle, hay) {
			if found >= 0 {
				return MatchResult{Outcome: MatchAmbiguous}, nil
			}
			found = i
		}
	}
	if found < 0 {
		return MatchResult{Outcome: MatchNone}, nil
	}
	return MatchResult{Outcome: MatchFound, Index: found}, nil
}

func (f *fakeReasoning) matches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.matchCalls
}

type rejection struct{ status int }

func (r rejection) Error() string  { return fmt.Sprintf("directory rejected request: %d", r.status) }
func (r rejection) IsDomain() bool { return r.status >= 400 && r.status < 500 }

// fakeDirectory serves a small clinic.
type fakeDirectory struct {
	mu            sync.Mutex
	specialties   []Specialty
	professionals map[string][]Professional
	dates         map[string][]string
	times         map[string][]TimeSlot
	units         []Unit
	errs          map[string]error
	createID      string
	created       []AppointmentRequest
	dateQueries   []string
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		specialties: []Specialty{
			{ID: "12", Name: "Cardiologia"},
			{ID: "7", Name: "Dermatologia"},
			{ID: "3", Name: "Pediatria"},
		},
		professionals: map[string][]Professional{
			"12": {{ID: "101", Name: "Dr. Paulo Mendes"}, {ID: "102", Name: "Dra. Beatriz Lima"}},
			"7":  {{ID: "201", Name: "Dra. Helena Costa"}},
		},
		dates: map[string][]string{
			"101|5|2025": {"2025-05-06", "2025-05-13"},
			"102|5|2025": {"2025-05-05", "2025-05-12", "2025-05-19", "2025-05-26"},
			"201|5|2025": {"2025-05-07"},
		},
		times: map[string][]TimeSlot{
			"102|2025-05-05": {
				{Start: "08:00:00", End: "08:30:00"},
				{Start: "09:30:00", End: "10:00:00"},
				{Start: "14:00:00", End: "14:30:00"},
			},
		},
		units: []Unit{
			{ID: "1", Name: "Unidade Centro", Address: "Rua das Flores, 100", Phone: "(11) 3333-0000"},
		},
		errs:     map[string]error{},
		createID: "AG-991",
	}
}

func (d *fakeDirectory) fail(op string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.errs, op)
		return
	}
	d.errs[op] = err
}

func (d *fakeDirectory) err(op string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.errs[op]
}

func (d *fakeDirectory) ListSpecialties(ctx context.Context) ([]Specialty, error) {
	if err := d.err("specialties"); err != nil {
		return nil, err
	}
	return d.specialties, nil
}

func (d *fakeDirectory) ListProfessionals(ctx context.Context, specialtyID string, activeOnly bool) ([]Professional, error) {
	if err := d.err("professionals"); err != nil {
		return nil, err
	}
	return d.professionals[specialtyID], nil
}

func (d *fakeDirectory) ListAvailableDates(ctx context.Context, professionalID string, month, year int) ([]string, error) {
	if err := d.err("dates"); err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%s|%d|%d", professionalID, month, year)
	d.mu.Lock()
	d.dateQueries = append(d.dateQueries, key)
	d.mu.Unlock()
	return d.dates[key], nil
}

func (d *fakeDirectory) ListAvailableTimes(ctx context.Context, professionalID, date string) ([]TimeSlot, error) {
	if err := d.err("times"); err != nil {
		return nil, err
	}
	return d.times[professionalID+"|"+date], nil
}

func (d *fakeDirectory) CreateAppointment(ctx context.Context, req AppointmentRequest) (Appointment, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.created = append(d.created, req)
	if err := d.errs["create"]; err != nil {
		return Appointment{}, err
	}
	return Appointment{ID: d.createID}, nil
}

func (d *fakeDirectory) ListUnits(ctx context.Context) ([]Unit, error) {
	if err := d.err("units"); err != nil {
		return nil, err
	}
	return d.units, nil
}

func (d *fakeDirectory) createdCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.created)
}

var errUpstream = errors.New("upstream unavailable")

var testZone = time.FixedZone("BRT", -3*60*60)

type harness struct {
	t         *testing.T
	engine    *Engine
	store     *MemoryStore
	reasoning *fakeReasoning
	directory *fakeDirectory
	session   string
}

func newHarness(t *testing.T, now time.Time, opts ...EngineOption) *harness {
	t.Helper()
	h := &harness{
		t:         t,
		store:     NewMemoryStore(),
		reasoning: newFakeReasoning(),
		directory: newFakeDirectory(),
		session:   "5511988887777",
	}
	opts = append([]EngineOption{
		WithClock(func() time.Time { return now }, testZone),
		WithUnitID("1"),
		WithExternalTimeout(time.Second),
	}, opts...)
	engine, err := NewEngine(h.store, h.reasoning, h.directory, logging.NewWithWriter(io.Discard, "error"), opts...)
	require.NoError(t, err)
	h.engine = engine
	return h
}

// may2025 is a Thursday morning before every fixture date.
var may2025 = time.Date(2025, 5, 1, 9, 0, 0, 0, testZone)

func (h *harness) send(text string) string {
	h.t.Helper()
	out, err := h.engine.HandleTurn(context.Background(), Inbound{SessionID: h.session, Text: text, Channel: "test"})
	require.NoError(h.t, err)
	return out.Text
}

func (h *harness) sendAll(texts ...string) string {
	h.t.Helper()
	var last string
	for _, text := range texts {
		last = h.send(text)
	}
	return last
}

func (h *harness) state() *State {
	h.t.Helper()
	st, err := h.store.Load(context.Background(), h.session)
	require.NoError(h.t, err)
	return st
}
