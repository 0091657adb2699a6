package reasoning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Erick-Marinho/Health-AI/internal/scheduling"
	"github.com/Erick-Marinho/Health-AI/pkg/logging"
)

var reasonerTracer = otel.Tracer("healthai.internal.reasoning")

var (
	// ErrMalformedOutput is returned when the model reply has no parseable JSON object.
	ErrMalformedOutput = errors.New("reasoning: model output is not valid json")
	// ErrUnexpectedLabel is returned when the model answers outside a label set
	// that has no AMBIGUOUS member to absorb it.
	ErrUnexpectedLabel = errors.New("reasoning: model returned a label outside the set")
)

const (
	defaultMaxTokens   = 120
	defaultTemperature = 0.2
)

const classifySystemPrompt = `Você é o classificador de um assistente de agendamento de uma clínica médica brasileira.
Leia a mensagem do paciente e escolha exatamente um rótulo da lista.
Responda somente com JSON no formato {"label": "<RÓTULO>"}, sem texto adicional.`

const extractSystemPrompt = `Você extrai informações de mensagens de pacientes de uma clínica médica brasileira.
Responda somente com JSON no formato {"found": true, "value": "<valor>"} ou {"found": false, "value": ""}.
Nunca invente valores que não estejam na mensagem.`

const matchSystemPrompt = `Você associa a resposta de um paciente a uma das opções numeradas de uma lista.
Responda somente com JSON no formato {"outcome": "matched", "index": <número da opção>},
{"outcome": "no_match"} quando nenhuma opção corresponde, ou {"outcome": "ambiguous"} quando mais de uma opção corresponde.`

// Reasoner answers the dialogue engine's semantic questions with an LLM.
// Every answer is constrained to a JSON object and validated before it is
// returned, so free text never reaches control flow.
type Reasoner struct {
	client      LLMClient
	model       string
	temperature float32
	maxTokens   int32
	logger      *logging.Logger
}

type ReasonerOption func(*Reasoner)

func WithModel(model string) ReasonerOption {
	return func(r *Reasoner) { r.model = strings.TrimSpace(model) }
}

func WithTemperature(t float32) ReasonerOption {
	return func(r *Reasoner) { r.temperature = t }
}

func WithMaxTokens(n int32) ReasonerOption {
	return func(r *Reasoner) {
		if n > 0 {
			r.maxTokens = n
		}
	}
}

func WithLogger(logger *logging.Logger) ReasonerOption {
	return func(r *Reasoner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewReasoner(client LLMClient, opts ...ReasonerOption) *Reasoner {
	if client == nil {
		panic("reasoning: llm client cannot be nil")
	}
	r := &Reasoner{
		client:      client,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
		logger:      logging.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithComponent("reasoner")
	return r
}

var _ scheduling.Reasoning = (*Reasoner)(nil)

// Classify returns one label of set for text.
func (r *Reasoner) Classify(ctx context.Context, text string, set scheduling.LabelSet) (string, error) {
	ctx, span := reasonerTracer.Start(ctx, "reasoning.classify")
	defer span.End()
	span.SetAttributes(attribute.String("reasoning.label_set", set.Name))
	text = r.screen(text)

	var b strings.Builder
	b.WriteString("Tarefa: ")
	b.WriteString(set.Instruction)
	b.WriteString("\n\nRótulos permitidos: ")
	b.WriteString(strings.Join(set.Labels, ", "))
	if strings.TrimSpace(set.Context) != "" {
		b.WriteString("\n\nContexto:\n")
		b.WriteString(set.Context)
	}
	b.WriteString("\n\nMensagem do paciente: ")
	b.WriteString(strconv.Quote(text))

	var out struct {
		Label string `json:"label"`
	}
	if err := r.ask(ctx, classifySystemPrompt, b.String(), &out); err != nil {
		return "", err
	}

	label := strings.ToUpper(strings.TrimSpace(out.Label))
	if set.Has(label) {
		return label, nil
	}
	if set.Has(scheduling.LabelAmbiguous) {
		r.logger.Warn("classifier label outside set", "label_set", set.Name, "label", out.Label)
		return scheduling.LabelAmbiguous, nil
	}
	return "", fmt.Errorf("%w: %s=%q", ErrUnexpectedLabel, set.Name, out.Label)
}

// Extract pulls field out of text. The bool is false when the message does
// not contain the value.
func (r *Reasoner) Extract(ctx context.Context, text string, field scheduling.Field) (string, bool, error) {
	ctx, span := reasonerTracer.Start(ctx, "reasoning.extract")
	defer span.End()
	span.SetAttributes(attribute.String("reasoning.field", field.Name))
	text = r.screen(text)

	prompt := fmt.Sprintf("Campo: %s (%s)\n\nMensagem do paciente: %s", field.Name, field.Description, strconv.Quote(text))

	var out struct {
		Found bool   `json:"found"`
		Value string `json:"value"`
	}
	if err := r.ask(ctx, extractSystemPrompt, prompt, &out); err != nil {
		return "", false, err
	}
	value := strings.TrimSpace(out.Value)
	if !out.Found || value == "" {
		return "", false, nil
	}
	return value, true, nil
}

// Match resolves text to one of candidates. Index in the result is zero-based.
func (r *Reasoner) Match(ctx context.Context, text string, candidates []string, hint string) (scheduling.MatchResult, error) {
	ctx, span := reasonerTracer.Start(ctx, "reasoning.match")
	defer span.End()
	span.SetAttributes(attribute.Int("reasoning.candidates", len(candidates)))
	text = r.screen(text)

	if len(candidates) == 0 {
		return scheduling.MatchResult{Outcome: scheduling.MatchNone}, nil
	}

	var b strings.Builder
	if strings.TrimSpace(hint) != "" {
		b.WriteString("Contexto: ")
		b.WriteString(hint)
		b.WriteString("\n\n")
	}
	b.WriteString("Opções:\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c)
	}
	b.WriteString("\nResposta do paciente: ")
	b.WriteString(strconv.Quote(text))

	var out struct {
		Outcome string `json:"outcome"`
		Index   int    `json:"index"`
	}
	if err := r.ask(ctx, matchSystemPrompt, b.String(), &out); err != nil {
		return scheduling.MatchResult{}, err
	}

	switch scheduling.MatchOutcome(strings.ToLower(strings.TrimSpace(out.Outcome))) {
	case scheduling.MatchFound:
		if out.Index < 1 || out.Index > len(candidates) {
			r.logger.Warn("match index out of range", "index", out.Index, "candidates", len(candidates))
			return scheduling.MatchResult{Outcome: scheduling.MatchNone}, nil
		}
		return scheduling.MatchResult{Outcome: scheduling.MatchFound, Index: out.Index - 1}, nil
	case scheduling.MatchAmbiguous:
		return scheduling.MatchResult{Outcome: scheduling.MatchAmbiguous}, nil
	default:
		return scheduling.MatchResult{Outcome: scheduling.MatchNone}, nil
	}
}

// screen sanitizes patient text before it is quoted into a prompt.
func (r *Reasoner) screen(text string) string {
	res := ScreenInput(text)
	if res.Flagged() {
		r.logger.Warn("possible prompt injection", "score", res.Score, "reasons", res.Reasons)
	}
	return res.Sanitized
}

func (r *Reasoner) ask(ctx context.Context, system, prompt string, out any) error {
	resp, err := r.client.Complete(ctx, LLMRequest{
		Model:       r.model,
		System:      []string{system},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: prompt}},
		MaxTokens:   r.maxTokens,
		Temperature: r.temperature,
	})
	if err != nil {
		return err
	}
	if err := decodeJSONObject(resp.Text, out); err != nil {
		r.logger.Warn("unparseable model output", "error", err.Error(), "output_len", len(resp.Text))
		return err
	}
	return nil
}

// decodeJSONObject decodes the outermost {...} in content, tolerating prose or
// code fences around it.
func decodeJSONObject(content string, out any) error {
	content = strings.TrimSpace(content)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ErrMalformedOutput
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}
