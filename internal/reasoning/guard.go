package reasoning

import (
	"regexp"
	"strings"
)

// GuardResult is the outcome of screening a patient message before it is
// placed in a prompt.
type GuardResult struct {
	// Score is a heuristic risk score (0.0 safe, 1.0 certain injection).
	Score float64
	// Reasons lists the detection signals that fired.
	Reasons []string
	// Sanitized is the message with model control markers removed.
	Sanitized string
}

// Flagged reports whether the message looks like an injection attempt.
func (g GuardResult) Flagged() bool { return g.Score >= flagThreshold }

type guardPattern struct {
	re     *regexp.Regexp
	reason string
	weight float64
}

const flagThreshold = 0.7

var guardPatterns = []guardPattern{
	// Attempts to override the instructions, in Portuguese and English.
	{regexp.MustCompile(`(?i)(ignore|desconsidere|esque[cç]a)\s+(todas\s+)?(as\s+)?(instru[cç][oõ]es|regras|ordens)\s+(anteriores|acima)`), "override:ignore_instructions", 0.9},
	{regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above|your)\s+(instructions?|rules?|prompts?)`), "override:ignore_instructions", 0.9},
	{regexp.MustCompile(`(?i)(voc[eê]\s+agora\s+[eé]|you\s+are\s+now)\s+(um|uma|a|an|my)\s+`), "override:role_reassignment", 0.7},
	{regexp.MustCompile(`(?i)(novas?\s+instru[cç][oõ]es|new\s+instructions?|system\s*prompt)\s*:`), "override:new_instructions", 0.9},
	{regexp.MustCompile(`(?i)jailbreak|DAN\s*mode|developer\s*mode|modo\s+desenvolvedor`), "override:jailbreak_keyword", 0.9},
	// Attempts to read the prompt or other patients' data.
	{regexp.MustCompile(`(?i)(mostre|revele|repita|show|reveal|repeat)\s+(o\s+)?(seu\s+|your\s+)?(prompt|instru[cç][oõ]es|instructions|system\s+message)`), "exfiltration:system_prompt", 0.8},
	{regexp.MustCompile(`(?i)(dados|agendamentos|telefones?)\s+de\s+outros\s+pacientes`), "exfiltration:patient_data", 0.7},
	// Chat template tokens and fake role headers.
	{controlTokens, "context:special_tokens", 0.9},
	{roleMarkers, "context:role_markers", 0.7},
	{regexp.MustCompile(`<\s*(script|iframe|object|embed)\b`), "context:html_injection", 0.6},
}

var (
	controlTokens = regexp.MustCompile(`(?i)\[/?INST\]|\[/?SYS\]|<\|im_start\|>|<\|im_end\|>|<\|system\|>|<\|user\|>|<\|assistant\|>`)
	roleMarkers   = regexp.MustCompile(`(?i)###\s*(system|sistema|instruction|assistant|assistente|user|usu[aá]rio)\s*:`)
	htmlTags      = regexp.MustCompile(`<\s*(script|iframe|object|embed|img|style|svg)\b[^>]*>`)
)

// ScreenInput scores text for prompt injection and returns a sanitized copy.
// Replies are always constrained to a JSON schema and validated, so flagged
// input is logged and sanitized rather than refused.
func ScreenInput(text string) GuardResult {
	if strings.TrimSpace(text) == "" {
		return GuardResult{Sanitized: text}
	}

	var reasons []string
	maxWeight := 0.0
	for _, p := range guardPatterns {
		if p.re.MatchString(text) {
			reasons = append(reasons, p.reason)
			if p.weight > maxWeight {
				maxWeight = p.weight
			}
		}
	}

	score := maxWeight
	if len(reasons) > 1 {
		score += float64(len(reasons)-1) * 0.1
		if score > 1.0 {
			score = 1.0
		}
	}
	return GuardResult{Score: score, Reasons: reasons, Sanitized: Sanitize(text)}
}

// Sanitize strips chat template tokens, fake role headers and HTML tags.
func Sanitize(text string) string {
	cleaned := controlTokens.ReplaceAllString(text, "")
	cleaned = roleMarkers.ReplaceAllString(cleaned, "")
	cleaned = htmlTags.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}
