package scheduling

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var ordinalPattern = regexp.MustCompile(`^(?:(?:a|o)\s+)?(?:op[cç][aã]o\s*|n[uú]mero\s*)?(\d{1,3})\s*[.)ºª°]?$`)

var ordinalWords = map[string]int{
	"primeiro": 1, "primeira": 1,
	"segundo": 2, "segunda": 2,
	"terceiro": 3, "terceira": 3,
	"quarto": 4, "quarta": 4,
	"quinto": 5, "quinta": 5,
}

// parseOrdinal recognizes a reply that selects a list entry by position.
// It returns the 1-based value and whether the text was an ordinal at all.
func parseOrdinal(text string) (int, bool) {
	folded := fold(text)
	if m := ordinalPattern.FindStringSubmatch(folded); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		return n, true
	}
	words := strings.Fields(folded)
	if len(words) > 0 && (words[0] == "a" || words[0] == "o") {
		words = words[1:]
	}
	if len(words) == 2 && words[1] == "opcao" {
		words = words[:1]
	}
	if len(words) == 1 {
		if n, ok := ordinalWords[words[0]]; ok {
			return n, true
		}
	}
	return 0, false
}

// resolveChoice maps the reply to an index of options. An ordinal is tried
// first; out-of-range ordinals are a no-match. Anything else goes to Match,
// and only a single confident match is accepted.
func (t *TurnContext) resolveChoice(ctx context.Context, options []string, hint string) (int, bool, error) {
	if len(options) == 0 {
		return -1, false, nil
	}
	if n, ok := parseOrdinal(t.Text); ok {
		if n < 1 || n > len(options) {
			return -1, false, nil
		}
		return n - 1, true, nil
	}
	return t.matchText(ctx, t.Text, options, hint)
}

// matchText resolves free text against options without ordinal handling.
func (t *TurnContext) matchText(ctx context.Context, text string, options []string, hint string) (int, bool, error) {
	if len(options) == 0 {
		return -1, false, nil
	}
	folded := fold(text)
	for i, opt := range options {
		if fold(opt) == folded {
			return i, true, nil
		}
	}
	res, err := t.reasoning().Match(ctx, text, options, hint)
	if err != nil {
		return -1, false, err
	}
	if res.Outcome != MatchFound {
		return -1, false, nil
	}
	return res.Index, true, nil
}

// numbered renders options as a 1-based list.
func numbered(options []string) string {
	var b strings.Builder
	for i, opt := range options {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, opt)
	}
	return b.String()
}

func present(header string, options []string) string {
	return header + "\n\n" + numbered(options)
}
