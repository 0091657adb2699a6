package scheduling

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fold lowercases s, strips diacritics and collapses whitespace so that
// "Manhã" and "manha" compare equal.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

var professionalTitles = []string{"dra.", "dra", "dr.", "dr", "doutora", "doutor"}

// stripTitle removes a leading doctor title from a professional name.
func stripTitle(name string) string {
	name = strings.TrimSpace(name)
	for {
		fields := strings.Fields(name)
		if len(fields) < 2 {
			return name
		}
		first := fold(fields[0])
		stripped := false
		for _, title := range professionalTitles {
			if first == title {
				name = strings.TrimSpace(strings.Join(fields[1:], " "))
				stripped = true
				break
			}
		}
		if !stripped {
			return name
		}
	}
}
