package archive

import (
	"crypto/sha256"
	"fmt"
	"regexp"
)

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	cpfRe   = regexp.MustCompile(`\b\d{3}\.?\d{3}\.?\d{3}-?\d{2}\b`)
	// Brazilian numbers: optional +55, optional area code, 8 or 9 digit line.
	phoneRe = regexp.MustCompile(`(?:\+?55\s?)?(?:\(?\d{2}\)?\s?)?9?\d{4}[-\s]?\d{4}`)
)

// HashContact returns the hex-encoded SHA-256 hash of a phone or session id.
func HashContact(contact string) string {
	h := sha256.Sum256([]byte(contact))
	return fmt.Sprintf("%x", h)
}

// ScrubPII replaces emails, CPF numbers and phone numbers with placeholders.
// Patient names are kept.
func ScrubPII(text string) string {
	text = emailRe.ReplaceAllString(text, "[EMAIL]")
	text = cpfRe.ReplaceAllString(text, "[CPF]")
	text = phoneRe.ReplaceAllString(text, "[PHONE]")
	return text
}

// ScrubMessages applies PII scrubbing to all messages in-place.
func ScrubMessages(msgs []Message) {
	for i := range msgs {
		msgs[i].Content = ScrubPII(msgs[i].Content)
	}
}
