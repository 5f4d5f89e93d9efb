package mailer

import (
	"net/mail"
	"strings"
)

// ExtractAddress pulls the bare address out of a From value such as
// "Jane Doe <jane@example.com>". Inputs without angle brackets pass through
// verbatim so providers that send bare addresses keep working.
func ExtractAddress(from string) string {
	from = strings.TrimSpace(from)
	if addr, err := mail.ParseAddress(from); err == nil {
		return addr.Address
	}
	if open := strings.LastIndex(from, "<"); open >= 0 {
		if end := strings.Index(from[open:], ">"); end > 0 {
			return strings.TrimSpace(from[open+1 : open+end])
		}
	}
	return from
}
