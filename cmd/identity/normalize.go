package identity

import "strings"

// NormalizeEmail lowercases and trims an e-mail address for lookup.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeCPF strips everything but digits (accepts "111.222.333-44").
func NormalizeCPF(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LooksLikeCPF reports whether identifier normalizes to an 11-digit CPF.
func LooksLikeCPF(identifier string) bool {
	return len(NormalizeCPF(identifier)) == 11 && !strings.Contains(identifier, "@")
}
