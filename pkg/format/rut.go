// Package format holds the pure formatting helpers shared by every screen:
// Chilean national ID (RUT) normalisation and CLP currency rendering.
package format

import "strings"

// CleanRUT strips everything except digits and the K check character and
// upper-cases the result. It is the canonical login handle of an identity.
func CleanRUT(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'k' || r == 'K':
			b.WriteRune('K')
		}
	}
	return b.String()
}

// FormatRUT renders a RUT as 12.345.678-5: the body grouped in thousands
// with dots and the check character appended after a dash. Inputs shorter
// than two significant characters are returned cleaned but unformatted.
func FormatRUT(s string) string {
	clean := CleanRUT(s)
	if len(clean) < 2 {
		return clean
	}

	body, dv := clean[:len(clean)-1], clean[len(clean)-1:]
	return groupThousands(body, ".") + "-" + dv
}

// LoginEmail maps a RUT to the synthetic address the backend authenticates.
func LoginEmail(rut, domain string) string {
	return strings.ToLower(CleanRUT(rut)) + "@" + domain
}

func groupThousands(digits, sep string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}

	var b strings.Builder
	b.Grow(n + n/3)
	head := n % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
