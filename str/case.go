// Package str contains string helpers used to derive environment variable names.
package str

import (
	"strings"
	"unicode"
)

// ToScreamingSnakeCase turns an identifier into the SCREAMING_SNAKE_CASE form used for environment
// variables. Every upper case letter and every digit starts a new word, '_' and '-' are separators.
func ToScreamingSnakeCase(in string) string {
	in = strings.TrimSpace(in)
	if len(in) == 0 {
		return in
	}

	var sb strings.Builder
	sb.Grow(len(in) + len(in)/3) // estimate space for underscores

	lastWasSeparator := false
	for i, r := range in {
		switch {
		case r == '_' || r == '-':
			if i > 0 && !lastWasSeparator {
				sb.WriteByte('_')
				lastWasSeparator = true
			}
			continue
		case unicode.IsUpper(r) || unicode.IsDigit(r):
			if i > 0 && !lastWasSeparator {
				sb.WriteByte('_')
			}
		}
		sb.WriteRune(unicode.ToUpper(r))
		lastWasSeparator = false
	}

	return strings.TrimSuffix(sb.String(), "_")
}
