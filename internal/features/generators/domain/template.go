package domain

import (
	"fmt"
	"strings"
)

// ExpandTemplate replaces every {name} placeholder in tmpl with the
// value returned by lookup. Substituted text is inserted literally and
// never re-scanned, so the result is a single deterministic pass over
// the template. A lookup that has no value for a name returns the empty
// string; that is a valid resolution, since placeholders are advisory
// prompt segments rather than syntax-critical tokens.
//
// Brace characters outside a well-formed placeholder wrap ErrTemplate:
// an unterminated '{', a stray '}', or a placeholder whose name is not
// an identifier ([A-Za-z0-9_]+) all fail the call.
func ExpandTemplate(tmpl string, lookup func(name string) string) (string, error) {
	var out strings.Builder
	out.Grow(len(tmpl))
	for i := 0; i < len(tmpl); {
		switch tmpl[i] {
		case '{':
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("%w: unterminated placeholder at offset %d", ErrTemplate, i)
			}
			name := tmpl[i+1 : i+1+end]
			if !validPlaceholderName(name) {
				return "", fmt.Errorf("%w: invalid placeholder %q at offset %d", ErrTemplate, name, i)
			}
			out.WriteString(lookup(name))
			i += end + 2
		case '}':
			return "", fmt.Errorf("%w: unmatched '}' at offset %d", ErrTemplate, i)
		default:
			out.WriteByte(tmpl[i])
			i++
		}
	}
	return out.String(), nil
}

func validPlaceholderName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_':
		default:
			return false
		}
	}
	return true
}
