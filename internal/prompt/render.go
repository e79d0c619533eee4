package prompt

import "strings"

// Vars holds the substitution values for a template render.
type Vars map[string]string

// Render substitutes {name} placeholders in the template with values from
// vars. Placeholders without a value are left intact so a malformed template
// stays visible instead of silently losing text.
func Render(template string, vars Vars) string {
	var b strings.Builder
	b.Grow(len(template))

	for {
		open := strings.IndexByte(template, '{')
		if open < 0 {
			b.WriteString(template)
			return b.String()
		}
		close := strings.IndexByte(template[open:], '}')
		if close < 0 {
			b.WriteString(template)
			return b.String()
		}
		close += open

		name := template[open+1 : close]
		value, ok := vars[name]
		if ok && validPlaceholderName(name) {
			b.WriteString(template[:open])
			b.WriteString(value)
			template = template[close+1:]
		} else {
			// Not a known placeholder. Emit the brace and keep scanning so a
			// real placeholder after it is still found.
			b.WriteString(template[:open+1])
			template = template[open+1:]
		}
	}
}

func validPlaceholderName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}
