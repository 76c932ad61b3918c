package flow

import "regexp"

// tokenPattern matches {identifier} placeholders. Identifiers are the
// usual variable names authors type into the builder: letters, digits
// and underscores.
var tokenPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Interpolate resolves {token} placeholders in text against the
// variable store.
//
// Resolution is fail-open: a token whose identifier is not present in
// vars is left in the text untouched, never removed and never an error.
// Resolved tokens substitute the stored value byte for byte. Interpolate
// runs on every text-bearing field of a node immediately before that
// field is surfaced to the delivery channel.
func Interpolate(text string, vars Variables) string {
	if text == "" || len(vars) == 0 {
		return text
	}

	return tokenPattern.ReplaceAllStringFunc(text, func(tok string) string {
		name := tok[1 : len(tok)-1]
		if val, ok := vars[name]; ok {
			return val
		}
		return tok
	})
}
