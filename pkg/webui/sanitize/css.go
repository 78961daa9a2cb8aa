package sanitize

import (
	"bytes"
	"strings"

	"github.com/gorilla/css/scanner"
)

// allowedProperties is the set of CSS properties an email body may style.
// Layout-in-table properties common to bulk mail are included; anything that
// can reposition content over the surrounding page chrome (position,upper
// z-index layers, behaviors) is not.
var allowedProperties = map[string]struct{}{
	"background":       {},
	"background-color": {},
	"border":           {},
	"border-bottom":    {},
	"border-collapse":  {},
	"border-color":     {},
	"border-left":      {},
	"border-radius":    {},
	"border-right":     {},
	"border-spacing":   {},
	"border-style":     {},
	"border-top":       {},
	"border-width":     {},
	"box-sizing":       {},
	"clear":            {},
	"color":            {},
	"display":          {},
	"float":            {},
	"font-family":      {},
	"font-size":        {},
	"font-style":       {},
	"font-weight":      {},
	"height":           {},
	"letter-spacing":   {},
	"line-height":      {},
	"list-style":       {},
	"margin":           {},
	"margin-bottom":    {},
	"margin-left":      {},
	"margin-right":     {},
	"margin-top":       {},
	"max-height":       {},
	"max-width":        {},
	"min-height":       {},
	"min-width":        {},
	"overflow":         {},
	"padding":          {},
	"padding-bottom":   {},
	"padding-left":     {},
	"padding-right":    {},
	"padding-top":      {},
	"table-layout":     {},
	"text-align":       {},
	"text-decoration":  {},
	"text-transform":   {},
	"vertical-align":   {},
	"white-space":      {},
	"width":            {},
	"word-break":       {},
	"word-wrap":        {},
}

// stateHandler consumes one token, returns the next state.
type stateHandler func(b *bytes.Buffer, t *scanner.Token) stateHandler

// sanitizeStyle filters a style attribute value down to the allowed
// properties, returning "" when the CSS fails to scan.
func sanitizeStyle(input string) string {
	b := &bytes.Buffer{}
	scan := scanner.New(input)
	state := stateStart
	for {
		t := scan.Next()
		if t.Type == scanner.TokenEOF {
			return b.String()
		}
		if t.Type == scanner.TokenError {
			return ""
		}
		state = state(b, t)
		if state == nil {
			return ""
		}
	}
}

// stateStart expects a property name, or whitespace between declarations.
func stateStart(b *bytes.Buffer, t *scanner.Token) stateHandler {
	switch t.Type {
	case scanner.TokenIdent:
		if _, ok := allowedProperties[strings.ToLower(t.Value)]; !ok {
			return stateEat
		}
		b.WriteString(t.Value)
		return stateValid
	case scanner.TokenS:
		return stateStart
	}
	// Unexpected type.
	b.WriteString("/*" + t.Type.String() + "*/")
	return stateEat
}

// stateEat discards tokens through the end of the current declaration.
func stateEat(b *bytes.Buffer, t *scanner.Token) stateHandler {
	if t.Type == scanner.TokenChar && t.Value == ";" {
		return stateStart
	}
	return stateEat
}

// stateValid copies out an allowed declaration.
func stateValid(b *bytes.Buffer, t *scanner.Token) stateHandler {
	state := stateValid
	if t.Type == scanner.TokenChar && t.Value == ";" {
		// End of property.
		state = stateStart
	}
	b.WriteString(t.Value)
	return state
}
