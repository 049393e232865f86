package condition

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// FnName('arg') / FnName('arg', true) / FnName()
	// The quoted argument is captured with its quotes so a missing argument
	// can be told apart from an empty one.
	callRe = regexp.MustCompile(`^([A-Za-z]+)\(\s*('(?:[^'\\]|\\.)*')?\s*(?:,\s*(true|false)\s*)?\)$`)

	// Contact.attr == 'value'
	contactRe = regexp.MustCompile(`^Contact\.([A-Za-z]+)\s*==\s*'((?:[^'\\]|\\.)*)'$`)
)

// wantsArg records whether each function takes a quoted argument. HasMedia
// is the only nullary one; for the rest a bare call like Contains() would
// degenerate into an always-true containment check.
var wantsArg = map[string]bool{
	fnContains:    true,
	fnExactMatch:  true,
	fnRegexMatch:  true,
	fnStartsWith:  true,
	fnEndsWith:    true,
	fnHasMedia:    false,
	fnMediaType:   true,
	fnTimeBefore:  true,
	fnTimeAfter:   true,
	fnTimeBetween: true,
}

// Parse turns a condition string into its typed form. Unknown functions and
// malformed expressions fail here; callers that must never fail use Evaluate.
func Parse(expr string) (*Expr, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return nil, fmt.Errorf("empty condition")
	}

	if m := contactRe.FindStringSubmatch(trimmed); m != nil {
		return &Expr{
			raw:          trimmed,
			contactAttr:  m[1],
			contactValue: unescape(m[2]),
		}, nil
	}

	m := callRe.FindStringSubmatch(trimmed)
	if m == nil {
		return nil, fmt.Errorf("malformed condition %q", trimmed)
	}
	name := m[1]
	wants, known := wantsArg[name]
	if !known {
		return nil, fmt.Errorf("unknown function %q", name)
	}
	quoted := m[2]
	if wants && quoted == "" {
		return nil, fmt.Errorf("%s requires a quoted argument", name)
	}
	if !wants && quoted != "" {
		return nil, fmt.Errorf("%s takes no argument", name)
	}
	var arg string
	if quoted != "" {
		arg = unescape(quoted[1 : len(quoted)-1])
	}

	return &Expr{
		raw:           trimmed,
		fn:            name,
		arg:           arg,
		caseSensitive: m[3] == "true",
	}, nil
}

// Evaluate is the never-fails entry point: malformed expressions are reported
// as diagnostics and evaluate to false.
func Evaluate(expr string, ctx Context) (bool, []Diagnostic) {
	parsed, err := Parse(expr)
	if err != nil {
		return false, []Diagnostic{{Expr: expr, Detail: err.Error()}}
	}
	return parsed.Eval(ctx)
}

func unescape(s string) string {
	s = strings.ReplaceAll(s, `\'`, `'`)
	return strings.ReplaceAll(s, `\\`, `\`)
}
