package condition

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/mbaleeiro/chatvine/pkg/domain"
)

// Context is the evaluation input for a condition.
type Context struct {
	MessageText string
	MediaType   string
	Timestamp   time.Time
	Contact     domain.Contact

	// Location is the flow's configured timezone for time functions.
	// Nil means UTC.
	Location *time.Location
}

func (c Context) location() *time.Location {
	if c.Location != nil {
		return c.Location
	}
	return time.UTC
}

// Diagnostic reports a non-fatal evaluation problem. A condition carrying
// diagnostics evaluated to false rather than aborting.
type Diagnostic struct {
	Expr   string
	Detail string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("condition %q: %s", d.Expr, d.Detail)
}

// Recognized function names.
const (
	fnContains    = "Contains"
	fnExactMatch  = "ExactMatch"
	fnRegexMatch  = "RegexMatch"
	fnStartsWith  = "StartsWith"
	fnEndsWith    = "EndsWith"
	fnHasMedia    = "HasMedia"
	fnMediaType   = "MediaType"
	fnTimeBefore  = "TimeBefore"
	fnTimeAfter   = "TimeAfter"
	fnTimeBetween = "TimeBetween"
)

// Expr is a parsed condition. Parse once, evaluate many times.
type Expr struct {
	raw string

	// function call form
	fn            string
	arg           string
	caseSensitive bool

	// Contact.<attr> == 'value' form
	contactAttr  string
	contactValue string

	// compiled pattern cache for RegexMatch
	reOnce sync.Once
	re     *regexp.Regexp
	reErr  error
}

// String returns the original expression text.
func (e *Expr) String() string { return e.raw }

// Eval evaluates the expression against the context. It never mutates the
// context and is deterministic for identical inputs. Runtime problems come
// back as diagnostics alongside a false result.
func (e *Expr) Eval(ctx Context) (bool, []Diagnostic) {
	if e.contactAttr != "" {
		return e.evalContact(ctx)
	}

	switch e.fn {
	case fnContains:
		return fold(ctx.MessageText, e.arg, e.caseSensitive, strings.Contains), nil
	case fnExactMatch:
		return fold(ctx.MessageText, e.arg, e.caseSensitive, func(a, b string) bool { return a == b }), nil
	case fnStartsWith:
		return fold(ctx.MessageText, e.arg, e.caseSensitive, strings.HasPrefix), nil
	case fnEndsWith:
		return fold(ctx.MessageText, e.arg, e.caseSensitive, strings.HasSuffix), nil
	case fnRegexMatch:
		return e.evalRegex(ctx)
	case fnHasMedia:
		return ctx.MediaType != "", nil
	case fnMediaType:
		return strings.EqualFold(ctx.MediaType, e.arg), nil
	case fnTimeBefore, fnTimeAfter, fnTimeBetween:
		return e.evalTime(ctx)
	default:
		return false, []Diagnostic{{Expr: e.raw, Detail: fmt.Sprintf("unknown function %q", e.fn)}}
	}
}

func fold(text, arg string, caseSensitive bool, match func(string, string) bool) bool {
	if caseSensitive {
		return match(text, arg)
	}
	return match(strings.ToLower(text), strings.ToLower(arg))
}

func (e *Expr) evalContact(ctx Context) (bool, []Diagnostic) {
	if e.contactAttr == "tags" {
		return ctx.Contact.HasTag(e.contactValue), nil
	}
	val, ok := ctx.Contact.Attribute(e.contactAttr)
	if !ok {
		return false, []Diagnostic{{Expr: e.raw, Detail: fmt.Sprintf("unknown contact attribute %q", e.contactAttr)}}
	}
	// Exact, case-sensitive compare.
	return val == e.contactValue, nil
}

// evalRegex compiles the pattern on first evaluation and caches the result.
// An invalid pattern keeps evaluating to false with a diagnostic.
func (e *Expr) evalRegex(ctx Context) (bool, []Diagnostic) {
	e.reOnce.Do(func() {
		e.re, e.reErr = regexp.Compile(e.arg)
	})
	if e.reErr != nil {
		return false, []Diagnostic{{Expr: e.raw, Detail: fmt.Sprintf("invalid pattern: %v", e.reErr)}}
	}
	return e.re.MatchString(ctx.MessageText), nil
}

func (e *Expr) evalTime(ctx Context) (bool, []Diagnostic) {
	now := ctx.Timestamp.In(ctx.location())
	minute := now.Hour()*60 + now.Minute()

	switch e.fn {
	case fnTimeBefore:
		mark, err := parseClock(e.arg)
		if err != nil {
			return false, []Diagnostic{{Expr: e.raw, Detail: err.Error()}}
		}
		return minute < mark, nil
	case fnTimeAfter:
		mark, err := parseClock(e.arg)
		if err != nil {
			return false, []Diagnostic{{Expr: e.raw, Detail: err.Error()}}
		}
		return minute > mark, nil
	default: // fnTimeBetween
		parts := strings.SplitN(e.arg, ",", 2)
		if len(parts) != 2 {
			return false, []Diagnostic{{Expr: e.raw, Detail: "TimeBetween wants 'HH:MM,HH:MM'"}}
		}
		start, err := parseClock(strings.TrimSpace(parts[0]))
		if err != nil {
			return false, []Diagnostic{{Expr: e.raw, Detail: err.Error()}}
		}
		end, err := parseClock(strings.TrimSpace(parts[1]))
		if err != nil {
			return false, []Diagnostic{{Expr: e.raw, Detail: err.Error()}}
		}
		if start > end {
			// Interval crosses midnight, e.g. 22:00,06:00.
			return minute >= start || minute < end, nil
		}
		// Half-open [start, end).
		return minute >= start && minute < end, nil
	}
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}
