// Package interpolate substitutes {{dotted.path}} tokens in message
// templates using a context map.
//
// Rendering never fails: tokens whose path is not a known variable are left
// verbatim in the output and reported, so one bad token never blocks the
// rest of a message.
package interpolate

import (
	"fmt"
	"regexp"
	"strings"
)

var tokenRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+(?:\.[A-Za-z0-9_]+)*)\s*\}\}`)

// Result is the outcome of rendering one template.
type Result struct {
	// Result is the rendered text. Unknown tokens appear verbatim.
	Result string
	// UnknownVariables lists paths that were not in the known set,
	// in order of first appearance.
	UnknownVariables []string
}

// Render substitutes every {{path}} token in template. known is the set of
// variable names the current node context exposes; paths outside it are left
// untouched and reported. A known path that resolves to nil renders as the
// empty string.
func Render(template string, context map[string]any, known []string) Result {
	knownSet := make(map[string]bool, len(known))
	for _, name := range known {
		knownSet[name] = true
	}

	var unknown []string
	seen := make(map[string]bool)

	rendered := tokenRe.ReplaceAllStringFunc(template, func(token string) string {
		path := tokenRe.FindStringSubmatch(token)[1]
		if !knownSet[path] {
			if !seen[path] {
				seen[path] = true
				unknown = append(unknown, path)
			}
			return token
		}
		value, ok := resolve(context, path)
		if !ok || value == nil {
			return ""
		}
		return stringify(value)
	})

	return Result{Result: rendered, UnknownVariables: unknown}
}

// resolve walks a dotted path through nested maps. The second return is
// false when a path segment is missing or a non-map is dereferenced.
func resolve(context map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")
	var current any = context
	for _, seg := range segments {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func stringify(v any) string {
	switch tv := v.(type) {
	case string:
		return tv
	case fmt.Stringer:
		return tv.String()
	case float64:
		// Trim the decimal part JSON gives whole numbers.
		if tv == float64(int64(tv)) {
			return fmt.Sprintf("%d", int64(tv))
		}
		return fmt.Sprintf("%v", tv)
	default:
		return fmt.Sprintf("%v", tv)
	}
}
