package domain

import "strings"

// Keyword is a routing entry owned by exactly one node's data payload.
// HandleID is derived from Value once, at definition time, so later edits to
// display fields never change routing identity.
type Keyword struct {
	ID            string `json:"id" mapstructure:"id"`
	Value         string `json:"value" mapstructure:"value"`
	CaseSensitive bool   `json:"caseSensitive" mapstructure:"caseSensitive"`
	HandleID      string `json:"handleId" mapstructure:"handleId"`
}

// KeywordHandleID derives the deterministic handle id for a keyword value:
// lower-cased, whitespace collapsed to single hyphens, prefixed.
func KeywordHandleID(value string) string {
	slug := strings.ToLower(strings.TrimSpace(value))
	slug = strings.Join(strings.Fields(slug), "-")
	return KeywordHandlePrefix + slug
}

// NormalizedValue returns the comparison form of the keyword value per its
// case-sensitivity flag.
func (k Keyword) NormalizedValue() string {
	if k.CaseSensitive {
		return k.Value
	}
	return strings.ToLower(k.Value)
}

// Matches reports whether the message text contains the keyword value,
// folding case unless the keyword is case-sensitive.
func (k Keyword) Matches(text string) bool {
	if k.CaseSensitive {
		return strings.Contains(text, k.Value)
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(k.Value))
}
