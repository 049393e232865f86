// Package condition parses and evaluates the fixed condition mini-language
// used by condition nodes and trigger nodes.
//
// An expression is a single function call, e.g. Contains('hello'),
// RegexMatch('^\d+$'), TimeBetween('22:00,06:00'), or a contact attribute
// compare, e.g. Contact.email == 'ana@example.com'. Expressions are parsed
// once into a typed form and evaluated against a message context.
//
// Evaluation is pure and never fails: malformed expressions and invalid
// regex patterns evaluate to false and are reported as diagnostics.
package condition
