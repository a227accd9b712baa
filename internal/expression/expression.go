// Package expression holds the pure logic for expression texts and the
// ordered, duplicate-free expression list of a view.
//
// An expression text may name itself with a leading comment line:
//
//	// margin
//	"revenue" - "cost"
//
// The alias of that expression is "margin" and its body is the second line.
// Without a comment line the alias is the trimmed text itself.
package expression

import "strings"

const commentPrefix = "//"

// Alias returns the alias of an expression text.
func Alias(text string) string {
	if name, _, ok := splitComment(text); ok {
		return name
	}
	return strings.TrimSpace(text)
}

// Body returns the expression without its alias comment line.
func Body(text string) string {
	if _, body, ok := splitComment(text); ok {
		return body
	}
	return strings.TrimSpace(text)
}

// Named renders an expression text carrying the given alias.
func Named(alias, body string) string {
	return commentPrefix + " " + strings.TrimSpace(alias) + "\n" + strings.TrimSpace(body)
}

func splitComment(text string) (name, body string, ok bool) {
	trimmed := strings.TrimLeft(text, " \t\r\n")
	if !strings.HasPrefix(trimmed, commentPrefix) {
		return "", "", false
	}
	first, rest, _ := strings.Cut(trimmed, "\n")
	name = strings.TrimSpace(strings.TrimPrefix(first, commentPrefix))
	if name == "" {
		return "", "", false
	}
	return name, strings.TrimSpace(rest), true
}
