// Package query normalizes free-text application queries and splits names
// and paths into comparable tokens.
package query

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Normalize returns the canonical form of a user query: NFKC, case-folded,
// trimmed, inner whitespace collapsed to single spaces.
func Normalize(q string) string {
	q = norm.NFKC.String(q)
	q = folder.String(q)
	return strings.Join(strings.Fields(q), " ")
}

// Fold case-folds s for case-insensitive comparison.
func Fold(s string) string {
	return folder.String(s)
}

// Tokens splits text into lower-case alphanumeric tokens. camelCase and
// PascalCase words are split ("VSCode" -> "vs", "code"); letter/digit
// boundaries are not ("7zip" stays one token).
func Tokens(text string) []string {
	var tokens []string
	for _, word := range strings.FieldsFunc(text, isSeparator) {
		for _, part := range SplitCamelCase(word) {
			if part == "" {
				continue
			}
			tokens = append(tokens, strings.ToLower(part))
		}
	}
	return tokens
}

// WordTokens splits text on separators only, without camelCase splitting.
func WordTokens(text string) []string {
	words := strings.FieldsFunc(text, isSeparator)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return words
}

// Collapse lower-cases s and drops every rune that is not a letter or digit,
// so "oh-my-posh", "Oh My Posh" and "ohmyposh" compare equal.
func Collapse(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// SplitCamelCase splits camelCase and PascalCase identifiers.
// Examples:
//   - "getUserById" -> ["get", "User", "By", "Id"]
//   - "HTTPHandler" -> ["HTTP", "Handler"]
//   - "VSCode"      -> ["VS", "Code"]
func SplitCamelCase(s string) []string {
	if s == "" {
		return []string{}
	}

	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])

			if prevIsLower || (nextIsLower && unicode.IsUpper(runes[i-1])) {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}

	if current.Len() > 0 {
		result = append(result, current.String())
	}

	return result
}

// Matches reports whether a candidate name plausibly answers q. It is the
// permissive pre-filter sources use before handing hits to the ranker: the
// collapsed name contains the collapsed query, or every query token occurs
// in the name's tokens.
func Matches(name, q string) bool {
	cq := Collapse(q)
	if cq == "" {
		return false
	}
	if strings.Contains(Collapse(name), cq) {
		return true
	}

	qt := WordTokens(q)
	if len(qt) == 0 {
		return false
	}
	have := make(map[string]struct{})
	for _, t := range Tokens(name) {
		have[t] = struct{}{}
	}
	for _, t := range qt {
		if _, ok := have[t]; !ok {
			return false
		}
	}
	return true
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
