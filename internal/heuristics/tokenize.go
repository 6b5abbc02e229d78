package heuristics

import "strings"

// #region tokenize
// tokenSet splits text into lower-cased whitespace tokens.
func tokenSet(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		tokens[w] = true
	}
	return tokens
}

// sharedTerms returns the tokens present in both texts, ordered by first
// appearance in the target text.
func sharedTerms(targetText, otherText string) []string {
	otherTokens := tokenSet(otherText)
	seen := make(map[string]bool)
	var shared []string
	for _, w := range strings.Fields(strings.ToLower(targetText)) {
		if !otherTokens[w] || seen[w] {
			continue
		}
		seen[w] = true
		shared = append(shared, w)
	}
	return shared
}

// #endregion tokenize
