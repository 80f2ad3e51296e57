package script

import (
	"fmt"
	"strings"
)

// Render converts tokens back into script text, one line per token. It panics
// with *InvariantError on a kind the tokenizer never produces.
func Render(tokens []Token) string {
	lines := make([]string, 0, len(tokens))
	for _, token := range tokens {
		lines = append(lines, RenderToken(token))
	}
	return strings.Join(lines, "\n")
}

// RenderToken renders a single directive.
func RenderToken(token Token) string {
	switch token.Kind {
	case CreateAlias, RemoveAlias, CreateImplication, RemoveImplication:
		return fmt.Sprintf("%s [[%s]] -> [[%s]]", strings.ReplaceAll(string(token.Kind), "_", " "), token.A, token.B)
	case MassUpdate:
		return fmt.Sprintf("mass update {{%s}} -> %s", token.A, token.B)
	default:
		panic(&InvariantError{Kind: token.Kind})
	}
}

// Normalize returns the canonical stored form of a script.
func Normalize(text string) string {
	return strings.ToLower(text)
}
