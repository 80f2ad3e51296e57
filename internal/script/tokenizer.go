package script

import (
	"strings"

	"github.com/viant/parsly"
)

// Tokenize parses text into directives in source order. Blank lines are
// skipped; keywords are matched case-insensitively. The first line matching
// no directive fails the whole script with a *SyntaxError.
func Tokenize(text string) ([]Token, error) {
	var tokens []Token
	for i, raw := range splitLines(text) {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		token, ok := parseLine(line)
		if !ok {
			return nil, &SyntaxError{Line: i + 1, Text: line}
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

func parseLine(line string) (Token, bool) {
	cursor := parsly.NewCursor("", []byte(line), 0)

	matched := cursor.MatchAfterOptional(whitespaceToken, createToken, removeToken, massToken)
	switch matched.Code {
	case createCode:
		return parseRelationship(cursor, CreateAlias, CreateImplication)
	case removeCode:
		return parseRelationship(cursor, RemoveAlias, RemoveImplication)
	case massCode:
		if cursor.MatchAfterOptional(whitespaceToken, updateToken).Code != updateCode {
			return Token{}, false
		}
		return parseMassUpdate(cursor)
	}
	return Token{}, false
}

// parseRelationship handles "alias [[A]] -> [[B]]" or "implication [[A]] -> [[B]]"
// after the create/remove verb.
func parseRelationship(cursor *parsly.Cursor, alias, implication Kind) (Token, bool) {
	var token Token
	switch cursor.MatchAfterOptional(whitespaceToken, aliasToken, implicationToken).Code {
	case aliasCode:
		token.Kind = alias
	case implicationCode:
		token.Kind = implication
	default:
		return Token{}, false
	}

	antecedent, ok := matchTagName(cursor)
	if !ok {
		return Token{}, false
	}
	if cursor.MatchAfterOptional(whitespaceToken, arrowToken).Code != arrowCode {
		return Token{}, false
	}
	consequent, ok := matchTagName(cursor)
	if !ok {
		return Token{}, false
	}
	if !atEnd(cursor) {
		return Token{}, false
	}
	token.A = antecedent
	token.B = consequent
	return token, true
}

func matchTagName(cursor *parsly.Cursor) (string, bool) {
	if cursor.MatchAfterOptional(whitespaceToken, openTagToken).Code != openTagCode {
		return "", false
	}
	matched := cursor.MatchOne(tagNameToken)
	if matched.Code != tagNameCode {
		return "", false
	}
	name := strings.TrimSpace(matched.Text(cursor))
	if name == "" || strings.ContainsAny(name, "[]") {
		return "", false
	}
	if cursor.MatchOne(closeTagToken).Code != closeTagCode {
		return "", false
	}
	return name, true
}

// parseMassUpdate handles "{{query}} -> replacement" after "mass update".
func parseMassUpdate(cursor *parsly.Cursor) (Token, bool) {
	if cursor.MatchAfterOptional(whitespaceToken, openQueryToken).Code != openQueryCode {
		return Token{}, false
	}
	matched := cursor.MatchOne(queryToken)
	if matched.Code != queryCode {
		return Token{}, false
	}
	query := strings.TrimSpace(matched.Text(cursor))
	if query == "" || strings.ContainsAny(query, "{}") {
		return Token{}, false
	}
	if cursor.MatchOne(closeQueryToken).Code != closeQueryCode {
		return Token{}, false
	}
	if cursor.MatchAfterOptional(whitespaceToken, arrowToken).Code != arrowCode {
		return Token{}, false
	}
	matched = cursor.MatchAfterOptional(whitespaceToken, replacementToken)
	if matched.Code != replacementCode {
		return Token{}, false
	}
	replacement := strings.TrimSpace(matched.Text(cursor))
	if replacement == "" {
		return Token{}, false
	}
	return Token{Kind: MassUpdate, A: query, B: replacement}, true
}

func atEnd(cursor *parsly.Cursor) bool {
	cursor.MatchOne(whitespaceToken)
	return cursor.Pos >= cursor.InputSize
}
