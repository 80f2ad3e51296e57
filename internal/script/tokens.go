package script

import (
	"bytes"

	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// Token codes start at 1 so they never collide with parsly's reserved codes.
const (
	whitespaceCode = iota + 1
	createCode
	removeCode
	massCode
	aliasCode
	implicationCode
	updateCode
	openTagCode
	closeTagCode
	openQueryCode
	closeQueryCode
	arrowCode
	tagNameCode
	queryCode
	replacementCode
)

var (
	whitespaceToken  = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	createToken      = parsly.NewToken(createCode, "create", newKeywordMatcher("create"))
	removeToken      = parsly.NewToken(removeCode, "remove", newKeywordMatcher("remove"))
	massToken        = parsly.NewToken(massCode, "mass", newKeywordMatcher("mass"))
	aliasToken       = parsly.NewToken(aliasCode, "alias", newKeywordMatcher("alias"))
	implicationToken = parsly.NewToken(implicationCode, "implication", newKeywordMatcher("implication"))
	updateToken      = parsly.NewToken(updateCode, "update", newKeywordMatcher("update"))
	openTagToken     = parsly.NewToken(openTagCode, "[[", matcher.NewFragment("[["))
	closeTagToken    = parsly.NewToken(closeTagCode, "]]", matcher.NewFragment("]]"))
	openQueryToken   = parsly.NewToken(openQueryCode, "{{", matcher.NewFragment("{{"))
	closeQueryToken  = parsly.NewToken(closeQueryCode, "}}", matcher.NewFragment("}}"))
	arrowToken       = parsly.NewToken(arrowCode, "->", matcher.NewFragment("->"))
	tagNameToken     = parsly.NewToken(tagNameCode, "TagName", newUntilMatcher("]]"))
	queryToken       = parsly.NewToken(queryCode, "Query", newUntilMatcher("}}"))
	replacementToken = parsly.NewToken(replacementCode, "Replacement", &restMatcher{})
)

// keywordMatcher matches a whole word case-insensitively.
type keywordMatcher struct {
	word []byte
}

func newKeywordMatcher(word string) parsly.Matcher {
	return &keywordMatcher{word: []byte(word)}
}

func (m *keywordMatcher) Match(cursor *parsly.Cursor) int {
	end := cursor.Pos + len(m.word)
	if end > cursor.InputSize {
		return 0
	}
	if !bytes.EqualFold(cursor.Input[cursor.Pos:end], m.word) {
		return 0
	}
	if end < cursor.InputSize && isWordByte(cursor.Input[end]) {
		return 0
	}
	return len(m.word)
}

// untilMatcher matches a non-empty run of bytes up to, not including, delim.
type untilMatcher struct {
	delim []byte
}

func newUntilMatcher(delim string) parsly.Matcher {
	return &untilMatcher{delim: []byte(delim)}
}

func (m *untilMatcher) Match(cursor *parsly.Cursor) int {
	if cursor.Pos >= cursor.InputSize {
		return 0
	}
	idx := bytes.Index(cursor.Input[cursor.Pos:cursor.InputSize], m.delim)
	if idx <= 0 {
		return 0
	}
	return idx
}

// restMatcher consumes everything left on the line.
type restMatcher struct{}

func (m *restMatcher) Match(cursor *parsly.Cursor) int {
	return cursor.InputSize - cursor.Pos
}

func isWordByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}
