// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package exprgen

import (
	"strings"
	"unicode"
)

// token is the kind of a lexical token.
type token int

const (
	illegal token = iota
	eof
	lparen
	rparen
	lbracket
	rbracket
	colref
	number
	str
	ident
)

var tokenNames = [...]string{
	illegal:  "ILLEGAL",
	eof:      "EOF",
	lparen:   "(",
	rparen:   ")",
	lbracket: "[",
	rbracket: "]",
	colref:   "COLREF",
	number:   "NUMBER",
	str:      "STRING",
	ident:    "IDENT",
}

func (t token) String() string { return tokenNames[t] }

// scanner breaks an expression into tokens. Whitespace and commas separate
// tokens and are otherwise ignored.
type scanner struct {
	src []rune
	pos int

	tok token
	lit string
}

func newScanner(src string) *scanner {
	return &scanner{src: []rune(src)}
}

// next advances to the next token.
func (s *scanner) next() token {
	for s.pos < len(s.src) && (unicode.IsSpace(s.src[s.pos]) || s.src[s.pos] == ',') {
		s.pos++
	}
	if s.pos >= len(s.src) {
		s.tok, s.lit = eof, ""
		return s.tok
	}
	start := s.pos
	ch := s.src[s.pos]
	s.pos++
	switch {
	case ch == '(':
		s.tok = lparen
	case ch == ')':
		s.tok = rparen
	case ch == '[':
		s.tok = lbracket
	case ch == ']':
		s.tok = rbracket
	case ch == '$':
		s.scanWhile(unicode.IsDigit)
		s.tok = colref
		if s.pos == start+1 {
			s.tok = illegal
		}
	case ch == '\'' || ch == '"':
		s.scanString(ch)
		return s.tok
	case unicode.IsDigit(ch) || (ch == '-' && s.pos < len(s.src) && unicode.IsDigit(s.src[s.pos])):
		s.scanWhile(func(r rune) bool { return unicode.IsDigit(r) || r == '.' || r == 'e' })
		s.tok = number
	case isIdentRune(ch):
		s.scanWhile(isIdentRune)
		s.tok = ident
	default:
		s.tok = illegal
	}
	s.lit = string(s.src[start:s.pos])
	return s.tok
}

func (s *scanner) scanWhile(f func(r rune) bool) {
	for s.pos < len(s.src) && f(s.src[s.pos]) {
		s.pos++
	}
}

func (s *scanner) scanString(quote rune) {
	var b strings.Builder
	for s.pos < len(s.src) {
		ch := s.src[s.pos]
		s.pos++
		if ch == quote {
			s.tok, s.lit = str, b.String()
			return
		}
		b.WriteRune(ch)
	}
	s.tok, s.lit = illegal, b.String()
}

func isIdentRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case '_', '.', '=', '!', '<', '>', '+', '-', '*':
		return true
	}
	return false
}
