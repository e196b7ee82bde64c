package lexer

import (
	"strings"

	"clarity/pkg/token"
)

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int
	column       int

	bracketDepth   int  // newlines are suppressed inside (), [] and {}
	lastWasNewline bool // collapse blank lines
}

func New(input string) *Lexer {
	l := &Lexer{
		input:          input,
		line:           1,
		column:         0,
		lastWasNewline: true,
	}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition += 1
	l.column += 1
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) peekAt(offset int) byte {
	idx := l.position + offset
	if idx >= len(l.input) {
		return 0
	}
	return l.input[idx]
}

func (l *Lexer) NextToken() token.Token {
	for {
		// Skip whitespace but NOT newlines
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
			l.readChar()
		}

		// Comments: // and -- run to end of line, /* */ nests
		if l.ch == '/' && l.peekChar() == '/' {
			l.skipLineComment()
			continue
		}
		if l.ch == '-' && l.peekChar() == '-' {
			l.skipLineComment()
			continue
		}
		if l.ch == '/' && l.peekChar() == '*' {
			l.skipBlockComment()
			continue
		}

		if l.ch == '\n' {
			line, col := l.line, l.column
			l.readChar()
			if l.bracketDepth > 0 || l.lastWasNewline {
				continue
			}
			l.lastWasNewline = true
			return token.Token{Type: token.NEWLINE, Literal: "\\n", Line: line, Column: col}
		}
		break
	}

	tok := l.scanToken()
	l.lastWasNewline = tok.Type == token.NEWLINE
	return tok
}

func (l *Lexer) scanToken() token.Token {
	var tok token.Token
	line, col := l.line, l.column

	switch l.ch {
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.EQ, Literal: "==", Line: line, Column: col}
		} else if l.peekChar() == '>' {
			l.readChar()
			tok = token.Token{Type: token.FAT_ARROW, Literal: "=>", Line: line, Column: col}
		} else {
			tok = token.Token{Type: token.ASSIGN, Literal: "=", Line: line, Column: col}
		}
	case '+':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.PLUS_EQ, Literal: "+=", Line: line, Column: col}
		} else {
			tok = token.Token{Type: token.PLUS, Literal: "+", Line: line, Column: col}
		}
	case '-':
		if l.peekChar() == '>' {
			l.readChar()
			tok = token.Token{Type: token.ARROW, Literal: "->", Line: line, Column: col}
		} else if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.MINUS_EQ, Literal: "-=", Line: line, Column: col}
		} else {
			tok = token.Token{Type: token.MINUS, Literal: "-", Line: line, Column: col}
		}
	case '*':
		if l.peekChar() == '*' {
			l.readChar()
			tok = token.Token{Type: token.POWER, Literal: "**", Line: line, Column: col}
		} else if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.STAR_EQ, Literal: "*=", Line: line, Column: col}
		} else {
			tok = token.Token{Type: token.STAR, Literal: "*", Line: line, Column: col}
		}
	case '/':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.SLASH_EQ, Literal: "/=", Line: line, Column: col}
		} else {
			tok = token.Token{Type: token.SLASH, Literal: "/", Line: line, Column: col}
		}
	case '%':
		tok = token.Token{Type: token.PERCENT, Literal: "%", Line: line, Column: col}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.NOT_EQ, Literal: "!=", Line: line, Column: col}
		} else {
			tok = token.Token{Type: token.BANG, Literal: "!", Line: line, Column: col}
		}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.LTE, Literal: "<=", Line: line, Column: col}
		} else if l.peekChar() == '<' {
			l.readChar()
			tok = token.Token{Type: token.SHL, Literal: "<<", Line: line, Column: col}
		} else {
			tok = token.Token{Type: token.LT, Literal: "<", Line: line, Column: col}
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.GTE, Literal: ">=", Line: line, Column: col}
		} else if l.peekChar() == '>' {
			l.readChar()
			tok = token.Token{Type: token.SHR, Literal: ">>", Line: line, Column: col}
		} else {
			tok = token.Token{Type: token.GT, Literal: ">", Line: line, Column: col}
		}
	case '|':
		if l.peekChar() == '>' {
			l.readChar()
			tok = token.Token{Type: token.PIPE_OP, Literal: "|>", Line: line, Column: col}
		} else {
			tok = token.Token{Type: token.BAR, Literal: "|", Line: line, Column: col}
		}
	case '&':
		tok = token.Token{Type: token.AMP, Literal: "&", Line: line, Column: col}
	case '^':
		tok = token.Token{Type: token.CARET, Literal: "^", Line: line, Column: col}
	case '~':
		tok = token.Token{Type: token.TILDE, Literal: "~", Line: line, Column: col}
	case '?':
		if l.peekChar() == '.' {
			l.readChar()
			tok = token.Token{Type: token.OPT_DOT, Literal: "?.", Line: line, Column: col}
		} else if l.peekChar() == '?' {
			l.readChar()
			tok = token.Token{Type: token.QUESTION_Q, Literal: "??", Line: line, Column: col}
		} else {
			tok = token.Token{Type: token.QUESTION, Literal: "?", Line: line, Column: col}
		}
	case '.':
		if l.peekChar() == '.' && l.peekAt(2) == '.' {
			l.readChar()
			l.readChar()
			tok = token.Token{Type: token.ELLIPSIS, Literal: "...", Line: line, Column: col}
		} else if l.peekChar() == '.' {
			l.readChar()
			tok = token.Token{Type: token.DOTDOT, Literal: "..", Line: line, Column: col}
		} else {
			tok = token.Token{Type: token.DOT, Literal: ".", Line: line, Column: col}
		}
	case ',':
		tok = token.Token{Type: token.COMMA, Literal: ",", Line: line, Column: col}
	case ':':
		tok = token.Token{Type: token.COLON, Literal: ":", Line: line, Column: col}
	case ';':
		// ';' terminates a statement even inside brackets
		tok = token.Token{Type: token.NEWLINE, Literal: ";", Line: line, Column: col}
	case '@':
		tok = token.Token{Type: token.AT, Literal: "@", Line: line, Column: col}
	case '(':
		l.bracketDepth++
		tok = token.Token{Type: token.LPAREN, Literal: "(", Line: line, Column: col}
	case ')':
		l.bracketDepth--
		tok = token.Token{Type: token.RPAREN, Literal: ")", Line: line, Column: col}
	case '{':
		l.bracketDepth++
		tok = token.Token{Type: token.LBRACE, Literal: "{", Line: line, Column: col}
	case '}':
		l.bracketDepth--
		tok = token.Token{Type: token.RBRACE, Literal: "}", Line: line, Column: col}
	case '[':
		l.bracketDepth++
		tok = token.Token{Type: token.LBRACKET, Literal: "[", Line: line, Column: col}
	case ']':
		l.bracketDepth--
		tok = token.Token{Type: token.RBRACKET, Literal: "]", Line: line, Column: col}
	case '"', '\'':
		return l.readString(l.ch)
	case 0:
		tok = token.Token{Type: token.EOF, Literal: "", Line: line, Column: col}
	default:
		if isLetter(l.ch) {
			return l.readIdentifier()
		} else if isDigit(l.ch) {
			return l.readNumber()
		}
		tok = token.Token{Type: token.ILLEGAL, Literal: string(l.ch), Line: line, Column: col}
	}

	l.readChar()
	return tok
}

func (l *Lexer) readIdentifier() token.Token {
	line, col := l.line, l.column
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	word := l.input[position:l.position]

	// r"..." is a raw string, no escape processing
	if word == "r" && (l.ch == '"' || l.ch == '\'') {
		return l.readRawString(line, col)
	}

	return token.Token{Type: token.LookupIdent(word), Literal: word, Line: line, Column: col}
}

func (l *Lexer) readNumber() token.Token {
	line, col := l.line, l.column
	var num strings.Builder

	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		num.WriteByte(l.ch)
		l.readChar()
		num.WriteByte(l.ch)
		l.readChar()
		for isHexDigit(l.ch) || l.ch == '_' {
			if l.ch != '_' {
				num.WriteByte(l.ch)
			}
			l.readChar()
		}
		return token.Token{Type: token.NUMBER, Literal: num.String(), Line: line, Column: col}
	}

	hasDot := false
	for {
		if isDigit(l.ch) {
			num.WriteByte(l.ch)
			l.readChar()
		} else if l.ch == '_' && num.Len() > 0 {
			l.readChar()
		} else if l.ch == '.' && !hasDot && isDigit(l.peekChar()) {
			hasDot = true
			num.WriteByte(l.ch)
			l.readChar()
		} else {
			break
		}
	}
	return token.Token{Type: token.NUMBER, Literal: num.String(), Line: line, Column: col}
}

func (l *Lexer) readString(quote byte) token.Token {
	line, col := l.line, l.column

	// Triple-quoted strings may span lines and take no escapes
	if l.peekChar() == quote && l.peekAt(2) == quote {
		l.readChar()
		l.readChar()
		l.readChar()
		position := l.position
		for {
			if l.ch == 0 {
				return token.Token{Type: token.ILLEGAL, Literal: "unterminated string", Line: line, Column: col}
			}
			if l.ch == quote && l.peekChar() == quote && l.peekAt(2) == quote {
				break
			}
			l.readChar()
		}
		value := l.input[position:l.position]
		l.readChar()
		l.readChar()
		l.readChar()
		return token.Token{Type: token.STRING, Literal: value, Line: line, Column: col}
	}

	var result strings.Builder
	l.readChar() // opening quote
	for l.ch != quote {
		switch l.ch {
		case 0, '\n':
			return token.Token{Type: token.ILLEGAL, Literal: "unterminated string", Line: line, Column: col}
		case '\\':
			l.readChar()
			switch l.ch {
			case 'n':
				result.WriteByte('\n')
			case 't':
				result.WriteByte('\t')
			case 'r':
				result.WriteByte('\r')
			case '\\':
				result.WriteByte('\\')
			case '\'':
				result.WriteByte('\'')
			case '"':
				result.WriteByte('"')
			case '0':
				result.WriteByte(0)
			case '{':
				result.WriteByte('{')
			case '}':
				result.WriteByte('}')
			default:
				result.WriteByte('\\')
				result.WriteByte(l.ch)
			}
		default:
			result.WriteByte(l.ch)
		}
		l.readChar()
	}
	l.readChar() // closing quote
	return token.Token{Type: token.STRING, Literal: result.String(), Line: line, Column: col}
}

func (l *Lexer) readRawString(line, col int) token.Token {
	quote := l.ch
	l.readChar()
	position := l.position
	for l.ch != quote {
		if l.ch == 0 || l.ch == '\n' {
			return token.Token{Type: token.ILLEGAL, Literal: "unterminated raw string", Line: line, Column: col}
		}
		l.readChar()
	}
	value := l.input[position:l.position]
	l.readChar()
	return token.Token{Type: token.RAWSTRING, Literal: value, Line: line, Column: col}
}

func (l *Lexer) skipLineComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

func (l *Lexer) skipBlockComment() {
	l.readChar()
	l.readChar()
	depth := 1
	for depth > 0 && l.ch != 0 {
		if l.ch == '/' && l.peekChar() == '*' {
			depth++
			l.readChar()
		} else if l.ch == '*' && l.peekChar() == '/' {
			depth--
			l.readChar()
		}
		l.readChar()
	}
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || 'a' <= ch && ch <= 'f' || 'A' <= ch && ch <= 'F'
}
