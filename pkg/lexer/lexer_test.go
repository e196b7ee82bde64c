package lexer

import (
	"testing"

	"clarity/pkg/token"
)

func TestNextToken(t *testing.T) {
	input := `fn add(x, y) {
return x + y
}
`

	tests := []struct {
		expectedType    token.TokenType
		expectedLiteral string
	}{
		{token.FN, "fn"},
		{token.IDENT, "add"},
		{token.LPAREN, "("},
		{token.IDENT, "x"},
		{token.COMMA, ","},
		{token.IDENT, "y"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.RETURN, "return"},
		{token.IDENT, "x"},
		{token.PLUS, "+"},
		{token.IDENT, "y"},
		{token.RBRACE, "}"},
		{token.NEWLINE, "\\n"},
		{token.EOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q, literal=%q",
				i, tt.expectedType, tok.Type, tok.Literal)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestOperators(t *testing.T) {
	input := `a |> f(b) ?. x ?? y .. z ... ** += ?`
	tests := []token.TokenType{
		token.IDENT, token.PIPE_OP, token.IDENT, token.LPAREN, token.IDENT,
		token.RPAREN, token.OPT_DOT, token.IDENT, token.QUESTION_Q, token.IDENT,
		token.DOTDOT, token.IDENT, token.ELLIPSIS, token.POWER, token.PLUS_EQ,
		token.QUESTION, token.EOF,
	}

	l := New(input)
	for i, expected := range tests {
		tok := l.NextToken()
		if tok.Type != expected {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (%q)",
				i, expected, tok.Type, tok.Literal)
		}
	}
}

func TestKeywords(t *testing.T) {
	input := `let mut class enum match when async await yield ask impl interface`
	tests := []token.TokenType{
		token.LET, token.MUT, token.CLASS, token.ENUM, token.MATCH, token.WHEN,
		token.ASYNC, token.AWAIT, token.YIELD, token.ASK, token.IMPL,
		token.INTERFACE, token.EOF,
	}

	l := New(input)
	for i, expected := range tests {
		tok := l.NextToken()
		if tok.Type != expected {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q", i, expected, tok.Type)
		}
	}
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		input   string
		literal string
	}{
		{"42", "42"},
		{"3.14", "3.14"},
		{"1_000_000", "1000000"},
		{"0xFF", "0xFF"},
	}

	for _, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()
		if tok.Type != token.NUMBER {
			t.Fatalf("input %q: expected NUMBER, got %q", tt.input, tok.Type)
		}
		if tok.Literal != tt.literal {
			t.Errorf("input %q: literal wrong. expected=%q, got=%q", tt.input, tt.literal, tok.Literal)
		}
	}
}

func TestStrings(t *testing.T) {
	tests := []struct {
		input    string
		expected token.Token
	}{
		{`"hello"`, token.Token{Type: token.STRING, Literal: "hello"}},
		{`'single'`, token.Token{Type: token.STRING, Literal: "single"}},
		{`"tab\there"`, token.Token{Type: token.STRING, Literal: "tab\there"}},
		{`r"no\escape"`, token.Token{Type: token.RAWSTRING, Literal: `no\escape`}},
		{"\"\"\"multi\nline\"\"\"", token.Token{Type: token.STRING, Literal: "multi\nline"}},
	}

	for _, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()
		if tok.Type != tt.expected.Type {
			t.Fatalf("input %q: expected %q, got %q", tt.input, tt.expected.Type, tok.Type)
		}
		if tok.Literal != tt.expected.Literal {
			t.Errorf("input %q: literal wrong. expected=%q, got=%q",
				tt.input, tt.expected.Literal, tok.Literal)
		}
	}
}

func TestComments(t *testing.T) {
	input := "let x = 1 // trailing\n-- full line\n/* block /* nested */ */\nlet y = 2"
	tests := []token.TokenType{
		token.LET, token.IDENT, token.ASSIGN, token.NUMBER, token.NEWLINE,
		token.LET, token.IDENT, token.ASSIGN, token.NUMBER, token.EOF,
	}

	l := New(input)
	for i, expected := range tests {
		tok := l.NextToken()
		if tok.Type != expected {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (%q)",
				i, expected, tok.Type, tok.Literal)
		}
	}
}

func TestNewlinesInsideBrackets(t *testing.T) {
	input := "f(\n1,\n2\n)\n"
	tests := []token.TokenType{
		token.IDENT, token.LPAREN, token.NUMBER, token.COMMA, token.NUMBER,
		token.RPAREN, token.NEWLINE, token.EOF,
	}

	l := New(input)
	for i, expected := range tests {
		tok := l.NextToken()
		if tok.Type != expected {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q", i, expected, tok.Type)
		}
	}
}

func TestSemicolonActsAsNewline(t *testing.T) {
	l := New("a; b")
	tests := []token.TokenType{token.IDENT, token.NEWLINE, token.IDENT, token.EOF}
	for i, expected := range tests {
		tok := l.NextToken()
		if tok.Type != expected {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q", i, expected, tok.Type)
		}
	}
}

func TestLineTracking(t *testing.T) {
	l := New("a\nb")
	a := l.NextToken()
	if a.Line != 1 {
		t.Errorf("a on line %d, want 1", a.Line)
	}
	l.NextToken() // newline
	b := l.NextToken()
	if b.Line != 2 {
		t.Errorf("b on line %d, want 2", b.Line)
	}
}
