package token

import "fmt"

type TokenType string

const (
	// Special
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"
	NEWLINE = "NEWLINE"

	// Identifiers & Literals
	IDENT     = "IDENT"
	NUMBER    = "NUMBER"
	STRING    = "STRING"
	RAWSTRING = "RAWSTRING"

	// Operators
	ASSIGN     = "="
	PLUS       = "+"
	MINUS      = "-"
	STAR       = "*"
	SLASH      = "/"
	PERCENT    = "%"
	POWER      = "**"
	PLUS_EQ    = "+="
	MINUS_EQ   = "-="
	STAR_EQ    = "*="
	SLASH_EQ   = "/="
	EQ         = "=="
	NOT_EQ     = "!="
	LT         = "<"
	GT         = ">"
	LTE        = "<="
	GTE        = ">="
	PIPE_OP    = "|>"
	ARROW      = "->"
	FAT_ARROW  = "=>"
	QUESTION   = "?"
	QUESTION_Q = "??"
	OPT_DOT    = "?."
	DOT        = "."
	DOTDOT     = ".."
	ELLIPSIS   = "..."
	AMP        = "&"
	BAR        = "|"
	CARET      = "^"
	TILDE      = "~"
	SHL        = "<<"
	SHR        = ">>"
	AT         = "@"
	BANG       = "!"

	// Delimiters
	COMMA    = ","
	COLON    = ":"
	LPAREN   = "("
	RPAREN   = ")"
	LBRACE   = "{"
	RBRACE   = "}"
	LBRACKET = "["
	RBRACKET = "]"

	// Keywords
	LET       = "LET"
	MUT       = "MUT"
	FN        = "FN"
	RETURN    = "RETURN"
	IF        = "IF"
	ELIF      = "ELIF"
	ELSE      = "ELSE"
	FOR       = "FOR"
	WHILE     = "WHILE"
	IN        = "IN"
	TRUE      = "TRUE"
	FALSE     = "FALSE"
	NULL      = "NULL"
	AND       = "AND"
	OR        = "OR"
	NOT       = "NOT"
	BREAK     = "BREAK"
	CONTINUE  = "CONTINUE"
	TRY       = "TRY"
	CATCH     = "CATCH"
	FINALLY   = "FINALLY"
	THROW     = "THROW"
	SHOW      = "SHOW"
	IMPORT    = "IMPORT"
	FROM      = "FROM"
	AS        = "AS"
	CLASS     = "CLASS"
	THIS      = "THIS"
	INTERFACE = "INTERFACE"
	IMPL      = "IMPL"
	ENUM      = "ENUM"
	MATCH     = "MATCH"
	WHEN      = "WHEN"
	IS        = "IS"
	ASYNC     = "ASYNC"
	AWAIT     = "AWAIT"
	YIELD     = "YIELD"
	ASK       = "ASK"
)

type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

func (t Token) String() string {
	return fmt.Sprintf("Token(%s, %q, %d:%d)", t.Type, t.Literal, t.Line, t.Column)
}

var keywords = map[string]TokenType{
	"let":       LET,
	"mut":       MUT,
	"fn":        FN,
	"return":    RETURN,
	"if":        IF,
	"elif":      ELIF,
	"else":      ELSE,
	"for":       FOR,
	"while":     WHILE,
	"in":        IN,
	"true":      TRUE,
	"false":     FALSE,
	"null":      NULL,
	"and":       AND,
	"or":        OR,
	"not":       NOT,
	"break":     BREAK,
	"continue":  CONTINUE,
	"try":       TRY,
	"catch":     CATCH,
	"finally":   FINALLY,
	"throw":     THROW,
	"show":      SHOW,
	"import":    IMPORT,
	"from":      FROM,
	"as":        AS,
	"class":     CLASS,
	"this":      THIS,
	"interface": INTERFACE,
	"impl":      IMPL,
	"enum":      ENUM,
	"match":     MATCH,
	"when":      WHEN,
	"is":        IS,
	"async":     ASYNC,
	"await":     AWAIT,
	"yield":     YIELD,
	"ask":       ASK,
}

func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}
