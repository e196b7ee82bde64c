package parser

import (
	"fmt"
	"strconv"
	"strings"

	"clarity/pkg/ast"
	"clarity/pkg/lexer"
	"clarity/pkg/token"
)

// Parser consumes the full token stream up front. Several constructs
// (arrow lambdas, multi-assignment, comprehensions) need more lookahead
// than a fixed window gives.
type Parser struct {
	tokens []token.Token
	pos    int
	errors []string
}

type bailout struct{}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{}
	for {
		tok := l.NextToken()
		p.tokens = append(p.tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return p
}

func (p *Parser) Errors() []string {
	return p.errors
}

func (p *Parser) errorf(format string, args ...interface{}) {
	tok := p.cur()
	msg := fmt.Sprintf(format, args...)
	p.errors = append(p.errors, fmt.Sprintf("line %d: %s", tok.Line, msg))
	panic(bailout{})
}

func (p *Parser) cur() token.Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) peek(offset int) token.Token {
	idx := p.pos + offset
	if idx < len(p.tokens) {
		return p.tokens[idx]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) advance() token.Token {
	tok := p.cur()
	if tok.Type != token.EOF {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(t token.TokenType, msg string) token.Token {
	tok := p.cur()
	if tok.Type != t {
		if msg == "" {
			msg = fmt.Sprintf("expected %s, got %s (%q)", t, tok.Type, tok.Literal)
		}
		p.errorf("%s", msg)
	}
	return p.advance()
}

func (p *Parser) match(types ...token.TokenType) bool {
	for _, t := range types {
		if p.cur().Type == t {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) skipNewlines() {
	for p.cur().Type == token.NEWLINE {
		p.advance()
	}
}

func (p *Parser) atEnd() bool {
	return p.cur().Type == token.EOF
}

// expectPropertyName accepts an identifier or keyword after '.' so that
// obj.match, obj.is and friends keep working.
func (p *Parser) expectPropertyName() string {
	tok := p.cur()
	if tok.Type == token.IDENT {
		p.advance()
		return tok.Literal
	}
	if token.LookupIdent(tok.Literal) != token.IDENT && tok.Literal != "" {
		p.advance()
		return tok.Literal
	}
	p.errorf("expected property name after '.'")
	return ""
}

// ParseProgram parses the whole token stream. Statements that fail to
// parse are dropped after recording an error and syncing to the next
// statement boundary.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}
	p.skipNewlines()
	for !p.atEnd() {
		stmt := p.parseStatementSafe()
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		p.skipNewlines()
	}
	return program
}

func (p *Parser) parseStatementSafe() (stmt ast.Statement) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			stmt = nil
			p.sync()
		}
	}()
	return p.parseStatement()
}

// sync skips to the next statement boundary after a parse error.
func (p *Parser) sync() {
	for !p.atEnd() && p.cur().Type != token.NEWLINE {
		p.advance()
	}
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.cur().Type {
	case token.LET, token.MUT:
		return p.parseLet()
	case token.FN:
		if p.peek(1).Type == token.IDENT {
			return p.parseFnDeclaration(false)
		}
		return p.parseExpressionStatement()
	case token.IF:
		return p.parseIf()
	case token.FOR:
		return p.parseFor()
	case token.WHILE:
		return p.parseWhile()
	case token.RETURN:
		return p.parseReturn()
	case token.BREAK:
		tok := p.advance()
		p.match(token.NEWLINE)
		return &ast.BreakStatement{Token: tok}
	case token.CONTINUE:
		tok := p.advance()
		p.match(token.NEWLINE)
		return &ast.ContinueStatement{Token: tok}
	case token.SHOW:
		return p.parseShow()
	case token.TRY:
		return p.parseTry()
	case token.IMPORT:
		return p.parseImport()
	case token.FROM:
		return p.parseFromImport()
	case token.CLASS:
		return p.parseClass()
	case token.THROW:
		return p.parseThrow()
	case token.MATCH:
		return p.parseMatch()
	case token.ENUM:
		return p.parseEnum()
	case token.ASYNC:
		return p.parseAsyncFn()
	case token.AT:
		return p.parseDecorated()
	case token.INTERFACE:
		return p.parseInterface()
	case token.NEWLINE:
		p.advance()
		return nil
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseLet() ast.Statement {
	tok := p.advance()
	mutable := tok.Type == token.MUT

	if p.cur().Type == token.LBRACKET {
		return p.parseDestructure(tok, mutable, "list")
	}
	if p.cur().Type == token.LBRACE {
		return p.parseDestructure(tok, mutable, "map")
	}

	nameTok := p.expect(token.IDENT, "expected variable name after 'let'")
	typeAnn := ""
	if p.match(token.COLON) {
		typeAnn = p.expect(token.IDENT, "expected type name").Literal
	}
	p.expect(token.ASSIGN, "expected '=' after variable name")
	value := p.parseExpression()
	p.match(token.NEWLINE)
	return &ast.LetStatement{Token: tok, Name: nameTok.Literal, Value: value, Mutable: mutable, TypeAnnotation: typeAnn}
}

func (p *Parser) parseDestructure(tok token.Token, mutable bool, kind string) ast.Statement {
	closing := token.TokenType(token.RBRACKET)
	if kind == "map" {
		closing = token.RBRACE
	}
	p.advance() // opening bracket
	var targets []ast.DestructureTarget
	for p.cur().Type != closing {
		if len(targets) > 0 {
			p.expect(token.COMMA, "")
		}
		if kind == "list" && p.cur().Type == token.ELLIPSIS {
			p.advance()
			name := p.expect(token.IDENT, "").Literal
			targets = append(targets, ast.DestructureTarget{Name: name, Rest: true})
		} else {
			name := p.expect(token.IDENT, "").Literal
			targets = append(targets, ast.DestructureTarget{Name: name})
		}
	}
	p.expect(closing, "")
	p.expect(token.ASSIGN, "expected '=' after destructure pattern")
	value := p.parseExpression()
	p.match(token.NEWLINE)
	return &ast.DestructureLetStatement{Token: tok, Targets: targets, Value: value, Mutable: mutable, Kind: kind}
}

func (p *Parser) parseFnDeclaration(isAsync bool) *ast.FnStatement {
	tok := p.advance() // 'fn'
	nameTok := p.expect(token.IDENT, "expected function name")
	params := p.parseParams()
	returnType := ""
	if p.match(token.ARROW) {
		returnType = p.expect(token.IDENT, "expected return type").Literal
	}
	body := p.parseBlock()
	p.match(token.NEWLINE)
	return &ast.FnStatement{Token: tok, Name: nameTok.Literal, Params: params, Body: body, IsAsync: isAsync, ReturnType: returnType}
}

func (p *Parser) parseParams() []ast.Param {
	p.expect(token.LPAREN, "expected '(' after function name")
	var params []ast.Param
	for p.cur().Type != token.RPAREN {
		if len(params) > 0 {
			p.expect(token.COMMA, "expected ',' between parameters")
		}
		if p.cur().Type == token.ELLIPSIS {
			p.advance()
			name := p.expect(token.IDENT, "expected parameter name after '...'").Literal
			params = append(params, ast.Param{Name: name, Rest: true})
		} else {
			name := p.expect(token.IDENT, "expected parameter name").Literal
			typ := ""
			if p.match(token.COLON) {
				typ = p.expect(token.IDENT, "expected type name").Literal
			}
			params = append(params, ast.Param{Name: name, Type: typ})
		}
	}
	p.expect(token.RPAREN, "")
	return params
}

func (p *Parser) parseBlock() *ast.Block {
	p.skipNewlines()
	tok := p.expect(token.LBRACE, "expected '{'")
	p.skipNewlines()
	block := &ast.Block{Token: tok}
	for p.cur().Type != token.RBRACE {
		if p.atEnd() {
			p.errorf("expected '}', unclosed block")
		}
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.skipNewlines()
	}
	p.expect(token.RBRACE, "")
	return block
}

func (p *Parser) parseIf() ast.Statement {
	tok := p.advance()
	condition := p.parseExpression()
	body := p.parseBlock()

	stmt := &ast.IfStatement{Token: tok, Condition: condition, Body: body}

	p.skipNewlines()
	for p.match(token.ELIF) {
		cond := p.parseExpression()
		elifBody := p.parseBlock()
		stmt.ElifClauses = append(stmt.ElifClauses, ast.ElifClause{Condition: cond, Body: elifBody})
		p.skipNewlines()
	}
	if p.match(token.ELSE) {
		p.skipNewlines()
		if p.cur().Type == token.IF {
			stmt.ElseBody = &ast.Block{Token: p.cur(), Statements: []ast.Statement{p.parseIf()}}
		} else {
			stmt.ElseBody = p.parseBlock()
		}
	}
	p.match(token.NEWLINE)
	return stmt
}

func (p *Parser) parseFor() ast.Statement {
	tok := p.advance()
	varTok := p.expect(token.IDENT, "expected variable name after 'for'")
	p.expect(token.IN, "expected 'in' after variable name")
	iterable := p.parseExpression()
	body := p.parseBlock()
	p.match(token.NEWLINE)
	return &ast.ForStatement{Token: tok, Variables: []string{varTok.Literal}, Iterable: iterable, Body: body}
}

func (p *Parser) parseWhile() ast.Statement {
	tok := p.advance()
	condition := p.parseExpression()
	body := p.parseBlock()
	p.match(token.NEWLINE)
	return &ast.WhileStatement{Token: tok, Condition: condition, Body: body}
}

func (p *Parser) parseReturn() ast.Statement {
	tok := p.advance()
	stmt := &ast.ReturnStatement{Token: tok}
	switch p.cur().Type {
	case token.NEWLINE, token.RBRACE, token.EOF:
	default:
		stmt.Value = p.parseExpression()
	}
	p.match(token.NEWLINE)
	return stmt
}

func (p *Parser) parseShow() ast.Statement {
	tok := p.advance()
	values := []ast.Expression{p.parseExpression()}
	for p.match(token.COMMA) {
		values = append(values, p.parseExpression())
	}
	p.match(token.NEWLINE)
	return &ast.ShowStatement{Token: tok, Values: values}
}

func (p *Parser) parseTry() ast.Statement {
	tok := p.advance()
	tryBody := p.parseBlock()
	p.skipNewlines()
	p.expect(token.CATCH, "expected 'catch' after try block")
	catchVar := ""
	if p.cur().Type == token.IDENT {
		catchVar = p.advance().Literal
	}
	catchBody := p.parseBlock()

	var finallyBody *ast.Block
	p.skipNewlines()
	if p.match(token.FINALLY) {
		finallyBody = p.parseBlock()
	}
	p.match(token.NEWLINE)
	return &ast.TryStatement{Token: tok, TryBody: tryBody, CatchVar: catchVar, CatchBody: catchBody, FinallyBody: finallyBody}
}

func (p *Parser) parseThrow() ast.Statement {
	tok := p.advance()
	value := p.parseExpression()
	p.match(token.NEWLINE)
	return &ast.ThrowStatement{Token: tok, Value: value}
}

func (p *Parser) parseClass() *ast.ClassStatement {
	tok := p.advance()
	name := p.expect(token.IDENT, "expected class name").Literal

	parent := ""
	if p.match(token.LT) {
		parent = p.expect(token.IDENT, "expected parent class name").Literal
	}

	var interfaces []string
	if p.match(token.IMPL) {
		interfaces = append(interfaces, p.expect(token.IDENT, "expected interface name").Literal)
		for p.match(token.COMMA) {
			interfaces = append(interfaces, p.expect(token.IDENT, "").Literal)
		}
	}

	p.skipNewlines()
	p.expect(token.LBRACE, "expected '{' after class name")
	p.skipNewlines()

	var methods []*ast.FnStatement
	for p.cur().Type != token.RBRACE {
		if p.atEnd() {
			p.errorf("expected '}', unclosed class")
		}
		if p.cur().Type != token.FN {
			p.errorf("expected method declaration (fn) in class body")
		}
		fnTok := p.advance()
		fnName := p.expect(token.IDENT, "").Literal
		params := p.parseParams()
		body := p.parseBlock()
		methods = append(methods, &ast.FnStatement{Token: fnTok, Name: fnName, Params: params, Body: body})
		p.skipNewlines()
	}
	p.expect(token.RBRACE, "")
	p.match(token.NEWLINE)
	return &ast.ClassStatement{Token: tok, Name: name, Methods: methods, Parent: parent, Interfaces: interfaces}
}

func (p *Parser) parseMatch() ast.Statement {
	tok := p.advance()
	subject := p.parseExpression()
	p.skipNewlines()
	p.expect(token.LBRACE, "expected '{' after match expression")
	p.skipNewlines()

	stmt := &ast.MatchStatement{Token: tok, Subject: subject}
	for p.cur().Type != token.RBRACE {
		if p.atEnd() {
			p.errorf("expected '}', unclosed match")
		}
		if p.match(token.ELSE) {
			stmt.Default = p.parseBlock()
			p.skipNewlines()
			continue
		}
		p.expect(token.WHEN, "expected 'when' in match arm")
		values := []ast.Expression{p.parseExpression()}
		for p.match(token.COMMA) {
			values = append(values, p.parseExpression())
		}
		body := p.parseBlock()
		stmt.Arms = append(stmt.Arms, ast.MatchArm{Values: values, Body: body})
		p.skipNewlines()
	}
	p.expect(token.RBRACE, "")
	p.match(token.NEWLINE)
	return stmt
}

func (p *Parser) parseInterface() ast.Statement {
	tok := p.advance()
	name := p.expect(token.IDENT, "expected interface name").Literal
	p.skipNewlines()
	p.expect(token.LBRACE, "expected '{' after interface name")
	p.skipNewlines()

	stmt := &ast.InterfaceStatement{Token: tok, Name: name}
	for p.cur().Type != token.RBRACE {
		if p.atEnd() {
			p.errorf("expected '}', unclosed interface")
		}
		p.expect(token.FN, "expected method signature (fn) in interface")
		methodName := p.expect(token.IDENT, "").Literal
		params := p.parseParams()
		returnType := ""
		if p.match(token.ARROW) {
			returnType = p.expect(token.IDENT, "expected return type").Literal
		}
		stmt.MethodSigs = append(stmt.MethodSigs, ast.MethodSig{Name: methodName, Params: params, ReturnType: returnType})
		p.skipNewlines()
	}
	p.expect(token.RBRACE, "")
	p.match(token.NEWLINE)
	return stmt
}

func (p *Parser) parseEnum() ast.Statement {
	tok := p.advance()
	name := p.expect(token.IDENT, "expected enum name").Literal
	p.skipNewlines()
	p.expect(token.LBRACE, "expected '{' after enum name")
	p.skipNewlines()

	stmt := &ast.EnumStatement{Token: tok, Name: name}
	for p.cur().Type != token.RBRACE {
		if len(stmt.Members) > 0 {
			p.expect(token.COMMA, "expected ',' between enum members")
			p.skipNewlines()
			if p.cur().Type == token.RBRACE {
				break // trailing comma
			}
		}
		memberName := p.expect(token.IDENT, "expected enum member name").Literal
		var value ast.Expression
		if p.match(token.ASSIGN) {
			value = p.parseExpression()
		}
		stmt.Members = append(stmt.Members, ast.EnumMember{Name: memberName, Value: value})
		p.skipNewlines()
	}
	p.expect(token.RBRACE, "")
	p.match(token.NEWLINE)
	return stmt
}

func (p *Parser) parseAsyncFn() *ast.FnStatement {
	p.advance() // 'async'
	if p.cur().Type != token.FN {
		p.errorf("expected 'fn' after 'async'")
	}
	return p.parseFnDeclaration(true)
}

func (p *Parser) parseDecorated() ast.Statement {
	atTok := p.cur()
	var decorators []ast.Expression
	for p.cur().Type == token.AT {
		p.advance()
		decorators = append(decorators, p.parsePostfix())
		p.skipNewlines()
	}

	var target ast.Statement
	switch p.cur().Type {
	case token.FN:
		target = p.parseFnDeclaration(false)
	case token.ASYNC:
		target = p.parseAsyncFn()
	case token.CLASS:
		target = p.parseClass()
	default:
		p.errorf("expected 'fn', 'async' or 'class' after decorator")
	}
	return &ast.DecoratedStatement{Token: atTok, Target: target, Decorators: decorators}
}

func (p *Parser) parseImport() ast.Statement {
	tok := p.advance()

	// import "path/to/file" [as alias]
	if p.cur().Type == token.STRING {
		path := p.advance().Literal
		alias := ""
		if p.match(token.AS) {
			alias = p.expect(token.IDENT, "").Literal
		}
		p.match(token.NEWLINE)
		return &ast.ImportStatement{Token: tok, Path: path, Alias: alias}
	}

	module := p.expect(token.IDENT, "expected module name").Literal
	stmt := &ast.ImportStatement{Token: tok, Module: module}
	if p.match(token.AS) {
		stmt.Alias = p.expect(token.IDENT, "").Literal
	} else if p.match(token.DOT) {
		stmt.Names = []string{p.expect(token.IDENT, "").Literal}
	}
	p.match(token.NEWLINE)
	return stmt
}

func (p *Parser) parseFromImport() ast.Statement {
	tok := p.advance()

	stmt := &ast.ImportStatement{Token: tok}
	if p.cur().Type == token.STRING {
		stmt.Path = p.advance().Literal
	} else {
		stmt.Module = p.expect(token.IDENT, "").Literal
	}
	p.expect(token.IMPORT, "expected 'import' after module name")
	stmt.Names = []string{p.expect(token.IDENT, "").Literal}
	for p.match(token.COMMA) {
		stmt.Names = append(stmt.Names, p.expect(token.IDENT, "").Literal)
	}
	p.match(token.NEWLINE)
	return stmt
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	tok := p.cur()
	expr := p.parseExpression()

	// Multi-assignment: a, b = x, y
	if p.cur().Type == token.COMMA {
		targets := []ast.Expression{expr}
		for p.match(token.COMMA) {
			targets = append(targets, p.parseExpression())
		}
		if p.cur().Type == token.ASSIGN {
			p.advance()
			values := []ast.Expression{p.parseExpression()}
			for p.match(token.COMMA) {
				values = append(values, p.parseExpression())
			}
			p.match(token.NEWLINE)
			return &ast.MultiAssignStatement{Token: tok, Targets: targets, Values: values}
		}
		p.match(token.NEWLINE)
		return &ast.ExpressionStatement{Token: tok, Expression: targets[len(targets)-1]}
	}

	var op string
	switch p.cur().Type {
	case token.ASSIGN:
		op = "="
	case token.PLUS_EQ:
		op = "+="
	case token.MINUS_EQ:
		op = "-="
	case token.STAR_EQ:
		op = "*="
	case token.SLASH_EQ:
		op = "/="
	}
	if op != "" {
		opTok := p.advance()
		value := p.parseExpression()
		p.match(token.NEWLINE)
		return &ast.AssignStatement{Token: opTok, Target: expr, Operator: op, Value: value}
	}

	p.match(token.NEWLINE)
	return &ast.ExpressionStatement{Token: tok, Expression: expr}
}

// Expressions, precedence climbing

func (p *Parser) parseExpression() ast.Expression {
	return p.parsePipe()
}

func (p *Parser) parsePipe() ast.Expression {
	expr := p.parseCoalesce()
	for {
		// the pipe may continue on the next line
		saved := p.pos
		p.skipNewlines()
		if p.cur().Type == token.PIPE_OP {
			tok := p.advance()
			right := p.parseCoalesce()
			expr = &ast.PipeExpression{Token: tok, Value: expr, Fn: right}
		} else {
			p.pos = saved
			break
		}
	}
	return expr
}

func (p *Parser) parseCoalesce() ast.Expression {
	expr := p.parseOr()
	for p.cur().Type == token.QUESTION_Q {
		tok := p.advance()
		right := p.parseOr()
		expr = &ast.CoalesceExpression{Token: tok, Left: expr, Right: right}
	}
	return expr
}

func (p *Parser) parseOr() ast.Expression {
	expr := p.parseAnd()
	for p.cur().Type == token.OR {
		tok := p.advance()
		right := p.parseAnd()
		expr = &ast.InfixExpression{Token: tok, Left: expr, Operator: "or", Right: right}
	}
	return expr
}

func (p *Parser) parseAnd() ast.Expression {
	expr := p.parseBitOr()
	for p.cur().Type == token.AND {
		tok := p.advance()
		right := p.parseBitOr()
		expr = &ast.InfixExpression{Token: tok, Left: expr, Operator: "and", Right: right}
	}
	return expr
}

func (p *Parser) parseBitOr() ast.Expression {
	expr := p.parseBitXor()
	for p.cur().Type == token.BAR {
		tok := p.advance()
		right := p.parseBitXor()
		expr = &ast.InfixExpression{Token: tok, Left: expr, Operator: "|", Right: right}
	}
	return expr
}

func (p *Parser) parseBitXor() ast.Expression {
	expr := p.parseBitAnd()
	for p.cur().Type == token.CARET {
		tok := p.advance()
		right := p.parseBitAnd()
		expr = &ast.InfixExpression{Token: tok, Left: expr, Operator: "^", Right: right}
	}
	return expr
}

func (p *Parser) parseBitAnd() ast.Expression {
	expr := p.parseEquality()
	for p.cur().Type == token.AMP {
		tok := p.advance()
		right := p.parseEquality()
		expr = &ast.InfixExpression{Token: tok, Left: expr, Operator: "&", Right: right}
	}
	return expr
}

func (p *Parser) parseEquality() ast.Expression {
	expr := p.parseComparison()
	for {
		var op string
		switch p.cur().Type {
		case token.EQ:
			op = "=="
		case token.NOT_EQ:
			op = "!="
		case token.IS:
			op = "is"
		default:
			return expr
		}
		tok := p.advance()
		right := p.parseComparison()
		expr = &ast.InfixExpression{Token: tok, Left: expr, Operator: op, Right: right}
	}
}

func (p *Parser) parseComparison() ast.Expression {
	expr := p.parseShift()
	for {
		var op string
		switch p.cur().Type {
		case token.LT:
			op = "<"
		case token.GT:
			op = ">"
		case token.LTE:
			op = "<="
		case token.GTE:
			op = ">="
		default:
			return expr
		}
		tok := p.advance()
		right := p.parseShift()
		expr = &ast.InfixExpression{Token: tok, Left: expr, Operator: op, Right: right}
	}
}

func (p *Parser) parseShift() ast.Expression {
	expr := p.parseRange()
	for {
		var op string
		switch p.cur().Type {
		case token.SHL:
			op = "<<"
		case token.SHR:
			op = ">>"
		default:
			return expr
		}
		tok := p.advance()
		right := p.parseRange()
		expr = &ast.InfixExpression{Token: tok, Left: expr, Operator: op, Right: right}
	}
}

func (p *Parser) parseRange() ast.Expression {
	expr := p.parseAddition()
	if p.cur().Type == token.DOTDOT {
		tok := p.advance()
		// open-ended range, e.g. [3..]
		switch p.cur().Type {
		case token.RBRACKET, token.EOF, token.NEWLINE, token.RPAREN:
			return &ast.RangeExpression{Token: tok, Start: expr}
		}
		end := p.parseAddition()
		return &ast.RangeExpression{Token: tok, Start: expr, End: end}
	}
	return expr
}

func (p *Parser) parseAddition() ast.Expression {
	expr := p.parseMultiplication()
	for {
		var op string
		switch p.cur().Type {
		case token.PLUS:
			op = "+"
		case token.MINUS:
			op = "-"
		default:
			return expr
		}
		tok := p.advance()
		right := p.parseMultiplication()
		expr = &ast.InfixExpression{Token: tok, Left: expr, Operator: op, Right: right}
	}
}

func (p *Parser) parseMultiplication() ast.Expression {
	expr := p.parsePower()
	for {
		var op string
		switch p.cur().Type {
		case token.STAR:
			op = "*"
		case token.SLASH:
			op = "/"
		case token.PERCENT:
			op = "%"
		default:
			return expr
		}
		tok := p.advance()
		right := p.parsePower()
		expr = &ast.InfixExpression{Token: tok, Left: expr, Operator: op, Right: right}
	}
}

func (p *Parser) parsePower() ast.Expression {
	expr := p.parseUnary()
	if p.cur().Type == token.POWER {
		tok := p.advance()
		right := p.parseUnary()
		expr = &ast.InfixExpression{Token: tok, Left: expr, Operator: "**", Right: right}
	}
	return expr
}

func (p *Parser) parseUnary() ast.Expression {
	switch p.cur().Type {
	case token.MINUS:
		tok := p.advance()
		return &ast.PrefixExpression{Token: tok, Operator: "-", Right: p.parseUnary()}
	case token.NOT, token.BANG:
		tok := p.advance()
		return &ast.PrefixExpression{Token: tok, Operator: "not", Right: p.parseUnary()}
	case token.TILDE:
		tok := p.advance()
		return &ast.PrefixExpression{Token: tok, Operator: "~", Right: p.parseUnary()}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Expression {
	expr := p.parsePrimary()
	for {
		switch p.cur().Type {
		case token.LPAREN:
			expr = p.parseCall(expr)
		case token.DOT:
			tok := p.advance()
			prop := p.expectPropertyName()
			expr = &ast.MemberExpression{Token: tok, Object: expr, Property: prop}
		case token.OPT_DOT:
			tok := p.advance()
			prop := p.expectPropertyName()
			expr = &ast.OptionalMemberExpression{Token: tok, Object: expr, Property: prop}
		case token.LBRACKET:
			tok := p.advance()
			if p.cur().Type == token.DOTDOT {
				p.advance()
				end := p.parseExpression()
				p.expect(token.RBRACKET, "expected ']'")
				expr = &ast.SliceExpression{Token: tok, Object: expr, End: end}
				continue
			}
			index := p.parseExpression()
			p.expect(token.RBRACKET, "expected ']'")
			if r, ok := index.(*ast.RangeExpression); ok {
				expr = &ast.SliceExpression{Token: tok, Object: expr, Start: r.Start, End: r.End}
			} else {
				expr = &ast.IndexExpression{Token: tok, Object: expr, Index: index}
			}
		default:
			return expr
		}
	}
}

func (p *Parser) parseCall(callee ast.Expression) ast.Expression {
	tok := p.expect(token.LPAREN, "")
	var args []ast.Expression
	for p.cur().Type != token.RPAREN {
		if len(args) > 0 {
			p.expect(token.COMMA, "expected ',' between arguments")
		}
		p.skipNewlines()
		if p.cur().Type == token.ELLIPSIS {
			spreadTok := p.advance()
			args = append(args, &ast.SpreadExpression{Token: spreadTok, Value: p.parseExpression()})
		} else {
			args = append(args, p.parseExpression())
		}
		p.skipNewlines()
	}
	p.expect(token.RPAREN, "")
	return &ast.CallExpression{Token: tok, Callee: callee, Arguments: args}
}

func (p *Parser) parsePrimary() ast.Expression {
	tok := p.cur()

	switch tok.Type {
	case token.NUMBER:
		p.advance()
		return numberLiteral(p, tok)

	case token.STRING:
		p.advance()
		return &ast.StringLiteral{Token: tok, Value: tok.Literal}

	case token.RAWSTRING:
		p.advance()
		return &ast.StringLiteral{Token: tok, Value: tok.Literal, Raw: true}

	case token.TRUE:
		p.advance()
		return &ast.BoolLiteral{Token: tok, Value: true}

	case token.FALSE:
		p.advance()
		return &ast.BoolLiteral{Token: tok, Value: false}

	case token.NULL:
		p.advance()
		return &ast.NullLiteral{Token: tok}

	case token.THIS:
		p.advance()
		return &ast.ThisExpression{Token: tok}

	case token.IDENT:
		// Lambda: x => expr
		if p.peek(1).Type == token.FAT_ARROW {
			p.advance()
			p.advance()
			bodyExpr := p.parsePipe()
			body := &ast.Block{Token: tok, Statements: []ast.Statement{
				&ast.ReturnStatement{Token: tok, Value: bodyExpr},
			}}
			return &ast.FnExpression{Token: tok, Params: []ast.Param{{Name: tok.Literal}}, Body: body}
		}
		p.advance()
		return &ast.Identifier{Token: tok, Value: tok.Literal}

	case token.ASK:
		p.advance()
		p.expect(token.LPAREN, "")
		prompt := p.parseExpression()
		p.expect(token.RPAREN, "")
		return &ast.AskExpression{Token: tok, Prompt: prompt}

	case token.FN:
		p.advance()
		params := p.parseParams()
		body := p.parseBlock()
		return &ast.FnExpression{Token: tok, Params: params, Body: body}

	case token.IF:
		return p.parseIfExpression()

	case token.LPAREN:
		if p.isArrowLambda() {
			return p.parseArrowLambda()
		}
		p.advance()
		expr := p.parseExpression()
		p.expect(token.RPAREN, "expected ')'")
		return expr

	case token.LBRACKET:
		return p.parseList()

	case token.LBRACE:
		return p.parseMap()

	case token.AWAIT:
		p.advance()
		return &ast.AwaitExpression{Token: tok, Value: p.parseExpression()}

	case token.YIELD:
		p.advance()
		y := &ast.YieldExpression{Token: tok}
		switch p.cur().Type {
		case token.NEWLINE, token.RBRACE, token.EOF, token.RPAREN, token.RBRACKET, token.COMMA:
		default:
			y.Value = p.parseExpression()
		}
		return y

	case token.ELLIPSIS:
		p.advance()
		return &ast.SpreadExpression{Token: tok, Value: p.parseUnary()}
	}

	p.errorf("unexpected token: %s (%q)", tok.Type, tok.Literal)
	return nil
}

func numberLiteral(p *Parser, tok token.Token) ast.Expression {
	lit := tok.Literal
	if strings.Contains(lit, ".") {
		v, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			p.errorf("could not parse %q as number", lit)
		}
		return &ast.FloatLiteral{Token: tok, Value: v}
	}
	v, err := strconv.ParseInt(lit, 0, 64)
	if err != nil {
		p.errorf("could not parse %q as number", lit)
	}
	return &ast.IntegerLiteral{Token: tok, Value: v}
}

func (p *Parser) parseIfExpression() ast.Expression {
	tok := p.advance()
	condition := p.parseExpression()
	p.skipNewlines()
	p.expect(token.LBRACE, "expected '{'")
	p.skipNewlines()
	thenExpr := p.parseExpression()
	p.skipNewlines()
	p.expect(token.RBRACE, "expected '}'")
	p.skipNewlines()
	p.expect(token.ELSE, "expected 'else' in if expression")
	p.skipNewlines()
	p.expect(token.LBRACE, "expected '{'")
	p.skipNewlines()
	elseExpr := p.parseExpression()
	p.skipNewlines()
	p.expect(token.RBRACE, "expected '}'")
	return &ast.IfExpression{Token: tok, Condition: condition, Then: thenExpr, Else: elseExpr}
}

func (p *Parser) parseList() ast.Expression {
	tok := p.advance()
	p.skipNewlines()

	if p.cur().Type == token.RBRACKET {
		p.advance()
		return &ast.ListLiteral{Token: tok}
	}

	var first ast.Expression
	isSpread := false
	if p.cur().Type == token.ELLIPSIS {
		spreadTok := p.advance()
		first = &ast.SpreadExpression{Token: spreadTok, Value: p.parseExpression()}
		isSpread = true
	} else {
		first = p.parseExpression()
	}

	// Comprehension: [expr for x in iterable if cond]
	p.skipNewlines()
	if p.cur().Type == token.FOR && !isSpread {
		p.advance()
		varName := p.expect(token.IDENT, "").Literal
		p.expect(token.IN, "")
		iterable := p.parseExpression()
		var condition ast.Expression
		p.skipNewlines()
		if p.cur().Type == token.IF {
			p.advance()
			condition = p.parseExpression()
		}
		p.skipNewlines()
		p.expect(token.RBRACKET, "")
		return &ast.ComprehensionExpression{Token: tok, Expr: first, Variable: varName, Iterable: iterable, Condition: condition}
	}

	elements := []ast.Expression{first}
	p.skipNewlines()
	for p.match(token.COMMA) {
		p.skipNewlines()
		if p.cur().Type == token.RBRACKET {
			break // trailing comma
		}
		if p.cur().Type == token.ELLIPSIS {
			spreadTok := p.advance()
			elements = append(elements, &ast.SpreadExpression{Token: spreadTok, Value: p.parseExpression()})
		} else {
			elements = append(elements, p.parseExpression())
		}
		p.skipNewlines()
	}
	p.expect(token.RBRACKET, "")
	return &ast.ListLiteral{Token: tok, Elements: elements}
}

func (p *Parser) parseMap() ast.Expression {
	tok := p.advance()
	var pairs []ast.MapPair
	p.skipNewlines()
	for p.cur().Type != token.RBRACE {
		if len(pairs) > 0 {
			p.expect(token.COMMA, "expected ',' between map entries")
		}
		p.skipNewlines()
		if p.cur().Type == token.RBRACE {
			break // trailing comma
		}

		// Spread in map: {...other}
		if p.cur().Type == token.ELLIPSIS {
			spreadTok := p.advance()
			pairs = append(pairs, ast.MapPair{Value: &ast.SpreadExpression{Token: spreadTok, Value: p.parseExpression()}})
			p.skipNewlines()
			continue
		}

		isFirst := len(pairs) == 0
		key := p.parseMapKey(isFirst)
		p.expect(token.COLON, "expected ':' after map key")
		value := p.parseExpression()

		// Map comprehension: {key: value for k, v in iterable}
		p.skipNewlines()
		if p.cur().Type == token.FOR && isFirst {
			p.advance()
			variables := []string{p.expect(token.IDENT, "").Literal}
			for p.match(token.COMMA) {
				variables = append(variables, p.expect(token.IDENT, "").Literal)
			}
			p.expect(token.IN, "")
			iterable := p.parseExpression()
			var condition ast.Expression
			p.skipNewlines()
			if p.cur().Type == token.IF {
				p.advance()
				condition = p.parseExpression()
			}
			p.skipNewlines()
			p.expect(token.RBRACE, "")
			return &ast.MapComprehensionExpression{Token: tok, KeyExpr: key, ValueExpr: value, Variables: variables, Iterable: iterable, Condition: condition}
		}

		// a bare identifier key in a plain map means the literal string
		if id, ok := key.(*ast.Identifier); ok && isFirst {
			key = &ast.StringLiteral{Token: id.Token, Value: id.Value}
		}
		pairs = append(pairs, ast.MapPair{Key: key, Value: value})
		p.skipNewlines()
	}
	p.expect(token.RBRACE, "")
	return &ast.MapLiteral{Token: tok, Pairs: pairs}
}

// parseMapKey parses identifier keys as string literals, keeps string
// and number keys as-is, and falls back to a full expression. The first
// entry keeps identifier keys as identifiers until comprehension
// detection has run.
func (p *Parser) parseMapKey(isFirst bool) ast.Expression {
	keyTok := p.cur()

	if keyTok.Type == token.IDENT {
		if p.peek(1).Type == token.COLON {
			p.advance()
			if isFirst {
				return &ast.Identifier{Token: keyTok, Value: keyTok.Literal}
			}
			return &ast.StringLiteral{Token: keyTok, Value: keyTok.Literal}
		}
		return p.parseExpression()
	}

	if keyTok.Type == token.STRING {
		p.advance()
		return &ast.StringLiteral{Token: keyTok, Value: keyTok.Literal}
	}

	if keyTok.Type == token.NUMBER {
		p.advance()
		return numberLiteral(p, keyTok)
	}

	// keywords as map keys: {show: 1, match: 2}
	if token.LookupIdent(keyTok.Literal) != token.IDENT && p.peek(1).Type == token.COLON {
		p.advance()
		return &ast.StringLiteral{Token: keyTok, Value: keyTok.Literal}
	}

	return p.parseExpression()
}

// isArrowLambda scans forward from '(' to the matching ')' and checks
// for a following '=>'.
func (p *Parser) isArrowLambda() bool {
	if p.cur().Type != token.LPAREN {
		return false
	}
	depth := 0
	for i := p.pos; i < len(p.tokens); i++ {
		switch p.tokens[i].Type {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
			if depth == 0 {
				return i+1 < len(p.tokens) && p.tokens[i+1].Type == token.FAT_ARROW
			}
		case token.EOF:
			return false
		}
	}
	return false
}

func (p *Parser) parseArrowLambda() ast.Expression {
	tok := p.advance() // '('
	var params []ast.Param
	for p.cur().Type != token.RPAREN {
		if len(params) > 0 {
			p.expect(token.COMMA, "")
		}
		if p.cur().Type == token.ELLIPSIS {
			p.advance()
			name := p.expect(token.IDENT, "").Literal
			params = append(params, ast.Param{Name: name, Rest: true})
		} else {
			params = append(params, ast.Param{Name: p.expect(token.IDENT, "").Literal})
		}
	}
	p.expect(token.RPAREN, "")
	p.expect(token.FAT_ARROW, "expected '=>' after parameters")

	var body *ast.Block
	if p.cur().Type == token.LBRACE {
		body = p.parseBlock()
	} else {
		bodyExpr := p.parsePipe()
		body = &ast.Block{Token: tok, Statements: []ast.Statement{
			&ast.ReturnStatement{Token: tok, Value: bodyExpr},
		}}
	}
	return &ast.FnExpression{Token: tok, Params: params, Body: body}
}
