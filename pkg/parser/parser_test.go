package parser

import (
	"strings"
	"testing"

	"clarity/pkg/ast"
	"clarity/pkg/lexer"
)

func parseProgram(t *testing.T, input string) *ast.Program {
	t.Helper()
	l := lexer.New(input)
	p := New(l)
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("parser errors for %q: %v", input, errs)
	}
	return program
}

func parseSingle(t *testing.T, input string) ast.Statement {
	t.Helper()
	program := parseProgram(t, input)
	if len(program.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d: %s", len(program.Statements), program.String())
	}
	return program.Statements[0]
}

func TestLetStatements(t *testing.T) {
	tests := []struct {
		input   string
		name    string
		mutable bool
	}{
		{"let x = 5", "x", false},
		{"mut counter = 0", "counter", true},
		{"let name = \"Ada\"", "name", false},
	}

	for _, tt := range tests {
		stmt, ok := parseSingle(t, tt.input).(*ast.LetStatement)
		if !ok {
			t.Fatalf("input %q: not a LetStatement", tt.input)
		}
		if stmt.Name != tt.name {
			t.Errorf("input %q: name=%q, want %q", tt.input, stmt.Name, tt.name)
		}
		if stmt.Mutable != tt.mutable {
			t.Errorf("input %q: mutable=%v, want %v", tt.input, stmt.Mutable, tt.mutable)
		}
	}
}

func TestTypeAnnotations(t *testing.T) {
	stmt, ok := parseSingle(t, "let age: int = 30").(*ast.LetStatement)
	if !ok {
		t.Fatalf("not a LetStatement")
	}
	if stmt.TypeAnnotation != "int" {
		t.Errorf("annotation=%q, want \"int\"", stmt.TypeAnnotation)
	}
}

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"-a * b", "((-a) * b)"},
		{"a or b and c", "(a or (b and c))"},
		{"a == b != c", "((a == b) != c)"},
		{"a + b > c * d", "((a + b) > (c * d))"},
		{"2 ** 3 * 4", "((2 ** 3) * 4)"},
		{"a % b + c", "((a % b) + c)"},
	}

	for _, tt := range tests {
		program := parseProgram(t, tt.input)
		got := strings.TrimSpace(program.String())
		if got != tt.expected {
			t.Errorf("input %q: got %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestFnStatement(t *testing.T) {
	input := `fn greet(name, ...rest) {
	return name
}`
	stmt, ok := parseSingle(t, input).(*ast.FnStatement)
	if !ok {
		t.Fatalf("not a FnStatement")
	}
	if stmt.Name != "greet" {
		t.Errorf("name=%q, want \"greet\"", stmt.Name)
	}
	if len(stmt.Params) != 2 {
		t.Fatalf("params=%d, want 2", len(stmt.Params))
	}
	if stmt.Params[0].Name != "name" || stmt.Params[0].Rest {
		t.Errorf("param[0]=%+v", stmt.Params[0])
	}
	if stmt.Params[1].Name != "rest" || !stmt.Params[1].Rest {
		t.Errorf("param[1]=%+v", stmt.Params[1])
	}
}

func TestAsyncFnStatement(t *testing.T) {
	stmt, ok := parseSingle(t, "async fn fetch_all() { return 1 }").(*ast.FnStatement)
	if !ok {
		t.Fatalf("not a FnStatement")
	}
	if !stmt.IsAsync {
		t.Error("IsAsync=false, want true")
	}
}

func TestIfElifElse(t *testing.T) {
	input := `if a { show 1 } elif b { show 2 } elif c { show 3 } else { show 4 }`
	stmt, ok := parseSingle(t, input).(*ast.IfStatement)
	if !ok {
		t.Fatalf("not an IfStatement")
	}
	if len(stmt.ElifClauses) != 2 {
		t.Errorf("elif clauses=%d, want 2", len(stmt.ElifClauses))
	}
	if stmt.ElseBody == nil {
		t.Error("missing else body")
	}
}

func TestForStatement(t *testing.T) {
	stmt, ok := parseSingle(t, "for item in items { show item }").(*ast.ForStatement)
	if !ok {
		t.Fatalf("not a ForStatement")
	}
	if len(stmt.Variables) != 1 || stmt.Variables[0] != "item" {
		t.Errorf("variables=%v", stmt.Variables)
	}
	if _, ok := stmt.Iterable.(*ast.Identifier); !ok {
		t.Errorf("iterable is %T, want Identifier", stmt.Iterable)
	}
}

func TestWhileStatement(t *testing.T) {
	stmt, ok := parseSingle(t, "while n > 0 { n -= 1 }").(*ast.WhileStatement)
	if !ok {
		t.Fatalf("not a WhileStatement")
	}
	if stmt.Condition == nil || stmt.Body == nil {
		t.Error("incomplete while statement")
	}
}

func TestTryCatchFinally(t *testing.T) {
	input := `try { risky() } catch err { show err } finally { cleanup() }`
	stmt, ok := parseSingle(t, input).(*ast.TryStatement)
	if !ok {
		t.Fatalf("not a TryStatement")
	}
	if stmt.CatchVar != "err" {
		t.Errorf("catch var=%q, want \"err\"", stmt.CatchVar)
	}
	if stmt.CatchBody == nil || stmt.FinallyBody == nil {
		t.Error("missing catch or finally body")
	}
}

func TestShowStatement(t *testing.T) {
	stmt, ok := parseSingle(t, `show "total:", 1 + 2`).(*ast.ShowStatement)
	if !ok {
		t.Fatalf("not a ShowStatement")
	}
	if len(stmt.Values) != 2 {
		t.Errorf("values=%d, want 2", len(stmt.Values))
	}
}

func TestPipeExpression(t *testing.T) {
	stmt, ok := parseSingle(t, "data |> clean |> sort").(*ast.ExpressionStatement)
	if !ok {
		t.Fatalf("not an ExpressionStatement")
	}
	pipe, ok := stmt.Expression.(*ast.PipeExpression)
	if !ok {
		t.Fatalf("not a PipeExpression: %T", stmt.Expression)
	}
	// Pipes chain left to right.
	if _, ok := pipe.Value.(*ast.PipeExpression); !ok {
		t.Errorf("left of outer pipe is %T, want PipeExpression", pipe.Value)
	}
}

func TestLambdas(t *testing.T) {
	tests := []struct {
		input     string
		numParams int
	}{
		{"let f = x => x * 2", 1},
		{"let g = (a, b) => a + b", 2},
		{"let h = () => 42", 0},
	}

	for _, tt := range tests {
		stmt, ok := parseSingle(t, tt.input).(*ast.LetStatement)
		if !ok {
			t.Fatalf("input %q: not a LetStatement", tt.input)
		}
		fn, ok := stmt.Value.(*ast.FnExpression)
		if !ok {
			t.Fatalf("input %q: value is %T, want FnExpression", tt.input, stmt.Value)
		}
		if len(fn.Params) != tt.numParams {
			t.Errorf("input %q: params=%d, want %d", tt.input, len(fn.Params), tt.numParams)
		}
	}
}

func TestClassStatement(t *testing.T) {
	input := `class Dog < Animal impl Speaker {
	fn init(name) { this.name = name }
	fn speak() { return "woof" }
}`
	stmt, ok := parseSingle(t, input).(*ast.ClassStatement)
	if !ok {
		t.Fatalf("not a ClassStatement")
	}
	if stmt.Name != "Dog" || stmt.Parent != "Animal" {
		t.Errorf("name=%q parent=%q", stmt.Name, stmt.Parent)
	}
	if len(stmt.Interfaces) != 1 || stmt.Interfaces[0] != "Speaker" {
		t.Errorf("interfaces=%v", stmt.Interfaces)
	}
	if len(stmt.Methods) != 2 {
		t.Errorf("methods=%d, want 2", len(stmt.Methods))
	}
}

func TestEnumStatement(t *testing.T) {
	input := `enum Color { Red, Green = 10, Blue }`
	stmt, ok := parseSingle(t, input).(*ast.EnumStatement)
	if !ok {
		t.Fatalf("not an EnumStatement")
	}
	if len(stmt.Members) != 3 {
		t.Fatalf("members=%d, want 3", len(stmt.Members))
	}
	if stmt.Members[0].Value != nil {
		t.Error("Red should auto-increment")
	}
	if stmt.Members[1].Value == nil {
		t.Error("Green should have an explicit value")
	}
}

func TestMatchStatement(t *testing.T) {
	input := `match status {
	when 200, 201 { show "ok" }
	when 404 { show "missing" }
	else { show "other" }
}`
	stmt, ok := parseSingle(t, input).(*ast.MatchStatement)
	if !ok {
		t.Fatalf("not a MatchStatement")
	}
	if len(stmt.Arms) != 2 {
		t.Fatalf("arms=%d, want 2", len(stmt.Arms))
	}
	if len(stmt.Arms[0].Values) != 2 {
		t.Errorf("first arm values=%d, want 2", len(stmt.Arms[0].Values))
	}
	if stmt.Default == nil {
		t.Error("missing else arm")
	}
}

func TestDestructuring(t *testing.T) {
	list, ok := parseSingle(t, "let [a, b, ...rest] = nums").(*ast.DestructureLetStatement)
	if !ok {
		t.Fatalf("not a DestructureLetStatement")
	}
	if list.Kind != "list" || len(list.Targets) != 3 {
		t.Errorf("kind=%q targets=%d", list.Kind, len(list.Targets))
	}
	if !list.Targets[2].Rest {
		t.Error("third target should be rest")
	}

	m, ok := parseSingle(t, "let {name, age} = person").(*ast.DestructureLetStatement)
	if !ok {
		t.Fatalf("not a DestructureLetStatement")
	}
	if m.Kind != "map" || len(m.Targets) != 2 {
		t.Errorf("kind=%q targets=%d", m.Kind, len(m.Targets))
	}
}

func TestImports(t *testing.T) {
	tests := []struct {
		input  string
		module string
		alias  string
		names  int
		path   string
	}{
		{"import math", "math", "", 0, ""},
		{"import math as m", "math", "m", 0, ""},
		{"from math import sqrt, pi", "math", "", 2, ""},
		{`import "lib/util"`, "", "", 0, "lib/util"},
	}

	for _, tt := range tests {
		stmt, ok := parseSingle(t, tt.input).(*ast.ImportStatement)
		if !ok {
			t.Fatalf("input %q: not an ImportStatement", tt.input)
		}
		if stmt.Module != tt.module || stmt.Alias != tt.alias ||
			len(stmt.Names) != tt.names || stmt.Path != tt.path {
			t.Errorf("input %q: got %+v", tt.input, stmt)
		}
	}
}

func TestMapLiteralKeys(t *testing.T) {
	stmt := parseSingle(t, `let m = {name: "Ada", "role": "engineer", 3: "three"}`).(*ast.LetStatement)
	ml, ok := stmt.Value.(*ast.MapLiteral)
	if !ok {
		t.Fatalf("value is %T, want MapLiteral", stmt.Value)
	}
	if len(ml.Pairs) != 3 {
		t.Fatalf("pairs=%d, want 3", len(ml.Pairs))
	}
	// A bare identifier key after the first entry reads as a string key.
	if _, ok := ml.Pairs[1].Key.(*ast.StringLiteral); !ok {
		t.Errorf("second key is %T, want StringLiteral", ml.Pairs[1].Key)
	}
}

func TestComprehensions(t *testing.T) {
	stmt := parseSingle(t, "let squares = [x * x for x in nums if x > 0]").(*ast.LetStatement)
	comp, ok := stmt.Value.(*ast.ComprehensionExpression)
	if !ok {
		t.Fatalf("value is %T, want ComprehensionExpression", stmt.Value)
	}
	if comp.Variable != "x" || comp.Condition == nil {
		t.Errorf("variable=%q condition=%v", comp.Variable, comp.Condition)
	}

	mstmt := parseSingle(t, "let doubled = {k: v * 2 for k, v in ages}").(*ast.LetStatement)
	mcomp, ok := mstmt.Value.(*ast.MapComprehensionExpression)
	if !ok {
		t.Fatalf("value is %T, want MapComprehensionExpression", mstmt.Value)
	}
	if len(mcomp.Variables) != 2 {
		t.Errorf("variables=%v, want two", mcomp.Variables)
	}
}

func TestRangeAndSlice(t *testing.T) {
	stmt := parseSingle(t, "let r = 1..10").(*ast.LetStatement)
	if _, ok := stmt.Value.(*ast.RangeExpression); !ok {
		t.Errorf("value is %T, want RangeExpression", stmt.Value)
	}

	sliceStmt := parseSingle(t, "let s = items[1..3]").(*ast.LetStatement)
	if _, ok := sliceStmt.Value.(*ast.SliceExpression); !ok {
		t.Errorf("value is %T, want SliceExpression", sliceStmt.Value)
	}

	openStmt := parseSingle(t, "let o = items[2..]").(*ast.LetStatement)
	slice, ok := openStmt.Value.(*ast.SliceExpression)
	if !ok {
		t.Fatalf("value is %T, want SliceExpression", openStmt.Value)
	}
	if slice.End != nil {
		t.Error("open slice should have nil end")
	}
}

func TestOptionalChainingAndCoalesce(t *testing.T) {
	stmt := parseSingle(t, "let v = user?.profile ?? fallback").(*ast.LetStatement)
	co, ok := stmt.Value.(*ast.CoalesceExpression)
	if !ok {
		t.Fatalf("value is %T, want CoalesceExpression", stmt.Value)
	}
	if _, ok := co.Left.(*ast.OptionalMemberExpression); !ok {
		t.Errorf("left is %T, want OptionalMemberExpression", co.Left)
	}
}

func TestDecorators(t *testing.T) {
	input := `@logged
@timed
fn work() { return 1 }`
	stmt, ok := parseSingle(t, input).(*ast.DecoratedStatement)
	if !ok {
		t.Fatalf("not a DecoratedStatement")
	}
	if len(stmt.Decorators) != 2 {
		t.Errorf("decorators=%d, want 2", len(stmt.Decorators))
	}
	if _, ok := stmt.Target.(*ast.FnStatement); !ok {
		t.Errorf("target is %T, want FnStatement", stmt.Target)
	}
}

func TestMultiAssign(t *testing.T) {
	stmt, ok := parseSingle(t, "a, b = b, a").(*ast.MultiAssignStatement)
	if !ok {
		t.Fatalf("not a MultiAssignStatement")
	}
	if len(stmt.Targets) != 2 || len(stmt.Values) != 2 {
		t.Errorf("targets=%d values=%d", len(stmt.Targets), len(stmt.Values))
	}
}

func TestCompoundAssign(t *testing.T) {
	stmt, ok := parseSingle(t, "total += 5").(*ast.AssignStatement)
	if !ok {
		t.Fatalf("not an AssignStatement")
	}
	if stmt.Operator != "+=" {
		t.Errorf("operator=%q, want \"+=\"", stmt.Operator)
	}
}

func TestParserErrors(t *testing.T) {
	tests := []string{
		"let = 5",
		"let x 5",
		"if { show 1 }",
	}

	for _, input := range tests {
		l := lexer.New(input)
		p := New(l)
		p.ParseProgram()
		if len(p.Errors()) == 0 {
			t.Errorf("input %q: expected parser errors, got none", input)
		}
	}
}
