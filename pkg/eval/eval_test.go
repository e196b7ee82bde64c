package eval

import (
	"bytes"
	"strings"
	"testing"

	"clarity/pkg/ast"
)

func testEval(t *testing.T, src string) (Object, string) {
	t.Helper()
	interp := New()
	var out bytes.Buffer
	interp.Stdout = &out
	result, err := interp.EvalSource(src)
	if err != nil {
		t.Fatalf("eval error for %q: %v", src, err)
	}
	return result, out.String()
}

func testEvalErr(t *testing.T, src string) error {
	t.Helper()
	interp := New()
	interp.Stdout = &bytes.Buffer{}
	_, err := interp.EvalSource(src)
	if err == nil {
		t.Fatalf("expected error for %q, got none", src)
	}
	return err
}

func expectInspect(t *testing.T, src, want string) {
	t.Helper()
	result, _ := testEval(t, src)
	if got := result.Inspect(); got != want {
		t.Errorf("source %q: got %q, want %q", src, got, want)
	}
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 + 2 * 3", "7"},
		{"(1 + 2) * 3", "9"},
		{"10 - 4", "6"},
		{"10 / 2", "5"},
		{"7 / 2", "3.5"},
		{"2 ** 10", "1024"},
		{"2 ** -1", "0.5"},
		{"7 % 3", "1"},
		{"-7 % 3", "2"},
		{"7 % -3", "-2"},
		{"1.5 + 2.5", "4"},
		{"-5", "-5"},
	}

	for _, tt := range tests {
		expectInspect(t, tt.input, tt.expected)
	}
}

func TestDivisionByZero(t *testing.T) {
	err := testEvalErr(t, "1 / 0")
	if !strings.Contains(err.Error(), "Division by zero") {
		t.Errorf("got %q", err.Error())
	}
}

func TestStringOperations(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"hello" + " " + "world"`, "hello world"},
		{`"answer: " + 42`, "answer: 42"},
		{`"ab" * 3`, "ababab"},
		{`"HELLO".lower()`, "hello"},
		{`"hi".upper()`, "HI"},
		{`"  pad  ".trim()`, "pad"},
		{`"a,b,c".split(",").length()`, "3"},
		{`"hello".contains("ell")`, "true"},
		{`"hello"[1]`, "e"},
		{`"hello"[-1]`, "o"},
	}

	for _, tt := range tests {
		expectInspect(t, tt.input, tt.expected)
	}
}

func TestBooleansAndComparison(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 < 2", "true"},
		{"2 <= 2", "true"},
		{"3 > 4", "false"},
		{"1 == 1.0", "true"},
		{"1 != 2", "true"},
		{`"a" == "a"`, "true"},
		{"not true", "false"},
		{"true and false", "false"},
		{"true or false", "true"},
	}

	for _, tt := range tests {
		expectInspect(t, tt.input, tt.expected)
	}
}

func TestLogicalOperatorsReturnOperands(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`null or "fallback"`, "fallback"},
		{`"first" or "second"`, "first"},
		{`null and "never"`, "null"},
		{`1 and 2`, "2"},
	}

	for _, tt := range tests {
		expectInspect(t, tt.input, tt.expected)
	}
}

func TestCoalesce(t *testing.T) {
	expectInspect(t, "null ?? 5", "5")
	expectInspect(t, "0 ?? 5", "0")
}

func TestLetAndMut(t *testing.T) {
	expectInspect(t, "let x = 5\nx", "5")
	expectInspect(t, "mut n = 1\nn = n + 1\nn", "2")
	expectInspect(t, "mut n = 10\nn += 5\nn", "15")
}

func TestImmutableReassignFaults(t *testing.T) {
	err := testEvalErr(t, "let x = 1\nx = 2")
	if !strings.Contains(err.Error(), "Cannot reassign 'x'") {
		t.Errorf("got %q", err.Error())
	}

	err = testEvalErr(t, "y = 1")
	if !strings.Contains(err.Error(), "'y' is not defined") {
		t.Errorf("got %q", err.Error())
	}
}

func TestBuiltinNamesCanBeShadowed(t *testing.T) {
	// Builtins are immutable, but plain assignment to a builtin name
	// shadows it in the current scope instead of faulting.
	expectInspect(t, "len = 10\nlen", "10")
	expectInspect(t, "let print = 3\nprint", "3")
}

func TestLists(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"[1, 2, 3]", "[1, 2, 3]"},
		{"[1, 2] + [3]", "[1, 2, 3]"},
		{"[0] * 3", "[0, 0, 0]"},
		{"[10, 20, 30][1]", "20"},
		{"[10, 20, 30][-1]", "30"},
		{"[3, 1, 2].sort()", "[1, 2, 3]"},
		{"[1, 2, 3].reverse()", "[3, 2, 1]"},
		{`["a", "b"].join("-")`, "a-b"},
		{"[1, 2, 3].length()", "3"},
		{"[...[1, 2], 3]", "[1, 2, 3]"},
		{"[1, 2, 3][1..]", "[2, 3]"},
		{"[1, 2, 3, 4][1..3]", "[2, 3]"},
	}

	for _, tt := range tests {
		expectInspect(t, tt.input, tt.expected)
	}
}

func TestListIndexFaults(t *testing.T) {
	err := testEvalErr(t, "[1, 2][5]")
	if !strings.Contains(err.Error(), "Index 5 out of bounds (list has 2 items)") {
		t.Errorf("got %q", err.Error())
	}

	err = testEvalErr(t, `[1, 2]["x"]`)
	if !strings.Contains(err.Error(), "List index must be a number") {
		t.Errorf("got %q", err.Error())
	}
}

func TestListAliasing(t *testing.T) {
	src := `mut a = [1]
let b = a
b.push(2)
a`
	expectInspect(t, src, "[1, 2]")
}

func TestMaps(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`{name: "Ada"}["name"]`, "Ada"},
		{`{a: 1, b: 2}["missing"]`, "null"},
		{`let m = {a: 1}
m["b"] = 2
m["b"]`, "2"},
		{`keys({x: 1, y: 2})`, `["x", "y"]`},
		{`{x: 1, y: 2}.x`, "1"},
	}

	for _, tt := range tests {
		expectInspect(t, tt.input, tt.expected)
	}
}

func TestMapDisplayOrder(t *testing.T) {
	// Insertion order is preserved; values display repr'd, keys plain.
	expectInspect(t, `{b: 2, a: "x"}`, `{b: 2, a: "x"}`)
}

func TestRanges(t *testing.T) {
	expectInspect(t, "1..5", "[1, 2, 3, 4]")
	expectInspect(t, "(1..4).length()", "3")
}

func TestFunctions(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"fn add(a, b) { return a + b }\nadd(2, 3)", "5"},
		{"let double = x => x * 2\ndouble(21)", "42"},
		{"let sum = (a, b) => a + b\nsum(1, 2)", "3"},
		{"fn outer() { let n = 10\nreturn x => x + n }\nouter()(5)", "15"},
		{"fn tail(first, ...rest) { return rest }\ntail(1, 2, 3)", "[2, 3]"},
	}

	for _, tt := range tests {
		expectInspect(t, tt.input, tt.expected)
	}
}

func TestArityFault(t *testing.T) {
	err := testEvalErr(t, "fn f(a, b) { return a }\nf(1)")
	if !strings.Contains(err.Error(), "f expects 2 arguments, got 1") {
		t.Errorf("got %q", err.Error())
	}
}

func TestRestParamSkipsArityCheck(t *testing.T) {
	expectInspect(t, "fn f(...args) { return args.length() }\nf()", "0")
}

func TestHigherOrderBuiltins(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"map([1, 2, 3], x => x * 10)", "[10, 20, 30]"},
		{"filter([1, 2, 3, 4], x => x % 2 == 0)", "[2, 4]"},
		{"reduce([1, 2, 3, 4], (acc, x) => acc + x, 0)", "10"},
	}

	for _, tt := range tests {
		expectInspect(t, tt.input, tt.expected)
	}
}

func TestPipes(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"fn double(x) { return x * 2 }\n5 |> double", "10"},
		{"fn add(a, b) { return a + b }\n5 |> add(10)", "15"},
		{"fn inc(x) { return x + 1 }\n1 |> inc |> inc |> inc", "4"},
	}

	for _, tt := range tests {
		expectInspect(t, tt.input, tt.expected)
	}
}

func TestShowStatement(t *testing.T) {
	_, out := testEval(t, `show "total:", 1 + 2`)
	if out != "total: 3\n" {
		t.Errorf("output=%q, want %q", out, "total: 3\n")
	}
}

func TestStringInterpolation(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`let name = "Ada"
"hi {name}"`, "hi Ada"},
		{`let n = 6
"{n * 7}"`, "42"},
		{`r"raw {stays}"`, "raw {stays}"},
	}

	for _, tt := range tests {
		expectInspect(t, tt.input, tt.expected)
	}
}

func TestIfElifElse(t *testing.T) {
	src := `fn grade(n) {
	if n >= 90 { return "A" } elif n >= 80 { return "B" } else { return "C" }
}
grade(85)`
	expectInspect(t, src, "B")
}

func TestWhileLoop(t *testing.T) {
	src := `mut total = 0
mut i = 0
while i < 5 {
	total += i
	i += 1
}
total`
	expectInspect(t, src, "10")
}

func TestForLoop(t *testing.T) {
	src := `mut total = 0
for n in [1, 2, 3, 4] {
	total += n
}
total`
	expectInspect(t, src, "10")
}

func TestBreakAndContinue(t *testing.T) {
	src := `mut collected = []
for n in 1..10 {
	if n == 5 { break }
	if n % 2 == 0 { continue }
	collected.push(n)
}
collected`
	expectInspect(t, src, "[1, 3]")
}

func TestComprehensions(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"[x * x for x in 1..4]", "[1, 4, 9]"},
		{"[x for x in 1..10 if x % 3 == 0]", "[3, 6, 9]"},
		{`let ages = {ann: 30, bob: 40}
{k: v + 1 for k, v in ages}`, "{ann: 31, bob: 41}"},
	}

	for _, tt := range tests {
		expectInspect(t, tt.input, tt.expected)
	}
}

func TestDestructuring(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"let [a, b] = [1, 2]\na + b", "3"},
		{"let [first, ...rest] = [1, 2, 3]\nrest", "[2, 3]"},
		{`let {name, age} = {name: "Ada", age: 36}
name + " " + age`, "Ada 36"},
		{"mut a = 1\nmut b = 2\na, b = b, a\n[a, b]", "[2, 1]"},
	}

	for _, tt := range tests {
		expectInspect(t, tt.input, tt.expected)
	}
}

func TestDestructureFaults(t *testing.T) {
	err := testEvalErr(t, "let [a, b] = 5")
	if !strings.Contains(err.Error(), "Cannot destructure non-list into list pattern") {
		t.Errorf("got %q", err.Error())
	}
}

func TestTryCatchFinally(t *testing.T) {
	src := `mut log = []
try {
	log.push("try")
	throw "boom"
} catch e {
	log.push(e)
} finally {
	log.push("finally")
}
log.join(",")`
	expectInspect(t, src, "try,boom,finally")
}

func TestCatchBindsRuntimeFaultMessage(t *testing.T) {
	src := `mut msg = ""
try { let x = 1 / 0 } catch e { msg = e }
msg`
	expectInspect(t, src, "Division by zero")
}

func TestFinallyRunsWithoutFault(t *testing.T) {
	src := `mut log = []
try { log.push(1) } catch e { log.push(2) } finally { log.push(3) }
log`
	expectInspect(t, src, "[1, 3]")
}

func TestMatch(t *testing.T) {
	src := `fn describe(n) {
	match n {
		when 1 { return "one" }
		when 2, 3 { return "few" }
		else { return "many" }
	}
	return "unreachable"
}
describe(3) + "," + describe(9)`
	expectInspect(t, src, "few,many")
}

func TestOptionalMember(t *testing.T) {
	expectInspect(t, "null?.anything", "null")
	expectInspect(t, `let m = {a: 1}
m?.a`, "1")
}

func TestTypeAnnotationChecked(t *testing.T) {
	err := testEvalErr(t, `let n: int = "nope"`)
	if err == nil {
		t.Fatal("expected type fault")
	}
}

func TestIsOperator(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 is 1", "true"},
		{`"a" is "a"`, "true"},
		{"let a = [1]\nlet b = [1]\na is b", "false"},
		{"let a = [1]\nlet b = a\na is b", "true"},
	}

	for _, tt := range tests {
		expectInspect(t, tt.input, tt.expected)
	}
}

func TestSpreadInCall(t *testing.T) {
	src := `fn add3(a, b, c) { return a + b + c }
let args = [1, 2, 3]
add3(...args)`
	expectInspect(t, src, "6")
}

func TestBuiltinConversions(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`int("42")`, "42"},
		{`float("2.5")`, "2.5"},
		{"str(42)", "42"},
		{`len("hello")`, "5"},
		{"type(1)", "int"},
		{"type([])", "list"},
		{`bool("")`, "false"},
	}

	for _, tt := range tests {
		expectInspect(t, tt.input, tt.expected)
	}
}

func TestEvalFaultsCarryClass(t *testing.T) {
	err := testEvalErr(t, "undefined_name")
	fault, ok := err.(*Fault)
	if !ok {
		t.Fatalf("error is %T, want *Fault", err)
	}
	if fault.Class != "NameError" {
		t.Errorf("class=%q, want NameError", fault.Class)
	}
}

func TestDispatchEntryPointsAreReplaceable(t *testing.T) {
	interp := New()
	interp.Stdout = &bytes.Buffer{}

	statements := 0
	innerStmt := interp.ExecStatement
	interp.ExecStatement = func(stmt ast.Statement, env *Environment) (Object, error) {
		statements++
		return innerStmt(stmt, env)
	}
	expressions := 0
	innerExpr := interp.EvalExpression
	interp.EvalExpression = func(expr ast.Expression, env *Environment) (Object, error) {
		expressions++
		return innerExpr(expr, env)
	}

	result, err := interp.EvalSource("let a = 1\na + 2")
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	if result.Inspect() != "3" {
		t.Errorf("got %q, want 3", result.Inspect())
	}
	if statements < 2 {
		t.Errorf("statement hook saw %d statements, want at least 2", statements)
	}
	if expressions < 3 {
		t.Errorf("expression hook saw %d expressions, want at least 3", expressions)
	}
}

func TestDeclaredNamesAreRebindable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"fn f() { return 1 }\nf = 5\nf", "5"},
		{"class Box {}\nBox = 2\nBox", "2"},
		{"enum Color { Red }\nColor = 3\nColor", "3"},
	}

	for _, tt := range tests {
		expectInspect(t, tt.input, tt.expected)
	}
}

func TestFaultCarriesStackTrace(t *testing.T) {
	src := `fn inner() {
	throw "boom"
}
fn outer() {
	inner()
}
outer()`
	err := testEvalErr(t, src)
	fault, ok := err.(*Fault)
	if !ok {
		t.Fatalf("error is %T, want *Fault", err)
	}
	if !strings.Contains(fault.Stack, "Stack trace:") {
		t.Fatalf("fault stack = %q, want a rendered trace", fault.Stack)
	}
	innerAt := strings.Index(fault.Stack, "inner() at line 5")
	outerAt := strings.Index(fault.Stack, "outer() at line 7")
	if innerAt == -1 || outerAt == -1 {
		t.Fatalf("trace missing frames: %q", fault.Stack)
	}
	if innerAt > outerAt {
		t.Errorf("innermost frame should come first: %q", fault.Stack)
	}
}

func TestStackTraceEmptyAfterRun(t *testing.T) {
	interp := New()
	interp.Stdout = &bytes.Buffer{}
	if _, err := interp.EvalSource("fn f() { return 1 }\nf()"); err != nil {
		t.Fatalf("eval error: %v", err)
	}
	if trace := interp.StackTrace(); trace != "" {
		t.Errorf("frames leaked after a clean run: %q", trace)
	}
}

func TestShowAppendsToOutputLog(t *testing.T) {
	interp := New()
	var out bytes.Buffer
	interp.Stdout = &out
	if _, err := interp.EvalSource("show \"a\"\nshow 1, 2"); err != nil {
		t.Fatalf("eval error: %v", err)
	}
	want := []string{"a", "1 2"}
	if len(interp.Output) != len(want) {
		t.Fatalf("output log has %d entries, want %d", len(interp.Output), len(want))
	}
	for i := range want {
		if interp.Output[i] != want[i] {
			t.Errorf("output[%d]=%q, want %q", i, interp.Output[i], want[i])
		}
	}
	if out.String() != "a\n1 2\n" {
		t.Errorf("stdout = %q", out.String())
	}
}
