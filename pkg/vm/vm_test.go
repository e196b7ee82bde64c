package vm

import (
	"bytes"
	"strings"
	"testing"

	"clarity/pkg/compiler"
	"clarity/pkg/eval"
	"clarity/pkg/lexer"
	"clarity/pkg/parser"
)

func runProgram(t *testing.T, input string) (eval.Object, string) {
	t.Helper()

	p := parser.New(lexer.New(input))
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("parser errors for %q: %v", input, errs)
	}

	c := compiler.New()
	if err := c.Compile(program); err != nil {
		t.Fatalf("compiler error: %s", err)
	}

	machine := New(c.Bytecode())
	out := &bytes.Buffer{}
	machine.Stdout = out
	if err := machine.Run(); err != nil {
		t.Fatalf("vm error: %s", err)
	}
	return machine.LastPopped(), out.String()
}

func runProgramErr(t *testing.T, input string) error {
	t.Helper()

	p := parser.New(lexer.New(input))
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("parser errors for %q: %v", input, errs)
	}

	c := compiler.New()
	if err := c.Compile(program); err != nil {
		t.Fatalf("compiler error: %s", err)
	}

	machine := New(c.Bytecode())
	machine.Stdout = &bytes.Buffer{}
	err := machine.Run()
	if err == nil {
		t.Fatalf("input %q: expected vm error, got none", input)
	}
	return err
}

func expectResult(t *testing.T, input, expected string) {
	t.Helper()
	result, _ := runProgram(t, input)
	if result == nil {
		t.Fatalf("input %q: no popped value", input)
	}
	if result.Inspect() != expected {
		t.Errorf("input %q: got %s, want %s", input, result.Inspect(), expected)
	}
}

func TestIntegerArithmetic(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 + 2", "3"},
		{"let a = 7\nlet b = 2\na - b", "5"},
		{"let a = 6\na * 7", "42"},
		{"let a = 10\na / 2", "5"},
		{"let a = 7\na / 2", "3.5"},
		{"let a = 7\na % 3", "1"},
		{"let a = -7\na % 3", "2"},
		{"let a = 7\na % -3", "-2"},
		{"let a = 2\na ** 10", "1024"},
		{"let a = 2\na ** -1", "0.5"},
		{"let a = 5\n-a", "-5"},
	}

	for _, tt := range tests {
		expectResult(t, tt.input, tt.expected)
	}
}

func TestFloatArithmetic(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"let a = 1.5\na + 2", "3.5"},
		{"let a = 1.0\nlet b = 4\na / b", "0.25"},
		{"let a = 2.5\na * 2", "5"},
	}

	for _, tt := range tests {
		expectResult(t, tt.input, tt.expected)
	}
}

func TestDivisionByZero(t *testing.T) {
	for _, input := range []string{
		"let a = 1\nlet b = 0\na / b",
		"let a = 1\nlet b = 0\na % b",
	} {
		err := runProgramErr(t, input)
		if !strings.Contains(err.Error(), "Division by zero") {
			t.Errorf("input %q: got %q", input, err.Error())
		}
	}
}

func TestBooleanExpressions(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"true", "true"},
		{"not true", "false"},
		{"not not false", "false"},
		{"let a = 1\nlet b = 2\na < b", "true"},
		{"let a = 1\nlet b = 2\na > b", "false"},
		{"let a = 2\nlet b = 2\na <= b", "true"},
		{"let a = 2\nlet b = 2\na >= b", "true"},
		{"let a = 1\nlet b = 2\na == b", "false"},
		{"let a = 1\nlet b = 2\na != b", "true"},
		{"let a = 1\nlet b = 1.0\na == b", "true"},
		{`let s = "b"
s > "a"`, "true"},
		{`let s = "abc"
s == "abc"`, "true"},
	}

	for _, tt := range tests {
		expectResult(t, tt.input, tt.expected)
	}
}

func TestStringConcat(t *testing.T) {
	expectResult(t, `let a = "foo"
a + "bar"`, "foobar")
}

func TestGlobalBindings(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"let one = 1\none", "1"},
		{"let one = 1\nlet two = one + one\none + two", "3"},
		{"mut x = 10\nx = 20\nx", "20"},
		{"mut x = 10\nx += 5\nx -= 3\nx", "12"},
		{"mut x = 3\nx *= 4\nx", "12"},
	}

	for _, tt := range tests {
		expectResult(t, tt.input, tt.expected)
	}
}

func TestConditionals(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"mut r = 0\nif true { r = 1 } else { r = 2 }\nr", "1"},
		{"mut r = 0\nif false { r = 1 } else { r = 2 }\nr", "2"},
		{"mut r = 0\nlet n = 5\nif n > 9 { r = 1 } elif n > 3 { r = 2 } else { r = 3 }\nr", "2"},
		{"mut r = 0\nlet n = 1\nif n > 9 { r = 1 } elif n > 3 { r = 2 } else { r = 3 }\nr", "3"},
		{"mut r = 9\nif false { r = 1 }\nr", "9"},
	}

	for _, tt := range tests {
		expectResult(t, tt.input, tt.expected)
	}
}

func TestWhileLoops(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"mut i = 0\nwhile i < 5 { i += 2 }\ni", "6"},
		{"mut i = 0\nmut total = 0\nwhile i < 5 { i += 1\ntotal += i }\ntotal", "15"},
		{"mut i = 10\nwhile i < 5 { i += 1 }\ni", "10"},
	}

	for _, tt := range tests {
		expectResult(t, tt.input, tt.expected)
	}
}

func TestLists(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"[]", "[]"},
		{"[1, 2, 3]", "[1, 2, 3]"},
		{"let a = 2\n[a, a * 3]", "[2, 6]"},
		{"let xs = [1, 2, 3]\nxs[1]", "2"},
		{"let xs = [1, 2, 3]\nxs[-1]", "3"},
	}

	for _, tt := range tests {
		expectResult(t, tt.input, tt.expected)
	}
}

func TestListIndexFaults(t *testing.T) {
	err := runProgramErr(t, "let xs = [1, 2, 3]\nxs[9]")
	if !strings.Contains(err.Error(), "Index 9 out of bounds (list has 3 items)") {
		t.Errorf("got %q", err.Error())
	}

	err = runProgramErr(t, `let xs = [1]
xs["a"]`)
	if !strings.Contains(err.Error(), "List index must be a number") {
		t.Errorf("got %q", err.Error())
	}
}

func TestMaps(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`{one: 1, two: 2}`, `{one: 1, two: 2}`},
		{`let m = {a: 1, b: 2}
m["b"]`, "2"},
		{`let m = {a: 1}
m["missing"]`, "null"},
	}

	for _, tt := range tests {
		expectResult(t, tt.input, tt.expected)
	}
}

func TestStringIndex(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`let s = "hello"
s[1]`, "e"},
		{`let s = "hello"
s[-1]`, "o"},
	}

	for _, tt := range tests {
		expectResult(t, tt.input, tt.expected)
	}

	err := runProgramErr(t, `let s = "hi"
s[9]`)
	if !strings.Contains(err.Error(), "Index 9 out of bounds") {
		t.Errorf("got %q", err.Error())
	}
}

func TestShowOutput(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"show 1", "1\n"},
		{`show 1, "two", 3`, "1 two 3\n"},
		{"let total = 2 + 3\nshow \"total:\", total", "total: 5\n"},
		{"mut i = 0\nwhile i < 3 { show i\ni += 1 }", "0\n1\n2\n"},
	}

	for _, tt := range tests {
		_, out := runProgram(t, tt.input)
		if out != tt.expected {
			t.Errorf("input %q: output %q, want %q", tt.input, out, tt.expected)
		}
	}
}

func TestNullLiteral(t *testing.T) {
	expectResult(t, "null", "null")
}
