package eval

import (
	"strings"
	"testing"
)

func TestClassInstantiation(t *testing.T) {
	src := `class Point {
	fn init(x, y) {
		this.x = x
		this.y = y
	}
	fn sum() { return this.x + this.y }
}
let p = Point(3, 4)
p.sum()`
	expectInspect(t, src, "7")
}

func TestClassFieldAccess(t *testing.T) {
	src := `class Box {
	fn init(v) { this.value = v }
}
let b = Box(42)
b.value`
	expectInspect(t, src, "42")
}

func TestMissingInitArgsPadWithNull(t *testing.T) {
	src := `class Pair {
	fn init(a, b) {
		this.a = a
		this.b = b
	}
}
let p = Pair(1)
p.b`
	expectInspect(t, src, "null")
}

func TestInheritance(t *testing.T) {
	src := `class Animal {
	fn init(name) { this.name = name }
	fn speak() { return this.name + " makes a sound" }
}
class Dog < Animal {
	fn speak() { return this.name + " barks" }
}
let d = Dog("Rex")
d.speak()`
	expectInspect(t, src, "Rex barks")
}

func TestInheritedMethodLookup(t *testing.T) {
	src := `class Base {
	fn init(v) { this.v = v }
	fn get() { return this.v }
}
class Child < Base {
}
Child(9).get()`
	expectInspect(t, src, "9")
}

func TestToStringUsedByShow(t *testing.T) {
	src := `class Money {
	fn init(amount) { this.amount = amount }
	fn to_string() { return "$" + this.amount }
}
show Money(5)`
	_, out := testEval(t, src)
	if out != "$5\n" {
		t.Errorf("output=%q, want %q", out, "$5\n")
	}
}

func TestIsWithClasses(t *testing.T) {
	src := `class Animal { fn speak() { return "" } }
class Dog < Animal { }
let d = Dog()
[d is Dog, d is Animal]`
	expectInspect(t, src, "[true, true]")
}

func TestInterfaceConformance(t *testing.T) {
	src := `interface Speaker {
	fn speak()
}
class Cat impl Speaker {
	fn speak() { return "meow" }
}
Cat().speak()`
	expectInspect(t, src, "meow")
}

func TestInterfaceConformanceFault(t *testing.T) {
	src := `interface Speaker {
	fn speak()
}
class Rock impl Speaker {
}`
	err := testEvalErr(t, src)
	if !strings.Contains(err.Error(), "Class 'Rock' does not implement 'speak' from interface 'Speaker'") {
		t.Errorf("got %q", err.Error())
	}
}

func TestEnumAutoIncrement(t *testing.T) {
	src := `enum Color { Red, Green, Blue }
[Color.Red, Color.Green, Color.Blue]`
	expectInspect(t, src, "[0, 1, 2]")
}

func TestEnumExplicitValue(t *testing.T) {
	src := `enum Status { Ok = 200, NotFound = 404 }
Status.NotFound`
	expectInspect(t, src, "404")
}

func TestEnumReverseLookup(t *testing.T) {
	src := `enum Color { Red, Green, Blue }
Color(1)`
	expectInspect(t, src, "Green")

	expectInspect(t, `enum Color { Red }
Color(99)`, "null")
}

func TestDecoratorWrapsFunction(t *testing.T) {
	src := `fn exclaim(f) {
	return x => f(x) + "!"
}
@exclaim
fn greet(name) { return "hi " + name }
greet("bob")`
	expectInspect(t, src, "hi bob!")
}

func TestDecoratorsApplyInnermostFirst(t *testing.T) {
	src := `fn wrap_a(f) { return x => "a(" + f(x) + ")" }
fn wrap_b(f) { return x => "b(" + f(x) + ")" }
@wrap_a
@wrap_b
fn id(x) { return x }
id("x")`
	expectInspect(t, src, "a(b(x))")
}

func TestGeneratorCollectsYields(t *testing.T) {
	src := `fn firsts() {
	yield 1
	yield 2
	yield 3
}
firsts()`
	expectInspect(t, src, "[1, 2, 3]")
}

func TestGeneratorWithLoop(t *testing.T) {
	src := `fn evens(limit) {
	for n in 0..limit {
		if n % 2 == 0 { yield n }
	}
}
evens(7)`
	expectInspect(t, src, "[0, 2, 4, 6]")
}

func TestAsyncAwait(t *testing.T) {
	src := `async fn compute() { return 6 * 7 }
await compute()`
	expectInspect(t, src, "42")
}

func TestAwaitNonFutureIsIdentity(t *testing.T) {
	expectInspect(t, "await 5", "5")
}

func TestAsyncFaultSurfacesOnAwait(t *testing.T) {
	src := `async fn boom() { throw "bad" }
mut msg = ""
try { await boom() } catch e { msg = e }
msg`
	expectInspect(t, src, "bad")
}

func TestSets(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"set([1, 2, 2, 3]).length()", "3"},
		{"set([1, 2]).has(2)", "true"},
		{"set([1, 2]).has(9)", "false"},
		{"set([1, 2]).union(set([2, 3])).length()", "3"},
	}

	for _, tt := range tests {
		expectInspect(t, tt.input, tt.expected)
	}
}

func TestMatchOnEnumValues(t *testing.T) {
	src := `enum Color { Red, Green, Blue }
fn name_of(c) {
	match c {
		when Color.Red { return "red" }
		when Color.Green { return "green" }
		else { return "other" }
	}
	return ""
}
name_of(Color.Green)`
	expectInspect(t, src, "green")
}
