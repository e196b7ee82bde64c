package eval

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strings"
	"sync"

	"clarity/pkg/ast"
	"clarity/pkg/lexer"
	"clarity/pkg/parser"
)

// Interpreter walks the AST directly. One interpreter serves one
// program run; file imports share its module cache and worker pool.
type Interpreter struct {
	Globals *Environment

	// Stdout and Stdin are replaceable for tests and the REPL.
	Stdout io.Writer
	Stdin  io.Reader

	// SourceDir anchors relative file imports. Swapped while a module
	// body executes so its own imports resolve against its location.
	SourceDir string

	// Output keeps everything show printed, one entry per statement,
	// alongside whatever went to Stdout. Embedding hosts read it back
	// after a run.
	Output []string

	// ExecStatement and EvalExpression are the dispatch entry points.
	// Every recursion into a statement or expression routes through
	// them, so tools like a tracer or profiler can wrap either one and
	// observe each boundary. New() installs the interpreter's own
	// dispatch as the default.
	ExecStatement  func(ast.Statement, *Environment) (Object, error)
	EvalExpression func(ast.Expression, *Environment) (Object, error)

	moduleCache map[string]*Module
	pool        *workerPool

	// callStack holds the active user-function calls for diagnostics.
	// Guarded by callMu because async calls run on pool workers.
	callStack []callFrame
	callMu    sync.Mutex

	// yieldSink collects yielded values while a generator body runs.
	// Nil outside generator execution.
	yieldSink *[]Object
}

func New() *Interpreter {
	globals := NewEnvironment()
	interp := &Interpreter{
		Globals:     globals,
		Stdout:      os.Stdout,
		Stdin:       os.Stdin,
		SourceDir:   ".",
		moduleCache: map[string]*Module{},
		pool:        newWorkerPool(8),
	}
	interp.ExecStatement = interp.execStatement
	interp.EvalExpression = interp.evalExpression
	registerBuiltins(interp, globals)
	return interp
}

// callFrame records one active user-function call: the function's name
// and the line of the call site.
type callFrame struct {
	Name string
	Line int
}

func (interp *Interpreter) pushFrame(name string, line int) {
	interp.callMu.Lock()
	interp.callStack = append(interp.callStack, callFrame{Name: name, Line: line})
	interp.callMu.Unlock()
}

func (interp *Interpreter) popFrame() {
	interp.callMu.Lock()
	if n := len(interp.callStack); n > 0 {
		interp.callStack = interp.callStack[:n-1]
	}
	interp.callMu.Unlock()
}

// StackTrace renders the active call frames, innermost first. Empty
// when no user function is executing.
func (interp *Interpreter) StackTrace() string {
	interp.callMu.Lock()
	defer interp.callMu.Unlock()
	if len(interp.callStack) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n  Stack trace:")
	for i := len(interp.callStack) - 1; i >= 0; i-- {
		frame := interp.callStack[i]
		if i == len(interp.callStack)-1 {
			fmt.Fprintf(&sb, "\n  → %s() at line %d", frame.Name, frame.Line)
		} else {
			fmt.Fprintf(&sb, "\n    %s() at line %d", frame.Name, frame.Line)
		}
	}
	return sb.String()
}

// Run executes a parsed program in the global environment.
func (interp *Interpreter) Run(program *ast.Program) error {
	for _, stmt := range program.Statements {
		result, err := interp.ExecStatement(stmt, interp.Globals)
		if err != nil {
			return err
		}
		switch result.(type) {
		case *ReturnValue, *BreakSignal, *ContinueSignal:
			return nil
		}
	}
	return nil
}

// EvalSource lexes, parses and runs source text. Used by eval() and
// the REPL.
func (interp *Interpreter) EvalSource(src string) (Object, error) {
	l := lexer.New(src)
	p := parser.New(l)
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, &Fault{Class: "SyntaxError", Message: errs[0]}
	}
	var last Object = NULL
	for _, stmt := range program.Statements {
		result, err := interp.ExecStatement(stmt, interp.Globals)
		if err != nil {
			return nil, err
		}
		if es, ok := stmt.(*ast.ExpressionStatement); ok && es != nil {
			last = result
		}
	}
	if last == nil {
		last = NULL
	}
	return last, nil
}

// readLine reads one line from Stdin for ask().
func (interp *Interpreter) readLine() (string, error) {
	reader := bufio.NewReader(interp.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// isTruthy follows the language's truthiness rules: null and false are
// false, zero numbers are false, empty strings and collections are
// false, everything else is true.
func isTruthy(obj Object) bool {
	switch v := obj.(type) {
	case *Null:
		return false
	case *Boolean:
		return v.Value
	case *Integer:
		return v.Value != 0
	case *Float:
		return v.Value != 0
	case *String:
		return len(v.Value) > 0
	case *List:
		return len(v.Elements) > 0
	case *Map:
		return v.Len() > 0
	case *Set:
		return v.Len() > 0
	default:
		return true
	}
}

// Truthy reports the language truthiness of a value.
func Truthy(obj Object) bool { return isTruthy(obj) }

// Equal reports language-level equality between two values.
func Equal(a, b Object) bool { return objectsEqual(a, b) }

// displayOf renders a value the way show prints it. An instance with a
// to_string method displays through it.
func (interp *Interpreter) displayOf(obj Object) string {
	if inst, ok := obj.(*Instance); ok {
		if method, found := inst.Class.FindMethod("to_string"); found {
			result, err := interp.callFunction(method.Bind(inst), nil)
			if err == nil {
				if s, ok := result.(*String); ok {
					return s.Value
				}
				return interp.displayOf(result)
			}
		}
	}
	return obj.Inspect()
}

// reprOf renders a value for embedding inside collection displays:
// strings keep their quotes, everything else displays normally.
func reprOf(obj Object) string {
	if s, ok := obj.(*String); ok {
		return fmt.Sprintf("%q", s.Value)
	}
	return obj.Inspect()
}

// objectsEqual implements == between runtime values.
func objectsEqual(a, b Object) bool {
	switch av := a.(type) {
	case *Null:
		_, ok := b.(*Null)
		return ok
	case *Boolean:
		bv, ok := b.(*Boolean)
		return ok && av.Value == bv.Value
	case *Integer:
		switch bv := b.(type) {
		case *Integer:
			return av.Value == bv.Value
		case *Float:
			return float64(av.Value) == bv.Value
		}
		return false
	case *Float:
		switch bv := b.(type) {
		case *Integer:
			return av.Value == float64(bv.Value)
		case *Float:
			return av.Value == bv.Value
		}
		return false
	case *String:
		bv, ok := b.(*String)
		return ok && av.Value == bv.Value
	case *List:
		bv, ok := b.(*List)
		if !ok || len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if !objectsEqual(av.Elements[i], bv.Elements[i]) {
				return false
			}
		}
		return true
	case *Map:
		bv, ok := b.(*Map)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for _, hk := range av.Order {
			pair := av.Pairs[hk]
			other, exists := bv.Pairs[hk]
			if !exists || !objectsEqual(pair.Value, other.Value) {
				return false
			}
		}
		return true
	case *Set:
		bv, ok := b.(*Set)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for _, hk := range av.Order {
			if _, exists := bv.Items[hk]; !exists {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// checkType implements runtime type annotations and the is operator's
// type form. Class names match instances of that class or a subclass.
func (interp *Interpreter) checkType(value Object, typeExpr string) bool {
	switch typeExpr {
	case "any":
		return true
	case "int":
		_, ok := value.(*Integer)
		return ok
	case "float":
		_, ok := value.(*Float)
		return ok
	case "number":
		switch value.(type) {
		case *Integer, *Float:
			return true
		}
		return false
	case "string":
		_, ok := value.(*String)
		return ok
	case "bool":
		_, ok := value.(*Boolean)
		return ok
	case "list":
		_, ok := value.(*List)
		return ok
	case "map":
		_, ok := value.(*Map)
		return ok
	case "set":
		_, ok := value.(*Set)
		return ok
	case "null":
		_, ok := value.(*Null)
		return ok
	case "function":
		switch value.(type) {
		case *Function, *Builtin:
			return true
		}
		return false
	}
	if inst, ok := value.(*Instance); ok {
		for cls := inst.Class; cls != nil; cls = cls.Parent {
			if cls.Name == typeExpr {
				return true
			}
		}
	}
	return false
}

var interpolationPattern = regexp.MustCompile(`\{([^}]+)\}`)

// interpolate expands {expr} placeholders inside a string literal by
// evaluating each expression in env. A placeholder that fails to parse
// or evaluate is left as written.
func (interp *Interpreter) interpolate(raw string, env *Environment) string {
	if !strings.Contains(raw, "{") {
		return raw
	}
	return interpolationPattern.ReplaceAllStringFunc(raw, func(match string) string {
		expr := match[1 : len(match)-1]
		value, err := interp.evalEmbedded(expr, env)
		if err != nil {
			return match
		}
		return interp.displayOf(value)
	})
}

func (interp *Interpreter) evalEmbedded(src string, env *Environment) (Object, error) {
	l := lexer.New(src)
	p := parser.New(l)
	program := p.ParseProgram()
	if len(p.Errors()) > 0 || len(program.Statements) == 0 {
		return nil, fmt.Errorf("bad embedded expression")
	}
	stmt, ok := program.Statements[0].(*ast.ExpressionStatement)
	if !ok {
		return nil, fmt.Errorf("bad embedded expression")
	}
	return interp.EvalExpression(stmt.Expression, env)
}

// numericValue extracts a float from an int or float object.
func numericValue(obj Object) (float64, bool) {
	switch v := obj.(type) {
	case *Integer:
		return float64(v.Value), true
	case *Float:
		return v.Value, true
	}
	return 0, false
}

// intValue extracts an int64, accepting integral floats.
func intValue(obj Object) (int64, bool) {
	switch v := obj.(type) {
	case *Integer:
		return v.Value, true
	case *Float:
		if v.Value == math.Trunc(v.Value) {
			return int64(v.Value), true
		}
	}
	return 0, false
}
