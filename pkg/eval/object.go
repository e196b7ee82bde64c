package eval

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"clarity/pkg/ast"
)

// Object is the interface every runtime value implements.
type Object interface {
	Kind() ObjectKind
	Inspect() string
}

// HashKey identifies a value usable as a map key or set element.
// Integral floats hash the same as the equivalent integer so that
// m[2] and m[2.0] address one slot.
type HashKey struct {
	Kind  ObjectKind
	Value uint64
}

// Hashable is implemented by values that can key a map or live in a set.
type Hashable interface {
	HashKey() HashKey
}

type Null struct{}

func (n *Null) Kind() ObjectKind { return NULL_KIND }
func (n *Null) Inspect() string  { return "null" }
func (n *Null) HashKey() HashKey { return HashKey{Kind: NULL_KIND} }

type Boolean struct {
	Value bool
}

func (b *Boolean) Kind() ObjectKind { return BOOLEAN_KIND }
func (b *Boolean) Inspect() string {
	if b.Value {
		return "true"
	}
	return "false"
}
func (b *Boolean) HashKey() HashKey {
	var v uint64
	if b.Value {
		v = 1
	}
	return HashKey{Kind: BOOLEAN_KIND, Value: v}
}

type Integer struct {
	Value int64
}

func (i *Integer) Kind() ObjectKind { return INTEGER_KIND }
func (i *Integer) Inspect() string  { return fmt.Sprintf("%d", i.Value) }
func (i *Integer) HashKey() HashKey {
	return HashKey{Kind: INTEGER_KIND, Value: uint64(i.Value)}
}

type Float struct {
	Value float64
}

func (f *Float) Kind() ObjectKind { return FLOAT_KIND }
func (f *Float) Inspect() string  { return formatFloat(f.Value) }
func (f *Float) HashKey() HashKey {
	if f.Value == math.Trunc(f.Value) && !math.IsInf(f.Value, 0) {
		return HashKey{Kind: INTEGER_KIND, Value: uint64(int64(f.Value))}
	}
	return HashKey{Kind: FLOAT_KIND, Value: math.Float64bits(f.Value)}
}

// formatFloat renders integral floats without a fractional part,
// matching how numbers display in the language.
func formatFloat(v float64) string {
	if v == math.Trunc(v) && !math.IsInf(v, 0) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}

type String struct {
	Value string
}

func (s *String) Kind() ObjectKind { return STRING_KIND }
func (s *String) Inspect() string  { return s.Value }
func (s *String) HashKey() HashKey {
	return HashKey{Kind: STRING_KIND, Value: fnv64(s.Value)}
}

func fnv64(s string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

type List struct {
	Elements []Object
}

func (l *List) Kind() ObjectKind { return LIST_KIND }
func (l *List) Inspect() string {
	parts := make([]string, len(l.Elements))
	for i, el := range l.Elements {
		parts[i] = reprOf(el)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Map is an insertion-ordered hash map. Pairs preserves the order in
// which keys were first inserted; re-assigning an existing key keeps
// its original position.
type Map struct {
	Pairs map[HashKey]MapPair
	Order []HashKey
}

type MapPair struct {
	Key   Object
	Value Object
}

func NewMap() *Map {
	return &Map{Pairs: map[HashKey]MapPair{}}
}

func (m *Map) Set(key, value Object) error {
	h, ok := key.(Hashable)
	if !ok {
		return fmt.Errorf("Cannot use %s as a map key", typeName(key))
	}
	hk := h.HashKey()
	if _, exists := m.Pairs[hk]; !exists {
		m.Order = append(m.Order, hk)
	}
	m.Pairs[hk] = MapPair{Key: key, Value: value}
	return nil
}

func (m *Map) Get(key Object) (Object, bool) {
	h, ok := key.(Hashable)
	if !ok {
		return nil, false
	}
	pair, exists := m.Pairs[h.HashKey()]
	if !exists {
		return nil, false
	}
	return pair.Value, true
}

func (m *Map) Delete(key Object) bool {
	h, ok := key.(Hashable)
	if !ok {
		return false
	}
	hk := h.HashKey()
	if _, exists := m.Pairs[hk]; !exists {
		return false
	}
	delete(m.Pairs, hk)
	for i, o := range m.Order {
		if o == hk {
			m.Order = append(m.Order[:i], m.Order[i+1:]...)
			break
		}
	}
	return true
}

func (m *Map) Len() int { return len(m.Order) }

func (m *Map) Kind() ObjectKind { return MAP_KIND }
func (m *Map) Inspect() string {
	parts := make([]string, 0, len(m.Order))
	for _, hk := range m.Order {
		pair := m.Pairs[hk]
		parts = append(parts, pair.Key.Inspect()+": "+reprOf(pair.Value))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Set is an insertion-ordered set of hashable values.
type Set struct {
	Items map[HashKey]Object
	Order []HashKey
}

func NewSet() *Set {
	return &Set{Items: map[HashKey]Object{}}
}

func (s *Set) Add(value Object) error {
	h, ok := value.(Hashable)
	if !ok {
		return fmt.Errorf("Cannot add %s to a set", typeName(value))
	}
	hk := h.HashKey()
	if _, exists := s.Items[hk]; !exists {
		s.Order = append(s.Order, hk)
		s.Items[hk] = value
	}
	return nil
}

func (s *Set) Has(value Object) bool {
	h, ok := value.(Hashable)
	if !ok {
		return false
	}
	_, exists := s.Items[h.HashKey()]
	return exists
}

func (s *Set) Remove(value Object) bool {
	h, ok := value.(Hashable)
	if !ok {
		return false
	}
	hk := h.HashKey()
	if _, exists := s.Items[hk]; !exists {
		return false
	}
	delete(s.Items, hk)
	for i, o := range s.Order {
		if o == hk {
			s.Order = append(s.Order[:i], s.Order[i+1:]...)
			break
		}
	}
	return true
}

func (s *Set) Values() []Object {
	out := make([]Object, 0, len(s.Order))
	for _, hk := range s.Order {
		out = append(out, s.Items[hk])
	}
	return out
}

func (s *Set) Len() int { return len(s.Order) }

func (s *Set) Kind() ObjectKind { return SET_KIND }
func (s *Set) Inspect() string {
	parts := make([]string, 0, len(s.Order))
	for _, hk := range s.Order {
		parts = append(parts, reprOf(s.Items[hk]))
	}
	return "set(" + strings.Join(parts, ", ") + ")"
}

// Function is a user-defined function or lambda closing over Env.
type Function struct {
	Name    string
	Params  []ast.Param
	Body    *ast.Block
	Env     *Environment
	IsAsync bool
	This    *Instance
}

func (f *Function) Kind() ObjectKind { return FUNCTION_KIND }
func (f *Function) Inspect() string {
	if f.Name != "" {
		return fmt.Sprintf("<fn %s>", f.Name)
	}
	return "<fn>"
}

// Bind returns a copy of f with this bound to inst.
func (f *Function) Bind(inst *Instance) *Function {
	bound := *f
	bound.This = inst
	return &bound
}

type BuiltinFn func(interp *Interpreter, args []Object) (Object, error)

type Builtin struct {
	Name string
	Fn   BuiltinFn
}

func (b *Builtin) Kind() ObjectKind { return BUILTIN_KIND }
func (b *Builtin) Inspect() string  { return fmt.Sprintf("<builtin %s>", b.Name) }

type Class struct {
	Name       string
	Methods    map[string]*Function
	Parent     *Class
	Interfaces []string
}

func (c *Class) Kind() ObjectKind { return CLASS_KIND }
func (c *Class) Inspect() string  { return fmt.Sprintf("<class %s>", c.Name) }

// FindMethod walks the inheritance chain for name.
func (c *Class) FindMethod(name string) (*Function, bool) {
	for cls := c; cls != nil; cls = cls.Parent {
		if m, ok := cls.Methods[name]; ok {
			return m, true
		}
	}
	return nil, false
}

type Instance struct {
	Class      *Class
	Properties *Map
}

func (i *Instance) Kind() ObjectKind { return INSTANCE_KIND }
func (i *Instance) Inspect() string  { return fmt.Sprintf("<%s instance>", i.Class.Name) }

type Interface struct {
	Name    string
	Methods map[string][]string
}

func (i *Interface) Kind() ObjectKind { return INTERFACE_KIND }
func (i *Interface) Inspect() string  { return fmt.Sprintf("<interface %s>", i.Name) }

type Enum struct {
	Name    string
	Members map[string]Object
	Order   []string
}

func (e *Enum) Kind() ObjectKind { return ENUM_KIND }
func (e *Enum) Inspect() string  { return fmt.Sprintf("<enum %s>", e.Name) }

// Module is a loaded file import exposed as a named bundle of values.
type Module struct {
	Name string
	Env  *Environment
}

func (m *Module) Kind() ObjectKind { return MAP_KIND }
func (m *Module) Inspect() string  { return fmt.Sprintf("<module %s>", m.Name) }

// Future is the result of calling an async function. Await blocks on
// Done with a timeout; the worker resolves it exactly once.
type Future struct {
	done  chan struct{}
	once  sync.Once
	value Object
	err   error
}

func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) Resolve(value Object, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

func (f *Future) Done() <-chan struct{}    { return f.done }
func (f *Future) Result() (Object, error)  { return f.value, f.err }
func (f *Future) Kind() ObjectKind         { return FUTURE_KIND }
func (f *Future) Inspect() string          { return "<future>" }

// ReturnValue threads a return through block execution.
type ReturnValue struct {
	Value Object
}

func (r *ReturnValue) Kind() ObjectKind { return RETURN_KIND }
func (r *ReturnValue) Inspect() string  { return r.Value.Inspect() }

type BreakSignal struct{}

func (b *BreakSignal) Kind() ObjectKind { return BREAK_KIND }
func (b *BreakSignal) Inspect() string  { return "break" }

type ContinueSignal struct{}

func (c *ContinueSignal) Kind() ObjectKind { return CONTINUE_KIND }
func (c *ContinueSignal) Inspect() string  { return "continue" }

// Fault is a runtime error. Thrown values carry the original object in
// Value; faults raised by the interpreter itself carry only Message.
type Fault struct {
	Class   string
	Message string
	Value   Object
	Line    int

	// Stack is the rendered call trace captured where the fault
	// escaped its innermost function. Empty for top-level faults.
	Stack string
}

func (f *Fault) Kind() ObjectKind { return FAULT_KIND }
func (f *Fault) Inspect() string  { return f.Class + ": " + f.Message }
func (f *Fault) Error() string    { return f.Inspect() }

// Bound returns the value a catch clause binds: the thrown object for
// user throws, otherwise the message as a string.
func (f *Fault) Bound() Object {
	if f.Value != nil {
		return f.Value
	}
	return &String{Value: f.Message}
}

func runtimeFault(format string, args ...interface{}) *Fault {
	return &Fault{Class: "RuntimeError", Message: fmt.Sprintf(format, args...)}
}

func typeFault(format string, args ...interface{}) *Fault {
	return &Fault{Class: "TypeError", Message: fmt.Sprintf(format, args...)}
}

func nameFault(format string, args ...interface{}) *Fault {
	return &Fault{Class: "NameError", Message: fmt.Sprintf(format, args...)}
}

func indexFault(format string, args ...interface{}) *Fault {
	return &Fault{Class: "IndexError", Message: fmt.Sprintf(format, args...)}
}
