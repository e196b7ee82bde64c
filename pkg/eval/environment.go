package eval

// binding pairs a value with its mutability. Only bindings declared
// with mut may be reassigned.
type binding struct {
	value   Object
	mutable bool
}

type Environment struct {
	store map[string]binding
	outer *Environment

	// builtinNames is set on the root environment only. A name in this
	// set may be shadowed by plain assignment even though the builtin
	// binding itself is immutable.
	builtinNames map[string]struct{}
}

func NewEnvironment() *Environment {
	return &Environment{store: map[string]binding{}}
}

func NewEnclosedEnvironment(outer *Environment) *Environment {
	return &Environment{store: map[string]binding{}, outer: outer}
}

func (e *Environment) Get(name string) (Object, bool) {
	for env := e; env != nil; env = env.outer {
		if b, ok := env.store[name]; ok {
			return b.value, true
		}
	}
	return nil, false
}

// Declare introduces a new binding in this scope, shadowing any outer
// binding of the same name.
func (e *Environment) Declare(name string, value Object, mutable bool) {
	e.store[name] = binding{value: value, mutable: mutable}
}

// Assign updates an existing binding. Immutable bindings fault unless
// the name belongs to a builtin, which plain assignment may shadow in
// the current scope instead.
func (e *Environment) Assign(name string, value Object) error {
	for env := e; env != nil; env = env.outer {
		if b, ok := env.store[name]; ok {
			if !b.mutable {
				if env.isBuiltinName(name) {
					e.store[name] = binding{value: value, mutable: true}
					return nil
				}
				return runtimeFault("Cannot reassign '%s' — use 'mut' to make it mutable", name)
			}
			env.store[name] = binding{value: value, mutable: true}
			return nil
		}
	}
	return nameFault("'%s' is not defined — use 'let' to create it", name)
}

func (e *Environment) isBuiltinName(name string) bool {
	if e.builtinNames == nil {
		return false
	}
	_, ok := e.builtinNames[name]
	return ok
}

// GetLocal looks a name up in this scope only, never the outer chain.
// Module lookups use it so a module exposes only what it declares
// itself, not the globals its environment encloses.
func (e *Environment) GetLocal(name string) (Object, bool) {
	if b, ok := e.store[name]; ok {
		return b.value, true
	}
	return nil, false
}
