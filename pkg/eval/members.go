package eval

import (
	"sort"
	"strings"
)

// accessMember resolves obj.prop for every receiver kind. Methods come
// back as bound builtins so they can be stored and called later.
func (interp *Interpreter) accessMember(obj Object, prop string) (Object, error) {
	switch recv := obj.(type) {
	case *Enum:
		return interp.enumMember(recv, prop)
	case *Instance:
		if value, found := recv.Properties.Get(&String{Value: prop}); found {
			return value, nil
		}
		if method, found := recv.Class.FindMethod(prop); found {
			return method.Bind(recv), nil
		}
		return nil, runtimeFault("%s has no property '%s'", recv.Class.Name, prop)
	case *Module:
		// Only the module's own declarations are visible. Its
		// environment encloses the globals, so a chain walk would leak
		// every builtin through the module.
		if value, found := recv.Env.GetLocal(prop); found {
			return value, nil
		}
		return nil, runtimeFault("'%s' not found in '%s'", prop, recv.Name)
	case *Map:
		value, found := recv.Get(&String{Value: prop})
		if !found {
			return NULL, nil
		}
		return value, nil
	case *List:
		return interp.listMember(recv, prop)
	case *String:
		return interp.stringMember(recv, prop)
	case *Integer, *Float:
		return interp.numberMember(recv, prop)
	case *Set:
		return interp.setMember(recv, prop)
	}
	return nil, typeFault("Cannot access property on %s", typeName(obj))
}

func (interp *Interpreter) enumMember(enum *Enum, prop string) (Object, error) {
	if value, ok := enum.Members[prop]; ok {
		return value, nil
	}
	switch prop {
	case "values":
		return method(prop, 0, 0, func(in *Interpreter, args []Object) (Object, error) {
			values := make([]Object, 0, len(enum.Order))
			for _, name := range enum.Order {
				values = append(values, enum.Members[name])
			}
			return &List{Elements: values}, nil
		}), nil
	case "names":
		return method(prop, 0, 0, func(in *Interpreter, args []Object) (Object, error) {
			names := make([]Object, 0, len(enum.Order))
			for _, name := range enum.Order {
				names = append(names, &String{Value: name})
			}
			return &List{Elements: names}, nil
		}), nil
	case "entries":
		return method(prop, 0, 0, func(in *Interpreter, args []Object) (Object, error) {
			entries := make([]Object, 0, len(enum.Order))
			for _, name := range enum.Order {
				entries = append(entries, &List{Elements: []Object{&String{Value: name}, enum.Members[name]}})
			}
			return &List{Elements: entries}, nil
		}), nil
	case "has":
		return method(prop, 1, 1, func(in *Interpreter, args []Object) (Object, error) {
			name, ok := args[0].(*String)
			if !ok {
				return FALSE, nil
			}
			_, found := enum.Members[name.Value]
			return boolObject(found), nil
		}), nil
	}
	return nil, runtimeFault("Enum %s has no member '%s'", enum.Name, prop)
}

func (interp *Interpreter) listMember(list *List, prop string) (Object, error) {
	switch prop {
	case "length", "count":
		return method(prop, 0, 0, func(in *Interpreter, args []Object) (Object, error) {
			return &Integer{Value: int64(len(list.Elements))}, nil
		}), nil
	case "push":
		return method(prop, 1, 1, func(in *Interpreter, args []Object) (Object, error) {
			list.Elements = append(list.Elements, args[0])
			return NULL, nil
		}), nil
	case "pop":
		return method(prop, 0, 0, func(in *Interpreter, args []Object) (Object, error) {
			if len(list.Elements) == 0 {
				return nil, runtimeFault("pop from empty list")
			}
			last := list.Elements[len(list.Elements)-1]
			list.Elements = list.Elements[:len(list.Elements)-1]
			return last, nil
		}), nil
	case "first":
		return method(prop, 0, 0, func(in *Interpreter, args []Object) (Object, error) {
			if len(list.Elements) == 0 {
				return NULL, nil
			}
			return list.Elements[0], nil
		}), nil
	case "last":
		return method(prop, 0, 0, func(in *Interpreter, args []Object) (Object, error) {
			if len(list.Elements) == 0 {
				return NULL, nil
			}
			return list.Elements[len(list.Elements)-1], nil
		}), nil
	case "reverse":
		return method(prop, 0, 0, func(in *Interpreter, args []Object) (Object, error) {
			out := make([]Object, len(list.Elements))
			for i, el := range list.Elements {
				out[len(list.Elements)-1-i] = el
			}
			return &List{Elements: out}, nil
		}), nil
	case "sort":
		return method(prop, 0, 0, func(in *Interpreter, args []Object) (Object, error) {
			return sortedList(list)
		}), nil
	case "join":
		return method(prop, 0, 1, func(in *Interpreter, args []Object) (Object, error) {
			sep := ""
			if len(args) == 1 {
				s, ok := args[0].(*String)
				if !ok {
					return nil, typeFault("join separator must be a string, got %s", typeName(args[0]))
				}
				sep = s.Value
			}
			parts := make([]string, len(list.Elements))
			for i, el := range list.Elements {
				parts[i] = in.displayOf(el)
			}
			return &String{Value: strings.Join(parts, sep)}, nil
		}), nil
	case "contains":
		return method(prop, 1, 1, func(in *Interpreter, args []Object) (Object, error) {
			for _, el := range list.Elements {
				if objectsEqual(el, args[0]) {
					return TRUE, nil
				}
			}
			return FALSE, nil
		}), nil
	case "empty":
		return method(prop, 0, 0, func(in *Interpreter, args []Object) (Object, error) {
			return boolObject(len(list.Elements) == 0), nil
		}), nil
	case "slice":
		return method(prop, 0, 2, func(in *Interpreter, args []Object) (Object, error) {
			start, end, err := sliceBounds(args, int64(len(list.Elements)))
			if err != nil {
				return nil, err
			}
			return &List{Elements: append([]Object{}, list.Elements[start:end]...)}, nil
		}), nil
	case "index":
		return method(prop, 1, 1, func(in *Interpreter, args []Object) (Object, error) {
			for i, el := range list.Elements {
				if objectsEqual(el, args[0]) {
					return &Integer{Value: int64(i)}, nil
				}
			}
			return &Integer{Value: -1}, nil
		}), nil
	case "clear":
		return method(prop, 0, 0, func(in *Interpreter, args []Object) (Object, error) {
			list.Elements = list.Elements[:0]
			return list, nil
		}), nil
	case "copy":
		return method(prop, 0, 0, func(in *Interpreter, args []Object) (Object, error) {
			return &List{Elements: append([]Object{}, list.Elements...)}, nil
		}), nil
	}
	return nil, runtimeFault("List has no property '%s'", prop)
}

// sortedList orders numbers numerically and strings lexically. Mixed
// element kinds fault the way comparing them directly would.
func sortedList(list *List) (Object, error) {
	out := append([]Object{}, list.Elements...)
	var sortErr error
	sort.SliceStable(out, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		a, b := out[i], out[j]
		if as, ok := a.(*String); ok {
			if bs, ok := b.(*String); ok {
				return as.Value < bs.Value
			}
		}
		af, aok := numericValue(a)
		bf, bok := numericValue(b)
		if aok && bok {
			return af < bf
		}
		sortErr = typeFault("Cannot compare %s and %s", typeName(a), typeName(b))
		return false
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return &List{Elements: out}, nil
}

func (interp *Interpreter) stringMember(str *String, prop string) (Object, error) {
	runes := []rune(str.Value)
	switch prop {
	case "length", "count":
		return method(prop, 0, 0, func(in *Interpreter, args []Object) (Object, error) {
			return &Integer{Value: int64(len(runes))}, nil
		}), nil
	case "upper":
		return method(prop, 0, 0, func(in *Interpreter, args []Object) (Object, error) {
			return &String{Value: strings.ToUpper(str.Value)}, nil
		}), nil
	case "lower":
		return method(prop, 0, 0, func(in *Interpreter, args []Object) (Object, error) {
			return &String{Value: strings.ToLower(str.Value)}, nil
		}), nil
	case "trim":
		return method(prop, 0, 0, func(in *Interpreter, args []Object) (Object, error) {
			return &String{Value: strings.TrimSpace(str.Value)}, nil
		}), nil
	case "split":
		return method(prop, 0, 1, func(in *Interpreter, args []Object) (Object, error) {
			sep := " "
			if len(args) == 1 {
				s, ok := args[0].(*String)
				if !ok {
					return nil, typeFault("split separator must be a string, got %s", typeName(args[0]))
				}
				sep = s.Value
			}
			parts := strings.Split(str.Value, sep)
			out := make([]Object, len(parts))
			for i, part := range parts {
				out[i] = &String{Value: part}
			}
			return &List{Elements: out}, nil
		}), nil
	case "replace":
		return method(prop, 2, 2, func(in *Interpreter, args []Object) (Object, error) {
			old, ok1 := args[0].(*String)
			new_, ok2 := args[1].(*String)
			if !ok1 || !ok2 {
				return nil, typeFault("replace expects string arguments")
			}
			return &String{Value: strings.ReplaceAll(str.Value, old.Value, new_.Value)}, nil
		}), nil
	case "contains":
		return method(prop, 1, 1, func(in *Interpreter, args []Object) (Object, error) {
			s, ok := args[0].(*String)
			if !ok {
				return FALSE, nil
			}
			return boolObject(strings.Contains(str.Value, s.Value)), nil
		}), nil
	case "starts":
		return method(prop, 1, 1, func(in *Interpreter, args []Object) (Object, error) {
			s, ok := args[0].(*String)
			if !ok {
				return FALSE, nil
			}
			return boolObject(strings.HasPrefix(str.Value, s.Value)), nil
		}), nil
	case "ends":
		return method(prop, 1, 1, func(in *Interpreter, args []Object) (Object, error) {
			s, ok := args[0].(*String)
			if !ok {
				return FALSE, nil
			}
			return boolObject(strings.HasSuffix(str.Value, s.Value)), nil
		}), nil
	case "chars":
		return method(prop, 0, 0, func(in *Interpreter, args []Object) (Object, error) {
			out := make([]Object, len(runes))
			for i, r := range runes {
				out[i] = &String{Value: string(r)}
			}
			return &List{Elements: out}, nil
		}), nil
	case "reverse":
		return method(prop, 0, 0, func(in *Interpreter, args []Object) (Object, error) {
			out := make([]rune, len(runes))
			for i, r := range runes {
				out[len(runes)-1-i] = r
			}
			return &String{Value: string(out)}, nil
		}), nil
	case "empty":
		return method(prop, 0, 0, func(in *Interpreter, args []Object) (Object, error) {
			return boolObject(len(str.Value) == 0), nil
		}), nil
	case "slice":
		return method(prop, 0, 2, func(in *Interpreter, args []Object) (Object, error) {
			start, end, err := sliceBounds(args, int64(len(runes)))
			if err != nil {
				return nil, err
			}
			return &String{Value: string(runes[start:end])}, nil
		}), nil
	case "find":
		return method(prop, 1, 1, func(in *Interpreter, args []Object) (Object, error) {
			s, ok := args[0].(*String)
			if !ok {
				return &Integer{Value: -1}, nil
			}
			return &Integer{Value: int64(strings.Index(str.Value, s.Value))}, nil
		}), nil
	case "repeat":
		return method(prop, 1, 1, func(in *Interpreter, args []Object) (Object, error) {
			n, ok := args[0].(*Integer)
			if !ok {
				return nil, typeFault("repeat count must be an int, got %s", typeName(args[0]))
			}
			return &String{Value: strings.Repeat(str.Value, clampRepeat(n.Value))}, nil
		}), nil
	case "pad_left":
		return method(prop, 1, 2, func(in *Interpreter, args []Object) (Object, error) {
			return padString(str.Value, args, true)
		}), nil
	case "pad_right":
		return method(prop, 1, 2, func(in *Interpreter, args []Object) (Object, error) {
			return padString(str.Value, args, false)
		}), nil
	}
	return nil, runtimeFault("String has no property '%s'", prop)
}

func padString(s string, args []Object, left bool) (Object, error) {
	n, ok := args[0].(*Integer)
	if !ok {
		return nil, typeFault("pad width must be an int, got %s", typeName(args[0]))
	}
	pad := " "
	if len(args) == 2 {
		p, ok := args[1].(*String)
		if !ok || len(p.Value) == 0 {
			return nil, typeFault("pad character must be a string")
		}
		pad = p.Value
	}
	runes := []rune(s)
	missing := int(n.Value) - len(runes)
	if missing <= 0 {
		return &String{Value: s}, nil
	}
	fill := strings.Repeat(pad, missing)
	fill = string([]rune(fill)[:missing])
	if left {
		return &String{Value: fill + s}, nil
	}
	return &String{Value: s + fill}, nil
}

func (interp *Interpreter) numberMember(num Object, prop string) (Object, error) {
	value, _ := numericValue(num)
	switch prop {
	case "abs":
		return method(prop, 0, 0, func(in *Interpreter, args []Object) (Object, error) {
			switch v := num.(type) {
			case *Integer:
				if v.Value < 0 {
					return &Integer{Value: -v.Value}, nil
				}
				return v, nil
			case *Float:
				if v.Value < 0 {
					return &Float{Value: -v.Value}, nil
				}
				return v, nil
			}
			return num, nil
		}), nil
	case "str":
		return method(prop, 0, 0, func(in *Interpreter, args []Object) (Object, error) {
			return &String{Value: in.displayOf(num)}, nil
		}), nil
	case "float":
		return method(prop, 0, 0, func(in *Interpreter, args []Object) (Object, error) {
			return &Float{Value: value}, nil
		}), nil
	case "int":
		return method(prop, 0, 0, func(in *Interpreter, args []Object) (Object, error) {
			return &Integer{Value: int64(value)}, nil
		}), nil
	}
	return nil, runtimeFault("Number has no property '%s'", prop)
}

func (interp *Interpreter) setMember(set *Set, prop string) (Object, error) {
	switch prop {
	case "add":
		return method(prop, 1, 1, func(in *Interpreter, args []Object) (Object, error) {
			if err := set.Add(args[0]); err != nil {
				return nil, typeFault("%s", err.Error())
			}
			return set, nil
		}), nil
	case "remove":
		return method(prop, 1, 1, func(in *Interpreter, args []Object) (Object, error) {
			set.Remove(args[0])
			return set, nil
		}), nil
	case "has":
		return method(prop, 1, 1, func(in *Interpreter, args []Object) (Object, error) {
			return boolObject(set.Has(args[0])), nil
		}), nil
	case "length", "size":
		return method(prop, 0, 0, func(in *Interpreter, args []Object) (Object, error) {
			return &Integer{Value: int64(set.Len())}, nil
		}), nil
	case "list":
		return method(prop, 0, 0, func(in *Interpreter, args []Object) (Object, error) {
			return &List{Elements: set.Values()}, nil
		}), nil
	case "union":
		return method(prop, 1, 1, func(in *Interpreter, args []Object) (Object, error) {
			other, ok := args[0].(*Set)
			if !ok {
				return nil, typeFault("union expects a set, got %s", typeName(args[0]))
			}
			out := NewSet()
			for _, v := range set.Values() {
				out.Add(v)
			}
			for _, v := range other.Values() {
				out.Add(v)
			}
			return out, nil
		}), nil
	case "intersect":
		return method(prop, 1, 1, func(in *Interpreter, args []Object) (Object, error) {
			other, ok := args[0].(*Set)
			if !ok {
				return nil, typeFault("intersect expects a set, got %s", typeName(args[0]))
			}
			out := NewSet()
			for _, v := range set.Values() {
				if other.Has(v) {
					out.Add(v)
				}
			}
			return out, nil
		}), nil
	case "diff":
		return method(prop, 1, 1, func(in *Interpreter, args []Object) (Object, error) {
			other, ok := args[0].(*Set)
			if !ok {
				return nil, typeFault("diff expects a set, got %s", typeName(args[0]))
			}
			out := NewSet()
			for _, v := range set.Values() {
				if !other.Has(v) {
					out.Add(v)
				}
			}
			return out, nil
		}), nil
	}
	return nil, runtimeFault("Set has no property '%s'", prop)
}

// method wraps a bound receiver method as a builtin with an arity
// range.
func method(name string, min, max int, fn BuiltinFn) *Builtin {
	return &Builtin{Name: name, Fn: func(in *Interpreter, args []Object) (Object, error) {
		if len(args) < min || len(args) > max {
			if min == max {
				return nil, runtimeFault("%s expects %d arguments, got %d", name, min, len(args))
			}
			return nil, runtimeFault("%s expects %d to %d arguments, got %d", name, min, max, len(args))
		}
		return fn(in, args)
	}}
}

// sliceBounds interprets optional start/end method arguments the same
// way slice syntax does.
func sliceBounds(args []Object, length int64) (int64, int64, error) {
	var start, end int64 = 0, length
	if len(args) >= 1 {
		i, ok := args[0].(*Integer)
		if !ok {
			return 0, 0, typeFault("Slice bound must be an int, got %s", typeName(args[0]))
		}
		start = i.Value
	}
	if len(args) >= 2 {
		if _, isNull := args[1].(*Null); !isNull {
			i, ok := args[1].(*Integer)
			if !ok {
				return 0, 0, typeFault("Slice bound must be an int, got %s", typeName(args[1]))
			}
			end = i.Value
		}
	}
	if start < 0 {
		start += length
	}
	if end < 0 {
		end += length
	}
	if start < 0 {
		start = 0
	}
	if end > length {
		end = length
	}
	if start > end {
		start = end
	}
	return start, end, nil
}
