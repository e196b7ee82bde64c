package eval

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ScriptArgs holds the arguments passed after the script path on the
// command line. The CLI fills it before running.
var ScriptArgs []string

// registerBuiltins installs every builtin into the root environment
// and records their names so plain assignment may shadow them.
func registerBuiltins(interp *Interpreter, env *Environment) {
	names := map[string]struct{}{}
	declare := func(name string, value Object) {
		env.Declare(name, value, false)
		names[name] = struct{}{}
	}
	fn := func(name string, f BuiltinFn) {
		declare(name, &Builtin{Name: name, Fn: f})
	}

	// I/O
	fn("print", builtinPrint)
	fn("show", builtinPrint)
	fn("ask", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) > 0 {
			in.Stdout.Write([]byte(in.displayOf(args[0])))
		}
		line, err := in.readLine()
		if err != nil {
			return NULL, nil
		}
		return &String{Value: line}, nil
	})
	fn("read", func(in *Interpreter, args []Object) (Object, error) {
		path, err := oneString("read", args)
		if err != nil {
			return nil, err
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, runtimeFault("Cannot read '%s': %s", path, readErr.Error())
		}
		return &String{Value: string(data)}, nil
	})
	fn("write", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 2 {
			return nil, runtimeFault("write expects 2 arguments, got %d", len(args))
		}
		path, ok := args[0].(*String)
		if !ok {
			return nil, typeFault("write path must be a string, got %s", typeName(args[0]))
		}
		if err := os.WriteFile(path.Value, []byte(in.displayOf(args[1])), 0o644); err != nil {
			return nil, runtimeFault("Cannot write '%s': %s", path.Value, err.Error())
		}
		return TRUE, nil
	})
	fn("append", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 2 {
			return nil, runtimeFault("append expects 2 arguments, got %d", len(args))
		}
		path, ok := args[0].(*String)
		if !ok {
			return nil, typeFault("append path must be a string, got %s", typeName(args[0]))
		}
		f, err := os.OpenFile(path.Value, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, runtimeFault("Cannot append '%s': %s", path.Value, err.Error())
		}
		defer f.Close()
		if _, err := f.WriteString(in.displayOf(args[1])); err != nil {
			return nil, runtimeFault("Cannot append '%s': %s", path.Value, err.Error())
		}
		return TRUE, nil
	})
	fn("exists", func(in *Interpreter, args []Object) (Object, error) {
		path, err := oneString("exists", args)
		if err != nil {
			return nil, err
		}
		_, statErr := os.Stat(path)
		return boolObject(statErr == nil), nil
	})
	fn("lines", func(in *Interpreter, args []Object) (Object, error) {
		path, err := oneString("lines", args)
		if err != nil {
			return nil, err
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, runtimeFault("Cannot read '%s': %s", path, readErr.Error())
		}
		text := strings.TrimSuffix(string(data), "\n")
		out := []Object{}
		if text != "" || len(data) > 0 {
			for _, line := range strings.Split(text, "\n") {
				out = append(out, &String{Value: strings.TrimSuffix(line, "\r")})
			}
		}
		return &List{Elements: out}, nil
	})

	// Type conversions
	fn("int", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 1 {
			return nil, runtimeFault("int expects 1 argument, got %d", len(args))
		}
		switch v := args[0].(type) {
		case *Integer:
			return v, nil
		case *Float:
			return &Integer{Value: int64(math.Trunc(v.Value))}, nil
		case *Boolean:
			if v.Value {
				return &Integer{Value: 1}, nil
			}
			return &Integer{Value: 0}, nil
		case *String:
			f, err := strconv.ParseFloat(strings.TrimSpace(v.Value), 64)
			if err != nil {
				return nil, runtimeFault("Cannot convert %q to int", v.Value)
			}
			return &Integer{Value: int64(math.Trunc(f))}, nil
		}
		return nil, typeFault("Cannot convert %s to int", typeName(args[0]))
	})
	fn("float", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 1 {
			return nil, runtimeFault("float expects 1 argument, got %d", len(args))
		}
		switch v := args[0].(type) {
		case *Integer:
			return &Float{Value: float64(v.Value)}, nil
		case *Float:
			return v, nil
		case *String:
			f, err := strconv.ParseFloat(strings.TrimSpace(v.Value), 64)
			if err != nil {
				return nil, runtimeFault("Cannot convert %q to float", v.Value)
			}
			return &Float{Value: f}, nil
		}
		return nil, typeFault("Cannot convert %s to float", typeName(args[0]))
	})
	fn("str", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 1 {
			return nil, runtimeFault("str expects 1 argument, got %d", len(args))
		}
		return &String{Value: in.displayOf(args[0])}, nil
	})
	fn("bool", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 1 {
			return nil, runtimeFault("bool expects 1 argument, got %d", len(args))
		}
		return boolObject(isTruthy(args[0])), nil
	})
	fn("type", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 1 {
			return nil, runtimeFault("type expects 1 argument, got %d", len(args))
		}
		return &String{Value: typeName(args[0])}, nil
	})

	// Collections
	fn("len", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 1 {
			return nil, runtimeFault("len expects 1 argument, got %d", len(args))
		}
		switch v := args[0].(type) {
		case *String:
			return &Integer{Value: int64(len([]rune(v.Value)))}, nil
		case *List:
			return &Integer{Value: int64(len(v.Elements))}, nil
		case *Map:
			return &Integer{Value: int64(v.Len())}, nil
		case *Set:
			return &Integer{Value: int64(v.Len())}, nil
		}
		return nil, typeFault("len expects a collection, got %s", typeName(args[0]))
	})
	fn("push", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 2 {
			return nil, runtimeFault("push expects 2 arguments, got %d", len(args))
		}
		list, ok := args[0].(*List)
		if !ok {
			return nil, typeFault("push expects a list, got %s", typeName(args[0]))
		}
		list.Elements = append(list.Elements, args[1])
		return list, nil
	})
	fn("pop", func(in *Interpreter, args []Object) (Object, error) {
		list, err := oneList("pop", args)
		if err != nil {
			return nil, err
		}
		if len(list.Elements) == 0 {
			return nil, runtimeFault("pop from empty list")
		}
		last := list.Elements[len(list.Elements)-1]
		list.Elements = list.Elements[:len(list.Elements)-1]
		return last, nil
	})
	fn("sort", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) < 1 || len(args) > 2 {
			return nil, runtimeFault("sort expects 1 to 2 arguments, got %d", len(args))
		}
		list, ok := args[0].(*List)
		if !ok {
			return nil, typeFault("sort expects a list, got %s", typeName(args[0]))
		}
		if len(args) == 2 {
			if _, isNull := args[1].(*Null); !isNull {
				return sortedListBy(in, list, args[1])
			}
		}
		return sortedList(list)
	})
	fn("reverse", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 1 {
			return nil, runtimeFault("reverse expects 1 argument, got %d", len(args))
		}
		switch v := args[0].(type) {
		case *String:
			runes := []rune(v.Value)
			out := make([]rune, len(runes))
			for i, r := range runes {
				out[len(runes)-1-i] = r
			}
			return &String{Value: string(out)}, nil
		case *List:
			out := make([]Object, len(v.Elements))
			for i, el := range v.Elements {
				out[len(v.Elements)-1-i] = el
			}
			return &List{Elements: out}, nil
		}
		return nil, typeFault("reverse expects a list or string, got %s", typeName(args[0]))
	})
	fn("range", func(in *Interpreter, args []Object) (Object, error) {
		bounds := make([]int64, len(args))
		for i, arg := range args {
			n, ok := arg.(*Integer)
			if !ok {
				return nil, typeFault("range bounds must be ints, got %s", typeName(arg))
			}
			bounds[i] = n.Value
		}
		var start, end, step int64 = 0, 0, 1
		switch len(args) {
		case 1:
			end = bounds[0]
		case 2:
			start, end = bounds[0], bounds[1]
		case 3:
			start, end, step = bounds[0], bounds[1], bounds[2]
			if step == 0 {
				return nil, runtimeFault("range step cannot be zero")
			}
		default:
			return nil, runtimeFault("range expects 1 to 3 arguments, got %d", len(args))
		}
		out := []Object{}
		if step > 0 {
			for i := start; i < end; i += step {
				out = append(out, &Integer{Value: i})
			}
		} else {
			for i := start; i > end; i += step {
				out = append(out, &Integer{Value: i})
			}
		}
		return &List{Elements: out}, nil
	})
	fn("map", func(in *Interpreter, args []Object) (Object, error) {
		list, callee, err := listAndFn("map", args)
		if err != nil {
			return nil, err
		}
		out := make([]Object, 0, len(list.Elements))
		for _, item := range list.Elements {
			mapped, err := in.callValue(callee, []Object{item})
			if err != nil {
				return nil, err
			}
			out = append(out, mapped)
		}
		return &List{Elements: out}, nil
	})
	fn("filter", func(in *Interpreter, args []Object) (Object, error) {
		list, callee, err := listAndFn("filter", args)
		if err != nil {
			return nil, err
		}
		out := []Object{}
		for _, item := range list.Elements {
			keep, err := in.callValue(callee, []Object{item})
			if err != nil {
				return nil, err
			}
			if isTruthy(keep) {
				out = append(out, item)
			}
		}
		return &List{Elements: out}, nil
	})
	fn("reduce", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) < 2 || len(args) > 3 {
			return nil, runtimeFault("reduce expects 2 to 3 arguments, got %d", len(args))
		}
		list, ok := args[0].(*List)
		if !ok {
			return nil, typeFault("reduce expects a list, got %s", typeName(args[0]))
		}
		callee := args[1]
		var acc Object
		start := 0
		if len(args) == 3 {
			if _, isNull := args[2].(*Null); !isNull {
				acc = args[2]
			}
		}
		if acc == nil {
			if len(list.Elements) == 0 {
				return nil, runtimeFault("reduce of empty list with no initial value")
			}
			acc = list.Elements[0]
			start = 1
		}
		for i := start; i < len(list.Elements); i++ {
			next, err := in.callValue(callee, []Object{acc, list.Elements[i]})
			if err != nil {
				return nil, err
			}
			acc = next
		}
		return acc, nil
	})
	fn("each", func(in *Interpreter, args []Object) (Object, error) {
		list, callee, err := listAndFn("each", args)
		if err != nil {
			return nil, err
		}
		for _, item := range list.Elements {
			if _, err := in.callValue(callee, []Object{item}); err != nil {
				return nil, err
			}
		}
		return NULL, nil
	})
	fn("find", func(in *Interpreter, args []Object) (Object, error) {
		list, callee, err := listAndFn("find", args)
		if err != nil {
			return nil, err
		}
		for _, item := range list.Elements {
			matched, err := in.callValue(callee, []Object{item})
			if err != nil {
				return nil, err
			}
			if isTruthy(matched) {
				return item, nil
			}
		}
		return NULL, nil
	})
	fn("every", func(in *Interpreter, args []Object) (Object, error) {
		list, callee, err := listAndFn("every", args)
		if err != nil {
			return nil, err
		}
		for _, item := range list.Elements {
			matched, err := in.callValue(callee, []Object{item})
			if err != nil {
				return nil, err
			}
			if !isTruthy(matched) {
				return FALSE, nil
			}
		}
		return TRUE, nil
	})
	fn("some", func(in *Interpreter, args []Object) (Object, error) {
		list, callee, err := listAndFn("some", args)
		if err != nil {
			return nil, err
		}
		for _, item := range list.Elements {
			matched, err := in.callValue(callee, []Object{item})
			if err != nil {
				return nil, err
			}
			if isTruthy(matched) {
				return TRUE, nil
			}
		}
		return FALSE, nil
	})
	fn("flat", func(in *Interpreter, args []Object) (Object, error) {
		list, err := oneList("flat", args)
		if err != nil {
			return nil, err
		}
		out := []Object{}
		for _, item := range list.Elements {
			if inner, ok := item.(*List); ok {
				out = append(out, inner.Elements...)
			} else {
				out = append(out, item)
			}
		}
		return &List{Elements: out}, nil
	})
	fn("zip", func(in *Interpreter, args []Object) (Object, error) {
		lists := make([]*List, len(args))
		shortest := -1
		for i, arg := range args {
			list, ok := arg.(*List)
			if !ok {
				return nil, typeFault("zip expects lists, got %s", typeName(arg))
			}
			lists[i] = list
			if shortest == -1 || len(list.Elements) < shortest {
				shortest = len(list.Elements)
			}
		}
		if shortest <= 0 {
			return &List{}, nil
		}
		out := make([]Object, shortest)
		for i := 0; i < shortest; i++ {
			row := make([]Object, len(lists))
			for j, list := range lists {
				row[j] = list.Elements[i]
			}
			out[i] = &List{Elements: row}
		}
		return &List{Elements: out}, nil
	})
	fn("unique", func(in *Interpreter, args []Object) (Object, error) {
		list, err := oneList("unique", args)
		if err != nil {
			return nil, err
		}
		seen := map[string]struct{}{}
		out := []Object{}
		for _, item := range list.Elements {
			key := reprOf(item)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, item)
		}
		return &List{Elements: out}, nil
	})
	fn("keys", func(in *Interpreter, args []Object) (Object, error) {
		m, err := oneMap("keys", args)
		if err != nil {
			return nil, err
		}
		out := make([]Object, 0, m.Len())
		for _, hk := range m.Order {
			out = append(out, m.Pairs[hk].Key)
		}
		return &List{Elements: out}, nil
	})
	fn("values", func(in *Interpreter, args []Object) (Object, error) {
		m, err := oneMap("values", args)
		if err != nil {
			return nil, err
		}
		out := make([]Object, 0, m.Len())
		for _, hk := range m.Order {
			out = append(out, m.Pairs[hk].Value)
		}
		return &List{Elements: out}, nil
	})
	fn("entries", func(in *Interpreter, args []Object) (Object, error) {
		m, err := oneMap("entries", args)
		if err != nil {
			return nil, err
		}
		out := make([]Object, 0, m.Len())
		for _, hk := range m.Order {
			pair := m.Pairs[hk]
			out = append(out, &List{Elements: []Object{pair.Key, pair.Value}})
		}
		return &List{Elements: out}, nil
	})
	fn("merge", func(in *Interpreter, args []Object) (Object, error) {
		out := NewMap()
		for _, arg := range args {
			m, ok := arg.(*Map)
			if !ok {
				return nil, typeFault("merge expects maps, got %s", typeName(arg))
			}
			for _, hk := range m.Order {
				pair := m.Pairs[hk]
				out.Set(pair.Key, pair.Value)
			}
		}
		return out, nil
	})
	fn("has", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 2 {
			return nil, runtimeFault("has expects 2 arguments, got %d", len(args))
		}
		switch v := args[0].(type) {
		case *Map:
			_, found := v.Get(args[1])
			return boolObject(found), nil
		case *List:
			for _, el := range v.Elements {
				if objectsEqual(el, args[1]) {
					return TRUE, nil
				}
			}
			return FALSE, nil
		case *String:
			needle, ok := args[1].(*String)
			if !ok {
				return FALSE, nil
			}
			return boolObject(strings.Contains(v.Value, needle.Value)), nil
		}
		return FALSE, nil
	})

	// Strings
	fn("split", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) < 1 || len(args) > 2 {
			return nil, runtimeFault("split expects 1 to 2 arguments, got %d", len(args))
		}
		s, ok := args[0].(*String)
		if !ok {
			return nil, typeFault("split expects a string, got %s", typeName(args[0]))
		}
		sep := " "
		if len(args) == 2 {
			sepArg, ok := args[1].(*String)
			if !ok {
				return nil, typeFault("split separator must be a string, got %s", typeName(args[1]))
			}
			sep = sepArg.Value
		}
		parts := strings.Split(s.Value, sep)
		out := make([]Object, len(parts))
		for i, part := range parts {
			out[i] = &String{Value: part}
		}
		return &List{Elements: out}, nil
	})
	fn("join", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) < 1 || len(args) > 2 {
			return nil, runtimeFault("join expects 1 to 2 arguments, got %d", len(args))
		}
		list, ok := args[0].(*List)
		if !ok {
			return nil, typeFault("join expects a list, got %s", typeName(args[0]))
		}
		sep := ""
		if len(args) == 2 {
			sepArg, ok := args[1].(*String)
			if !ok {
				return nil, typeFault("join separator must be a string, got %s", typeName(args[1]))
			}
			sep = sepArg.Value
		}
		parts := make([]string, len(list.Elements))
		for i, el := range list.Elements {
			parts[i] = in.displayOf(el)
		}
		return &String{Value: strings.Join(parts, sep)}, nil
	})
	fn("replace", func(in *Interpreter, args []Object) (Object, error) {
		s, parts, err := stringArgs("replace", args, 3)
		if err != nil {
			return nil, err
		}
		return &String{Value: strings.ReplaceAll(s, parts[0], parts[1])}, nil
	})
	fn("trim", func(in *Interpreter, args []Object) (Object, error) {
		s, err := oneString("trim", args)
		if err != nil {
			return nil, err
		}
		return &String{Value: strings.TrimSpace(s)}, nil
	})
	fn("upper", func(in *Interpreter, args []Object) (Object, error) {
		s, err := oneString("upper", args)
		if err != nil {
			return nil, err
		}
		return &String{Value: strings.ToUpper(s)}, nil
	})
	fn("lower", func(in *Interpreter, args []Object) (Object, error) {
		s, err := oneString("lower", args)
		if err != nil {
			return nil, err
		}
		return &String{Value: strings.ToLower(s)}, nil
	})
	fn("contains", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 2 {
			return nil, runtimeFault("contains expects 2 arguments, got %d", len(args))
		}
		switch v := args[0].(type) {
		case *String:
			needle, ok := args[1].(*String)
			if !ok {
				return FALSE, nil
			}
			return boolObject(strings.Contains(v.Value, needle.Value)), nil
		case *List:
			for _, el := range v.Elements {
				if objectsEqual(el, args[1]) {
					return TRUE, nil
				}
			}
			return FALSE, nil
		case *Map:
			_, found := v.Get(args[1])
			return boolObject(found), nil
		case *Set:
			return boolObject(v.Has(args[1])), nil
		}
		return FALSE, nil
	})
	fn("starts", func(in *Interpreter, args []Object) (Object, error) {
		s, parts, err := stringArgs("starts", args, 2)
		if err != nil {
			return nil, err
		}
		return boolObject(strings.HasPrefix(s, parts[0])), nil
	})
	fn("ends", func(in *Interpreter, args []Object) (Object, error) {
		s, parts, err := stringArgs("ends", args, 2)
		if err != nil {
			return nil, err
		}
		return boolObject(strings.HasSuffix(s, parts[0])), nil
	})
	fn("chars", func(in *Interpreter, args []Object) (Object, error) {
		s, err := oneString("chars", args)
		if err != nil {
			return nil, err
		}
		out := []Object{}
		for _, r := range s {
			out = append(out, &String{Value: string(r)})
		}
		return &List{Elements: out}, nil
	})
	fn("repeat", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 2 {
			return nil, runtimeFault("repeat expects 2 arguments, got %d", len(args))
		}
		s, ok := args[0].(*String)
		if !ok {
			return nil, typeFault("repeat expects a string, got %s", typeName(args[0]))
		}
		n, ok := args[1].(*Integer)
		if !ok {
			return nil, typeFault("repeat count must be an int, got %s", typeName(args[1]))
		}
		return &String{Value: strings.Repeat(s.Value, clampRepeat(n.Value))}, nil
	})
	fn("pad_left", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) < 2 || len(args) > 3 {
			return nil, runtimeFault("pad_left expects 2 to 3 arguments, got %d", len(args))
		}
		s, ok := args[0].(*String)
		if !ok {
			return nil, typeFault("pad_left expects a string, got %s", typeName(args[0]))
		}
		return padString(s.Value, args[1:], true)
	})
	fn("pad_right", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) < 2 || len(args) > 3 {
			return nil, runtimeFault("pad_right expects 2 to 3 arguments, got %d", len(args))
		}
		s, ok := args[0].(*String)
		if !ok {
			return nil, typeFault("pad_right expects a string, got %s", typeName(args[0]))
		}
		return padString(s.Value, args[1:], false)
	})
	fn("char_at", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 2 {
			return nil, runtimeFault("char_at expects 2 arguments, got %d", len(args))
		}
		s, ok := args[0].(*String)
		if !ok {
			return nil, typeFault("char_at expects a string, got %s", typeName(args[0]))
		}
		i, ok := args[1].(*Integer)
		if !ok {
			return nil, typeFault("char_at index must be an int, got %s", typeName(args[1]))
		}
		runes := []rune(s.Value)
		if i.Value < 0 || i.Value >= int64(len(runes)) {
			return NULL, nil
		}
		return &String{Value: string(runes[i.Value])}, nil
	})
	fn("char_code", func(in *Interpreter, args []Object) (Object, error) {
		s, err := oneString("char_code", args)
		if err != nil {
			return nil, err
		}
		runes := []rune(s)
		if len(runes) == 0 {
			return NULL, nil
		}
		return &Integer{Value: int64(runes[0])}, nil
	})
	fn("from_char_code", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 1 {
			return nil, runtimeFault("from_char_code expects 1 argument, got %d", len(args))
		}
		n, ok := args[0].(*Integer)
		if !ok {
			return nil, typeFault("from_char_code expects an int, got %s", typeName(args[0]))
		}
		return &String{Value: string(rune(n.Value))}, nil
	})
	fn("index_of", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) < 2 || len(args) > 3 {
			return nil, runtimeFault("index_of expects 2 to 3 arguments, got %d", len(args))
		}
		s, ok := args[0].(*String)
		if !ok {
			return nil, typeFault("index_of expects a string, got %s", typeName(args[0]))
		}
		sub, ok := args[1].(*String)
		if !ok {
			return nil, typeFault("index_of substring must be a string, got %s", typeName(args[1]))
		}
		start := int64(0)
		if len(args) == 3 {
			n, ok := args[2].(*Integer)
			if !ok {
				return nil, typeFault("index_of start must be an int, got %s", typeName(args[2]))
			}
			start = n.Value
		}
		if start < 0 {
			start = 0
		}
		if start > int64(len(s.Value)) {
			return &Integer{Value: -1}, nil
		}
		idx := strings.Index(s.Value[start:], sub.Value)
		if idx == -1 {
			return &Integer{Value: -1}, nil
		}
		return &Integer{Value: start + int64(idx)}, nil
	})
	fn("substring", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) < 2 || len(args) > 3 {
			return nil, runtimeFault("substring expects 2 to 3 arguments, got %d", len(args))
		}
		s, ok := args[0].(*String)
		if !ok {
			return nil, typeFault("substring expects a string, got %s", typeName(args[0]))
		}
		runes := []rune(s.Value)
		start, end, err := sliceBounds(args[1:], int64(len(runes)))
		if err != nil {
			return nil, err
		}
		return &String{Value: string(runes[start:end])}, nil
	})
	fn("is_digit", charPredicate(func(r rune) bool { return r >= '0' && r <= '9' }))
	fn("is_alpha", charPredicate(isLetterRune))
	fn("is_alnum", charPredicate(func(r rune) bool { return isLetterRune(r) || (r >= '0' && r <= '9') }))
	fn("is_space", charPredicate(func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
	}))

	// Math
	fn("abs", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 1 {
			return nil, runtimeFault("abs expects 1 argument, got %d", len(args))
		}
		switch v := args[0].(type) {
		case *Integer:
			if v.Value < 0 {
				return &Integer{Value: -v.Value}, nil
			}
			return v, nil
		case *Float:
			return &Float{Value: math.Abs(v.Value)}, nil
		}
		return nil, typeFault("abs expects a number, got %s", typeName(args[0]))
	})
	fn("round", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) < 1 || len(args) > 2 {
			return nil, runtimeFault("round expects 1 to 2 arguments, got %d", len(args))
		}
		value, ok := numericValue(args[0])
		if !ok {
			return nil, typeFault("round expects a number, got %s", typeName(args[0]))
		}
		digits := int64(0)
		if len(args) == 2 {
			n, ok := args[1].(*Integer)
			if !ok {
				return nil, typeFault("round digits must be an int, got %s", typeName(args[1]))
			}
			digits = n.Value
		}
		if digits == 0 {
			return &Integer{Value: int64(math.Round(value))}, nil
		}
		shift := math.Pow(10, float64(digits))
		return &Float{Value: math.Round(value*shift) / shift}, nil
	})
	fn("floor", mathToInt("floor", math.Floor))
	fn("ceil", mathToInt("ceil", math.Ceil))
	fn("min", extremum("min", func(a, b float64) bool { return a < b }))
	fn("max", extremum("max", func(a, b float64) bool { return a > b }))
	fn("sum", func(in *Interpreter, args []Object) (Object, error) {
		list, err := oneList("sum", args)
		if err != nil {
			return nil, err
		}
		var total float64
		allInts := true
		for _, el := range list.Elements {
			v, ok := numericValue(el)
			if !ok {
				return nil, typeFault("sum expects numbers, got %s", typeName(el))
			}
			if _, isInt := el.(*Integer); !isInt {
				allInts = false
			}
			total += v
		}
		if allInts {
			return &Integer{Value: int64(total)}, nil
		}
		return &Float{Value: total}, nil
	})
	fn("random", func(in *Interpreter, args []Object) (Object, error) {
		switch len(args) {
		case 0:
			return &Float{Value: rand.Float64()}, nil
		case 1:
			n, ok := args[0].(*Integer)
			if !ok {
				return nil, typeFault("random bound must be an int, got %s", typeName(args[0]))
			}
			return &Integer{Value: randInt(0, n.Value)}, nil
		case 2:
			lo, ok1 := args[0].(*Integer)
			hi, ok2 := args[1].(*Integer)
			if !ok1 || !ok2 {
				return nil, typeFault("random bounds must be ints")
			}
			return &Integer{Value: randInt(lo.Value, hi.Value)}, nil
		}
		return nil, runtimeFault("random expects 0 to 2 arguments, got %d", len(args))
	})
	declare("pi", &Float{Value: math.Pi})
	declare("e", &Float{Value: math.E})
	fn("sqrt", mathFn("sqrt", math.Sqrt))
	fn("sin", mathFn("sin", math.Sin))
	fn("cos", mathFn("cos", math.Cos))
	fn("tan", mathFn("tan", math.Tan))
	fn("log", mathFn("log", math.Log))
	fn("pow", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 2 {
			return nil, runtimeFault("pow expects 2 arguments, got %d", len(args))
		}
		base, ok1 := numericValue(args[0])
		exp, ok2 := numericValue(args[1])
		if !ok1 || !ok2 {
			return nil, typeFault("pow expects numbers")
		}
		return &Float{Value: math.Pow(base, exp)}, nil
	})

	// System
	fn("exec", builtinExec)
	fn("exec_full", builtinExecFull)
	fn("exit", func(in *Interpreter, args []Object) (Object, error) {
		code := int64(0)
		if len(args) > 0 {
			if n, ok := args[0].(*Integer); ok {
				code = n.Value
			}
		}
		os.Exit(int(code))
		return NULL, nil
	})
	fn("sleep", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 1 {
			return nil, runtimeFault("sleep expects 1 argument, got %d", len(args))
		}
		seconds, ok := numericValue(args[0])
		if !ok {
			return nil, typeFault("sleep expects a number, got %s", typeName(args[0]))
		}
		time.Sleep(time.Duration(seconds * float64(time.Second)))
		return NULL, nil
	})
	fn("time", func(in *Interpreter, args []Object) (Object, error) {
		return &Float{Value: float64(time.Now().UnixNano()) / 1e9}, nil
	})
	fn("env", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) < 1 || len(args) > 2 {
			return nil, runtimeFault("env expects 1 to 2 arguments, got %d", len(args))
		}
		key, ok := args[0].(*String)
		if !ok {
			return nil, typeFault("env key must be a string, got %s", typeName(args[0]))
		}
		if value, found := os.LookupEnv(key.Value); found {
			return &String{Value: value}, nil
		}
		if len(args) == 2 {
			return args[1], nil
		}
		return NULL, nil
	})
	fn("args", func(in *Interpreter, args []Object) (Object, error) {
		out := make([]Object, len(ScriptArgs))
		for i, arg := range ScriptArgs {
			out[i] = &String{Value: arg}
		}
		return &List{Elements: out}, nil
	})
	fn("cwd", func(in *Interpreter, args []Object) (Object, error) {
		dir, err := os.Getwd()
		if err != nil {
			return nil, runtimeFault("%s", err.Error())
		}
		return &String{Value: dir}, nil
	})

	// Net
	fn("fetch", builtinFetch)
	fn("serve", builtinServe)

	// JSON
	fn("json_parse", func(in *Interpreter, args []Object) (Object, error) {
		text, err := oneString("json_parse", args)
		if err != nil {
			return nil, err
		}
		return jsonParse(text)
	})
	fn("json_string", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 1 {
			return nil, runtimeFault("json_string expects 1 argument, got %d", len(args))
		}
		return jsonString(args[0])
	})

	// Crypto
	fn("hash", builtinHash)
	fn("encode64", builtinEncode64)
	fn("decode64", builtinDecode64)

	// Functional
	fn("compose", func(in *Interpreter, args []Object) (Object, error) {
		fns := append([]Object{}, args...)
		return &Builtin{Name: "composed", Fn: func(in *Interpreter, inner []Object) (Object, error) {
			if len(inner) != 1 {
				return nil, runtimeFault("composed expects 1 argument, got %d", len(inner))
			}
			result := inner[0]
			for i := len(fns) - 1; i >= 0; i-- {
				next, err := in.callValue(fns[i], []Object{result})
				if err != nil {
					return nil, err
				}
				result = next
			}
			return result, nil
		}}, nil
	})
	fn("tap", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 2 {
			return nil, runtimeFault("tap expects 2 arguments, got %d", len(args))
		}
		if _, err := in.callValue(args[1], []Object{args[0]}); err != nil {
			return nil, err
		}
		return args[0], nil
	})

	// Sets
	fn("set", func(in *Interpreter, args []Object) (Object, error) {
		out := NewSet()
		if len(args) == 0 {
			return out, nil
		}
		items, err := iterableItems(args[0])
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			if err := out.Add(item); err != nil {
				return nil, typeFault("%s", err.Error())
			}
		}
		return out, nil
	})

	// Errors
	fn("error", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 1 {
			return nil, runtimeFault("error expects 1 argument, got %d", len(args))
		}
		return &String{Value: in.displayOf(args[0])}, nil
	})

	env.builtinNames = names
}

func builtinPrint(in *Interpreter, args []Object) (Object, error) {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = in.displayOf(arg)
	}
	fmt.Fprintln(in.Stdout, strings.Join(parts, " "))
	return NULL, nil
}

func oneString(name string, args []Object) (string, error) {
	if len(args) != 1 {
		return "", runtimeFault("%s expects 1 argument, got %d", name, len(args))
	}
	s, ok := args[0].(*String)
	if !ok {
		return "", typeFault("%s expects a string, got %s", name, typeName(args[0]))
	}
	return s.Value, nil
}

func oneList(name string, args []Object) (*List, error) {
	if len(args) != 1 {
		return nil, runtimeFault("%s expects 1 argument, got %d", name, len(args))
	}
	list, ok := args[0].(*List)
	if !ok {
		return nil, typeFault("%s expects a list, got %s", name, typeName(args[0]))
	}
	return list, nil
}

func oneMap(name string, args []Object) (*Map, error) {
	if len(args) != 1 {
		return nil, runtimeFault("%s expects 1 argument, got %d", name, len(args))
	}
	m, ok := args[0].(*Map)
	if !ok {
		return nil, typeFault("%s expects a map, got %s", name, typeName(args[0]))
	}
	return m, nil
}

func listAndFn(name string, args []Object) (*List, Object, error) {
	if len(args) != 2 {
		return nil, nil, runtimeFault("%s expects 2 arguments, got %d", name, len(args))
	}
	list, ok := args[0].(*List)
	if !ok {
		return nil, nil, typeFault("%s expects a list, got %s", name, typeName(args[0]))
	}
	return list, args[1], nil
}

func stringArgs(name string, args []Object, count int) (string, []string, error) {
	if len(args) != count {
		return "", nil, runtimeFault("%s expects %d arguments, got %d", name, count, len(args))
	}
	subject, ok := args[0].(*String)
	if !ok {
		return "", nil, typeFault("%s expects a string, got %s", name, typeName(args[0]))
	}
	rest := make([]string, 0, count-1)
	for _, arg := range args[1:] {
		s, ok := arg.(*String)
		if !ok {
			return "", nil, typeFault("%s expects string arguments, got %s", name, typeName(arg))
		}
		rest = append(rest, s.Value)
	}
	return subject.Value, rest, nil
}

func charPredicate(pred func(rune) bool) BuiltinFn {
	return func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 1 {
			return FALSE, nil
		}
		s, ok := args[0].(*String)
		if !ok {
			return FALSE, nil
		}
		runes := []rune(s.Value)
		if len(runes) != 1 {
			return FALSE, nil
		}
		return boolObject(pred(runes[0])), nil
	}
}

func isLetterRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r > 127
}

func mathFn(name string, f func(float64) float64) BuiltinFn {
	return func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 1 {
			return nil, runtimeFault("%s expects 1 argument, got %d", name, len(args))
		}
		v, ok := numericValue(args[0])
		if !ok {
			return nil, typeFault("%s expects a number, got %s", name, typeName(args[0]))
		}
		return &Float{Value: f(v)}, nil
	}
}

func mathToInt(name string, f func(float64) float64) BuiltinFn {
	return func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 1 {
			return nil, runtimeFault("%s expects 1 argument, got %d", name, len(args))
		}
		v, ok := numericValue(args[0])
		if !ok {
			return nil, typeFault("%s expects a number, got %s", name, typeName(args[0]))
		}
		return &Integer{Value: int64(f(v))}, nil
	}
}

func extremum(name string, better func(a, b float64) bool) BuiltinFn {
	return func(in *Interpreter, args []Object) (Object, error) {
		items := args
		if len(args) == 1 {
			if list, ok := args[0].(*List); ok {
				items = list.Elements
			}
		}
		if len(items) == 0 {
			return nil, runtimeFault("%s of empty sequence", name)
		}
		best := items[0]
		bestVal, ok := numericValue(best)
		if !ok {
			return nil, typeFault("%s expects numbers, got %s", name, typeName(best))
		}
		for _, item := range items[1:] {
			v, ok := numericValue(item)
			if !ok {
				return nil, typeFault("%s expects numbers, got %s", name, typeName(item))
			}
			if better(v, bestVal) {
				best = item
				bestVal = v
			}
		}
		return best, nil
	}
}

func randInt(lo, hi int64) int64 {
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + rand.Int63n(hi-lo+1)
}

// sortedListBy sorts using a key function, faulting if any key call
// fails or keys are incomparable.
func sortedListBy(in *Interpreter, list *List, keyFn Object) (Object, error) {
	type keyed struct {
		item Object
		key  Object
	}
	pairs := make([]keyed, len(list.Elements))
	for i, item := range list.Elements {
		key, err := in.callValue(keyFn, []Object{item})
		if err != nil {
			return nil, err
		}
		pairs[i] = keyed{item: item, key: key}
	}
	var sortErr error
	sort.SliceStable(pairs, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		a, b := pairs[i].key, pairs[j].key
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
	out := make([]Object, len(pairs))
	for i, p := range pairs {
		out[i] = p.item
	}
	return &List{Elements: out}, nil
}
