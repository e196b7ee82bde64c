package eval

import (
	"math"
	"strings"
	"time"

	"clarity/pkg/ast"
)

func (interp *Interpreter) evalExpression(expr ast.Expression, env *Environment) (Object, error) {
	switch node := expr.(type) {
	case *ast.IntegerLiteral:
		return &Integer{Value: node.Value}, nil
	case *ast.FloatLiteral:
		return &Float{Value: node.Value}, nil
	case *ast.StringLiteral:
		if node.Raw {
			return &String{Value: node.Value}, nil
		}
		return &String{Value: interp.interpolate(node.Value, env)}, nil
	case *ast.BoolLiteral:
		return boolObject(node.Value), nil
	case *ast.NullLiteral:
		return NULL, nil
	case *ast.Identifier:
		value, ok := env.Get(node.Value)
		if !ok {
			return nil, nameFault("'%s' is not defined — use 'let' to create it", node.Value)
		}
		return value, nil
	case *ast.ThisExpression:
		value, ok := env.Get("this")
		if !ok {
			return nil, runtimeFault("'this' outside a method")
		}
		return value, nil
	case *ast.ListLiteral:
		return interp.evalListLiteral(node, env)
	case *ast.MapLiteral:
		return interp.evalMapLiteral(node, env)
	case *ast.PrefixExpression:
		return interp.evalPrefix(node, env)
	case *ast.InfixExpression:
		return interp.evalInfix(node, env)
	case *ast.CallExpression:
		return interp.evalCall(node, env)
	case *ast.MemberExpression:
		obj, err := interp.EvalExpression(node.Object, env)
		if err != nil {
			return nil, err
		}
		return interp.accessMember(obj, node.Property)
	case *ast.OptionalMemberExpression:
		obj, err := interp.EvalExpression(node.Object, env)
		if err != nil {
			return nil, err
		}
		if _, isNull := obj.(*Null); isNull {
			return NULL, nil
		}
		value, err := interp.accessMember(obj, node.Property)
		if err != nil {
			return NULL, nil
		}
		return value, nil
	case *ast.IndexExpression:
		return interp.evalIndex(node, env)
	case *ast.SliceExpression:
		return interp.evalSlice(node, env)
	case *ast.FnExpression:
		return &Function{Params: node.Params, Body: node.Body, Env: env}, nil
	case *ast.PipeExpression:
		value, err := interp.EvalExpression(node.Value, env)
		if err != nil {
			return nil, err
		}
		// Piping into a call prepends the value to its arguments.
		if call, ok := node.Fn.(*ast.CallExpression); ok {
			callee, err := interp.EvalExpression(call.Callee, env)
			if err != nil {
				return nil, err
			}
			args := []Object{value}
			for _, argExpr := range call.Arguments {
				arg, err := interp.EvalExpression(argExpr, env)
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
			}
			return interp.callValueAt(callee, args, node.Token.Line)
		}
		fn, err := interp.EvalExpression(node.Fn, env)
		if err != nil {
			return nil, err
		}
		return interp.callValueAt(fn, []Object{value}, node.Token.Line)
	case *ast.RangeExpression:
		return interp.evalRange(node, env)
	case *ast.AskExpression:
		return interp.evalAsk(node, env)
	case *ast.CoalesceExpression:
		left, err := interp.EvalExpression(node.Left, env)
		if err != nil {
			return nil, err
		}
		if _, isNull := left.(*Null); !isNull {
			return left, nil
		}
		return interp.EvalExpression(node.Right, env)
	case *ast.IfExpression:
		cond, err := interp.EvalExpression(node.Condition, env)
		if err != nil {
			return nil, err
		}
		if isTruthy(cond) {
			return interp.EvalExpression(node.Then, env)
		}
		if node.Else != nil {
			return interp.EvalExpression(node.Else, env)
		}
		return NULL, nil
	case *ast.ComprehensionExpression:
		return interp.evalComprehension(node, env)
	case *ast.MapComprehensionExpression:
		return interp.evalMapComprehension(node, env)
	case *ast.AwaitExpression:
		value, err := interp.EvalExpression(node.Value, env)
		if err != nil {
			return nil, err
		}
		return interp.awaitValue(value)
	case *ast.YieldExpression:
		var value Object = NULL
		if node.Value != nil {
			v, err := interp.EvalExpression(node.Value, env)
			if err != nil {
				return nil, err
			}
			value = v
		}
		if interp.yieldSink == nil {
			return nil, runtimeFault("yield outside a generator")
		}
		*interp.yieldSink = append(*interp.yieldSink, value)
		return value, nil
	case *ast.SpreadExpression:
		return interp.EvalExpression(node.Value, env)
	}
	return nil, runtimeFault("Unknown expression %T", expr)
}

func (interp *Interpreter) evalListLiteral(node *ast.ListLiteral, env *Environment) (Object, error) {
	elements := []Object{}
	for _, el := range node.Elements {
		if spread, ok := el.(*ast.SpreadExpression); ok {
			value, err := interp.EvalExpression(spread.Value, env)
			if err != nil {
				return nil, err
			}
			switch v := value.(type) {
			case *List:
				elements = append(elements, v.Elements...)
			case *Set:
				elements = append(elements, v.Values()...)
			case *String:
				for _, r := range v.Value {
					elements = append(elements, &String{Value: string(r)})
				}
			default:
				return nil, typeFault("Cannot spread %s into a list", typeName(value))
			}
			continue
		}
		value, err := interp.EvalExpression(el, env)
		if err != nil {
			return nil, err
		}
		elements = append(elements, value)
	}
	return &List{Elements: elements}, nil
}

func (interp *Interpreter) evalMapLiteral(node *ast.MapLiteral, env *Environment) (Object, error) {
	m := NewMap()
	for _, pair := range node.Pairs {
		if pair.Key == nil {
			if spread, ok := pair.Value.(*ast.SpreadExpression); ok {
				value, err := interp.EvalExpression(spread.Value, env)
				if err != nil {
					return nil, err
				}
				source, ok := value.(*Map)
				if !ok {
					return nil, typeFault("Cannot spread %s into a map", typeName(value))
				}
				for _, hk := range source.Order {
					p := source.Pairs[hk]
					m.Set(p.Key, p.Value)
				}
				continue
			}
		}
		key, err := interp.EvalExpression(pair.Key, env)
		if err != nil {
			return nil, err
		}
		value, err := interp.EvalExpression(pair.Value, env)
		if err != nil {
			return nil, err
		}
		if err := m.Set(key, value); err != nil {
			return nil, typeFault("%s", err.Error())
		}
	}
	return m, nil
}

func (interp *Interpreter) evalPrefix(node *ast.PrefixExpression, env *Environment) (Object, error) {
	right, err := interp.EvalExpression(node.Right, env)
	if err != nil {
		return nil, err
	}
	switch node.Operator {
	case "-":
		switch v := right.(type) {
		case *Integer:
			return &Integer{Value: -v.Value}, nil
		case *Float:
			return &Float{Value: -v.Value}, nil
		}
		return nil, typeFault("Cannot negate %s", typeName(right))
	case "not", "!":
		return boolObject(!isTruthy(right)), nil
	case "~":
		v, ok := intValue(right)
		if !ok {
			return nil, typeFault("Cannot use '~' with %s", typeName(right))
		}
		return &Integer{Value: ^v}, nil
	}
	return nil, runtimeFault("Unknown prefix operator '%s'", node.Operator)
}

func (interp *Interpreter) evalInfix(node *ast.InfixExpression, env *Environment) (Object, error) {
	// and/or short-circuit and yield the deciding operand.
	switch node.Operator {
	case "and":
		left, err := interp.EvalExpression(node.Left, env)
		if err != nil {
			return nil, err
		}
		if !isTruthy(left) {
			return left, nil
		}
		return interp.EvalExpression(node.Right, env)
	case "or":
		left, err := interp.EvalExpression(node.Left, env)
		if err != nil {
			return nil, err
		}
		if isTruthy(left) {
			return left, nil
		}
		return interp.EvalExpression(node.Right, env)
	}
	left, err := interp.EvalExpression(node.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := interp.EvalExpression(node.Right, env)
	if err != nil {
		return nil, err
	}
	return interp.binaryOp(node.Operator, left, right, node.Token.Line)
}

func (interp *Interpreter) binaryOp(op string, left, right Object, line int) (Object, error) {
	switch op {
	case "+":
		if ls, ok := left.(*String); ok {
			return &String{Value: ls.Value + interp.displayOf(right)}, nil
		}
		if rs, ok := right.(*String); ok {
			return &String{Value: interp.displayOf(left) + rs.Value}, nil
		}
		if ll, ok := left.(*List); ok {
			if rl, ok := right.(*List); ok {
				out := make([]Object, 0, len(ll.Elements)+len(rl.Elements))
				out = append(out, ll.Elements...)
				out = append(out, rl.Elements...)
				return &List{Elements: out}, nil
			}
		}
		return interp.numericOp(op, left, right, line)
	case "-", "/", "%", "**":
		return interp.numericOp(op, left, right, line)
	case "*":
		if s, ok := left.(*String); ok {
			if n, ok := right.(*Integer); ok {
				return &String{Value: strings.Repeat(s.Value, clampRepeat(n.Value))}, nil
			}
		}
		if s, ok := right.(*String); ok {
			if n, ok := left.(*Integer); ok {
				return &String{Value: strings.Repeat(s.Value, clampRepeat(n.Value))}, nil
			}
		}
		if l, ok := left.(*List); ok {
			if n, ok := right.(*Integer); ok {
				return repeatList(l, n.Value), nil
			}
		}
		return interp.numericOp(op, left, right, line)
	case "==":
		return boolObject(objectsEqual(left, right)), nil
	case "!=":
		return boolObject(!objectsEqual(left, right)), nil
	case "<", "<=", ">", ">=":
		return interp.compareOp(op, left, right, line)
	case "is":
		if cls, ok := right.(*Class); ok {
			return boolObject(interp.checkType(left, cls.Name)), nil
		}
		return boolObject(objectsIdentical(left, right)), nil
	case "&", "|", "^", "<<", ">>":
		lv, lok := intValue(left)
		rv, rok := intValue(right)
		if !lok || !rok {
			return nil, &Fault{Class: "TypeError", Line: line,
				Message: "Cannot use '" + op + "' with " + typeName(left) + " and " + typeName(right)}
		}
		switch op {
		case "&":
			return &Integer{Value: lv & rv}, nil
		case "|":
			return &Integer{Value: lv | rv}, nil
		case "^":
			return &Integer{Value: lv ^ rv}, nil
		case "<<":
			if rv < 0 {
				return nil, runtimeFault("Negative shift count")
			}
			return &Integer{Value: lv << uint(rv)}, nil
		case ">>":
			if rv < 0 {
				return nil, runtimeFault("Negative shift count")
			}
			return &Integer{Value: lv >> uint(rv)}, nil
		}
	}
	return nil, runtimeFault("Unknown operator '%s'", op)
}

func clampRepeat(n int64) int {
	if n < 0 {
		return 0
	}
	return int(n)
}

func repeatList(l *List, n int64) *List {
	out := []Object{}
	for i := int64(0); i < n; i++ {
		out = append(out, l.Elements...)
	}
	return &List{Elements: out}
}

func (interp *Interpreter) numericOp(op string, left, right Object, line int) (Object, error) {
	lf, lok := numericValue(left)
	rf, rok := numericValue(right)
	if !lok || !rok {
		return nil, &Fault{Class: "TypeError", Line: line,
			Message: "Cannot use '" + op + "' with " + typeName(left) + " and " + typeName(right)}
	}
	li, leftIsInt := left.(*Integer)
	ri, rightIsInt := right.(*Integer)
	bothInt := leftIsInt && rightIsInt

	switch op {
	case "+":
		if bothInt {
			return &Integer{Value: li.Value + ri.Value}, nil
		}
		return &Float{Value: lf + rf}, nil
	case "-":
		if bothInt {
			return &Integer{Value: li.Value - ri.Value}, nil
		}
		return &Float{Value: lf - rf}, nil
	case "*":
		if bothInt {
			return &Integer{Value: li.Value * ri.Value}, nil
		}
		return &Float{Value: lf * rf}, nil
	case "/":
		if rf == 0 {
			return nil, &Fault{Class: "RuntimeError", Message: "Division by zero", Line: line}
		}
		if bothInt && li.Value%ri.Value == 0 {
			return &Integer{Value: li.Value / ri.Value}, nil
		}
		return &Float{Value: lf / rf}, nil
	case "%":
		if rf == 0 {
			return nil, &Fault{Class: "RuntimeError", Message: "Division by zero", Line: line}
		}
		if bothInt {
			return &Integer{Value: floorMod(li.Value, ri.Value)}, nil
		}
		m := math.Mod(lf, rf)
		if m != 0 && (m < 0) != (rf < 0) {
			m += rf
		}
		return &Float{Value: m}, nil
	case "**":
		if bothInt && ri.Value >= 0 {
			return &Integer{Value: intPow(li.Value, ri.Value)}, nil
		}
		return &Float{Value: math.Pow(lf, rf)}, nil
	}
	return nil, runtimeFault("Unknown operator '%s'", op)
}

// floorMod matches the sign-of-divisor modulo the language defines.
func floorMod(a, b int64) int64 {
	m := a % b
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}

func intPow(base, exp int64) int64 {
	var result int64 = 1
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

func (interp *Interpreter) compareOp(op string, left, right Object, line int) (Object, error) {
	if ls, ok := left.(*String); ok {
		if rs, ok := right.(*String); ok {
			switch op {
			case "<":
				return boolObject(ls.Value < rs.Value), nil
			case "<=":
				return boolObject(ls.Value <= rs.Value), nil
			case ">":
				return boolObject(ls.Value > rs.Value), nil
			case ">=":
				return boolObject(ls.Value >= rs.Value), nil
			}
		}
	}
	lf, lok := numericValue(left)
	rf, rok := numericValue(right)
	if !lok || !rok {
		return nil, &Fault{Class: "TypeError", Line: line,
			Message: "Cannot use '" + op + "' with " + typeName(left) + " and " + typeName(right)}
	}
	switch op {
	case "<":
		return boolObject(lf < rf), nil
	case "<=":
		return boolObject(lf <= rf), nil
	case ">":
		return boolObject(lf > rf), nil
	case ">=":
		return boolObject(lf >= rf), nil
	}
	return nil, runtimeFault("Unknown operator '%s'", op)
}

// objectsIdentical is the is operator: reference identity for
// collections and callables, value identity for primitives.
func objectsIdentical(a, b Object) bool {
	switch a.(type) {
	case *Null, *Boolean, *Integer, *Float, *String:
		if a.Kind() != b.Kind() {
			return false
		}
		return objectsEqual(a, b)
	}
	return a == b
}

func (interp *Interpreter) evalIndex(node *ast.IndexExpression, env *Environment) (Object, error) {
	obj, err := interp.EvalExpression(node.Object, env)
	if err != nil {
		return nil, err
	}
	index, err := interp.EvalExpression(node.Index, env)
	if err != nil {
		return nil, err
	}
	switch recv := obj.(type) {
	case *List:
		i, ok := index.(*Integer)
		if !ok {
			return nil, typeFault("List index must be a number, got %s", typeName(index))
		}
		pos := i.Value
		if pos < 0 {
			pos += int64(len(recv.Elements))
		}
		if pos < 0 || pos >= int64(len(recv.Elements)) {
			return nil, indexFault("Index %d out of bounds (list has %d items)", i.Value, len(recv.Elements))
		}
		return recv.Elements[pos], nil
	case *String:
		i, ok := index.(*Integer)
		if !ok {
			return nil, typeFault("String index must be a number")
		}
		runes := []rune(recv.Value)
		pos := i.Value
		if pos < 0 {
			pos += int64(len(runes))
		}
		if pos < 0 || pos >= int64(len(runes)) {
			return nil, indexFault("Index %d out of bounds", i.Value)
		}
		return &String{Value: string(runes[pos])}, nil
	case *Map:
		value, found := recv.Get(index)
		if !found {
			return NULL, nil
		}
		return value, nil
	}
	return nil, typeFault("Cannot index %s", typeName(obj))
}

func (interp *Interpreter) evalSlice(node *ast.SliceExpression, env *Environment) (Object, error) {
	obj, err := interp.EvalExpression(node.Object, env)
	if err != nil {
		return nil, err
	}
	evalBound := func(expr ast.Expression, fallback int64) (int64, error) {
		if expr == nil {
			return fallback, nil
		}
		value, err := interp.EvalExpression(expr, env)
		if err != nil {
			return 0, err
		}
		i, ok := value.(*Integer)
		if !ok {
			return 0, typeFault("Slice bound must be an int, got %s", typeName(value))
		}
		return i.Value, nil
	}

	slice := func(length int64) (int64, int64, error) {
		start, err := evalBound(node.Start, 0)
		if err != nil {
			return 0, 0, err
		}
		end, err := evalBound(node.End, length)
		if err != nil {
			return 0, 0, err
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

	switch recv := obj.(type) {
	case *List:
		start, end, err := slice(int64(len(recv.Elements)))
		if err != nil {
			return nil, err
		}
		return &List{Elements: append([]Object{}, recv.Elements[start:end]...)}, nil
	case *String:
		runes := []rune(recv.Value)
		start, end, err := slice(int64(len(runes)))
		if err != nil {
			return nil, err
		}
		return &String{Value: string(runes[start:end])}, nil
	}
	return nil, typeFault("Cannot slice %s", typeName(obj))
}

func (interp *Interpreter) evalRange(node *ast.RangeExpression, env *Environment) (Object, error) {
	startObj, err := interp.EvalExpression(node.Start, env)
	if err != nil {
		return nil, err
	}
	endObj, err := interp.EvalExpression(node.End, env)
	if err != nil {
		return nil, err
	}
	start, sok := startObj.(*Integer)
	end, eok := endObj.(*Integer)
	if !sok || !eok {
		return nil, typeFault("Range bounds must be ints, got %s and %s", typeName(startObj), typeName(endObj))
	}
	elements := []Object{}
	for i := start.Value; i < end.Value; i++ {
		elements = append(elements, &Integer{Value: i})
	}
	return &List{Elements: elements}, nil
}

func (interp *Interpreter) evalAsk(node *ast.AskExpression, env *Environment) (Object, error) {
	if node.Prompt != nil {
		prompt, err := interp.EvalExpression(node.Prompt, env)
		if err != nil {
			return nil, err
		}
		interp.Stdout.Write([]byte(interp.displayOf(prompt)))
	}
	line, err := interp.readLine()
	if err != nil {
		return NULL, nil
	}
	return &String{Value: line}, nil
}

func (interp *Interpreter) evalCall(node *ast.CallExpression, env *Environment) (Object, error) {
	callee, err := interp.EvalExpression(node.Callee, env)
	if err != nil {
		return nil, err
	}
	args := []Object{}
	for _, argExpr := range node.Arguments {
		if spread, ok := argExpr.(*ast.SpreadExpression); ok {
			value, err := interp.EvalExpression(spread.Value, env)
			if err != nil {
				return nil, err
			}
			list, ok := value.(*List)
			if !ok {
				return nil, typeFault("Cannot spread %s into arguments", typeName(value))
			}
			args = append(args, list.Elements...)
			continue
		}
		value, err := interp.EvalExpression(argExpr, env)
		if err != nil {
			return nil, err
		}
		args = append(args, value)
	}
	return interp.callValueAt(callee, args, node.Token.Line)
}

func (interp *Interpreter) evalComprehension(node *ast.ComprehensionExpression, env *Environment) (Object, error) {
	iterable, err := interp.EvalExpression(node.Iterable, env)
	if err != nil {
		return nil, err
	}
	items, err := iterableItems(iterable)
	if err != nil {
		return nil, err
	}
	out := []Object{}
	for _, item := range items {
		itemEnv := NewEnclosedEnvironment(env)
		itemEnv.Declare(node.Variable, item, true)
		if node.Condition != nil {
			cond, err := interp.EvalExpression(node.Condition, itemEnv)
			if err != nil {
				return nil, err
			}
			if !isTruthy(cond) {
				continue
			}
		}
		value, err := interp.EvalExpression(node.Expr, itemEnv)
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return &List{Elements: out}, nil
}

func (interp *Interpreter) evalMapComprehension(node *ast.MapComprehensionExpression, env *Environment) (Object, error) {
	iterable, err := interp.EvalExpression(node.Iterable, env)
	if err != nil {
		return nil, err
	}
	out := NewMap()
	emit := func(itemEnv *Environment) error {
		if node.Condition != nil {
			cond, err := interp.EvalExpression(node.Condition, itemEnv)
			if err != nil {
				return err
			}
			if !isTruthy(cond) {
				return nil
			}
		}
		key, err := interp.EvalExpression(node.KeyExpr, itemEnv)
		if err != nil {
			return err
		}
		value, err := interp.EvalExpression(node.ValueExpr, itemEnv)
		if err != nil {
			return err
		}
		if err := out.Set(key, value); err != nil {
			return typeFault("%s", err.Error())
		}
		return nil
	}

	items, err := iterableItems(iterable)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		itemEnv := NewEnclosedEnvironment(env)
		if len(node.Variables) > 1 {
			// Positional destructuring over entry pairs.
			if pair, ok := item.(*List); ok {
				for i, name := range node.Variables {
					var bound Object = NULL
					if i < len(pair.Elements) {
						bound = pair.Elements[i]
					}
					itemEnv.Declare(name, bound, true)
				}
			} else {
				itemEnv.Declare(node.Variables[0], item, true)
			}
		} else {
			itemEnv.Declare(node.Variables[0], item, true)
		}
		if err := emit(itemEnv); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// iterableItems flattens an iterable into a slice of items: list
// elements, string characters, set values, or map keys.
func iterableItems(obj Object) ([]Object, error) {
	switch it := obj.(type) {
	case *List:
		return it.Elements, nil
	case *String:
		out := make([]Object, 0, len(it.Value))
		for _, r := range it.Value {
			out = append(out, &String{Value: string(r)})
		}
		return out, nil
	case *Set:
		return it.Values(), nil
	case *Map:
		out := make([]Object, 0, it.Len())
		for _, hk := range it.Order {
			out = append(out, it.Pairs[hk].Key)
		}
		return out, nil
	}
	return nil, typeFault("Cannot iterate over %s", typeName(obj))
}

// awaitValue resolves a future with a timeout; any other value awaits
// to itself.
func (interp *Interpreter) awaitValue(value Object) (Object, error) {
	future, ok := value.(*Future)
	if !ok {
		return value, nil
	}
	select {
	case <-future.Done():
		return future.Result()
	case <-time.After(30 * time.Second):
		return nil, runtimeFault("Await timed out after 30 seconds")
	}
}
