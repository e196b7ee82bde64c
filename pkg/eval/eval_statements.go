package eval

import (
	"fmt"
	"strings"

	"clarity/pkg/ast"
)

// execStatement runs one statement. The returned object is NULL for
// ordinary statements, the expression's value for expression
// statements, and a control signal (ReturnValue, BreakSignal,
// ContinueSignal) when one is propagating.
func (interp *Interpreter) execStatement(stmt ast.Statement, env *Environment) (Object, error) {
	switch node := stmt.(type) {
	case *ast.LetStatement:
		return interp.execLet(node, env)
	case *ast.DestructureLetStatement:
		return interp.execDestructureLet(node, env)
	case *ast.AssignStatement:
		return interp.execAssign(node, env)
	case *ast.MultiAssignStatement:
		return interp.execMultiAssign(node, env)
	case *ast.FnStatement:
		fn := &Function{Name: node.Name, Params: node.Params, Body: node.Body, Env: env, IsAsync: node.IsAsync}
		// Declaration names (fn, class, interface, enum) rebind without
		// mut.
		env.Declare(node.Name, fn, true)
		return NULL, nil
	case *ast.ReturnStatement:
		var value Object = NULL
		if node.Value != nil {
			v, err := interp.EvalExpression(node.Value, env)
			if err != nil {
				return nil, err
			}
			value = v
		}
		return &ReturnValue{Value: value}, nil
	case *ast.IfStatement:
		return interp.execIf(node, env)
	case *ast.ForStatement:
		return interp.execFor(node, env)
	case *ast.WhileStatement:
		return interp.execWhile(node, env)
	case *ast.TryStatement:
		return interp.execTry(node, env)
	case *ast.BreakStatement:
		return BREAK, nil
	case *ast.ContinueStatement:
		return CONTINUE, nil
	case *ast.ThrowStatement:
		value, err := interp.EvalExpression(node.Value, env)
		if err != nil {
			return nil, err
		}
		return nil, &Fault{Class: "Throw", Message: interp.displayOf(value), Value: value, Line: node.Token.Line}
	case *ast.ShowStatement:
		parts := make([]string, 0, len(node.Values))
		for _, expr := range node.Values {
			value, err := interp.EvalExpression(expr, env)
			if err != nil {
				return nil, err
			}
			parts = append(parts, interp.displayOf(value))
		}
		line := strings.Join(parts, " ")
		fmt.Fprintln(interp.Stdout, line)
		interp.Output = append(interp.Output, line)
		return NULL, nil
	case *ast.ImportStatement:
		return interp.execImport(node, env)
	case *ast.ClassStatement:
		return interp.execClass(node, env)
	case *ast.InterfaceStatement:
		iface := &Interface{Name: node.Name, Methods: map[string][]string{}}
		for _, sig := range node.MethodSigs {
			params := make([]string, len(sig.Params))
			for i, p := range sig.Params {
				params[i] = p.Name
			}
			iface.Methods[sig.Name] = params
		}
		env.Declare(node.Name, iface, true)
		return NULL, nil
	case *ast.EnumStatement:
		return interp.execEnum(node, env)
	case *ast.MatchStatement:
		return interp.execMatch(node, env)
	case *ast.DecoratedStatement:
		return interp.execDecorated(node, env)
	case *ast.ExpressionStatement:
		return interp.EvalExpression(node.Expression, env)
	case *ast.Block:
		return interp.execBlock(node, NewEnclosedEnvironment(env))
	}
	return nil, runtimeFault("Unknown statement %T", stmt)
}

// execBlock runs statements in env. The caller decides whether env is
// a fresh child scope.
func (interp *Interpreter) execBlock(block *ast.Block, env *Environment) (Object, error) {
	for _, stmt := range block.Statements {
		result, err := interp.ExecStatement(stmt, env)
		if err != nil {
			return nil, err
		}
		switch result.(type) {
		case *ReturnValue, *BreakSignal, *ContinueSignal:
			return result, nil
		}
	}
	return NULL, nil
}

func (interp *Interpreter) execLet(node *ast.LetStatement, env *Environment) (Object, error) {
	var value Object = NULL
	if node.Value != nil {
		v, err := interp.EvalExpression(node.Value, env)
		if err != nil {
			return nil, err
		}
		value = v
	}
	if node.TypeAnnotation != "" && !interp.checkType(value, node.TypeAnnotation) {
		return nil, typeFault("'%s' expects %s, got %s", node.Name, node.TypeAnnotation, typeName(value))
	}
	env.Declare(node.Name, value, node.Mutable)
	return NULL, nil
}

func (interp *Interpreter) execDestructureLet(node *ast.DestructureLetStatement, env *Environment) (Object, error) {
	value, err := interp.EvalExpression(node.Value, env)
	if err != nil {
		return nil, err
	}
	if node.Kind == "map" {
		m, ok := value.(*Map)
		if !ok {
			return nil, typeFault("Cannot destructure non-map into map pattern")
		}
		taken := map[HashKey]struct{}{}
		for _, target := range node.Targets {
			if target.Rest {
				continue
			}
			key := &String{Value: target.Name}
			bound, found := m.Get(key)
			if !found {
				bound = NULL
			} else {
				taken[key.HashKey()] = struct{}{}
			}
			env.Declare(target.Name, bound, node.Mutable)
		}
		for _, target := range node.Targets {
			if !target.Rest {
				continue
			}
			rest := NewMap()
			for _, hk := range m.Order {
				if _, skip := taken[hk]; skip {
					continue
				}
				pair := m.Pairs[hk]
				rest.Set(pair.Key, pair.Value)
			}
			env.Declare(target.Name, rest, node.Mutable)
		}
		return NULL, nil
	}

	list, ok := value.(*List)
	if !ok {
		return nil, typeFault("Cannot destructure non-list into list pattern")
	}
	idx := 0
	for i, target := range node.Targets {
		if target.Rest {
			remaining := len(node.Targets) - i - 1
			take := len(list.Elements) - remaining
			if take < idx {
				take = idx
			}
			rest := &List{Elements: append([]Object{}, list.Elements[idx:take]...)}
			env.Declare(target.Name, rest, node.Mutable)
			idx = take
			continue
		}
		if idx < len(list.Elements) {
			env.Declare(target.Name, list.Elements[idx], node.Mutable)
		} else {
			env.Declare(target.Name, NULL, node.Mutable)
		}
		idx++
	}
	return NULL, nil
}

func (interp *Interpreter) execAssign(node *ast.AssignStatement, env *Environment) (Object, error) {
	value, err := interp.EvalExpression(node.Value, env)
	if err != nil {
		return nil, err
	}
	if node.Operator != "=" {
		current, err := interp.evalAssignTarget(node.Target, env)
		if err != nil {
			return nil, err
		}
		op := strings.TrimSuffix(node.Operator, "=")
		combined, err := interp.binaryOp(op, current, value, node.Token.Line)
		if err != nil {
			return nil, err
		}
		value = combined
	}
	return NULL, interp.assignTo(node.Target, value, env)
}

// evalAssignTarget reads the current value of an assignment target for
// compound operators.
func (interp *Interpreter) evalAssignTarget(target ast.Expression, env *Environment) (Object, error) {
	return interp.EvalExpression(target, env)
}

func (interp *Interpreter) assignTo(target ast.Expression, value Object, env *Environment) error {
	switch t := target.(type) {
	case *ast.Identifier:
		return env.Assign(t.Value, value)
	case *ast.MemberExpression:
		obj, err := interp.EvalExpression(t.Object, env)
		if err != nil {
			return err
		}
		switch recv := obj.(type) {
		case *Instance:
			return recv.Properties.Set(&String{Value: t.Property}, value)
		case *Map:
			return recv.Set(&String{Value: t.Property}, value)
		}
		return typeFault("Cannot set property '%s' on %s", t.Property, typeName(obj))
	case *ast.IndexExpression:
		obj, err := interp.EvalExpression(t.Object, env)
		if err != nil {
			return err
		}
		index, err := interp.EvalExpression(t.Index, env)
		if err != nil {
			return err
		}
		switch recv := obj.(type) {
		case *List:
			i, ok := index.(*Integer)
			if !ok {
				return typeFault("List index must be an int, got %s", typeName(index))
			}
			pos := i.Value
			if pos < 0 {
				pos += int64(len(recv.Elements))
			}
			if pos < 0 || pos >= int64(len(recv.Elements)) {
				return indexFault("List index %d out of range", i.Value)
			}
			recv.Elements[pos] = value
			return nil
		case *Map:
			return recv.Set(index, value)
		}
		return typeFault("Cannot index-assign into %s", typeName(obj))
	case *ast.ThisExpression:
		return runtimeFault("Cannot assign to 'this'")
	}
	return runtimeFault("Invalid assignment target")
}

func (interp *Interpreter) execMultiAssign(node *ast.MultiAssignStatement, env *Environment) (Object, error) {
	values := make([]Object, len(node.Values))
	for i, expr := range node.Values {
		v, err := interp.EvalExpression(expr, env)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	if len(values) == 1 {
		if list, ok := values[0].(*List); ok && len(node.Targets) > 1 {
			if len(list.Elements) != len(node.Targets) {
				return nil, runtimeFault("Cannot unpack %d values into %d targets", len(list.Elements), len(node.Targets))
			}
			values = list.Elements
		}
	}
	if len(values) != len(node.Targets) {
		return nil, runtimeFault("Cannot unpack %d values into %d targets", len(values), len(node.Targets))
	}
	for i, target := range node.Targets {
		if err := interp.assignTo(target, values[i], env); err != nil {
			return nil, err
		}
	}
	return NULL, nil
}

func (interp *Interpreter) execIf(node *ast.IfStatement, env *Environment) (Object, error) {
	cond, err := interp.EvalExpression(node.Condition, env)
	if err != nil {
		return nil, err
	}
	if isTruthy(cond) {
		return interp.execBlock(node.Body, NewEnclosedEnvironment(env))
	}
	for _, clause := range node.ElifClauses {
		cond, err := interp.EvalExpression(clause.Condition, env)
		if err != nil {
			return nil, err
		}
		if isTruthy(cond) {
			return interp.execBlock(clause.Body, NewEnclosedEnvironment(env))
		}
	}
	if node.ElseBody != nil {
		return interp.execBlock(node.ElseBody, NewEnclosedEnvironment(env))
	}
	return NULL, nil
}

func (interp *Interpreter) execFor(node *ast.ForStatement, env *Environment) (Object, error) {
	iterable, err := interp.EvalExpression(node.Iterable, env)
	if err != nil {
		return nil, err
	}

	runBody := func(bind func(*Environment)) (Object, bool, error) {
		loopEnv := NewEnclosedEnvironment(env)
		bind(loopEnv)
		result, err := interp.execBlock(node.Body, loopEnv)
		if err != nil {
			return nil, false, err
		}
		switch result.(type) {
		case *BreakSignal:
			return NULL, false, nil
		case *ContinueSignal:
			return NULL, true, nil
		case *ReturnValue:
			return result, false, nil
		}
		return nil, true, nil
	}

	iterate := func(items []Object) (Object, error) {
		for _, item := range items {
			item := item
			result, keepGoing, err := runBody(func(loopEnv *Environment) {
				loopEnv.Declare(node.Variables[0], item, true)
			})
			if err != nil {
				return nil, err
			}
			if result != nil {
				if _, isReturn := result.(*ReturnValue); isReturn {
					return result, nil
				}
			}
			if !keepGoing {
				break
			}
		}
		return NULL, nil
	}

	switch it := iterable.(type) {
	case *List:
		return iterate(it.Elements)
	case *String:
		chars := make([]Object, 0, len(it.Value))
		for _, r := range it.Value {
			chars = append(chars, &String{Value: string(r)})
		}
		return iterate(chars)
	case *Set:
		return iterate(it.Values())
	case *Map:
		if len(node.Variables) == 2 {
			for _, hk := range append([]HashKey{}, it.Order...) {
				pair := it.Pairs[hk]
				result, keepGoing, err := runBody(func(loopEnv *Environment) {
					loopEnv.Declare(node.Variables[0], pair.Key, true)
					loopEnv.Declare(node.Variables[1], pair.Value, true)
				})
				if err != nil {
					return nil, err
				}
				if result != nil {
					if _, isReturn := result.(*ReturnValue); isReturn {
						return result, nil
					}
				}
				if !keepGoing {
					break
				}
			}
			return NULL, nil
		}
		keys := make([]Object, 0, it.Len())
		for _, hk := range it.Order {
			keys = append(keys, it.Pairs[hk].Key)
		}
		return iterate(keys)
	}
	return nil, typeFault("Cannot iterate over %s", typeName(iterable))
}

func (interp *Interpreter) execWhile(node *ast.WhileStatement, env *Environment) (Object, error) {
	for {
		cond, err := interp.EvalExpression(node.Condition, env)
		if err != nil {
			return nil, err
		}
		if !isTruthy(cond) {
			return NULL, nil
		}
		result, err := interp.execBlock(node.Body, NewEnclosedEnvironment(env))
		if err != nil {
			return nil, err
		}
		switch result.(type) {
		case *BreakSignal:
			return NULL, nil
		case *ContinueSignal:
			continue
		case *ReturnValue:
			return result, nil
		}
	}
}

func (interp *Interpreter) execTry(node *ast.TryStatement, env *Environment) (Object, error) {
	result, err := interp.execBlock(node.TryBody, NewEnclosedEnvironment(env))
	if err != nil {
		var fault *Fault
		if f, ok := err.(*Fault); ok {
			fault = f
		} else {
			fault = runtimeFault("%s", err.Error())
		}
		if node.CatchBody != nil {
			catchEnv := NewEnclosedEnvironment(env)
			if node.CatchVar != "" {
				catchEnv.Declare(node.CatchVar, fault.Bound(), true)
			}
			result, err = interp.execBlock(node.CatchBody, catchEnv)
		}
	}
	if node.FinallyBody != nil {
		finResult, finErr := interp.execBlock(node.FinallyBody, NewEnclosedEnvironment(env))
		if finErr != nil {
			return nil, finErr
		}
		switch finResult.(type) {
		case *ReturnValue, *BreakSignal, *ContinueSignal:
			return finResult, nil
		}
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (interp *Interpreter) execClass(node *ast.ClassStatement, env *Environment) (Object, error) {
	cls := &Class{Name: node.Name, Methods: map[string]*Function{}, Interfaces: node.Interfaces}
	if node.Parent != "" {
		parentObj, ok := env.Get(node.Parent)
		if !ok {
			return nil, nameFault("'%s' is not defined — use 'let' to create it", node.Parent)
		}
		parent, ok := parentObj.(*Class)
		if !ok {
			return nil, typeFault("'%s' is not a class", node.Parent)
		}
		cls.Parent = parent
	}
	for _, method := range node.Methods {
		cls.Methods[method.Name] = &Function{
			Name:    method.Name,
			Params:  method.Params,
			Body:    method.Body,
			Env:     env,
			IsAsync: method.IsAsync,
		}
	}
	for _, ifaceName := range node.Interfaces {
		ifaceObj, ok := env.Get(ifaceName)
		if !ok {
			return nil, nameFault("'%s' is not defined — use 'let' to create it", ifaceName)
		}
		iface, ok := ifaceObj.(*Interface)
		if !ok {
			return nil, typeFault("'%s' is not an interface", ifaceName)
		}
		for methodName := range iface.Methods {
			if _, found := cls.FindMethod(methodName); !found {
				return nil, typeFault("Class '%s' does not implement '%s' from interface '%s'", node.Name, methodName, ifaceName)
			}
		}
	}
	env.Declare(node.Name, cls, true)
	return NULL, nil
}

func (interp *Interpreter) execEnum(node *ast.EnumStatement, env *Environment) (Object, error) {
	enum := &Enum{Name: node.Name, Members: map[string]Object{}}
	for i, member := range node.Members {
		var value Object
		if member.Value != nil {
			v, err := interp.EvalExpression(member.Value, env)
			if err != nil {
				return nil, err
			}
			value = v
		} else {
			value = &Integer{Value: int64(i)}
		}
		enum.Members[member.Name] = value
		enum.Order = append(enum.Order, member.Name)
	}
	env.Declare(node.Name, enum, true)
	return NULL, nil
}

func (interp *Interpreter) execMatch(node *ast.MatchStatement, env *Environment) (Object, error) {
	subject, err := interp.EvalExpression(node.Subject, env)
	if err != nil {
		return nil, err
	}
	for _, arm := range node.Arms {
		for _, valueExpr := range arm.Values {
			value, err := interp.EvalExpression(valueExpr, env)
			if err != nil {
				return nil, err
			}
			if objectsEqual(subject, value) {
				return interp.execBlock(arm.Body, NewEnclosedEnvironment(env))
			}
		}
	}
	if node.Default != nil {
		return interp.execBlock(node.Default, NewEnclosedEnvironment(env))
	}
	return NULL, nil
}

// execDecorated defines the target, then rewraps it through each
// decorator from the innermost out.
func (interp *Interpreter) execDecorated(node *ast.DecoratedStatement, env *Environment) (Object, error) {
	if _, err := interp.ExecStatement(node.Target, env); err != nil {
		return nil, err
	}
	var name string
	switch target := node.Target.(type) {
	case *ast.FnStatement:
		name = target.Name
	case *ast.ClassStatement:
		name = target.Name
	default:
		return nil, runtimeFault("Decorators require a function or class")
	}
	current, _ := env.Get(name)
	for i := len(node.Decorators) - 1; i >= 0; i-- {
		decorator, err := interp.EvalExpression(node.Decorators[i], env)
		if err != nil {
			return nil, err
		}
		wrapped, err := interp.callValue(decorator, []Object{current})
		if err != nil {
			return nil, err
		}
		current = wrapped
	}
	env.Declare(name, current, true)
	return NULL, nil
}
