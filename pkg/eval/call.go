package eval

import (
	"clarity/pkg/ast"
)

// callValue dispatches a call on any callable: functions, builtins,
// classes (construction) and enums (reverse lookup).
func (interp *Interpreter) callValue(callee Object, args []Object) (Object, error) {
	return interp.callValueAt(callee, args, 0)
}

// callValueAt is callValue with the call-site line. Function calls
// push a diagnostic frame for the duration of the call; a fault that
// escapes captures the trace before the frames unwind.
func (interp *Interpreter) callValueAt(callee Object, args []Object, line int) (result Object, err error) {
	switch fn := callee.(type) {
	case *Class:
		return interp.instantiate(fn, args)
	case *Function:
		name := fn.Name
		if name == "" {
			name = "<anonymous>"
		}
		interp.pushFrame(name, line)
		switch {
		case hasYield(fn.Body):
			result, err = interp.runGenerator(fn, args)
		case fn.IsAsync:
			result, err = interp.runAsync(fn, args), nil
		default:
			result, err = interp.callFunction(fn, args)
		}
		if fault, ok := err.(*Fault); ok && fault.Stack == "" {
			fault.Stack = interp.StackTrace()
		}
		interp.popFrame()
		return result, err
	case *Builtin:
		defer func() {
			if r := recover(); r != nil {
				result = nil
				err = runtimeFault("%v", r)
			}
		}()
		value, callErr := fn.Fn(interp, args)
		if callErr != nil {
			if fault, ok := callErr.(*Fault); ok {
				return nil, fault
			}
			return nil, runtimeFault("%s", callErr.Error())
		}
		return value, nil
	case *Enum:
		if len(args) != 1 {
			return nil, runtimeFault("%s expects 1 argument, got %d", fn.Name, len(args))
		}
		for _, name := range fn.Order {
			if objectsEqual(fn.Members[name], args[0]) {
				return &String{Value: name}, nil
			}
		}
		return NULL, nil
	}
	return nil, typeFault("Cannot call %s", typeName(callee))
}

// callFunction runs a plain function body in a scope enclosing its
// closure environment.
func (interp *Interpreter) callFunction(fn *Function, args []Object) (Object, error) {
	env, err := interp.bindParams(fn, args)
	if err != nil {
		return nil, err
	}
	result, err := interp.execBlock(fn.Body, env)
	if err != nil {
		return nil, err
	}
	if ret, ok := result.(*ReturnValue); ok {
		return ret.Value, nil
	}
	return NULL, nil
}

func (interp *Interpreter) bindParams(fn *Function, args []Object) (*Environment, error) {
	hasRest := false
	for _, p := range fn.Params {
		if p.Rest {
			hasRest = true
		}
	}
	if !hasRest && len(args) != len(fn.Params) {
		name := fn.Name
		if name == "" {
			name = "function"
		}
		return nil, runtimeFault("%s expects %d arguments, got %d", name, len(fn.Params), len(args))
	}

	env := NewEnclosedEnvironment(fn.Env)
	if fn.This != nil {
		env.Declare("this", fn.This, true)
	}
	idx := 0
	for i, param := range fn.Params {
		if param.Rest {
			remaining := len(fn.Params) - i - 1
			take := len(args) - remaining
			if take < idx {
				take = idx
			}
			env.Declare(param.Name, &List{Elements: append([]Object{}, args[idx:take]...)}, true)
			idx = take
			continue
		}
		var value Object = NULL
		if idx < len(args) {
			value = args[idx]
		}
		if param.Type != "" && !interp.checkType(value, param.Type) {
			return nil, typeFault("'%s' expects %s, got %s", param.Name, param.Type, typeName(value))
		}
		env.Declare(param.Name, value, true)
		idx++
	}
	return env, nil
}

// instantiate builds an instance and runs init when the class defines
// one. Construction pads missing init arguments with null instead of
// faulting.
func (interp *Interpreter) instantiate(cls *Class, args []Object) (Object, error) {
	inst := &Instance{Class: cls, Properties: NewMap()}
	init, found := cls.FindMethod("init")
	if !found {
		return inst, nil
	}
	padded := args
	if len(padded) < len(init.Params) {
		padded = append(append([]Object{}, args...), make([]Object, 0)...)
		for len(padded) < len(init.Params) {
			padded = append(padded, NULL)
		}
	}
	if len(padded) > len(init.Params) {
		hasRest := false
		for _, p := range init.Params {
			if p.Rest {
				hasRest = true
			}
		}
		if !hasRest {
			padded = padded[:len(init.Params)]
		}
	}
	if _, err := interp.callFunction(init.Bind(inst), padded); err != nil {
		return nil, err
	}
	return inst, nil
}

// runGenerator executes the body eagerly, collecting yielded values
// into a list. A return inside a generator ends collection; its value
// is discarded.
func (interp *Interpreter) runGenerator(fn *Function, args []Object) (Object, error) {
	env, err := interp.bindParams(fn, args)
	if err != nil {
		return nil, err
	}
	collected := []Object{}
	saved := interp.yieldSink
	interp.yieldSink = &collected
	_, err = interp.execBlock(fn.Body, env)
	interp.yieldSink = saved
	if err != nil {
		return nil, err
	}
	return &List{Elements: collected}, nil
}

// runAsync schedules the call on the worker pool and returns a future.
func (interp *Interpreter) runAsync(fn *Function, args []Object) *Future {
	future := NewFuture()
	call := *fn
	call.IsAsync = false
	interp.pool.submit(func() {
		value, err := interp.callValue(&call, args)
		future.Resolve(value, err)
	})
	return future
}

// hasYield statically detects generator bodies. Yields inside nested
// function literals belong to those functions, so only statement-level
// structure is walked.
func hasYield(block *ast.Block) bool {
	if block == nil {
		return false
	}
	for _, stmt := range block.Statements {
		if stmtHasYield(stmt) {
			return true
		}
	}
	return false
}

func stmtHasYield(stmt ast.Statement) bool {
	switch node := stmt.(type) {
	case *ast.ExpressionStatement:
		return exprIsYield(node.Expression)
	case *ast.ReturnStatement:
		return exprIsYield(node.Value)
	case *ast.IfStatement:
		if hasYield(node.Body) || hasYield(node.ElseBody) {
			return true
		}
		for _, clause := range node.ElifClauses {
			if hasYield(clause.Body) {
				return true
			}
		}
		return false
	case *ast.ForStatement:
		return hasYield(node.Body)
	case *ast.WhileStatement:
		return hasYield(node.Body)
	case *ast.TryStatement:
		return hasYield(node.TryBody) || hasYield(node.CatchBody) || hasYield(node.FinallyBody)
	case *ast.MatchStatement:
		for _, arm := range node.Arms {
			if hasYield(arm.Body) {
				return true
			}
		}
		return hasYield(node.Default)
	case *ast.Block:
		return hasYield(node)
	}
	return false
}

func exprIsYield(expr ast.Expression) bool {
	_, ok := expr.(*ast.YieldExpression)
	return ok
}
