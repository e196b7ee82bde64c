package vm

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"clarity/pkg/compiler"
	"clarity/pkg/eval"
	"clarity/pkg/opcode"
)

const StackSize = 2048

// VM executes bytecode produced by the compiler. It covers the same
// globals-only subset: expressions, variables, if/while and show.
type VM struct {
	constants []eval.Object
	globals   []eval.Object

	instructions opcode.Instructions

	stack []eval.Object
	sp    int // next free slot; top of stack is stack[sp-1]

	// Stdout receives show output. Replaceable for tests.
	Stdout io.Writer

	lastPopped eval.Object
}

func New(bytecode *compiler.Bytecode) *VM {
	numGlobals := bytecode.NumGlobals
	if numGlobals < 1 {
		numGlobals = 1
	}
	return &VM{
		constants:    bytecode.Constants,
		globals:      make([]eval.Object, numGlobals),
		instructions: bytecode.Instructions,
		stack:        make([]eval.Object, StackSize),
		Stdout:       os.Stdout,
	}
}

// LastPopped returns the most recently popped expression value. Used
// by tests and the disassembling REPL.
func (vm *VM) LastPopped() eval.Object {
	return vm.lastPopped
}

func (vm *VM) Run() error {
	ins := vm.instructions
	for ip := 0; ip < len(ins); ip++ {
		op := opcode.Opcode(ins[ip])

		switch op {
		case opcode.OpConstant:
			constIndex := opcode.ReadUint16(ins[ip+1:])
			ip += 2
			if err := vm.push(vm.constants[constIndex]); err != nil {
				return err
			}

		case opcode.OpAdd, opcode.OpSub, opcode.OpMul, opcode.OpDiv,
			opcode.OpMod, opcode.OpPow:
			if err := vm.executeBinaryOperation(op); err != nil {
				return err
			}

		case opcode.OpPop:
			vm.lastPopped = vm.pop()

		case opcode.OpTrue:
			if err := vm.push(eval.TRUE); err != nil {
				return err
			}

		case opcode.OpFalse:
			if err := vm.push(eval.FALSE); err != nil {
				return err
			}

		case opcode.OpNull:
			if err := vm.push(eval.NULL); err != nil {
				return err
			}

		case opcode.OpEqual, opcode.OpNotEqual,
			opcode.OpGreaterThan, opcode.OpGreaterEqual:
			if err := vm.executeComparison(op); err != nil {
				return err
			}

		case opcode.OpMinus:
			if err := vm.executeMinus(); err != nil {
				return err
			}

		case opcode.OpNot:
			operand := vm.pop()
			if err := vm.push(boolObject(!eval.Truthy(operand))); err != nil {
				return err
			}

		case opcode.OpJumpNotTruth:
			pos := int(opcode.ReadUint16(ins[ip+1:]))
			ip += 2
			condition := vm.pop()
			if !eval.Truthy(condition) {
				ip = pos - 1
			}

		case opcode.OpJump:
			pos := int(opcode.ReadUint16(ins[ip+1:]))
			ip = pos - 1

		case opcode.OpSetGlobal:
			globalIndex := opcode.ReadUint16(ins[ip+1:])
			ip += 2
			vm.globals[globalIndex] = vm.pop()

		case opcode.OpGetGlobal:
			globalIndex := opcode.ReadUint16(ins[ip+1:])
			ip += 2
			if err := vm.push(vm.globals[globalIndex]); err != nil {
				return err
			}

		case opcode.OpList:
			numElements := int(opcode.ReadUint16(ins[ip+1:]))
			ip += 2
			list := vm.buildList(vm.sp-numElements, vm.sp)
			vm.sp -= numElements
			if err := vm.push(list); err != nil {
				return err
			}

		case opcode.OpMap:
			numSlots := int(opcode.ReadUint16(ins[ip+1:]))
			ip += 2
			m, err := vm.buildMap(vm.sp-numSlots, vm.sp)
			if err != nil {
				return err
			}
			vm.sp -= numSlots
			if err := vm.push(m); err != nil {
				return err
			}

		case opcode.OpIndex:
			index := vm.pop()
			left := vm.pop()
			if err := vm.executeIndex(left, index); err != nil {
				return err
			}

		case opcode.OpShow:
			count := int(opcode.ReadUint8(ins[ip+1:]))
			ip++
			parts := make([]string, count)
			for i := count - 1; i >= 0; i-- {
				parts[i] = vm.pop().Inspect()
			}
			fmt.Fprintln(vm.Stdout, strings.Join(parts, " "))

		default:
			return fmt.Errorf("vm: unknown opcode %d", op)
		}
	}
	return nil
}

func (vm *VM) push(obj eval.Object) error {
	if vm.sp >= StackSize {
		return fmt.Errorf("vm: stack overflow")
	}
	vm.stack[vm.sp] = obj
	vm.sp++
	return nil
}

func (vm *VM) pop() eval.Object {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) executeBinaryOperation(op opcode.Opcode) error {
	right := vm.pop()
	left := vm.pop()

	if ls, ok := left.(*eval.String); ok {
		if rs, ok := right.(*eval.String); ok && op == opcode.OpAdd {
			return vm.push(&eval.String{Value: ls.Value + rs.Value})
		}
	}

	li, leftInt := left.(*eval.Integer)
	ri, rightInt := right.(*eval.Integer)
	if leftInt && rightInt {
		return vm.executeIntegerOperation(op, li.Value, ri.Value)
	}

	lf, leftOk := numericValue(left)
	rf, rightOk := numericValue(right)
	if !leftOk || !rightOk {
		return fmt.Errorf("vm: unsupported operand types %s and %s",
			left.Kind(), right.Kind())
	}
	return vm.executeFloatOperation(op, lf, rf)
}

func (vm *VM) executeIntegerOperation(op opcode.Opcode, left, right int64) error {
	switch op {
	case opcode.OpAdd:
		return vm.push(&eval.Integer{Value: left + right})
	case opcode.OpSub:
		return vm.push(&eval.Integer{Value: left - right})
	case opcode.OpMul:
		return vm.push(&eval.Integer{Value: left * right})
	case opcode.OpDiv:
		if right == 0 {
			return fmt.Errorf("Division by zero")
		}
		// Exact integer division stays an int.
		if left%right == 0 {
			return vm.push(&eval.Integer{Value: left / right})
		}
		return vm.push(&eval.Float{Value: float64(left) / float64(right)})
	case opcode.OpMod:
		if right == 0 {
			return fmt.Errorf("Division by zero")
		}
		m := left % right
		if m != 0 && (m < 0) != (right < 0) {
			m += right
		}
		return vm.push(&eval.Integer{Value: m})
	case opcode.OpPow:
		if right >= 0 {
			result := int64(1)
			for i := int64(0); i < right; i++ {
				result *= left
			}
			return vm.push(&eval.Integer{Value: result})
		}
		return vm.push(&eval.Float{Value: math.Pow(float64(left), float64(right))})
	}
	return fmt.Errorf("vm: unknown integer operation %s", op)
}

func (vm *VM) executeFloatOperation(op opcode.Opcode, left, right float64) error {
	switch op {
	case opcode.OpAdd:
		return vm.push(&eval.Float{Value: left + right})
	case opcode.OpSub:
		return vm.push(&eval.Float{Value: left - right})
	case opcode.OpMul:
		return vm.push(&eval.Float{Value: left * right})
	case opcode.OpDiv:
		if right == 0 {
			return fmt.Errorf("Division by zero")
		}
		return vm.push(&eval.Float{Value: left / right})
	case opcode.OpMod:
		if right == 0 {
			return fmt.Errorf("Division by zero")
		}
		m := math.Mod(left, right)
		if m != 0 && (m < 0) != (right < 0) {
			m += right
		}
		return vm.push(&eval.Float{Value: m})
	case opcode.OpPow:
		return vm.push(&eval.Float{Value: math.Pow(left, right)})
	}
	return fmt.Errorf("vm: unknown float operation %s", op)
}

func (vm *VM) executeComparison(op opcode.Opcode) error {
	right := vm.pop()
	left := vm.pop()

	switch op {
	case opcode.OpEqual:
		return vm.push(boolObject(eval.Equal(left, right)))
	case opcode.OpNotEqual:
		return vm.push(boolObject(!eval.Equal(left, right)))
	}

	if ls, ok := left.(*eval.String); ok {
		if rs, ok := right.(*eval.String); ok {
			switch op {
			case opcode.OpGreaterThan:
				return vm.push(boolObject(ls.Value > rs.Value))
			case opcode.OpGreaterEqual:
				return vm.push(boolObject(ls.Value >= rs.Value))
			}
		}
	}

	lf, leftOk := numericValue(left)
	rf, rightOk := numericValue(right)
	if !leftOk || !rightOk {
		return fmt.Errorf("vm: cannot compare %s and %s", left.Kind(), right.Kind())
	}
	switch op {
	case opcode.OpGreaterThan:
		return vm.push(boolObject(lf > rf))
	case opcode.OpGreaterEqual:
		return vm.push(boolObject(lf >= rf))
	}
	return fmt.Errorf("vm: unknown comparison %s", op)
}

func (vm *VM) executeMinus() error {
	operand := vm.pop()
	switch v := operand.(type) {
	case *eval.Integer:
		return vm.push(&eval.Integer{Value: -v.Value})
	case *eval.Float:
		return vm.push(&eval.Float{Value: -v.Value})
	}
	return fmt.Errorf("vm: unsupported type for negation: %s", operand.Kind())
}

func (vm *VM) buildList(startIndex, endIndex int) eval.Object {
	elements := make([]eval.Object, endIndex-startIndex)
	copy(elements, vm.stack[startIndex:endIndex])
	return &eval.List{Elements: elements}
}

func (vm *VM) buildMap(startIndex, endIndex int) (eval.Object, error) {
	m := eval.NewMap()
	for i := startIndex; i < endIndex; i += 2 {
		if err := m.Set(vm.stack[i], vm.stack[i+1]); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (vm *VM) executeIndex(left, index eval.Object) error {
	switch container := left.(type) {
	case *eval.List:
		idx, ok := index.(*eval.Integer)
		if !ok {
			return fmt.Errorf("List index must be a number, got %s", index.Kind())
		}
		i := idx.Value
		if i < 0 {
			i += int64(len(container.Elements))
		}
		if i < 0 || i >= int64(len(container.Elements)) {
			return fmt.Errorf("Index %d out of bounds (list has %d items)",
				idx.Value, len(container.Elements))
		}
		return vm.push(container.Elements[i])

	case *eval.Map:
		value, found := container.Get(index)
		if !found {
			return vm.push(eval.NULL)
		}
		return vm.push(value)

	case *eval.String:
		idx, ok := index.(*eval.Integer)
		if !ok {
			return fmt.Errorf("String index must be a number")
		}
		runes := []rune(container.Value)
		i := idx.Value
		if i < 0 {
			i += int64(len(runes))
		}
		if i < 0 || i >= int64(len(runes)) {
			return fmt.Errorf("Index %d out of bounds", idx.Value)
		}
		return vm.push(&eval.String{Value: string(runes[i])})
	}
	return fmt.Errorf("vm: index operator not supported for %s", left.Kind())
}

func boolObject(v bool) eval.Object {
	if v {
		return eval.TRUE
	}
	return eval.FALSE
}

func numericValue(obj eval.Object) (float64, bool) {
	switch v := obj.(type) {
	case *eval.Integer:
		return float64(v.Value), true
	case *eval.Float:
		return v.Value, true
	}
	return 0, false
}
