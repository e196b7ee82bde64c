package opcode

import (
	"bytes"
	"fmt"
)

type Opcode byte

type Instructions []byte

const (
	// OpConstant retrieves a constant from the constant pool
	OpConstant Opcode = iota
	// OpAdd adds the top two elements of the stack
	OpAdd
	// OpSub subtracts the top two elements of the stack
	OpSub
	// OpMul multiplies the top two elements of the stack
	OpMul
	// OpDiv divides the top two elements of the stack
	OpDiv
	// OpMod takes the remainder of the top two elements of the stack
	OpMod
	// OpPow raises the second element to the power of the top element
	OpPow
	// OpPop pops the top element of the stack
	OpPop
	// OpTrue pushes true onto the stack
	OpTrue
	// OpFalse pushes false onto the stack
	OpFalse
	// OpNull pushes null onto the stack
	OpNull
	// OpEqual compares the top two elements for equality
	OpEqual
	// OpNotEqual compares the top two elements for inequality
	OpNotEqual
	// OpGreaterThan compares the top two elements for greater than
	OpGreaterThan
	// OpGreaterEqual compares the top two elements for greater or equal
	OpGreaterEqual
	// OpMinus negates the top element of the stack
	OpMinus
	// OpNot negates the boolean value of the top element of the stack
	OpNot
	// OpJumpNotTruth jumps to the operand address if the top element is not truthy
	OpJumpNotTruth
	// OpJump jumps to the operand address
	OpJump
	// OpGetGlobal retrieves a global variable
	OpGetGlobal
	// OpSetGlobal sets a global variable
	OpSetGlobal
	// OpList creates a list from the top N elements of the stack
	OpList
	// OpMap creates a map from the top 2*N elements of the stack
	OpMap
	// OpIndex retrieves an element from an indexable object
	OpIndex
	// OpShow prints the top N elements of the stack
	OpShow
)

type Definition struct {
	Name          string
	OperandWidths []int
}

var definitions = map[Opcode]*Definition{
	OpConstant:     {"OpConstant", []int{2}},
	OpAdd:          {"OpAdd", []int{}},
	OpSub:          {"OpSub", []int{}},
	OpMul:          {"OpMul", []int{}},
	OpDiv:          {"OpDiv", []int{}},
	OpMod:          {"OpMod", []int{}},
	OpPow:          {"OpPow", []int{}},
	OpPop:          {"OpPop", []int{}},
	OpTrue:         {"OpTrue", []int{}},
	OpFalse:        {"OpFalse", []int{}},
	OpNull:         {"OpNull", []int{}},
	OpEqual:        {"OpEqual", []int{}},
	OpNotEqual:     {"OpNotEqual", []int{}},
	OpGreaterThan:  {"OpGreaterThan", []int{}},
	OpGreaterEqual: {"OpGreaterEqual", []int{}},
	OpMinus:        {"OpMinus", []int{}},
	OpNot:          {"OpNot", []int{}},
	OpJumpNotTruth: {"OpJumpNotTruth", []int{2}},
	OpJump:         {"OpJump", []int{2}},
	OpGetGlobal:    {"OpGetGlobal", []int{2}},
	OpSetGlobal:    {"OpSetGlobal", []int{2}},
	OpList:         {"OpList", []int{2}},
	OpMap:          {"OpMap", []int{2}},
	OpIndex:        {"OpIndex", []int{}},
	OpShow:         {"OpShow", []int{1}},
}

func Lookup(op byte) (*Definition, error) {
	def, ok := definitions[Opcode(op)]
	if !ok {
		return nil, fmt.Errorf("opcode %d undefined", op)
	}
	return def, nil
}

func Make(op Opcode, operands ...int) []byte {
	def, ok := definitions[op]
	if !ok {
		return []byte{}
	}

	instructionLen := 1
	for _, w := range def.OperandWidths {
		instructionLen += w
	}

	instruction := make([]byte, instructionLen)
	instruction[0] = byte(op)

	offset := 1
	for i, o := range operands {
		width := def.OperandWidths[i]
		switch width {
		case 2:
			instruction[offset] = byte(o >> 8)
			instruction[offset+1] = byte(o)
		case 1:
			instruction[offset] = byte(o)
		}
		offset += width
	}

	return instruction
}

func ReadOperands(def *Definition, ins []byte) ([]int, int) {
	operands := make([]int, len(def.OperandWidths))
	offset := 0

	for i, width := range def.OperandWidths {
		switch width {
		case 2:
			operands[i] = int(ReadUint16(ins[offset:]))
		case 1:
			operands[i] = int(ReadUint8(ins[offset:]))
		}
		offset += width
	}

	return operands, offset
}

func ReadUint16(ins []byte) uint16 {
	return uint16(ins[0])<<8 | uint16(ins[1])
}

func ReadUint8(ins []byte) uint8 {
	return uint8(ins[0])
}

func (ins Opcode) String() string {
	def, ok := definitions[ins]
	if !ok {
		return fmt.Sprintf("Opcode(%d)", ins)
	}
	return def.Name
}

// String disassembles the instruction stream for inspection.
func (ins Instructions) String() string {
	var out bytes.Buffer
	i := 0
	for i < len(ins) {
		def, err := Lookup(ins[i])
		if err != nil {
			fmt.Fprintf(&out, "ERROR: %s\n", err)
			i++
			continue
		}
		operands, read := ReadOperands(def, ins[i+1:])
		fmt.Fprintf(&out, "%04d %s", i, def.Name)
		for _, operand := range operands {
			fmt.Fprintf(&out, " %d", operand)
		}
		out.WriteString("\n")
		i += 1 + read
	}
	return out.String()
}
