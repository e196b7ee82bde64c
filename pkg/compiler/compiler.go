package compiler

import (
	"fmt"

	"clarity/pkg/ast"
	"clarity/pkg/eval"
	"clarity/pkg/opcode"
)

// Compiler translates a program into bytecode for the stack VM. It
// covers the expression and control-flow core of the language;
// constructs outside that subset report a compile error instead of
// silently misbehaving.
type Compiler struct {
	instructions opcode.Instructions
	constants    []eval.Object
	symbolTable  *SymbolTable
}

type Bytecode struct {
	Instructions opcode.Instructions
	Constants    []eval.Object
	NumGlobals   int
}

type Symbol struct {
	Name  string
	Index int
}

type SymbolTable struct {
	store          map[string]Symbol
	numDefinitions int
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{store: make(map[string]Symbol)}
}

func (s *SymbolTable) Define(name string) Symbol {
	if existing, ok := s.store[name]; ok {
		return existing
	}
	symbol := Symbol{Name: name, Index: s.numDefinitions}
	s.store[name] = symbol
	s.numDefinitions++
	return symbol
}

func (s *SymbolTable) Resolve(name string) (Symbol, bool) {
	symbol, ok := s.store[name]
	return symbol, ok
}

func New() *Compiler {
	return &Compiler{
		instructions: opcode.Instructions{},
		constants:    []eval.Object{},
		symbolTable:  NewSymbolTable(),
	}
}

func (c *Compiler) Compile(node ast.Node) error {
	switch node := node.(type) {
	case *ast.Program:
		for _, s := range node.Statements {
			if err := c.Compile(s); err != nil {
				return err
			}
		}

	case *ast.Block:
		for _, s := range node.Statements {
			if err := c.Compile(s); err != nil {
				return err
			}
		}

	case *ast.LetStatement:
		if node.Value != nil {
			if err := c.Compile(node.Value); err != nil {
				return err
			}
		} else {
			c.emit(opcode.OpNull)
		}
		symbol := c.symbolTable.Define(node.Name)
		c.emit(opcode.OpSetGlobal, symbol.Index)

	case *ast.AssignStatement:
		ident, ok := node.Target.(*ast.Identifier)
		if !ok {
			return fmt.Errorf("compiler: only variable assignment is supported")
		}
		symbol, found := c.symbolTable.Resolve(ident.Value)
		if !found {
			return fmt.Errorf("compiler: undefined variable %s", ident.Value)
		}
		if node.Operator != "=" {
			c.emit(opcode.OpGetGlobal, symbol.Index)
			if err := c.Compile(node.Value); err != nil {
				return err
			}
			switch node.Operator {
			case "+=":
				c.emit(opcode.OpAdd)
			case "-=":
				c.emit(opcode.OpSub)
			case "*=":
				c.emit(opcode.OpMul)
			case "/=":
				c.emit(opcode.OpDiv)
			default:
				return fmt.Errorf("compiler: unknown assignment operator %s", node.Operator)
			}
		} else {
			if err := c.Compile(node.Value); err != nil {
				return err
			}
		}
		c.emit(opcode.OpSetGlobal, symbol.Index)

	case *ast.ShowStatement:
		for _, value := range node.Values {
			if err := c.Compile(value); err != nil {
				return err
			}
		}
		c.emit(opcode.OpShow, len(node.Values))

	case *ast.ExpressionStatement:
		if err := c.Compile(node.Expression); err != nil {
			return err
		}
		c.emit(opcode.OpPop)

	case *ast.IfStatement:
		if err := c.compileIf(node); err != nil {
			return err
		}

	case *ast.WhileStatement:
		conditionPos := len(c.instructions)
		if err := c.Compile(node.Condition); err != nil {
			return err
		}
		jumpOut := c.emit(opcode.OpJumpNotTruth, 9999)
		if err := c.Compile(node.Body); err != nil {
			return err
		}
		c.emit(opcode.OpJump, conditionPos)
		c.changeOperand(jumpOut, len(c.instructions))

	case *ast.IntegerLiteral:
		c.emit(opcode.OpConstant, c.addConstant(&eval.Integer{Value: node.Value}))

	case *ast.FloatLiteral:
		c.emit(opcode.OpConstant, c.addConstant(&eval.Float{Value: node.Value}))

	case *ast.StringLiteral:
		c.emit(opcode.OpConstant, c.addConstant(&eval.String{Value: node.Value}))

	case *ast.BoolLiteral:
		if node.Value {
			c.emit(opcode.OpTrue)
		} else {
			c.emit(opcode.OpFalse)
		}

	case *ast.NullLiteral:
		c.emit(opcode.OpNull)

	case *ast.Identifier:
		symbol, found := c.symbolTable.Resolve(node.Value)
		if !found {
			return fmt.Errorf("compiler: undefined variable %s", node.Value)
		}
		c.emit(opcode.OpGetGlobal, symbol.Index)

	case *ast.PrefixExpression:
		if err := c.Compile(node.Right); err != nil {
			return err
		}
		switch node.Operator {
		case "-":
			c.emit(opcode.OpMinus)
		case "not", "!":
			c.emit(opcode.OpNot)
		default:
			return fmt.Errorf("compiler: unknown prefix operator %s", node.Operator)
		}

	case *ast.InfixExpression:
		if folded, ok := c.foldConstants(node); ok {
			c.emit(opcode.OpConstant, c.addConstant(folded))
			return nil
		}
		return c.compileInfix(node)

	case *ast.ListLiteral:
		for _, el := range node.Elements {
			if err := c.Compile(el); err != nil {
				return err
			}
		}
		c.emit(opcode.OpList, len(node.Elements))

	case *ast.MapLiteral:
		for _, pair := range node.Pairs {
			if pair.Key == nil {
				return fmt.Errorf("compiler: map spread is not supported")
			}
			if err := c.Compile(pair.Key); err != nil {
				return err
			}
			if err := c.Compile(pair.Value); err != nil {
				return err
			}
		}
		c.emit(opcode.OpMap, len(node.Pairs)*2)

	case *ast.IndexExpression:
		if err := c.Compile(node.Object); err != nil {
			return err
		}
		if err := c.Compile(node.Index); err != nil {
			return err
		}
		c.emit(opcode.OpIndex)

	default:
		return fmt.Errorf("compiler: %T is not supported in compiled mode", node)
	}

	return nil
}

func (c *Compiler) compileIf(node *ast.IfStatement) error {
	type pending struct {
		condition ast.Expression
		body      *ast.Block
	}
	branches := []pending{{condition: node.Condition, body: node.Body}}
	for _, clause := range node.ElifClauses {
		branches = append(branches, pending{condition: clause.Condition, body: clause.Body})
	}

	endJumps := []int{}
	for _, branch := range branches {
		if err := c.Compile(branch.condition); err != nil {
			return err
		}
		jumpNext := c.emit(opcode.OpJumpNotTruth, 9999)
		if err := c.Compile(branch.body); err != nil {
			return err
		}
		endJumps = append(endJumps, c.emit(opcode.OpJump, 9999))
		c.changeOperand(jumpNext, len(c.instructions))
	}
	if node.ElseBody != nil {
		if err := c.Compile(node.ElseBody); err != nil {
			return err
		}
	}
	for _, pos := range endJumps {
		c.changeOperand(pos, len(c.instructions))
	}
	return nil
}

func (c *Compiler) compileInfix(node *ast.InfixExpression) error {
	// Less-than comparisons reuse the greater-than opcodes with the
	// operands swapped.
	if node.Operator == "<" || node.Operator == "<=" {
		if err := c.Compile(node.Right); err != nil {
			return err
		}
		if err := c.Compile(node.Left); err != nil {
			return err
		}
		if node.Operator == "<" {
			c.emit(opcode.OpGreaterThan)
		} else {
			c.emit(opcode.OpGreaterEqual)
		}
		return nil
	}

	if err := c.Compile(node.Left); err != nil {
		return err
	}
	if err := c.Compile(node.Right); err != nil {
		return err
	}
	switch node.Operator {
	case "+":
		c.emit(opcode.OpAdd)
	case "-":
		c.emit(opcode.OpSub)
	case "*":
		c.emit(opcode.OpMul)
	case "/":
		c.emit(opcode.OpDiv)
	case "%":
		c.emit(opcode.OpMod)
	case "**":
		c.emit(opcode.OpPow)
	case "==":
		c.emit(opcode.OpEqual)
	case "!=":
		c.emit(opcode.OpNotEqual)
	case ">":
		c.emit(opcode.OpGreaterThan)
	case ">=":
		c.emit(opcode.OpGreaterEqual)
	default:
		return fmt.Errorf("compiler: unknown operator %s", node.Operator)
	}
	return nil
}

func (c *Compiler) addConstant(obj eval.Object) int {
	c.constants = append(c.constants, obj)
	return len(c.constants) - 1
}

func (c *Compiler) emit(op opcode.Opcode, operands ...int) int {
	ins := opcode.Make(op, operands...)
	pos := len(c.instructions)
	c.instructions = append(c.instructions, ins...)
	return pos
}

func (c *Compiler) changeOperand(opPos int, operand int) {
	op := opcode.Opcode(c.instructions[opPos])
	newInstruction := opcode.Make(op, operand)
	copy(c.instructions[opPos:], newInstruction)
}

func (c *Compiler) Bytecode() *Bytecode {
	return &Bytecode{
		Instructions: c.instructions,
		Constants:    c.constants,
		NumGlobals:   c.symbolTable.numDefinitions,
	}
}
