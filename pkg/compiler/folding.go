package compiler

import (
	"clarity/pkg/ast"
	"clarity/pkg/eval"
)

// foldConstants evaluates integer and boolean infix expressions at
// compile time. It returns the folded constant and true when folding
// succeeded.
func (c *Compiler) foldConstants(node *ast.InfixExpression) (eval.Object, bool) {
	left, leftOk := foldOperand(c, node.Left)
	right, rightOk := foldOperand(c, node.Right)
	if !leftOk || !rightOk {
		return nil, false
	}

	if li, ok := left.(*eval.Integer); ok {
		if ri, ok := right.(*eval.Integer); ok {
			switch node.Operator {
			case "+":
				return &eval.Integer{Value: li.Value + ri.Value}, true
			case "-":
				return &eval.Integer{Value: li.Value - ri.Value}, true
			case "*":
				return &eval.Integer{Value: li.Value * ri.Value}, true
			case "/":
				if ri.Value == 0 {
					return nil, false
				}
				// Exact integer division stays an int; anything else
				// is left for the VM's float division.
				if li.Value%ri.Value != 0 {
					return nil, false
				}
				return &eval.Integer{Value: li.Value / ri.Value}, true
			case "%":
				if ri.Value == 0 {
					return nil, false
				}
				m := li.Value % ri.Value
				if m != 0 && (m < 0) != (ri.Value < 0) {
					m += ri.Value
				}
				return &eval.Integer{Value: m}, true
			case ">":
				return foldBool(li.Value > ri.Value), true
			case ">=":
				return foldBool(li.Value >= ri.Value), true
			case "<":
				return foldBool(li.Value < ri.Value), true
			case "<=":
				return foldBool(li.Value <= ri.Value), true
			case "==":
				return foldBool(li.Value == ri.Value), true
			case "!=":
				return foldBool(li.Value != ri.Value), true
			}
			return nil, false
		}
	}

	if lb, ok := left.(*eval.Boolean); ok {
		if rb, ok := right.(*eval.Boolean); ok {
			switch node.Operator {
			case "==":
				return foldBool(lb.Value == rb.Value), true
			case "!=":
				return foldBool(lb.Value != rb.Value), true
			}
		}
	}

	return nil, false
}

func foldOperand(c *Compiler, expr ast.Expression) (eval.Object, bool) {
	switch node := expr.(type) {
	case *ast.IntegerLiteral:
		return &eval.Integer{Value: node.Value}, true
	case *ast.BoolLiteral:
		return foldBool(node.Value), true
	case *ast.InfixExpression:
		return c.foldConstants(node)
	}
	return nil, false
}

func foldBool(v bool) eval.Object {
	if v {
		return eval.TRUE
	}
	return eval.FALSE
}
