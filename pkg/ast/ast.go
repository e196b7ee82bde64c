package ast

import (
	"bytes"
	"strings"

	"clarity/pkg/token"
)

type Node interface {
	TokenLiteral() string
	String() string
}

type Statement interface {
	Node
	statementNode()
}

type Expression interface {
	Node
	expressionNode()
}

type Program struct {
	Statements []Statement
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

func (p *Program) String() string {
	var out bytes.Buffer
	for _, s := range p.Statements {
		out.WriteString(s.String())
		out.WriteString("\n")
	}
	return out.String()
}

// Param is a declared function parameter. Rest params collect the
// remaining arguments into a list.
type Param struct {
	Name string
	Rest bool
	Type string // optional annotation, checked at call time
}

func (p Param) String() string {
	var out bytes.Buffer
	if p.Rest {
		out.WriteString("...")
	}
	out.WriteString(p.Name)
	if p.Type != "" {
		out.WriteString(": " + p.Type)
	}
	return out.String()
}

// Statements

type LetStatement struct {
	Token          token.Token // 'let' or 'mut'
	Name           string
	Value          Expression
	Mutable        bool
	TypeAnnotation string
}

func (ls *LetStatement) statementNode()       {}
func (ls *LetStatement) TokenLiteral() string { return ls.Token.Literal }
func (ls *LetStatement) String() string {
	var out bytes.Buffer
	if ls.Mutable {
		out.WriteString("mut ")
	} else {
		out.WriteString("let ")
	}
	out.WriteString(ls.Name)
	if ls.TypeAnnotation != "" {
		out.WriteString(": " + ls.TypeAnnotation)
	}
	out.WriteString(" = ")
	if ls.Value != nil {
		out.WriteString(ls.Value.String())
	}
	return out.String()
}

// DestructureTarget is one position of a destructuring binding.
type DestructureTarget struct {
	Name string
	Rest bool
}

type DestructureLetStatement struct {
	Token   token.Token // 'let' or 'mut'
	Targets []DestructureTarget
	Value   Expression
	Mutable bool
	Kind    string // "list" or "map"
}

func (ds *DestructureLetStatement) statementNode()       {}
func (ds *DestructureLetStatement) TokenLiteral() string { return ds.Token.Literal }
func (ds *DestructureLetStatement) String() string {
	var out bytes.Buffer
	if ds.Mutable {
		out.WriteString("mut ")
	} else {
		out.WriteString("let ")
	}
	open, closing := "[", "]"
	if ds.Kind == "map" {
		open, closing = "{", "}"
	}
	names := []string{}
	for _, t := range ds.Targets {
		if t.Rest {
			names = append(names, "..."+t.Name)
		} else {
			names = append(names, t.Name)
		}
	}
	out.WriteString(open + strings.Join(names, ", ") + closing)
	out.WriteString(" = ")
	out.WriteString(ds.Value.String())
	return out.String()
}

type AssignStatement struct {
	Token    token.Token // the operator token
	Target   Expression  // Identifier, MemberExpression or IndexExpression
	Operator string      // "=", "+=", "-=", "*=", "/="
	Value    Expression
}

func (as *AssignStatement) statementNode()       {}
func (as *AssignStatement) TokenLiteral() string { return as.Token.Literal }
func (as *AssignStatement) String() string {
	return as.Target.String() + " " + as.Operator + " " + as.Value.String()
}

type MultiAssignStatement struct {
	Token   token.Token
	Targets []Expression
	Values  []Expression
}

func (ma *MultiAssignStatement) statementNode()       {}
func (ma *MultiAssignStatement) TokenLiteral() string { return ma.Token.Literal }
func (ma *MultiAssignStatement) String() string {
	targets := []string{}
	for _, t := range ma.Targets {
		targets = append(targets, t.String())
	}
	values := []string{}
	for _, v := range ma.Values {
		values = append(values, v.String())
	}
	return strings.Join(targets, ", ") + " = " + strings.Join(values, ", ")
}

type FnStatement struct {
	Token      token.Token // 'fn' or 'async'
	Name       string
	Params     []Param
	Body       *Block
	IsAsync    bool
	ReturnType string
}

func (fs *FnStatement) statementNode()       {}
func (fs *FnStatement) TokenLiteral() string { return fs.Token.Literal }
func (fs *FnStatement) String() string {
	var out bytes.Buffer
	if fs.IsAsync {
		out.WriteString("async ")
	}
	out.WriteString("fn " + fs.Name + "(")
	params := []string{}
	for _, p := range fs.Params {
		params = append(params, p.String())
	}
	out.WriteString(strings.Join(params, ", "))
	out.WriteString(")")
	if fs.ReturnType != "" {
		out.WriteString(" -> " + fs.ReturnType)
	}
	out.WriteString(" ")
	out.WriteString(fs.Body.String())
	return out.String()
}

type ReturnStatement struct {
	Token token.Token // 'return'
	Value Expression  // may be nil
}

func (rs *ReturnStatement) statementNode()       {}
func (rs *ReturnStatement) TokenLiteral() string { return rs.Token.Literal }
func (rs *ReturnStatement) String() string {
	var out bytes.Buffer
	out.WriteString("return")
	if rs.Value != nil {
		out.WriteString(" " + rs.Value.String())
	}
	return out.String()
}

type ElifClause struct {
	Condition Expression
	Body      *Block
}

type IfStatement struct {
	Token       token.Token // 'if'
	Condition   Expression
	Body        *Block
	ElifClauses []ElifClause
	ElseBody    *Block // may be nil
}

func (is *IfStatement) statementNode()       {}
func (is *IfStatement) TokenLiteral() string { return is.Token.Literal }
func (is *IfStatement) String() string {
	var out bytes.Buffer
	out.WriteString("if " + is.Condition.String() + " " + is.Body.String())
	for _, e := range is.ElifClauses {
		out.WriteString(" elif " + e.Condition.String() + " " + e.Body.String())
	}
	if is.ElseBody != nil {
		out.WriteString(" else " + is.ElseBody.String())
	}
	return out.String()
}

type ForStatement struct {
	Token     token.Token // 'for'
	Variables []string    // one name, or two for map entry iteration
	Iterable  Expression
	Body      *Block
}

func (fs *ForStatement) statementNode()       {}
func (fs *ForStatement) TokenLiteral() string { return fs.Token.Literal }
func (fs *ForStatement) String() string {
	return "for " + strings.Join(fs.Variables, ", ") + " in " + fs.Iterable.String() + " " + fs.Body.String()
}

type WhileStatement struct {
	Token     token.Token // 'while'
	Condition Expression
	Body      *Block
}

func (ws *WhileStatement) statementNode()       {}
func (ws *WhileStatement) TokenLiteral() string { return ws.Token.Literal }
func (ws *WhileStatement) String() string {
	return "while " + ws.Condition.String() + " " + ws.Body.String()
}

type TryStatement struct {
	Token       token.Token // 'try'
	TryBody     *Block
	CatchVar    string
	CatchBody   *Block // may be nil
	FinallyBody *Block // may be nil
}

func (ts *TryStatement) statementNode()       {}
func (ts *TryStatement) TokenLiteral() string { return ts.Token.Literal }
func (ts *TryStatement) String() string {
	var out bytes.Buffer
	out.WriteString("try " + ts.TryBody.String())
	if ts.CatchBody != nil {
		out.WriteString(" catch " + ts.CatchVar + " " + ts.CatchBody.String())
	}
	if ts.FinallyBody != nil {
		out.WriteString(" finally " + ts.FinallyBody.String())
	}
	return out.String()
}

type BreakStatement struct {
	Token token.Token
}

func (bs *BreakStatement) statementNode()       {}
func (bs *BreakStatement) TokenLiteral() string { return bs.Token.Literal }
func (bs *BreakStatement) String() string       { return "break" }

type ContinueStatement struct {
	Token token.Token
}

func (cs *ContinueStatement) statementNode()       {}
func (cs *ContinueStatement) TokenLiteral() string { return cs.Token.Literal }
func (cs *ContinueStatement) String() string       { return "continue" }

type ThrowStatement struct {
	Token token.Token
	Value Expression
}

func (ts *ThrowStatement) statementNode()       {}
func (ts *ThrowStatement) TokenLiteral() string { return ts.Token.Literal }
func (ts *ThrowStatement) String() string       { return "throw " + ts.Value.String() }

type ShowStatement struct {
	Token  token.Token
	Values []Expression
}

func (ss *ShowStatement) statementNode()       {}
func (ss *ShowStatement) TokenLiteral() string { return ss.Token.Literal }
func (ss *ShowStatement) String() string {
	values := []string{}
	for _, v := range ss.Values {
		values = append(values, v.String())
	}
	return "show " + strings.Join(values, ", ")
}

type ImportStatement struct {
	Token  token.Token
	Module string   // builtin module name, e.g. "math"
	Alias  string   // optional 'as' alias
	Names  []string // from X import a, b
	Path   string   // file import path, e.g. "lib/util.cl"
}

func (is *ImportStatement) statementNode()       {}
func (is *ImportStatement) TokenLiteral() string { return is.Token.Literal }
func (is *ImportStatement) String() string {
	var out bytes.Buffer
	if len(is.Names) > 0 {
		out.WriteString("from " + is.Module + " import " + strings.Join(is.Names, ", "))
		return out.String()
	}
	out.WriteString("import ")
	if is.Path != "" {
		out.WriteString("\"" + is.Path + "\"")
	} else {
		out.WriteString(is.Module)
	}
	if is.Alias != "" {
		out.WriteString(" as " + is.Alias)
	}
	return out.String()
}

type ClassStatement struct {
	Token      token.Token // 'class'
	Name       string
	Methods    []*FnStatement
	Parent     string   // optional superclass name
	Interfaces []string // names checked at declaration time
}

func (cs *ClassStatement) statementNode()       {}
func (cs *ClassStatement) TokenLiteral() string { return cs.Token.Literal }
func (cs *ClassStatement) String() string {
	var out bytes.Buffer
	out.WriteString("class " + cs.Name)
	if cs.Parent != "" {
		out.WriteString(" < " + cs.Parent)
	}
	if len(cs.Interfaces) > 0 {
		out.WriteString(" impl " + strings.Join(cs.Interfaces, ", "))
	}
	out.WriteString(" { ")
	for _, m := range cs.Methods {
		out.WriteString(m.String() + " ")
	}
	out.WriteString("}")
	return out.String()
}

type MethodSig struct {
	Name       string
	Params     []Param
	ReturnType string
}

type InterfaceStatement struct {
	Token      token.Token // 'interface'
	Name       string
	MethodSigs []MethodSig
}

func (is *InterfaceStatement) statementNode()       {}
func (is *InterfaceStatement) TokenLiteral() string { return is.Token.Literal }
func (is *InterfaceStatement) String() string {
	var out bytes.Buffer
	out.WriteString("interface " + is.Name + " { ")
	for _, sig := range is.MethodSigs {
		params := []string{}
		for _, p := range sig.Params {
			params = append(params, p.String())
		}
		out.WriteString("fn " + sig.Name + "(" + strings.Join(params, ", ") + ") ")
	}
	out.WriteString("}")
	return out.String()
}

type EnumMember struct {
	Name  string
	Value Expression // nil means auto-increment
}

type EnumStatement struct {
	Token   token.Token // 'enum'
	Name    string
	Members []EnumMember
}

func (es *EnumStatement) statementNode()       {}
func (es *EnumStatement) TokenLiteral() string { return es.Token.Literal }
func (es *EnumStatement) String() string {
	var out bytes.Buffer
	out.WriteString("enum " + es.Name + " { ")
	for _, m := range es.Members {
		out.WriteString(m.Name)
		if m.Value != nil {
			out.WriteString(" = " + m.Value.String())
		}
		out.WriteString(" ")
	}
	out.WriteString("}")
	return out.String()
}

type MatchArm struct {
	Values []Expression
	Body   *Block
}

type MatchStatement struct {
	Token   token.Token // 'match'
	Subject Expression
	Arms    []MatchArm
	Default *Block // may be nil
}

func (ms *MatchStatement) statementNode()       {}
func (ms *MatchStatement) TokenLiteral() string { return ms.Token.Literal }
func (ms *MatchStatement) String() string {
	var out bytes.Buffer
	out.WriteString("match " + ms.Subject.String() + " { ")
	for _, arm := range ms.Arms {
		values := []string{}
		for _, v := range arm.Values {
			values = append(values, v.String())
		}
		out.WriteString("when " + strings.Join(values, ", ") + " " + arm.Body.String() + " ")
	}
	if ms.Default != nil {
		out.WriteString("else " + ms.Default.String() + " ")
	}
	out.WriteString("}")
	return out.String()
}

type DecoratedStatement struct {
	Token      token.Token  // '@'
	Target     Statement    // FnStatement or ClassStatement
	Decorators []Expression // outermost first, applied innermost first
}

func (ds *DecoratedStatement) statementNode()       {}
func (ds *DecoratedStatement) TokenLiteral() string { return ds.Token.Literal }
func (ds *DecoratedStatement) String() string {
	var out bytes.Buffer
	for _, d := range ds.Decorators {
		out.WriteString("@" + d.String() + " ")
	}
	out.WriteString(ds.Target.String())
	return out.String()
}

type ExpressionStatement struct {
	Token      token.Token
	Expression Expression
}

func (es *ExpressionStatement) statementNode()       {}
func (es *ExpressionStatement) TokenLiteral() string { return es.Token.Literal }
func (es *ExpressionStatement) String() string {
	if es.Expression != nil {
		return es.Expression.String()
	}
	return ""
}

type Block struct {
	Token      token.Token // '{'
	Statements []Statement
}

func (b *Block) statementNode()       {}
func (b *Block) TokenLiteral() string { return b.Token.Literal }
func (b *Block) String() string {
	var out bytes.Buffer
	out.WriteString("{ ")
	for _, s := range b.Statements {
		out.WriteString(s.String() + "; ")
	}
	out.WriteString("}")
	return out.String()
}

// Expressions

type IntegerLiteral struct {
	Token token.Token
	Value int64
}

func (il *IntegerLiteral) expressionNode()      {}
func (il *IntegerLiteral) TokenLiteral() string { return il.Token.Literal }
func (il *IntegerLiteral) String() string       { return il.Token.Literal }

type FloatLiteral struct {
	Token token.Token
	Value float64
}

func (fl *FloatLiteral) expressionNode()      {}
func (fl *FloatLiteral) TokenLiteral() string { return fl.Token.Literal }
func (fl *FloatLiteral) String() string       { return fl.Token.Literal }

type StringLiteral struct {
	Token token.Token
	Value string
	Raw   bool // raw strings skip interpolation
}

func (sl *StringLiteral) expressionNode()      {}
func (sl *StringLiteral) TokenLiteral() string { return sl.Token.Literal }
func (sl *StringLiteral) String() string       { return "\"" + sl.Value + "\"" }

type BoolLiteral struct {
	Token token.Token
	Value bool
}

func (bl *BoolLiteral) expressionNode()      {}
func (bl *BoolLiteral) TokenLiteral() string { return bl.Token.Literal }
func (bl *BoolLiteral) String() string       { return bl.Token.Literal }

type NullLiteral struct {
	Token token.Token
}

func (nl *NullLiteral) expressionNode()      {}
func (nl *NullLiteral) TokenLiteral() string { return nl.Token.Literal }
func (nl *NullLiteral) String() string       { return "null" }

type Identifier struct {
	Token token.Token
	Value string
}

func (i *Identifier) expressionNode()      {}
func (i *Identifier) TokenLiteral() string { return i.Token.Literal }
func (i *Identifier) String() string       { return i.Value }

type ThisExpression struct {
	Token token.Token
}

func (te *ThisExpression) expressionNode()      {}
func (te *ThisExpression) TokenLiteral() string { return te.Token.Literal }
func (te *ThisExpression) String() string       { return "this" }

type ListLiteral struct {
	Token    token.Token // '['
	Elements []Expression
}

func (ll *ListLiteral) expressionNode()      {}
func (ll *ListLiteral) TokenLiteral() string { return ll.Token.Literal }
func (ll *ListLiteral) String() string {
	elements := []string{}
	for _, e := range ll.Elements {
		elements = append(elements, e.String())
	}
	return "[" + strings.Join(elements, ", ") + "]"
}

type MapPair struct {
	Key   Expression
	Value Expression
}

type MapLiteral struct {
	Token token.Token // '{'
	Pairs []MapPair
}

func (ml *MapLiteral) expressionNode()      {}
func (ml *MapLiteral) TokenLiteral() string { return ml.Token.Literal }
func (ml *MapLiteral) String() string {
	pairs := []string{}
	for _, pair := range ml.Pairs {
		pairs = append(pairs, pair.Key.String()+": "+pair.Value.String())
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}

type PrefixExpression struct {
	Token    token.Token
	Operator string // "-", "not", "~"
	Right    Expression
}

func (pe *PrefixExpression) expressionNode()      {}
func (pe *PrefixExpression) TokenLiteral() string { return pe.Token.Literal }
func (pe *PrefixExpression) String() string {
	return "(" + pe.Operator + pe.Right.String() + ")"
}

type InfixExpression struct {
	Token    token.Token
	Left     Expression
	Operator string
	Right    Expression
}

func (ie *InfixExpression) expressionNode()      {}
func (ie *InfixExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *InfixExpression) String() string {
	return "(" + ie.Left.String() + " " + ie.Operator + " " + ie.Right.String() + ")"
}

type CallExpression struct {
	Token     token.Token // '('
	Callee    Expression
	Arguments []Expression
}

func (ce *CallExpression) expressionNode()      {}
func (ce *CallExpression) TokenLiteral() string { return ce.Token.Literal }
func (ce *CallExpression) String() string {
	args := []string{}
	for _, a := range ce.Arguments {
		args = append(args, a.String())
	}
	return ce.Callee.String() + "(" + strings.Join(args, ", ") + ")"
}

type MemberExpression struct {
	Token    token.Token // '.'
	Object   Expression
	Property string
}

func (me *MemberExpression) expressionNode()      {}
func (me *MemberExpression) TokenLiteral() string { return me.Token.Literal }
func (me *MemberExpression) String() string {
	return me.Object.String() + "." + me.Property
}

type OptionalMemberExpression struct {
	Token    token.Token // '?.'
	Object   Expression
	Property string
}

func (ome *OptionalMemberExpression) expressionNode()      {}
func (ome *OptionalMemberExpression) TokenLiteral() string { return ome.Token.Literal }
func (ome *OptionalMemberExpression) String() string {
	return ome.Object.String() + "?." + ome.Property
}

type IndexExpression struct {
	Token  token.Token // '['
	Object Expression
	Index  Expression
}

func (ie *IndexExpression) expressionNode()      {}
func (ie *IndexExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *IndexExpression) String() string {
	return ie.Object.String() + "[" + ie.Index.String() + "]"
}

type SliceExpression struct {
	Token  token.Token // '['
	Object Expression
	Start  Expression // may be nil
	End    Expression // may be nil
}

func (se *SliceExpression) expressionNode()      {}
func (se *SliceExpression) TokenLiteral() string { return se.Token.Literal }
func (se *SliceExpression) String() string {
	var out bytes.Buffer
	out.WriteString(se.Object.String() + "[")
	if se.Start != nil {
		out.WriteString(se.Start.String())
	}
	out.WriteString("..")
	if se.End != nil {
		out.WriteString(se.End.String())
	}
	out.WriteString("]")
	return out.String()
}

type FnExpression struct {
	Token      token.Token // 'fn' or the lambda parameter token
	Params     []Param
	Body       *Block
	ReturnType string
}

func (fe *FnExpression) expressionNode()      {}
func (fe *FnExpression) TokenLiteral() string { return fe.Token.Literal }
func (fe *FnExpression) String() string {
	params := []string{}
	for _, p := range fe.Params {
		params = append(params, p.String())
	}
	return "fn(" + strings.Join(params, ", ") + ") " + fe.Body.String()
}

type PipeExpression struct {
	Token token.Token // '|>'
	Value Expression
	Fn    Expression
}

func (pe *PipeExpression) expressionNode()      {}
func (pe *PipeExpression) TokenLiteral() string { return pe.Token.Literal }
func (pe *PipeExpression) String() string {
	return "(" + pe.Value.String() + " |> " + pe.Fn.String() + ")"
}

type RangeExpression struct {
	Token token.Token // '..'
	Start Expression
	End   Expression
}

func (re *RangeExpression) expressionNode()      {}
func (re *RangeExpression) TokenLiteral() string { return re.Token.Literal }
func (re *RangeExpression) String() string {
	return "(" + re.Start.String() + ".." + re.End.String() + ")"
}

type AskExpression struct {
	Token  token.Token // 'ask'
	Prompt Expression  // may be nil
}

func (ae *AskExpression) expressionNode()      {}
func (ae *AskExpression) TokenLiteral() string { return ae.Token.Literal }
func (ae *AskExpression) String() string {
	if ae.Prompt != nil {
		return "ask(" + ae.Prompt.String() + ")"
	}
	return "ask()"
}

type CoalesceExpression struct {
	Token token.Token // '??'
	Left  Expression
	Right Expression
}

func (ce *CoalesceExpression) expressionNode()      {}
func (ce *CoalesceExpression) TokenLiteral() string { return ce.Token.Literal }
func (ce *CoalesceExpression) String() string {
	return "(" + ce.Left.String() + " ?? " + ce.Right.String() + ")"
}

type SpreadExpression struct {
	Token token.Token // '...'
	Value Expression
}

func (se *SpreadExpression) expressionNode()      {}
func (se *SpreadExpression) TokenLiteral() string { return se.Token.Literal }
func (se *SpreadExpression) String() string       { return "..." + se.Value.String() }

type IfExpression struct {
	Token     token.Token // 'if'
	Condition Expression
	Then      Expression
	Else      Expression
}

func (ie *IfExpression) expressionNode()      {}
func (ie *IfExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *IfExpression) String() string {
	return "(if " + ie.Condition.String() + " { " + ie.Then.String() + " } else { " + ie.Else.String() + " })"
}

type ComprehensionExpression struct {
	Token     token.Token // '['
	Expr      Expression
	Variable  string
	Iterable  Expression
	Condition Expression // may be nil
}

func (ce *ComprehensionExpression) expressionNode()      {}
func (ce *ComprehensionExpression) TokenLiteral() string { return ce.Token.Literal }
func (ce *ComprehensionExpression) String() string {
	var out bytes.Buffer
	out.WriteString("[" + ce.Expr.String() + " for " + ce.Variable + " in " + ce.Iterable.String())
	if ce.Condition != nil {
		out.WriteString(" if " + ce.Condition.String())
	}
	out.WriteString("]")
	return out.String()
}

type MapComprehensionExpression struct {
	Token     token.Token // '{'
	KeyExpr   Expression
	ValueExpr Expression
	Variables []string // one name, or key/value pair
	Iterable  Expression
	Condition Expression // may be nil
}

func (mc *MapComprehensionExpression) expressionNode()      {}
func (mc *MapComprehensionExpression) TokenLiteral() string { return mc.Token.Literal }
func (mc *MapComprehensionExpression) String() string {
	var out bytes.Buffer
	out.WriteString("{" + mc.KeyExpr.String() + ": " + mc.ValueExpr.String())
	out.WriteString(" for " + strings.Join(mc.Variables, ", ") + " in " + mc.Iterable.String())
	if mc.Condition != nil {
		out.WriteString(" if " + mc.Condition.String())
	}
	out.WriteString("}")
	return out.String()
}

type AwaitExpression struct {
	Token token.Token // 'await'
	Value Expression
}

func (ae *AwaitExpression) expressionNode()      {}
func (ae *AwaitExpression) TokenLiteral() string { return ae.Token.Literal }
func (ae *AwaitExpression) String() string       { return "await " + ae.Value.String() }

type YieldExpression struct {
	Token token.Token // 'yield'
	Value Expression  // may be nil
}

func (ye *YieldExpression) expressionNode()      {}
func (ye *YieldExpression) TokenLiteral() string { return ye.Token.Literal }
func (ye *YieldExpression) String() string {
	if ye.Value != nil {
		return "yield " + ye.Value.String()
	}
	return "yield"
}
