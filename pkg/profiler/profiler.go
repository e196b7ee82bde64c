// Package profiler measures where a Clarity program spends its time.
// It wraps the interpreter's replaceable dispatch entry points, so the
// evaluator itself needs no instrumentation.
package profiler

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"clarity/pkg/ast"
	"clarity/pkg/eval"
)

// FunctionStats aggregates every call observed for one callee name.
type FunctionStats struct {
	Name    string
	Calls   int
	Total   time.Duration
	Callers map[string]int
}

// Avg is the mean time per call.
func (s *FunctionStats) Avg() time.Duration {
	if s.Calls == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Calls)
}

// LineStats aggregates execution counts and time per source line.
type LineStats struct {
	Line  int
	Hits  int
	Total time.Duration
}

// Profiler records per-line and per-call timing while a program runs.
// Times are inclusive: a caller's total contains its callees.
type Profiler struct {
	Functions map[string]*FunctionStats
	Lines     map[int]*LineStats

	interp *eval.Interpreter

	// stack tracks the callee names currently being evaluated so each
	// call can be attributed to its caller. Top-level code shows up as
	// <main>.
	stack []string
	wall  time.Duration
}

// New installs a profiler over the interpreter's dispatch hooks.
// Everything the interpreter executes from this point on is recorded.
func New(interp *eval.Interpreter) *Profiler {
	p := &Profiler{
		Functions: map[string]*FunctionStats{},
		Lines:     map[int]*LineStats{},
		interp:    interp,
	}

	execStmt := interp.ExecStatement
	interp.ExecStatement = func(stmt ast.Statement, env *eval.Environment) (eval.Object, error) {
		start := time.Now()
		result, err := execStmt(stmt, env)
		if line := statementLine(stmt); line > 0 {
			stats := p.Lines[line]
			if stats == nil {
				stats = &LineStats{Line: line}
				p.Lines[line] = stats
			}
			stats.Hits++
			stats.Total += time.Since(start)
		}
		return result, err
	}

	evalExpr := interp.EvalExpression
	interp.EvalExpression = func(expr ast.Expression, env *eval.Environment) (eval.Object, error) {
		call, ok := expr.(*ast.CallExpression)
		if !ok {
			return evalExpr(expr, env)
		}
		name := calleeName(call.Callee)
		caller := "<main>"
		if len(p.stack) > 0 {
			caller = p.stack[len(p.stack)-1]
		}
		p.stack = append(p.stack, name)
		start := time.Now()
		result, err := evalExpr(expr, env)
		elapsed := time.Since(start)
		p.stack = p.stack[:len(p.stack)-1]

		stats := p.Functions[name]
		if stats == nil {
			stats = &FunctionStats{Name: name, Callers: map[string]int{}}
			p.Functions[name] = stats
		}
		stats.Calls++
		stats.Total += elapsed
		stats.Callers[caller]++
		return result, err
	}

	return p
}

// Run executes the program under the profiler and writes the report
// when it finishes. The program's own error, if any, comes back after
// the report so partial runs still show their numbers.
func (p *Profiler) Run(program *ast.Program, out io.Writer) error {
	start := time.Now()
	err := p.interp.Run(program)
	p.wall = time.Since(start)
	p.WriteReport(out)
	return err
}

// WriteReport renders the function, hot-line and call-graph sections.
func (p *Profiler) WriteReport(out io.Writer) {
	rule := strings.Repeat("=", 62)
	fmt.Fprintf(out, "\n  %s\n", rule)
	fmt.Fprintln(out, "  Profile Report")
	fmt.Fprintf(out, "  %s\n", rule)
	fmt.Fprintf(out, "  Wall time: %s\n\n", fmtDuration(p.wall))

	p.writeFunctionReport(out)
	p.writeHotLines(out)
	p.writeCallGraph(out)
}

func (p *Profiler) writeFunctionReport(out io.Writer) {
	if len(p.Functions) == 0 {
		fmt.Fprintln(out, "  No function calls recorded.")
		return
	}
	fmt.Fprintln(out, "  Function Profile (sorted by total time)")
	fmt.Fprintf(out, "  %-30s %6s %10s %10s\n", "Function", "Calls", "Total", "Avg")
	fmt.Fprintf(out, "  %s\n", strings.Repeat("-", 58))

	sorted := p.functionsByTotal()
	if len(sorted) > 20 {
		sorted = sorted[:20]
	}
	for _, s := range sorted {
		fmt.Fprintf(out, "  %-30s %6d %10s %10s\n",
			truncate(s.Name, 29), s.Calls, fmtDuration(s.Total), fmtDuration(s.Avg()))
	}
	fmt.Fprintln(out)
}

func (p *Profiler) writeHotLines(out io.Writer) {
	if len(p.Lines) == 0 {
		return
	}
	fmt.Fprintln(out, "  Hot Lines (top 15 by total time)")
	fmt.Fprintf(out, "  %6s %8s %10s\n", "Line", "Hits", "Total")
	fmt.Fprintf(out, "  %s\n", strings.Repeat("-", 58))

	sorted := make([]*LineStats, 0, len(p.Lines))
	for _, s := range p.Lines {
		sorted = append(sorted, s)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Total > sorted[j].Total })
	hottest := sorted[0].Total
	if len(sorted) > 15 {
		sorted = sorted[:15]
	}
	for _, s := range sorted {
		fmt.Fprintf(out, "  %6d %8d %10s  %s\n",
			s.Line, s.Hits, fmtDuration(s.Total), heatBar(s.Total, hottest))
	}
	fmt.Fprintln(out)
}

func (p *Profiler) writeCallGraph(out io.Writer) {
	hasCallers := false
	for _, s := range p.Functions {
		if len(s.Callers) > 0 {
			hasCallers = true
		}
	}
	if !hasCallers {
		return
	}
	fmt.Fprintln(out, "  Call Graph")
	fmt.Fprintf(out, "  %-25s <- %-25s %6s\n", "Callee", "Caller", "Count")
	fmt.Fprintf(out, "  %s\n", strings.Repeat("-", 58))

	for _, s := range p.functionsByTotal() {
		callers := make([]string, 0, len(s.Callers))
		for caller := range s.Callers {
			callers = append(callers, caller)
		}
		sort.Slice(callers, func(i, j int) bool {
			if s.Callers[callers[i]] != s.Callers[callers[j]] {
				return s.Callers[callers[i]] > s.Callers[callers[j]]
			}
			return callers[i] < callers[j]
		})
		for _, caller := range callers {
			fmt.Fprintf(out, "  %-25s <- %-25s %6d\n",
				truncate(s.Name, 24), truncate(caller, 24), s.Callers[caller])
		}
	}
	fmt.Fprintln(out)
}

func (p *Profiler) functionsByTotal() []*FunctionStats {
	sorted := make([]*FunctionStats, 0, len(p.Functions))
	for _, s := range p.Functions {
		sorted = append(sorted, s)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Total != sorted[j].Total {
			return sorted[i].Total > sorted[j].Total
		}
		return sorted[i].Name < sorted[j].Name
	})
	return sorted
}

func fmtDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dus", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000)
	default:
		return fmt.Sprintf("%.3fs", d.Seconds())
	}
}

func heatBar(value, hottest time.Duration) string {
	if hottest == 0 {
		return ""
	}
	width := int(10 * float64(value) / float64(hottest))
	if width > 10 {
		width = 10
	}
	return strings.Repeat("#", width) + strings.Repeat(".", 10-width)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// calleeName renders a display name for what a call expression invokes.
func calleeName(callee ast.Expression) string {
	switch node := callee.(type) {
	case *ast.Identifier:
		return node.Value
	case *ast.MemberExpression:
		if obj, ok := node.Object.(*ast.Identifier); ok {
			return obj.Value + "." + node.Property
		}
		return node.Property
	case *ast.OptionalMemberExpression:
		return node.Property
	}
	return "<expr>"
}

func statementLine(stmt ast.Statement) int {
	switch node := stmt.(type) {
	case *ast.LetStatement:
		return node.Token.Line
	case *ast.DestructureLetStatement:
		return node.Token.Line
	case *ast.AssignStatement:
		return node.Token.Line
	case *ast.MultiAssignStatement:
		return node.Token.Line
	case *ast.FnStatement:
		return node.Token.Line
	case *ast.ReturnStatement:
		return node.Token.Line
	case *ast.IfStatement:
		return node.Token.Line
	case *ast.ForStatement:
		return node.Token.Line
	case *ast.WhileStatement:
		return node.Token.Line
	case *ast.TryStatement:
		return node.Token.Line
	case *ast.BreakStatement:
		return node.Token.Line
	case *ast.ContinueStatement:
		return node.Token.Line
	case *ast.ThrowStatement:
		return node.Token.Line
	case *ast.ShowStatement:
		return node.Token.Line
	case *ast.ImportStatement:
		return node.Token.Line
	case *ast.ClassStatement:
		return node.Token.Line
	case *ast.InterfaceStatement:
		return node.Token.Line
	case *ast.EnumStatement:
		return node.Token.Line
	case *ast.MatchStatement:
		return node.Token.Line
	case *ast.DecoratedStatement:
		return node.Token.Line
	case *ast.ExpressionStatement:
		return node.Token.Line
	}
	return 0
}
