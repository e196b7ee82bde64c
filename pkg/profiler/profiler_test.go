package profiler

import (
	"bytes"
	"strings"
	"testing"

	"clarity/pkg/ast"
	"clarity/pkg/eval"
	"clarity/pkg/lexer"
	"clarity/pkg/parser"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	p := parser.New(lexer.New(src))
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("parser errors: %v", errs)
	}
	return program
}

func TestProfilerCountsCalls(t *testing.T) {
	src := `fn work() {
	mut total = 0
	for i in range(20) {
		total = total + i
	}
	return total
}
work()
work()
`
	interp := eval.New()
	interp.Stdout = &bytes.Buffer{}
	prof := New(interp)

	var report bytes.Buffer
	if err := prof.Run(parse(t, src), &report); err != nil {
		t.Fatalf("run error: %v", err)
	}

	work := prof.Functions["work"]
	if work == nil {
		t.Fatal("no stats recorded for work")
	}
	if work.Calls != 2 {
		t.Errorf("work calls=%d, want 2", work.Calls)
	}
	if work.Callers["<main>"] != 2 {
		t.Errorf("work callers=%v, want 2 from <main>", work.Callers)
	}

	rng := prof.Functions["range"]
	if rng == nil {
		t.Fatal("no stats recorded for range")
	}
	if rng.Calls != 2 {
		t.Errorf("range calls=%d, want 2", rng.Calls)
	}
	if rng.Callers["work"] != 2 {
		t.Errorf("range callers=%v, want 2 from work", rng.Callers)
	}
}

func TestProfilerRecordsLineHits(t *testing.T) {
	src := `mut total = 0
for i in range(10) {
	total = total + i
}
`
	interp := eval.New()
	interp.Stdout = &bytes.Buffer{}
	prof := New(interp)

	var report bytes.Buffer
	if err := prof.Run(parse(t, src), &report); err != nil {
		t.Fatalf("run error: %v", err)
	}

	body := prof.Lines[3]
	if body == nil {
		t.Fatal("no stats recorded for the loop body line")
	}
	if body.Hits != 10 {
		t.Errorf("line 3 hits=%d, want 10", body.Hits)
	}
}

func TestProfilerReportSections(t *testing.T) {
	src := `fn greet(name) {
	return "hi " + name
}
greet("a")
`
	interp := eval.New()
	interp.Stdout = &bytes.Buffer{}
	prof := New(interp)

	var report bytes.Buffer
	if err := prof.Run(parse(t, src), &report); err != nil {
		t.Fatalf("run error: %v", err)
	}

	text := report.String()
	for _, want := range []string{
		"Profile Report",
		"Wall time:",
		"Function Profile",
		"Hot Lines",
		"Call Graph",
		"greet",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q:\n%s", want, text)
		}
	}
}

func TestProfilerReportsRunErrors(t *testing.T) {
	interp := eval.New()
	interp.Stdout = &bytes.Buffer{}
	prof := New(interp)

	var report bytes.Buffer
	err := prof.Run(parse(t, "fn boom() {\n\tthrow \"bad\"\n}\nboom()\n"), &report)
	if err == nil {
		t.Fatal("expected the program's fault to come back")
	}
	if !strings.Contains(report.String(), "boom") {
		t.Errorf("partial run should still report stats:\n%s", report.String())
	}
}
