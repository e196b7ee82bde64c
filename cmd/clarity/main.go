package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"clarity/pkg/ast"
	"clarity/pkg/eval"
	"clarity/pkg/lexer"
	"clarity/pkg/parser"
	"clarity/pkg/pkgmgr"
	"clarity/pkg/profiler"
	"clarity/pkg/version"
)

const PROMPT = ">>> "

func main() {
	// A .env next to the working directory feeds env() lookups.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	command := os.Args[1]

	switch command {
	case "--version", "-v", "version":
		printVersion()
		return
	case "--help", "-h", "help":
		printHelp()
		return
	}

	// A bare .clarity path runs the file directly.
	if strings.HasSuffix(command, ".clarity") {
		runFile(command, os.Args[2:])
		return
	}

	switch command {
	case "repl":
		startREPL()
	case "run":
		if len(os.Args) < 3 {
			fmt.Println("Usage: clarity run <file.clarity>")
			os.Exit(1)
		}
		runFile(os.Args[2], os.Args[3:])
	case "eval":
		if len(os.Args) < 3 {
			fmt.Println("Usage: clarity eval '<code>'")
			os.Exit(1)
		}
		evalCode(os.Args[2])
	case "ast":
		if len(os.Args) < 3 {
			fmt.Println("Usage: clarity ast <file.clarity>")
			os.Exit(1)
		}
		printProgramAST(os.Args[2])
	case "profile":
		if len(os.Args) < 3 {
			fmt.Println("Usage: clarity profile <file.clarity>")
			os.Exit(1)
		}
		profileFile(os.Args[2])
	case "pkg":
		runPkg(os.Args[2:])
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printHelp()
		os.Exit(1)
	}
}

func runFile(filename string, args []string) {
	program, parserErrors, err := parseProgramFromFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "File not found: %s\n", filename)
		os.Exit(1)
	}
	if len(parserErrors) != 0 {
		printParserErrors(os.Stderr, parserErrors)
		os.Exit(1)
	}

	interp := eval.New()
	abs, err := filepath.Abs(filename)
	if err == nil {
		interp.SourceDir = filepath.Dir(abs)
	}
	eval.ScriptArgs = args

	if err := interp.Run(program); err != nil {
		fmt.Fprintf(os.Stderr, "\nClarity Error in %s: %s\n", filename, err)
		if fault, ok := err.(*eval.Fault); ok && fault.Stack != "" {
			fmt.Fprintln(os.Stderr, fault.Stack)
		}
		os.Exit(1)
	}
}

func profileFile(filename string) {
	program, parserErrors, err := parseProgramFromFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "File not found: %s\n", filename)
		os.Exit(1)
	}
	if len(parserErrors) != 0 {
		printParserErrors(os.Stderr, parserErrors)
		os.Exit(1)
	}

	interp := eval.New()
	if abs, err := filepath.Abs(filename); err == nil {
		interp.SourceDir = filepath.Dir(abs)
	}

	prof := profiler.New(interp)
	if err := prof.Run(program, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "\nClarity Error in %s: %s\n", filename, err)
		os.Exit(1)
	}
}

func evalCode(code string) {
	interp := eval.New()
	result, err := interp.EvalSource(code)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	if _, isNull := result.(*eval.Null); !isNull {
		fmt.Println(result.Inspect())
	}
}

func startREPL() {
	scanner := bufio.NewScanner(os.Stdin)
	interp := eval.New()

	fmt.Printf("Clarity REPL v%s\n", version.Version)
	fmt.Println("Type expressions or statements and press Enter")

	for {
		fmt.Print(PROMPT)
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		result, err := interp.EvalSource(line)
		if err != nil {
			fmt.Println(err)
			continue
		}
		if _, isNull := result.(*eval.Null); !isNull {
			fmt.Println(result.Inspect())
		}
	}
}

func printProgramAST(filename string) {
	program, parserErrors, err := parseProgramFromFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "File not found: %s\n", filename)
		os.Exit(1)
	}
	if len(parserErrors) != 0 {
		printParserErrors(os.Stderr, parserErrors)
		os.Exit(1)
	}
	fmt.Println(program.String())
}

func runPkg(args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: clarity pkg <init|install|add> ...")
		os.Exit(1)
	}
	dir, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	switch args[0] {
	case "init":
		name := ""
		if len(args) > 1 {
			name = args[1]
		}
		m, err := pkgmgr.Init(dir, name)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("Created %s for %s\n", pkgmgr.ManifestName, m.Name)
	case "install":
		if err := pkgmgr.Install(dir, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "add":
		if len(args) < 3 {
			fmt.Println("Usage: clarity pkg add <name> <git-url|path> [tag]")
			os.Exit(1)
		}
		name, source := args[1], args[2]
		spec := pkgmgr.DependencySpec{}
		if strings.Contains(source, "://") || strings.HasSuffix(source, ".git") {
			spec.Git = source
			if len(args) > 3 {
				spec.Tag = args[3]
			}
		} else {
			spec.Path = source
		}
		if err := pkgmgr.Add(dir, name, spec); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("Added %s\n", name)
	default:
		fmt.Printf("Unknown pkg command: %s\n", args[0])
		os.Exit(1)
	}
}

func parseProgramFromFile(filename string) (*ast.Program, []string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, nil, err
	}
	l := lexer.New(string(data))
	p := parser.New(l)
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		return nil, errs, nil
	}
	return program, nil, nil
}

func printParserErrors(out io.Writer, errors []string) {
	io.WriteString(out, "Parser errors:\n")
	for _, msg := range errors {
		io.WriteString(out, "\t"+msg+"\n")
	}
}

func printUsage() {
	fmt.Println("Clarity Programming Language v" + version.Version)
	fmt.Println("\nUsage:")
	fmt.Println("  clarity <file.clarity>   Run a Clarity script")
	fmt.Println("  clarity repl             Start interactive REPL")
	fmt.Println("  clarity run <file>       Run a Clarity script (explicit)")
	fmt.Println("  clarity eval '<code>'    Evaluate a Clarity expression")
	fmt.Println("  clarity ast <file>       Print the program AST")
	fmt.Println("  clarity profile <file>   Run a script under the profiler")
	fmt.Println("  clarity pkg <command>    Manage project dependencies")
	fmt.Println("  clarity version          Show version information")
	fmt.Println("  clarity help             Show this help message")
	fmt.Println("\nFlags:")
	fmt.Println("  -v, --version            Show version information")
	fmt.Println("  -h, --help               Show this help message")
}

func printVersion() {
	fmt.Printf("Clarity %s\n", version.Version)
	fmt.Printf("Build Date: %s\n", version.BuildDate)
	fmt.Printf("Git Commit: %s\n", version.GitCommit)
}

func printHelp() {
	fmt.Println("Clarity, a scripting language that reads the way you think")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  clarity <file.clarity>  Run a script (shortcut for 'clarity run')")
	fmt.Println("  clarity run <file>      Execute a script")
	fmt.Println("  clarity repl            Start the interactive REPL")
	fmt.Println("  clarity eval '<code>'   Evaluate an expression and print it")
	fmt.Println("  clarity ast <file>      Print the program AST")
	fmt.Println("  clarity profile <file>  Run a script and print a timing report")
	fmt.Println("  clarity pkg init        Create clarity.yaml in this directory")
	fmt.Println("  clarity pkg install     Install manifest dependencies")
	fmt.Println("  clarity pkg add <name> <source> [tag]")
	fmt.Println("                          Add and install a dependency")
	fmt.Println("  clarity version         Display build metadata")
	fmt.Println("  clarity help            Show this help message")
	fmt.Println()
	fmt.Println("Global flags:")
	fmt.Println("  --help, -h              Show help")
	fmt.Println("  --version, -v           Show version")
}
