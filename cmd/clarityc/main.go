package main

import (
	"fmt"
	"io"
	"os"

	"clarity/pkg/compiler"
	"clarity/pkg/lexer"
	"clarity/pkg/parser"
	"clarity/pkg/vm"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Clarity Bytecode Compiler")
		fmt.Println("Usage:")
		fmt.Println("  clarityc run <file>      - Compile and run on the VM")
		fmt.Println("  clarityc dis <file>      - Compile and print bytecode")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		if len(os.Args) < 3 {
			fmt.Println("Usage: clarityc run <file>")
			os.Exit(1)
		}
		bytecode := compileFile(os.Args[2])
		machine := vm.New(bytecode)
		if err := machine.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			os.Exit(1)
		}
	case "dis":
		if len(os.Args) < 3 {
			fmt.Println("Usage: clarityc dis <file>")
			os.Exit(1)
		}
		bytecode := compileFile(os.Args[2])
		fmt.Print(bytecode.Instructions.String())
		if len(bytecode.Constants) > 0 {
			fmt.Println("Constants:")
			for i, c := range bytecode.Constants {
				fmt.Printf("  %d: %s\n", i, c.Inspect())
			}
		}
	default:
		fmt.Println("Unknown command:", os.Args[1])
		os.Exit(1)
	}
}

func compileFile(filename string) *compiler.Bytecode {
	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	l := lexer.New(string(data))
	p := parser.New(l)
	program := p.ParseProgram()
	if len(p.Errors()) != 0 {
		printParserErrors(os.Stderr, p.Errors())
		os.Exit(1)
	}

	c := compiler.New()
	if err := c.Compile(program); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	return c.Bytecode()
}

func printParserErrors(out io.Writer, errors []string) {
	io.WriteString(out, "Parser errors:\n")
	for _, msg := range errors {
		io.WriteString(out, "\t"+msg+"\n")
	}
}
