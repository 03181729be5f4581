package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/noolang/noolang-lsp/internal/config"
	"github.com/noolang/noolang-lsp/internal/syntax"
	"github.com/noolang/noolang-lsp/internal/toolchain"
	"github.com/tidwall/pretty"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: go run ./cmd/debug_ast [-expr] [-json] <file.noo|expression>")
		flag.PrintDefaults()
	}
	expr := flag.Bool("expr", false, "treat the argument as an expression instead of a file")
	raw := flag.Bool("json", false, "print the tree as the tool emits it instead of the definition outline")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	subject := flag.Arg(0)

	root, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get working directory: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	runner := toolchain.NewRunner(cfg.Tool.Command, cfg.ResolveArgs(root), cfg.Tool.Timeout.Duration)
	ctx := context.Background()

	fmt.Printf("Analyzing AST for %s\n\n", subject)

	if *raw {
		printPayload(ctx, runner, *expr, subject)
		return
	}

	var tree *syntax.Tree
	if *expr {
		tree, err = runner.ExpressionTree(ctx, subject)
	} else {
		tree, err = runner.FileTree(ctx, subject)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get tree: %v\n", err)
		var unavailable *toolchain.AstUnavailableError
		if errors.As(err, &unavailable) && unavailable.Stderr != "" {
			fmt.Fprintf(os.Stderr, "%s\n", strings.TrimSpace(unavailable.Stderr))
		}
		os.Exit(1)
	}

	fmt.Println("Definitions:")
	for _, sym := range syntax.Definitions(tree) {
		fmt.Printf("  %-20s %-10s %s\n", sym.Name, sym.Kind, sym.Range)
	}

	fmt.Println("\nVariables:")
	for _, node := range syntax.FindAll(tree.Root, syntax.VariablePattern) {
		v := node.(*syntax.Variable)
		fmt.Printf("  %-20s %s\n", v.Name, v.Range)
	}
}

func printPayload(ctx context.Context, runner *toolchain.Runner, expr bool, subject string) {
	mode := "--ast-file"
	if expr {
		mode = "--ast"
	}

	result, err := runner.Run(ctx, mode, subject)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to run tool: %v\n", err)
		os.Exit(1)
	}
	if result.Stderr != "" {
		fmt.Fprintf(os.Stderr, "%s\n", strings.TrimSpace(result.Stderr))
	}

	payload, ok := toolchain.ExtractJSON(result.Stdout)
	if !ok {
		fmt.Fprintf(os.Stderr, "No tree in tool output (exit code %d):\n%s\n", result.ExitCode, result.Stdout)
		os.Exit(1)
	}

	out := pretty.Pretty([]byte(payload))
	if isatty.IsTerminal(os.Stdout.Fd()) {
		out = pretty.Color(out, nil)
	}
	fmt.Printf("%s\n", out)
}
