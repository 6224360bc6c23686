package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/alecthomas/repr"
	"github.com/fatih/color"
	"github.com/goccy/go-yaml"
	"github.com/shibukawa/jmespath"
	"github.com/shibukawa/jmespath/ast"
	"github.com/shibukawa/jmespath/interp"
	"github.com/shibukawa/jmespath/lint"
	"github.com/shibukawa/jmespath/parser"
	"github.com/shibukawa/jmespath/runtime"
)

// Sentinel errors
var (
	ErrProblemsFound = errors.New("expression has problems")
)

// ParseCmd represents the parse command
type ParseCmd struct {
	Expression string `arg:"" help:"Expression to parse"`
	AST        bool   `help:"Dump the syntax tree instead of the serialized expression"`
}

func (cmd *ParseCmd) Run(ctx *Context) error {
	expr, err := parser.Parse(cmd.Expression)
	if err != nil {
		return err
	}

	if cmd.AST {
		repr.Println(expr)
		return nil
	}

	serialized, err := ast.Serialize(expr)
	if err != nil {
		return err
	}
	fmt.Println(serialized)
	return nil
}

// LintCmd represents the lint command
type LintCmd struct {
	Expression string `arg:"" help:"Expression to check"`
	Input      string `short:"i" help:"Document file to check against (JSON or YAML)" type:"path"`
}

func (cmd *LintCmd) Run(ctx *Context) error {
	expr, err := parser.Parse(cmd.Expression)
	if err != nil {
		return err
	}

	current := runtime.Any
	if cmd.Input != "" {
		document, err := loadDocument(cmd.Input)
		if err != nil {
			return err
		}
		current = runtime.Known(document)
	}

	result := lint.Check(expr, current)

	if ctx.Verbose {
		color.Blue("Inferred result type: %s", result.Type)
	}

	hasError := false
	for _, problem := range result.Problems {
		switch problem.Severity {
		case jmespath.SeverityError:
			hasError = true
			color.Red("%s", problem)
		case jmespath.SeverityDanger:
			color.Yellow("%s", problem)
		default:
			color.Cyan("%s", problem)
		}
	}

	if hasError {
		return ErrProblemsFound
	}
	if result.OK() && !ctx.Quiet {
		fmt.Println("OK")
	}
	return nil
}

// EvalCmd represents the eval command
type EvalCmd struct {
	Expression string `arg:"" help:"Expression to evaluate"`
	Input      string `short:"i" help:"Document file (JSON or YAML, defaults to stdin)" type:"path"`
	Compact    bool   `short:"c" help:"Print the result without indentation"`
}

func (cmd *EvalCmd) Run(ctx *Context) error {
	var (
		document any
		err      error
	)
	if cmd.Input == "" || cmd.Input == "-" {
		document, err = readDocument(os.Stdin, false)
	} else {
		document, err = loadDocument(cmd.Input)
	}
	if err != nil {
		return err
	}

	result, err := interp.Search(cmd.Expression, document)
	if err != nil {
		return err
	}

	var encoded []byte
	if cmd.Compact {
		encoded, err = json.Marshal(result)
	} else {
		encoded, err = json.MarshalIndent(result, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Println(string(encoded))
	return nil
}

// loadDocument reads a JSON or YAML document, chosen by file extension.
func loadDocument(path string) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()

	ext := filepath.Ext(path)
	return readDocument(f, ext == ".yaml" || ext == ".yml")
}

func readDocument(r io.Reader, isYAML bool) (any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	var document any
	if isYAML {
		err = yaml.Unmarshal(data, &document)
	} else {
		err = json.Unmarshal(data, &document)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return document, nil
}

// VersionCmd represents the version command
type VersionCmd struct{}

func (cmd *VersionCmd) Run() error {
	fmt.Println("jmespath v0.1.0")
	return nil
}
