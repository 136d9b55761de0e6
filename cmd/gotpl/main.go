package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/moyanj/gotpl"
	"github.com/moyanj/gotpl/engine"
	gotplerrors "github.com/moyanj/gotpl/errors"
)

func main() {
	var (
		enginePath   = flag.String("engine", "", "Path to the engine wasm module")
		templatePath = flag.String("template", "", "Path to the template file")
		dataArg      = flag.String("data", "{}", "JSON data: inline text, or @file to read from a file")
		raw          = flag.Bool("raw", false, "Disable HTML escaping of the output")
		missing      = flag.String("missing", "error", "Missing-key policy: error or zero")
		outPath      = flag.String("o", "", "Write output to a file instead of stdout")
		verbose      = flag.Bool("v", false, "Enable development logging")
		interactive  = flag.Bool("i", false, "Interactive playground")
	)
	flag.Parse()

	if *enginePath == "" {
		fmt.Fprintln(os.Stderr, "Usage: gotpl -engine <engine.wasm> -template <file> [-data json|@file] [-raw] [-missing error|zero] [-o out]")
		fmt.Fprintln(os.Stderr, "       gotpl -engine <engine.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		engine.SetLogger(logger)
	}

	if err := run(*enginePath, *templatePath, *dataArg, *missing, *outPath, *raw, *interactive); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(enginePath, templatePath, dataArg, missing, outPath string, raw, interactive bool) error {
	ctx := context.Background()

	wasmBytes, err := os.ReadFile(enginePath)
	if err != nil {
		return fmt.Errorf("read engine: %w", err)
	}

	eng, err := engine.NewEngine(ctx, wasmBytes, nil)
	if err != nil {
		return fmt.Errorf("load engine: %w", err)
	}
	defer eng.Close(ctx)

	if interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("interactive mode requires a terminal")
		}
		return runInteractive(eng)
	}

	if templatePath == "" {
		return fmt.Errorf("-template is required (or use -i)")
	}
	templateText, err := os.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}

	data, err := loadData(dataArg)
	if err != nil {
		return err
	}

	policy, err := parsePolicy(missing)
	if err != nil {
		return err
	}

	output, err := gotpl.New(eng, string(templateText), data).
		EscapeHTML(!raw).
		OnMissingKey(policy).
		Render(ctx)
	if err != nil {
		return describe(err)
	}

	if outPath != "" {
		return os.WriteFile(outPath, []byte(output), 0o644)
	}
	fmt.Println(output)
	return nil
}

// loadData resolves the -data argument into a serializable value. Inline
// text and @file contents must already be valid JSON; validating here keeps
// malformed input from burning an engine call.
func loadData(arg string) (any, error) {
	text := []byte(arg)
	if strings.HasPrefix(arg, "@") {
		var err error
		text, err = os.ReadFile(arg[1:])
		if err != nil {
			return nil, fmt.Errorf("read data: %w", err)
		}
	}
	if !json.Valid(text) {
		return nil, fmt.Errorf("data is not valid JSON")
	}
	return json.RawMessage(text), nil
}

func parsePolicy(s string) (gotpl.MissingKeyPolicy, error) {
	switch s {
	case "error":
		return gotpl.ErrorOnMissing, nil
	case "zero":
		return gotpl.ZeroOnMissing, nil
	default:
		return 0, fmt.Errorf("unknown missing-key policy %q (want error or zero)", s)
	}
}

// describe prefixes a render failure with its category so shell users see at
// a glance which stage rejected the call.
func describe(err error) error {
	switch {
	case gotplerrors.IsInvalidInput(err):
		return fmt.Errorf("invalid input: %w", err)
	case gotplerrors.IsSerialization(err):
		return fmt.Errorf("serialization failed: %w", err)
	case gotplerrors.IsExecution(err):
		return fmt.Errorf("engine reported: %w", err)
	default:
		return err
	}
}
