package main

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/wasm-hostbridge/engine"
	"github.com/wippyai/wasm-hostbridge/host"
	"github.com/wippyai/wasm-hostbridge/value"
)

type runOptions struct {
	config      string
	funcName    string
	args        []string
	interactive bool
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <file.wasm>",
		Short: "Instantiate a module and call one of its exports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.interactive {
				if !term.IsTerminal(int(os.Stdout.Fd())) {
					return fmt.Errorf("interactive mode requires a terminal")
				}
				return runInteractive(args[0], opts.config)
			}
			return run(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.config, "config", "c", "", "Configuration file (YAML)")
	cmd.Flags().StringVarP(&opts.funcName, "func", "f", "", "Export to call (default: _start, run or main)")
	cmd.Flags().StringSliceVarP(&opts.args, "args", "a", nil, "Arguments, comma-separated")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "Interactive mode with TUI")
	return cmd
}

func run(ctx context.Context, w io.Writer, filename string, opts runOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	rt, mod, err := loadModule(ctx, filename, opts.config, w)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	inst, err := mod.Instantiate(ctx)
	if err != nil {
		return fmt.Errorf("instantiate: %w", err)
	}
	defer inst.Close(ctx)

	exports := functionExports(inst.Exports())
	funcName := opts.funcName
	if funcName == "" {
		funcName = entryPoint(exports)
		if funcName == "" {
			return fmt.Errorf("no entry point found; use --func (exports: %s)", strings.Join(exportNames(exports), ", "))
		}
	}

	var sig *value.Signature
	for _, exp := range exports {
		if exp.Name == funcName {
			sig = exp.Signature
		}
	}
	if sig == nil {
		return fmt.Errorf("export %q not found", funcName)
	}

	args, err := parseArgs(opts.args, sig.Params)
	if err != nil {
		return err
	}

	result, err := inst.Call(ctx, funcName, args...)
	if err != nil {
		return fmt.Errorf("call %s: %w", funcName, err)
	}
	fmt.Fprintf(w, "Result: %s\n", formatResult(result))
	return nil
}

func functionExports(all []engine.ExportDesc) []engine.ExportDesc {
	var out []engine.ExportDesc
	for _, exp := range all {
		if exp.Kind == engine.ExternFunction && exp.Signature != nil {
			out = append(out, exp)
		}
	}
	return out
}

func exportNames(exports []engine.ExportDesc) []string {
	names := make([]string, len(exports))
	for i, exp := range exports {
		names[i] = exp.Name
	}
	return names
}

// entryPoint picks a common entry point, or the only export.
func entryPoint(exports []engine.ExportDesc) string {
	for _, name := range []string{"_start", "run", "main"} {
		for _, exp := range exports {
			if exp.Name == name {
				return name
			}
		}
	}
	if len(exports) == 1 {
		return exports[0].Name
	}
	return ""
}

func parseArgs(raw []string, types []value.Type) ([]any, error) {
	if len(raw) != len(types) {
		return nil, fmt.Errorf("function takes %d argument(s), got %d", len(types), len(raw))
	}
	args := make([]any, len(raw))
	for i, s := range raw {
		v, err := parseArg(strings.TrimSpace(s), types[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		args[i] = v
	}
	return args, nil
}

func parseArg(s string, t value.Type) (any, error) {
	switch t {
	case value.I32:
		v, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return nil, err
		}
		return v, nil
	case value.I64:
		if v, err := strconv.ParseInt(s, 0, 64); err == nil {
			return v, nil
		}
		v, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return nil, err
		}
		return v, nil
	case value.F32, value.F64:
		return strconv.ParseFloat(s, 64)
	case value.V128:
		b, ok := new(big.Int).SetString(s, 0)
		if !ok {
			return nil, fmt.Errorf("invalid v128 %q", s)
		}
		return b, nil
	}
	return nil, fmt.Errorf("unsupported parameter type %s", t)
}

func formatResult(result any) string {
	switch r := result.(type) {
	case nil:
		return "(none)"
	case host.Results:
		parts := make([]string, len(r))
		for i, v := range r {
			parts[i] = fmt.Sprint(v)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
	return fmt.Sprint(result)
}
