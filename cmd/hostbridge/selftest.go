package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wippyai/wasm-hostbridge/config"
	"github.com/wippyai/wasm-hostbridge/wasm"
)

func newSelftestCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Build a small module in memory and run it against the built-in hosts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return selftest(context.Background(), cmd.OutOrStdout(), cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file (YAML)")
	return cmd
}

// selftestModule imports env.print_i32, math.max and math.sqrt and exports
// run(a, b: i64) -> f64 which prints max(a, b) truncated to i32 and
// returns sqrt(16.0).
func selftestModule() []byte {
	var m wasm.Module
	printI32 := m.ImportFunc("env", "print_i32", wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}})
	maxFn := m.ImportFunc("math", "max", wasm.FuncType{
		Params:  []wasm.ValType{wasm.ValI64, wasm.ValI64},
		Results: []wasm.ValType{wasm.ValI64},
	})
	sqrt := m.ImportFunc("math", "sqrt", wasm.FuncType{
		Params:  []wasm.ValType{wasm.ValF64},
		Results: []wasm.ValType{wasm.ValF64},
	})

	code := wasm.NewCode().
		LocalGet(0).LocalGet(1).Call(maxFn).
		Op(wasm.OpI32WrapI64).Call(printI32).
		F64Const(16).Call(sqrt).
		End()
	m.AddFunc("run", wasm.FuncType{
		Params:  []wasm.ValType{wasm.ValI64, wasm.ValI64},
		Results: []wasm.ValType{wasm.ValF64},
	}, wasm.FuncBody{Code: code})
	return m.Encode()
}

func selftest(ctx context.Context, w io.Writer, cfg *config.Config) error {
	var printed bytes.Buffer
	rt, err := newRuntime(ctx, cfg, &printed)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	mod, err := rt.Load(ctx, selftestModule())
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		return fmt.Errorf("instantiate: %w", err)
	}
	defer inst.Close(ctx)

	result, err := inst.Call(ctx, "run", 3, 41)
	if err != nil {
		return fmt.Errorf("call run: %w", err)
	}
	if got := strings.TrimSpace(printed.String()); got != "41" {
		return fmt.Errorf("env.print_i32 printed %q, want \"41\"", got)
	}
	if result != 4.0 {
		return fmt.Errorf("run returned %v, want 4", result)
	}

	fmt.Fprintln(w, "selftest ok")
	return nil
}
