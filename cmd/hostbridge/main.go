package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-hostbridge/bridge"
	"github.com/wippyai/wasm-hostbridge/config"
	"github.com/wippyai/wasm-hostbridge/engine"
	"github.com/wippyai/wasm-hostbridge/runtime"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "hostbridge",
		Short:         "Run core WebAssembly modules against Go host functions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !verbose {
				return nil
			}
			logger, err := zap.NewDevelopment()
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			engine.SetLogger(logger)
			bridge.SetLogger(logger)
			runtime.SetLogger(logger)
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newInspectCmd(), newRunCmd(), newSchemaCmd(), newSelftestCmd())
	return root
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := config.Schema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// newRuntime creates a runtime from cfg with the built-in env and math
// hosts registered. Guest output from env.print_* goes to out.
func newRuntime(ctx context.Context, cfg *config.Config, out io.Writer) (*runtime.Runtime, error) {
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}

	rt, err := runtime.New(ctx,
		runtime.WithEngineConfig(cfg.EngineConfig()),
		runtime.WithLogger(runtime.Logger()),
		runtime.WithOverflowPolicy(policy),
		runtime.WithExecLock(cfg.Locker()),
	)
	if err != nil {
		return nil, fmt.Errorf("create runtime: %w", err)
	}

	if err := rt.RegisterHost(&envHost{out: out}); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("register env host: %w", err)
	}
	if err := rt.RegisterHost(mathHost{}); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("register math host: %w", err)
	}
	return rt, nil
}

// registerStubs adds the configured stubs for imports no built-in host
// provides. Built-ins always win.
func registerStubs(rt *runtime.Runtime, cfg *config.Config) error {
	for _, s := range cfg.Stubs {
		if _, ok := rt.Hosts().Lookup(s.Namespace, s.Name); ok {
			runtime.Logger().Debug("stub shadowed by built-in",
				zap.String("namespace", s.Namespace),
				zap.String("name", s.Name))
			continue
		}
		if err := rt.RegisterFunc(s.Namespace, s.Name, s.Callable()); err != nil {
			return fmt.Errorf("register stub %s.%s: %w", s.Namespace, s.Name, err)
		}
	}
	return nil
}

// loadModule reads a module file and prepares a runtime for it.
func loadModule(ctx context.Context, path, configPath string, out io.Writer) (*runtime.Runtime, *runtime.Module, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read file: %w", err)
	}

	rt, err := newRuntime(ctx, cfg, out)
	if err != nil {
		return nil, nil, err
	}
	if err := registerStubs(rt, cfg); err != nil {
		rt.Close(ctx)
		return nil, nil, err
	}

	mod, err := rt.Load(ctx, data)
	if err != nil {
		rt.Close(ctx)
		return nil, nil, fmt.Errorf("load %s: %w", path, err)
	}
	return rt, mod, nil
}
