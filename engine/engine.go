package engine

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-hostbridge/errors"
)

// Engine owns a wazero runtime. Host modules built from import tables
// and guest instances live in its module namespace.
type Engine struct {
	runtime wazero.Runtime
	mu      sync.Mutex
}

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// EnableThreads enables the WebAssembly threads proposal (experimental).
	EnableThreads bool

	// Interpreter selects wazero's interpreter instead of the compiler.
	Interpreter bool

	// CloseOnContextDone stops guest execution when the call context ends.
	CloseOnContextDone bool
}

// NewEngine creates a new engine. A nil cfg uses defaults.
func NewEngine(ctx context.Context, cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.Interpreter {
		runtimeCfg = wazero.NewRuntimeConfigInterpreter()
	}
	if cfg.MemoryLimitPages > 0 {
		if cfg.MemoryLimitPages > 65536 {
			return nil, errors.InvalidInput(errors.PhaseRuntime, "memory limit exceeds 65536 pages")
		}
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	if cfg.EnableThreads {
		runtimeCfg = runtimeCfg.WithCoreFeatures(api.CoreFeaturesV2 | experimental.CoreFeaturesThreads)
	}
	if cfg.CloseOnContextDone {
		runtimeCfg = runtimeCfg.WithCloseOnContextDone(true)
	}

	Logger().Debug("engine created",
		zap.Bool("interpreter", cfg.Interpreter),
		zap.Uint32("memory_limit_pages", cfg.MemoryLimitPages))

	return &Engine{runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg)}, nil
}

// Compile decodes and validates a core module.
func (e *Engine) Compile(ctx context.Context, wasmBytes []byte) (*Module, error) {
	if len(wasmBytes) == 0 {
		return nil, errors.InvalidInput(errors.PhaseCompile, "empty module")
	}
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.Compile(err)
	}
	return newModule(e, compiled), nil
}

// Validate reports whether wasmBytes is a valid module for this engine.
func (e *Engine) Validate(ctx context.Context, wasmBytes []byte) error {
	m, err := e.Compile(ctx, wasmBytes)
	if err != nil {
		return err
	}
	return m.Close(ctx)
}

// Bound reports whether a module (host or guest) is instantiated under
// name.
func (e *Engine) Bound(name string) bool {
	return e.runtime.Module(name) != nil
}

// Close releases the runtime and every module instantiated in it.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}
