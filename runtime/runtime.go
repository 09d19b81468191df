package runtime

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-hostbridge/bridge"
	"github.com/wippyai/wasm-hostbridge/engine"
	"github.com/wippyai/wasm-hostbridge/host"
	"github.com/wippyai/wasm-hostbridge/value"
)

type Runtime struct {
	engine *engine.Engine
	hosts  *host.Registry
	lock   host.Locker
	logger *zap.Logger
	policy value.Policy
}

// Option configures a Runtime.
type Option func(*config)

type config struct {
	engine *engine.Config
	logger *zap.Logger
	lock   host.Locker
	policy value.Policy
}

// WithEngineConfig sets the wazero engine configuration.
func WithEngineConfig(cfg *engine.Config) Option {
	return func(c *config) {
		c.engine = cfg
	}
}

// WithLogger sets the logger for bridge and runtime diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithOverflowPolicy sets how out-of-range host values are narrowed,
// both for host call results and for Instance.Call arguments.
func WithOverflowPolicy(p value.Policy) Option {
	return func(c *config) {
		c.policy = p
	}
}

// WithExecLock serializes guest calls and host callables through l.
// Use host.NewExecLock() for a reentrant process-wide lock.
func WithExecLock(l host.Locker) Option {
	return func(c *config) {
		c.lock = l
	}
}

func New(ctx context.Context, opts ...Option) (*Runtime, error) {
	cfg := config{policy: value.OverflowFail}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = Logger()
	}
	if cfg.lock == nil {
		cfg.lock = host.NoLock{}
	}

	eng, err := engine.NewEngine(ctx, cfg.engine)
	if err != nil {
		return nil, err
	}

	return &Runtime{
		engine: eng,
		hosts:  host.NewRegistry(),
		lock:   cfg.lock,
		logger: cfg.logger,
		policy: cfg.policy,
	}, nil
}

// Close releases all runtime resources.
// All instances must be closed before calling this.
func (r *Runtime) Close(ctx context.Context) error {
	return r.engine.Close(ctx)
}

// RegisterHost registers all exported methods of h as host functions.
// Must be called BEFORE instantiating modules that import these functions.
// Method names are converted from PascalCase to snake_case (GetValue -> get_value).
func (r *Runtime) RegisterHost(h host.Host) error {
	return r.hosts.RegisterHost(h)
}

// RegisterFunc registers one host function. fn is a host.Callable, a
// func(context.Context, ...any) (any, error) or a typed Go function.
func (r *Runtime) RegisterFunc(namespace, name string, fn any) error {
	return r.hosts.Register(namespace, name, fn)
}

func (r *Runtime) Hosts() *host.Registry {
	return r.hosts
}

func (r *Runtime) Engine() *engine.Engine {
	return r.engine
}

// Load compiles a core WebAssembly module. Imports are resolved at
// instantiation time; call Module.ImportTable to check them earlier.
func (r *Runtime) Load(ctx context.Context, wasm []byte) (*Module, error) {
	compiled, err := r.engine.Compile(ctx, wasm)
	if err != nil {
		return nil, err
	}
	return &Module{runtime: r, compiled: compiled}, nil
}

func (r *Runtime) bridgeOptions() []bridge.Option {
	return []bridge.Option{
		bridge.WithLogger(r.logger),
		bridge.WithLock(r.lock),
		bridge.WithOverflowPolicy(r.policy),
	}
}
