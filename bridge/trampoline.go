package bridge

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-hostbridge/errors"
	"github.com/wippyai/wasm-hostbridge/host"
	"github.com/wippyai/wasm-hostbridge/value"
)

// Option configures trampolines and import tables.
type Option func(*options)

type options struct {
	logger *zap.Logger
	lock   host.Locker
	policy value.Policy
}

func newOptions(opts []Option) options {
	o := options{
		lock:   host.NoLock{},
		policy: value.OverflowFail,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = Logger()
	}
	return o
}

// WithLogger sets the logger used for per-call debug output.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithLock serializes every host call through l.
func WithLock(l host.Locker) Option {
	return func(o *options) {
		if l != nil {
			o.lock = l
		}
	}
}

// WithOverflowPolicy sets how out-of-range host results are narrowed.
func WithOverflowPolicy(p value.Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// Trampoline adapts one host callable to one import signature.
type Trampoline struct {
	callable host.Callable
	lock     host.Locker
	logger   *zap.Logger
	key      ImportKey
	sig      value.Signature
	policy   value.Policy
}

// NewTrampoline builds the adapter for an already resolved signature.
func NewTrampoline(key ImportKey, sig value.Signature, c host.Callable, opts ...Option) (*Trampoline, error) {
	if err := sig.Validate(); err != nil {
		return nil, errors.New(errors.PhaseResolve, errors.KindSignature).
			Import(key.Namespace, key.Name).
			Cause(err).
			Detail("signature %s cannot be bridged", sig).
			Build()
	}
	o := newOptions(opts)
	return &Trampoline{
		callable: c,
		lock:     o.lock,
		logger:   o.logger,
		key:      key,
		sig:      sig.Clone(),
		policy:   o.policy,
	}, nil
}

func (t *Trampoline) Key() ImportKey {
	return t.key
}

// Signature returns the signature the trampoline exposes to the engine.
func (t *Trampoline) Signature() value.Signature {
	return t.sig.Clone()
}

func (t *Trampoline) Callable() host.Callable {
	return t.callable
}

// Invoke runs one host call: engine values in, engine values out.
// A trampoline without a callable is a construction defect and panics.
func (t *Trampoline) Invoke(ctx context.Context, args []value.Value) ([]value.Value, error) {
	if host.IsNil(t.callable) {
		panic(errors.Internal("trampoline for %s has no callable", t.key))
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if len(args) != len(t.sig.Params) {
		return nil, errors.New(errors.PhaseCall, errors.KindTypeCoercion).
			Import(t.key.Namespace, t.key.Name).
			Reason(errors.ReasonArity).
			Detail("got %d argument(s), signature declares %d", len(args), len(t.sig.Params)).
			Build()
	}
	for i, a := range args {
		if a.Type() != t.sig.Params[i] {
			return nil, errors.New(errors.PhaseCall, errors.KindTypeCoercion).
				Import(t.key.Namespace, t.key.Name).
				Reason(errors.ReasonKindMismatch).
				Path(fmt.Sprintf("[%d]", i)).
				WasmType(t.sig.Params[i].String()).
				Detail("argument is %s", a.Type()).
				Build()
		}
	}

	ctx, release := t.lock.Acquire(ctx)
	defer release()

	if ce := t.logger.Check(zap.DebugLevel, "host call"); ce != nil {
		ce.Write(
			zap.Stringer("import", t.key),
			zap.Stringer("signature", t.sig),
			zap.Int("args", len(args)),
		)
	}

	ret, err := t.call(ctx, value.ToHostAll(args))
	if err != nil {
		return nil, err
	}

	if len(t.sig.Results) == 0 {
		return nil, nil
	}

	results := host.Normalize(ret)
	if len(results) != len(t.sig.Results) {
		return nil, errors.Arity(t.key.Namespace, t.key.Name, len(t.sig.Results), len(results))
	}

	out, err := value.FromHostAll(results, t.sig.Results, t.policy)
	if err != nil {
		var e *errors.Error
		if stderrors.As(err, &e) && e.Namespace == "" {
			e.Namespace, e.Name = t.key.Namespace, t.key.Name
		}
		return nil, err
	}
	return out, nil
}

// call invokes the callable, turning errors and panics into host failures.
func (t *Trampoline) call(ctx context.Context, args []any) (ret any, err error) {
	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("panic: %v", r)
			}
			ret, err = nil, errors.HostFailure(t.key.Namespace, t.key.Name, cause)
		}
	}()

	ret, err = t.callable.Call(ctx, args)
	if err != nil {
		if errors.IsHostFailure(err) {
			return nil, err
		}
		return nil, errors.HostFailure(t.key.Namespace, t.key.Name, err)
	}
	return ret, nil
}

// GoModuleFunc adapts the trampoline to wazero's stack calling convention.
// Failures panic with the error; wazero recovers the panic and returns it
// from the guest call that reached this import.
func (t *Trampoline) GoModuleFunc() api.GoModuleFunc {
	params := t.sig.Params
	return func(ctx context.Context, _ api.Module, stack []uint64) {
		args, err := value.DecodeStack(stack, params)
		if err != nil {
			panic(err)
		}
		out, err := t.Invoke(ctx, args)
		if err != nil {
			if ce := t.logger.Check(zap.DebugLevel, "host call failed"); ce != nil {
				ce.Write(zap.Stringer("import", t.key), zap.Error(err))
			}
			panic(err)
		}
		if err := value.EncodeStack(stack, out); err != nil {
			panic(err)
		}
	}
}
