package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-hostbridge/bridge"
	"github.com/wippyai/wasm-hostbridge/errors"
	"github.com/wippyai/wasm-hostbridge/value"
)

// Instance is a running module together with the host modules serving
// its imports.
type Instance struct {
	guest    api.Module
	module   *Module
	retained *bridge.Retained
	hosts    []api.Module
	mu       sync.Mutex
	closed   bool
}

// Exports returns the module's export descriptors.
func (i *Instance) Exports() []ExportDesc {
	return i.module.Exports()
}

// Signature returns the signature of an exported function.
func (i *Instance) Signature(name string) (value.Signature, error) {
	fn, err := i.exported(name)
	if err != nil {
		return value.Signature{}, err
	}
	sig, err := signatureOf(fn.Definition())
	if err != nil {
		return value.Signature{}, fmt.Errorf("export %q: %w", name, err)
	}
	return sig, nil
}

func (i *Instance) exported(name string) (api.Function, error) {
	i.mu.Lock()
	guest, closed := i.guest, i.closed
	i.mu.Unlock()
	if closed || guest == nil {
		return nil, errors.New(errors.PhaseRuntime, errors.KindInvalidInput).
			Detail("instance is closed").
			Build()
	}
	fn := guest.ExportedFunction(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseRuntime, "export", name)
	}
	return fn, nil
}

// Call invokes an exported function. Arguments must match the export's
// parameter types exactly.
func (i *Instance) Call(ctx context.Context, name string, args ...value.Value) ([]value.Value, error) {
	fn, err := i.exported(name)
	if err != nil {
		return nil, err
	}
	sig, err := signatureOf(fn.Definition())
	if err != nil {
		return nil, fmt.Errorf("export %q: %w", name, err)
	}

	if len(args) != len(sig.Params) {
		return nil, errors.New(errors.PhaseCall, errors.KindTypeCoercion).
			Reason(errors.ReasonArity).
			Detail("export %q takes %d argument(s), got %d", name, len(sig.Params), len(args)).
			Build()
	}
	for idx, a := range args {
		if a.Type() != sig.Params[idx] {
			return nil, errors.New(errors.PhaseCall, errors.KindTypeCoercion).
				Reason(errors.ReasonKindMismatch).
				Path(fmt.Sprintf("[%d]", idx)).
				WasmType(sig.Params[idx].String()).
				Detail("export %q argument is %s", name, a.Type()).
				Build()
		}
	}

	slots := max(value.SlotCount(sig.Params), value.SlotCount(sig.Results))
	stack := make([]uint64, slots)
	if err := value.EncodeStack(stack, args); err != nil {
		return nil, err
	}

	if err := fn.CallWithStack(ctx, stack); err != nil {
		Logger().Debug("guest call failed", zap.String("export", name), zap.Error(err))
		return nil, fmt.Errorf("call %q: %w", name, err)
	}

	return value.DecodeStack(stack, sig.Results)
}

// Close closes the guest, then its host modules, then releases the
// retained callables. Calling Close more than once is a no-op.
func (i *Instance) Close(ctx context.Context) error {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return nil
	}
	i.closed = true
	guest := i.guest
	i.guest = nil
	i.mu.Unlock()

	var firstErr error
	if guest != nil {
		if err := guest.Close(ctx); err != nil {
			firstErr = err
		}
	}
	if err := i.closeHosts(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	i.retained.Release()
	return firstErr
}

func (i *Instance) closeHosts(ctx context.Context) error {
	var firstErr error
	for _, h := range i.hosts {
		if err := h.Close(ctx); err != nil {
			Logger().Warn("failed to close host module",
				zap.String("namespace", h.Name()), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	i.hosts = nil
	return firstErr
}
