package runtime

import (
	"context"
	"fmt"

	"github.com/wippyai/wasm-hostbridge/engine"
	"github.com/wippyai/wasm-hostbridge/host"
	"github.com/wippyai/wasm-hostbridge/value"
)

type Instance struct {
	module   *Module
	instance *engine.Instance
}

// Call invokes an exported function with host values. Arguments are
// converted to the export's declared parameter types under the runtime's
// overflow policy. The result is nil for void functions, the single host
// value for one result, or host.Results otherwise.
func (i *Instance) Call(ctx context.Context, name string, args ...any) (any, error) {
	sig, err := i.instance.Signature(name)
	if err != nil {
		return nil, err
	}
	vals, err := value.FromHostAll(args, sig.Params, i.module.runtime.policy)
	if err != nil {
		return nil, fmt.Errorf("call %q: %w", name, err)
	}

	out, err := i.CallValues(ctx, name, vals...)
	if err != nil {
		return nil, err
	}

	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return value.ToHost(out[0]), nil
	}
	return host.Results(value.ToHostAll(out)), nil
}

// CallValues invokes an exported function with tagged values.
func (i *Instance) CallValues(ctx context.Context, name string, args ...value.Value) ([]value.Value, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, release := i.module.runtime.lock.Acquire(ctx)
	defer release()

	return i.instance.Call(ctx, name, args...)
}

func (i *Instance) Exports() []engine.ExportDesc {
	return i.instance.Exports()
}

// Close closes the instance and releases its host callables.
func (i *Instance) Close(ctx context.Context) error {
	return i.instance.Close(ctx)
}
