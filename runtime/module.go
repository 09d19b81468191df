package runtime

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-hostbridge/bridge"
	"github.com/wippyai/wasm-hostbridge/engine"
	"github.com/wippyai/wasm-hostbridge/host"
)

type Module struct {
	runtime  *Runtime
	compiled *engine.Module
}

func (m *Module) Imports() []engine.ImportDesc {
	return m.compiled.Imports()
}

func (m *Module) Exports() []engine.ExportDesc {
	return m.compiled.Exports()
}

// ImportTable resolves the module's imports against the runtime's
// registry without instantiating. Use it to fail fast at load time.
func (m *Module) ImportTable() (*bridge.ImportTable, *bridge.Retained, error) {
	return bridge.Build(m.compiled, m.runtime.hosts, m.runtime.bridgeOptions()...)
}

// Instantiate links the module against the runtime's registered hosts.
func (m *Module) Instantiate(ctx context.Context) (*Instance, error) {
	return m.instantiate(ctx, m.runtime.hosts)
}

// InstantiateWith links the module against an explicit namespace -> name
// -> callable mapping instead of the runtime's registry.
func (m *Module) InstantiateWith(ctx context.Context, imports host.Map) (*Instance, error) {
	return m.instantiate(ctx, imports)
}

func (m *Module) instantiate(ctx context.Context, src bridge.Source) (*Instance, error) {
	table, retained, err := bridge.Build(m.compiled, src, m.runtime.bridgeOptions()...)
	if err != nil {
		return nil, err
	}

	inst, err := m.compiled.Instantiate(ctx, table, retained, "")
	if err != nil {
		retained.Release()
		return nil, err
	}

	m.runtime.logger.Debug("instance created", zap.Int("imports", table.Len()))

	return &Instance{module: m, instance: inst}, nil
}

// Close releases the compiled module.
func (m *Module) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}
