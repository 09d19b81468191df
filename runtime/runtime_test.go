package runtime

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/wippyai/wasm-hostbridge/errors"
	"github.com/wippyai/wasm-hostbridge/host"
	"github.com/wippyai/wasm-hostbridge/value"
	"github.com/wippyai/wasm-hostbridge/wasm"
)

var (
	i32      = []wasm.ValType{wasm.ValI32}
	i32x2    = []wasm.ValType{wasm.ValI32, wasm.ValI32}
	addType  = wasm.FuncType{Params: i32x2, Results: i32}
	pingType = wasm.FuncType{Results: i32}
)

// calcModule imports env.add and env.scale, exporting
// run(a, b) = add(a, b), twice(x) = scale(x), ping() = 7 and
// pair() = (1, -2).
func calcModule() []byte {
	var m wasm.Module
	add := m.ImportFunc("env", "add", addType)
	scale := m.ImportFunc("env", "scale", wasm.FuncType{Params: i32, Results: []wasm.ValType{wasm.ValI64}})
	m.AddFunc("run", addType, wasm.FuncBody{
		Code: wasm.NewCode().LocalGet(0).LocalGet(1).Call(add).End(),
	})
	m.AddFunc("twice", wasm.FuncType{Params: i32, Results: []wasm.ValType{wasm.ValI64}}, wasm.FuncBody{
		Code: wasm.NewCode().LocalGet(0).Call(scale).End(),
	})
	m.AddFunc("ping", pingType, wasm.FuncBody{
		Code: wasm.NewCode().I32Const(7).End(),
	})
	m.AddFunc("pair", wasm.FuncType{Results: []wasm.ValType{wasm.ValI32, wasm.ValI64}}, wasm.FuncBody{
		Code: wasm.NewCode().I32Const(1).I64Const(-2).End(),
	})
	return m.Encode()
}

type envHost struct {
	factor int64
}

func (envHost) Namespace() string { return "env" }

func (envHost) Add(a, b int32) int32 { return a + b }

func (h envHost) Scale(x int32) int64 { return int64(x) * h.factor }

func newRuntime(t *testing.T, opts ...Option) *Runtime {
	t.Helper()
	ctx := context.Background()
	rt, err := New(ctx, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close(ctx) })
	return rt
}

func load(t *testing.T, rt *Runtime, bin []byte) *Module {
	t.Helper()
	mod, err := rt.Load(context.Background(), bin)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return mod
}

func TestRuntime_RegisterHostAndCall(t *testing.T) {
	rt := newRuntime(t)
	if err := rt.RegisterHost(envHost{factor: 3}); err != nil {
		t.Fatalf("RegisterHost: %v", err)
	}
	if got := rt.Hosts().Functions("env"); len(got) != 2 || got[0] != "add" || got[1] != "scale" {
		t.Fatalf("registered = %v", got)
	}

	ctx := context.Background()
	inst, err := load(t, rt, calcModule()).Instantiate(ctx)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	defer inst.Close(ctx)

	tests := []struct {
		name string
		fn   string
		args []any
		want any
	}{
		{"typed add", "run", []any{40, 2}, int32(42)},
		{"widened result", "twice", []any{int64(5)}, int64(15)},
		{"no imports", "ping", nil, int32(7)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := inst.Call(ctx, tt.fn, tt.args...)
			if err != nil {
				t.Fatalf("Call: %v", err)
			}
			if got != tt.want {
				t.Errorf("Call(%s) = %#v, want %#v", tt.fn, got, tt.want)
			}
		})
	}
}

func TestInstance_CallResults(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()
	inst, err := load(t, rt, calcModule()).Instantiate(ctx)
	if err == nil {
		_ = inst.Close(ctx)
		t.Fatal("expected unresolved imports to fail")
	}

	imports := host.Map{"env": {
		"add":   host.Func(func(_ context.Context, args ...any) (any, error) { return 0, nil }),
		"scale": host.Func(func(_ context.Context, args ...any) (any, error) { return 0, nil }),
	}}
	inst, err = load(t, rt, calcModule()).InstantiateWith(ctx, imports)
	if err != nil {
		t.Fatalf("InstantiateWith: %v", err)
	}
	defer inst.Close(ctx)

	got, err := inst.Call(ctx, "pair")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	res, ok := got.(host.Results)
	if !ok || len(res) != 2 || res[0] != int32(1) || res[1] != int64(-2) {
		t.Errorf("pair = %#v", got)
	}

	vals, err := inst.CallValues(ctx, "ping")
	if err != nil || len(vals) != 1 || vals[0].I32() != 7 {
		t.Errorf("CallValues = %v, %v", vals, err)
	}
}

func TestInstance_CallArgumentOverflow(t *testing.T) {
	rt := newRuntime(t)
	if err := rt.RegisterHost(envHost{factor: 1}); err != nil {
		t.Fatalf("RegisterHost: %v", err)
	}
	ctx := context.Background()
	inst, err := load(t, rt, calcModule()).Instantiate(ctx)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	defer inst.Close(ctx)

	if _, err := inst.Call(ctx, "run", int64(1)<<40, 1); !errors.IsTypeCoercion(err) {
		t.Errorf("expected overflow error, got %v", err)
	}
	if _, err := inst.Call(ctx, "run", "one", 1); !errors.IsTypeCoercion(err) {
		t.Errorf("expected coercion error, got %v", err)
	}
	if _, err := inst.Call(ctx, "missing"); !stderrors.Is(err, &errors.Error{Kind: errors.KindNotFound}) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestRuntime_OverflowPolicy(t *testing.T) {
	tests := []struct {
		name   string
		policy value.Policy
		want   int32
		fail   bool
	}{
		{"fail", value.OverflowFail, 0, true},
		{"wrap", value.OverflowWrap, 0, false},
		{"saturate", value.OverflowSaturate, 2147483647, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := newRuntime(t, WithOverflowPolicy(tt.policy))
			_ = rt.RegisterFunc("env", "add", func(_ context.Context, args ...any) (any, error) {
				return int64(1) << 32, nil
			})
			_ = rt.RegisterFunc("env", "scale", func(x int32) int64 { return 0 })

			ctx := context.Background()
			inst, err := load(t, rt, calcModule()).Instantiate(ctx)
			if err != nil {
				t.Fatalf("Instantiate: %v", err)
			}
			defer inst.Close(ctx)

			got, err := inst.Call(ctx, "run", 1, 2)
			if tt.fail {
				if !errors.IsTypeCoercion(err) {
					t.Errorf("expected coercion error, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("run = %v, %v, want %d", got, err, tt.want)
			}
		})
	}
}

func TestModule_ImportTable(t *testing.T) {
	rt := newRuntime(t)
	_ = rt.RegisterFunc("env", "add", func(a, b int32) int32 { return a + b })
	mod := load(t, rt, calcModule())

	_, _, err := mod.ImportTable()
	var missing *errors.MissingImportsError
	if !stderrors.As(err, &missing) {
		t.Fatalf("expected missing imports, got %v", err)
	}
	if len(missing.Imports) != 1 || missing.Imports[0].Function != "scale" {
		t.Errorf("missing = %+v", missing.Imports)
	}

	_ = rt.RegisterFunc("env", "scale", func(x float64) int64 { return 0 })
	if _, _, err := mod.ImportTable(); !errors.IsSignature(err) {
		t.Errorf("expected annotation conflict, got %v", err)
	}

	_ = rt.RegisterFunc("env", "scale", func(x int32) int64 { return int64(x) })
	table, retained, err := mod.ImportTable()
	if err != nil {
		t.Fatalf("ImportTable: %v", err)
	}
	if table.Len() != 2 || retained.Len() != 2 {
		t.Errorf("table = %d, retained = %d", table.Len(), retained.Len())
	}

	if imports := mod.Imports(); len(imports) != 2 {
		t.Errorf("Imports = %v", imports)
	}
	if exports := mod.Exports(); len(exports) != 4 {
		t.Errorf("Exports = %v", exports)
	}
}

func TestRuntime_Reentrancy(t *testing.T) {
	rt := newRuntime(t, WithExecLock(host.NewExecLock()))

	var inst *Instance
	_ = rt.RegisterFunc("env", "add", func(ctx context.Context, a, b int32) (int32, error) {
		v, err := inst.Call(ctx, "ping")
		if err != nil {
			return 0, err
		}
		return a + b + v.(int32), nil
	})
	_ = rt.RegisterFunc("env", "scale", func(x int32) int64 { return 0 })

	ctx := context.Background()
	var err error
	inst, err = load(t, rt, calcModule()).Instantiate(ctx)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	defer inst.Close(ctx)

	got, err := inst.Call(ctx, "run", 1, 2)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != int32(10) {
		t.Errorf("run = %v, want 10", got)
	}
}

func TestRuntime_HostError(t *testing.T) {
	rt := newRuntime(t)
	boom := stderrors.New("boom")
	_ = rt.RegisterFunc("env", "add", func(a, b int32) (int32, error) { return 0, boom })
	_ = rt.RegisterFunc("env", "scale", func(x int32) int64 { return 0 })

	ctx := context.Background()
	inst, err := load(t, rt, calcModule()).Instantiate(ctx)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	defer inst.Close(ctx)

	_, err = inst.Call(ctx, "run", 1, 2)
	if !errors.IsHostFailure(err) || !stderrors.Is(err, boom) {
		t.Errorf("expected host failure wrapping boom, got %v", err)
	}
	if got, err := inst.Call(ctx, "ping"); err != nil || got != int32(7) {
		t.Errorf("ping after failure = %v, %v", got, err)
	}
}

func TestRuntime_LoadInvalid(t *testing.T) {
	rt := newRuntime(t)
	if _, err := rt.Load(context.Background(), []byte("not wasm")); err == nil {
		t.Error("expected compile error")
	}
	if err := rt.RegisterFunc("", "x", func() {}); err == nil {
		t.Error("expected empty namespace to be rejected")
	}
}
