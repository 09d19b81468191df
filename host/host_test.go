package host

import (
	"context"
	stderrors "errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/wippyai/wasm-hostbridge/errors"
	"github.com/wippyai/wasm-hostbridge/value"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []any
	}{
		{"nil", nil, nil},
		{"single", int32(5), []any{int32(5)}},
		{"results", Results{1, 2}, []any{1, 2}},
		{"slice", []any{3}, []any{3}},
		{"empty results", Results{}, []any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestAnnotate(t *testing.T) {
	base := Func(func(ctx context.Context, args ...any) (any, error) { return nil, nil })

	if anns := AnnotationsOf(base); anns != nil {
		t.Errorf("plain callable has annotations: %v", anns)
	}

	a := Annotate(base, Param("x", "i32"), Return("i64"))
	anns := AnnotationsOf(a)
	if len(anns) != 2 || anns[0].Name != "x" || !anns[1].IsReturn() {
		t.Fatalf("annotations = %v", anns)
	}

	again := Annotate(a, Param("y", "f64"))
	if got := AnnotationsOf(again); len(got) != 1 || got[0].Name != "y" {
		t.Errorf("re-annotation should replace hints, got %v", got)
	}
	if _, nested := again.(*annotated).Callable.(*annotated); nested {
		t.Error("re-annotation should not nest wrappers")
	}
}

func TestIsNil(t *testing.T) {
	var f Func
	var p *typedFunc
	if !IsNil(nil) || !IsNil(f) || !IsNil(p) {
		t.Error("expected nil callables to be detected")
	}
	if IsNil(Func(func(context.Context, ...any) (any, error) { return nil, nil })) {
		t.Error("non-nil func reported nil")
	}
}

func TestTyped_Annotations(t *testing.T) {
	tests := []struct {
		name string
		fn   any
		want []Annotation
	}{
		{
			name: "ints",
			fn:   func(a, b int32) int32 { return a + b },
			want: []Annotation{Param("param_0", "i32"), Param("param_1", "i32"), Return("i32")},
		},
		{
			name: "context and error",
			fn:   func(ctx context.Context, x int64) (float64, error) { return 0, nil },
			want: []Annotation{Param("param_0", "i64"), Return("f64")},
		},
		{
			name: "generic int and void",
			fn:   func(n uint, f float32) {},
			want: []Annotation{Param("param_0", "int"), Param("param_1", "f32")},
		},
		{
			name: "v128",
			fn:   func(v value.Uint128) uint64 { return v.Lo },
			want: []Annotation{Param("param_0", "v128"), Return("i64")},
		},
		{
			name: "error only",
			fn:   func() error { return nil },
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Typed(tt.fn)
			if err != nil {
				t.Fatalf("Typed: %v", err)
			}
			got := c.Annotations()
			if len(got) != len(tt.want) {
				t.Fatalf("annotations = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTyped_Arity(t *testing.T) {
	tests := []struct {
		name            string
		fn              any
		params, results int
	}{
		{"empty", func() {}, 0, 0},
		{"ctx and error", func(context.Context) error { return nil }, 0, 0},
		{"one param", func(int32) {}, 1, 0},
		{"result only", func() float64 { return 0 }, 0, 1},
		{"full", func(context.Context, int64, uint32) (int64, error) { return 0, nil }, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Typed(tt.fn)
			if err != nil {
				t.Fatalf("Typed: %v", err)
			}
			f, ok := c.(Fixed)
			if !ok {
				t.Fatalf("%T does not report its arity", c)
			}
			if p, r := f.Arity(); p != tt.params || r != tt.results {
				t.Errorf("Arity = (%d, %d), want (%d, %d)", p, r, tt.params, tt.results)
			}
		})
	}
}

func TestTyped_Rejects(t *testing.T) {
	tests := []struct {
		name string
		fn   any
	}{
		{"nil", nil},
		{"not a function", 42},
		{"nil function", (func(int32))(nil)},
		{"string param", func(s string) {}},
		{"variadic", func(xs ...int32) {}},
		{"two results", func() (int32, int32) { return 0, 0 }},
		{"bool result", func() bool { return true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Typed(tt.fn); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestTyped_Call(t *testing.T) {
	c, err := Typed(func(ctx context.Context, a uint32, b int) (int64, error) {
		if ctx == nil {
			return 0, stderrors.New("nil ctx")
		}
		return int64(a) + int64(b), nil
	})
	if err != nil {
		t.Fatalf("Typed: %v", err)
	}

	got, err := c.Call(context.Background(), []any{int32(-1), int32(1)})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != int64(4294967296) {
		t.Errorf("Call = %v (%T), want 4294967296", got, got)
	}

	if _, err := c.Call(context.Background(), []any{int32(1)}); err == nil {
		t.Error("expected arity error")
	}
	if _, err := c.Call(context.Background(), []any{"x", int32(1)}); !errors.IsTypeCoercion(err) {
		t.Errorf("expected coercion error, got %v", err)
	}

	boom := stderrors.New("boom")
	failing, _ := Typed(func() error { return boom })
	if _, err := failing.Call(context.Background(), nil); err != boom {
		t.Errorf("expected handler error, got %v", err)
	}
}

type mathHost struct{ calls int }

func (h *mathHost) Namespace() string { return "math" }

func (h *mathHost) Add(a, b int32) int32 { h.calls++; return a + b }

func (h *mathHost) SquareRoot(x float64) float64 { return x }

func (h *mathHost) GetHTTPCode() int32 { return 200 }

type explicitHost struct{}

func (explicitHost) Namespace() string { return "env" }

func (explicitHost) Register() map[string]any {
	return map[string]any{
		"__log": func(int32) {},
		"abort": Func(func(context.Context, ...any) (any, error) { return nil, nil }),
	}
}

func TestRegistry_RegisterHost(t *testing.T) {
	r := NewRegistry()
	h := &mathHost{}
	if err := r.RegisterHost(h); err != nil {
		t.Fatalf("RegisterHost: %v", err)
	}

	got := r.Functions("math")
	want := []string{"add", "get_http_code", "square_root"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Functions = %v, want %v", got, want)
	}

	add, ok := r.Lookup("math", "add")
	if !ok {
		t.Fatal("add not registered")
	}
	res, err := add.Call(context.Background(), []any{int32(2), int32(3)})
	if err != nil || res != int32(5) || h.calls != 1 {
		t.Errorf("add = %v, %v (calls %d)", res, err, h.calls)
	}

	if err := r.RegisterHost(explicitHost{}); err != nil {
		t.Fatalf("RegisterHost explicit: %v", err)
	}
	if got := r.Functions("env"); !reflect.DeepEqual(got, []string{"__log", "abort"}) {
		t.Errorf("explicit Functions = %v", got)
	}
	if got := r.Namespaces(); !reflect.DeepEqual(got, []string{"env", "math"}) {
		t.Errorf("Namespaces = %v", got)
	}
	if r.Len() != 5 {
		t.Errorf("Len = %d, want 5", r.Len())
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	if err := r.Register("", "f", func() {}); err == nil {
		t.Error("expected empty namespace error")
	}
	if err := r.Register("env", "", func() {}); err == nil {
		t.Error("expected empty name error")
	}
	if err := r.Register("env", "f", "not a func"); err == nil {
		t.Error("expected non-function error")
	}
	if err := r.Register("env", "f", nil); err == nil {
		t.Error("expected nil handler error")
	}

	plain := func(ctx context.Context, args ...any) (any, error) { return len(args), nil }
	if err := r.Register("env", "count", plain); err != nil {
		t.Fatalf("Register plain: %v", err)
	}
	c, _ := r.Lookup("env", "count")
	if n, _ := c.Call(context.Background(), []any{1, 2, 3}); n != 3 {
		t.Errorf("count = %v", n)
	}
	if AnnotationsOf(c) != nil {
		t.Error("plain callable should be unannotated")
	}

	if _, ok := r.Lookup("env", "missing"); ok {
		t.Error("unexpected lookup hit")
	}
}

func TestMap(t *testing.T) {
	noop := Func(func(context.Context, ...any) (any, error) { return nil, nil })
	m := Map{
		"b": {"y": noop, "x": noop},
		"a": {"z": noop},
	}
	if got := m.Namespaces(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Namespaces = %v", got)
	}
	if got := m.Functions("b"); !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Errorf("Functions = %v", got)
	}
	if _, ok := m.Lookup("a", "z"); !ok {
		t.Error("lookup miss")
	}
	if _, ok := m.Lookup("nope", "z"); ok {
		t.Error("lookup hit on missing namespace")
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Add", "add"},
		{"SquareRoot", "square_root"},
		{"GetHTTPURL", "get_httpurl"},
		{"HTTPServer", "http_server"},
		{"already_snake", "already_snake"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := toSnakeCase(tt.input); got != tt.expected {
			t.Errorf("toSnakeCase(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestExecLock_Reentrant(t *testing.T) {
	l := NewExecLock()
	ctx, release := l.Acquire(context.Background())
	if !l.Held(ctx) {
		t.Fatal("expected lock held")
	}

	done := make(chan struct{})
	go func() {
		inner, innerRelease := l.Acquire(ctx)
		innerRelease()
		if !l.Held(inner) {
			t.Error("nested release must not drop the outer hold")
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("nested acquire blocked")
	}

	release()
	release()
	if l.Held(ctx) {
		t.Error("lock still held after release")
	}

	// A released context must not re-enter a later hold.
	_, r2 := l.Acquire(context.Background())
	if l.Held(ctx) {
		t.Error("stale context reports ownership")
	}
	r2()
}

func TestExecLock_Exclusive(t *testing.T) {
	l := NewExecLock()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, release := l.Acquire(context.Background())
			defer release()

			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxSeen)
	}
}

func TestNoLock(t *testing.T) {
	ctx := context.Background()
	got, release := NoLock{}.Acquire(ctx)
	release()
	if got != ctx {
		t.Error("NoLock should return the input context")
	}
}
