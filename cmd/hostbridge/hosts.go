package main

import (
	"fmt"
	"io"
	"math"

	"github.com/wippyai/wasm-hostbridge/value"
)

// envHost provides printing helpers under "env". Each exported method
// becomes an import (PrintI32 -> env.print_i32).
type envHost struct {
	out io.Writer
}

func (*envHost) Namespace() string { return "env" }

func (h *envHost) PrintI32(v int32) { fmt.Fprintln(h.out, v) }

func (h *envHost) PrintI64(v int64) { fmt.Fprintln(h.out, v) }

func (h *envHost) PrintF32(v float32) { fmt.Fprintln(h.out, v) }

func (h *envHost) PrintF64(v float64) { fmt.Fprintln(h.out, v) }

func (h *envHost) PrintV128(v value.Uint128) { fmt.Fprintln(h.out, v) }

// Abort traps the guest with the given code.
func (h *envHost) Abort(code int32) error {
	return fmt.Errorf("guest aborted with code %d", code)
}

type mathHost struct{}

func (mathHost) Namespace() string { return "math" }

func (mathHost) Sqrt(x float64) float64 { return math.Sqrt(x) }

func (mathHost) Pow(x, y float64) float64 { return math.Pow(x, y) }

func (mathHost) Floor(x float64) float64 { return math.Floor(x) }

func (mathHost) Ceil(x float64) float64 { return math.Ceil(x) }

func (mathHost) Sin(x float64) float64 { return math.Sin(x) }

func (mathHost) Cos(x float64) float64 { return math.Cos(x) }

func (mathHost) Abs(x float64) float64 { return math.Abs(x) }

func (mathHost) Max(a, b int64) int64 { return max(a, b) }

func (mathHost) Min(a, b int64) int64 { return min(a, b) }
