package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-hostbridge/engine"
	"github.com/wippyai/wasm-hostbridge/runtime"
	"github.com/wippyai/wasm-hostbridge/value"
)

func newInspectCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "inspect <file.wasm>",
		Short: "List a module's imports and exports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			rt, mod, err := loadModule(ctx, args[0], configPath, io.Discard)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)
			return inspect(cmd.OutOrStdout(), args[0], rt, mod)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file (YAML)")
	return cmd
}

func inspect(w io.Writer, filename string, rt *runtime.Runtime, mod *runtime.Module) error {
	imports := mod.Imports()
	exports := mod.Exports()

	fmt.Fprintf(w, "Module: %s\n", filename)
	fmt.Fprintf(w, "Imports: %d\n", len(imports))
	for _, imp := range imports {
		status := "missing"
		if _, ok := rt.Hosts().Lookup(imp.Namespace, imp.Name); ok {
			status = "provided"
		}
		fmt.Fprintf(w, "  %s.%s: %s [%s]\n", imp.Namespace, imp.Name, describe(imp.Kind, imp.Signature, imp.Memory), status)
	}

	fmt.Fprintf(w, "Exports: %d\n", len(exports))
	for _, exp := range exports {
		fmt.Fprintf(w, "  %s: %s\n", exp.Name, describe(exp.Kind, exp.Signature, exp.Memory))
	}

	if _, _, err := mod.ImportTable(); err != nil {
		fmt.Fprintf(w, "\nImports do not resolve: %v\n", err)
	}
	return nil
}

func describe(kind engine.ExternKind, sig *value.Signature, mem *engine.Limits) string {
	switch {
	case kind == engine.ExternMemory && mem != nil:
		if mem.Max != nil {
			return fmt.Sprintf("memory(%d..%d pages)", mem.Min, *mem.Max)
		}
		return fmt.Sprintf("memory(%d.. pages)", mem.Min)
	case sig != nil:
		return funcWIT(*sig)
	}
	return string(kind)
}

// funcWIT renders a core signature in WIT function syntax, with i32/i64
// shown as s32/s64.
func funcWIT(sig value.Signature) string {
	params := make([]string, len(sig.Params))
	for i, t := range sig.Params {
		params[i] = fmt.Sprintf("arg%d: %s", i, typeName(t))
	}
	s := "func(" + strings.Join(params, ", ") + ")"
	switch len(sig.Results) {
	case 0:
	case 1:
		s += " -> " + typeName(sig.Results[0])
	default:
		results := make([]string, len(sig.Results))
		for i, t := range sig.Results {
			results[i] = typeName(t)
		}
		s += " -> tuple<" + strings.Join(results, ", ") + ">"
	}
	return s
}

func typeName(t value.Type) string {
	if wt, ok := witType(t); ok {
		return witTypeStr(wt)
	}
	return t.String()
}

func witType(t value.Type) (wit.Type, bool) {
	switch t {
	case value.I32:
		return wit.S32{}, true
	case value.I64:
		return wit.S64{}, true
	case value.F32:
		return wit.F32{}, true
	case value.F64:
		return wit.F64{}, true
	}
	return nil, false
}

func witTypeStr(t wit.Type) string {
	switch t.(type) {
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.Char:
		return "char"
	case wit.String:
		return "string"
	default:
		return fmt.Sprintf("%T", t)
	}
}
