// Command inspect loads one or more declaration schemas (plus an
// optional bridge-ABI wasm artifact), prints type layouts and symbols,
// and optionally starts an interactive browser for calling functions
// with mock handlers installed.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	cbridge "github.com/wippyai/cbridge"
	"github.com/wippyai/cbridge/ctype"
	"github.com/wippyai/cbridge/engine"
	"github.com/wippyai/cbridge/runtime"
	"github.com/wippyai/cbridge/schema"
)

func main() {
	var (
		schemaFiles = flag.String("schema", "", "Comma-separated schema JSON files")
		wasmFile    = flag.String("wasm", "", "Bridge-ABI wasm artifact (optional; simulated space otherwise)")
		funcName    = flag.String("func", "", "Function to call")
		argList     = flag.String("args", "", "Comma-separated call arguments")
		list        = flag.Bool("list", false, "List layouts and symbols and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *schemaFiles == "" {
		fmt.Fprintln(os.Stderr, "Usage: inspect -schema <decl.json>[,<more.json>] [-wasm <artifact.wasm>]")
		fmt.Fprintln(os.Stderr, "       inspect -schema <decl.json> -list")
		fmt.Fprintln(os.Stderr, "       inspect -schema <decl.json> -func name -args a,b,c")
		fmt.Fprintln(os.Stderr, "       inspect -schema <decl.json> -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*schemaFiles, *wasmFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*schemaFiles, *wasmFile, *funcName, *argList, *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(schemaFiles, wasmFile, funcName, argList string, listOnly bool) error {
	ctx := context.Background()

	sch, env, err := loadEnvironment(ctx, schemaFiles, wasmFile)
	if err != nil {
		return err
	}
	defer env.Close()

	printLayouts(sch, env)
	printSymbols(sch, env)

	if listOnly || funcName == "" {
		return nil
	}

	fn, err := env.Func(funcName)
	if err != nil {
		return err
	}
	ft := fn.Type().(*ctype.Func)

	var raw []string
	if argList != "" {
		raw = strings.Split(argList, ",")
	}
	if len(raw) != len(ft.Params()) {
		return fmt.Errorf("%s takes %d argument(s), got %d", funcName, len(ft.Params()), len(raw))
	}
	args := make([]any, len(raw))
	for i, r := range raw {
		args[i] = convertArg(strings.TrimSpace(r), ft.Params()[i])
	}

	fmt.Printf("\nCalling %s(%s)...\n", funcName, argList)
	result, err := fn.Call(args...)
	if err != nil {
		return fmt.Errorf("call %s: %w", funcName, err)
	}
	fmt.Printf("Result: %v\n", result)
	return nil
}

// loadEnvironment merges the schema files and binds them to a wasm
// artifact when one is given, or to a simulated space otherwise.
func loadEnvironment(ctx context.Context, schemaFiles, wasmFile string) (*schema.Schema, *runtime.Environment, error) {
	var schemas []*schema.Schema
	for _, path := range strings.Split(schemaFiles, ",") {
		data, err := os.ReadFile(strings.TrimSpace(path))
		if err != nil {
			return nil, nil, fmt.Errorf("read schema: %w", err)
		}
		s, err := schema.Decode(data)
		if err != nil {
			return nil, nil, err
		}
		schemas = append(schemas, s)
	}
	merged, err := schema.Merge(schemas...)
	if err != nil {
		return nil, nil, err
	}

	var space cbridge.AddressSpace
	ptrSize := uint32(ctype.DefaultPointerSize)
	if wasmFile != "" {
		data, err := os.ReadFile(wasmFile)
		if err != nil {
			return nil, nil, fmt.Errorf("read artifact: %w", err)
		}
		ws, err := engine.NewWasmSpace(ctx, data)
		if err != nil {
			return nil, nil, err
		}
		space = ws
		ptrSize = 4 // wasm32
	} else {
		space = engine.NewLocalSpace()
	}

	env, err := runtime.New(merged, space, runtime.WithPointerSize(ptrSize))
	if err != nil {
		space.Close()
		return nil, nil, err
	}
	return merged, env, nil
}

func printLayouts(sch *schema.Schema, env *runtime.Environment) {
	fmt.Println("Types:")
	for _, decl := range sch.Types {
		t, ok := env.Type(decl.Name)
		if !ok {
			continue
		}
		st, isStruct := t.(*ctype.Struct)
		if !isStruct || !st.Complete() {
			fmt.Printf("  %s\n", t.CDef(decl.Name))
			continue
		}
		lay, err := st.Layout()
		if err != nil {
			continue
		}
		fmt.Printf("  %s  (size %d, align %d)\n", st.CDef(""), lay.Size, lay.Align)
		for _, m := range st.Members() {
			fmt.Printf("    +%-4d %s\n", m.Offset, m.Type.CDef(m.Name))
		}
	}
}

func printSymbols(sch *schema.Schema, env *runtime.Environment) {
	unresolved := make(map[string]bool)
	for _, name := range env.Unresolved() {
		unresolved[name] = true
	}

	fmt.Println("\nFunctions:")
	for _, fd := range sch.Funcs {
		fn, err := env.Func(fd.Name)
		if err != nil {
			continue
		}
		note := ""
		if unresolved[fd.Name] {
			note = "  [needs mock]"
		}
		fmt.Printf("  %s%s\n", fn.Type().CDef(fd.Name), note)
	}

	if len(sch.Vars) > 0 {
		fmt.Println("\nGlobals:")
		for _, vd := range sch.Vars {
			g, err := env.Global(vd.Name)
			if err != nil {
				continue
			}
			fmt.Printf("  %s @ %#x\n", g.Type().CDef(vd.Name), g.Addr())
		}
	}

	if len(sch.Constants) > 0 {
		fmt.Println("\nConstants:")
		for _, c := range sch.Constants {
			fmt.Printf("  %s = %d\n", c.Name, c.Value)
		}
	}
}

// convertArg parses a CLI argument per the parameter's C type.
func convertArg(value string, t ctype.Type) any {
	switch tt := t.(type) {
	case *ctype.Bool:
		return value == "true" || value == "1"

	case *ctype.Int:
		if tt.Signed() {
			if v, err := strconv.ParseInt(value, 0, 64); err == nil {
				return v
			}
		} else if v, err := strconv.ParseUint(value, 0, 64); err == nil {
			return v
		}
		return value // single-character literal

	case *ctype.Pointer:
		if tt.Elem().Kind() == ctype.KindInt {
			return value // char*-style: allocates and copies the string
		}
		if v, err := strconv.ParseUint(value, 0, 64); err == nil {
			return v
		}
	}
	return value
}
