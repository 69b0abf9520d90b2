package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"reflect"

	"github.com/spf13/cobra"

	"github.com/wippyai/wasmbind/idl"
	"github.com/wippyai/wasmbind/runtime"
	"github.com/wippyai/wasmbind/schema"
	"github.com/wippyai/wasmbind/transcoder"
)

var callCmd = &cobra.Command{
	Use:   "call <module.wasm> [function] [json-arg...]",
	Short: "Instantiate a module and call one exported function",
	Long: `Call decodes every argument as a JSON value: records are objects keyed by
field name, lists are arrays. The result is printed as JSON.

With -i, call opens an interactive picker over every exported function.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCall,
}

func init() {
	callCmd.Flags().String("schema", "", "interface description to use instead of embedded sections")
	callCmd.Flags().Uint32("max-pages", 0, "guest memory limit in 64 KiB pages")
	callCmd.Flags().BoolP("interactive", "i", false, "pick functions and enter arguments in a terminal UI")
}

// session is one instantiated module.
type session struct {
	rt   *runtime.Runtime
	mod  *runtime.Module
	inst *runtime.Instance
}

func (s *session) Close(ctx context.Context) {
	if s.inst != nil {
		s.inst.Close(ctx)
	}
	s.rt.Close(ctx)
}

func (s *session) records() *schema.Registry {
	return s.mod.Bundle().Records
}

// open loads the module at path, with the schema at schemaPath when given,
// and instantiates it.
func open(ctx context.Context, path, schemaPath string, pages uint32) (*session, error) {
	bin, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read module: %w", err)
	}
	var bundle *schema.Bundle
	if schemaPath != "" {
		doc, err := idl.Load(schemaPath)
		if err != nil {
			return nil, err
		}
		bundle = doc.Bundle
	}

	rt, err := runtime.New(ctx, &runtime.Config{MemoryLimitPages: pages, CloseOnContextDone: true})
	if err != nil {
		return nil, err
	}
	s := &session{rt: rt}
	if bundle != nil {
		s.mod, err = rt.LoadWithBundle(ctx, bin, bundle)
	} else {
		s.mod, err = rt.Load(ctx, bin)
	}
	if err == nil {
		s.inst, err = s.mod.Instantiate(ctx)
	}
	if err != nil {
		s.Close(ctx)
		return nil, err
	}
	return s, nil
}

func runCall(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	schemaPath, err := cmd.Flags().GetString("schema")
	if err != nil {
		return err
	}
	pages, err := cmd.Flags().GetUint32("max-pages")
	if err != nil {
		return err
	}
	interactive, err := cmd.Flags().GetBool("interactive")
	if err != nil {
		return err
	}
	if !interactive && len(args) < 2 {
		return fmt.Errorf("call needs a function name (or -i)")
	}

	values := make([]any, 0, len(args))
	if len(args) > 2 {
		for i, raw := range args[2:] {
			var v any
			if err := json.Unmarshal([]byte(raw), &v); err != nil {
				return fmt.Errorf("argument %d: %w", i, err)
			}
			values = append(values, v)
		}
	}

	s, err := open(ctx, args[0], schemaPath, pages)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	if interactive {
		return runInteractive(ctx, args[0], s)
	}

	res, err := s.inst.Call(ctx, args[1], values...)
	if err != nil {
		return err
	}
	out, err := formatResult(s.records(), res)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func formatResult(records *schema.Registry, res any) (string, error) {
	out, err := json.MarshalIndent(toJSON(records, res), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(out), nil
}

// toJSON replaces lifted records with objects keyed by field label.
func toJSON(records *schema.Registry, v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case transcoder.Record:
		rt, err := records.Lookup(x.Name)
		if err != nil {
			return x.Fields
		}
		obj := make(map[string]any, len(x.Fields))
		for i, f := range x.Fields {
			obj[rt.FieldLabel(i)] = toJSON(records, f)
		}
		return obj
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return v
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = toJSON(records, rv.Index(i).Interface())
	}
	return out
}
