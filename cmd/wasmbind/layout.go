package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasmbind/idl"
	"github.com/wippyai/wasmbind/transcoder"
)

var layoutCmd = &cobra.Command{
	Use:   "layout <schema.toml>",
	Short: "Print record layouts and the slot mapping of every function",
	Args:  cobra.ExactArgs(1),
	RunE:  runLayout,
}

func runLayout(cmd *cobra.Command, args []string) error {
	doc, err := idl.Load(args[0])
	if err != nil {
		return err
	}
	b := doc.Bundle
	w := cmd.OutOrStdout()
	c := transcoder.NewCompiler(b.Records)

	for _, r := range b.Records.Records() {
		info, err := c.Layout(r.Name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s %s\n", titleStyle.Render("record "+r.Name), dimStyle.Render(fmt.Sprintf("size %d", info.Size)))
		for i, f := range r.Fields {
			fmt.Fprintf(w, "  %4d  %-3d %-16s %s\n",
				info.Offsets[i], info.Widths[i], r.FieldLabel(i), typeStyle.Render(f.Type.String()))
		}
	}

	if len(b.Functions) > 0 {
		fmt.Fprintf(w, "%s\n", titleStyle.Render("functions"))
	}
	for _, f := range b.Functions {
		params, results, mode := transcoder.SignatureSlots(f)
		fmt.Fprintf(w, "  %s\n", formatSignature(f))
		fmt.Fprintf(w, "    core %s -> %s  %s\n",
			coreTypes(params), coreTypes(results), dimStyle.Render("result "+mode.String()))
	}
	return nil
}

func coreTypes(ts []api.ValueType) string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = api.ValueTypeName(t)
	}
	return "(" + strings.Join(names, ", ") + ")"
}
