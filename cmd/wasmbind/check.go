package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wippyai/wasmbind/idl"
	"github.com/wippyai/wasmbind/schema"
)

var checkCmd = &cobra.Command{
	Use:   "check <schema.toml>",
	Short: "Parse and validate an interface description",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	doc, err := idl.Load(args[0])
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	b := doc.Bundle
	fmt.Fprintf(w, "%s %s\n", titleStyle.Render("package"), nameStyle.Render(displayPackage(b)))
	fmt.Fprintf(w, "%s\n", dimStyle.Render(fmt.Sprintf("record field references: %s", doc.Policy)))
	printBundle(w, b)
	fmt.Fprintf(w, "\n%d records, %d functions, %d extern namespaces: ok\n",
		b.Records.Len(), len(b.Functions), len(b.Externs))
	return nil
}

func displayPackage(b *schema.Bundle) string {
	if b.Package == "" {
		return "(unnamed)"
	}
	return b.Package
}

// printBundle lists records, exported functions and extern namespaces.
func printBundle(w io.Writer, b *schema.Bundle) {
	if recs := b.Records.Records(); len(recs) > 0 {
		fmt.Fprintf(w, "\n%s\n", titleStyle.Render("records"))
		for _, r := range recs {
			fmt.Fprintf(w, "  %s {", nameStyle.Render(r.Name))
			for i, f := range r.Fields {
				if i > 0 {
					fmt.Fprint(w, ",")
				}
				fmt.Fprintf(w, " %s: %s", r.FieldLabel(i), typeStyle.Render(f.Style.String()+f.Type.String()))
			}
			fmt.Fprintln(w, " }")
		}
	}

	if len(b.Functions) > 0 {
		fmt.Fprintf(w, "\n%s\n", titleStyle.Render("functions"))
		for _, f := range b.Functions {
			fmt.Fprintf(w, "  %s\n", formatSignature(f))
		}
	}

	for _, ext := range b.Externs {
		fmt.Fprintf(w, "\n%s %s\n", titleStyle.Render("extern"), nameStyle.Render(ext.Namespace))
		for _, imp := range ext.Imports {
			line := formatSignature(imp.Signature)
			if imp.LinkName != "" {
				line += dimStyle.Render(" as " + imp.LinkName)
			}
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
}

func formatSignature(f *schema.FunctionSignature) string {
	s := nameStyle.Render(f.Name) + "("
	for i, p := range f.Params {
		if i > 0 {
			s += ", "
		}
		if p.Name != "" {
			s += p.Name + ": "
		}
		s += typeStyle.Render(p.Style.String() + p.Type.String())
	}
	s += ")"
	if f.Output != nil {
		s += " -> " + typeStyle.Render(f.Output.String())
	}
	return s
}
