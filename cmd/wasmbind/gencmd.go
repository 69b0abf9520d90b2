package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wippyai/wasmbind/gen"
	"github.com/wippyai/wasmbind/idl"
)

var genCmd = &cobra.Command{
	Use:   "gen <schema.toml>",
	Short: "Generate Go host bindings",
	Args:  cobra.ExactArgs(1),
	RunE:  runGen,
}

func init() {
	genCmd.Flags().StringP("output", "o", "", "output file (default stdout)")
	genCmd.Flags().StringP("package", "p", "", "Go package name (default go_package or the schema package)")
}

func runGen(cmd *cobra.Command, args []string) error {
	doc, err := idl.Load(args[0])
	if err != nil {
		return err
	}
	out, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	pkg, err := cmd.Flags().GetString("package")
	if err != nil {
		return err
	}
	if pkg == "" {
		pkg = doc.GoPackage
	}

	src, err := gen.Generate(doc.Bundle, &gen.Options{Package: pkg, SectionPrefix: doc.SectionPrefix})
	if err != nil {
		return err
	}
	if out == "" {
		_, err = cmd.OutOrStdout().Write(src)
		return err
	}
	if err := os.WriteFile(out, src, 0o644); err != nil {
		return fmt.Errorf("write bindings: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", titleStyle.Render("wrote"), nameStyle.Render(out))
	return nil
}
