package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wippyai/wasmbind/embed"
	"github.com/wippyai/wasmbind/idl"
	"github.com/wippyai/wasmbind/wasm"
)

var embedCmd = &cobra.Command{
	Use:   "embed <schema.toml> <in.wasm>",
	Short: "Write the schema into a module as custom sections",
	Long:  `Embed replaces any sections a previous run wrote, so running it twice yields the same module.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runEmbed,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <module.wasm>",
	Short: "Recover and print the schema embedded in a module",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	embedCmd.Flags().StringP("output", "o", "", "output module (default: overwrite the input)")
	inspectCmd.Flags().String("prefix", "", "section prefix (default "+embed.DefaultPrefix+")")
}

func runEmbed(cmd *cobra.Command, args []string) error {
	doc, err := idl.Load(args[0])
	if err != nil {
		return err
	}
	bin, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("read module: %w", err)
	}
	out, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if out == "" {
		out = args[1]
	}

	opts := &embed.Options{Prefix: doc.SectionPrefix}
	result, err := embed.NewWriter(opts).Embed(bin, doc.Bundle)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, result, 0o644); err != nil {
		return fmt.Errorf("write module: %w", err)
	}

	sections, err := wasm.CustomSections(result)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d custom sections, %d bytes)\n",
		titleStyle.Render("wrote"), nameStyle.Render(out), len(sections), len(result))
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	bin, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read module: %w", err)
	}
	prefix, err := cmd.Flags().GetString("prefix")
	if err != nil {
		return err
	}

	b, err := embed.NewReader(&embed.Options{Prefix: prefix}).Extract(bin)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s %s\n", titleStyle.Render("module"), nameStyle.Render(args[0]))
	printBundle(w, b)
	return nil
}
