package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/wasmbind/callctx"
	"github.com/wippyai/wasmbind/embed"
	"github.com/wippyai/wasmbind/runtime"
)

var rootCmd = &cobra.Command{
	Use:           "wasmbind",
	Short:         "Typed bindings between Go hosts and WebAssembly modules",
	Long:          `wasmbind checks interface descriptions, embeds them into modules as custom sections, inspects modules and generates Go bindings.`,
	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRunE: setup,
}

func main() {
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(layoutCmd)
	rootCmd.AddCommand(embedCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(genCmd)
	rootCmd.AddCommand(callCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log protocol activity to stderr")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, _ []string) error {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return err
	}
	logger := zap.NewNop()
	if verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
	}
	runtime.SetLogger(logger)
	embed.SetLogger(logger)
	callctx.SetLogger(logger)

	mode, err := cmd.Flags().GetString("color")
	if err != nil {
		return err
	}
	switch mode {
	case "on":
		useColor(true)
	case "off":
		useColor(false)
	case "auto":
		useColor(isTerminal(os.Stdout))
	default:
		return fmt.Errorf("unknown color mode %q (auto|on|off)", mode)
	}
	return nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
