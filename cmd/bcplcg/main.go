// Command bcplcg compiles a JSON-described BCPL function program straight
// to an AArch64 instruction listing. It is thin glue over the codegen
// package — lexing/parsing real BCPL source is out of scope (spec.md §1) —
// following ajroetker-goat's main.go pattern of one root cobra.Command with
// PersistentFlags wrapping a library that does the real work.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nativecg/bcplarm64/ast"
	"github.com/nativecg/bcplarm64/codegen"
	"github.com/nativecg/bcplarm64/encoder"
	"github.com/nativecg/bcplarm64/ir"
)

// canaryFaultLabel must match codegen.canaryFaultLabel; every compiled
// function's epilogue branches here on a stack-canary mismatch, so the
// label needs exactly one definition at program scope, emitted once by
// this binary rather than by any individual function's codegen pass.
const canaryFaultLabel = "_canary_fault_handler"

var rootCmd = &cobra.Command{
	Use:   "bcplcg <program.json>",
	Short: "Compile a BCPL function program to an AArch64 instruction listing",
	Args:  cobra.ExactArgs(1),
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().Bool("enable-stack-canaries", false, "insert and verify per-function stack canaries")
	rootCmd.PersistentFlags().Bool("trace-peephole", false, "print each peephole rewrite as it is applied")
	rootCmd.PersistentFlags().Bool("trace-liveness", false, "print the whole-function liveness approximation")
	rootCmd.PersistentFlags().Bool("debug", false, "print frame/register-allocation diagnostics")
	rootCmd.PersistentFlags().Int("max-peephole-passes", 5, "maximum peephole optimizer passes per function")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output file for the listing (default stdout)")
}

func run(cmd *cobra.Command, args []string) error {
	enableCanaries, _ := cmd.PersistentFlags().GetBool("enable-stack-canaries")
	tracePeephole, _ := cmd.PersistentFlags().GetBool("trace-peephole")
	traceLiveness, _ := cmd.PersistentFlags().GetBool("trace-liveness")
	debug, _ := cmd.PersistentFlags().GetBool("debug")
	maxPasses, _ := cmd.PersistentFlags().GetInt("max-peephole-passes")
	output, _ := cmd.PersistentFlags().GetString("output")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("bcplcg: %w", err)
	}
	prog, err := loadProgram(data)
	if err != nil {
		return err
	}

	gen := codegen.NewCodeGenerator(codegen.Options{
		EnableStackCanaries: enableCanaries,
		TracePeephole:       tracePeephole,
		TraceLiveness:       traceLiveness,
		Debug:               debug,
		MaxPeepholePasses:   maxPasses,
	}, ast.NewSymbolTable())

	stream, err := gen.CompileProgram(prog)
	if err != nil {
		return fmt.Errorf("bcplcg: %w", err)
	}

	stream.DefineLabel(canaryFaultLabel)
	stream.Append(encoder.CreateBrk())

	listing, err := ir.RenderListing(stream)
	if err != nil {
		return fmt.Errorf("bcplcg: rendering listing: %w", err)
	}

	if output == "" {
		_, err = fmt.Fprint(os.Stdout, listing)
		return err
	}
	return os.WriteFile(output, []byte(listing), 0o644)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
