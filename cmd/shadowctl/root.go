// Command shadowctl is a diagnostic and operational tool for the
// shadow-heap monitor: it can run the arena/tcache resolution probe
// standalone, exercise a self-test allocation sequence, and render a live
// dashboard that re-runs the probe on a timer. It does not itself intercept any
// process's allocator calls — that only happens inside pkg/shadowheap,
// loaded into the target process. shadowctl is the operator-facing tooling
// around it, the same role cmd/hivectl plays for the teacher's library.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose bool
	quiet   bool
	jsonOut bool
)

var rootCmd = &cobra.Command{
	Use:   "shadowctl",
	Short: "Inspect and exercise the shadow-heap integrity monitor",
	Long: `shadowctl is an operator-facing tool for the shadow-heap integrity
monitor: it resolves and reports glibc's internal allocator state, runs
self-test allocation sequences against a live monitor, and renders a
terminal dashboard of probe results.`,
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Accepted but unused: no subcommand produces JSON output")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

func main() {
	execute()
}
