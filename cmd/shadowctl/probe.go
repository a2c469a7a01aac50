package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shadowheap/monitor/internal/arenaprobe"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Resolve and print the current process's arena and tcache addresses",
	Long: `probe runs the same allocation-pattern resolution the monitor performs
at startup — locating the main arena via the unsorted-bin sentinel leak and
the tcache struct via its key field (glibc 2.29 and later) — and prints
what it found. Useful for confirming this glibc build is one the monitor
can resolve before wiring it into a real workload.`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	p, err := arenaprobe.Run()
	if err != nil {
		printError("probe failed: %v\n", err)
		return err
	}
	fmt.Print(p.Report())
	return nil
}
