// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// cpureducer reports the capabilities of the CPU reduction engine on this host, and benchmarks its operations.
//
// Usage:
//
//	cpureducer info
//	cpureducer bench --op=median --dtype=float16 --size=16MiB --workers=8
package main

import (
	"flag"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

// rootOptions holds the flags shared by all subcommands.
type rootOptions struct {
	noColor bool
	threads int
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "cpureducer",
		Short: "Inspect and benchmark the CPU reduction engine",
		Long: `cpureducer reports the CPU features used by the reduction engine (float16 vector
conversion, number of threads) and benchmarks its operations on synthetic buffers.

The engine is configured from $BYTEPS_OMP_THREAD_PER_GPU and $CPUREDUCER_CONFIG, unless
--threads is given.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor || termenv.EnvNoColor() {
				lipgloss.SetColorProfile(termenv.Ascii)
			}
		},
	}
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no_color", false, "Disable colors in the output.")
	cmd.PersistentFlags().IntVar(&opts.threads, "threads", 0,
		"Number of threads used by the parallel kernels. If 0, it is configured from the environment.")

	klogFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(klogFlags)
	cmd.PersistentFlags().AddGoFlagSet(klogFlags)

	cmd.AddCommand(newInfoCommand(opts))
	cmd.AddCommand(newBenchCommand(opts))
	return cmd
}

func main() {
	defer klog.Flush()
	if err := newRootCommand().Execute(); err != nil {
		klog.Errorf("%+v", err)
		klog.Flush()
		os.Exit(1)
	}
}
