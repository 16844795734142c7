// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/cpureducer/pkg/core/dtypes"
	"github.com/gomlx/cpureducer/pkg/core/halfprec"
	"github.com/spf13/cobra"
)

func newInfoCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Report the CPU features and configuration used by the reduction engine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return reportInfo(cmd.OutOrStdout(), opts)
		},
	}
}

func reportInfo(w io.Writer, opts *rootOptions) error {
	r, err := newReducer(opts)
	if err != nil {
		return err
	}
	brand, features := halfprec.CPUDescription()
	if brand == "" {
		brand = "unknown"
	}

	fmt.Fprintln(w, titleStyle.Render("Engine"))
	table := newPlainTable().Headers("Property", "Value")
	table.Row("CPU", brand)
	table.Row("CPU features", strings.Join(features, ", "))
	table.Row("Float16 vector conversion", yesNo(halfprec.HasVectorSupport()))
	table.Row("Float16 vector width", humanize.Comma(int64(halfprec.VectorWidth)))
	table.Row("Threads", humanize.Comma(int64(r.NumThreads())))
	table.Row("Instance", r.ID().String())
	fmt.Fprintln(w, table.Render())

	fmt.Fprintln(w, titleStyle.Render("Data types"))
	table = newPlainTable().Headers("DType", "Bytes", "Kind")
	for _, dtype := range dtypes.All() {
		kind := "integer"
		switch {
		case dtype == dtypes.Float16:
			kind = "float (converted to float32)"
		case dtype.IsFloat():
			kind = "float"
		case dtype.IsUnsigned():
			kind = "unsigned integer"
		}
		table.Row(dtype.String(), fmt.Sprintf("%d", dtype.Size()), kind)
	}
	fmt.Fprintln(w, table.Render())
	return nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
