// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"

	"github.com/katalvlaran/irtcalc/checkpoint"
	"github.com/spf13/cobra"
)

func (a *app) inspectCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "inspect [run]",
		Short: "List checkpointed runs, or the iterations of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := checkpoint.DefaultConfig(dir)
			cfg.Logger = a.log
			store, err := checkpoint.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			if len(args) == 0 {
				return listRuns(cmd.OutOrStdout(), store)
			}
			return showRun(cmd.OutOrStdout(), store, args[0])
		},
	}
	cmd.Flags().StringVar(&dir, "store", "checkpoints", "checkpoint directory")
	return cmd
}

func listRuns(w io.Writer, s *checkpoint.Store) error {
	runs, err := s.Runs()
	if err != nil {
		return err
	}
	for _, run := range runs {
		iters, err := s.List(run)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d snapshots\tlast iteration %d\n", run, len(iters), iters[len(iters)-1])
	}
	return nil
}

func showRun(w io.Writer, s *checkpoint.Store, run string) error {
	snap, iter, err := s.Latest(run)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "run %s\niteration %d\ntraits %d\nitems %d\ngroups %d\n",
		run, iter, snap.NTraits, len(snap.Scales), len(snap.Groups))
	if _, err = s.LoadFinal(run); err == nil {
		fmt.Fprintln(w, "final result stored")
	}
	for i, lp := range snap.History {
		fmt.Fprintf(w, "%d\t%.4f\n", i+1, lp)
	}
	return nil
}
