// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/katalvlaran/irtcalc/checkpoint"
	"github.com/katalvlaran/irtcalc/config"
	"github.com/katalvlaran/irtcalc/dataset"
	"github.com/katalvlaran/irtcalc/irt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) fitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fit <run.yaml>",
		Short: "Fit a model to the groups listed in a run file",
		Long: `Reads the questionnaire and group CSV files named in the run file, learns
the model, optionally prunes unused traits and standardizes the trait scale,
and writes a YAML summary. With checkpoint.dir set, snapshots are saved
periodically; checkpoint.resume continues an earlier run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(args[0])
			if err != nil {
				return err
			}
			return a.fit(cmd.Context(), c, cmd.OutOrStdout())
		},
	}
}

func (a *app) fit(ctx context.Context, c config.RunConfig, stdout io.Writer) error {
	d, err := c.LoadDataset()
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	opts := append(c.Options(), irt.WithLogger(a.log), irt.WithMetrics(irt.NewMetrics(reg)))
	a.serveMetrics(ctx, reg)

	var (
		store *checkpoint.Store
		run   string
		cb    irt.Callback
	)
	if c.Checkpoint.Dir != "" {
		scfg := checkpoint.DefaultConfig(c.Path(c.Checkpoint.Dir))
		scfg.Logger = a.log
		if store, err = checkpoint.Open(scfg); err != nil {
			return err
		}
		defer store.Close()
		run = c.Checkpoint.Resume
		if run == "" {
			run = checkpoint.NewRunID()
		}
		cb = store.Callback(ctx, run, c.Checkpoint.Every)
	}

	m, err := a.startModel(ctx, c, d, store, run, opts)
	if err != nil {
		return err
	}
	lp, reason, err := m.Learn(ctx, c.LearnConfig(), cb)
	if err != nil {
		return err
	}
	if store != nil {
		// Resuming continues from this learned state, not the post-processed one.
		if err = store.Save(ctx, run, len(m.LogProbHistory()), m.Snapshot()); err != nil {
			return err
		}
	}
	if c.Postprocess.Prune {
		if err = m.Prune(); err != nil {
			return err
		}
	}
	if c.Postprocess.Standardize {
		if err = m.Standardize(ctx); err != nil {
			return err
		}
	}
	if store != nil {
		if err = store.SaveFinal(ctx, run, m.Snapshot()); err != nil {
			return err
		}
	}

	rep := newReport(m, d.Questionnaire, run, len(lp), reason)
	if c.Output == "" {
		return rep.write(stdout)
	}
	f, err := os.Create(c.Path(c.Output))
	if err != nil {
		return err
	}
	if err = rep.write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// startModel restores the run from the store when resuming, and otherwise
// initializes a new model.
func (a *app) startModel(ctx context.Context, c config.RunConfig, d *dataset.Dataset,
	store *checkpoint.Store, run string, opts []irt.Option) (*irt.Model, error) {
	if c.Checkpoint.Resume == "" || store == nil {
		return irt.Initialize(ctx, d, opts...)
	}
	snap, iter, err := store.Latest(run)
	if err != nil {
		return nil, fmt.Errorf("resume %s: %w", run, err)
	}
	a.log.Info("resuming", zap.String("run", run), zap.Int("iteration", iter))
	return irt.Restore(snap, opts...)
}
