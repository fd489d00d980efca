// SPDX-License-Identifier: MIT

// Command irtcalc fits Bayesian Graded Response Models to questionnaire
// data.
//
//	irtcalc simulate --out demo
//	irtcalc fit demo/run.yaml
//	irtcalc inspect --store demo/checkpoints
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app carries the state shared by all subcommands.
type app struct {
	verbose     bool
	metricsAddr string
	log         *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{log: zap.NewNop()}
	root := &cobra.Command{
		Use:   "irtcalc",
		Short: "Bayesian item response analysis of ordinal questionnaire data",
		Long: `irtcalc estimates a Graded Response Model with any number of latent
traits by variational inference. Items are assigned to traits, response
thresholds and subject traits are sampled, and groups of subjects share a
hierarchical prior.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := zap.NewProductionConfig()
			if a.verbose {
				cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			log, err := cfg.Build()
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			a.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.log.Sync()
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	root.AddCommand(a.fitCmd(), a.simulateCmd(), a.inspectCmd())
	return root
}

// serveMetrics exposes reg on the metrics address until ctx is done.
func (a *app) serveMetrics(ctx context.Context, reg *prometheus.Registry) {
	if a.metricsAddr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: a.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()
	a.log.Info("serving metrics", zap.String("addr", a.metricsAddr))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
