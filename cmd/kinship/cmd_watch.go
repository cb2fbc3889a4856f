// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/AleutianAI/kinship/services/kinship"
	"github.com/AleutianAI/kinship/services/kinship/provider"
	"github.com/AleutianAI/kinship/services/kinship/telemetry"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		metricsAddr string
		debounce    time.Duration
		warm        bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild family graphs when their snapshot files change",
		Long: `Watch the data directory and rebuild the graph of every family whose
snapshot file changes. Each rebuild is logged with its member and edge
counts; records the builder had to drop (unknown members, conflicting
parents and the like) are logged as warnings, so data problems show up when
the file is saved.

With --metrics-addr, serve Prometheus metrics at /metrics and a liveness
check at /healthz until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Source != SourceDir {
				return fmt.Errorf("watch needs source %q, configured %q", SourceDir, a.cfg.Source)
			}
			dir, err := provider.NewDir(a.cfg.DataDir)
			if err != nil {
				return fmt.Errorf("data dir: %w", err)
			}
			svc, err := kinship.NewService(dir, a.cfg.Service, kinship.WithLogger(a.logger))
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if warm {
				warmFamilies(ctx, a.logger, dir, svc)
			}

			watcher, err := startWatch(ctx, a.logger, dir, svc, debounce)
			if err != nil {
				return err
			}
			defer watcher.Stop()

			a.printer.Success("watching " + dir.Root())
			return serveUntilDone(ctx, a.logger, metricsAddr)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address")
	cmd.Flags().DurationVar(&debounce, "debounce", provider.DefaultWatcherOptions().Debounce, "delay before a burst of changes is applied")
	cmd.Flags().BoolVar(&warm, "warm", false, "build every family graph at startup")
	return cmd
}

// startWatch rebuilds the families of dir whose snapshot files change.
func startWatch(ctx context.Context, logger *slog.Logger, dir *provider.Dir, svc *kinship.Service, debounce time.Duration) (*provider.Watcher, error) {
	watcher, err := provider.NewWatcher(dir, func(ids []string) {
		rebuildFamilies(ctx, logger, svc, ids)
	}, provider.WithDebounce(debounce), provider.WithWatcherLogger(logger))
	if err != nil {
		return nil, err
	}
	if err := watcher.Start(ctx); err != nil {
		return nil, fmt.Errorf("watch %s: %w", dir.Root(), err)
	}
	return watcher, nil
}

// warmFamilies builds the graph of every family in the directory.
func warmFamilies(ctx context.Context, logger *slog.Logger, dir *provider.Dir, svc *kinship.Service) {
	ids, err := dir.Families(ctx)
	if err != nil {
		logger.Warn("listing families", slog.String("error", err.Error()))
		return
	}
	failed := rebuildFamilies(ctx, logger, svc, ids)
	logger.Info("families warmed", slog.Int("count", len(ids)), slog.Int("failed", failed))
}

// rebuildFamilies rebuilds each family and logs what its build kept and
// dropped. It returns the number of families that failed to build.
func rebuildFamilies(ctx context.Context, logger *slog.Logger, svc *kinship.Service, ids []string) int {
	failed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return failed
		}
		report, err := svc.Rebuild(ctx, id)
		switch {
		case errors.Is(err, provider.ErrFamilyNotFound):
			logger.Info("family removed", slog.String("family_id", id))
		case err != nil:
			failed++
			logger.Error("family rebuild failed",
				slog.String("family_id", id),
				slog.String("error", err.Error()),
			)
		case !report.Clean():
			logger.Warn("family rebuilt with dropped records",
				slog.String("family_id", id),
				slog.Int("members", report.Members),
				slog.Int("edges", report.Edges),
				slog.Int("dropped_members", report.DroppedMembers),
				slog.Int("dropped_edges", report.DroppedEdges),
				slog.Any("problems", report.Problems),
			)
		default:
			logger.Info("family rebuilt",
				slog.String("family_id", id),
				slog.Int("members", report.Members),
				slog.Int("edges", report.Edges),
			)
		}
	}
	return failed
}

// serveUntilDone blocks until ctx is done, serving metrics on addr when set.
func serveUntilDone(ctx context.Context, logger *slog.Logger, addr string) error {
	if addr == "" {
		<-ctx.Done()
		return nil
	}

	mux := http.NewServeMux()
	if h := telemetry.MetricsHandler(); h != nil {
		mux.Handle("/metrics", h)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("serving metrics", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gCtx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
