// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomtom215/leadledger/internal/audit"
	"github.com/tomtom215/leadledger/internal/logging"
	"github.com/tomtom215/leadledger/internal/mapping"
	"github.com/tomtom215/leadledger/internal/server"
	"github.com/tomtom215/leadledger/internal/supervisor"
	"github.com/tomtom215/leadledger/internal/supervisor/services"
)

// memoryRunsLimit bounds the in-process run history kept when no database
// backs the runs endpoint.
const memoryRunsLimit = 1000

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled ingestion and the HTTP API",
		Long: `Serve ingests every enabled source on its interval under a supervisor
and exposes /healthz, /metrics and the /api/v1 read endpoints. It stops on
SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	addIngestFlags(cmd)
	cmd.Flags().Int("port", 0, "HTTP listen port (default 8089)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := configFrom(ctx)
	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	deps := server.Deps{}
	if b.db != nil {
		deps.Permits = b.db.Permits()
		deps.Runs = b.db.Runs()
		deps.DB = b.db.SQL()
	} else {
		mem := audit.NewMemoryStore(memoryRunsLimit)
		b.audit = audit.Tee(b.audit, mem)
		deps.Runs = mem
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return err
	}
	scheduler, err := supervisor.NewSourceScheduler(tree, b.runner(cfg, runOptions(cfg)))
	if err != nil {
		return err
	}
	for _, name := range mapping.Enabled(b.specs) {
		if err := scheduler.AddSource(name, b.specs[name].Interval); err != nil {
			return err
		}
	}
	deps.Sources = scheduler

	httpServer := server.New(cfg.Server, deps).HTTPServer()
	tree.AddAPIService(services.NewHTTPServerService(httpServer, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", httpServer.Addr).Msg("HTTP server service added")

	logging.Info().Msg("Starting supervisor tree...")
	serveErr := tree.Serve(ctx)
	if serveErr != nil && !errors.Is(serveErr, context.Canceled) && ctx.Err() == nil {
		logging.Error().Err(serveErr).Msg("Supervisor tree error")
		return serveErr
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}
	logging.Info().Msg("Stopped")
	return nil
}
