// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

/*
Package supervisor runs `leadledger serve` as a suture v4 supervisor tree.

	leadledger
	├── ingest-layer
	│   ├── ingest-austin
	│   ├── ingest-dallas
	│   └── ...
	└── api-layer
	    └── http-server

SourceScheduler adds one services.IngestService per enabled source and keeps
the outcome of each scheduled run for the /api/v1/sources endpoint.
Supervisor events go to zerolog through sutureslog and logging.NewSlogLogger.

	tree, _ := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	sched, _ := supervisor.NewSourceScheduler(tree, runner)
	for _, name := range runner.EnabledSources() {
	    _ = sched.AddSource(name, specs[name].Interval)
	}
	tree.AddAPIService(services.NewHTTPServerService(httpServer, 10*time.Second))
	err := tree.Serve(ctx)
*/
package supervisor
