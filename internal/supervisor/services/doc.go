// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

/*
Package services adapts LeadLedger components to suture's Serve pattern.

	type Service interface {
	    Serve(ctx context.Context) error
	}

IngestService runs one source through the pipeline on a fixed interval.
Run failures are logged and reported to an optional callback; they do not
end Serve, so a flaky upstream does not push the supervisor into backoff.

HTTPServerService wraps *http.Server: ListenAndServe runs in a goroutine and
context cancellation triggers Shutdown with a timeout. http.ErrServerClosed
is not an error.

Both implement fmt.Stringer so supervisor events name them.
*/
package services
