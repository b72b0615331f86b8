// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestRecordRun(t *testing.T) {
	source := "test-record-run"
	RecordRun(source, "partial", 2*time.Second, RunCounts{Fetched: 10, Parsed: 8, Dropped: 2, Upserted: 8})

	if got := testutil.ToFloat64(RecordsFetched.WithLabelValues(source)); got != 10 {
		t.Errorf("fetched = %v, want 10", got)
	}
	if got := testutil.ToFloat64(RecordsDropped.WithLabelValues(source)); got != 2 {
		t.Errorf("dropped = %v, want 2", got)
	}
	if got := testutil.ToFloat64(RunsTotal.WithLabelValues(source, "partial")); got != 1 {
		t.Errorf("runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(RunLastSuccess.WithLabelValues(source)); got == 0 {
		t.Error("partial run should update last success")
	}

	failed := "test-record-run-failed"
	RecordRun(failed, "error", time.Second, RunCounts{})
	if got := testutil.ToFloat64(RunLastSuccess.WithLabelValues(failed)); got != 0 {
		t.Errorf("failed run must not update last success, got %v", got)
	}
}

func TestRecordUpsertBatch(t *testing.T) {
	sink := "test-sink"
	RecordUpsertBatch(sink, 50*time.Millisecond, nil)
	RecordUpsertBatch(sink, 10*time.Millisecond, errors.New("deadlock detected"))

	if got := testutil.ToFloat64(UpsertBatchErrors.WithLabelValues(sink)); got != 1 {
		t.Errorf("batch errors = %v, want 1", got)
	}

	m := &dto.Metric{}
	hist, ok := UpsertBatchDuration.WithLabelValues(sink).(prometheus.Histogram)
	if !ok {
		t.Fatal("expected histogram observer")
	}
	if err := hist.Write(m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if got := m.GetHistogram().GetSampleCount(); got != 2 {
		t.Errorf("histogram samples = %d, want 2", got)
	}
}

func TestConcurrentRecording(t *testing.T) {
	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			RecordFetchRequest("test-concurrent", "200", time.Millisecond)
		}()
	}
	wg.Wait()

	if got := testutil.ToFloat64(FetchRequests.WithLabelValues("test-concurrent", "200")); got != workers {
		t.Errorf("fetch requests = %v, want %d", got, workers)
	}
}

func TestPushGatherer(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		body   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		method, path, body = r.Method, r.URL.Path, string(b)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "push_check_total", Help: "push check"})
	reg.MustRegister(c)
	c.Inc()

	if err := PushGatherer(context.Background(), srv.URL, "leadledger_ingest", reg); err != nil {
		t.Fatalf("PushGatherer: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if method != http.MethodPut {
		t.Errorf("method = %s, want PUT", method)
	}
	if !strings.Contains(path, "/metrics/job/leadledger_ingest") {
		t.Errorf("path = %s", path)
	}
	if body == "" {
		t.Error("expected metric payload")
	}
}

func TestPushDisabled(t *testing.T) {
	if err := Push(context.Background(), "", "job"); err != nil {
		t.Errorf("empty url should be a no-op, got %v", err)
	}
}
