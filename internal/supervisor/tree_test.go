// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/leadledger/internal/models"
	"github.com/tomtom215/leadledger/internal/pipeline"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// blockingService runs until canceled and counts starts.
type blockingService struct {
	starts atomic.Int32
}

func (b *blockingService) Serve(ctx context.Context) error {
	b.starts.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

type stubRunner struct {
	calls atomic.Int32
	err   error
}

func (r *stubRunner) Run(_ context.Context, source string) (*pipeline.Stats, error) {
	n := r.calls.Add(1)
	status := models.RunSuccess
	if r.err != nil {
		status = models.RunError
	}
	return &pipeline.Stats{RunRecord: models.RunRecord{
		RunID:    "run-" + source + "-" + string(rune('0'+n)),
		Source:   source,
		Status:   status,
		Upserted: 7,
	}}, r.err
}

func TestNewSupervisorTree_Defaults(t *testing.T) {
	tree, err := NewSupervisorTree(quietLogger(), TreeConfig{})
	if err != nil {
		t.Fatalf("NewSupervisorTree: %v", err)
	}
	if tree.Root() == nil {
		t.Fatal("nil root")
	}
	if tree.config != DefaultTreeConfig() {
		t.Errorf("config = %+v, want defaults", tree.config)
	}
}

func TestSupervisorTree_Lifecycle(t *testing.T) {
	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{FailureBackoff: 50 * time.Millisecond, ShutdownTimeout: time.Second})

	ingest := &blockingService{}
	api := &blockingService{}
	tree.AddIngestService(ingest)
	tree.AddAPIService(api)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		t.Errorf("Serve = %v", err)
	}
	if ingest.starts.Load() != 1 || api.starts.Load() != 1 {
		t.Errorf("starts ingest=%d api=%d, want 1 each", ingest.starts.Load(), api.starts.Load())
	}

	report, err := tree.UnstoppedServiceReport()
	if err != nil {
		t.Fatalf("UnstoppedServiceReport: %v", err)
	}
	if len(report) != 0 {
		t.Errorf("unstopped services: %v", report)
	}
}

func TestNewSourceScheduler_Validation(t *testing.T) {
	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{})

	if _, err := NewSourceScheduler(nil, &stubRunner{}); !errors.Is(err, ErrNilSupervisorTree) {
		t.Errorf("nil tree: %v", err)
	}
	if _, err := NewSourceScheduler(tree, nil); !errors.Is(err, ErrNilRunner) {
		t.Errorf("nil runner: %v", err)
	}
}

func TestSourceScheduler_RunsAndRecords(t *testing.T) {
	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})
	runner := &stubRunner{}
	sched, err := NewSourceScheduler(tree, runner)
	if err != nil {
		t.Fatal(err)
	}

	if err := sched.AddSource("austin", time.Hour); err != nil {
		t.Fatalf("AddSource: %v", err)
	}
	if err := sched.AddSource("austin", time.Hour); !errors.Is(err, ErrSourceAlreadyScheduled) {
		t.Errorf("duplicate AddSource = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := tree.ServeBackground(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for runner.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	statuses := sched.Statuses()
	if len(statuses) != 1 {
		t.Fatalf("statuses = %d, want 1", len(statuses))
	}
	st := statuses[0]
	if st.Source != "austin" || st.Interval != "1h0m0s" {
		t.Errorf("status = %+v", st)
	}
	if st.Runs < 1 || st.LastRunAt == nil || st.LastStatus != "success" || st.LastUpserted != 7 {
		t.Errorf("run not recorded: %+v", st)
	}
}

func TestSourceScheduler_RecordsErrors(t *testing.T) {
	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{})
	sched, _ := NewSourceScheduler(tree, &stubRunner{})
	_ = sched.AddSource("dallas", time.Hour)

	sched.record("dallas", &pipeline.Stats{RunRecord: models.RunRecord{RunID: "r1", Status: models.RunError}}, errors.New("upstream 502"))
	st := sched.Statuses()[0]
	if st.LastError != "upstream 502" || st.LastStatus != "error" {
		t.Errorf("status = %+v", st)
	}

	sched.record("dallas", &pipeline.Stats{RunRecord: models.RunRecord{RunID: "r2", Status: models.RunSuccess}}, nil)
	st = sched.Statuses()[0]
	if st.LastError != "" || st.Runs != 2 {
		t.Errorf("error not cleared after success: %+v", st)
	}

	// Unknown sources are ignored.
	sched.record("gotham", nil, nil)
}

func TestSourceScheduler_RemoveSource(t *testing.T) {
	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{})
	runner := &stubRunner{}
	sched, _ := NewSourceScheduler(tree, runner)

	if err := sched.RemoveSource("austin"); !errors.Is(err, ErrSourceNotScheduled) {
		t.Errorf("RemoveSource unknown = %v", err)
	}
	_ = sched.AddSource("austin", time.Hour)
	_ = sched.AddSource("houston", time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := tree.ServeBackground(ctx)
	defer func() {
		cancel()
		<-done
	}()

	// Both services have run once the ingest layer is up.
	deadline := time.Now().Add(2 * time.Second)
	for runner.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if err := sched.RemoveSource("austin"); err != nil {
		t.Errorf("RemoveSource: %v", err)
	}
	if got := sched.Statuses(); len(got) != 1 || got[0].Source != "houston" {
		t.Errorf("statuses after remove = %+v", got)
	}
}
