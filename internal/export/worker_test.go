package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"watercolumn/internal/blob"
	"watercolumn/internal/core"
	"watercolumn/pkg/domain"
)

func testFilter() domain.ResultFilter {
	return domain.ResultFilter{WaterResources: []string{"IWR12"}, Years: []int{2020}}
}

func strp(s string) *string { return &s }

func f64p(v float64) *float64 { return &v }

type stubRunner struct {
	mu     sync.Mutex
	bundle core.RunBundle
	err    error
	calls  []string
}

func (r *stubRunner) RunGeneral(_ context.Context, _ core.RunRequest) (core.RunBundle, error) {
	return r.run("general")
}

func (r *stubRunner) RunTrend(_ context.Context, _ core.RunRequest) (core.RunBundle, error) {
	return r.run("trend")
}

func (r *stubRunner) run(op string) (core.RunBundle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, op)
	if r.err != nil {
		return core.RunBundle{}, r.err
	}
	return r.bundle, nil
}

func (r *stubRunner) operations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func stubBundle() core.RunBundle {
	return core.RunBundle{
		Results: core.Frame{
			Columns: []core.Column{
				{Name: "station_id", Type: domain.ColumnString},
				{Name: "TN", Type: domain.ColumnNumber},
			},
			Rows: []map[string]any{{"station_id": "21FLA-1", "TN": 1.2}},
		},
		Stacked: core.Frame{
			Columns: []core.Column{
				{Name: "station_id", Type: domain.ColumnString},
				{Name: "result", Type: domain.ColumnString},
			},
			Rows: []map[string]any{{"station_id": "21FLA-1", "result": "1.2"}},
		},
		Sites: core.Frame{
			Columns: []core.Column{
				{Name: "station_id", Type: domain.ColumnString},
				{Name: "TN_NNC", Type: domain.ColumnNumber},
			},
			Rows: []map[string]any{{"station_id": "21FLA-1", "TN_NNC": 1.54}},
		},
	}
}

func startWorker(t *testing.T, runner Runner, store blob.Store, audit AuditLog) *Worker {
	t.Helper()
	w := NewWorker(runner, store, audit)
	w.Start()
	t.Cleanup(func() { _ = w.Stop(context.Background()) })
	return w
}

func awaitStatus(t *testing.T, w *Worker, id string, want Status) Record {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		cur, ok := w.Get(id)
		if !ok {
			t.Fatalf("missing export record %s", id)
		}
		if cur.Status == want {
			return cur
		}
		if cur.Status == StatusFailed && want != StatusFailed {
			t.Fatalf("export failed: %s", cur.Error)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("export %s did not reach %s", id, want)
	return Record{}
}

func TestWorkerExportsGeneralRun(t *testing.T) {
	runner := &stubRunner{bundle: stubBundle()}
	store := blob.NewMemory()
	w := startWorker(t, runner, store, nil)

	rec, err := w.Enqueue(context.Background(), Request{Kind: core.PipelineGeneral, Filter: testFilter(), RequestedBy: "tester"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if rec.Status != StatusPending || rec.RequestedAt.IsZero() {
		t.Fatalf("unexpected pending record %+v", rec)
	}

	done := awaitStatus(t, w, rec.ID, StatusSucceeded)
	if len(done.Artifacts) != 3 {
		t.Fatalf("expected 3 artifacts without duplicates, got %+v", done.Artifacts)
	}
	wantKeys := []string{
		"general/IWR12_2020_Results.csv",
		"general/IWR12_2020_RawData.csv",
		"general/IWR12_2020_Sites.csv",
	}
	for i, key := range wantKeys {
		if done.Artifacts[i].Key != key {
			t.Fatalf("artifact %d key = %q, want %q", i, done.Artifacts[i].Key, key)
		}
	}
	if done.StartedAt == nil || done.CompletedAt == nil {
		t.Fatalf("lifecycle timestamps missing: %+v", done)
	}
	if ops := runner.operations(); len(ops) != 1 || ops[0] != "general" {
		t.Fatalf("unexpected runner calls %v", ops)
	}

	_, rc, err := store.Get(context.Background(), "general/IWR12_2020_Results.csv")
	if err != nil {
		t.Fatalf("get stored artifact: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	want := "station_id,TN\n21FLA-1,1.2\n"
	if string(b) != want {
		t.Fatalf("stored CSV = %q, want %q", b, want)
	}
	results := done.Artifacts[0]
	if results.RowCount != 1 || results.Bytes != int64(len(want)) || results.SHA256 == "" || results.Format != "csv" {
		t.Fatalf("unexpected results artifact %+v", results)
	}
}

func TestWorkerTrendAlwaysWritesDuplicates(t *testing.T) {
	bundle := stubBundle()
	bundle.Duplicates = core.Frame{Columns: []core.Column{{Name: "station_id", Type: domain.ColumnString}}}
	runner := &stubRunner{bundle: bundle}
	store := blob.NewMemory()
	w := startWorker(t, runner, store, nil)

	rec, err := w.Enqueue(context.Background(), Request{Kind: core.PipelineTrend, Filter: testFilter()})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	done := awaitStatus(t, w, rec.ID, StatusSucceeded)
	if len(done.Artifacts) != 4 {
		t.Fatalf("trend run should write the duplicates file even when empty: %+v", done.Artifacts)
	}
	if done.Artifacts[2].Key != "trend/IWR12_2020_DUPLICATES.csv" || done.Artifacts[2].RowCount != 0 {
		t.Fatalf("unexpected duplicates artifact %+v", done.Artifacts[2])
	}
	_, rc, err := store.Get(context.Background(), "trend/IWR12_2020_DUPLICATES.csv")
	if err != nil {
		t.Fatalf("get duplicates artifact: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "station_id\n" {
		t.Fatalf("empty duplicates file should be header-only, got %q", b)
	}
}

func TestWorkerGeneralWritesDuplicatesWhenPresent(t *testing.T) {
	bundle := stubBundle()
	bundle.Duplicates = core.Frame{
		Columns: []core.Column{{Name: "station_id", Type: domain.ColumnString}},
		Rows:    []map[string]any{{"station_id": "21FLA-1"}},
	}
	runner := &stubRunner{bundle: bundle}
	w := startWorker(t, runner, blob.NewMemory(), nil)

	rec, err := w.Enqueue(context.Background(), Request{Kind: core.PipelineGeneral, Filter: testFilter()})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	done := awaitStatus(t, w, rec.ID, StatusSucceeded)
	if len(done.Artifacts) != 4 {
		t.Fatalf("ambiguous cells should produce a duplicates artifact: %+v", done.Artifacts)
	}
	if done.Artifacts[2].Key != "general/IWR12_2020_DUPLICATES.csv" {
		t.Fatalf("unexpected duplicates key %q", done.Artifacts[2].Key)
	}
}

func TestWorkerRerunReplacesArtifacts(t *testing.T) {
	runner := &stubRunner{bundle: stubBundle()}
	store := blob.NewMemory()
	w := startWorker(t, runner, store, nil)
	ctx := context.Background()

	first, err := w.Enqueue(ctx, Request{Kind: core.PipelineGeneral, Filter: testFilter()})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	awaitStatus(t, w, first.ID, StatusSucceeded)

	runner.mu.Lock()
	runner.bundle.Results.Rows = []map[string]any{{"station_id": "21FLA-1", "TN": 2.5}}
	runner.mu.Unlock()

	second, err := w.Enqueue(ctx, Request{Kind: core.PipelineGeneral, Filter: testFilter()})
	if err != nil {
		t.Fatalf("second enqueue: %v", err)
	}
	awaitStatus(t, w, second.ID, StatusSucceeded)

	list, err := store.List(ctx, "general/")
	if err != nil || len(list) != 3 {
		t.Fatalf("rerun should replace, not accumulate: %v %+v", err, list)
	}
	_, rc, err := store.Get(ctx, "general/IWR12_2020_Results.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if !strings.Contains(string(b), "2.5") {
		t.Fatalf("rerun content not replaced: %q", b)
	}
}

func TestWorkerValidatesAtEnqueue(t *testing.T) {
	w := NewWorker(&stubRunner{bundle: stubBundle()}, nil, nil)

	if _, err := w.Enqueue(context.Background(), Request{Kind: "hourly", Filter: testFilter()}); err == nil || !strings.Contains(err.Error(), "unknown pipeline kind") {
		t.Fatalf("expected kind validation error, got %v", err)
	}

	_, err := w.Enqueue(context.Background(), Request{Kind: core.PipelineGeneral})
	var missing domain.MissingInputError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingInputError, got %v", err)
	}

	nilWorker := NewWorker(nil, nil, nil)
	if _, err := nilWorker.Enqueue(context.Background(), Request{Kind: core.PipelineGeneral, Filter: testFilter()}); err == nil {
		t.Fatalf("expected runner configuration error")
	}
}

func TestWorkerRunFailure(t *testing.T) {
	runner := &stubRunner{err: fmt.Errorf("source offline")}
	audit := &MemoryAuditLog{}
	w := startWorker(t, runner, nil, audit)

	rec, err := w.Enqueue(context.Background(), Request{Kind: core.PipelineTrend, Filter: testFilter(), RequestedBy: "tester"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	done := awaitStatus(t, w, rec.ID, StatusFailed)
	if !strings.Contains(done.Error, "pipeline run failed") || !strings.Contains(done.Error, "source offline") {
		t.Fatalf("unexpected failure message %q", done.Error)
	}
	if done.CompletedAt == nil {
		t.Fatalf("failed record should carry CompletedAt")
	}
}

type failingPutStore struct{ blob.Store }

func (failingPutStore) Put(context.Context, string, io.Reader, blob.PutOptions) (blob.Info, error) {
	return blob.Info{}, fmt.Errorf("put refused")
}

func TestWorkerStoreFailure(t *testing.T) {
	runner := &stubRunner{bundle: stubBundle()}
	w := startWorker(t, runner, failingPutStore{Store: blob.NewMemory()}, nil)

	rec, err := w.Enqueue(context.Background(), Request{Kind: core.PipelineGeneral, Filter: testFilter()})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	done := awaitStatus(t, w, rec.ID, StatusFailed)
	if !strings.Contains(done.Error, "store artifact") || !strings.Contains(done.Error, "put refused") {
		t.Fatalf("unexpected failure message %q", done.Error)
	}
}

func TestWorkerQueueFull(t *testing.T) {
	w := NewWorker(&stubRunner{bundle: stubBundle()}, nil, nil)
	w.queue = make(chan task, 1)
	w.queue <- task{id: "pre", input: Request{Kind: core.PipelineGeneral, Filter: testFilter()}}

	_, err := w.Enqueue(context.Background(), Request{Kind: core.PipelineGeneral, Filter: testFilter()})
	if err == nil || !strings.Contains(err.Error(), "queue full") {
		t.Fatalf("expected queue full error, got %v", err)
	}
	if records := w.List(); len(records) != 0 {
		t.Fatalf("rejected enqueue should not leave a record: %+v", records)
	}
}

func TestWorkerAuditTrail(t *testing.T) {
	runner := &stubRunner{bundle: stubBundle()}
	audit := &MemoryAuditLog{}
	w := startWorker(t, runner, blob.NewMemory(), audit)

	rec, err := w.Enqueue(context.Background(), Request{Kind: core.PipelineGeneral, Filter: testFilter(), RequestedBy: "tester", Reason: "monthly report"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	awaitStatus(t, w, rec.ID, StatusSucceeded)

	entries := audit.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected pending/running/succeeded audit entries, got %+v", entries)
	}
	wantStatuses := []Status{StatusPending, StatusRunning, StatusSucceeded}
	for i, entry := range entries {
		if entry.Status != wantStatuses[i] {
			t.Fatalf("entry %d status = %s, want %s", i, entry.Status, wantStatuses[i])
		}
		if entry.Action != "pipeline_export" || entry.Actor != "tester" || entry.Kind != core.PipelineGeneral {
			t.Fatalf("unexpected audit entry %+v", entry)
		}
		if entry.OccurredAt.IsZero() || entry.OccurredAt.Location() != time.UTC {
			t.Fatalf("audit timestamp not UTC: %+v", entry)
		}
	}
	if entries[0].Reason != "monthly report" {
		t.Fatalf("enqueue audit should carry the reason: %+v", entries[0])
	}
	last := entries[2]
	if last.Metadata == nil || last.Metadata["artifacts"] == nil {
		t.Fatalf("success audit should list artifact keys: %+v", last)
	}
}

func TestWorkerListOrdersByRequestTime(t *testing.T) {
	runner := &stubRunner{bundle: stubBundle()}
	w := startWorker(t, runner, blob.NewMemory(), nil)
	ctx := context.Background()

	first, err := w.Enqueue(ctx, Request{Kind: core.PipelineGeneral, Filter: testFilter()})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	awaitStatus(t, w, first.ID, StatusSucceeded)
	second, err := w.Enqueue(ctx, Request{Kind: core.PipelineTrend, Filter: testFilter()})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	awaitStatus(t, w, second.ID, StatusSucceeded)

	records := w.List()
	if len(records) != 2 || records[0].ID != first.ID || records[1].ID != second.ID {
		t.Fatalf("unexpected list order %+v", records)
	}
}

func TestWorkerIgnoresGhostTask(_ *testing.T) {
	w := NewWorker(&stubRunner{bundle: stubBundle()}, nil, nil)
	w.Start()
	defer func() { _ = w.Stop(context.Background()) }()

	w.queue <- task{id: "ghost", input: Request{Kind: core.PipelineGeneral, Filter: testFilter()}}
	time.Sleep(50 * time.Millisecond)
}

func TestWorkerStopHonorsContext(t *testing.T) {
	w := NewWorker(&stubRunner{bundle: stubBundle()}, nil, nil)
	w.Start()
	if err := w.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	stuck := NewWorker(&stubRunner{bundle: stubBundle()}, nil, nil)
	// Never started: wg is idle so Stop still returns promptly.
	if err := stuck.Stop(canceled); err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("unexpected stop error: %v", err)
	}
}

func TestWorkerWithPipelineService(t *testing.T) {
	svc, src := core.NewInMemoryService()
	src.SeedResults(
		core.Measurement{
			StationID:      "21FLA-1",
			SampleID:       strp("S-1"),
			WaterResource:  strp("IWR12"),
			CollectionDate: time.Date(2020, 5, 6, 0, 0, 0, 0, time.UTC),
			SampleType:     "SAMP",
			Matrix:         "WATER",
			ParameterName:  "TN",
			Value:          f64p(1.2),
		},
		core.Measurement{
			StationID:      "21FLA-1",
			SampleID:       strp("S-1"),
			WaterResource:  strp("IWR12"),
			CollectionDate: time.Date(2020, 5, 6, 0, 0, 0, 0, time.UTC),
			SampleType:     "SAMP",
			Matrix:         "WATER",
			ParameterName:  "TP",
			Value:          f64p(0.05),
		},
	)
	src.SeedStations(core.Station{StationID: "21FLA-1", NutrientRegion: strp("PENINSULAR")})

	store := blob.NewMemory()
	w := startWorker(t, svc, store, &MemoryAuditLog{})

	rec, err := w.Enqueue(context.Background(), Request{Kind: core.PipelineTrend, Filter: testFilter(), RequestedBy: "pipeline"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	done := awaitStatus(t, w, rec.ID, StatusSucceeded)
	if len(done.Artifacts) != 4 {
		t.Fatalf("expected full trend artifact set, got %+v", done.Artifacts)
	}
	info, rc, err := store.Get(context.Background(), "trend/IWR12_2020_Results.csv")
	if err != nil {
		t.Fatalf("get results: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	text := string(b)
	if !strings.Contains(text, "21FLA-1") || !strings.Contains(text, "1.2") || !strings.Contains(text, "0.05") {
		t.Fatalf("results CSV missing pipeline output: %q", text)
	}
	if info.ContentType != "text/csv" {
		t.Fatalf("unexpected content type %q", info.ContentType)
	}
}
