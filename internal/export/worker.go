// Package export runs measurement pipeline exports asynchronously and stores
// the resulting CSV artifacts through the blob store.
package export

import (
	"context"
	"crypto/rand"
	"fmt"
	"sort"
	"sync"
	"time"

	"watercolumn/internal/blob"
	"watercolumn/internal/core"
	"watercolumn/pkg/domain"
)

// Status describes the lifecycle stage of an export request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Record tracks an export request and its resulting artifacts.
type Record struct {
	ID          string              `json:"id"`
	Kind        core.PipelineKind   `json:"kind"`
	Filter      domain.ResultFilter `json:"filter"`
	Prefix      string              `json:"prefix,omitempty"`
	Status      Status              `json:"status"`
	Error       string              `json:"error,omitempty"`
	Artifacts   []Artifact          `json:"artifacts,omitempty"`
	RequestedBy string              `json:"requested_by,omitempty"`
	Reason      string              `json:"reason,omitempty"`
	RequestedAt time.Time           `json:"requested_at"`
	StartedAt   *time.Time          `json:"started_at,omitempty"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

// Request is an enqueue request for the worker.
type Request struct {
	Kind        core.PipelineKind
	Filter      domain.ResultFilter
	Partition   domain.SitePartition
	Prefix      string
	RequestedBy string
	Reason      string
}

// Runner executes a measurement pipeline run. *core.Service satisfies it.
type Runner interface {
	RunGeneral(ctx context.Context, req core.RunRequest) (core.RunBundle, error)
	RunTrend(ctx context.Context, req core.RunRequest) (core.RunBundle, error)
}

// Worker executes pipeline exports asynchronously: requests queue onto a
// buffered channel and a single goroutine runs the pipeline, renders the
// frames, and stores the artifacts.
type Worker struct {
	runner Runner
	store  blob.Store
	audit  AuditLog

	queue chan task
	mu    sync.RWMutex
	jobs  map[string]*Record

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type task struct {
	id    string
	input Request
}

// NewWorker constructs an export worker over the runner and artifact store.
func NewWorker(runner Runner, store blob.Store, audit AuditLog) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		runner: runner,
		store:  store,
		audit:  audit,
		queue:  make(chan task, 32),
		jobs:   make(map[string]*Record),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for the in-flight task.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case t := <-w.queue:
			w.process(t)
		}
	}
}

// Enqueue schedules an export and returns the pending record. Validation
// failures surface here, before anything is queued.
func (w *Worker) Enqueue(ctx context.Context, input Request) (Record, error) {
	if w.runner == nil {
		return Record{}, fmt.Errorf("export runner not configured")
	}
	if input.Kind != core.PipelineGeneral && input.Kind != core.PipelineTrend {
		return Record{}, fmt.Errorf("unknown pipeline kind %q", input.Kind)
	}
	if err := input.Filter.Validate(); err != nil {
		return Record{}, err
	}

	id := newID()
	now := time.Now().UTC()
	record := Record{
		ID:          id,
		Kind:        input.Kind,
		Filter:      input.Filter,
		Prefix:      input.Prefix,
		Status:      StatusPending,
		RequestedBy: input.RequestedBy,
		Reason:      input.Reason,
		RequestedAt: now,
	}

	w.mu.Lock()
	w.jobs[id] = &record
	snapshot := record.copy()
	w.mu.Unlock()

	if w.audit != nil {
		w.audit.Record(ctx, AuditEntry{
			ID:         newID(),
			Action:     "pipeline_export",
			Actor:      input.RequestedBy,
			Kind:       input.Kind,
			Status:     StatusPending,
			Reason:     input.Reason,
			OccurredAt: now,
		})
	}

	select {
	case w.queue <- task{id: id, input: input}:
	default:
		w.mu.Lock()
		delete(w.jobs, id)
		w.mu.Unlock()
		return Record{}, fmt.Errorf("export queue full")
	}

	return snapshot, nil
}

// Get returns a snapshot of one export record.
func (w *Worker) Get(id string) (Record, bool) {
	w.mu.RLock()
	record, ok := w.jobs[id]
	if !ok {
		w.mu.RUnlock()
		return Record{}, false
	}
	snapshot := record.copy()
	w.mu.RUnlock()
	return snapshot, true
}

// List returns snapshots of all known export records, oldest first.
func (w *Worker) List() []Record {
	w.mu.RLock()
	out := make([]Record, 0, len(w.jobs))
	for _, record := range w.jobs {
		out = append(out, record.copy())
	}
	w.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].RequestedAt.Equal(out[j].RequestedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].RequestedAt.Before(out[j].RequestedAt)
	})
	return out
}

func (w *Worker) process(t task) {
	if !w.exists(t.id) {
		return
	}
	w.markRunning(t.id)

	runReq := core.RunRequest{Filter: t.input.Filter, Partition: t.input.Partition}
	var bundle core.RunBundle
	var err error
	switch t.input.Kind {
	case core.PipelineTrend:
		bundle, err = w.runner.RunTrend(w.ctx, runReq)
	default:
		bundle, err = w.runner.RunGeneral(w.ctx, runReq)
	}
	if err != nil {
		w.fail(t.id, fmt.Sprintf("pipeline run failed: %v", err))
		return
	}

	artifacts, err := storeBundle(w.ctx, w.store, t.input, bundle, map[string]string{"export_id": t.id})
	if err != nil {
		w.fail(t.id, err.Error())
		return
	}

	w.complete(t.id, artifacts)
}

func (w *Worker) exists(id string) bool {
	w.mu.RLock()
	_, ok := w.jobs[id]
	w.mu.RUnlock()
	return ok
}

func (w *Worker) markRunning(id string) {
	now := time.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = StatusRunning
		record.StartedAt = &now
	}
	w.mu.Unlock()
	w.auditTransition(id, StatusRunning, nil)
}

func (w *Worker) complete(id string, artifacts []Artifact) {
	now := time.Now().UTC()
	keys := make([]string, len(artifacts))
	for i, a := range artifacts {
		keys[i] = a.Key
	}
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = StatusSucceeded
		record.Error = ""
		record.Artifacts = artifacts
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.auditTransition(id, StatusSucceeded, map[string]any{"artifacts": keys})
}

func (w *Worker) fail(id, reason string) {
	now := time.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = StatusFailed
		record.Error = reason
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.auditTransition(id, StatusFailed, map[string]any{"error": reason})
}

func (w *Worker) auditTransition(id string, status Status, metadata map[string]any) {
	if w.audit == nil {
		return
	}
	var actor string
	var kind core.PipelineKind
	w.mu.RLock()
	if record, ok := w.jobs[id]; ok {
		actor = record.RequestedBy
		kind = record.Kind
	}
	w.mu.RUnlock()
	w.audit.Record(w.ctx, AuditEntry{
		ID:         newID(),
		Action:     "pipeline_export",
		Actor:      actor,
		Kind:       kind,
		Status:     status,
		Metadata:   metadata,
		OccurredAt: time.Now().UTC(),
	})
}

func (r Record) copy() Record {
	dup := r
	if len(r.Artifacts) > 0 {
		dup.Artifacts = append([]Artifact(nil), r.Artifacts...)
	}
	return dup
}

func newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x", b[:])
}
