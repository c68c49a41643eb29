package cron

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "nested", "cron.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStorePutKeepsActionOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()
	created := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	job := Job{
		ID:        "j1",
		Name:      "digest",
		Schedule:  "0 0 8 * * *",
		Actions:   []string{"summary", "reply", "archive"},
		Params:    map[string]string{"input": "today"},
		Enabled:   true,
		CreatedAt: created,
	}
	if err := store.Put(ctx, job); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok, err := store.Get(ctx, "digest")
	if err != nil || !ok {
		t.Fatalf("expected stored job, ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(job, got); diff != "" {
		t.Fatalf("job mismatch (-want +got):\n%s", diff)
	}

	job.Actions = []string{"reply"}
	job.Enabled = false
	if err := store.Put(ctx, job); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}
	jobs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	if diff := cmp.Diff(job, jobs[0]); diff != "" {
		t.Fatalf("updated job mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreGetMissing(t *testing.T) {
	store := newTestStore(t)
	_, ok, err := store.Get(t.Context(), "nope")
	if err != nil || ok {
		t.Fatalf("expected no job, ok=%v err=%v", ok, err)
	}
}

func TestStoreRecordResult(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()
	if err := store.Put(ctx, Job{ID: "j1", Name: "n", Schedule: "@daily", Actions: []string{"reply"}, Enabled: true, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	at := time.Date(2026, 5, 2, 9, 0, 0, 123, time.UTC)
	if err := store.RecordResult(ctx, "j1", at, errors.New("backend down")); err != nil {
		t.Fatalf("RecordResult failed: %v", err)
	}
	got, _, _ := store.Get(ctx, "n")
	if !got.LastRun.Equal(at) || got.LastError != "backend down" {
		t.Fatalf("unexpected result: last_run=%v last_error=%q", got.LastRun, got.LastError)
	}

	// Redefining the job leaves the run result alone.
	if err := store.Put(ctx, Job{ID: "j1", Name: "n", Schedule: "@hourly", Actions: []string{"reply"}, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, _, _ = store.Get(ctx, "n")
	if got.LastError != "backend down" || got.Schedule != "@hourly" {
		t.Fatalf("expected run result kept after Put, got %+v", got)
	}

	if err := store.RecordResult(ctx, "j1", at, nil); err != nil {
		t.Fatalf("RecordResult failed: %v", err)
	}
	got, _, _ = store.Get(ctx, "n")
	if got.LastError != "" {
		t.Fatalf("expected error cleared, got %q", got.LastError)
	}
}

func TestStoreDeleteCascadesActions(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()
	if err := store.Put(ctx, Job{ID: "j1", Name: "n", Schedule: "@daily", Actions: []string{"a", "b"}, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Delete(ctx, "j1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	var n int
	if err := store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM job_actions`).Scan(&n); err != nil {
		t.Fatalf("count actions: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected actions deleted with their job, %d left", n)
	}
}
