package history

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/fusepool/sedsvc/internal/engine"
	"github.com/fusepool/sedsvc/internal/model"
	"github.com/fusepool/sedsvc/internal/registry"
)

func newTestSink(t *testing.T, archive Archive) (*Sink, *registry.Registry) {
	t.Helper()
	reg := registry.New(0)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSink(engine.NewRegistrySink(reg), reg, archive, logger), reg
}

func register(t *testing.T, reg *registry.Registry, id string) {
	t.Helper()
	err := reg.Register(id, &model.Request{
		Data:        []byte("input"),
		Script:      "s/a/b/",
		ContentType: "text/plain",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
}

func TestSinkArchivesSuccess(t *testing.T) {
	archive := newTestArchive(t)
	sink, reg := newTestSink(t, archive)
	register(t, reg, "job-1")

	err := sink.OnSuccess("job-1", &model.Result{Data: []byte("out"), ContentType: "text/plain"})
	if err != nil {
		t.Fatalf("OnSuccess: %v", err)
	}

	job, err := reg.Status("job-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if job.Status != model.StatusCompleted {
		t.Errorf("registry status = %q, want completed", job.Status)
	}

	entries, total, err := archive.List(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || entries[0].ID != "job-1" {
		t.Errorf("archive holds %d entries (first: %+v), want job-1", total, entries)
	}
	if entries[0].Status != model.StatusCompleted {
		t.Errorf("archived status = %q, want completed", entries[0].Status)
	}
}

func TestSinkArchivesFailure(t *testing.T) {
	archive := newTestArchive(t)
	sink, reg := newTestSink(t, archive)
	register(t, reg, "job-1")

	if err := sink.OnFailure("job-1", errors.New("unterminated pattern")); err != nil {
		t.Fatalf("OnFailure: %v", err)
	}

	entries, _, err := archive.List(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].Status != model.StatusFailed {
		t.Errorf("archived status = %q, want failed", entries[0].Status)
	}
	if entries[0].Error != "unterminated pattern" {
		t.Errorf("archived error = %q, want unterminated pattern", entries[0].Error)
	}
}

func TestSinkSwallowsArchiveErrors(t *testing.T) {
	sink, reg := newTestSink(t, failingArchive{})
	register(t, reg, "job-1")

	err := sink.OnSuccess("job-1", &model.Result{Data: []byte("out"), ContentType: "text/plain"})
	if err != nil {
		t.Errorf("OnSuccess returned %v, want nil despite archive failure", err)
	}

	job, err := reg.Status("job-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if job.Status != model.StatusCompleted {
		t.Errorf("registry status = %q, want completed", job.Status)
	}
}

func TestSinkPropagatesNextError(t *testing.T) {
	archive := newTestArchive(t)
	sink, _ := newTestSink(t, archive)

	// No registration: the wrapped registry sink fails, and nothing
	// should reach the archive.
	if err := sink.OnSuccess("ghost", &model.Result{Data: []byte("out")}); err == nil {
		t.Error("OnSuccess on unknown id succeeded")
	}

	_, total, err := archive.List(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 0 {
		t.Errorf("archive holds %d entries, want 0", total)
	}
}
