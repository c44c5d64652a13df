package cron

import (
	"context"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	reconcile := &stubJob{name: "inventory_reconcile"}
	retention := &stubJob{name: "outbox_retention"}
	registry := NewRegistry(reconcile, retention)

	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != reconcile || jobs[1] != retention {
		t.Fatalf("jobs returned out of order")
	}

	// ensure caller cannot mutate internal slice
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}

func TestRegistrySkipsNilAndDuplicateNames(t *testing.T) {
	registry := NewRegistry(nil, &stubJob{name: "outbox_retention"})
	registry.Register(&stubJob{name: "outbox_retention"})

	if got := len(registry.Jobs()); got != 1 {
		t.Fatalf("expected 1 job, got %d", got)
	}
}
