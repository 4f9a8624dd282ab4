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

func TestRegistryPreservesOrder(t *testing.T) {
	timeout := &stubJob{name: "payment-timeout"}
	overdue := &stubJob{name: "invoice-overdue"}

	registry := NewRegistry(timeout)
	registry.Register(overdue)

	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != timeout || jobs[1] != overdue {
		t.Fatal("jobs returned out of registration order")
	}
}

func TestRegistrySkipsNilJobs(t *testing.T) {
	registry := NewRegistry(nil, &stubJob{name: "outbox-retention"})
	registry.Register(nil)

	if got := len(registry.Jobs()); got != 1 {
		t.Fatalf("expected nil jobs to be dropped, got %d jobs", got)
	}
}

func TestRegistryJobsReturnsCopy(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "notification-cleanup"})

	jobs := registry.Jobs()
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatal("mutating the returned slice must not affect the registry")
	}
}
