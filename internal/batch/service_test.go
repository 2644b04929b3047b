package batch

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"domainworth-backend/internal/valuation"
)

type recordingDispatcher struct {
	jobIDs []string
	err    error
}

func (d *recordingDispatcher) Enqueue(_ context.Context, jobID, _ string) error {
	if d.err != nil {
		return d.err
	}
	d.jobIDs = append(d.jobIDs, jobID)
	return nil
}

func newTestService(t *testing.T) (*Service, *MemoryRepo, *memStore, *recordingDispatcher) {
	t.Helper()
	repo := NewMemoryRepo()
	store := newMemStore()
	runner := newTestRunner(repo, store, &funcValuer{fn: func(_ int, d []string) ([]valuation.Valuation, error) {
		return valuationsFor(d, 1000), nil
	}})
	dispatcher := &recordingDispatcher{}
	svc := &Service{Repo: repo, Runner: runner, Dispatcher: dispatcher}
	return svc, repo, store, dispatcher
}

func submitReq() SubmitRequest {
	return SubmitRequest{
		CSVData: []json.RawMessage{
			json.RawMessage(`{"Domain":"good.com"}`),
			json.RawMessage(`{"Domain":"test1.com"}`),
			json.RawMessage(`{"Domain":"also-bad.net"}`),
		},
		CSVHeaders:     []string{"Domain"},
		ColumnMappings: ColumnMappings{DomainColumn: "Domain"},
		APIKey:         "key",
	}
}

func TestSubmitCreatesJobAndDispatches(t *testing.T) {
	svc, repo, store, dispatcher := newTestService(t)

	resp, err := svc.Submit(context.Background(), "user-1", "req-1", submitReq())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !resp.Success || resp.JobID == "" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if !strings.HasPrefix(resp.JobID, "job_") || !strings.HasSuffix(resp.JobID, "_user-1") {
		t.Fatalf("jobId = %q, want job_<millis>_user-1 shape", resp.JobID)
	}
	if resp.TotalDomains != 1 {
		t.Fatalf("totalDomains = %d, want 1 after filtering", resp.TotalDomains)
	}

	job, err := repo.GetByID(context.Background(), resp.JobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.Status != StatusProcessing {
		t.Fatalf("status = %q, want processing", job.Status)
	}
	if job.TotalDomains != 3 || job.FilteredDomains != 1 || job.TotalBatches != 1 {
		t.Fatalf("unexpected job counters %+v", job)
	}

	if len(dispatcher.jobIDs) != 1 || dispatcher.jobIDs[0] != resp.JobID {
		t.Fatalf("dispatcher not called: %v", dispatcher.jobIDs)
	}
	if _, err := store.Open(context.Background(), inputKey(resp.JobID)); err != nil {
		t.Fatalf("input payload not persisted: %v", err)
	}
}

func TestSubmitValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	cases := []struct {
		name   string
		userID string
		mutate func(*SubmitRequest)
		field  string
	}{
		{"missing user", "", func(*SubmitRequest) {}, "userId"},
		{"missing rows", "user-1", func(r *SubmitRequest) { r.CSVData = nil }, "csvData"},
		{"missing domain column", "user-1", func(r *SubmitRequest) { r.ColumnMappings.DomainColumn = "" }, "columnMappings.domainColumn"},
		{"missing api key", "user-1", func(r *SubmitRequest) { r.APIKey = "" }, "apiKey"},
		{"blank api key", "user-1", func(r *SubmitRequest) { r.APIKey = "   " }, "apiKey"},
		{"negative min value", "user-1", func(r *SubmitRequest) { r.MinMarketplaceValue = -1 }, "minMarketplaceValue"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := submitReq()
			tc.mutate(&req)
			_, err := svc.Submit(context.Background(), tc.userID, "req-1", req)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Field != tc.field {
				t.Fatalf("field = %q, want %q", vErr.Field, tc.field)
			}
		})
	}
}

func TestSubmitFallsBackWhenEnqueueFails(t *testing.T) {
	svc, repo, _, dispatcher := newTestService(t)
	dispatcher.err = errors.New("queue unavailable")

	resp, err := svc.Submit(context.Background(), "user-1", "req-1", submitReq())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// the fallback goroutine runs the job in-process
	deadline := time.Now().Add(2 * time.Second)
	for {
		job, err := repo.GetByID(context.Background(), resp.JobID)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if job.Status == StatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never completed, status %q", job.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	resp, err := svc.Submit(context.Background(), "user-1", "req-1", submitReq())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if _, err := svc.Get(context.Background(), resp.JobID, "user-1"); err != nil {
		t.Fatalf("owner get: %v", err)
	}
	if _, err := svc.Get(context.Background(), resp.JobID, "user-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign user, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	svc, repo, _, _ := newTestService(t)

	resp, err := svc.Submit(context.Background(), "user-1", "req-1", submitReq())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	job, err := svc.Cancel(context.Background(), resp.JobID, "user-1")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !job.CancelRequested {
		t.Fatal("cancelRequested not set")
	}

	// a second cancel on a settled job conflicts
	job.Status = StatusCanceled
	if err := repo.Update(context.Background(), job); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), resp.JobID, "user-1"); !errors.Is(err, ErrJobFinished) {
		t.Fatalf("expected ErrJobFinished, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	svc, repo, _, _ := newTestService(t)

	old := Job{ID: "old", UserID: "user-1", Status: StatusCompleted, CreatedAt: time.Now().Add(-time.Hour)}
	recent := Job{ID: "recent", UserID: "user-1", Status: StatusProcessing, CreatedAt: time.Now()}
	other := Job{ID: "other", UserID: "user-2", Status: StatusProcessing, CreatedAt: time.Now()}
	for _, j := range []Job{old, recent, other} {
		if err := repo.Create(context.Background(), j); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	jobs, err := svc.List(context.Background(), "user-1", 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 2 || jobs[0].ID != "recent" || jobs[1].ID != "old" {
		t.Fatalf("unexpected order %+v", jobs)
	}
}
