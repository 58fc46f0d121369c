package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pixelforge/internal/domain"
	"pixelforge/internal/providers/video"
)

type fakeTaskRepo struct {
	mu      sync.Mutex
	records map[string]*domain.TaskRecord
	listErr error
}

func newFakeTaskRepo(records ...domain.TaskRecord) *fakeTaskRepo {
	repo := &fakeTaskRepo{records: make(map[string]*domain.TaskRecord)}
	for i := range records {
		rec := records[i]
		repo.records[rec.ID] = &rec
	}
	return repo
}

func (f *fakeTaskRepo) Create(_ context.Context, rec *domain.TaskRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *rec
	f.records[rec.ID] = &clone
	return nil
}

func (f *fakeTaskRepo) GetByID(_ context.Context, id string) (*domain.TaskRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

func (f *fakeTaskRepo) ListPending(_ context.Context) ([]domain.TaskRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.TaskRecord
	for _, rec := range f.records {
		if !rec.Status.Terminal() {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeTaskRepo) MarkTerminal(_ context.Context, id string, status domain.TaskStatus, resultURL, errMsg string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok || rec.Status.Terminal() {
		return false, nil
	}
	rec.Status = status
	rec.ResultURL = resultURL
	rec.ErrorMessage = errMsg
	return true, nil
}

type fakePoller struct {
	mu       sync.Mutex
	statuses map[string]*video.StatusResponse
	errs     map[string]error
	calls    map[string]int
}

func newFakePoller() *fakePoller {
	return &fakePoller{
		statuses: make(map[string]*video.StatusResponse),
		errs:     make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (f *fakePoller) PollStatus(_ context.Context, taskID string) (*video.StatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[taskID]++
	if err, ok := f.errs[taskID]; ok {
		return nil, err
	}
	if status, ok := f.statuses[taskID]; ok {
		return status, nil
	}
	return &video.StatusResponse{Status: domain.TaskStatusGenerating}, nil
}

func (f *fakePoller) callCount(taskID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[taskID]
}

type manualTicker struct {
	ch chan time.Time
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               {}

func pendingRecord(id, taskID string) domain.TaskRecord {
	return domain.TaskRecord{ID: id, TaskID: taskID, Provider: "video", Status: domain.TaskStatusGenerating}
}

func TestRunCyclePollsEveryPendingRecord(t *testing.T) {
	repo := newFakeTaskRepo(
		pendingRecord("a", "task-a"),
		pendingRecord("b", "task-b"),
		pendingRecord("c", "task-c"),
	)
	poller := newFakePoller()
	trk, err := New(Options{Repo: repo, Poller: poller})
	if err != nil {
		t.Fatal(err)
	}

	trk.RunCycle(context.Background())

	for _, id := range []string{"task-a", "task-b", "task-c"} {
		if got := poller.callCount(id); got != 1 {
			t.Errorf("task %s polled %d times, want 1", id, got)
		}
	}
}

func TestRunCycleMergesTerminalOutcomes(t *testing.T) {
	repo := newFakeTaskRepo(
		pendingRecord("a", "task-a"),
		pendingRecord("b", "task-b"),
	)
	poller := newFakePoller()
	poller.statuses["task-a"] = &video.StatusResponse{
		Status:    domain.TaskStatusSuccess,
		ResultURL: "https://cdn.example.com/a.mp4",
	}
	poller.statuses["task-b"] = &video.StatusResponse{
		Status:       domain.TaskStatusFailed,
		ErrorMessage: "nsfw rejected",
	}

	var terminal []domain.TaskRecord
	trk, err := New(Options{
		Repo:       repo,
		Poller:     poller,
		OnTerminal: func(rec domain.TaskRecord) { terminal = append(terminal, rec) },
	})
	if err != nil {
		t.Fatal(err)
	}

	trk.RunCycle(context.Background())

	recA, _ := repo.GetByID(context.Background(), "a")
	if recA.Status != domain.TaskStatusSuccess || recA.ResultURL != "https://cdn.example.com/a.mp4" {
		t.Fatalf("record a = %+v, want success with result url", recA)
	}
	recB, _ := repo.GetByID(context.Background(), "b")
	if recB.Status != domain.TaskStatusFailed || recB.ErrorMessage != "nsfw rejected" {
		t.Fatalf("record b = %+v, want failure with message", recB)
	}
	if len(terminal) != 2 {
		t.Fatalf("OnTerminal fired %d times, want 2", len(terminal))
	}

	// Terminal records must not be polled again.
	trk.RunCycle(context.Background())
	if got := poller.callCount("task-a"); got != 1 {
		t.Fatalf("terminal task polled %d times, want 1", got)
	}
}

func TestRunCycleRetriesFailedPolls(t *testing.T) {
	repo := newFakeTaskRepo(pendingRecord("a", "task-a"))
	poller := newFakePoller()
	poller.errs["task-a"] = errors.New("connection reset")

	trk, err := New(Options{Repo: repo, Poller: poller})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		trk.RunCycle(context.Background())
	}
	if got := poller.callCount("task-a"); got != 3 {
		t.Fatalf("failing task polled %d times, want one attempt per cycle", got)
	}
	rec, _ := repo.GetByID(context.Background(), "a")
	if rec.Status != domain.TaskStatusGenerating {
		t.Fatalf("record status = %s, want still pending", rec.Status)
	}
}

func TestRunCycleNonTerminalStatusLeavesRecordPending(t *testing.T) {
	repo := newFakeTaskRepo(pendingRecord("a", "task-a"))
	poller := newFakePoller()
	poller.statuses["task-a"] = &video.StatusResponse{Status: domain.TaskStatusQueued}

	trk, err := New(Options{Repo: repo, Poller: poller})
	if err != nil {
		t.Fatal(err)
	}
	trk.RunCycle(context.Background())

	rec, _ := repo.GetByID(context.Background(), "a")
	if rec.Status.Terminal() {
		t.Fatalf("record status = %s, want non-terminal", rec.Status)
	}
	trk.RunCycle(context.Background())
	if got := poller.callCount("task-a"); got != 2 {
		t.Fatalf("queued task polled %d times, want 2", got)
	}
}

func TestStartStopDrivenByTicker(t *testing.T) {
	repo := newFakeTaskRepo(pendingRecord("a", "task-a"))
	poller := newFakePoller()
	ticker := &manualTicker{ch: make(chan time.Time)}

	trk, err := New(Options{
		Repo:      repo,
		Poller:    poller,
		Interval:  time.Hour,
		NewTicker: func(time.Duration) Ticker { return ticker },
	})
	if err != nil {
		t.Fatal(err)
	}

	trk.Start(context.Background())
	trk.Start(context.Background()) // second Start is a no-op

	ticker.ch <- time.Now()
	ticker.ch <- time.Now()

	trk.Stop()
	trk.Stop() // second Stop is a no-op

	if got := poller.callCount("task-a"); got != 2 {
		t.Fatalf("polled %d times, want one per tick", got)
	}
}

func TestRunCycleListFailureSkipsCycle(t *testing.T) {
	repo := newFakeTaskRepo(pendingRecord("a", "task-a"))
	repo.listErr = errors.New("db down")
	poller := newFakePoller()

	trk, err := New(Options{Repo: repo, Poller: poller})
	if err != nil {
		t.Fatal(err)
	}
	trk.RunCycle(context.Background())

	if got := poller.callCount("task-a"); got != 0 {
		t.Fatalf("polled %d times, want 0 when listing fails", got)
	}
}
