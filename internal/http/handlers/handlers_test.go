package handlers

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"pixelforge/internal/domain"
	"pixelforge/internal/infra"
	"pixelforge/internal/providers/video"
)

// Shared fakes for handler tests.

var errProviderDown = errors.New("db down")

func discardLogger() infra.Logger {
	return infra.Logger(zerolog.New(io.Discard))
}

type fakeGenerator struct {
	result     *domain.GenerationResult
	err        error
	lastReq    domain.GenerationRequest
	lastSource string
}

func (f *fakeGenerator) Generate(_ context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	f.lastReq = req
	return f.result, f.err
}

func (f *fakeGenerator) Upscale(_ context.Context, imageURL string, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	f.lastReq = req
	f.lastSource = imageURL
	return f.result, f.err
}

type fakeGenerationRepo struct {
	mu    sync.Mutex
	items []domain.Generation
	err   error
}

func (f *fakeGenerationRepo) Create(_ context.Context, gen *domain.Generation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.items = append([]domain.Generation{*gen}, f.items...)
	return nil
}

func (f *fakeGenerationRepo) List(_ context.Context, limit int) ([]domain.Generation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if limit > len(f.items) {
		limit = len(f.items)
	}
	return append([]domain.Generation(nil), f.items[:limit]...), nil
}

func (f *fakeGenerationRepo) GetByID(_ context.Context, id string) (*domain.Generation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			clone := f.items[i]
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeGenerationRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeGenerationRepo) DeleteOlderThan(context.Context, int) (int64, error) { return 0, nil }

type fakeTaskRepo struct {
	mu      sync.Mutex
	records map[string]*domain.TaskRecord
	err     error
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{records: make(map[string]*domain.TaskRecord)}
}

func (f *fakeTaskRepo) Create(_ context.Context, rec *domain.TaskRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
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

func (f *fakeTaskRepo) ListPending(context.Context) ([]domain.TaskRecord, error) { return nil, nil }

func (f *fakeTaskRepo) MarkTerminal(context.Context, string, domain.TaskStatus, string, string) (bool, error) {
	return false, nil
}

type fakeVideoBackend struct {
	taskID string
	err    error
	last   video.CreateRequest
}

func (f *fakeVideoBackend) CreateTask(_ context.Context, req video.CreateRequest) (string, error) {
	f.last = req
	return f.taskID, f.err
}

type fakeCredentials struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newFakeCredentials() *fakeCredentials {
	return &fakeCredentials{tokens: make(map[string]string)}
}

func (f *fakeCredentials) Token(_ context.Context, provider string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokens[provider], nil
}

func (f *fakeCredentials) SetToken(_ context.Context, provider, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token == "" {
		delete(f.tokens, provider)
		return nil
	}
	f.tokens[provider] = token
	return nil
}

func newTestApp(t *testing.T) (*App, *fakeGenerator, *fakeGenerationRepo, *fakeTaskRepo, *fakeVideoBackend) {
	t.Helper()
	gen := &fakeGenerator{}
	gens := &fakeGenerationRepo{}
	tasks := newFakeTaskRepo()
	backend := &fakeVideoBackend{taskID: "vt-1"}
	app := &App{
		Logger:      discardLogger(),
		Generations: gens,
		Tasks:       tasks,
		Credentials: newFakeCredentials(),
		Images:      gen,
		Video:       backend,
	}
	return app, gen, gens, tasks, backend
}
