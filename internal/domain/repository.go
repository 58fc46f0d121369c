package domain

import "context"

// GenerationRepository persists generation history.
type GenerationRepository interface {
	Create(ctx context.Context, gen *Generation) error
	List(ctx context.Context, limit int) ([]Generation, error)
	GetByID(ctx context.Context, id string) (*Generation, error)
	Delete(ctx context.Context, id string) error
	DeleteOlderThan(ctx context.Context, ageDays int) (int64, error)
}

// TaskRepository persists background video task records.
type TaskRepository interface {
	Create(ctx context.Context, rec *TaskRecord) error
	GetByID(ctx context.Context, id string) (*TaskRecord, error)
	ListPending(ctx context.Context) ([]TaskRecord, error)
	MarkTerminal(ctx context.Context, id string, status TaskStatus, resultURL, errMsg string) (bool, error)
}

// CredentialRepository stores per-provider bearer tokens.
type CredentialRepository interface {
	Token(ctx context.Context, provider string) (string, error)
	SetToken(ctx context.Context, provider, token string) error
}
