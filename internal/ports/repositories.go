package ports

import (
	"context"
	"sponsor-portal/internal/domain"
	"time"
)

// CredentialStore keeps one bearer credential per browser session under a
// fixed key. Load returns domain.ErrNotFound when the slot is empty.
type CredentialStore interface {
	Load(ctx context.Context, sessionID string) (domain.Credential, error)
	Save(ctx context.Context, sessionID string, credential domain.Credential) error
	Delete(ctx context.Context, sessionID string) error
}

type AuthAPI interface {
	Login(ctx context.Context, identifier, secret string) (domain.Credential, domain.Identity, error)
	Me(ctx context.Context, credential domain.Credential) (domain.Identity, error)
}

type ComplianceAPI interface {
	CalendarEvents(ctx context.Context, credential domain.Credential, year int, month time.Month) (domain.MonthEvents, error)
	ListWorkers(ctx context.Context, credential domain.Credential) ([]domain.Worker, error)
	GetWorker(ctx context.Context, credential domain.Credential, workerID string) (domain.Worker, error)
}
