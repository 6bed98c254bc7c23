package application

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"sponsor-portal/internal/domain"
)

type credentialStoreMock struct{ mock.Mock }

func (m *credentialStoreMock) Load(ctx context.Context, sessionID string) (domain.Credential, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(domain.Credential), args.Error(1)
}

func (m *credentialStoreMock) Save(ctx context.Context, sessionID string, credential domain.Credential) error {
	args := m.Called(ctx, sessionID, credential)
	return args.Error(0)
}

func (m *credentialStoreMock) Delete(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

type authAPIMock struct{ mock.Mock }

func (m *authAPIMock) Login(ctx context.Context, identifier, secret string) (domain.Credential, domain.Identity, error) {
	args := m.Called(ctx, identifier, secret)
	return args.Get(0).(domain.Credential), args.Get(1).(domain.Identity), args.Error(2)
}

func (m *authAPIMock) Me(ctx context.Context, credential domain.Credential) (domain.Identity, error) {
	args := m.Called(ctx, credential)
	return args.Get(0).(domain.Identity), args.Error(1)
}

type complianceAPIMock struct{ mock.Mock }

func (m *complianceAPIMock) CalendarEvents(ctx context.Context, credential domain.Credential, year int, month time.Month) (domain.MonthEvents, error) {
	args := m.Called(ctx, credential, year, month)
	return args.Get(0).(domain.MonthEvents), args.Error(1)
}

func (m *complianceAPIMock) ListWorkers(ctx context.Context, credential domain.Credential) ([]domain.Worker, error) {
	args := m.Called(ctx, credential)
	return args.Get(0).([]domain.Worker), args.Error(1)
}

func (m *complianceAPIMock) GetWorker(ctx context.Context, credential domain.Credential, workerID string) (domain.Worker, error) {
	args := m.Called(ctx, credential, workerID)
	return args.Get(0).(domain.Worker), args.Error(1)
}

type nopLogger struct{}

func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Debug(context.Context, string, ...any) {}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func datePtr(s string) *domain.Date {
	d := domain.Date(s)
	return &d
}

func strPtr(s string) *string { return &s }
