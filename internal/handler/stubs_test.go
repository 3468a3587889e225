package handler

import (
	"context"
	"io"
	"time"

	"github.com/GoArmGo/ModuleHub/internal/domain"
	"github.com/GoArmGo/ModuleHub/internal/messaging/payloads"
	"github.com/GoArmGo/ModuleHub/internal/usecase"
)

type stubModules struct {
	uploadRes *usecase.UploadResult
	uploadErr error
	gotName   string
	gotBody   string
	gotUser   int64
	views     []domain.ModuleView
	deleted   []string
	deleteErr error
	listErr   error
}

func (s *stubModules) Upload(_ context.Context, userID int64, name string, r io.Reader) (*usecase.UploadResult, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s.gotUser, s.gotName, s.gotBody = userID, name, string(b)
	return s.uploadRes, s.uploadErr
}

func (s *stubModules) List(_ context.Context, userID int64) ([]domain.ModuleView, error) {
	s.gotUser = userID
	return s.views, s.listErr
}

func (s *stubModules) Delete(_ context.Context, userID int64, folder string) error {
	s.gotUser = userID
	s.deleted = append(s.deleted, folder)
	return s.deleteErr
}

func (s *stubModules) Reconcile(context.Context) (*usecase.ReconcileReport, error) {
	return &usecase.ReconcileReport{}, nil
}

func (s *stubModules) Cleanup(context.Context, payloads.ModuleCleanupPayload) error { return nil }

type stubAuth struct {
	registerErr error
	loginID     int64
	loginErr    error
}

func (s *stubAuth) Register(_ context.Context, email, _ string) (*domain.User, error) {
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	return &domain.User{ID: 1, Email: email}, nil
}

func (s *stubAuth) Login(context.Context, string, string) (int64, error) {
	return s.loginID, s.loginErr
}

type memSessions struct {
	revoked map[string]time.Time
	err     error
}

func newMemSessions() *memSessions {
	return &memSessions{revoked: make(map[string]time.Time)}
}

func (m *memSessions) RevokeSession(_ context.Context, id string, exp time.Time) error {
	if m.err != nil {
		return m.err
	}
	m.revoked[id] = exp
	return nil
}

func (m *memSessions) IsSessionRevoked(_ context.Context, id string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.revoked[id]
	return ok, nil
}

func (m *memSessions) PurgeRevokedSessions(context.Context, time.Time) (int64, error) {
	return 0, nil
}
