package usecase

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/GoArmGo/ModuleHub/internal/domain"
	"github.com/GoArmGo/ModuleHub/internal/messaging/payloads"
)

type memUsers struct {
	mu     sync.Mutex
	nextID int64
	byMail map[string]*domain.User
}

func newMemUsers() *memUsers {
	return &memUsers{byMail: make(map[string]*domain.User)}
}

func (s *memUsers) CreateUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byMail[u.Email]; ok {
		return domain.ErrEmailTaken
	}
	s.nextID++
	u.ID = s.nextID
	u.CreatedAt = time.Now()
	cp := *u
	s.byMail[u.Email] = &cp
	return nil
}

func (s *memUsers) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byMail[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

type memModules struct {
	mu        sync.Mutex
	nextID    int64
	rows      []domain.Module
	createErr error
}

func (s *memModules) CreateModule(_ context.Context, m *domain.Module) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.nextID++
	m.ID = s.nextID
	m.CreatedAt = time.Now()
	s.rows = append(s.rows, *m)
	return nil
}

func (s *memModules) ListModulesByUser(_ context.Context, userID int64) ([]domain.Module, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Module{}
	for i := len(s.rows) - 1; i >= 0; i-- {
		if s.rows[i].UserID == userID {
			out = append(out, s.rows[i])
		}
	}
	return out, nil
}

func (s *memModules) DeleteModule(_ context.Context, userID int64, folder string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteWhere(func(m domain.Module) bool { return m.UserID == userID && m.Folder == folder }) > 0, nil
}

func (s *memModules) ListFolders(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.rows {
		out = append(out, m.Folder)
	}
	return out, nil
}

func (s *memModules) DeleteModulesByFolder(_ context.Context, folder string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteWhere(func(m domain.Module) bool { return m.Folder == folder }), nil
}

func (s *memModules) Ping(context.Context) error { return nil }

func (s *memModules) deleteWhere(match func(domain.Module) bool) int64 {
	var n int64
	kept := s.rows[:0]
	for _, m := range s.rows {
		if match(m) {
			n++
			continue
		}
		kept = append(kept, m)
	}
	s.rows = kept
	return n
}

func (s *memModules) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

type memArchiveStore struct {
	mu       sync.Mutex
	objects  map[string]int
	deleted  []string
	failDrop bool
}

func newMemArchiveStore() *memArchiveStore {
	return &memArchiveStore{objects: make(map[string]int)}
}

func (s *memArchiveStore) UploadFile(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = len(b)
	return key, nil
}

func (s *memArchiveStore) DeleteFile(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDrop {
		return errors.New("store unavailable")
	}
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	jobs []payloads.ModuleCleanupPayload
}

func (p *recordingPublisher) PublishModuleCleanup(_ context.Context, payload payloads.ModuleCleanupPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, payload)
	return nil
}
