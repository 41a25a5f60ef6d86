// Package memident is an in-memory identity backend for tests and local
// development.
package memident

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/eggbucket/admin-api/internal/identity"
)

type principal struct {
	uid         string
	email       string
	password    string
	displayName string
}

type Service struct {
	mu      sync.Mutex
	byUID   map[string]*principal
	byEmail map[string]string
}

func New() *Service {
	return &Service{
		byUID:   make(map[string]*principal),
		byEmail: make(map[string]string),
	}
}

func (s *Service) LookupByEmail(_ context.Context, email string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uid, ok := s.byEmail[email]
	if !ok {
		return "", fmt.Errorf("%s: %w", email, identity.ErrNotFound)
	}
	return uid, nil
}

func (s *Service) Create(_ context.Context, email, password, displayName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[email]; ok {
		return "", fmt.Errorf("principal %s already exists", email)
	}
	uid := uuid.NewString()
	s.byUID[uid] = &principal{uid: uid, email: email, password: password, displayName: displayName}
	s.byEmail[email] = uid
	return uid, nil
}

func (s *Service) Update(_ context.Context, uid, email, displayName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byUID[uid]
	if !ok {
		return fmt.Errorf("%s: %w", uid, identity.ErrNotFound)
	}
	delete(s.byEmail, p.email)
	p.email = email
	p.displayName = displayName
	s.byEmail[email] = uid
	return nil
}

func (s *Service) Delete(_ context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byUID[uid]
	if !ok {
		return fmt.Errorf("%s: %w", uid, identity.ErrNotFound)
	}
	delete(s.byEmail, p.email)
	delete(s.byUID, uid)
	return nil
}

var _ identity.Service = (*Service)(nil)
