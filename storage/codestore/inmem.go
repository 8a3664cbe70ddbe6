package codestore

import (
	"context"
	"sync"
	"time"

	"github.com/stg-academy/haksa/core/attendance"
)

type (
	entry struct {
		code      string
		expiresAt time.Time
	}

	// InMemStore is a process-local CodeStore for tests and single-node dev.
	InMemStore struct {
		mu    sync.RWMutex
		codes map[int]entry

		nowFunc func() time.Time // mockable
	}
)

var _ attendance.CodeStore = (*InMemStore)(nil)

func NewInMemStore() *InMemStore {
	return &InMemStore{codes: make(map[int]entry), nowFunc: time.Now}
}

func (s *InMemStore) PutCode(_ context.Context, lectureID int, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[lectureID] = entry{code: code, expiresAt: s.nowFunc().Add(ttl)}
	return nil
}

func (s *InMemStore) GetCode(_ context.Context, lectureID int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.codes[lectureID]
	if !ok || s.nowFunc().After(e.expiresAt) {
		return "", attendance.ErrCodeNotIssued
	}
	return e.code, nil
}
