package bookshelf

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemStore keeps books in insertion order in process memory. Every id it has
// ever issued is remembered so that none is handed out twice.
type MemStore struct {
	mu     sync.RWMutex
	books  []Book
	issued map[string]struct{}

	now   func() time.Time
	newID IDFunc
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		issued: make(map[string]struct{}),
		now:    clock,
		newID:  NewID,
	}
}

func (s *MemStore) Ping(context.Context) error { return nil }

func (s *MemStore) Create(_ context.Context, in BookInput) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.allocateID()
	if err != nil {
		return "", err
	}

	s.books = append(s.books, newBook(id, in, s.now()))
	return id, nil
}

// allocateID requires s.mu held for writing.
func (s *MemStore) allocateID() (string, error) {
	for range maxIDAttempts {
		id, err := s.newID()
		if err != nil {
			return "", err
		}
		if _, taken := s.issued[id]; taken {
			continue
		}
		s.issued[id] = struct{}{}
		return id, nil
	}
	return "", errIDExhausted
}

func (s *MemStore) List(_ context.Context, f Filter) ([]BookSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]BookSummary, 0, len(s.books))
	for _, b := range s.books {
		if f.Match(b) {
			out = append(out, b.summary())
		}
	}
	return out, nil
}

func (s *MemStore) Get(_ context.Context, id string) (Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return Book{}, ErrNotFound
	}
	return s.books[i].clone(), nil
}

func (s *MemStore) Update(_ context.Context, id string, in BookInput) error {
	if err := in.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	s.books[i].apply(in, s.now())
	return nil
}

func (s *MemStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	s.books = slices.Delete(s.books, i, i+1)
	return nil
}

func (s *MemStore) indexOf(id string) int {
	return slices.IndexFunc(s.books, func(b Book) bool { return b.ID == id })
}
