package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// memStore is an in-memory Store used by the handler tests. It counts
// acquired and released sessions so tests can check every request gives
// its session back.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	rows   []todoRow

	acquireErr error
	failWith   error
	acquired   atomic.Int64
	released   atomic.Int64
}

func newMemStore() *memStore {
	return &memStore{nextID: 1}
}

func (s *memStore) Acquire(ctx context.Context) (Session, error) {
	if s.acquireErr != nil {
		return nil, s.acquireErr
	}
	s.acquired.Add(1)
	return &memSession{store: s}, nil
}

func (s *memStore) open() int64 {
	return s.acquired.Load() - s.released.Load()
}

type memSession struct {
	store  *memStore
	closed bool
}

func (m *memSession) check() error {
	if m.closed {
		return errors.New("session used after close")
	}
	return m.store.failWith
}

func (m *memSession) Create(ctx context.Context, t Todo) (Todo, error) {
	if err := m.check(); err != nil {
		return Todo{}, err
	}
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	row := fromTodo(t)
	row.id = s.nextID
	s.nextID++
	s.rows = append(s.rows, row)
	return row.toTodo(), nil
}

func (m *memSession) find(id int64) int {
	for i, r := range m.store.rows {
		if r.id == id {
			return i
		}
	}
	return -1
}

func (m *memSession) Get(ctx context.Context, id int64) (Todo, error) {
	if err := m.check(); err != nil {
		return Todo{}, err
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	i := m.find(id)
	if i < 0 {
		return Todo{}, fmt.Errorf("get todo %d: %w", id, ErrNotFound)
	}
	return m.store.rows[i].toTodo(), nil
}

func (m *memSession) List(ctx context.Context) ([]Todo, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	var out []Todo
	for _, r := range m.store.rows {
		out = append(out, r.toTodo())
	}
	return out, nil
}

func (m *memSession) Update(ctx context.Context, id int64, u todoUpdate) (Todo, error) {
	if err := m.check(); err != nil {
		return Todo{}, err
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	i := m.find(id)
	if i < 0 {
		return Todo{}, fmt.Errorf("update todo %d: %w", id, ErrNotFound)
	}
	if u.Content != nil {
		m.store.rows[i].content = *u.Content
	}
	return m.store.rows[i].toTodo(), nil
}

func (m *memSession) Delete(ctx context.Context, id int64) error {
	if err := m.check(); err != nil {
		return err
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	i := m.find(id)
	if i < 0 {
		return fmt.Errorf("delete todo %d: %w", id, ErrNotFound)
	}
	m.store.rows = append(m.store.rows[:i], m.store.rows[i+1:]...)
	return nil
}

func (m *memSession) DeleteAll(ctx context.Context) error {
	if err := m.check(); err != nil {
		return err
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	m.store.rows = nil
	return nil
}

func (m *memSession) Close() {
	if m.closed {
		panic("session closed twice")
	}
	m.closed = true
	m.store.released.Add(1)
}
