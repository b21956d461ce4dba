// Package storetest provides an in-memory stand-in for the Postgres stores,
// returning the same pgx errors so service error mapping is exercised.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/taskmaster/backend/internal/model"
)

type Memory struct {
	mu       sync.Mutex
	nextUser int64
	nextTodo int64
	users    map[int64]model.User
	sessions map[string]model.Session
	todos    map[int64]model.Todo

	// Err, when set, is returned by every call.
	Err error
}

func NewMemory() *Memory {
	return &Memory{
		users:    make(map[int64]model.User),
		sessions: make(map[string]model.Session),
		todos:    make(map[int64]model.Todo),
	}
}

func (m *Memory) UserCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

func (m *Memory) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sessions returns a snapshot of stored sessions keyed by token hash.
func (m *Memory) Sessions() map[string]model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]model.Session, len(m.sessions))
	for k, v := range m.sessions {
		out[k] = v
	}
	return out
}

func (m *Memory) CreateUser(ctx context.Context, username, email, passwordHash string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, u := range m.users {
		if u.Username == username || u.Email == email {
			return nil, &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
		}
	}
	m.nextUser++
	u := model.User{
		ID:           m.nextUser,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	m.users[u.ID] = u
	return &u, nil
}

func (m *Memory) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *Memory) InsertSession(ctx context.Context, session model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.users[session.UserID]; !ok {
		return &pgconn.PgError{Code: "23503", Message: "violates foreign key constraint"}
	}
	if _, ok := m.sessions[session.TokenHash]; ok {
		return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
	}
	m.sessions[session.TokenHash] = session
	return nil
}

func (m *Memory) GetSessionUser(ctx context.Context, tokenHash string, now time.Time) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	s, ok := m.sessions[tokenHash]
	if !ok || !now.Before(s.ExpiresAt) {
		return nil, pgx.ErrNoRows
	}
	u, ok := m.users[s.UserID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (m *Memory) DeleteSessionByHash(ctx context.Context, tokenHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	_, ok := m.sessions[tokenHash]
	delete(m.sessions, tokenHash)
	return ok, nil
}

func (m *Memory) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	var n int64
	for hash, s := range m.sessions {
		if !s.ExpiresAt.After(now) {
			delete(m.sessions, hash)
			n++
		}
	}
	return n, nil
}

func (m *Memory) ListTodos(ctx context.Context, userID int64) ([]model.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	list := []model.Todo{}
	for _, t := range m.todos {
		if t.UserID == userID {
			list = append(list, t)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Completed != b.Completed {
			return !a.Completed
		}
		if !a.LastModifiedAt.Equal(b.LastModifiedAt) {
			return a.LastModifiedAt.After(b.LastModifiedAt)
		}
		return a.ID > b.ID
	})
	return list, nil
}

func (m *Memory) InsertTodo(ctx context.Context, userID int64, title string, description *string, now time.Time) (*model.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if _, ok := m.users[userID]; !ok {
		return nil, &pgconn.PgError{Code: "23503", Message: "violates foreign key constraint"}
	}
	m.nextTodo++
	t := model.Todo{
		ID:             m.nextTodo,
		Title:          title,
		Description:    copyString(description),
		UserID:         userID,
		CreatedAt:      now,
		LastModifiedAt: now,
	}
	m.todos[t.ID] = t
	return &t, nil
}

func (m *Memory) UpdateTodoStatus(ctx context.Context, userID, todoID int64, completed bool, now time.Time) (*model.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	t, ok := m.todos[todoID]
	if !ok || t.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	t.Completed = completed
	t.LastModifiedAt = now
	m.todos[todoID] = t
	return &t, nil
}

func (m *Memory) UpdateAllTodoStatus(ctx context.Context, userID int64, completed bool, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	var n int64
	for id, t := range m.todos {
		if t.UserID != userID {
			continue
		}
		t.Completed = completed
		t.LastModifiedAt = now
		m.todos[id] = t
		n++
	}
	return n, nil
}

func (m *Memory) ReplaceTodo(ctx context.Context, userID, todoID int64, title string, description *string, now time.Time) (*model.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	t, ok := m.todos[todoID]
	if !ok || t.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	t.Title = title
	t.Description = copyString(description)
	t.LastModifiedAt = now
	m.todos[todoID] = t
	return &t, nil
}

func (m *Memory) DeleteTodo(ctx context.Context, userID, todoID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	t, ok := m.todos[todoID]
	if !ok || t.UserID != userID {
		return false, nil
	}
	delete(m.todos, todoID)
	return true, nil
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
