package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/taskmaster/backend/internal/db"
	"github.com/taskmaster/backend/internal/model"
)

var ErrNotFound = errors.New("not found")

type TodoRepo interface {
	ListTodos(ctx context.Context, userID int64) ([]model.Todo, error)
	InsertTodo(ctx context.Context, userID int64, title string, description *string, now time.Time) (*model.Todo, error)
	UpdateTodoStatus(ctx context.Context, userID, todoID int64, completed bool, now time.Time) (*model.Todo, error)
	UpdateAllTodoStatus(ctx context.Context, userID int64, completed bool, now time.Time) (int64, error)
	ReplaceTodo(ctx context.Context, userID, todoID int64, title string, description *string, now time.Time) (*model.Todo, error)
	DeleteTodo(ctx context.Context, userID, todoID int64) (bool, error)
}

// TodoService runs every operation inside the caller's ownership scope:
// userID always comes from AuthService.ResolveSession, never from the request.
type TodoService struct {
	repo TodoRepo
	log  *slog.Logger
	now  func() time.Time
}

func NewTodoService(repo TodoRepo, log *slog.Logger) *TodoService {
	if log == nil {
		log = slog.Default()
	}
	return &TodoService{repo: repo, log: log, now: time.Now}
}

// List returns incomplete todos first, each group most recently modified first.
func (s *TodoService) List(ctx context.Context, userID int64) ([]model.Todo, error) {
	list, err := s.repo.ListTodos(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	if list == nil {
		list = []model.Todo{}
	}
	return list, nil
}

func (s *TodoService) Create(ctx context.Context, userID int64, title string, description *string) (*model.Todo, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrInvalidInput
	}

	todo, err := s.repo.InsertTodo(ctx, userID, title, description, s.now())
	if err != nil {
		return nil, fmt.Errorf("create todo: %w", err)
	}
	return todo, nil
}

func (s *TodoService) UpdateStatus(ctx context.Context, userID, todoID int64, completed bool) (*model.Todo, error) {
	todo, err := s.repo.UpdateTodoStatus(ctx, userID, todoID, completed, s.now())
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update todo status: %w", err)
	}
	return todo, nil
}

// SetAllStatus marks every todo the user owns and returns the refreshed list.
func (s *TodoService) SetAllStatus(ctx context.Context, userID int64, completed bool) ([]model.Todo, error) {
	n, err := s.repo.UpdateAllTodoStatus(ctx, userID, completed, s.now())
	if err != nil {
		return nil, fmt.Errorf("update all todo status: %w", err)
	}
	s.log.InfoContext(ctx, "bulk status update", "user_id", userID, "completed", completed, "count", n)
	return s.List(ctx, userID)
}

func (s *TodoService) Replace(ctx context.Context, userID, todoID int64, title string, description *string) (*model.Todo, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrInvalidInput
	}

	todo, err := s.repo.ReplaceTodo(ctx, userID, todoID, title, description, s.now())
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("replace todo: %w", err)
	}
	return todo, nil
}

// Delete reports whether a todo owned by userID was removed.
func (s *TodoService) Delete(ctx context.Context, userID, todoID int64) (bool, error) {
	deleted, err := s.repo.DeleteTodo(ctx, userID, todoID)
	if err != nil {
		return false, fmt.Errorf("delete todo: %w", err)
	}
	return deleted, nil
}
