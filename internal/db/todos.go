package db

import (
	"context"
	"time"

	"github.com/taskmaster/backend/internal/model"
)

// Every query filters on user_id; a foreign todo id behaves like a missing one.

const todoColumns = `id, title, description, completed, user_id, created_at, last_modified_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (*model.Todo, error) {
	var t model.Todo
	if err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.Completed,
		&t.UserID,
		&t.CreatedAt,
		&t.LastModifiedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

func (db *Postgres) ListTodos(ctx context.Context, userID int64) ([]model.Todo, error) {
	query := `
		SELECT ` + todoColumns + `
		FROM todos
		WHERE user_id = $1
		ORDER BY completed ASC, last_modified_at DESC, id DESC
	`
	rows, err := db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []model.Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (db *Postgres) InsertTodo(ctx context.Context, userID int64, title string, description *string, now time.Time) (*model.Todo, error) {
	query := `
		INSERT INTO todos (title, description, completed, user_id, created_at, last_modified_at)
		VALUES ($1, $2, FALSE, $3, $4, $4)
		RETURNING ` + todoColumns
	return scanTodo(db.Pool.QueryRow(ctx, query, title, description, userID, now))
}

func (db *Postgres) UpdateTodoStatus(ctx context.Context, userID, todoID int64, completed bool, now time.Time) (*model.Todo, error) {
	query := `
		UPDATE todos
		SET completed = $1, last_modified_at = $2
		WHERE id = $3 AND user_id = $4
		RETURNING ` + todoColumns
	return scanTodo(db.Pool.QueryRow(ctx, query, completed, now, todoID, userID))
}

func (db *Postgres) UpdateAllTodoStatus(ctx context.Context, userID int64, completed bool, now time.Time) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE todos
		SET completed = $1, last_modified_at = $2
		WHERE user_id = $3
	`, completed, now, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (db *Postgres) ReplaceTodo(ctx context.Context, userID, todoID int64, title string, description *string, now time.Time) (*model.Todo, error) {
	query := `
		UPDATE todos
		SET title = $1, description = $2, last_modified_at = $3
		WHERE id = $4 AND user_id = $5
		RETURNING ` + todoColumns
	return scanTodo(db.Pool.QueryRow(ctx, query, title, description, now, todoID, userID))
}

func (db *Postgres) DeleteTodo(ctx context.Context, userID, todoID int64) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM todos WHERE id = $1 AND user_id = $2`, todoID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
