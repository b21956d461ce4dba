package model

import "time"

type Todo struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Description    *string   `json:"description"`
	Completed      bool      `json:"completed"`
	UserID         int64     `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	LastModifiedAt time.Time `json:"last_modified_at"`
}

type CreateTodoRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description *string `json:"description"`
}

// ReplaceTodoRequest replaces title and description; a missing description clears it.
type ReplaceTodoRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description *string `json:"description"`
}

// UpdateStatusRequest uses a pointer so an absent "completed" fails binding instead of meaning false.
type UpdateStatusRequest struct {
	Completed *bool `json:"completed" binding:"required"`
}
