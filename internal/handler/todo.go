package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/taskmaster/backend/internal/model"
	"github.com/taskmaster/backend/internal/service"
)

// TodoHandler expects SessionMiddleware in front of every route.
type TodoHandler struct {
	svc *service.TodoService
	log *slog.Logger
}

func NewTodoHandler(svc *service.TodoService, log *slog.Logger) *TodoHandler {
	return &TodoHandler{svc: svc, log: log}
}

// ListTodos godoc
// @Summary List the caller's todos
// @Description Incomplete todos first, then most recently modified.
// @Tags todos
// @Produce json
// @Security SessionCookie
// @Success 200 {array} model.Todo
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /todos [get]
func (h *TodoHandler) ListTodos(c *gin.Context) {
	user := GetAuthUser(c)
	list, err := h.svc.List(c.Request.Context(), user.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// CreateTodo godoc
// @Summary Create a todo
// @Tags todos
// @Accept json
// @Produce json
// @Security SessionCookie
// @Param request body model.CreateTodoRequest true "Title and optional description"
// @Success 200 {object} model.Todo
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /todos [post]
func (h *TodoHandler) CreateTodo(c *gin.Context) {
	var req model.CreateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid request"})
		return
	}

	user := GetAuthUser(c)
	todo, err := h.svc.Create(c.Request.Context(), user.ID, req.Title, req.Description)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, todo)
}

// UpdateAllTodos godoc
// @Summary Set the completion flag on every todo the caller owns
// @Tags todos
// @Accept json
// @Produce json
// @Security SessionCookie
// @Param request body model.UpdateStatusRequest true "Completion flag"
// @Success 200 {array} model.Todo
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /todos [patch]
func (h *TodoHandler) UpdateAllTodos(c *gin.Context) {
	var req model.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid request"})
		return
	}

	user := GetAuthUser(c)
	list, err := h.svc.SetAllStatus(c.Request.Context(), user.ID, *req.Completed)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// UpdateTodoStatus godoc
// @Summary Set the completion flag on one todo
// @Tags todos
// @Accept json
// @Produce json
// @Security SessionCookie
// @Param id path int true "Todo ID"
// @Param request body model.UpdateStatusRequest true "Completion flag"
// @Success 200 {object} model.Todo
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /todos/{id} [patch]
func (h *TodoHandler) UpdateTodoStatus(c *gin.Context) {
	id, ok := todoID(c)
	if !ok {
		return
	}

	var req model.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid request"})
		return
	}

	user := GetAuthUser(c)
	todo, err := h.svc.UpdateStatus(c.Request.Context(), user.ID, id, *req.Completed)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, todo)
}

// ReplaceTodo godoc
// @Summary Replace a todo's title and description
// @Tags todos
// @Accept json
// @Produce json
// @Security SessionCookie
// @Param id path int true "Todo ID"
// @Param request body model.ReplaceTodoRequest true "Title and optional description"
// @Success 200 {object} model.Todo
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /todos/{id} [put]
func (h *TodoHandler) ReplaceTodo(c *gin.Context) {
	id, ok := todoID(c)
	if !ok {
		return
	}

	var req model.ReplaceTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid request"})
		return
	}

	user := GetAuthUser(c)
	todo, err := h.svc.Replace(c.Request.Context(), user.ID, id, req.Title, req.Description)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, todo)
}

// DeleteTodo godoc
// @Summary Delete a todo
// @Tags todos
// @Produce json
// @Security SessionCookie
// @Param id path int true "Todo ID"
// @Success 200 {object} model.MessageResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /todos/{id} [delete]
func (h *TodoHandler) DeleteTodo(c *gin.Context) {
	id, ok := todoID(c)
	if !ok {
		return
	}

	user := GetAuthUser(c)
	deleted, err := h.svc.Delete(c.Request.Context(), user.ID, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !deleted {
		h.writeError(c, service.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, model.MessageResponse{Message: "Todo deleted successfully"})
}

// todoID treats a malformed id like an unknown one.
func todoID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "todo not found"})
		return 0, false
	}
	return id, true
}

func (h *TodoHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid input"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "todo not found"})
	default:
		logRequestError(c, h.log, "todo request failed", err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "server error"})
	}
}
