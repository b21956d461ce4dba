package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/taskmaster/backend/internal/service"
)

type RouterDeps struct {
	Auth           *service.AuthService
	Todos          *service.TodoService
	DB             Pinger
	AllowedOrigins []string
	Log            *slog.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(log), CORSMiddleware(deps.AllowedOrigins))

	router.GET("/ping", Ping)
	router.GET("/healthz", Healthz(deps.DB))
	router.GET("/openapi.json", OpenAPIDoc)

	authHandler := NewAuthHandler(deps.Auth, log)
	requireSession := SessionMiddleware(deps.Auth, log)

	auth := router.Group("/auth")
	{
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", authHandler.Logout)
		auth.GET("/me", requireSession, authHandler.Me)
	}

	todoHandler := NewTodoHandler(deps.Todos, log)

	todos := router.Group("/todos", requireSession)
	{
		todos.GET("", todoHandler.ListTodos)
		todos.POST("", todoHandler.CreateTodo)
		todos.PATCH("", todoHandler.UpdateAllTodos)
		todos.PATCH("/:id", todoHandler.UpdateTodoStatus)
		todos.PUT("/:id", todoHandler.ReplaceTodo)
		todos.DELETE("/:id", todoHandler.DeleteTodo)
	}

	return router
}
