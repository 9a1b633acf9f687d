package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
)

// NewRouter wires the todo endpoints. Every /todos route runs with a
// session acquired from store.
func NewRouter(store Store, logger *slog.Logger, cfg Config) *gin.Engine {
	r := gin.New()

	r.Use(AccessLogMiddleware(logger))
	// The recovered value reaches the access log through c.Errors.
	r.Use(gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		abortWithError(c, fmt.Errorf("panic: %v", recovered))
	}))
	r.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	r.Use(MetricsMiddleware(otel.GetMeterProvider()))

	r.GET("/", ReadRoot)
	r.GET("/openapi.json", OpenAPIHandler(newAPIDoc(cfg.PublicURL)))

	todos := r.Group("/todos", SessionMiddleware(store))
	todos.POST("/", CreateTodo)
	todos.GET("/", ListTodos)
	todos.DELETE("/", DeleteAllTodos)
	todos.GET("/:id/", GetTodo)
	todos.PUT("/:id/", UpdateTodo)
	todos.PATCH("/:id/", UpdateTodo)
	todos.DELETE("/:id/", DeleteTodo)

	return r
}

func ReadRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"Hello": "World"})
}

func todoID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		abortInvalidID(c, err)
		return 0, false
	}
	return id, true
}

func CreateTodo(c *gin.Context) {
	var input todoCreate
	if err := c.ShouldBindBodyWithJSON(&input); err != nil {
		abortInvalidBody(c, err)
		return
	}

	session, err := GetSession(c)
	if err != nil {
		abortWithError(c, err)
		return
	}

	created, err := session.Create(c.Request.Context(), Todo{Content: *input.Content})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, created)
}

func ListTodos(c *gin.Context) {
	session, err := GetSession(c)
	if err != nil {
		abortWithError(c, err)
		return
	}

	todos, err := session.List(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	if todos == nil {
		todos = []Todo{}
	}
	c.JSON(http.StatusOK, todos)
}

func GetTodo(c *gin.Context) {
	id, ok := todoID(c)
	if !ok {
		return
	}

	session, err := GetSession(c)
	if err != nil {
		abortWithError(c, err)
		return
	}

	todo, err := session.Get(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, todo)
}

// UpdateTodo serves both PUT and PATCH: only fields present in the body are
// written.
func UpdateTodo(c *gin.Context) {
	id, ok := todoID(c)
	if !ok {
		return
	}

	var input todoUpdate
	if err := c.ShouldBindBodyWithJSON(&input); err != nil {
		abortInvalidBody(c, err)
		return
	}

	session, err := GetSession(c)
	if err != nil {
		abortWithError(c, err)
		return
	}

	updated, err := session.Update(c.Request.Context(), id, input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func DeleteTodo(c *gin.Context) {
	id, ok := todoID(c)
	if !ok {
		return
	}

	session, err := GetSession(c)
	if err != nil {
		abortWithError(c, err)
		return
	}

	if err := session.Delete(c.Request.Context(), id); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, Message{Message: "Todo deleted successfully"})
}

func DeleteAllTodos(c *gin.Context) {
	session, err := GetSession(c)
	if err != nil {
		abortWithError(c, err)
		return
	}

	if err := session.DeleteAll(c.Request.Context()); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, Message{Message: "All Todo items deleted successfully"})
}
