package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// testDatabaseURL prefers TEST_DATABASE_URL and otherwise boots a throwaway
// postgres container.
func testDatabaseURL(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres integration test skipped in short mode")
	}
	getenv, err := envLookup(".env")
	require.NoError(t, err)
	if url := getenv("TEST_DATABASE_URL"); url != "" {
		return url
	}

	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	req := testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "todo",
				"POSTGRES_PASSWORD": "todo",
				"POSTGRES_DB":       "todo",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	}

	container, err := testcontainers.GenericContainer(ctx, req)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	endpoint, err := container.PortEndpoint(ctx, "5432/tcp", "")
	require.NoError(t, err)
	return fmt.Sprintf("postgres://todo:todo@%s/todo?sslmode=disable", endpoint)
}

func openTestStore(t *testing.T) *PgStore {
	t.Helper()
	ctx := context.Background()

	store, err := OpenPgStore(ctx, DatabaseConfig{
		URL:             testDatabaseURL(t),
		ConnMaxLifetime: 5 * time.Minute,
	}, newLogger(io.Discard, "error", "text"))
	require.NoError(t, err)
	t.Cleanup(store.Close)

	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.EnsureSchema(ctx), "schema creation must be repeatable")
	return store
}

func TestPgSession(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	session, err := store.Acquire(ctx)
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.DeleteAll(ctx))

	created, err := session.Create(ctx, Todo{ID: 999, Content: "buy bread"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.NotEqual(t, int64(999), created.ID)
	assert.Equal(t, "buy bread", created.Content)

	got, err := session.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = session.Get(ctx, 999999)
	assert.ErrorIs(t, err, ErrNotFound)

	unchanged, err := session.Update(ctx, created.ID, todoUpdate{})
	require.NoError(t, err)
	assert.Equal(t, created, unchanged)

	milk := "buy milk"
	updated, err := session.Update(ctx, created.ID, todoUpdate{Content: &milk})
	require.NoError(t, err)
	assert.Equal(t, Todo{ID: created.ID, Content: milk}, updated)

	_, err = session.Update(ctx, 999999, todoUpdate{Content: &milk})
	assert.ErrorIs(t, err, ErrNotFound)

	second, err := session.Create(ctx, Todo{Content: "walk dog"})
	require.NoError(t, err)

	todos, err := session.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Todo{updated, second}, todos)

	require.NoError(t, session.Delete(ctx, created.ID))
	assert.ErrorIs(t, session.Delete(ctx, created.ID), ErrNotFound)

	require.NoError(t, session.DeleteAll(ctx))
	todos, err = session.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, todos)

	for _, tt := range roundTripContents {
		t.Run("round trip "+tt.name, func(t *testing.T) {
			stored, err := session.Create(ctx, Todo{Content: tt.content})
			require.NoError(t, err)
			assert.Equal(t, tt.content, stored.Content)

			got, err := session.Get(ctx, stored.ID)
			require.NoError(t, err)
			assert.Equal(t, stored, got)
		})
	}
}

func TestPgRouterEndToEnd(t *testing.T) {
	store := openTestStore(t)
	r := newTestRouter(store)

	require.Equal(t, http.StatusOK, do(t, r, http.MethodDelete, "/todos/", "").Code)

	rec := do(t, r, http.MethodPost, "/todos/", `{"content":"buy bread"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	created := decodeTodo(t, rec)
	path := fmt.Sprintf("/todos/%d/", created.ID)

	rec = do(t, r, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created, decodeTodo(t, rec))

	rec = do(t, r, http.MethodPatch, path, `{"content":"buy milk"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, Todo{ID: created.ID, Content: "buy milk"}, decodeTodo(t, rec))

	rec = do(t, r, http.MethodDelete, path, "")
	assert.JSONEq(t, `{"message":"Todo deleted successfully"}`, rec.Body.String())

	rec = do(t, r, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"Todo not found"}`, rec.Body.String())

	rec = do(t, r, http.MethodGet, "/todos/", "")
	var todos []Todo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &todos))
	assert.Empty(t, todos)
}
