package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store hands out request scoped sessions.
type Store interface {
	Acquire(ctx context.Context) (Session, error)
}

// Session is a handle on one storage connection, valid for the lifetime of
// a single request. Close must be called exactly once.
type Session interface {
	Create(ctx context.Context, t Todo) (Todo, error)
	Get(ctx context.Context, id int64) (Todo, error)
	List(ctx context.Context) ([]Todo, error)
	Update(ctx context.Context, id int64, u todoUpdate) (Todo, error)
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) error
	Close()
}

const (
	createTableSQL = `CREATE TABLE IF NOT EXISTS todo (
	id BIGSERIAL PRIMARY KEY,
	content TEXT NOT NULL
)`
	createIndexSQL = `CREATE INDEX IF NOT EXISTS ix_todo_content ON todo (content)`
)

type PgStore struct {
	pool *pgxpool.Pool
}

// OpenPgStore builds the connection pool and waits for the database to
// answer a ping.
func OpenPgStore(ctx context.Context, cfg DatabaseConfig, logger *slog.Logger) (*PgStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	for i := 0; i < 3; i++ {
		time.Sleep(time.Millisecond * 500 * time.Duration(i))

		if err = pool.Ping(ctx); err == nil {
			break
		}
		logger.Warn("database ping failed", "attempt", i+1, "error", err)
	}
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PgStore{pool: pool}, nil
}

// EnsureSchema creates the todo table and its content index if they are
// missing.
func (s *PgStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{createTableSQL, createIndexSQL} {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *PgStore) Acquire(ctx context.Context) (Session, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &pgSession{conn: conn}, nil
}

func (s *PgStore) Close() {
	s.pool.Close()
}

type pgSession struct {
	conn *pgxpool.Conn
}

func scanTodo(row pgx.Row) (Todo, error) {
	var r todoRow
	if err := row.Scan(&r.id, &r.content); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Todo{}, ErrNotFound
		}
		return Todo{}, err
	}
	return r.toTodo(), nil
}

func (s *pgSession) Create(ctx context.Context, t Todo) (Todo, error) {
	row := fromTodo(t)
	created, err := scanTodo(s.conn.QueryRow(ctx,
		"insert into todo (content) values ($1) returning id, content", row.content))
	if err != nil {
		return Todo{}, fmt.Errorf("insert todo: %w", err)
	}
	return created, nil
}

func (s *pgSession) Get(ctx context.Context, id int64) (Todo, error) {
	t, err := scanTodo(s.conn.QueryRow(ctx, "select id, content from todo where id = $1", id))
	if err != nil {
		return Todo{}, fmt.Errorf("get todo %d: %w", id, err)
	}
	return t, nil
}

func (s *pgSession) List(ctx context.Context) ([]Todo, error) {
	rows, err := s.conn.Query(ctx, "select id, content from todo order by id")
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}

	todos, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Todo, error) {
		return scanTodo(row)
	})
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return todos, nil
}

// Update overwrites only the columns whose field is set on u.
func (s *pgSession) Update(ctx context.Context, id int64, u todoUpdate) (Todo, error) {
	t, err := scanTodo(s.conn.QueryRow(ctx,
		"update todo set content = coalesce($2, content) where id = $1 returning id, content",
		id, u.Content))
	if err != nil {
		return Todo{}, fmt.Errorf("update todo %d: %w", id, err)
	}
	return t, nil
}

func (s *pgSession) Delete(ctx context.Context, id int64) error {
	result, err := s.conn.Exec(ctx, "delete from todo where id = $1", id)
	if err != nil {
		return fmt.Errorf("delete todo %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete todo %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteAll removes every row and commits once.
func (s *pgSession) DeleteAll(ctx context.Context) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("delete all todos: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "delete from todo"); err != nil {
		return fmt.Errorf("delete all todos: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("delete all todos: commit: %w", err)
	}
	return nil
}

func (s *pgSession) Close() {
	s.conn.Release()
}
