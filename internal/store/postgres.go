package store

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PratikDhanave/event-mirror-service/internal/models"
)

// schemaPostgres is embedded so the service can self-bootstrap its database schema.
//
//go:embed schema_postgres.sql
var schemaPostgres string

// PostgresStore is the durable persistence layer for events on Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ EventStore = (*PostgresStore)(nil)

// NewPostgresStore creates a connection pool and fails fast if DB is unreachable.
func NewPostgresStore(ctx context.Context, dbURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema applies schema_postgres.sql. Safe to run multiple times.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, schemaPostgres)
	return err
}

// Ping is used by the readiness endpoint to validate DB connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

func (p *PostgresStore) Insert(ctx context.Context, ev models.Event) error {
	newID(&ev)
	_, err := p.pool.Exec(ctx, `
		INSERT INTO events(id, name, city, country, event_date, ts)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, ev.ID, ev.Name, ev.City, ev.Country, ev.Date, ev.Timestamp)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (p *PostgresStore) Find(ctx context.Context, q Query) ([]models.Event, error) {
	sql, args, cols := buildFind(q, func(n int) string { return "$" + strconv.Itoa(n) })

	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	defer rows.Close()

	out := []models.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows, cols)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (p *PostgresStore) Clear(ctx context.Context) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM events`)
	if err != nil {
		return 0, fmt.Errorf("clear events: %w", err)
	}
	return tag.RowsAffected(), nil
}
