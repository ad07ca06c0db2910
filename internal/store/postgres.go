package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/kisanmitra/advisor/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool, which tests supply as a mock.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS conversation_events (
	id         TEXT PRIMARY KEY,
	client_id  TEXT NOT NULL,
	raw_text   TEXT NOT NULL,
	query      JSONB NOT NULL,
	answer     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_client_id ON conversation_events(client_id);
CREATE INDEX IF NOT EXISTS idx_events_created_at ON conversation_events(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveEvent(ctx context.Context, event model.ConversationEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	queryJSON, err := json.Marshal(event.Query)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal query")
	}
	answerJSON, err := json.Marshal(event.Answer)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal answer")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO conversation_events (id, client_id, raw_text, query, answer, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID, event.ClientID, event.RawText, queryJSON, answerJSON, event.Timestamp,
	)
	return eris.Wrap(err, "postgres: insert event")
}

func (s *PostgresStore) ListEvents(ctx context.Context, clientID string, limit int) ([]model.ConversationEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, client_id, raw_text, query, answer, created_at
		 FROM conversation_events
		 WHERE client_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		clientID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list events")
	}
	defer rows.Close()

	var events []model.ConversationEvent
	for rows.Next() {
		var (
			event      model.ConversationEvent
			queryJSON  []byte
			answerJSON []byte
		)
		if err := rows.Scan(&event.ID, &event.ClientID, &event.RawText, &queryJSON, &answerJSON, &event.Timestamp); err != nil {
			return nil, eris.Wrap(err, "postgres: scan event")
		}
		if err := json.Unmarshal(queryJSON, &event.Query); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal query")
		}
		if err := json.Unmarshal(answerJSON, &event.Answer); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal answer")
		}
		events = append(events, event)
	}
	return events, eris.Wrap(rows.Err(), "postgres: iterate events")
}
