package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/kisanmitra/advisor/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS conversation_events (
	id         TEXT PRIMARY KEY,
	client_id  TEXT NOT NULL,
	raw_text   TEXT NOT NULL,
	query      TEXT NOT NULL,
	answer     TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_client_id ON conversation_events(client_id);
CREATE INDEX IF NOT EXISTS idx_events_created_at ON conversation_events(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveEvent(ctx context.Context, event model.ConversationEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	queryJSON, err := json.Marshal(event.Query)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal query")
	}
	answerJSON, err := json.Marshal(event.Answer)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal answer")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversation_events (id, client_id, raw_text, query, answer, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		event.ID, event.ClientID, event.RawText, string(queryJSON), string(answerJSON), event.Timestamp,
	)
	return eris.Wrap(err, "sqlite: insert event")
}

func (s *SQLiteStore) ListEvents(ctx context.Context, clientID string, limit int) ([]model.ConversationEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, client_id, raw_text, query, answer, created_at
		 FROM conversation_events
		 WHERE client_id = ?
		 ORDER BY created_at DESC
		 LIMIT ?`,
		clientID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list events")
	}
	defer rows.Close()

	var events []model.ConversationEvent
	for rows.Next() {
		var (
			event      model.ConversationEvent
			queryJSON  string
			answerJSON string
		)
		if err := rows.Scan(&event.ID, &event.ClientID, &event.RawText, &queryJSON, &answerJSON, &event.Timestamp); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan event")
		}
		if err := json.Unmarshal([]byte(queryJSON), &event.Query); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal query")
		}
		if err := json.Unmarshal([]byte(answerJSON), &event.Answer); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal answer")
		}
		events = append(events, event)
	}
	return events, eris.Wrap(rows.Err(), "sqlite: iterate events")
}
