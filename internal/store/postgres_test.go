package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kisanmitra/advisor/internal/model"
)

func TestPostgres_SaveEvent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO conversation_events").
		WithArgs("evt-1", "farmer-1", "wheat price in Delhi",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s := NewPostgresWithPool(mock)
	event := testEvent("farmer-1", time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC))
	event.ID = "evt-1"

	require.NoError(t, s.SaveEvent(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveEventError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO conversation_events").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(assert.AnError)

	s := NewPostgresWithPool(mock)
	err = s.SaveEvent(context.Background(), testEvent("farmer-1", time.Now().UTC()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: insert event")
}

func TestPostgres_ListEvents(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	event := testEvent("farmer-1", time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC))
	queryJSON, err := json.Marshal(event.Query)
	require.NoError(t, err)
	answerJSON, err := json.Marshal(event.Answer)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id, client_id, raw_text, query, answer, created_at").
		WithArgs("farmer-1", 10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "client_id", "raw_text", "query", "answer", "created_at"}).
			AddRow(event.ID, event.ClientID, event.RawText, queryJSON, answerJSON, event.Timestamp))

	s := NewPostgresWithPool(mock)
	events, err := s.ListEvents(context.Background(), "farmer-1", 10)
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, event.ID, events[0].ID)
	assert.Equal(t, model.IntentMarketPrice, events[0].Query.Intent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Migrate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS conversation_events").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	s := NewPostgresWithPool(mock)
	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
