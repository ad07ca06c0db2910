// Package store persists the conversation log: one event per answered
// request. The pipeline itself has no dependency on whether events are
// stored; it only hands them to a sink.
package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/kisanmitra/advisor/internal/model"
)

// Store defines the persistence interface for the conversation log.
type Store interface {
	SaveEvent(ctx context.Context, event model.ConversationEvent) error
	ListEvents(ctx context.Context, clientID string, limit int) ([]model.ConversationEvent, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Sink adapts a Store to the orchestrator's event callback. Persistence
// failures are logged, never surfaced: losing a log row must not fail the
// request that produced it.
func Sink(s Store) func(ctx context.Context, event model.ConversationEvent) {
	return func(ctx context.Context, event model.ConversationEvent) {
		if err := s.SaveEvent(ctx, event); err != nil {
			zap.L().Warn("conversation event not persisted",
				zap.String("event_id", event.ID),
				zap.Error(err),
			)
		}
	}
}
