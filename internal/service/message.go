// Package service — message publication and retrieval.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/pastebin/internal/apperror"
	"github.com/sakif/pastebin/internal/metrics"
	"github.com/sakif/pastebin/internal/model"
	"github.com/sakif/pastebin/internal/repository"
)

// MaxTextLength caps a snippet at ~100KB.
const MaxTextLength = 100000

// MessageService binds consumed identifiers to text at publish time and
// serves retrieval.
type MessageService struct {
	messages  repository.MessageRepository
	pool      *PoolService
	collector metrics.Collector
	logger    *slog.Logger
}

// NewMessageService creates a MessageService.
func NewMessageService(
	messages repository.MessageRepository,
	pool *PoolService,
	collector metrics.Collector,
	logger *slog.Logger,
) *MessageService {
	return &MessageService{
		messages:  messages,
		pool:      pool,
		collector: collector,
		logger:    logger,
	}
}

// Publish consumes one identifier from the pool, binds it to the text, and
// returns it.
//
// EXHAUSTION HANDLING:
// An empty pool is not surfaced as a null id in a success response. Publish
// replenishes once and retries; only if the pool is empty even after that
// does it return ErrPoolExhausted (handlers answer 503). Under concurrency
// this means N publishers racing over one slot see one success and N-1
// retried-or-explicit-failure outcomes — never a shared identifier.
//
// CONSISTENCY NOTE:
// Consumption and persistence are two separate writes with no compensating
// transaction. If the insert fails after the slot was consumed, that
// identifier is lost forever; the pool keeps growing past it. Matches the
// storage contract, and a lost slot costs nothing but one pool entry.
func (s *MessageService) Publish(ctx context.Context, username, text string) (*model.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperror.ValidationFailed("text", "message text is required")
	}
	if len(text) > MaxTextLength {
		return nil, apperror.ValidationFailed("text",
			fmt.Sprintf("message text must be %d characters or less", MaxTextLength))
	}

	id, err := s.pool.ConsumeOne(ctx)
	if errors.Is(err, apperror.ErrPoolExhausted) {
		// Demand-driven top-up: grow the pool by one and try again.
		if rerr := s.pool.Replenish(ctx); rerr != nil {
			s.collector.RecordPoolExhausted()
			return nil, apperror.PoolExhausted()
		}
		id, err = s.pool.ConsumeOne(ctx)
	}
	if err != nil {
		if errors.Is(err, apperror.ErrPoolExhausted) {
			s.collector.RecordPoolExhausted()
		}
		return nil, err
	}

	msg := &model.Message{
		ID:       id,
		Username: username,
		Text:     text,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		// The consumed slot is now gone for good. Log enough to account for
		// it; the caller just sees the failure.
		s.logger.Error("message persist failed after slot consumption",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("publishing message: %w", err)
	}

	s.collector.RecordMessagePublished()
	s.logger.Info("message published",
		slog.String("id", msg.ID),
		slog.String("username", msg.Username),
	)

	return msg, nil
}

// Get retrieves a message by its identifier. Returns apperror.ErrNotFound
// (wrapped) if no message is bound to it.
func (s *MessageService) Get(ctx context.Context, id string) (*model.Message, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "message id is required")
	}

	return s.messages.FindByID(ctx, id)
}

// ListAll returns every published message. Unpaginated, natural store order;
// the contract leaves ordering unspecified.
func (s *MessageService) ListAll(ctx context.Context) ([]model.Message, error) {
	msgs, err := s.messages.ListAll(ctx)
	if err != nil {
		s.logger.Error("failed to list messages", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	return msgs, nil
}
