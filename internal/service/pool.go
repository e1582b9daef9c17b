// Package service contains the business logic layer: identifier pool,
// registration/login rules, and message publication. Services accept
// primitives and return domain errors; they know nothing about HTTP.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/sakif/pastebin/internal/metrics"
	"github.com/sakif/pastebin/internal/model"
	"github.com/sakif/pastebin/internal/repository"
)

// slotAlphabet and slotSourceLen describe the random string a slot is
// derived from: 50 characters of lowercase letters and digits. The derived
// identifier is its sha256 digest in hex — always 64 characters, regardless
// of the source.
const (
	slotAlphabet  = "abcdefghijklmnopqrstuvwxyz0123456789"
	slotSourceLen = 50
)

// PoolService maintains the free identifier pool.
//
// Slots are generated ahead of demand and consumed exactly once at publish
// time. Depth is driven by two triggers: each authenticated landing-page view
// adds one slot (dispatched in the background by the handler), and Publish
// tops the pool up when it finds it empty.
type PoolService struct {
	slots     repository.SlotRepository
	collector metrics.Collector
	logger    *slog.Logger
}

// NewPoolService creates a PoolService.
func NewPoolService(slots repository.SlotRepository, collector metrics.Collector, logger *slog.Logger) *PoolService {
	return &PoolService{
		slots:     slots,
		collector: collector,
		logger:    logger,
	}
}

// NewSlotID generates one identifier: a 50-character random string over
// [a-z0-9], digested with sha256 and hex-encoded.
//
// No uniqueness check is made against existing slots. The digest space is
// 2^256; a collision over random 50-character inputs is not a practical
// concern, and the consume path removes exactly one document either way.
func NewSlotID() (string, error) {
	source, err := gonanoid.Generate(slotAlphabet, slotSourceLen)
	if err != nil {
		return "", fmt.Errorf("pool: generating slot source: %w", err)
	}

	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:]), nil
}

// Replenish generates one identifier and adds it to the pool.
//
// Unlike the historical behavior of this flow, a storage failure is NOT
// swallowed: it is returned, logged, and counted. Callers on best-effort
// paths (the landing page) absorb the error after logging; the pool simply
// doesn't grow that round.
func (s *PoolService) Replenish(ctx context.Context) error {
	id, err := NewSlotID()
	if err != nil {
		s.collector.RecordReplenishFailure()
		return err
	}

	if err := s.slots.Insert(ctx, &model.Slot{FreeHash: id}); err != nil {
		s.collector.RecordReplenishFailure()
		s.logger.Error("pool replenish failed", slog.String("error", err.Error()))
		return fmt.Errorf("pool: replenishing: %w", err)
	}

	s.collector.RecordSlotCreated()
	s.logger.Debug("pool replenished", slog.String("slot", id))
	return nil
}

// ConsumeOne removes an arbitrary slot from the pool and returns its
// identifier. Returns apperror.ErrPoolExhausted (wrapped) when the pool is
// empty — deterministically, never a panic.
//
// Atomicity lives in the repository: consumption is a single
// find-and-delete, so concurrent callers never share a slot.
func (s *PoolService) ConsumeOne(ctx context.Context) (string, error) {
	id, err := s.slots.ConsumeOne(ctx)
	if err != nil {
		return "", err
	}

	s.collector.RecordSlotConsumed()
	return id, nil
}
