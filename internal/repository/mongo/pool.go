package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sakif/pastebin/internal/apperror"
	"github.com/sakif/pastebin/internal/model"
	"github.com/sakif/pastebin/internal/repository"
)

var _ repository.SlotRepository = (*SlotRepo)(nil)

// SlotRepo stores the free identifier pool in the free_urls collection.
type SlotRepo struct {
	coll *mongo.Collection
}

func newSlotRepo(coll *mongo.Collection) *SlotRepo {
	return &SlotRepo{coll: coll}
}

// Insert adds one freshly generated slot to the pool.
//
// No uniqueness constraint: slot identifiers are sha256 digests of random
// input, and the generation side accepts the astronomically small collision
// odds. A duplicate would simply be two pool entries consumed independently.
func (r *SlotRepo) Insert(ctx context.Context, slot *model.Slot) error {
	slot.CreatedAt = time.Now()
	if _, err := r.coll.InsertOne(ctx, slot); err != nil {
		return fmt.Errorf("mongo: inserting slot: %w", err)
	}
	return nil
}

// ConsumeOne removes an arbitrary slot and returns its identifier.
//
// FindOneAndDelete is a single server-side operation, so two concurrent
// publishers can never be handed the same slot — the second delete simply
// matches a different document (or none). A separate find followed by a
// delete would leave a window where both see the same "first" slot.
func (r *SlotRepo) ConsumeOne(ctx context.Context) (string, error) {
	var slot model.Slot
	err := r.coll.FindOneAndDelete(ctx, bson.M{}).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", apperror.PoolExhausted()
		}
		return "", fmt.Errorf("mongo: consuming slot: %w", err)
	}
	return slot.FreeHash, nil
}
