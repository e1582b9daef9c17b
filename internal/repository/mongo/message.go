package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/pastebin/internal/apperror"
	"github.com/sakif/pastebin/internal/model"
	"github.com/sakif/pastebin/internal/repository"
)

var _ repository.MessageRepository = (*MessageRepo)(nil)

// MessageRepo stores published messages in the text_user collection.
type MessageRepo struct {
	coll *mongo.Collection
}

// newMessageRepo prepares the collection with an index on the bound
// identifier — retrieval is always an exact-match lookup on it.
func newMessageRepo(ctx context.Context, coll *mongo.Collection) (*MessageRepo, error) {
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("mongo: creating message index: %w", err)
	}
	return &MessageRepo{coll: coll}, nil
}

// Create persists a message under its consumed identifier. Messages are
// immutable after this point — there is no update path.
func (r *MessageRepo) Create(ctx context.Context, msg *model.Message) error {
	msg.CreatedAt = time.Now()
	if _, err := r.coll.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("mongo: inserting message %s: %w", msg.ID, err)
	}
	return nil
}

func (r *MessageRepo) FindByID(ctx context.Context, id string) (*model.Message, error) {
	var msg model.Message
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&msg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("message", id)
		}
		return nil, fmt.Errorf("mongo: finding message %s: %w", id, err)
	}
	return &msg, nil
}

// ListAll returns every message in natural (insertion) order. Unpaginated by
// contract; the all_messages page shows everything.
func (r *MessageRepo) ListAll(ctx context.Context) ([]model.Message, error) {
	cursor, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("mongo: listing messages: %w", err)
	}
	defer cursor.Close(ctx)

	var msgs []model.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("mongo: decoding messages: %w", err)
	}
	return msgs, nil
}
