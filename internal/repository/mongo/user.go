package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/pastebin/internal/apperror"
	"github.com/sakif/pastebin/internal/model"
	"github.com/sakif/pastebin/internal/repository"
)

// compile-time check that *UserRepo implements repository.UserRepository
var _ repository.UserRepository = (*UserRepo)(nil)

// UserRepo stores user records in the users_info collection.
type UserRepo struct {
	coll *mongo.Collection
}

// newUserRepo prepares the collection, creating the unique indexes the
// registration flow relies on.
//
// UNIQUE INDEX ON EMAIL:
// The duplicate-email check in the service is find-then-insert, which two
// concurrent registrations could both pass. The unique index is what actually
// enforces one account per email — the second insert fails with a duplicate
// key error, which Create translates to apperror.ErrDuplicateEmail.
func newUserRepo(ctx context.Context, coll *mongo.Collection) (*UserRepo, error) {
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mongo: creating user indexes: %w", err)
	}
	return &UserRepo{coll: coll}, nil
}

// Create inserts a new user record. The repository assigns the internal ID
// and timestamps; the caller fills in everything else.
func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.DuplicateEmail(user.Email)
		}
		return fmt.Errorf("mongo: inserting user %q: %w", user.Username, err)
	}
	return nil
}

// findOne runs a single-document lookup and maps ErrNoDocuments to the
// caller-supplied not-found error.
func (r *UserRepo) findOne(ctx context.Context, filter bson.M, notFound error) (*model.User, error) {
	var u model.User
	err := r.coll.FindOne(ctx, filter).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound
		}
		return nil, fmt.Errorf("mongo: finding user: %w", err)
	}
	return &u, nil
}

func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"username": username}, apperror.NotFound("user", username))
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": email}, apperror.NotFound("user", email))
}

func (r *UserRepo) FindByConfirmationToken(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		// Confirmed users store "" — never match it.
		return nil, apperror.InvalidToken()
	}
	return r.findOne(ctx, bson.M{"confirmation_token": token}, apperror.InvalidToken())
}

// Activate flips is_active and clears the token in one update, keyed by the
// token itself. Matching on the token (not the user) is what makes the token
// single-use: a second confirmation with the same token matches nothing.
func (r *UserRepo) Activate(ctx context.Context, token string) error {
	if token == "" {
		return apperror.InvalidToken()
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"confirmation_token": token},
		bson.M{"$set": bson.M{
			"is_active":          true,
			"confirmation_token": "",
			"updated_at":         time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("mongo: activating user: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperror.InvalidToken()
	}
	return nil
}
