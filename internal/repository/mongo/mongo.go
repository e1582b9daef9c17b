// Package mongo implements the repository interfaces on MongoDB.
//
// THREE SEPARATE CONNECTIONS:
// The deployment keeps users, the free identifier pool, and published
// messages in three logically separate databases, each reachable through its
// own connection URI. In the common single-server case all three URIs point
// at the same server and the driver shares the underlying connection pool,
// but nothing in this package assumes that — each store gets its own client.
//
// DRIVER NOTES:
// mongo.Connect does not actually dial; like database/sql it is lazy. We
// Ping with a timeout at startup so a bad URI fails immediately instead of
// on the first request.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const connectTimeout = 10 * time.Second

// Store bundles the three repository implementations and owns their clients.
// The server creates one Store at startup and closes it on shutdown.
type Store struct {
	Users    *UserRepo
	Slots    *SlotRepo
	Messages *MessageRepo

	clients []*mongo.Client
}

// Config carries the three connection URIs.
type Config struct {
	UsersURI    string
	PoolURI     string
	MessagesURI string
}

// connect dials one URI and verifies the connection with a ping.
func connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connecting: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo: pinging: %w", err)
	}
	return client, nil
}

// New connects to the three databases and prepares the repositories,
// including index creation.
func New(ctx context.Context, cfg Config) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	s := &Store{}

	usersClient, err := connect(ctx, cfg.UsersURI)
	if err != nil {
		return nil, fmt.Errorf("users store: %w", err)
	}
	s.clients = append(s.clients, usersClient)

	poolClient, err := connect(ctx, cfg.PoolURI)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("pool store: %w", err)
	}
	s.clients = append(s.clients, poolClient)

	msgClient, err := connect(ctx, cfg.MessagesURI)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("messages store: %w", err)
	}
	s.clients = append(s.clients, msgClient)

	s.Users, err = newUserRepo(ctx, usersClient.Database("users_info").Collection("users_info"))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("preparing users collection: %w", err)
	}
	s.Slots = newSlotRepo(poolClient.Database("free_urls").Collection("free_urls"))
	s.Messages, err = newMessageRepo(ctx, msgClient.Database("text_user").Collection("text_user"))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("preparing messages collection: %w", err)
	}

	return s, nil
}

// Close disconnects every client. Safe to call on a partially constructed
// Store.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var firstErr error
	for _, c := range s.clients {
		if err := c.Disconnect(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
