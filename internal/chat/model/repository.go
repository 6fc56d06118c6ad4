package model

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const conversationsCollection = "conversations"

// ErrConversationNotFound is returned when no conversation has the given id.
var ErrConversationNotFound = errors.New("conversation not found")

// Repository persists finished conversations.
type Repository struct {
	coll *mongo.Collection
}

func New(db *mongo.Database) *Repository {
	return &Repository{coll: db.Collection(conversationsCollection)}
}

// EnsureIndexes creates the run_id lookup index and the created_at sort index.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "run_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create conversation indexes: %w", err)
	}
	return nil
}

func (r *Repository) CreateConversation(ctx context.Context, c *Conversation) error {
	if _, err := r.coll.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("failed to insert conversation %s: %w", c.RunID, err)
	}
	return nil
}

// DescribeConversation looks a conversation up by its run id.
func (r *Repository) DescribeConversation(ctx context.Context, runID string) (*Conversation, error) {
	var c Conversation
	err := r.coll.FindOne(ctx, bson.M{"run_id": runID}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation %s: %w", runID, err)
	}
	return &c, nil
}

// ListConversations returns the most recent conversations first.
func (r *Repository) ListConversations(ctx context.Context, limit int64) ([]*Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	out := []*Conversation{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode conversations: %w", err)
	}
	return out, nil
}
