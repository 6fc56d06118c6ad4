package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/8adimka/Go_Weather_Assistant/internal/team"
)

// Conversation is one finished run as stored in MongoDB.
type Conversation struct {
	ID         primitive.ObjectID `bson:"_id" json:"-"`
	RunID      string             `bson:"run_id" json:"id"`
	Query      string             `bson:"query" json:"query"`
	Mode       Mode               `bson:"mode" json:"mode"`
	Messages   []team.Message     `bson:"messages" json:"messages"`
	StopReason team.Reason        `bson:"stop_reason,omitempty" json:"stop_reason,omitempty"`
	Reply      string             `bson:"reply" json:"reply"`
	Error      string             `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	DurationMs int64              `bson:"duration_ms" json:"duration_ms"`
}

// NewConversation records res. runErr, if any, is stored as text.
func NewConversation(query string, mode Mode, res *team.Result, runErr error, started time.Time) *Conversation {
	c := &Conversation{
		ID:         primitive.NewObjectID(),
		Query:      query,
		Mode:       mode,
		CreatedAt:  started.UTC(),
		DurationMs: time.Since(started).Milliseconds(),
	}
	if res != nil {
		c.RunID = res.ID
		c.Messages = res.Messages
		c.StopReason = res.StopReason
		c.Reply = res.Reply
	}
	if runErr != nil {
		c.Error = runErr.Error()
	}
	return c
}
