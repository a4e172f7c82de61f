package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tickethub/tickethub/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ChatLog archives assistant conversations per user.
type ChatLog struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewChatLog(db *mongo.Database, logger observability.Logger) *ChatLog {
	return &ChatLog{
		coll:   db.Collection("chat_messages"),
		logger: logger,
	}
}

type ChatMessageDoc struct {
	ID        uuid.UUID `bson:"_id"`
	UserID    uuid.UUID `bson:"user_id"`
	Message   string    `bson:"message"`
	Reply     string    `bson:"reply"`
	Language  string    `bson:"language"`
	Timestamp time.Time `bson:"timestamp"`
}

func (c *ChatLog) Append(ctx context.Context, userID uuid.UUID, message, reply, language string) (ChatMessageDoc, error) {
	doc := ChatMessageDoc{
		ID:        uuid.New(),
		UserID:    userID,
		Message:   message,
		Reply:     reply,
		Language:  language,
		Timestamp: time.Now(),
	}
	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		c.logger.WithError(err).Error("failed to insert chat message")
		return ChatMessageDoc{}, err
	}
	return doc, nil
}

// History returns the user's most recent messages, newest first.
func (c *ChatLog) History(ctx context.Context, userID uuid.UUID, limit int64) ([]ChatMessageDoc, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(limit)
	cursor, err := c.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []ChatMessageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
