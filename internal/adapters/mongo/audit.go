package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tickethub/tickethub/internal/domain"
	"github.com/tickethub/tickethub/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// AuditLogger appends scan and redemption events to Mongo. It sits outside
// the transactional core; a failed write is logged, never surfaced.
type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("audit_logs"),
		logger: logger,
	}
}

type AuditLog struct {
	ID        uuid.UUID `bson:"_id"`
	Action    string    `bson:"action"`
	UserID    uuid.UUID `bson:"user_id"`
	Timestamp time.Time `bson:"timestamp"`
	Data      bson.M    `bson:"data"`
}

func (a *AuditLogger) LogEvent(ctx context.Context, action string, userID uuid.UUID, data map[string]interface{}) {
	log := AuditLog{
		ID:        uuid.New(),
		Action:    action,
		UserID:    userID,
		Timestamp: time.Now(),
		Data:      bson.M(data),
	}
	if _, err := a.coll.InsertOne(ctx, log); err != nil {
		a.logger.WithError(err).Error("failed to insert audit log")
	}
}

func (a *AuditLogger) LogValidation(ctx context.Context, result domain.ValidationResult) {
	a.LogEvent(ctx, "ticket.scanned", uuid.Nil, map[string]interface{}{
		"code":    result.Code,
		"event":   result.EventName,
		"status":  string(result.Status),
		"granted": result.Valid,
	})
}

func (a *AuditLogger) LogRedemption(ctx context.Context, userID uuid.UUID, tokenCode string, newBalance string) {
	a.LogEvent(ctx, "token.redeemed", userID, map[string]interface{}{
		"token_code":  tokenCode,
		"new_balance": newBalance,
	})
}
