package migrations

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ediaudit/internal/constants"
)

// EnsureArchiveCollection creates the indexes the raw message archive
// queries rely on. Safe to call on every startup.
func EnsureArchiveCollection(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection(constants.ArchiveCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "message_id", Value: 1}},
			Options: options.Index().SetName("idx_raw_messages_message_id").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "invoice_id", Value: 1}},
			Options: options.Index().SetName("idx_raw_messages_invoice_id"),
		},
		{
			Keys:    bson.D{{Key: "source", Value: 1}, {Key: "archived_at", Value: -1}},
			Options: options.Index().SetName("idx_raw_messages_source_archived_at"),
		},
		{
			Keys:    bson.D{{Key: "archived_at", Value: -1}},
			Options: options.Index().SetName("idx_raw_messages_archived_at"),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		if !strings.Contains(err.Error(), "already exists") {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	return nil
}
