package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ediaudit/internal/constants"
	pkgerrors "ediaudit/pkg/errors"
	"ediaudit/pkg/metrics"
)

// RawMessage is the archived form of an inbound interchange. The original
// EDI text is kept verbatim so audits can always go back to the wire bytes.
type RawMessage struct {
	MessageID  string    `bson:"message_id" json:"message_id"`
	InvoiceID  string    `bson:"invoice_id,omitempty" json:"invoice_id,omitempty"`
	Source     string    `bson:"source" json:"source"`
	Raw        string    `bson:"raw" json:"raw"`
	ReceivedAt time.Time `bson:"received_at" json:"received_at"`
	ArchivedAt time.Time `bson:"archived_at" json:"archived_at"`
}

type Repository interface {
	Store(ctx context.Context, msg RawMessage) error
	GetByMessageID(ctx context.Context, messageID string) (*RawMessage, error)
	GetByInvoiceID(ctx context.Context, invoiceID string) (*RawMessage, error)
	ListBySource(ctx context.Context, source string, limit int) ([]RawMessage, error)
}

type MongoDBRepository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database) Repository {
	return &MongoDBRepository{
		collection: db.Collection(constants.ArchiveCollection),
	}
}

func (r *MongoDBRepository) Store(ctx context.Context, msg RawMessage) error {
	if msg.ArchivedAt.IsZero() {
		msg.ArchivedAt = time.Now().UTC()
	}

	_, err := r.collection.InsertOne(ctx, msg)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Redelivery after a partial failure. The first copy wins.
			metrics.ArchiveWritesTotal.WithLabelValues("duplicate").Inc()
			return nil
		}
		metrics.ArchiveWritesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to archive raw message: %w", err)
	}

	metrics.ArchiveWritesTotal.WithLabelValues("stored").Inc()
	return nil
}

func (r *MongoDBRepository) GetByMessageID(ctx context.Context, messageID string) (*RawMessage, error) {
	return r.findOne(ctx, bson.M{"message_id": messageID})
}

func (r *MongoDBRepository) GetByInvoiceID(ctx context.Context, invoiceID string) (*RawMessage, error) {
	return r.findOne(ctx, bson.M{"invoice_id": invoiceID})
}

func (r *MongoDBRepository) findOne(ctx context.Context, filter bson.M) (*RawMessage, error) {
	var msg RawMessage
	err := r.collection.FindOne(ctx, filter).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, pkgerrors.ErrNotFound.WithCause(err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find raw message: %w", err)
	}
	return &msg, nil
}

func (r *MongoDBRepository) ListBySource(ctx context.Context, source string, limit int) ([]RawMessage, error) {
	if limit <= 0 || limit > constants.MaxLimit {
		limit = constants.DefaultLimit
	}

	filter := bson.M{"source": source}
	opts := options.Find().
		SetSort(bson.D{{Key: "archived_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list raw messages: %w", err)
	}
	defer cursor.Close(ctx)

	var msgs []RawMessage
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("failed to decode raw messages: %w", err)
	}

	return msgs, nil
}
