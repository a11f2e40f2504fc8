package history

import (
	"context"
	"time"

	"github.com/fleetpulse/fleetpulse/internal/alerts"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RetentionPeriod is how long audit entries are kept before the TTL
// index expires them. Independent of the alert rows, which stay.
const RetentionPeriod = 90 * 24 * time.Hour

const collectionName = "alert_history"

// Store is the append-only audit trail, backed by a MongoDB collection.
// It implements alerts.HistoryLog.
type Store struct {
	collection *mongo.Collection
}

func NewStore(db *mongo.Database) *Store {
	return &Store{collection: db.Collection(collectionName)}
}

// EnsureIndexes creates the retrieval index (alert_id, timestamp desc)
// and the TTL expiry index. Safe to call on every startup.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "alert_id", Value: 1}, {Key: "timestamp", Value: -1}},
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "timestamp", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(RetentionPeriod / time.Second)),
		},
	})

	return err
}

func (s *Store) Append(ctx context.Context, entry alerts.HistoryEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	_, err := s.collection.InsertOne(ctx, entry)

	return err
}

// ByAlert returns an alert's entries, newest first. limit <= 0 means no
// limit.
func (s *Store) ByAlert(ctx context.Context, alertID uint, limit int64) ([]alerts.HistoryEntry, error) {
	return s.find(ctx, bson.M{"alert_id": alertID}, limit)
}

// ByUser returns entries recorded by one user, newest first.
func (s *Store) ByUser(ctx context.Context, userID uint, limit int64) ([]alerts.HistoryEntry, error) {
	return s.find(ctx, bson.M{"user_id": userID}, limit)
}

// InRange returns entries with timestamps in [from, to], newest first.
func (s *Store) InRange(ctx context.Context, from, to time.Time, limit int64) ([]alerts.HistoryEntry, error) {
	return s.find(ctx, bson.M{"timestamp": bson.M{"$gte": from, "$lte": to}}, limit)
}

func (s *Store) find(ctx context.Context, filter bson.M, limit int64) ([]alerts.HistoryEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})

	if limit > 0 {
		opts = opts.SetLimit(limit)
	}

	cursor, err := s.collection.Find(ctx, filter, opts)

	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []alerts.HistoryEntry

	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}

	return entries, nil
}
