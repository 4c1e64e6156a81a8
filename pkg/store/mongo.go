package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	SnapshotsCollection    = "Snapshots"
	OperationLogCollection = "Operation_log"
	CountersCollection     = "Counters"
)

type snapshotDoc struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type logDoc struct {
	Stream    string    `bson:"stream"`
	Seq       int64     `bson:"seq"`
	Data      []byte    `bson:"data"`
	CreatedAt time.Time `bson:"created_at"`
}

// MongoStore persists snapshots as documents and logs as per-stream
// sequences allocated from a counters collection.
type MongoStore struct {
	snapshots *mongo.Collection
	log       *mongo.Collection
	counters  *mongo.Collection
	timeout   time.Duration
}

func NewMongoStore(db *mongo.Database, timeout time.Duration) *MongoStore {
	return &MongoStore{
		snapshots: db.Collection(SnapshotsCollection),
		log:       db.Collection(OperationLogCollection),
		counters:  db.Collection(CountersCollection),
		timeout:   timeout,
	}
}

// EnsureIndexes creates the unique (stream, seq) index the log relies on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.log.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "stream", Value: 1}, {Key: "seq", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("stream_seq_unique"),
	})
	if err != nil {
		return fmt.Errorf("failed to create operation log index: %w", err)
	}
	return nil
}

func (s *MongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	deadline, ok := ctx.Deadline()
	if ok && time.Until(deadline) < s.timeout {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *MongoStore) Persist(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	doc := snapshotDoc{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	_, err := s.snapshots.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}
	return nil
}

func (s *MongoStore) Load(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var doc snapshotDoc
	err := s.snapshots.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	return doc.Value, nil
}

func (s *MongoStore) Remove(ctx context.Context, key string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.snapshots.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

func (s *MongoStore) nextSeq(ctx context.Context, stream string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": stream},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate sequence for %s: %w", stream, err)
	}
	return counter.Seq, nil
}

func (s *MongoStore) Append(ctx context.Context, stream string, data []byte) (string, error) {
	if stream == "" {
		return "", ErrEmptyKey
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	seq, err := s.nextSeq(ctx, stream)
	if err != nil {
		return "", err
	}
	doc := logDoc{Stream: stream, Seq: seq, Data: data, CreatedAt: time.Now().UTC()}
	if _, err := s.log.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to append to %s: %w", stream, err)
	}
	return strconv.FormatInt(seq, 10), nil
}

func (s *MongoStore) List(ctx context.Context, stream string) ([]Entry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cursor, err := s.log.Find(ctx, bson.M{"stream": stream}, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", stream, err)
	}
	defer cursor.Close(ctx)

	var docs []logDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", stream, err)
	}

	entries := make([]Entry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, Entry{ID: strconv.FormatInt(d.Seq, 10), Data: d.Data})
	}
	return entries, nil
}

func (s *MongoStore) Delete(ctx context.Context, stream string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	seqs := make([]int64, 0, len(ids))
	for _, id := range ids {
		seq, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidID, id)
		}
		seqs = append(seqs, seq)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.log.DeleteMany(ctx, bson.M{"stream": stream, "seq": bson.M{"$in": seqs}})
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", stream, err)
	}
	return nil
}

// Truncate keeps the counter so ids are never reused within a stream.
func (s *MongoStore) Truncate(ctx context.Context, stream string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.log.DeleteMany(ctx, bson.M{"stream": stream}); err != nil {
		return fmt.Errorf("failed to truncate %s: %w", stream, err)
	}
	return nil
}

func (s *MongoStore) Len(ctx context.Context, stream string) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	n, err := s.log.CountDocuments(ctx, bson.M{"stream": stream})
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", stream, err)
	}
	return int(n), nil
}
