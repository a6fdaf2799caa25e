// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists harvested documents in MongoDB. Writes are
// idempotent: re-inserting an already-present record is reported, never
// raised, so a re-run of the traversal resumes from whatever the unique
// key state left behind.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/pdiddy/inspire-harvester/pkg/types"
)

// duplicateKeyCode is the MongoDB server error code for a unique key
// conflict.
const duplicateKeyCode = 11000

// ErrWriteFailed reports a non-duplicate insertion fault. Unlike the
// benign duplicate case this aborts the whole traversal.
var ErrWriteFailed = errors.New("document write failed")

// Prometheus metrics for store writes.
var (
	documentsInsertedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "store_documents_inserted_total",
		Help: "Total documents newly inserted into the collection",
	})

	documentsDuplicateTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "store_documents_duplicate_total",
		Help: "Total documents skipped as already present",
	})
)

// Mongo is the document store. The external record id is kept under _id,
// so uniqueness is enforced by the collection's primary key.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger zerolog.Logger
}

// Connect opens the MongoDB namespace named by cfg and verifies the
// server is reachable.
func Connect(ctx context.Context, cfg types.StoreConfig) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connecting to store: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging store: %w", err)
	}
	return &Mongo{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
		logger: log.With().Str("component", "store").Logger(),
	}, nil
}

// Close releases the client connection.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// EnsureIndexes creates the secondary indexes the harvester queries rely
// on. The identifier itself needs no index: it is stored as _id.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "is_parent_document", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}
	return nil
}

// InsertDocuments batch-inserts a page of documents in one unordered
// operation, so a conflicting document never blocks the rest of the
// batch. Duplicate external ids are skipped and returned; any other write
// error is fatal for the batch and wraps ErrWriteFailed.
func (m *Mongo) InsertDocuments(ctx context.Context, docs []types.Document) (int, []string, error) {
	if len(docs) == 0 {
		return 0, nil, nil
	}

	payload := make([]any, len(docs))
	for i, doc := range docs {
		// Canonicalize the key to its string form so lookups by
		// collected id always match.
		if id := doc.ID(); id != "" {
			doc["_id"] = id
		}
		payload[i] = map[string]any(doc)
	}

	res, err := m.coll.InsertMany(ctx, payload, options.InsertMany().SetOrdered(false))

	inserted := 0
	if res != nil {
		inserted = len(res.InsertedIDs)
	}

	if err != nil {
		duplicates, fatal := classifyBulkError(err, docs)
		if fatal != nil {
			return inserted, duplicates, fatal
		}
		for _, id := range duplicates {
			m.logger.Debug().Str("id", id).Msg("document already in collection")
		}
		documentsInsertedTotal.Add(float64(inserted))
		documentsDuplicateTotal.Add(float64(len(duplicates)))
		return inserted, duplicates, nil
	}

	documentsInsertedTotal.Add(float64(inserted))
	return inserted, nil, nil
}

// classifyBulkError separates benign duplicate-key conflicts from fatal
// write faults in an unordered bulk insert error. Duplicates are resolved
// to the external id of the conflicting document via the write error's
// batch index. The first non-duplicate error makes the whole batch fatal.
func classifyBulkError(err error, docs []types.Document) (duplicates []string, fatal error) {
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) {
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	for _, we := range bwe.WriteErrors {
		if we.Code != duplicateKeyCode {
			return duplicates, fmt.Errorf("%w: code %d: %s", ErrWriteFailed, we.Code, we.Message)
		}
		id := ""
		if we.Index >= 0 && we.Index < len(docs) {
			id = docs[we.Index].ID()
		}
		duplicates = append(duplicates, id)
	}
	return duplicates, nil
}

// SetCitedBy attaches the derived cited-by identifier list to the
// document with the given external id. This is the only post-ingestion
// mutation documents receive.
func (m *Mongo) SetCitedBy(ctx context.Context, id string, citedBy []string) error {
	res, err := m.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"cited_by": citedBy}},
	)
	if err != nil {
		return fmt.Errorf("updating cited_by for %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("updating cited_by: document %s not found", id)
	}
	return nil
}

// ParentIDsWithoutCitedBy returns the external ids of corpus-level
// documents whose citation list has not been downloaded yet.
func (m *Mongo) ParentIDsWithoutCitedBy(ctx context.Context) ([]string, error) {
	filter := bson.M{
		"is_parent_document": true,
		"cited_by":           bson.M{"$exists": false},
	}
	cur, err := m.coll.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("scanning parent documents: %w", err)
	}
	defer cur.Close(ctx)

	var ids []string
	for cur.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("decoding parent id: %w", err)
		}
		ids = append(ids, row.ID)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("scanning parent documents: %w", err)
	}
	return ids, nil
}
