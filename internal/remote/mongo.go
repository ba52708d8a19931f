// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/jeranaias/dischat/internal/model"
)

// connectTimeout bounds the initial connection check.
const connectTimeout = 10 * time.Second

// mongoDocument is the stored shape of a conversation.
type mongoDocument struct {
	ID        string          `bson:"_id"`
	Title     string          `bson:"title"`
	Messages  []model.Message `bson:"messages"`
	CreatedAt string          `bson:"createdAt"`
	UpdatedAt string          `bson:"updatedAt"`
}

func toDocument(conv model.Conversation) mongoDocument {
	return mongoDocument{
		ID:        DocumentID(conv.ID),
		Title:     conv.Title,
		Messages:  conv.Messages,
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
	}
}

func (d mongoDocument) conversation() (model.Conversation, error) {
	id, err := ParseDocumentID(d.ID)
	if err != nil {
		return model.Conversation{}, err
	}
	return model.Conversation{
		ID:        id,
		Title:     d.Title,
		Messages:  d.Messages,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

// changeEvent is the subset of a change stream event dischat reads.
type changeEvent struct {
	OperationType string         `bson:"operationType"`
	FullDocument  *mongoDocument `bson:"fullDocument"`
	DocumentKey   struct {
		ID string `bson:"_id"`
	} `bson:"documentKey"`
}

// kindForOperation maps change stream operation types to change kinds.
func kindForOperation(op string) (ChangeKind, bool) {
	switch op {
	case "insert":
		return Added, true
	case "update", "replace":
		return Modified, true
	case "delete":
		return Removed, true
	default:
		return 0, false
	}
}

// collectionName returns the per-user collection name.
func collectionName(userID string) string {
	return "users_" + sanitizeUserID(userID) + "_chats"
}

// =============================================================================
// MONGO REMOTE
// =============================================================================

// MongoRemote stores conversations in a MongoDB collection per user.
type MongoRemote struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// OpenMongo connects to uri and selects the user's collection in database.
func OpenMongo(ctx context.Context, uri, database, userID string) (*MongoRemote, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	coll := client.Database(database).Collection(collectionName(userID))
	log.Debug().Str("collection", coll.Name()).Msg("connected to mongo sync backend")
	return &MongoRemote{client: client, coll: coll}, nil
}

// LoadAll implements Remote.
func (m *MongoRemote) LoadAll(ctx context.Context) ([]model.Conversation, error) {
	cursor, err := m.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("mongo find: %w", err)
	}
	var docs []mongoDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo decode: %w", err)
	}

	out := make([]model.Conversation, 0, len(docs))
	for _, d := range docs {
		conv, err := d.conversation()
		if err != nil {
			log.Warn().Err(err).Msg("skipping remote conversation")
			continue
		}
		out = append(out, conv)
	}
	return out, nil
}

// Upsert implements Remote.
func (m *MongoRemote) Upsert(ctx context.Context, conv model.Conversation) error {
	doc := toDocument(prepare(conv))
	_, err := m.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: doc.ID}}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo upsert %s: %w", doc.ID, err)
	}
	return nil
}

// Delete implements Remote.
func (m *MongoRemote) Delete(ctx context.Context, id int) error {
	_, err := m.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: DocumentID(id)}})
	if err != nil {
		return fmt.Errorf("mongo delete %d: %w", id, err)
	}
	return nil
}

// Watch implements Remote using a change stream. Events already buffered
// on the stream are delivered together as one batch.
func (m *MongoRemote) Watch(ctx context.Context) (<-chan []Change, error) {
	stream, err := m.coll.Watch(ctx, mongo.Pipeline{}, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return nil, fmt.Errorf("mongo watch: %w", err)
	}

	out := make(chan []Change)
	go func() {
		defer close(out)
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			batch := appendEvent(nil, stream)
			for stream.RemainingBatchLength() > 0 && stream.TryNext(ctx) {
				batch = appendEvent(batch, stream)
			}
			if len(batch) == 0 {
				continue
			}
			select {
			case out <- batch:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Msg("mongo change stream stopped")
		}
	}()
	return out, nil
}

// appendEvent decodes the stream's current event onto batch.
func appendEvent(batch []Change, stream *mongo.ChangeStream) []Change {
	var ev changeEvent
	if err := stream.Decode(&ev); err != nil {
		log.Warn().Err(err).Msg("undecodable change event")
		return batch
	}
	change, ok := ev.change()
	if !ok {
		return batch
	}
	return append(batch, change)
}

// change converts a decoded event into a Change.
func (ev changeEvent) change() (Change, bool) {
	kind, ok := kindForOperation(ev.OperationType)
	if !ok {
		return Change{}, false
	}
	if kind == Removed {
		id, err := ParseDocumentID(ev.DocumentKey.ID)
		if err != nil {
			log.Warn().Err(err).Msg("skipping remote removal")
			return Change{}, false
		}
		return Change{Kind: Removed, Conversation: model.Conversation{ID: id}}, true
	}
	if ev.FullDocument == nil {
		// Document was deleted before the update lookup ran
		return Change{}, false
	}
	conv, err := ev.FullDocument.conversation()
	if err != nil {
		log.Warn().Err(err).Msg("skipping remote change")
		return Change{}, false
	}
	return Change{Kind: kind, Conversation: conv}, true
}

// Close implements Remote.
func (m *MongoRemote) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
