package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store on a MongoDB database. Documents are addressed by
// their "id" field; the Mongo "_id" is left to the server and never returned.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore constructs a new MongoStore over an already connected client.
func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	return &MongoStore{client: client, db: client.Database(database)}
}

func (s *MongoStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{FieldID: id}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
		}
		return nil, unavailable("mongo find "+collection, err)
	}
	return fromBSON(raw), nil
}

func (s *MongoStore) Query(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	cursor, err := s.db.Collection(collection).Find(ctx, bson.M(filter))
	if err != nil {
		return nil, unavailable("mongo query "+collection, err)
	}
	defer cursor.Close(ctx)

	var out []Document
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, collection, err)
		}
		out = append(out, fromBSON(raw))
	}
	if err := cursor.Err(); err != nil {
		return nil, unavailable("mongo cursor "+collection, err)
	}
	return out, nil
}

func (s *MongoStore) Insert(ctx context.Context, collection string, doc Document) (string, error) {
	stored := bson.M(stripReserved(doc))
	id := uuid.New().String()
	stored[FieldID] = id
	stored[FieldVersion] = int64(1)

	if _, err := s.db.Collection(collection).InsertOne(ctx, stored); err != nil {
		return "", unavailable("mongo insert "+collection, err)
	}
	return id, nil
}

func (s *MongoStore) Update(ctx context.Context, collection, id string, fields Document) error {
	update := bson.M{
		"$set": bson.M(stripReserved(fields)),
		"$inc": bson.M{FieldVersion: 1},
	}
	res, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{FieldID: id}, update)
	if err != nil {
		return unavailable("mongo update "+collection, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	return nil
}

func (s *MongoStore) UpdateIfVersion(ctx context.Context, collection, id string, expected int64, fields Document) error {
	coll := s.db.Collection(collection)
	filter := bson.M{FieldID: id, FieldVersion: expected}
	update := bson.M{
		"$set": bson.M(stripReserved(fields)),
		"$inc": bson.M{FieldVersion: 1},
	}
	res, err := coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return unavailable("mongo conditional update "+collection, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	// Nothing matched: tell a vanished document apart from a moved version.
	n, err := coll.CountDocuments(ctx, bson.M{FieldID: id}, options.Count().SetLimit(1))
	if err != nil {
		return unavailable("mongo count "+collection, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	return fmt.Errorf("%w: %s/%s expected %d", ErrVersionConflict, collection, id, expected)
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{FieldID: id})
	if err != nil {
		return unavailable("mongo delete "+collection, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return unavailable("mongo ping", err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Client exposes the underlying client for index management and health checks.
func (s *MongoStore) Client() *mongo.Client {
	return s.client
}

// Database exposes the underlying database for index management.
func (s *MongoStore) Database() *mongo.Database {
	return s.db
}

func fromBSON(raw bson.M) Document {
	delete(raw, "_id")
	return normalizeMap(map[string]interface{}(raw))
}

func normalizeMap(m map[string]interface{}) Document {
	out := make(Document, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

// normalizeValue converts driver container types into plain maps and slices.
func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case primitive.D:
		m := make(map[string]interface{}, len(t))
		for _, e := range t {
			m[e.Key] = normalizeValue(e.Value)
		}
		return m
	case primitive.M:
		return map[string]interface{}(normalizeMap(t))
	case map[string]interface{}:
		return map[string]interface{}(normalizeMap(t))
	case primitive.A:
		out := make([]interface{}, len(t))
		for i := range t {
			out[i] = normalizeValue(t[i])
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i := range t {
			out[i] = normalizeValue(t[i])
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	}
	return v
}
