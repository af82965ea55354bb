package docstore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore implements Store on Cloud Firestore. The document id doubles
// as the "id" field so queries and reads return the same shape as MongoStore.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) Get(ctx context.Context, collection, id string) (Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
		}
		return nil, unavailable("firestore get "+collection, err)
	}
	return fromSnapshot(snap), nil
}

func (s *FirestoreStore) Query(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	q := s.client.Collection(collection).Query
	for field, value := range filter {
		q = q.Where(field, "==", value)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []Document
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, unavailable("firestore query "+collection, err)
		}
		out = append(out, fromSnapshot(snap))
	}
	return out, nil
}

func (s *FirestoreStore) Insert(ctx context.Context, collection string, doc Document) (string, error) {
	stored := map[string]interface{}(stripReserved(doc))
	id := uuid.New().String()
	stored[FieldID] = id
	stored[FieldVersion] = int64(1)

	if _, err := s.client.Collection(collection).Doc(id).Create(ctx, stored); err != nil {
		return "", unavailable("firestore create "+collection, err)
	}
	return id, nil
}

func (s *FirestoreStore) Update(ctx context.Context, collection, id string, fields Document) error {
	updates := toUpdates(fields)
	updates = append(updates, firestore.Update{Path: FieldVersion, Value: firestore.Increment(1)})

	if _, err := s.client.Collection(collection).Doc(id).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
		}
		return unavailable("firestore update "+collection, err)
	}
	return nil
}

// UpdateIfVersion reads and writes inside a single-attempt transaction so the
// version check and the write commit together.
func (s *FirestoreStore) UpdateIfVersion(ctx context.Context, collection, id string, expected int64, fields Document) error {
	ref := s.client.Collection(collection).Doc(id)
	errMismatch := fmt.Errorf("%w: %s/%s expected %d", ErrVersionConflict, collection, id, expected)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		if VersionOf(fromSnapshot(snap)) != expected {
			return errMismatch
		}
		updates := toUpdates(fields)
		updates = append(updates, firestore.Update{Path: FieldVersion, Value: expected + 1})
		return tx.Update(ref, updates)
	}, firestore.MaxAttempts(1))

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrVersionConflict):
		return err
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	case status.Code(err) == codes.Aborted:
		// Another transaction touched the document first.
		return errMismatch
	}
	return unavailable("firestore transaction "+collection, err)
}

func (s *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.client.Collection(collection).Doc(id).Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
		}
		return unavailable("firestore delete "+collection, err)
	}
	return nil
}

// Ping lists at most one collection, which round-trips to the backend.
func (s *FirestoreStore) Ping(ctx context.Context) error {
	iter := s.client.Collections(ctx)
	if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return unavailable("firestore ping", err)
	}
	return nil
}

func (s *FirestoreStore) Close(context.Context) error {
	return s.client.Close()
}

func toUpdates(fields Document) []firestore.Update {
	clean := stripReserved(fields)
	updates := make([]firestore.Update, 0, len(clean)+1)
	for k, v := range clean {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{k}, Value: v})
	}
	return updates
}

func fromSnapshot(snap *firestore.DocumentSnapshot) Document {
	doc := normalizeMap(snap.Data())
	doc[FieldID] = snap.Ref.ID
	return doc
}
