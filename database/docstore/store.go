// Package docstore is a minimal collection/id document store contract with
// MongoDB, Firestore and in-memory implementations.
package docstore

import (
	"context"
	"errors"
	"fmt"
)

// Reserved document fields managed by the store.
const (
	FieldID      = "id"
	FieldVersion = "version"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrVersionConflict = errors.New("document version mismatch")
	ErrUnavailable     = errors.New("store unavailable")
	// ErrMalformed means a stored document could not be decoded. Not transient.
	ErrMalformed = errors.New("malformed document")
)

// Document is a schema-less record. Nested documents are map[string]interface{}
// and arrays are []interface{} regardless of backend.
type Document map[string]interface{}

// Filter is a conjunction of field equality predicates.
type Filter map[string]interface{}

// Store is the document store client consumed by the repositories.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns ErrNotFound when no document has the id.
	Get(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, collection string, filter Filter) ([]Document, error)
	// Insert assigns the id and sets version to 1.
	Insert(ctx context.Context, collection string, doc Document) (string, error)
	// Update merges fields into the document and bumps its version.
	Update(ctx context.Context, collection, id string, fields Document) error
	// UpdateIfVersion merges fields only while the stored version equals expected.
	// It returns ErrVersionConflict when the version moved and ErrNotFound when
	// the document is gone.
	UpdateIfVersion(ctx context.Context, collection, id string, expected int64, fields Document) error
	Delete(ctx context.Context, collection, id string) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// VersionOf reads the version field as an int64 whatever numeric type the
// backend decoded it to.
func VersionOf(doc Document) int64 {
	switch v := doc[FieldVersion].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

// stripReserved removes fields callers may not set through Update.
func stripReserved(fields Document) Document {
	out := make(Document, len(fields))
	for k, v := range fields {
		if k == FieldID || k == FieldVersion || k == "_id" {
			continue
		}
		out[k] = v
	}
	return out
}
