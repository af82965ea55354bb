package docstore

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps documents in process memory. It is used for tests and
// STORE_BACKEND=memory. Every read and write copies documents so callers never
// share maps with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
	latency     time.Duration
}

type MemoryOption func(*MemoryStore)

// WithLatency delays every call, widening race windows the way a remote store would.
func WithLatency(d time.Duration) MemoryOption {
	return func(s *MemoryStore) { s.latency = d }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{collections: make(map[string]map[string]Document)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return unavailable("memory", err)
	}
	if s.latency <= 0 {
		return nil
	}
	t := time.NewTimer(s.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return unavailable("memory", ctx.Err())
	case <-t.C:
		return nil
	}
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	return copyDocument(doc), nil
}

func (s *MemoryStore) Query(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Document
	for _, doc := range s.collections[collection] {
		if matches(doc, filter) {
			out = append(out, copyDocument(doc))
		}
	}
	return out, nil
}

func (s *MemoryStore) Insert(ctx context.Context, collection string, doc Document) (string, error) {
	if err := s.wait(ctx); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]Document)
		s.collections[collection] = coll
	}
	stored := copyDocument(stripReserved(doc))
	id := uuid.New().String()
	stored[FieldID] = id
	stored[FieldVersion] = int64(1)
	coll[id] = stored
	return id, nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields Document) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	merge(doc, fields)
	return nil
}

func (s *MemoryStore) UpdateIfVersion(ctx context.Context, collection, id string, expected int64, fields Document) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	if VersionOf(doc) != expected {
		return fmt.Errorf("%w: %s/%s expected %d, found %d", ErrVersionConflict, collection, id, expected, VersionOf(doc))
	}
	merge(doc, fields)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection][id]; !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	delete(s.collections[collection], id)
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) Close(context.Context) error {
	return nil
}

// Count returns the number of documents in a collection.
func (s *MemoryStore) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

func merge(doc Document, fields Document) {
	for k, v := range stripReserved(fields) {
		doc[k] = copyValue(v)
	}
	doc[FieldVersion] = VersionOf(doc) + 1
}

func matches(doc Document, filter Filter) bool {
	for k, want := range filter {
		got, ok := doc[k]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b interface{}) bool {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func copyDocument(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case Document:
		return map[string]interface{}(copyDocument(t))
	case map[string]interface{}:
		return map[string]interface{}(copyDocument(t))
	case []interface{}:
		out := make([]interface{}, len(t))
		for i := range t {
			out[i] = copyValue(t[i])
		}
		return out
	}
	return v
}
