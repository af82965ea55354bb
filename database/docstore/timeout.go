package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// timeoutStore bounds every call with a deadline and classifies an expired
// deadline as ErrUnavailable.
type timeoutStore struct {
	next    Store
	timeout time.Duration
}

// WithTimeout wraps s so that no call blocks longer than d.
func WithTimeout(s Store, d time.Duration) Store {
	if d <= 0 {
		return s
	}
	return &timeoutStore{next: s, timeout: d}
}

func (t *timeoutStore) classify(op string, err error) error {
	if err == nil || errors.Is(err, ErrUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s timed out after %s: %v", ErrUnavailable, op, t.timeout, err)
	}
	return err
}

func (t *timeoutStore) Get(ctx context.Context, collection, id string) (Document, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	doc, err := t.next.Get(ctx, collection, id)
	return doc, t.classify("get", err)
}

func (t *timeoutStore) Query(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	docs, err := t.next.Query(ctx, collection, filter)
	return docs, t.classify("query", err)
}

func (t *timeoutStore) Insert(ctx context.Context, collection string, doc Document) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	id, err := t.next.Insert(ctx, collection, doc)
	return id, t.classify("insert", err)
}

func (t *timeoutStore) Update(ctx context.Context, collection, id string, fields Document) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.classify("update", t.next.Update(ctx, collection, id, fields))
}

func (t *timeoutStore) UpdateIfVersion(ctx context.Context, collection, id string, expected int64, fields Document) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.classify("conditional update", t.next.UpdateIfVersion(ctx, collection, id, expected, fields))
}

func (t *timeoutStore) Delete(ctx context.Context, collection, id string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.classify("delete", t.next.Delete(ctx, collection, id))
}

func (t *timeoutStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.classify("ping", t.next.Ping(ctx))
}

func (t *timeoutStore) Close(ctx context.Context) error {
	return t.next.Close(ctx)
}
