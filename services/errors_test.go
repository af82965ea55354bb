package services

import (
	"errors"
	"fmt"
	"testing"

	"tourbook/database/docstore"

	"github.com/stretchr/testify/assert"
)

func TestStoreError(t *testing.T) {
	cases := []struct {
		name      string
		in        error
		want      error
		retryable bool
	}{
		{"missing", fmt.Errorf("%w: tours/t1", docstore.ErrNotFound), ErrNotFound, false},
		{"version race", fmt.Errorf("%w: tours/t1", docstore.ErrVersionConflict), ErrConflict, true},
		{"timeout", fmt.Errorf("%w: get timed out", docstore.ErrUnavailable), ErrStoreUnavailable, true},
		{"undecodable", fmt.Errorf("error getting tour: %w", fmt.Errorf("%w: t1", docstore.ErrMalformed)), ErrCorruptData, false},
		{"unknown", errors.New("connection reset"), ErrStoreUnavailable, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := StoreError(tc.in)
			assert.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, tc.in)
			assert.Equal(t, tc.retryable, IsRetryable(err))
		})
	}
	assert.NoError(t, StoreError(nil))
}
