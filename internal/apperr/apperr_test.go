package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClassifyWrappedAppError(t *testing.T) {
	err := fmt.Errorf("saving: %w", Validation("store.upsert", "cut number must not be empty"))
	assert.Equal(t, ClassValidation, Classify(err))
}

func TestClassifyByContent(t *testing.T) {
	cases := []struct {
		err  error
		want Class
	}{
		{errors.New("dial tcp: connection refused"), ClassNetwork},
		{errors.New("i/o timeout"), ClassNetwork},
		{errors.New("permission denied for table"), ClassPermission},
		{errors.New("quota exceeded"), ClassStorage},
		{errors.New("duplicate key value violates unique constraint"), ClassValidation},
		{errors.New("UNIQUE constraint failed: local_kv.kv_key"), ClassValidation},
		{errors.New("record x not found"), ClassNotFound},
		{errors.New("service unavailable"), ClassSystem},
		{errors.New("???"), ClassUnknown},
		{context.DeadlineExceeded, ClassNetwork},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.err), "error %q", tc.err)
	}
}

func TestRetryableClasses(t *testing.T) {
	assert.True(t, ClassNetwork.Retryable())
	assert.True(t, ClassSystem.Retryable())
	assert.True(t, ClassStorage.Retryable())
	assert.False(t, ClassValidation.Retryable())
	assert.False(t, ClassPermission.Retryable())
	assert.False(t, ClassNotFound.Retryable())
}

func TestRecorderKeepsEntries(t *testing.T) {
	r := NewRecorder(zap.NewNop())
	r.Record("ctx.a", errors.New("connection refused"))
	r.Record("ctx.b", Validation("op", "bad input"))

	entries := r.Snapshot()
	require.Len(t, entries, 2)
	assert.Equal(t, "ctx.a", entries[0].Label)
	assert.Equal(t, ClassNetwork, entries[0].Class)
	assert.Equal(t, ClassValidation, entries[1].Class)
	assert.False(t, entries[0].Time.IsZero())
}

func TestRecorderBounded(t *testing.T) {
	r := NewRecorder(zap.NewNop())
	for i := 0; i < recorderCapacity+10; i++ {
		r.Record("ctx", fmt.Errorf("err %d", i))
	}
	assert.Len(t, r.Snapshot(), recorderCapacity)
}

func TestWithFallbackRecordsAndReturnsFallback(t *testing.T) {
	r := NewRecorder(zap.NewNop())
	got := WithFallback(r, "ctx.fallback", func() (int, error) {
		return 0, errors.New("boom unavailable")
	}, 42)

	assert.Equal(t, 42, got)
	require.Len(t, r.Snapshot(), 1)

	got = WithFallback(r, "ctx.fallback", func() (int, error) { return 7, nil }, 42)
	assert.Equal(t, 7, got)
	assert.Len(t, r.Snapshot(), 1)
}
