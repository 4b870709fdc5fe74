package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/society-engine/society"
	"github.com/warp/society-engine/society/store"
)

func TestMemory_GetSet(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()

	_, err := kv.Get(ctx, "houses")
	assert.ErrorIs(t, err, society.ErrKeyNotFound)

	value := []byte(`[]`)
	require.NoError(t, kv.Set(ctx, "houses", value))
	value[0] = 'x'

	got, err := kv.Get(ctx, "houses")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got), "stored value is a copy")
}

func TestMemory_SetBatchIsAtomic(t *testing.T) {
	// GIVEN: One key in the batch is rejected
	// WHEN: Writing the batch
	// THEN: No key from the batch is stored

	ctx := context.Background()
	kv := store.NewMemory()
	kv.FailWrites("payments", errors.New("boom"))

	err := kv.SetBatch(ctx, map[string][]byte{
		"houses":   []byte(`[1]`),
		"payments": []byte(`[2]`),
	})
	require.Error(t, err)
	assert.Empty(t, kv.Keys())

	kv.FailWrites("payments", nil)
	require.NoError(t, kv.SetBatch(ctx, map[string][]byte{
		"houses":   []byte(`[1]`),
		"payments": []byte(`[2]`),
	}))
	assert.Equal(t, []string{"houses", "payments"}, kv.Keys())
}
