package tests

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attest-cli/storage"
)

func RunTests(t *testing.T, s storage.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s storage.Store){
		testHappyPath,
		testReplaceByContentHash,
		testListOrdering,
		testValidation,
	} {
		tf(t, s)
		teardown()
	}
}

func hashOf(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func testHappyPath(t *testing.T, s storage.Store) {
	t.Run("testHappyPath", func(t *testing.T) {
		ctx := context.Background()

		record := &storage.Record{
			ContentHash:    hashOf("hello"),
			AiProbability:  85,
			ContentType:    "text",
			DetectionModel: "m1",
			MetadataUri:    "ipfs://meta",
			Creator:        "creator",
			Signature:      "sig",
		}

		_, err := s.Get(ctx, record.ContentHash)
		assert.Equal(t, storage.ErrNotFound, err)
		assert.Equal(t, storage.ErrNotFound, s.Delete(ctx, record.ContentHash))

		require.NoError(t, s.Save(ctx, record))
		assert.NotEmpty(t, record.ID)
		assert.False(t, record.CreatedAt.IsZero())

		actual, err := s.Get(ctx, record.ContentHash)
		require.NoError(t, err)
		assertEquivalentRecords(t, record, actual)

		all, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assertEquivalentRecords(t, record, all[0])

		require.NoError(t, s.Delete(ctx, record.ContentHash))
		_, err = s.Get(ctx, record.ContentHash)
		assert.Equal(t, storage.ErrNotFound, err)
	})
}

func testReplaceByContentHash(t *testing.T, s storage.Store) {
	t.Run("testReplaceByContentHash", func(t *testing.T) {
		ctx := context.Background()

		first := &storage.Record{ContentHash: hashOf("reused"), AiProbability: 10, Signature: "first"}
		require.NoError(t, s.Save(ctx, first))

		second := &storage.Record{ContentHash: hashOf("reused"), AiProbability: 90, Signature: "second"}
		require.NoError(t, s.Save(ctx, second))

		actual, err := s.Get(ctx, hashOf("reused"))
		require.NoError(t, err)
		assertEquivalentRecords(t, second, actual)

		all, err := s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func testListOrdering(t *testing.T, s storage.Store) {
	t.Run("testListOrdering", func(t *testing.T) {
		ctx := context.Background()
		start := time.Now().Add(-time.Hour)

		for i, content := range []string{"oldest", "middle", "newest"} {
			require.NoError(t, s.Save(ctx, &storage.Record{
				ContentHash: hashOf(content),
				CreatedAt:   start.Add(time.Duration(i) * time.Minute),
			}))
		}

		all, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, hashOf("newest"), all[0].ContentHash)
		assert.Equal(t, hashOf("middle"), all[1].ContentHash)
		assert.Equal(t, hashOf("oldest"), all[2].ContentHash)
	})
}

func testValidation(t *testing.T, s storage.Store) {
	t.Run("testValidation", func(t *testing.T) {
		ctx := context.Background()

		for _, invalid := range []*storage.Record{
			{ContentHash: ""},
			{ContentHash: "abc"},
			{ContentHash: hashOf("x")[:62] + "zz"},
			{ContentHash: hashOf("x"), AiProbability: 100.5},
		} {
			assert.ErrorIs(t, s.Save(ctx, invalid), storage.ErrInvalidRecord)
		}

		all, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *storage.Record) {
	assert.Equal(t, obj1.ID, obj2.ID)
	assert.Equal(t, obj1.ContentHash, obj2.ContentHash)
	assert.Equal(t, obj1.AiProbability, obj2.AiProbability)
	assert.Equal(t, obj1.ContentType, obj2.ContentType)
	assert.Equal(t, obj1.DetectionModel, obj2.DetectionModel)
	assert.Equal(t, obj1.MetadataUri, obj2.MetadataUri)
	assert.Equal(t, obj1.Creator, obj2.Creator)
	assert.Equal(t, obj1.Signature, obj2.Signature)
	assert.True(t, obj1.CreatedAt.Equal(obj2.CreatedAt), "%v != %v", obj1.CreatedAt, obj2.CreatedAt)
}
