package docquery

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/docquery/index"
	"github.com/hupe1980/docquery/model"
	"github.com/hupe1980/docquery/value"
)

func sequentialKeys() Option {
	n := 0
	return WithKeyGenerator(func() string {
		n++
		return fmt.Sprintf("gen%d", n)
	})
}

func user(key, email string, age int64) value.Document {
	return value.Document{
		model.KeyAttribute: value.String(key),
		"email":            value.String(email),
		"age":              value.Int(age),
	}
}

func TestCollectionInsert(t *testing.T) {
	ctx := context.Background()

	t.Run("GeneratedKey", func(t *testing.T) {
		c := NewCollection("users", sequentialKeys())
		key, err := c.Insert(ctx, value.Document{"a": value.Int(1)})
		require.NoError(t, err)
		assert.Equal(t, model.Key("gen1"), key)

		doc, err := c.Document(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, value.String("gen1"), doc[model.KeyAttribute])
	})

	t.Run("UUIDKeyByDefault", func(t *testing.T) {
		c := NewCollection("users")
		key, err := c.Insert(ctx, value.Document{})
		require.NoError(t, err)
		assert.Len(t, string(key), 36)
	})

	t.Run("InvalidKey", func(t *testing.T) {
		c := NewCollection("users")
		_, err := c.Insert(ctx, value.Document{model.KeyAttribute: value.Int(1)})
		assert.ErrorIs(t, err, ErrBadParameter)

		_, err = c.Insert(ctx, value.Document{model.KeyAttribute: value.String("")})
		assert.ErrorIs(t, err, ErrBadParameter)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("DuplicateKey", func(t *testing.T) {
		c := NewCollection("users")
		_, err := c.Insert(ctx, user("a", "a@x", 1))
		require.NoError(t, err)

		_, err = c.Insert(ctx, user("a", "b@x", 2))
		assert.ErrorIs(t, err, ErrUniqueConstraint)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("StoresCopy", func(t *testing.T) {
		c := NewCollection("users")
		doc := user("a", "a@x", 1)
		_, err := c.Insert(ctx, doc)
		require.NoError(t, err)

		doc["age"] = value.Int(99)
		got, err := c.Document(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, value.Int(1), got["age"])

		got["age"] = value.Int(42)
		again, err := c.Document(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, value.Int(1), again["age"])
	})

	t.Run("Cancelled", func(t *testing.T) {
		c := NewCollection("users")
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := c.Insert(cctx, user("a", "a@x", 1))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestCollectionUniqueRollback(t *testing.T) {
	ctx := context.Background()
	c := NewCollection("users")
	_, err := c.EnsureHashIndex(ctx, true, "email")
	require.NoError(t, err)
	_, err = c.EnsureSkiplistIndex(ctx, false, "age")
	require.NoError(t, err)

	_, err = c.Insert(ctx, user("a", "same@x", 1))
	require.NoError(t, err)

	_, err = c.Insert(ctx, user("b", "same@x", 2))
	require.ErrorIs(t, err, ErrUniqueConstraint)

	var uv *ErrUniqueViolation
	require.ErrorAs(t, err, &uv)
	assert.Equal(t, []string{"email"}, uv.Fields)
	assert.Equal(t, []value.Value{value.String("same@x")}, uv.Values)

	// The failed insert left no trace in the primary index.
	_, err = c.Insert(ctx, user("b", "other@x", 2))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	res, err := c.All(ctx, 0, NoLimit)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
}

func TestCollectionInsertMany(t *testing.T) {
	ctx := context.Background()
	c := NewCollection("users")

	keys, err := c.InsertMany(ctx, []value.Document{
		user("a", "a@x", 1),
		{model.KeyAttribute: value.Bool(true)},
		user("c", "c@x", 3),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadParameter)
	assert.Equal(t, []model.Key{"a", "", "c"}, keys)
	assert.Equal(t, 2, c.Len())
}

func TestCollectionRemove(t *testing.T) {
	ctx := context.Background()
	c := NewCollection("users")
	_, err := c.EnsureHashIndex(ctx, false, "email")
	require.NoError(t, err)

	_, err = c.Insert(ctx, user("a", "a@x", 1))
	require.NoError(t, err)
	_, err = c.Insert(ctx, user("b", "b@x", 2))
	require.NoError(t, err)

	require.NoError(t, c.Remove(ctx, "a"))
	assert.Equal(t, 1, c.Len())

	_, err = c.Document(ctx, "a")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	assert.ErrorIs(t, c.Remove(ctx, "a"), ErrDocumentNotFound)

	res, err := c.ByExampleHash(ctx, 1, value.Document{"email": value.String("a@x")}, 0, NoLimit)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)

	// The key can be reused.
	_, err = c.Insert(ctx, user("a", "a@x", 3))
	require.NoError(t, err)
}

func TestCollectionRemoveForgetsPaths(t *testing.T) {
	ctx := context.Background()
	c := NewCollection("users")
	_, err := c.Insert(ctx, value.Document{model.KeyAttribute: value.String("a"), "rare": value.Int(1)})
	require.NoError(t, err)
	require.NoError(t, c.Remove(ctx, "a"))

	res, err := c.ByExample(ctx, value.Document{"rare": value.Int(1)}, 0, NoLimit)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)
	assert.NotNil(t, res.Documents)
}

func TestEnsureIndexes(t *testing.T) {
	ctx := context.Background()

	newUsers := func(t *testing.T) *Collection {
		c := NewCollection("users")
		for i := range 20 {
			_, err := c.Insert(ctx, user(fmt.Sprintf("u%d", i), fmt.Sprintf("u%d@x", i), int64(i%5)))
			require.NoError(t, err)
		}
		return c
	}

	t.Run("BuildsOverExistingDocuments", func(t *testing.T) {
		c := newUsers(t)
		descs, err := c.EnsureIndexes(ctx,
			index.Descriptor{Kind: index.KindHash, Fields: []string{"email"}, Unique: true},
			index.Descriptor{Kind: index.KindSkiplist, Fields: []string{"age"}},
			index.Descriptor{Kind: index.KindBitarray, Fields: []string{"age"}},
		)
		require.NoError(t, err)
		require.Len(t, descs, 3)
		assert.Equal(t, []index.ID{1, 2, 3}, []index.ID{descs[0].ID, descs[1].ID, descs[2].ID})

		res, err := c.ByExampleSkiplist(ctx, descs[1].ID, value.Document{"age": value.Int(2)}, 0, NoLimit)
		require.NoError(t, err)
		assert.Equal(t, 4, res.Total)
		assert.Len(t, c.Indexes(), 4)
	})

	t.Run("ExistingIndexIsReturned", func(t *testing.T) {
		c := newUsers(t)
		first, err := c.EnsureHashIndex(ctx, false, "age")
		require.NoError(t, err)
		second, err := c.EnsureHashIndex(ctx, false, "age")
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Len(t, c.Indexes(), 2)

		_, err = c.EnsureHashIndex(ctx, true, "age")
		assert.ErrorIs(t, err, ErrIndexExists)
	})

	t.Run("DuplicatesInOneCall", func(t *testing.T) {
		c := newUsers(t)
		def := index.Descriptor{Kind: index.KindSkiplist, Fields: []string{"age"}}
		descs, err := c.EnsureIndexes(ctx, def, def)
		require.NoError(t, err)
		assert.Equal(t, descs[0], descs[1])
		assert.Len(t, c.Indexes(), 2)
	})

	t.Run("AllOrNothing", func(t *testing.T) {
		c := newUsers(t)
		_, err := c.EnsureIndexes(ctx,
			index.Descriptor{Kind: index.KindSkiplist, Fields: []string{"email"}},
			index.Descriptor{Kind: index.KindHash, Fields: []string{"age"}, Unique: true},
		)
		assert.ErrorIs(t, err, ErrUniqueConstraint)
		assert.Len(t, c.Indexes(), 1)

		desc, err := c.EnsureSkiplistIndex(ctx, false, "email")
		require.NoError(t, err)
		assert.Equal(t, index.ID(1), desc.ID)
	})

	t.Run("Primary", func(t *testing.T) {
		c := newUsers(t)
		desc, err := c.EnsureIndex(ctx, index.Descriptor{Kind: index.KindPrimary, Fields: []string{model.KeyAttribute}})
		require.NoError(t, err)
		assert.Equal(t, PrimaryIndexID, desc.ID)

		_, err = c.EnsureIndex(ctx, index.Descriptor{Kind: index.KindPrimary, Fields: []string{"email"}})
		assert.ErrorIs(t, err, ErrBadParameter)
	})

	t.Run("Invalid", func(t *testing.T) {
		c := newUsers(t)
		_, err := c.EnsureHashIndex(ctx, false)
		assert.ErrorIs(t, err, ErrBadParameter)

		_, err = c.EnsureGeoIndex(ctx, false, "a", "b", "c")
		assert.ErrorIs(t, err, ErrBadParameter)

		_, err = c.EnsureIndex(ctx, index.Descriptor{Kind: index.KindBitarray, Fields: []string{"age"}, Unique: true})
		assert.ErrorIs(t, err, ErrBadParameter)
	})

	t.Run("Cancelled", func(t *testing.T) {
		c := newUsers(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := c.EnsureSkiplistIndex(cctx, false, "age")
		assert.ErrorIs(t, err, context.Canceled)
		assert.Len(t, c.Indexes(), 1)
	})
}

func TestDropIndex(t *testing.T) {
	ctx := context.Background()
	c := NewCollection("users")
	desc, err := c.EnsureSkiplistIndex(ctx, false, "age")
	require.NoError(t, err)

	assert.ErrorIs(t, c.DropIndex(ctx, PrimaryIndexID), ErrBadParameter)
	assert.ErrorIs(t, c.DropIndex(ctx, 42), ErrNoIndex)

	require.NoError(t, c.DropIndex(ctx, desc.ID))
	_, err = c.Index(desc.ID)
	assert.ErrorIs(t, err, ErrNoIndex)

	// Ids are not reused.
	next, err := c.EnsureSkiplistIndex(ctx, false, "age")
	require.NoError(t, err)
	assert.Equal(t, desc.ID+1, next.ID)
}

func TestCollectionMetrics(t *testing.T) {
	ctx := context.Background()
	metrics := &BasicMetricsCollector{}
	c := NewCollection("users", WithMetricsCollector(metrics))

	_, err := c.Insert(ctx, user("a", "a@x", 1))
	require.NoError(t, err)
	_, err = c.Insert(ctx, user("a", "a@x", 1))
	require.Error(t, err)
	_, err = c.InsertMany(ctx, []value.Document{user("b", "b@x", 2), user("c", "c@x", 3)})
	require.NoError(t, err)
	require.NoError(t, c.Remove(ctx, "c"))

	_, err = c.All(ctx, 0, NoLimit)
	require.NoError(t, err)
	_, err = c.Execute(ctx, Query{})
	require.NoError(t, err)

	stats := metrics.GetStats()
	assert.Equal(t, int64(2), stats.InsertCount)
	assert.Equal(t, int64(1), stats.InsertErrors)
	assert.Equal(t, int64(1), stats.BatchInsertCount)
	assert.Equal(t, int64(2), stats.BatchInsertItems)
	assert.Equal(t, int64(1), stats.RemoveCount)
	assert.Equal(t, int64(2), stats.QueryCount)
	assert.Equal(t, int64(4), stats.QueryResults)
	assert.Equal(t, int64(1), stats.PlanCount)
	assert.Equal(t, int64(1), stats.FullScans)
}

func TestCollectionConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewCollection("users")
	_, err := c.EnsureSkiplistIndex(ctx, false, "age")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := range 4 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := range 50 {
				_, err := c.Insert(ctx, user(fmt.Sprintf("w%d-%d", w, i), "", int64(i)))
				assert.NoError(t, err)
			}
		}()
		go func() {
			defer wg.Done()
			for range 50 {
				_, err := c.Execute(ctx, Query{Limit: 5})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 200, c.Len())
}
