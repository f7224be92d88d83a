package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCacheKey(t *testing.T) {
	oid, err := primitive.ObjectIDFromHex("64b7f0c2a1b2c3d4e5f60718")
	require.NoError(t, err)

	assert.Equal(t, "vcm:catalog:V1:2015:3:7:2", CacheKey("V1", 2015, "3", "7", "2"))
	assert.Equal(t, "vcm:catalog:64b7f0c2a1b2c3d4e5f60718:2015:3:7:2", CacheKey(oid, 2015, "3", "7", "2"))
	assert.Equal(t, "vcm:catalog:42:2015:3:7:2", CacheKey(int32(42), 2015, "3", "7", "2"))
}

func TestCacheKey_SeparatorInCodes(t *testing.T) {
	tests := []struct {
		name string
		a, b [3]string
	}{
		{name: "colon shifts make into model", a: [3]string{"1:2", "3", "4"}, b: [3]string{"1", "2:3", "4"}},
		{name: "colon shifts model into body style", a: [3]string{"1", "2:3", "4"}, b: [3]string{"1", "2", "3:4"}},
		{name: "escaped form as a literal code", a: [3]string{"1:2", "3", "4"}, b: [3]string{"1%3A2", "3", "4"}},
		{name: "space and plus", a: [3]string{"F 150", "3", "4"}, b: [3]string{"F+150", "3", "4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ka := CacheKey("V1", 2015, tt.a[0], tt.a[1], tt.a[2])
			kb := CacheKey("V1", 2015, tt.b[0], tt.b[1], tt.b[2])
			assert.NotEqual(t, ka, kb)
		})
	}

	assert.Equal(t, "vcm:catalog:V1:2015:1%3A2:3:4", CacheKey("V1", 2015, "1:2", "3", "4"))
	assert.NotEqual(t, CacheKey("V:1", 2015, "2", "3", "4"), CacheKey("V", 2015, "1:2", "3", "4"))
}

func TestRedisCache_Mock(t *testing.T) {
	key := CacheKey("V1", 2015, "3", "7", "2")
	res := &Resolution{Found: true, Matches: 1, MakeID: "MK1", ModelID: "MD1", BodyStyleID: "BS1"}
	data, err := bson.Marshal(res)
	require.NoError(t, err)

	t.Run("miss", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		mock.ExpectGet(key).RedisNil()

		got, ok, err := NewRedisCache(db, time.Hour).Get(context.Background(), key)

		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("hit", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		mock.ExpectGet(key).SetVal(string(data))

		got, ok, err := NewRedisCache(db, time.Hour).Get(context.Background(), key)

		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, res, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("set", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		mock.ExpectSet(key, data, time.Hour).SetVal("OK")

		err := NewRedisCache(db, time.Hour).Set(context.Background(), key, res)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("get error", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		mock.ExpectGet(key).SetErr(errors.New("connection refused"))

		_, ok, err := NewRedisCache(db, time.Hour).Get(context.Background(), key)

		assert.Error(t, err)
		assert.False(t, ok)
	})

	t.Run("corrupt entry", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		mock.ExpectGet(key).SetVal("not bson")

		_, ok, err := NewRedisCache(db, time.Hour).Get(context.Background(), key)

		assert.Error(t, err)
		assert.False(t, ok)
	})
}

func TestRedisCache_RoundTrip(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })

	cache := NewRedisCache(client, time.Minute)
	ctx := context.Background()

	makeID := primitive.NewObjectID()
	found := &Resolution{Found: true, Matches: 2, MakeID: makeID, ModelID: "MD1", BodyStyleID: int32(17)}
	missing := &Resolution{Matches: 0}

	require.NoError(t, cache.Set(ctx, "k1", found))
	require.NoError(t, cache.Set(ctx, "k2", missing))

	got, ok, err := cache.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, makeID, got.MakeID, "object ids keep their type")
	assert.Equal(t, int32(17), got.BodyStyleID)
	assert.Equal(t, 2, got.Matches)

	got, ok, err = cache.Get(ctx, "k2")
	require.NoError(t, err)
	require.True(t, ok, "unresolved descriptors are cached too")
	assert.False(t, got.Found)

	assert.Equal(t, time.Minute, s.TTL("k1"))
	s.FastForward(2 * time.Minute)

	_, ok, err = cache.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNopCache(t *testing.T) {
	var c Cache = NopCache{}
	require.NoError(t, c.Set(context.Background(), "k", &Resolution{Found: true}))
	_, ok, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
