package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	return mr, rdb
}

func TestRedisCache_GetSet(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	defer rdb.Close()

	c := NewRedisCache(rdb)
	ctx := context.Background()

	_, err := c.Get(ctx, "ledger:order:1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "ledger:order:1", []byte(`{"id":1}`), time.Minute))

	data, err := c.Get(ctx, "ledger:order:1")
	require.NoError(t, err)
	assert.Equal(t, `{"id":1}`, string(data))
	assert.Equal(t, time.Minute, mr.TTL("ledger:order:1"))

	mr.FastForward(2 * time.Minute)
	_, err = c.Get(ctx, "ledger:order:1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_Delete(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	defer rdb.Close()

	c := NewRedisCache(rdb)
	ctx := context.Background()

	require.NoError(t, mr.Set("a", "1"))
	require.NoError(t, mr.Set("b", "2"))

	require.NoError(t, c.Delete(ctx, "a", "b", "missing"))
	assert.False(t, mr.Exists("a"))
	assert.False(t, mr.Exists("b"))
	assert.NoError(t, c.Delete(ctx))
}

func TestRedisCache_DeleteByPrefix(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	defer rdb.Close()

	c := NewRedisCache(rdb)
	ctx := context.Background()

	for i := 0; i < 450; i++ {
		require.NoError(t, mr.Set(fmt.Sprintf("ledger:fee_rate:PAIR%d", i), "0.001"))
	}
	require.NoError(t, mr.Set("ledger:order:1", "{}"))

	require.NoError(t, c.DeleteByPrefix(ctx, "ledger:fee_rate:"))

	assert.Equal(t, []string{"ledger:order:1"}, mr.Keys())
}

func TestRedisCache_DeleteByPrefixScansBeforeDeleting(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCache(db)
	ctx := context.Background()

	// 全部分页扫描完成后才发出 DEL
	mock.ExpectScan(0, "ledger:fee_rate:*", scanBatchSize).
		SetVal([]string{"ledger:fee_rate:A", "ledger:fee_rate:B"}, 17)
	mock.ExpectScan(17, "ledger:fee_rate:*", scanBatchSize).
		SetVal([]string{"ledger:fee_rate:C"}, 0)
	mock.ExpectDel("ledger:fee_rate:A", "ledger:fee_rate:B", "ledger:fee_rate:C").SetVal(3)

	require.NoError(t, c.DeleteByPrefix(ctx, "ledger:fee_rate:"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_DeleteByPrefixNoMatch(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCache(db)

	mock.ExpectScan(0, "ledger:fee_rate:*", scanBatchSize).SetVal(nil, 0)

	require.NoError(t, c.DeleteByPrefix(context.Background(), "ledger:fee_rate:"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_Errors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCache(db)
	ctx := context.Background()

	mock.ExpectGet("ledger:wallet:1:USDT").SetErr(errors.New("connection refused"))
	_, err := c.Get(ctx, "ledger:wallet:1:USDT")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)

	mock.ExpectGet("ledger:wallet:1:BTC").RedisNil()
	_, err = c.Get(ctx, "ledger:wallet:1:BTC")
	assert.ErrorIs(t, err, ErrCacheMiss)

	mock.ExpectDel("ledger:order:1").SetErr(errors.New("timeout"))
	assert.Error(t, c.Delete(ctx, "ledger:order:1"))

	mock.ExpectScan(0, "ledger:fee_rate:*", scanBatchSize).SetErr(errors.New("timeout"))
	assert.Error(t, c.DeleteByPrefix(ctx, "ledger:fee_rate:"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNopCache(t *testing.T) {
	var c Cache = NopCache{}
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, c.Delete(ctx, "k"))
	assert.NoError(t, c.DeleteByPrefix(ctx, "k"))
}
