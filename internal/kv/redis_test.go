package kv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRedisStore runs against an in-process miniredis unless
// AIRSTRIP_TEST_REDIS_ADDR names a real server.
func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("AIRSTRIP_TEST_REDIS_ADDR")
	if addr == "" {
		addr = miniredis.RunT(t).Addr()
	}
	prefix := fmt.Sprintf("airstrip-test-%d", time.Now().UnixNano())
	s, err := NewRedisStore(addr, prefix)
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRedisKeysSortNumerically(t *testing.T) {
	assert.Less(t, member(9), member(10))
	assert.Less(t, member(99), member(1000))
	s := NewRedisStoreWithClient(nil, "")
	assert.Equal(t, "airstrip:10:00000000000000000003", s.valueKey(NSAirstrips, 3))
	assert.Equal(t, "airstrip:11:idx", s.indexKey(NSFlights))
}

func TestRedisRoundTrip(t *testing.T) {
	s := newRedisStore(t)
	ctx := context.Background()

	err := s.Update(ctx, func(tx Txn) error {
		for _, k := range []uint64{10, 2, 33} {
			if err := tx.Put(ctx, NSPilots, k, []byte(fmt.Sprint(k))); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	v, err := s.Get(ctx, NSPilots, 33)
	require.NoError(t, err)
	assert.Equal(t, "33", string(v))

	_, err = s.Get(ctx, NSPilots, 4)
	assert.ErrorIs(t, err, ErrNotFound)

	var keys []uint64
	require.NoError(t, s.Scan(ctx, NSPilots, func(k uint64, _ []byte) error {
		keys = append(keys, k)
		return nil
	}))
	assert.Equal(t, []uint64{2, 10, 33}, keys)
}

func TestRedisUpdateRetriesAfterConcurrentCommit(t *testing.T) {
	srv := miniredis.RunT(t)
	a, err := NewRedisStore(srv.Addr(), "retry")
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	b, err := NewRedisStore(srv.Addr(), "retry")
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	ctx := context.Background()

	calls := 0
	err = a.Update(ctx, func(tx Txn) error {
		calls++
		v, err := tx.Get(ctx, NSCounter, 0)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if calls == 1 {
			// another writer commits after our read
			require.NoError(t, b.Update(ctx, func(tx Txn) error {
				return tx.Put(ctx, NSCounter, 0, []byte("b"))
			}))
		}
		return tx.Put(ctx, NSCounter, 0, append(v, 'a'))
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	v, err := a.Get(ctx, NSCounter, 0)
	require.NoError(t, err)
	assert.Equal(t, "ba", string(v))
}
