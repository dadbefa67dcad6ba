package kv

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisReader is served by both a client and a watched transaction.
type redisReader interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
	ZRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
}

// RedisClient is the subset of go-redis used by RedisStore.
type RedisClient interface {
	redisReader
	Ping(ctx context.Context) *redis.StatusCmd
	Watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error
	Close() error
}

// RedisStore keeps each value under <prefix>:<ns>:<key> and the key order of
// a namespace in the sorted set <prefix>:<ns>:idx. Members are zero padded so
// lexical order equals numeric order.
//
// Every committed update increments <prefix>:rev. Updates WATCH that key, so
// two writers sharing a server never commit on top of each other's reads.
type RedisStore struct {
	client RedisClient
	prefix string
}

var _ Store = (*RedisStore)(nil)

const (
	redisScanPage   = 256
	redisMaxRetries = 64
)

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(addr, prefix string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisStoreWithClient(client, prefix), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client RedisClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "airstrip"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) valueKey(ns Namespace, key uint64) string {
	return fmt.Sprintf("%s:%d:%s", s.prefix, uint8(ns), member(key))
}

func (s *RedisStore) indexKey(ns Namespace) string {
	return fmt.Sprintf("%s:%d:idx", s.prefix, uint8(ns))
}

func (s *RedisStore) revKey() string { return s.prefix + ":rev" }

func member(key uint64) string { return fmt.Sprintf("%020d", key) }

func (s *RedisStore) Get(ctx context.Context, ns Namespace, key uint64) ([]byte, error) {
	return s.get(ctx, s.client, ns, key)
}

func (s *RedisStore) get(ctx context.Context, r redisReader, ns Namespace, key uint64) ([]byte, error) {
	v, err := r.Get(ctx, s.valueKey(ns, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%d: %w", ns, key, err)
	}
	return v, nil
}

func (s *RedisStore) Has(ctx context.Context, ns Namespace, key uint64) (bool, error) {
	return s.has(ctx, s.client, ns, key)
}

func (s *RedisStore) has(ctx context.Context, r redisReader, ns Namespace, key uint64) (bool, error) {
	n, err := r.Exists(ctx, s.valueKey(ns, key)).Result()
	if err != nil {
		return false, fmt.Errorf("exists %s/%d: %w", ns, key, err)
	}
	return n > 0, nil
}

func (s *RedisStore) keys(ctx context.Context, r redisReader, ns Namespace) ([]uint64, error) {
	members, err := r.ZRange(ctx, s.indexKey(ns), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", ns, err)
	}
	keys := make([]uint64, 0, len(members))
	for _, m := range members {
		k, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("index %s: bad member %q: %w", ns, m, err)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// Scan reads the index once, then fetches values page by page.
func (s *RedisStore) Scan(ctx context.Context, ns Namespace, fn func(key uint64, val []byte) error) error {
	keys, err := s.keys(ctx, s.client, ns)
	if err != nil {
		return err
	}
	return s.visit(ctx, s.client, ns, keys, nil, fn)
}

func (s *RedisStore) visit(ctx context.Context, r redisReader, ns Namespace, keys []uint64, pending *writeSet, fn func(key uint64, val []byte) error) error {
	for start := 0; start < len(keys); start += redisScanPage {
		end := min(start+redisScanPage, len(keys))
		page := keys[start:end]
		names := make([]string, len(page))
		for i, k := range page {
			names[i] = s.valueKey(ns, k)
		}
		vals, err := r.MGet(ctx, names...).Result()
		if err != nil {
			return fmt.Errorf("scan %s: %w", ns, err)
		}
		for i, k := range page {
			var val []byte
			if pending != nil {
				if v, ok := pending.get(ns, k); ok {
					val = v
				}
			}
			if val == nil {
				str, ok := vals[i].(string)
				if !ok {
					// index entry without a value
					continue
				}
				val = []byte(str)
			}
			if err := fn(k, val); err != nil {
				return err
			}
		}
	}
	return nil
}

// Update buffers writes and applies them in a single MULTI/EXEC block.
// When another writer commits between fn's reads and the EXEC, fn is run
// again on fresh data. ErrConflict is returned once the retries run out.
func (s *RedisStore) Update(ctx context.Context, fn func(Txn) error) error {
	for attempt := range redisMaxRetries {
		if attempt > 0 {
			if err := backoff(ctx, attempt); err != nil {
				return err
			}
		}
		var commitErr error
		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			tx := &redisTxn{store: s, r: rtx, pending: newWriteSet()}
			if err := fn(tx); err != nil {
				return err
			}
			if tx.pending.empty() {
				return nil
			}
			_, commitErr = rtx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				for ns, bucket := range tx.pending.writes {
					for k, v := range bucket {
						p.Set(ctx, s.valueKey(ns, k), v, 0)
						p.ZAdd(ctx, s.indexKey(ns), redis.Z{Score: 0, Member: member(k)})
					}
				}
				p.Incr(ctx, s.revKey())
				return nil
			})
			return commitErr
		}, s.revKey())
		switch {
		case errors.Is(err, redis.TxFailedErr):
			continue
		case err != nil && err == commitErr:
			return fmt.Errorf("commit transaction: %w", err)
		default:
			return err
		}
	}
	return fmt.Errorf("%w: %d attempts", ErrConflict, redisMaxRetries)
}

// backoff sleeps a random duration below attempt milliseconds.
func backoff(ctx context.Context, attempt int) error {
	t := time.NewTimer(time.Duration(rand.Int64N(int64(attempt) * int64(time.Millisecond))))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type redisTxn struct {
	store   *RedisStore
	r       redisReader
	pending *writeSet
}

func (t *redisTxn) Get(ctx context.Context, ns Namespace, key uint64) ([]byte, error) {
	if v, ok := t.pending.get(ns, key); ok {
		return v, nil
	}
	return t.store.get(ctx, t.r, ns, key)
}

func (t *redisTxn) Has(ctx context.Context, ns Namespace, key uint64) (bool, error) {
	if _, ok := t.pending.get(ns, key); ok {
		return true, nil
	}
	return t.store.has(ctx, t.r, ns, key)
}

func (t *redisTxn) Scan(ctx context.Context, ns Namespace, fn func(key uint64, val []byte) error) error {
	keys, err := t.store.keys(ctx, t.r, ns)
	if err != nil {
		return err
	}
	return t.store.visit(ctx, t.r, ns, t.pending.mergeKeys(ns, keys), t.pending, fn)
}

func (t *redisTxn) Put(ctx context.Context, ns Namespace, key uint64, val []byte) error {
	t.pending.put(ns, key, val)
	return nil
}
