package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/graphsync/pkg/observability"
)

// DefaultRedisPrefix namespaces every key written by RedisStore.
const DefaultRedisPrefix = "graphsync"

const redisBackend = "redis"

// RedisConfig configures a RedisStore.
type RedisConfig struct {
	URL    string // redis:// or rediss:// URL
	Prefix string // key namespace, defaults to DefaultRedisPrefix
}

// RedisStore is a Client backed by Redis.
//
// Key layout:
//
//	{prefix}:seq                     INCR counter for new ids
//	{prefix}:{collection}:{id}       JSON-encoded Resource
//	{prefix}:{collection}:index      ZSET of ids scored by creation sequence
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *log.Logger
}

// NewRedisStore connects to Redis and verifies the connection with PING.
func NewRedisStore(ctx context.Context, cfg RedisConfig, logger *log.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisStoreFromClient(client, cfg.Prefix, logger), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, prefix string, logger *log.Logger) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if logger == nil {
		logger = log.Default()
	}
	return &RedisStore{client: client, prefix: prefix, logger: logger}
}

// Close closes the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) recordKey(collection, id string) string {
	return s.prefix + ":" + collection + ":" + id
}

func (s *RedisStore) indexKey(collection string) string {
	return s.prefix + ":" + collection + ":index"
}

func (s *RedisStore) seqKey() string {
	return s.prefix + ":seq"
}

func (s *RedisStore) FetchCollection(ctx context.Context, spec Spec) ([]Resource, error) {
	var out []Resource
	err := observability.ObserveStore(ctx, redisBackend, "fetch", spec.Collection, func() error {
		ids, err := s.client.ZRange(ctx, s.indexKey(spec.Collection), 0, -1).Result()
		if err != nil {
			return fmt.Errorf("read index %s: %w", spec.Collection, err)
		}
		if len(ids) == 0 {
			return nil
		}

		keys := make([]string, len(ids))
		for i, id := range ids {
			keys[i] = s.recordKey(spec.Collection, id)
		}
		vals, err := s.client.MGet(ctx, keys...).Result()
		if err != nil {
			return fmt.Errorf("read %s: %w", spec.Collection, err)
		}

		for i, v := range vals {
			raw, ok := v.(string)
			if !ok {
				// Index entry without a record: deleted between ZRANGE and MGET.
				s.logger.Debug("dangling index entry", "collection", spec.Collection, "id", ids[i])
				continue
			}
			r, err := decodeResource(raw)
			if err != nil {
				return fmt.Errorf("decode %s/%s: %w", spec.Collection, ids[i], err)
			}
			if spec.Matches(r) {
				out = append(out, r)
			}
		}
		return nil
	})
	return out, err
}

func (s *RedisStore) FetchOne(ctx context.Context, collection, id string) (Resource, error) {
	var out Resource
	err := observability.ObserveStore(ctx, redisBackend, "get", collection, func() error {
		raw, err := s.client.Get(ctx, s.recordKey(collection, id)).Result()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get %s/%s: %w", collection, id, err)
		}
		out, err = decodeResource(raw)
		return err
	})
	return out, err
}

func (s *RedisStore) Create(ctx context.Context, r Resource) (Resource, error) {
	err := observability.ObserveStore(ctx, redisBackend, "create", r.Collection, func() error {
		if r.Collection == "" {
			return fmt.Errorf("create without collection: %w", ErrInvalid)
		}
		seq, err := s.client.Incr(ctx, s.seqKey()).Result()
		if err != nil {
			return fmt.Errorf("allocate id: %w", err)
		}
		r.ID = strconv.FormatInt(seq, 10)

		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal resource: %w", err)
		}
		_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, s.recordKey(r.Collection, r.ID), data, 0)
			p.ZAdd(ctx, s.indexKey(r.Collection), redis.Z{Score: float64(seq), Member: r.ID})
			return nil
		})
		if err != nil {
			return fmt.Errorf("create %s/%s: %w", r.Collection, r.ID, err)
		}
		return nil
	})
	if err != nil {
		return Resource{}, err
	}
	return r, nil
}

func (s *RedisStore) Update(ctx context.Context, r Resource) (Resource, error) {
	err := observability.ObserveStore(ctx, redisBackend, "update", r.Collection, func() error {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal resource: %w", err)
		}
		ok, err := s.client.SetXX(ctx, s.recordKey(r.Collection, r.ID), data, redis.KeepTTL).Result()
		if err != nil {
			return fmt.Errorf("update %s/%s: %w", r.Collection, r.ID, err)
		}
		if !ok {
			return fmt.Errorf("%s/%s: %w", r.Collection, r.ID, ErrNotFound)
		}
		return nil
	})
	return r, err
}

func (s *RedisStore) Delete(ctx context.Context, r Resource) error {
	return observability.ObserveStore(ctx, redisBackend, "delete", r.Collection, func() error {
		var del *redis.IntCmd
		_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
			del = p.Del(ctx, s.recordKey(r.Collection, r.ID))
			p.ZRem(ctx, s.indexKey(r.Collection), r.ID)
			return nil
		})
		if err != nil {
			return fmt.Errorf("delete %s/%s: %w", r.Collection, r.ID, err)
		}
		if del.Val() == 0 {
			return fmt.Errorf("%s/%s: %w", r.Collection, r.ID, ErrNotFound)
		}
		return nil
	})
}

func decodeResource(raw string) (Resource, error) {
	var r Resource
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return Resource{}, err
	}
	return r, nil
}

var _ Client = (*RedisStore)(nil)
