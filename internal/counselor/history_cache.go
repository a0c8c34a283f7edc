package counselor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/studyvisa-ai-platform/internal/chatlog"
)

const (
	historyKeyPrefix = "studyvisa:chat:"
	historyTTL       = 24 * time.Hour
)

// RedisHistoryCache is a read-through cache of recent transcript entries in
// front of the chat log. Lists are only extended when they already exist, so a
// cached list is always a contiguous suffix of the transcript. Every Record bumps
// a generation counter; a fill is dropped when the counter moved after the chat
// log was read.
type RedisHistoryCache struct {
	redis       *redis.Client
	source      tailReader
	tracer      trace.Tracer
	ttl         time.Duration
	maxMessages int64
}

func NewRedisHistoryCache(redisClient *redis.Client, source tailReader) *RedisHistoryCache {
	if redisClient == nil {
		return nil
	}
	return &RedisHistoryCache{
		redis:       redisClient,
		source:      source,
		tracer:      otel.Tracer("studyvisa.internal.counselor.history"),
		ttl:         historyTTL,
		maxMessages: 50,
	}
}

// Window returns the latest n entries, loading from the chat log on a miss.
func (c *RedisHistoryCache) Window(ctx context.Context, studentID int64, n int) ([]chatlog.Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	if int64(n) > c.maxMessages {
		n = int(c.maxMessages)
	}

	ctx, span := c.tracer.Start(ctx, "counselor.history.window")
	defer span.End()

	key := historyKey(studentID)
	raw, err := c.redis.LRange(ctx, key, int64(-n), -1).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("counselor: history lrange: %w", err)
	}
	if len(raw) > 0 {
		return decodeEntries(raw)
	}

	gen, err := c.generation(ctx, c.redis, studentID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	entries, err := c.source.Tail(ctx, studentID, int(c.maxMessages))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("counselor: history load: %w", err)
	}
	if len(entries) > 0 {
		if err := c.fill(ctx, studentID, gen, entries); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}
	if len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}

// Record appends an entry to a cached transcript. Uncached students are left alone.
func (c *RedisHistoryCache) Record(ctx context.Context, entry chatlog.Entry) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("counselor: marshal history entry: %w", err)
	}

	ctx, span := c.tracer.Start(ctx, "counselor.history.record")
	defer span.End()

	key := historyKey(entry.StudentID)
	genKey := generationKey(entry.StudentID)
	pipe := c.redis.TxPipeline()
	pipe.RPushX(ctx, key, data)
	pipe.LTrim(ctx, key, -c.maxMessages, -1)
	pipe.Expire(ctx, key, c.ttl)
	pipe.Incr(ctx, genKey)
	pipe.Expire(ctx, genKey, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("counselor: history record: %w", err)
	}
	return nil
}

// fill caches entries unless a Record ran since gen was read. A skipped fill
// leaves the key absent and the next Window reloads from the chat log.
func (c *RedisHistoryCache) fill(ctx context.Context, studentID, gen int64, entries []chatlog.Entry) error {
	values := make([]any, 0, len(entries))
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("counselor: marshal history entry: %w", err)
		}
		values = append(values, data)
	}

	key := historyKey(studentID)
	genKey := generationKey(studentID)
	err := c.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := c.generation(ctx, tx, studentID)
		if err != nil {
			return err
		}
		if current != gen {
			return redis.TxFailedErr
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.RPush(ctx, key, values...)
			pipe.LTrim(ctx, key, -c.maxMessages, -1)
			pipe.Expire(ctx, key, c.ttl)
			return nil
		})
		return err
	}, genKey)
	switch {
	case errors.Is(err, redis.TxFailedErr):
		return nil
	case err != nil:
		return fmt.Errorf("counselor: history fill: %w", err)
	}
	return nil
}

func (c *RedisHistoryCache) generation(ctx context.Context, r redis.Cmdable, studentID int64) (int64, error) {
	gen, err := r.Get(ctx, generationKey(studentID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("counselor: history generation: %w", err)
	}
	return gen, nil
}

func decodeEntries(raw []string) ([]chatlog.Entry, error) {
	out := make([]chatlog.Entry, 0, len(raw))
	for _, item := range raw {
		var e chatlog.Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("counselor: decode history entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func historyKey(studentID int64) string {
	return historyKeyPrefix + strconv.FormatInt(studentID, 10)
}

func generationKey(studentID int64) string {
	return historyKey(studentID) + ":gen"
}
