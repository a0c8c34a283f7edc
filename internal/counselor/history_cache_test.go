package counselor

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/studyvisa-ai-platform/internal/chatlog"
)

type countingTail struct {
	log   *chatlog.InMemoryRepository
	calls int
	err   error
}

func (c *countingTail) Tail(ctx context.Context, studentID int64, n int) ([]chatlog.Entry, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.log.Tail(ctx, studentID, n)
}

func newHistoryCacheTest(t *testing.T) (*RedisHistoryCache, *countingTail, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	source := &countingTail{log: chatlog.NewInMemoryRepository()}
	return NewRedisHistoryCache(client, source), source, mr
}

func TestRedisHistoryCache_ReadThroughThenHit(t *testing.T) {
	ctx := context.Background()
	cache, source, mr := newHistoryCacheTest(t)

	for _, text := range []string{"hi", "menu", "canada"} {
		_, err := source.log.Append(ctx, 3, chatlog.SenderUser, text)
		require.NoError(t, err)
	}

	first, err := cache.Window(ctx, 3, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "menu", first[0].Message)
	assert.Equal(t, "canada", first[1].Message)
	assert.Equal(t, 1, source.calls)
	assert.True(t, mr.Exists(historyKey(3)))
	assert.Equal(t, historyTTL, mr.TTL(historyKey(3)))

	second, err := cache.Window(ctx, 3, 3)
	require.NoError(t, err)
	require.Len(t, second, 3)
	assert.Equal(t, "hi", second[0].Message)
	assert.Equal(t, 1, source.calls, "second read should be served from redis")
}

func TestRedisHistoryCache_RecordExtendsCachedList(t *testing.T) {
	ctx := context.Background()
	cache, source, _ := newHistoryCacheTest(t)

	entry, err := source.log.Append(ctx, 4, chatlog.SenderUser, "uk")
	require.NoError(t, err)
	_, err = cache.Window(ctx, 4, 5)
	require.NoError(t, err)

	reply, err := source.log.Append(ctx, 4, chatlog.SenderBot, "Great choice!")
	require.NoError(t, err)
	require.NoError(t, cache.Record(ctx, *reply))

	got, err := cache.Window(ctx, 4, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, entry.ID, got[0].ID)
	assert.Equal(t, chatlog.SenderBot, got[1].Sender)
	assert.Equal(t, 1, source.calls)
}

func TestRedisHistoryCache_RecordSkipsUncachedStudent(t *testing.T) {
	ctx := context.Background()
	cache, _, mr := newHistoryCacheTest(t)

	require.NoError(t, cache.Record(ctx, chatlog.Entry{ID: 1, StudentID: 9, Sender: chatlog.SenderUser, Message: "hello"}))
	assert.False(t, mr.Exists(historyKey(9)))
}

func TestRedisHistoryCache_TrimsToMax(t *testing.T) {
	ctx := context.Background()
	cache, source, mr := newHistoryCacheTest(t)
	cache.maxMessages = 3

	_, err := source.log.Append(ctx, 5, chatlog.SenderUser, "seed")
	require.NoError(t, err)
	_, err = cache.Window(ctx, 5, 3)
	require.NoError(t, err)

	for i := int64(0); i < 5; i++ {
		require.NoError(t, cache.Record(ctx, chatlog.Entry{ID: 10 + i, StudentID: 5, Sender: chatlog.SenderBot, Message: "reply"}))
	}
	items, err := mr.List(historyKey(5))
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

// racingTail appends and records a reply while the chat log is being read,
// the way a concurrent turn for the same student would.
type racingTail struct {
	log   *chatlog.InMemoryRepository
	cache *RedisHistoryCache
	calls int
}

func (r *racingTail) Tail(ctx context.Context, studentID int64, n int) ([]chatlog.Entry, error) {
	r.calls++
	entries, err := r.log.Tail(ctx, studentID, n)
	if err != nil || r.calls > 1 {
		return entries, err
	}
	reply, err := r.log.Append(ctx, studentID, chatlog.SenderBot, "late reply")
	if err != nil {
		return nil, err
	}
	return entries, r.cache.Record(ctx, *reply)
}

func TestRedisHistoryCache_FillSkippedWhenRecordRaces(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	source := &racingTail{log: chatlog.NewInMemoryRepository()}
	cache := NewRedisHistoryCache(client, source)
	source.cache = cache

	_, err := source.log.Append(ctx, 6, chatlog.SenderUser, "hi")
	require.NoError(t, err)

	first, err := cache.Window(ctx, 6, 5)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.False(t, mr.Exists(historyKey(6)), "stale snapshot must not be cached")

	second, err := cache.Window(ctx, 6, 5)
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, "late reply", second[1].Message)
	assert.Equal(t, 2, source.calls)
	assert.True(t, mr.Exists(historyKey(6)))
}

func TestRedisHistoryCache_SourceError(t *testing.T) {
	cache, source, _ := newHistoryCacheTest(t)
	source.err = errors.New("db down")

	_, err := cache.Window(context.Background(), 1, 5)
	require.Error(t, err)
}

func TestNewRedisHistoryCacheNilClient(t *testing.T) {
	assert.Nil(t, NewRedisHistoryCache(nil, nil))
}
