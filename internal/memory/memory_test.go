package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/voicenav/internal/logger"
	"github.com/avvvet/voicenav/internal/models"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func modelResult() models.IntentResult {
	return models.IntentResult{
		Intent:     models.IntentNavigation,
		Entities:   models.Entities{"website": "youtube", "url": "https://www.youtube.com"},
		Message:    "Opening YouTube",
		Confidence: 0.9,
		Model:      "gemini-test",
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("Open YouTube"), Key("  open   youtube "))
	assert.NotEqual(t, Key("open youtube"), Key("open github"))
	assert.Regexp(t, `^intent:[0-9a-f]{64}$`, Key("open youtube"))
}

func TestManager_RoundTrip(t *testing.T) {
	mr, client := setupRedis(t)
	m := NewManager(NewRedisStoreWithClient(client, 10*time.Minute), logger.NewTestLogger(t))
	ctx := context.Background()

	_, ok := m.Lookup(ctx, "open youtube")
	assert.False(t, ok)

	m.Remember(ctx, "open youtube", modelResult())

	got, ok := m.Lookup(ctx, "OPEN YOUTUBE")
	require.True(t, ok)
	assert.Equal(t, models.IntentNavigation, got.Intent)
	assert.Equal(t, "https://www.youtube.com", got.Entities.String("url"))
	assert.Equal(t, "gemini-test", got.Model)

	assert.Equal(t, 10*time.Minute, mr.TTL(Key("open youtube")))

	mr.FastForward(11 * time.Minute)
	_, ok = m.Lookup(ctx, "open youtube")
	assert.False(t, ok, "entry expires with the TTL")
}

func TestManager_SkipsFallbackResults(t *testing.T) {
	mr, client := setupRedis(t)
	m := NewManager(NewRedisStoreWithClient(client, time.Minute), logger.NewTestLogger(t))

	res := modelResult()
	res.Model = models.FallbackModel
	m.Remember(context.Background(), "open youtube", res)

	assert.False(t, mr.Exists(Key("open youtube")))
}

func TestManager_Forget(t *testing.T) {
	_, client := setupRedis(t)
	store := NewRedisStoreWithClient(client, time.Minute)
	m := NewManager(store, logger.NewTestLogger(t))
	ctx := context.Background()

	m.Remember(ctx, "open youtube", modelResult())
	exists, err := store.Exists(ctx, Key("open youtube"))
	require.NoError(t, err)
	assert.True(t, exists)

	removed, err := m.Forget(ctx, "Open YouTube")
	require.NoError(t, err)
	assert.True(t, removed)
	exists, err = store.Exists(ctx, Key("open youtube"))
	require.NoError(t, err)
	assert.False(t, exists)

	removed, err = m.Forget(ctx, "open youtube")
	require.NoError(t, err)
	assert.False(t, removed, "nothing left to forget")
}

func TestRedisStore_Ping(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	store := NewRedisStoreWithClient(client, time.Minute)

	require.NoError(t, store.Ping(context.Background()))
	mr.Close()
	assert.Error(t, store.Ping(context.Background()))
}

func TestManager_StorageErrorsAreMisses(t *testing.T) {
	client, mock := redismock.NewClientMock()
	m := NewManager(NewRedisStoreWithClient(client, time.Minute), logger.NewTestLogger(t))
	key := Key("open youtube")

	mock.ExpectGet(key).SetErr(errors.New("connection reset"))
	_, ok := m.Lookup(context.Background(), "open youtube")
	assert.False(t, ok)

	mock.ExpectGet(key).SetVal("{not json")
	_, ok = m.Lookup(context.Background(), "open youtube")
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_Commands(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStoreWithClient(client, 5*time.Minute)
	ctx := context.Background()

	entry := &Entry{
		Text:     "open youtube",
		Result:   modelResult(),
		StoredAt: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(entry)
	require.NoError(t, err)

	mock.ExpectGet("intent:miss").RedisNil()
	got, err := store.Load(ctx, "intent:miss")
	require.NoError(t, err)
	assert.Nil(t, got)

	mock.ExpectSet("intent:hit", data, 5*time.Minute).SetVal("OK")
	require.NoError(t, store.Save(ctx, "intent:hit", entry))

	mock.ExpectGet("intent:hit").SetVal(string(data))
	got, err = store.Load(ctx, "intent:hit")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry.StoredAt, got.StoredAt)
	assert.Equal(t, models.IntentNavigation, got.Result.Intent)

	mock.ExpectDel("intent:hit").SetVal(1)
	require.NoError(t, store.Delete(ctx, "intent:hit"))

	mock.ExpectExists("intent:hit").SetVal(0)
	exists, err := store.Exists(ctx, "intent:hit")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewRedisStore_BadURL(t *testing.T) {
	_, err := NewRedisStore("not-a-url", time.Minute)
	assert.Error(t, err)
}
