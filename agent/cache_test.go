package agent

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbxark/hrdesk/types"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("HRDESK_REDIS_ADDR")
	if addr == "" {
		t.Skip("set HRDESK_REDIS_ADDR to run redis tests")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	require.NoError(t, client.FlushDB(ctx).Err())
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})
	return client
}

func TestStoreRequiresKey(t *testing.T) {
	s := NewStore[int](NewMemoryCache[int](), "ns", ConversationIDFromContext)
	ctx := context.Background()
	assert.ErrorIs(t, s.Set(ctx, 1), ErrNoKey)
	_, _, err := s.Get(ctx)
	assert.ErrorIs(t, err, ErrNoKey)

	ctx = WithConversationID(ctx, "c1")
	require.NoError(t, s.Set(ctx, 7))
	v, ok, err := s.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 7, v)
	require.NoError(t, s.Del(ctx))
	exists, err := s.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestKeepSystemLastNTrimmer(t *testing.T) {
	hist := []*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage("1"),
		schema.UserMessage("2"),
		schema.UserMessage("3"),
	}
	out := KeepSystemLastNTrimmer{N: 2}.Trim(hist)
	require.Len(t, out, 3)
	assert.Equal(t, "sys", out[0].Content)
	assert.Equal(t, "2", out[1].Content)

	out = KeepSystemLastNTrimmer{N: 0}.Trim(hist)
	assert.Len(t, out, 4)
}

func TestMemoryCacheExpires(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewExpiringMemoryCache[string](time.Hour, func() time.Time { return now })
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", "v"))

	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	now = now.Add(time.Hour)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	exists, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestHistoryStoreAppendSkipsRepeats(t *testing.T) {
	h := NewMemoryHistoryStore(KeepSystemLastNTrimmer{N: 3})
	ctx := WithConversationID(context.Background(), "c1")
	_, err := h.Append(ctx, schema.UserMessage("hi"), schema.UserMessage("hi"), nil, schema.AssistantMessage("  ", nil))
	require.NoError(t, err)
	hist, err := h.Append(ctx, schema.AssistantMessage("hello", nil), schema.UserMessage("a"), schema.UserMessage("b"))
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, "hello", hist[0].Content)

	require.NoError(t, h.Clear(ctx))
	hist, err = h.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestRedisSessionStore(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	store := NewSessionStore(NewRedisCache[*Session](client, "test", time.Minute))

	sess := &Session{
		ID:             "call_1",
		ConversationID: "c1",
		Spec: types.FormSpec{
			Title:  "Leave Request Form",
			Fields: []types.FieldSpec{{Name: "agree", Label: "Agree", Type: types.FieldCheckbox}},
		},
		Values:    types.Values{"agree": true},
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Get(ctx, "call_1")
	require.NoError(t, err)
	assert.Equal(t, types.PhaseEditable, got.Phase)
	assert.Equal(t, true, got.Values["agree"])
	assert.Equal(t, "Leave Request Form", got.Spec.Title)

	require.NoError(t, store.Delete(ctx, "call_1"))
	_, err = store.Get(ctx, "call_1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisHistoryStore(t *testing.T) {
	client := setupTestRedis(t)
	h := NewHistoryStore(NewRedisCache[[]*schema.Message](client, "test", 0), nil)
	ctx := WithConversationID(context.Background(), "c1")
	_, err := h.Append(ctx, schema.UserMessage("hi"))
	require.NoError(t, err)
	hist, err := h.Load(ctx)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, schema.User, hist[0].Role)
}
