package redisstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"scl90-gate/internal/access/config"
	"scl90-gate/internal/access/domain/model"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := NewRedisClient(&config.Config{RedisAddr: "localhost:6379", RedisDB: 15})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skip("Redis not available for testing")
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestActivityStore_AppendAndRecent(t *testing.T) {
	client := setupTestRedis(t)
	stream := fmt.Sprintf("scl90:test:activity:%d", time.Now().UnixNano())
	t.Cleanup(func() { client.Del(context.Background(), stream) })

	store := NewActivityStore(client, stream, 100, zaptest.NewLogger(t))
	ctx := context.Background()

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(ctx, &model.Activity{Type: "session.created", Code: "A", TokenPrefix: "t1", Source: "access", OccurredAt: at}))
	require.NoError(t, store.Append(ctx, &model.Activity{Type: "access_code.reset", Code: "A", Source: "admin", OccurredAt: at.Add(time.Minute)}))

	recent, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "access_code.reset", recent[0].Type)
	assert.Equal(t, "session.created", recent[1].Type)
	assert.Equal(t, "t1", recent[1].TokenPrefix)
	assert.True(t, recent[1].OccurredAt.Equal(at))
	assert.NotEmpty(t, recent[0].ID)

	limited, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestActivityStore_EmptyStream(t *testing.T) {
	client := setupTestRedis(t)
	store := NewActivityStore(client, "scl90:test:missing", 100, nil)

	recent, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestParseActivity(t *testing.T) {
	a, err := parseActivity(redis.XMessage{ID: "1-0", Values: map[string]interface{}{
		"type":        "access_code.created",
		"code":        "X",
		"source":      "admin",
		"occurred_at": "1772355600000",
	}})
	require.NoError(t, err)
	assert.Equal(t, "1-0", a.ID)
	assert.Equal(t, "X", a.Code)
	assert.Equal(t, int64(1772355600000), a.OccurredAt.UnixMilli())

	_, err = parseActivity(redis.XMessage{ID: "2-0", Values: map[string]interface{}{"code": "X"}})
	assert.Error(t, err)

	_, err = parseActivity(redis.XMessage{ID: "3-0", Values: map[string]interface{}{"type": "t", "occurred_at": "soon"}})
	assert.Error(t, err)
}
