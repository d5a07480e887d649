package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ahmetk3436/chatforge/internal/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisAddr(t *testing.T) string {
	t.Helper()
	addr := os.Getenv("CHATFORGE_TEST_REDIS")
	if addr == "" {
		t.Skip("CHATFORGE_TEST_REDIS not set")
	}
	return addr
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	client, err := NewRedisClient(ctx, RedisConfig{Addr: redisAddr(t)})
	require.NoError(t, err)
	defer client.Close()

	store := NewRedisStore(client, time.Minute)
	sess := newSession()

	require.NoError(t, store.Save(ctx, sess))
	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess, got)

	ttl, err := client.TTL(ctx, sessionKey(sess.ID)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, store.Delete(ctx, sess.ID))
	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, wizard.ErrSessionNotFound)
	assert.ErrorIs(t, store.Delete(ctx, sess.ID), wizard.ErrSessionNotFound)
}

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()
	client, err := NewRedisClient(ctx, RedisConfig{Addr: redisAddr(t)})
	require.NoError(t, err)
	defer client.Close()

	locker := NewRedisLocker(client, 5*time.Second)
	key := newSession().ID.String()

	unlock, err := locker.Lock(ctx, key)
	require.NoError(t, err)

	_, err = locker.Lock(ctx, key)
	assert.ErrorIs(t, err, wizard.ErrSessionBusy)

	unlock()
	again, err := locker.Lock(ctx, key)
	require.NoError(t, err)
	again()
}
