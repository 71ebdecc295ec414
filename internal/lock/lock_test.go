package lock

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilLocker(t *testing.T) {
	var l *Locker
	_, ok, err := l.TryLock(context.Background(), "k", time.Second)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.NoError(t, l.Release(context.Background(), "k", "t"))

	assert.Nil(t, NewLocker(nil, "x"))
}

func TestLockerValidation(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })
	l := NewLocker(client, "membership:lock")
	require.NotNil(t, l)

	_, _, err := l.TryLock(context.Background(), "", time.Second)
	assert.ErrorIs(t, err, ErrEmptyKey)
	_, _, err = l.TryLock(context.Background(), "k", 0)
	assert.ErrorIs(t, err, ErrInvalidTTL)
	assert.NoError(t, l.Release(context.Background(), "", ""))
}

func TestLockerKey(t *testing.T) {
	l := &Locker{prefix: "membership:lock"}
	assert.Equal(t, "membership:lock:stripe:live:sub_123", l.Key(" stripe", "live", "sub_123 "))

	var nilLocker *Locker
	assert.Equal(t, "a:b", nilLocker.Key("a", "b"))
}
