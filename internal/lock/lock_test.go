package lock

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/parchment-labs/docworker/internal/models"
)

func TestAcquire_NotInWorkmanAlwaysAllowed(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	g := New(client, 0)
	doc := models.Document{ID: 1, Status: models.StatusNeedsProcessing, DateUpdated: time.Now()}

	ok, err := g.Acquire(context.Background(), doc, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAcquire_InWorkmanFailsFastByDefault(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	g := New(client, 0) // recovery window: none
	doc := models.Document{ID: 2, Status: models.StatusInWorkman, DateUpdated: time.Now().Add(-time.Hour)}

	ok, err := g.Acquire(context.Background(), doc, time.Minute)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAcquire_InWorkmanAllowedAfterRecoveryWindow(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	g := New(client, 5*time.Minute)
	doc := models.Document{ID: 3, Status: models.StatusInWorkman, DateUpdated: time.Now().Add(-10 * time.Minute)}

	ok, err := g.Acquire(context.Background(), doc, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAcquire_SecondInvocationBlockedByRedisLock(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	g := New(client, 0)
	doc := models.Document{ID: 4, Status: models.StatusNeedsProcessing, DateUpdated: time.Now()}

	ok1, err := g.Acquire(context.Background(), doc, time.Minute)
	require.NoError(t, err)
	require.True(t, ok1)

	ok2, err := g.Acquire(context.Background(), doc, time.Minute)
	require.NoError(t, err)
	require.False(t, ok2)

	g.Release(context.Background(), doc.ID)
	ok3, err := g.Acquire(context.Background(), doc, time.Minute)
	require.NoError(t, err)
	require.True(t, ok3)
}

func TestAcquire_FallsBackWhenRedisNil(t *testing.T) {
	g := New(nil, 0)
	doc := models.Document{ID: 5, Status: models.StatusNeedsProcessing, DateUpdated: time.Now()}

	ok, err := g.Acquire(context.Background(), doc, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
}
