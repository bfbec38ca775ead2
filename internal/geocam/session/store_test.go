package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geocam/pkg/logger"
	"geocam/pkg/model"
)

func testCfg() *model.Cfg {
	return &model.Cfg{
		Geocam: model.Geocam{
			Sessions: model.Sessions{
				TTLSeconds:  1,
				MaxSessions: 1000,
				ShardCount:  4,
			},
		},
	}
}

func TestNewSessionIDIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewSessionID()
		require.False(t, seen[id])
		seen[id] = true
	}
}

func TestPutTakeRoundTrip(t *testing.T) {
	store := New(testCfg(), logger.NewSimple("test"))
	defer store.Stop()

	sess := &Session{
		SessionID:     NewSessionID(),
		PublicKeyB64:  "abc",
		CanonicalHash: "deadbeef",
		CreatedAt:     time.Now(),
	}
	store.Put(sess)
	assert.Equal(t, 1, store.Len())

	got, ok := store.Take(sess.SessionID)
	require.True(t, ok)
	assert.Equal(t, sess.SessionID, got.SessionID)
	assert.Equal(t, sess.CanonicalHash, got.CanonicalHash)

	assert.Equal(t, 0, store.Len())
}

func TestTakeConsumesSessionOnlyOnce(t *testing.T) {
	store := New(testCfg(), logger.NewSimple("test"))
	defer store.Stop()

	sess := &Session{SessionID: NewSessionID(), CreatedAt: time.Now()}
	store.Put(sess)

	_, ok := store.Take(sess.SessionID)
	require.True(t, ok)

	_, ok = store.Take(sess.SessionID)
	assert.False(t, ok)
}

func TestTakeUnknownSessionReturnsFalse(t *testing.T) {
	store := New(testCfg(), logger.NewSimple("test"))
	defer store.Stop()

	_, ok := store.Take("never-issued")
	assert.False(t, ok)
}

func TestAbandonRemovesSessionWithoutConsumingResult(t *testing.T) {
	store := New(testCfg(), logger.NewSimple("test"))
	defer store.Stop()

	sess := &Session{SessionID: NewSessionID(), CreatedAt: time.Now()}
	store.Put(sess)
	require.Equal(t, 1, store.Len())

	store.Abandon(sess.SessionID)
	assert.Equal(t, 0, store.Len())

	_, ok := store.Take(sess.SessionID)
	assert.False(t, ok)
}

func TestSessionsDistributeAcrossShards(t *testing.T) {
	store := New(testCfg(), logger.NewSimple("test"))
	defer store.Stop()

	shardsUsed := make(map[int]bool)
	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("session-%d", i)
		shardsUsed[store.shardFor(id)] = true
	}

	assert.Greater(t, len(shardsUsed), 1)
}

func TestLenAggregatesAcrossShards(t *testing.T) {
	store := New(testCfg(), logger.NewSimple("test"))
	defer store.Stop()

	for i := 0; i < 10; i++ {
		store.Put(&Session{SessionID: fmt.Sprintf("s-%d", i), CreatedAt: time.Now()})
	}

	assert.Equal(t, 10, store.Len())
}
