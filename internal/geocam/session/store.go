// Package session holds the short-lived records bridging a Process call to its later
// Complete call (ORIGINAL §4.E, §5 "Session lifecycle"). The store is sharded so that
// concurrent workers rarely contend on the same lock.
package session

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/lithammer/shortuuid/v4"

	"geocam/pkg/logger"
	"geocam/pkg/model"
)

// Session is the ephemeral record created by Process and consumed by Complete.
type Session struct {
	SessionID     string
	RasterBytes   []byte
	Width         int
	Height        int
	PublicKeyB64  string
	CanonicalHash string
	CreatedAt     time.Time
}

// Store is a sharded, TTL-bounded map of Session records keyed by session id.
//
// TTL is the nominal session lifetime used by callers to decide UnknownSession vs.
// SessionExpired (ORIGINAL §6 distinguishes 404 from 410, so expiry must be visible
// after the fact rather than silently vanishing the entry). The underlying per-shard
// cache is kept alive for a multiple of TTL purely as a retention buffer so an expired
// session can still be fetched once, by id, for that classification; actual backing
// cleanup still happens on the TTL reaper schedule.
type Store struct {
	shards     []*ttlcache.Cache[string, *Session]
	shardCount int
	TTL        time.Duration
	log        *logger.Log
}

const retentionMultiple = 3

// New creates a Store sized from cfg.Geocam.Sessions and starts each shard's
// background expiration loop.
func New(cfg *model.Cfg, log *logger.Log) *Store {
	sessionsCfg := cfg.Geocam.Sessions

	shardCount := sessionsCfg.ShardCount
	if shardCount <= 0 {
		shardCount = 16
	}

	maxSessions := sessionsCfg.MaxSessions
	if maxSessions <= 0 {
		maxSessions = 1024
	}

	ttl := time.Duration(sessionsCfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	s := &Store{
		shards:     make([]*ttlcache.Cache[string, *Session], shardCount),
		shardCount: shardCount,
		TTL:        ttl,
		log:        log.New("session"),
	}

	perShardCap := uint64(maxSessions / shardCount)
	if perShardCap == 0 {
		perShardCap = 1
	}

	for i := 0; i < shardCount; i++ {
		idx := i
		cache := ttlcache.New(
			ttlcache.WithTTL[string, *Session](ttl*retentionMultiple),
			ttlcache.WithCapacity[string, *Session](perShardCap),
		)
		cache.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *Session]) {
			if reason == ttlcache.EvictionReasonCapacityReached {
				s.log.Info("session store shard full, evicting oldest session", "shard", idx, "session_id", item.Key())
			}
		})
		s.shards[idx] = cache
		go cache.Start()
	}

	return s
}

func (s *Store) shardFor(sessionID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return int(h.Sum32()) % s.shardCount
}

// NewSessionID allocates an opaque 128-bit session identifier.
func NewSessionID() string {
	return shortuuid.New()
}

// Put stores a newly created session.
func (s *Store) Put(sess *Session) {
	shard := s.shards[s.shardFor(sess.SessionID)]
	shard.Set(sess.SessionID, sess, ttlcache.DefaultTTL)
}

// Take atomically removes and returns a session by id, so Complete can only consume it
// once. The bool is false only when the session id was never issued or has already
// been consumed/evicted; callers must separately check Session.CreatedAt against TTL
// to detect an expired-but-still-retained session.
func (s *Store) Take(sessionID string) (*Session, bool) {
	shard := s.shards[s.shardFor(sessionID)]

	item := shard.Get(sessionID)
	if item == nil {
		return nil, false
	}

	sess := item.Value()
	shard.Delete(sessionID)

	return sess, true
}

// Abandon removes a session without consuming it, used when a client gives up on a
// Process/Complete round trip.
func (s *Store) Abandon(sessionID string) {
	shard := s.shards[s.shardFor(sessionID)]
	shard.Delete(sessionID)
}

// Len returns the number of live sessions across all shards.
func (s *Store) Len() int {
	var total int
	for _, shard := range s.shards {
		total += shard.Len()
	}
	return total
}

// Stop halts every shard's background expiration loop.
func (s *Store) Stop() {
	for _, shard := range s.shards {
		shard.Stop()
	}
}
