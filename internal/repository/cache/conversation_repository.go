package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restaurant-booking-be/pkg/booking/session"
	"restaurant-booking-be/pkg/store"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "booking:session:"

// saveScript writes the snapshot only if the stored version is ARGV[2].
var saveScript = redis.NewScript(`
local cur = redis.call("GET", KEYS[1])
local expected = tonumber(ARGV[2])
local stored = 0
if cur then
	stored = tonumber(cjson.decode(cur)["version"]) or 0
end
if stored ~= expected then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
else
	redis.call("SET", KEYS[1], ARGV[1])
end
return 1
`)

// ConversationRepository keeps working memory in redis so any instance can
// serve any session. A save replaces the whole snapshot at once.
type ConversationRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewConversationRepository(rdb *redis.Client, ttl time.Duration) *ConversationRepository {
	return &ConversationRepository{rdb: rdb, ttl: ttl}
}

var _ session.Store = &ConversationRepository{}

func (r *ConversationRepository) Load(ctx context.Context, sessionID string) (*store.ConversationState, error) {
	raw, err := r.rdb.Get(ctx, keyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session %s: %w", sessionID, err)
	}
	return session.Decode(raw)
}

func (r *ConversationRepository) Save(ctx context.Context, st *store.ConversationState) error {
	raw, err := session.Encode(st)
	if err != nil {
		return err
	}
	ok, err := saveScript.Run(ctx, r.rdb, []string{keyPrefix + st.SessionID},
		raw, st.Version-1, r.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("redis set session %s: %w", st.SessionID, err)
	}
	if ok == 0 {
		return session.ErrStaleVersion
	}
	return nil
}

func (r *ConversationRepository) Delete(ctx context.Context, sessionID string) error {
	return r.rdb.Del(ctx, keyPrefix+sessionID).Err()
}
