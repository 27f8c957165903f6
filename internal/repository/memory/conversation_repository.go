package memory

import (
	"context"
	"sync"
	"time"

	"restaurant-booking-be/pkg/booking/session"
	"restaurant-booking-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

type snapshot struct {
	raw     []byte
	version int64
}

// ConversationRepository keeps working memory in process. Entries are stored
// as encoded snapshots so callers never share a mutable state.
type ConversationRepository struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewConversationRepository(ttl time.Duration) *ConversationRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ConversationRepository{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

var _ session.Store = &ConversationRepository{}

func (r *ConversationRepository) Load(ctx context.Context, sessionID string) (*store.ConversationState, error) {
	x, found := r.cache.Get(sessionID)
	if !found {
		return nil, session.ErrNotFound
	}
	return session.Decode(x.(snapshot).raw)
}

func (r *ConversationRepository) Save(ctx context.Context, st *store.ConversationState) error {
	raw, err := session.Encode(st)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var stored int64
	if x, found := r.cache.Get(st.SessionID); found {
		stored = x.(snapshot).version
	}
	if st.Version != stored+1 {
		return session.ErrStaleVersion
	}
	r.cache.Set(st.SessionID, snapshot{raw: raw, version: st.Version}, cache.DefaultExpiration)
	return nil
}

func (r *ConversationRepository) Delete(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Delete(sessionID)
	return nil
}
