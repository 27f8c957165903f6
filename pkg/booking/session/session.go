package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"restaurant-booking-be/pkg/store"
)

var (
	ErrNotFound    = errors.New("session not found")
	ErrNotOwner    = errors.New("session belongs to another user")
	ErrLockTimeout = errors.New("timed out waiting for session lock")
	// ErrLeaseLost means the turn outlived its lock and its result was discarded.
	ErrLeaseLost = errors.New("session lease lost before the turn completed")
	// ErrStaleVersion means another turn saved the session since it was loaded.
	ErrStaleVersion = errors.New("session version changed since load")
)

// Store loads and saves working memory. Implementations must be atomic per
// session: a reader sees either the previous state or the new one.
// Save is a compare-and-set on Version: the snapshot must be exactly one past
// the stored version (1 for a new session), otherwise ErrStaleVersion.
type Store interface {
	Load(ctx context.Context, sessionID string) (*store.ConversationState, error)
	Save(ctx context.Context, st *store.ConversationState) error
	Delete(ctx context.Context, sessionID string) error
}

// Lease is the exclusive right to run one turn for a session.
type Lease interface {
	// Valid is false once the lease was reaped or released.
	Valid() bool
	Release()
}

// Locker serializes turns per session. Acquire blocks until the lease is
// granted or ctx ends.
type Locker interface {
	Acquire(ctx context.Context, sessionID string) (Lease, error)
}

// Encode and Decode are the snapshot format shared by the store implementations.
func Encode(st *store.ConversationState) ([]byte, error) {
	raw, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", st.SessionID, err)
	}
	return raw, nil
}

func Decode(raw []byte) (*store.ConversationState, error) {
	var st store.ConversationState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if st.FormData == nil {
		st.FormData = map[string]string{}
	}
	if st.UserProfile == nil {
		st.UserProfile = map[string]string{}
	}
	return &st, nil
}

// Clone deep-copies a state through its snapshot format.
func Clone(st *store.ConversationState) (*store.ConversationState, error) {
	raw, err := Encode(st)
	if err != nil {
		return nil, err
	}
	return Decode(raw)
}
