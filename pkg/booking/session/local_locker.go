package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LocalLocker grants per-session leases inside one process. A lease that is
// held longer than its TTL is reaped so a stuck turn cannot block the session.
type LocalLocker struct {
	mu     sync.Mutex
	leases map[string]*localLease
	ttl    time.Duration
}

func NewLocalLocker(ttl time.Duration) *LocalLocker {
	return &LocalLocker{
		leases: make(map[string]*localLease),
		ttl:    ttl,
	}
}

type localLease struct {
	locker    *LocalLocker
	sessionID string
	token     string
	released  chan struct{}
	reaper    *time.Timer

	mu    sync.Mutex
	valid bool
}

func (l *localLease) Valid() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.valid
}

func (l *localLease) Release() {
	l.locker.release(l)
}

func (k *LocalLocker) Acquire(ctx context.Context, sessionID string) (Lease, error) {
	for {
		k.mu.Lock()
		current, held := k.leases[sessionID]
		if !held {
			lease := &localLease{
				locker:    k,
				sessionID: sessionID,
				token:     uuid.NewString(),
				released:  make(chan struct{}),
				valid:     true,
			}
			if k.ttl > 0 {
				lease.reaper = time.AfterFunc(k.ttl, func() { k.release(lease) })
			}
			k.leases[sessionID] = lease
			k.mu.Unlock()
			return lease, nil
		}
		wait := current.released
		k.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ErrLockTimeout
		case <-wait:
		}
	}
}

// release is shared by Release and the reaper; only the first call counts.
func (k *LocalLocker) release(l *localLease) {
	k.mu.Lock()
	defer k.mu.Unlock()

	current, ok := k.leases[l.sessionID]
	if !ok || current.token != l.token {
		return
	}
	delete(k.leases, l.sessionID)

	l.mu.Lock()
	l.valid = false
	l.mu.Unlock()

	if l.reaper != nil {
		l.reaper.Stop()
	}
	close(l.released)
}
