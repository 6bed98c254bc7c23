package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"sponsor-portal/internal/domain"
	"sponsor-portal/internal/ports"
)

type registryEntry struct {
	gate     *SessionGate
	lastSeen time.Time
}

// SessionRegistry hands out one SessionGate per browser session. Idle gates are
// dropped from memory; their credential stays in the store and is restored on
// the next request.
type SessionRegistry struct {
	store       ports.CredentialStore
	auth        ports.AuthAPI
	logger      ports.Logger
	idleTimeout time.Duration
	now         ports.Clock

	mu    sync.Mutex
	gates map[string]*registryEntry
}

func NewSessionRegistry(store ports.CredentialStore, auth ports.AuthAPI, logger ports.Logger, idleTimeout time.Duration) *SessionRegistry {
	return &SessionRegistry{
		store:       store,
		auth:        auth,
		logger:      logger,
		idleTimeout: idleTimeout,
		now:         time.Now,
		gates:       map[string]*registryEntry{},
	}
}

func (r *SessionRegistry) NewSessionID() string {
	return uuid.NewString()
}

func (r *SessionRegistry) Gate(sessionID string) *SessionGate {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.gates[sessionID]
	if !ok {
		entry = &registryEntry{gate: NewSessionGate(sessionID, r.store, r.auth, r.logger)}
		r.gates[sessionID] = entry
	}
	entry.lastSeen = r.now()
	return entry.gate
}

// Rotate moves the session held by old to nextID and forgets the old id, so a
// cookie naming it no longer reaches the credential.
func (r *SessionRegistry) Rotate(ctx context.Context, old *SessionGate, nextID string) (*SessionGate, error) {
	if nextID == "" || nextID == old.SessionID() {
		return nil, fmt.Errorf("%w: rotation needs a new session id", domain.ErrInvalidInput)
	}
	next := NewSessionGate(nextID, r.store, r.auth, r.logger)
	if err := old.HandOver(ctx, next); err != nil {
		return nil, err
	}
	r.mu.Lock()
	delete(r.gates, old.SessionID())
	r.gates[nextID] = &registryEntry{gate: next, lastSeen: r.now()}
	r.mu.Unlock()
	return next, nil
}

// Drop forgets the gate for sessionID without touching the store.
func (r *SessionRegistry) Drop(sessionID string) {
	r.mu.Lock()
	delete(r.gates, sessionID)
	r.mu.Unlock()
}

func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.gates)
}

// Sweep evicts gates idle for longer than the idle timeout and returns how
// many were evicted.
func (r *SessionRegistry) Sweep() int {
	cutoff := r.now().Add(-r.idleTimeout)
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, entry := range r.gates {
		if entry.lastSeen.Before(cutoff) {
			delete(r.gates, id)
			evicted++
		}
	}
	return evicted
}

func (r *SessionRegistry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Debug(ctx, "evicted idle sessions", "count", n)
			}
		}
	}
}
