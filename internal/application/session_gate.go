package application

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"sponsor-portal/internal/domain"
	"sponsor-portal/internal/ports"
)

// SessionGate owns the identity and credential of one browser session. Both
// are always set and cleared together.
type SessionGate struct {
	sessionID string
	store     ports.CredentialStore
	auth      ports.AuthAPI
	logger    ports.Logger

	restoreOnce sync.Once
	// writeMu orders store writes with updates of the in-memory pair.
	writeMu sync.Mutex

	mu         sync.RWMutex
	loading    bool
	identity   *domain.Identity
	credential domain.Credential
}

func NewSessionGate(sessionID string, store ports.CredentialStore, auth ports.AuthAPI, logger ports.Logger) *SessionGate {
	return &SessionGate{
		sessionID: sessionID,
		store:     store,
		auth:      auth,
		logger:    logger,
		loading:   true,
	}
}

func (g *SessionGate) SessionID() string { return g.sessionID }

// Restore loads a persisted credential and resolves it to an identity. It runs
// once per gate; concurrent callers block until the first call settles. Any
// failure leaves the gate signed out.
func (g *SessionGate) Restore(ctx context.Context) {
	g.restoreOnce.Do(func() {
		identity, credential := g.restore(context.WithoutCancel(ctx))
		g.mu.Lock()
		g.identity = identity
		g.credential = credential
		g.loading = false
		g.mu.Unlock()
	})
}

func (g *SessionGate) restore(ctx context.Context) (*domain.Identity, domain.Credential) {
	credential, err := g.store.Load(ctx, g.sessionID)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && credential == "") {
		return nil, ""
	}
	if err != nil {
		g.logger.Warn(ctx, "credential load failed, treating session as signed out", "session_id", g.sessionID, "error", err)
		g.discardStored(ctx)
		return nil, ""
	}
	identity, err := g.auth.Me(ctx, credential)
	if err == nil {
		err = identity.Validate()
	}
	if err != nil {
		g.logger.Info(ctx, "stored credential rejected", "session_id", g.sessionID, "error", err)
		g.discardStored(ctx)
		return nil, ""
	}
	g.logger.Debug(ctx, "session restored", "session_id", g.sessionID, "role", identity.Role)
	return &identity, credential
}

func (g *SessionGate) discardStored(ctx context.Context) {
	if err := g.store.Delete(ctx, g.sessionID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		g.logger.Error(ctx, "credential delete failed", "session_id", g.sessionID, "error", err)
	}
}

// Login exchanges identifier and secret for a credential and identity. A failed
// login leaves any existing session in place.
func (g *SessionGate) Login(ctx context.Context, identifier, secret string) (domain.Decision, error) {
	if identifier == "" || secret == "" {
		return domain.Decision{}, domain.ErrInvalidInput
	}
	g.Restore(ctx)

	credential, identity, err := g.auth.Login(ctx, identifier, secret)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("%w: %w", domain.ErrLoginFailed, err)
	}
	if credential == "" {
		return domain.Decision{}, fmt.Errorf("%w: empty credential", domain.ErrLoginFailed)
	}
	if err := identity.Validate(); err != nil {
		return domain.Decision{}, fmt.Errorf("%w: %w", domain.ErrLoginFailed, err)
	}
	g.writeMu.Lock()
	if err := g.store.Save(ctx, g.sessionID, credential); err != nil {
		g.writeMu.Unlock()
		return domain.Decision{}, fmt.Errorf("persist credential: %w", err)
	}
	g.set(&identity, credential)
	g.writeMu.Unlock()

	g.logger.Info(ctx, "signed in", "session_id", g.sessionID, "user_id", identity.ID, "role", identity.Role)
	return domain.RedirectTo(domain.HomeRoute(identity.Role), domain.ReasonSignedIn), nil
}

// Logout clears the session and sends the browser to the entry route. Calling
// it without a session only produces the navigation.
func (g *SessionGate) Logout(ctx context.Context) (domain.Decision, error) {
	g.Restore(ctx)
	g.writeMu.Lock()
	defer g.writeMu.Unlock()
	err := g.clear(ctx)
	return domain.RedirectTo(domain.EntryRoute, domain.ReasonSignedOut), err
}

// Expire drops the session when the backend stopped accepting rejected. A
// credential replaced by a newer login in the meantime is left alone.
func (g *SessionGate) Expire(ctx context.Context, rejected domain.Credential) {
	if rejected == "" {
		return
	}
	g.writeMu.Lock()
	defer g.writeMu.Unlock()
	if current, _ := g.Credential(); current != rejected {
		g.logger.Debug(ctx, "stale credential rejected, session kept", "session_id", g.sessionID)
		return
	}
	if err := g.clear(ctx); err != nil {
		g.logger.Error(ctx, "expire session failed", "session_id", g.sessionID, "error", err)
	}
}

// HandOver moves the session to next, which must be a fresh gate, and leaves
// this gate signed out with an empty store slot. The credential is written
// under the new id before the old slot is dropped.
func (g *SessionGate) HandOver(ctx context.Context, next *SessionGate) error {
	g.Restore(ctx)
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	g.mu.RLock()
	identity, credential := g.identity, g.credential
	g.mu.RUnlock()

	if credential != "" {
		if err := next.store.Save(ctx, next.sessionID, credential); err != nil {
			return fmt.Errorf("persist credential: %w", err)
		}
	}
	next.restoreOnce.Do(func() {})
	next.set(identity, credential)

	g.set(nil, "")
	g.discardStored(ctx)
	g.logger.Debug(ctx, "session id rotated", "session_id", g.sessionID, "next_session_id", next.sessionID)
	return nil
}

func (g *SessionGate) set(identity *domain.Identity, credential domain.Credential) {
	g.mu.Lock()
	g.identity = identity
	g.credential = credential
	g.loading = false
	g.mu.Unlock()
}

// clear requires writeMu.
func (g *SessionGate) clear(ctx context.Context) error {
	_, hadSession := g.Identity()
	g.set(nil, "")

	err := g.store.Delete(ctx, g.sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		err = nil
	}
	if hadSession {
		g.logger.Info(ctx, "signed out", "session_id", g.sessionID)
	}
	return err
}

func (g *SessionGate) Loading() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.loading
}

func (g *SessionGate) Identity() (domain.Identity, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.identity == nil {
		return domain.Identity{}, false
	}
	return *g.identity, true
}

func (g *SessionGate) Credential() (domain.Credential, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.credential, g.credential != ""
}

func (g *SessionGate) HasRole(roles ...domain.Role) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.identity != nil && slices.Contains(roles, g.identity.Role)
}

// Decide runs the route guard for path against the current state.
func (g *SessionGate) Decide(path string) domain.Decision {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return domain.Guard(g.loading, g.identity, path)
}
