package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"showcase/api/internal/auth"
	"showcase/api/internal/rbac"
	"showcase/api/internal/store"
)

type memorySessions struct {
	mu       sync.Mutex
	sessions map[string]store.Session
	saveErr  error
}

func newMemorySessions() *memorySessions {
	return &memorySessions{sessions: map[string]store.Session{}}
}

func (m *memorySessions) SaveSession(_ context.Context, hash string, sess store.Session) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[hash] = sess
	return nil
}

func (m *memorySessions) LookupSession(_ context.Context, hash string) (store.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[hash]
	if !ok {
		return store.Session{}, store.ErrSessionNotFound
	}
	return sess, nil
}

func (m *memorySessions) RevokeSession(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, hash)
	return nil
}

func newTestProvider() (*Provider, *memorySessions) {
	sessions := newMemorySessions()
	return NewProvider(sessions, Options{
		SessionSecret:   "session-secret",
		BootstrapSecret: "bootstrap-secret",
		TTL:             time.Hour,
	}), sessions
}

func TestSignInAnonymously(t *testing.T) {
	p, sessions := newTestProvider()
	ctx := context.Background()

	ident, err := p.SignInAnonymously(ctx)
	if err != nil {
		t.Fatalf("SignInAnonymously() error = %v", err)
	}
	if !ident.Anonymous || ident.Role != rbac.RoleVisitor || !strings.HasPrefix(ident.UID, "anon_") {
		t.Fatalf("identity = %+v", ident)
	}
	if len(sessions.sessions) != 1 {
		t.Fatalf("stored sessions = %d, want 1", len(sessions.sessions))
	}

	resolved, err := p.Resolve(ctx, ident.Token)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved.UID != ident.UID {
		t.Fatalf("Resolve() uid = %q, want %q", resolved.UID, ident.UID)
	}
}

func TestSignInWithCustomToken(t *testing.T) {
	p, _ := newTestProvider()
	token, err := auth.MintBootstrapToken([]byte("bootstrap-secret"), "owner", time.Minute)
	if err != nil {
		t.Fatalf("MintBootstrapToken() error = %v", err)
	}

	ident, err := p.SignInWithCustomToken(context.Background(), token)
	if err != nil {
		t.Fatalf("SignInWithCustomToken() error = %v", err)
	}
	if ident.UID != "owner" || ident.Anonymous {
		t.Fatalf("identity = %+v", ident)
	}
}

func TestSignInWithCustomTokenRejectsForgery(t *testing.T) {
	p, _ := newTestProvider()
	token, err := auth.MintBootstrapToken([]byte("someone-else"), "owner", time.Minute)
	if err != nil {
		t.Fatalf("MintBootstrapToken() error = %v", err)
	}
	if _, err := p.SignInWithCustomToken(context.Background(), token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("SignInWithCustomToken() error = %v, want ErrInvalidToken", err)
	}
}

func TestSignInFailsWhenSessionCannotBeStored(t *testing.T) {
	p, sessions := newTestProvider()
	sessions.saveErr = errors.New("redis down")
	if _, err := p.SignInAnonymously(context.Background()); err == nil {
		t.Fatal("expected error when the session store fails")
	}
}

func TestElevateAndSignOut(t *testing.T) {
	p, _ := newTestProvider()
	ctx := context.Background()

	ident, err := p.SignInAnonymously(ctx)
	if err != nil {
		t.Fatalf("SignInAnonymously() error = %v", err)
	}
	if _, err := p.Elevate(ctx, ident.Token, rbac.RoleAdmin); err != nil {
		t.Fatalf("Elevate() error = %v", err)
	}
	resolved, err := p.Resolve(ctx, ident.Token)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved.Role != rbac.RoleAdmin {
		t.Fatalf("role = %q, want admin", resolved.Role)
	}

	if err := p.SignOut(ctx, ident.Token); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}
	if _, err := p.Resolve(ctx, ident.Token); !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("Resolve() after sign out error = %v", err)
	}
}

func TestResolveRejectsGarbage(t *testing.T) {
	p, _ := newTestProvider()
	if _, err := p.Resolve(context.Background(), "nope"); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("Resolve() error = %v", err)
	}
}
