// Package identity establishes who a caller is: either the holder of a
// deployment-issued bootstrap token or an anonymous visitor. Each identity
// is backed by a server-side session that can later be elevated to admin.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"showcase/api/internal/auth"
	"showcase/api/internal/rbac"
	"showcase/api/internal/store"
	"showcase/api/internal/util"
)

const defaultTTL = 24 * time.Hour

// SessionStore persists session state. session.RedisStore and
// store.PostgresStore both implement it.
type SessionStore interface {
	SaveSession(ctx context.Context, tokenHash string, sess store.Session) error
	LookupSession(ctx context.Context, tokenHash string) (store.Session, error)
	RevokeSession(ctx context.Context, tokenHash string) error
}

type Identity struct {
	UID       string    `json:"uid"`
	Role      rbac.Role `json:"role"`
	Anonymous bool      `json:"anonymous"`
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Options struct {
	SessionSecret   string
	BootstrapSecret string
	TTL             time.Duration
}

type Provider struct {
	sessions        SessionStore
	sessionSecret   []byte
	bootstrapSecret []byte
	ttl             time.Duration
	now             func() time.Time
}

func NewProvider(sessions SessionStore, opts Options) *Provider {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Provider{
		sessions:        sessions,
		sessionSecret:   []byte(opts.SessionSecret),
		bootstrapSecret: []byte(opts.BootstrapSecret),
		ttl:             ttl,
		now:             time.Now,
	}
}

// SignInWithCustomToken exchanges a bootstrap token for a session.
func (p *Provider) SignInWithCustomToken(ctx context.Context, token string) (Identity, error) {
	uid, err := auth.ParseBootstrapToken(p.bootstrapSecret, strings.TrimSpace(token))
	if err != nil {
		return Identity{}, fmt.Errorf("exchange bootstrap token: %w", err)
	}
	return p.issue(ctx, uid, false)
}

func (p *Provider) SignInAnonymously(ctx context.Context) (Identity, error) {
	return p.issue(ctx, util.NewID("anon"), true)
}

// Resolve maps a session token back to its identity, honouring revocation
// and any role change made since the token was issued.
func (p *Provider) Resolve(ctx context.Context, token string) (Identity, error) {
	claims, err := auth.ParseToken(p.sessionSecret, token)
	if err != nil {
		return Identity{}, err
	}
	sess, err := p.sessions.LookupSession(ctx, auth.HashToken(claims.JTI))
	if err != nil {
		return Identity{}, err
	}
	if sess.UID != claims.Sub {
		return Identity{}, auth.ErrInvalidToken
	}
	return Identity{
		UID:       sess.UID,
		Role:      rbac.Normalize(sess.Role),
		Anonymous: sess.Anonymous,
		Token:     token,
		ExpiresAt: sess.ExpiresAt,
	}, nil
}

// Elevate changes the role of the session behind token for the rest of
// its lifetime.
func (p *Provider) Elevate(ctx context.Context, token string, role rbac.Role) (Identity, error) {
	claims, err := auth.ParseToken(p.sessionSecret, token)
	if err != nil {
		return Identity{}, err
	}
	hash := auth.HashToken(claims.JTI)
	sess, err := p.sessions.LookupSession(ctx, hash)
	if err != nil {
		return Identity{}, err
	}
	sess.Role = string(role)
	if err := p.sessions.SaveSession(ctx, hash, sess); err != nil {
		return Identity{}, fmt.Errorf("elevate session: %w", err)
	}
	return Identity{
		UID:       sess.UID,
		Role:      role,
		Anonymous: sess.Anonymous,
		Token:     token,
		ExpiresAt: sess.ExpiresAt,
	}, nil
}

func (p *Provider) SignOut(ctx context.Context, token string) error {
	claims, err := auth.ParseToken(p.sessionSecret, token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil
		}
		return err
	}
	return p.sessions.RevokeSession(ctx, auth.HashToken(claims.JTI))
}

func (p *Provider) issue(ctx context.Context, uid string, anonymous bool) (Identity, error) {
	now := p.now()
	expiresAt := now.Add(p.ttl)
	jti := util.NewID("sess")

	token, err := auth.IssueToken(p.sessionSecret, auth.Claims{
		Sub:       uid,
		Role:      string(rbac.RoleVisitor),
		Anonymous: anonymous,
		JTI:       jti,
		Exp:       expiresAt.Unix(),
	})
	if err != nil {
		return Identity{}, err
	}

	sess := store.Session{
		UID:       uid,
		Role:      string(rbac.RoleVisitor),
		Anonymous: anonymous,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}
	if err := p.sessions.SaveSession(ctx, auth.HashToken(jti), sess); err != nil {
		return Identity{}, fmt.Errorf("store session: %w", err)
	}

	return Identity{
		UID:       uid,
		Role:      rbac.RoleVisitor,
		Anonymous: anonymous,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}
