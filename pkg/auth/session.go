package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frontendmu/frontend.mu/pkg/storage/redis"
	"github.com/google/uuid"
)

// Provider resolves an authenticated session into a principal. It returns
// (nil, nil) for unknown or expired sessions: the request is anonymous.
type Provider interface {
	Principal(ctx context.Context, sessionID string) (*Principal, error)
}

// UserLookup is the part of UserStore the session provider needs.
type UserLookup interface {
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
}

// Session is the record stored in Redis by the login flow.
type Session struct {
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionProvider reads sessions from Redis and loads the user fresh on
// every call, so a deleted user stops resolving immediately.
type SessionProvider struct {
	client *redis.Client
	users  UserLookup
	prefix string
}

// NewSessionProvider creates a Redis-backed provider. Keys are prefix+sessionID.
func NewSessionProvider(client *redis.Client, users UserLookup, prefix string) *SessionProvider {
	if prefix == "" {
		prefix = "session:"
	}
	return &SessionProvider{client: client, users: users, prefix: prefix}
}

// Principal implements Provider.
func (p *SessionProvider) Principal(ctx context.Context, sessionID string) (*Principal, error) {
	if sessionID == "" {
		return nil, nil
	}

	var session Session
	found, err := p.client.GetJSON(ctx, p.prefix+sessionID, &session)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if !found || session.UserID == uuid.Nil {
		return nil, nil
	}

	user, err := p.users.GetUser(ctx, session.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user.Principal(), nil
}

// Save stores a session for userID.
func (p *SessionProvider) Save(ctx context.Context, sessionID string, userID uuid.UUID, ttl time.Duration) error {
	return p.client.SetJSON(ctx, p.prefix+sessionID, Session{UserID: userID, CreatedAt: time.Now().UTC()}, ttl)
}

// Destroy removes a session.
func (p *SessionProvider) Destroy(ctx context.Context, sessionID string) error {
	return p.client.Delete(ctx, p.prefix+sessionID)
}
