package api

import (
	"context"
	"time"

	"join-board/domain"
)

// Authenticator resolves the session a request belongs to.
type Authenticator interface {
	SessionFromAuthHeader(string) (string, error)
}

// TokenIssuer hands out session tokens.
type TokenIssuer interface {
	Issue(sessionID string) (token string, expiresAt time.Time, err error)
}

// Deduper prevents processing of duplicate task creations.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, sessionID, key string) (bool, error)
	// Remove deletes a previously added key, used when the request fails.
	Remove(ctx context.Context, sessionID, key string) error
}

// Feed announces persisted changes to other services.
type Feed interface {
	Publish(ctx context.Context, ev domain.ChangeEvent) error
}
