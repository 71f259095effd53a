package store

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrSessionNotFound is returned for unknown, revoked and expired sessions.
var ErrSessionNotFound = errors.New("session not found or expired")

// Document is one stored record of a collection. Fields is the JSON object
// exactly as it was last written.
type Document struct {
	Collection string
	ID         string
	Fields     json.RawMessage
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Session is the server-side state behind an identity token.
type Session struct {
	UID       string    `json:"uid"`
	Role      string    `json:"role"`
	Anonymous bool      `json:"anonymous"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CommitInfo describes one saved revision of a project.
type CommitInfo struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}
