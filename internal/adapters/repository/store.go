// Package repository persists analysis sessions and athlete profiles.
package repository

import (
	"context"

	"github.com/okian/formcoach/internal/domain/model"
)

// DefaultListLimit is used by ListSessions callers that have no limit of their own.
const DefaultListLimit = 20

// SessionStore records analysis sessions. Sessions are written once and never
// mutated.
type SessionStore interface {
	// CreateSession assigns a new id and creation time to s and stores it.
	// The athlete reference is not checked against stored profiles.
	CreateSession(ctx context.Context, s *model.Session) (string, error)
	// GetSession returns ErrSessionNotFound for an unknown id.
	GetSession(ctx context.Context, id string) (model.Session, error)
	// ListSessions returns at most limit sessions, newest first. An empty
	// athleteID lists across all athletes.
	ListSessions(ctx context.Context, athleteID string, limit int) ([]model.Session, error)
}

// ProfileStore records athlete profiles with upsert-by-id semantics.
type ProfileStore interface {
	// UpsertProfile creates p when its id is empty or unknown, otherwise
	// replaces every field of the stored profile except CreatedAt. The
	// whole record is written atomically.
	UpsertProfile(ctx context.Context, p *model.AthleteProfile) (string, error)
	// GetProfile returns ErrProfileNotFound for an unknown id.
	GetProfile(ctx context.Context, id string) (model.AthleteProfile, error)
}

// Counts summarises store contents for the stats endpoint.
type Counts struct {
	Sessions int `json:"sessions"`
	Profiles int `json:"profiles"`
}

// Store is the persistence capability injected into the service.
type Store interface {
	SessionStore
	ProfileStore
	// Counts returns the number of stored sessions and profiles.
	Counts(ctx context.Context) (Counts, error)
	// Ping reports whether the backend can serve requests.
	Ping(ctx context.Context) error
	// Name identifies the backend: sqlite, memory or none.
	Name() string
	Close() error
}
