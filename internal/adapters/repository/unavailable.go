package repository

import (
	"context"

	"github.com/okian/formcoach/internal/domain/model"
)

// UnavailableName is the backend name reported by Unavailable.
const UnavailableName = "none"

// Unavailable is the Store used when persistence is disabled. Every call
// reports ErrStorageDisabled.
type Unavailable struct{}

var _ Store = Unavailable{}

// Name implements Store.
func (Unavailable) Name() string { return UnavailableName }

// Ping implements Store.
func (Unavailable) Ping(context.Context) error { return ErrStorageDisabled }

// Close implements Store.
func (Unavailable) Close() error { return nil }

// CreateSession implements SessionStore.
func (Unavailable) CreateSession(context.Context, *model.Session) (string, error) {
	return "", ErrStorageDisabled
}

// GetSession implements SessionStore.
func (Unavailable) GetSession(context.Context, string) (model.Session, error) {
	return model.Session{}, ErrStorageDisabled
}

// ListSessions implements SessionStore.
func (Unavailable) ListSessions(context.Context, string, int) ([]model.Session, error) {
	return nil, ErrStorageDisabled
}

// UpsertProfile implements ProfileStore.
func (Unavailable) UpsertProfile(context.Context, *model.AthleteProfile) (string, error) {
	return "", ErrStorageDisabled
}

// GetProfile implements ProfileStore.
func (Unavailable) GetProfile(context.Context, string) (model.AthleteProfile, error) {
	return model.AthleteProfile{}, ErrStorageDisabled
}

// Counts implements Store.
func (Unavailable) Counts(context.Context) (Counts, error) {
	return Counts{}, ErrStorageDisabled
}
