package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/formcoach/internal/domain/apperr"
	"github.com/okian/formcoach/internal/domain/model"
)

// memSession pairs a session with its insertion sequence, which breaks
// created_at ties in listings.
type memSession struct {
	session model.Session
	seq     uint64
}

// MemoryStore is a non-durable Store for tests and demos.
type MemoryStore struct {
	common

	mu       sync.RWMutex
	seq      uint64
	sessions map[string]memSession
	profiles map[string]model.AthleteProfile
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		common:   defaultCommon(),
		sessions: make(map[string]memSession),
		profiles: make(map[string]model.AthleteProfile),
	}
	for _, opt := range opts {
		opt(&s.common)
	}
	return s
}

// Name implements Store.
func (s *MemoryStore) Name() string { return "memory" }

// Ping implements Store.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

// CreateSession implements SessionStore.
func (s *MemoryStore) CreateSession(ctx context.Context, sess *model.Session) (string, error) {
	defer s.observe("create_session", time.Now())

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	stored := cloneSession(*sess)
	stored.ID = s.newID()
	stored.CreatedAt = s.now()

	s.mu.Lock()
	s.seq++
	s.sessions[stored.ID] = memSession{session: stored, seq: s.seq}
	s.mu.Unlock()

	sess.ID = stored.ID
	sess.CreatedAt = stored.CreatedAt
	sess.Insights = stored.Insights
	return stored.ID, nil
}

// GetSession implements SessionStore.
func (s *MemoryStore) GetSession(_ context.Context, id string) (model.Session, error) {
	defer s.observe("get_session", time.Now())

	s.mu.RLock()
	entry, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return model.Session{}, ErrSessionNotFound
	}
	return cloneSession(entry.session), nil
}

// ListSessions implements SessionStore.
func (s *MemoryStore) ListSessions(_ context.Context, athleteID string, limit int) ([]model.Session, error) {
	defer s.observe("list_sessions", time.Now())

	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	matched := make([]memSession, 0, len(s.sessions))
	for _, entry := range s.sessions {
		if athleteID == "" || entry.session.AthleteID == athleteID {
			matched = append(matched, entry)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.session.CreatedAt.Equal(b.session.CreatedAt) {
			return a.session.CreatedAt.After(b.session.CreatedAt)
		}
		return a.seq > b.seq
	})

	if len(matched) > limit {
		matched = matched[:limit]
	}
	out := make([]model.Session, len(matched))
	for i, entry := range matched {
		out[i] = cloneSession(entry.session)
	}
	return out, nil
}

// UpsertProfile implements ProfileStore.
func (s *MemoryStore) UpsertProfile(_ context.Context, p *model.AthleteProfile) (string, error) {
	defer s.observe("upsert_profile", time.Now())

	if err := p.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", apperr.ErrValidation, err)
	}

	stored := cloneProfile(*p)
	if stored.ID == "" {
		stored.ID = s.newID()
	}
	now := s.now()

	s.mu.Lock()
	if prev, ok := s.profiles[stored.ID]; ok {
		stored.CreatedAt = prev.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.profiles[stored.ID] = stored
	s.mu.Unlock()

	*p = cloneProfile(stored)
	return stored.ID, nil
}

// GetProfile implements ProfileStore.
func (s *MemoryStore) GetProfile(_ context.Context, id string) (model.AthleteProfile, error) {
	defer s.observe("get_profile", time.Now())

	s.mu.RLock()
	p, ok := s.profiles[id]
	s.mu.RUnlock()
	if !ok {
		return model.AthleteProfile{}, ErrProfileNotFound
	}
	return cloneProfile(p), nil
}

// Counts implements Store.
func (s *MemoryStore) Counts(context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counts{Sessions: len(s.sessions), Profiles: len(s.profiles)}, nil
}

func cloneSession(sess model.Session) model.Session {
	insights := make([]string, len(sess.Insights))
	copy(insights, sess.Insights)
	sess.Insights = insights
	return sess
}

// cloneProfile detaches the optional fields so callers never share them
// with the stored record.
func cloneProfile(p model.AthleteProfile) model.AthleteProfile {
	p.Age = clonePtr(p.Age)
	p.HeightCm = clonePtr(p.HeightCm)
	p.WeightKg = clonePtr(p.WeightKg)
	p.Sport = clonePtr(p.Sport)
	p.Level = clonePtr(p.Level)
	return p
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
