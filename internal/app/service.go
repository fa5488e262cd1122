// Package service provides the core business service that implements
// the dependencies required by the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/formcoach/internal/adapters/media"
	"github.com/okian/formcoach/internal/adapters/repository"
	"github.com/okian/formcoach/internal/domain/apperr"
	"github.com/okian/formcoach/internal/domain/insight"
	"github.com/okian/formcoach/internal/domain/model"
	"github.com/okian/formcoach/internal/domain/scoring"
	"github.com/okian/formcoach/internal/domain/sport"
	"github.com/okian/formcoach/pkg/logger"
	"github.com/okian/formcoach/pkg/metrics"
)

// Defaults used when no option overrides them.
const (
	DefaultSessionLimit = repository.DefaultListLimit
	DefaultMaxLimit     = 100
	defaultWriteTimeout = 2 * time.Second
)

// AnalyzeRequest is one analysis submission. Scores and Metrics, when
// present, take precedence over anything derived from Frames.
type AnalyzeRequest struct {
	Sport      string           `json:"sport"`
	AthleteID  string           `json:"athleteId,omitempty"`
	FilePath   string           `json:"filePath,omitempty"`
	FrameCount int              `json:"frameCount,omitempty"`
	Frames     []model.Frame    `json:"frames,omitempty"`
	Scores     *model.RawScores `json:"scores,omitempty"`
	Metrics    *model.Metrics   `json:"metrics,omitempty"`
}

// AnalysisResponse is the analysis result plus the id of the stored
// session. SessionID is empty when the session could not be persisted.
type AnalysisResponse struct {
	SessionID string `json:"sessionId"`
	model.AnalysisResult
}

// ProfileRequest is a profile upsert. Omitted optional fields clear the
// stored value.
type ProfileRequest struct {
	ID     string   `json:"id,omitempty"`
	Name   string   `json:"name"`
	Age    *int     `json:"age,omitempty"`
	Height *float64 `json:"height,omitempty"`
	Weight *float64 `json:"weight,omitempty"`
	Sport  *string  `json:"sport,omitempty"`
	Level  *string  `json:"level,omitempty"`
}

// Service implements the API dependencies for the scoring system.
type Service struct {
	mu sync.RWMutex

	// Core components
	engine   *scoring.Engine
	insights *insight.Generator
	store    repository.Store
	files    media.FileStore

	// Configuration
	writeTimeout time.Duration
	defaultLimit int
	maxLimit     int
	scoringMode  string

	// State
	started   bool
	startedAt time.Time
	analyses  atomic.Int64
	failures  atomic.Int64

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithEngine sets the scoring engine.
func WithEngine(e *scoring.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithInsightGenerator sets the insight generator.
func WithInsightGenerator(g *insight.Generator) Option {
	return func(s *Service) {
		if g != nil {
			s.insights = g
		}
	}
}

// WithStore sets the persistence backend.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithFileStore sets the upload backend.
func WithFileStore(fs media.FileStore) Option {
	return func(s *Service) {
		if fs != nil {
			s.files = fs
		}
	}
}

// WithWriteTimeout bounds the best-effort session write.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// WithSessionLimits sets the default and maximum session listing sizes.
func WithSessionLimits(def, maxLimit int) Option {
	return func(s *Service) {
		if def > 0 && maxLimit >= def {
			s.defaultLimit = def
			s.maxLimit = maxLimit
		}
	}
}

// WithScoringMode records the configured scoring mode for stats and logs.
func WithScoringMode(mode string) Option {
	return func(s *Service) {
		if mode != "" {
			s.scoringMode = mode
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service. Without options it scores with the
// built-in sports, keeps sessions in memory and rejects uploads.
func New(opts ...Option) *Service {
	s := &Service{
		writeTimeout: defaultWriteTimeout,
		defaultLimit: DefaultSessionLimit,
		maxLimit:     DefaultMaxLimit,
		scoringMode:  "frames",
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.engine == nil {
		s.engine = scoring.NewEngine(sport.NewRegistry())
	}
	if s.insights == nil {
		s.insights = insight.NewGenerator()
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.files == nil {
		s.files = media.Unavailable{}
	}
	return s
}

// Start checks the collaborators and marks the service ready.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Named("service")
	}

	s.logger.Info(ctx, "starting scoring service...")

	for _, problem := range s.engine.Registry().Validate() {
		s.logger.Warn(ctx, "sport pattern data problem", logger.Error(problem))
	}

	if err := s.store.Ping(ctx); err != nil {
		// Analyses still work; sessions are simply not persisted.
		s.logger.Warn(ctx, "storage not available", logger.String("backend", s.store.Name()), logger.Error(err))
	}

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "scoring service started",
		logger.String("storage", s.store.Name()),
		logger.String("scoringMode", s.scoringMode),
		logger.Int("sports", s.engine.Registry().Len()),
		logger.Duration("writeTimeout", s.writeTimeout),
	)
	return nil
}

// Stop marks the service stopped. The store is closed by its owner.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "scoring service stopped",
		logger.Int("analyses", int(s.analyses.Load())),
	)
}

func (s *Service) log() logger.Logger {
	s.mu.RLock()
	l := s.logger
	s.mu.RUnlock()
	if l == nil {
		return logger.Nop()
	}
	return l
}

// Analyze scores one request, generates insights and persists the result
// once. A persistence failure is logged and counted but never returned:
// the response then carries an empty SessionID.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (AnalysisResponse, error) {
	const op = "service.analyze"
	start := time.Now()

	est, err := s.estimate(ctx, req)
	if err != nil {
		return AnalysisResponse{}, err
	}

	out := s.engine.Score(req.Sport, est.Scores)
	result := model.AnalysisResult{
		SportKey:   out.Pattern.Key,
		Sport:      out.Pattern.DisplayName,
		Overall:    out.Overall,
		Scores:     out.Scores,
		Metrics:    est.Metrics,
		Insights:   s.insights.Generate(out.Scores, est.Metrics, out.Pattern.DisplayName),
		FrameCount: req.FrameCount,
	}
	if len(req.Frames) > 0 {
		result.FrameCount = len(req.Frames)
	}

	resp := AnalysisResponse{AnalysisResult: result}
	resp.SessionID = s.persist(ctx, op, result, req)

	s.analyses.Add(1)
	metrics.RecordAnalysis(result.SportKey, est.Source, result.Overall, len(result.Insights), metrics.Since(start))
	s.log().Debug(ctx, "analysis complete",
		logger.String("sport", result.SportKey),
		logger.String("source", est.Source),
		logger.Int("overall", result.Overall),
		logger.Int("insights", len(result.Insights)),
		logger.String("sessionId", resp.SessionID),
	)
	return resp, nil
}

// estimate picks raw scores and metrics in precedence order: supplied
// values, then frames, then the placeholder generator.
func (s *Service) estimate(ctx context.Context, req AnalyzeRequest) (scoring.Estimate, error) {
	const op = "service.analyze"

	if req.FrameCount < 0 {
		return scoring.Estimate{}, apperr.Validation(op, "frameCount must not be negative")
	}
	if req.Scores != nil {
		if err := req.Scores.Validate(); err != nil {
			return scoring.Estimate{}, apperr.Wrap(op, apperr.ErrValidation, err)
		}
	}
	if req.Metrics != nil {
		if err := req.Metrics.Validate(); err != nil {
			return scoring.Estimate{}, apperr.Wrap(op, apperr.ErrValidation, err)
		}
	}

	for i, fr := range req.Frames {
		if err := fr.Validate(); err != nil {
			return scoring.Estimate{}, apperr.Wrap(op, apperr.ErrValidation, fmt.Errorf("frames[%d]: %w", i, err))
		}
	}

	if req.Scores != nil && req.Metrics != nil {
		return scoring.Estimate{Scores: *req.Scores, Metrics: *req.Metrics, Source: scoring.SourceSupplied}, nil
	}

	est, err := s.engine.Measure(ctx, req.Frames)
	if err != nil {
		return scoring.Estimate{}, apperr.Wrap(op, apperr.ErrInternal, err)
	}
	if req.Scores != nil {
		est.Scores = *req.Scores
		est.Source = scoring.SourceSupplied
	}
	if req.Metrics != nil {
		est.Metrics = *req.Metrics
	}
	return est, nil
}

// persist makes the single best-effort session write. The write is detached
// from caller cancellation and bounded by the write timeout.
func (s *Service) persist(ctx context.Context, op string, result model.AnalysisResult, req AnalyzeRequest) string {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
	defer cancel()

	sess := model.NewSession(result, strings.TrimSpace(req.AthleteID), req.FilePath)
	id, err := s.store.CreateSession(wctx, &sess)
	if err != nil {
		s.failures.Add(1)
		metrics.RecordPersistenceFailure("create_session")
		err = apperr.Wrap(op, apperr.ErrPersistence, err)
		if errors.Is(err, apperr.ErrUnavailable) {
			s.log().Debug(ctx, "session not persisted: storage disabled")
		} else {
			s.log().Warn(ctx, "session not persisted",
				logger.String("sport", result.SportKey),
				logger.String("athleteId", sess.AthleteID),
				logger.Error(err),
			)
		}
		return ""
	}
	metrics.RecordSessionWrite()
	return id
}

// UpsertProfile validates req and writes it as a whole record.
func (s *Service) UpsertProfile(ctx context.Context, req ProfileRequest) (string, error) {
	const op = "service.upsert_profile"

	if strings.TrimSpace(req.Name) == "" {
		return "", apperr.Wrap(op, apperr.ErrValidation, model.ErrNameRequired)
	}
	if req.Age != nil && (*req.Age < 0 || *req.Age > 150) {
		return "", apperr.Validation(op, "age must be between 0 and 150")
	}
	if req.Height != nil && *req.Height <= 0 {
		return "", apperr.Validation(op, "height must be positive")
	}
	if req.Weight != nil && *req.Weight <= 0 {
		return "", apperr.Validation(op, "weight must be positive")
	}

	p := model.AthleteProfile{
		ID:       strings.TrimSpace(req.ID),
		Name:     strings.TrimSpace(req.Name),
		Age:      req.Age,
		HeightCm: req.Height,
		WeightKg: req.Weight,
		Sport:    req.Sport,
		Level:    req.Level,
	}
	id, err := s.store.UpsertProfile(ctx, &p)
	if err != nil {
		return "", wrapStore(op, err)
	}
	metrics.RecordProfileUpsert()
	return id, nil
}

// GetProfile returns the stored profile verbatim.
func (s *Service) GetProfile(ctx context.Context, id string) (model.AthleteProfile, error) {
	p, err := s.store.GetProfile(ctx, id)
	if err != nil {
		return model.AthleteProfile{}, wrapStore("service.get_profile", err)
	}
	return p, nil
}

// GetSession returns one stored session.
func (s *Service) GetSession(ctx context.Context, id string) (model.Session, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return model.Session{}, wrapStore("service.get_session", err)
	}
	return sess, nil
}

// ListSessions lists sessions newest first. A zero limit means the default;
// limits above the maximum are rejected.
func (s *Service) ListSessions(ctx context.Context, athleteID string, limit int) ([]model.Session, error) {
	const op = "service.list_sessions"

	switch {
	case limit == 0:
		limit = s.defaultLimit
	case limit < 0:
		return nil, apperr.Validation(op, "limit must be positive")
	case limit > s.maxLimit:
		return nil, apperr.Validation(op, "limit exceeds maximum")
	}

	list, err := s.store.ListSessions(ctx, strings.TrimSpace(athleteID), limit)
	if err != nil {
		return nil, wrapStore(op, err)
	}
	return list, nil
}

// SaveUpload stores an uploaded file and returns its opaque path.
func (s *Service) SaveUpload(ctx context.Context, name string, r io.Reader) (string, error) {
	path, err := s.files.Save(ctx, name, r)
	if err != nil {
		return "", wrapStore("service.save_upload", err)
	}
	return path, nil
}

// Sports lists the registry sorted by key.
func (s *Service) Sports() []sport.Pattern {
	return s.engine.Registry().All()
}

// Ping reports storage health for the health endpoint. The cause of a
// failed ping is logged here and not handed to callers verbatim.
func (s *Service) Ping(ctx context.Context) (string, error) {
	name := s.store.Name()
	err := s.store.Ping(ctx)
	if err != nil && !errors.Is(err, apperr.ErrUnavailable) {
		s.log().Warn(ctx, "storage ping failed", logger.String("backend", name), logger.Error(err))
	}
	return name, err
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	started, startedAt := s.started, s.startedAt
	s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":             started,
		"storage":             s.store.Name(),
		"scoringMode":         s.scoringMode,
		"sports":              s.engine.Registry().Len(),
		"analysesServed":      s.analyses.Load(),
		"persistenceFailures": s.failures.Load(),
		"defaultSessionLimit": s.defaultLimit,
		"maxSessionLimit":     s.maxLimit,
	}
	if started {
		stats["uptimeSeconds"] = int64(time.Since(startedAt).Seconds())
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()
	if counts, err := s.store.Counts(ctx); err == nil {
		stats["storedSessions"] = counts.Sessions
		stats["storedProfiles"] = counts.Profiles
	}
	return stats
}

// wrapStore keeps the kind of a store error and attaches op. Errors
// without a kind become internal.
func wrapStore(op string, err error) error {
	return apperr.Wrap(op, apperr.KindOf(err), err)
}
