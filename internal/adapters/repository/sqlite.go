package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/okian/formcoach/internal/domain/apperr"
	"github.com/okian/formcoach/internal/domain/model"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLiteConfig holds database configuration settings.
type SQLiteConfig struct {
	// Path is the database file. MemoryPath keeps everything in memory and
	// pins the pool to a single connection.
	Path string

	// MaxOpenConns bounds the connection pool. Writes are serialized
	// regardless of this value.
	MaxOpenConns int

	// BusyTimeout sets how long SQLite waits on a locked database.
	BusyTimeout time.Duration

	// AutoMigrate applies pending migrations on Open.
	AutoMigrate bool
}

// DefaultSQLiteConfig returns a SQLiteConfig with sensible default values.
func DefaultSQLiteConfig(path string) SQLiteConfig {
	return SQLiteConfig{
		Path:         path,
		MaxOpenConns: 4,
		BusyTimeout:  5 * time.Second,
		AutoMigrate:  true,
	}
}

func (c SQLiteConfig) dsn() string {
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)", c.Path, c.BusyTimeout.Milliseconds())
	if c.Path != MemoryPath {
		dsn += "&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}
	return dsn
}

// SQLiteStore is the durable Store backed by modernc.org/sqlite.
type SQLiteStore struct {
	common
	db   *sql.DB
	path string

	// writeMu serializes writes so concurrent upserts never interleave.
	writeMu sync.Mutex
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at cfg.Path.
func OpenSQLite(ctx context.Context, cfg SQLiteConfig, opts ...Option) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path must not be empty")
	}

	if cfg.Path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.Path == MemoryPath || cfg.MaxOpenConns <= 0 {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{common: defaultCommon(), db: db, path: cfg.Path}
	for _, opt := range opts {
		opt(&s.common)
	}

	if cfg.AutoMigrate {
		if err := s.Migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// Migrate applies every pending embedded migration.
func (s *SQLiteStore) Migrate() error {
	mm, err := s.Migrator()
	if err != nil {
		return err
	}
	defer func() { _ = mm.Close() }()
	return mm.Up()
}

// Migrator exposes the migration manager bound to this store's handle.
func (s *SQLiteStore) Migrator() (*Migrator, error) {
	return NewMigrator(s.db)
}

// Path returns the database location.
func (s *SQLiteStore) Path() string { return s.path }

// Name implements Store.
func (s *SQLiteStore) Name() string { return "sqlite" }

// Ping implements Store.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return apperr.Wrap("sqlite ping", apperr.ErrUnavailable, err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSession implements SessionStore.
func (s *SQLiteStore) CreateSession(ctx context.Context, sess *model.Session) (string, error) {
	defer s.observe("create_session", time.Now())

	insights := sess.Insights
	if insights == nil {
		insights = []string{}
	}
	scores, err := json.Marshal(sess.Scores)
	if err != nil {
		return "", fmt.Errorf("encode scores: %w", err)
	}
	metricsJSON, err := json.Marshal(sess.Metrics)
	if err != nil {
		return "", fmt.Errorf("encode metrics: %w", err)
	}
	insightsJSON, err := json.Marshal(insights)
	if err != nil {
		return "", fmt.Errorf("encode insights: %w", err)
	}

	id := s.newID()
	createdAt := s.now()

	const query = `
		INSERT INTO sessions (id, athlete_id, sport, overall, scores, metrics, insights, file_path, frame_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	s.writeMu.Lock()
	_, err = s.db.ExecContext(ctx, query,
		id,
		nullString(sess.AthleteID),
		sess.Sport,
		sess.Overall,
		string(scores),
		string(metricsJSON),
		string(insightsJSON),
		nullString(sess.FilePath),
		sess.FrameCount,
		createdAt.UnixNano(),
	)
	s.writeMu.Unlock()
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}

	sess.ID = id
	sess.CreatedAt = createdAt
	sess.Insights = insights
	return id, nil
}

const sessionColumns = `id, athlete_id, sport, overall, scores, metrics, insights, file_path, frame_count, created_at`

// GetSession implements SessionStore.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (model.Session, error) {
	defer s.observe("get_session", time.Now())

	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("get session %s: %w", id, err)
	}
	return sess, nil
}

// ListSessions implements SessionStore. Ties on created_at fall back to
// insertion order so the newest write always comes first.
func (s *SQLiteStore) ListSessions(ctx context.Context, athleteID string, limit int) ([]model.Session, error) {
	defer s.observe("list_sessions", time.Now())

	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	var (
		rows *sql.Rows
		err  error
	)
	if athleteID == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+sessionColumns+` FROM sessions ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+sessionColumns+` FROM sessions WHERE athlete_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
			athleteID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]model.Session, 0, limit)
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

// UpsertProfile implements ProfileStore with a single
// INSERT ... ON CONFLICT statement that never touches created_at.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, p *model.AthleteProfile) (string, error) {
	defer s.observe("upsert_profile", time.Now())

	if err := p.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", apperr.ErrValidation, err)
	}

	id := p.ID
	if id == "" {
		id = s.newID()
	}
	now := s.now()

	const query = `
		INSERT INTO athletes (id, name, age, height_cm, weight_kg, sport, level, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			age = excluded.age,
			height_cm = excluded.height_cm,
			weight_kg = excluded.weight_kg,
			sport = excluded.sport,
			level = excluded.level,
			updated_at = excluded.updated_at
		RETURNING created_at
	`

	var createdAt int64
	s.writeMu.Lock()
	err := s.db.QueryRowContext(ctx, query,
		id, p.Name, nullInt(p.Age), nullFloat(p.HeightCm), nullFloat(p.WeightKg), nullStringPtr(p.Sport), nullStringPtr(p.Level),
		now.UnixNano(), now.UnixNano(),
	).Scan(&createdAt)
	s.writeMu.Unlock()
	if err != nil {
		return "", fmt.Errorf("upsert athlete %s: %w", id, err)
	}

	p.ID = id
	p.CreatedAt = fromNanos(createdAt)
	p.UpdatedAt = now
	return id, nil
}

// GetProfile implements ProfileStore.
func (s *SQLiteStore) GetProfile(ctx context.Context, id string) (model.AthleteProfile, error) {
	defer s.observe("get_profile", time.Now())

	const query = `
		SELECT id, name, age, height_cm, weight_kg, sport, level, created_at, updated_at
		FROM athletes WHERE id = ?
	`

	var (
		p                    model.AthleteProfile
		age                  sql.NullInt64
		height, weight       sql.NullFloat64
		sportName, level     sql.NullString
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &age, &height, &weight, &sportName, &level, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AthleteProfile{}, ErrProfileNotFound
	}
	if err != nil {
		return model.AthleteProfile{}, fmt.Errorf("get athlete %s: %w", id, err)
	}

	if age.Valid {
		v := int(age.Int64)
		p.Age = &v
	}
	if height.Valid {
		p.HeightCm = &height.Float64
	}
	if weight.Valid {
		p.WeightKg = &weight.Float64
	}
	if sportName.Valid {
		p.Sport = &sportName.String
	}
	if level.Valid {
		p.Level = &level.String
	}
	p.CreatedAt = fromNanos(createdAt)
	p.UpdatedAt = fromNanos(updatedAt)
	return p, nil
}

// Counts implements Store.
func (s *SQLiteStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM sessions), (SELECT COUNT(*) FROM athletes)`,
	).Scan(&c.Sessions, &c.Profiles)
	if err != nil {
		return Counts{}, fmt.Errorf("count rows: %w", err)
	}
	return c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (model.Session, error) {
	var (
		sess                   model.Session
		athleteID, filePath    sql.NullString
		scores, mets, insights string
		createdAt              int64
	)
	if err := row.Scan(
		&sess.ID, &athleteID, &sess.Sport, &sess.Overall,
		&scores, &mets, &insights, &filePath, &sess.FrameCount, &createdAt,
	); err != nil {
		return model.Session{}, err
	}

	if err := json.Unmarshal([]byte(scores), &sess.Scores); err != nil {
		return model.Session{}, fmt.Errorf("decode scores: %w", err)
	}
	if err := json.Unmarshal([]byte(mets), &sess.Metrics); err != nil {
		return model.Session{}, fmt.Errorf("decode metrics: %w", err)
	}
	if err := json.Unmarshal([]byte(insights), &sess.Insights); err != nil {
		return model.Session{}, fmt.Errorf("decode insights: %w", err)
	}
	if sess.Insights == nil {
		sess.Insights = []string{}
	}
	sess.AthleteID = athleteID.String
	sess.FilePath = filePath.String
	sess.CreatedAt = fromNanos(createdAt)
	return sess, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
