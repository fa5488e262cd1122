package probe

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/formcoach/internal/adapters/http/api"
	"github.com/okian/formcoach/internal/adapters/repository"
	service "github.com/okian/formcoach/internal/app"
	"github.com/okian/formcoach/internal/domain/model"
	"github.com/okian/formcoach/internal/domain/scoring"
	"github.com/okian/formcoach/internal/domain/sport"
	"github.com/okian/formcoach/pkg/logger"
)

func init() {
	logger.SetOutput(&bytes.Buffer{})
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// brokenStore fails its health check.
type brokenStore struct {
	*repository.MemoryStore
}

func (brokenStore) Ping(context.Context) error { return errors.New("disk gone") }

func newServer(store repository.Store) *httptest.Server {
	svc := service.New(
		service.WithLogger(logger.Nop()),
		service.WithEngine(scoring.NewEngine(sport.NewRegistry(),
			scoring.WithFallback(scoring.NewPlaceholder(scoring.WithSeed(5))))),
		service.WithStore(store),
	)
	mux := http.NewServeMux()
	api.NewServer(svc).Register(mux)
	return httptest.NewServer(mux)
}

func probeConfig(base string) *Config {
	return &Config{
		BaseURL:  base,
		Athletes: 3,
		Analyses: 12,
		Workers:  4,
		Limit:    3,
		Timeout:  5 * time.Second,
		Seed:     42,
	}
}

func TestRun(t *testing.T) {
	Convey("Given a server backed by a memory store", t, func() {
		srv := newServer(repository.NewMemoryStore())
		defer srv.Close()

		Convey("When the probe runs", func() {
			var out bytes.Buffer
			stats, err := Run(context.Background(), probeConfig(srv.URL), &out)

			Convey("Then every request lands and every listing verifies", func() {
				So(err, ShouldBeNil)
				So(stats.ProfilesCreated, ShouldEqual, 3)
				So(stats.AnalysesSubmitted, ShouldEqual, 12)
				So(stats.AnalysesStored, ShouldEqual, 12)
				So(stats.AnalysesFailed, ShouldEqual, 0)
				So(stats.ListingsVerified, ShouldEqual, 3)
				So(stats.ListingProblems, ShouldBeEmpty)
				So(out.String(), ShouldContainSubstring, "analyses stored")
			})
		})

		Convey("When the probe is paced", func() {
			cfg := probeConfig(srv.URL)
			cfg.Analyses = 6
			cfg.RPS = 1000

			stats, err := Run(context.Background(), cfg, &bytes.Buffer{})

			Convey("Then it still completes", func() {
				So(err, ShouldBeNil)
				So(stats.AnalysesStored, ShouldEqual, 6)
			})
		})
	})

	Convey("Given a server without storage", t, func() {
		srv := newServer(repository.Unavailable{})
		defer srv.Close()

		Convey("When the probe runs", func() {
			stats, err := Run(context.Background(), probeConfig(srv.URL), &bytes.Buffer{})

			Convey("Then analyses are served but not stored and verification is skipped", func() {
				So(err, ShouldBeNil)
				So(stats.ProfilesFailed, ShouldEqual, 3)
				So(stats.AnalysesUnstored, ShouldEqual, 12)
				So(stats.ListingsVerified, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a server whose store fails its ping", t, func() {
		srv := newServer(brokenStore{MemoryStore: repository.NewMemoryStore()})
		defer srv.Close()

		Convey("When the probe runs", func() {
			_, err := Run(context.Background(), probeConfig(srv.URL), &bytes.Buffer{})

			Convey("Then it stops at the health check", func() {
				So(errors.Is(err, ErrUnhealthy), ShouldBeTrue)
			})
		})
	})

	Convey("Given an invalid configuration", t, func() {
		cfg := probeConfig("http://127.0.0.1:0")
		cfg.Workers = 0

		Convey("Then Run refuses to start", func() {
			_, err := Run(context.Background(), cfg, &bytes.Buffer{})
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		})
	})
}

func TestVerifyListing(t *testing.T) {
	Convey("Given a listing for one athlete", t, func() {
		now := time.Now()
		sessions := []model.Session{
			{ID: "s3", AthleteID: "a", Overall: 80, CreatedAt: now},
			{ID: "s2", AthleteID: "a", Overall: 70, CreatedAt: now.Add(-time.Second)},
		}

		Convey("When it is newest first and complete", func() {
			So(verifyListing(sessions, "a", 5, 2), ShouldBeEmpty)
		})

		Convey("When it is out of order", func() {
			sessions[1].CreatedAt = now.Add(time.Second)
			So(verifyListing(sessions, "a", 5, 2), ShouldHaveLength, 1)
		})

		Convey("When it exceeds the limit", func() {
			So(verifyListing(sessions, "a", 1, 1), ShouldHaveLength, 2)
		})

		Convey("When a session belongs to someone else", func() {
			sessions[0].AthleteID = "b"
			problems := verifyListing(sessions, "a", 5, 2)
			So(problems, ShouldHaveLength, 1)
			So(problems[0], ShouldContainSubstring, `"b"`)
		})
	})
}

func TestGenerator(t *testing.T) {
	Convey("Given a seeded generator", t, func() {
		gen := newGenerator(9)

		Convey("Then analyses rotate over athletes and input styles", func() {
			reqs := gen.analyses(6, []string{"a", "b"})
			So(reqs, ShouldHaveLength, 6)
			So(reqs[0].AthleteID, ShouldEqual, "a")
			So(reqs[1].AthleteID, ShouldEqual, "b")
			So(reqs[0].Scores, ShouldNotBeNil)
			So(reqs[0].Scores.Validate(), ShouldBeNil)
			So(reqs[0].Metrics.Validate(), ShouldBeNil)
			So(reqs[1].Frames, ShouldNotBeEmpty)
			So(reqs[2].FrameCount, ShouldBeGreaterThan, 0)
		})

		Convey("Then profiles carry a name", func() {
			for _, p := range gen.profiles(4) {
				So(p.Name, ShouldNotBeBlank)
				So(*p.Age, ShouldBeBetweenOrEqual, 14, 45)
			}
		})
	})
}
