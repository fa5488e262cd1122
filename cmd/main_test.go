package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/formcoach/internal/adapters/http/api"
	"github.com/okian/formcoach/internal/adapters/http/swagger"
	"github.com/okian/formcoach/internal/adapters/media"
	"github.com/okian/formcoach/internal/adapters/repository"
	service "github.com/okian/formcoach/internal/app"
	"github.com/okian/formcoach/internal/config"
	"github.com/okian/formcoach/internal/domain/model"
	"github.com/okian/formcoach/internal/domain/scoring"
	"github.com/okian/formcoach/internal/domain/sport"
	"github.com/okian/formcoach/pkg/logger"
	"github.com/okian/formcoach/pkg/metrics"
)

func TestRootCommand(t *testing.T) {
	convey.Convey("Given the root command", t, func() {
		root := newRootCommand()

		convey.Convey("Then serve, migrate and sports are registered", func() {
			names := map[string]bool{}
			for _, c := range root.Commands() {
				names[c.Name()] = true
			}
			convey.So(names["serve"], convey.ShouldBeTrue)
			convey.So(names["migrate"], convey.ShouldBeTrue)
			convey.So(names["sports"], convey.ShouldBeTrue)
		})
	})
}

func TestBuildRegistry(t *testing.T) {
	convey.Convey("Given a config with a custom sport", t, func() {
		cfg := config.New()
		cfg.Sports["rowing"] = config.SportConfig{
			DisplayName: "Rowing",
			Weights:     map[string]float64{"form": 0.3, "power": 0.3, "consistency": 0.2, "balance": 0.1, "timing": 0.1},
		}

		convey.Convey("When the registry is built", func() {
			registry, err := buildRegistry(cfg)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the sport sits beside the built-ins", func() {
				convey.So(registry.Has("rowing"), convey.ShouldBeTrue)
				convey.So(registry.Lookup("rowing").DisplayName, convey.ShouldEqual, "Rowing")
				convey.So(registry.Has(sport.DefaultKey), convey.ShouldBeTrue)
				convey.So(registry.Validate(), convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When a weight names an unknown dimension", func() {
			cfg.Sports["rowing"] = config.SportConfig{Weights: map[string]float64{"reach": 1}}
			_, err := buildRegistry(cfg)

			convey.Convey("Then the config is rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func TestBuildEngine(t *testing.T) {
	convey.Convey("Given the placeholder scoring mode", t, func() {
		cfg := config.New()
		cfg.Scoring.Mode = config.ModePlaceholder
		cfg.Scoring.Seed = 11
		engine := buildEngine(cfg, sport.NewRegistry())

		convey.Convey("Then frames are ignored in favour of placeholder values", func() {
			est, err := engine.Measure(context.Background(), []model.Frame{{KneeAngle: 120, HipAngle: 150, ArmAngle: 90, Velocity: 5}})
			convey.So(err, convey.ShouldBeNil)
			convey.So(est.Source, convey.ShouldEqual, scoring.SourcePlaceholder)
		})
	})

	convey.Convey("Given the frames scoring mode", t, func() {
		engine := buildEngine(config.New(), sport.NewRegistry())

		convey.Convey("Then frames drive the estimate", func() {
			est, err := engine.Measure(context.Background(), []model.Frame{{KneeAngle: 120, HipAngle: 150, ArmAngle: 90, Velocity: 5}})
			convey.So(err, convey.ShouldBeNil)
			convey.So(est.Source, convey.ShouldEqual, scoring.SourceFrames)
		})

		convey.Convey("And an empty request falls back to placeholder values", func() {
			est, err := engine.Measure(context.Background(), nil)
			convey.So(err, convey.ShouldBeNil)
			convey.So(est.Source, convey.ShouldEqual, scoring.SourcePlaceholder)
		})
	})
}

func TestOpenStore(t *testing.T) {
	convey.Convey("Given each storage driver", t, func() {
		ctx := context.Background()
		cfg := config.New()

		convey.Convey("When the driver is memory", func() {
			cfg.Storage.Driver = config.DriverMemory
			store, err := openStore(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			convey.So(store.Name(), convey.ShouldEqual, "memory")
		})

		convey.Convey("When the driver is none", func() {
			cfg.Storage.Driver = config.DriverNone
			store, err := openStore(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			convey.So(store.Name(), convey.ShouldEqual, repository.UnavailableName)
		})

		convey.Convey("When the driver is sqlite", func() {
			cfg.Storage.Path = filepath.Join(t.TempDir(), "db", "formcoach.db")
			store, err := openStore(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = store.Close() }()

			convey.So(store.Name(), convey.ShouldEqual, "sqlite")
			convey.So(store.Ping(ctx), convey.ShouldBeNil)
		})
	})
}

func TestOpenFileStore(t *testing.T) {
	convey.Convey("Given upload settings", t, func() {
		cfg := config.New()

		convey.Convey("When uploads are disabled", func() {
			files, err := openFileStore(cfg)
			convey.So(err, convey.ShouldBeNil)
			_, ok := files.(media.Unavailable)
			convey.So(ok, convey.ShouldBeTrue)
		})

		convey.Convey("When uploads are enabled", func() {
			cfg.Uploads.Enabled = true
			cfg.Uploads.Dir = filepath.Join(t.TempDir(), "uploads")
			files, err := openFileStore(cfg)
			convey.So(err, convey.ShouldBeNil)
			disk, ok := files.(*media.DiskStore)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(disk.Dir(), convey.ShouldEqual, cfg.Uploads.Dir)
		})
	})
}

func TestRunMigrate(t *testing.T) {
	convey.Convey("Given a fresh database file", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "migrate.db")
		var out bytes.Buffer

		convey.Convey("When version is read before any migration", func() {
			convey.So(runMigrate(ctx, path, migrateVersion, &out), convey.ShouldBeNil)
			convey.So(out.String(), convey.ShouldContainSubstring, "schema version 0")
		})

		convey.Convey("When migrated up and then down", func() {
			convey.So(runMigrate(ctx, path, migrateUp, &out), convey.ShouldBeNil)
			convey.So(out.String(), convey.ShouldContainSubstring, "schema version 1 (dirty=false)")

			out.Reset()
			convey.So(runMigrate(ctx, path, migrateDown, &out), convey.ShouldBeNil)
			convey.So(out.String(), convey.ShouldContainSubstring, "schema version 0")
		})

		convey.Convey("When the action is unknown", func() {
			err := runMigrate(ctx, path, "sideways", &out)
			convey.So(errors.Is(err, ErrUnknownMigrateAction), convey.ShouldBeTrue)
		})
	})
}

func TestRenderSports(t *testing.T) {
	convey.Convey("Given the built-in registry", t, func() {
		var out bytes.Buffer
		renderSports(&out, sport.NewRegistry())

		convey.Convey("Then every sport is listed with a valid weight sum", func() {
			s := out.String()
			convey.So(s, convey.ShouldContainSubstring, "running")
			convey.So(s, convey.ShouldContainSubstring, "Weightlifting")
			convey.So(s, convey.ShouldContainSubstring, "1.000")
			convey.So(s, convey.ShouldNotContainSubstring, " NO ")
			convey.So(s, convey.ShouldContainSubstring, "TOTAL: 12 SPORTS")
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When testing system metrics updater", func() {
			convey.Convey("Then it should return once the context ends", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startSystemMetricsUpdater(ctx)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing system metrics update", func() {
			convey.Convey("Then it should update metrics without panicking", func() {
				convey.So(func() {
					updateSystemMetrics()
				}, convey.ShouldNotPanic)
			})
		})
	})
}

func TestConfigureMetrics(t *testing.T) {
	convey.Convey("Given a metrics config section", t, func() {
		defer configureMetrics(config.New())
		cfg := config.New()
		cfg.Metrics.Namespace = "coach"
		cfg.Metrics.Labels = map[string]string{"instance": "a"}
		cfg.Metrics.RefreshIntervalMS = 1500

		convey.Convey("When metrics are enabled", func() {
			configureMetrics(cfg)
			metrics.RecordSessionWrite()

			convey.Convey("Then series use the configured names and labels", func() {
				families, err := metrics.GetRegistry().Gather()
				convey.So(err, convey.ShouldBeNil)
				convey.So(families, convey.ShouldNotBeEmpty)
				for _, f := range families {
					convey.So(strings.HasPrefix(f.GetName(), "coach_engine_"), convey.ShouldBeTrue)
					convey.So(f.GetMetric()[0].GetLabel()[0].GetValue(), convey.ShouldEqual, "a")
				}
				convey.So(metrics.RefreshInterval(), convey.ShouldEqual, 1500*time.Millisecond)
			})
		})

		convey.Convey("When metrics are disabled", func() {
			cfg.Metrics.Enabled = false
			configureMetrics(cfg)
			metrics.RecordSessionWrite()
			metrics.RecordHTTPRequest("/v1/analyze", "POST", "200")

			convey.Convey("Then nothing is recorded", func() {
				families, err := metrics.GetRegistry().Gather()
				convey.So(err, convey.ShouldBeNil)
				for _, f := range families {
					for _, m := range f.GetMetric() {
						convey.So(m.GetCounter().GetValue(), convey.ShouldEqual, 0)
					}
				}
			})
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given the wired application on a memory store", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.Storage.Driver = config.DriverMemory

		store, err := openStore(ctx, cfg)
		convey.So(err, convey.ShouldBeNil)
		registry, err := buildRegistry(cfg)
		convey.So(err, convey.ShouldBeNil)

		svc := service.New(
			service.WithLogger(logger.Nop()),
			service.WithEngine(buildEngine(cfg, registry)),
			service.WithStore(store),
		)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		mux := http.NewServeMux()
		swagger.Register(ctx, mux)
		api.NewServer(svc, api.WithAnalyzeRateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst)).Register(mux)

		convey.Convey("Then the health and docs routes answer", func() {
			for _, path := range []string{"/healthz", "/openapi.yaml", "/api-docs", "/v1/sports"} {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})
	})
}
