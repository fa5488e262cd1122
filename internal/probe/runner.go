package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/okian/formcoach/internal/adapters/http/api"
	"github.com/okian/formcoach/internal/adapters/repository"
	service "github.com/okian/formcoach/internal/app"
	"github.com/okian/formcoach/pkg/logger"
)

// Probe errors.
var (
	ErrInvalidConfig      = errors.New("invalid probe config")
	ErrUnhealthy          = errors.New("service is not healthy")
	ErrVerificationFailed = errors.New("session listing verification failed")
)

// Run executes the complete probe and writes a summary table to out.
func Run(ctx context.Context, cfg *Config, out io.Writer) (*Stats, error) {
	if cfg.Workers < 1 || cfg.Analyses < 0 || cfg.Athletes < 0 || cfg.Limit < 1 {
		return nil, fmt.Errorf("%w: workers and limit must be positive, counts must not be negative", ErrInvalidConfig)
	}

	log := logger.Named("probe")
	stats := &Stats{StartTime: time.Now()}
	c := newClient(cfg.BaseURL, cfg.Timeout, cfg.RPS, cfg.Workers)
	gen := newGenerator(cfg.Seed)

	log.Info(ctx, "starting formcoach probe",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("athletes", cfg.Athletes),
		logger.Int("analyses", cfg.Analyses),
		logger.Int("workers", cfg.Workers),
		logger.Float64("rps", cfg.RPS),
	)

	// Step 1: Check service health
	storage, err := checkHealth(ctx, c)
	if err != nil {
		return stats, err
	}
	log.Info(ctx, "service is healthy", logger.String("storage", storage))

	// Step 2: Create athletes
	athleteIDs := createProfiles(ctx, c, cfg, gen.profiles(cfg.Athletes), stats)

	// Step 3: Submit analyses concurrently
	stored := submitAnalyses(ctx, c, cfg, gen.analyses(cfg.Analyses, athleteIDs), stats)

	// Step 4: Verify listings
	if storage == repository.UnavailableName {
		log.Warn(ctx, "storage is disabled; skipping listing verification")
	} else {
		verifyListings(ctx, c, cfg, athleteIDs, stored, stats)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	renderSummary(out, stats)

	if len(stats.ListingProblems) > 0 {
		for _, p := range stats.ListingProblems {
			log.Error(ctx, "listing problem", logger.String("problem", p))
		}
		return stats, fmt.Errorf("%w: %d problem(s)", ErrVerificationFailed, len(stats.ListingProblems))
	}
	log.Info(ctx, "probe completed successfully", logger.Duration("duration", stats.Duration))
	return stats, nil
}

// checkHealth verifies the service is up and returns its storage backend.
func checkHealth(ctx context.Context, c *client) (string, error) {
	var h api.HealthResponse
	if err := c.getJSON(ctx, "/healthz", &h); err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if h.Status != "ok" {
		return "", fmt.Errorf("%w: status %q", ErrUnhealthy, h.Status)
	}
	return h.Storage, nil
}

// fanOut runs fn for every index in [0,n) on workers goroutines.
func fanOut(ctx context.Context, workers, n int, fn func(i int)) {
	jobs := make(chan int, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(i)
			}
		}()
	}

	func() {
		defer close(jobs)
		for i := 0; i < n; i++ {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()
	wg.Wait()
}

// createProfiles stores every profile and returns the ids that were assigned.
func createProfiles(ctx context.Context, c *client, cfg *Config, profiles []service.ProfileRequest, stats *Stats) []string {
	log := logger.Named("probe")
	ids := make([]string, len(profiles))
	var mu sync.Mutex

	fanOut(ctx, cfg.Workers, len(profiles), func(i int) {
		var ack api.UpsertResponse
		err := c.postJSON(ctx, "/v1/profiles", profiles[i], &ack)

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			stats.ProfilesFailed++
			if cfg.Verbose {
				log.Warn(ctx, "profile upsert failed", logger.Int("index", i), logger.Error(err))
			}
			return
		}
		stats.ProfilesCreated++
		ids[i] = ack.ID
	})

	created := ids[:0]
	for _, id := range ids {
		if id != "" {
			created = append(created, id)
		}
	}
	return created
}

// submitAnalyses posts every request and returns the stored session count
// per athlete.
func submitAnalyses(ctx context.Context, c *client, cfg *Config, reqs []service.AnalyzeRequest, stats *Stats) map[string]int {
	log := logger.Named("probe")
	stored := make(map[string]int)
	var mu sync.Mutex

	fanOut(ctx, cfg.Workers, len(reqs), func(i int) {
		var resp service.AnalysisResponse
		err := c.postJSON(ctx, "/v1/analyze", reqs[i], &resp)

		mu.Lock()
		defer mu.Unlock()
		stats.AnalysesSubmitted++

		var se *StatusError
		switch {
		case errors.As(err, &se) && se.Code == http.StatusTooManyRequests:
			stats.RateLimited++
		case err != nil:
			stats.AnalysesFailed++
			if cfg.Verbose {
				log.Warn(ctx, "analysis failed", logger.Int("index", i), logger.Error(err))
			}
		case resp.SessionID == "":
			stats.AnalysesUnstored++
		default:
			stats.AnalysesStored++
			stored[reqs[i].AthleteID]++
		}
	})
	return stored
}

// verifyListings checks each athlete's history against what was stored.
func verifyListings(ctx context.Context, c *client, cfg *Config, athleteIDs []string, stored map[string]int, stats *Stats) {
	for _, id := range athleteIDs {
		q := url.Values{"athleteId": {id}, "limit": {strconv.Itoa(cfg.Limit)}}
		var list api.SessionList
		if err := c.getJSON(ctx, "/v1/sessions?"+q.Encode(), &list); err != nil {
			stats.ListingProblems = append(stats.ListingProblems, fmt.Sprintf("athlete %s: %v", id, err))
			continue
		}
		stats.ListingsVerified++
		want := min(stored[id], cfg.Limit)
		for _, problem := range verifyListing(list.Sessions, id, cfg.Limit, want) {
			stats.ListingProblems = append(stats.ListingProblems, fmt.Sprintf("athlete %s: %s", id, problem))
		}
	}
}
