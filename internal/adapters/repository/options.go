package repository

import (
	"time"

	"github.com/google/uuid"

	"github.com/okian/formcoach/pkg/metrics"
)

// common carries the collaborators shared by every backend.
type common struct {
	now   func() time.Time
	newID func() string
}

func defaultCommon() common {
	return common{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// observe records the latency of one storage call.
func (common) observe(op string, start time.Time) {
	metrics.RecordStorageLatency(op, metrics.Since(start))
}

// Option applies a configuration option to a store.
type Option func(*common)

// WithClock sets the time source used for created/updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *common) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIDGenerator sets the generator for new session and athlete ids.
func WithIDGenerator(gen func() string) Option {
	return func(c *common) {
		if gen != nil {
			c.newID = gen
		}
	}
}
