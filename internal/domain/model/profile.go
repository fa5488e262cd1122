package model

import (
	"errors"
	"strings"
	"time"
)

// ErrNameRequired is returned for a profile without a usable name.
var ErrNameRequired = errors.New("name is required")

// AthleteProfile describes an athlete. Optional fields are nil when unknown;
// an upsert replaces every field, so omitting one clears it.
type AthleteProfile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Age       *int      `json:"age"`
	HeightCm  *float64  `json:"heightCm"`
	WeightKg  *float64  `json:"weightKg"`
	Sport     *string   `json:"sport"`
	Level     *string   `json:"level"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks the fields required before any write.
func (p AthleteProfile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrNameRequired
	}
	return nil
}
