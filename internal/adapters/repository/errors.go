package repository

import (
	"fmt"

	"github.com/okian/formcoach/internal/domain/apperr"
)

// Sentinel kinds for store errors. Each wraps an apperr kind.
var (
	ErrSessionNotFound = fmt.Errorf("session %w", apperr.ErrNotFound)
	ErrProfileNotFound = fmt.Errorf("athlete %w", apperr.ErrNotFound)
	ErrInvalidLimit    = fmt.Errorf("%w: limit must be positive", apperr.ErrValidation)
	ErrStorageDisabled = fmt.Errorf("storage %w", apperr.ErrUnavailable)
)
