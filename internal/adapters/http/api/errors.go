package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrRateLimited    = errors.New("rate limited")
	ErrUploadTooLarge = errors.New("upload too large")
)
