package usecase

import "errors"

var (
	// ErrInvalidRequest wraps every validation failure of an extraction request.
	ErrInvalidRequest = errors.New("invalid extraction request")
	// ErrJobNotFound is returned for an unknown job ID.
	ErrJobNotFound = errors.New("job not found")
)
