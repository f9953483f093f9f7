package domain

import "errors"

var (
	ErrConfigValidation = errors.New("invalid statistics config")
	ErrConfigMissing    = errors.New("missing statistics config")
	ErrConfigRead       = errors.New("failed to read statistics config")
	ErrConfigWrite      = errors.New("failed to write statistics config")
	ErrValidation       = errors.New("invalid telemetry payload")
	ErrEncodePayload    = errors.New("failed to encode telemetry payload")
	ErrCreateRequest    = errors.New("failed to create new request")
	ErrNetwork          = errors.New("statistics endpoint unreachable")
	ErrTimeout          = errors.New("statistics endpoint timed out")
	ErrNotInitialized   = errors.New("statistics reporter is not initialized")
)
