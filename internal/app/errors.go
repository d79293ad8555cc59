package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted        = errors.New("service not started")
	ErrBackpressure      = errors.New("backpressure")
	ErrInvalidSubmission = errors.New("invalid submission")
)
