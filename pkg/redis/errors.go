package redis

import "errors"

var (
	// ErrFailedToParseRedisConnString is returned for an invalid connection URL.
	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection string")

	// ErrRedisNotReady is returned when every connection attempt failed.
	ErrRedisNotReady = errors.New("redis did not become ready within the given time period")

	// ErrEmptyConnectionURL is returned when the connection URL is missing.
	ErrEmptyConnectionURL = errors.New("empty redis connection URL")

	// ErrHealthcheckFailed wraps ping failures from the health probe.
	ErrHealthcheckFailed = errors.New("redis healthcheck failed")
)
