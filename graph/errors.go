package graph

import "errors"

// ErrInvalidRetryPolicy indicates a RetryPolicy's fields are internally
// inconsistent (see RetryPolicy.Validate).
var ErrInvalidRetryPolicy = errors.New("graph: invalid retry policy")

// ErrUnknownChannel indicates a reducer or version lookup referenced a
// channel name that isn't registered.
var ErrUnknownChannel = errors.New("graph: unknown channel")
