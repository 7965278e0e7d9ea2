package redis

import "errors"

// ErrNotConfigured is returned by NewRedisClient when no host is set.
var ErrNotConfigured = errors.New("redis host not configured")
