package upstream

import "errors"

var errStale = errors.New("upstream: connection stale, no pong received")
