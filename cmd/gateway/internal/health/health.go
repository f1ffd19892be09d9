// Package health tracks the Gateway's own degraded signal: whether its
// broadcast feed (Fan-out Bridge subscription or mock emitter) is still
// running.
package health

import "sync/atomic"

type Tracker struct {
	v atomic.Bool
}

func New() *Tracker {
	t := &Tracker{}
	t.v.Store(true)
	return t
}

func (t *Tracker) Set(healthy bool) { t.v.Store(healthy) }
func (t *Tracker) Healthy() bool    { return t.v.Load() }
