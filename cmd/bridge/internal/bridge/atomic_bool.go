package bridge

import "sync/atomic"

type atomicBool struct{ v atomic.Bool }

func (b *atomicBool) set(value bool) { b.v.Store(value) }
func (b *atomicBool) get() bool      { return b.v.Load() }
