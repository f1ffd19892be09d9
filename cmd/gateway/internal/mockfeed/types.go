package mockfeed

import (
	"math/rand"
	"time"
)

// Clock and Rand are swapped for deterministic fakes in tests; main
// wires the Real variants.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type Rand interface {
	Intn(n int) int
	Float64() float64
}

type RealClock struct{}

func (RealClock) Now() time.Time        { return time.Now() }
func (RealClock) Sleep(d time.Duration) { time.Sleep(d) }

type RealRand struct{ *rand.Rand }

func (r RealRand) Intn(n int) int   { return r.Rand.Intn(n) }
func (r RealRand) Float64() float64 { return r.Rand.Float64() }
