package island

import (
	"math/rand"
	"sync"
	"time"
)

//Clock is the single time source of the engine
//all timing rules (starvation, reproduction cooldown) read it, never the wall clock directly
type Clock interface {
	Now() time.Time
}

//SystemClock reads the wall clock, time.Now carries a monotonic reading
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

//ManualClock is the virtual clock, it only moves when told to
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

//Advance moves the clock forward by d
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

//Dice is the random source used by the engine, *rand.Rand satisfies it
type Dice interface {
	Intn(n int) int
	Float64() float64
	Int63() int64
}

//NewRand creates the random source, seed 0 means time-based
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
