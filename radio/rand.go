package radio

import (
	"math/rand/v2"
	"sync"
	"time"
)

// RandSource is the randomness the engine needs. *rand.Rand satisfies it.
type RandSource interface {
	IntN(n int) int
}

// LockedRand makes a RandSource safe for concurrent sessions.
type LockedRand struct {
	mu  sync.Mutex
	src RandSource
}

func NewLockedRand(src RandSource) *LockedRand {
	return &LockedRand{src: src}
}

// NewSeededRand returns a deterministic source for the given seed.
func NewSeededRand(seed uint64) *LockedRand {
	return NewLockedRand(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// NewEntropyRand returns a source seeded from the clock and the runtime generator.
func NewEntropyRand() *LockedRand {
	return NewSeededRand(uint64(time.Now().UnixNano()) ^ rand.Uint64())
}

func (r *LockedRand) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.IntN(n)
}
