package server

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// lockedRand serialises access to a *rand.Rand, which is not safe for
// concurrent use. Lobbies draw from it under their own locks, so several may
// call in at once.
type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newLockedRand(rng *rand.Rand) *lockedRand {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &lockedRand{rng: rng}
}

func (r *lockedRand) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

func (r *lockedRand) Int63() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Int63()
}

// intBetween draws an integer uniformly from [lo, hi].
func (r *lockedRand) intBetween(lo, hi float64) float64 {
	from := math.Ceil(lo)
	to := math.Floor(hi)
	if to <= from {
		return from
	}
	return from + float64(r.Intn(int(to-from)+1))
}

func (r *lockedRand) pointIn(area Rect) (float64, float64) {
	return r.intBetween(area.MinX, area.MaxX), r.intBetween(area.MinY, area.MaxY)
}

func (r *lockedRand) lobbyCode() int {
	return lobbyCodeMin + r.Intn(lobbyCodeSpan)
}

// gameID returns a random positive id.
func (r *lockedRand) gameID() int64 {
	for {
		if id := r.Int63(); id > 0 {
			return id
		}
	}
}
