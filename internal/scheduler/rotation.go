package scheduler

import (
	"math/rand"
	"sync"

	"github.com/ignite/outreach-engine/internal/domain"
)

// Rotation is a keyed monotonic counter arena. Round-robin inbox selection
// takes the counter modulo the currently available list, so inboxes dropping
// in and out of eligibility shift the cycle without skipping anyone twice.
type Rotation struct {
	mu   sync.Mutex
	next map[string]uint64
}

func NewRotation() *Rotation {
	return &Rotation{next: make(map[string]uint64)}
}

// Next returns the counter for key and advances it.
func (r *Rotation) Next(key string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.next[key]
	r.next[key] = n + 1
	return n
}

// Pick selects the counter-th element of items, wrapping around.
// Returns -1 for an empty list.
func (r *Rotation) Pick(key string, n int) int {
	if n <= 0 {
		return -1
	}
	return int(r.Next(key) % uint64(n))
}

// PickVariant draws a step variant proportionally to weight. Negative weights
// count as zero. When every weight is zero the first variant wins, so a step
// configured without weights still sends deterministically. An empty list
// returns nil and the caller falls back to the step's own subject and body.
func PickVariant(variants []domain.StepVariant, rng *rand.Rand) *domain.StepVariant {
	if len(variants) == 0 {
		return nil
	}
	total := 0
	for _, v := range variants {
		if v.Weight > 0 {
			total += v.Weight
		}
	}
	if total == 0 {
		return &variants[0]
	}
	r := rng.Intn(total)
	for i := range variants {
		w := variants[i].Weight
		if w < 0 {
			w = 0
		}
		r -= w
		if r < 0 {
			return &variants[i]
		}
	}
	return &variants[len(variants)-1]
}
