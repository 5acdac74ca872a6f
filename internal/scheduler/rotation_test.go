package scheduler

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/outreach-engine/internal/domain"
)

func TestRotationCountsPerKey(t *testing.T) {
	r := NewRotation()
	assert.Equal(t, uint64(0), r.Next("a"))
	assert.Equal(t, uint64(1), r.Next("a"))
	assert.Equal(t, uint64(0), r.Next("b"), "keys are independent")
	assert.Equal(t, uint64(2), r.Next("a"))
}

func TestRotationPickWrapsAround(t *testing.T) {
	r := NewRotation()
	var picks []int
	for i := 0; i < 7; i++ {
		picks = append(picks, r.Pick("k", 3))
	}
	assert.Equal(t, []int{0, 1, 2, 0, 1, 2, 0}, picks)
	assert.Equal(t, -1, r.Pick("k", 0))
}

func TestPickVariantWeightedConvergence(t *testing.T) {
	variants := []domain.StepVariant{
		{ID: "a", Weight: 50},
		{ID: "b", Weight: 50},
	}
	rng := rand.New(rand.NewSource(7))

	counts := map[string]int{}
	for i := 0; i < 10000; i++ {
		v := PickVariant(variants, rng)
		require.NotNil(t, v)
		counts[v.ID]++
	}
	assert.InDelta(t, 5000, counts["a"], 500)
	assert.InDelta(t, 5000, counts["b"], 500)
}

func TestPickVariantSkewedWeights(t *testing.T) {
	variants := []domain.StepVariant{
		{ID: "a", Weight: 90},
		{ID: "b", Weight: 10},
	}
	rng := rand.New(rand.NewSource(7))

	counts := map[string]int{}
	for i := 0; i < 10000; i++ {
		counts[PickVariant(variants, rng).ID]++
	}
	assert.InDelta(t, 9000, counts["a"], 400)
}

func TestPickVariantZeroTotalWeight(t *testing.T) {
	variants := []domain.StepVariant{
		{ID: "a", Weight: 0},
		{ID: "b", Weight: 0},
	}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		assert.Equal(t, "a", PickVariant(variants, rng).ID)
	}
}

func TestPickVariantNegativeWeightIgnored(t *testing.T) {
	variants := []domain.StepVariant{
		{ID: "a", Weight: -5},
		{ID: "b", Weight: 10},
	}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		assert.Equal(t, "b", PickVariant(variants, rng).ID)
	}
}

func TestPickVariantEmptyList(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.Nil(t, PickVariant(nil, rng))
}
