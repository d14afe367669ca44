package world

import (
	"fmt"
	randv2 "math/rand/v2"
)

// RNG is the world's random source. It rides along in save snapshots so a
// loaded game continues the exact random sequence it would have produced.
type RNG struct {
	src *randv2.PCG
	r   *randv2.Rand
}

func NewRNG(seed int64) *RNG {
	src := randv2.NewPCG(uint64(seed), uint64(seed)*0x9e3779b97f4a7c15+1)
	return &RNG{src: src, r: randv2.New(src)}
}

func (g *RNG) IntN(n int) int { return g.r.IntN(n) }
func (g *RNG) Float64() float64 { return g.r.Float64() }
func (g *RNG) Perm(n int) []int { return g.r.Perm(n) }

// State serializes the generator position.
func (g *RNG) State() ([]byte, error) {
	state, err := g.src.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal rng state: %w", err)
	}
	return state, nil
}

// SetState restores a previously serialized generator position.
func (g *RNG) SetState(state []byte) error {
	if err := g.src.UnmarshalBinary(state); err != nil {
		return fmt.Errorf("restore rng state: %w", err)
	}
	return nil
}
