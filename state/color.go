package state

import (
	"math/rand"
	"time"
)

// MaxColor is one past the largest 24-bit RGB value.
const MaxColor = 0x1000000

// ColorSource hands out display colors for joining players.
// It is not safe for concurrent use.
type ColorSource struct {
	rng *rand.Rand
}

// NewColorSource seeds a source. A zero seed uses the current time.
func NewColorSource(seed int64) *ColorSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &ColorSource{rng: rand.New(rand.NewSource(seed))}
}

// Next returns a 24-bit RGB color.
func (c *ColorSource) Next() int {
	return c.rng.Intn(MaxColor)
}
