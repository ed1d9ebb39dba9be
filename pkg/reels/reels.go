package reels

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// Symbol represents a slot reel symbol and its payout multiplier
type Symbol struct {
	Name       string  `json:"name"`
	Multiplier float64 `json:"multiplier"`
}

// SymbolSet is the ordered list of symbols a slot game draws from
type SymbolSet []Symbol

// Payout returns the payout for a final triple draw. A spin wins iff all
// three indices are equal; the payout is bet times the matched symbol's
// multiplier, rounded down.
func (s SymbolSet) Payout(indices [3]int, bet int64) (int64, bool) {
	if indices[0] != indices[1] || indices[1] != indices[2] {
		return 0, false
	}
	payout := int64(math.Floor(float64(bet) * s[indices[0]].Multiplier))
	return payout, true
}

// Distribution describes a crash-point draw: the scaled sum of two uniform
// draws, producing values in [Min, Min+Span].
type Distribution struct {
	Min  float64
	Span float64
}

var (
	// DistributionStandard draws crash points in roughly [1, 7]
	DistributionStandard = Distribution{Min: 1.0, Span: 6.0}

	// DistributionQuantum draws faster, wider crash points in roughly [1, 15]
	DistributionQuantum = Distribution{Min: 1.0, Span: 14.0}
)

// Drawer produces random outcomes for game sessions
type Drawer interface {
	// Spin draws three independent uniform reel indices from a set of the
	// given size
	Spin(setSize int) [3]int

	// CrashPoint draws one crash point from the distribution
	CrashPoint(d Distribution) float64
}

// Generator implements Drawer over a seeded source. Safe for use from
// concurrent sessions.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGenerator creates a generator seeded from the current time
func NewGenerator() *Generator {
	return NewSeededGenerator(time.Now().UnixNano())
}

// NewSeededGenerator creates a generator with a fixed seed for
// reproducible draws
func NewSeededGenerator(seed int64) *Generator {
	return &Generator{
		rnd: rand.New(rand.NewSource(seed)),
	}
}

// Spin draws three independent uniform reel indices
func (g *Generator) Spin(setSize int) [3]int {
	g.mu.Lock()
	defer g.mu.Unlock()

	var indices [3]int
	for i := range indices {
		indices[i] = g.rnd.Intn(setSize)
	}
	return indices
}

// CrashPoint draws one crash point. The sum of two uniforms biases draws
// toward the middle of the range.
func (g *Generator) CrashPoint(d Distribution) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	sum := g.rnd.Float64() + g.rnd.Float64()
	return d.Min + sum/2.0*d.Span
}
