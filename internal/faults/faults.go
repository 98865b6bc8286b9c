// Package faults injects synthetic channel noise on the receiving side so the
// integrity check and the retry path can be exercised on a clean network.
package faults

import (
	"math"
	"math/rand"
	"sync"
	"time"
	"unicode/utf8"
)

const (
	DefaultSentinel  = '*'
	FallbackSentinel = '#'
)

// Corrupt draws one uniform value from rng. When it falls below probability,
// one UTF-8 character of payload, chosen uniformly, is replaced by sentinel.
// The input slice is never modified. An empty payload is returned unchanged.
func Corrupt(payload []byte, probability float64, rng *rand.Rand, sentinel rune) ([]byte, bool) {
	if !(rng.Float64() < probability) {
		return payload, false
	}
	n := utf8.RuneCount(payload)
	if n == 0 {
		return payload, false
	}
	target := rng.Intn(n)

	offset := 0
	for i := 0; i < target; i++ {
		_, size := utf8.DecodeRune(payload[offset:])
		offset += size
	}
	old, size := utf8.DecodeRune(payload[offset:])

	replacement := sentinel
	if old == sentinel {
		replacement = FallbackSentinel
		if sentinel == FallbackSentinel {
			replacement = DefaultSentinel
		}
	}

	out := make([]byte, 0, len(payload)+utf8.UTFMax)
	out = append(out, payload[:offset]...)
	out = utf8.AppendRune(out, replacement)
	out = append(out, payload[offset+size:]...)
	return out, true
}

// Simulator applies Corrupt with a fixed probability and its own random source.
type Simulator struct {
	mu          sync.Mutex
	rng         *rand.Rand
	probability float64
	sentinel    rune
}

// NewSimulator seeds the random source with seed, or from the clock when seed is 0.
func NewSimulator(probability float64, seed int64) *Simulator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulator{
		rng:         rand.New(rand.NewSource(seed)),
		probability: clamp(probability),
		sentinel:    DefaultSentinel,
	}
}

// WithSentinel overrides the replacement character.
func (s *Simulator) WithSentinel(r rune) *Simulator {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sentinel = r
	return s
}

func (s *Simulator) Probability() float64 {
	return s.probability
}

func (s *Simulator) Corrupt(payload []byte) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Corrupt(payload, s.probability, s.rng, s.sentinel)
}

func clamp(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
