package common

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// OrderId is a globally unique opaque order identifier, assigned by the
// engine at acceptance when the caller does not supply one.
type OrderId string

// Sequence is a monotonically increasing integer assigned by the engine on
// acceptance. It is per-engine, not per-symbol, so interleaved audit replays
// across symbols stay unambiguous, and it is the tiebreaker for
// time priority even when wall-clock timestamps collide.
type Sequence uint64

// IDGenerator mints OrderIds. Production code uses NewUUIDGenerator; tests
// that need reproducible ids use NewSeededGenerator.
type IDGenerator interface {
	NewOrderID() OrderId
}

// uuidGenerator mints collision-resistant ids via google/uuid.
type uuidGenerator struct{}

// NewUUIDGenerator returns the default, collision-resistant id generator.
func NewUUIDGenerator() IDGenerator { return uuidGenerator{} }

func (uuidGenerator) NewOrderID() OrderId {
	return OrderId(uuid.NewString())
}

// seededGenerator produces deterministic, strictly increasing ids from a
// seed prefix, for reproducible test fixtures and replay comparisons.
type seededGenerator struct {
	prefix  string
	counter atomic.Uint64
}

// NewSeededGenerator returns a deterministic id generator scoped to seed.
// Two generators built from the same seed in two separate test runs mint
// the same id sequence.
func NewSeededGenerator(seed string) IDGenerator {
	return &seededGenerator{prefix: seed}
}

func (g *seededGenerator) NewOrderID() OrderId {
	n := g.counter.Add(1)
	return OrderId(fmt.Sprintf("%s-%d", g.prefix, n))
}

// SequenceGenerator hands out strictly increasing Sequence values, shared
// across all symbols in one engine.
type SequenceGenerator struct {
	counter atomic.Uint64
}

// Next returns the next sequence number, starting at 1.
func (g *SequenceGenerator) Next() Sequence {
	return Sequence(g.counter.Add(1))
}
