// Package reward maintains the total supply of the ledger by crediting a
// decaying reward for every mined block.
package reward

import (
	"math"
	"sync"
)

// Default values for the reward schedule.
const (
	DefaultBaseReward  = 50
	DefaultDecayFactor = 0.999
)

// Accumulator interface represents the behavior required to be implemented by
// any package providing support for rewarding mined blocks.
type Accumulator interface {
	Credit() uint64
	TotalSupply() uint64
}

// =============================================================================

// Coin credits base * decay^n for the n-th mined block. The supply only ever
// grows and starts at zero when the value is constructed.
type Coin struct {
	mu          sync.Mutex
	baseReward  uint64
	decayFactor float64
	blocksMined uint64
	supply      uint64
}

// New constructs a Coin with the default reward schedule.
func New() *Coin {
	return NewWithSchedule(DefaultBaseReward, DefaultDecayFactor)
}

// NewWithSchedule constructs a Coin with the specified base reward and decay
// factor. A decay factor outside of (0, 1] is replaced with the default.
func NewWithSchedule(baseReward uint64, decayFactor float64) *Coin {
	if decayFactor <= 0 || decayFactor > 1 {
		decayFactor = DefaultDecayFactor
	}

	return &Coin{
		baseReward:  baseReward,
		decayFactor: decayFactor,
	}
}

// Credit adds the reward for the next mined block to the supply and returns
// the reward.
func (c *Coin) Credit() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	reward := uint64(float64(c.baseReward) * math.Pow(c.decayFactor, float64(c.blocksMined)))

	if c.supply > math.MaxUint64-reward {
		reward = math.MaxUint64 - c.supply
	}

	c.supply += reward
	c.blocksMined++

	return reward
}

// TotalSupply returns the cumulative supply.
func (c *Coin) TotalSupply() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.supply
}

// BlocksMined returns the number of blocks that have been credited.
func (c *Coin) BlocksMined() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.blocksMined
}
