// Package consensus implements the proof of work algorithm used to mine and
// validate the blocks of every branch.
package consensus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ardanlabs/blocktree/foundation/blocktree/database"
)

// Engine interface represents the behavior required to be implemented by any
// package providing support for mining blocks.
type Engine interface {
	Difficulty() uint
	Mine(ctx context.Context, block database.Block) (database.Block, error)
	AdjustDifficulty(block database.Block, prevBlock database.Block) uint
}

// =============================================================================

// PoW implements the Engine interface using a leading zeros puzzle.
type PoW struct {
	difficulty      uint
	targetBlockTime time.Duration
	evHandler       func(v string, args ...any)
}

// New constructs a proof of work engine. The difficulty is the number of
// leading zero hex characters a hash needs. The target block time bounds
// how long a single mining operation may run.
func New(difficulty uint, targetBlockTime time.Duration, evHandler func(v string, args ...any)) *PoW {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	return &PoW{
		difficulty:      difficulty,
		targetBlockTime: targetBlockTime,
		evHandler:       ev,
	}
}

// Difficulty returns the base difficulty used for mining.
func (p *PoW) Difficulty() uint {
	return p.difficulty
}

// TargetBlockTime returns the time budget for mining a block.
func (p *PoW) TargetBlockTime() time.Duration {
	return p.targetBlockTime
}

// Mine does the work of finding a nonce that solves the puzzle for the
// specified block. The nonce is incremented and the hash recalculated until
// the hash has enough leading zeros, the target block time elapses or the
// context is cancelled.
func (p *PoW) Mine(ctx context.Context, block database.Block) (database.Block, error) {
	p.evHandler("consensus: Mine: MINING: started: branch[%s]: blk[%d]", block.Header.BranchID, block.Header.Number)
	defer p.evHandler("consensus: Mine: MINING: completed: branch[%s]: blk[%d]", block.Header.BranchID, block.Header.Number)

	start := time.Now()

	var attempts uint64
	for {
		attempts++
		if attempts%1_000_000 == 0 {
			p.evHandler("consensus: Mine: MINING: attempts[%d]", attempts)
		}

		if err := block.UpdateHash(); err != nil {
			return database.Block{}, err
		}

		if IsHashSolved(p.difficulty, block.Hash) {
			p.evHandler("consensus: Mine: MINING: SOLVED: branch[%s]: blk[%s]: attempts[%d]", block.Header.BranchID, block.Hash, attempts)
			return block, nil
		}

		block.Header.Nonce++

		if ctx.Err() != nil {
			p.evHandler("consensus: Mine: MINING: CANCELLED")
			return database.Block{}, ctx.Err()
		}

		if elapsed := time.Since(start); elapsed > p.targetBlockTime {
			p.evHandler("consensus: Mine: MINING: TIMEOUT: elapsed[%v]: attempts[%d]", elapsed, attempts)
			return database.Block{}, fmt.Errorf("%w: failed to mine block within %v", database.ErrMiningTimeout, p.targetBlockTime)
		}
	}
}

// AdjustDifficulty returns the difficulty suggested by the time it took to
// produce the block after its previous block. Production faster than half
// the target raises the difficulty by one, slower than double the target
// lowers it by one but never below one.
func (p *PoW) AdjustDifficulty(block database.Block, prevBlock database.Block) uint {
	taken := time.Duration(block.Header.TimeStamp-prevBlock.Header.TimeStamp) * time.Millisecond

	switch {
	case taken < p.targetBlockTime/2:
		return p.difficulty + 1

	case taken > p.targetBlockTime*2:
		if p.difficulty <= 2 {
			return 1
		}
		return p.difficulty - 1
	}

	return p.difficulty
}

// =============================================================================

// IsHashSolved checks the hash has at least difficulty leading zero
// characters.
func IsHashSolved(difficulty uint, hash string) bool {
	if uint(len(hash)) < difficulty {
		return false
	}

	return strings.Count(hash[:difficulty], "0") == int(difficulty)
}
