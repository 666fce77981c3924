package ledger

import (
	"fmt"

	"github.com/ardanlabs/blocktree/foundation/blocktree/database"
)

// Branches returns the identifiers of every branch in the blocktree.
func (l *Ledger) Branches() []string {
	return l.storage.BranchIDs()
}

// Branch returns a copy of the blocks of the specified branch.
func (l *Ledger) Branch(branchID string) ([]database.Block, error) {
	blocks, exists := l.storage.Read(branchID)
	if !exists {
		return nil, fmt.Errorf("%w: %s", database.ErrBranchNotFound, branchID)
	}

	return blocks, nil
}

// IsBranchValid reports whether the specified branch has a consistent chain
// of hashes.
func (l *Ledger) IsBranchValid(branchID string) (bool, error) {
	return l.tree.IsBranchValid(branchID, l.storage)
}

// Proof returns the merkle proof that the specified transaction is part of
// the block with the specified number on the branch.
func (l *Ledger) Proof(branchID string, number uint64, txID string) (database.TxProof, error) {
	blocks, exists := l.storage.Read(branchID)
	if !exists {
		return database.TxProof{}, fmt.Errorf("%w: %s", database.ErrBranchNotFound, branchID)
	}

	for _, block := range blocks {
		if block.Header.Number == number {
			return block.Proof(txID)
		}
	}

	return database.TxProof{}, fmt.Errorf("%w: %d on branch %s", database.ErrBlockNotFound, number, branchID)
}

// TotalSupply returns the supply created by every block mined so far.
func (l *Ledger) TotalSupply() uint64 {
	return l.reward.TotalSupply()
}

// NextDifficulty returns the difficulty suggested by the time between the
// last two blocks of the specified branch. The suggestion isn't applied to
// mining. A branch with a single block reports the current difficulty.
func (l *Ledger) NextDifficulty(branchID string) (uint, error) {
	blocks, exists := l.storage.Read(branchID)
	if !exists || len(blocks) == 0 {
		return 0, fmt.Errorf("%w: %s", database.ErrBranchNotFound, branchID)
	}

	if len(blocks) < 2 {
		return l.engine.Difficulty(), nil
	}

	return l.engine.AdjustDifficulty(blocks[len(blocks)-1], blocks[len(blocks)-2]), nil
}
