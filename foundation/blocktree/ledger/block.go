package ledger

import (
	"context"
	"fmt"

	"github.com/ardanlabs/blocktree/foundation/blocktree/database"
)

// AddBlock mines a new block holding the specified transactions on top of
// the tip of the branch. Once the branch reaches the split interval it's
// split into two children. A failed split doesn't undo the append, the
// mined block is returned along with the error. The same holds when the
// block can't be published, in which case no reward is credited.
func (l *Ledger) AddBlock(ctx context.Context, trans []database.Tx, branchID string) (database.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.evHandler("ledger: AddBlock: started: branch[%s]: trans[%d]", branchID, len(trans))
	defer l.evHandler("ledger: AddBlock: completed: branch[%s]", branchID)

	for i, tx := range trans {
		if !tx.Validate() {
			return database.Block{}, fmt.Errorf("%w: transaction %d is malformed: %s", database.ErrTransaction, i, tx)
		}
	}

	tip, err := l.tree.Tip(branchID, l.storage)
	if err != nil {
		return database.Block{}, err
	}

	block, err := database.NewBlock(tip.Header.Number+1, trans, tip.Hash, branchID)
	if err != nil {
		return database.Block{}, err
	}

	l.evHandler("ledger: AddBlock: MINING: branch[%s]: blk[%d]", branchID, block.Header.Number)

	block, err = l.engine.Mine(ctx, block)
	if err != nil {
		return database.Block{}, err
	}

	if err := l.tree.AddBlock(block, branchID, l.storage); err != nil {
		return database.Block{}, err
	}

	l.evHandler("ledger: AddBlock: difficulty: current[%d]: suggested[%d]", l.engine.Difficulty(), l.engine.AdjustDifficulty(block, tip))

	if l.broadcaster != nil {
		if err := l.broadcaster.Publish(block); err != nil {
			l.evHandler("ledger: AddBlock: PUBLISH FAILED: branch[%s]: %s", branchID, err)
			return block, fmt.Errorf("publish block %d: %w", block.Header.Number, err)
		}
	}

	reward := l.reward.Credit()
	l.evHandler("ledger: AddBlock: reward[%d]: supply[%d]", reward, l.reward.TotalSupply())

	blocks, _ := l.storage.Read(branchID)
	if !l.tree.ShouldSplit(len(blocks)) {
		return block, nil
	}

	split, err := l.tree.SplitBranch(branchID, l.clustering, l.storage)
	if err != nil {
		l.evHandler("ledger: AddBlock: SPLIT FAILED: branch[%s]: %s", branchID, err)
		return block, fmt.Errorf("split branch %s: %w", branchID, err)
	}

	l.evHandler("ledger: AddBlock: SPLIT: branch[%s]: children%v: tip[%s]", split.Parent, split.Children, split.TipHash)

	return block, nil
}
