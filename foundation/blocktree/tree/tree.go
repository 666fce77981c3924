// Package tree maintains the shape of the blocktree. It appends blocks to
// branches, splits a branch into two children and validates the linkage of
// the blocks inside a branch.
package tree

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/blocktree/foundation/blocktree/cluster"
	"github.com/ardanlabs/blocktree/foundation/blocktree/database"
)

// DefaultSplitInterval is the branch length at which a branch is split.
const DefaultSplitInterval = 5

// Split describes the result of splitting a branch.
type Split struct {
	Parent   string   `json:"parent"`
	Children []string `json:"children"`
	Seeded   []string `json:"seeded"`
	TipHash  string   `json:"tip_hash"`
	ClusterA []uint32 `json:"cluster_a"`
	ClusterB []uint32 `json:"cluster_b"`
}

// Tree decides when branches split and maintains the invariants of every
// branch stored through it.
type Tree struct {
	splitInterval int
	evHandler     func(v string, args ...any)
}

// New constructs a tree that splits branches once they hold the specified
// number of blocks.
func New(splitInterval int, evHandler func(v string, args ...any)) *Tree {
	if splitInterval <= 0 {
		splitInterval = DefaultSplitInterval
	}

	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	return &Tree{
		splitInterval: splitInterval,
		evHandler:     ev,
	}
}

// SplitInterval returns the branch length at which a branch is split.
func (t *Tree) SplitInterval() int {
	return t.splitInterval
}

// ShouldSplit reports whether a branch of the specified length must split.
func (t *Tree) ShouldSplit(length int) bool {
	return length >= t.splitInterval
}

// AddBlock appends the block to the end of the specified branch. A block
// whose hash doesn't match its content is rejected.
func (t *Tree) AddBlock(block database.Block, branchID string, store database.Storage) error {
	if err := block.VerifyHash(); err != nil {
		return fmt.Errorf("add block to branch %s: %w", branchID, err)
	}

	if err := store.Append(branchID, block); err != nil {
		if !errors.Is(err, database.ErrStorage) {
			err = fmt.Errorf("%w: %s", database.ErrStorage, err)
		}
		return err
	}

	t.evHandler("tree: AddBlock: branch[%s]: blk[%d]: hash[%s]", branchID, block.Header.Number, block.Hash)

	return nil
}

// SplitBranch seeds two child branches with a copy of the tip of the
// specified branch. A partition of the network nodes is computed as part of
// the split and reported, but it does not decide the content of the
// children. The parent branch is left as is. On a later split of the same
// parent, a child only receives the new tip while it still ends at the
// block the tip links to.
func (t *Tree) SplitBranch(branchID string, clustering cluster.Clustering, store database.Storage) (Split, error) {
	tip, err := tipBlock(branchID, store)
	if err != nil {
		return Split{}, err
	}

	fiedler, err := clustering.FiedlerVector()
	if err != nil {
		return Split{}, err
	}
	clusterA, clusterB, err := clustering.Partition(fiedler)
	if err != nil {
		return Split{}, err
	}

	child1, child2 := database.ChildBranchIDs(branchID)

	var seeded []string
	for _, child := range []string{child1, child2} {
		if !canSeed(child, tip, store) {
			t.evHandler("tree: SplitBranch: branch[%s]: child[%s]: SKIPPED: diverged from parent", branchID, child)
			continue
		}

		if err := t.AddBlock(tip, child, store); err != nil {
			return Split{}, err
		}
		seeded = append(seeded, child)
	}

	t.evHandler("tree: SplitBranch: branch[%s]: children[%s, %s]: seeded[%d]: clusters[%d, %d]", branchID, child1, child2, len(seeded), len(clusterA), len(clusterB))

	split := Split{
		Parent:   branchID,
		Children: []string{child1, child2},
		Seeded:   seeded,
		TipHash:  tip.Hash,
		ClusterA: clusterA,
		ClusterB: clusterB,
	}

	return split, nil
}

// ValidateBranch walks the specified branch from its second block and
// returns the first hash or linkage mismatch it finds.
func (t *Tree) ValidateBranch(branchID string, store database.Storage) error {
	blocks, exists := store.Read(branchID)
	if !exists || len(blocks) == 0 {
		return fmt.Errorf("%w: %s", database.ErrBranchNotFound, branchID)
	}

	for i := 1; i < len(blocks); i++ {
		current, previous := blocks[i], blocks[i-1]

		if err := current.VerifyHash(); err != nil {
			return err
		}

		if err := current.VerifyMerkleRoot(); err != nil {
			return fmt.Errorf("branch %s position %d: %w", branchID, i, err)
		}

		if current.Header.PrevBlockHash != previous.Hash {
			return fmt.Errorf("%w: branch %s position %d, got %s, exp %s", database.ErrInvalidPrevHash, branchID, i, current.Header.PrevBlockHash, previous.Hash)
		}
	}

	return nil
}

// IsBranchValid reports whether every block in the specified branch carries
// a current hash and links to the block before it. A single block branch is
// valid.
func (t *Tree) IsBranchValid(branchID string, store database.Storage) (bool, error) {
	err := t.ValidateBranch(branchID, store)
	switch {
	case err == nil:
		return true, nil

	case errors.Is(err, database.ErrInvalidHash), errors.Is(err, database.ErrInvalidPrevHash):
		t.evHandler("tree: IsBranchValid: branch[%s]: INVALID: %s", branchID, err)
		return false, nil
	}

	return false, err
}

// =============================================================================

// tipBlock returns the last block of the specified branch.
func tipBlock(branchID string, store database.Storage) (database.Block, error) {
	blocks, exists := store.Read(branchID)
	if !exists || len(blocks) == 0 {
		return database.Block{}, fmt.Errorf("%w: %s", database.ErrBranchNotFound, branchID)
	}

	return blocks[len(blocks)-1], nil
}

// canSeed reports whether the tip can be appended to the child branch without
// breaking the linkage of the child.
func canSeed(child string, tip database.Block, store database.Storage) bool {
	blocks, exists := store.Read(child)
	if !exists || len(blocks) == 0 {
		return true
	}

	return blocks[len(blocks)-1].Hash == tip.Header.PrevBlockHash
}

// Tip returns the last block of the specified branch.
func (t *Tree) Tip(branchID string, store database.Storage) (database.Block, error) {
	return tipBlock(branchID, store)
}
