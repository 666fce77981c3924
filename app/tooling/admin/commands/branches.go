package commands

import (
	"fmt"
	"io"

	"github.com/ardanlabs/blocktree/foundation/blocktree/database"
	"github.com/ardanlabs/blocktree/foundation/blocktree/storage/disk"
	"github.com/ardanlabs/blocktree/foundation/blocktree/tree"
)

// Branches prints every branch stored at the specified path with its
// length, tip and validity.
func Branches(w io.Writer, dbPath string) error {
	store, err := disk.New(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	tr := tree.New(tree.DefaultSplitInterval, nil)

	for _, branchID := range store.BranchIDs() {
		blocks, _ := store.Read(branchID)

		valid, err := tr.IsBranchValid(branchID, store)
		if err != nil {
			fmt.Fprintf(w, "Branch: %s  Error: %s\n", branchID, err)
			continue
		}

		tip := blocks[len(blocks)-1]
		fmt.Fprintf(w, "Branch: %s  Blocks: %d  Tip: %s  Valid: %t\n", branchID, len(blocks), tip.Hash, valid)
	}

	return nil
}

// Branch prints the blocks of the specified branch stored at the specified
// path.
func Branch(w io.Writer, dbPath string, branchID string) error {
	store, err := disk.New(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	blocks, err := readBranch(store, branchID)
	if err != nil {
		return err
	}

	for _, block := range blocks {
		fmt.Fprintf(w, "Block: %d  Hash: %s  Prev: %s  Nonce: %d  Merkle: %s\n", block.Header.Number, block.Hash, block.Header.PrevBlockHash, block.Header.Nonce, block.Header.MerkleRoot)
		for _, tx := range block.Trans {
			fmt.Fprintf(w, "\tTx: %s  %s\n", tx.ID, tx)
		}
	}

	return nil
}

func readBranch(store database.Storage, branchID string) ([]database.Block, error) {
	blocks, exists := store.Read(branchID)
	if !exists {
		return nil, fmt.Errorf("%w: %s", database.ErrBranchNotFound, branchID)
	}

	return blocks, nil
}
