package database

// RootBranch is the identifier of the branch holding the genesis block.
const RootBranch = "root"

// Storage interface represents the behavior required to be implemented by any
// package providing support for storing and reading branches of the blocktree.
// Append must return an error wrapping ErrStorage when the block can't be
// stored.
type Storage interface {
	Append(branchID string, block Block) error
	Read(branchID string) ([]Block, bool)
	BranchIDs() []string
	Close() error
}

// ChildBranchIDs returns the identifiers of the two branches created when the
// specified branch is split.
func ChildBranchIDs(branchID string) (string, string) {
	return branchID + ".1", branchID + ".2"
}
