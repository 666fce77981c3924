// Package memory implements the ability to read and append branches of blocks
// in memory using a map of slices.
package memory

import (
	"sort"
	"sync"

	"github.com/ardanlabs/blocktree/foundation/blocktree/database"
)

// Memory represents the storage implementation for reading and appending
// blocks in memory. This implements the database.Storage interface.
type Memory struct {
	mu       sync.RWMutex
	branches map[string][]database.Block
}

// New constructs a Memory value for use.
func New() *Memory {
	return &Memory{
		branches: make(map[string][]database.Block),
	}
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Close() error {
	return nil
}

// Append adds the block to the end of the specified branch, creating the
// branch if it doesn't exist.
func (m *Memory) Append(branchID string, block database.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.branches[branchID] = append(m.branches[branchID], block.Clone())

	return nil
}

// Read returns a copy of the blocks for the specified branch.
func (m *Memory) Read(branchID string) ([]database.Block, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blocks, exists := m.branches[branchID]
	if !exists {
		return nil, false
	}

	cpy := make([]database.Block, len(blocks))
	for i, block := range blocks {
		cpy[i] = block.Clone()
	}

	return cpy, true
}

// BranchIDs returns the sorted set of known branch identifiers.
func (m *Memory) BranchIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.branches))
	for id := range m.branches {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}
