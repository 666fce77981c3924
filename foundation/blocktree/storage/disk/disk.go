// Package disk implements the ability to read and append branches of blocks
// on disk. Each branch is stored in its own file with one JSON encoded block
// per line.
package disk

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ardanlabs/blocktree/foundation/blocktree/database"
)

// fileExt is the extension used for every branch file.
const fileExt = ".db"

// Disk represents the storage implementation for reading and appending
// blocks on disk. The branches are also held in memory so reads don't touch
// the disk. This implements the database.Storage interface.
type Disk struct {
	dbPath   string
	mu       sync.RWMutex
	branches map[string][]database.Block
}

// New constructs a Disk value for use and loads every branch already
// written under the specified path.
func New(dbPath string) (*Disk, error) {
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("%w: %s", database.ErrStorage, err)
	}

	d := Disk{
		dbPath:   dbPath,
		branches: make(map[string][]database.Block),
	}

	files, err := filepath.Glob(filepath.Join(dbPath, "*"+fileExt))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", database.ErrStorage, err)
	}

	for _, file := range files {
		branchID := strings.TrimSuffix(filepath.Base(file), fileExt)

		blocks, err := readBranch(file)
		if err != nil {
			return nil, fmt.Errorf("%w: branch %s: %s", database.ErrStorage, branchID, err)
		}

		d.branches[branchID] = blocks
	}

	return &d, nil
}

// Close in this implementation has nothing to do since a branch file is
// opened and closed for every append.
func (d *Disk) Close() error {
	return nil
}

// Append writes the block to the end of the specified branch file, creating
// the file if it doesn't exist.
func (d *Disk) Append(branchID string, block database.Block) error {
	if branchID == "" || strings.ContainsAny(branchID, `/\`) {
		return fmt.Errorf("%w: invalid branch id %q", database.ErrStorage, branchID)
	}

	data, err := json.Marshal(block)
	if err != nil {
		return fmt.Errorf("%w: %s", database.ErrStorage, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	f, err := os.OpenFile(d.getPath(branchID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("%w: %s", database.ErrStorage, err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("%w: %s", database.ErrStorage, err)
	}

	d.branches[branchID] = append(d.branches[branchID], block.Clone())

	return nil
}

// Read returns a copy of the blocks for the specified branch.
func (d *Disk) Read(branchID string) ([]database.Block, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	blocks, exists := d.branches[branchID]
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
func (d *Disk) BranchIDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ids := make([]string, 0, len(d.branches))
	for id := range d.branches {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}

// getPath forms the path to the specified branch file.
func (d *Disk) getPath(branchID string) string {
	return filepath.Join(d.dbPath, branchID+fileExt)
}

// =============================================================================

// readBranch decodes every block stored in the specified branch file.
func readBranch(file string) ([]database.Block, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var blocks []database.Block
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		var block database.Block
		if err := json.Unmarshal(scanner.Bytes(), &block); err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return blocks, nil
}
