// Package ledger is the core API for the blocktree and composes the storage,
// consensus, clustering, network and reward packages into a single
// controller.
package ledger

import (
	"errors"
	"sync"

	"github.com/ardanlabs/blocktree/foundation/blocktree/cluster"
	"github.com/ardanlabs/blocktree/foundation/blocktree/consensus"
	"github.com/ardanlabs/blocktree/foundation/blocktree/database"
	"github.com/ardanlabs/blocktree/foundation/blocktree/network"
	"github.com/ardanlabs/blocktree/foundation/blocktree/reward"
	"github.com/ardanlabs/blocktree/foundation/blocktree/tree"
)

// DefaultNodes is the size of the synthetic network used for clustering when
// no clustering is configured.
const DefaultNodes = 10

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of the blocktree.
type EventHandler func(v string, args ...any)

// Config represents the configuration required to start the ledger.
type Config struct {
	Storage       database.Storage
	Engine        consensus.Engine
	Clustering    cluster.Clustering
	Broadcaster   network.Broadcaster
	Reward        reward.Accumulator
	SplitInterval int
	EvHandler     EventHandler
}

// Ledger manages the branches of the blocktree.
type Ledger struct {
	mu        sync.Mutex
	evHandler EventHandler

	storage     database.Storage
	engine      consensus.Engine
	clustering  cluster.Clustering
	broadcaster network.Broadcaster
	reward      reward.Accumulator
	tree        *tree.Tree
}

// New constructs a ledger for use. The genesis block is stored on the root
// branch when the storage doesn't have one yet.
func New(cfg Config) (*Ledger, error) {
	if cfg.Storage == nil {
		return nil, errors.New("ledger: storage is required")
	}

	if cfg.Engine == nil {
		return nil, errors.New("ledger: consensus engine is required")
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	clustering := cfg.Clustering
	if clustering == nil {
		spectral, err := cluster.New(DefaultNodes)
		if err != nil {
			return nil, err
		}
		clustering = spectral
	}

	acc := cfg.Reward
	if acc == nil {
		acc = reward.New()
	}

	l := Ledger{
		evHandler:   ev,
		storage:     cfg.Storage,
		engine:      cfg.Engine,
		clustering:  clustering,
		broadcaster: cfg.Broadcaster,
		reward:      acc,
		tree:        tree.New(cfg.SplitInterval, ev),
	}

	if err := l.seedGenesis(); err != nil {
		return nil, err
	}

	return &l, nil
}

// Shutdown closes the storage.
func (l *Ledger) Shutdown() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.evHandler("ledger: shutdown: started")
	defer l.evHandler("ledger: shutdown: completed")

	return l.storage.Close()
}

// SplitInterval returns the branch length at which branches are split.
func (l *Ledger) SplitInterval() int {
	return l.tree.SplitInterval()
}

// =============================================================================

// seedGenesis stores the genesis block on the root branch if it's missing.
func (l *Ledger) seedGenesis() error {
	if blocks, exists := l.storage.Read(database.RootBranch); exists && len(blocks) > 0 {
		l.evHandler("ledger: seedGenesis: root branch loaded: blocks[%d]", len(blocks))
		return nil
	}

	genesis, err := database.NewGenesisBlock()
	if err != nil {
		return err
	}

	if err := l.tree.AddBlock(genesis, database.RootBranch, l.storage); err != nil {
		return err
	}

	l.evHandler("ledger: seedGenesis: genesis stored: hash[%s]", genesis.Hash)

	return nil
}
