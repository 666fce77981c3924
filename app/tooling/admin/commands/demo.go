package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/ardanlabs/blocktree/foundation/blocktree/cluster"
	"github.com/ardanlabs/blocktree/foundation/blocktree/consensus"
	"github.com/ardanlabs/blocktree/foundation/blocktree/database"
	"github.com/ardanlabs/blocktree/foundation/blocktree/ledger"
	"github.com/ardanlabs/blocktree/foundation/blocktree/network"
	"github.com/ardanlabs/blocktree/foundation/blocktree/reward"
	"github.com/ardanlabs/blocktree/foundation/blocktree/storage/disk"
	"github.com/ardanlabs/blocktree/foundation/blocktree/storage/memory"
	"go.uber.org/zap"
)

// Demo grows the root branch past the split interval, adds one block to
// every branch that exists afterwards and reports the validity of every
// branch and the total supply. Failures to add a block are reported and
// the demo moves on.
func Demo(w io.Writer, log *zap.SugaredLogger, cfg LedgerConfig, onDisk bool) error {
	ev := func(v string, args ...any) {
		log.Infow(fmt.Sprintf(v, args...))
	}

	var store database.Storage = memory.New()
	if onDisk {
		dsk, err := disk.New(cfg.DBPath)
		if err != nil {
			return err
		}
		store = dsk
	}

	queue := network.NewQueue(network.DefaultQueueSize, nil, ev)
	defer queue.Shutdown()

	clustering, err := cluster.LatencyFromNetwork(cfg.Nodes, queue)
	if err != nil {
		return err
	}

	ldg, err := ledger.New(ledger.Config{
		Storage:       store,
		Engine:        consensus.New(cfg.Difficulty, cfg.TargetBlockTime, ev),
		Clustering:    clustering,
		Broadcaster:   queue,
		Reward:        reward.New(),
		SplitInterval: cfg.SplitInterval,
		EvHandler:     ev,
	})
	if err != nil {
		return err
	}
	defer ldg.Shutdown()

	ctx := context.Background()

	for i := 1; i <= ldg.SplitInterval()+1; i++ {
		fmt.Fprintf(w, "Adding block %d to %s\n", i, database.RootBranch)

		tx, err := database.NewTx(fmt.Sprintf("sender%d", i), fmt.Sprintf("receiver%d", i), 100)
		if err != nil {
			return err
		}

		if _, err := ldg.AddBlock(ctx, []database.Tx{tx}, database.RootBranch); err != nil {
			fmt.Fprintf(w, "Error: %s\n", err)
		}
	}

	for _, branchID := range ldg.Branches() {
		fmt.Fprintf(w, "Adding block to %s\n", branchID)

		tx, err := database.NewTx("sender_"+branchID, "receiver_"+branchID, 100)
		if err != nil {
			return err
		}

		if _, err := ldg.AddBlock(ctx, []database.Tx{tx}, branchID); err != nil {
			fmt.Fprintf(w, "Error: %s\n", err)
		}
	}

	fmt.Fprintln(w, "Validating branches:")
	for _, branchID := range ldg.Branches() {
		valid, err := ldg.IsBranchValid(branchID)
		if err != nil {
			fmt.Fprintf(w, "Error validating branch %s: %s\n", branchID, err)
			continue
		}
		fmt.Fprintf(w, "Branch %s valid? %t\n", branchID, valid)
	}

	fmt.Fprintf(w, "Total supply: %d\n", ldg.TotalSupply())

	return nil
}
