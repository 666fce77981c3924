package ledger_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/ardanlabs/blocktree/foundation/blocktree/cluster"
	"github.com/ardanlabs/blocktree/foundation/blocktree/consensus"
	"github.com/ardanlabs/blocktree/foundation/blocktree/database"
	"github.com/ardanlabs/blocktree/foundation/blocktree/ledger"
	"github.com/ardanlabs/blocktree/foundation/blocktree/network"
	"github.com/ardanlabs/blocktree/foundation/blocktree/reward"
	"github.com/ardanlabs/blocktree/foundation/blocktree/storage/memory"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// newClustering constructs a random spectral clustering over n nodes.
func newClustering(t *testing.T, n int) *cluster.Spectral {
	s, err := cluster.New(n)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the clustering: %v", failed, err)
	}

	return s
}

type downNetwork struct{}

func (downNetwork) Publish(block database.Block) error {
	return database.ErrNetwork
}

func (downNetwork) EstimatedLatency(nodeA uint32, nodeB uint32) float64 {
	return 1
}

func newLedger(t *testing.T, cfg ledger.Config) *ledger.Ledger {
	if cfg.Storage == nil {
		cfg.Storage = memory.New()
	}
	if cfg.Engine == nil {
		cfg.Engine = consensus.New(1, time.Minute, nil)
	}
	if cfg.Clustering == nil {
		cfg.Clustering = newClustering(t, 10)
	}
	cfg.EvHandler = t.Logf

	l, err := ledger.New(cfg)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the ledger: %v", failed, err)
	}

	return l
}

func newTrans(t *testing.T, amount uint64) []database.Tx {
	tx, err := database.NewTx("bill", "jack", amount)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to create the tx: %v", failed, err)
	}

	return []database.Tx{tx}
}

// =============================================================================

func Test_Genesis(t *testing.T) {
	t.Log("Given the need to start a ledger.")
	{
		store := memory.New()
		l := newLedger(t, ledger.Config{Storage: store})

		blocks, err := l.Branch(database.RootBranch)
		if err != nil || len(blocks) != 1 {
			t.Fatalf("\t%s\tShould get a root branch with the genesis block: %v", failed, err)
		}
		t.Logf("\t%s\tShould get a root branch with the genesis block.", success)

		genesis := blocks[0]
		if genesis.Header.Number != 0 || genesis.Header.PrevBlockHash != "0" || genesis.Trans[0].From != "genesis" {
			t.Fatalf("\t%s\tShould get the genesis values, got %+v.", failed, genesis)
		}
		t.Logf("\t%s\tShould get the genesis values.", success)

		newLedger(t, ledger.Config{Storage: store})

		blocks, _ = store.Read(database.RootBranch)
		if len(blocks) != 1 {
			t.Fatalf("\t%s\tShould not seed the genesis block twice, got %d blocks.", failed, len(blocks))
		}
		t.Logf("\t%s\tShould not seed the genesis block twice.", success)

		if _, err := ledger.New(ledger.Config{}); err == nil {
			t.Fatalf("\t%s\tShould require a storage.", failed)
		}
		t.Logf("\t%s\tShould require a storage.", success)
	}
}

func Test_SplitEndToEnd(t *testing.T) {
	t.Log("Given the need to grow and split the root branch.")
	{
		l := newLedger(t, ledger.Config{SplitInterval: 5})
		ctx := context.Background()

		var mined []database.Block
		for i := 1; i <= 5; i++ {
			block, err := l.AddBlock(ctx, newTrans(t, uint64(i)), database.RootBranch)
			if err != nil {
				t.Fatalf("\t%s\tShould be able to add block %d: %v", failed, i, err)
			}
			mined = append(mined, block)
		}
		t.Logf("\t%s\tShould be able to add 5 blocks.", success)

		root, _ := l.Branch(database.RootBranch)
		if len(root) != 6 {
			t.Fatalf("\t%s\tShould get 6 blocks on the root branch, got %d.", failed, len(root))
		}
		t.Logf("\t%s\tShould get 6 blocks on the root branch.", success)

		preSplitTip := mined[3]
		for _, child := range []string{"root.1", "root.2"} {
			blocks, err := l.Branch(child)
			if err != nil {
				t.Fatalf("\t%s\tShould find branch %s: %v", failed, child, err)
			}

			linked := slices.ContainsFunc(blocks, func(b database.Block) bool {
				return b.Header.PrevBlockHash == preSplitTip.Hash
			})
			if blocks[0].Hash != preSplitTip.Hash || !linked {
				t.Fatalf("\t%s\tShould link %s to the pre-split tip.", failed, child)
			}
			t.Logf("\t%s\tShould link %s to the pre-split tip.", success, child)
		}

		for _, branchID := range l.Branches() {
			valid, err := l.IsBranchValid(branchID)
			if err != nil || !valid {
				t.Fatalf("\t%s\tShould get a valid branch %s: %t %v", failed, branchID, valid, err)
			}
		}
		t.Logf("\t%s\tShould get valid branches.", success)

		for _, child := range []string{"root.1", "root.2"} {
			if _, err := l.AddBlock(ctx, newTrans(t, 1), child); err != nil {
				t.Fatalf("\t%s\tShould be able to extend %s: %v", failed, child, err)
			}
			if valid, _ := l.IsBranchValid(child); !valid {
				t.Fatalf("\t%s\tShould keep %s valid.", failed, child)
			}
		}
		t.Logf("\t%s\tShould be able to extend the children.", success)

		if l.TotalSupply() == 0 {
			t.Fatalf("\t%s\tShould get a supply.", failed)
		}
		t.Logf("\t%s\tShould get a supply of %d.", success, l.TotalSupply())
	}
}

func Test_Supply(t *testing.T) {
	t.Log("Given the need to reward mined blocks.")
	{
		coin := reward.New()
		l := newLedger(t, ledger.Config{Reward: coin, SplitInterval: 100})

		for i := 1; i <= 2; i++ {
			if _, err := l.AddBlock(context.Background(), newTrans(t, uint64(i)), database.RootBranch); err != nil {
				t.Fatalf("\t%s\tShould be able to add block %d: %v", failed, i, err)
			}
		}

		if l.TotalSupply() != 99 {
			t.Fatalf("\t%s\tShould get a supply of 99, got %d.", failed, l.TotalSupply())
		}
		t.Logf("\t%s\tShould get a supply of 99.", success)

		if _, err := l.NextDifficulty(database.RootBranch); err != nil {
			t.Fatalf("\t%s\tShould get a difficulty suggestion: %v", failed, err)
		}
		t.Logf("\t%s\tShould get a difficulty suggestion.", success)
	}
}

func Test_AddBlockFailures(t *testing.T) {
	t.Log("Given the need to reject blocks that can't be added.")
	{
		ctx := context.Background()

		t.Logf("\tTest 0:\tWhen the branch doesn't exist.")
		{
			l := newLedger(t, ledger.Config{})

			_, err := l.AddBlock(ctx, newTrans(t, 1), "nope")
			if !errors.Is(err, database.ErrBranchNotFound) {
				t.Fatalf("\t%s\tTest 0:\tShould get branch not found: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould get branch not found.", success)

			if _, err := l.IsBranchValid("nope"); !errors.Is(err, database.ErrBranchNotFound) {
				t.Fatalf("\t%s\tTest 0:\tShould get branch not found on validation: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould get branch not found on validation.", success)
		}

		t.Logf("\tTest 1:\tWhen a transaction is malformed.")
		{
			l := newLedger(t, ledger.Config{})

			_, err := l.AddBlock(ctx, []database.Tx{{From: "bill"}}, database.RootBranch)
			if !errors.Is(err, database.ErrTransaction) {
				t.Fatalf("\t%s\tTest 1:\tShould get a transaction failure: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould get a transaction failure.", success)
		}

		t.Logf("\tTest 2:\tWhen mining runs out of time.")
		{
			l := newLedger(t, ledger.Config{Engine: consensus.New(16, 0, nil)})

			_, err := l.AddBlock(ctx, newTrans(t, 1), database.RootBranch)
			if !errors.Is(err, database.ErrMiningTimeout) {
				t.Fatalf("\t%s\tTest 2:\tShould get a mining timeout: %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould get a mining timeout.", success)

			root, _ := l.Branch(database.RootBranch)
			if len(root) != 1 {
				t.Fatalf("\t%s\tTest 2:\tShould not store the block.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould not store the block.", success)
		}

		t.Logf("\tTest 3:\tWhen the network is down.")
		{
			l := newLedger(t, ledger.Config{Broadcaster: downNetwork{}})

			block, err := l.AddBlock(ctx, newTrans(t, 1), database.RootBranch)
			if !errors.Is(err, database.ErrNetwork) {
				t.Fatalf("\t%s\tTest 3:\tShould get a network failure: %v", failed, err)
			}
			t.Logf("\t%s\tTest 3:\tShould get a network failure.", success)

			if block.Hash == "" || l.TotalSupply() != 0 {
				t.Fatalf("\t%s\tTest 3:\tShould return the stored block without a reward.", failed)
			}
			t.Logf("\t%s\tTest 3:\tShould return the stored block without a reward.", success)
		}

		t.Logf("\tTest 4:\tWhen the split can't partition the nodes.")
		{
			l := newLedger(t, ledger.Config{Clustering: newClustering(t, 1), SplitInterval: 2})

			block, err := l.AddBlock(ctx, newTrans(t, 1), database.RootBranch)
			if !errors.Is(err, database.ErrClustering) {
				t.Fatalf("\t%s\tTest 4:\tShould get a clustering failure: %v", failed, err)
			}
			t.Logf("\t%s\tTest 4:\tShould get a clustering failure.", success)

			root, _ := l.Branch(database.RootBranch)
			if len(root) != 2 || root[1].Hash != block.Hash {
				t.Fatalf("\t%s\tTest 4:\tShould keep the appended block.", failed)
			}
			t.Logf("\t%s\tTest 4:\tShould keep the appended block.", success)
		}
	}
}

func Test_Broadcast(t *testing.T) {
	t.Log("Given the need to broadcast mined blocks.")
	{
		delivered := make(chan database.Block, 1)
		q := network.NewQueue(10, func(block database.Block) { delivered <- block }, nil)
		defer q.Shutdown()

		l := newLedger(t, ledger.Config{Broadcaster: q})

		block, err := l.AddBlock(context.Background(), newTrans(t, 1), database.RootBranch)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to add the block: %v", failed, err)
		}

		select {
		case got := <-delivered:
			if got.Hash != block.Hash {
				t.Fatalf("\t%s\tShould deliver the mined block.", failed)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("\t%s\tShould deliver the mined block.", failed)
		}
		t.Logf("\t%s\tShould deliver the mined block.", success)
	}
}

func Test_ResplitKeepsChildrenValid(t *testing.T) {
	t.Log("Given the need to keep extended children valid when the parent splits again.")
	{
		l := newLedger(t, ledger.Config{SplitInterval: 3})
		ctx := context.Background()

		var mined []database.Block
		for i := 1; i <= 2; i++ {
			block, err := l.AddBlock(ctx, newTrans(t, uint64(i)), database.RootBranch)
			if err != nil {
				t.Fatalf("\t%s\tShould be able to add block %d to root: %v", failed, i, err)
			}
			mined = append(mined, block)
		}
		t.Logf("\t%s\tShould be able to split root.", success)

		child, err := l.AddBlock(ctx, newTrans(t, 10), "root.1")
		if err != nil {
			t.Fatalf("\t%s\tShould be able to extend root.1: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to extend root.1.", success)

		next, err := l.AddBlock(ctx, newTrans(t, 3), database.RootBranch)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to add another block to root: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to add another block to root.", success)

		for _, branchID := range l.Branches() {
			valid, err := l.IsBranchValid(branchID)
			if err != nil || !valid {
				t.Fatalf("\t%s\tShould get a valid branch %s: %t %v", failed, branchID, valid, err)
			}
		}
		t.Logf("\t%s\tShould get valid branches.", success)

		root1, _ := l.Branch("root.1")
		if len(root1) != 2 || root1[0].Hash != mined[1].Hash || root1[1].Hash != child.Hash {
			t.Fatalf("\t%s\tShould leave the extended root.1 as is, got %d blocks.", failed, len(root1))
		}
		t.Logf("\t%s\tShould leave the extended root.1 as is.", success)

		root2, _ := l.Branch("root.2")
		if len(root2) != 2 || root2[1].Hash != next.Hash {
			t.Fatalf("\t%s\tShould follow root on root.2, got %d blocks.", failed, len(root2))
		}
		t.Logf("\t%s\tShould follow root on root.2.", success)
	}
}
