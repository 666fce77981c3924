package consensus_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/blocktree/foundation/blocktree/consensus"
	"github.com/ardanlabs/blocktree/foundation/blocktree/database"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func newBlock(t *testing.T) database.Block {
	tx, err := database.NewTx("bill", "jack", 10)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to create the tx: %v", failed, err)
	}

	block, err := database.NewBlock(1, []database.Tx{tx}, "abc", database.RootBranch)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to create the block: %v", failed, err)
	}

	return block
}

// =============================================================================

func Test_Mine(t *testing.T) {
	t.Log("Given the need to mine blocks.")
	{
		t.Logf("\tTest 0:\tWhen mining with a difficulty of zero.")
		{
			pow := consensus.New(0, 0, nil)

			block, err := pow.Mine(context.Background(), newBlock(t))
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to mine the block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to mine the block.", success)

			if block.Header.Nonce != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould solve with the first nonce, got %d.", failed, block.Header.Nonce)
			}
			t.Logf("\t%s\tTest 0:\tShould solve with the first nonce.", success)
		}

		t.Logf("\tTest 1:\tWhen mining with a difficulty of two.")
		{
			pow := consensus.New(2, time.Minute, t.Logf)

			block, err := pow.Mine(context.Background(), newBlock(t))
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to mine the block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould be able to mine the block.", success)

			if !strings.HasPrefix(block.Hash, "00") {
				t.Fatalf("\t%s\tTest 1:\tShould get a hash with two leading zeros, got %s.", failed, block.Hash)
			}
			t.Logf("\t%s\tTest 1:\tShould get a hash with two leading zeros.", success)

			if err := block.VerifyHash(); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould get a block with a current hash: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould get a block with a current hash.", success)
		}

		t.Logf("\tTest 2:\tWhen mining with no time budget.")
		{
			pow := consensus.New(16, 0, nil)

			_, err := pow.Mine(context.Background(), newBlock(t))
			if !errors.Is(err, database.ErrMiningTimeout) {
				t.Fatalf("\t%s\tTest 2:\tShould get a mining timeout: %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould get a mining timeout.", success)
		}

		t.Logf("\tTest 3:\tWhen the mining operation is cancelled.")
		{
			pow := consensus.New(16, time.Minute, nil)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := pow.Mine(ctx, newBlock(t))
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("\t%s\tTest 3:\tShould get a cancelled error: %v", failed, err)
			}
			t.Logf("\t%s\tTest 3:\tShould get a cancelled error.", success)
		}
	}
}

func Test_AdjustDifficulty(t *testing.T) {
	tt := []struct {
		name       string
		difficulty uint
		taken      int64
		exp        uint
	}{
		{"fast", 2, 10, 3},
		{"on-target", 2, 200, 2},
		{"half-boundary", 2, 100, 2},
		{"double-boundary", 2, 400, 2},
		{"slow", 3, 1_000, 2},
		{"slow-floor", 1, 1_000, 1},
		{"slow-zero", 0, 1_000, 1},
	}

	t.Log("Given the need to suggest the next difficulty.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling the %s case.", testID, tst.name)
			{
				pow := consensus.New(tst.difficulty, 200*time.Millisecond, nil)

				prev := database.Block{Header: database.BlockHeader{TimeStamp: 1_000}}
				block := database.Block{Header: database.BlockHeader{TimeStamp: 1_000 + tst.taken}}

				if got := pow.AdjustDifficulty(block, prev); got != tst.exp {
					t.Fatalf("\t%s\tTest %d:\tShould get %d, got %d.", failed, testID, tst.exp, got)
				}
				t.Logf("\t%s\tTest %d:\tShould get %d.", success, testID, tst.exp)
			}
		}
	}
}

func Test_IsHashSolved(t *testing.T) {
	tt := []struct {
		difficulty uint
		hash       string
		exp        bool
	}{
		{0, "ffff", true},
		{2, "00ff", true},
		{2, "0f0f", false},
		{3, "00", false},
		{4, "0000", true},
	}

	t.Log("Given the need to check a hash against the difficulty.")
	{
		for testID, tst := range tt {
			if got := consensus.IsHashSolved(tst.difficulty, tst.hash); got != tst.exp {
				t.Fatalf("\t%s\tTest %d:\tShould get %t for %s at %d.", failed, testID, tst.exp, tst.hash, tst.difficulty)
			}
			t.Logf("\t%s\tTest %d:\tShould get %t for %s at %d.", success, testID, tst.exp, tst.hash, tst.difficulty)
		}
	}
}
