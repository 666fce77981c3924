package disk_test

import (
	"errors"
	"testing"

	"github.com/ardanlabs/blocktree/foundation/blocktree/database"
	"github.com/ardanlabs/blocktree/foundation/blocktree/storage/disk"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Reload(t *testing.T) {
	t.Log("Given the need to store branches on disk.")
	{
		dbPath := t.TempDir()

		d, err := disk.New(dbPath)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to open the storage: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to open the storage.", success)

		genesis, err := database.NewGenesisBlock()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to create the genesis block: %v", failed, err)
		}

		tx, _ := database.NewTx("bill", "jack", 18_446_744_073_709_551_615)
		next, err := database.NewBlock(1, []database.Tx{tx}, genesis.Hash, database.RootBranch)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to create the next block: %v", failed, err)
		}

		empty, err := database.NewBlock(2, nil, next.Hash, database.RootBranch)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to create an empty block: %v", failed, err)
		}

		for _, b := range []database.Block{genesis, next, empty} {
			if err := d.Append(database.RootBranch, b); err != nil {
				t.Fatalf("\t%s\tShould be able to append block %d: %v", failed, b.Header.Number, err)
			}
		}
		if err := d.Append("root.1", next); err != nil {
			t.Fatalf("\t%s\tShould be able to append to a child branch: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to append blocks.", success)

		if err := d.Append("../escape", next); !errors.Is(err, database.ErrStorage) {
			t.Fatalf("\t%s\tShould reject a branch id that is a path: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a branch id that is a path.", success)

		d.Close()

		reopened, err := disk.New(dbPath)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to reopen the storage: %v", failed, err)
		}

		blocks, exists := reopened.Read(database.RootBranch)
		if !exists || len(blocks) != 3 {
			t.Fatalf("\t%s\tShould reload 3 blocks, got %d.", failed, len(blocks))
		}
		t.Logf("\t%s\tShould reload 3 blocks.", success)

		for _, b := range blocks {
			if err := b.VerifyHash(); err != nil {
				t.Fatalf("\t%s\tShould reload block %d with a matching hash: %v", failed, b.Header.Number, err)
			}
		}
		t.Logf("\t%s\tShould reload blocks with matching hashes.", success)

		ids := reopened.BranchIDs()
		if len(ids) != 2 || ids[0] != "root" || ids[1] != "root.1" {
			t.Fatalf("\t%s\tShould reload the branch ids, got %v.", failed, ids)
		}
		t.Logf("\t%s\tShould reload the branch ids.", success)
	}
}
