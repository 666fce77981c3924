package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/ardanlabs/blocktree/foundation/blocktree/database"
	"github.com/spf13/cobra"
)

// proofCmd fetches the merkle proof of a transaction and verifies it.
var proofCmd = &cobra.Command{
	Use:   "proof <branch> <block> <tx>",
	Short: "Verify a transaction is part of a block",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		proof, err := fetchProof(url, args[0], args[1], args[2])
		if err != nil {
			log.Fatal(err)
		}

		if err := proof.Verify(); err != nil {
			log.Fatal(err)
		}

		fmt.Printf("tx %s is committed by merkle root %s\n", proof.TxID, proof.MerkleRoot)
	},
}

// fetchProof asks the node for the merkle proof of the transaction.
func fetchProof(nodeURL string, branchID string, block string, txID string) (database.TxProof, error) {
	resp, err := http.Get(fmt.Sprintf("%s/v1/branches/proof/%s/%s/%s", nodeURL, branchID, block, txID))
	if err != nil {
		return database.TxProof{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return database.TxProof{}, fmt.Errorf("status[%d]: %s", resp.StatusCode, body)
	}

	var proof database.TxProof
	if err := json.NewDecoder(resp.Body).Decode(&proof); err != nil {
		return database.TxProof{}, err
	}

	return proof, nil
}

func init() {
	rootCmd.AddCommand(proofCmd)
}
