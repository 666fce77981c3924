package cmd

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/ardanlabs/blocktree/foundation/blocktree/database"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	to     string
	amount uint64
	branch string
)

// sendCmd represents the send command.
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Sign a transaction and mine it into the next block of a branch",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			log.Fatal(err)
		}

		signedTx, err := signTx(privateKey, to, amount)
		if err != nil {
			log.Fatal(err)
		}

		body, err := postTx(url, branch, signedTx)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(string(body))
	},
}

// signTx constructs a transaction from the address of the private key and
// signs it.
func signTx(privateKey *ecdsa.PrivateKey, to string, amount uint64) (database.SignedTx, error) {
	from := crypto.PubkeyToAddress(privateKey.PublicKey).String()

	tx, err := database.NewTx(from, to, amount)
	if err != nil {
		return database.SignedTx{}, err
	}

	return tx.Sign(privateKey)
}

// postTx asks the node to mine the transaction into the next block of the
// branch and returns the response body.
func postTx(nodeURL string, branchID string, signedTx database.SignedTx) ([]byte, error) {
	data, err := json.Marshal([]database.SignedTx{signedTx})
	if err != nil {
		return nil, err
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/blocks/add/%s", nodeURL, branchID), "application/json", bytes.NewBuffer(data))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("status[%d]: %s", resp.StatusCode, body)
	}

	return body, nil
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Account receiving the value.")
	sendCmd.Flags().Uint64VarP(&amount, "amount", "a", 0, "Amount to send.")
	sendCmd.Flags().StringVarP(&branch, "branch", "b", database.RootBranch, "Branch to mine the transaction into.")
	sendCmd.MarkFlagRequired("to")
	sendCmd.MarkFlagRequired("amount")
}
