package public

import (
	"math/big"

	"github.com/ardanlabs/blocktree/foundation/blocktree/database"
	"github.com/ardanlabs/blocktree/foundation/nameservice"
)

// SignedTx is the form of a signed transaction submitted by a wallet.
type SignedTx struct {
	From      string   `json:"from" validate:"required"`
	To        string   `json:"to" validate:"required"`
	Amount    uint64   `json:"amount" validate:"gt=0"`
	TimeStamp int64    `json:"timestamp" validate:"gt=0"`
	ID        string   `json:"id" validate:"required,hexadecimal,len=64"`
	V         *big.Int `json:"v" validate:"required"`
	R         *big.Int `json:"r" validate:"required"`
	S         *big.Int `json:"s" validate:"required"`
}

func toDBSignedTx(tx SignedTx) database.SignedTx {
	return database.SignedTx{
		Tx: database.Tx{
			From:      tx.From,
			To:        tx.To,
			Amount:    tx.Amount,
			TimeStamp: tx.TimeStamp,
			ID:        tx.ID,
		},
		V: tx.V,
		R: tx.R,
		S: tx.S,
	}
}

type tx struct {
	From      string `json:"from"`
	FromName  string `json:"from_name"`
	To        string `json:"to"`
	ToName    string `json:"to_name"`
	Amount    uint64 `json:"amount"`
	TimeStamp int64  `json:"timestamp"`
	ID        string `json:"id"`
}

type block struct {
	Number        uint64 `json:"number"`
	BranchID      string `json:"branch_id"`
	PrevBlockHash string `json:"prev_block_hash"`
	TimeStamp     int64  `json:"timestamp"`
	Nonce         uint64 `json:"nonce"`
	MerkleRoot    string `json:"merkle_root"`
	Hash          string `json:"hash"`
	Trans         []tx   `json:"trans"`
}

func toBlock(blk database.Block, ns *nameservice.NameService) block {
	trans := make([]tx, len(blk.Trans))
	for i, tran := range blk.Trans {
		trans[i] = tx{
			From:      tran.From,
			FromName:  ns.Lookup(tran.From),
			To:        tran.To,
			ToName:    ns.Lookup(tran.To),
			Amount:    tran.Amount,
			TimeStamp: tran.TimeStamp,
			ID:        tran.ID,
		}
	}

	return block{
		Number:        blk.Header.Number,
		BranchID:      blk.Header.BranchID,
		PrevBlockHash: blk.Header.PrevBlockHash,
		TimeStamp:     blk.Header.TimeStamp,
		Nonce:         blk.Header.Nonce,
		MerkleRoot:    blk.Header.MerkleRoot,
		Hash:          blk.Hash,
		Trans:         trans,
	}
}

type added struct {
	Block   block  `json:"block"`
	Warning string `json:"warning,omitempty"`
}

type branch struct {
	ID     string  `json:"id"`
	Length int     `json:"length"`
	Blocks []block `json:"blocks"`
}

type validity struct {
	Branch string `json:"branch"`
	Valid  bool   `json:"valid"`
}

type proof struct {
	Branch string `json:"branch"`
	Block  uint64 `json:"block"`
	database.TxProof
}

type supply struct {
	TotalSupply uint64 `json:"total_supply"`
}

type difficulty struct {
	Branch     string `json:"branch"`
	Difficulty uint   `json:"difficulty"`
}
