package database

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/ardanlabs/blocktree/foundation/blocktree/signature"
)

// Tx is a value transfer between two parties. A Tx is immutable once it is
// constructed since its ID is a digest of the other fields.
type Tx struct {
	From      string `json:"from"`      // Identity of the account sending the value.
	To        string `json:"to"`        // Identity of the account receiving the value.
	Amount    uint64 `json:"amount"`    // Amount of value being transferred.
	TimeStamp int64  `json:"timestamp"` // Milliseconds since epoch when the transaction was created.
	ID        string `json:"id"`        // Hex digest of the fields above.
}

// txContent is the canonical form of a transaction used to produce its ID.
type txContent struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Amount    uint64 `json:"amount"`
	TimeStamp int64  `json:"timestamp"`
}

// NewTx constructs a new transaction stamped with the current time.
func NewTx(from string, to string, amount uint64) (Tx, error) {
	tx := Tx{
		From:      from,
		To:        to,
		Amount:    amount,
		TimeStamp: time.Now().UnixMilli(),
	}

	id, err := tx.Hash()
	if err != nil {
		return Tx{}, err
	}
	tx.ID = id

	return tx, nil
}

// Hash recomputes the content identifier from the transaction fields. It
// does not modify the stored ID.
func (tx Tx) Hash() (string, error) {
	content := txContent{
		From:      tx.From,
		To:        tx.To,
		Amount:    tx.Amount,
		TimeStamp: tx.TimeStamp,
	}

	id, err := signature.Hash(content)
	if err != nil {
		return "", fmt.Errorf("%w: tx: %s", ErrSerialization, err)
	}

	return id, nil
}

// Validate performs the syntactic checks on a transaction. This is not a
// signature or balance check.
func (tx Tx) Validate() bool {
	return tx.From != "" && tx.To != "" && tx.Amount > 0
}

// VerifyID checks the stored ID still matches the transaction fields.
func (tx Tx) VerifyID() error {
	id, err := tx.Hash()
	if err != nil {
		return err
	}

	if id != tx.ID {
		return fmt.Errorf("%w: tx id %s does not match content, exp %s", ErrTransaction, tx.ID, id)
	}

	return nil
}

// Sign uses the specified private key to sign the transaction.
func (tx Tx) Sign(privateKey *ecdsa.PrivateKey) (SignedTx, error) {
	v, r, s, err := signature.Sign(tx, privateKey)
	if err != nil {
		return SignedTx{}, err
	}

	signedTx := SignedTx{
		Tx: tx,
		V:  v,
		R:  r,
		S:  s,
	}

	return signedTx, nil
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s->%s:%d", tx.From, tx.To, tx.Amount)
}

// LeafHash returns the bytes used as the merkle leaf for the transaction,
// which is the decoded content identifier.
func (tx Tx) LeafHash() ([]byte, error) {
	b, err := hex.DecodeString(tx.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: tx id %q: %s", ErrSerialization, tx.ID, err)
	}

	return b, nil
}

// =============================================================================

// SignedTx is a signed version of the transaction. This is how clients like
// a wallet provide transactions for inclusion into the blocktree.
type SignedTx struct {
	Tx
	V *big.Int `json:"v"` // Recovery identifier, either 31 or 32 with the tree id.
	R *big.Int `json:"r"` // First coordinate of the ECDSA signature.
	S *big.Int `json:"s"` // Second coordinate of the ECDSA signature.
}

// Validate verifies the transaction is well formed, carries the ID for its
// content and was signed by the account in the from field.
func (tx SignedTx) Validate() error {
	if !tx.Tx.Validate() {
		return fmt.Errorf("%w: from, to and a non-zero amount are required", ErrTransaction)
	}

	if err := tx.VerifyID(); err != nil {
		return err
	}

	if err := signature.VerifySignature(tx.V, tx.R, tx.S); err != nil {
		return fmt.Errorf("%w: %s", ErrTransaction, err)
	}

	from, err := signature.FromAddress(tx.Tx, tx.V, tx.R, tx.S)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrTransaction, err)
	}

	if from != tx.From {
		return fmt.Errorf("%w: signature belongs to %s, not %s", ErrTransaction, from, tx.From)
	}

	return nil
}

// SignatureString returns the signature as a string.
func (tx SignedTx) SignatureString() string {
	return signature.SignatureString(tx.V, tx.R, tx.S)
}
