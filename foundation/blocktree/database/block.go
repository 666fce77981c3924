package database

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ardanlabs/blocktree/foundation/blocktree/merkle"
	"github.com/ardanlabs/blocktree/foundation/blocktree/signature"
)

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	Number        uint64 `json:"number"`          // Position of the block in its branch.
	TimeStamp     int64  `json:"timestamp"`       // Milliseconds since epoch when the block was constructed.
	PrevBlockHash string `json:"prev_block_hash"` // Hash of the block this block extends.
	BranchID      string `json:"branch_id"`       // Branch the block was built for.
	Nonce         uint64 `json:"nonce"`           // Value identified to solve the hash solution.
	MerkleRoot    string `json:"merkle_root"`     // Merkle root over the transaction ids.
}

// Block represents a group of transactions batched together. The Hash field
// must always match a fresh computation over the header and transactions,
// so any code that changes a field calls UpdateHash before the block is used.
type Block struct {
	Header BlockHeader `json:"header"`
	Trans  []Tx        `json:"trans"`
	Hash   string      `json:"hash"`
}

// blockContent is the canonical form of a block used to produce its hash.
type blockContent struct {
	Header BlockHeader `json:"header"`
	Trans  []Tx        `json:"trans"`
}

// NewBlock constructs an unmined block. The hash is calculated against a
// nonce of zero.
func NewBlock(number uint64, trans []Tx, prevBlockHash string, branchID string) (Block, error) {
	root, err := MerkleRoot(trans)
	if err != nil {
		return Block{}, err
	}

	b := Block{
		Header: BlockHeader{
			Number:        number,
			TimeStamp:     time.Now().UnixMilli(),
			PrevBlockHash: prevBlockHash,
			BranchID:      branchID,
			Nonce:         0,
			MerkleRoot:    root,
		},
		Trans: trans,
	}

	if err := b.UpdateHash(); err != nil {
		return Block{}, err
	}

	return b, nil
}

// NewGenesisBlock constructs the first block of the root branch.
func NewGenesisBlock() (Block, error) {
	tx, err := NewTx("genesis", "genesis", 0)
	if err != nil {
		return Block{}, err
	}

	return NewBlock(0, []Tx{tx}, signature.ZeroHash, RootBranch)
}

// CalcHash calculates the hash of the block from its current fields.
func (b Block) CalcHash() (string, error) {
	content := blockContent{
		Header: b.Header,
		Trans:  b.Trans,
	}

	hash, err := signature.Hash(content)
	if err != nil {
		return "", fmt.Errorf("%w: block %d: %s", ErrSerialization, b.Header.Number, err)
	}

	return hash, nil
}

// UpdateHash recalculates the hash and writes it back into the block.
// Pointer semantics are being used since the hash field is modified.
func (b *Block) UpdateHash() error {
	hash, err := b.CalcHash()
	if err != nil {
		return err
	}

	b.Hash = hash
	return nil
}

// VerifyHash checks the stored hash matches a fresh calculation.
func (b Block) VerifyHash() error {
	hash, err := b.CalcHash()
	if err != nil {
		return err
	}

	if hash != b.Hash {
		return fmt.Errorf("%w: block %d on branch %s, got %s, exp %s", ErrInvalidHash, b.Header.Number, b.Header.BranchID, b.Hash, hash)
	}

	return nil
}

// VerifyMerkleRoot checks every transaction id matches its content and the
// merkle root matches the transaction ids.
func (b Block) VerifyMerkleRoot() error {
	for _, tx := range b.Trans {
		if err := tx.VerifyID(); err != nil {
			return fmt.Errorf("%w: block %d: %w", ErrInvalidHash, b.Header.Number, err)
		}
	}

	root, err := MerkleRoot(b.Trans)
	if err != nil {
		return err
	}

	if root != b.Header.MerkleRoot {
		return fmt.Errorf("%w: merkle root does not match transactions, got %s, exp %s", ErrInvalidHash, b.Header.MerkleRoot, root)
	}

	return nil
}

// Clone returns a copy of the block that shares no memory with the original.
func (b Block) Clone() Block {

	// A nil slice and an empty slice encode differently, which would change
	// the hash of the copy.
	if b.Trans == nil {
		return b
	}

	trans := make([]Tx, len(b.Trans))
	copy(trans, b.Trans)
	b.Trans = trans

	return b
}

// =============================================================================

// MerkleRoot returns the root of the ordered merkle tree built over the
// transaction ids. An empty set of transactions produces the zero hash.
func MerkleRoot(trans []Tx) (string, error) {
	if len(trans) == 0 {
		return signature.ZeroHash, nil
	}

	leafs := make([]txLeaf, len(trans))
	for i, tx := range trans {
		leafs[i] = txLeaf(tx)
	}

	tree, err := merkle.NewTree(leafs)
	if err != nil {
		return "", fmt.Errorf("%w: merkle: %s", ErrSerialization, err)
	}

	return tree.RootHex(), nil
}

// TxProof is the merkle path proving a transaction is committed to by the
// merkle root of a block.
type TxProof struct {
	TxID       string   `json:"tx_id"`
	MerkleRoot string   `json:"merkle_root"`
	Hashes     []string `json:"hashes"`
	Order      []int64  `json:"order"`
}

// Proof returns the merkle proof for the specified transaction. The proof is
// checked against the merkle root stored in the header before it's returned.
func (b Block) Proof(txID string) (TxProof, error) {
	idx := -1
	for i, tx := range b.Trans {
		if tx.ID == txID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return TxProof{}, fmt.Errorf("%w: %s in block %d", ErrTxNotFound, txID, b.Header.Number)
	}

	leafs := make([]txLeaf, len(b.Trans))
	for i, tx := range b.Trans {
		leafs[i] = txLeaf(tx)
	}

	tree, err := merkle.NewTree(leafs)
	if err != nil {
		return TxProof{}, fmt.Errorf("%w: merkle: %s", ErrSerialization, err)
	}

	if tree.RootHex() != b.Header.MerkleRoot {
		return TxProof{}, fmt.Errorf("%w: merkle root does not match transactions, got %s, exp %s", ErrInvalidHash, b.Header.MerkleRoot, tree.RootHex())
	}

	if err := tree.VerifyData(leafs[idx]); err != nil {
		return TxProof{}, fmt.Errorf("%w: %s", ErrInvalidHash, err)
	}

	hashes, order, err := tree.Proof(leafs[idx])
	if err != nil {
		return TxProof{}, fmt.Errorf("%w: %s", ErrTxNotFound, err)
	}

	proof := TxProof{
		TxID:       txID,
		MerkleRoot: b.Header.MerkleRoot,
		Hashes:     make([]string, len(hashes)),
		Order:      order,
	}
	for i, h := range hashes {
		proof.Hashes[i] = hex.EncodeToString(h)
	}

	return proof, nil
}

// Verify checks the proof leads from the transaction id to the merkle root.
func (p TxProof) Verify() error {
	leaf, err := hex.DecodeString(p.TxID)
	if err != nil {
		return fmt.Errorf("%w: tx id %q: %s", ErrSerialization, p.TxID, err)
	}

	root, err := hex.DecodeString(p.MerkleRoot)
	if err != nil {
		return fmt.Errorf("%w: merkle root %q: %s", ErrSerialization, p.MerkleRoot, err)
	}

	hashes := make([][]byte, len(p.Hashes))
	for i, h := range p.Hashes {
		if hashes[i], err = hex.DecodeString(h); err != nil {
			return fmt.Errorf("%w: proof hash %q: %s", ErrSerialization, h, err)
		}
	}

	if err := merkle.VerifyProof(leaf, hashes, p.Order, root); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidHash, err)
	}

	return nil
}

// txLeaf implements the merkle Hashable interface for a transaction.
type txLeaf Tx

// Hash returns the merkle leaf hash of the transaction.
func (l txLeaf) Hash() ([]byte, error) {
	return Tx(l).LeafHash()
}

// Equals reports whether two leafs carry the same transaction id.
func (l txLeaf) Equals(other txLeaf) bool {
	return l.ID == other.ID
}
