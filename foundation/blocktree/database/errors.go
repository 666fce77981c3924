package database

import "errors"

// Set of error kinds surfaced by the blocktree packages. Callers add context
// with fmt.Errorf and %w, and test for a kind with errors.Is.
var (
	ErrBranchNotFound  = errors.New("branch not found")
	ErrBlockNotFound   = errors.New("block not found")
	ErrTxNotFound      = errors.New("transaction not found")
	ErrInvalidHash     = errors.New("invalid hash")
	ErrInvalidPrevHash = errors.New("invalid previous hash")
	ErrSerialization   = errors.New("serialization failure")
	ErrMiningTimeout   = errors.New("mining timeout")
	ErrClustering      = errors.New("clustering failure")
	ErrTransaction     = errors.New("transaction failure")
	ErrNetwork         = errors.New("network failure")
	ErrStorage         = errors.New("storage failure")
)
