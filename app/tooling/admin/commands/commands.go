// Package commands contains the functionality for the set of commands
// currently supported by the admin tool.
package commands

import (
	"errors"
	"time"
)

// ErrHelp provides context that help was given.
var ErrHelp = errors.New("provided help")

// LedgerConfig holds the settings used to construct a ledger.
type LedgerConfig struct {
	Difficulty      uint
	TargetBlockTime time.Duration
	SplitInterval   int
	Nodes           int
	DBPath          string
}
