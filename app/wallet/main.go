// This program is a simple wallet for signing transactions and submitting
// them to a blocktree node.
package main

import "github.com/ardanlabs/blocktree/app/wallet/cmd"

func main() {
	cmd.Execute()
}
