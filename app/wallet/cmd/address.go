package cmd

import (
	"fmt"
	"log"
	"slices"

	"github.com/ardanlabs/blocktree/foundation/nameservice"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var listAll bool

// addressCmd prints the address of the selected wallet or of every wallet
// in the wallet path.
var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the address of the wallet",
	Run: func(cmd *cobra.Command, args []string) {
		if listAll {
			ns, err := nameservice.New(walletPath)
			if err != nil {
				log.Fatal(err)
			}

			accounts := ns.Copy()
			names := make([]string, 0, len(accounts))
			byName := make(map[string]string, len(accounts))
			for address, name := range accounts {
				names = append(names, name)
				byName[name] = address
			}
			slices.Sort(names)

			for _, name := range names {
				fmt.Printf("%-20s %s\n", name, byName[name])
			}
			return
		}

		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(crypto.PubkeyToAddress(privateKey.PublicKey))
	},
}

func init() {
	rootCmd.AddCommand(addressCmd)
	addressCmd.Flags().BoolVarP(&listAll, "all", "a", false, "Print the address of every wallet in the wallet path.")
}
