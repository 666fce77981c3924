package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var showValidity bool

// branchesCmd represents the branches command.
var branchesCmd = &cobra.Command{
	Use:   "branches [branch]",
	Short: "Print the branches of the blocktree or the blocks of one branch",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := "/v1/branches/list"
		switch {
		case len(args) == 1 && showValidity:
			path = "/v1/branches/valid/" + args[0]
		case len(args) == 1:
			path += "/" + args[0]
		}

		resp, err := http.Get(url + path)
		if err != nil {
			log.Fatal(err)
		}
		defer resp.Body.Close()

		var v any
		if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
			log.Fatal(err)
		}

		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(string(out))
	},
}

func init() {
	rootCmd.AddCommand(branchesCmd)
	branchesCmd.Flags().BoolVarP(&showValidity, "valid", "v", false, "Report whether the branch is valid.")
}
