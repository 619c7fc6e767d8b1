package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"xchain-multisend/pkg/network"
)

var networksCmd = &cobra.Command{
	Use:     "networks",
	Aliases: []string{"chains", "ls"},
	Short:   "List the configured networks",
	Long: `List the networks the multisend contract is configured on, and the default
transfer direction.

Examples:
  multisend networks
  multisend networks --json`,
	Run: runNetworks,
}

func init() {
	rootCmd.AddCommand(networksCmd)
}

func runNetworks(cmd *cobra.Command, args []string) {
	env := loadEnv(cmd)
	defer env.close()

	direction := network.DefaultDirection(env.registry)

	if env.json {
		printJSON(map[string]interface{}{
			"networks":         env.registry.All(),
			"contract_address": env.cfg.Contract(),
			"default_source":   direction.Source.ChainID,
			"default_dest":     direction.Destination.ChainID,
		})
		return
	}

	displayNetworks(env.registry.All(), direction, env.cfg.Contract().Hex())
}

func displayNetworks(networks []network.Network, direction network.Direction, contract string) {
	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                                CONFIGURED NETWORKS")
	fmt.Println(strings.Repeat("=", 90))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nCHAIN ID\tIDENTIFIER\tNAME\tRPC URL")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for _, n := range networks {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", n.ChainID, n.Identifier, n.Name, n.RPCURL)
	}
	w.Flush()

	fmt.Printf("\n  Contract:          %s\n", color.CyanString(contract))
	fmt.Printf("  Default Direction: %s\n", color.YellowString(direction.String()))
	fmt.Println("\n" + strings.Repeat("=", 90) + "\n")
}
