package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"xchain-multisend/pkg/amount"
	"xchain-multisend/pkg/balance"
	"xchain-multisend/pkg/recipients"
)

var (
	balanceAccounts []string
	watchBalances   bool
	balanceInterval time.Duration
)

var balancesCmd = &cobra.Command{
	Use:     "balances",
	Aliases: []string{"balance", "bal"},
	Short:   "Show ETH balances on every network",
	Long: `Show the ETH balance of the sending account, and of any extra accounts, on
every configured network.

Examples:
  multisend balances
  multisend balances --account 0x70997970C51812dc3A010C7d01b50e0d17dc79C8
  multisend balances --watch --interval 2s`,
	Run: runBalances,
}

func init() {
	rootCmd.AddCommand(balancesCmd)

	balancesCmd.Flags().StringSliceVarP(&balanceAccounts, "account", "a", nil, "Extra account to show (repeatable)")
	balancesCmd.Flags().BoolVarP(&watchBalances, "watch", "w", false, "Refresh balances continuously")
	balancesCmd.Flags().DurationVar(&balanceInterval, "interval", 0, "Refresh interval when watching (default poll_interval)")
}

func runBalances(cmd *cobra.Command, args []string) {
	env := loadEnv(cmd)
	defer env.close()

	dev, err := env.cfg.Account()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	extra := make([]common.Address, 0, len(balanceAccounts))
	for _, a := range balanceAccounts {
		addr, err := recipients.ParseAddress(a)
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		extra = append(extra, addr)
	}
	accounts := balance.Accounts(dev, extra)

	poller := balance.NewPoller(env.pool, env.registry.All(), env.logger)

	ctx, cancel := interruptContext()
	defer cancel()

	if !watchBalances {
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		if !env.json {
			s.Suffix = " Fetching balances..."
			s.Start()
		}

		table, err := poller.Fetch(ctx, accounts)
		if !env.json {
			s.Stop()
		}
		if err != nil {
			printError(err)
			os.Exit(1)
		}

		if env.json {
			printJSON(balancesJSON(table, dev))
		} else {
			displayBalances(table, dev)
		}
		return
	}

	if env.json {
		fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
		os.Exit(1)
	}

	if balanceInterval <= 0 {
		balanceInterval = env.cfg.PollInterval
	}
	fmt.Printf("\nRefreshing every %s. Press Ctrl+C to stop.\n", balanceInterval)

	err = poller.Watch(ctx, balanceInterval, func() []common.Address { return accounts }, func(table *balance.Table) {
		displayBalances(table, dev)
	})
	if err != nil && ctx.Err() == nil {
		printError(err)
		os.Exit(1)
	}
}

// fetchAndDisplayBalances shows one balance snapshot; errors are printed, not fatal
func fetchAndDisplayBalances(ctx context.Context, poller *balance.Poller, dev common.Address, accounts []common.Address) {
	table, err := poller.Fetch(ctx, accounts)
	if err != nil {
		color.Red("Error: %v", err)
		return
	}
	displayBalances(table, dev)
}

func displayBalances(table *balance.Table, dev common.Address) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                          BALANCES (ETH)")
	fmt.Println(strings.Repeat("=", 70))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	header := []string{"\nACCOUNT"}
	for _, n := range table.Networks {
		header = append(header, n.Name)
	}
	fmt.Fprintln(w, strings.Join(header, "\t")+"\t")

	for _, a := range table.Accounts {
		label := balance.ShortAddress(a)
		if a == dev {
			label += " (dev)"
		}
		row := []string{label}
		for _, n := range table.Networks {
			row = append(row, amount.FormatBalance(table.Get(a, n.ChainID).Value))
		}
		fmt.Fprintln(w, strings.Join(row, "\t")+"\t")
	}
	w.Flush()

	fmt.Printf("\n  Updated: %s\n", color.HiBlackString(table.FetchedAt.Format("2006-01-02 15:04:05")))
	fmt.Println(strings.Repeat("=", 70) + "\n")
}

type balanceRow struct {
	Account  common.Address    `json:"account"`
	Dev      bool              `json:"dev,omitempty"`
	Balances map[string]string `json:"balances"`
	Errors   map[string]string `json:"errors,omitempty"`
}

func balancesJSON(table *balance.Table, dev common.Address) []balanceRow {
	rows := make([]balanceRow, 0, len(table.Accounts))
	for _, a := range table.Accounts {
		row := balanceRow{Account: a, Dev: a == dev, Balances: map[string]string{}}
		for _, n := range table.Networks {
			key := fmt.Sprintf("%d", n.ChainID)
			cell := table.Get(a, n.ChainID)
			if cell.Err != nil {
				if row.Errors == nil {
					row.Errors = map[string]string{}
				}
				row.Errors[key] = cell.Err.Error()
				continue
			}
			row.Balances[key] = amount.FormatEther(cell.Value)
		}
		rows = append(rows, row)
	}
	return rows
}
