package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"xchain-multisend/pkg/amount"
	"xchain-multisend/pkg/network"
	"xchain-multisend/pkg/submit"
)

var (
	statusNetwork string
	watchStatus   bool
	watchInterval time.Duration
)

var statusCmd = &cobra.Command{
	Use:   "status <tx-hash>",
	Short: "Check the status of a multisend transaction",
	Long: `Check whether a multisend transaction is pending, mined or reverted on its
source chain. Without --network every configured network is searched.

Examples:
  multisend status 0x5c50...e1a4
  multisend status 0x5c50...e1a4 --network l2a
  multisend status 0x5c50...e1a4 --watch --interval 2s`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusNetwork, "network", "n", "", "Network the transaction was sent on")
	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Watch status updates until the transaction is mined")
	statusCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Polling interval when watching (default receipt_interval)")
}

func runStatus(cmd *cobra.Command, args []string) {
	raw, err := hexutil.Decode(args[0])
	if err != nil || len(raw) != common.HashLength {
		printError(fmt.Errorf("invalid transaction hash %q", args[0]))
		os.Exit(1)
	}
	hash := common.BytesToHash(raw)

	env := loadEnv(cmd)
	defer env.close()

	networks := env.registry.All()
	if statusNetwork != "" {
		n, err := env.registry.Lookup(statusNetwork)
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		networks = []network.Network{n}
	}

	ctx, cancel := interruptContext()
	defer cancel()

	sub := env.submitter()
	store := env.openHistory()
	record := func(status *submit.TxStatus) {
		env.recordState(store, status.Hash, status.State, status.BlockNumber)
	}

	if watchStatus {
		if watchInterval <= 0 {
			watchInterval = env.cfg.ReceiptInterval
		}
		watchTxStatus(ctx, sub, networks, hash, env.json, record)
	} else {
		checkTxStatus(ctx, sub, networks, hash, env.json, record)
	}
}

// findTxStatus returns the status from the first network that knows the
// transaction. When none does, a lookup error on any network is returned
// instead of an unknown status, since the transaction may live there.
func findTxStatus(ctx context.Context, sub *submit.Submitter, networks []network.Network, hash common.Hash) (*submit.TxStatus, error) {
	var (
		unknown *submit.TxStatus
		errs    []error
	)
	for _, n := range networks {
		status, err := sub.TransactionStatus(ctx, n, hash)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name, err))
			continue
		}
		if status.State != submit.TxUnknown {
			return status, nil
		}
		unknown = status
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return unknown, nil
}

func checkTxStatus(ctx context.Context, sub *submit.Submitter, networks []network.Network, hash common.Hash, jsonOutput bool, record func(*submit.TxStatus)) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Checking transaction status..."
		s.Start()
	}

	status, err := findTxStatus(ctx, sub, networks, hash)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}
	record(status)

	if jsonOutput {
		printJSON(status)
	} else {
		displayStatus(status)
	}
}

func watchTxStatus(ctx context.Context, sub *submit.Submitter, networks []network.Network, hash common.Hash, jsonOutput bool, record func(*submit.TxStatus)) {
	if jsonOutput {
		fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
		os.Exit(1)
	}

	fmt.Printf("\nWatching transaction %s\n", color.CyanString(hash.Hex()))
	fmt.Printf("Checking every %s. Press Ctrl+C to stop.\n\n", watchInterval)

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		status, err := findTxStatus(ctx, sub, networks, hash)
		if err != nil {
			color.Red("Error: %v", err)
		} else {
			record(status)
			displayStatus(status)
			if status.IsFinal() {
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func displayStatus(status *submit.TxStatus) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                     TRANSACTION STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Transaction:     %s\n", color.CyanString(status.Hash.Hex()))
	fmt.Printf("  Network:         %s\n", status.Network)
	fmt.Printf("  Status:          %s\n", getColoredStatus(status.State))

	if status.State != submit.TxUnknown {
		fmt.Printf("  Nonce:           %d\n", status.Nonce)
		if status.Value != nil {
			fmt.Printf("  Value:           %s ETH\n", amount.FormatEther(status.Value))
		}
		if status.To != nil {
			fmt.Printf("  To:              %s\n", color.HiBlackString(status.To.Hex()))
		}
	}
	if status.IsFinal() {
		fmt.Printf("  Block:           %d\n", status.BlockNumber)
		fmt.Printf("  Gas Used:        %d\n", status.GasUsed)
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func getColoredStatus(state submit.TxState) string {
	label := strings.ToUpper(string(state))

	switch state {
	case submit.TxSuccess:
		return color.GreenString(label)
	case submit.TxPending:
		return color.YellowString(label)
	case submit.TxReverted:
		return color.RedString(label)
	default:
		return color.HiBlackString(label)
	}
}
