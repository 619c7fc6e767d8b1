package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"xchain-multisend/pkg/amount"
	"xchain-multisend/pkg/history"
)

var (
	refreshHistory bool
	historyLimit   int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List multisends sent from this machine",
	Long: `List the multisend transactions recorded by the send and interactive
commands, newest first.

Examples:
  multisend history
  multisend history --refresh
  multisend history --limit 5 --json`,
	Run: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().BoolVar(&refreshHistory, "refresh", false, "Re-check transactions that are still pending")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of entries to show (0 for all)")
}

func runHistory(cmd *cobra.Command, args []string) {
	env := loadEnv(cmd)
	defer env.close()

	store, err := history.NewStore(env.cfg.HistoryFile)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if refreshHistory {
		refreshPending(env, store)
	}

	records := store.List()
	if historyLimit > 0 && len(records) > historyLimit {
		records = records[:historyLimit]
	}

	if env.json {
		printJSON(records)
		return
	}
	displayHistory(records, store.Count())
}

func refreshPending(env *runtimeEnv, store *history.Store) {
	pending := store.Pending()
	if len(pending) == 0 {
		return
	}

	ctx, cancel := interruptContext()
	defer cancel()

	sub := env.submitter()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !env.json {
		s.Suffix = fmt.Sprintf(" Checking %d pending transactions...", len(pending))
		s.Start()
	}
	defer s.Stop()

	for _, r := range pending {
		n, ok := env.registry.ByChainID(r.SourceID)
		if !ok {
			env.logger.Warn("Source network no longer configured", zap.Uint64("chain_id", r.SourceID))
			continue
		}
		status, err := sub.TransactionStatus(ctx, n, r.TxHash)
		if err != nil {
			env.logger.Warn("Failed to check transaction", zap.Stringer("tx", r.TxHash), zap.Error(err))
			continue
		}
		env.recordState(store, r.TxHash, status.State, status.BlockNumber)
	}
}

func displayHistory(records []*history.Record, total int) {
	if len(records) == 0 {
		color.Yellow("\nNo multisends recorded yet.\n")
		fmt.Println("Send one with:")
		color.Cyan("  multisend send 0.01 ETH from l2a to l2b --test-set\n")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 120))
	color.Green("                                              MULTISEND HISTORY")
	fmt.Println(strings.Repeat("=", 120))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nSENT\tDIRECTION\tRECIPIENTS\tTOTAL (ETH)\tSTATUS\tTRANSACTION")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s -> %s\t%d × %s\t%s\t%s\t%s\n",
			r.SentAt.Local().Format("2006-01-02 15:04:05"),
			r.Source, r.Destination,
			len(r.Recipients), amount.FormatEther(r.Amount),
			amount.FormatEther(r.Total),
			getColoredStatus(r.State),
			r.TxHash.Hex(),
		)
	}
	w.Flush()

	fmt.Printf("\nShowing %d of %d multisends\n\n", len(records), total)
}
