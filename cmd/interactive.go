package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"xchain-multisend/pkg/amount"
	"xchain-multisend/pkg/balance"
	"xchain-multisend/pkg/form"
	"xchain-multisend/pkg/history"
	"xchain-multisend/pkg/recipients"
	"xchain-multisend/pkg/submit"
	"xchain-multisend/pkg/types"
)

var interactiveHelp = `Input:
  <addresses>         add addresses separated by commas; a pasted line is one batch
  <empty line>        remove the last recipient (blank lines in a paste count too)

Commands:
  :from <network>     set the source network
  :to <network>       set the destination network
  :amount <eth>       pick a preset amount (` + strings.Join(amount.Presets, ", ") + `)
  :test               add the local dev-node test accounts
  :rm <address>       remove a recipient
  :undo               remove the last recipient
  :balances           show balances of the dev account and the recipients
  :send               send the multisend and wait for the receipt
  :reset              clear the recipient list
  :quit               leave`

var interactiveCmd = &cobra.Command{
	Use:     "interactive",
	Aliases: []string{"i", "ui"},
	Short:   "Build and send a multisend step by step",
	Long: `Start an interactive session. Type or paste recipient addresses, separated
by commas or one per line; an empty line removes the last recipient.

` + interactiveHelp,
	Run: runInteractive,
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
}

// session ties the form to the services it submits through
type session struct {
	env     *runtimeEnv
	form    *form.Form
	sub     *submit.Submitter
	poller  *balance.Poller
	history *history.Store
	dev     common.Address
}

func runInteractive(cmd *cobra.Command, args []string) {
	env := loadEnv(cmd)
	defer env.close()

	if env.json {
		fmt.Println(`{"error": "interactive mode not supported with JSON output"}`)
		os.Exit(1)
	}

	sub := env.submitter()
	sess := &session{
		env:     env,
		form:    form.New(env.registry, env.cfg.MaxRecipients),
		sub:     sub,
		poller:  balance.NewPoller(env.pool, env.registry.All(), env.logger),
		history: env.openHistory(),
		dev:     sub.From(),
	}

	color.Green("\nCross Chain Multisend")
	fmt.Println("Send ETH to multiple addresses cross-chain. Type :help for commands.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		sess.render()
		fmt.Print("> ")

		if !scanner.Scan() {
			fmt.Println()
			return
		}
		if quit := sess.handle(scanner.Text()); quit {
			return
		}
	}
}

// handle applies one input line to the session and reports whether to quit
func (s *session) handle(line string) bool {
	line = strings.TrimSpace(line)

	if line == "" {
		s.form.Recipients.RemoveLast()
		return false
	}

	if !strings.HasPrefix(line, ":") {
		// Errors stay in the list's error slot and are rendered with the form
		_ = s.form.Recipients.AddFromText(line)
		return false
	}

	// A new command replaces whatever the last entry complained about
	s.form.Recipients.ClearError()

	command, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	arg = strings.TrimSpace(arg)

	var err error
	switch strings.ToLower(command) {
	case "q", "quit", "exit":
		return true
	case "h", "help":
		fmt.Println(interactiveHelp)
	case "from":
		err = s.form.SetSource(arg)
	case "to":
		err = s.form.SetDestination(arg)
	case "amount":
		err = s.form.SetAmount(arg)
	case "test":
		err = s.form.Recipients.AddKnownTestSet()
	case "rm", "remove":
		var addr common.Address
		if addr, err = recipients.ParseAddress(arg); err == nil {
			s.form.Recipients.Remove(addr)
		}
	case "undo":
		s.form.Recipients.RemoveLast()
	case "balances", "bal":
		ctx, cancel := interruptContext()
		fetchAndDisplayBalances(ctx, s.poller, s.dev, balance.Accounts(s.dev, s.form.Recipients.Addresses()))
		cancel()
	case "send":
		s.send()
	case "reset":
		s.form.Reset()
	default:
		err = fmt.Errorf("unknown command :%s (type :help)", command)
	}

	if err != nil {
		color.Red("  %v", err)
	}
	return false
}

// send submits the form and waits for the receipt; Ctrl+C abandons the wait
// and returns to the prompt
func (s *session) send() {
	if !s.form.CanSubmit() {
		color.Red("  %v", form.ErrSubmitDisabled)
		return
	}

	ctx, cancel := interruptContext()
	defer cancel()

	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	sp.Suffix = " Sending..."
	sp.Start()

	err := s.form.Submit(ctx, func(ctx context.Context, intent *types.TransferIntent) error {
		result, err := s.sub.Submit(ctx, intent)
		if err != nil {
			return err
		}
		s.env.recordSent(s.history, intent, result)

		sp.Lock()
		sp.Suffix = " Waiting for confirmation..."
		sp.Unlock()

		receipt, err := s.sub.WaitForReceipt(ctx, intent.Source, result.TxHash, s.env.cfg.ReceiptInterval)
		sp.Stop()
		if receipt != nil {
			s.env.recordState(s.history, result.TxHash, submit.ReceiptState(receipt), receipt.BlockNumber.Uint64())
			displaySendResult(intent.Source, result, receipt)
		}
		return err
	})
	sp.Stop()

	if err != nil {
		s.env.logger.Debug("Multisend failed", zap.Error(err))
	}
}

func (s *session) render() {
	f := s.form

	fmt.Println("\n" + strings.Repeat("-", 60))
	fmt.Printf("  Direction:  %s\n", color.YellowString(f.Direction.String()))
	fmt.Printf("  Amount:     %s ETH\n", amount.FormatEther(f.Amount))
	fmt.Printf("  Recipients: %d/%d\n", f.Recipients.Len(), f.Recipients.Max())

	addrs := f.Recipients.Addresses()
	chips := make([]string, len(addrs))
	for i, a := range addrs {
		chips[i] = "[" + balance.ShortAddress(a) + "]"
	}
	if len(chips) > 0 {
		fmt.Printf("    %s\n", color.CyanString(strings.Join(chips, " ")))
	}

	fmt.Printf("  Total:      %s\n", color.GreenString(f.Summary()))

	if err := f.Recipients.LastError(); err != nil {
		color.Red("  %v", err)
	}
	if err := f.LastSubmitError(); err != nil {
		color.Red("  Send failed: %v", err)
	}
}

func joinAddresses(addrs []common.Address, sep string) string {
	var b strings.Builder
	for _, a := range addrs {
		b.WriteString(a.Hex())
		b.WriteString(sep)
	}
	return b.String()
}
