package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"xchain-multisend/pkg/amount"
	"xchain-multisend/pkg/balance"
	"xchain-multisend/pkg/form"
	"xchain-multisend/pkg/network"
	"xchain-multisend/pkg/parser"
	"xchain-multisend/pkg/submit"
	"xchain-multisend/pkg/types"
)

var (
	recipientList  string
	recipientsFile string
	useTestSet     bool
	noConfirm      bool
	waitReceipt    bool
	allowCustom    bool
)

var sendCmd = &cobra.Command{
	Use:   "send <amount> [ETH] from <network> to <network>",
	Short: "Send ETH to many recipients on another chain",
	Long: `Send the same amount of ETH to every recipient on the destination chain.
One transaction is sent on the source chain; the cross domain messenger
relays the payouts to the destination chain.

Networks can be given by identifier, name or chain id. Amounts are limited to
the presets ` + strings.Join(amount.Presets, ", ") + ` ETH unless --allow-custom is set.

Examples:
  # Two recipients
  multisend send 0.1 ETH from l2a to l2b --recipients 0x70997970C51812dc3A010C7d01b50e0d17dc79C8,0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC

  # Recipients from a file, one per line
  multisend send 1 from 901 to 902 --recipients-file recipients.txt

  # The local dev-node test accounts, waiting for the receipt
  multisend send 0.5 ETH from l2b to l2a --test-set --wait --yes`,
	Args: cobra.MinimumNArgs(1),
	Run:  runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVarP(&recipientList, "recipients", "r", "", "Comma separated recipient addresses")
	sendCmd.Flags().StringVarP(&recipientsFile, "recipients-file", "f", "", "File with recipient addresses, comma or newline separated (- for stdin)")
	sendCmd.Flags().BoolVar(&useTestSet, "test-set", false, "Add the local dev-node test accounts as recipients")
	sendCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
	sendCmd.Flags().BoolVarP(&waitReceipt, "wait", "w", false, "Wait for the transaction receipt")
	sendCmd.Flags().BoolVar(&allowCustom, "allow-custom", false, "Allow amounts other than the presets")
}

func runSend(cmd *cobra.Command, args []string) {
	// Parse the command
	sendReq, err := parser.ParseSendCommand(strings.Join(args, " "))
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	env := loadEnv(cmd)
	defer env.close()

	f, err := buildSendForm(env, sendReq)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if env.json {
		noConfirm = true
	} else {
		displaySendSummary(f)
	}

	// Ask for confirmation
	if !noConfirm {
		if !confirmSend() {
			fmt.Println("\nSend cancelled.")
			os.Exit(0)
		}
	}

	ctx, cancel := interruptContext()
	defer cancel()

	sub := env.submitter()

	var (
		result  *submit.Result
		receipt *ethtypes.Receipt
	)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !env.json {
		s.Suffix = " Sending multisend transaction..."
		s.Start()
	}

	store := env.openHistory()

	err = f.Submit(ctx, func(ctx context.Context, intent *types.TransferIntent) error {
		var err error
		result, err = sub.Submit(ctx, intent)
		if err != nil {
			return err
		}
		env.recordSent(store, intent, result)
		if !waitReceipt {
			return nil
		}

		s.Lock()
		s.Suffix = " Waiting for confirmation..."
		s.Unlock()
		receipt, err = sub.WaitForReceipt(ctx, intent.Source, result.TxHash, env.cfg.ReceiptInterval)
		if receipt != nil {
			env.recordState(store, result.TxHash, submit.ReceiptState(receipt), receipt.BlockNumber.Uint64())
		}
		return err
	})
	if !env.json {
		s.Stop()
	}

	if env.json {
		output := map[string]interface{}{
			"source":      f.Direction.Source,
			"destination": f.Direction.Destination,
			"amount":      amount.FormatEther(f.Amount),
			"total":       amount.FormatEther(f.Total()),
			"recipients":  f.Recipients.Addresses(),
		}
		if result != nil {
			output["transaction"] = result
		}
		if receipt != nil {
			output["block_number"] = receipt.BlockNumber
			output["gas_used"] = receipt.GasUsed
		}
		if err != nil {
			output["error"] = err.Error()
		}
		printJSON(output)
		if err != nil {
			os.Exit(1)
		}
		return
	}

	if result != nil {
		displaySendResult(f.Direction.Source, result, receipt)
	}
	if err != nil {
		if errors.Is(err, submit.ErrReverted) {
			color.Red("\n✗ Transaction reverted on %s", f.Direction.Source.Name)
		}
		printError(err)
		os.Exit(1)
	}

	if receipt == nil {
		fmt.Println("\nYou can monitor the transaction using:")
		color.Cyan("  multisend status %s --network %d\n", result.TxHash.Hex(), f.Direction.Source.ChainID)
	}
}

func buildSendForm(env *runtimeEnv, req *parser.SendCommand) (*form.Form, error) {
	f := form.New(env.registry, env.cfg.MaxRecipients)

	if err := f.SetSource(req.Source); err != nil {
		return nil, fmt.Errorf("source network: %w", err)
	}
	if err := f.SetDestination(req.Destination); err != nil {
		return nil, fmt.Errorf("destination network: %w", err)
	}

	setAmount := f.SetAmount
	if allowCustom {
		setAmount = f.SetCustomAmount
	}
	if err := setAmount(req.Amount); err != nil {
		return nil, err
	}

	if recipientList != "" {
		if err := f.Recipients.AddFromText(recipientList); err != nil {
			return nil, err
		}
	}
	if recipientsFile != "" {
		text, err := readInput(recipientsFile)
		if err != nil {
			return nil, err
		}
		if err := f.Recipients.AddFromText(text); err != nil {
			return nil, err
		}
	}
	if useTestSet {
		if err := f.Recipients.AddKnownTestSet(); err != nil {
			return nil, err
		}
	}

	if !f.CanSubmit() {
		return nil, fmt.Errorf("%w: use --recipients, --recipients-file or --test-set", types.ErrNoRecipients)
	}
	return f, nil
}

// readInput reads a file, or stdin when name is "-"
func readInput(name string) (string, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read recipients: %w", err)
	}
	return string(data), nil
}

func displaySendSummary(f *form.Form) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                  CROSS CHAIN MULTISEND")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  From:              %s\n", color.YellowString(f.Direction.Source.String()))
	fmt.Printf("  To:                %s\n", color.YellowString(f.Direction.Destination.String()))
	fmt.Printf("  Amount:            %s ETH per recipient\n", amount.FormatEther(f.Amount))
	fmt.Printf("  Recipients:        %d\n", f.Recipients.Len())

	for _, r := range f.Recipients.Addresses() {
		fmt.Printf("    %s\n", color.CyanString(r.Hex()))
	}

	fmt.Printf("\n  Total:             %s\n", color.GreenString(f.Summary()))
	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func displaySendResult(source network.Network, result *submit.Result, receipt *ethtypes.Receipt) {
	if receipt != nil && receipt.Status == ethtypes.ReceiptStatusSuccessful {
		color.Green("\n✓ Multisend confirmed on %s", source.Name)
	} else {
		color.Green("\n✓ Multisend transaction sent on %s", source.Name)
	}

	fmt.Printf("  Transaction:     %s\n", color.CyanString(result.TxHash.Hex()))
	fmt.Printf("  Relay ID:        %s\n", color.HiBlackString(result.RelayID.Hex()))
	fmt.Printf("  From:            %s\n", balance.ShortAddress(result.From))
	fmt.Printf("  Value:           %s ETH\n", amount.FormatEther(result.Value))
	if receipt != nil {
		fmt.Printf("  Block:           %s\n", receipt.BlockNumber)
		fmt.Printf("  Gas Used:        %d\n", receipt.GasUsed)
	}
	if source.ExplorerURL != "" {
		fmt.Printf("  Explorer:        %s/tx/%s\n", strings.TrimRight(source.ExplorerURL, "/"), result.TxHash.Hex())
	}
}

func confirmSend() bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("\nProceed with multisend? (y/N): ")

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
