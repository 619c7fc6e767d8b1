package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"xchain-multisend/pkg/recipients"
)

var recipientsCmd = &cobra.Command{
	Use:   "recipients",
	Short: "Validate recipient lists",
}

var recipientsCheckCmd = &cobra.Command{
	Use:   "check <addresses|->",
	Short: "Validate and normalise a recipient list",
	Long: `Validate a comma or newline separated list of recipient addresses the same
way the send command does, and print it in checksum form. Use - to read the
list from stdin.

Examples:
  multisend recipients check 0x70997970c51812dc3a010c7d01b50e0d17dc79c8,0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC
  cat recipients.txt | multisend recipients check -`,
	Args: cobra.ExactArgs(1),
	Run:  runRecipientsCheck,
}

var recipientsTestSetCmd = &cobra.Command{
	Use:   "test-set",
	Short: "Print the local dev-node test accounts",
	Run:   runRecipientsTestSet,
}

func init() {
	rootCmd.AddCommand(recipientsCmd)
	recipientsCmd.AddCommand(recipientsCheckCmd)
	recipientsCmd.AddCommand(recipientsTestSetCmd)
}

func runRecipientsCheck(cmd *cobra.Command, args []string) {
	env := loadEnv(cmd)
	defer env.close()

	text := args[0]
	if text == "-" {
		var err error
		if text, err = readInput("-"); err != nil {
			printError(err)
			os.Exit(1)
		}
	}

	list := recipients.New(env.cfg.MaxRecipients)
	err := list.AddFromText(text)

	if env.json {
		output := map[string]interface{}{
			"recipients": list.Addresses(),
			"count":      list.Len(),
			"max":        list.Max(),
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

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	for _, a := range list.Addresses() {
		fmt.Println(a.Hex())
	}
	printSuccess(color.GreenString("✓ %d valid recipients (max %d)", list.Len(), list.Max()))
}

func runRecipientsTestSet(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		printJSON(recipients.TestAddresses)
		return
	}
	fmt.Println(strings.TrimSpace(joinAddresses(recipients.TestAddresses, "\n")))
}
