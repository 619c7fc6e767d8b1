package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"xchain-multisend/config"
	"xchain-multisend/pkg/chain"
	"xchain-multisend/pkg/history"
	"xchain-multisend/pkg/logging"
	"xchain-multisend/pkg/network"
	"xchain-multisend/pkg/submit"
	"xchain-multisend/pkg/types"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "multisend",
	Short: "Send ETH to many addresses across Superchain L2s",
	Long: `multisend sends the same amount of ETH to a list of recipients on another
L2 chain with a single transaction on the source chain, using the
CrossChainMultisend contract and the L2-to-L2 cross domain messenger.

Examples:
  multisend send 0.1 ETH from l2a to l2b --recipients 0x7099...79C8,0x3C44...93BC
  multisend send 1 from 901 to 902 --test-set --wait
  multisend interactive
  multisend balances --watch
  multisend status <tx-hash>`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $HOME/.multisend.yaml)")
}

// runtimeEnv is what every command needs to talk to the configured networks
type runtimeEnv struct {
	cfg      *config.Config
	registry *network.Registry
	pool     *chain.Pool
	logger   *zap.Logger
	verbose  bool
	json     bool
}

// loadEnv loads configuration and sets up logging; it exits on failure
func loadEnv(cmd *cobra.Command) *runtimeEnv {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	logger, err := logging.New(verbose)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	registry, err := cfg.Registry()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	logger.Debug("Configuration loaded",
		zap.Int("networks", len(cfg.Networks)),
		zap.String("contract", cfg.ContractAddress),
		zap.Int("max_recipients", cfg.MaxRecipients),
	)

	return &runtimeEnv{
		cfg:      cfg,
		registry: registry,
		pool:     chain.NewPool(logger),
		logger:   logger,
		verbose:  verbose,
		json:     jsonOutput,
	}
}

func (e *runtimeEnv) close() {
	e.pool.Close()
	_ = e.logger.Sync()
}

// submitter builds the transaction submitter from configuration; it exits on
// failure
func (e *runtimeEnv) submitter() *submit.Submitter {
	key, err := e.cfg.Key()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	gasPrice, err := e.cfg.GasPriceWei()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	s, err := submit.NewSubmitter(e.pool, submit.Options{
		ContractAddress: e.cfg.Contract(),
		PrivateKey:      key,
		GasLimit:        e.cfg.GasLimit,
		GasPrice:        gasPrice,
	}, e.logger)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	return s
}

// openHistory opens the local journal of sent multisends. A journal that cannot
// be opened is logged and skipped.
func (e *runtimeEnv) openHistory() *history.Store {
	store, err := history.NewStore(e.cfg.HistoryFile)
	if err != nil {
		e.logger.Warn("History disabled", zap.Error(err))
		return nil
	}
	return store
}

// recordSent adds a submitted multisend to the journal, if there is one
func (e *runtimeEnv) recordSent(store *history.Store, intent *types.TransferIntent, result *submit.Result) {
	if store == nil {
		return
	}
	if err := store.Add(history.NewRecord(intent, result)); err != nil {
		e.logger.Warn("Failed to record multisend", zap.Stringer("tx", result.TxHash), zap.Error(err))
	}
}

// recordState updates the journal entry of a transaction, if there is one
func (e *runtimeEnv) recordState(store *history.Store, hash common.Hash, state submit.TxState, blockNumber uint64) {
	if store == nil || state == submit.TxUnknown {
		return
	}
	if err := store.UpdateState(hash, state, blockNumber); err != nil && !errors.Is(err, history.ErrNotFound) {
		e.logger.Warn("Failed to update history", zap.Stringer("tx", hash), zap.Error(err))
	}
}

// interruptContext is cancelled on Ctrl+C or SIGTERM
func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(v interface{}) {
	jsonData, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(jsonData))
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}
