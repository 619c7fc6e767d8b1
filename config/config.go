package config

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/viper"

	"xchain-multisend/pkg/network"
	"xchain-multisend/pkg/recipients"
)

const (
	// DevPrivateKey is account 0 of the local dev node. Never use it on a
	// public network.
	DevPrivateKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

	DefaultContractAddress = "0xc50cbd78c4ab0c0e322c3ea380bb1ed6945af9e7"
)

// DefaultNetworks are the two L2 chains started by supersim
var DefaultNetworks = []network.Network{
	{ChainID: 901, Name: "Supersim L2 A", Identifier: "l2a", RPCURL: "http://127.0.0.1:9545"},
	{ChainID: 902, Name: "Supersim L2 B", Identifier: "l2b", RPCURL: "http://127.0.0.1:9546"},
}

// Config holds the application configuration
type Config struct {
	PrivateKey      string            `mapstructure:"private_key"`
	ContractAddress string            `mapstructure:"contract_address"`
	MaxRecipients   int               `mapstructure:"max_recipients"`
	PollInterval    time.Duration     `mapstructure:"poll_interval"`
	ReceiptInterval time.Duration     `mapstructure:"receipt_interval"`
	GasLimit        uint64            `mapstructure:"gas_limit"`
	GasPrice        string            `mapstructure:"gas_price"`
	HistoryFile     string            `mapstructure:"history_file"`
	Networks        []network.Network `mapstructure:"networks"`
}

var globalConfig *Config

// Load reads configuration from environment variables and config file. An
// explicit path must exist; otherwise .multisend.yaml in $HOME or the working
// directory is optional.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(".multisend")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME")
		v.AddConfigPath(".")
	}

	// Set default values
	v.SetDefault("private_key", DevPrivateKey)
	v.SetDefault("contract_address", DefaultContractAddress)
	v.SetDefault("max_recipients", recipients.MaxRecipients)
	v.SetDefault("poll_interval", time.Second)
	v.SetDefault("receipt_interval", time.Second)
	v.SetDefault("gas_limit", 0)
	v.SetDefault("gas_price", "")
	v.SetDefault("history_file", "")
	v.SetDefault("networks", defaultNetworks())

	// Read from environment variables
	v.SetEnvPrefix("MULTISEND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	globalConfig = cfg
	return cfg, nil
}

func defaultNetworks() []map[string]interface{} {
	out := make([]map[string]interface{}, len(DefaultNetworks))
	for i, n := range DefaultNetworks {
		out[i] = map[string]interface{}{
			"chain_id":   n.ChainID,
			"name":       n.Name,
			"identifier": n.Identifier,
			"rpc_url":    n.RPCURL,
		}
	}
	return out
}

// Validate checks the configuration is usable
func (c *Config) Validate() error {
	if _, err := c.Registry(); err != nil {
		return fmt.Errorf("invalid networks: %w", err)
	}
	if !common.IsHexAddress(c.ContractAddress) {
		return fmt.Errorf("invalid contract address %q", c.ContractAddress)
	}
	if _, err := c.Key(); err != nil {
		return err
	}
	if c.MaxRecipients <= 0 {
		return fmt.Errorf("max_recipients must be positive, got %d", c.MaxRecipients)
	}
	if _, err := c.GasPriceWei(); err != nil {
		return err
	}
	return nil
}

// Registry builds the network registry
func (c *Config) Registry() (*network.Registry, error) {
	return network.NewRegistry(c.Networks)
}

// Key parses the signing key
func (c *Config) Key() (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(c.PrivateKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

// Account is the address of the signing key
func (c *Config) Account() (common.Address, error) {
	key, err := c.Key()
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

// Contract is the multisend contract address, identical on every network
func (c *Config) Contract() common.Address {
	return common.HexToAddress(c.ContractAddress)
}

// GasPriceWei returns the configured gas price override, or nil
func (c *Config) GasPriceWei() (*big.Int, error) {
	if c.GasPrice == "" {
		return nil, nil
	}
	price, ok := new(big.Int).SetString(c.GasPrice, 10)
	if !ok || price.Sign() <= 0 {
		return nil, fmt.Errorf("invalid gas price %q: must be a positive amount of wei", c.GasPrice)
	}
	return price, nil
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load("")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}
