package cmd

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"xchain-multisend/config"
	"xchain-multisend/mocks"
	"xchain-multisend/pkg/chain"
	"xchain-multisend/pkg/submit"
)

func newStatusSubmitter(t *testing.T) (*submit.Submitter, *mocks.EthClient, *mocks.EthClient) {
	t.Helper()
	cfg := &config.Config{PrivateKey: config.DevPrivateKey}
	key, err := cfg.Key()
	require.NoError(t, err)

	a, b := &mocks.EthClient{}, &mocks.EthClient{}
	pool := chain.NewPool(nil)
	pool.Register(config.DefaultNetworks[0].ChainID, a)
	pool.Register(config.DefaultNetworks[1].ChainID, b)

	sub, err := submit.NewSubmitter(pool, submit.Options{
		ContractAddress: common.HexToAddress(config.DefaultContractAddress),
		PrivateKey:      key,
	}, nil)
	require.NoError(t, err)
	return sub, a, b
}

func TestFindTxStatus(t *testing.T) {
	hash := common.HexToHash("0x5c50")

	t.Run("UnreachableNetworkIsReported", func(t *testing.T) {
		sub, a, b := newStatusSubmitter(t)
		down := errors.New("connection refused")
		a.On("TransactionByHash", mock.Anything, hash).Return(nil, false, down)
		b.On("TransactionByHash", mock.Anything, hash).Return(nil, false, ethereum.NotFound)

		status, err := findTxStatus(context.Background(), sub, config.DefaultNetworks, hash)
		require.ErrorIs(t, err, down)
		assert.Contains(t, err.Error(), config.DefaultNetworks[0].Name)
		assert.Nil(t, status)
	})

	t.Run("FoundDespiteOtherNetworkDown", func(t *testing.T) {
		sub, a, b := newStatusSubmitter(t)
		tx := ethtypes.NewTx(&ethtypes.LegacyTx{Nonce: 3, Value: big.NewInt(1)})
		a.On("TransactionByHash", mock.Anything, hash).Return(nil, false, errors.New("timeout"))
		b.On("TransactionByHash", mock.Anything, hash).Return(tx, true, nil)

		status, err := findTxStatus(context.Background(), sub, config.DefaultNetworks, hash)
		require.NoError(t, err)
		assert.Equal(t, submit.TxPending, status.State)
		assert.Equal(t, config.DefaultNetworks[1].Name, status.Network)
	})

	t.Run("UnknownEverywhere", func(t *testing.T) {
		sub, a, b := newStatusSubmitter(t)
		a.On("TransactionByHash", mock.Anything, hash).Return(nil, false, ethereum.NotFound)
		b.On("TransactionByHash", mock.Anything, hash).Return(nil, false, ethereum.NotFound)

		status, err := findTxStatus(context.Background(), sub, config.DefaultNetworks, hash)
		require.NoError(t, err)
		assert.Equal(t, submit.TxUnknown, status.State)
	})
}
