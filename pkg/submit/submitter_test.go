package submit

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"xchain-multisend/mocks"
	"xchain-multisend/pkg/amount"
	"xchain-multisend/pkg/chain"
	"xchain-multisend/pkg/contract"
	"xchain-multisend/pkg/network"
	"xchain-multisend/pkg/types"
)

var (
	l2a = network.Network{ChainID: 901, Name: "Supersim L2 A", Identifier: "l2a"}
	l2b = network.Network{ChainID: 902, Name: "Supersim L2 B", Identifier: "l2b"}

	multisendAddr = common.HexToAddress("0xc50cbd78c4ab0c0e322c3ea380bb1ed6945af9e7")
	relayID       = common.HexToHash("0x5eed")

	recipientsAB = []common.Address{
		common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"),
		common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"),
	}
)

type rpcDataError struct {
	data string
}

func (e *rpcDataError) Error() string          { return "execution reverted" }
func (e *rpcDataError) ErrorData() interface{} { return e.data }

func newTestSubmitter(t *testing.T, opts Options) (*Submitter, *mocks.EthClient) {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	opts.PrivateKey = key
	opts.ContractAddress = multisendAddr

	client := &mocks.EthClient{}
	pool := chain.NewPool(nil)
	pool.Register(l2a.ChainID, client)

	s, err := NewSubmitter(pool, opts, nil)
	require.NoError(t, err)
	return s, client
}

func testIntent() *types.TransferIntent {
	return types.NewTransferIntent(network.Direction{Source: l2a, Destination: l2b}, amount.Default, recipientsAB)
}

func TestNewSubmitter(t *testing.T) {
	_, err := NewSubmitter(chain.NewPool(nil), Options{ContractAddress: multisendAddr}, nil)
	require.Error(t, err)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	_, err = NewSubmitter(chain.NewPool(nil), Options{PrivateKey: key}, nil)
	require.Error(t, err)
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		s, client := newTestSubmitter(t, Options{})
		intent := testIntent()
		total := intent.Total()

		client.On("ChainID", mock.Anything).Return(big.NewInt(901), nil)
		client.On("BalanceAt", mock.Anything, s.From(), mock.Anything).Return(amount.MustParseEther("100"), nil)
		client.On("CallContract", mock.Anything, mock.MatchedBy(func(msg ethereum.CallMsg) bool {
			return msg.From == s.From() && *msg.To == multisendAddr && msg.Value.Cmp(total) == 0
		}), mock.Anything).Return(relayID.Bytes(), nil)
		client.On("PendingNonceAt", mock.Anything, s.From()).Return(uint64(7), nil)
		client.On("SuggestGasPrice", mock.Anything).Return(big.NewInt(1_000_000_000), nil)
		client.On("EstimateGas", mock.Anything, mock.Anything).Return(uint64(100_000), nil)

		var sent *ethtypes.Transaction
		client.On("SendTransaction", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { sent = args.Get(1).(*ethtypes.Transaction) }).
			Return(nil)

		res, err := s.Submit(ctx, intent)
		require.NoError(t, err)
		client.AssertExpectations(t)

		require.Equal(t, relayID, res.RelayID)
		require.Equal(t, uint64(7), res.Nonce)
		require.Equal(t, uint64(120_000), res.GasLimit)
		require.Equal(t, total.String(), res.Value.String())
		require.Equal(t, sent.Hash(), res.TxHash)

		signer := ethtypes.LatestSignerForChainID(big.NewInt(901))
		from, err := ethtypes.Sender(signer, sent)
		require.NoError(t, err)
		require.Equal(t, s.From(), from)
		require.Equal(t, multisendAddr, *sent.To())
		require.Equal(t, total.String(), sent.Value().String())

		wantData, err := contract.PackSend(big.NewInt(902), intent.Sends())
		require.NoError(t, err)
		require.Equal(t, wantData, sent.Data())
	})

	t.Run("ConfiguredGas", func(t *testing.T) {
		s, client := newTestSubmitter(t, Options{GasLimit: 300_000, GasPrice: big.NewInt(5)})

		client.On("ChainID", mock.Anything).Return(big.NewInt(901), nil)
		client.On("BalanceAt", mock.Anything, mock.Anything, mock.Anything).Return(amount.MustParseEther("1"), nil)
		client.On("CallContract", mock.Anything, mock.Anything, mock.Anything).Return(relayID.Bytes(), nil)
		client.On("PendingNonceAt", mock.Anything, mock.Anything).Return(uint64(0), nil)
		client.On("SendTransaction", mock.Anything, mock.Anything).Return(nil)

		res, err := s.Submit(ctx, testIntent())
		require.NoError(t, err)
		require.Equal(t, uint64(300_000), res.GasLimit)
		require.Equal(t, int64(5), res.GasPrice.Int64())
		client.AssertNotCalled(t, "SuggestGasPrice", mock.Anything)
		client.AssertNotCalled(t, "EstimateGas", mock.Anything, mock.Anything)
	})

	t.Run("InvalidIntent", func(t *testing.T) {
		s, client := newTestSubmitter(t, Options{})
		intent := types.NewTransferIntent(network.Direction{Source: l2a, Destination: l2b}, amount.Default, nil)

		_, err := s.Submit(ctx, intent)
		require.ErrorIs(t, err, types.ErrNoRecipients)
		client.AssertExpectations(t)
	})

	t.Run("ChainMismatch", func(t *testing.T) {
		s, client := newTestSubmitter(t, Options{})
		client.On("ChainID", mock.Anything).Return(big.NewInt(1), nil)

		_, err := s.Submit(ctx, testIntent())
		require.ErrorIs(t, err, ErrChainMismatch)
	})

	t.Run("InsufficientBalance", func(t *testing.T) {
		s, client := newTestSubmitter(t, Options{})
		client.On("ChainID", mock.Anything).Return(big.NewInt(901), nil)
		client.On("BalanceAt", mock.Anything, mock.Anything, mock.Anything).Return(big.NewInt(1), nil)

		_, err := s.Submit(ctx, testIntent())
		require.ErrorIs(t, err, ErrInsufficientBalance)
		client.AssertNotCalled(t, "SendTransaction", mock.Anything, mock.Anything)
	})

	t.Run("ContractRevertIsDecoded", func(t *testing.T) {
		s, client := newTestSubmitter(t, Options{})
		client.On("ChainID", mock.Anything).Return(big.NewInt(901), nil)
		client.On("BalanceAt", mock.Anything, mock.Anything, mock.Anything).Return(amount.MustParseEther("1"), nil)
		client.On("CallContract", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, &rpcDataError{data: hexutil.Encode(crypto.Keccak256([]byte("IncorrectValue()"))[:4])})

		_, err := s.Submit(ctx, testIntent())
		require.ErrorIs(t, err, contract.ErrIncorrectValue)
		client.AssertNotCalled(t, "SendTransaction", mock.Anything, mock.Anything)
	})

	t.Run("NoContract", func(t *testing.T) {
		s, client := newTestSubmitter(t, Options{})
		client.On("ChainID", mock.Anything).Return(big.NewInt(901), nil)
		client.On("BalanceAt", mock.Anything, mock.Anything, mock.Anything).Return(amount.MustParseEther("1"), nil)
		client.On("CallContract", mock.Anything, mock.Anything, mock.Anything).Return([]byte{}, nil)

		_, err := s.Submit(ctx, testIntent())
		require.ErrorIs(t, err, ErrNoContract)
	})

	t.Run("SendErrorPassesThrough", func(t *testing.T) {
		s, client := newTestSubmitter(t, Options{GasLimit: 1, GasPrice: big.NewInt(1)})
		sendErr := errors.New("nonce too low")
		client.On("ChainID", mock.Anything).Return(big.NewInt(901), nil)
		client.On("BalanceAt", mock.Anything, mock.Anything, mock.Anything).Return(amount.MustParseEther("1"), nil)
		client.On("CallContract", mock.Anything, mock.Anything, mock.Anything).Return(relayID.Bytes(), nil)
		client.On("PendingNonceAt", mock.Anything, mock.Anything).Return(uint64(0), nil)
		client.On("SendTransaction", mock.Anything, mock.Anything).Return(sendErr)

		_, err := s.Submit(ctx, testIntent())
		require.ErrorIs(t, err, sendErr)
	})
}

func TestWaitForReceipt(t *testing.T) {
	hash := common.HexToHash("0xfeed")

	t.Run("PollsUntilMined", func(t *testing.T) {
		s, client := newTestSubmitter(t, Options{})
		client.On("TransactionReceipt", mock.Anything, hash).Return(nil, ethereum.NotFound).Twice()
		client.On("TransactionReceipt", mock.Anything, hash).
			Return(&ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful, BlockNumber: big.NewInt(5)}, nil).Once()

		receipt, err := s.WaitForReceipt(context.Background(), l2a, hash, time.Millisecond)
		require.NoError(t, err)
		require.Equal(t, int64(5), receipt.BlockNumber.Int64())
		client.AssertExpectations(t)
	})

	t.Run("Reverted", func(t *testing.T) {
		s, client := newTestSubmitter(t, Options{})
		client.On("TransactionReceipt", mock.Anything, hash).
			Return(&ethtypes.Receipt{Status: ethtypes.ReceiptStatusFailed, BlockNumber: big.NewInt(5)}, nil)

		receipt, err := s.WaitForReceipt(context.Background(), l2a, hash, time.Millisecond)
		require.ErrorIs(t, err, ErrReverted)
		require.NotNil(t, receipt)
	})

	t.Run("ContextDone", func(t *testing.T) {
		s, client := newTestSubmitter(t, Options{})
		client.On("TransactionReceipt", mock.Anything, hash).Return(nil, ethereum.NotFound)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := s.WaitForReceipt(ctx, l2a, hash, time.Millisecond)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestTransactionStatus(t *testing.T) {
	ctx := context.Background()
	hash := common.HexToHash("0xfeed")
	tx := ethtypes.NewTx(&ethtypes.LegacyTx{Nonce: 3, To: &multisendAddr, Value: big.NewInt(10), Gas: 21000, GasPrice: big.NewInt(1)})

	t.Run("Unknown", func(t *testing.T) {
		s, client := newTestSubmitter(t, Options{})
		client.On("TransactionByHash", mock.Anything, hash).Return(nil, false, ethereum.NotFound)

		status, err := s.TransactionStatus(ctx, l2a, hash)
		require.NoError(t, err)
		require.Equal(t, TxUnknown, status.State)
		require.False(t, status.IsFinal())
	})

	t.Run("Pending", func(t *testing.T) {
		s, client := newTestSubmitter(t, Options{})
		client.On("TransactionByHash", mock.Anything, hash).Return(tx, true, nil)

		status, err := s.TransactionStatus(ctx, l2a, hash)
		require.NoError(t, err)
		require.Equal(t, TxPending, status.State)
		require.Equal(t, uint64(3), status.Nonce)
	})

	t.Run("Mined", func(t *testing.T) {
		s, client := newTestSubmitter(t, Options{})
		client.On("TransactionByHash", mock.Anything, hash).Return(tx, false, nil)
		client.On("TransactionReceipt", mock.Anything, hash).
			Return(&ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful, BlockNumber: big.NewInt(12), GasUsed: 50_000}, nil)

		status, err := s.TransactionStatus(ctx, l2a, hash)
		require.NoError(t, err)
		require.Equal(t, TxSuccess, status.State)
		require.Equal(t, uint64(12), status.BlockNumber)
		require.True(t, status.IsFinal())
	})

	t.Run("Reverted", func(t *testing.T) {
		s, client := newTestSubmitter(t, Options{})
		client.On("TransactionByHash", mock.Anything, hash).Return(tx, false, nil)
		client.On("TransactionReceipt", mock.Anything, hash).
			Return(&ethtypes.Receipt{Status: ethtypes.ReceiptStatusFailed, BlockNumber: big.NewInt(12)}, nil)

		status, err := s.TransactionStatus(ctx, l2a, hash)
		require.NoError(t, err)
		require.Equal(t, TxReverted, status.State)
	})
}
