// Package contract encodes calls to the CrossChainMultisend contract and
// decodes its custom revert errors.
package contract

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"xchain-multisend/pkg/types"
)

// MultisendABI is the interface of the deployed CrossChainMultisend contract
const MultisendABI = `[
{"type":"receive","stateMutability":"payable"},
{"type":"function","name":"relay","inputs":[
  {"name":"_sendWethMsgHash","type":"bytes32","internalType":"bytes32"},
  {"name":"_sends","type":"tuple[]","internalType":"struct CrossChainMultisend.Send[]","components":[
    {"name":"to","type":"address","internalType":"address"},
    {"name":"amount","type":"uint256","internalType":"uint256"}]}],
 "outputs":[],"stateMutability":"nonpayable"},
{"type":"function","name":"send","inputs":[
  {"name":"_destinationChainId","type":"uint256","internalType":"uint256"},
  {"name":"_sends","type":"tuple[]","internalType":"struct CrossChainMultisend.Send[]","components":[
    {"name":"to","type":"address","internalType":"address"},
    {"name":"amount","type":"uint256","internalType":"uint256"}]}],
 "outputs":[{"name":"","type":"bytes32","internalType":"bytes32"}],"stateMutability":"payable"},
{"type":"error","name":"CallerNotL2ToL2CrossDomainMessenger","inputs":[]},
{"type":"error","name":"DependentMessageNotSuccessful","inputs":[{"name":"msgHash","type":"bytes32","internalType":"bytes32"}]},
{"type":"error","name":"IncorrectValue","inputs":[]},
{"type":"error","name":"InvalidCrossDomainSender","inputs":[]}
]`

var (
	ErrCallerNotAuthorized           = errors.New("caller is not the L2-to-L2 cross domain messenger")
	ErrDependentMessageNotSuccessful = errors.New("dependent message has not been relayed successfully")
	ErrIncorrectValue                = errors.New("incorrect value sent")
	ErrInvalidCrossDomainSender      = errors.New("invalid cross domain sender")
)

var revertErrors = map[string]error{
	"CallerNotL2ToL2CrossDomainMessenger": ErrCallerNotAuthorized,
	"DependentMessageNotSuccessful":       ErrDependentMessageNotSuccessful,
	"IncorrectValue":                      ErrIncorrectValue,
	"InvalidCrossDomainSender":            ErrInvalidCrossDomainSender,
}

var (
	parsedOnce sync.Once
	parsed     abi.ABI
	parseErr   error
)

// ABI returns the parsed contract interface
func ABI() (*abi.ABI, error) {
	parsedOnce.Do(func() {
		parsed, parseErr = abi.JSON(strings.NewReader(MultisendABI))
	})
	if parseErr != nil {
		return nil, fmt.Errorf("failed to parse multisend ABI: %w", parseErr)
	}
	return &parsed, nil
}

// PackSend encodes send(destinationChainId, sends)
func PackSend(destinationChainID *big.Int, sends []types.Send) ([]byte, error) {
	a, err := ABI()
	if err != nil {
		return nil, err
	}
	data, err := a.Pack("send", destinationChainID, sends)
	if err != nil {
		return nil, fmt.Errorf("failed to pack send data: %w", err)
	}
	return data, nil
}

// PackRelay encodes relay(msgHash, sends). The relay entry point is called by
// the cross domain messenger on the destination chain, never by this tool.
func PackRelay(msgHash common.Hash, sends []types.Send) ([]byte, error) {
	a, err := ABI()
	if err != nil {
		return nil, err
	}
	data, err := a.Pack("relay", msgHash, sends)
	if err != nil {
		return nil, fmt.Errorf("failed to pack relay data: %w", err)
	}
	return data, nil
}

// UnpackSendResult decodes the bytes32 relay id returned by send
func UnpackSendResult(data []byte) (common.Hash, error) {
	a, err := ABI()
	if err != nil {
		return common.Hash{}, err
	}
	out, err := a.Unpack("send", data)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to unpack send result: %w", err)
	}
	id, ok := out[0].([32]byte)
	if !ok {
		return common.Hash{}, fmt.Errorf("unexpected send result type %T", out[0])
	}
	return common.Hash(id), nil
}

// RevertError is a decoded contract revert
type RevertError struct {
	Err     error
	Name    string
	MsgHash common.Hash // set for DependentMessageNotSuccessful
}

func (e *RevertError) Error() string {
	if e.MsgHash != (common.Hash{}) {
		return fmt.Sprintf("contract reverted with %s(%s): %v", e.Name, e.MsgHash.Hex(), e.Err)
	}
	return fmt.Sprintf("contract reverted with %s: %v", e.Name, e.Err)
}

func (e *RevertError) Unwrap() error {
	return e.Err
}

// DecodeRevert turns the revert data carried by a JSON-RPC error into one of
// the contract's declared errors. Errors without recognisable revert data are
// returned unchanged.
func DecodeRevert(err error) error {
	if err == nil {
		return nil
	}

	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return err
	}

	data, ok := revertData(dataErr.ErrorData())
	if !ok {
		return err
	}

	if decoded := DecodeRevertData(data); decoded != nil {
		return decoded
	}
	return err
}

// DecodeRevertData decodes raw revert bytes, returning nil when they match no
// known error
func DecodeRevertData(data []byte) error {
	if len(data) < 4 {
		return nil
	}

	if reason, err := abi.UnpackRevert(data); err == nil {
		return fmt.Errorf("execution reverted: %s", reason)
	}

	a, err := ABI()
	if err != nil {
		return nil
	}

	for name, abiErr := range a.Errors {
		if !bytes.Equal(abiErr.ID[:4], data[:4]) {
			continue
		}

		rerr := &RevertError{Err: revertErrors[name], Name: name}
		if len(abiErr.Inputs) > 0 {
			values, err := abiErr.Unpack(data)
			if err == nil {
				if args, ok := values.([]interface{}); ok && len(args) > 0 {
					if h, ok := args[0].([32]byte); ok {
						rerr.MsgHash = h
					}
				}
			}
		}
		return rerr
	}
	return nil
}

func revertData(v interface{}) ([]byte, bool) {
	switch d := v.(type) {
	case string:
		b, err := hexutil.Decode(d)
		return b, err == nil
	case []byte:
		return d, true
	default:
		return nil, false
	}
}
