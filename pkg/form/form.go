// Package form holds the state of one multisend session: direction, amount
// per recipient and the recipient list, plus the submit lifecycle.
package form

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"xchain-multisend/pkg/amount"
	"xchain-multisend/pkg/network"
	"xchain-multisend/pkg/recipients"
	"xchain-multisend/pkg/types"
)

var ErrSubmitDisabled = errors.New("nothing to send or a transfer is already in flight")

// SubmitFunc sends a transfer intent and blocks until it has been handled
type SubmitFunc func(ctx context.Context, intent *types.TransferIntent) error

type Form struct {
	Direction  network.Direction
	Amount     *big.Int
	Recipients *recipients.List

	registry      *network.Registry
	inFlight      bool
	lastSubmitErr error
}

// New creates a form with the default direction and amount
func New(reg *network.Registry, maxRecipients int) *Form {
	return &Form{
		Direction:  network.DefaultDirection(reg),
		Amount:     new(big.Int).Set(amount.Default),
		Recipients: recipients.New(maxRecipients),
		registry:   reg,
	}
}

// SetSource selects the source network by name, identifier or chain id
func (f *Form) SetSource(key string) error {
	n, err := f.registry.Lookup(key)
	if err != nil {
		return err
	}
	f.Direction.SetSource(f.registry, n)
	return nil
}

// SetDestination selects the destination network by name, identifier or chain id
func (f *Form) SetDestination(key string) error {
	n, err := f.registry.Lookup(key)
	if err != nil {
		return err
	}
	return f.Direction.SetDestination(n)
}

// SetAmount picks one of the preset amounts
func (f *Form) SetAmount(s string) error {
	wei, err := amount.ParsePreset(s)
	if err != nil {
		return err
	}
	f.Amount = wei
	return nil
}

// SetCustomAmount accepts any positive ether amount
func (f *Form) SetCustomAmount(s string) error {
	wei, err := amount.ParseEther(s)
	if err != nil {
		return err
	}
	f.Amount = wei
	return nil
}

// Total is the amount per recipient times the number of recipients
func (f *Form) Total() *big.Int {
	return amount.Total(f.Amount, f.Recipients.Len())
}

// Summary renders the total line, e.g. "3 recipients × 0.1 ETH = 0.3 ETH"
func (f *Form) Summary() string {
	return fmt.Sprintf("%d recipients × %s ETH = %s ETH",
		f.Recipients.Len(), amount.FormatEther(f.Amount), amount.FormatEther(f.Total()))
}

func (f *Form) CanSubmit() bool {
	return !f.inFlight && f.Recipients.Len() > 0
}

func (f *Form) InFlight() bool {
	return f.inFlight
}

// Intent snapshots the current form into a transfer intent
func (f *Form) Intent() *types.TransferIntent {
	return types.NewTransferIntent(f.Direction, f.Amount, f.Recipients.Addresses())
}

// Submit hands the current intent to fn. The form is in flight until fn
// returns; its error is kept as the last submit error and returned. The
// recipient list is left as is either way.
func (f *Form) Submit(ctx context.Context, fn SubmitFunc) error {
	if !f.CanSubmit() {
		return ErrSubmitDisabled
	}

	intent := f.Intent()
	if err := intent.Validate(); err != nil {
		f.lastSubmitErr = err
		return err
	}

	f.inFlight = true
	defer func() { f.inFlight = false }()

	f.lastSubmitErr = fn(ctx, intent)
	return f.lastSubmitErr
}

// LastSubmitError is the error of the most recent submit, if it failed
func (f *Form) LastSubmitError() error {
	return f.lastSubmitErr
}

// Reset empties the recipient list and forgets all errors
func (f *Form) Reset() {
	f.Recipients.Reset()
	f.lastSubmitErr = nil
}
