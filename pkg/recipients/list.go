// Package recipients keeps the de-duplicated, bounded list of destination
// addresses a multisend is paid out to.
package recipients

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"xchain-multisend/pkg/parser"
)

// MaxRecipients is the default upper bound on the list length
const MaxRecipients = 100

// List is an ordered set of recipient addresses. Insertion order is the
// display order. A List belongs to a single session and is not safe for
// concurrent use.
type List struct {
	addrs   []common.Address
	max     int
	lastErr error
}

// New creates an empty list holding at most max addresses
func New(max int) *List {
	if max <= 0 {
		max = MaxRecipients
	}
	return &List{max: max}
}

// ParseAddress validates a single token and returns it in checksum form. The
// token must be "0x" followed by 40 hex digits.
func ParseAddress(token string) (common.Address, error) {
	if !strings.HasPrefix(token, "0x") || !common.IsHexAddress(token) {
		return common.Address{}, &ValidationError{Err: ErrMalformedAddress, Token: token}
	}
	return common.HexToAddress(token), nil
}

// AddFromText adds every comma or newline separated address in text.
// The batch is all-or-nothing: the first malformed or duplicate token aborts
// it and none of the earlier tokens are kept.
func (l *List) AddFromText(text string) error {
	tokens := parser.SplitTokens(text)
	if len(tokens) == 0 {
		return nil
	}

	batch := make([]common.Address, 0, len(tokens))
	seen := make(map[common.Address]struct{}, len(tokens))
	for _, token := range tokens {
		addr, err := ParseAddress(token)
		if err != nil {
			return l.fail(err)
		}

		_, inBatch := seen[addr]
		if inBatch || l.Contains(addr) {
			return l.fail(&ValidationError{Err: ErrDuplicateAddress, Token: addr.Hex()})
		}

		seen[addr] = struct{}{}
		batch = append(batch, addr)
	}

	return l.commit(batch)
}

// AddKnownTestSet appends the local dev-node accounts that are not already
// in the list. Calling it repeatedly is a no-op once they are all present.
func (l *List) AddKnownTestSet() error {
	batch := make([]common.Address, 0, len(TestAddresses))
	for _, addr := range TestAddresses {
		if !l.Contains(addr) {
			batch = append(batch, addr)
		}
	}
	return l.commit(batch)
}

// Remove drops addr from the list if present
func (l *List) Remove(addr common.Address) {
	for i, a := range l.addrs {
		if a == addr {
			l.addrs = append(l.addrs[:i], l.addrs[i+1:]...)
			break
		}
	}
	l.lastErr = nil
}

// RemoveLast drops the most recently added address
func (l *List) RemoveLast() {
	if len(l.addrs) == 0 {
		return
	}
	l.addrs = l.addrs[:len(l.addrs)-1]
}

// Contains reports whether addr is in the list
func (l *List) Contains(addr common.Address) bool {
	for _, a := range l.addrs {
		if a == addr {
			return true
		}
	}
	return false
}

// Addresses returns a copy of the list in insertion order
func (l *List) Addresses() []common.Address {
	out := make([]common.Address, len(l.addrs))
	copy(out, l.addrs)
	return out
}

func (l *List) Len() int { return len(l.addrs) }

func (l *List) Max() int { return l.max }

// LastError returns the most recent validation failure, or nil if the last
// mutation succeeded.
func (l *List) LastError() error { return l.lastErr }

func (l *List) ClearError() { l.lastErr = nil }

// Reset empties the list and its error slot
func (l *List) Reset() {
	l.addrs = nil
	l.lastErr = nil
}

func (l *List) commit(batch []common.Address) error {
	if len(l.addrs)+len(batch) > l.max {
		return l.fail(&ValidationError{Err: ErrCapacityExceeded, Max: l.max})
	}
	l.addrs = append(l.addrs, batch...)
	l.lastErr = nil
	return nil
}

func (l *List) fail(err error) error {
	l.lastErr = err
	return err
}
