package recipients

import (
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	addrA = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	addrB = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	addrC = "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"
)

// genAddresses returns n distinct addresses outside the test set
func genAddresses(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = common.BigToAddress(new(big.Int).Lsh(big.NewInt(1), uint(i+8))).Hex()
	}
	return out
}

func TestAddFromText(t *testing.T) {
	t.Run("AppendsInInputOrder", func(t *testing.T) {
		l := New(0)
		require.NoError(t, l.AddFromText(addrA+", "+addrB))
		require.NoError(t, l.AddFromText(addrC))

		require.Equal(t, []common.Address{
			common.HexToAddress(addrA),
			common.HexToAddress(addrB),
			common.HexToAddress(addrC),
		}, l.Addresses())
		require.NoError(t, l.LastError())
	})

	t.Run("NormalizesToChecksumForm", func(t *testing.T) {
		l := New(0)
		require.NoError(t, l.AddFromText(strings.ToLower(addrA)))
		require.Equal(t, addrA, l.Addresses()[0].Hex())
	})

	t.Run("NewlinesAndBlankSegments", func(t *testing.T) {
		l := New(0)
		require.NoError(t, l.AddFromText("\n"+addrA+"\n\n , "+addrB+",\n"))
		require.Equal(t, 2, l.Len())
	})

	t.Run("WhitespaceOnlyIsNoop", func(t *testing.T) {
		l := New(0)
		require.NoError(t, l.AddFromText("  ,\n  "))
		require.Zero(t, l.Len())
		require.NoError(t, l.LastError())
	})

	t.Run("DuplicateAnyCase", func(t *testing.T) {
		l := New(0)
		require.NoError(t, l.AddFromText(addrA))

		for _, variant := range []string{addrA, strings.ToLower(addrA), "0x" + strings.ToUpper(addrA[2:])} {
			err := l.AddFromText(variant)
			require.ErrorIs(t, err, ErrDuplicateAddress)
			require.Equal(t, err, l.LastError())
			require.Equal(t, 1, l.Len())
		}
	})

	t.Run("DuplicateWithinBatchIsAtomic", func(t *testing.T) {
		l := New(0)
		err := l.AddFromText(addrA + "," + addrB + "," + addrA)
		require.ErrorIs(t, err, ErrDuplicateAddress)
		require.Zero(t, l.Len())
	})

	t.Run("MalformedTokenAnywhere", func(t *testing.T) {
		inputs := []string{
			"nope," + addrA,
			addrA + ",0x1234," + addrB,
			addrA + "," + addrB + ",0xZZZZ6e51aad88F6F4ce6aB8827279cffFb92266",
			strings.TrimPrefix(addrA, "0x"),
			addrB + ",0X" + strings.TrimPrefix(addrA, "0x"),
		}
		for _, in := range inputs {
			l := New(0)
			err := l.AddFromText(in)
			require.ErrorIs(t, err, ErrMalformedAddress, in)
			require.Zero(t, l.Len())

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.NotEmpty(t, verr.Token)
		}
	})

	t.Run("FailureKeepsExistingList", func(t *testing.T) {
		l := New(0)
		require.NoError(t, l.AddFromText(addrA))
		require.Error(t, l.AddFromText(addrB+",bad"))
		require.Equal(t, []common.Address{common.HexToAddress(addrA)}, l.Addresses())
	})

	t.Run("SuccessClearsError", func(t *testing.T) {
		l := New(0)
		require.Error(t, l.AddFromText("bad"))
		require.Error(t, l.LastError())
		require.NoError(t, l.AddFromText(addrA))
		require.NoError(t, l.LastError())
	})
}

func TestCapacity(t *testing.T) {
	t.Run("ProspectiveTotalChecked", func(t *testing.T) {
		l := New(0)
		addrs := genAddresses(MaxRecipients + 1)
		require.NoError(t, l.AddFromText(strings.Join(addrs[:99], ",")))

		err := l.AddFromText(strings.Join(addrs[99:], ","))
		require.ErrorIs(t, err, ErrCapacityExceeded)
		require.Equal(t, 99, l.Len())
		assert.EqualError(t, err, fmt.Sprintf("cannot add more than %d recipients", MaxRecipients))

		require.NoError(t, l.AddFromText(addrs[99]))
		require.Equal(t, MaxRecipients, l.Len())
	})

	t.Run("CustomMax", func(t *testing.T) {
		l := New(2)
		err := l.AddFromText(addrA + "," + addrB + "," + addrC)
		require.ErrorIs(t, err, ErrCapacityExceeded)
		require.Zero(t, l.Len())
	})
}

func TestRemove(t *testing.T) {
	l := New(0)
	require.NoError(t, l.AddFromText(strings.Join([]string{addrA, addrB, addrC}, ",")))

	l.Remove(common.HexToAddress(addrB))
	require.Equal(t, []common.Address{common.HexToAddress(addrA), common.HexToAddress(addrC)}, l.Addresses())

	l.Remove(common.HexToAddress(addrB))
	require.Equal(t, 2, l.Len())

	require.Error(t, l.AddFromText("bad"))
	l.Remove(common.HexToAddress(addrA))
	require.NoError(t, l.LastError())
}

func TestRemoveLast(t *testing.T) {
	l := New(0)
	l.RemoveLast()
	require.Zero(t, l.Len())

	require.NoError(t, l.AddFromText(addrA+","+addrB))
	require.NoError(t, l.AddFromText(addrC))

	l.RemoveLast()
	require.Equal(t, []common.Address{common.HexToAddress(addrA), common.HexToAddress(addrB)}, l.Addresses())
}

func TestAddKnownTestSet(t *testing.T) {
	t.Run("Idempotent", func(t *testing.T) {
		l := New(0)
		require.NoError(t, l.AddKnownTestSet())
		first := l.Addresses()
		require.NoError(t, l.AddKnownTestSet())
		require.Equal(t, first, l.Addresses())
		require.Len(t, first, len(TestAddresses))
	})

	t.Run("SkipsPresent", func(t *testing.T) {
		l := New(0)
		require.NoError(t, l.AddFromText(addrC))
		require.NoError(t, l.AddKnownTestSet())
		require.Equal(t, len(TestAddresses), l.Len())
		require.Equal(t, common.HexToAddress(addrC), l.Addresses()[0])
	})

	t.Run("CapacityExceeded", func(t *testing.T) {
		l := New(MaxRecipients)
		require.NoError(t, l.AddFromText(strings.Join(genAddresses(95), ",")))
		require.ErrorIs(t, l.AddKnownTestSet(), ErrCapacityExceeded)
		require.Equal(t, 95, l.Len())
	})
}

func TestAddressesIsCopy(t *testing.T) {
	l := New(0)
	require.NoError(t, l.AddFromText(addrA))
	out := l.Addresses()
	out[0] = common.Address{}
	require.True(t, l.Contains(common.HexToAddress(addrA)))
}

func TestReset(t *testing.T) {
	l := New(0)
	require.NoError(t, l.AddFromText(addrA))
	require.Error(t, l.AddFromText("bad"))
	l.Reset()
	require.Zero(t, l.Len())
	require.NoError(t, l.LastError())
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress(strings.ToLower(addrA))
	require.NoError(t, err)
	assert.Equal(t, addrA, addr.Hex())

	for _, bad := range []string{
		strings.TrimPrefix(addrA, "0x"),
		"0X" + strings.TrimPrefix(addrA, "0x"),
		addrA + "00",
		"",
	} {
		_, err := ParseAddress(bad)
		assert.ErrorIs(t, err, ErrMalformedAddress, bad)
	}
}
