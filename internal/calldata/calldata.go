// Package calldata recovers swap provenance from raw transaction input
// of the exchanges that settle ACO trades without emitting counterparties.
//
// Decoders are pure: they depend only on the bytes and transfer given, and
// report ErrLayout when the input does not have the expected shape.
package calldata

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ErrLayout is returned when calldata does not match a known layout.
var ErrLayout = errors.New("calldata: unexpected layout")

const (
	selectorSize = 4
	wordSize     = 32
)

// Transfer is the ACO token transfer being attributed.
type Transfer struct {
	From  common.Address
	To    common.Address
	Value *big.Int
}

// Trade is a single-order trade. PaymentAmount is raw, in PaymentToken units.
type Trade struct {
	Seller        common.Address
	Buyer         common.Address
	Taker         common.Address
	PaymentToken  common.Address
	PaymentAmount *big.Int
}

// Selector returns the 4-byte method id of input as lowercase hex.
func Selector(input []byte) string {
	if len(input) < selectorSize {
		return ""
	}
	return common.Bytes2Hex(input[:selectorSize])
}

// word returns argument word i (0-based, after the selector).
func word(input []byte, i int) ([]byte, error) {
	start := selectorSize + i*wordSize
	if i < 0 || start+wordSize > len(input) {
		return nil, ErrLayout
	}
	return input[start : start+wordSize], nil
}

func wordUint(input []byte, i int) (*uint256.Int, error) {
	w, err := word(input, i)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes32(w), nil
}

func wordAddress(input []byte, i int) (common.Address, error) {
	w, err := word(input, i)
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(w[wordSize-common.AddressLength:]), nil
}

// mulDiv returns a*b/d, failing on a zero divisor or overflow.
func mulDiv(a *big.Int, b, d *uint256.Int) (*big.Int, error) {
	if d.IsZero() {
		return nil, ErrLayout
	}
	x, overflow := uint256.FromBig(a)
	if overflow {
		return nil, ErrLayout
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, b, d)
	if overflow {
		return nil, ErrLayout
	}
	return z.ToBig(), nil
}
