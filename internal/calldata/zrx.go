package calldata

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// Exchange v1 fill selectors. Both settle one ACO leg between a maker and
// a taker; they differ in which side receives the ACO tokens.
const (
	SelectorTakerBuys  = "8bc8efb3"
	SelectorTakerSells = "a6c3bf33"
)

// Offsets in hex characters of the unprefixed input.
const (
	// writerInnerSelector is where the writer embeds the exchange call.
	writerInnerSelector = 328

	// Order amounts follow the maker address found by search.
	makerAmountOffset = 232
	takerAmountOffset = 296
	amountEnd         = 360

	// Paid token address after the asset proxy marker, per direction.
	takerBuysTokenOffset  = 224
	takerSellsTokenOffset = 32
	addressHexLen         = 40

	// assetProxyMarker is the ERC20 asset proxy id followed by padding.
	assetProxyMarker = "f47261b0000000000000000000000000"
)

// DecodeZRX reconstructs a trade sent straight to the v1 exchange. The
// seller and buyer are the transfer endpoints; the selector decides which
// of them is the taker and which is the maker.
func DecodeZRX(input []byte, t Transfer) (Trade, error) {
	inputHex := common.Bytes2Hex(input)
	method := Selector(input)

	trade := Trade{Seller: t.From, Buyer: t.To}
	var maker common.Address
	switch method {
	case SelectorTakerBuys:
		trade.Taker = t.To
		maker = t.From
	case SelectorTakerSells:
		trade.Taker = t.From
		maker = t.To
	default:
		return Trade{}, ErrLayout
	}

	token, amount, err := orderPayment(inputHex, method, maker, t)
	if err != nil {
		return Trade{}, err
	}
	trade.PaymentToken = token
	trade.PaymentAmount = amount
	return trade, nil
}

// DecodeWriter reconstructs a trade sent through the writer contract,
// which mints for the transaction sender and sells to the transfer
// recipient in one call.
func DecodeWriter(input []byte, txFrom common.Address, t Transfer) (Trade, error) {
	inputHex := common.Bytes2Hex(input)
	if len(inputHex) < writerInnerSelector+2*selectorSize {
		return Trade{}, ErrLayout
	}
	method := inputHex[writerInnerSelector : writerInnerSelector+2*selectorSize]
	if method != SelectorTakerBuys && method != SelectorTakerSells {
		return Trade{}, ErrLayout
	}

	token, amount, err := orderPayment(inputHex, method, t.To, t)
	if err != nil {
		return Trade{}, err
	}
	return Trade{
		Seller:        txFrom,
		Buyer:         t.To,
		Taker:         txFrom,
		PaymentToken:  token,
		PaymentAmount: amount,
	}, nil
}

// orderPayment locates the maker's order in inputHex and prices the
// transfer with the order's amount ratio.
func orderPayment(inputHex, method string, maker common.Address, t Transfer) (common.Address, *big.Int, error) {
	idx := strings.Index(inputHex, common.Bytes2Hex(maker.Bytes()))
	if idx < 0 {
		return common.Address{}, nil, ErrLayout
	}
	idxToken := strings.Index(inputHex, assetProxyMarker)
	if idxToken < 0 {
		return common.Address{}, nil, ErrLayout
	}

	makerAmount, err := hexUint(inputHex, idx+makerAmountOffset, idx+takerAmountOffset)
	if err != nil {
		return common.Address{}, nil, err
	}
	takerAmount, err := hexUint(inputHex, idx+takerAmountOffset, idx+amountEnd)
	if err != nil {
		return common.Address{}, nil, err
	}

	var (
		tokenAt int
		paid    *big.Int
	)
	if method == SelectorTakerBuys {
		tokenAt = idxToken + takerBuysTokenOffset
		paid, err = mulDiv(t.Value, takerAmount, makerAmount)
	} else {
		tokenAt = idxToken + takerSellsTokenOffset
		paid, err = mulDiv(t.Value, makerAmount, takerAmount)
	}
	if err != nil {
		return common.Address{}, nil, err
	}

	token, err := hexAddress(inputHex, tokenAt)
	if err != nil {
		return common.Address{}, nil, err
	}
	return token, paid, nil
}

// hexUint reads s[from:to] as a big-endian unsigned integer.
func hexUint(s string, from, to int) (*uint256.Int, error) {
	if from < 0 || to > len(s) || to-from > 2*wordSize {
		return nil, ErrLayout
	}
	b, err := hexutil.Decode("0x" + s[from:to])
	if err != nil {
		return nil, ErrLayout
	}
	return new(uint256.Int).SetBytes(b), nil
}

func hexAddress(s string, from int) (common.Address, error) {
	to := from + addressHexLen
	if from < 0 || to > len(s) {
		return common.Address{}, ErrLayout
	}
	b, err := hexutil.Decode("0x" + s[from:to])
	if err != nil {
		return common.Address{}, ErrLayout
	}
	return common.BytesToAddress(b), nil
}
