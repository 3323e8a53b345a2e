package calldata

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	limitOrderTuple = "(address,address,uint128,uint128,uint128,address,address,address,address,bytes32,uint64,uint256)"
	rfqOrderTuple   = "(address,address,uint128,uint128,address,address,address,bytes32,uint64,uint256)"
	signatureTuple  = "(uint8,uint8,bytes32,bytes32)"
)

// v4 exchange selectors, derived from the method signatures.
var (
	SelectorFillLimitOrder       = methodID("fillLimitOrder(" + limitOrderTuple + "," + signatureTuple + ",uint128)")
	SelectorFillOrKillLimitOrder = methodID("fillOrKillLimitOrder(" + limitOrderTuple + "," + signatureTuple + ",uint128)")
	SelectorFillRfqOrder         = methodID("fillRfqOrder(" + rfqOrderTuple + "," + signatureTuple + ",uint128)")
	SelectorFillOrKillRfqOrder   = methodID("fillOrKillRfqOrder(" + rfqOrderTuple + "," + signatureTuple + ",uint128)")
	SelectorBatchFillLimitOrders = methodID("batchFillLimitOrders(" + limitOrderTuple + "[]," + signatureTuple + "[],uint128[],bool)")
	SelectorBatchFillRfqOrders   = methodID("batchFillRfqOrders(" + rfqOrderTuple + "[]," + signatureTuple + "[],uint128[],bool)")
)

func methodID(sig string) string {
	return common.Bytes2Hex(crypto.Keccak256([]byte(sig))[:selectorSize])
}

// orderShape describes where fields live inside one static order struct.
type orderShape struct {
	words      int // struct size in words
	makerWord  int
	singleFill int // fill amount word of the single-order call
}

var (
	limitOrder = orderShape{words: 12, makerWord: 5, singleFill: 16}
	rfqOrder   = orderShape{words: 10, makerWord: 4, singleFill: 14}
)

// Common order fields.
const (
	makerTokenWord  = 0
	takerTokenWord  = 1
	makerAmountWord = 2
	takerAmountWord = 3
)

// Head words of the batch calls: offsets of orders, signatures, fills.
const (
	batchOrdersHead = 0
	batchFillsHead  = 2
)

// Fill is one order filled by a v4 call. Amounts are raw.
type Fill struct {
	Maker           common.Address
	MakerToken      common.Address
	TakerToken      common.Address
	MakerAmount     *big.Int
	TakerAmount     *big.Int
	TakerFillAmount *big.Int
}

// DecodeV4 decodes the fills of a direct v4 exchange call.
func DecodeV4(input []byte) ([]Fill, error) {
	switch Selector(input) {
	case SelectorFillLimitOrder, SelectorFillOrKillLimitOrder:
		return singleFill(input, limitOrder)
	case SelectorFillRfqOrder, SelectorFillOrKillRfqOrder:
		return singleFill(input, rfqOrder)
	case SelectorBatchFillLimitOrders:
		return batchFill(input, limitOrder)
	case SelectorBatchFillRfqOrders:
		return batchFill(input, rfqOrder)
	default:
		return nil, ErrLayout
	}
}

// DecodeV4Nested decodes the fills of a v4 call carried as a dynamic bytes
// argument of an outer call, as a buyer proxy forwards it.
func DecodeV4Nested(input []byte) ([]Fill, error) {
	if len(input) < selectorSize {
		return nil, ErrLayout
	}
	args := input[selectorSize:]
	for i := 0; (i+1)*wordSize <= len(args); i++ {
		inner, ok := bytesArg(args, i)
		if !ok {
			continue
		}
		fills, err := DecodeV4(inner)
		if err == nil {
			return fills, nil
		}
	}
	return nil, ErrLayout
}

// bytesArg treats head word i of args as the offset of a bytes value.
func bytesArg(args []byte, i int) ([]byte, bool) {
	off, ok := smallUint(args[i*wordSize : (i+1)*wordSize])
	if !ok || off%wordSize != 0 || off+wordSize > len(args) {
		return nil, false
	}
	n, ok := smallUint(args[off : off+wordSize])
	start := off + wordSize
	if !ok || n < selectorSize || start+n > len(args) {
		return nil, false
	}
	return args[start : start+n], true
}

// smallUint reads a word that must fit an int offset or length.
func smallUint(w []byte) (int, bool) {
	v := new(big.Int).SetBytes(w)
	if !v.IsInt64() || v.Int64() > 1<<31 {
		return 0, false
	}
	return int(v.Int64()), true
}

func singleFill(input []byte, shape orderShape) ([]Fill, error) {
	f, err := readOrder(input, 0, shape)
	if err != nil {
		return nil, err
	}
	amount, err := wordUint(input, shape.singleFill)
	if err != nil {
		return nil, err
	}
	f.TakerFillAmount = amount.ToBig()
	return []Fill{f}, nil
}

func batchFill(input []byte, shape orderShape) ([]Fill, error) {
	ordersAt, err := headOffset(input, batchOrdersHead)
	if err != nil {
		return nil, err
	}
	fillsAt, err := headOffset(input, batchFillsHead)
	if err != nil {
		return nil, err
	}

	n, err := lengthAt(input, ordersAt)
	if err != nil {
		return nil, err
	}
	m, err := lengthAt(input, fillsAt)
	if err != nil {
		return nil, err
	}
	if n != m || n*shape.words > len(input)/wordSize {
		return nil, ErrLayout
	}

	fills := make([]Fill, 0, n)
	for k := 0; k < n; k++ {
		f, err := readOrder(input, ordersAt+1+k*shape.words, shape)
		if err != nil {
			return nil, err
		}
		amount, err := wordUint(input, fillsAt+1+k)
		if err != nil {
			return nil, err
		}
		f.TakerFillAmount = amount.ToBig()
		fills = append(fills, f)
	}
	return fills, nil
}

// headOffset reads head word i as a byte offset and returns it in words.
func headOffset(input []byte, i int) (int, error) {
	w, err := word(input, i)
	if err != nil {
		return 0, err
	}
	off, ok := smallUint(w)
	if !ok || off%wordSize != 0 {
		return 0, ErrLayout
	}
	return off / wordSize, nil
}

func lengthAt(input []byte, wordIdx int) (int, error) {
	w, err := word(input, wordIdx)
	if err != nil {
		return 0, err
	}
	n, ok := smallUint(w)
	if !ok {
		return 0, ErrLayout
	}
	return n, nil
}

// readOrder reads the static order struct starting at word base.
func readOrder(input []byte, base int, shape orderShape) (Fill, error) {
	var (
		f   Fill
		err error
	)
	if f.MakerToken, err = wordAddress(input, base+makerTokenWord); err != nil {
		return Fill{}, err
	}
	if f.TakerToken, err = wordAddress(input, base+takerTokenWord); err != nil {
		return Fill{}, err
	}
	if f.Maker, err = wordAddress(input, base+shape.makerWord); err != nil {
		return Fill{}, err
	}
	makerAmount, err := wordUint(input, base+makerAmountWord)
	if err != nil {
		return Fill{}, err
	}
	takerAmount, err := wordUint(input, base+takerAmountWord)
	if err != nil {
		return Fill{}, err
	}
	f.MakerAmount = makerAmount.ToBig()
	f.TakerAmount = takerAmount.ToBig()
	return f, nil
}
