package calldata_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/atmx/aco-indexer/internal/calldata"
)

var (
	aco    = common.HexToAddress("0xa000000000000000000000000000000000000001")
	usdc   = common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	maker  = common.HexToAddress("0xb000000000000000000000000000000000000002")
	taker  = common.HexToAddress("0xc000000000000000000000000000000000000003")
	sender = common.HexToAddress("0xd000000000000000000000000000000000000004")
	zero   = common.Address{}
)

func addrWord(a common.Address) []byte { return common.LeftPadBytes(a.Bytes(), 32) }

func uintWord(v int64) []byte { return common.LeftPadBytes(big.NewInt(v).Bytes(), 32) }

func sel(hex string) []byte { return common.Hex2Bytes(hex) }

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// assetData is an ERC20 asset proxy id plus token, padded to a word boundary.
func assetData(token common.Address) []byte {
	data := concat(sel("f47261b0"), addrWord(token))
	return concat(uintWord(int64(len(data))), common.RightPadBytes(data, 64))
}

// v1Order is a single exchange order followed by its asset data.
func v1Order(orderMaker common.Address, makerAmount, takerAmount int64, makerAsset, takerAsset common.Address) []byte {
	return concat(
		addrWord(orderMaker),
		addrWord(zero), // taker
		addrWord(zero), // fee recipient
		addrWord(zero), // sender
		uintWord(makerAmount),
		uintWord(takerAmount),
		uintWord(0), // maker fee
		uintWord(0), // taker fee
		assetData(makerAsset),
		assetData(takerAsset),
	)
}

func TestDecodeZRXTakerBuys(t *testing.T) {
	input := concat(sel(calldata.SelectorTakerBuys), uintWord(32), v1Order(maker, 100, 250, aco, usdc))
	tr := calldata.Transfer{From: maker, To: taker, Value: big.NewInt(40)}

	got, err := calldata.DecodeZRX(input, tr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Seller != maker || got.Buyer != taker || got.Taker != taker {
		t.Errorf("parties = %+v", got)
	}
	if got.PaymentToken != usdc {
		t.Errorf("token = %s, want usdc", got.PaymentToken.Hex())
	}
	if got.PaymentAmount.Int64() != 100 {
		t.Errorf("paid = %s, want 100", got.PaymentAmount)
	}
}

func TestDecodeZRXTakerSells(t *testing.T) {
	// The maker buys ACO with usdc: maker asset is the payment.
	input := concat(sel(calldata.SelectorTakerSells), uintWord(32), v1Order(maker, 300, 60, usdc, aco))
	tr := calldata.Transfer{From: taker, To: maker, Value: big.NewInt(20)}

	got, err := calldata.DecodeZRX(input, tr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Seller != taker || got.Buyer != maker || got.Taker != taker {
		t.Errorf("parties = %+v", got)
	}
	if got.PaymentToken != usdc {
		t.Errorf("token = %s, want usdc", got.PaymentToken.Hex())
	}
	if got.PaymentAmount.Int64() != 100 {
		t.Errorf("paid = %s, want 100", got.PaymentAmount)
	}
}

func TestDecodeZRXDeterministic(t *testing.T) {
	input := concat(sel(calldata.SelectorTakerBuys), uintWord(32), v1Order(maker, 7, 3, aco, usdc))
	tr := calldata.Transfer{From: maker, To: taker, Value: big.NewInt(1000)}

	a, errA := calldata.DecodeZRX(input, tr)
	b, errB := calldata.DecodeZRX(input, tr)
	if errA != nil || errB != nil {
		t.Fatalf("errors: %v %v", errA, errB)
	}
	if a.PaymentAmount.Cmp(b.PaymentAmount) != 0 || a.PaymentToken != b.PaymentToken {
		t.Errorf("non-deterministic: %+v vs %+v", a, b)
	}
	// 1000 * 3 / 7 truncates.
	if a.PaymentAmount.Int64() != 428 {
		t.Errorf("paid = %s, want 428", a.PaymentAmount)
	}
}

func TestDecodeZRXLayoutErrors(t *testing.T) {
	tr := calldata.Transfer{From: maker, To: taker, Value: big.NewInt(1)}
	tests := []struct {
		name  string
		input []byte
	}{
		{"unknown selector", concat(sel("deadbeef"), v1Order(maker, 1, 1, aco, usdc))},
		{"maker missing", concat(sel(calldata.SelectorTakerBuys), v1Order(sender, 1, 1, aco, usdc))},
		{"zero divisor", concat(sel(calldata.SelectorTakerBuys), v1Order(maker, 0, 1, aco, usdc))},
		{"no asset proxy", concat(sel(calldata.SelectorTakerBuys), addrWord(maker), uintWord(1), uintWord(1))},
		{"truncated", concat(sel(calldata.SelectorTakerBuys), addrWord(maker))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := calldata.DecodeZRX(tt.input, tr)
			if !errors.Is(err, calldata.ErrLayout) {
				t.Fatalf("expected ErrLayout, got %v", err)
			}
		})
	}
}

func TestDecodeWriter(t *testing.T) {
	// Five outer words put the inner exchange call at a fixed offset.
	inner := concat(sel(calldata.SelectorTakerBuys), uintWord(32), v1Order(taker, 10, 40, aco, usdc))
	input := concat(sel("12345678"),
		addrWord(aco), uintWord(5), uintWord(0), uintWord(160), uintWord(int64(len(inner))),
		inner)
	tr := calldata.Transfer{From: sender, To: taker, Value: big.NewInt(5)}

	got, err := calldata.DecodeWriter(input, sender, tr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Seller != sender || got.Taker != sender || got.Buyer != taker {
		t.Errorf("parties = %+v", got)
	}
	if got.PaymentAmount.Int64() != 20 || got.PaymentToken != usdc {
		t.Errorf("payment = %s %s", got.PaymentAmount, got.PaymentToken.Hex())
	}
}

func otcOrderWords(seller common.Address, amount int64, token common.Address) []byte {
	return concat(
		uintWord(0), uintWord(0),
		addrWord(seller),
		uintWord(0), uintWord(0), uintWord(0), uintWord(0),
		uintWord(0), uintWord(0), uintWord(0),
		uintWord(amount),
		addrWord(token),
	)
}

func TestDecodeOTCSignedOrder(t *testing.T) {
	input := concat(sel(calldata.SelectorOTCSwap), otcOrderWords(maker, 1500, usdc))
	tr := calldata.Transfer{From: maker, To: taker, Value: big.NewInt(1)}

	got, err := calldata.DecodeOTC(input, taker, tr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Seller != maker {
		t.Errorf("seller = %s, want embedded maker", got.Seller.Hex())
	}
	if got.Taker != taker || got.Buyer != taker {
		t.Errorf("parties = %+v", got)
	}
	if got.PaymentAmount.Int64() != 1500 || got.PaymentToken != usdc {
		t.Errorf("payment = %s %s", got.PaymentAmount, got.PaymentToken.Hex())
	}
}

func TestDecodeOTCSenderOrder(t *testing.T) {
	input := concat(sel(calldata.SelectorOTCSwapSender),
		uintWord(0), uintWord(0), uintWord(0), uintWord(777), addrWord(usdc))
	tr := calldata.Transfer{From: sender, To: taker, Value: big.NewInt(1)}

	got, err := calldata.DecodeOTC(input, sender, tr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Seller != sender {
		t.Errorf("seller = %s, want transaction sender", got.Seller.Hex())
	}
	if got.PaymentAmount.Int64() != 777 || got.PaymentToken != usdc {
		t.Errorf("payment = %s %s", got.PaymentAmount, got.PaymentToken.Hex())
	}
}

func TestDecodeOTCTruncated(t *testing.T) {
	input := concat(sel(calldata.SelectorOTCSwap), uintWord(0), uintWord(0))
	_, err := calldata.DecodeOTC(input, taker, calldata.Transfer{Value: big.NewInt(1)})
	if !errors.Is(err, calldata.ErrLayout) {
		t.Fatalf("expected ErrLayout, got %v", err)
	}
}

func limitOrderWords(orderMaker, makerToken, takerToken common.Address, makerAmount, takerAmount int64) []byte {
	return concat(
		addrWord(makerToken), addrWord(takerToken),
		uintWord(makerAmount), uintWord(takerAmount), uintWord(0),
		addrWord(orderMaker), addrWord(zero), addrWord(zero), addrWord(zero),
		uintWord(0), uintWord(0), uintWord(0),
	)
}

func rfqOrderWords(orderMaker, makerToken, takerToken common.Address, makerAmount, takerAmount int64) []byte {
	return concat(
		addrWord(makerToken), addrWord(takerToken),
		uintWord(makerAmount), uintWord(takerAmount),
		addrWord(orderMaker), addrWord(zero), addrWord(zero),
		uintWord(0), uintWord(0), uintWord(0),
	)
}

func signatureWords() []byte {
	return concat(uintWord(2), uintWord(27), uintWord(1), uintWord(2))
}

func TestDecodeV4FillLimitOrder(t *testing.T) {
	input := concat(sel(calldata.SelectorFillLimitOrder),
		limitOrderWords(maker, aco, usdc, 10, 5000), signatureWords(), uintWord(2500))

	fills, err := calldata.DecodeV4(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fills) != 1 {
		t.Fatalf("fills = %d, want 1", len(fills))
	}
	f := fills[0]
	if f.Maker != maker || f.MakerToken != aco || f.TakerToken != usdc {
		t.Errorf("fill = %+v", f)
	}
	if f.MakerAmount.Int64() != 10 || f.TakerAmount.Int64() != 5000 || f.TakerFillAmount.Int64() != 2500 {
		t.Errorf("amounts = %+v", f)
	}
}

func TestDecodeV4FillRfqOrder(t *testing.T) {
	input := concat(sel(calldata.SelectorFillRfqOrder),
		rfqOrderWords(maker, usdc, aco, 900, 3), signatureWords(), uintWord(1))

	fills, err := calldata.DecodeV4(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fills) != 1 || fills[0].Maker != maker || fills[0].TakerFillAmount.Int64() != 1 {
		t.Errorf("fills = %+v", fills)
	}
}

func batchLimitInput(orders [][]byte, fills []int64) []byte {
	n := int64(len(orders))
	// head: orders, signatures, fills, revertIfIncomplete
	ordersAt := int64(4 * 32)
	sigsAt := ordersAt + 32 + n*12*32
	fillsAt := sigsAt + 32 + n*4*32

	parts := [][]byte{
		sel(calldata.SelectorBatchFillLimitOrders),
		uintWord(ordersAt), uintWord(sigsAt), uintWord(fillsAt), uintWord(0),
		uintWord(n),
	}
	parts = append(parts, orders...)
	parts = append(parts, uintWord(n))
	for range orders {
		parts = append(parts, signatureWords())
	}
	parts = append(parts, uintWord(n))
	for _, f := range fills {
		parts = append(parts, uintWord(f))
	}
	return concat(parts...)
}

func TestDecodeV4BatchFill(t *testing.T) {
	other := common.HexToAddress("0xe000000000000000000000000000000000000005")
	input := batchLimitInput([][]byte{
		limitOrderWords(maker, aco, usdc, 10, 5000),
		limitOrderWords(other, aco, usdc, 20, 8000),
	}, []int64{1000, 4000})

	fills, err := calldata.DecodeV4(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fills) != 2 {
		t.Fatalf("fills = %d, want 2", len(fills))
	}
	if fills[0].Maker != maker || fills[0].TakerFillAmount.Int64() != 1000 {
		t.Errorf("fill 0 = %+v", fills[0])
	}
	if fills[1].Maker != other || fills[1].MakerAmount.Int64() != 20 || fills[1].TakerFillAmount.Int64() != 4000 {
		t.Errorf("fill 1 = %+v", fills[1])
	}
}

func TestDecodeV4Nested(t *testing.T) {
	inner := concat(sel(calldata.SelectorFillLimitOrder),
		limitOrderWords(maker, aco, usdc, 10, 5000), signatureWords(), uintWord(2500))
	input := concat(sel("0badf00d"),
		addrWord(aco), uintWord(64), // aco, offset of data
		uintWord(int64(len(inner))), common.RightPadBytes(inner, (len(inner)+31)/32*32))

	fills, err := calldata.DecodeV4Nested(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fills) != 1 || fills[0].Maker != maker {
		t.Errorf("fills = %+v", fills)
	}
}

func TestDecodeV4Unknown(t *testing.T) {
	if _, err := calldata.DecodeV4(sel("deadbeef")); !errors.Is(err, calldata.ErrLayout) {
		t.Fatalf("expected ErrLayout, got %v", err)
	}
	if _, err := calldata.DecodeV4Nested(concat(sel("deadbeef"), uintWord(5))); !errors.Is(err, calldata.ErrLayout) {
		t.Fatalf("expected ErrLayout, got %v", err)
	}
}
