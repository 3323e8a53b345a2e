package ethcall

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/atmx/aco-indexer/internal/chain"
)

// fakeCaller answers calls by selector with pre-packed outputs.
type fakeCaller struct {
	results   map[string][]interface{}
	errs      map[string]error
	raw       map[string][]byte
	lastBlock *big.Int
	lastInput []byte
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{
		results: make(map[string][]interface{}),
		errs:    make(map[string]error),
		raw:     make(map[string][]byte),
	}
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	f.lastBlock = block
	f.lastInput = msg.Data
	for name, m := range methods {
		if !bytes.Equal(msg.Data[:4], m.ID) {
			continue
		}
		if err, ok := f.errs[name]; ok {
			return nil, err
		}
		if raw, ok := f.raw[name]; ok {
			return raw, nil
		}
		if vals, ok := f.results[name]; ok {
			return m.Outputs.Pack(vals...)
		}
	}
	return nil, nil
}

var token = common.HexToAddress("0x1111111111111111111111111111111111111111")

func TestTokenSymbol(t *testing.T) {
	f := newFakeCaller()
	f.results["symbol"] = []interface{}{"WETH"}
	r := New(f)

	got, err := r.TokenSymbol(context.Background(), token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "WETH" {
		t.Errorf("symbol = %q, want WETH", got)
	}
}

func TestTokenDecimals(t *testing.T) {
	f := newFakeCaller()
	f.results["decimals"] = []interface{}{uint8(6)}
	r := New(f)

	got, err := r.TokenDecimals(context.Background(), token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 6 {
		t.Errorf("decimals = %d, want 6", got)
	}
}

func TestRevertedCall(t *testing.T) {
	f := newFakeCaller()
	f.errs["name"] = errors.New("execution reverted")
	r := New(f)

	_, err := r.TokenName(context.Background(), token)
	if !errors.Is(err, chain.ErrReverted) {
		t.Fatalf("expected ErrReverted, got %v", err)
	}
}

func TestEmptyReturnIsRevert(t *testing.T) {
	f := newFakeCaller()
	r := New(f)

	_, err := r.TokenDecimals(context.Background(), token)
	if !errors.Is(err, chain.ErrReverted) {
		t.Fatalf("expected ErrReverted, got %v", err)
	}
}

func TestTransportErrorPropagates(t *testing.T) {
	f := newFakeCaller()
	f.errs["symbol"] = errors.New("connection refused")
	r := New(f)

	_, err := r.TokenSymbol(context.Background(), token)
	if err == nil || errors.Is(err, chain.ErrReverted) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestCallPinnedToBlock(t *testing.T) {
	f := newFakeCaller()
	f.results["symbol"] = []interface{}{"X"}
	r := New(f)

	ctx := chain.WithBlock(context.Background(), 11511139)
	if _, err := r.TokenSymbol(ctx, token); err != nil {
		t.Fatal(err)
	}
	if f.lastBlock == nil || f.lastBlock.Uint64() != 11511139 {
		t.Errorf("block = %v, want 11511139", f.lastBlock)
	}

	if _, err := r.TokenSymbol(context.Background(), token); err != nil {
		t.Fatal(err)
	}
	if f.lastBlock != nil {
		t.Errorf("block = %v, want latest (nil)", f.lastBlock)
	}
}

func TestPoolGeneralData(t *testing.T) {
	f := newFakeCaller()
	f.results["getGeneralData"] = []interface{}{
		big.NewInt(1), big.NewInt(2), big.NewInt(3),
		big.NewInt(4), big.NewInt(5), big.NewInt(6),
	}
	r := New(f)

	got, err := r.PoolGeneralData(context.Background(), token)
	if err != nil {
		t.Fatal(err)
	}
	if got.UnderlyingBalance.Int64() != 1 || got.PoolSupply.Int64() != 6 {
		t.Errorf("unexpected general data: %+v", got)
	}
}

func TestPoolProtocolConfig(t *testing.T) {
	feeDest := common.HexToAddress("0x2222222222222222222222222222222222222222")
	converter := common.HexToAddress("0x3333333333333333333333333333333333333333")

	f := newFakeCaller()
	f.results["protocolConfig"] = []interface{}{
		uint16(7), big.NewInt(100), big.NewInt(200), big.NewInt(300), big.NewInt(10),
		feeDest, converter,
	}
	r := New(f)

	got, err := r.PoolProtocolConfig(context.Background(), token)
	if err != nil {
		t.Fatal(err)
	}
	if got.LendingPoolReferral.Int64() != 7 {
		t.Errorf("referral = %s, want 7", got.LendingPoolReferral)
	}
	if got.Fee.Int64() != 300 || got.MaximumOpenACO.Int64() != 10 {
		t.Errorf("unexpected config: %+v", got)
	}
	if got.FeeDestination != feeDest || got.AssetConverter != converter {
		t.Errorf("unexpected addresses: %+v", got)
	}
}

func TestCollateralizedPacksAccount(t *testing.T) {
	account := common.HexToAddress("0x4444444444444444444444444444444444444444")
	f := newFakeCaller()
	f.results["currentCollateralizedTokens"] = []interface{}{big.NewInt(42)}
	r := New(f)

	got, err := r.OptionCollateralized(context.Background(), token, account)
	if err != nil {
		t.Fatal(err)
	}
	if got.Int64() != 42 {
		t.Errorf("collateralized = %s, want 42", got)
	}
	if !bytes.Equal(f.lastInput[4+12:], account.Bytes()) {
		t.Errorf("account not packed: %x", f.lastInput)
	}
}

func TestAdminSelectsGetter(t *testing.T) {
	admin := common.HexToAddress("0x5555555555555555555555555555555555555555")
	f := newFakeCaller()
	f.results["admin"] = []interface{}{admin}
	f.errs["poolAdmin"] = errors.New("execution reverted")
	r := New(f)

	got, err := r.PoolAdmin(context.Background(), token, true)
	if err != nil || got != admin {
		t.Fatalf("admin() = %s, %v", got.Hex(), err)
	}
	if _, err := r.PoolAdmin(context.Background(), token, false); !errors.Is(err, chain.ErrReverted) {
		t.Fatalf("poolAdmin() error = %v, want ErrReverted", err)
	}
}
