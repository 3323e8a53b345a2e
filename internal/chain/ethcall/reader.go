// Package ethcall implements chain.Reader over JSON-RPC eth_call.
package ethcall

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/atmx/aco-indexer/internal/chain"
	"github.com/atmx/aco-indexer/internal/metrics"
)

// Reader issues read-only contract calls pinned to the block carried in
// the context (see chain.WithBlock), or to the latest block otherwise.
type Reader struct {
	caller ethereum.ContractCaller
}

var _ chain.Reader = (*Reader)(nil)

// New creates a Reader. An *ethclient.Client is the usual caller.
func New(caller ethereum.ContractCaller) *Reader {
	return &Reader{caller: caller}
}

// call packs and executes method on addr and returns the decoded outputs.
func (r *Reader) call(ctx context.Context, addr common.Address, method string, args ...interface{}) ([]interface{}, error) {
	m, ok := methods[method]
	if !ok {
		return nil, fmt.Errorf("ethcall: unknown method %s", method)
	}
	input, err := m.Inputs.Pack(args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	var block *big.Int
	if n, ok := chain.BlockFrom(ctx); ok {
		block = new(big.Int).SetUint64(n)
	}

	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{
		To:   &addr,
		Data: append(append([]byte{}, m.ID...), input...),
	}, block)
	if err != nil {
		if isRevert(err) {
			metrics.RevertedReads.WithLabelValues(method).Inc()
			return nil, fmt.Errorf("%s on %s: %w", method, addr.Hex(), chain.ErrReverted)
		}
		return nil, fmt.Errorf("call %s on %s: %w", method, addr.Hex(), err)
	}

	values, err := m.Outputs.Unpack(out)
	if err != nil || len(values) != len(m.Outputs) {
		// Empty or malformed return data: no such method on the target.
		metrics.RevertedReads.WithLabelValues(method).Inc()
		return nil, fmt.Errorf("%s on %s: %w", method, addr.Hex(), chain.ErrReverted)
	}
	return values, nil
}

func isRevert(err error) bool {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		return true
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == 3 {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "execution reverted") || strings.Contains(msg, "invalid opcode")
}

func (r *Reader) address(ctx context.Context, addr common.Address, method string, args ...interface{}) (common.Address, error) {
	v, err := r.call(ctx, addr, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	out, ok := v[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s: unexpected %T: %w", method, v[0], chain.ErrReverted)
	}
	return out, nil
}

func (r *Reader) bigInt(ctx context.Context, addr common.Address, method string, args ...interface{}) (*big.Int, error) {
	v, err := r.call(ctx, addr, method, args...)
	if err != nil {
		return nil, err
	}
	return toBig(v[0])
}

func (r *Reader) str(ctx context.Context, addr common.Address, method string) (string, error) {
	v, err := r.call(ctx, addr, method)
	if err != nil {
		return "", err
	}
	out, ok := v[0].(string)
	if !ok {
		return "", fmt.Errorf("%s: unexpected %T: %w", method, v[0], chain.ErrReverted)
	}
	return out, nil
}

// toBig converts the integer kinds abi.Unpack produces.
func toBig(v interface{}) (*big.Int, error) {
	switch n := v.(type) {
	case *big.Int:
		return n, nil
	case uint8:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	default:
		return nil, fmt.Errorf("unexpected integer %T: %w", v, chain.ErrReverted)
	}
}

func bigs(values []interface{}) ([]*big.Int, error) {
	out := make([]*big.Int, len(values))
	for i, v := range values {
		n, err := toBig(v)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// --- ERC20 ---

func (r *Reader) TokenSymbol(ctx context.Context, token common.Address) (string, error) {
	return r.str(ctx, token, "symbol")
}

func (r *Reader) TokenName(ctx context.Context, token common.Address) (string, error) {
	return r.str(ctx, token, "name")
}

func (r *Reader) TokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	n, err := r.bigInt(ctx, token, "decimals")
	if err != nil {
		return 0, err
	}
	return uint8(n.Uint64()), nil
}

// --- ACO token ---

func (r *Reader) OptionFee(ctx context.Context, aco common.Address) (*big.Int, error) {
	return r.bigInt(ctx, aco, "acoFee")
}

func (r *Reader) OptionFeeDestination(ctx context.Context, aco common.Address) (common.Address, error) {
	return r.address(ctx, aco, "feeDestination")
}

func (r *Reader) OptionMaxExercisedAccounts(ctx context.Context, aco common.Address) (*big.Int, error) {
	return r.bigInt(ctx, aco, "maxExercisedAccounts")
}

func (r *Reader) OptionCollateralized(ctx context.Context, aco, account common.Address) (*big.Int, error) {
	return r.bigInt(ctx, aco, "currentCollateralizedTokens", account)
}

// --- ACO pool ---

func (r *Reader) PoolGasToken(ctx context.Context, pool common.Address) (common.Address, error) {
	return r.address(ctx, pool, "chiToken")
}

func (r *Reader) PoolStrategy(ctx context.Context, pool common.Address) (common.Address, error) {
	return r.address(ctx, pool, "strategy")
}

func (r *Reader) PoolBaseVolatility(ctx context.Context, pool common.Address) (*big.Int, error) {
	return r.bigInt(ctx, pool, "baseVolatility")
}

func (r *Reader) PoolLegacyConfig(ctx context.Context, pool common.Address) (chain.PoolLegacyConfig, error) {
	var (
		cfg chain.PoolLegacyConfig
		err error
	)
	if cfg.AssetConverter, err = r.address(ctx, pool, "assetConverter"); err != nil {
		return cfg, err
	}
	if cfg.FeeDestination, err = r.address(ctx, pool, "feeDestination"); err != nil {
		return cfg, err
	}
	ints := []struct {
		method string
		dst    **big.Int
	}{
		{"maximumOpenAco", &cfg.MaximumOpenACO},
		{"minExpiration", &cfg.MinExpiration},
		{"maxExpiration", &cfg.MaxExpiration},
		{"withdrawOpenPositionPenalty", &cfg.WithdrawOpenPositionPenalty},
		{"underlyingPriceAdjustPercentage", &cfg.UnderlyingPriceAdjustPercentage},
		{"fee", &cfg.Fee},
		{"tolerancePriceAbove", &cfg.TolerancePriceAbove},
		{"tolerancePriceBelow", &cfg.TolerancePriceBelow},
	}
	for _, f := range ints {
		if *f.dst, err = r.bigInt(ctx, pool, f.method); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func (r *Reader) PoolProtocolConfig(ctx context.Context, pool common.Address) (chain.PoolProtocolConfig, error) {
	v, err := r.call(ctx, pool, "protocolConfig")
	if err != nil {
		return chain.PoolProtocolConfig{}, err
	}
	n, err := bigs(v[:5])
	if err != nil {
		return chain.PoolProtocolConfig{}, err
	}
	feeDest, ok1 := v[5].(common.Address)
	converter, ok2 := v[6].(common.Address)
	if !ok1 || !ok2 {
		return chain.PoolProtocolConfig{}, fmt.Errorf("protocolConfig: %w", chain.ErrReverted)
	}
	return chain.PoolProtocolConfig{
		LendingPoolReferral:             n[0],
		WithdrawOpenPositionPenalty:     n[1],
		UnderlyingPriceAdjustPercentage: n[2],
		Fee:                             n[3],
		MaximumOpenACO:                  n[4],
		FeeDestination:                  feeDest,
		AssetConverter:                  converter,
	}, nil
}

func (r *Reader) PoolPermissionConfig(ctx context.Context, pool common.Address) (chain.PoolPermissionConfig, error) {
	v, err := r.call(ctx, pool, "acoPermissionConfig")
	if err != nil {
		return chain.PoolPermissionConfig{}, err
	}
	n, err := bigs(v)
	if err != nil {
		return chain.PoolPermissionConfig{}, err
	}
	return chain.PoolPermissionConfig{
		TolerancePriceBelowMin: n[0],
		TolerancePriceBelowMax: n[1],
		TolerancePriceAboveMin: n[2],
		TolerancePriceAboveMax: n[3],
		MinExpiration:          n[4],
		MaxExpiration:          n[5],
	}, nil
}

func (r *Reader) PoolLendingPool(ctx context.Context, pool common.Address) (common.Address, error) {
	return r.address(ctx, pool, "lendingPool")
}

func (r *Reader) PoolLendingPoolReferral(ctx context.Context, pool common.Address) (*big.Int, error) {
	return r.bigInt(ctx, pool, "lendingPoolReferral")
}

func (r *Reader) PoolAdmin(ctx context.Context, pool common.Address, legacy bool) (common.Address, error) {
	if legacy {
		return r.address(ctx, pool, "admin")
	}
	return r.address(ctx, pool, "poolAdmin")
}

func (r *Reader) PoolGeneralData(ctx context.Context, pool common.Address) (chain.PoolGeneralData, error) {
	v, err := r.call(ctx, pool, "getGeneralData")
	if err != nil {
		return chain.PoolGeneralData{}, err
	}
	n, err := bigs(v)
	if err != nil {
		return chain.PoolGeneralData{}, err
	}
	return chain.PoolGeneralData{
		UnderlyingBalance:          n[0],
		StrikeAssetBalance:         n[1],
		CollateralLocked:           n[2],
		CollateralOnOpenPosition:   n[3],
		CollateralLockedRedeemable: n[4],
		PoolSupply:                 n[5],
	}, nil
}

func (r *Reader) PoolCanSwap(ctx context.Context, pool, aco common.Address) (bool, error) {
	v, err := r.call(ctx, pool, "canSwap", aco)
	if err != nil {
		return false, err
	}
	ok, _ := v[0].(bool)
	return ok, nil
}

// --- Strategy ---

func (r *Reader) StrategyOptionPrice(ctx context.Context, strategy common.Address, q chain.OptionQuote) (*big.Int, error) {
	return r.bigInt(ctx, strategy, "getOptionPrice",
		q.UnderlyingPrice, q.Underlying, q.StrikeAsset, q.IsCall,
		q.StrikePrice, q.ExpiryTime, q.BaseVolatility)
}

// --- Oracle ---

func (r *Reader) ConverterAggregator(ctx context.Context, converter, base, quote common.Address) (common.Address, error) {
	return r.address(ctx, converter, "getAggregator", base, quote)
}

func (r *Reader) ProxyAggregator(ctx context.Context, proxy common.Address) (common.Address, error) {
	return r.address(ctx, proxy, "aggregator")
}

func (r *Reader) AggregatorDecimals(ctx context.Context, aggregator common.Address) (uint8, error) {
	return r.TokenDecimals(ctx, aggregator)
}

func (r *Reader) AggregatorLatestAnswer(ctx context.Context, aggregator common.Address) (*big.Int, error) {
	return r.bigInt(ctx, aggregator, "latestAnswer")
}

func (r *Reader) AggregatorLatestTimestamp(ctx context.Context, aggregator common.Address) (*big.Int, error) {
	return r.bigInt(ctx, aggregator, "latestTimestamp")
}
