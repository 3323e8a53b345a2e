// Package valuation prices pools from their oracle, their general data and
// the options they have written, and keeps the per-share time series.
package valuation

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/atmx/aco-indexer/internal/activeset"
	"github.com/atmx/aco-indexer/internal/chain"
	"github.com/atmx/aco-indexer/internal/config"
	"github.com/atmx/aco-indexer/internal/metrics"
	"github.com/atmx/aco-indexer/internal/model"
	"github.com/atmx/aco-indexer/internal/numeric"
	"github.com/atmx/aco-indexer/internal/resolver"
	"github.com/atmx/aco-indexer/internal/store"
)

const (
	// MinimumCollateralValue is the collateral value, in strike asset
	// units, a pool needs before idle options are tracked.
	MinimumCollateralValue = 100

	// ShareSnapshotInterval is the minimum number of seconds between two
	// historical share rows of a pool.
	ShareSnapshotInterval = 3600
)

var minimumCollateral = decimal.NewFromInt(MinimumCollateralValue)

// Listener is told about every persisted pool valuation.
type Listener interface {
	PoolValued(data *model.PoolDynamicData)
}

// Engine runs valuation passes.
type Engine struct {
	store    store.Store
	reader   chain.Reader
	resolver *resolver.Resolver
	active   *activeset.Set
	network  config.Network
	listener Listener
}

// New creates an Engine. listener may be nil.
func New(s store.Store, reader chain.Reader, res *resolver.Resolver, active *activeset.Set, network config.Network, listener Listener) *Engine {
	return &Engine{
		store:    s,
		reader:   reader,
		resolver: res,
		active:   active,
		network:  network,
		listener: listener,
	}
}

// Pool revalues pool at ev's block. The pool is saved with its updated
// counters, so callers must persist their own changes to it first and not
// save a stale copy afterwards.
func (e *Engine) Pool(ctx context.Context, ev chain.Event, pool *model.ACOPool) error {
	if e.legacy(pool) {
		metrics.ValuationPasses.WithLabelValues("legacy").Inc()
		return nil
	}
	agg, err := e.resolver.Price(ctx, pool.Underlying, pool.StrikeAsset)
	if err != nil {
		return err
	}
	if agg == nil {
		metrics.ValuationPasses.WithLabelValues("no_oracle").Inc()
		slog.Debug("no oracle for pool", "pool", pool.ID)
		return nil
	}
	acos, err := e.active.Scan(ctx, ev.Block.Timestamp)
	if err != nil {
		return err
	}
	return e.value(ctx, ev, pool, agg, activeset.Matching(acos, pool.Underlying, pool.StrikeAsset, pool.IsCall))
}

// Aggregator revalues every pool priced by agg after a new answer or a new
// aggregator.
func (e *Engine) Aggregator(ctx context.Context, ev chain.Event, agg *model.AggregatorInterface) error {
	base, quote, err := e.resolver.Pair(ctx, agg)
	if err != nil {
		return err
	}
	factory, err := store.Load[model.ACOPoolFactory](ctx, e.store, chain.HexID(e.network.ACOPoolFactory))
	if err != nil || factory == nil {
		return err
	}

	acos, err := e.active.Scan(ctx, ev.Block.Timestamp)
	if err != nil {
		return err
	}
	calls := activeset.Matching(acos, base, quote, true)
	puts := activeset.Matching(acos, base, quote, false)

	for _, id := range factory.Pools {
		pool, err := store.MustLoad[model.ACOPool](ctx, e.store, id)
		if err != nil {
			return err
		}
		if pool.Underlying != base || pool.StrikeAsset != quote {
			continue
		}
		if e.legacy(pool) {
			metrics.ValuationPasses.WithLabelValues("legacy").Inc()
			continue
		}
		matching := puts
		if pool.IsCall {
			matching = calls
		}
		if err := e.value(ctx, ev, pool, agg, matching); err != nil {
			return fmt.Errorf("value pool %s: %w", pool.ID, err)
		}
	}
	return nil
}

func (e *Engine) legacy(pool *model.ACOPool) bool {
	return e.network.IsLegacyPool(common.HexToAddress(pool.Implementation))
}

// assets are the decimal scales a pass converts with.
type assets struct {
	underlying int32
	strike     int32
	collateral int32
}

func (e *Engine) assets(ctx context.Context, pool *model.ACOPool) (assets, error) {
	underlying, err := e.resolver.TokenByID(ctx, pool.Underlying)
	if err != nil {
		return assets{}, err
	}
	strike, err := e.resolver.TokenByID(ctx, pool.StrikeAsset)
	if err != nil {
		return assets{}, err
	}
	a := assets{underlying: underlying.Decimals, strike: strike.Decimals, collateral: strike.Decimals}
	if pool.IsCall {
		a.collateral = underlying.Decimals
	}
	return a, nil
}

func (e *Engine) value(ctx context.Context, ev chain.Event, pool *model.ACOPool, agg *model.AggregatorInterface, acos []*model.ACOToken) error {
	ts := ev.Block.Timestamp
	data := &model.PoolDynamicData{
		ID:              pool.ID,
		Pool:            pool.ID,
		UnderlyingPrice: agg.Price,
		Timestamp:       ts,
	}

	if pool.TotalSupply.IsZero() {
		metrics.ValuationPasses.WithLabelValues("zero_supply").Inc()
		return e.saveData(ctx, pool, data)
	}

	gd, err := e.reader.PoolGeneralData(ctx, common.HexToAddress(pool.ID))
	if chain.Reverted(err) {
		metrics.ValuationPasses.WithLabelValues("reverted").Inc()
		slog.Warn("pool general data reverted, valuation skipped", "pool", pool.ID, "block", ev.Block.Number)
		return nil
	}
	if err != nil {
		return err
	}

	a, err := e.assets(ctx, pool)
	if err != nil {
		return err
	}

	data.UnderlyingBalance = numeric.ToDecimal(gd.UnderlyingBalance, a.underlying)
	data.StrikeAssetBalance = numeric.ToDecimal(gd.StrikeAssetBalance, a.strike)
	data.CollateralLocked = numeric.ToDecimal(gd.CollateralLocked, a.collateral)
	data.CollateralOnOpenPosition = numeric.ToDecimal(gd.CollateralOnOpenPosition, a.collateral)
	data.CollateralLockedRedeemable = numeric.ToDecimal(gd.CollateralLockedRedeemable, a.collateral)

	price := agg.Price
	penalty := decimal.NewFromInt(1).Add(pool.WithdrawOpenPositionPenalty)
	collateralShare := data.CollateralLocked.Sub(data.CollateralOnOpenPosition.Mul(penalty))
	if pool.IsCall {
		data.CollateralValue = price.Mul(data.UnderlyingBalance)
		data.NonCollateralValue = data.StrikeAssetBalance
		data.CollateralLockedValue = price.Mul(data.CollateralLocked)
		data.UnderlyingPerShare = numeric.Div(data.UnderlyingBalance.Add(collateralShare), pool.TotalSupply)
		data.StrikeAssetPerShare = numeric.Div(data.StrikeAssetBalance, pool.TotalSupply)
	} else {
		data.CollateralValue = data.StrikeAssetBalance
		data.NonCollateralValue = price.Mul(data.UnderlyingBalance)
		data.CollateralLockedValue = data.CollateralLocked
		data.UnderlyingPerShare = numeric.Div(data.UnderlyingBalance, pool.TotalSupply)
		data.StrikeAssetPerShare = numeric.Div(data.StrikeAssetBalance.Add(collateralShare), pool.TotalSupply)
	}
	data.HasMinimalCollateral = data.CollateralValue.GreaterThanOrEqual(minimumCollateral)

	open := decimal.Zero
	for _, aco := range acos {
		v, err := e.optionData(ctx, ev, pool, aco, price, a, data.HasMinimalCollateral)
		if err != nil {
			return fmt.Errorf("option %s: %w", aco.ID, err)
		}
		open = open.Add(v)
	}
	data.OpenPositionOptionsValue = open
	data.NetValue = data.CollateralLockedValue.Sub(open)
	data.TotalValue = data.CollateralValue.Add(data.NonCollateralValue).Add(data.NetValue)

	if err := e.historicalShare(ctx, pool, data); err != nil {
		return err
	}
	metrics.ValuationPasses.WithLabelValues("ok").Inc()
	return e.saveData(ctx, pool, data)
}

func (e *Engine) saveData(ctx context.Context, pool *model.ACOPool, data *model.PoolDynamicData) error {
	pool.DynamicData = data.ID
	if err := store.SaveAll(ctx, e.store, data, pool); err != nil {
		return err
	}
	if e.listener != nil {
		e.listener.PoolValued(data)
	}
	return nil
}

// historicalShare appends a share snapshot when the interval has elapsed
// and the per-share values or price moved.
func (e *Engine) historicalShare(ctx context.Context, pool *model.ACOPool, data *model.PoolDynamicData) error {
	if pool.LastHistoricalShareID != "" {
		if data.Timestamp < pool.LastHistoricalShareUpdate+ShareSnapshotInterval {
			return nil
		}
		last, err := store.Load[model.PoolHistoricalShare](ctx, e.store, pool.LastHistoricalShareID)
		if err != nil {
			return err
		}
		if last != nil &&
			last.UnderlyingPerShare.Equal(data.UnderlyingPerShare) &&
			last.StrikeAssetPerShare.Equal(data.StrikeAssetPerShare) &&
			last.UnderlyingPrice.Equal(data.UnderlyingPrice) {
			return nil
		}
	}

	share := &model.PoolHistoricalShare{
		ID:                  model.ID(pool.ID, strconv.FormatUint(data.Timestamp, 10)),
		Pool:                pool.ID,
		UnderlyingPerShare:  data.UnderlyingPerShare,
		StrikeAssetPerShare: data.StrikeAssetPerShare,
		UnderlyingPrice:     data.UnderlyingPrice,
		Timestamp:           data.Timestamp,
	}
	if err := store.Save(ctx, e.store, share); err != nil {
		return err
	}
	if share.ID != pool.LastHistoricalShareID {
		pool.HistoricalSharesCount++
	}
	pool.LastHistoricalShareID = share.ID
	pool.LastHistoricalShareUpdate = data.Timestamp
	return nil
}

// optionData refreshes the pool's valuation of one option and returns its
// open position value.
func (e *Engine) optionData(ctx context.Context, ev chain.Event, pool *model.ACOPool, aco *model.ACOToken, price decimal.Decimal, a assets, minimal bool) (decimal.Decimal, error) {
	id := model.ID(pool.ID, aco.ID)
	existing, err := store.Load[model.ACOPoolDynamicData](ctx, e.store, id)
	if err != nil {
		return decimal.Zero, err
	}

	poolAddr := common.HexToAddress(pool.ID)
	acoAddr := common.HexToAddress(aco.ID)

	raw, err := e.reader.OptionCollateralized(ctx, acoAddr, poolAddr)
	switch {
	case chain.Reverted(err):
		slog.Debug("collateralized tokens reverted", "pool", pool.ID, "aco", aco.ID)
		raw = nil
	case err != nil:
		return decimal.Zero, err
	}
	tokens := numeric.ToDecimal(raw, aco.Decimals)

	data := &model.ACOPoolDynamicData{
		ID:          id,
		Pool:        pool.ID,
		ACO:         aco.ID,
		TokenAmount: tokens,
		Timestamp:   ev.Block.Timestamp,
	}

	switch {
	case aco.Expired(ev.Block.Timestamp):
		if existing == nil && !tokens.IsPositive() {
			return decimal.Zero, nil
		}
		data.ExpiredTokens = tokens
		e.lockValues(data, aco, price)

	case tokens.IsPositive():
		e.lockValues(data, aco, price)
		if data.OptionPrice, err = e.optionPrice(ctx, pool, aco, price, a); err != nil {
			return decimal.Zero, err
		}
		data.OpenPositionOptionsValue = data.OptionPrice.Mul(tokens)

	default:
		if existing == nil {
			canSwap, err := e.reader.PoolCanSwap(ctx, poolAddr, acoAddr)
			switch {
			case chain.Reverted(err):
				canSwap = false
			case err != nil:
				return decimal.Zero, err
			}
			if !canSwap || !minimal {
				return decimal.Zero, nil
			}
		}
		if data.OptionPrice, err = e.optionPrice(ctx, pool, aco, price, a); err != nil {
			return decimal.Zero, err
		}
	}

	if existing == nil {
		pool.ACOsDynamicDataCount++
	}
	if err := store.Save(ctx, e.store, data); err != nil {
		return decimal.Zero, err
	}
	return data.OpenPositionOptionsValue, nil
}

func (e *Engine) lockValues(data *model.ACOPoolDynamicData, aco *model.ACOToken, price decimal.Decimal) {
	data.CollateralLocked = numeric.CollateralAmount(data.TokenAmount, aco.IsCall, aco.StrikePrice)
	data.CollateralLockedValue = data.CollateralLocked
	if aco.IsCall {
		data.CollateralLockedValue = price.Mul(data.CollateralLocked)
	}
}

// optionPrice quotes one option on the pool's strategy, marked up by the
// pool fee. A reverted quote prices the option at zero.
func (e *Engine) optionPrice(ctx context.Context, pool *model.ACOPool, aco *model.ACOToken, price decimal.Decimal, a assets) (decimal.Decimal, error) {
	q := chain.OptionQuote{
		UnderlyingPrice: numeric.ToRaw(price, a.strike),
		Underlying:      common.HexToAddress(aco.Underlying),
		StrikeAsset:     common.HexToAddress(aco.StrikeAsset),
		IsCall:          aco.IsCall,
		StrikePrice:     numeric.ToRaw(aco.StrikePrice, a.strike),
		ExpiryTime:      new(big.Int).SetUint64(aco.ExpiryTime),
		BaseVolatility:  numeric.ToRaw(pool.BaseVolatility, numeric.FeeDecimals),
	}
	raw, err := e.reader.StrategyOptionPrice(ctx, common.HexToAddress(pool.Strategy), q)
	if chain.Reverted(err) {
		slog.Debug("strategy quote reverted", "pool", pool.ID, "aco", aco.ID)
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	fee := decimal.NewFromInt(1).Add(pool.Fee)
	return numeric.ToDecimal(raw, a.strike).Mul(fee), nil
}
