package indexer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/atmx/aco-indexer/internal/chain"
	"github.com/atmx/aco-indexer/internal/model"
	"github.com/atmx/aco-indexer/internal/numeric"
	"github.com/atmx/aco-indexer/internal/store"
)

// HandleNewPool creates a pool from its on-chain configuration, adds it to
// the pool factory and registers it and its asset converter for events.
func (x *Indexer) HandleNewPool(ctx context.Context, ev NewPool) error {
	id := chain.HexID(ev.Pool)
	exists, err := store.Exists(ctx, x.store, model.KindACOPool, id)
	if err != nil || exists {
		return err
	}
	if err := x.addPool(ctx, ev.Event, id); err != nil {
		return err
	}
	txID, err := x.registry.Transaction(ctx, ev.Event)
	if err != nil {
		return err
	}

	underlying, err := x.resolver.Token(ctx, ev.Underlying)
	if err != nil {
		return err
	}
	strike, err := x.resolver.Token(ctx, ev.StrikeAsset)
	if err != nil {
		return err
	}
	meta, err := x.resolver.Metadata(ctx, ev.Pool)
	if err != nil {
		return err
	}

	pool := &model.ACOPool{
		ID:             id,
		Underlying:     underlying.ID,
		StrikeAsset:    strike.ID,
		Collateral:     strike.ID,
		Symbol:         meta.Symbol,
		Name:           meta.Name,
		Decimals:       meta.Decimals,
		IsCall:         ev.IsCall,
		Implementation: chain.HexID(ev.Implementation),
		Tx:             txID,
		TotalSupply:    decimal.Zero,
	}
	if ev.IsCall {
		pool.Collateral = underlying.ID
	}
	if err := x.readPoolSettings(ctx, ev.Pool, ev.Implementation, pool); err != nil {
		return err
	}

	history := []store.Entity{
		strategyHistory(ev.Event, pool, txID),
		baseVolatilityHistory(ev.Event, pool, txID),
		permissionHistory(ev.Event, pool, txID),
	}
	if pool.PoolAdmin != "" {
		history = append(history, adminHistory(ev.Event, pool, txID))
	}
	if err := store.SaveAll(ctx, x.store, append(history, pool)...); err != nil {
		return err
	}

	if _, err := x.registry.RegisterContract(ctx, ev.Pool, chain.TemplateACOPool, ev.Block.Number); err != nil {
		return err
	}
	converter := common.HexToAddress(pool.AssetConverter)
	_, err = x.resolver.SetAssetConverter(ctx, ev.Event, converter, ev.Underlying, ev.StrikeAsset)
	return err
}

// addPool appends a pool to the pool factory, creating the factory when
// the pool factory event arrives before any option event.
func (x *Indexer) addPool(ctx context.Context, ev chain.Event, poolID string) error {
	f, err := store.Load[model.ACOPoolFactory](ctx, x.store, x.factoryID)
	if err != nil {
		return err
	}
	if f == nil {
		f = &model.ACOPoolFactory{ID: x.factoryID}
		if _, err := x.registry.RegisterContract(ctx, x.network.ACOPoolFactory, chain.TemplateACOPoolFactory, ev.Block.Number); err != nil {
			return err
		}
	}
	f.Pools = append(f.Pools, poolID)
	return store.Save(ctx, x.store, f)
}

// readPoolSettings reads the configuration of a new pool. Legacy
// implementations expose individual getters; newer ones group them in
// protocolConfig and acoPermissionConfig. Reverted reads leave zero values.
func (x *Indexer) readPoolSettings(ctx context.Context, addr, impl common.Address, pool *model.ACOPool) error {
	gas, err := x.reader.PoolGasToken(ctx, addr)
	if gas, err = tolerate(gas, err, "chiToken"); err != nil {
		return err
	}
	strategy, err := x.reader.PoolStrategy(ctx, addr)
	if strategy, err = tolerate(strategy, err, "strategy"); err != nil {
		return err
	}
	vol, err := x.reader.PoolBaseVolatility(ctx, addr)
	if vol, err = tolerate(vol, err, "baseVolatility"); err != nil {
		return err
	}
	pool.GasToken = hexOrEmpty(gas)
	pool.Strategy = chain.HexID(strategy)
	pool.BaseVolatility = numeric.Percentage(vol)

	version := x.network.PoolVersion(impl)
	var protocol chain.PoolProtocolConfig
	if version != 0 {
		cfg, err := x.reader.PoolLegacyConfig(ctx, addr)
		if cfg, err = tolerate(cfg, err, "legacyConfig"); err != nil {
			return err
		}
		pool.AssetConverter = chain.HexID(cfg.AssetConverter)
		pool.FeeDestination = chain.HexID(cfg.FeeDestination)
		pool.MaximumOpenACO = u64(cfg.MaximumOpenACO)
		pool.MinExpiration = u64(cfg.MinExpiration)
		pool.MaxExpiration = u64(cfg.MaxExpiration)
		pool.WithdrawOpenPositionPenalty = numeric.Percentage(cfg.WithdrawOpenPositionPenalty)
		pool.UnderlyingPriceAdjustPercentage = numeric.Percentage(cfg.UnderlyingPriceAdjustPercentage)
		pool.Fee = numeric.Percentage(cfg.Fee)
		setToleranceBands(pool, numeric.Percentage(cfg.TolerancePriceAbove), numeric.Percentage(cfg.TolerancePriceBelow))
	} else {
		protocol, err = x.reader.PoolProtocolConfig(ctx, addr)
		if protocol, err = tolerate(protocol, err, "protocolConfig"); err != nil {
			return err
		}
		applyProtocolConfig(pool, protocol)
		perm, err := x.reader.PoolPermissionConfig(ctx, addr)
		if perm, err = tolerate(perm, err, "acoPermissionConfig"); err != nil {
			return err
		}
		applyPermissionConfig(pool, perm)
	}

	if version != 1 {
		lending, err := x.reader.PoolLendingPool(ctx, addr)
		if lending, err = tolerate(lending, err, "lendingPool"); err != nil {
			return err
		}
		pool.LendingPool = hexOrEmpty(lending)
		if version == 2 || version == 3 {
			ref, err := x.reader.PoolLendingPoolReferral(ctx, addr)
			if ref, err = tolerate(ref, err, "lendingPoolReferral"); err != nil {
				return err
			}
			pool.LendingPoolReferral = u64(ref)
		} else {
			pool.LendingPoolReferral = u64(protocol.LendingPoolReferral)
		}
	}

	if version == 3 || version == 0 {
		method := "poolAdmin"
		if version == 3 {
			method = "admin"
		}
		admin, err := x.reader.PoolAdmin(ctx, addr, version == 3)
		if ok, err := optional(err, method); err != nil {
			return err
		} else if ok {
			pool.PoolAdmin = chain.HexID(admin)
		}
	}
	return nil
}

func applyProtocolConfig(pool *model.ACOPool, cfg chain.PoolProtocolConfig) {
	pool.WithdrawOpenPositionPenalty = numeric.Percentage(cfg.WithdrawOpenPositionPenalty)
	pool.UnderlyingPriceAdjustPercentage = numeric.Percentage(cfg.UnderlyingPriceAdjustPercentage)
	pool.Fee = numeric.Percentage(cfg.Fee)
	pool.MaximumOpenACO = u64(cfg.MaximumOpenACO)
	pool.FeeDestination = chain.HexID(cfg.FeeDestination)
	pool.AssetConverter = chain.HexID(cfg.AssetConverter)
}

func applyPermissionConfig(pool *model.ACOPool, cfg chain.PoolPermissionConfig) {
	pool.TolerancePriceBelowMin = numeric.Percentage(cfg.TolerancePriceBelowMin)
	pool.TolerancePriceBelowMax = numeric.Percentage(cfg.TolerancePriceBelowMax)
	pool.TolerancePriceAboveMin = numeric.Percentage(cfg.TolerancePriceAboveMin)
	pool.TolerancePriceAboveMax = numeric.Percentage(cfg.TolerancePriceAboveMax)
	pool.MinExpiration = u64(cfg.MinExpiration)
	pool.MaxExpiration = u64(cfg.MaxExpiration)
}

// setToleranceBands maps the single above/below tolerances of a legacy pool
// onto the min/max bands of newer pools. Both set bound the price on each
// side; a lone value is a minimum distance on its side.
func setToleranceBands(pool *model.ACOPool, above, below decimal.Decimal) {
	pool.TolerancePriceAboveMin = decimal.Zero
	pool.TolerancePriceAboveMax = decimal.Zero
	pool.TolerancePriceBelowMin = decimal.Zero
	pool.TolerancePriceBelowMax = decimal.Zero
	switch {
	case above.IsZero() && below.IsZero():
	case above.IsPositive() && below.IsPositive():
		pool.TolerancePriceAboveMax = above
		pool.TolerancePriceBelowMax = below
	case above.IsPositive():
		pool.TolerancePriceAboveMin = above
	default:
		pool.TolerancePriceBelowMin = below
	}
}

// legacyTolerances recovers the single above/below values a legacy pool's
// bands were derived from.
func legacyTolerances(pool *model.ACOPool) (above, below decimal.Decimal) {
	above = pool.TolerancePriceAboveMax
	if above.IsZero() {
		above = pool.TolerancePriceAboveMin
	}
	below = pool.TolerancePriceBelowMax
	if below.IsZero() {
		below = pool.TolerancePriceBelowMin
	}
	return above, below
}
