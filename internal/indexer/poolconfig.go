package indexer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/atmx/aco-indexer/internal/chain"
	"github.com/atmx/aco-indexer/internal/model"
	"github.com/atmx/aco-indexer/internal/numeric"
	"github.com/atmx/aco-indexer/internal/store"
)

// updatePool applies a configuration change to the emitting pool and
// persists it with any records apply returns. With revalue set the pool is
// valued again afterwards.
func (x *Indexer) updatePool(ctx context.Context, ev chain.Event, revalue bool, apply func(pool *model.ACOPool, txID string) ([]store.Entity, error)) error {
	pool, err := store.MustLoad[model.ACOPool](ctx, x.store, ev.ID())
	if err != nil {
		return err
	}
	txID, err := x.registry.Transaction(ctx, ev)
	if err != nil {
		return err
	}
	records, err := apply(pool, txID)
	if err != nil {
		return err
	}
	if err := store.SaveAll(ctx, x.store, append(records, pool)...); err != nil {
		return err
	}
	if !revalue {
		return nil
	}
	return x.valuation.Pool(ctx, ev, pool)
}

func historyID(ev chain.Event, pool *model.ACOPool) string {
	return model.ID(pool.ID, ev.TxHash(), logIndex(ev))
}

func strategyHistory(ev chain.Event, pool *model.ACOPool, txID string) *model.PoolStrategyHistory {
	h := &model.PoolStrategyHistory{ID: historyID(ev, pool), Pool: pool.ID, Strategy: pool.Strategy, Tx: txID}
	pool.StrategiesHistoryCount++
	pool.LastStrategyHistoryID = h.ID
	return h
}

func baseVolatilityHistory(ev chain.Event, pool *model.ACOPool, txID string) *model.PoolBaseVolatilityHistory {
	h := &model.PoolBaseVolatilityHistory{ID: historyID(ev, pool), Pool: pool.ID, BaseVolatility: pool.BaseVolatility, Tx: txID}
	pool.BaseVolatilitiesHistoryCount++
	pool.LastBaseVolatilityHistoryID = h.ID
	return h
}

func adminHistory(ev chain.Event, pool *model.ACOPool, txID string) *model.PoolAdminHistory {
	h := &model.PoolAdminHistory{ID: historyID(ev, pool), Pool: pool.ID, Admin: pool.PoolAdmin, Tx: txID}
	pool.PoolAdminsHistoryCount++
	pool.LastPoolAdminHistoryID = h.ID
	return h
}

func permissionHistory(ev chain.Event, pool *model.ACOPool, txID string) *model.PoolPermissionHistory {
	h := &model.PoolPermissionHistory{
		ID:                     historyID(ev, pool),
		Pool:                   pool.ID,
		TolerancePriceBelowMin: pool.TolerancePriceBelowMin,
		TolerancePriceBelowMax: pool.TolerancePriceBelowMax,
		TolerancePriceAboveMin: pool.TolerancePriceAboveMin,
		TolerancePriceAboveMax: pool.TolerancePriceAboveMax,
		MinExpiration:          pool.MinExpiration,
		MaxExpiration:          pool.MaxExpiration,
		Tx:                     txID,
	}
	pool.PermissionsHistoryCount++
	pool.LastPermissionHistoryID = h.ID
	return h
}

// HandleSetStrategy switches the pricing strategy.
func (x *Indexer) HandleSetStrategy(ctx context.Context, ev AddressChange) error {
	return x.updatePool(ctx, ev.Event, true, func(pool *model.ACOPool, txID string) ([]store.Entity, error) {
		pool.Strategy = chain.HexID(ev.New)
		return []store.Entity{strategyHistory(ev.Event, pool, txID)}, nil
	})
}

// HandleSetBaseVolatility changes the volatility quoted to the strategy.
func (x *Indexer) HandleSetBaseVolatility(ctx context.Context, ev ValueChange) error {
	return x.updatePool(ctx, ev.Event, true, func(pool *model.ACOPool, txID string) ([]store.Entity, error) {
		pool.BaseVolatility = numeric.Percentage(ev.New)
		return []store.Entity{baseVolatilityHistory(ev.Event, pool, txID)}, nil
	})
}

// HandleSetPoolAdmin changes the pool administrator.
func (x *Indexer) HandleSetPoolAdmin(ctx context.Context, ev AddressChange) error {
	return x.updatePool(ctx, ev.Event, false, func(pool *model.ACOPool, txID string) ([]store.Entity, error) {
		pool.PoolAdmin = chain.HexID(ev.New)
		return []store.Entity{adminHistory(ev.Event, pool, txID)}, nil
	})
}

func (x *Indexer) HandleSetFee(ctx context.Context, ev ValueChange) error {
	return x.updatePool(ctx, ev.Event, true, func(pool *model.ACOPool, _ string) ([]store.Entity, error) {
		pool.Fee = numeric.Percentage(ev.New)
		return nil, nil
	})
}

func (x *Indexer) HandleSetFeeDestination(ctx context.Context, ev AddressChange) error {
	return x.updatePool(ctx, ev.Event, false, func(pool *model.ACOPool, _ string) ([]store.Entity, error) {
		pool.FeeDestination = chain.HexID(ev.New)
		return nil, nil
	})
}

func (x *Indexer) HandleSetWithdrawOpenPositionPenalty(ctx context.Context, ev ValueChange) error {
	return x.updatePool(ctx, ev.Event, true, func(pool *model.ACOPool, _ string) ([]store.Entity, error) {
		pool.WithdrawOpenPositionPenalty = numeric.Percentage(ev.New)
		return nil, nil
	})
}

func (x *Indexer) HandleSetUnderlyingPriceAdjustPercentage(ctx context.Context, ev ValueChange) error {
	return x.updatePool(ctx, ev.Event, false, func(pool *model.ACOPool, _ string) ([]store.Entity, error) {
		pool.UnderlyingPriceAdjustPercentage = numeric.Percentage(ev.New)
		return nil, nil
	})
}

func (x *Indexer) HandleSetMaximumOpenACO(ctx context.Context, ev ValueChange) error {
	return x.updatePool(ctx, ev.Event, false, func(pool *model.ACOPool, _ string) ([]store.Entity, error) {
		pool.MaximumOpenACO = u64(ev.New)
		return nil, nil
	})
}

func (x *Indexer) HandleSetLendingPoolReferral(ctx context.Context, ev ValueChange) error {
	return x.updatePool(ctx, ev.Event, false, func(pool *model.ACOPool, _ string) ([]store.Entity, error) {
		pool.LendingPoolReferral = u64(ev.New)
		return nil, nil
	})
}

func (x *Indexer) HandleSetImplementation(ctx context.Context, ev AddressChange) error {
	return x.updatePool(ctx, ev.Event, false, func(pool *model.ACOPool, _ string) ([]store.Entity, error) {
		pool.Implementation = chain.HexID(ev.New)
		return nil, nil
	})
}

// HandleSetTolerancePriceAbove updates the above tolerance of a legacy pool
// and derives its bands again.
func (x *Indexer) HandleSetTolerancePriceAbove(ctx context.Context, ev ValueChange) error {
	return x.updatePool(ctx, ev.Event, false, func(pool *model.ACOPool, txID string) ([]store.Entity, error) {
		_, below := legacyTolerances(pool)
		setToleranceBands(pool, numeric.Percentage(ev.New), below)
		return []store.Entity{permissionHistory(ev.Event, pool, txID)}, nil
	})
}

// HandleSetTolerancePriceBelow updates the below tolerance of a legacy pool
// and derives its bands again.
func (x *Indexer) HandleSetTolerancePriceBelow(ctx context.Context, ev ValueChange) error {
	return x.updatePool(ctx, ev.Event, false, func(pool *model.ACOPool, txID string) ([]store.Entity, error) {
		above, _ := legacyTolerances(pool)
		setToleranceBands(pool, above, numeric.Percentage(ev.New))
		return []store.Entity{permissionHistory(ev.Event, pool, txID)}, nil
	})
}

func (x *Indexer) HandleSetMinExpiration(ctx context.Context, ev ValueChange) error {
	return x.updatePool(ctx, ev.Event, false, func(pool *model.ACOPool, txID string) ([]store.Entity, error) {
		pool.MinExpiration = u64(ev.New)
		return []store.Entity{permissionHistory(ev.Event, pool, txID)}, nil
	})
}

func (x *Indexer) HandleSetMaxExpiration(ctx context.Context, ev ValueChange) error {
	return x.updatePool(ctx, ev.Event, false, func(pool *model.ACOPool, txID string) ([]store.Entity, error) {
		pool.MaxExpiration = u64(ev.New)
		return []store.Entity{permissionHistory(ev.Event, pool, txID)}, nil
	})
}

// HandleSetACOPermissionConfig replaces the acceptance bands of a pool.
func (x *Indexer) HandleSetACOPermissionConfig(ctx context.Context, ev PermissionConfigChange) error {
	return x.updatePool(ctx, ev.Event, false, func(pool *model.ACOPool, txID string) ([]store.Entity, error) {
		applyPermissionConfig(pool, ev.New)
		return []store.Entity{permissionHistory(ev.Event, pool, txID)}, nil
	})
}

// HandleSetAssetConverter points the pool at a new asset converter and
// resolves its oracle.
func (x *Indexer) HandleSetAssetConverter(ctx context.Context, ev AddressChange) error {
	return x.updatePool(ctx, ev.Event, true, func(pool *model.ACOPool, _ string) ([]store.Entity, error) {
		pool.AssetConverter = chain.HexID(ev.New)
		return nil, x.resolveConverter(ctx, ev.Event, pool)
	})
}

// HandleSetProtocolConfig replaces the protocol settings of a pool,
// including its asset converter.
func (x *Indexer) HandleSetProtocolConfig(ctx context.Context, ev ProtocolConfigChange) error {
	return x.updatePool(ctx, ev.Event, true, func(pool *model.ACOPool, _ string) ([]store.Entity, error) {
		applyProtocolConfig(pool, ev.New)
		pool.LendingPoolReferral = u64(ev.New.LendingPoolReferral)
		return nil, x.resolveConverter(ctx, ev.Event, pool)
	})
}

func (x *Indexer) resolveConverter(ctx context.Context, ev chain.Event, pool *model.ACOPool) error {
	_, err := x.resolver.SetAssetConverter(ctx, ev,
		common.HexToAddress(pool.AssetConverter),
		common.HexToAddress(pool.Underlying),
		common.HexToAddress(pool.StrikeAsset))
	return err
}

// HandleSetValidACOCreator marks whether a creator's options are accepted.
func (x *Indexer) HandleSetValidACOCreator(ctx context.Context, ev CreatorPermission) error {
	return x.creatorPermission(ctx, ev, func(p *model.ACOCreatorPermission) {
		p.IsValid = model.TristateOf(ev.New)
	})
}

// HandleSetForbiddenACOCreator marks whether a creator's options are refused.
func (x *Indexer) HandleSetForbiddenACOCreator(ctx context.Context, ev CreatorPermission) error {
	return x.creatorPermission(ctx, ev, func(p *model.ACOCreatorPermission) {
		p.IsForbidden = model.TristateOf(ev.New)
	})
}

func (x *Indexer) creatorPermission(ctx context.Context, ev CreatorPermission, set func(*model.ACOCreatorPermission)) error {
	return x.updatePool(ctx, ev.Event, false, func(pool *model.ACOPool, txID string) ([]store.Entity, error) {
		creator := chain.HexID(ev.Creator)
		id := model.ID(pool.ID, creator)
		p, err := store.Load[model.ACOCreatorPermission](ctx, x.store, id)
		if err != nil {
			return nil, err
		}
		if p == nil {
			p = &model.ACOCreatorPermission{ID: id, Pool: pool.ID, Creator: creator}
			pool.ACOCreatorsPermissionCount++
		}
		set(p)
		p.Tx = txID
		return []store.Entity{p}, nil
	})
}
