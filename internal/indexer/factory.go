package indexer

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/atmx/aco-indexer/internal/chain"
	"github.com/atmx/aco-indexer/internal/model"
	"github.com/atmx/aco-indexer/internal/numeric"
	"github.com/atmx/aco-indexer/internal/situation"
	"github.com/atmx/aco-indexer/internal/store"
)

// HandleNewACO creates an ACO token, its contract-wide situation and
// registers it for events. Tokens created at or after the pool start block
// join the active option set.
func (x *Indexer) HandleNewACO(ctx context.Context, ev NewACO) error {
	id := chain.HexID(ev.ACOToken)
	exists, err := store.Exists(ctx, x.store, model.KindACOToken, id)
	if err != nil || exists {
		return err
	}

	if err := x.ensurePoolFactory(ctx, ev.Event); err != nil {
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
	meta, err := x.resolver.Metadata(ctx, ev.ACOToken)
	if err != nil {
		return err
	}

	fee, err := x.reader.OptionFee(ctx, ev.ACOToken)
	if fee, err = tolerate(fee, err, "acoFee"); err != nil {
		return err
	}
	aco := &model.ACOToken{
		ID:             id,
		Underlying:     underlying.ID,
		StrikeAsset:    strike.ID,
		Collateral:     strike.ID,
		Symbol:         meta.Symbol,
		Name:           meta.Name,
		Decimals:       meta.Decimals,
		IsCall:         ev.IsCall,
		StrikePrice:    numeric.ToDecimal(ev.StrikePrice, strike.Decimals),
		ExpiryTime:     u64(ev.ExpiryTime),
		TotalSupply:    decimal.Zero,
		Fee:            numeric.Percentage(fee),
		Implementation: chain.HexID(ev.Implementation),
		Tx:             txID,
		Situation:      situation.ID(id, ""),
	}
	if ev.IsCall {
		aco.Collateral = underlying.ID
	}
	if ev.Creator != nil {
		aco.Creator = chain.HexID(*ev.Creator)
	}

	dest, err := x.reader.OptionFeeDestination(ctx, ev.ACOToken)
	if ok, err := optional(err, "feeDestination"); err != nil {
		return err
	} else if ok {
		aco.FeeDestination = chain.HexID(dest)
	}
	maxAccounts, err := x.reader.OptionMaxExercisedAccounts(ctx, ev.ACOToken)
	if ok, err := optional(err, "maxExercisedAccounts"); err != nil {
		return err
	} else if ok && maxAccounts.IsUint64() {
		n := maxAccounts.Uint64()
		aco.MaxExercisedAccounts = &n
	}

	if err := store.SaveAll(ctx, x.store, situation.New(aco.Situation), aco); err != nil {
		return err
	}
	if _, err := x.registry.RegisterContract(ctx, ev.ACOToken, chain.TemplateACOToken, ev.Block.Number); err != nil {
		return err
	}
	if ev.Block.Number >= x.network.PoolStartBlock {
		if err := x.active.Add(ctx, id); err != nil {
			return fmt.Errorf("activate %s: %w", id, err)
		}
	}
	return nil
}

// ensurePoolFactory creates the pool factory entity and registers it on the
// first option event at or after the pool start block.
func (x *Indexer) ensurePoolFactory(ctx context.Context, ev chain.Event) error {
	if ev.Block.Number < x.network.PoolStartBlock {
		return nil
	}
	exists, err := store.Exists(ctx, x.store, model.KindACOPoolFactory, x.factoryID)
	if err != nil || exists {
		return err
	}
	if err := store.Save(ctx, x.store, &model.ACOPoolFactory{ID: x.factoryID}); err != nil {
		return err
	}
	_, err = x.registry.RegisterContract(ctx, x.network.ACOPoolFactory, chain.TemplateACOPoolFactory, ev.Block.Number)
	return err
}
