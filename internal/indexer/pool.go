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

// poolAccount loads or creates the share holding of addr in pool. Creating
// one increments pool.AccountsCount; the caller saves pool.
func (x *Indexer) poolAccount(ctx context.Context, pool *model.ACOPool, addr common.Address) (*model.PoolAccount, error) {
	holder := chain.HexID(addr)
	id := model.ID(pool.ID, holder)
	acc, err := store.Load[model.PoolAccount](ctx, x.store, id)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		acc = &model.PoolAccount{ID: id, Pool: pool.ID, Account: holder, Balance: decimal.Zero}
		pool.AccountsCount++
	}
	return acc, nil
}

// revalue saves the pool with the given records and runs a valuation pass.
func (x *Indexer) revalue(ctx context.Context, ev chain.Event, pool *model.ACOPool, records ...store.Entity) error {
	if err := store.SaveAll(ctx, x.store, append(records, pool)...); err != nil {
		return err
	}
	return x.valuation.Pool(ctx, ev, pool)
}

// HandlePoolTransfer moves pool shares. Mints and burns change the total
// supply and trigger a valuation pass; account balances and holder counts
// follow transfers between accounts.
func (x *Indexer) HandlePoolTransfer(ctx context.Context, ev Transfer) error {
	pool, err := store.MustLoad[model.ACOPool](ctx, x.store, ev.ID())
	if err != nil {
		return err
	}
	shares := numeric.ToDecimal(ev.Value, pool.Decimals)
	if !shares.IsPositive() {
		return nil
	}

	minted := ev.From == chain.ZeroAddress
	burned := ev.To == chain.ZeroAddress
	switch {
	case minted && burned:
		return nil
	case minted:
		pool.TotalSupply = pool.TotalSupply.Add(shares)
		return x.revalue(ctx, ev.Event, pool)
	case burned:
		pool.TotalSupply = pool.TotalSupply.Sub(shares)
		return x.revalue(ctx, ev.Event, pool)
	case ev.From == ev.To:
		return nil
	}

	from, err := x.poolAccount(ctx, pool, ev.From)
	if err != nil {
		return err
	}
	to, err := x.poolAccount(ctx, pool, ev.To)
	if err != nil {
		return err
	}
	from.Balance = from.Balance.Sub(shares)
	if from.Balance.IsZero() {
		pool.HoldersCount--
	}
	if to.Balance.IsZero() {
		pool.HoldersCount++
	}
	to.Balance = to.Balance.Add(shares)
	return store.SaveAll(ctx, x.store, from, to, pool)
}

// HandleDeposit records collateral entering a pool. The share mint arrives
// as a separate Transfer.
func (x *Indexer) HandleDeposit(ctx context.Context, ev Deposit) error {
	pool, err := store.MustLoad[model.ACOPool](ctx, x.store, ev.ID())
	if err != nil {
		return err
	}
	collateralDec, err := x.decimals(ctx, pool.Collateral)
	if err != nil {
		return err
	}
	acc, err := x.poolAccount(ctx, pool, ev.Account)
	if err != nil {
		return err
	}
	shares := numeric.ToDecimal(ev.Shares, pool.Decimals)
	if acc.Balance.IsZero() && shares.IsPositive() {
		pool.HoldersCount++
	}
	acc.Balance = acc.Balance.Add(shares)

	txID, err := x.registry.LogTransaction(ctx, ev.Event)
	if err != nil {
		return err
	}
	dep := &model.Deposit{
		ID:               model.ID(pool.ID, acc.Account, ev.TxHash(), logIndex(ev.Event)),
		Pool:             pool.ID,
		Account:          acc.Account,
		Shares:           shares,
		CollateralAmount: numeric.ToDecimal(ev.CollateralAmount, collateralDec),
		Tx:               txID,
	}
	pool.DepositsCount++
	pool.LastDepositID = dep.ID
	return x.revalue(ctx, ev.Event, pool, acc, dep)
}

// HandleWithdraw records shares redeemed for pool assets and the open
// options handed out with them.
func (x *Indexer) HandleWithdraw(ctx context.Context, ev Withdraw) error {
	pool, err := store.MustLoad[model.ACOPool](ctx, x.store, ev.ID())
	if err != nil {
		return err
	}
	underlyingDec, err := x.decimals(ctx, pool.Underlying)
	if err != nil {
		return err
	}
	strikeDec, err := x.decimals(ctx, pool.StrikeAsset)
	if err != nil {
		return err
	}
	acc, err := x.poolAccount(ctx, pool, ev.Account)
	if err != nil {
		return err
	}
	shares := numeric.ToDecimal(ev.Shares, pool.Decimals)
	hadShares := acc.Balance.IsPositive()
	acc.Balance = acc.Balance.Sub(shares)
	if hadShares && !acc.Balance.IsPositive() {
		pool.HoldersCount--
	}

	txID, err := x.registry.LogTransaction(ctx, ev.Event)
	if err != nil {
		return err
	}
	w := &model.Withdrawal{
		ID:                   model.ID(pool.ID, acc.Account, ev.TxHash(), logIndex(ev.Event)),
		Pool:                 pool.ID,
		Account:              acc.Account,
		Shares:               shares,
		NoLocked:             ev.NoLocked,
		UnderlyingWithdrawn:  numeric.ToDecimal(ev.UnderlyingWithdrawn, underlyingDec),
		StrikeAssetWithdrawn: numeric.ToDecimal(ev.StrikeAssetWithdrawn, strikeDec),
		OpenACOsCount:        int64(len(ev.ACOs)),
		Tx:                   txID,
	}
	records := []store.Entity{acc, w}
	for i, addr := range ev.ACOs {
		aco, err := store.MustLoad[model.ACOToken](ctx, x.store, chain.HexID(addr))
		if err != nil {
			return err
		}
		amount := decimal.Zero
		if i < len(ev.ACOsAmount) {
			amount = numeric.ToDecimal(ev.ACOsAmount[i], aco.Decimals)
		}
		records = append(records, &model.ACOAmount{
			ID:         model.ID(w.ID, aco.ID),
			Withdrawal: w.ID,
			ACO:        aco.ID,
			Amount:     amount,
		})
	}
	pool.WithdrawalsCount++
	pool.LastWithdrawalID = w.ID
	return x.revalue(ctx, ev.Event, pool, records...)
}

// acoOnPool loads or creates the aggregate of pool's activity in aco. A new
// one opens the option on the pool.
func (x *Indexer) acoOnPool(ctx context.Context, pool *model.ACOPool, acoID string) (*model.ACOOnPool, error) {
	id := model.ID(pool.ID, acoID)
	p, err := store.Load[model.ACOOnPool](ctx, x.store, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = &model.ACOOnPool{ID: id, Pool: pool.ID, ACO: acoID, IsOpen: true}
		pool.ACOsCount++
		pool.OpenACOsCount++
	}
	return p, nil
}

// HandlePoolSwap records options sold by a pool to an account.
func (x *Indexer) HandlePoolSwap(ctx context.Context, ev PoolSwap) error {
	pool, err := store.MustLoad[model.ACOPool](ctx, x.store, ev.ID())
	if err != nil {
		return err
	}
	aco, err := store.MustLoad[model.ACOToken](ctx, x.store, chain.HexID(ev.ACOToken))
	if err != nil {
		return err
	}
	strikeDec, err := x.decimals(ctx, aco.StrikeAsset)
	if err != nil {
		return err
	}

	tokens := numeric.ToDecimal(ev.TokenAmount, aco.Decimals)
	price := numeric.ToDecimal(ev.Price, strikeDec)
	account := chain.HexID(ev.Account)

	swap := &model.ACOSwap{
		ID:            model.ID(aco.ID, pool.ID, account, ev.TxHash(), logIndex(ev.Event)),
		ACO:           aco.ID,
		Seller:        pool.ID,
		Buyer:         account,
		Taker:         account,
		Type:          model.SwapTypePool,
		PaymentToken:  aco.StrikeAsset,
		PaymentAmount: price,
		ACOAmount:     tokens,
	}
	created, err := x.saveSwap(ctx, ev.Event, aco, swap)
	if err != nil || !created {
		return err
	}

	onPool, err := x.acoOnPool(ctx, pool, aco.ID)
	if err != nil {
		return err
	}
	onPool.ACOAmount = onPool.ACOAmount.Add(tokens)
	onPool.ValueSold = onPool.ValueSold.Add(price)
	onPool.CollateralLocked = onPool.CollateralLocked.Add(numeric.CollateralAmount(tokens, aco.IsCall, aco.StrikePrice))
	onPool.SwapsCount++

	pool.SwapsCount++
	pool.LastSwapID = swap.ID
	if err := store.Save(ctx, x.store, aco); err != nil {
		return err
	}
	return x.revalue(ctx, ev.Event, pool, onPool)
}

// HandleACORedeem records a pool redeeming an expired option, which closes
// it on the pool.
func (x *Indexer) HandleACORedeem(ctx context.Context, ev ACORedeem) error {
	pool, err := store.MustLoad[model.ACOPool](ctx, x.store, ev.ID())
	if err != nil {
		return err
	}
	aco, err := store.MustLoad[model.ACOToken](ctx, x.store, chain.HexID(ev.ACOToken))
	if err != nil {
		return err
	}
	strikeDec, err := x.decimals(ctx, pool.StrikeAsset)
	if err != nil {
		return err
	}
	collateralDec, err := x.decimals(ctx, pool.Collateral)
	if err != nil {
		return err
	}
	txID, err := x.registry.LogTransaction(ctx, ev.Event)
	if err != nil {
		return err
	}

	redeem := &model.ACORedeem{
		ID:                 model.ID(pool.ID, aco.ID, ev.TxHash(), logIndex(ev.Event)),
		Pool:               pool.ID,
		ACO:                aco.ID,
		ValueSold:          numeric.ToDecimal(ev.ValueSold, strikeDec),
		CollateralLocked:   numeric.ToDecimal(ev.CollateralLocked, collateralDec),
		CollateralRedeemed: numeric.ToDecimal(ev.CollateralRedeemed, collateralDec),
		Tx:                 txID,
	}
	onPool, err := x.acoOnPool(ctx, pool, aco.ID)
	if err != nil {
		return err
	}
	onPool.CollateralRedeemed = onPool.CollateralRedeemed.Add(redeem.CollateralRedeemed)
	if onPool.IsOpen {
		onPool.IsOpen = false
		pool.OpenACOsCount--
	}
	pool.ACORedeemsCount++
	pool.LastACORedeemID = redeem.ID
	return x.revalue(ctx, ev.Event, pool, onPool, redeem)
}

// HandleRestoreCollateral records a pool swapping its other asset back to
// collateral.
func (x *Indexer) HandleRestoreCollateral(ctx context.Context, ev RestoreCollateral) error {
	pool, err := store.MustLoad[model.ACOPool](ctx, x.store, ev.ID())
	if err != nil {
		return err
	}
	other := pool.Underlying
	if pool.IsCall {
		other = pool.StrikeAsset
	}
	otherDec, err := x.decimals(ctx, other)
	if err != nil {
		return err
	}
	collateralDec, err := x.decimals(ctx, pool.Collateral)
	if err != nil {
		return err
	}
	txID, err := x.registry.LogTransaction(ctx, ev.Event)
	if err != nil {
		return err
	}
	restore := &model.CollateralRestore{
		ID:                 model.ID(pool.ID, ev.TxHash(), logIndex(ev.Event)),
		Pool:               pool.ID,
		AmountOut:          numeric.ToDecimal(ev.AmountOut, otherDec),
		CollateralRestored: numeric.ToDecimal(ev.CollateralRestored, collateralDec),
		Tx:                 txID,
	}
	pool.CollateralRestoresCount++
	pool.LastCollateralRestoreID = restore.ID
	return x.revalue(ctx, ev.Event, pool, restore)
}
