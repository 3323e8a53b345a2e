package indexer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/atmx/aco-indexer/internal/chain"
	"github.com/atmx/aco-indexer/internal/model"
	"github.com/atmx/aco-indexer/internal/numeric"
	"github.com/atmx/aco-indexer/internal/situation"
	"github.com/atmx/aco-indexer/internal/store"
)

// position is an account's holding in an ACO token with its situation.
type position struct {
	account   *model.ACOAccount
	situation *model.ACOTokenSituation
}

// recompute refreshes the situation from the account balance.
func (p position) recompute(aco *model.ACOToken, timestamp uint64) {
	situation.Recompute(p.situation, aco, p.account.Balance, timestamp)
}

// position loads or creates the holding of addr in aco. Creating one
// increments aco.AccountsCount; the caller saves aco.
func (x *Indexer) position(ctx context.Context, aco *model.ACOToken, addr common.Address) (position, error) {
	holder := chain.HexID(addr)
	id := model.ID(aco.ID, holder)

	acc, err := store.Load[model.ACOAccount](ctx, x.store, id)
	if err != nil {
		return position{}, err
	}
	if acc == nil {
		acc = &model.ACOAccount{
			ID:        id,
			Account:   holder,
			ACO:       aco.ID,
			Balance:   decimal.Zero,
			Situation: situation.ID(aco.ID, holder),
		}
		aco.AccountsCount++
	}

	sit, err := store.Load[model.ACOTokenSituation](ctx, x.store, acc.Situation)
	if err != nil {
		return position{}, err
	}
	if sit == nil {
		sit = situation.New(acc.Situation)
	}
	return position{account: acc, situation: sit}, nil
}

// optionState loads an ACO token and its contract-wide situation.
func (x *Indexer) optionState(ctx context.Context, addr common.Address) (*model.ACOToken, *model.ACOTokenSituation, error) {
	aco, err := store.MustLoad[model.ACOToken](ctx, x.store, chain.HexID(addr))
	if err != nil {
		return nil, nil, err
	}
	sit, err := store.MustLoad[model.ACOTokenSituation](ctx, x.store, aco.Situation)
	if err != nil {
		return nil, nil, err
	}
	return aco, sit, nil
}

// HandleCollateralDeposit records a mint: collateral locked by a writer.
// Balances move on the accompanying Transfer.
func (x *Indexer) HandleCollateralDeposit(ctx context.Context, ev CollateralDeposit) error {
	aco, total, err := x.optionState(ctx, ev.Address)
	if err != nil {
		return err
	}
	collateralDec, err := x.decimals(ctx, aco.Collateral)
	if err != nil {
		return err
	}
	collateral := numeric.ToDecimal(ev.Amount, collateralDec)
	tokens := numeric.TokenAmount(collateral, aco.IsCall, aco.StrikePrice)

	pos, err := x.position(ctx, aco, ev.Account)
	if err != nil {
		return err
	}
	ts := ev.Block.Timestamp
	pos.situation.CollateralizedTokens = pos.situation.CollateralizedTokens.Add(tokens)
	pos.recompute(aco, ts)
	total.CollateralizedTokens = total.CollateralizedTokens.Add(tokens)
	situation.Recompute(total, aco, aco.TotalSupply, ts)

	txID, err := x.registry.Transaction(ctx, ev.Event)
	if err != nil {
		return err
	}
	id := model.ID(aco.ID, pos.account.Account, ev.TxHash())
	mint, err := store.Load[model.Mint](ctx, x.store, id)
	if err != nil {
		return err
	}
	if mint == nil {
		mint = &model.Mint{ID: id, ACO: aco.ID, Account: pos.account.Account, Tx: txID}
		aco.MintsCount++
		aco.LastMintID = id
	}
	mint.CollateralAmount = mint.CollateralAmount.Add(collateral)
	mint.TokenAmount = mint.TokenAmount.Add(tokens)

	return store.SaveAll(ctx, x.store, pos.situation, pos.account, total, mint, aco)
}

// HandleCollateralWithdraw records collateral leaving an option. When the
// account exercised in the same transaction only the exercise fee accrues;
// otherwise it is a burn before expiry and a redeem after.
func (x *Indexer) HandleCollateralWithdraw(ctx context.Context, ev CollateralWithdraw) error {
	aco, total, err := x.optionState(ctx, ev.Address)
	if err != nil {
		return err
	}
	collateralDec, err := x.decimals(ctx, aco.Collateral)
	if err != nil {
		return err
	}
	pos, err := x.position(ctx, aco, ev.Account)
	if err != nil {
		return err
	}

	raw := addRaw(ev.Amount, ev.Fee)
	collateral := numeric.ToDecimal(raw, collateralDec)
	tokens := numeric.TokenAmount(collateral, aco.IsCall, aco.StrikePrice)

	id := model.ID(aco.ID, pos.account.Account, ev.TxHash())
	exercised, err := store.Exists(ctx, x.store, model.KindExercise, id)
	if err != nil {
		return err
	}

	entities := []store.Entity{pos.situation, pos.account, total}
	if exercised {
		fee := numeric.ToDecimal(ev.Fee, collateralDec)
		pos.situation.ExerciseFee = pos.situation.ExerciseFee.Add(fee)
		total.ExerciseFee = total.ExerciseFee.Add(fee)
	} else {
		pos.situation.CollateralizedTokens = pos.situation.CollateralizedTokens.Sub(tokens)
		txID, err := x.registry.Transaction(ctx, ev.Event)
		if err != nil {
			return err
		}
		if aco.Expired(ev.Block.Timestamp) {
			rec, err := x.redeem(ctx, aco, id, pos.account.Account, txID, collateral)
			if err != nil {
				return err
			}
			entities = append(entities, rec)
		} else {
			rec, err := x.burn(ctx, aco, id, pos.account.Account, txID, collateral, tokens)
			if err != nil {
				return err
			}
			entities = append(entities, rec)
		}
	}
	total.CollateralizedTokens = total.CollateralizedTokens.Sub(tokens)

	ts := ev.Block.Timestamp
	pos.recompute(aco, ts)
	situation.Recompute(total, aco, aco.TotalSupply, ts)

	return store.SaveAll(ctx, x.store, append(entities, aco)...)
}

func (x *Indexer) burn(ctx context.Context, aco *model.ACOToken, id, account, txID string, collateral, tokens decimal.Decimal) (*model.Burn, error) {
	b, err := store.Load[model.Burn](ctx, x.store, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		b = &model.Burn{ID: id, ACO: aco.ID, Account: account, Tx: txID}
		aco.BurnsCount++
		aco.LastBurnID = id
	}
	b.CollateralAmount = b.CollateralAmount.Add(collateral)
	b.TokenAmount = b.TokenAmount.Add(tokens)
	return b, nil
}

func (x *Indexer) redeem(ctx context.Context, aco *model.ACOToken, id, account, txID string, collateral decimal.Decimal) (*model.AccountRedeem, error) {
	r, err := store.Load[model.AccountRedeem](ctx, x.store, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		r = &model.AccountRedeem{ID: id, ACO: aco.ID, Account: account, Tx: txID}
		aco.AccountRedeemsCount++
	}
	r.CollateralAmount = r.CollateralAmount.Add(collateral)
	return r, nil
}

// HandleTransferCollateralOwnership moves collateralized tokens between two
// accounts. Contract-wide totals and balances are unchanged.
func (x *Indexer) HandleTransferCollateralOwnership(ctx context.Context, ev TransferCollateralOwnership) error {
	aco, err := store.MustLoad[model.ACOToken](ctx, x.store, ev.ID())
	if err != nil {
		return err
	}
	tokens := numeric.ToDecimal(ev.TokenCollateralizedAmount, aco.Decimals)
	ts := ev.Block.Timestamp

	from, err := x.position(ctx, aco, ev.From)
	if err != nil {
		return err
	}
	from.situation.CollateralizedTokens = from.situation.CollateralizedTokens.Sub(tokens)
	from.recompute(aco, ts)
	if err := store.SaveAll(ctx, x.store, from.situation, from.account, aco); err != nil {
		return err
	}

	to, err := x.position(ctx, aco, ev.To)
	if err != nil {
		return err
	}
	to.situation.CollateralizedTokens = to.situation.CollateralizedTokens.Add(tokens)
	to.recompute(aco, ts)
	return store.SaveAll(ctx, x.store, to.situation, to.account, aco)
}

// HandleAssigned records one writer assigned by an exercise. Assignments of
// one exerciser in a transaction aggregate into a single Exercise.
func (x *Indexer) HandleAssigned(ctx context.Context, ev Assigned) error {
	aco, total, err := x.optionState(ctx, ev.Address)
	if err != nil {
		return err
	}
	tokens := numeric.ToDecimal(ev.TokenAmount, aco.Decimals)

	paidToken := aco.Underlying
	if aco.IsCall {
		paidToken = aco.StrikeAsset
	}
	paidDec, err := x.decimals(ctx, paidToken)
	if err != nil {
		return err
	}
	paid := numeric.ToDecimal(ev.PaidAmount, paidDec)

	exerciser := chain.HexID(ev.To)
	writer := chain.HexID(ev.From)
	id := model.ID(aco.ID, exerciser, ev.TxHash())
	exercise, err := store.Load[model.Exercise](ctx, x.store, id)
	if err != nil {
		return err
	}
	if exercise == nil {
		txID, err := x.registry.Transaction(ctx, ev.Event)
		if err != nil {
			return err
		}
		exercise = &model.Exercise{ID: id, ACO: aco.ID, Account: exerciser, Tx: txID}
		aco.ExercisesCount++
		aco.LastExerciseID = id
	}
	exercise.PaidAmount = exercise.PaidAmount.Add(paid)
	exercise.TokenAmount = exercise.TokenAmount.Add(tokens)

	detailID := model.ID(aco.ID, writer, exerciser, ev.TxHash())
	detail, err := store.Load[model.ExercisedAccount](ctx, x.store, detailID)
	if err != nil {
		return err
	}
	if detail == nil {
		detail = &model.ExercisedAccount{ID: detailID, Exercise: id, Account: writer}
		exercise.ExercisedAccountsCount++
	}
	detail.PaymentReceived = detail.PaymentReceived.Add(paid)
	detail.ExercisedTokens = detail.ExercisedTokens.Add(tokens)

	pos, err := x.position(ctx, aco, ev.From)
	if err != nil {
		return err
	}
	pos.situation.ExercisedPayment = pos.situation.ExercisedPayment.Add(paid)
	pos.situation.ExercisedTokens = pos.situation.ExercisedTokens.Add(tokens)
	pos.situation.CollateralizedTokens = pos.situation.CollateralizedTokens.Sub(tokens)
	pos.recompute(aco, ev.Block.Timestamp)

	total.ExercisedPayment = total.ExercisedPayment.Add(paid)
	total.ExercisedTokens = total.ExercisedTokens.Add(tokens)

	return store.SaveAll(ctx, x.store, pos.situation, pos.account, detail, exercise, total, aco)
}

// HandleACOTransfer moves option token balances. A zero sender mints and a
// zero recipient burns, changing the total supply instead of a balance.
// Collateralized amounts never change here.
func (x *Indexer) HandleACOTransfer(ctx context.Context, ev Transfer) error {
	aco, total, err := x.optionState(ctx, ev.Address)
	if err != nil {
		return err
	}
	tokens := numeric.ToDecimal(ev.Value, aco.Decimals)
	if !tokens.IsPositive() {
		return nil
	}

	ts := ev.Block.Timestamp
	minted := ev.From == chain.ZeroAddress
	burned := ev.To == chain.ZeroAddress
	entities := []store.Entity{total}

	if minted {
		aco.TotalSupply = aco.TotalSupply.Add(tokens)
	}
	if burned {
		aco.TotalSupply = aco.TotalSupply.Sub(tokens)
	}
	situation.Recompute(total, aco, aco.TotalSupply, ts)

	if ev.From == ev.To {
		// A self transfer leaves balances and holder counts as they were.
		self, err := x.position(ctx, aco, ev.From)
		if err != nil {
			return err
		}
		self.recompute(aco, ts)
		entities = append(entities, self.situation, self.account)
	} else {
		if !minted {
			from, err := x.position(ctx, aco, ev.From)
			if err != nil {
				return err
			}
			from.account.Balance = from.account.Balance.Sub(tokens)
			if from.account.Balance.IsZero() {
				aco.HoldersCount--
			}
			from.recompute(aco, ts)
			entities = append(entities, from.situation, from.account)
		}
		if !burned {
			to, err := x.position(ctx, aco, ev.To)
			if err != nil {
				return err
			}
			if to.account.Balance.IsZero() {
				aco.HoldersCount++
			}
			to.account.Balance = to.account.Balance.Add(tokens)
			to.recompute(aco, ts)
			entities = append(entities, to.situation, to.account)
		}
	}

	if err := x.recordTransferSwap(ctx, ev, aco, tokens); err != nil {
		return err
	}
	return store.SaveAll(ctx, x.store, append(entities, aco)...)
}
