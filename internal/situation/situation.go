// Package situation derives the assignable and unassignable split of an
// ACO token's collateralized amount.
package situation

import (
	"github.com/shopspring/decimal"

	"github.com/atmx/aco-indexer/internal/model"
	"github.com/atmx/aco-indexer/internal/numeric"
)

// ID returns the situation id of an ACO token, or of one of its accounts
// when account is non-empty.
func ID(aco, account string) string {
	if account == "" {
		return aco
	}
	return model.ID(aco, account)
}

// New returns a zeroed situation.
func New(id string) *model.ACOTokenSituation {
	return &model.ACOTokenSituation{ID: id}
}

// Assignable is the part of collateralized that exercisers can be assigned
// against: the collateralized tokens not covered by the holder's own balance.
// Nothing is assignable once expired.
func Assignable(balance, collateralized decimal.Decimal, expired bool) decimal.Decimal {
	if expired || balance.GreaterThanOrEqual(collateralized) {
		return decimal.Zero
	}
	return collateralized.Sub(balance)
}

// Unassignable is the part covered by the holder's balance. After expiry it
// is the whole balance.
func Unassignable(balance, collateralized decimal.Decimal, expired bool) decimal.Decimal {
	if expired || balance.LessThan(collateralized) {
		return balance
	}
	return collateralized
}

// Recompute refreshes every derived field of s from one snapshot of balance
// and s.CollateralizedTokens at the given block time.
func Recompute(s *model.ACOTokenSituation, aco *model.ACOToken, balance decimal.Decimal, timestamp uint64) {
	expired := aco.Expired(timestamp)
	collateralized := s.CollateralizedTokens

	assignable := Assignable(balance, collateralized, expired)
	unassignable := Unassignable(balance, collateralized, expired)

	s.AssignableTokens = assignable
	s.UnassignableTokens = unassignable
	s.CollateralAmount = numeric.CollateralAmount(collateralized, aco.IsCall, aco.StrikePrice)
	s.AssignableCollateral = numeric.CollateralAmount(assignable, aco.IsCall, aco.StrikePrice)
	s.UnassignableCollateral = numeric.CollateralAmount(unassignable, aco.IsCall, aco.StrikePrice)
}
