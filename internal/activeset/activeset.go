// Package activeset maintains the global list of option tokens that pool
// valuation considers. The list lives on the pool factory entity and is
// pruned lazily whenever a valuation pass observes an expired entry.
package activeset

import (
	"context"
	"fmt"

	"github.com/atmx/aco-indexer/internal/metrics"
	"github.com/atmx/aco-indexer/internal/model"
	"github.com/atmx/aco-indexer/internal/store"
)

// Prune removes the entries at the expired indexes by swapping each with
// the last entry and truncating. Order is not preserved.
func Prune(ids []string, expired []int) []string {
	for k := len(expired) - 1; k >= 0; k-- {
		last := len(ids) - 1
		ids[expired[k]] = ids[last]
		ids = ids[:last]
	}
	return ids
}

// Set reads and maintains the active list of one pool factory.
type Set struct {
	store   store.Store
	factory string
}

func New(s store.Store, factoryID string) *Set {
	return &Set{store: s, factory: factoryID}
}

// Add appends an option to the active list. The factory must exist.
func (a *Set) Add(ctx context.Context, acoID string) error {
	f, err := store.MustLoad[model.ACOPoolFactory](ctx, a.store, a.factory)
	if err != nil {
		return err
	}
	f.ActiveACOs = append(f.ActiveACOs, acoID)
	if err := store.Save(ctx, a.store, f); err != nil {
		return err
	}
	metrics.ActiveOptions.Set(float64(len(f.ActiveACOs)))
	return nil
}

// Scan loads every listed option, including the ones found expired at
// timestamp, and persists the list without the expired ones. A missing
// factory yields an empty scan.
func (a *Set) Scan(ctx context.Context, timestamp uint64) ([]*model.ACOToken, error) {
	f, err := store.Load[model.ACOPoolFactory](ctx, a.store, a.factory)
	if err != nil || f == nil {
		return nil, err
	}

	acos := make([]*model.ACOToken, 0, len(f.ActiveACOs))
	var expired []int
	for i, id := range f.ActiveACOs {
		aco, err := store.MustLoad[model.ACOToken](ctx, a.store, id)
		if err != nil {
			return nil, fmt.Errorf("active option %s: %w", id, err)
		}
		if aco.Expired(timestamp) {
			expired = append(expired, i)
		}
		acos = append(acos, aco)
	}

	if len(expired) > 0 {
		f.ActiveACOs = Prune(f.ActiveACOs, expired)
		if err := store.Save(ctx, a.store, f); err != nil {
			return nil, err
		}
	}
	metrics.ActiveOptions.Set(float64(len(f.ActiveACOs)))
	return acos, nil
}

// Matching filters acos to the ones written on the given asset pair and
// option type.
func Matching(acos []*model.ACOToken, underlying, strikeAsset string, isCall bool) []*model.ACOToken {
	var out []*model.ACOToken
	for _, aco := range acos {
		if aco.Underlying == underlying && aco.StrikeAsset == strikeAsset && aco.IsCall == isCall {
			out = append(out, aco)
		}
	}
	return out
}
