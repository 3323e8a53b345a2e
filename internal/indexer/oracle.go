package indexer

import (
	"context"

	"github.com/atmx/aco-indexer/internal/chain"
	"github.com/atmx/aco-indexer/internal/model"
)

// HandleSetAggregator follows an asset converter to the new proxy of a pair
// and revalues the pools priced by it.
func (x *Indexer) HandleSetAggregator(ctx context.Context, ev SetAggregator) error {
	agg, err := x.resolver.SetAggregatorProxy(ctx, ev.Event, ev.NewAggregator, ev.BaseAsset, ev.QuoteAsset)
	if err != nil {
		return err
	}
	return x.repriced(ctx, ev.Event, agg)
}

// HandleConfirmAggregator follows a proxy switching to a new aggregator.
func (x *Indexer) HandleConfirmAggregator(ctx context.Context, ev ConfirmAggregator) error {
	agg, err := x.resolver.SetAggregator(ctx, ev.Event, ev.Address, ev.Aggregator)
	if err != nil {
		return err
	}
	return x.repriced(ctx, ev.Event, agg)
}

// HandleAnswerUpdated stores a new aggregator answer. Answers of
// aggregators no pool resolved are ignored.
func (x *Indexer) HandleAnswerUpdated(ctx context.Context, ev AnswerUpdated) error {
	agg, err := x.resolver.UpdateAnswer(ctx, ev.Event, ev.Current, ev.UpdatedAt)
	if err != nil {
		return err
	}
	return x.repriced(ctx, ev.Event, agg)
}

// repriced revalues the pools priced by agg. A nil aggregator prices none.
func (x *Indexer) repriced(ctx context.Context, ev chain.Event, agg *model.AggregatorInterface) error {
	if agg == nil {
		return nil
	}
	return x.valuation.Aggregator(ctx, ev, agg)
}
