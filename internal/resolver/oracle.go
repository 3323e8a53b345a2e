package resolver

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/atmx/aco-indexer/internal/chain"
	"github.com/atmx/aco-indexer/internal/model"
	"github.com/atmx/aco-indexer/internal/numeric"
	"github.com/atmx/aco-indexer/internal/store"
)

// PairID keys a PricePair.
func PairID(base, quote string) string {
	return model.ID(base, quote)
}

// SetAssetConverter records converter as an asset converter helper,
// registers it for events and resolves the oracle for base/quote.
func (r *Resolver) SetAssetConverter(ctx context.Context, ev chain.Event, converter, base, quote common.Address) (*model.AggregatorInterface, error) {
	if converter == chain.ZeroAddress {
		return nil, nil
	}
	id := chain.HexID(converter)
	helper, err := store.Load[model.AssetConverterHelper](ctx, r.store, id)
	if err != nil {
		return nil, err
	}
	if helper == nil {
		if err := store.Save(ctx, r.store, &model.AssetConverterHelper{ID: id}); err != nil {
			return nil, err
		}
	}
	if _, err := r.registry.RegisterContract(ctx, converter, chain.TemplateAssetConverterHelper, ev.Block.Number); err != nil {
		return nil, err
	}
	return r.ResolveAggregator(ctx, ev, converter, base, quote)
}

// ResolveAggregator looks up the price proxy of base/quote on converter
// and follows it to the aggregator. It returns nil when the converter has
// no proxy for the pair or a lookup reverts.
func (r *Resolver) ResolveAggregator(ctx context.Context, ev chain.Event, converter, base, quote common.Address) (*model.AggregatorInterface, error) {
	proxy, err := r.reader.ConverterAggregator(ctx, converter, base, quote)
	if chain.Reverted(err) {
		slog.Debug("converter lookup reverted", "converter", chain.HexID(converter),
			"base", chain.HexID(base), "quote", chain.HexID(quote))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if proxy == chain.ZeroAddress {
		return nil, nil
	}
	return r.SetAggregatorProxy(ctx, ev, proxy, base, quote)
}

// SetAggregatorProxy records proxy as the price source of base/quote and
// resolves its current aggregator.
func (r *Resolver) SetAggregatorProxy(ctx context.Context, ev chain.Event, proxy, base, quote common.Address) (*model.AggregatorInterface, error) {
	txID, err := r.registry.Transaction(ctx, ev)
	if err != nil {
		return nil, err
	}

	proxyID := chain.HexID(proxy)
	p, err := store.Load[model.AggregatorProxy](ctx, r.store, proxyID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = &model.AggregatorProxy{ID: proxyID}
	}
	p.BaseAsset = chain.HexID(base)
	p.QuoteAsset = chain.HexID(quote)
	p.Tx = txID

	pair := &model.PricePair{ID: PairID(p.BaseAsset, p.QuoteAsset), Proxy: proxyID}
	if err := store.SaveAll(ctx, r.store, p, pair); err != nil {
		return nil, err
	}
	if _, err := r.registry.RegisterContract(ctx, proxy, chain.TemplateAggregatorProxy, ev.Block.Number); err != nil {
		return nil, err
	}

	aggregator, err := r.reader.ProxyAggregator(ctx, proxy)
	if chain.Reverted(err) {
		slog.Debug("proxy aggregator reverted", "proxy", proxyID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if aggregator == chain.ZeroAddress {
		return nil, nil
	}
	return r.SetAggregator(ctx, ev, proxy, aggregator)
}

// SetAggregator points proxy at aggregator and refreshes the aggregator's
// cached answer. It returns nil when the proxy is unknown or the answer
// cannot be read.
func (r *Resolver) SetAggregator(ctx context.Context, ev chain.Event, proxy, aggregator common.Address) (*model.AggregatorInterface, error) {
	proxyID := chain.HexID(proxy)
	p, err := store.Load[model.AggregatorProxy](ctx, r.store, proxyID)
	if err != nil || p == nil {
		return nil, err
	}

	txID, err := r.registry.Transaction(ctx, ev)
	if err != nil {
		return nil, err
	}

	decimals := DefaultDecimals
	d, err := r.reader.AggregatorDecimals(ctx, aggregator)
	switch {
	case err == nil:
		decimals = int32(d)
	case !chain.Reverted(err):
		return nil, err
	}

	answer, err := r.reader.AggregatorLatestAnswer(ctx, aggregator)
	if chain.Reverted(err) {
		slog.Debug("latest answer reverted", "aggregator", chain.HexID(aggregator))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var updatedAt uint64
	ts, err := r.reader.AggregatorLatestTimestamp(ctx, aggregator)
	switch {
	case err == nil:
		updatedAt = ts.Uint64()
	case !chain.Reverted(err):
		return nil, err
	}

	agg := &model.AggregatorInterface{
		ID:              chain.HexID(aggregator),
		Proxy:           proxyID,
		Decimals:        decimals,
		Price:           numeric.ToDecimal(answer, decimals),
		OracleUpdatedAt: updatedAt,
		Tx:              txID,
	}
	p.Aggregator = agg.ID
	if err := store.SaveAll(ctx, r.store, agg, p); err != nil {
		return nil, err
	}
	if _, err := r.registry.RegisterContract(ctx, aggregator, chain.TemplateAggregatorInterface, ev.Block.Number); err != nil {
		return nil, err
	}
	return agg, nil
}

// UpdateAnswer applies a new answer from the aggregator that emitted ev.
// It returns nil for aggregators that were never resolved.
func (r *Resolver) UpdateAnswer(ctx context.Context, ev chain.Event, current, updatedAt *big.Int) (*model.AggregatorInterface, error) {
	agg, err := store.Load[model.AggregatorInterface](ctx, r.store, ev.ID())
	if err != nil || agg == nil {
		return nil, err
	}
	txID, err := r.registry.Transaction(ctx, ev)
	if err != nil {
		return nil, err
	}
	agg.Price = numeric.ToDecimal(current, agg.Decimals)
	if updatedAt != nil {
		agg.OracleUpdatedAt = updatedAt.Uint64()
	}
	agg.Tx = txID
	if err := store.Save(ctx, r.store, agg); err != nil {
		return nil, err
	}
	return agg, nil
}

// Price returns the aggregator currently serving base/quote, or nil.
func (r *Resolver) Price(ctx context.Context, base, quote string) (*model.AggregatorInterface, error) {
	pair, err := store.Load[model.PricePair](ctx, r.store, PairID(base, quote))
	if err != nil || pair == nil {
		return nil, err
	}
	proxy, err := store.Load[model.AggregatorProxy](ctx, r.store, pair.Proxy)
	if err != nil || proxy == nil || proxy.Aggregator == "" {
		return nil, err
	}
	return store.Load[model.AggregatorInterface](ctx, r.store, proxy.Aggregator)
}

// Pair returns the base and quote assets served by agg's proxy.
func (r *Resolver) Pair(ctx context.Context, agg *model.AggregatorInterface) (base, quote string, err error) {
	proxy, err := store.MustLoad[model.AggregatorProxy](ctx, r.store, agg.Proxy)
	if err != nil {
		return "", "", err
	}
	return proxy.BaseAsset, proxy.QuoteAsset, nil
}
