// Package resolver resolves token metadata and price oracles, degrading
// to defaults when contract reads revert.
package resolver

import (
	"context"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/atmx/aco-indexer/internal/chain"
	"github.com/atmx/aco-indexer/internal/config"
	"github.com/atmx/aco-indexer/internal/model"
	"github.com/atmx/aco-indexer/internal/registry"
	"github.com/atmx/aco-indexer/internal/store"
)

const (
	// UnknownMetadata replaces a symbol or name whose read reverted.
	UnknownMetadata = "unknown"

	// DefaultDecimals is used when the decimals read reverts.
	DefaultDecimals int32 = 18
)

// Resolver resolves tokens and oracles.
type Resolver struct {
	store    store.Store
	reader   chain.Reader
	registry *registry.Registry
	network  config.Network
}

// New creates a Resolver.
func New(s store.Store, reader chain.Reader, reg *registry.Registry, network config.Network) *Resolver {
	return &Resolver{store: s, reader: reader, registry: reg, network: network}
}

// Metadata is ERC20 symbol, name and decimals.
type Metadata struct {
	Symbol   string
	Name     string
	Decimals int32
}

func (r *Resolver) wellKnown(addr common.Address) (Metadata, bool) {
	switch addr {
	case chain.ZeroAddress:
		return Metadata{"ETH", "Ethereum", 18}, true
	case r.network.WBTC:
		return Metadata{"WBTC", "Wrapped BTC", 8}, true
	case r.network.USDC:
		return Metadata{"USDC", "USD Coin", 6}, true
	case r.network.AUC:
		return Metadata{"AUC", "Auctus Token", 18}, true
	}
	return Metadata{}, false
}

// Metadata reads symbol, name and decimals of addr without caching.
// Reverted reads fall back to UnknownMetadata and DefaultDecimals.
func (r *Resolver) Metadata(ctx context.Context, addr common.Address) (Metadata, error) {
	if m, ok := r.wellKnown(addr); ok {
		return m, nil
	}

	m := Metadata{Symbol: UnknownMetadata, Name: UnknownMetadata, Decimals: DefaultDecimals}

	symbol, err := r.reader.TokenSymbol(ctx, addr)
	switch {
	case err == nil:
		m.Symbol = symbol
	case !chain.Reverted(err):
		return m, err
	}

	name, err := r.reader.TokenName(ctx, addr)
	switch {
	case err == nil:
		m.Name = name
	case !chain.Reverted(err):
		return m, err
	}

	decimals, err := r.reader.TokenDecimals(ctx, addr)
	switch {
	case err == nil:
		m.Decimals = int32(decimals)
	case !chain.Reverted(err):
		return m, err
	default:
		slog.Warn("decimals reverted, using default", "token", chain.HexID(addr), "decimals", DefaultDecimals)
	}

	return m, nil
}

// Token returns the Token for addr, resolving and persisting it on first
// reference. A stored Token is never re-resolved.
func (r *Resolver) Token(ctx context.Context, addr common.Address) (*model.Token, error) {
	id := chain.HexID(addr)

	tok, err := store.Load[model.Token](ctx, r.store, id)
	if err != nil || tok != nil {
		return tok, err
	}

	m, err := r.Metadata(ctx, addr)
	if err != nil {
		return nil, err
	}
	tok = &model.Token{ID: id, Symbol: m.Symbol, Name: m.Name, Decimals: m.Decimals}
	if err := store.Save(ctx, r.store, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// TokenByID is Token for an entity id.
func (r *Resolver) TokenByID(ctx context.Context, id string) (*model.Token, error) {
	return r.Token(ctx, common.HexToAddress(id))
}
