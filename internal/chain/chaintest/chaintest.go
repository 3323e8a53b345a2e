// Package chaintest provides in-memory fakes of the chain interfaces.
// A read with no configured answer behaves like a reverted call.
package chaintest

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/atmx/aco-indexer/internal/chain"
)

// Pair keys reads that take two addresses.
type Pair [2]common.Address

// Triple keys reads that take three addresses.
type Triple [3]common.Address

// Reader is a configurable chain.Reader.
type Reader struct {
	Symbols  map[common.Address]string
	Names    map[common.Address]string
	Decimals map[common.Address]uint8

	OptionFees           map[common.Address]*big.Int
	FeeDestinations      map[common.Address]common.Address
	MaxExercisedAccounts map[common.Address]*big.Int
	Collateralized       map[Pair]*big.Int // {aco, account}

	GasTokens         map[common.Address]common.Address
	Strategies        map[common.Address]common.Address
	BaseVolatilities  map[common.Address]*big.Int
	LegacyConfigs     map[common.Address]chain.PoolLegacyConfig
	ProtocolConfigs   map[common.Address]chain.PoolProtocolConfig
	PermissionConfigs map[common.Address]chain.PoolPermissionConfig
	LendingPools      map[common.Address]common.Address
	Referrals         map[common.Address]*big.Int
	Admins            map[common.Address]common.Address // admin()
	PoolAdmins        map[common.Address]common.Address // poolAdmin()
	GeneralData       map[common.Address]chain.PoolGeneralData
	CanSwap           map[Pair]bool // {pool, aco}

	OptionPrices map[common.Address]*big.Int // by strategy
	Quotes       []chain.OptionQuote

	ConverterProxies map[Triple]common.Address // {converter, base, quote}
	ProxyTargets     map[common.Address]common.Address
	AggDecimals      map[common.Address]uint8
	Answers          map[common.Address]*big.Int
	Timestamps       map[common.Address]*big.Int

	mu       sync.Mutex
	calls    []string
	failures map[string]error
}

var _ chain.Reader = (*Reader)(nil)

// NewReader returns a Reader with every read reverting.
func NewReader() *Reader {
	return &Reader{
		Symbols:              make(map[common.Address]string),
		Names:                make(map[common.Address]string),
		Decimals:             make(map[common.Address]uint8),
		OptionFees:           make(map[common.Address]*big.Int),
		FeeDestinations:      make(map[common.Address]common.Address),
		MaxExercisedAccounts: make(map[common.Address]*big.Int),
		Collateralized:       make(map[Pair]*big.Int),
		GasTokens:            make(map[common.Address]common.Address),
		Strategies:           make(map[common.Address]common.Address),
		BaseVolatilities:     make(map[common.Address]*big.Int),
		LegacyConfigs:        make(map[common.Address]chain.PoolLegacyConfig),
		ProtocolConfigs:      make(map[common.Address]chain.PoolProtocolConfig),
		PermissionConfigs:    make(map[common.Address]chain.PoolPermissionConfig),
		LendingPools:         make(map[common.Address]common.Address),
		Referrals:            make(map[common.Address]*big.Int),
		Admins:               make(map[common.Address]common.Address),
		PoolAdmins:           make(map[common.Address]common.Address),
		GeneralData:          make(map[common.Address]chain.PoolGeneralData),
		CanSwap:              make(map[Pair]bool),
		OptionPrices:         make(map[common.Address]*big.Int),
		ConverterProxies:     make(map[Triple]common.Address),
		ProxyTargets:         make(map[common.Address]common.Address),
		AggDecimals:          make(map[common.Address]uint8),
		Answers:              make(map[common.Address]*big.Int),
		Timestamps:           make(map[common.Address]*big.Int),
	}
}

// FailOnce makes the next read of method return err instead of its answer.
func (r *Reader) FailOnce(method string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures == nil {
		r.failures = make(map[string]error)
	}
	r.failures[method] = err
}

// Calls returns the methods invoked so far, in order.
func (r *Reader) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Called reports how many times method was invoked.
func (r *Reader) Called(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == method {
			n++
		}
	}
	return n
}

func lookup[K comparable, V any](r *Reader, m map[K]V, key K, method string) (V, error) {
	r.mu.Lock()
	r.calls = append(r.calls, method)
	failure, failing := r.failures[method]
	delete(r.failures, method)
	r.mu.Unlock()

	if failing {
		var zero V
		return zero, failure
	}
	v, ok := m[key]
	if !ok {
		var zero V
		return zero, fmt.Errorf("%s: %w", method, chain.ErrReverted)
	}
	return v, nil
}

func (r *Reader) TokenSymbol(_ context.Context, token common.Address) (string, error) {
	return lookup(r, r.Symbols, token, "symbol")
}

func (r *Reader) TokenName(_ context.Context, token common.Address) (string, error) {
	return lookup(r, r.Names, token, "name")
}

func (r *Reader) TokenDecimals(_ context.Context, token common.Address) (uint8, error) {
	return lookup(r, r.Decimals, token, "decimals")
}

func (r *Reader) OptionFee(_ context.Context, aco common.Address) (*big.Int, error) {
	return lookup(r, r.OptionFees, aco, "acoFee")
}

func (r *Reader) OptionFeeDestination(_ context.Context, aco common.Address) (common.Address, error) {
	return lookup(r, r.FeeDestinations, aco, "feeDestination")
}

func (r *Reader) OptionMaxExercisedAccounts(_ context.Context, aco common.Address) (*big.Int, error) {
	return lookup(r, r.MaxExercisedAccounts, aco, "maxExercisedAccounts")
}

func (r *Reader) OptionCollateralized(_ context.Context, aco, account common.Address) (*big.Int, error) {
	return lookup(r, r.Collateralized, Pair{aco, account}, "currentCollateralizedTokens")
}

func (r *Reader) PoolGasToken(_ context.Context, pool common.Address) (common.Address, error) {
	return lookup(r, r.GasTokens, pool, "chiToken")
}

func (r *Reader) PoolStrategy(_ context.Context, pool common.Address) (common.Address, error) {
	return lookup(r, r.Strategies, pool, "strategy")
}

func (r *Reader) PoolBaseVolatility(_ context.Context, pool common.Address) (*big.Int, error) {
	return lookup(r, r.BaseVolatilities, pool, "baseVolatility")
}

func (r *Reader) PoolLegacyConfig(_ context.Context, pool common.Address) (chain.PoolLegacyConfig, error) {
	return lookup(r, r.LegacyConfigs, pool, "legacyConfig")
}

func (r *Reader) PoolProtocolConfig(_ context.Context, pool common.Address) (chain.PoolProtocolConfig, error) {
	return lookup(r, r.ProtocolConfigs, pool, "protocolConfig")
}

func (r *Reader) PoolPermissionConfig(_ context.Context, pool common.Address) (chain.PoolPermissionConfig, error) {
	return lookup(r, r.PermissionConfigs, pool, "acoPermissionConfig")
}

func (r *Reader) PoolLendingPool(_ context.Context, pool common.Address) (common.Address, error) {
	return lookup(r, r.LendingPools, pool, "lendingPool")
}

func (r *Reader) PoolLendingPoolReferral(_ context.Context, pool common.Address) (*big.Int, error) {
	return lookup(r, r.Referrals, pool, "lendingPoolReferral")
}

func (r *Reader) PoolAdmin(_ context.Context, pool common.Address, legacy bool) (common.Address, error) {
	if legacy {
		return lookup(r, r.Admins, pool, "admin")
	}
	return lookup(r, r.PoolAdmins, pool, "poolAdmin")
}

func (r *Reader) PoolGeneralData(_ context.Context, pool common.Address) (chain.PoolGeneralData, error) {
	return lookup(r, r.GeneralData, pool, "getGeneralData")
}

func (r *Reader) PoolCanSwap(_ context.Context, pool, aco common.Address) (bool, error) {
	return lookup(r, r.CanSwap, Pair{pool, aco}, "canSwap")
}

func (r *Reader) StrategyOptionPrice(_ context.Context, strategy common.Address, q chain.OptionQuote) (*big.Int, error) {
	r.mu.Lock()
	r.Quotes = append(r.Quotes, q)
	r.mu.Unlock()
	return lookup(r, r.OptionPrices, strategy, "getOptionPrice")
}

func (r *Reader) ConverterAggregator(_ context.Context, converter, base, quote common.Address) (common.Address, error) {
	return lookup(r, r.ConverterProxies, Triple{converter, base, quote}, "getAggregator")
}

func (r *Reader) ProxyAggregator(_ context.Context, proxy common.Address) (common.Address, error) {
	return lookup(r, r.ProxyTargets, proxy, "aggregator")
}

func (r *Reader) AggregatorDecimals(_ context.Context, aggregator common.Address) (uint8, error) {
	return lookup(r, r.AggDecimals, aggregator, "aggregatorDecimals")
}

func (r *Reader) AggregatorLatestAnswer(_ context.Context, aggregator common.Address) (*big.Int, error) {
	return lookup(r, r.Answers, aggregator, "latestAnswer")
}

func (r *Reader) AggregatorLatestTimestamp(_ context.Context, aggregator common.Address) (*big.Int, error) {
	return lookup(r, r.Timestamps, aggregator, "latestTimestamp")
}

// Registrar records RegisterContract commands.
type Registrar struct {
	mu       sync.Mutex
	commands []chain.RegisterContract
}

func (r *Registrar) Register(_ context.Context, cmd chain.RegisterContract) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)
	return nil
}

// Commands returns the recorded commands in order.
func (r *Registrar) Commands() []chain.RegisterContract {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]chain.RegisterContract(nil), r.commands...)
}

// Count returns how many times addr was registered under template.
func (r *Registrar) Count(addr common.Address, template chain.Template) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.commands {
		if c.Address == addr && c.Template == template {
			n++
		}
	}
	return n
}
