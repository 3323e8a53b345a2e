// Package model defines the derived entities maintained by the indexer.
// All monetary values use shopspring/decimal, never float64 for money.
//
// Entities are keyed by deterministic string ids (lowercase addresses,
// optionally joined with counterparties, transaction hash and log index) and
// are never deleted; re-processing an event overwrites rather than duplicates.
package model

import "strings"

// Entity kinds, used as the storage namespace of each entity type.
const (
	KindToken                     = "Token"
	KindTransaction               = "Transaction"
	KindACOToken                  = "ACOToken"
	KindACOTokenSituation         = "ACOTokenSituation"
	KindACOAccount                = "ACOAccount"
	KindMint                      = "Mint"
	KindBurn                      = "Burn"
	KindAccountRedeem             = "AccountRedeem"
	KindExercise                  = "Exercise"
	KindExercisedAccount          = "ExercisedAccount"
	KindACOSwap                   = "ACOSwap"
	KindACOPoolFactory            = "ACOPoolFactory"
	KindACOPool                   = "ACOPool"
	KindPoolAccount               = "PoolAccount"
	KindACOOnPool                 = "ACOOnPool"
	KindDeposit                   = "Deposit"
	KindWithdrawal                = "Withdrawal"
	KindACOAmount                 = "ACOAmount"
	KindACORedeem                 = "ACORedeem"
	KindCollateralRestore         = "CollateralRestore"
	KindACOCreatorPermission      = "ACOCreatorPermission"
	KindPoolStrategyHistory       = "PoolStrategyHistory"
	KindPoolBaseVolatilityHistory = "PoolBaseVolatilityHistory"
	KindPoolAdminHistory          = "PoolAdminHistory"
	KindPoolPermissionHistory     = "PoolPermissionHistory"
	KindPoolDynamicData           = "PoolDynamicData"
	KindACOPoolDynamicData        = "ACOPoolDynamicData"
	KindPoolHistoricalShare       = "PoolHistoricalShare"
	KindAssetConverterHelper      = "AssetConverterHelper"
	KindAggregatorProxy           = "AggregatorProxy"
	KindAggregatorInterface       = "AggregatorInterface"
	KindPricePair                 = "PricePair"
	KindRegisteredContract        = "RegisteredContract"
	KindProcessedEvent            = "ProcessedEvent"
)

var kinds = map[string]bool{
	KindToken: true, KindTransaction: true, KindACOToken: true, KindACOTokenSituation: true,
	KindACOAccount: true, KindMint: true, KindBurn: true, KindAccountRedeem: true,
	KindExercise: true, KindExercisedAccount: true, KindACOSwap: true, KindACOPoolFactory: true,
	KindACOPool: true, KindPoolAccount: true, KindACOOnPool: true, KindDeposit: true,
	KindWithdrawal: true, KindACOAmount: true, KindACORedeem: true, KindCollateralRestore: true,
	KindACOCreatorPermission: true, KindPoolStrategyHistory: true, KindPoolBaseVolatilityHistory: true,
	KindPoolAdminHistory: true, KindPoolPermissionHistory: true, KindPoolDynamicData: true,
	KindACOPoolDynamicData: true, KindPoolHistoricalShare: true, KindAssetConverterHelper: true,
	KindAggregatorProxy: true, KindAggregatorInterface: true, KindPricePair: true,
	KindRegisteredContract: true, KindProcessedEvent: true,
}

// IsKind reports whether kind names an entity type.
func IsKind(kind string) bool {
	return kinds[kind]
}

// ID joins key parts with "-".
func ID(parts ...string) string {
	return strings.Join(parts, "-")
}

// Token is fungible asset metadata. Immutable once created.
type Token struct {
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int32  `json:"decimals"`
}

// Transaction is one on-chain transaction, optionally scoped to a log.
type Transaction struct {
	ID        string  `json:"id"`
	Hash      string  `json:"hash"`
	Block     uint64  `json:"block"`
	Timestamp uint64  `json:"timestamp"`
	Index     uint64  `json:"index"`
	LogIndex  *uint64 `json:"log_index,omitempty"`
}

// RegisteredContract records that a listener for an address was requested.
type RegisteredContract struct {
	ID       string `json:"id"`
	Template string `json:"template"`
	Block    uint64 `json:"block"`
}

// ProcessedEvent marks a delivered event as fully handled, keyed by
// transaction hash and log index.
type ProcessedEvent struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Block uint64 `json:"block"`
}

func (e *Token) EntityKind() string              { return KindToken }
func (e *Token) EntityID() string                { return e.ID }
func (e *Transaction) EntityKind() string        { return KindTransaction }
func (e *Transaction) EntityID() string          { return e.ID }
func (e *RegisteredContract) EntityKind() string { return KindRegisteredContract }
func (e *RegisteredContract) EntityID() string   { return e.ID }
func (e *ProcessedEvent) EntityKind() string     { return KindProcessedEvent }
func (e *ProcessedEvent) EntityID() string       { return e.ID }
