package model

import "github.com/shopspring/decimal"

// ACOPoolFactory holds the registry of pools and the global active option set.
type ACOPoolFactory struct {
	ID         string   `json:"id"`
	Pools      []string `json:"pools"`
	ActiveACOs []string `json:"active_acos"`
}

// ACOPool is an automated option-writing vault.
type ACOPool struct {
	ID             string          `json:"id"`
	Underlying     string          `json:"underlying"`
	StrikeAsset    string          `json:"strike_asset"`
	Collateral     string          `json:"collateral"`
	Symbol         string          `json:"symbol"`
	Name           string          `json:"name"`
	Decimals       int32           `json:"decimals"`
	IsCall         bool            `json:"is_call"`
	Implementation string          `json:"implementation"`
	Tx             string          `json:"tx"`
	TotalSupply    decimal.Decimal `json:"total_supply"`

	GasToken                        string          `json:"gas_token,omitempty"`
	Strategy                        string          `json:"strategy"`
	BaseVolatility                  decimal.Decimal `json:"base_volatility"`
	AssetConverter                  string          `json:"asset_converter"`
	FeeDestination                  string          `json:"fee_destination"`
	Fee                             decimal.Decimal `json:"fee"`
	WithdrawOpenPositionPenalty     decimal.Decimal `json:"withdraw_open_position_penalty"`
	UnderlyingPriceAdjustPercentage decimal.Decimal `json:"underlying_price_adjust_percentage"`
	MaximumOpenACO                  uint64          `json:"maximum_open_aco"`
	MinExpiration                   uint64          `json:"min_expiration"`
	MaxExpiration                   uint64          `json:"max_expiration"`
	TolerancePriceBelowMin          decimal.Decimal `json:"tolerance_price_below_min"`
	TolerancePriceBelowMax          decimal.Decimal `json:"tolerance_price_below_max"`
	TolerancePriceAboveMin          decimal.Decimal `json:"tolerance_price_above_min"`
	TolerancePriceAboveMax          decimal.Decimal `json:"tolerance_price_above_max"`
	LendingPool                     string          `json:"lending_pool,omitempty"`
	LendingPoolReferral             uint64          `json:"lending_pool_referral"`
	PoolAdmin                       string          `json:"pool_admin,omitempty"`

	OpenACOsCount                int64 `json:"open_acos_count"`
	HoldersCount                 int64 `json:"holders_count"`
	ACOsCount                    int64 `json:"acos_count"`
	ACOCreatorsPermissionCount   int64 `json:"aco_creators_permission_count"`
	SwapsCount                   int64 `json:"swaps_count"`
	DepositsCount                int64 `json:"deposits_count"`
	WithdrawalsCount             int64 `json:"withdrawals_count"`
	ACORedeemsCount              int64 `json:"aco_redeems_count"`
	CollateralRestoresCount      int64 `json:"collateral_restores_count"`
	AccountsCount                int64 `json:"accounts_count"`
	StrategiesHistoryCount       int64 `json:"strategies_history_count"`
	BaseVolatilitiesHistoryCount int64 `json:"base_volatilities_history_count"`
	PermissionsHistoryCount      int64 `json:"permissions_history_count"`
	PoolAdminsHistoryCount       int64 `json:"pool_admins_history_count"`
	ACOsDynamicDataCount         int64 `json:"acos_dynamic_data_count"`
	HistoricalSharesCount        int64 `json:"historical_shares_count"`

	LastHistoricalShareUpdate   uint64 `json:"last_historical_share_update"`
	LastHistoricalShareID       string `json:"last_historical_share_id,omitempty"`
	LastStrategyHistoryID       string `json:"last_strategy_history_id,omitempty"`
	LastBaseVolatilityHistoryID string `json:"last_base_volatility_history_id,omitempty"`
	LastPermissionHistoryID     string `json:"last_permission_history_id,omitempty"`
	LastPoolAdminHistoryID      string `json:"last_pool_admin_history_id,omitempty"`
	LastSwapID                  string `json:"last_swap_id,omitempty"`
	LastDepositID               string `json:"last_deposit_id,omitempty"`
	LastWithdrawalID            string `json:"last_withdrawal_id,omitempty"`
	LastACORedeemID             string `json:"last_aco_redeem_id,omitempty"`
	LastCollateralRestoreID     string `json:"last_collateral_restore_id,omitempty"`
	DynamicData                 string `json:"dynamic_data,omitempty"`
}

// PoolAccount is a holder of pool shares.
type PoolAccount struct {
	ID      string          `json:"id"`
	Pool    string          `json:"pool"`
	Account string          `json:"account"`
	Balance decimal.Decimal `json:"balance"`
}

// ACOOnPool aggregates a pool's activity in one ACO token.
type ACOOnPool struct {
	ID                 string          `json:"id"`
	Pool               string          `json:"pool"`
	ACO                string          `json:"aco"`
	IsOpen             bool            `json:"is_open"`
	ACOAmount          decimal.Decimal `json:"aco_amount"`
	ValueSold          decimal.Decimal `json:"value_sold"`
	CollateralLocked   decimal.Decimal `json:"collateral_locked"`
	CollateralRedeemed decimal.Decimal `json:"collateral_redeemed"`
	SwapsCount         int64           `json:"swaps_count"`
}

// Deposit of collateral into a pool.
type Deposit struct {
	ID               string          `json:"id"`
	Pool             string          `json:"pool"`
	Account          string          `json:"account"`
	Shares           decimal.Decimal `json:"shares"`
	CollateralAmount decimal.Decimal `json:"collateral_amount"`
	Tx               string          `json:"tx"`
}

// Withdrawal of shares from a pool.
type Withdrawal struct {
	ID                   string          `json:"id"`
	Pool                 string          `json:"pool"`
	Account              string          `json:"account"`
	Shares               decimal.Decimal `json:"shares"`
	NoLocked             bool            `json:"no_locked"`
	UnderlyingWithdrawn  decimal.Decimal `json:"underlying_withdrawn"`
	StrikeAssetWithdrawn decimal.Decimal `json:"strike_asset_withdrawn"`
	OpenACOsCount        int64           `json:"open_acos_count"`
	Tx                   string          `json:"tx"`
}

// ACOAmount is an ACO token amount transferred out on a Withdrawal.
type ACOAmount struct {
	ID         string          `json:"id"`
	Withdrawal string          `json:"withdrawal"`
	ACO        string          `json:"aco"`
	Amount     decimal.Decimal `json:"amount"`
}

// ACORedeem is a pool redeeming collateral of an expired ACO.
type ACORedeem struct {
	ID                 string          `json:"id"`
	Pool               string          `json:"pool"`
	ACO                string          `json:"aco"`
	ValueSold          decimal.Decimal `json:"value_sold"`
	CollateralLocked   decimal.Decimal `json:"collateral_locked"`
	CollateralRedeemed decimal.Decimal `json:"collateral_redeemed"`
	Tx                 string          `json:"tx"`
}

// CollateralRestore swaps a pool's non-collateral asset back to collateral.
type CollateralRestore struct {
	ID                 string          `json:"id"`
	Pool               string          `json:"pool"`
	AmountOut          decimal.Decimal `json:"amount_out"`
	CollateralRestored decimal.Decimal `json:"collateral_restored"`
	Tx                 string          `json:"tx"`
}

// ACOCreatorPermission tracks whether a creator's options may be sold by a pool.
type ACOCreatorPermission struct {
	ID          string   `json:"id"`
	Pool        string   `json:"pool"`
	Creator     string   `json:"creator"`
	IsValid     Tristate `json:"is_valid"`
	IsForbidden Tristate `json:"is_forbidden"`
	Tx          string   `json:"tx"`
}

// PoolStrategyHistory records a strategy change.
type PoolStrategyHistory struct {
	ID       string `json:"id"`
	Pool     string `json:"pool"`
	Strategy string `json:"strategy"`
	Tx       string `json:"tx"`
}

// PoolBaseVolatilityHistory records a base volatility change.
type PoolBaseVolatilityHistory struct {
	ID             string          `json:"id"`
	Pool           string          `json:"pool"`
	BaseVolatility decimal.Decimal `json:"base_volatility"`
	Tx             string          `json:"tx"`
}

// PoolAdminHistory records an admin change.
type PoolAdminHistory struct {
	ID    string `json:"id"`
	Pool  string `json:"pool"`
	Admin string `json:"admin"`
	Tx    string `json:"tx"`
}

// PoolPermissionHistory records a change of the pool's ACO acceptance bands.
type PoolPermissionHistory struct {
	ID                     string          `json:"id"`
	Pool                   string          `json:"pool"`
	TolerancePriceBelowMin decimal.Decimal `json:"tolerance_price_below_min"`
	TolerancePriceBelowMax decimal.Decimal `json:"tolerance_price_below_max"`
	TolerancePriceAboveMin decimal.Decimal `json:"tolerance_price_above_min"`
	TolerancePriceAboveMax decimal.Decimal `json:"tolerance_price_above_max"`
	MinExpiration          uint64          `json:"min_expiration"`
	MaxExpiration          uint64          `json:"max_expiration"`
	Tx                     string          `json:"tx"`
}

// PoolDynamicData is the live valuation of a pool. One row per pool,
// overwritten by every successful valuation pass.
type PoolDynamicData struct {
	ID                         string          `json:"id"`
	Pool                       string          `json:"pool"`
	UnderlyingPrice            decimal.Decimal `json:"underlying_price"`
	UnderlyingBalance          decimal.Decimal `json:"underlying_balance"`
	StrikeAssetBalance         decimal.Decimal `json:"strike_asset_balance"`
	CollateralLocked           decimal.Decimal `json:"collateral_locked"`
	CollateralOnOpenPosition   decimal.Decimal `json:"collateral_on_open_position"`
	CollateralLockedRedeemable decimal.Decimal `json:"collateral_locked_redeemable"`
	UnderlyingPerShare         decimal.Decimal `json:"underlying_per_share"`
	StrikeAssetPerShare        decimal.Decimal `json:"strike_asset_per_share"`
	CollateralValue            decimal.Decimal `json:"collateral_value"`
	NonCollateralValue         decimal.Decimal `json:"non_collateral_value"`
	CollateralLockedValue      decimal.Decimal `json:"collateral_locked_value"`
	OpenPositionOptionsValue   decimal.Decimal `json:"open_position_options_value"`
	NetValue                   decimal.Decimal `json:"net_value"`
	TotalValue                 decimal.Decimal `json:"total_value"`
	HasMinimalCollateral       bool            `json:"has_minimal_collateral"`
	Timestamp                  uint64          `json:"timestamp"`
}

// ACOPoolDynamicData is the live valuation of one ACO held by a pool.
type ACOPoolDynamicData struct {
	ID                       string          `json:"id"`
	Pool                     string          `json:"pool"`
	ACO                      string          `json:"aco"`
	TokenAmount              decimal.Decimal `json:"token_amount"`
	CollateralLocked         decimal.Decimal `json:"collateral_locked"`
	CollateralLockedValue    decimal.Decimal `json:"collateral_locked_value"`
	OptionPrice              decimal.Decimal `json:"option_price"`
	OpenPositionOptionsValue decimal.Decimal `json:"open_position_options_value"`
	ExpiredTokens            decimal.Decimal `json:"expired_tokens"`
	Timestamp                uint64          `json:"timestamp"`
}

// PoolHistoricalShare is an append-only snapshot of per-share value.
type PoolHistoricalShare struct {
	ID                  string          `json:"id"`
	Pool                string          `json:"pool"`
	UnderlyingPerShare  decimal.Decimal `json:"underlying_per_share"`
	StrikeAssetPerShare decimal.Decimal `json:"strike_asset_per_share"`
	UnderlyingPrice     decimal.Decimal `json:"underlying_price"`
	Timestamp           uint64          `json:"timestamp"`
}

func (e *ACOPoolFactory) EntityKind() string            { return KindACOPoolFactory }
func (e *ACOPoolFactory) EntityID() string              { return e.ID }
func (e *ACOPool) EntityKind() string                   { return KindACOPool }
func (e *ACOPool) EntityID() string                     { return e.ID }
func (e *PoolAccount) EntityKind() string               { return KindPoolAccount }
func (e *PoolAccount) EntityID() string                 { return e.ID }
func (e *ACOOnPool) EntityKind() string                 { return KindACOOnPool }
func (e *ACOOnPool) EntityID() string                   { return e.ID }
func (e *Deposit) EntityKind() string                   { return KindDeposit }
func (e *Deposit) EntityID() string                     { return e.ID }
func (e *Withdrawal) EntityKind() string                { return KindWithdrawal }
func (e *Withdrawal) EntityID() string                  { return e.ID }
func (e *ACOAmount) EntityKind() string                 { return KindACOAmount }
func (e *ACOAmount) EntityID() string                   { return e.ID }
func (e *ACORedeem) EntityKind() string                 { return KindACORedeem }
func (e *ACORedeem) EntityID() string                   { return e.ID }
func (e *CollateralRestore) EntityKind() string         { return KindCollateralRestore }
func (e *CollateralRestore) EntityID() string           { return e.ID }
func (e *ACOCreatorPermission) EntityKind() string      { return KindACOCreatorPermission }
func (e *ACOCreatorPermission) EntityID() string        { return e.ID }
func (e *PoolStrategyHistory) EntityKind() string       { return KindPoolStrategyHistory }
func (e *PoolStrategyHistory) EntityID() string         { return e.ID }
func (e *PoolBaseVolatilityHistory) EntityKind() string { return KindPoolBaseVolatilityHistory }
func (e *PoolBaseVolatilityHistory) EntityID() string   { return e.ID }
func (e *PoolAdminHistory) EntityKind() string          { return KindPoolAdminHistory }
func (e *PoolAdminHistory) EntityID() string            { return e.ID }
func (e *PoolPermissionHistory) EntityKind() string     { return KindPoolPermissionHistory }
func (e *PoolPermissionHistory) EntityID() string       { return e.ID }
func (e *PoolDynamicData) EntityKind() string           { return KindPoolDynamicData }
func (e *PoolDynamicData) EntityID() string             { return e.ID }
func (e *ACOPoolDynamicData) EntityKind() string        { return KindACOPoolDynamicData }
func (e *ACOPoolDynamicData) EntityID() string          { return e.ID }
func (e *PoolHistoricalShare) EntityKind() string       { return KindPoolHistoricalShare }
func (e *PoolHistoricalShare) EntityID() string         { return e.ID }
