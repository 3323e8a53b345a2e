package model

import "github.com/shopspring/decimal"

// Swap record types.
const (
	SwapTypePool  = "Pool"
	SwapTypeZRX   = "ZRX"
	SwapTypeZRXV4 = "ZRXV4"
	SwapTypeOTC   = "OTC"
)

// ACOToken is one option-token contract instance.
type ACOToken struct {
	ID                   string          `json:"id"`
	Underlying           string          `json:"underlying"`
	StrikeAsset          string          `json:"strike_asset"`
	Collateral           string          `json:"collateral"`
	Symbol               string          `json:"symbol"`
	Name                 string          `json:"name"`
	Decimals             int32           `json:"decimals"`
	IsCall               bool            `json:"is_call"`
	StrikePrice          decimal.Decimal `json:"strike_price"`
	ExpiryTime           uint64          `json:"expiry_time"`
	TotalSupply          decimal.Decimal `json:"total_supply"`
	Fee                  decimal.Decimal `json:"fee"`
	FeeDestination       string          `json:"fee_destination,omitempty"`
	MaxExercisedAccounts *uint64         `json:"max_exercised_accounts,omitempty"`
	Creator              string          `json:"creator,omitempty"`
	Implementation       string          `json:"implementation"`
	Tx                   string          `json:"tx"`
	Situation            string          `json:"situation"`

	MintsCount          int64 `json:"mints_count"`
	BurnsCount          int64 `json:"burns_count"`
	ExercisesCount      int64 `json:"exercises_count"`
	AccountRedeemsCount int64 `json:"account_redeems_count"`
	AccountsCount       int64 `json:"accounts_count"`
	HoldersCount        int64 `json:"holders_count"`
	SwapsCount          int64 `json:"swaps_count"`

	LastMintID     string `json:"last_mint_id,omitempty"`
	LastBurnID     string `json:"last_burn_id,omitempty"`
	LastExerciseID string `json:"last_exercise_id,omitempty"`
	LastSwapID     string `json:"last_swap_id,omitempty"`
}

// Expired reports whether the option is expired at the given block time.
func (a *ACOToken) Expired(timestamp uint64) bool {
	return timestamp >= a.ExpiryTime
}

// ACOTokenSituation is the collateralization state of an ACO token, either
// contract wide (id = aco) or for one account (id = aco-account).
type ACOTokenSituation struct {
	ID                     string          `json:"id"`
	CollateralizedTokens   decimal.Decimal `json:"collateralized_tokens"`
	AssignableTokens       decimal.Decimal `json:"assignable_tokens"`
	UnassignableTokens     decimal.Decimal `json:"unassignable_tokens"`
	CollateralAmount       decimal.Decimal `json:"collateral_amount"`
	AssignableCollateral   decimal.Decimal `json:"assignable_collateral"`
	UnassignableCollateral decimal.Decimal `json:"unassignable_collateral"`
	ExercisedTokens        decimal.Decimal `json:"exercised_tokens"`
	ExercisedPayment       decimal.Decimal `json:"exercised_payment"`
	ExerciseFee            decimal.Decimal `json:"exercise_fee"`
}

// ACOAccount is an account's position in one ACO token.
type ACOAccount struct {
	ID        string          `json:"id"`
	Account   string          `json:"account"`
	ACO       string          `json:"aco"`
	Balance   decimal.Decimal `json:"balance"`
	Situation string          `json:"situation"`
}

// Mint is a collateral deposit that writes options.
type Mint struct {
	ID               string          `json:"id"`
	ACO              string          `json:"aco"`
	Account          string          `json:"account"`
	CollateralAmount decimal.Decimal `json:"collateral_amount"`
	TokenAmount      decimal.Decimal `json:"token_amount"`
	Tx               string          `json:"tx"`
}

// Burn is a pre-expiry collateral withdrawal.
type Burn struct {
	ID               string          `json:"id"`
	ACO              string          `json:"aco"`
	Account          string          `json:"account"`
	CollateralAmount decimal.Decimal `json:"collateral_amount"`
	TokenAmount      decimal.Decimal `json:"token_amount"`
	Tx               string          `json:"tx"`
}

// AccountRedeem is a post-expiry collateral withdrawal.
type AccountRedeem struct {
	ID               string          `json:"id"`
	ACO              string          `json:"aco"`
	Account          string          `json:"account"`
	CollateralAmount decimal.Decimal `json:"collateral_amount"`
	Tx               string          `json:"tx"`
}

// Exercise aggregates one exerciser's assignments in a transaction.
type Exercise struct {
	ID                     string          `json:"id"`
	ACO                    string          `json:"aco"`
	Account                string          `json:"account"`
	PaidAmount             decimal.Decimal `json:"paid_amount"`
	TokenAmount            decimal.Decimal `json:"token_amount"`
	Tx                     string          `json:"tx"`
	ExercisedAccountsCount int64           `json:"exercised_accounts_count"`
}

// ExercisedAccount is one writer assigned by an Exercise.
type ExercisedAccount struct {
	ID              string          `json:"id"`
	Exercise        string          `json:"exercise"`
	Account         string          `json:"account"`
	PaymentReceived decimal.Decimal `json:"payment_received"`
	ExercisedTokens decimal.Decimal `json:"exercised_tokens"`
}

// ACOSwap is a trade of ACO tokens against a payment token.
type ACOSwap struct {
	ID            string          `json:"id"`
	ACO           string          `json:"aco"`
	Seller        string          `json:"seller"`
	Buyer         string          `json:"buyer"`
	Taker         string          `json:"taker"`
	Type          string          `json:"type"`
	PaymentToken  string          `json:"payment_token"`
	PaymentAmount decimal.Decimal `json:"payment_amount"`
	ACOAmount     decimal.Decimal `json:"aco_amount"`
	Tx            string          `json:"tx"`
}

func (e *ACOToken) EntityKind() string          { return KindACOToken }
func (e *ACOToken) EntityID() string            { return e.ID }
func (e *ACOTokenSituation) EntityKind() string { return KindACOTokenSituation }
func (e *ACOTokenSituation) EntityID() string   { return e.ID }
func (e *ACOAccount) EntityKind() string        { return KindACOAccount }
func (e *ACOAccount) EntityID() string          { return e.ID }
func (e *Mint) EntityKind() string              { return KindMint }
func (e *Mint) EntityID() string                { return e.ID }
func (e *Burn) EntityKind() string              { return KindBurn }
func (e *Burn) EntityID() string                { return e.ID }
func (e *AccountRedeem) EntityKind() string     { return KindAccountRedeem }
func (e *AccountRedeem) EntityID() string       { return e.ID }
func (e *Exercise) EntityKind() string          { return KindExercise }
func (e *Exercise) EntityID() string            { return e.ID }
func (e *ExercisedAccount) EntityKind() string  { return KindExercisedAccount }
func (e *ExercisedAccount) EntityID() string    { return e.ID }
func (e *ACOSwap) EntityKind() string           { return KindACOSwap }
func (e *ACOSwap) EntityID() string             { return e.ID }
