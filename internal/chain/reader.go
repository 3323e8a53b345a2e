package chain

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrReverted marks an external read that reverted or returned nothing
// decodable. It is an expected outcome; callers fall back to a default.
var ErrReverted = errors.New("chain: call reverted")

// TokenReader reads ERC20 metadata.
type TokenReader interface {
	TokenSymbol(ctx context.Context, token common.Address) (string, error)
	TokenName(ctx context.Context, token common.Address) (string, error)
	TokenDecimals(ctx context.Context, token common.Address) (uint8, error)
}

// OptionReader reads ACO token contract state.
type OptionReader interface {
	OptionFee(ctx context.Context, aco common.Address) (*big.Int, error)
	OptionFeeDestination(ctx context.Context, aco common.Address) (common.Address, error)
	OptionMaxExercisedAccounts(ctx context.Context, aco common.Address) (*big.Int, error)
	// OptionCollateralized returns the tokens collateralized by account.
	OptionCollateralized(ctx context.Context, aco, account common.Address) (*big.Int, error)
}

// PoolLegacyConfig is the configuration of V1-V3 pools read through
// individual getters.
type PoolLegacyConfig struct {
	AssetConverter                  common.Address
	FeeDestination                  common.Address
	MaximumOpenACO                  *big.Int
	MinExpiration                   *big.Int
	MaxExpiration                   *big.Int
	WithdrawOpenPositionPenalty     *big.Int
	UnderlyingPriceAdjustPercentage *big.Int
	Fee                             *big.Int
	TolerancePriceAbove             *big.Int
	TolerancePriceBelow             *big.Int
}

// PoolProtocolConfig mirrors protocolConfig() on newer pools.
type PoolProtocolConfig struct {
	LendingPoolReferral             *big.Int       `json:"lending_pool_referral"`
	WithdrawOpenPositionPenalty     *big.Int       `json:"withdraw_open_position_penalty"`
	UnderlyingPriceAdjustPercentage *big.Int       `json:"underlying_price_adjust_percentage"`
	Fee                             *big.Int       `json:"fee"`
	MaximumOpenACO                  *big.Int       `json:"maximum_open_aco"`
	FeeDestination                  common.Address `json:"fee_destination"`
	AssetConverter                  common.Address `json:"asset_converter"`
}

// PoolPermissionConfig mirrors acoPermissionConfig() on newer pools.
type PoolPermissionConfig struct {
	TolerancePriceBelowMin *big.Int `json:"tolerance_price_below_min"`
	TolerancePriceBelowMax *big.Int `json:"tolerance_price_below_max"`
	TolerancePriceAboveMin *big.Int `json:"tolerance_price_above_min"`
	TolerancePriceAboveMax *big.Int `json:"tolerance_price_above_max"`
	MinExpiration          *big.Int `json:"min_expiration"`
	MaxExpiration          *big.Int `json:"max_expiration"`
}

// PoolGeneralData mirrors getGeneralData() on a pool. Amounts are raw.
type PoolGeneralData struct {
	UnderlyingBalance          *big.Int
	StrikeAssetBalance         *big.Int
	CollateralLocked           *big.Int
	CollateralOnOpenPosition   *big.Int
	CollateralLockedRedeemable *big.Int
	PoolSupply                 *big.Int
}

// PoolReader reads pool contract state.
type PoolReader interface {
	PoolGasToken(ctx context.Context, pool common.Address) (common.Address, error)
	PoolStrategy(ctx context.Context, pool common.Address) (common.Address, error)
	PoolBaseVolatility(ctx context.Context, pool common.Address) (*big.Int, error)
	PoolLegacyConfig(ctx context.Context, pool common.Address) (PoolLegacyConfig, error)
	PoolProtocolConfig(ctx context.Context, pool common.Address) (PoolProtocolConfig, error)
	PoolPermissionConfig(ctx context.Context, pool common.Address) (PoolPermissionConfig, error)
	PoolLendingPool(ctx context.Context, pool common.Address) (common.Address, error)
	PoolLendingPoolReferral(ctx context.Context, pool common.Address) (*big.Int, error)
	// PoolAdmin reads admin() when legacy is set, poolAdmin() otherwise.
	PoolAdmin(ctx context.Context, pool common.Address, legacy bool) (common.Address, error)
	PoolGeneralData(ctx context.Context, pool common.Address) (PoolGeneralData, error)
	PoolCanSwap(ctx context.Context, pool, aco common.Address) (bool, error)
}

// OptionQuote is the input of a pricing strategy. Amounts are raw.
type OptionQuote struct {
	UnderlyingPrice *big.Int
	Underlying      common.Address
	StrikeAsset     common.Address
	IsCall          bool
	StrikePrice     *big.Int
	ExpiryTime      *big.Int
	BaseVolatility  *big.Int
}

// StrategyReader quotes option prices from a pool pricing strategy.
type StrategyReader interface {
	StrategyOptionPrice(ctx context.Context, strategy common.Address, q OptionQuote) (*big.Int, error)
}

// OracleReader reads the asset converter and price aggregators.
type OracleReader interface {
	// ConverterAggregator returns the proxy registered for a pair.
	ConverterAggregator(ctx context.Context, converter, base, quote common.Address) (common.Address, error)
	ProxyAggregator(ctx context.Context, proxy common.Address) (common.Address, error)
	AggregatorDecimals(ctx context.Context, aggregator common.Address) (uint8, error)
	AggregatorLatestAnswer(ctx context.Context, aggregator common.Address) (*big.Int, error)
	AggregatorLatestTimestamp(ctx context.Context, aggregator common.Address) (*big.Int, error)
}

// Reader is the full set of synchronous read calls the indexer issues.
// Every method returns ErrReverted (possibly wrapped) on revert.
type Reader interface {
	TokenReader
	OptionReader
	PoolReader
	StrategyReader
	OracleReader
}

// Reverted reports whether err is a reverted read.
func Reverted(err error) bool {
	return errors.Is(err, ErrReverted)
}
