package indexer

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/atmx/aco-indexer/internal/chain"
)

// Event kinds as delivered by the host.
const (
	KindNewACO             = "ACOFactory.NewAcoToken"
	KindNewACOData         = "ACOFactory.NewAcoTokenData"
	KindNewPool            = "ACOPoolFactory.NewAcoPool"
	KindCollateralDeposit  = "ACOToken.CollateralDeposit"
	KindCollateralWithdraw = "ACOToken.CollateralWithdraw"
	KindTransferCollateral = "ACOToken.TransferCollateralOwnership"
	KindAssigned           = "ACOToken.Assigned"
	KindACOTransfer        = "ACOToken.Transfer"
	KindPoolTransfer       = "ACOPool.Transfer"
	KindPoolSwap           = "ACOPool.Swap"
	KindRestoreCollateral  = "ACOPool.RestoreCollateral"
	KindACORedeem          = "ACOPool.ACORedeem"
	KindDeposit            = "ACOPool.Deposit"
	KindWithdraw           = "ACOPool.Withdraw"
	KindSetAggregator      = "ACOAssetConverterHelper.SetAggregator"
	KindConfirmAggregator  = "AggregatorProxy.confirmAggregator"
	KindAnswerUpdated      = "AggregatorInterface.AnswerUpdated"
)

// callKinds are delivered from contract calls rather than logs.
var callKinds = map[string]bool{
	KindConfirmAggregator: true,
}

// Pool configuration event kinds.
const (
	KindSetStrategy                     = "ACOPool.SetStrategy"
	KindSetBaseVolatility               = "ACOPool.SetBaseVolatility"
	KindSetPoolAdmin                    = "ACOPool.SetPoolAdmin"
	KindSetFee                          = "ACOPool.SetFee"
	KindSetFeeDestination               = "ACOPool.SetFeeDestination"
	KindSetWithdrawOpenPositionPenalty  = "ACOPool.SetWithdrawOpenPositionPenalty"
	KindSetUnderlyingPriceAdjustPercent = "ACOPool.SetUnderlyingPriceAdjustPercentage"
	KindSetMaximumOpenACO               = "ACOPool.SetMaximumOpenAco"
	KindSetTolerancePriceAbove          = "ACOPool.SetTolerancePriceAbove"
	KindSetTolerancePriceBelow          = "ACOPool.SetTolerancePriceBelow"
	KindSetMinExpiration                = "ACOPool.SetMinExpiration"
	KindSetMaxExpiration                = "ACOPool.SetMaxExpiration"
	KindSetAssetConverter               = "ACOPool.SetAssetConverter"
	KindSetACOPermissionConfig          = "ACOPool.SetAcoPermissionConfig"
	KindSetProtocolConfig               = "ACOPool.SetProtocolConfig"
	KindSetLendingPoolReferral          = "ACOPool.SetLendingPoolReferral"
	KindSetValidACOCreator              = "ACOPool.SetValidAcoCreator"
	KindSetForbiddenACOCreator          = "ACOPool.SetForbiddenAcoCreator"
	KindSetImplementation               = "ACOPool.SetImplementation"
)

// NewACO is emitted by the option factory. Creator is nil on the
// deprecated event.
type NewACO struct {
	chain.Event
	Underlying     common.Address  `json:"underlying"`
	StrikeAsset    common.Address  `json:"strike_asset"`
	IsCall         bool            `json:"is_call"`
	StrikePrice    *big.Int        `json:"strike_price"`
	ExpiryTime     *big.Int        `json:"expiry_time"`
	ACOToken       common.Address  `json:"aco_token"`
	Implementation common.Address  `json:"aco_token_implementation"`
	Creator        *common.Address `json:"creator,omitempty"`
}

// NewPool is emitted by the pool factory.
type NewPool struct {
	chain.Event
	Underlying     common.Address `json:"underlying"`
	StrikeAsset    common.Address `json:"strike_asset"`
	IsCall         bool           `json:"is_call"`
	Pool           common.Address `json:"aco_pool"`
	Implementation common.Address `json:"aco_pool_implementation"`
}

// CollateralDeposit is a writer locking collateral in an option.
type CollateralDeposit struct {
	chain.Event
	Account common.Address `json:"account"`
	Amount  *big.Int       `json:"amount"`
}

// CollateralWithdraw is collateral leaving an option: a burn, a redeem, or
// the exercise payout of an assigned writer.
type CollateralWithdraw struct {
	chain.Event
	Account common.Address `json:"account"`
	Amount  *big.Int       `json:"amount"`
	Fee     *big.Int       `json:"fee"`
}

// TransferCollateralOwnership moves collateralized tokens between accounts.
type TransferCollateralOwnership struct {
	chain.Event
	From                      common.Address `json:"from"`
	To                        common.Address `json:"to"`
	TokenCollateralizedAmount *big.Int       `json:"token_collateralized_amount"`
}

// Assigned is one writer (From) assigned by an exerciser (To).
type Assigned struct {
	chain.Event
	From        common.Address `json:"from"`
	To          common.Address `json:"to"`
	PaidAmount  *big.Int       `json:"paid_amount"`
	TokenAmount *big.Int       `json:"token_amount"`
}

// Transfer is an ERC20 transfer of option tokens or pool shares.
type Transfer struct {
	chain.Event
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Value *big.Int       `json:"value"`
}

// PoolSwap is a pool selling options.
type PoolSwap struct {
	chain.Event
	Account         common.Address `json:"account"`
	ACOToken        common.Address `json:"aco_token"`
	TokenAmount     *big.Int       `json:"token_amount"`
	Price           *big.Int       `json:"price"`
	ProtocolFee     *big.Int       `json:"protocol_fee"`
	UnderlyingPrice *big.Int       `json:"underlying_price"`
	Volatility      *big.Int       `json:"volatility"`
}

// RestoreCollateral is a pool swapping its other asset back to collateral.
type RestoreCollateral struct {
	chain.Event
	AmountOut          *big.Int `json:"amount_out"`
	CollateralRestored *big.Int `json:"collateral_restored"`
}

// ACORedeem is a pool redeeming the collateral of an expired option.
type ACORedeem struct {
	chain.Event
	ACOToken           common.Address `json:"aco_token"`
	ValueSold          *big.Int       `json:"value_sold"`
	CollateralLocked   *big.Int       `json:"collateral_locked"`
	CollateralRedeemed *big.Int       `json:"collateral_redeemed"`
}

// Deposit is collateral entering a pool for shares.
type Deposit struct {
	chain.Event
	Account          common.Address `json:"account"`
	Shares           *big.Int       `json:"shares"`
	CollateralAmount *big.Int       `json:"collateral_amount"`
}

// Withdraw is shares leaving a pool for assets and open options.
type Withdraw struct {
	chain.Event
	Account              common.Address   `json:"account"`
	Shares               *big.Int         `json:"shares"`
	NoLocked             bool             `json:"no_locked"`
	UnderlyingWithdrawn  *big.Int         `json:"underlying_withdrawn"`
	StrikeAssetWithdrawn *big.Int         `json:"strike_asset_withdrawn"`
	ACOs                 []common.Address `json:"acos"`
	ACOsAmount           []*big.Int       `json:"acos_amount"`
}

// ValueChange is a pool setting changing between two integer values.
type ValueChange struct {
	chain.Event
	Old *big.Int `json:"old_value"`
	New *big.Int `json:"new_value"`
}

// AddressChange is a pool setting changing between two addresses.
type AddressChange struct {
	chain.Event
	Old common.Address `json:"old_value"`
	New common.Address `json:"new_value"`
}

// PermissionConfigChange is SetAcoPermissionConfig.
type PermissionConfigChange struct {
	chain.Event
	Old chain.PoolPermissionConfig `json:"old_config"`
	New chain.PoolPermissionConfig `json:"new_config"`
}

// ProtocolConfigChange is SetProtocolConfig.
type ProtocolConfigChange struct {
	chain.Event
	Old chain.PoolProtocolConfig `json:"old_config"`
	New chain.PoolProtocolConfig `json:"new_config"`
}

// CreatorPermission is SetValidAcoCreator or SetForbiddenAcoCreator.
type CreatorPermission struct {
	chain.Event
	Creator  common.Address `json:"creator"`
	Previous bool           `json:"previous"`
	New      bool           `json:"new"`
}

// SetAggregator is an asset converter pointing a pair at a new proxy.
type SetAggregator struct {
	chain.Event
	BaseAsset          common.Address `json:"base_asset"`
	QuoteAsset         common.Address `json:"quote_asset"`
	PreviousAggregator common.Address `json:"previous_aggregator"`
	NewAggregator      common.Address `json:"new_aggregator"`
}

// ConfirmAggregator is a call on a proxy switching its aggregator.
type ConfirmAggregator struct {
	chain.Event
	Aggregator common.Address `json:"aggregator"`
}

// AnswerUpdated is a new aggregator answer.
type AnswerUpdated struct {
	chain.Event
	Current   *big.Int `json:"current"`
	RoundID   *big.Int `json:"round_id"`
	UpdatedAt *big.Int `json:"updated_at"`
}
