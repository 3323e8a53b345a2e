package calldata

import "github.com/ethereum/go-ethereum/common"

// OTC swap selectors.
const (
	// SelectorOTCSwap settles a signed order; the seller is the signer.
	SelectorOTCSwap = "7da22e76"
	// SelectorOTCSwapSender settles an order the sender fills against itself.
	SelectorOTCSwapSender = "538df066"
)

// Argument word indexes of the fixed OTC layouts.
const (
	otcSellerWord       = 2
	otcAmountWord       = 10
	otcTokenWord        = 11
	otcSenderAmountWord = 3
	otcSenderTokenWord  = 4
)

// DecodeOTC reconstructs a trade sent to an OTC contract. The taker is the
// transaction sender and the buyer the transfer recipient.
func DecodeOTC(input []byte, txFrom common.Address, t Transfer) (Trade, error) {
	trade := Trade{Taker: txFrom, Buyer: t.To}

	var amountWord, tokenWord int
	switch Selector(input) {
	case SelectorOTCSwap:
		seller, err := wordAddress(input, otcSellerWord)
		if err != nil {
			return Trade{}, err
		}
		trade.Seller = seller
		amountWord, tokenWord = otcAmountWord, otcTokenWord
	case SelectorOTCSwapSender:
		trade.Seller = txFrom
		amountWord, tokenWord = otcSenderAmountWord, otcSenderTokenWord
	default:
		return Trade{}, ErrLayout
	}

	amount, err := wordUint(input, amountWord)
	if err != nil {
		return Trade{}, err
	}
	token, err := wordAddress(input, tokenWord)
	if err != nil {
		return Trade{}, err
	}
	trade.PaymentAmount = amount.ToBig()
	trade.PaymentToken = token
	return trade, nil
}
