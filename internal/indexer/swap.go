package indexer

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/atmx/aco-indexer/internal/calldata"
	"github.com/atmx/aco-indexer/internal/chain"
	"github.com/atmx/aco-indexer/internal/metrics"
	"github.com/atmx/aco-indexer/internal/model"
	"github.com/atmx/aco-indexer/internal/numeric"
	"github.com/atmx/aco-indexer/internal/store"
)

// trade is a reconstructed swap with its payment still raw. size is the
// raw ACO amount of the trade when it covers only part of the transfer,
// and fill tells the fills of one transfer apart.
type trade struct {
	kind string
	size *big.Int
	fill string
	calldata.Trade
}

// recordTransferSwap attributes an ACO transfer settled by a known exchange
// to its counterparties. Provenance is best effort: calldata that does not
// decode leaves the transfer without a swap record.
func (x *Indexer) recordTransferSwap(ctx context.Context, ev Transfer, aco *model.ACOToken, tokens decimal.Decimal) error {
	if ev.Tx.To == nil || ev.From == chain.ZeroAddress || ev.To == chain.ZeroAddress {
		return nil
	}

	trades, err := x.decodeTrades(ev)
	if errors.Is(err, calldata.ErrLayout) {
		slog.Debug("swap provenance not decoded", "aco", aco.ID, "tx", ev.TxHash(), "to", ev.Tx.To.Hex())
		return nil
	}
	if err != nil {
		return err
	}

	for _, t := range trades {
		if err := x.saveTransferSwap(ctx, ev, aco, tokens, t); err != nil {
			return err
		}
	}
	return nil
}

// decodeTrades routes the enclosing transaction to the decoder of the
// exchange it was sent to. Unknown targets yield no trades.
func (x *Indexer) decodeTrades(ev Transfer) ([]trade, error) {
	input := []byte(ev.Tx.Input)
	t := calldata.Transfer{From: ev.From, To: ev.To, Value: ev.Value}
	net := x.network

	switch {
	case ev.SentTo(net.ZRXExchange):
		tr, err := calldata.DecodeZRX(input, t)
		return single(model.SwapTypeZRX, tr, err)
	case ev.SentTo(net.Writer):
		tr, err := calldata.DecodeWriter(input, ev.Tx.From, t)
		return single(model.SwapTypeZRX, tr, err)
	case ev.SentTo(net.OTCV1), ev.SentTo(net.OTCV2):
		tr, err := calldata.DecodeOTC(input, ev.Tx.From, t)
		return single(model.SwapTypeOTC, tr, err)
	case ev.SentTo(net.ZRXV4Exchange):
		fills, err := calldata.DecodeV4(input)
		if err != nil {
			return nil, err
		}
		return directFill(ev, fills), nil
	case ev.SentTo(net.Buyer) && ev.From == net.Buyer:
		fills, err := calldata.DecodeV4Nested(input)
		if err != nil {
			return nil, err
		}
		return buyerFills(ev, fills), nil
	}
	return nil, nil
}

func single(kind string, t calldata.Trade, err error) ([]trade, error) {
	if err != nil {
		return nil, err
	}
	return []trade{{kind: kind, Trade: t}}, nil
}

// fillSize returns the ACO amount a fill moved and what was paid for it,
// both raw. ok is false when the fill does not trade aco or is unpriced.
func fillSize(aco common.Address, f calldata.Fill) (size, paid *big.Int, payToken common.Address, ok bool) {
	if f.TakerAmount == nil || f.TakerAmount.Sign() == 0 || f.MakerAmount == nil || f.TakerFillAmount == nil {
		return nil, nil, common.Address{}, false
	}
	scaled := new(big.Int).Mul(f.TakerFillAmount, f.MakerAmount)
	scaled.Quo(scaled, f.TakerAmount)
	switch aco {
	case f.MakerToken:
		// Taker buys options: receives maker tokens, pays the fill.
		return scaled, f.TakerFillAmount, f.TakerToken, true
	case f.TakerToken:
		// Taker sells options: pays the fill, receives maker tokens.
		return f.TakerFillAmount, scaled, f.MakerToken, true
	}
	return nil, nil, common.Address{}, false
}

// directFill selects the first fill whose size equals the transfer.
func directFill(ev Transfer, fills []calldata.Fill) []trade {
	for _, f := range fills {
		size, paid, token, ok := fillSize(ev.Address, f)
		if !ok || ev.Value == nil || size.Cmp(ev.Value) != 0 {
			continue
		}
		return []trade{{kind: model.SwapTypeZRXV4, size: size, Trade: calldata.Trade{
			Seller:        ev.From,
			Buyer:         ev.To,
			Taker:         ev.Tx.From,
			PaymentToken:  token,
			PaymentAmount: paid,
		}}}
	}
	return nil
}

// buyerFills turns every fill of a buyer proxy call into its own trade,
// with the maker as seller and the fill's ACO amount as size.
func buyerFills(ev Transfer, fills []calldata.Fill) []trade {
	var out []trade
	for k, f := range fills {
		size, paid, token, ok := fillSize(ev.Address, f)
		if !ok {
			continue
		}
		out = append(out, trade{kind: model.SwapTypeZRXV4, size: size, fill: strconv.Itoa(k), Trade: calldata.Trade{
			Seller:        f.Maker,
			Buyer:         ev.To,
			Taker:         ev.Tx.From,
			PaymentToken:  token,
			PaymentAmount: paid,
		}})
	}
	return out
}

// saveTransferSwap persists t once. Replays of the same transfer find the
// record and leave the counters alone.
func (x *Indexer) saveTransferSwap(ctx context.Context, ev Transfer, aco *model.ACOToken, tokens decimal.Decimal, t trade) error {
	if t.PaymentAmount == nil {
		return nil
	}
	payment, err := x.resolver.Token(ctx, t.PaymentToken)
	if err != nil {
		return err
	}
	amount := tokens
	if t.size != nil {
		amount = numeric.ToDecimal(t.size, aco.Decimals)
	}
	seller, buyer := chain.HexID(t.Seller), chain.HexID(t.Buyer)
	id := model.ID(aco.ID, seller, buyer, ev.TxHash(), logIndex(ev.Event))
	if t.fill != "" {
		id = model.ID(id, t.fill)
	}
	swap := &model.ACOSwap{
		ID:            id,
		ACO:           aco.ID,
		Seller:        seller,
		Buyer:         buyer,
		Taker:         chain.HexID(t.Taker),
		Type:          t.kind,
		PaymentToken:  payment.ID,
		PaymentAmount: numeric.ToDecimal(t.PaymentAmount, payment.Decimals),
		ACOAmount:     amount,
	}
	_, err = x.saveSwap(ctx, ev.Event, aco, swap)
	return err
}

// saveSwap stores swap unless it exists and counts it on aco. It reports
// whether the swap was created. The caller saves aco.
func (x *Indexer) saveSwap(ctx context.Context, ev chain.Event, aco *model.ACOToken, swap *model.ACOSwap) (bool, error) {
	exists, err := store.Exists(ctx, x.store, model.KindACOSwap, swap.ID)
	if err != nil || exists {
		return false, err
	}
	txID, err := x.registry.LogTransaction(ctx, ev)
	if err != nil {
		return false, err
	}
	swap.Tx = txID
	if err := store.Save(ctx, x.store, swap); err != nil {
		return false, err
	}
	aco.SwapsCount++
	aco.LastSwapID = swap.ID
	metrics.SwapsRecorded.WithLabelValues(swap.Type).Inc()
	return true, nil
}
