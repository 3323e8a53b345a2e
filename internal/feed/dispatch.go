// Package feed connects the indexer to its host: decoded events arrive as
// JSON envelopes on a Redis stream, RegisterContract commands leave on
// another, and pool valuations are pushed to WebSocket clients.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/atmx/aco-indexer/internal/chain"
	"github.com/atmx/aco-indexer/internal/indexer"
)

// ErrMalformed marks an envelope that cannot be decoded. Redelivery cannot
// fix it, so the consumer acknowledges and drops it.
var ErrMalformed = errors.New("feed: malformed envelope")

// Envelope is one delivered event. Payload holds the event parameters
// alongside the chain.Event fields (address, log_index, block, tx).
type Envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// route decodes a payload into the event envelope and the bound handler.
type route func(raw json.RawMessage) (chain.Event, func(context.Context) error, error)

func on[T any](handle func(context.Context, T) error) route {
	return func(raw json.RawMessage) (chain.Event, func(context.Context) error, error) {
		var ev chain.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			return chain.Event{}, nil, err
		}
		var payload T
		if err := json.Unmarshal(raw, &payload); err != nil {
			return chain.Event{}, nil, err
		}
		return ev, func(ctx context.Context) error { return handle(ctx, payload) }, nil
	}
}

// Dispatcher routes envelopes to indexer handlers by kind.
type Dispatcher struct {
	ix     *indexer.Indexer
	routes map[string]route
}

// NewDispatcher binds every known event kind to its handler on ix.
func NewDispatcher(ix *indexer.Indexer) *Dispatcher {
	return &Dispatcher{
		ix: ix,
		routes: map[string]route{
			indexer.KindNewACO:             on(ix.HandleNewACO),
			indexer.KindNewACOData:         on(ix.HandleNewACO),
			indexer.KindNewPool:            on(ix.HandleNewPool),
			indexer.KindCollateralDeposit:  on(ix.HandleCollateralDeposit),
			indexer.KindCollateralWithdraw: on(ix.HandleCollateralWithdraw),
			indexer.KindTransferCollateral: on(ix.HandleTransferCollateralOwnership),
			indexer.KindAssigned:           on(ix.HandleAssigned),
			indexer.KindACOTransfer:        on(ix.HandleACOTransfer),
			indexer.KindPoolTransfer:       on(ix.HandlePoolTransfer),
			indexer.KindPoolSwap:           on(ix.HandlePoolSwap),
			indexer.KindRestoreCollateral:  on(ix.HandleRestoreCollateral),
			indexer.KindACORedeem:          on(ix.HandleACORedeem),
			indexer.KindDeposit:            on(ix.HandleDeposit),
			indexer.KindWithdraw:           on(ix.HandleWithdraw),
			indexer.KindSetAggregator:      on(ix.HandleSetAggregator),
			indexer.KindConfirmAggregator:  on(ix.HandleConfirmAggregator),
			indexer.KindAnswerUpdated:      on(ix.HandleAnswerUpdated),

			indexer.KindSetStrategy:                     on(ix.HandleSetStrategy),
			indexer.KindSetBaseVolatility:               on(ix.HandleSetBaseVolatility),
			indexer.KindSetPoolAdmin:                    on(ix.HandleSetPoolAdmin),
			indexer.KindSetFee:                          on(ix.HandleSetFee),
			indexer.KindSetFeeDestination:               on(ix.HandleSetFeeDestination),
			indexer.KindSetWithdrawOpenPositionPenalty:  on(ix.HandleSetWithdrawOpenPositionPenalty),
			indexer.KindSetUnderlyingPriceAdjustPercent: on(ix.HandleSetUnderlyingPriceAdjustPercentage),
			indexer.KindSetMaximumOpenACO:               on(ix.HandleSetMaximumOpenACO),
			indexer.KindSetTolerancePriceAbove:          on(ix.HandleSetTolerancePriceAbove),
			indexer.KindSetTolerancePriceBelow:          on(ix.HandleSetTolerancePriceBelow),
			indexer.KindSetMinExpiration:                on(ix.HandleSetMinExpiration),
			indexer.KindSetMaxExpiration:                on(ix.HandleSetMaxExpiration),
			indexer.KindSetAssetConverter:               on(ix.HandleSetAssetConverter),
			indexer.KindSetACOPermissionConfig:          on(ix.HandleSetACOPermissionConfig),
			indexer.KindSetProtocolConfig:               on(ix.HandleSetProtocolConfig),
			indexer.KindSetLendingPoolReferral:          on(ix.HandleSetLendingPoolReferral),
			indexer.KindSetValidACOCreator:              on(ix.HandleSetValidACOCreator),
			indexer.KindSetForbiddenACOCreator:          on(ix.HandleSetForbiddenACOCreator),
			indexer.KindSetImplementation:               on(ix.HandleSetImplementation),
		},
	}
}

// Handles reports whether kind has a handler.
func (d *Dispatcher) Handles(kind string) bool {
	_, ok := d.routes[kind]
	return ok
}

// Dispatch decodes one encoded envelope and processes it. Envelopes of
// unknown kinds are skipped. Handler errors are returned unchanged.
func (d *Dispatcher) Dispatch(ctx context.Context, data []byte) error {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	r, ok := d.routes[env.Kind]
	if !ok {
		slog.Warn("feed unknown event kind", "kind", env.Kind)
		return nil
	}
	ev, handle, err := r(env.Payload)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, env.Kind, err)
	}
	return d.ix.Process(ctx, env.Kind, ev, handle)
}
