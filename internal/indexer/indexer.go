// Package indexer applies decoded contract events to the entity store.
//
// Handlers run strictly one at a time in delivery order. Each handler may
// issue contract reads, which are pinned to the event's block.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/atmx/aco-indexer/internal/activeset"
	"github.com/atmx/aco-indexer/internal/chain"
	"github.com/atmx/aco-indexer/internal/config"
	"github.com/atmx/aco-indexer/internal/metrics"
	"github.com/atmx/aco-indexer/internal/model"
	"github.com/atmx/aco-indexer/internal/registry"
	"github.com/atmx/aco-indexer/internal/resolver"
	"github.com/atmx/aco-indexer/internal/store"
	"github.com/atmx/aco-indexer/internal/valuation"
)

// Indexer owns the handler pipeline. Process serializes all handlers.
type Indexer struct {
	store     *store.Overlay
	held      *heldValuations
	reader    chain.Reader
	registry  *registry.Registry
	resolver  *resolver.Resolver
	valuation *valuation.Engine
	active    *activeset.Set
	network   config.Network

	factoryID string
	mu        sync.Mutex
}

// New wires an Indexer and its collaborators. listener may be nil.
func New(s store.Store, reader chain.Reader, registrar chain.Registrar, network config.Network, listener valuation.Listener) *Indexer {
	ov := store.NewOverlay(s)
	held := &heldValuations{next: listener}
	reg := registry.New(ov, registrar)
	res := resolver.New(ov, reader, reg, network)
	factoryID := chain.HexID(network.ACOPoolFactory)
	active := activeset.New(ov, factoryID)
	return &Indexer{
		store:     ov,
		held:      held,
		reader:    reader,
		registry:  reg,
		resolver:  res,
		valuation: valuation.New(ov, reader, res, active, network, held),
		active:    active,
		network:   network,
		factoryID: factoryID,
	}
}

// EventID is the key a delivered event is deduplicated under. Call
// kinds carry no log of their own, so their key is scoped by kind to stay
// clear of the logs of the same transaction.
func EventID(kind string, ev chain.Event) string {
	if callKinds[kind] {
		return model.ID(ev.TxHash(), kind, chain.HexID(ev.Address), logIndex(ev))
	}
	return model.ID(ev.TxHash(), logIndex(ev))
}

func logIndex(ev chain.Event) string {
	return strconv.FormatUint(ev.LogIndex, 10)
}

// Process runs handle for ev unless ev was already processed. Contract
// reads made by handle are pinned to ev's block. The writes of handle are
// committed together with the processed marker, and only if handle
// succeeds, so a failed event leaves no trace and a redelivered event is a
// no-op.
func (x *Indexer) Process(ctx context.Context, kind string, ev chain.Event, handle func(context.Context) error) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	id := EventID(kind, ev)
	done, err := store.Exists(ctx, x.store, model.KindProcessedEvent, id)
	if err != nil {
		return err
	}
	if done {
		metrics.EventsTotal.WithLabelValues(kind, "duplicate").Inc()
		return nil
	}

	x.store.Begin()
	x.held.hold()
	defer x.held.drop()

	start := time.Now()
	err = handle(chain.WithBlock(ctx, ev.Block.Number))
	metrics.HandlerLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		x.store.Rollback()
		metrics.EventsTotal.WithLabelValues(kind, "error").Inc()
		slog.Error("handler failed", "kind", kind, "tx", ev.TxHash(), "log_index", ev.LogIndex, "err", err)
		return err
	}

	marker := &model.ProcessedEvent{ID: id, Kind: kind, Block: ev.Block.Number}
	if err := store.Save(ctx, x.store, marker); err != nil {
		x.store.Rollback()
		return err
	}
	if err := x.store.Commit(ctx); err != nil {
		metrics.EventsTotal.WithLabelValues(kind, "error").Inc()
		return fmt.Errorf("commit %s: %w", id, err)
	}
	x.held.release()
	metrics.EventsTotal.WithLabelValues(kind, "ok").Inc()
	return nil
}

// heldValuations delays valuation notifications of an event until its
// writes are committed. Outside Process it passes them straight on.
type heldValuations struct {
	next    valuation.Listener
	holding bool
	queue   []*model.PoolDynamicData
}

func (h *heldValuations) PoolValued(data *model.PoolDynamicData) {
	if h.next == nil {
		return
	}
	if h.holding {
		h.queue = append(h.queue, data)
		return
	}
	h.next.PoolValued(data)
}

func (h *heldValuations) hold() { h.holding = true }

func (h *heldValuations) release() {
	queue := h.queue
	h.drop()
	for _, data := range queue {
		h.next.PoolValued(data)
	}
}

func (h *heldValuations) drop() {
	h.holding = false
	h.queue = nil
}

// tolerate maps a reverted read to its zero value and counts it.
func tolerate[T any](v T, err error, method string) (T, error) {
	if err == nil {
		return v, nil
	}
	if chain.Reverted(err) {
		metrics.RevertedReads.WithLabelValues(method).Inc()
		var zero T
		return zero, nil
	}
	return v, err
}

// optional reports whether a read succeeded, treating a revert as absent.
func optional(err error, method string) (bool, error) {
	if err == nil {
		return true, nil
	}
	if chain.Reverted(err) {
		metrics.RevertedReads.WithLabelValues(method).Inc()
		return false, nil
	}
	return false, err
}

// decimals returns the decimals of the token with id.
func (x *Indexer) decimals(ctx context.Context, tokenID string) (int32, error) {
	tok, err := x.resolver.TokenByID(ctx, tokenID)
	if err != nil {
		return 0, err
	}
	return tok.Decimals, nil
}

func hexOrEmpty(addr common.Address) string {
	if addr == chain.ZeroAddress {
		return ""
	}
	return chain.HexID(addr)
}

// u64 reads a raw uint that must fit 64 bits, such as a timestamp.
func u64(v *big.Int) uint64 {
	if v == nil || !v.IsUint64() {
		return 0
	}
	return v.Uint64()
}

// addRaw sums raw amounts, treating nil as zero.
func addRaw(vs ...*big.Int) *big.Int {
	sum := new(big.Int)
	for _, v := range vs {
		if v != nil {
			sum.Add(sum, v)
		}
	}
	return sum
}
