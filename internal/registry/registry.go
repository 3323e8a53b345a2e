// Package registry records canonical transactions and guards contract
// registration so each address is announced to the host once.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/atmx/aco-indexer/internal/chain"
	"github.com/atmx/aco-indexer/internal/metrics"
	"github.com/atmx/aco-indexer/internal/model"
	"github.com/atmx/aco-indexer/internal/store"
)

// Registry deduplicates transactions and contract registrations.
type Registry struct {
	store     store.Store
	registrar chain.Registrar
}

// New creates a Registry.
func New(s store.Store, registrar chain.Registrar) *Registry {
	return &Registry{store: s, registrar: registrar}
}

// TransactionID returns the key of a transaction, scoped to a log when
// logIndex is set.
func TransactionID(hash string, logIndex *uint64) string {
	if logIndex == nil {
		return hash
	}
	return model.ID(hash, strconv.FormatUint(*logIndex, 10))
}

// GetOrCreateTransaction returns the id of the transaction record,
// creating it on first use. Existing records are never modified.
func (r *Registry) GetOrCreateTransaction(ctx context.Context, hash string, block, timestamp, index uint64, logIndex *uint64) (string, error) {
	id := TransactionID(hash, logIndex)

	existing, err := store.Load[model.Transaction](ctx, r.store, id)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return existing.ID, nil
	}

	tx := &model.Transaction{
		ID:        id,
		Hash:      hash,
		Block:     block,
		Timestamp: timestamp,
		Index:     index,
		LogIndex:  logIndex,
	}
	if err := store.Save(ctx, r.store, tx); err != nil {
		return "", err
	}
	return id, nil
}

// Transaction records the transaction enclosing ev.
func (r *Registry) Transaction(ctx context.Context, ev chain.Event) (string, error) {
	return r.GetOrCreateTransaction(ctx, ev.TxHash(), ev.Block.Number, ev.Block.Timestamp, ev.Tx.Index, nil)
}

// LogTransaction records the transaction enclosing ev, scoped to its log.
func (r *Registry) LogTransaction(ctx context.Context, ev chain.Event) (string, error) {
	logIndex := ev.LogIndex
	return r.GetOrCreateTransaction(ctx, ev.TxHash(), ev.Block.Number, ev.Block.Timestamp, ev.Tx.Index, &logIndex)
}

// RegisterContract emits a RegisterContract command for addr unless one
// was already emitted. It reports whether a command was sent.
func (r *Registry) RegisterContract(ctx context.Context, addr common.Address, template chain.Template, block uint64) (bool, error) {
	id := chain.HexID(addr)

	ok, err := store.Exists(ctx, r.store, model.KindRegisteredContract, id)
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}

	cmd := chain.RegisterContract{Address: addr, Template: template, Block: block}
	if err := r.registrar.Register(ctx, cmd); err != nil {
		return false, fmt.Errorf("register %s %s: %w", template, id, err)
	}
	rec := &model.RegisteredContract{ID: id, Template: string(template), Block: block}
	if err := store.Save(ctx, r.store, rec); err != nil {
		return false, err
	}

	metrics.ContractsRegistered.WithLabelValues(string(template)).Inc()
	slog.Debug("contract registered", "address", id, "template", template, "block", block)
	return true, nil
}
