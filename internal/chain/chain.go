// Package chain holds the blockchain-facing types shared by the indexer:
// the event envelope delivered by the host, the read-only contract call
// interfaces, and the contract registration command.
package chain

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ZeroAddress is the mint/burn sentinel and the ETH placeholder token.
var ZeroAddress = common.Address{}

// Block is the block an event was emitted in.
type Block struct {
	Number    uint64 `json:"number"`
	Timestamp uint64 `json:"timestamp"`
}

// Tx is the transaction enclosing an event.
type Tx struct {
	Hash  common.Hash     `json:"hash"`
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to,omitempty"`
	Input hexutil.Bytes   `json:"input"`
	Index uint64          `json:"index"`
}

// Event is the envelope common to every decoded event or call.
type Event struct {
	Address  common.Address `json:"address"`
	LogIndex uint64         `json:"log_index"`
	Block    Block          `json:"block"`
	Tx       Tx             `json:"tx"`
}

// ID returns the lowercase hex id of the emitting contract.
func (e Event) ID() string { return HexID(e.Address) }

// TxHash returns the lowercase hex transaction hash.
func (e Event) TxHash() string { return strings.ToLower(e.Tx.Hash.Hex()) }

// SentTo reports whether the enclosing transaction targeted addr.
func (e Event) SentTo(addr common.Address) bool {
	return e.Tx.To != nil && *e.Tx.To == addr
}

// HexID formats an address as an entity id.
func HexID(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

type blockKey struct{}

// WithBlock scopes contract reads made with ctx to the state at block n.
func WithBlock(ctx context.Context, n uint64) context.Context {
	return context.WithValue(ctx, blockKey{}, n)
}

// BlockFrom returns the block set by WithBlock.
func BlockFrom(ctx context.Context) (uint64, bool) {
	n, ok := ctx.Value(blockKey{}).(uint64)
	return n, ok
}
