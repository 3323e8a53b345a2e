package store

import (
	"context"
	"sync"
)

// Write is one buffered entity write.
type Write struct {
	Kind string
	ID   string
	Data []byte
}

// Batcher is implemented by stores that can apply several writes at once.
type Batcher interface {
	PutBatch(ctx context.Context, writes []Write) error
}

// PutAll applies writes to s, in one batch when s is a Batcher.
func PutAll(ctx context.Context, s Store, writes []Write) error {
	if len(writes) == 0 {
		return nil
	}
	if b, ok := s.(Batcher); ok {
		return b.PutBatch(ctx, writes)
	}
	for _, w := range writes {
		if err := s.Put(ctx, w.Kind, w.ID, w.Data); err != nil {
			return err
		}
	}
	return nil
}

// Overlay is a Store over a base store. Outside a unit of work it writes
// through. Between Begin and Commit it buffers writes and serves reads from
// the buffer first, so a failed unit leaves the base untouched.
type Overlay struct {
	base Store

	mu      sync.Mutex
	active  bool
	index   map[string]int
	pending []Write
}

// NewOverlay wraps base.
func NewOverlay(base Store) *Overlay {
	return &Overlay{base: base}
}

// Begin starts buffering. Any writes still pending are discarded.
func (o *Overlay) Begin() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reset()
	o.active = true
}

// Commit applies the buffered writes to the base and stops buffering.
// The buffer is dropped even when the base rejects it.
func (o *Overlay) Commit(ctx context.Context) error {
	o.mu.Lock()
	writes := o.pending
	o.reset()
	o.mu.Unlock()

	return PutAll(ctx, o.base, writes)
}

// Rollback drops the buffered writes and stops buffering.
func (o *Overlay) Rollback() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reset()
}

// Pending returns the number of buffered writes.
func (o *Overlay) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}

func (o *Overlay) reset() {
	o.active = false
	o.index = nil
	o.pending = nil
}

func (o *Overlay) Get(ctx context.Context, kind, id string) ([]byte, error) {
	o.mu.Lock()
	if i, ok := o.index[entityKey(kind, id)]; ok {
		data := append([]byte(nil), o.pending[i].Data...)
		o.mu.Unlock()
		return data, nil
	}
	o.mu.Unlock()
	return o.base.Get(ctx, kind, id)
}

func (o *Overlay) Put(ctx context.Context, kind, id string, data []byte) error {
	o.mu.Lock()
	if !o.active {
		o.mu.Unlock()
		return o.base.Put(ctx, kind, id, data)
	}
	defer o.mu.Unlock()

	w := Write{Kind: kind, ID: id, Data: append([]byte(nil), data...)}
	key := entityKey(kind, id)
	if i, ok := o.index[key]; ok {
		o.pending[i] = w
		return nil
	}
	if o.index == nil {
		o.index = make(map[string]int)
	}
	o.index[key] = len(o.pending)
	o.pending = append(o.pending, w)
	return nil
}
