package store

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"github.com/mosaic-network/walletx/pkg/asset"
)

// EventSink receives every record append, after in-process subscribers.
// Implementations must not block; delivery is best-effort.
type EventSink interface {
	RecordUpdated(category Category, r Record)
}

// Memory is the in-process Store implementation. Record appends and
// subscription registration serialize on one mutex, which is what makes
// subscriptions gap-free: once Subscribe returns, every later append is
// delivered. The metadata cache uses a concurrent map since cache-fills
// race freely with readers.
type Memory struct {
	logger *zap.Logger

	mu     sync.Mutex
	notes  map[Commitment]NoteRecord
	swaps  map[Commitment]SwapRecord
	txs    map[TxID]TxRecord
	subs   map[Category]map[*Subscription]struct{}
	prices []asset.EstimatedPrice

	metadata *xsync.Map[asset.ID, asset.Metadata]

	syncHeight    atomic.Uint64
	epochDuration atomic.Uint64

	sinks []EventSink
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store. Sinks, if any, observe every
// record append.
func NewMemory(logger *zap.Logger, sinks ...EventSink) *Memory {
	return &Memory{
		logger:   logger,
		notes:    make(map[Commitment]NoteRecord),
		swaps:    make(map[Commitment]SwapRecord),
		txs:      make(map[TxID]TxRecord),
		subs:     make(map[Category]map[*Subscription]struct{}),
		metadata: xsync.NewMap[asset.ID, asset.Metadata](),
		sinks:    sinks,
	}
}

// Subscribe opens a subscription for the category. The registration happens
// under the append lock, so no append can fall between Subscribe returning
// and the first Next.
func (m *Memory) Subscribe(category Category) *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.subs[category]
	if !ok {
		set = make(map[*Subscription]struct{})
		m.subs[category] = set
	}

	var sub *Subscription
	sub = newSubscription(func() {
		m.mu.Lock()
		delete(set, sub)
		m.mu.Unlock()
	})
	set[sub] = struct{}{}
	return sub
}

// CloseCategory terminates every open subscription for the category. The
// external sync path calls this when a category stream ends for good.
func (m *Memory) CloseCategory(category Category) {
	m.mu.Lock()
	subs := make([]*Subscription, 0, len(m.subs[category]))
	for sub := range m.subs[category] {
		subs = append(subs, sub)
	}
	m.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}

// publishLocked fans the event out to subscribers in append order. Caller
// holds m.mu.
func (m *Memory) publishLocked(category Category, r Record) {
	for sub := range m.subs[category] {
		sub.push(r)
	}
	for _, sink := range m.sinks {
		sink.RecordUpdated(category, r)
	}
}

func (m *Memory) PutNote(_ context.Context, n NoteRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes[n.Commitment] = n
	m.publishLocked(CategoryNotes, NoteEvent(n))
	return nil
}

func (m *Memory) PutSwap(_ context.Context, s SwapRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.swaps[s.Commitment] = s
	m.publishLocked(CategorySwaps, SwapEvent(s))
	return nil
}

func (m *Memory) PutTransaction(_ context.Context, t TxRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs[t.ID] = t
	m.publishLocked(CategoryTransactions, TxEvent(t))
	return nil
}

// IterateUnspentNotes returns a snapshot of all notes without a spent
// marker and with a nonzero amount. Iteration order is unspecified.
func (m *Memory) IterateUnspentNotes(_ context.Context) ([]NoteRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]NoteRecord, 0, len(m.notes))
	for _, n := range m.notes {
		if n.Spent() || n.Amount.IsZero() {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (m *Memory) NoteByCommitment(_ context.Context, c Commitment) (*NoteRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.notes[c]; ok {
		return &n, nil
	}
	return nil, nil
}

func (m *Memory) SwapByCommitment(_ context.Context, c Commitment) (*SwapRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.swaps[c]; ok {
		return &s, nil
	}
	return nil, nil
}

func (m *Memory) NoteByNullifier(_ context.Context, nf Nullifier) (*NoteRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notes {
		if n.Nullifier == nf {
			return &n, nil
		}
	}
	return nil, nil
}

func (m *Memory) SwapByNullifier(_ context.Context, nf Nullifier) (*SwapRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.swaps {
		if s.Nullifier == nf {
			return &s, nil
		}
	}
	return nil, nil
}

func (m *Memory) TransactionByID(_ context.Context, id TxID) (*TxRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.txs[id]; ok {
		return &t, nil
	}
	return nil, nil
}

func (m *Memory) AssetMetadata(_ context.Context, id asset.ID) (*asset.Metadata, error) {
	if md, ok := m.metadata.Load(id); ok {
		return &md, nil
	}
	return nil, nil
}

// SaveAssetMetadata is idempotent and safe to race: last write wins, and
// every write carries complete metadata.
func (m *Memory) SaveAssetMetadata(_ context.Context, md asset.Metadata) error {
	m.metadata.Store(md.ID, md)
	return nil
}

// PricesForAsset returns price observations for the asset within the
// recency window derived from epochDuration.
func (m *Memory) PricesForAsset(_ context.Context, md asset.Metadata, atHeight, epochDuration uint64) ([]asset.EstimatedPrice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []asset.EstimatedPrice
	for _, p := range m.prices {
		if p.PricedAsset != md.ID || p.Stale(atHeight, epochDuration) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *Memory) PutPrice(_ context.Context, p asset.EstimatedPrice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices = append(m.prices, p)
	return nil
}

// PrunePricesBelow drops observations older than the given height and
// returns how many were removed.
func (m *Memory) PrunePricesBelow(_ context.Context, height uint64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.prices[:0]
	for _, p := range m.prices {
		if p.AsOfHeight >= height {
			kept = append(kept, p)
		}
	}
	removed := len(m.prices) - len(kept)
	m.prices = kept
	return removed, nil
}

func (m *Memory) SyncHeight(_ context.Context) (uint64, error) {
	return m.syncHeight.Load(), nil
}

func (m *Memory) SetSyncHeight(_ context.Context, height uint64) error {
	m.syncHeight.Store(height)
	return nil
}

func (m *Memory) EpochDuration(_ context.Context) (uint64, error) {
	return m.epochDuration.Load(), nil
}

func (m *Memory) SetEpochDuration(_ context.Context, blocks uint64) error {
	m.epochDuration.Store(blocks)
	return nil
}

// Close terminates every open subscription.
func (m *Memory) Close() error {
	for _, category := range []Category{CategoryNotes, CategorySwaps, CategoryTransactions} {
		m.CloseCategory(category)
	}
	return nil
}
