package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/barterhub/barterhub/internal/domain/trade"
)

type tradeEntry struct {
	mu    sync.Mutex
	trade *trade.Trade
}

// TradeStore is an in-process trade.Repository. Each trade has its own mutex, so
// Mutate serializes writers per trade while different trades proceed in parallel.
// Callers always receive copies.
type TradeStore struct {
	mu     sync.RWMutex
	seq    int64
	trades map[uuid.UUID]*tradeEntry
	events map[uuid.UUID][]*trade.Event
}

func NewTradeStore() *TradeStore {
	return &TradeStore{
		trades: make(map[uuid.UUID]*tradeEntry),
		events: make(map[uuid.UUID][]*trade.Event),
	}
}

func (s *TradeStore) Create(ctx context.Context, t *trade.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.trades[t.TradeID]; exists {
		return trade.Validationf("trade %s already exists", t.TradeID)
	}
	s.seq++
	t.ID = s.seq
	s.trades[t.TradeID] = &tradeEntry{trade: t.Clone()}
	return nil
}

func (s *TradeStore) GetByID(ctx context.Context, tradeID uuid.UUID) (*trade.Trade, error) {
	e := s.entry(tradeID)
	if e == nil {
		return nil, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.trade.Clone(), nil
}

func (s *TradeStore) List(ctx context.Context, filter trade.Filter, limit, offset int) ([]*trade.Trade, error) {
	s.mu.RLock()
	entries := make([]*tradeEntry, 0, len(s.trades))
	for _, e := range s.trades {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	var out []*trade.Trade
	for _, e := range entries {
		e.mu.Lock()
		if filter.Matches(e.trade) {
			out = append(out, e.trade.Clone())
		}
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return page(out, limit, offset), nil
}

func (s *TradeStore) Mutate(ctx context.Context, tradeID uuid.UUID, fn trade.MutateFunc) (*trade.Trade, error) {
	e := s.entry(tradeID)
	if e == nil {
		return nil, trade.ErrTradeNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	working := e.trade.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	e.trade = working
	return working.Clone(), nil
}

func (s *TradeStore) CreateEvent(ctx context.Context, event *trade.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	event.ID = s.seq
	cp := *event
	s.events[event.TradeID] = append(s.events[event.TradeID], &cp)
	return nil
}

func (s *TradeStore) ListEvents(ctx context.Context, tradeID uuid.UUID, limit, offset int) ([]*trade.Event, error) {
	s.mu.RLock()
	src := s.events[tradeID]
	out := make([]*trade.Event, 0, len(src))
	for _, ev := range src {
		cp := *ev
		out = append(out, &cp)
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return page(out, limit, offset), nil
}

func (s *TradeStore) entry(tradeID uuid.UUID) *tradeEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trades[tradeID]
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
