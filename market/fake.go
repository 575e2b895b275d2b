package market

import (
	"context"
	"fmt"
	"sync"
)

// FakeBackend serves canned snapshots. Symbols without an entry are invalid.
type FakeBackend struct {
	Snapshots map[string]Snapshot
	// Err, when set, is returned for every lookup.
	Err error

	mu    sync.Mutex
	calls int
}

func (f *FakeBackend) Lookup(_ context.Context, symbol string, r DateRange) (*Snapshot, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	symbol = NormalizeSymbol(symbol)
	snap, ok := f.Snapshots[symbol]
	if !ok {
		return nil, fmt.Errorf("%s: %w", symbol, ErrInvalidSymbol)
	}

	var history []PricePoint
	for _, p := range snap.History {
		if p.Date.Before(r.Start) || p.Date.After(r.End) {
			continue
		}
		history = append(history, p)
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("%s %s: %w", symbol, r, ErrNoData)
	}
	snap.Symbol = symbol
	snap.History = history
	return &snap, nil
}

// Calls returns the number of lookups served so far.
func (f *FakeBackend) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
