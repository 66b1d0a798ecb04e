package engine

import (
	"sync"

	"matchcore/internal/money"
)

// SymbolStats is the per-symbol breakdown of Stats.
type SymbolStats struct {
	OrdersReceived int64
	OrdersAccepted int64
	OrdersRejected int64
	TradesEmitted  int64
	TotalVolume    money.Decimal
}

// Stats is the engine-wide statistics snapshot.
type Stats struct {
	OrdersReceived int64
	OrdersAccepted int64
	OrdersRejected int64
	TradesEmitted  int64
	TotalVolume    money.Decimal
	PerSymbol      map[string]SymbolStats
}

// statsTracker accumulates engine-wide and per-symbol counters under one
// guard; it is deliberately separate from the per-symbol book guards
// since statistics span symbols.
type statsTracker struct {
	mu        sync.Mutex
	totals    Stats
	perSymbol map[string]*SymbolStats
}

func newStatsTracker() *statsTracker {
	return &statsTracker{
		totals:    Stats{TotalVolume: money.Zero, PerSymbol: map[string]SymbolStats{}},
		perSymbol: make(map[string]*SymbolStats),
	}
}

func (s *statsTracker) symbol(sym string) *SymbolStats {
	st, ok := s.perSymbol[sym]
	if !ok {
		st = &SymbolStats{TotalVolume: money.Zero}
		s.perSymbol[sym] = st
	}
	return st
}

func (s *statsTracker) recordReceived(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totals.OrdersReceived++
	s.symbol(symbol).OrdersReceived++
}

func (s *statsTracker) recordAccepted(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totals.OrdersAccepted++
	s.symbol(symbol).OrdersAccepted++
}

func (s *statsTracker) recordRejected(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totals.OrdersRejected++
	s.symbol(symbol).OrdersRejected++
}

func (s *statsTracker) recordTrades(symbol string, count int, volume money.Decimal) {
	if count == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totals.TradesEmitted += int64(count)
	s.totals.TotalVolume = s.totals.TotalVolume.Add(volume)
	sym := s.symbol(symbol)
	sym.TradesEmitted += int64(count)
	sym.TotalVolume = sym.TotalVolume.Add(volume)
}

// snapshot returns a defensive copy of the current totals.
func (s *statsTracker) snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.totals
	out.PerSymbol = make(map[string]SymbolStats, len(s.perSymbol))
	for sym, st := range s.perSymbol {
		out.PerSymbol[sym] = *st
	}
	return out
}
