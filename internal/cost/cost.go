// Package cost prices provider calls, tracks spend within one cascade and
// estimates batch spend.
package cost

import (
	"sort"
	"sync"
)

// Table holds the per-call price of each provider.
type Table map[string]float64

// PerCall returns the price of one call to provider. Unknown providers are free.
func (t Table) PerCall(provider string) float64 {
	return t[provider]
}

// Ledger accumulates the charged calls of one run. Only successful calls are
// charged; failed calls never reach the ledger.
type Ledger struct {
	mu      sync.Mutex
	table   Table
	total   float64
	byName  map[string]float64
	charges int
}

// NewLedger creates an empty ledger priced by table.
func NewLedger(table Table) *Ledger {
	return &Ledger{table: table, byName: make(map[string]float64)}
}

// Charge records one successful call to provider and returns its price.
func (l *Ledger) Charge(provider string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := l.table.PerCall(provider)
	l.total += c
	l.byName[provider] += c
	l.charges++
	return c
}

// Total returns the accumulated spend.
func (l *Ledger) Total() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// Charges returns the number of charged calls.
func (l *Ledger) Charges() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.charges
}

// ByProvider returns a copy of spend per provider.
func (l *Ledger) ByProvider() map[string]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]float64, len(l.byName))
	for k, v := range l.byName {
		out[k] = v
	}
	return out
}

// Estimate is the spend range for a batch.
type Estimate struct {
	Contacts  int     `json:"contacts"`
	BestCase  float64 `json:"best_case"`
	WorstCase float64 `json:"worst_case"`
	// PerContactWorst is the price of a cascade that tries every allowed provider.
	PerContactWorst float64 `json:"per_contact_worst"`
}

// EstimateBatch returns the spend range for n contacts over the service order.
// The best case stops at the first provider. The worst case pays for the
// maxProviders most expensive providers in the order.
func EstimateBatch(n int, order []string, table Table, maxProviders int) Estimate {
	est := Estimate{Contacts: n}
	if n <= 0 || len(order) == 0 {
		return est
	}
	if maxProviders <= 0 || maxProviders > len(order) {
		maxProviders = len(order)
	}

	prices := make([]float64, 0, len(order))
	for _, name := range order {
		prices = append(prices, table.PerCall(name))
	}
	first := prices[0]
	sort.Sort(sort.Reverse(sort.Float64Slice(prices)))

	var worst float64
	for _, p := range prices[:maxProviders] {
		worst += p
	}

	est.BestCase = first * float64(n)
	est.PerContactWorst = worst
	est.WorstCase = worst * float64(n)
	return est
}
