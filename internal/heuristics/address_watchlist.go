package heuristics

import (
	"strings"
	"sync"
	"time"

	"github.com/rawblock/solsecurity/pkg/models"
)

// Known-Duster Watchlist
//
// Concurrent-safe set of wallets known to run dusting campaigns. Every
// transaction in which the subject wallet receives funds is checked
// against it; a single known sender marks the whole transaction.
//
// Performance: O(1) lookup using map-based set.
// Concurrency: sync.RWMutex, reads during checks, writes on reload.
// Membership is exact; duster lists are published in canonical base58.

// WatchedDuster holds metadata for a listed wallet
type WatchedDuster struct {
	Address string    `json:"address"`
	Source  string    `json:"source"` // "flipside", "fallback", "config"
	AddedAt time.Time `json:"addedAt"`
}

// DusterWatchlist is a concurrent-safe known-duster set
type DusterWatchlist struct {
	mu        sync.RWMutex
	addresses map[string]WatchedDuster
}

// NewDusterWatchlist creates a new empty watchlist
func NewDusterWatchlist() *DusterWatchlist {
	return &DusterWatchlist{
		addresses: make(map[string]WatchedDuster),
	}
}

// Add registers a duster wallet; blank addresses are ignored
func (w *DusterWatchlist) Add(addr, source string) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	w.addresses[addr] = WatchedDuster{
		Address: addr,
		Source:  source,
		AddedAt: time.Now(),
	}
}

// LoadAddresses adds every address from one source
func (w *DusterWatchlist) LoadAddresses(addrs []string, source string) {
	for _, a := range addrs {
		w.Add(a, source)
	}
}

// Contains checks if an address is a known duster (O(1))
func (w *DusterWatchlist) Contains(addr string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, exists := w.addresses[addr]
	return exists
}

// CheckTransfers groups the wallet's incoming transfers by transaction and
// flags every transaction with at least one known-duster sender. Output
// follows first-seen transaction order.
func (w *DusterWatchlist) CheckTransfers(wallet string, transfers []models.Transfer) []models.DusterHit {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var order []string
	bySig := make(map[string]*models.DusterHit)

	for _, t := range transfers {
		if !SameAddress(t.To, wallet) || SameAddress(t.From, wallet) {
			continue
		}
		hit, ok := bySig[t.Signature]
		if !ok {
			hit = &models.DusterHit{Signature: t.Signature, Senders: []string{}}
			bySig[t.Signature] = hit
			order = append(order, t.Signature)
		}
		hit.Senders = append(hit.Senders, t.From)
		if _, listed := w.addresses[t.From]; listed {
			hit.IsDusting = true
		}
	}

	hits := make([]models.DusterHit, 0, len(order))
	for _, sig := range order {
		hits = append(hits, *bySig[sig])
	}
	return hits
}

// Size returns the number of listed wallets
func (w *DusterWatchlist) Size() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.addresses)
}

// ListAll returns all listed wallets
func (w *DusterWatchlist) ListAll() []WatchedDuster {
	w.mu.RLock()
	defer w.mu.RUnlock()

	list := make([]WatchedDuster, 0, len(w.addresses))
	for _, entry := range w.addresses {
		list = append(list, entry)
	}
	return list
}
