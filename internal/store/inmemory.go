package store

import (
	"context"
	"sort"
	"sync"
)

type inMemoryStore struct {
	mu        sync.RWMutex
	wallets   map[string]Wallet
	purchases map[string][]Purchase
}

// NewInMemory creates a concurrency-safe in-memory store useful for unit tests.
func NewInMemory() Store {
	return &inMemoryStore{
		wallets:   make(map[string]Wallet),
		purchases: make(map[string][]Purchase),
	}
}

func (s *inMemoryStore) CreateWallet(_ context.Context, w Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.wallets[w.ID]; exists {
		return ErrWalletExists
	}
	s.wallets[w.ID] = w
	return nil
}

func (s *inMemoryStore) Wallet(_ context.Context, id string) (Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[id]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return w, nil
}

func (s *inMemoryStore) SaveWallet(_ context.Context, w Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(w)
}

func (s *inMemoryStore) SaveWalletAndPurchase(_ context.Context, w Wallet, p Purchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// The purchase is appended only after the balance write succeeds, so a
	// conflict leaves neither applied.
	if err := s.saveLocked(w); err != nil {
		return err
	}
	s.purchases[w.ID] = append(s.purchases[w.ID], p)
	return nil
}

func (s *inMemoryStore) PurchasesByWallet(_ context.Context, walletID string) ([]Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.wallets[walletID]; !ok {
		return nil, ErrWalletNotFound
	}
	records := make([]Purchase, len(s.purchases[walletID]))
	copy(records, s.purchases[walletID])
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

func (s *inMemoryStore) saveLocked(w Wallet) error {
	current, ok := s.wallets[w.ID]
	if !ok {
		return ErrWalletNotFound
	}
	if current.Version != w.Version {
		return ErrConflict
	}
	w.Version++
	s.wallets[w.ID] = w
	return nil
}
