package client

import (
	"context"
	"strings"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]Client
	byEmail map[string]string
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		byID:    make(map[string]Client),
		byEmail: make(map[string]string),
	}
}

func (r *memoryRepository) Create(_ context.Context, client Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[client.ID] = client
	r.byEmail[strings.ToLower(client.Email)] = client.ID
	return nil
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return Client{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.byID[id]
	if !ok {
		return Client{}, ErrNotFound
	}
	return client, nil
}
