package salewindow

import (
	"context"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
)

// PauseSwitch is the global halt. Every ledger operation checks it
// before doing anything else.
type PauseSwitch interface {
	IsPaused(ctx context.Context) (bool, error)
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
}

// MemoryPause is a process-local pause switch.
type MemoryPause struct {
	mu     sync.RWMutex
	paused bool
}

func NewMemoryPause() *MemoryPause {
	return &MemoryPause{}
}

func (p *MemoryPause) IsPaused(_ context.Context) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.paused, nil
}

func (p *MemoryPause) Pause(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
	return nil
}

func (p *MemoryPause) Resume(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = false
	return nil
}

const pauseKey = "salegate:paused"

// RedisPause shares the halt flag across replicas. The key's existence
// is what matters; the value is a marker.
type RedisPause struct {
	client *redis.Client
}

func NewRedisPause(client *redis.Client) *RedisPause {
	return &RedisPause{client: client}
}

func (p *RedisPause) IsPaused(ctx context.Context) (bool, error) {
	_, err := p.client.Get(ctx, pauseKey).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *RedisPause) Pause(ctx context.Context) error {
	return p.client.Set(ctx, pauseKey, "1", 0).Err()
}

func (p *RedisPause) Resume(ctx context.Context) error {
	return p.client.Del(ctx, pauseKey).Err()
}
