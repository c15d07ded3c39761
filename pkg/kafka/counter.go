package kafka

import (
	"context"
	"sync"
)

// MemoryAttemptCounter 是未配置 Redis 时使用的进程内计数器，重启后计数丢失。
type MemoryAttemptCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

// NewMemoryAttemptCounter 创建一个进程内计数器。
func NewMemoryAttemptCounter() *MemoryAttemptCounter {
	return &MemoryAttemptCounter{counts: make(map[string]int64)}
}

func (c *MemoryAttemptCounter) Incr(_ context.Context, id string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[id]++
	return c.counts[id], nil
}

func (c *MemoryAttemptCounter) Reset(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counts, id)
	return nil
}
