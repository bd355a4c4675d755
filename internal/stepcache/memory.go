package stepcache

import (
	"context"
	"sync"
)

type memoryCache struct {
	mu   sync.Mutex
	jobs map[string]map[string]string
}

// NewMemoryCache is an in-process Cache used in tests and single-node setups.
func NewMemoryCache() Cache {
	return &memoryCache{jobs: make(map[string]map[string]string)}
}

func (c *memoryCache) Get(ctx context.Context, jobKey, step string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	steps, ok := c.jobs[jobKey]
	if !ok {
		return "", false, nil
	}
	result, ok := steps[step]
	return result, ok, nil
}

func (c *memoryCache) Set(ctx context.Context, jobKey, step, result string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.jobs[jobKey] == nil {
		c.jobs[jobKey] = make(map[string]string)
	}
	c.jobs[jobKey][step] = result
	return nil
}

func (c *memoryCache) Clear(ctx context.Context, jobKey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.jobs, jobKey)
	return nil
}
