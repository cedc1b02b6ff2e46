package client

import (
	"context"
	"sync"
	"time"
)

// StatusCache кеш результата проверки доступности сервера
type StatusCache struct {
	online    bool
	mu        sync.RWMutex
	ttl       time.Duration
	checkedAt time.Time
	now       func() time.Time
}

// NewStatusCache создает новый кеш
func NewStatusCache(ttl time.Duration) *StatusCache {
	return &StatusCache{
		ttl: ttl,
		now: time.Now,
	}
}

// Set сохраняет результат проверки
func (c *StatusCache) Set(online bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.online = online
	c.checkedAt = c.now()
}

// Get возвращает результат проверки, если он еще актуален
func (c *StatusCache) Get() (online bool, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.checkedAt.IsZero() || c.now().Sub(c.checkedAt) > c.ttl {
		return false, false
	}
	return c.online, true
}

// Clear сбрасывает кеш
func (c *StatusCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.online = false
	c.checkedAt = time.Time{}
}

// HealthProbe проверяет /api/health с ограниченным таймаутом
type HealthProbe struct {
	api     *APIClient
	timeout time.Duration
	cache   *StatusCache
}

// NewHealthProbe создает проверку доступности
func NewHealthProbe(api *APIClient, timeout, ttl time.Duration) *HealthProbe {
	return &HealthProbe{
		api:     api,
		timeout: timeout,
		cache:   NewStatusCache(ttl),
	}
}

// Online сообщает, отвечает ли сервер. Повторные вызовы в пределах TTL не ходят в сеть.
func (p *HealthProbe) Online(ctx context.Context) bool {
	if online, ok := p.cache.Get(); ok {
		return online
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	online := p.api.Health(ctx) == nil
	p.cache.Set(online)
	return online
}

// Reset забывает последний результат проверки
func (p *HealthProbe) Reset() {
	p.cache.Clear()
}
