package utils

import (
	"sync"
	"time"
)

// TTLCache 并发安全的过期缓存
// 使用 sync.Map，读取时懒删除过期项
type TTLCache[V any] struct {
	items sync.Map
	ttl   time.Duration
	now   func() time.Time
}

// cacheItem 内部结构，包含值和过期时间
type cacheItem[V any] struct {
	value      V
	expiration time.Time
}

// NewTTLCache ttl <= 0 表示永不过期
func NewTTLCache[V any](ttl time.Duration) *TTLCache[V] {
	return &TTLCache[V]{ttl: ttl, now: time.Now}
}

// Set 设置缓存
func (c *TTLCache[V]) Set(key string, value V) {
	var exp time.Time
	if c.ttl > 0 {
		exp = c.now().Add(c.ttl)
	}
	c.items.Store(key, cacheItem[V]{value: value, expiration: exp})
}

// Get 获取缓存并验证是否过期
func (c *TTLCache[V]) Get(key string) (V, bool) {
	var zero V
	val, ok := c.items.Load(key)
	if !ok {
		return zero, false
	}

	item := val.(cacheItem[V])
	if !item.expiration.IsZero() && c.now().After(item.expiration) {
		c.items.Delete(key) // 懒删除
		return zero, false
	}
	return item.value, true
}

// GetOrCreate 命中直接返回，否则调用 build 并写入
func (c *TTLCache[V]) GetOrCreate(key string, build func() V) V {
	if v, ok := c.Get(key); ok {
		return v
	}
	v := build()
	c.Set(key, v)
	return v
}

// Delete 删除缓存
func (c *TTLCache[V]) Delete(key string) {
	c.items.Delete(key)
}
