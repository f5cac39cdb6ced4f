package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

var _ Cache[int] = (*LRUCache[int])(nil)

// LRUCache holds at most capacity values. The least recently read value
// goes first when it is full, and values older than ttl read as missing.
type LRUCache[T any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time

	// order runs from most to least recently used; index points into it.
	order *list.List
	index map[string]*list.Element
}

type entry[T any] struct {
	key     string
	value   T
	expires time.Time
}

func NewLRUCache[T any](capacity int, ttl time.Duration) *LRUCache[T] {
	return &LRUCache[T]{
		capacity: max(capacity, 1),
		ttl:      ttl,
		now:      time.Now,
		order:    list.New(),
		index:    map[string]*list.Element{},
	}
}

func (c *LRUCache[T]) Get(key string) (value T, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, found := c.index[key]
	if !found {
		return value, false
	}
	e := el.Value.(*entry[T])
	if c.expired(e) {
		c.drop(el)
		return value, false
	}
	c.order.MoveToFront(el)
	return e.value, true
}

func (c *LRUCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry[T]{key: key, value: value, expires: c.now().Add(c.ttl)}
	if el, found := c.index[key]; found {
		el.Value = e
		c.order.MoveToFront(el)
		return
	}
	c.index[key] = c.order.PushFront(e)
	for c.order.Len() > c.capacity {
		c.drop(c.order.Back())
	}
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, found := c.index[key]; found {
		c.drop(el)
	}
}

func (c *LRUCache[T]) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropWhere(func(e *entry[T]) bool { return strings.HasPrefix(e.key, prefix) })
}

// CleanExpired removes expired values and returns how many went.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropWhere(c.expired)
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *LRUCache[T]) expired(e *entry[T]) bool {
	return c.now().After(e.expires)
}

func (c *LRUCache[T]) dropWhere(match func(*entry[T]) bool) int {
	n := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if match(el.Value.(*entry[T])) {
			c.drop(el)
			n++
		}
		el = next
	}
	return n
}

func (c *LRUCache[T]) drop(el *list.Element) {
	delete(c.index, el.Value.(*entry[T]).key)
	c.order.Remove(el)
}
