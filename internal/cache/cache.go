// Package cache holds the bounded set of (address, port) pairs that the
// gates have already authorized.
//
// A hit is enough to allow a connection; a miss means nothing and the
// caller falls through to the rule table. Entries are evicted in insertion
// order once the bound is reached, and all of them are dropped on reload.
package cache

import (
	"container/list"
	"strings"
	"sync"
)

// DefaultBound is the entry limit used when none is configured.
const DefaultBound = 1024

// Entry is one authorized pair. Port 0 covers every port.
type Entry struct {
	Addr string
	Port uint16
}

// Cache is a FIFO-bounded set of entries, safe for concurrent use.
type Cache struct {
	mu    sync.Mutex
	bound int
	gen   uint64
	order *list.List // of Entry, oldest at the front
	index map[string]map[uint16]*list.Element
}

// New returns an empty cache holding at most bound entries.
// A bound of zero or less selects DefaultBound.
func New(bound int) *Cache {
	if bound <= 0 {
		bound = DefaultBound
	}
	return &Cache{
		bound: bound,
		order: list.New(),
		index: make(map[string]map[uint16]*list.Element),
	}
}

// Contains reports whether addr is cached for port. A stored port of 0
// matches any query, and a query port of 0 matches any stored port.
func (c *Cache) Contains(addr string, port uint16) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.containsLocked(strings.ToLower(addr), port)
}

func (c *Cache) containsLocked(key string, port uint16) bool {
	ports := c.index[key]
	if len(ports) == 0 {
		return false
	}
	if port == 0 {
		return true
	}
	if _, ok := ports[0]; ok {
		return true
	}
	_, ok := ports[port]
	return ok
}

// Insert adds (addr, port) unless an equal or any-port entry already
// covers it, evicting the oldest entries past the bound.
func (c *Cache) Insert(addr string, port uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insertLocked(strings.ToLower(addr), port)
}

// InsertGen is Insert for a caller that authorized the pair under rule
// generation gen. It does nothing and returns false when a reload has
// moved the cache to a different generation since.
func (c *Cache) InsertGen(gen uint64, addr string, port uint16) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	c.insertLocked(strings.ToLower(addr), port)
	return true
}

func (c *Cache) insertLocked(key string, port uint16) {
	if key == "" {
		return
	}
	ports := c.index[key]
	if ports != nil {
		if _, ok := ports[0]; ok {
			return
		}
		if _, ok := ports[port]; ok {
			return
		}
	} else {
		ports = make(map[uint16]*list.Element)
		c.index[key] = ports
	}
	ports[port] = c.order.PushBack(Entry{Addr: key, Port: port})

	for c.order.Len() > c.bound {
		c.removeLocked(c.order.Front())
	}
}

func (c *Cache) removeLocked(el *list.Element) {
	e := c.order.Remove(el).(Entry)
	ports := c.index[e.Addr]
	delete(ports, e.Port)
	if len(ports) == 0 {
		delete(c.index, e.Addr)
	}
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

// Reset drops every entry and moves the cache to generation gen, so that
// InsertGen calls still carrying an older generation are discarded.
func (c *Cache) Reset(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
	c.gen = gen
}

func (c *Cache) clearLocked() {
	c.order.Init()
	c.index = make(map[string]map[uint16]*list.Element)
}

// Generation returns the generation set by the last Reset.
func (c *Cache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Bound returns the entry limit.
func (c *Cache) Bound() int {
	return c.bound
}

// Entries returns a copy of the entries, oldest first.
func (c *Cache) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(Entry))
	}
	return out
}
