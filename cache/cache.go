// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache implements the metadata cache: a
// name-to-inode and inode-to-attributes cache with generation and
// expiration semantics that drives batched FORGET messages back to the
// daemon. Clock is a seam (github.com/jacobsa/timeutil.Clock) so expiration
// can be driven deterministically in tests rather than by wall-clock time.
package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/jacobsa/timeutil"

	"github.com/fspbridge/kfusebridge/model"
)

// Item is one cached (parent, name) -> child mapping, plus the child's
// attributes. References keep an item alive past its expiration.
type Item struct {
	Parent     model.InodeID
	Name       string // normalized
	Child      model.InodeID
	Attributes model.Attributes
	Generation model.Generation

	expiresAt time.Time
	refCount  int
	forgotten bool // true once moved to the forget list
}

// ForgetNode is one link in a detached chain of inodes awaiting a FORGET or
// BATCH_FORGET message; a context owns a chain of them for the duration of
// its drain.
type ForgetNode struct {
	Inode model.InodeID
	Next  *ForgetNode
}

type key struct {
	parent model.InodeID
	name   string
}

// Cache is the metadata cache: a name-to-inode/inode-to-attributes cache
// with generation and expiration semantics.
//
// INVARIANT: every value in byName also appears as byInode[value.Child]'s
// slice, and vice versa, until it is forgotten.
// INVARIANT: an item with forgotten == true is not reachable from byName.
type Cache struct {
	caseInsensitive bool
	ttl             time.Duration
	clock           timeutil.Clock

	mu sync.Mutex // GUARDED_BY for everything below

	byName  map[key]*Item
	byInode map[model.InodeID][]*Item

	forgetHead, forgetTail *ForgetNode
	forgetCount            int

	stats Stats
}

// Stats is a snapshot of cache activity, exported for metrics.go.
type Stats struct {
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	ForgetDepth int
}

// Config holds the construction-time parameters of a Cache.
type Config struct {
	CaseInsensitive bool
	TTL             time.Duration
	Clock           timeutil.Clock
}

// Create constructs an empty Cache.
func Create(cfg Config) *Cache {
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Minute
	}

	return &Cache{
		caseInsensitive: cfg.CaseInsensitive,
		ttl:             cfg.TTL,
		clock:           cfg.Clock,
		byName:          make(map[key]*Item),
		byInode:         make(map[model.InodeID][]*Item),
	}
}

// Delete tears down the cache, releasing everything it holds. It must be
// called after the IOQ has been torn down, since live contexts may still
// hold references.
func (c *Cache) Delete() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.byName = make(map[key]*Item)
	c.byInode = make(map[model.InodeID][]*Item)
	c.forgetHead, c.forgetTail = nil, nil
	c.forgetCount = 0
}

func (c *Cache) normalize(name string) string {
	if c.caseInsensitive {
		return strings.ToLower(name)
	}
	return name
}

// Lookup returns the live item for (parent, name), or nil, false on a miss.
// An item that has been moved to the forget list no longer services Lookup.
func (c *Cache) Lookup(parent model.InodeID, name string) (*Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.byName[key{parent, c.normalize(name)}]
	if !ok || it.forgotten {
		c.stats.Misses++
		return nil, false
	}

	c.stats.Hits++
	return it, true
}

// Insert creates or refreshes the (parent, name) -> child mapping, bumping
// the generation counter whenever the child inode changes identity so that
// stale handles can detect reuse.
func (c *Cache) Insert(parent model.InodeID, name string, child model.InodeID, attrs model.Attributes) *Item {
	c.mu.Lock()
	defer c.mu.Unlock()

	norm := c.normalize(name)
	k := key{parent, norm}

	it, existed := c.byName[k]
	if existed && !it.forgotten {
		if it.Child != child {
			it.Generation++
			c.removeFromInodeIndexLocked(it)
			it.Child = child
			c.byInode[child] = append(c.byInode[child], it)
		}
		it.Attributes = attrs
		it.expiresAt = c.clock.Now().Add(c.ttl)
		return it
	}

	it = &Item{
		Parent:     parent,
		Name:       norm,
		Child:      child,
		Attributes: attrs,
		expiresAt:  c.clock.Now().Add(c.ttl),
	}
	c.byName[k] = it
	c.byInode[child] = append(c.byInode[child], it)
	return it
}

// Reference pins it alive, protecting it from eviction even past expiration.
func (c *Cache) Reference(it *Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it.refCount++
}

// Release undoes a prior Reference.
func (c *Cache) Release(it *Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if it.refCount > 0 {
		it.refCount--
	}
}

// ExpirationSweep walks items, moving any that are both expired and
// unreferenced onto the deferred forget list. It
// returns the number of items newly queued.
func (c *Cache) ExpirationSweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, it := range c.byName {
		if it.forgotten || it.refCount > 0 || now.Before(it.expiresAt) {
			continue
		}

		delete(c.byName, k)
		c.removeFromInodeIndexLocked(it)
		it.forgotten = true
		c.stats.Evictions++

		node := &ForgetNode{Inode: it.Child}
		if c.forgetTail == nil {
			c.forgetHead, c.forgetTail = node, node
		} else {
			c.forgetTail.Next = node
			c.forgetTail = node
		}
		c.forgetCount++
		n++
	}
	return n
}

func (c *Cache) removeFromInodeIndexLocked(it *Item) {
	items := c.byInode[it.Child]
	for i, x := range items {
		if x == it {
			c.byInode[it.Child] = append(items[:i], items[i+1:]...)
			break
		}
	}
	if len(c.byInode[it.Child]) == 0 {
		delete(c.byInode, it.Child)
	}
}

// TakeForgetList detaches the cache's current pending-forget chain and
// hands ownership to the caller (normally the context being constructed for
// a FORGET or BATCH_FORGET operation), resetting the cache's own list to
// empty.
func (c *Cache) TakeForgetList() (*ForgetNode, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	head, count := c.forgetHead, c.forgetCount
	c.forgetHead, c.forgetTail, c.forgetCount = nil, nil, 0
	return head, count
}

// HasPendingForgets reports whether the cache currently holds any items
// awaiting a forget message.
func (c *Cache) HasPendingForgets() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.forgetHead != nil
}

// ForgetNextItem pops the front of a caller-owned forget chain, returning
// the inode and the remaining chain. ok is false if head was nil.
func ForgetNextItem(head *ForgetNode) (inode model.InodeID, rest *ForgetNode, ok bool) {
	if head == nil {
		return 0, nil, false
	}
	return head.Inode, head.Next, true
}

// DeleteItems discards a caller-owned forget chain without generating any
// further wire traffic. It is used by a context's Fini hook when the
// context is destroyed before it finishes draining its chain (e.g. on
// instance teardown).
func DeleteItems(head *ForgetNode) {
	for head != nil {
		head = head.Next
	}
}

// Stats returns a snapshot of cache hit/miss/eviction counters and the
// depth of the forget list, for metrics.go.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.ForgetDepth = c.forgetCount
	return s
}
