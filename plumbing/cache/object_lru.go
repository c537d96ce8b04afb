package cache

import (
	"sync"

	"github.com/golang/groupcache/lru"

	"github.com/go-pack/packcheck/plumbing"
)

// ObjectLRU implements an object cache with an LRU eviction policy and a
// maximum total size for the cached objects.
type ObjectLRU struct {
	MaxSize FileSize

	actualSize FileSize
	ll         *lru.Cache
	mut        sync.Mutex
}

// NewObjectLRU creates a new ObjectLRU with the given maximum total size
// for the cached objects.
func NewObjectLRU(maxSize FileSize) *ObjectLRU {
	return &ObjectLRU{MaxSize: maxSize}
}

// NewObjectLRUDefault creates a new ObjectLRU with the default cache size.
func NewObjectLRUDefault() *ObjectLRU {
	return &ObjectLRU{MaxSize: DefaultMaxSize}
}

func (c *ObjectLRU) init() {
	if c.ll != nil {
		return
	}

	c.ll = &lru.Cache{
		OnEvicted: func(_ lru.Key, value interface{}) {
			obj := value.(plumbing.EncodedObject)
			c.actualSize -= FileSize(obj.Size())
		},
	}
}

// Put puts an object into the cache. If the object is already in the cache,
// it will be marked as used. Otherwise, it will be inserted. Objects bigger
// than the cache size are not stored at all.
func (c *ObjectLRU) Put(obj plumbing.EncodedObject) {
	c.mut.Lock()
	defer c.mut.Unlock()

	c.init()

	objSize := FileSize(obj.Size())
	if objSize > c.MaxSize {
		return
	}

	key := lru.Key(obj.Hash())
	if old, ok := c.ll.Get(key); ok {
		c.actualSize -= FileSize(old.(plumbing.EncodedObject).Size())
	}

	c.ll.Add(key, obj)
	c.actualSize += objSize

	for c.actualSize > c.MaxSize && c.ll.Len() > 1 {
		c.ll.RemoveOldest()
	}
}

// Get returns an object by its hash. It marks the object as used. If the
// object is not in the cache, (nil, false) will be returned.
func (c *ObjectLRU) Get(k plumbing.Hash) (plumbing.EncodedObject, bool) {
	c.mut.Lock()
	defer c.mut.Unlock()

	if c.ll == nil {
		return nil, false
	}

	v, ok := c.ll.Get(lru.Key(k))
	if !ok {
		return nil, false
	}

	return v.(plumbing.EncodedObject), true
}

// Clear the content of this object cache.
func (c *ObjectLRU) Clear() {
	c.mut.Lock()
	defer c.mut.Unlock()

	if c.ll != nil {
		c.ll.Clear()
	}
	c.actualSize = 0
}
