// Package cache implements the process-local master-key cache (spec §4.6):
// a TTL+LRU mapping from capsa package ID to an owned master key plus its
// per-file metadata, with strict copy-out semantics and unconditional
// zeroization on removal.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/capsara/client-go/internal/primitives"
)

// DefaultMaxEntries is the default maximum number of cached capsas before
// oldest-first eviction begins.
const DefaultMaxEntries = 100

// DefaultTTL is the default entry lifetime.
const DefaultTTL = 5 * time.Minute

// FileMetadata is the cached per-file information needed to decrypt a file
// body lazily on demand (spec §4.5 step 6).
type FileMetadata struct {
	MIMEType        string
	Compressed      bool
	CompressionAlgo string
	OriginalSize    int
}

type entry struct {
	packageID string
	maskedKey []byte
	salt      []byte
	keyLen    int
	files     map[string]FileMetadata
	createdAt time.Time
}

func (e *entry) wipe() {
	primitives.Zero(e.maskedKey)
	primitives.Zero(e.salt)
}

// Cache is the master-key cache. The zero value is not usable; construct
// with New. All methods are safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	maxEntries int
	ttl        time.Duration
	pepper     []byte
	entries    map[string]*list.Element // keyed by package ID
	order      *list.List               // front = oldest, back = newest
}

// New constructs a Cache with the given maximum entry count and TTL. A
// maxEntries or ttl of zero selects the package defaults.
func New(maxEntries int, ttl time.Duration) (*Cache, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	pepper, err := newPepper()
	if err != nil {
		return nil, err
	}
	return &Cache{
		maxEntries: maxEntries,
		ttl:        ttl,
		pepper:     pepper,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}, nil
}

// Set stores masterKey and files under packageID, replacing (and wiping) any
// prior entry for the same ID, then evicts oldest-first until the cache is
// back under its maximum size. The caller's masterKey slice is not retained;
// the cache keeps only a masked internal copy.
func (c *Cache) Set(packageID string, masterKey []byte, files map[string]FileMetadata) error {
	salt, err := newSalt()
	if err != nil {
		return err
	}
	m, err := mask(c.pepper, salt, len(masterKey))
	if err != nil {
		return err
	}
	maskedKey := xorInto(masterKey, m)
	primitives.Zero(m)

	filesCopy := make(map[string]FileMetadata, len(files))
	for k, v := range files {
		filesCopy[k] = v
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeLocked(packageID)

	e := &entry{
		packageID: packageID,
		maskedKey: maskedKey,
		salt:      salt,
		keyLen:    len(masterKey),
		files:     filesCopy,
		createdAt: time.Now(),
	}
	elem := c.order.PushBack(e)
	c.entries[packageID] = elem

	for c.order.Len() > c.maxEntries {
		c.evictOldestLocked()
	}
	return nil
}

// GetMasterKey returns an owned copy of the cached master key for
// packageID, or (nil, false) if absent or expired. The returned SecureBytes
// must be wiped by the caller once no longer needed; mutating it never
// affects the cached copy, and a subsequent Get always derives a fresh copy
// from the still-masked original.
func (c *Cache) GetMasterKey(packageID string) (*primitives.SecureBytes, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.liveEntryLocked(packageID)
	if e == nil {
		return nil, false
	}

	m, err := mask(c.pepper, e.salt, e.keyLen)
	if err != nil {
		return nil, false
	}
	defer primitives.Zero(m)

	return primitives.NewSecureBytes(xorInto(e.maskedKey, m)), true
}

// GetFileMetadata returns the cached metadata for fileID within packageID,
// or (FileMetadata{}, false) if the capsa entry is absent/expired or the
// file is unknown.
func (c *Cache) GetFileMetadata(packageID, fileID string) (FileMetadata, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.liveEntryLocked(packageID)
	if e == nil {
		return FileMetadata{}, false
	}
	fm, ok := e.files[fileID]
	return fm, ok
}

// Clear wipes and removes the entry for packageID, if any.
func (c *Cache) Clear(packageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(packageID)
}

// ClearAll wipes and removes every entry.
func (c *Cache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.order.Len() > 0 {
		c.evictOldestLocked()
	}
}

// Prune wipes and removes every entry whose createdAt is older than the
// cache's TTL. Access (Get*) does not refresh createdAt, so entries expire
// strictly by age since insertion.
func (c *Cache) Prune() {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-c.ttl)
	var next *list.Element
	for elem := c.order.Front(); elem != nil; elem = next {
		next = elem.Next()
		e := elem.Value.(*entry)
		if e.createdAt.Before(cutoff) {
			c.removeElemLocked(elem)
		}
	}
}

// Len returns the current number of live (non-expired) entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked()
	return c.order.Len()
}

// liveEntryLocked returns the entry for packageID, removing (and wiping) it
// first if it has expired. Must be called with c.mu held.
func (c *Cache) liveEntryLocked(packageID string) *entry {
	elem, ok := c.entries[packageID]
	if !ok {
		return nil
	}
	e := elem.Value.(*entry)
	if time.Since(e.createdAt) > c.ttl {
		c.removeElemLocked(elem)
		return nil
	}
	return e
}

func (c *Cache) pruneLocked() {
	cutoff := time.Now().Add(-c.ttl)
	var next *list.Element
	for elem := c.order.Front(); elem != nil; elem = next {
		next = elem.Next()
		e := elem.Value.(*entry)
		if e.createdAt.Before(cutoff) {
			c.removeElemLocked(elem)
		} else {
			break // order is insertion-ordered by createdAt; rest are newer
		}
	}
}

func (c *Cache) removeLocked(packageID string) {
	elem, ok := c.entries[packageID]
	if !ok {
		return
	}
	c.removeElemLocked(elem)
}

func (c *Cache) removeElemLocked(elem *list.Element) {
	e := elem.Value.(*entry)
	e.wipe()
	delete(c.entries, e.packageID)
	c.order.Remove(elem)
}

// evictOldestLocked removes the front (oldest-by-createdAt) entry.
func (c *Cache) evictOldestLocked() {
	front := c.order.Front()
	if front == nil {
		return
	}
	c.removeElemLocked(front)
}
