package x402

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// DefaultProofTTL is how long a cached payment proof stays valid before the
// resource must be paid for again.
const DefaultProofTTL = time.Hour

// PaymentCache records successful payments keyed by (resource, payer) so
// subsequent access attempts skip re-signing. Implementations may back it
// with any keyed durable store scoped to the running process or origin.
// Reads apply the TTL and delete expired entries as a side effect; there is
// no background sweep. Writes replace any existing entry for the same key.
type PaymentCache interface {
	Has(resource, payer string) bool
	Get(resource, payer string) (*PaymentProof, bool)
	Put(resource, payer string, proof *PaymentProof)
	Delete(resource, payer string)
}

// CacheKey normalizes a (resource, payer) pair into a cache key. The payer
// address is lower-cased so mixed-case forms of the same address share one
// entry.
func CacheKey(resource, payer string) string {
	return resource + "|" + strings.ToLower(payer)
}

// MemoryCache is an in-memory PaymentCache. Entries are stored as JSON so
// the access paths match durable key/value backends, including the handling
// of corrupted entries: an unparseable entry is removed and treated as a
// miss, never as a fatal error.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache creates a memory cache with the given proof TTL.
// A zero ttl means DefaultProofTTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl == 0 {
		ttl = DefaultProofTTL
	}
	return &MemoryCache{
		entries: make(map[string][]byte),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Has reports whether a non-expired proof exists for (resource, payer).
func (c *MemoryCache) Has(resource, payer string) bool {
	_, ok := c.Get(resource, payer)
	return ok
}

// Get returns the cached proof for (resource, payer) if present and not
// expired. An expired or corrupted entry is deleted lazily on this read.
func (c *MemoryCache) Get(resource, payer string) (*PaymentProof, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := CacheKey(resource, payer)
	data, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	var proof PaymentProof
	if err := json.Unmarshal(data, &proof); err != nil {
		// Corrupted entry: treat as a miss and remove it.
		delete(c.entries, key)
		return nil, false
	}

	age := c.now().UnixMilli() - proof.Timestamp
	if age > c.ttl.Milliseconds() {
		delete(c.entries, key)
		return nil, false
	}

	if !strings.EqualFold(proof.WalletAddress, payer) {
		return nil, false
	}

	return &proof, true
}

// Put records a proof for (resource, payer), replacing any existing entry.
func (c *MemoryCache) Put(resource, payer string, proof *PaymentProof) {
	data, err := json.Marshal(proof)
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[CacheKey(resource, payer)] = data
}

// Delete removes the entry for (resource, payer) if present.
func (c *MemoryCache) Delete(resource, payer string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, CacheKey(resource, payer))
}
