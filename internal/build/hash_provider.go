package build

import (
	"crypto/sha256"
	"encoding/hex"
	"hash/crc64"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultHashCacheSize is the number of content hashes kept between rebuilds.
const DefaultHashCacheSize = 4096

// HashProvider computes content fingerprints. Watch mode rebuilds mostly
// unchanged assets, so digests are cached under a cheap CRC-64 of the
// content together with the asset name and size; the SHA-256 is only
// computed on a miss.
type HashProvider struct {
	cache  *lru.Cache[hashKey, string]
	table  *crc64.Table
	hits   atomic.Int64
	misses atomic.Int64
}

type hashKey struct {
	name string
	size int
	crc  uint64
}

// NewHashProvider creates a provider caching up to size digests.
func NewHashProvider(size int) (*HashProvider, error) {
	if size <= 0 {
		size = DefaultHashCacheSize
	}
	cache, err := lru.New[hashKey, string](size)
	if err != nil {
		return nil, err
	}
	return &HashProvider{
		cache: cache,
		table: crc64.MakeTable(crc64.ECMA),
	}, nil
}

// ContentHash returns the hex SHA-256 of data. name scopes the cache entry.
func (hp *HashProvider) ContentHash(name string, data []byte) string {
	key := hashKey{name: name, size: len(data), crc: crc64.Checksum(data, hp.table)}
	if h, ok := hp.cache.Get(key); ok {
		hp.hits.Add(1)
		return h
	}
	hp.misses.Add(1)

	sum := sha256.Sum256(data)
	h := hex.EncodeToString(sum[:])
	hp.cache.Add(key, h)
	return h
}

// HashCacheStats reports cache effectiveness.
type HashCacheStats struct {
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRatio float64 `json:"hit_ratio"`
	Size     int     `json:"size"`
}

// Stats returns a snapshot of the cache counters.
func (hp *HashProvider) Stats() HashCacheStats {
	hits, misses := hp.hits.Load(), hp.misses.Load()
	ratio := 0.0
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return HashCacheStats{
		Hits:     hits,
		Misses:   misses,
		HitRatio: ratio,
		Size:     hp.cache.Len(),
	}
}
