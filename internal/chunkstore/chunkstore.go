// Package chunkstore persists immutable, content-addressed byte chunks.
// Chunks are deduplicated by hash; reference counts (bumped by whichever
// neuron cites the chunk in its chunkHashes) gate garbage collection.
package chunkstore

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/CopikProjeckId/nmt-system-sub000/internal/hashutil"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/kvstore"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/nmterr"
)

// Chunk is one immutable content-addressed payload.
type Chunk struct {
	Hash      hashutil.Hash `msgpack:"hash"`
	Data      []byte        `msgpack:"data"`
	Size      int           `msgpack:"size"`
	CreatedAt time.Time     `msgpack:"createdAt"`
}

// Store is the chunk key-value store, rooted at <dataDir>/chunks.
type Store struct {
	kv *kvstore.Store
}

// Open opens or creates the chunk store at dir.
func Open(dir string) (*Store, error) {
	kv, err := kvstore.Open(dir, kvstore.DefaultConfig())
	if err != nil {
		return nil, err
	}
	return &Store{kv: kv}, nil
}

func chunkKey(h hashutil.Hash) string   { return "chunk:" + h.Hex() }
func refcountKey(h hashutil.Hash) string { return "refcount:" + h.Hex() }

// Put stores data under its content hash if not already present and
// returns the hash. Calling Put again with identical bytes is a no-op
// that still returns the same hash (content-addressed deduplication).
func (s *Store) Put(data []byte, now time.Time) (hashutil.Hash, error) {
	h := hashutil.ContentHash(data)
	key := chunkKey(h)
	if _, ok := s.kv.Get(key); ok {
		return h, nil
	}

	chunk := Chunk{Hash: h, Data: data, Size: len(data), CreatedAt: now}
	encoded, err := msgpack.Marshal(chunk)
	if err != nil {
		return h, fmt.Errorf("chunkstore: encode: %w", err)
	}
	if err := s.kv.Put(key, encoded); err != nil {
		return h, err
	}
	return h, nil
}

// Get retrieves a chunk by hash.
func (s *Store) Get(h hashutil.Hash) (*Chunk, error) {
	raw, ok := s.kv.Get(chunkKey(h))
	if !ok {
		return nil, nmterr.Wrap(nmterr.ErrNotFound, "chunkstore: chunk %s not found", h.Hex())
	}
	var c Chunk
	if err := msgpack.Unmarshal(raw, &c); err != nil {
		return nil, nmterr.Wrap(nmterr.ErrIntegrityViolation, "chunkstore: decode %s: %v", h.Hex(), err)
	}
	if hashutil.ContentHash(c.Data) != h {
		return nil, nmterr.Wrap(nmterr.ErrIntegrityViolation, "chunkstore: content hash mismatch for %s", h.Hex())
	}
	return &c, nil
}

// Exists reports whether a chunk with hash h is stored.
func (s *Store) Exists(h hashutil.Hash) bool {
	_, ok := s.kv.Get(chunkKey(h))
	return ok
}

func (s *Store) refcount(h hashutil.Hash) uint64 {
	raw, ok := s.kv.Get(refcountKey(h))
	if !ok || len(raw) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(raw)
}

func (s *Store) setRefcount(h hashutil.Hash, n uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n)
	return s.kv.Put(refcountKey(h), buf)
}

// Retain increments hash's reference count. Call once per neuron that
// cites the chunk in its chunkHashes.
func (s *Store) Retain(h hashutil.Hash) error {
	return s.setRefcount(h, s.refcount(h)+1)
}

// Release decrements hash's reference count. It never goes below zero; a
// chunk at zero references becomes eligible for the next GC sweep but is
// not removed immediately, matching the lazy-reclaim policy the
// compaction scheduler owns for every store.
func (s *Store) Release(h hashutil.Hash) error {
	count := s.refcount(h)
	if count == 0 {
		return nil
	}
	return s.setRefcount(h, count-1)
}

// GC deletes every chunk whose reference count is zero. Returns the
// number of chunks removed.
func (s *Store) GC() int {
	var toRemove []hashutil.Hash
	s.kv.Iterate("refcount:", func(key string, value []byte) bool {
		if len(value) != 8 || binary.BigEndian.Uint64(value) != 0 {
			return true
		}
		hexPart := key[len("refcount:"):]
		if h, err := hashutil.ParseHex(hexPart); err == nil {
			toRemove = append(toRemove, h)
		}
		return true
	})

	for _, h := range toRemove {
		_ = s.kv.Delete(chunkKey(h))
		_ = s.kv.Delete(refcountKey(h))
	}
	return len(toRemove)
}

// Len returns the number of chunks currently stored (live refcount
// entries aside).
func (s *Store) Len() int {
	count := 0
	s.kv.Iterate("chunk:", func(string, []byte) bool { count++; return true })
	return count
}

// Close releases the underlying store.
func (s *Store) Close() error { return s.kv.Close() }

// Checkpoint forces a durability checkpoint now.
func (s *Store) Checkpoint() error { return s.kv.Checkpoint() }
