package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const (
	indexFile = "cache.index"

	// Values below this size are stored uncompressed.
	compressMin = 1024
)

// DiskCache is a size-bounded store of zstd compressed files with a gob
// encoded index.
type DiskCache struct {
	dir      string
	capacity int64
	size     int64

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	index map[string]*diskEntry

	mu    sync.Mutex
	stats Stats
}

type diskEntry struct {
	Key        string
	File       string // Base name inside the cache directory
	Size       int64  // Bytes on disk
	Compressed bool
	LastAccess time.Time
}

// NewDiskCache opens or creates a disk cache in dir holding up to
// capacity bytes. A missing or unreadable index starts the cache empty.
func NewDiskCache(dir string, capacity int64) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	dc := &DiskCache{
		dir:      dir,
		capacity: capacity,
		encoder:  encoder,
		decoder:  decoder,
		index:    make(map[string]*diskEntry),
	}
	if err := dc.loadIndex(); err != nil {
		dc.index = make(map[string]*diskEntry)
	}
	for _, e := range dc.index {
		dc.size += e.Size
	}
	return dc, nil
}

// Get returns the value for key. Entries whose file is missing or
// corrupt are dropped.
func (dc *DiskCache) Get(key string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	entry, ok := dc.index[key]
	if !ok {
		dc.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(filepath.Join(dc.dir, entry.File))
	if err == nil && entry.Compressed {
		data, err = dc.decoder.DecodeAll(data, nil)
	}
	if err != nil {
		dc.removeLocked(entry)
		dc.stats.Misses++
		return nil, false
	}

	entry.LastAccess = time.Now()
	dc.stats.Hits++
	return data, true
}

// Put stores value under key and evicts least recently used entries
// until the cache fits its capacity.
func (dc *DiskCache) Put(key string, value []byte) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	data, compressed := value, false
	if len(value) >= compressMin {
		if enc := dc.encoder.EncodeAll(value, nil); len(enc) < len(value) {
			data, compressed = enc, true
		}
	}

	n := int64(len(data))
	if n > dc.capacity {
		return ErrItemTooLarge
	}

	if existing, ok := dc.index[key]; ok {
		dc.removeLocked(existing)
	}
	for dc.size+n > dc.capacity && len(dc.index) > 0 {
		dc.evictOldestLocked()
	}

	entry := &diskEntry{
		Key:        key,
		File:       fileName(key),
		Size:       n,
		Compressed: compressed,
		LastAccess: time.Now(),
	}
	if err := writeFile(filepath.Join(dc.dir, entry.File), data); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	dc.index[key] = entry
	dc.size += n
	return dc.saveIndex()
}

// Delete removes key.
func (dc *DiskCache) Delete(key string) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	entry, ok := dc.index[key]
	if !ok {
		return nil
	}
	dc.removeLocked(entry)
	return dc.saveIndex()
}

// Clear removes every entry.
func (dc *DiskCache) Clear() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	for _, entry := range dc.index {
		dc.removeLocked(entry)
	}
	return dc.saveIndex()
}

// Stats returns the cache counters.
func (dc *DiskCache) Stats() Stats {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	s := dc.stats
	s.Capacity = dc.capacity
	s.Size = dc.size
	s.Items = len(dc.index)
	return s
}

// Close persists the index and releases the codecs.
func (dc *DiskCache) Close() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	err := dc.saveIndex()
	dc.decoder.Close()
	return errors.Join(err, dc.encoder.Close())
}

// Private helper methods

func fileName(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:16]) + ".zst"
}

func (dc *DiskCache) removeLocked(entry *diskEntry) {
	_ = os.Remove(filepath.Join(dc.dir, entry.File))
	delete(dc.index, entry.Key)
	dc.size -= entry.Size
}

func (dc *DiskCache) evictOldestLocked() {
	var oldest *diskEntry
	for _, e := range dc.index {
		if oldest == nil || e.LastAccess.Before(oldest.LastAccess) {
			oldest = e
		}
	}
	if oldest != nil {
		dc.removeLocked(oldest)
		dc.stats.Evictions++
	}
}

func (dc *DiskCache) loadIndex() error {
	f, err := os.Open(filepath.Join(dc.dir, indexFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	return gob.NewDecoder(f).Decode(&dc.index)
}

func (dc *DiskCache) saveIndex() error {
	path := filepath.Join(dc.dir, indexFile)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	err = gob.NewEncoder(f).Encode(dc.index)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// writeFile writes through a temporary file so readers never see a
// partial value.
func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil { //nolint:gosec
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
