package cache

import (
	"errors"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
)

// MemoryCapacity bounds the in-memory level.
const MemoryCapacity = 8 * 1000 * 1000

// Cache combines a memory level in front of a disk level. Disk hits are
// promoted to memory.
type Cache struct {
	memory *MemoryCache
	disk   *DiskCache
}

// DefaultDir returns the per-user cache directory.
func DefaultDir() (string, error) {
	dir, err := gap.NewScope(gap.User, "studywave").CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "segments"), nil
}

// Open opens the cache in dir, or DefaultDir when dir is empty, holding up
// to diskCapacity bytes on disk.
func Open(dir string, diskCapacity int64) (*Cache, error) {
	if dir == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return nil, err
		}
	}
	dir, err := homedir.Expand(dir)
	if err != nil {
		return nil, err
	}

	disk, err := NewDiskCache(dir, diskCapacity)
	if err != nil {
		return nil, err
	}
	return &Cache{
		memory: NewMemoryCache(min(MemoryCapacity, diskCapacity)),
		disk:   disk,
	}, nil
}

// Get looks key up in memory, then on disk.
func (c *Cache) Get(key string) ([]byte, Level, bool) {
	if v, ok := c.memory.Get(key); ok {
		return v, LevelMemory, true
	}
	v, ok := c.disk.Get(key)
	if !ok {
		return nil, LevelDisk, false
	}
	_ = c.memory.Put(key, v)
	return v, LevelDisk, true
}

// Put stores value in both levels. A value too large for memory is still
// kept on disk.
func (c *Cache) Put(key string, value []byte) error {
	if err := c.memory.Put(key, value); err != nil && !errors.Is(err, ErrItemTooLarge) {
		return err
	}
	return c.disk.Put(key, value)
}

// Delete removes key from both levels.
func (c *Cache) Delete(key string) error {
	c.memory.Delete(key)
	return c.disk.Delete(key)
}

// Clear empties both levels.
func (c *Cache) Clear() error {
	c.memory.Clear()
	return c.disk.Clear()
}

// Stats returns the counters of each level.
func (c *Cache) Stats() map[Level]Stats {
	return map[Level]Stats{
		LevelMemory: c.memory.Stats(),
		LevelDisk:   c.disk.Stats(),
	}
}

// Close flushes the disk index.
func (c *Cache) Close() error {
	return c.disk.Close()
}
