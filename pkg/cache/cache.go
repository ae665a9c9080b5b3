// Package cache stores the QBE IL and assembly produced for a translation
// unit on disk, keyed by a hash of everything that influences them.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Bump when Entry changes shape. Entries with another schema are misses.
const schemaVersion uint16 = 1

// Cache is a directory of msgpack-encoded entries. It is safe for
// concurrent use; a nil *Cache is a cache that never hits.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// Entry is the cached result of compiling one unit.
type Entry struct {
	Schema uint16
	Source string // input path, for diagnostics only
	Target string
	IR     string
	Asm    []byte
}

// Open returns a cache rooted at dir, creating it when needed. An empty dir
// selects $XDG_CACHE_HOME/xcc, falling back to ~/.cache/xcc.
func Open(dir string) (*Cache, error) {
	if dir == "" {
		base := os.Getenv("XDG_CACHE_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			base = filepath.Join(home, ".cache")
		}
		dir = filepath.Join(base, "xcc")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// Dir is the directory the cache lives in.
func (c *Cache) Dir() string { return c.dir }

// Key hashes the parts that determine a compilation result. Parts are
// length-prefixed so that ("ab", "c") and ("a", "bc") differ.
func Key(parts ...string) uint64 {
	d := xxhash.New()
	for _, p := range parts {
		_, _ = d.WriteString(strconv.Itoa(len(p)))
		_, _ = d.WriteString(":")
		_, _ = d.WriteString(p)
	}
	return d.Sum64()
}

func (c *Cache) pathFor(key uint64) string {
	return filepath.Join(c.dir, "units", fmt.Sprintf("%016x.mp", key))
}

// Put writes an entry, replacing any previous one atomically.
func (c *Cache) Put(key uint64, e *Entry) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = rmErr
		}
	}()

	e.Schema = schemaVersion
	if err := msgpack.NewEncoder(f).Encode(e); err != nil {
		f.Close()
		return fmt.Errorf("cache: encoding entry: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads the entry stored under key. A missing entry or one written by
// another schema is reported as a miss, not an error.
func (c *Cache) Get(key uint64) (*Entry, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var e Entry
	if err := msgpack.NewDecoder(f).Decode(&e); err != nil {
		return nil, false, fmt.Errorf("cache: decoding %s: %w", f.Name(), err)
	}
	if e.Schema != schemaVersion {
		return nil, false, nil
	}
	return &e, true, nil
}

// Clear removes every entry.
func (c *Cache) Clear() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(filepath.Join(c.dir, "units"))
}
