package assetcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"vibecast/internal/services"
)

// Kind selects the per-asset-type subdirectory.
type Kind string

const (
	KindImage Kind = "images"
	KindAudio Kind = "audio"
	KindClip  Kind = "clips"
)

// Cache is a content-addressed file cache rooted at a single directory.
type Cache struct {
	root      string
	exclusive bool
}

// New returns a cache rooted at root. When exclusive is set, producers for
// the same key are serialized with a per-key advisory lock so multiple
// processes can share the cache directory.
func New(root string, exclusive bool) *Cache {
	return &Cache{root: root, exclusive: exclusive}
}

// Root returns the cache root directory.
func (c *Cache) Root() string {
	return c.root
}

// Key computes the digest for a cache entry from its semantic parts. Order
// matters: callers pass the same parts in the same order to hit.
func Key(parts ...string) string {
	hasher := sha256.New()
	for _, part := range parts {
		hasher.Write([]byte(part))
		hasher.Write([]byte{0})
	}
	return hex.EncodeToString(hasher.Sum(nil))
}

// EntryPath returns the on-disk path for an entry. The prefix is advisory,
// for traceability when browsing the cache, and is not part of the key.
func (c *Cache) EntryPath(kind Kind, prefix, key, ext string) string {
	name := key + "." + strings.TrimPrefix(ext, ".")
	if prefix = sanitizePrefix(prefix); prefix != "" {
		name = prefix + "_" + name
	}
	return filepath.Join(c.root, string(kind), name)
}

// Lookup reports whether an entry exists and returns its path.
func (c *Cache) Lookup(kind Kind, prefix, key, ext string) (string, bool) {
	path := c.EntryPath(kind, prefix, key, ext)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() == 0 {
		return path, false
	}
	return path, true
}

// GetOrCreate returns the entry path for key, invoking produce to build it on
// a miss. produce writes the finished asset to the destination path it is
// given; the cache moves it into place atomically.
func (c *Cache) GetOrCreate(ctx context.Context, kind Kind, prefix, key, ext string, produce func(ctx context.Context, dst string) error) (string, bool, error) {
	if path, ok := c.Lookup(kind, prefix, key, ext); ok {
		return path, true, nil
	}

	unlock, err := c.lock(kind, key)
	if err != nil {
		return "", false, err
	}
	defer unlock()

	// Re-check under the lock: another producer may have won the race.
	path, ok := c.Lookup(kind, prefix, key, ext)
	if ok {
		return path, true, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", false, services.Wrap(services.ErrTransient, "assetcache", "store", "create cache dir", err)
	}

	tmp := path + ".partial"
	if err := produce(ctx, tmp); err != nil {
		os.Remove(tmp)
		return "", false, err
	}
	info, err := os.Stat(tmp)
	if err != nil || info.Size() == 0 {
		os.Remove(tmp)
		return "", false, services.Wrap(services.ErrTransient, "assetcache", "store",
			fmt.Sprintf("producer left no output for %s", filepath.Base(path)), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", false, services.Wrap(services.ErrTransient, "assetcache", "store", "finalize cache entry", err)
	}
	return path, false, nil
}

// StoreBytes writes data directly into the cache and returns the entry path.
func (c *Cache) StoreBytes(kind Kind, prefix, key, ext string, data []byte) (string, error) {
	path, _, err := c.GetOrCreate(context.Background(), kind, prefix, key, ext,
		func(_ context.Context, dst string) error {
			return os.WriteFile(dst, data, 0o644)
		})
	return path, err
}

func (c *Cache) lock(kind Kind, key string) (func(), error) {
	if !c.exclusive {
		return func() {}, nil
	}
	lockDir := filepath.Join(c.root, "locks")
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, "assetcache", "lock", "create lock dir", err)
	}
	lock := flock.New(filepath.Join(lockDir, string(kind)+"-"+key+".lock"))
	if err := lock.Lock(); err != nil {
		return nil, services.Wrap(services.ErrTransient, "assetcache", "lock", "acquire entry lock", err)
	}
	return func() { lock.Unlock() }, nil
}

func sanitizePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range prefix {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}
