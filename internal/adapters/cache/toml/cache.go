package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bnema/tale-cli/internal/domain"
	"github.com/bnema/tale-cli/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	cacheFileMode   = 0o600
	cacheDirMode    = 0o700
	tempFilePattern = ".media-urls-*.toml.tmp"

	// DefaultTTL matches the lifetime of the presigned URLs the backend
	// hands out; older entries are treated as absent.
	DefaultTTL = 30 * time.Minute
)

// Cache is a TTL-bounded media URL cache persisted as a TOML file, keyed by
// (session, image type, variant). It is advisory: callers treat every error
// path as a miss.
type Cache struct {
	path  string
	ttl   time.Duration
	clock ports.Clock
	mu    *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.MediaURLCache = (*Cache)(nil)

func NewCache(path string, ttl time.Duration, clock ports.Clock) (*Cache, error) {
	if path == "" {
		return nil, errors.New("cache path is empty")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve cache path: %w", err)
	}
	absPath = filepath.Clean(absPath)

	return &Cache{path: absPath, ttl: ttl, clock: clock, mu: lockForPath(absPath)}, nil
}

func (c *Cache) Get(ctx context.Context, id domain.SessionID, imageType domain.ImageType, variant domain.ImageVariant) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	file, err := c.readSchema()
	if err != nil {
		return "", false, err
	}

	for _, entry := range file.Entries {
		if !entryMatches(entry, id, imageType, variant) {
			continue
		}
		if c.expired(entry) {
			return "", false, nil
		}
		return entry.URL, true, nil
	}

	return "", false, nil
}

func (c *Cache) Put(ctx context.Context, id domain.SessionID, imageType domain.ImageType, variant domain.ImageVariant, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if url == "" {
		return errors.New("cache url is empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	file, err := c.readSchema()
	if err != nil {
		return err
	}
	file.applyDefaults()

	entry := entrySchema{
		SessionID: string(id),
		ImageType: string(imageType),
		Variant:   string(variant),
		URL:       url,
		CachedAt:  c.clock.Now(),
	}

	kept := make([]entrySchema, 0, len(file.Entries)+1)
	for _, existing := range file.Entries {
		if entryMatches(existing, id, imageType, variant) || c.expired(existing) {
			continue
		}
		kept = append(kept, existing)
	}
	file.Entries = append(kept, entry)

	return c.writeSchema(file)
}

func (c *Cache) Invalidate(ctx context.Context, id domain.SessionID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	file, err := c.readSchema()
	if err != nil {
		return err
	}
	file.applyDefaults()

	kept := make([]entrySchema, 0, len(file.Entries))
	for _, entry := range file.Entries {
		if entry.SessionID == string(id) || c.expired(entry) {
			continue
		}
		kept = append(kept, entry)
	}

	if len(kept) == len(file.Entries) {
		return nil
	}
	file.Entries = kept

	return c.writeSchema(file)
}

func (c *Cache) expired(entry entrySchema) bool {
	return c.clock.Now().Sub(entry.CachedAt) >= c.ttl
}

func entryMatches(entry entrySchema, id domain.SessionID, imageType domain.ImageType, variant domain.ImageVariant) bool {
	return entry.SessionID == string(id) &&
		entry.ImageType == string(imageType) &&
		entry.Variant == string(variant)
}

func (c *Cache) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{}, nil
		}
		return fileSchema{}, fmt.Errorf("read cache file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode cache file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func (c *Cache) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(c.path), cacheDirMode); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode cache file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(c.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp cache file: %w", err)
	}

	if err := tempFile.Chmod(cacheFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp cache file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp cache file: %w", err)
	}

	if err := os.Rename(tempName, c.path); err != nil {
		return fmt.Errorf("replace cache file: %w", err)
	}

	cleanup = false

	if err := os.Chmod(c.path, cacheFileMode); err != nil {
		return fmt.Errorf("chmod cache file: %w", err)
	}

	return nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}
