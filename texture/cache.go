package texture

import (
	"path"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/mogaika/wow_model_browser/vfs"
)

// Picture is a decoded texture.
type Picture struct {
	Width  int
	Height int
	RGBA   []byte
}

// substitutes are tried, in order, next to a texture the decoder cannot read.
var substitutes = []string{".png", ".tga", ".bmp"}

// Candidates lists the paths a texture may be loaded from.
func Candidates(texturePath string) []string {
	p := strings.ReplaceAll(texturePath, `\`, "/")
	ext := path.Ext(p)
	base := strings.TrimSuffix(p, ext)
	result := []string{p}
	for _, s := range substitutes {
		if !strings.EqualFold(s, ext) {
			result = append(result, base+s)
		}
	}
	return result
}

// Cache is a concurrency-safe texture cache.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*cacheEntry
	dec   ImageDecoder
}

type cacheEntry struct {
	pic *Picture
	err error
}

func NewCache(dec ImageDecoder) *Cache {
	if dec == nil {
		dec = StdDecoder{}
	}
	return &Cache{
		items: make(map[string]*cacheEntry),
		dec:   dec,
	}
}

// Resolve loads and caches a texture by path. Failures are cached too.
func (c *Cache) Resolve(src vfs.BlobSource, texturePath string) (*Picture, error) {
	key := strings.ToLower(strings.ReplaceAll(texturePath, `\`, "/"))

	// Fast path: read lock
	c.mu.RLock()
	if entry, exists := c.items[key]; exists {
		c.mu.RUnlock()
		return entry.pic, entry.err
	}
	c.mu.RUnlock()

	pic, err := c.load(src, texturePath)

	// Write lock with double-check
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, exists := c.items[key]; exists {
		return entry.pic, entry.err
	}
	c.items[key] = &cacheEntry{pic: pic, err: err}
	return pic, err
}

func (c *Cache) load(src vfs.BlobSource, texturePath string) (*Picture, error) {
	var lastErr error = vfs.ErrNotFound
	for _, candidate := range Candidates(texturePath) {
		data, err := src.Read(candidate)
		if err != nil {
			if !vfs.IsNotFound(err) {
				return nil, err
			}
			continue
		}
		w, h, rgba, err := c.dec.Decode(data)
		if err != nil {
			lastErr = errors.Wrapf(err, "%s", candidate)
			continue
		}
		return &Picture{Width: w, Height: h, RGBA: rgba}, nil
	}
	return nil, errors.Wrapf(lastErr, "texture %s", texturePath)
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

var shared struct {
	mu    sync.Mutex
	cache *Cache
}

// Shared returns the process-wide cache, creating it on first use.
func Shared() *Cache {
	shared.mu.Lock()
	defer shared.mu.Unlock()
	if shared.cache == nil {
		shared.cache = NewCache(nil)
	}
	return shared.cache
}

// ReleaseShared drops the process-wide cache. The next Shared call starts empty.
func ReleaseShared() {
	shared.mu.Lock()
	shared.cache = nil
	shared.mu.Unlock()
}
