package layout

import (
	"fmt"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
)

// CachedTypesetter memoises LayoutLines results. Pagination wraps the same
// paragraph at the same width many times.
type CachedTypesetter struct {
	next  Typesetter
	cache *cache.Cache
}

// NewCachedTypesetter wraps ts. Entries expire after ttl; zero keeps them
// for the lifetime of the cache.
func NewCachedTypesetter(ts Typesetter, ttl time.Duration) *CachedTypesetter {
	exp := cache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		exp = ttl
		cleanup = 2 * ttl
	}
	return &CachedTypesetter{next: ts, cache: cache.New(exp, cleanup)}
}

func (c *CachedTypesetter) LayoutLines(content string, width float64, font FontResource, fontSize float64, lineHeight float64, wrap string) ([]TextLine, error) {
	key := measureKey(content, width, font, fontSize, lineHeight, wrap)
	if v, ok := c.cache.Get(key); ok {
		return cloneLines(v.([]TextLine)), nil
	}
	lines, err := c.next.LayoutLines(content, width, font, fontSize, lineHeight, wrap)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, cloneLines(lines))
	return lines, nil
}

// Len reports the number of cached measurements.
func (c *CachedTypesetter) Len() int { return c.cache.ItemCount() }

// Flush drops every cached measurement.
func (c *CachedTypesetter) Flush() { c.cache.Flush() }

func measureKey(content string, width float64, font FontResource, fontSize, lineHeight float64, wrap string) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s", font.Name, font.Src, f(width), f(fontSize), f(lineHeight), wrap, content)
}

func cloneLines(lines []TextLine) []TextLine {
	return append([]TextLine(nil), lines...)
}
