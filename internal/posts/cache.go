package posts

import (
	"encoding/json"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

const (
	featuredCacheSize     = 512 * 1024
	featuredCacheKey      = "featured-posts"
	featuredCacheTTLInSec = 60
)

// featuredCache keeps the featured posts list hot for a minute. The landing
// page hits this endpoint on every visit, the list itself barely changes.
type featuredCache struct {
	cache *freecache.Cache
}

func newFeaturedCache() *featuredCache {
	return &featuredCache{
		cache: freecache.NewCache(featuredCacheSize),
	}
}

func (c *featuredCache) Get() ([]*Post, bool) {
	cached, err := c.cache.Get([]byte(featuredCacheKey))
	if err != nil {
		return nil, false
	}

	var posts []*Post
	if err := json.Unmarshal(cached, &posts); err != nil {
		log.Errorf("featured cache, unmarshal: %s", err)
		c.Invalidate()
		return nil, false
	}
	return posts, true
}

func (c *featuredCache) Set(posts []*Post) {
	postsJson, err := json.Marshal(posts)
	if err != nil {
		log.Errorf("featured cache, marshal: %s", err)
		return
	}
	if err := c.cache.Set([]byte(featuredCacheKey), postsJson, featuredCacheTTLInSec); err != nil {
		log.Errorf("featured cache, set: %s", err)
	}
}

func (c *featuredCache) Invalidate() {
	c.cache.Del([]byte(featuredCacheKey))
}
