package catalog

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"tourbook/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const tourCachePrefix = "tour:"

// tombstoneVersion outranks every real tour version. It stays within the
// integer range Lua numbers represent exactly.
const tombstoneVersion int64 = 1 << 53

// TourCache is a best-effort read-through cache for single tours.
// A cache failure never fails a request; it is logged and treated as a miss.
//
// Entries are ordered by tour version. Set never replaces an entry holding the
// same or a newer version, and Invalidate leaves a tombstone that outranks any
// version until it expires. A reader that loaded a tour before a concurrent
// write can therefore not put the older copy back.
type TourCache interface {
	Get(ctx context.Context, id string) (*models.Tour, bool)
	Set(ctx context.Context, tour *models.Tour)
	Invalidate(ctx context.Context, id string)
}

type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (*models.Tour, bool) { return nil, false }
func (NoopCache) Set(context.Context, *models.Tour)                {}
func (NoopCache) Invalidate(context.Context, string)               {}

// cacheEntry is the stored form. A nil Tour marks a tombstone.
type cacheEntry struct {
	Version int64        `json:"version"`
	Tour    *models.Tour `json:"tour,omitempty"`
}

// setIfNewerScript writes ARGV[1] unless the current entry carries a version
// of at least ARGV[2]. ARGV[3] is the TTL in milliseconds, 0 for none.
var setIfNewerScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current then
	local ok, entry = pcall(cjson.decode, current)
	if ok and type(entry) == "table" then
		local v = tonumber(entry["version"])
		if v and v >= tonumber(ARGV[2]) then
			return 0
		end
	end
end
if tonumber(ARGV[3]) > 0 then
	redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
else
	redis.call("SET", KEYS[1], ARGV[1])
end
return 1
`)

// RedisTourCache stores tours as JSON with a TTL. It is shared by every
// instance using the same Redis database.
type RedisTourCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisTourCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisTourCache {
	return &RedisTourCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisTourCache) Get(ctx context.Context, id string) (*models.Tour, bool) {
	data, err := c.client.Get(ctx, tourCachePrefix+id).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Tour cache read failed", zap.String("tourId", id), zap.Error(err))
		}
		return nil, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Warn("Tour cache entry corrupt", zap.String("tourId", id), zap.Error(err))
		return nil, false
	}
	if entry.Tour == nil {
		return nil, false
	}
	return entry.Tour, true
}

func (c *RedisTourCache) Set(ctx context.Context, tour *models.Tour) {
	c.store(ctx, tour.ID, cacheEntry{Version: tour.Version, Tour: tour})
}

func (c *RedisTourCache) Invalidate(ctx context.Context, id string) {
	c.store(ctx, id, cacheEntry{Version: tombstoneVersion})
}

func (c *RedisTourCache) store(ctx context.Context, id string, entry cacheEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	keys := []string{tourCachePrefix + id}
	if err := setIfNewerScript.Run(ctx, c.client, keys, data, entry.Version, c.ttl.Milliseconds()).Err(); err != nil {
		c.logger.Warn("Tour cache write failed", zap.String("tourId", id), zap.Error(err))
	}
}

// MemoryTourCache is an in-process TourCache for single-instance deployments.
type MemoryTourCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	version int64
	tour    *models.Tour
	expires time.Time // zero means no expiry
}

func NewMemoryTourCache(ttl time.Duration) *MemoryTourCache {
	return &MemoryTourCache{ttl: ttl, entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryTourCache) Get(_ context.Context, id string) (*models.Tour, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.live(id)
	if !ok || e.tour == nil {
		return nil, false
	}
	return copyTour(e.tour), true
}

func (c *MemoryTourCache) Set(_ context.Context, tour *models.Tour) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(tour.ID, tour.Version, copyTour(tour))
}

func (c *MemoryTourCache) Invalidate(_ context.Context, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(id, tombstoneVersion, nil)
}

func (c *MemoryTourCache) put(id string, version int64, tour *models.Tour) {
	if e, ok := c.live(id); ok && e.version >= version {
		return
	}
	e := memoryEntry{version: version, tour: tour}
	if c.ttl > 0 {
		e.expires = c.now().Add(c.ttl)
	}
	c.entries[id] = e
}

// live returns the entry for id, dropping it first if it has expired.
func (c *MemoryTourCache) live(id string) (memoryEntry, bool) {
	e, ok := c.entries[id]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		delete(c.entries, id)
		return memoryEntry{}, false
	}
	return e, true
}

func copyTour(t *models.Tour) *models.Tour {
	out := *t
	if t.Rating != nil {
		r := *t.Rating
		out.Rating = &r
	}
	return &out
}
