package predictor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/value-tipster/internal/logger"
	"github.com/yourusername/value-tipster/internal/models"
)

// CacheKey represents a unique key for caching predictions
type CacheKey struct {
	Variant        string
	FixtureID      string
	ExcludedSeason string
}

// String returns string representation of cache key
func (k CacheKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.Variant, k.FixtureID, k.ExcludedSeason)
}

// PredictionCache provides in-memory caching for predictions
type PredictionCache struct {
	cache     *cache.Cache
	ttl       time.Duration
	maxSize   int
	hitCount  atomic.Uint64
	missCount atomic.Uint64
}

// NewPredictionCache creates a new prediction cache
func NewPredictionCache(ttl time.Duration, maxSize int) *PredictionCache {
	return &PredictionCache{
		cache:   cache.New(ttl, ttl*2),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get retrieves a cached prediction
func (pc *PredictionCache) Get(key CacheKey) *models.Prediction {
	if result, found := pc.cache.Get(key.String()); found {
		if pred, ok := result.(*models.Prediction); ok {
			pc.hitCount.Add(1)
			pc.updateMetrics()
			return pred
		}
	}

	pc.missCount.Add(1)
	pc.updateMetrics()
	return nil
}

// Set stores a prediction in cache
func (pc *PredictionCache) Set(key CacheKey, prediction *models.Prediction) {
	if pc.maxSize > 0 && pc.cache.ItemCount() >= pc.maxSize {
		// Remove expired items first
		pc.cache.DeleteExpired()
		if pc.cache.ItemCount() >= pc.maxSize {
			return
		}
	}

	pc.cache.Set(key.String(), prediction, pc.ttl)
}

// Clear flushes the entire cache
func (pc *PredictionCache) Clear() {
	pc.cache.Flush()
	pc.hitCount.Store(0)
	pc.missCount.Store(0)
}

// Stats returns cache statistics
func (pc *PredictionCache) Stats() (hits, misses uint64, ratio float64) {
	hits = pc.hitCount.Load()
	misses = pc.missCount.Load()
	total := hits + misses
	if total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

// ItemCount returns the number of items in cache
func (pc *PredictionCache) ItemCount() int {
	return pc.cache.ItemCount()
}

func (pc *PredictionCache) updateMetrics() {
	_, _, ratio := pc.Stats()
	CacheHitRatio.Set(ratio)
}

// CachedPredictor wraps a Predictor with prediction caching
type CachedPredictor struct {
	next   Predictor
	cache  *PredictionCache
	logger *logger.PredictorLogger
}

// NewCachedPredictor creates a new cached predictor
func NewCachedPredictor(next Predictor, ttl time.Duration, maxSize int, log *logrus.Logger) *CachedPredictor {
	return &CachedPredictor{
		next:   next,
		cache:  NewPredictionCache(ttl, maxSize),
		logger: logger.NewPredictorLogger(log),
	}
}

// Variant returns the wrapped predictor's variant
func (c *CachedPredictor) Variant() string {
	return c.next.Variant()
}

// Predict returns a cached prediction or asks the wrapped predictor.
// Failures are never cached.
func (c *CachedPredictor) Predict(ctx context.Context, req models.PredictionRequest) (*models.Prediction, error) {
	key := CacheKey{
		Variant:        c.next.Variant(),
		FixtureID:      req.FixtureID,
		ExcludedSeason: req.ExcludedSeason,
	}

	if cached := c.cache.Get(key); cached != nil {
		PredictionsTotal.WithLabelValues("cached", "true").Inc()
		c.logger.LogPrediction(key.Variant, req.FixtureID, true, 0)
		copied := *cached
		return &copied, nil
	}

	result, err := c.next.Predict(ctx, req)
	if err != nil {
		return nil, err
	}

	c.cache.Set(key, result)
	copied := *result
	return &copied, nil
}

// Prepare forwards to the wrapped predictor when it needs training
func (c *CachedPredictor) Prepare(ctx context.Context, league, excludedSeason string) error {
	if p, ok := c.next.(Preparer); ok {
		return p.Prepare(ctx, league, excludedSeason)
	}
	return nil
}

// Reset clears cached predictions and any trained state of the wrapped predictor
func (c *CachedPredictor) Reset() {
	c.cache.Clear()
	if r, ok := c.next.(interface{ Reset() }); ok {
		r.Reset()
	}
}

// GetCacheStats returns cache statistics
func (c *CachedPredictor) GetCacheStats() (hits, misses uint64, hitRatio float64) {
	return c.cache.Stats()
}

// Close closes the wrapped predictor
func (c *CachedPredictor) Close() error {
	return Close(c.next)
}
