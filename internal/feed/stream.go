package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/value-tipster/internal/config"
	"github.com/yourusername/value-tipster/internal/scan"
)

// StreamClient is the subset of the Redis client the stream publisher needs
type StreamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// NewRedisClient creates a Redis client from the feed configuration
func NewRedisClient(cfg config.FeedConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// StreamPublisher appends every opportunity of a scan to a Redis stream.
// The stream is trimmed approximately to maxLen entries.
type StreamPublisher struct {
	client StreamClient
	stream string
	maxLen int64
	logger *logrus.Entry
}

// NewStreamPublisher creates a stream publisher
func NewStreamPublisher(client StreamClient, stream string, maxLen int64, log *logrus.Logger) *StreamPublisher {
	return &StreamPublisher{
		client: client,
		stream: stream,
		maxLen: maxLen,
		logger: log.WithField("component", "feed_stream"),
	}
}

// Name identifies the publisher
func (p *StreamPublisher) Name() string {
	return "redis"
}

// Publish appends the opportunities in rank order
func (p *StreamPublisher) Publish(ctx context.Context, result *scan.Result) error {
	for i, opp := range result.Opportunities {
		body, err := json.Marshal(opp)
		if err != nil {
			return fmt.Errorf("failed to marshal opportunity: %w", err)
		}

		args := &redis.XAddArgs{
			Stream: p.stream,
			Values: map[string]interface{}{
				"run_id":      result.RunID.String(),
				"rank":        i + 1,
				"fixture_id":  opp.FixtureID,
				"market":      string(opp.Market),
				"opportunity": string(body),
			},
		}
		if p.maxLen > 0 {
			args.MaxLen = p.maxLen
			args.Approx = true
		}

		if err := p.client.XAdd(ctx, args).Err(); err != nil {
			return fmt.Errorf("failed to publish to stream %s: %w", p.stream, err)
		}
	}

	p.logger.WithFields(logrus.Fields{
		"stream":        p.stream,
		"run_id":        result.RunID.String(),
		"opportunities": len(result.Opportunities),
	}).Debug("Published scan to stream")
	return nil
}

// Ping checks the Redis connection
func (p *StreamPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (p *StreamPublisher) Close() error {
	return p.client.Close()
}
