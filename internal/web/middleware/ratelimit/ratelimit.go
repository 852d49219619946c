// Package ratelimit throttles login attempts per client address using a
// Redis counter. The limiter fails open: an unreachable Redis never locks
// users out.
package ratelimit

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/glasspane/glasspane/internal/config"
)

const keyPrefix = "glasspane:login_rate:"

// Service is a per-address login attempt limiter.
type Service struct {
	client *redis.Client
	limit  int64
	period time.Duration
}

// New creates a limiter from the Redis configuration. An empty URL disables
// limiting entirely.
func New(cfg config.Redis) *Service {
	if cfg.URL == "" {
		log.Info().Msg("no redis configured, login rate limiting disabled")

		return &Service{}
	}

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		log.Error().Err(err).Msg("invalid redis URL, login rate limiting disabled")

		return &Service{}
	}

	return &Service{
		client: redis.NewClient(opt),
		limit:  int64(cfg.LoginRateLimit),
		period: time.Duration(cfg.LoginRatePeriod) * time.Second,
	}
}

// Middleware counts the attempt and rejects the request once the client
// address exceeds the limit within the period.
func (s *Service) Middleware(c *fiber.Ctx) error {
	if s.client == nil {
		return c.Next()
	}

	ctx := c.UserContext()
	key := keyPrefix + c.IP()

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		log.Warn().Err(err).Msg("rate limit counter unavailable, allowing request")

		return c.Next()
	}

	if count == 1 {
		if err := s.client.Expire(ctx, key, s.period).Err(); err != nil {
			log.Warn().Err(err).Msg("failed to set rate limit expiry")
		}
	}

	if count > s.limit {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": "too many login attempts, try again later",
		})
	}

	return c.Next()
}
