package config

import "time"

// RateLimitConfig configures the Redis token bucket.  Two buckets share
// the settings: the default one guards authenticated API traffic and a
// stricter one (PublicCapacity) guards unauthenticated form submissions
// such as login, job applications and inquiries.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	PublicCapacity int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

func LoadRateLimitConfig() RateLimitConfig {
	def := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 120),
		PublicCapacity: envInt("RATE_LIMIT_PUBLIC_CAPACITY", 10),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "picode:rl"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	if def.Capacity < 1 {
		def.Capacity = 1
	}
	if def.PublicCapacity < 1 {
		def.PublicCapacity = 1
	}
	if def.RefillTokens < 1 {
		def.RefillTokens = 1
	}
	if def.RefillInterval <= 0 {
		def.RefillInterval = time.Second
	}
	minTTL := 5 * def.RefillInterval
	if def.TTL < minTTL {
		def.TTL = minTTL
	}
	return def
}

// Public returns a copy tuned for unauthenticated submission endpoints.
func (c RateLimitConfig) Public() RateLimitConfig {
	c.Capacity = c.PublicCapacity
	c.Prefix += ":public"
	c.KeyStrategy = "ip_route"
	return c
}
