package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/armysmp/storefront/pkg/config"
	"github.com/redis/go-redis/v9"
)

// IdentityType distinguishes signed-in callers from anonymous ones
type IdentityType int

const (
	IdentityAnonymous IdentityType = iota
	IdentityAuthenticated
)

// fixedWindowScript increments the window counter and returns it with the
// remaining TTL in milliseconds.
const fixedWindowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`

// Rule is the effective limit for one endpoint and identity type
type Rule struct {
	Limit  int
	Window time.Duration
}

// Result describes one limiter decision
type Result struct {
	Allowed      bool
	Remaining    int
	RetryAfter   time.Duration
	Limit        int
	Window       time.Duration
	ResetAfter   time.Duration
	IdentityKey  string
	EndpointKey  string
	IdentityType IdentityType
}

// Limiter enforces fixed-window limits with a Redis script
type Limiter struct {
	client redis.Scripter
	cfg    config.RateLimitConfig
	script *redis.Script
}

// NewLimiter creates a limiter over client
func NewLimiter(client redis.Scripter, cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		client: client,
		cfg:    cfg,
		script: redis.NewScript(fixedWindowScript),
	}
}

// Enabled reports whether limits are enforced at all
func (l *Limiter) Enabled() bool {
	return l.cfg.Enabled
}

// RuleFor resolves the limit for endpoint, applying any configured override
func (l *Limiter) RuleFor(endpoint string, identity IdentityType) Rule {
	rule := Rule{Limit: l.cfg.DefaultLimit, Window: l.cfg.Window()}
	if identity == IdentityAnonymous {
		rule.Limit = l.cfg.AnonymousLimit
	}

	override, ok := l.cfg.Endpoints[endpoint]
	if !ok {
		return rule
	}
	switch identity {
	case IdentityAuthenticated:
		if override.AuthenticatedLimit > 0 {
			rule.Limit = override.AuthenticatedLimit
		}
	case IdentityAnonymous:
		if override.AnonymousLimit > 0 {
			rule.Limit = override.AnonymousLimit
		}
	}
	if override.WindowSeconds > 0 {
		rule.Window = time.Duration(override.WindowSeconds) * time.Second
	}
	return rule
}

// Allow counts one request from identity against endpoint.
// A disabled limiter or a non-positive limit always allows.
func (l *Limiter) Allow(ctx context.Context, endpoint, identity string, rule Rule, identityType IdentityType) (*Result, error) {
	result := &Result{
		Allowed:      true,
		Remaining:    rule.Limit,
		Limit:        rule.Limit,
		Window:       rule.Window,
		IdentityKey:  identity,
		EndpointKey:  endpoint,
		IdentityType: identityType,
	}
	if !l.cfg.Enabled || rule.Limit <= 0 {
		if result.Remaining < 0 {
			result.Remaining = 0
		}
		return result, nil
	}

	window := rule.Window
	if window <= 0 {
		window = l.cfg.Window()
		result.Window = window
	}

	values, err := l.script.Run(ctx, l.client, []string{l.key(endpoint, identity)}, window.Milliseconds()).Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit script: %w", err)
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("rate limit script: unexpected reply length %d", len(values))
	}

	count := toInt(values[0])
	ttl := time.Duration(toInt(values[1])) * time.Millisecond
	if ttl < 0 {
		ttl = window
	}

	result.ResetAfter = ttl
	result.Remaining = rule.Limit - count
	if result.Remaining < 0 {
		result.Remaining = 0
	}
	if count > rule.Limit {
		result.Allowed = false
		result.RetryAfter = ttl
	}
	return result, nil
}

// ScriptHash is the SHA1 of the window script as sent with EVALSHA
func (l *Limiter) ScriptHash() string {
	return l.script.Hash()
}

func (l *Limiter) key(endpoint, identity string) string {
	return l.cfg.RedisPrefix + ":" + endpoint + ":" + identity
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}
