package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/armysmp/storefront/pkg/config"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		WindowSeconds:  60,
		DefaultLimit:   100,
		AnonymousLimit: 30,
		RedisPrefix:    "rl",
		Endpoints: map[string]config.EndpointRateLimitConfig{
			"/api/v1/admin/login": {AnonymousLimit: 5, WindowSeconds: 300},
			"/api/v1/orders":      {AuthenticatedLimit: 10},
		},
	}
}

func TestNewLimiter(t *testing.T) {
	client, _ := redismock.NewClientMock()
	cfg := testConfig()

	limiter := NewLimiter(client, cfg)

	assert.NotNil(t, limiter.script)
	assert.True(t, limiter.Enabled())
	assert.Equal(t, cfg.RedisPrefix, limiter.cfg.RedisPrefix)
}

func TestRuleFor(t *testing.T) {
	tests := []struct {
		name         string
		endpoint     string
		identity     IdentityType
		expectLimit  int
		expectWindow time.Duration
	}{
		{"authenticated default", "/api/v1/cart", IdentityAuthenticated, 100, time.Minute},
		{"anonymous default", "/api/v1/cart", IdentityAnonymous, 30, time.Minute},
		{"anonymous override with window", "/api/v1/admin/login", IdentityAnonymous, 5, 5 * time.Minute},
		{"override without authenticated limit keeps default", "/api/v1/admin/login", IdentityAuthenticated, 100, 5 * time.Minute},
		{"authenticated override", "/api/v1/orders", IdentityAuthenticated, 10, time.Minute},
		{"override without anonymous limit keeps default", "/api/v1/orders", IdentityAnonymous, 30, time.Minute},
	}

	client, _ := redismock.NewClientMock()
	limiter := NewLimiter(client, testConfig())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := limiter.RuleFor(tt.endpoint, tt.identity)
			assert.Equal(t, tt.expectLimit, rule.Limit)
			assert.Equal(t, tt.expectWindow, rule.Window)
		})
	}
}

func TestAllow_Bypass(t *testing.T) {
	tests := []struct {
		name          string
		enabled       bool
		rule          Rule
		wantRemaining int
	}{
		{"disabled limiter", false, Rule{Limit: 100, Window: time.Minute}, 100},
		{"zero limit", true, Rule{Limit: 0, Window: time.Minute}, 0},
		{"negative limit", true, Rule{Limit: -1, Window: time.Minute}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, mock := redismock.NewClientMock()
			cfg := testConfig()
			cfg.Enabled = tt.enabled
			limiter := NewLimiter(client, cfg)

			result, err := limiter.Allow(context.Background(), "/api/v1/cart", "1.2.3.4", tt.rule, IdentityAnonymous)

			require.NoError(t, err)
			assert.True(t, result.Allowed)
			assert.Equal(t, tt.wantRemaining, result.Remaining)
			assert.Equal(t, "1.2.3.4", result.IdentityKey)
			assert.Equal(t, "/api/v1/cart", result.EndpointKey)
			assert.Zero(t, result.RetryAfter)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAllow_CountsAgainstWindow(t *testing.T) {
	tests := []struct {
		name          string
		count         int64
		ttl           int64
		wantAllowed   bool
		wantRemaining int
		wantRetry     time.Duration
	}{
		{"first request", 1, 60000, true, 4, 0},
		{"last allowed request", 5, 12000, true, 0, 0},
		{"over the limit", 6, 12000, false, 0, 12 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, mock := redismock.NewClientMock()
			limiter := NewLimiter(client, testConfig())
			rule := Rule{Limit: 5, Window: time.Minute}

			mock.ExpectEvalSha(limiter.script.Hash(), []string{"rl:/api/v1/admin/login:1.2.3.4"}, int64(60000)).
				SetVal([]interface{}{tt.count, tt.ttl})

			result, err := limiter.Allow(context.Background(), "/api/v1/admin/login", "1.2.3.4", rule, IdentityAnonymous)

			require.NoError(t, err)
			assert.Equal(t, tt.wantAllowed, result.Allowed)
			assert.Equal(t, tt.wantRemaining, result.Remaining)
			assert.Equal(t, tt.wantRetry, result.RetryAfter)
			assert.Equal(t, time.Duration(tt.ttl)*time.Millisecond, result.ResetAfter)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAllow_ZeroWindowFallsBackToConfig(t *testing.T) {
	client, mock := redismock.NewClientMock()
	limiter := NewLimiter(client, testConfig())

	mock.ExpectEvalSha(limiter.script.Hash(), []string{"rl:/api/v1/cart:user-1"}, int64(60000)).
		SetVal([]interface{}{int64(1), int64(-1)})

	result, err := limiter.Allow(context.Background(), "/api/v1/cart", "user-1", Rule{Limit: 30}, IdentityAuthenticated)

	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, time.Minute, result.Window)
	assert.Equal(t, time.Minute, result.ResetAfter)
}

func TestAllow_RedisError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	limiter := NewLimiter(client, testConfig())

	mock.ExpectEvalSha(limiter.script.Hash(), []string{"rl:/api/v1/cart:user-1"}, int64(60000)).
		SetErr(errors.New("connection refused"))

	_, err := limiter.Allow(context.Background(), "/api/v1/cart", "user-1", Rule{Limit: 30, Window: time.Minute}, IdentityAuthenticated)

	assert.Error(t, err)
}

func TestScriptHash_Deterministic(t *testing.T) {
	client, _ := redismock.NewClientMock()
	limiter1 := NewLimiter(client, testConfig())
	limiter2 := NewLimiter(client, testConfig())

	assert.Equal(t, limiter1.script.Hash(), limiter2.script.Hash())
	assert.NotEmpty(t, limiter1.script.Hash())
}

func TestIdentityTypeConstants(t *testing.T) {
	assert.Equal(t, IdentityType(0), IdentityAnonymous)
	assert.Equal(t, IdentityType(1), IdentityAuthenticated)
}

func TestToInt(t *testing.T) {
	tests := []struct {
		name   string
		input  interface{}
		expect int
	}{
		{"int64", int64(42), 42},
		{"int", 99, 99},
		{"string valid", "123", 123},
		{"string invalid", "abc", 0},
		{"nil", nil, 0},
		{"float", 1.5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, toInt(tt.input))
		})
	}
}

func TestConfigWindow(t *testing.T) {
	tests := []struct {
		name    string
		seconds int
		expect  time.Duration
	}{
		{"positive", 60, 60 * time.Second},
		{"zero falls back", 0, time.Minute},
		{"negative falls back", -1, time.Minute},
		{"large value", 3600, time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.RateLimitConfig{WindowSeconds: tt.seconds}
			assert.Equal(t, tt.expect, cfg.Window())
		})
	}
}
