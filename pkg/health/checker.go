package health

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Checker probes a single dependency
type Checker func(ctx context.Context) error

const defaultTimeout = 2 * time.Second

func withTimeout(ctx context.Context, check func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return check(ctx)
}

// DatabaseChecker returns a health check function for PostgreSQL database
func DatabaseChecker(db *sql.DB) Checker {
	return func(ctx context.Context) error {
		if db == nil {
			return errors.New("database not configured")
		}
		return withTimeout(ctx, db.PingContext)
	}
}

// RedisChecker returns a health check function for Redis
func RedisChecker(client *redis.Client) Checker {
	return func(ctx context.Context) error {
		if client == nil {
			return errors.New("redis not configured")
		}
		return withTimeout(ctx, func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}
}

// NATSChecker reports whether the event bus connection is up
func NATSChecker(connected func() bool) Checker {
	return func(ctx context.Context) error {
		if !connected() {
			return fmt.Errorf("nats disconnected")
		}
		return nil
	}
}
