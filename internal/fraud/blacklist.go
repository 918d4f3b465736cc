package fraud

import (
	"context"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"
)

// MemoryBlacklist is a process-local blacklist; contents are lost on restart
type MemoryBlacklist struct {
	mu  sync.RWMutex
	ips map[string]struct{}
}

var _ BlacklistStore = (*MemoryBlacklist)(nil)

// NewMemoryBlacklist creates an empty in-process blacklist
func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{ips: make(map[string]struct{})}
}

func (b *MemoryBlacklist) Contains(_ context.Context, ip string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.ips[ip]
	return ok, nil
}

func (b *MemoryBlacklist) AddAll(_ context.Context, ips []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ip := range ips {
		if ip != "" {
			b.ips[ip] = struct{}{}
		}
	}
	return nil
}

func (b *MemoryBlacklist) Size(_ context.Context) (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return int64(len(b.ips)), nil
}

func (b *MemoryBlacklist) List(_ context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.ips))
	for ip := range b.ips {
		out = append(out, ip)
	}
	sort.Strings(out)
	return out, nil
}

// RedisBlacklist keeps the blacklist in a Redis set shared by all replicas
type RedisBlacklist struct {
	client redis.Cmdable
	key    string
}

var _ BlacklistStore = (*RedisBlacklist)(nil)

// NewRedisBlacklist creates a blacklist stored under key
func NewRedisBlacklist(client redis.Cmdable, key string) *RedisBlacklist {
	return &RedisBlacklist{client: client, key: key}
}

func (b *RedisBlacklist) Contains(ctx context.Context, ip string) (bool, error) {
	return b.client.SIsMember(ctx, b.key, ip).Result()
}

func (b *RedisBlacklist) AddAll(ctx context.Context, ips []string) error {
	members := make([]interface{}, 0, len(ips))
	for _, ip := range ips {
		if ip != "" {
			members = append(members, ip)
		}
	}
	if len(members) == 0 {
		return nil
	}
	return b.client.SAdd(ctx, b.key, members...).Err()
}

func (b *RedisBlacklist) Size(ctx context.Context) (int64, error) {
	return b.client.SCard(ctx, b.key).Result()
}

func (b *RedisBlacklist) List(ctx context.Context) ([]string, error) {
	ips, err := b.client.SMembers(ctx, b.key).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ips)
	return ips, nil
}
