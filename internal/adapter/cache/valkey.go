package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"
)

// Valkey stores reports in a Valkey-compatible server under a key prefix.
type Valkey struct {
	client valkey.Client
	prefix string
	stats  *Stats
}

// NewValkey wraps an existing client.
func NewValkey(client valkey.Client, prefix string, stats *Stats) *Valkey {
	if prefix == "" {
		prefix = "climate"
	}
	return &Valkey{client: client, prefix: prefix, stats: stats}
}

// Dial connects to addr, which is either host:port or a valkey:// / redis:// URL.
func Dial(addr string) (valkey.Client, error) {
	opt, err := clientOptions(addr)
	if err != nil {
		return nil, err
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("create valkey client: %w", err)
	}
	return client, nil
}

func clientOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		opt, err := valkey.ParseURL(addr)
		if err != nil {
			return valkey.ClientOption{}, fmt.Errorf("parse valkey url: %w", err)
		}
		return opt, nil
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}

// Get returns the stored value. A missing key is a miss, not an error.
func (c *Valkey) Get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, err := c.client.Do(ctx, c.client.B().Get().Key(c.key(key)).Build()).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			c.stats.Miss()
			return nil, false, nil
		}
		c.stats.Failure()
		return nil, false, fmt.Errorf("valkey get: %w", err)
	}
	c.stats.Hit()
	return payload, true, nil
}

// Set stores value with SET EX. Sub-second TTLs are rounded up to one second.
func (c *Valkey) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	builder := c.client.B().Set().Key(c.key(key)).Value(valkey.BinaryString(value))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		c.stats.Failure()
		return fmt.Errorf("valkey set: %w", err)
	}
	c.stats.Set()
	return nil
}

// Ping checks connectivity for readiness probes.
func (c *Valkey) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}

// Stats returns the collector passed to NewValkey.
func (c *Valkey) Stats() *Stats { return c.stats }

// Close releases the underlying client.
func (c *Valkey) Close() {
	c.client.Close()
}

func (c *Valkey) key(k string) string {
	return c.prefix + ":report:" + k
}
