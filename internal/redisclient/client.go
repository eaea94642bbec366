package redisclient

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const lowStockSetKey = "stock:low"

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// SetStock caches a product's on-hand quantity and threshold
func (c *Client) SetStock(ctx context.Context, productID int64, quantity, threshold int) error {
	key := fmt.Sprintf("stock:%d", productID)

	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, key, "quantity", quantity)
	pipe.HSet(ctx, key, "threshold", threshold)

	_, err := pipe.Exec(ctx)
	return err
}

// GetStock retrieves a product's cached quantity and threshold
func (c *Client) GetStock(ctx context.Context, productID int64) (quantity, threshold int, err error) {
	key := fmt.Sprintf("stock:%d", productID)

	result, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	if len(result) == 0 {
		return 0, 0, fmt.Errorf("no cached stock for product %d", productID)
	}

	quantity, _ = strconv.Atoi(result["quantity"])
	threshold, _ = strconv.Atoi(result["threshold"])
	return quantity, threshold, nil
}

// MarkLowStock adds a product to the low-stock set observed by the dashboard
func (c *Client) MarkLowStock(ctx context.Context, productID int64) error {
	return c.rdb.SAdd(ctx, lowStockSetKey, productID).Err()
}

// ClearLowStock removes a product from the low-stock set
func (c *Client) ClearLowStock(ctx context.Context, productID int64) error {
	return c.rdb.SRem(ctx, lowStockSetKey, productID).Err()
}

// LowStockProductIDs lists products currently flagged as low on stock
func (c *Client) LowStockProductIDs(ctx context.Context) ([]int64, error) {
	members, err := c.rdb.SMembers(ctx, lowStockSetKey).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ClaimIdempotencyKey records a sale idempotency key, returning false when
// the key was already claimed. The stored value is the bill ID.
func (c *Client) ClaimIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("idempotency:%s", key), "0", ttl).Result()
}

// BindIdempotencyKey attaches the created bill ID to a claimed key
func (c *Client) BindIdempotencyKey(ctx context.Context, key string, billID int64, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), billID, ttl).Err()
}

// LookupIdempotencyKey returns the bill ID bound to a key, or 0 when the
// key is unknown or not yet bound.
func (c *Client) LookupIdempotencyKey(ctx context.Context, key string) (int64, error) {
	val, err := c.rdb.Get(ctx, fmt.Sprintf("idempotency:%s", key)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	id, _ := strconv.ParseInt(val, 10, 64)
	return id, nil
}
