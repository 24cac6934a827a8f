// AngelaMos | 2026
// cache.go

package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/carterperez-dev/stockease/internal/core"
)

// Cached entries persist until a write invalidates them. Page keys need
// a prefix scan to invalidate; when the store cannot scan, writes fall
// back to this TTL as the staleness bound.
const scanFallbackTTL = 5 * time.Minute

const scanCheckPrefix = "inventory:scan-check:"

// Cache is a typed facade over the shared key-value store for product
// reads. Keys are scoped per owner so invalidation never crosses users.
type Cache struct {
	kv     core.KV
	logger *slog.Logger
	ttl    time.Duration
}

func NewCache(kv core.KV, logger *slog.Logger) *Cache {
	var ttl time.Duration
	if _, err := kv.DeleteByPrefix(
		context.Background(),
		scanCheckPrefix,
	); errors.Is(err, core.ErrScanUnsupported) {
		ttl = scanFallbackTTL
	}

	return &Cache{
		kv:     kv,
		logger: logger.With("component", "inventory_cache"),
		ttl:    ttl,
	}
}

func productKey(userID, productID string) string {
	return fmt.Sprintf("user:%s:product:%s", userID, productID)
}

func listKey(userID string) string {
	return fmt.Sprintf("user:%s:products", userID)
}

func pageKeyPrefix(userID string) string {
	return fmt.Sprintf("user:%s:products:page:", userID)
}

func pageKey(userID string, page, pageSize int) string {
	return fmt.Sprintf("%s%d:page_size:%d", pageKeyPrefix(userID), page, pageSize)
}

// GetProduct returns the cached detail payload, or core.ErrCacheMiss.
func (c *Cache) GetProduct(
	ctx context.Context,
	userID, productID string,
) (*ProductResponse, error) {
	raw, err := c.kv.Get(ctx, productKey(userID, productID))
	if err != nil {
		return nil, err
	}

	var resp ProductResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		// A corrupt entry behaves like a miss; the read path refills it.
		return nil, core.ErrCacheMiss
	}

	return &resp, nil
}

func (c *Cache) SetProduct(
	ctx context.Context,
	userID string,
	resp ProductResponse,
) {
	payload, err := json.Marshal(resp)
	if err != nil {
		return
	}

	if err := c.kv.Set(
		ctx,
		productKey(userID, resp.ID),
		string(payload),
		c.ttl,
	); err != nil {
		c.logger.Warn("product cache write failed",
			"user_id", userID,
			"product_id", resp.ID,
			"error", err,
		)
	}
}

// GetPage returns the cached list envelope for one (page, page_size)
// combination, or core.ErrCacheMiss.
func (c *Cache) GetPage(
	ctx context.Context,
	userID string,
	page, pageSize int,
) (*ProductListResponse, error) {
	raw, err := c.kv.Get(ctx, pageKey(userID, page, pageSize))
	if err != nil {
		return nil, err
	}

	var resp ProductListResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, core.ErrCacheMiss
	}

	return &resp, nil
}

func (c *Cache) SetPage(
	ctx context.Context,
	userID string,
	page, pageSize int,
	resp ProductListResponse,
) {
	payload, err := json.Marshal(resp)
	if err != nil {
		return
	}

	if err := c.kv.Set(
		ctx,
		pageKey(userID, page, pageSize),
		string(payload),
		c.ttl,
	); err != nil {
		c.logger.Warn("product page cache write failed",
			"user_id", userID,
			"page", page,
			"error", err,
		)
	}
}

// Invalidate drops every cached view that could reflect the product:
// its detail entry, the unpaginated list, and all paginated pages. Page
// keys vary by page and page_size, so they go by prefix scan. A scan
// failure is logged and surfaced but never blocks the write path; on a
// scanless store, stale entries age out via the fallback TTL.
func (c *Cache) Invalidate(ctx context.Context, userID, productID string) {
	if _, err := c.kv.Delete(
		ctx,
		productKey(userID, productID),
		listKey(userID),
	); err != nil {
		c.logger.Warn("cache invalidation failed",
			"user_id", userID,
			"product_id", productID,
			"error", err,
		)
	}

	if _, err := c.kv.DeleteByPrefix(ctx, pageKeyPrefix(userID)); err != nil {
		if !errors.Is(err, core.ErrScanUnsupported) {
			c.logger.Warn("paginated cache invalidation failed",
				"user_id", userID,
				"error", err,
			)
			core.SetSpanError(ctx, err)
		}
	}
}
