package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sparecast/sparecast/internal/config"
	"github.com/sparecast/sparecast/internal/domain"
)

const (
	classificationKeyPrefix = "classify:page"
	matrixKey               = "classify:matrix"
	classifyScanBatchSize   = 100
)

// classificationPage bundles one query result with its total so a cache hit
// restores pagination intact.
type classificationPage struct {
	Results []domain.ClassificationResult `json:"results"`
	Total   int                           `json:"total"`
}

// ClassificationCache keeps hot classification queries off the database.
// Entries are invalidated wholesale whenever a run completes or an
// adjustment is approved; results only change at those points.
type ClassificationCache interface {
	GetPage(ctx context.Context, filter domain.ClassificationFilter) ([]domain.ClassificationResult, int, bool, error)
	SetPage(ctx context.Context, filter domain.ClassificationFilter, results []domain.ClassificationResult, total int) error
	GetMatrix(ctx context.Context) (map[string]int, bool, error)
	SetMatrix(ctx context.Context, matrix map[string]int) error
	InvalidateAll(ctx context.Context) error
}

type redisClassificationCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopClassificationCache struct{}

func NewClassificationCache(cfg config.CacheConfig) (ClassificationCache, error) {
	if !cfg.Enabled {
		return &noopClassificationCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisClassificationCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopClassificationCache() ClassificationCache {
	return &noopClassificationCache{}
}

func (c *redisClassificationCache) GetPage(ctx context.Context, filter domain.ClassificationFilter) ([]domain.ClassificationResult, int, bool, error) {
	key := buildClassificationKey(filter)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("redis get failed: %w", err)
	}

	var page classificationPage
	if err := json.Unmarshal(payload, &page); err != nil {
		return nil, 0, false, fmt.Errorf("decode classification cache: %w", err)
	}

	return page.Results, page.Total, true, nil
}

func (c *redisClassificationCache) SetPage(ctx context.Context, filter domain.ClassificationFilter, results []domain.ClassificationResult, total int) error {
	key := buildClassificationKey(filter)
	payload, err := json.Marshal(classificationPage{Results: results, Total: total})
	if err != nil {
		return fmt.Errorf("encode classification cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisClassificationCache) GetMatrix(ctx context.Context) (map[string]int, bool, error) {
	payload, err := c.client.Get(ctx, matrixKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var matrix map[string]int
	if err := json.Unmarshal(payload, &matrix); err != nil {
		return nil, false, fmt.Errorf("decode matrix cache: %w", err)
	}

	return matrix, true, nil
}

func (c *redisClassificationCache) SetMatrix(ctx context.Context, matrix map[string]int) error {
	payload, err := json.Marshal(matrix)
	if err != nil {
		return fmt.Errorf("encode matrix cache: %w", err)
	}

	if err := c.client.Set(ctx, matrixKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisClassificationCache) InvalidateAll(ctx context.Context) error {
	if err := deleteKeysWithPrefix(ctx, c.client, classificationKeyPrefix, classifyScanBatchSize); err != nil {
		return err
	}
	return c.client.Del(ctx, matrixKey).Err()
}

func (n *noopClassificationCache) GetPage(ctx context.Context, filter domain.ClassificationFilter) ([]domain.ClassificationResult, int, bool, error) {
	return nil, 0, false, nil
}

func (n *noopClassificationCache) SetPage(ctx context.Context, filter domain.ClassificationFilter, results []domain.ClassificationResult, total int) error {
	return nil
}

func (n *noopClassificationCache) GetMatrix(ctx context.Context) (map[string]int, bool, error) {
	return nil, false, nil
}

func (n *noopClassificationCache) SetMatrix(ctx context.Context, matrix map[string]int) error {
	return nil
}

func (n *noopClassificationCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildClassificationKey(filter domain.ClassificationFilter) string {
	return fmt.Sprintf("%s:%s", classificationKeyPrefix, classificationFilterHash(filter))
}

func classificationFilterHash(filter domain.ClassificationFilter) string {
	parts := []string{}

	if filter.ABCClass != "" {
		parts = append(parts, "abc="+strings.ToUpper(string(filter.ABCClass)))
	}
	if filter.XYZClass != "" {
		parts = append(parts, "xyz="+strings.ToUpper(string(filter.XYZClass)))
	}
	if filter.ItemCode != "" {
		parts = append(parts, "item="+strings.ToLower(strings.TrimSpace(filter.ItemCode)))
	}
	if filter.Period != "" {
		parts = append(parts, "period="+strings.TrimSpace(filter.Period))
	}
	if filter.Page > 0 {
		parts = append(parts, fmt.Sprintf("page=%d", filter.Page))
	}
	if filter.PageSize > 0 {
		parts = append(parts, fmt.Sprintf("page_size=%d", filter.PageSize))
	}

	if len(parts) == 0 {
		return "default"
	}

	sort.Strings(parts)
	raw := strings.Join(parts, "|")
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}
