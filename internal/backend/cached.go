package backend

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/samtoma/Headhunter-sub000/internal/cache"
	"github.com/samtoma/Headhunter-sub000/pkg/models"
)

// CachedClient is a read-through cache in front of a Client. Profile pages and the
// job list are cached per write generation; every successful write bumps the
// generation so no read after it can be served from an older page. Cache failures
// fall through to the backend.
type CachedClient struct {
	Client
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedClient wraps inner with c.
func NewCachedClient(inner Client, c cache.Cache, ttl time.Duration) *CachedClient {
	return &CachedClient{Client: inner, cache: c, ttl: ttl}
}

func (c *CachedClient) ListProfiles(ctx context.Context, req models.PageRequest) ([]models.Profile, error) {
	gen, ok := c.generation(ctx)
	if !ok {
		return c.Client.ListProfiles(ctx, req)
	}
	key := cache.ProfilePageKey(gen, hashRequest(req))

	var profiles []models.Profile
	if c.lookup(ctx, key, &profiles) {
		return profiles, nil
	}

	profiles, err := c.Client.ListProfiles(ctx, req)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, profiles)
	return profiles, nil
}

func (c *CachedClient) ListJobs(ctx context.Context) ([]models.Job, error) {
	gen, ok := c.generation(ctx)
	if !ok {
		return c.Client.ListJobs(ctx)
	}
	key := cache.JobsKey(gen)

	var jobs []models.Job
	if c.lookup(ctx, key, &jobs) {
		return jobs, nil
	}

	jobs, err := c.Client.ListJobs(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, jobs)
	return jobs, nil
}

func (c *CachedClient) PatchProfile(ctx context.Context, id int64, patch models.ProfilePatch) (*models.Profile, error) {
	p, err := c.Client.PatchProfile(ctx, id, patch)
	if err == nil {
		c.invalidate(ctx)
	}
	return p, err
}

func (c *CachedClient) DeleteProfile(ctx context.Context, id int64) error {
	err := c.Client.DeleteProfile(ctx, id)
	if err == nil {
		c.invalidate(ctx)
	}
	return err
}

func (c *CachedClient) PatchApplication(ctx context.Context, id int64, patch models.ApplicationPatch) (*models.Application, error) {
	app, err := c.Client.PatchApplication(ctx, id, patch)
	if err == nil {
		c.invalidate(ctx)
	}
	return app, err
}

func (c *CachedClient) DeleteApplication(ctx context.Context, id int64) error {
	err := c.Client.DeleteApplication(ctx, id)
	if err == nil {
		c.invalidate(ctx)
	}
	return err
}

func (c *CachedClient) ReprocessBulk(ctx context.Context, ids []int64) (*BatchResult, error) {
	res, err := c.Client.ReprocessBulk(ctx, ids)
	if err == nil {
		c.invalidate(ctx)
	}
	return res, err
}

func (c *CachedClient) AssignBulk(ctx context.Context, jobID int64, ids []int64) ([]models.Application, error) {
	apps, err := c.Client.AssignBulk(ctx, jobID, ids)
	if err == nil {
		c.invalidate(ctx)
	}
	return apps, err
}

func (c *CachedClient) DeleteBulk(ctx context.Context, ids []int64) (*BatchResult, error) {
	res, err := c.Client.DeleteBulk(ctx, ids)
	if err == nil {
		c.invalidate(ctx)
	}
	return res, err
}

func (c *CachedClient) UploadBulk(ctx context.Context, req UploadRequest, progress ProgressFunc) (*UploadReceipt, error) {
	receipt, err := c.Client.UploadBulk(ctx, req, progress)
	if err == nil {
		c.invalidate(ctx)
	}
	return receipt, err
}

func (c *CachedClient) generation(ctx context.Context) (int64, bool) {
	gen, err := c.cache.Generation(ctx, cache.WriteGenerationKey)
	if err != nil {
		slog.Warn("cache generation lookup failed", "error", err)
		return 0, false
	}
	return gen, true
}

func (c *CachedClient) lookup(ctx context.Context, key string, out any) bool {
	raw, found, err := c.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("cache read failed", "key", key, "error", err)
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		slog.Warn("cache entry undecodable", "key", key, "error", err)
		return false
	}
	return true
}

func (c *CachedClient) store(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
		slog.Warn("cache write failed", "key", key, "error", err)
	}
}

func (c *CachedClient) invalidate(ctx context.Context) {
	if _, err := c.cache.BumpGeneration(ctx, cache.WriteGenerationKey); err != nil {
		slog.Error("cache invalidation failed", "error", err)
	}
}

func hashRequest(req models.PageRequest) string {
	raw, _ := json.Marshal(req)
	return fmt.Sprintf("%x", sha256.Sum256(raw))
}

var _ Client = (*CachedClient)(nil)
