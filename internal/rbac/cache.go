package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache stores built permission contexts in Redis so a burst of requests from
// the same user rebuilds the context once instead of once per request. It is
// nil-safe: with no client everything falls through to the store.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the context cache.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

type contextPayload struct {
	UserID      string              `json:"user_id"`
	Assignments []TourRole          `json:"assignments"`
	Global      []string            `json:"global"`
	PerTour     map[string][]string `json:"per_tour"`
	BuiltAt     time.Time           `json:"built_at"`
}

// Get loads a cached context. A miss or decode failure returns (nil, nil).
func (c *Cache) Get(ctx context.Context, userID uuid.UUID) (*PermissionContext, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	raw, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var payload contextPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		// Stale or corrupt entry; treat as a miss.
		return nil, nil
	}
	return payload.toContext()
}

// Set stores a built context.
func (c *Cache) Set(ctx context.Context, pctx *PermissionContext) error {
	if c == nil || c.client == nil || pctx == nil {
		return nil
	}
	payload := fromContext(pctx)
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(pctx.UserID), raw, c.ttl).Err()
}

// Invalidate drops the cached context for a user. Must be called whenever the
// user's assignments change.
func (c *Cache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, c.key(userID)).Err()
}

func (c *Cache) key(userID uuid.UUID) string {
	return "rbac:ctx:" + userID.String()
}

func fromContext(pctx *PermissionContext) contextPayload {
	payload := contextPayload{
		UserID:      pctx.UserID.String(),
		Assignments: pctx.Assignments,
		Global:      pctx.Global.Names(),
		PerTour:     make(map[string][]string, len(pctx.PerTour)),
		BuiltAt:     pctx.BuiltAt,
	}
	for tourID, perms := range pctx.PerTour {
		payload.PerTour[tourID.String()] = perms.Names()
	}
	return payload
}

func (p contextPayload) toContext() (*PermissionContext, error) {
	userID, err := uuid.Parse(p.UserID)
	if err != nil {
		return nil, err
	}
	pctx := &PermissionContext{
		UserID:      userID,
		Assignments: p.Assignments,
		Global:      make(PermissionSet, len(p.Global)),
		PerTour:     make(map[uuid.UUID]PermissionSet, len(p.PerTour)),
		BuiltAt:     p.BuiltAt,
	}
	for _, name := range p.Global {
		pctx.Global[name] = struct{}{}
	}
	for rawID, names := range p.PerTour {
		tourID, err := uuid.Parse(rawID)
		if err != nil {
			return nil, err
		}
		set := make(PermissionSet, len(names))
		for _, name := range names {
			set[name] = struct{}{}
		}
		pctx.PerTour[tourID] = set
	}
	return pctx, nil
}
