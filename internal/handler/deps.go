package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/emporia-labs/emporia-backend/internal/apperror"
	"github.com/emporia-labs/emporia-backend/internal/auth"
	"github.com/emporia-labs/emporia-backend/internal/cache"
	"github.com/emporia-labs/emporia-backend/internal/events"
	"github.com/emporia-labs/emporia-backend/internal/middleware"
	"github.com/emporia-labs/emporia-backend/internal/util"
)

const maxSlugAttempts = 5

// serviceDeps are the side channels shared by the resource handlers.
type serviceDeps struct {
	cache  cache.Cache
	events events.Publisher
	log    *slog.Logger
}

func newServiceDeps(c cache.Cache, p events.Publisher, log *slog.Logger) serviceDeps {
	if c == nil {
		c = cache.Nop{}
	}
	if p == nil {
		p = events.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return serviceDeps{cache: c, events: p, log: log}
}

func (d serviceDeps) publish(ctx context.Context, e events.Event) {
	if err := d.events.Publish(ctx, e); err != nil {
		d.log.WarnContext(ctx, "failed to publish event", "topic", e.Topic, "resource_id", e.ResourceID, "error", err)
	}
}

// cached fills dst from the cache, or from load on a miss. Cache failures
// only cost a database read.
func cached[T any](ctx context.Context, d serviceDeps, key string, load func() (T, error)) (T, error) {
	var v T
	found, err := d.cache.Get(ctx, key, &v)
	if err != nil {
		d.log.WarnContext(ctx, "cache read failed", "key", key, "error", err)
	}
	if found {
		return v, nil
	}

	v, err = load()
	if err != nil {
		return v, err
	}
	if err := d.cache.Set(ctx, key, v); err != nil {
		d.log.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
	return v, nil
}

func (d serviceDeps) invalidate(ctx context.Context, keys ...string) {
	if err := d.cache.Delete(ctx, keys...); err != nil {
		d.log.WarnContext(ctx, "cache invalidation failed", "keys", keys, "error", err)
	}
}

// uniqueSlug returns base when free, otherwise base with a random suffix.
func uniqueSlug(ctx context.Context, base string, exists func(context.Context, string) (bool, error)) (string, error) {
	candidate := base
	if candidate == "" {
		candidate = util.SlugWithSuffix("")
	}
	for i := 0; i < maxSlugAttempts; i++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = util.SlugWithSuffix(base)
	}
	return "", apperror.ConflictError{Msg: "Could not generate a unique slug, please retry"}
}

// principal returns the caller, failing with 401 for anonymous requests.
func principal(r *http.Request) (*auth.Principal, error) {
	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		return nil, apperror.AuthenticationError{Msg: "Unauthorized"}
	}
	return p, nil
}
