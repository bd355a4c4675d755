// Package stepcache checkpoints completed pipeline steps so a re-run of the
// same publish job resumes after the last step that succeeded instead of
// repeating side-effecting provider calls.
package stepcache

import "context"

// Cache stores one result string per (jobKey, step). Entries carry a TTL that
// matches the provider-side container lifetime; a stale checkpoint pointing at
// an expired container is worse than no checkpoint.
type Cache interface {
	Get(ctx context.Context, jobKey, step string) (string, bool, error)
	Set(ctx context.Context, jobKey, step, result string) error
	Clear(ctx context.Context, jobKey string) error
}
