package application

import (
	"context"
	"encoding/json"

	"github.com/televault/televault/internal/domain"
)

// fetchThrough is the shared stale-while-revalidate read path:
//
//	hit-fresh  -> return cached payload
//	hit-stale  -> return cached payload now, enqueue background refresh
//	miss       -> fetch synchronously, write through, return
//
// Only the miss path can fail; a stale entry always serves.
func fetchThrough(ctx context.Context, cache domain.CachePolicy, reval *Revalidator, category domain.Category, key string, fetch FetchFunc) (json.RawMessage, error) {
	result := cache.Get(ctx, category, key)
	switch result.Freshness {
	case domain.Fresh:
		return result.Payload, nil
	case domain.Stale:
		reval.Enqueue(category, key, fetch)
		return result.Payload, nil
	}

	payload, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	cache.Put(ctx, category, key, payload)
	return payload, nil
}

// decodeInto unwraps a cached or fetched payload into its typed
// shape. A decode failure maps to domain.ErrParse semantics at the
// caller.
func decodeInto[T any](payload json.RawMessage) (T, error) {
	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		return out, err
	}
	return out, nil
}
