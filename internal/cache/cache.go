// Package cache memoizes pipeline stage results as JSON artifacts so an
// interrupted run resumes from the last completed stage.
//
// Validity is presence only: an artifact that exists is returned as is, with
// no freshness or input check. Delete an artifact to recompute its stage.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
)

// ErrNotFound is returned by Store.Read when no artifact exists for a key
var ErrNotFound = errors.New("cache artifact not found")

// Store holds serialized stage artifacts by key
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
}

// Cached returns the artifact stored under key when present, skipping
// producer entirely. Otherwise it runs producer, stores its result under key
// and returns it. A producer error is returned and nothing is stored.
func Cached[T any](ctx context.Context, store Store, key string, producer func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	exists, err := store.Exists(ctx, key)
	if err != nil {
		return zero, fmt.Errorf("failed to check cache %s: %w", key, err)
	}

	if exists {
		data, err := store.Read(ctx, key)
		if err != nil {
			return zero, fmt.Errorf("failed to read cache %s: %w", key, err)
		}

		var result T
		if err := json.Unmarshal(data, &result); err != nil {
			return zero, fmt.Errorf("failed to decode cache %s: %w", key, err)
		}

		log.Printf("cache: using %s", key)
		return result, nil
	}

	result, err := producer(ctx)
	if err != nil {
		return zero, err
	}

	data, err := json.Marshal(result)
	if err != nil {
		return zero, fmt.Errorf("failed to encode cache %s: %w", key, err)
	}

	if err := store.Write(ctx, key, data); err != nil {
		return zero, fmt.Errorf("failed to write cache %s: %w", key, err)
	}

	log.Printf("cache: wrote %s", key)
	return result, nil
}
