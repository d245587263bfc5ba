// Package repository mediates between the local store and the backend: reads
// are always local, writes go to the backend first, and sync pulls whole
// collections from the backend into the store.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"supplyline-sync/internal/remote"
)

// ErrNotFound is returned when a requested entity is not in the local store.
var ErrNotFound = errors.New("repository: not found")

// WritePolicy decides what happens to a create or update the backend rejects.
type WritePolicy string

const (
	// FallbackLocal keeps the write in the local store only.
	FallbackLocal WritePolicy = "fallback_local"
	// RemoteOnly reports the write as failed and leaves the store untouched.
	RemoteOnly WritePolicy = "remote_only"
)

// ParseWritePolicy maps a configuration value to a WritePolicy.
func ParseWritePolicy(s string) (WritePolicy, error) {
	switch WritePolicy(s) {
	case FallbackLocal, RemoteOnly:
		return WritePolicy(s), nil
	case "":
		return FallbackLocal, nil
	default:
		return "", fmt.Errorf("unknown write policy %q", s)
	}
}

// Status tags where a write ended up.
type Status int

const (
	Failed Status = iota
	SyncedRemote
	SavedLocalOnly
)

func (s Status) String() string {
	switch s {
	case SyncedRemote:
		return "synced_remote"
	case SavedLocalOnly:
		return "saved_local_only"
	default:
		return "failed"
	}
}

// Outcome is the result of a create or update. Err is set for Failed, and for
// SavedLocalOnly it holds the backend error that caused the fallback.
type Outcome struct {
	Status Status
	Err    error
}

// OK reports whether the entity was saved somewhere.
func (o Outcome) OK() bool { return o.Status != Failed }

// SyncError reports a failed pull of one entity collection.
type SyncError struct {
	Entity string
	Err    error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("failed to sync %s: %v", e.Entity, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// Retryable reports whether the underlying failure may clear on its own.
func (e *SyncError) Retryable() bool {
	return remote.Classify(e.Err).Retryable()
}

// writeThrough sends item to the backend and stores the confirmed copy. When
// the backend fails, policy decides between a local-only write and failure.
func writeThrough[T any](
	ctx context.Context,
	policy WritePolicy,
	entity string,
	item *T,
	send func(context.Context, *T) (*T, error),
	saveConfirmed func(context.Context, *T) error,
	saveLocal func(context.Context, *T) error,
) (*T, Outcome) {
	confirmed, err := send(ctx, item)
	if err == nil {
		if err := saveConfirmed(ctx, confirmed); err != nil {
			return confirmed, Outcome{Status: Failed, Err: fmt.Errorf("failed to store confirmed %s: %w", entity, err)}
		}
		return confirmed, Outcome{Status: SyncedRemote}
	}

	remoteErr := remote.Classify(err)
	if policy == RemoteOnly {
		return nil, Outcome{Status: Failed, Err: remoteErr}
	}

	log.Printf("Warning: backend rejected %s write (%v); keeping it locally", entity, remoteErr)
	if err := saveLocal(ctx, item); err != nil {
		return nil, Outcome{Status: Failed, Err: fmt.Errorf("failed to store local %s: %w", entity, err)}
	}
	return item, Outcome{Status: SavedLocalOnly, Err: remoteErr}
}

// pull fetches a whole collection and replaces the local table with it.
func pull[T any](
	ctx context.Context,
	entity string,
	fetch func(context.Context) ([]T, error),
	countLocalOnly func(context.Context) (int, error),
	replace func(context.Context, []T) error,
) (int, error) {
	rows, err := fetch(ctx)
	if err != nil {
		return 0, &SyncError{Entity: entity, Err: remote.Classify(err)}
	}

	if n, err := countLocalOnly(ctx); err == nil && n > 0 {
		log.Printf("Warning: sync of %s discards %d local-only record(s) not confirmed by the backend", entity, n)
	}

	if err := replace(ctx, rows); err != nil {
		return 0, &SyncError{Entity: entity, Err: err}
	}
	log.Printf("Synced %d %s from backend", len(rows), entity)
	return len(rows), nil
}

// noLocalOnly is the local-only counter of tables that are never written
// offline.
func noLocalOnly(context.Context) (int, error) { return 0, nil }

func newClientRef() string {
	return uuid.NewString()
}

func orNotFound[T any](v *T, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrNotFound
	}
	return v, nil
}
