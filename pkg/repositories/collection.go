package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/arqioly/arqioly/pkg/apperrors"
	"github.com/arqioly/arqioly/pkg/kv"
)

// Entity is anything stored in a collection.
type Entity interface {
	GetID() string
}

// Repository is a typed view over one JSON-array collection in the KV store.
// Collection order is insertion order and is preserved across writes.
type Repository[T Entity] interface {
	// Key returns the KV key backing the collection.
	Key() string

	// List returns every item in collection order.
	List(ctx context.Context) ([]T, error)

	// Get returns the item with the given id or apperrors.ErrNotFound.
	Get(ctx context.Context, id string) (T, error)

	// Find returns the items matching pred in collection order.
	Find(ctx context.Context, pred func(T) bool) ([]T, error)

	// Create appends an item. Fails with apperrors.ErrConflict on a duplicate id.
	Create(ctx context.Context, item T) error

	// Save replaces the item with the same id. Fails with apperrors.ErrNotFound.
	Save(ctx context.Context, item T) error

	// Delete removes the item with the given id. Fails with apperrors.ErrNotFound.
	Delete(ctx context.Context, id string) error

	// DeleteWhere removes every item matching pred and returns how many were removed.
	DeleteWhere(ctx context.Context, pred func(T) bool) (int, error)

	// Mutate runs fn against the whole collection inside one atomic update.
	// Use it when a write depends on other items (uniqueness, ordering).
	Mutate(ctx context.Context, fn func(items []T) ([]T, error)) error
}

// CollectionKey derives the KV key for an entity kind: "system prompt" -> "system-prompts".
func CollectionKey(kind string) string {
	return strings.ReplaceAll(inflection.Plural(strings.ToLower(strings.TrimSpace(kind))), " ", "-")
}

type collection[T Entity] struct {
	store kv.Store
	key   string
}

// NewRepository creates a repository for the entity kind.
func NewRepository[T Entity](store kv.Store, kind string) Repository[T] {
	return &collection[T]{store: store, key: CollectionKey(kind)}
}

func (c *collection[T]) Key() string { return c.key }

func (c *collection[T]) decode(data []byte) ([]T, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.key, err)
	}
	return items, nil
}

func (c *collection[T]) encode(items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", c.key, err)
	}
	return data, nil
}

func (c *collection[T]) List(ctx context.Context) ([]T, error) {
	data, err := c.store.Load(ctx, c.key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", c.key, err)
	}
	return c.decode(data)
}

func (c *collection[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	items, err := c.List(ctx)
	if err != nil {
		return zero, err
	}
	for _, item := range items {
		if item.GetID() == id {
			return item, nil
		}
	}
	return zero, fmt.Errorf("%s %q: %w", inflection.Singular(c.key), id, apperrors.ErrNotFound)
}

func (c *collection[T]) Find(ctx context.Context, pred func(T) bool) ([]T, error) {
	items, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []T
	for _, item := range items {
		if pred(item) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (c *collection[T]) Mutate(ctx context.Context, fn func(items []T) ([]T, error)) error {
	return c.store.Update(ctx, c.key, func(current []byte) ([]byte, error) {
		items, err := c.decode(current)
		if err != nil {
			return nil, err
		}
		next, err := fn(items)
		if err != nil {
			return nil, err
		}
		return c.encode(next)
	})
}

func (c *collection[T]) Create(ctx context.Context, item T) error {
	return c.Mutate(ctx, func(items []T) ([]T, error) {
		for _, existing := range items {
			if existing.GetID() == item.GetID() {
				return nil, fmt.Errorf("%s %q: %w", inflection.Singular(c.key), item.GetID(), apperrors.ErrConflict)
			}
		}
		return append(items, item), nil
	})
}

func (c *collection[T]) Save(ctx context.Context, item T) error {
	return c.Mutate(ctx, func(items []T) ([]T, error) {
		for i, existing := range items {
			if existing.GetID() == item.GetID() {
				items[i] = item
				return items, nil
			}
		}
		return nil, fmt.Errorf("%s %q: %w", inflection.Singular(c.key), item.GetID(), apperrors.ErrNotFound)
	})
}

func (c *collection[T]) Delete(ctx context.Context, id string) error {
	return c.Mutate(ctx, func(items []T) ([]T, error) {
		for i, existing := range items {
			if existing.GetID() == id {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("%s %q: %w", inflection.Singular(c.key), id, apperrors.ErrNotFound)
	})
}

func (c *collection[T]) DeleteWhere(ctx context.Context, pred func(T) bool) (int, error) {
	removed := 0
	err := c.Mutate(ctx, func(items []T) ([]T, error) {
		removed = 0
		kept := items[:0]
		for _, item := range items {
			if pred(item) {
				removed++
				continue
			}
			kept = append(kept, item)
		}
		return kept, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
