package promptbuild

import (
	"sort"

	"github.com/kayz/promptforge/internal/keyed"
)

// Collection holds providers by key in registration order.
type Collection struct {
	items *keyed.Map[Provider]
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{items: keyed.New[Provider]("provider")}
}

// Register inserts p under p.Key and fails with *DuplicateKeyError if the key
// is taken.
func (c *Collection) Register(p Provider) error {
	return c.RegisterAs(p.Key, p)
}

// RegisterAs is Register under an explicit key. An empty key falls back to p.Key.
func (c *Collection) RegisterAs(key string, p Provider) error {
	if key == "" {
		key = p.Key
	}
	p.Key = key
	return c.items.Insert(key, p)
}

// Upsert stores p under p.Key, replacing any existing provider.
func (c *Collection) Upsert(p Provider) *Collection {
	return c.UpsertAs(p.Key, p)
}

// UpsertAs is Upsert under an explicit key. An empty key falls back to p.Key.
func (c *Collection) UpsertAs(key string, p Provider) *Collection {
	if key == "" {
		key = p.Key
	}
	p.Key = key
	c.items.Set(key, p)
	return c
}

// Remove deletes the provider under key, if any.
func (c *Collection) Remove(key string) *Collection {
	c.items.Delete(key)
	return c
}

func (c *Collection) Get(key string) (Provider, bool) {
	return c.items.Get(key)
}

func (c *Collection) Has(key string) bool {
	return c.items.Has(key)
}

func (c *Collection) Len() int {
	return c.items.Len()
}

// Keys returns provider keys in registration order.
func (c *Collection) Keys() []string {
	return c.items.Keys()
}

// Select returns the providers for role that are global or tied to scope,
// sorted by ascending order with registration order breaking ties.
func (c *Collection) Select(role Role, scope string) []Provider {
	var selected []Provider
	for _, e := range c.items.Entries() {
		if e.Value.matches(role, scope) {
			selected = append(selected, e.Value)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Order < selected[j].Order
	})
	return selected
}
