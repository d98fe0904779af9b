// Package catalog indexes the entity identifiers an action payload may
// legally reference, grouped by category. The context validator uses it
// to reject spoofed or mistyped ids without consulting gameplay state.
package catalog

import "sync"

// Category classifies a referenced entity id.
type Category string

const (
	CategoryCrop Category = "crop"
	CategoryItem Category = "item"
)

// Catalog is a read-mostly id → category index.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]Category
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{entries: make(map[string]Category)}
}

// Register adds ids under the given category. Re-registering an id moves
// it to the new category.
func (c *Catalog) Register(cat Category, ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		c.entries[id] = cat
	}
}

// Lookup returns the category for an id.
func (c *Catalog) Lookup(id string) (Category, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cat, ok := c.entries[id]
	return cat, ok
}

// Has reports whether id exists and belongs to the expected category.
func (c *Catalog) Has(id string, cat Category) bool {
	got, ok := c.Lookup(id)
	return ok && got == cat
}

// Len returns the number of registered ids.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
