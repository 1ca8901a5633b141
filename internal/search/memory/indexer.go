// Package memory is an in-process search index used by dry runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/utafrali/catalogseed/internal/search"
)

// Indexer keeps the latest version of every document by ID.
type Indexer struct {
	mu   sync.RWMutex
	docs map[string]search.Document
}

// New creates an empty index.
func New() *Indexer {
	return &Indexer{docs: make(map[string]search.Document)}
}

var _ search.Indexer = (*Indexer)(nil)

// Index stores docs, replacing earlier versions.
func (i *Indexer) Index(_ context.Context, docs []search.Document) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, d := range docs {
		i.docs[d.ID] = d
	}
	return nil
}

// Ping always succeeds.
func (i *Indexer) Ping(context.Context) error {
	return nil
}

// Len returns the number of indexed documents.
func (i *Indexer) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.docs)
}

// Get returns the document with id.
func (i *Indexer) Get(id string) (search.Document, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	d, ok := i.docs[id]
	return d, ok
}

// IDs returns every indexed id, sorted.
func (i *Indexer) IDs() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	ids := make([]string, 0, len(i.docs))
	for id := range i.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
