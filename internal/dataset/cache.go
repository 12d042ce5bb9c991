package dataset

import (
	"fmt"
	"strings"
	"sync"

	"convoqa/internal/domain"
)

// Cache holds the knowledge base for the lifetime of the process. The first
// successful Load is kept and handed out to every later caller until
// Invalidate is called. Failed loads are not remembered.
type Cache struct {
	loader domain.Loader

	mu    sync.Mutex
	kb    *domain.KnowledgeBase
	loads int
}

func NewCache(loader domain.Loader) *Cache {
	return &Cache{loader: loader}
}

// Load returns the cached knowledge base, reading the source on first use.
func (c *Cache) Load() (*domain.KnowledgeBase, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kb != nil {
		return c.kb, nil
	}
	kb, err := c.loader.Load()
	if err != nil {
		return nil, err
	}
	c.kb = kb
	c.loads++
	return kb, nil
}

// Invalidate drops the held knowledge base so the next Load re-reads it.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kb = nil
}

// Loads returns how many times the source was read successfully.
func (c *Cache) Loads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loads
}

// Stats describes a loaded knowledge base.
type Stats struct {
	Source  string
	Rows    int
	Columns []string
}

func (s Stats) String() string {
	return fmt.Sprintf("%d entries · %s", s.Rows, strings.Join(s.Columns, ", "))
}

// StatsOf summarizes kb for display.
func StatsOf(kb *domain.KnowledgeBase) Stats {
	if kb == nil {
		return Stats{}
	}
	return Stats{Source: kb.Source, Rows: kb.Len(), Columns: kb.Columns}
}
