// Package testutil provides deterministic building blocks for tests:
// predictable operation tokens and a fully wired in-memory deployment
// fixture over a temporary store.
package testutil

import (
	"fmt"
	"sync"
)

// SequentialOpTokens generates "op-1", "op-2", ... in order.
//
// Unlike engine.FixedGenerator it never exhausts, so scenarios of any
// length produce stable, readable tokens in their golden traces.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialOpTokens struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialOpTokens creates a generator with the given prefix.
// An empty prefix defaults to "op".
func NewSequentialOpTokens(prefix string) *SequentialOpTokens {
	if prefix == "" {
		prefix = "op"
	}
	return &SequentialOpTokens{prefix: prefix}
}

// Generate returns the next token in the sequence.
func (g *SequentialOpTokens) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Reset restarts the sequence so a rerun of the same scenario produces
// identical tokens.
func (g *SequentialOpTokens) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
