package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/msto63/callexpr/foundation/callexpr/ast"
)

// Tree is a cached parse outcome
type Tree struct {
	Command *ast.Command
	Tokens  int
}

// TreeCache caches parse trees by expression. Keys are hashed so long
// inputs do not stay resident as map keys. Cached trees are shared between
// callers and must not be modified.
type TreeCache struct {
	cache  *Cache[string, Tree]
	prefix string
}

// NewTreeCache creates a tree cache. limits distinguishes parsers with
// different options so their results never mix.
func NewTreeCache(cfg Config, maxInputLength, maxDepth int) *TreeCache {
	return &TreeCache{
		cache:  New[string, Tree](cfg),
		prefix: fmt.Sprintf("%d/%d|", maxInputLength, maxDepth),
	}
}

// ExpressionKey generates the cache key for an expression
func ExpressionKey(prefix, expr string) string {
	hash := sha256.Sum256([]byte(prefix + expr))
	return "tree:" + hex.EncodeToString(hash[:16])
}

// Get retrieves a cached tree
func (c *TreeCache) Get(expr string) (Tree, bool) {
	return c.cache.Get(ExpressionKey(c.prefix, expr))
}

// Set caches a successfully parsed tree
func (c *TreeCache) Set(expr string, tree Tree) {
	if tree.Command == nil {
		return
	}
	c.cache.Set(ExpressionKey(c.prefix, expr), tree)
}

// Stats returns cache statistics
func (c *TreeCache) Stats() Stats {
	return c.cache.Stats()
}

// Clear clears the cache
func (c *TreeCache) Clear() {
	c.cache.Clear()
}
