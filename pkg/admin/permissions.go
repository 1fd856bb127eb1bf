package admin

import (
	"context"
	"sync"

	"github.com/ozxin/nx-admin/pkg/api"
)

// TreeLoader fetches the permission tree
type TreeLoader interface {
	Tree(ctx context.Context) ([]api.PermissionNode, error)
}

// PermissionTree holds the permission tree and an index of its nodes by name
type PermissionTree struct {
	perms TreeLoader

	mu      sync.RWMutex
	tree    []api.PermissionNode
	nodes   map[string]api.PermissionNode
	loading bool
}

// NewPermissionTree creates an empty tree
func NewPermissionTree(perms TreeLoader) *PermissionTree {
	return &PermissionTree{perms: perms, nodes: map[string]api.PermissionNode{}}
}

// Load fetches the tree and rebuilds the index
func (p *PermissionTree) Load(ctx context.Context) error {
	p.setLoading(true)
	defer p.setLoading(false)

	tree, err := p.perms.Tree(ctx)
	if err != nil {
		return err
	}

	nodes := make(map[string]api.PermissionNode)
	indexNodes(tree, nodes)

	p.mu.Lock()
	p.tree = tree
	p.nodes = nodes
	p.mu.Unlock()
	return nil
}

func indexNodes(tree []api.PermissionNode, nodes map[string]api.PermissionNode) {
	for _, node := range tree {
		nodes[node.Name] = node
		indexNodes(node.Children, nodes)
	}
}

func (p *PermissionTree) setLoading(v bool) {
	p.mu.Lock()
	p.loading = v
	p.mu.Unlock()
}

// Loading reports whether a load is in flight
func (p *PermissionTree) Loading() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loading
}

// Tree returns the loaded tree
func (p *PermissionTree) Tree() []api.PermissionNode {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tree
}

// Node returns the node named name
func (p *PermissionTree) Node(name string) (api.PermissionNode, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	node, ok := p.nodes[name]
	return node, ok
}

// Len returns the number of indexed nodes
func (p *PermissionTree) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.nodes)
}

// FilterLeafNodes keeps the names of known leaf permissions, in order.
// Unknown names and inner nodes are dropped.
func (p *PermissionTree) FilterLeafNodes(names []string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	leaves := make([]string, 0, len(names))
	for _, name := range names {
		if node, ok := p.nodes[name]; ok && node.IsLeaf() {
			leaves = append(leaves, name)
		}
	}
	return leaves
}
