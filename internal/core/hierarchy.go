package core

import (
	"sort"
	"sync"

	"skillcore/pkg/domain"
)

// NodeKind distinguishes the two starting points of a hierarchy walk.
type NodeKind string

// Taxonomy node kinds accepted by the hierarchy resolver.
const (
	// NodeCategory starts the walk at a category root.
	NodeCategory NodeKind = "category"
	// NodeSubCategory starts the walk at a subcategory node.
	NodeSubCategory NodeKind = "subcategory"
)

type hierarchyKey struct {
	nodeID  string
	kind    NodeKind
	skills  bool
	version uint64
}

// HierarchyResolver computes transitive closures over the subcategory tree.
// Traversal is iterative with an explicit visited set, so malformed cyclic
// input degrades to a partial closure plus a logged diagnostic instead of
// unbounded recursion. Results are memoized per (node, structural version);
// every taxonomy mutation bumps the version and naturally invalidates stale
// entries. The resolver is called on every aggregation and every row render,
// so the memo is load-bearing, not an optimization nicety.
type HierarchyResolver struct {
	logger Logger

	mu   sync.Mutex
	memo map[hierarchyKey][]string
}

// NewHierarchyResolver constructs a resolver logging diagnostics to logger.
func NewHierarchyResolver(logger Logger) *HierarchyResolver {
	if logger == nil {
		logger = NoopLogger{}
	}
	return &HierarchyResolver{
		logger: logger,
		memo:   make(map[hierarchyKey][]string),
	}
}

// DescendantSubCategoryIDs returns the ids of every subcategory transitively
// contained in the node, excluding the node itself. For NodeCategory the walk
// starts at the category's root subcategories; for NodeSubCategory at the
// node's direct children.
func (r *HierarchyResolver) DescendantSubCategoryIDs(view domain.TransactionView, nodeID string, kind NodeKind) []string {
	key := hierarchyKey{nodeID: nodeID, kind: kind, version: view.StructuralVersion()}
	if cached, ok := r.lookup(key); ok {
		return cached
	}
	ids := r.walk(view, nodeID, kind)
	r.store(key, ids)
	return append([]string(nil), ids...)
}

// DescendantSkillIDs returns the ids of every skill attached to the node or
// to any subcategory in its transitive closure.
func (r *HierarchyResolver) DescendantSkillIDs(view domain.TransactionView, nodeID string, kind NodeKind) []string {
	key := hierarchyKey{nodeID: nodeID, kind: kind, skills: true, version: view.StructuralVersion()}
	if cached, ok := r.lookup(key); ok {
		return cached
	}

	members := make(map[string]struct{})
	for _, id := range r.DescendantSubCategoryIDs(view, nodeID, kind) {
		members[id] = struct{}{}
	}
	// The node itself collects skills too when it is a subcategory; for a
	// category the id never matches a skill's subcategory reference.
	members[nodeID] = struct{}{}

	var ids []string
	for _, sk := range view.ListSkills() {
		if _, ok := members[sk.SubCategoryID]; ok {
			ids = append(ids, sk.ID)
		}
	}
	sort.Strings(ids)
	r.store(key, ids)
	return append([]string(nil), ids...)
}

func (r *HierarchyResolver) lookup(key hierarchyKey) ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cached, ok := r.memo[key]
	if !ok {
		return nil, false
	}
	return append([]string(nil), cached...), true
}

func (r *HierarchyResolver) store(key hierarchyKey, ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Entries for older structural versions can never be read again.
	for k := range r.memo {
		if k.version != key.version {
			delete(r.memo, k)
		}
	}
	r.memo[key] = append([]string(nil), ids...)
}

func (r *HierarchyResolver) walk(view domain.TransactionView, nodeID string, kind NodeKind) []string {
	children := make(map[string][]string)
	roots := make(map[string][]string)
	for _, sc := range view.ListSubCategories() {
		if sc.ParentSubCategoryID != nil {
			parent := *sc.ParentSubCategoryID
			children[parent] = append(children[parent], sc.ID)
			continue
		}
		roots[sc.CategoryID] = append(roots[sc.CategoryID], sc.ID)
	}

	var stack []string
	switch kind {
	case NodeCategory:
		stack = append(stack, roots[nodeID]...)
	case NodeSubCategory:
		stack = append(stack, children[nodeID]...)
	}

	visited := map[string]struct{}{nodeID: {}}
	var ids []string
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := visited[id]; seen {
			r.logger.Warnf("hierarchy: %v", domain.CycleError{Kind: domain.CycleSubCategoryTree, StartID: id})
			continue
		}
		visited[id] = struct{}{}
		ids = append(ids, id)
		stack = append(stack, children[id]...)
	}
	sort.Strings(ids)
	return ids
}
