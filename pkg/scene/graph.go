package scene

import (
	"sort"
	"sync"

	"github.com/arbordev/arbor/pkg/domain"
)

// DependencyGraph records scene-to-scene reference edges. The graph is
// always acyclic: every insertion is validated with a depth-first
// search before commit, and an edge that would close a cycle is
// rejected with CircularDependencyError, leaving the graph unchanged.
type DependencyGraph struct {
	mu      sync.RWMutex
	out     map[string]map[string]struct{} // scene -> referenced scenes
	in      map[string]map[string]struct{} // scene -> referrers
	missing map[string]map[string]struct{} // scene -> unresolvable refs
}

// NewDependencyGraph creates an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		out:     make(map[string]map[string]struct{}),
		in:      make(map[string]map[string]struct{}),
		missing: make(map[string]map[string]struct{}),
	}
}

// AddEdge records that from references to. The edge is rejected with
// CircularDependencyError when a reference chain already leads from to
// back to from.
func (g *DependencyGraph) AddEdge(from, to string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addEdgeLocked(from, to)
}

func (g *DependencyGraph) addEdgeLocked(from, to string) error {
	if from == to {
		return &domain.CircularDependencyError{Cycle: []string{from, to}}
	}
	if chain := g.findChainLocked(to, from); chain != nil {
		return &domain.CircularDependencyError{Cycle: append([]string{from}, chain...)}
	}
	if g.out[from] == nil {
		g.out[from] = make(map[string]struct{})
	}
	g.out[from][to] = struct{}{}
	if g.in[to] == nil {
		g.in[to] = make(map[string]struct{})
	}
	g.in[to][from] = struct{}{}
	return nil
}

// findChainLocked returns the reference chain from src to dst, or nil.
// Depth-first with an explicit recursion stack so the offending cycle
// can be reported in order.
func (g *DependencyGraph) findChainLocked(src, dst string) []string {
	var stack []string
	onStack := make(map[string]struct{})
	var dfs func(cur string) bool
	dfs = func(cur string) bool {
		if _, ok := onStack[cur]; ok {
			return false
		}
		onStack[cur] = struct{}{}
		stack = append(stack, cur)
		if cur == dst {
			return true
		}
		for next := range g.out[cur] {
			if dfs(next) {
				return true
			}
		}
		stack = stack[:len(stack)-1]
		return false
	}
	if dfs(src) {
		return stack
	}
	return nil
}

// ReplaceEdges swaps the outgoing edges of a scene for a new reference
// list, validating each edge against the rest of the graph. On cycle
// rejection the previous edges are restored and the graph is unchanged.
// Unresolvable targets (per resolve) are recorded as missing instead of
// becoming edges.
func (g *DependencyGraph) ReplaceEdges(from string, refs []string, resolve func(string) bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	old := g.out[from]
	g.removeOutLocked(from)
	oldMissing := g.missing[from]
	delete(g.missing, from)

	restore := func() {
		g.removeOutLocked(from)
		for to := range old {
			_ = g.addEdgeLocked(from, to)
		}
		if oldMissing != nil {
			g.missing[from] = oldMissing
		}
	}

	for _, to := range refs {
		if resolve != nil && !resolve(to) {
			if g.missing[from] == nil {
				g.missing[from] = make(map[string]struct{})
			}
			g.missing[from][to] = struct{}{}
			continue
		}
		if err := g.addEdgeLocked(from, to); err != nil {
			restore()
			return err
		}
	}
	return nil
}

func (g *DependencyGraph) removeOutLocked(from string) {
	for to := range g.out[from] {
		delete(g.in[to], from)
		if len(g.in[to]) == 0 {
			delete(g.in, to)
		}
	}
	delete(g.out, from)
}

// Remove drops a scene and all its edges from the graph.
func (g *DependencyGraph) Remove(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeOutLocked(path)
	for from := range g.in[path] {
		delete(g.out[from], path)
	}
	delete(g.in, path)
	delete(g.missing, path)
}

// References returns the scenes directly referenced by path.
func (g *DependencyGraph) References(path string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.out[path])
}

// Dependents returns the scenes that directly reference path.
func (g *DependencyGraph) Dependents(path string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.in[path])
}

// ImpactSet returns the transitive closure of referrers: every scene
// that would be affected by a change to path.
func (g *DependencyGraph) ImpactSet(path string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[string]struct{})
	queue := []string{path}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for dep := range g.in[cur] {
			if _, ok := seen[dep]; !ok {
				seen[dep] = struct{}{}
				queue = append(queue, dep)
			}
		}
	}
	return sortedKeys(seen)
}

// Missing reports every recorded unresolvable reference. A missing
// dependency degrades a load, never aborts it.
func (g *DependencyGraph) Missing() []*domain.MissingDependencyError {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []*domain.MissingDependencyError
	for from, tos := range g.missing {
		for to := range tos {
			out = append(out, &domain.MissingDependencyError{From: from, To: to})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// Scenes returns every scene path known to the graph.
func (g *DependencyGraph) Scenes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	set := make(map[string]struct{})
	for p := range g.out {
		set[p] = struct{}{}
	}
	for p := range g.in {
		set[p] = struct{}{}
	}
	for p := range g.missing {
		set[p] = struct{}{}
	}
	return sortedKeys(set)
}

// Edges returns a stable snapshot of all edges for rendering.
func (g *DependencyGraph) Edges() map[string][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make(map[string][]string, len(g.out))
	for from, tos := range g.out {
		out[from] = sortedKeys(tos)
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
