// Package analyzer implements the Analyzer (§4.E): dependency-cycle
// detection, complexity bucketing, hotspot scoring, and architecture
// statistics over a Repository's persisted Nodes and Relationships,
// fetched through the Query Engine.
package analyzer

import (
	"context"
	"fmt"
	"path"
	"sort"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/rohankatakam/codegraph/internal/metrics"
	"github.com/rohankatakam/codegraph/internal/models"
	"github.com/rohankatakam/codegraph/internal/query"
)

// dependencyEdgeKinds are the relation kinds the dependency tree and
// cycle-detection pass follow (§4.E).
var dependencyEdgeKinds = []models.RelationKind{models.RelationDependsOn, models.RelationImports, models.RelationUses}

// couplingEdgeKinds restricts fan-in/fan-out counting to calls/uses.
var couplingEdgeKinds = []models.RelationKind{models.RelationCalls, models.RelationUses}

// Analyzer runs the four analysis kinds against a repository's graph,
// memoizing results for a short window so repeated CLI/API calls
// against an unchanged repo don't re-walk the whole graph.
type Analyzer struct {
	Query *query.Engine
	cache *cache.Cache
}

// New returns an Analyzer backed by a Query Engine. Results are cached
// for 5 minutes, the same default eviction window
// go-cache's examples use for short-lived derived data.
func New(q *query.Engine) *Analyzer {
	return &Analyzer{Query: q, cache: cache.New(5*time.Minute, 10*time.Minute)}
}

// graphSnapshot is what every analysis kind needs: every node and
// relationship in the repository, fetched once per Analyze call.
type graphSnapshot struct {
	nodes    []models.Node
	rels     []models.Relationship
	byID     map[string]*models.Node
}

func (a *Analyzer) snapshot(ctx context.Context, repoID string) (*graphSnapshot, error) {
	if cached, ok := a.cache.Get("snapshot:" + repoID); ok {
		metrics.RecordCacheHit()
		return cached.(*graphSnapshot), nil
	}
	metrics.RecordCacheMiss()
	nodes, rels, err := a.Query.Snapshot(ctx, repoID)
	if err != nil {
		return nil, fmt.Errorf("analyzer: %w", err)
	}
	byID := make(map[string]*models.Node, len(nodes))
	for i := range nodes {
		byID[nodes[i].ID] = &nodes[i]
	}
	snap := &graphSnapshot{nodes: nodes, rels: rels, byID: byID}
	a.cache.SetDefault("snapshot:"+repoID, snap)
	return snap, nil
}

// Analyze runs the analysis named by kind and returns the result
// as a free-form map, matching Analysis.Results' shape for storage.
func (a *Analyzer) Analyze(ctx context.Context, repoID string, kind models.AnalysisKind) (map[string]any, error) {
	snap, err := a.snapshot(ctx, repoID)
	if err != nil {
		return nil, err
	}
	switch kind {
	case models.AnalysisDependencyTree:
		return a.dependencyTree(snap), nil
	case models.AnalysisComplexity:
		return a.complexity(snap), nil
	case models.AnalysisHotspots:
		return a.hotspots(snap), nil
	case models.AnalysisArchitecture:
		return a.architecture(snap), nil
	default:
		return nil, fmt.Errorf("analyzer: unknown analysis kind %q", kind)
	}
}

func kindIn(k models.RelationKind, set []models.RelationKind) bool {
	for _, s := range set {
		if k == s {
			return true
		}
	}
	return false
}

// dependencyTree builds the adjacency over dependencyEdgeKinds, runs
// DFS cycle detection, and reports fan-in/fan-out restricted to
// calls/uses with a >5 "highly coupled" flag (§4.E).
func (a *Analyzer) dependencyTree(snap *graphSnapshot) map[string]any {
	adj := make(map[string][]string)
	for _, r := range snap.rels {
		if kindIn(r.Kind, dependencyEdgeKinds) {
			adj[r.SourceNodeID] = append(adj[r.SourceNodeID], r.TargetNodeID)
		}
	}

	cycles := detectCycles(snap.nodes, adj)

	fanIn := make(map[string]int)
	fanOut := make(map[string]int)
	for _, r := range snap.rels {
		if !kindIn(r.Kind, couplingEdgeKinds) {
			continue
		}
		fanOut[r.SourceNodeID]++
		fanIn[r.TargetNodeID]++
	}

	type coupling struct {
		NodeID        string `json:"node_id"`
		FanIn         int    `json:"fan_in"`
		FanOut        int    `json:"fan_out"`
		HighlyCoupled bool   `json:"highly_coupled"`
	}
	var couplings []coupling
	for _, n := range snap.nodes {
		in, out := fanIn[n.ID], fanOut[n.ID]
		if in == 0 && out == 0 {
			continue
		}
		couplings = append(couplings, coupling{NodeID: n.ID, FanIn: in, FanOut: out, HighlyCoupled: in > 5 || out > 5})
	}
	sort.Slice(couplings, func(i, j int) bool { return couplings[i].NodeID < couplings[j].NodeID })

	return map[string]any{
		"adjacency": adj,
		"cycles":    cycles,
		"coupling":  couplings,
	}
}

// detectCycles runs a DFS with an explicit recursion stack over every
// node, per §4.E: "when a node already on the stack is re-entered,
// emit the slice of the current path from that node to the end plus
// the closing node as one cycle." Duplicates across starting nodes are
// allowed; no canonicalization is performed.
func detectCycles(nodes []models.Node, adj map[string][]string) [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var path []string

	var visit func(id string)
	visit = func(id string) {
		visited[id] = true
		onStack[id] = true
		path = append(path, id)

		for _, next := range adj[id] {
			if onStack[next] {
				start := indexOf(path, next)
				if start >= 0 {
					cycle := append([]string{}, path[start:]...)
					cycle = append(cycle, next)
					cycles = append(cycles, cycle)
				}
				continue
			}
			if !visited[next] {
				visit(next)
			}
		}

		path = path[:len(path)-1]
		onStack[id] = false
	}

	for _, n := range nodes {
		if !visited[n.ID] {
			visit(n.ID)
		}
	}
	return cycles
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

// complexity buckets per-node Complexity into low/medium/high, per
// §4.E's ≤3 / 4-6 / ≥7 thresholds.
func (a *Analyzer) complexity(snap *graphSnapshot) map[string]any {
	var low, medium, high int
	var sum, count int
	var highNodes []string
	for _, n := range snap.nodes {
		if n.Complexity == nil {
			continue
		}
		c := *n.Complexity
		sum += c
		count++
		switch {
		case c <= 3:
			low++
		case c <= 6:
			medium++
		default:
			high++
		}
		if c > 7 {
			highNodes = append(highNodes, n.ID)
		}
	}
	avg := 0.0
	if count > 0 {
		avg = float64(sum) / float64(count)
	}
	sort.Strings(highNodes)
	return map[string]any{
		"low":          low,
		"medium":       medium,
		"high":         high,
		"average":      avg,
		"high_node_ids": highNodes,
	}
}

type hotspot struct {
	NodeID string `json:"node_id"`
	Score  int    `json:"score"`
}

// hotspots scores every node 2*incoming + outgoing + 3*complexity and
// returns those above 10, sorted descending, capped at 20 (§4.E).
func (a *Analyzer) hotspots(snap *graphSnapshot) map[string]any {
	incoming := make(map[string]int)
	outgoing := make(map[string]int)
	for _, r := range snap.rels {
		outgoing[r.SourceNodeID]++
		incoming[r.TargetNodeID]++
	}

	var hotspots []hotspot
	for _, n := range snap.nodes {
		complexity := 0
		if n.Complexity != nil {
			complexity = *n.Complexity
		}
		score := 2*incoming[n.ID] + outgoing[n.ID] + 3*complexity
		if score > 10 {
			hotspots = append(hotspots, hotspot{NodeID: n.ID, Score: score})
		}
	}
	sort.Slice(hotspots, func(i, j int) bool {
		if hotspots[i].Score != hotspots[j].Score {
			return hotspots[i].Score > hotspots[j].Score
		}
		return hotspots[i].NodeID < hotspots[j].NodeID
	})
	if len(hotspots) > 20 {
		hotspots = hotspots[:20]
	}
	return map[string]any{"hotspots": hotspots}
}

// architecture aggregates a directory → {file count, language set} map
// and the modularity score internal/(internal+external), where
// "internal" means both relationship endpoints share a file path
// (§4.E). Defaults to 1.0 on an empty edge set.
func (a *Analyzer) architecture(snap *graphSnapshot) map[string]any {
	type dirStats struct {
		Files     int             `json:"files"`
		Nodes     int             `json:"-"`
		Edges     int             `json:"-"`
		Languages map[string]bool `json:"-"`
	}
	dirs := make(map[string]*dirStats)
	dirFor := func(n *models.Node) *dirStats {
		dir := path.Dir(n.FilePath)
		d, ok := dirs[dir]
		if !ok {
			d = &dirStats{Languages: map[string]bool{}}
			dirs[dir] = d
		}
		return d
	}
	for i := range snap.nodes {
		n := &snap.nodes[i]
		d := dirFor(n)
		d.Nodes++
		if n.Kind == models.NodeKindFile {
			d.Files++
			if n.Language != "" {
				d.Languages[n.Language] = true
			}
		}
	}

	var internal, external int
	for _, r := range snap.rels {
		src, srcOK := snap.byID[r.SourceNodeID]
		dst, dstOK := snap.byID[r.TargetNodeID]
		if !srcOK || !dstOK {
			continue
		}
		dirFor(src).Edges++
		if src.FilePath == dst.FilePath {
			internal++
		} else {
			external++
		}
	}

	dirOut := make(map[string]map[string]any, len(dirs))
	for dir, d := range dirs {
		langs := make([]string, 0, len(d.Languages))
		for l := range d.Languages {
			langs = append(langs, l)
		}
		sort.Strings(langs)
		dirOut[dir] = map[string]any{"files": d.Files, "nodes": d.Nodes, "edges": d.Edges, "languages": langs}
	}

	modularity := 1.0
	if total := internal + external; total > 0 {
		modularity = float64(internal) / float64(total)
	}

	return map[string]any{
		"directories": dirOut,
		"modularity":  modularity,
	}
}

// Compare diffs two analyses of the same kind for two repositories,
// supplementing §4.E with a cross-repository comparison (Archon's
// compare_repositories endpoint). For architecture it reduces the two
// directory breakdowns to a per-directory node/edge count delta plus
// the overall modularity delta; other kinds carry no defined diff
// shape yet, so their raw results are returned side by side.
func (a *Analyzer) Compare(ctx context.Context, repoA, repoB string, kind models.AnalysisKind) (map[string]any, error) {
	resA, err := a.Analyze(ctx, repoA, kind)
	if err != nil {
		return nil, fmt.Errorf("analyzer: compare %s: %w", repoA, err)
	}
	resB, err := a.Analyze(ctx, repoB, kind)
	if err != nil {
		return nil, fmt.Errorf("analyzer: compare %s: %w", repoB, err)
	}

	out := map[string]any{
		"repository_a": repoA,
		"repository_b": repoB,
		"kind":         kind,
		"result_a":     resA,
		"result_b":     resB,
	}
	if kind == models.AnalysisArchitecture {
		out["delta"] = architectureDelta(resA, resB)
	}
	return out, nil
}

// architectureDelta compares two architecture() results directory by
// directory: node-count and edge-count deltas (B minus A, a directory
// present on only one side is treated as zero on the other), plus the
// overall modularity delta.
func architectureDelta(a, b map[string]any) map[string]any {
	dirsA, _ := a["directories"].(map[string]map[string]any)
	dirsB, _ := b["directories"].(map[string]map[string]any)

	names := make(map[string]bool, len(dirsA)+len(dirsB))
	for d := range dirsA {
		names[d] = true
	}
	for d := range dirsB {
		names[d] = true
	}

	intField := func(dirs map[string]map[string]any, name, field string) int {
		d, ok := dirs[name]
		if !ok {
			return 0
		}
		n, _ := d[field].(int)
		return n
	}

	perDir := make(map[string]map[string]int, len(names))
	for name := range names {
		perDir[name] = map[string]int{
			"nodes": intField(dirsB, name, "nodes") - intField(dirsA, name, "nodes"),
			"edges": intField(dirsB, name, "edges") - intField(dirsA, name, "edges"),
		}
	}

	modA, _ := a["modularity"].(float64)
	modB, _ := b["modularity"].(float64)

	return map[string]any{
		"by_directory":     perDir,
		"modularity_delta": modB - modA,
	}
}
