package graph

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rohankatakam/codegraph/internal/models"
)

// RawReference is a not-yet-resolved mention emitted by a parser: a name
// seen inside a node's body that might refer to another node, either in
// the same file or reached through an import.
type RawReference struct {
	FromNodeIndex int // index into the FileParse.Nodes slice that owns the reference
	TargetName    string
	Kind          models.RelationKind
	Confidence    float64
}

// RawImport is an unresolved import/include statement.
type RawImport struct {
	FromNodeIndex int
	ImportPath    string // as written in source, not yet resolved to a file
	ImportedNames []string
}

// FileParse is what the File Parser hands the Builder for one file.
type FileParse struct {
	FilePath   string
	Language   string
	Nodes      []models.Node
	References []RawReference
	Imports    []RawImport
}

// Builder runs the three-pass graph-construction algorithm:
//  1. intra-file relationships from each file's own regex references
//  2. cross-file resolution of imports and qualified names
//  3. containment edges derived from span nesting
type Builder struct {
	repositoryID string

	mu          sync.Mutex
	files       []FileParse
	byFile      map[string][]fileNodeRef
	byQualified map[string]int
}

// NewBuilder returns a Builder scoped to one repository.
func NewBuilder(repositoryID string) *Builder {
	return &Builder{
		repositoryID: repositoryID,
		byFile:       make(map[string][]fileNodeRef),
		byQualified:  make(map[string]int),
	}
}

// AbsorbFile assigns node IDs for one file's parse result, records it
// for a later cross-file pass, and immediately returns that file's
// Nodes plus its intra-file and containment Relationships — the two
// passes that only ever need one file's own data. This lets the
// Orchestrator persist a file's graph contribution the moment it is
// parsed (§4.F's streaming loop) instead of waiting for the whole
// repository to be walked, while CrossFileRelationships still runs
// the import/qualified-name pass once every file has been absorbed.
// Safe for concurrent use by multiple worker goroutines.
func (b *Builder) AbsorbFile(fp FileParse) ([]models.Node, []models.Relationship) {
	b.mu.Lock()
	defer b.mu.Unlock()

	refs := make([]fileNodeRef, 0, len(fp.Nodes))
	nodes := make([]models.Node, len(fp.Nodes))
	for i, n := range fp.Nodes {
		n.ID = uuid.NewString()
		n.RepositoryID = b.repositoryID
		if n.QualifiedName == "" {
			n.QualifiedName = models.QualifiedNameFor(fp.FilePath, n.Name)
		}
		nodes[i] = n
	}
	base := 0
	for _, f := range b.files {
		base += len(f.Nodes)
	}
	for i := range nodes {
		refs = append(refs, fileNodeRef{globalIndex: base + i, node: &nodes[i]})
		b.byQualified[nodes[i].QualifiedName] = base + i
	}
	b.byFile[fp.FilePath] = refs
	fp.Nodes = nodes
	b.files = append(b.files, fp)

	rels := b.intraFileRelsForFile(&fp, refs)
	rels = append(rels, b.containmentRelsForFile(refs)...)
	return nodes, rels
}

// CrossFileRelationships runs the import-resolution and qualified-name
// "uses" pass over every file absorbed so far. Call once after the
// streaming loop finishes. ctx is checked once per file so a cancelled
// job doesn't have to wait for the whole pass to unwind.
func (b *Builder) CrossFileRelationships(ctx context.Context, texts map[string]string) []models.Relationship {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.crossFileRelationships(ctx, b.files, b.byFile, b.byQualified)
}

// BuildStats summarizes one BuildGraph invocation.
type BuildStats struct {
	Nodes         int
	Relationships int
}

// BuildGraph assigns node IDs, resolves references across files and emits
// the finished nodes and relationships through sink. Call order: nodes are
// persisted before relationships so the mirror's MERGE-by-id lookups never
// race a not-yet-created endpoint.
func (b *Builder) BuildGraph(ctx context.Context, sink Sink, files []FileParse) (*BuildStats, error) {
	allNodes, nodeIndex, qualifiedIndex := b.assignIDs(files)

	if err := sink.CreateNodes(ctx, allNodes); err != nil {
		return nil, fmt.Errorf("graph: create nodes: %w", err)
	}

	rels := b.intraFileRelationships(files, nodeIndex)
	rels = append(rels, b.crossFileRelationships(ctx, files, nodeIndex, qualifiedIndex)...)
	rels = append(rels, b.containmentRelationships(files, nodeIndex)...)

	if len(rels) > 0 {
		if err := sink.CreateRelationships(ctx, rels); err != nil {
			return nil, fmt.Errorf("graph: create relationships: %w", err)
		}
	}

	return &BuildStats{Nodes: len(allNodes), Relationships: len(rels)}, nil
}

// fileNodeRef locates a node within the flattened allNodes slice.
type fileNodeRef struct {
	globalIndex int
	node        *models.Node
}

// assignIDs flattens per-file nodes into one slice, stamping UUIDs and
// building lookup tables keyed by (file, local index) and by qualified name.
func (b *Builder) assignIDs(files []FileParse) ([]models.Node, map[string][]fileNodeRef, map[string]int) {
	var all []models.Node
	byFile := make(map[string][]fileNodeRef)
	byQualified := make(map[string]int)

	for fi := range files {
		f := &files[fi]
		for ni := range f.Nodes {
			n := f.Nodes[ni]
			n.ID = uuid.NewString()
			n.RepositoryID = b.repositoryID
			if n.QualifiedName == "" {
				n.QualifiedName = models.QualifiedNameFor(f.FilePath, n.Name)
			}
			all = append(all, n)
			globalIdx := len(all) - 1
			byFile[f.FilePath] = append(byFile[f.FilePath], fileNodeRef{globalIndex: globalIdx, node: &all[globalIdx]})
			byQualified[n.QualifiedName] = globalIdx
		}
	}
	return all, byFile, byQualified
}

// intraFileRelationships resolves references whose target is another node
// declared in the same file, matched by bare name.
func (b *Builder) intraFileRelationships(files []FileParse, byFile map[string][]fileNodeRef) []models.Relationship {
	var rels []models.Relationship
	for fi := range files {
		f := &files[fi]
		rels = append(rels, b.intraFileRelsForFile(f, byFile[f.FilePath])...)
	}
	return rels
}

// intraFileRelsForFile resolves references whose target is another node
// declared in the same file f, matched by bare name. Shared by the batch
// (intraFileRelationships) and streaming (AbsorbFile) entry points.
func (b *Builder) intraFileRelsForFile(f *FileParse, refs []fileNodeRef) []models.Relationship {
	var rels []models.Relationship
	if len(refs) == 0 {
		return rels
	}
	nameToIdx := make(map[string]int, len(refs))
	for _, r := range refs {
		nameToIdx[r.node.Name] = r.globalIndex
	}
	for _, ref := range f.References {
		if ref.FromNodeIndex < 0 || ref.FromNodeIndex >= len(refs) {
			continue
		}
		targetGlobal, ok := nameToIdx[ref.TargetName]
		if !ok {
			continue
		}
		fromGlobal := refs[ref.FromNodeIndex].globalIndex
		if fromGlobal == targetGlobal {
			continue
		}
		rels = append(rels, models.Relationship{
			ID:           uuid.NewString(),
			RepositoryID: b.repositoryID,
			SourceNodeID: refs[ref.FromNodeIndex].node.ID,
			TargetNodeID: nodeAt(refs, targetGlobal).node.ID,
			Kind:         ref.Kind,
			Confidence:   ref.Confidence,
			IsDirect:     true,
		})
	}
	return rels
}

func nodeAt(refs []fileNodeRef, globalIndex int) fileNodeRef {
	for _, r := range refs {
		if r.globalIndex == globalIndex {
			return r
		}
	}
	return fileNodeRef{}
}

// crossFileRelationships resolves imports to the file (or module) they
// name, and qualified-name references that only exist once the whole
// repository's nodes are known. ctx is polled per file (§4.F's "per-file
// in cross-file passes" cadence), so a caller can abandon a huge
// repository's cross-file pass without waiting for it to finish.
func (b *Builder) crossFileRelationships(ctx context.Context, files []FileParse, byFile map[string][]fileNodeRef, byQualified map[string]int) []models.Relationship {
	var rels []models.Relationship
	allNodesByGlobal := flattenForLookup(byFile)

	for fi := range files {
		if ctx != nil && ctx.Err() != nil {
			return rels
		}
		f := &files[fi]
		refs := byFile[f.FilePath]
		for _, imp := range f.Imports {
			if imp.FromNodeIndex < 0 || imp.FromNodeIndex >= len(refs) {
				continue
			}
			targetFile, ok := resolveImportPath(f.FilePath, imp.ImportPath, files)
			if !ok {
				continue
			}
			targetRefs := byFile[targetFile]
			if len(targetRefs) == 0 {
				continue
			}
			// the file's own File node is always the first entry emitted by the parser
			fileNode := firstFileKind(targetRefs)
			if fileNode == nil {
				continue
			}
			rels = append(rels, models.Relationship{
				ID:           uuid.NewString(),
				RepositoryID: b.repositoryID,
				SourceNodeID: refs[imp.FromNodeIndex].node.ID,
				TargetNodeID: fileNode.ID,
				Kind:         models.RelationImports,
				Confidence:   models.ConfidenceCrossFileImport,
				IsDirect:     true,
			})
		}
	}

	// qualified-name "uses" references that were deferred to this pass
	for fi := range files {
		if ctx != nil && ctx.Err() != nil {
			return rels
		}
		f := &files[fi]
		refs := byFile[f.FilePath]
		for _, ref := range f.References {
			if ref.Kind != models.RelationUses || !strings.Contains(ref.TargetName, "::") {
				continue
			}
			targetGlobal, ok := byQualified[ref.TargetName]
			if !ok {
				continue
			}
			if ref.FromNodeIndex < 0 || ref.FromNodeIndex >= len(refs) {
				continue
			}
			rels = append(rels, models.Relationship{
				ID:           uuid.NewString(),
				RepositoryID: b.repositoryID,
				SourceNodeID: refs[ref.FromNodeIndex].node.ID,
				TargetNodeID: allNodesByGlobal[targetGlobal].node.ID,
				Kind:         models.RelationUses,
				Confidence:   models.ConfidenceCrossFileUses,
				IsDirect:     false,
			})
		}
	}
	return rels
}

func flattenForLookup(byFile map[string][]fileNodeRef) map[int]fileNodeRef {
	out := make(map[int]fileNodeRef)
	for _, refs := range byFile {
		for _, r := range refs {
			out[r.globalIndex] = r
		}
	}
	return out
}

func firstFileKind(refs []fileNodeRef) *models.Node {
	for _, r := range refs {
		if r.node.Kind == models.NodeKindFile {
			return r.node
		}
	}
	if len(refs) > 0 {
		return refs[0].node
	}
	return nil
}

// resolveImportPath tries relative-path matching against every known file,
// then falls back to extension-guessing, mirroring the teacher's
// import-path resolution in processor.go.
func resolveImportPath(fromFile, importPath string, files []FileParse) (string, bool) {
	candidates := []string{importPath}
	if strings.HasPrefix(importPath, ".") {
		candidates = append(candidates, path.Clean(path.Join(path.Dir(fromFile), importPath)))
	}
	exts := []string{"", ".go", ".py", ".js", ".ts", ".jsx", ".tsx", "/index.js", "/index.ts", "/__init__.py"}
	known := make(map[string]bool, len(files))
	for _, f := range files {
		known[f.FilePath] = true
	}
	for _, c := range candidates {
		for _, ext := range exts {
			if known[c+ext] {
				return c + ext, true
			}
		}
		// match by basename without extension, as a last resort
		for fp := range known {
			if strings.TrimSuffix(fp, path.Ext(fp)) == c {
				return fp, true
			}
		}
	}
	return "", false
}

// containmentRelationships derives "contains" edges from span nesting:
// the smallest enclosing node in the same file becomes the parent.
func (b *Builder) containmentRelationships(files []FileParse, byFile map[string][]fileNodeRef) []models.Relationship {
	var rels []models.Relationship
	for fi := range files {
		f := &files[fi]
		rels = append(rels, b.containmentRelsForFile(byFile[f.FilePath])...)
	}
	return rels
}

// containmentRelsForFile derives "contains" edges from span nesting within
// one file's node refs: the smallest enclosing node becomes the parent.
// Shared by the batch (containmentRelationships) and streaming (AbsorbFile)
// entry points.
func (b *Builder) containmentRelsForFile(refs []fileNodeRef) []models.Relationship {
	var rels []models.Relationship
	sorted := make([]fileNodeRef, len(refs))
	copy(sorted, refs)
	sort.Slice(sorted, func(i, j int) bool {
		si, sj := sorted[i].node.Span, sorted[j].node.Span
		return (si.LineEnd - si.LineStart) < (sj.LineEnd - sj.LineStart)
	})
	for i, child := range sorted {
		if !child.node.Span.HasSpan() || child.node.Kind == models.NodeKindFile {
			continue
		}
		// Import Nodes get their structural in-edge from the file-level
		// "imports" relationship (§4.C), not a generic "contains" edge.
		if child.node.Kind == models.NodeKindImport {
			continue
		}
		var parent *fileNodeRef
		for j := i + 1; j < len(sorted); j++ {
			cand := sorted[j]
			if cand.node.ID == child.node.ID || !cand.node.Span.HasSpan() {
				if cand.node.Kind == models.NodeKindFile {
					parent = &sorted[j]
				}
				continue
			}
			if cand.node.Kind == models.NodeKindImport {
				continue
			}
			if cand.node.Span.Contains(child.node.Span.LineStart) && cand.node.Span.Contains(child.node.Span.LineEnd) {
				if parent == nil || spanWidth(cand.node.Span) < spanWidth(parent.node.Span) {
					p := sorted[j]
					parent = &p
				}
			}
		}
		if parent == nil {
			if fileNode := firstFileKind(refs); fileNode != nil && fileNode.ID != child.node.ID {
				parent = &fileNodeRef{node: fileNode}
			}
		}
		if parent == nil {
			continue
		}
		rels = append(rels, models.Relationship{
			ID:           uuid.NewString(),
			RepositoryID: b.repositoryID,
			SourceNodeID: parent.node.ID,
			TargetNodeID: child.node.ID,
			Kind:         models.RelationContains,
			Confidence:   models.ConfidenceContainment,
			IsDirect:     true,
		})
	}
	return rels
}

func spanWidth(s models.Span) int {
	if !s.HasSpan() {
		return 1 << 30
	}
	return s.LineEnd - s.LineStart
}
