package parser

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"

	"github.com/rohankatakam/codegraph/internal/graph"
	"github.com/rohankatakam/codegraph/internal/models"
)

// TreeSitterGoParser parses Go source with a real grammar instead of
// regexes. It is the precise backend named as an open design option in
// SPEC_FULL §9: opt-in, Go-only, and built to the same Parser interface
// as PatternParser so Registry can swap it in without the rest of the
// pipeline noticing.
//
// Every Parse call gets its own *sitter.Parser because the underlying
// CGO parser is not safe for concurrent use; ParseFile is expected to be
// called from worker-pool goroutines that each hold their own instance.
type TreeSitterGoParser struct {
	maxExcerptLines int
}

// NewTreeSitterGoParser returns a TreeSitterGoParser, or an error if the
// Go grammar fails to load.
func NewTreeSitterGoParser(maxExcerptLines int) (*TreeSitterGoParser, error) {
	p := sitter.NewParser()
	if p == nil {
		return nil, fmt.Errorf("tree-sitter: failed to create parser")
	}
	defer p.Close()
	lang := sitter.NewLanguage(tree_sitter_go.Language())
	if err := p.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("tree-sitter: set go language: %w", err)
	}
	return &TreeSitterGoParser{maxExcerptLines: maxExcerptLines}, nil
}

func (t *TreeSitterGoParser) Name() string { return "tree-sitter-go" }

func (t *TreeSitterGoParser) ParseFile(input ParseInput) (*graph.FileParse, error) {
	p := sitter.NewParser()
	if p == nil {
		return nil, fmt.Errorf("tree-sitter: failed to create parser")
	}
	defer p.Close()
	lang := sitter.NewLanguage(tree_sitter_go.Language())
	if err := p.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("tree-sitter: set go language: %w", err)
	}

	tree := p.Parse(input.Content, nil)
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter: parse failed for %s", input.FilePath)
	}
	defer tree.Close()

	fp := &graph.FileParse{FilePath: input.FilePath, Language: "go"}
	fp.Nodes = append(fp.Nodes, models.Node{
		Kind:     models.NodeKindFile,
		Name:     baseName(input.FilePath),
		FilePath: input.FilePath,
		Language: "go",
		Span:     models.Span{LineStart: 1, LineEnd: LineCount(input.Content)},
		IsPublic: true,
	})

	byName := map[string]int{fp.Nodes[0].Name: 0}
	walkGoTree(tree.RootNode(), input.Content, input.FilePath, fp, byName)

	return fp, nil
}

func walkGoTree(root *sitter.Node, src []byte, filePath string, fp *graph.FileParse, byName map[string]int) {
	cursor := root.Walk()
	defer cursor.Close()

	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		switch n.Kind() {
		case "import_spec":
			if pathNode := n.ChildByFieldName("path"); pathNode != nil {
				path := strings.Trim(nodeText(pathNode, src), `"`)
				fp.Imports = append(fp.Imports, graph.RawImport{FromNodeIndex: 0, ImportPath: path})
			}
		case "type_spec":
			nameNode := n.ChildByFieldName("name")
			typeNode := n.ChildByFieldName("type")
			if nameNode != nil && typeNode != nil {
				kind := models.NodeKindClass
				if typeNode.Kind() == "interface_type" {
					kind = models.NodeKindInterface
				}
				name := nodeText(nameNode, src)
				addGoNode(fp, byName, kind, name, n, src, filePath)
			}
		case "function_declaration":
			if nameNode := n.ChildByFieldName("name"); nameNode != nil {
				name := nodeText(nameNode, src)
				idx := addGoNode(fp, byName, models.NodeKindFunction, name, n, src, filePath)
				scanGoCalls(n, src, name, fp, idx)
			}
		case "method_declaration":
			if nameNode := n.ChildByFieldName("name"); nameNode != nil {
				name := nodeText(nameNode, src)
				idx := addGoNode(fp, byName, models.NodeKindMethod, name, n, src, filePath)
				if recv := n.ChildByFieldName("receiver"); recv != nil {
					recvType := strings.TrimPrefix(strings.TrimSpace(nodeText(recv, src)), "*")
					if fields := strings.Fields(recvType); len(fields) > 0 {
						target := strings.TrimPrefix(fields[len(fields)-1], "*")
						target = strings.Trim(target, "()")
						fp.References = append(fp.References, graph.RawReference{
							FromNodeIndex: idx, TargetName: target,
							Kind: models.RelationDefines, Confidence: models.ConfidenceIntraFileUses,
						})
					}
				}
				scanGoCalls(n, src, name, fp, idx)
			}
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			if c := n.Child(i); c != nil {
				visit(c)
			}
		}
	}
	visit(root)
}

func addGoNode(fp *graph.FileParse, byName map[string]int, kind models.NodeKind, name string, n *sitter.Node, src []byte, filePath string) int {
	start := int(n.StartPosition().Row) + 1
	end := int(n.EndPosition().Row) + 1
	excerpt := nodeText(n, src)
	node := models.Node{
		Kind:          kind,
		Name:          name,
		FilePath:      filePath,
		Language:      "go",
		Span:          models.Span{LineStart: start, LineEnd: end},
		SourceExcerpt: excerpt,
		Complexity:    intPtr(cyclomaticComplexity("go", strings.Split(excerpt, "\n"))),
		IsPublic:      isPublicName("go", name),
		IsExported:    isPublicName("go", name),
	}
	fp.Nodes = append(fp.Nodes, node)
	idx := len(fp.Nodes) - 1
	byName[name] = idx
	return idx
}

func scanGoCalls(n *sitter.Node, src []byte, fromName string, fp *graph.FileParse, fromIdx int) {
	seen := make(map[string]bool)
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n.Kind() == "call_expression" {
			if fn := n.ChildByFieldName("function"); fn != nil {
				name := nodeText(fn, src)
				if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
					name = name[idx+1:]
				}
				if name != fromName && !seen[name] && !keywords[name] {
					seen[name] = true
					fp.References = append(fp.References, graph.RawReference{
						FromNodeIndex: fromIdx, TargetName: name,
						Kind: models.RelationCalls, Confidence: models.ConfidenceIntraFileCalls,
					})
				}
			}
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			if c := n.Child(i); c != nil {
				visit(c)
			}
		}
	}
	visit(n)
}

func nodeText(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	start, end := n.StartByte(), n.EndByte()
	if int(end) > len(src) {
		end = uint(len(src))
	}
	return string(src[start:end])
}
