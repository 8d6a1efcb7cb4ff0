// Package parser implements the File Parser: given a file's language (as
// resolved by the Language Registry) and its contents, it extracts Nodes
// and unresolved references that the Graph Builder later turns into
// Relationships.
//
// Two backends satisfy the same interface, mirroring the dual
// pattern/AST design kraklabs-cie uses for its own ingestion pipeline: a
// regex/brace-balancing PatternParser that covers every registered
// language, and an optional TreeSitterGoParser that trades breadth for
// precision on Go source.
package parser

import (
	"fmt"

	"github.com/rohankatakam/codegraph/internal/graph"
)

// Mode selects which backend ParserFor returns for a given language.
type Mode int

const (
	// ModeAuto picks TreeSitterGoParser for Go when available, and
	// PatternParser for everything else.
	ModeAuto Mode = iota
	ModePattern
	ModeTreeSitterGo
)

// DefaultMode matches the spec's default: pattern-based parsing
// everywhere, with the AST backend opt-in.
const DefaultMode = ModePattern

// ParseInput is one file handed to a Parser.
type ParseInput struct {
	FilePath string
	Language string
	Content  []byte
	// Cancel is an optional cancellation probe (typically a context's
	// Done channel). PatternParser polls it every 100 lines and every 10
	// imports, so a cancelled job abandons a large file's parse instead of
	// running it to completion. TreeSitterGoParser does not consult it.
	Cancel <-chan struct{}
}

// Parser extracts a graph.FileParse from one file's content.
//
// Implementations must not mutate input.Content, and must return a
// non-nil *graph.FileParse even on partial failure, annotated via the
// returned error. The caller decides whether a partial result is usable.
type Parser interface {
	ParseFile(input ParseInput) (*graph.FileParse, error)
	Name() string
}

// compile-time interface checks
var (
	_ Parser = (*PatternParser)(nil)
	_ Parser = (*TreeSitterGoParser)(nil)
)

// Registry selects a Parser per file according to Mode and language.
type Registry struct {
	mode       Mode
	pattern    *PatternParser
	treeSitter *TreeSitterGoParser // nil when tree-sitter is disabled
}

// NewRegistry builds a Registry. treeSitterGo may be nil to disable the
// AST backend entirely (the default, per SPEC_FULL §9's design note).
func NewRegistry(mode Mode, maxExcerptLines int, treeSitterGo *TreeSitterGoParser) *Registry {
	return &Registry{
		mode:       mode,
		pattern:    NewPatternParser(maxExcerptLines),
		treeSitter: treeSitterGo,
	}
}

// ParserFor returns the Parser that should handle language under r's Mode.
func (r *Registry) ParserFor(language string) Parser {
	switch r.mode {
	case ModeTreeSitterGo:
		if r.treeSitter != nil && language == "go" {
			return r.treeSitter
		}
		return r.pattern
	case ModeAuto:
		if r.treeSitter != nil && language == "go" {
			return r.treeSitter
		}
		return r.pattern
	default:
		return r.pattern
	}
}

// ParseFile dispatches to the appropriate backend for input.Language.
func (r *Registry) ParseFile(input ParseInput) (*graph.FileParse, error) {
	p := r.ParserFor(input.Language)
	result, err := p.ParseFile(input)
	if err != nil {
		return result, fmt.Errorf("parser %s: %w", p.Name(), err)
	}
	return result, nil
}
