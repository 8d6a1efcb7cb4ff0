// Package langregistry is the Language Registry: it maps file extensions
// to a canonical language identifier, and carries the per-language
// metadata the rest of the pipeline needs (whether a tree-sitter grammar
// exists, the comment prefix, whether the language is a config/data
// format rather than source code).
package langregistry

import (
	"path/filepath"
	"strings"
)

// Descriptor is one registered language's metadata.
type Descriptor struct {
	Name          string
	Extensions    []string
	GrammarID     string // tree-sitter grammar identifier, empty if none wired
	CommentPrefix string
	IsConfigOnly  bool // basic/config languages get a File node only
}

// Registry resolves a file path to a Descriptor.
type Registry struct {
	byExt map[string]Descriptor
}

// NewRegistry returns a Registry preloaded with the descriptors known to
// this pipeline.
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Descriptor)}
	for _, d := range defaultDescriptors {
		r.Register(d)
	}
	return r
}

// Register adds or replaces a Descriptor, indexing it by every extension
// it claims.
func (r *Registry) Register(d Descriptor) {
	for _, ext := range d.Extensions {
		r.byExt[ext] = d
	}
}

// DetectLanguage returns the Descriptor for path's extension, and whether
// one was found.
func (r *Registry) DetectLanguage(path string) (Descriptor, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	d, ok := r.byExt[ext]
	return d, ok
}

// Languages returns every distinct registered language name.
func (r *Registry) Languages() []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range r.byExt {
		if !seen[d.Name] {
			seen[d.Name] = true
			out = append(out, d.Name)
		}
	}
	return out
}

var defaultDescriptors = []Descriptor{
	{Name: "go", Extensions: []string{".go"}, GrammarID: "go", CommentPrefix: "//"},
	{Name: "python", Extensions: []string{".py", ".pyi", ".pyw"}, CommentPrefix: "#"},
	{Name: "javascript", Extensions: []string{".js", ".jsx", ".mjs", ".cjs"}, CommentPrefix: "//"},
	{Name: "typescript", Extensions: []string{".ts", ".tsx", ".mts", ".cts"}, CommentPrefix: "//"},
	{Name: "java", Extensions: []string{".java"}, CommentPrefix: "//"},
	{Name: "csharp", Extensions: []string{".cs"}, CommentPrefix: "//"},
	{Name: "rust", Extensions: []string{".rs"}, CommentPrefix: "//"},
	{Name: "c", Extensions: []string{".c", ".h"}, CommentPrefix: "//"},
	{Name: "cpp", Extensions: []string{".cc", ".cpp", ".cxx", ".hpp", ".hh"}, CommentPrefix: "//"},
	{Name: "ruby", Extensions: []string{".rb"}, CommentPrefix: "#"},
	{Name: "php", Extensions: []string{".php"}, CommentPrefix: "//"},
	{Name: "kotlin", Extensions: []string{".kt", ".kts"}, CommentPrefix: "//"},
	{Name: "swift", Extensions: []string{".swift"}, CommentPrefix: "//"},
	{Name: "scala", Extensions: []string{".scala"}, CommentPrefix: "//"},

	{Name: "json", Extensions: []string{".json"}, IsConfigOnly: true},
	{Name: "yaml", Extensions: []string{".yaml", ".yml"}, CommentPrefix: "#", IsConfigOnly: true},
	{Name: "toml", Extensions: []string{".toml"}, CommentPrefix: "#", IsConfigOnly: true},
	{Name: "markdown", Extensions: []string{".md", ".mdx"}, IsConfigOnly: true},
	{Name: "xml", Extensions: []string{".xml"}, IsConfigOnly: true},
	{Name: "ini", Extensions: []string{".ini", ".cfg"}, CommentPrefix: ";", IsConfigOnly: true},
	{Name: "dockerfile", Extensions: []string{".dockerfile"}, CommentPrefix: "#", IsConfigOnly: true},
	{Name: "shell", Extensions: []string{".sh", ".bash", ".zsh"}, CommentPrefix: "#", IsConfigOnly: true},
	{Name: "sql", Extensions: []string{".sql"}, CommentPrefix: "--", IsConfigOnly: true},
	{Name: "plaintext", Extensions: []string{".txt"}, IsConfigOnly: true},
}
