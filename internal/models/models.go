package models

import "time"

// SourceKind identifies how a Source was registered.
type SourceKind string

const (
	SourceKindCrawled     SourceKind = "crawled"
	SourceKindProjectRepo SourceKind = "project-repo"
	SourceKindUploaded    SourceKind = "uploaded"
)

// ParsingStatus is the lifecycle state of a Source.
type ParsingStatus string

const (
	ParsingStatusPending    ParsingStatus = "pending"
	ParsingStatusProcessing ParsingStatus = "processing"
	ParsingStatusCompleted  ParsingStatus = "completed"
	ParsingStatusFailed     ParsingStatus = "failed"
	ParsingStatusDisabled   ParsingStatus = "disabled"
)

// NodeKind enumerates the code-entity variants a Node can represent.
type NodeKind string

const (
	NodeKindFile      NodeKind = "file"
	NodeKindClass     NodeKind = "class"
	NodeKindFunction  NodeKind = "function"
	NodeKindMethod    NodeKind = "method"
	NodeKindVariable  NodeKind = "variable"
	NodeKindImport    NodeKind = "import"
	NodeKindInterface NodeKind = "interface"
	NodeKindEnum      NodeKind = "enum"
	NodeKindModule    NodeKind = "module"
	NodeKindNamespace NodeKind = "namespace"
)

// RelationKind enumerates the relationship types between two Nodes.
type RelationKind string

const (
	RelationCalls      RelationKind = "calls"
	RelationInherits   RelationKind = "inherits"
	RelationImports    RelationKind = "imports"
	RelationUses       RelationKind = "uses"
	RelationDefines    RelationKind = "defines"
	RelationContains   RelationKind = "contains"
	RelationDependsOn  RelationKind = "depends-on"
	RelationImplements RelationKind = "implements"
	RelationExtends    RelationKind = "extends"
)

// AnalysisKind enumerates the cacheable derived-analysis results.
type AnalysisKind string

const (
	AnalysisDependencyTree AnalysisKind = "dependency-tree"
	AnalysisComplexity     AnalysisKind = "complexity"
	AnalysisHotspots       AnalysisKind = "hotspots"
	AnalysisArchitecture   AnalysisKind = "architecture"
)

// Source is a parsing job's top-level handle.
//
// At least one of ExternalSourceID, ExternalProjectID or LocalPath must
// be set; RemoteURL alone does not satisfy the identity constraint.
type Source struct {
	ID                   string         `db:"id" json:"id"`
	Kind                 SourceKind     `db:"kind" json:"kind"`
	ExternalSourceID     *string        `db:"external_source_id" json:"external_source_id,omitempty"`
	ExternalProjectID    *string        `db:"external_project_id" json:"external_project_id,omitempty"`
	Name                 string         `db:"name" json:"name"`
	RemoteURL            string         `db:"remote_url" json:"remote_url,omitempty"`
	Branch               string         `db:"branch" json:"branch"`
	LocalPath            string         `db:"local_path" json:"local_path"`
	Status               ParsingStatus  `db:"status" json:"status"`
	StartedAt            *time.Time     `db:"started_at" json:"started_at,omitempty"`
	CompletedAt          *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
	Error                string         `db:"error" json:"error,omitempty"`
	FilesFound           int            `db:"files_found" json:"files_found"`
	FilesParsed          int            `db:"files_parsed" json:"files_parsed"`
	NodesCreated         int            `db:"nodes_created" json:"nodes_created"`
	RelationshipsCreated int            `db:"relationships_created" json:"relationships_created"`
	Languages            []string       `db:"-" json:"languages,omitempty"`
	Metadata             map[string]any `db:"-" json:"metadata,omitempty"`
}

// HasRequiredIdentity reports whether the source-identity constraint holds.
func (s *Source) HasRequiredIdentity() bool {
	if s.ExternalSourceID != nil && *s.ExternalSourceID != "" {
		return true
	}
	if s.ExternalProjectID != nil && *s.ExternalProjectID != "" {
		return true
	}
	return s.LocalPath != ""
}

// Repository is a parsed snapshot bound 1:1 to a Source.
type Repository struct {
	ID                 string         `db:"id" json:"id"`
	SourceID           string         `db:"source_id" json:"source_id"`
	Name               string         `db:"name" json:"name"`
	URL                string         `db:"url" json:"url,omitempty"`
	Branch             string         `db:"branch" json:"branch"`
	CommitHash         string         `db:"commit_hash" json:"commit_hash,omitempty"`
	PrimaryLanguage    string         `db:"primary_language" json:"primary_language"`
	Languages          []string       `db:"-" json:"languages"`
	DirectoryStructure map[string]any `db:"-" json:"directory_structure,omitempty"`
	TotalFiles         int            `db:"total_files" json:"total_files"`
	ParsedFiles        int            `db:"parsed_files" json:"parsed_files"`
	SkippedFiles       int            `db:"skipped_files" json:"skipped_files"`
	ErrorFiles         int            `db:"error_files" json:"error_files"`
	ParsingDuration    time.Duration  `db:"-" json:"parsing_duration_ms"`
	AvgFileParseMs     float64        `db:"avg_file_parse_ms" json:"avg_file_parse_ms"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
}

// Span is a 1-based line/column range.
type Span struct {
	LineStart int `db:"line_start" json:"line_start,omitempty"`
	LineEnd   int `db:"line_end" json:"line_end,omitempty"`
	ColStart  int `db:"col_start" json:"col_start,omitempty"`
	ColEnd    int `db:"col_end" json:"col_end,omitempty"`
}

// HasSpan reports whether both line bounds are known.
func (s Span) HasSpan() bool { return s.LineStart > 0 && s.LineEnd > 0 }

// Contains reports whether line falls within [LineStart, LineEnd].
func (s Span) Contains(line int) bool {
	return s.HasSpan() && line >= s.LineStart && line <= s.LineEnd
}

// Node is a single code entity belonging to a Repository.
type Node struct {
	ID            string         `db:"id" json:"id"`
	RepositoryID  string         `db:"repository_id" json:"repository_id"`
	Kind          NodeKind       `db:"kind" json:"kind"`
	Name          string         `db:"name" json:"name"`
	QualifiedName string         `db:"qualified_name" json:"qualified_name"`
	FilePath      string         `db:"file_path" json:"file_path"`
	Span          Span           `db:"-" json:"span"`
	Language      string         `db:"language" json:"language"`
	Properties    map[string]any `db:"-" json:"properties,omitempty"`
	SourceExcerpt string         `db:"source_excerpt" json:"source_excerpt,omitempty"`
	Docstring     string         `db:"docstring" json:"docstring,omitempty"`
	Complexity    *int           `db:"complexity" json:"complexity,omitempty"`
	IsPublic      bool           `db:"is_public" json:"is_public"`
	IsExported    bool           `db:"is_exported" json:"is_exported"`
}

// QualifiedNameFor builds the "<file_path>::<local_name>" convention name.
func QualifiedNameFor(filePath, localName string) string {
	return filePath + "::" + localName
}

// Relationship is a directed, typed, confidence-annotated edge.
type Relationship struct {
	ID           string         `db:"id" json:"id"`
	RepositoryID string         `db:"repository_id" json:"repository_id"`
	SourceNodeID string         `db:"source_node_id" json:"source_node_id"`
	TargetNodeID string         `db:"target_node_id" json:"target_node_id"`
	Kind         RelationKind   `db:"kind" json:"kind"`
	Confidence   float64        `db:"confidence" json:"confidence"`
	CallCount    *int           `db:"call_count" json:"call_count,omitempty"`
	IsDirect     bool           `db:"is_direct" json:"is_direct"`
	Context      map[string]any `db:"-" json:"context,omitempty"`
}

// Well-known confidence levels.
const (
	ConfidenceContainment       = 1.0
	ConfidenceFileImport        = 1.0 // file -> import Node, always certain
	ConfidencePatternInherits   = 0.9
	ConfidencePatternImplements = 0.9
	ConfidenceIntraFileCalls    = 0.8
	ConfidenceIntraFileUses     = 0.7
	ConfidenceCrossFileImport   = 0.7
	ConfidenceCrossFileUses     = 0.6
)

// Analysis is a cached, independently-creatable derived-analysis result.
type Analysis struct {
	ID            string         `db:"id" json:"id"`
	RepositoryID  string         `db:"repository_id" json:"repository_id"`
	Kind          AnalysisKind   `db:"kind" json:"kind"`
	Parameters    map[string]any `db:"-" json:"parameters,omitempty"`
	Results       map[string]any `db:"-" json:"results"`
	ExecutionTime time.Duration  `db:"-" json:"execution_time_ms"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}

// FileParseResult summarizes one File Parser invocation.
type FileParseResult struct {
	FilePath       string `json:"file_path"`
	Language       string `json:"language"`
	Success        bool   `json:"success"`
	NodesExtracted int    `json:"nodes_extracted"`
	EdgesExtracted int    `json:"edges_extracted"`
	ElapsedMs      int64  `json:"elapsed_ms"`
	Error          string `json:"error,omitempty"`
}
