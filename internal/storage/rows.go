package storage

import (
	"encoding/json"
	"time"

	"github.com/rohankatakam/codegraph/internal/models"
)

// Row-level shadow structs flatten the model's map/slice/Span/Duration
// fields (tagged `db:"-"` on the domain model) into sqlx-bindable
// columns: JSON-encoded blobs for free-form maps, individual columns
// for Span, milliseconds for Duration. Conversion happens only at the
// storage boundary so the rest of the codebase works with the plain
// domain types.

type sourceRow struct {
	ID                   string         `db:"id"`
	Kind                 string         `db:"kind"`
	ExternalSourceID     *string        `db:"external_source_id"`
	ExternalProjectID    *string        `db:"external_project_id"`
	Name                 string         `db:"name"`
	RemoteURL            string         `db:"remote_url"`
	Branch               string         `db:"branch"`
	LocalPath            string         `db:"local_path"`
	Status               string         `db:"status"`
	StartedAt            *time.Time     `db:"started_at"`
	CompletedAt          *time.Time     `db:"completed_at"`
	Error                string         `db:"error"`
	FilesFound           int            `db:"files_found"`
	FilesParsed          int            `db:"files_parsed"`
	NodesCreated         int            `db:"nodes_created"`
	RelationshipsCreated int            `db:"relationships_created"`
	Languages            string         `db:"languages"`
	Metadata             string         `db:"metadata"`
}

func toSourceRow(s *models.Source) (sourceRow, error) {
	langs, err := json.Marshal(s.Languages)
	if err != nil {
		return sourceRow{}, err
	}
	meta, err := json.Marshal(s.Metadata)
	if err != nil {
		return sourceRow{}, err
	}
	return sourceRow{
		ID: s.ID, Kind: string(s.Kind), ExternalSourceID: s.ExternalSourceID,
		ExternalProjectID: s.ExternalProjectID, Name: s.Name, RemoteURL: s.RemoteURL,
		Branch: s.Branch, LocalPath: s.LocalPath, Status: string(s.Status),
		StartedAt: s.StartedAt, CompletedAt: s.CompletedAt, Error: s.Error,
		FilesFound: s.FilesFound, FilesParsed: s.FilesParsed, NodesCreated: s.NodesCreated,
		RelationshipsCreated: s.RelationshipsCreated, Languages: string(langs), Metadata: string(meta),
	}, nil
}

func (r sourceRow) toModel() (*models.Source, error) {
	s := &models.Source{
		ID: r.ID, Kind: models.SourceKind(r.Kind), ExternalSourceID: r.ExternalSourceID,
		ExternalProjectID: r.ExternalProjectID, Name: r.Name, RemoteURL: r.RemoteURL,
		Branch: r.Branch, LocalPath: r.LocalPath, Status: models.ParsingStatus(r.Status),
		StartedAt: r.StartedAt, CompletedAt: r.CompletedAt, Error: r.Error,
		FilesFound: r.FilesFound, FilesParsed: r.FilesParsed, NodesCreated: r.NodesCreated,
		RelationshipsCreated: r.RelationshipsCreated,
	}
	if r.Languages != "" {
		if err := json.Unmarshal([]byte(r.Languages), &s.Languages); err != nil {
			return nil, err
		}
	}
	if r.Metadata != "" {
		if err := json.Unmarshal([]byte(r.Metadata), &s.Metadata); err != nil {
			return nil, err
		}
	}
	return s, nil
}

type repositoryRow struct {
	ID                 string    `db:"id"`
	SourceID           string    `db:"source_id"`
	Name               string    `db:"name"`
	URL                string    `db:"url"`
	Branch             string    `db:"branch"`
	CommitHash         string    `db:"commit_hash"`
	PrimaryLanguage    string    `db:"primary_language"`
	Languages          string    `db:"languages"`
	DirectoryStructure string    `db:"directory_structure"`
	TotalFiles         int       `db:"total_files"`
	ParsedFiles        int       `db:"parsed_files"`
	SkippedFiles       int       `db:"skipped_files"`
	ErrorFiles         int       `db:"error_files"`
	ParsingDurationMs  int64     `db:"parsing_duration_ms"`
	AvgFileParseMs     float64   `db:"avg_file_parse_ms"`
	CreatedAt          time.Time `db:"created_at"`
}

func toRepositoryRow(r *models.Repository) (repositoryRow, error) {
	langs, err := json.Marshal(r.Languages)
	if err != nil {
		return repositoryRow{}, err
	}
	dir, err := json.Marshal(r.DirectoryStructure)
	if err != nil {
		return repositoryRow{}, err
	}
	return repositoryRow{
		ID: r.ID, SourceID: r.SourceID, Name: r.Name, URL: r.URL, Branch: r.Branch,
		CommitHash: r.CommitHash, PrimaryLanguage: r.PrimaryLanguage, Languages: string(langs),
		DirectoryStructure: string(dir), TotalFiles: r.TotalFiles, ParsedFiles: r.ParsedFiles,
		SkippedFiles: r.SkippedFiles, ErrorFiles: r.ErrorFiles,
		ParsingDurationMs: r.ParsingDuration.Milliseconds(), AvgFileParseMs: r.AvgFileParseMs,
		CreatedAt: r.CreatedAt,
	}, nil
}

func (row repositoryRow) toModel() (*models.Repository, error) {
	r := &models.Repository{
		ID: row.ID, SourceID: row.SourceID, Name: row.Name, URL: row.URL, Branch: row.Branch,
		CommitHash: row.CommitHash, PrimaryLanguage: row.PrimaryLanguage,
		TotalFiles: row.TotalFiles, ParsedFiles: row.ParsedFiles, SkippedFiles: row.SkippedFiles,
		ErrorFiles: row.ErrorFiles, ParsingDuration: time.Duration(row.ParsingDurationMs) * time.Millisecond,
		AvgFileParseMs: row.AvgFileParseMs, CreatedAt: row.CreatedAt,
	}
	if row.Languages != "" {
		if err := json.Unmarshal([]byte(row.Languages), &r.Languages); err != nil {
			return nil, err
		}
	}
	if row.DirectoryStructure != "" {
		if err := json.Unmarshal([]byte(row.DirectoryStructure), &r.DirectoryStructure); err != nil {
			return nil, err
		}
	}
	return r, nil
}

type nodeRow struct {
	ID            string `db:"id"`
	RepositoryID  string `db:"repository_id"`
	Kind          string `db:"kind"`
	Name          string `db:"name"`
	QualifiedName string `db:"qualified_name"`
	FilePath      string `db:"file_path"`
	LineStart     int    `db:"line_start"`
	LineEnd       int    `db:"line_end"`
	ColStart      int    `db:"col_start"`
	ColEnd        int    `db:"col_end"`
	Language      string `db:"language"`
	Properties    string `db:"properties"`
	SourceExcerpt string `db:"source_excerpt"`
	Docstring     string `db:"docstring"`
	Complexity    *int   `db:"complexity"`
	IsPublic      bool   `db:"is_public"`
	IsExported    bool   `db:"is_exported"`
}

func toNodeRow(n models.Node) (nodeRow, error) {
	props, err := json.Marshal(n.Properties)
	if err != nil {
		return nodeRow{}, err
	}
	return nodeRow{
		ID: n.ID, RepositoryID: n.RepositoryID, Kind: string(n.Kind), Name: n.Name,
		QualifiedName: n.QualifiedName, FilePath: n.FilePath,
		LineStart: n.Span.LineStart, LineEnd: n.Span.LineEnd, ColStart: n.Span.ColStart, ColEnd: n.Span.ColEnd,
		Language: n.Language, Properties: string(props), SourceExcerpt: n.SourceExcerpt,
		Docstring: n.Docstring, Complexity: n.Complexity, IsPublic: n.IsPublic, IsExported: n.IsExported,
	}, nil
}

func (row nodeRow) toModel() (models.Node, error) {
	n := models.Node{
		ID: row.ID, RepositoryID: row.RepositoryID, Kind: models.NodeKind(row.Kind), Name: row.Name,
		QualifiedName: row.QualifiedName, FilePath: row.FilePath,
		Span:     models.Span{LineStart: row.LineStart, LineEnd: row.LineEnd, ColStart: row.ColStart, ColEnd: row.ColEnd},
		Language: row.Language, SourceExcerpt: row.SourceExcerpt, Docstring: row.Docstring,
		Complexity: row.Complexity, IsPublic: row.IsPublic, IsExported: row.IsExported,
	}
	if row.Properties != "" {
		if err := json.Unmarshal([]byte(row.Properties), &n.Properties); err != nil {
			return models.Node{}, err
		}
	}
	return n, nil
}

type relationshipRow struct {
	ID           string `db:"id"`
	RepositoryID string `db:"repository_id"`
	SourceNodeID string `db:"source_node_id"`
	TargetNodeID string `db:"target_node_id"`
	Kind         string `db:"kind"`
	Confidence   float64 `db:"confidence"`
	CallCount    *int    `db:"call_count"`
	IsDirect     bool    `db:"is_direct"`
	Context      string  `db:"context"`
}

func toRelationshipRow(r models.Relationship) (relationshipRow, error) {
	ctx, err := json.Marshal(r.Context)
	if err != nil {
		return relationshipRow{}, err
	}
	return relationshipRow{
		ID: r.ID, RepositoryID: r.RepositoryID, SourceNodeID: r.SourceNodeID, TargetNodeID: r.TargetNodeID,
		Kind: string(r.Kind), Confidence: r.Confidence, CallCount: r.CallCount, IsDirect: r.IsDirect,
		Context: string(ctx),
	}, nil
}

func (row relationshipRow) toModel() (models.Relationship, error) {
	r := models.Relationship{
		ID: row.ID, RepositoryID: row.RepositoryID, SourceNodeID: row.SourceNodeID, TargetNodeID: row.TargetNodeID,
		Kind: models.RelationKind(row.Kind), Confidence: row.Confidence, CallCount: row.CallCount, IsDirect: row.IsDirect,
	}
	if row.Context != "" {
		if err := json.Unmarshal([]byte(row.Context), &r.Context); err != nil {
			return models.Relationship{}, err
		}
	}
	return r, nil
}

type analysisRow struct {
	ID                string    `db:"id"`
	RepositoryID      string    `db:"repository_id"`
	Kind              string    `db:"kind"`
	Parameters        string    `db:"parameters"`
	Results           string    `db:"results"`
	ExecutionTimeMs   int64     `db:"execution_time_ms"`
	CreatedAt         time.Time `db:"created_at"`
}

func toAnalysisRow(a *models.Analysis) (analysisRow, error) {
	params, err := json.Marshal(a.Parameters)
	if err != nil {
		return analysisRow{}, err
	}
	results, err := json.Marshal(a.Results)
	if err != nil {
		return analysisRow{}, err
	}
	return analysisRow{
		ID: a.ID, RepositoryID: a.RepositoryID, Kind: string(a.Kind),
		Parameters: string(params), Results: string(results),
		ExecutionTimeMs: a.ExecutionTime.Milliseconds(), CreatedAt: a.CreatedAt,
	}, nil
}

func (row analysisRow) toModel() (*models.Analysis, error) {
	a := &models.Analysis{
		ID: row.ID, RepositoryID: row.RepositoryID, Kind: models.AnalysisKind(row.Kind),
		ExecutionTime: time.Duration(row.ExecutionTimeMs) * time.Millisecond, CreatedAt: row.CreatedAt,
	}
	if row.Parameters != "" {
		if err := json.Unmarshal([]byte(row.Parameters), &a.Parameters); err != nil {
			return nil, err
		}
	}
	if row.Results != "" {
		if err := json.Unmarshal([]byte(row.Results), &a.Results); err != nil {
			return nil, err
		}
	}
	return a, nil
}
