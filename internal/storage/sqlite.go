package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/codegraph/internal/models"
)

// SQLiteStore implements Store on SQLite, for local/single-node
// deployments — the teacher's development-mode store, carried forward
// with the same WAL-mode and schema-bootstrap pattern.
type SQLiteStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewSQLiteStore opens (creating if absent) a SQLite database at path.
func NewSQLiteStore(path string, logger *logrus.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}
	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	store := &SQLiteStore{db: db, logger: logger}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sources (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		external_source_id TEXT,
		external_project_id TEXT,
		name TEXT NOT NULL,
		remote_url TEXT,
		branch TEXT,
		local_path TEXT,
		status TEXT NOT NULL,
		started_at DATETIME,
		completed_at DATETIME,
		error TEXT,
		files_found INTEGER DEFAULT 0,
		files_parsed INTEGER DEFAULT 0,
		nodes_created INTEGER DEFAULT 0,
		relationships_created INTEGER DEFAULT 0,
		languages TEXT,
		metadata TEXT
	);

	CREATE TABLE IF NOT EXISTS repositories (
		id TEXT PRIMARY KEY,
		source_id TEXT NOT NULL REFERENCES sources(id),
		name TEXT NOT NULL,
		url TEXT,
		branch TEXT,
		commit_hash TEXT,
		primary_language TEXT,
		languages TEXT,
		directory_structure TEXT,
		total_files INTEGER DEFAULT 0,
		parsed_files INTEGER DEFAULT 0,
		skipped_files INTEGER DEFAULT 0,
		error_files INTEGER DEFAULT 0,
		parsing_duration_ms INTEGER DEFAULT 0,
		avg_file_parse_ms REAL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS nodes (
		id TEXT PRIMARY KEY,
		repository_id TEXT NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		qualified_name TEXT NOT NULL,
		file_path TEXT NOT NULL,
		line_start INTEGER,
		line_end INTEGER,
		col_start INTEGER,
		col_end INTEGER,
		language TEXT,
		properties TEXT,
		source_excerpt TEXT,
		docstring TEXT,
		complexity INTEGER,
		is_public BOOLEAN DEFAULT 0,
		is_exported BOOLEAN DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_nodes_repo ON nodes(repository_id);
	CREATE INDEX IF NOT EXISTS idx_nodes_repo_kind ON nodes(repository_id, kind);

	CREATE TABLE IF NOT EXISTS relationships (
		id TEXT PRIMARY KEY,
		repository_id TEXT NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
		source_node_id TEXT NOT NULL,
		target_node_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		confidence REAL NOT NULL,
		call_count INTEGER,
		is_direct BOOLEAN DEFAULT 1,
		context TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_rels_repo ON relationships(repository_id);
	CREATE INDEX IF NOT EXISTS idx_rels_source ON relationships(source_node_id);
	CREATE INDEX IF NOT EXISTS idx_rels_target ON relationships(target_node_id);

	CREATE TABLE IF NOT EXISTS analysis (
		id TEXT PRIMARY KEY,
		repository_id TEXT NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		parameters TEXT,
		results TEXT,
		execution_time_ms INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_analysis_repo_kind ON analysis(repository_id, kind);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) CreateSource(ctx context.Context, src *models.Source) error {
	row, err := toSourceRow(src)
	if err != nil {
		return fmt.Errorf("encode source: %w", err)
	}
	query := `
		INSERT INTO sources (id, kind, external_source_id, external_project_id, name,
			remote_url, branch, local_path, status, started_at, completed_at, error,
			files_found, files_parsed, nodes_created, relationships_created, languages, metadata)
		VALUES (:id, :kind, :external_source_id, :external_project_id, :name,
			:remote_url, :branch, :local_path, :status, :started_at, :completed_at, :error,
			:files_found, :files_parsed, :nodes_created, :relationships_created, :languages, :metadata)
	`
	_, err = s.db.NamedExecContext(ctx, query, row)
	return err
}

func (s *SQLiteStore) UpdateSource(ctx context.Context, src *models.Source) error {
	row, err := toSourceRow(src)
	if err != nil {
		return fmt.Errorf("encode source: %w", err)
	}
	query := `
		UPDATE sources SET status = :status, started_at = :started_at, completed_at = :completed_at,
			error = :error, files_found = :files_found, files_parsed = :files_parsed,
			nodes_created = :nodes_created, relationships_created = :relationships_created,
			languages = :languages, metadata = :metadata
		WHERE id = :id
	`
	_, err = s.db.NamedExecContext(ctx, query, row)
	return err
}

func (s *SQLiteStore) GetSource(ctx context.Context, id string) (*models.Source, error) {
	var row sourceRow
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM sources WHERE id = ?`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.toModel()
}

func (s *SQLiteStore) CreateRepository(ctx context.Context, repo *models.Repository) error {
	row, err := toRepositoryRow(repo)
	if err != nil {
		return fmt.Errorf("encode repository: %w", err)
	}
	query := `
		INSERT INTO repositories (id, source_id, name, url, branch, commit_hash, primary_language,
			languages, directory_structure, total_files, parsed_files, skipped_files, error_files,
			parsing_duration_ms, avg_file_parse_ms, created_at)
		VALUES (:id, :source_id, :name, :url, :branch, :commit_hash, :primary_language,
			:languages, :directory_structure, :total_files, :parsed_files, :skipped_files, :error_files,
			:parsing_duration_ms, :avg_file_parse_ms, :created_at)
	`
	_, err = s.db.NamedExecContext(ctx, query, row)
	return err
}

func (s *SQLiteStore) UpdateRepository(ctx context.Context, repo *models.Repository) error {
	row, err := toRepositoryRow(repo)
	if err != nil {
		return fmt.Errorf("encode repository: %w", err)
	}
	query := `
		UPDATE repositories SET commit_hash = :commit_hash, primary_language = :primary_language,
			languages = :languages, directory_structure = :directory_structure,
			total_files = :total_files, parsed_files = :parsed_files, skipped_files = :skipped_files,
			error_files = :error_files, parsing_duration_ms = :parsing_duration_ms,
			avg_file_parse_ms = :avg_file_parse_ms
		WHERE id = :id
	`
	_, err = s.db.NamedExecContext(ctx, query, row)
	return err
}

func (s *SQLiteStore) GetRepository(ctx context.Context, id string) (*models.Repository, error) {
	var row repositoryRow
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM repositories WHERE id = ?`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.toModel()
}

func (s *SQLiteStore) CreateNodes(ctx context.Context, nodes []models.Node) error {
	if len(nodes) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT OR IGNORE INTO nodes (id, repository_id, kind, name, qualified_name, file_path,
			line_start, line_end, col_start, col_end, language, properties,
			source_excerpt, docstring, complexity, is_public, is_exported)
		VALUES (:id, :repository_id, :kind, :name, :qualified_name, :file_path,
			:line_start, :line_end, :col_start, :col_end, :language, :properties,
			:source_excerpt, :docstring, :complexity, :is_public, :is_exported)
	`
	for _, n := range nodes {
		row, err := toNodeRow(n)
		if err != nil {
			return fmt.Errorf("encode node: %w", err)
		}
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("create node: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) CreateRelationships(ctx context.Context, rels []models.Relationship) error {
	if len(rels) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT OR IGNORE INTO relationships (id, repository_id, source_node_id, target_node_id,
			kind, confidence, call_count, is_direct, context)
		VALUES (:id, :repository_id, :source_node_id, :target_node_id,
			:kind, :confidence, :call_count, :is_direct, :context)
	`
	for _, r := range rels {
		row, err := toRelationshipRow(r)
		if err != nil {
			return fmt.Errorf("encode relationship: %w", err)
		}
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("create relationship: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetNodes(ctx context.Context, repoID string, filter NodeFilter) ([]models.Node, error) {
	query := "SELECT * FROM nodes WHERE repository_id = ?"
	args := []any{repoID}
	if len(filter.Kinds) > 0 {
		placeholders, kindArgs := placeholdersFor(filter.Kinds)
		query += " AND kind IN (" + placeholders + ")"
		args = append(args, kindArgs...)
	}
	if filter.Language != "" {
		query += " AND language = ?"
		args = append(args, filter.Language)
	}
	query += " ORDER BY file_path, line_start"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	var rows []nodeRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("get nodes: %w", err)
	}
	out := make([]models.Node, 0, len(rows))
	for _, row := range rows {
		n, err := row.toModel()
		if err != nil {
			return nil, fmt.Errorf("decode node: %w", err)
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *SQLiteStore) GetRelationshipsForNodes(ctx context.Context, repoID string, nodeIDs []string, filter RelationshipFilter) ([]models.Relationship, error) {
	const batchSize = 50
	seen := make(map[string]bool)
	var out []models.Relationship

	for i := 0; i < len(nodeIDs); i += batchSize {
		end := i + batchSize
		if end > len(nodeIDs) {
			end = len(nodeIDs)
		}
		batch := nodeIDs[i:end]
		idPlaceholders, idArgs := placeholdersFor(batch)

		query := fmt.Sprintf(
			"SELECT * FROM relationships WHERE repository_id = ? AND (source_node_id IN (%s) OR target_node_id IN (%s))",
			idPlaceholders, idPlaceholders,
		)
		args := append([]any{repoID}, idArgs...)
		args = append(args, idArgs...)
		if len(filter.Kinds) > 0 {
			kindPlaceholders, kindArgs := placeholdersFor(filter.Kinds)
			query += " AND kind IN (" + kindPlaceholders + ")"
			args = append(args, kindArgs...)
		}

		var rows []relationshipRow
		if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
			return nil, fmt.Errorf("get relationships batch: %w", err)
		}
		for _, row := range rows {
			if seen[row.ID] {
				continue
			}
			seen[row.ID] = true
			r, err := row.toModel()
			if err != nil {
				return nil, fmt.Errorf("decode relationship: %w", err)
			}
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *SQLiteStore) CreateAnalysis(ctx context.Context, a *models.Analysis) error {
	row, err := toAnalysisRow(a)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	query := `
		INSERT INTO analysis (id, repository_id, kind, parameters, results, execution_time_ms, created_at)
		VALUES (:id, :repository_id, :kind, :parameters, :results, :execution_time_ms, :created_at)
	`
	_, err = s.db.NamedExecContext(ctx, query, row)
	return err
}

func (s *SQLiteStore) GetAnalysis(ctx context.Context, repoID string, kind models.AnalysisKind) (*models.Analysis, error) {
	var row analysisRow
	query := `SELECT * FROM analysis WHERE repository_id = ? AND kind = ? ORDER BY created_at DESC LIMIT 1`
	if err := s.db.GetContext(ctx, &row, query, repoID, string(kind)); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.toModel()
}

// placeholdersFor builds a "?,?,?" placeholder list and the matching
// []any argument slice for a typed slice (string or any fmt.Stringer
// enum), since database/sql can't expand a slice into an IN clause on
// its own the way sqlx.In is not used here for simplicity.
func placeholdersFor[T any](items []T) (string, []any) {
	args := make([]any, len(items))
	ph := ""
	for i, it := range items {
		if i > 0 {
			ph += ","
		}
		ph += "?"
		args[i] = fmt.Sprintf("%v", it)
	}
	return ph, args
}
