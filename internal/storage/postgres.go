package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/codegraph/internal/models"
)

// PostgresStore implements Store on PostgreSQL via pgx/sqlx, the
// teacher's driver pairing, generalized from the teacher's risk tables
// to sources/repositories/nodes/relationships/analysis.
type PostgresStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPostgresStore connects to dsn and configures the pool the way the
// teacher's NewPostgresStore did.
func NewPostgresStore(dsn string, logger *logrus.Logger) (*PostgresStore, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &PostgresStore{db: db, logger: logger}, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) CreateSource(ctx context.Context, src *models.Source) error {
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
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("create source: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateSource(ctx context.Context, src *models.Source) error {
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
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("update source: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSource(ctx context.Context, id string) (*models.Source, error) {
	var row sourceRow
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM sources WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get source: %w", err)
	}
	return row.toModel()
}

func (s *PostgresStore) CreateRepository(ctx context.Context, repo *models.Repository) error {
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
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("create repository: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateRepository(ctx context.Context, repo *models.Repository) error {
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
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("update repository: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRepository(ctx context.Context, id string) (*models.Repository, error) {
	var row repositoryRow
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM repositories WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get repository: %w", err)
	}
	return row.toModel()
}

func (s *PostgresStore) CreateNodes(ctx context.Context, nodes []models.Node) error {
	if len(nodes) == 0 {
		return nil
	}
	rows := make([]nodeRow, 0, len(nodes))
	for _, n := range nodes {
		row, err := toNodeRow(n)
		if err != nil {
			return fmt.Errorf("encode node: %w", err)
		}
		rows = append(rows, row)
	}
	query := `
		INSERT INTO nodes (id, repository_id, kind, name, qualified_name, file_path,
			line_start, line_end, col_start, col_end, language, properties,
			source_excerpt, docstring, complexity, is_public, is_exported)
		VALUES (:id, :repository_id, :kind, :name, :qualified_name, :file_path,
			:line_start, :line_end, :col_start, :col_end, :language, :properties,
			:source_excerpt, :docstring, :complexity, :is_public, :is_exported)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := s.db.NamedExecContext(ctx, query, rows); err != nil {
		return fmt.Errorf("create nodes: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateRelationships(ctx context.Context, rels []models.Relationship) error {
	if len(rels) == 0 {
		return nil
	}
	rows := make([]relationshipRow, 0, len(rels))
	for _, r := range rels {
		row, err := toRelationshipRow(r)
		if err != nil {
			return fmt.Errorf("encode relationship: %w", err)
		}
		rows = append(rows, row)
	}
	query := `
		INSERT INTO relationships (id, repository_id, source_node_id, target_node_id,
			kind, confidence, call_count, is_direct, context)
		VALUES (:id, :repository_id, :source_node_id, :target_node_id,
			:kind, :confidence, :call_count, :is_direct, :context)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := s.db.NamedExecContext(ctx, query, rows); err != nil {
		return fmt.Errorf("create relationships: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetNodes(ctx context.Context, repoID string, filter NodeFilter) ([]models.Node, error) {
	query := `SELECT * FROM nodes WHERE repository_id = $1`
	args := []any{repoID}
	if len(filter.Kinds) > 0 {
		kinds := make([]string, len(filter.Kinds))
		for i, k := range filter.Kinds {
			kinds[i] = string(k)
		}
		query += fmt.Sprintf(" AND kind = ANY($%d)", len(args)+1)
		args = append(args, kinds)
	}
	if filter.Language != "" {
		query += fmt.Sprintf(" AND language = $%d", len(args)+1)
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

// GetRelationshipsForNodes fetches relationships touching nodeIDs in
// batches of 50 (the ceiling SPEC_FULL §4.G sets to bound argument
// size), then dedupes by relationship id.
func (s *PostgresStore) GetRelationshipsForNodes(ctx context.Context, repoID string, nodeIDs []string, filter RelationshipFilter) ([]models.Relationship, error) {
	const batchSize = 50
	seen := make(map[string]bool)
	var out []models.Relationship

	for i := 0; i < len(nodeIDs); i += batchSize {
		end := i + batchSize
		if end > len(nodeIDs) {
			end = len(nodeIDs)
		}
		batch := nodeIDs[i:end]

		query := `SELECT * FROM relationships WHERE repository_id = $1 AND (source_node_id = ANY($2) OR target_node_id = ANY($2))`
		args := []any{repoID, batch}
		if len(filter.Kinds) > 0 {
			kinds := make([]string, len(filter.Kinds))
			for j, k := range filter.Kinds {
				kinds[j] = string(k)
			}
			query += fmt.Sprintf(" AND kind = ANY($%d)", len(args)+1)
			args = append(args, kinds)
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

func (s *PostgresStore) CreateAnalysis(ctx context.Context, a *models.Analysis) error {
	row, err := toAnalysisRow(a)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	query := `
		INSERT INTO analysis (id, repository_id, kind, parameters, results, execution_time_ms, created_at)
		VALUES (:id, :repository_id, :kind, :parameters, :results, :execution_time_ms, :created_at)
	`
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("create analysis: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, repoID string, kind models.AnalysisKind) (*models.Analysis, error) {
	var row analysisRow
	query := `SELECT * FROM analysis WHERE repository_id = $1 AND kind = $2 ORDER BY created_at DESC LIMIT 1`
	if err := s.db.GetContext(ctx, &row, query, repoID, string(kind)); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	return row.toModel()
}
