// Package orchestrator implements the Ingestion Orchestrator (§4.F):
// it resolves a repository path (cloning if remote), walks it through
// the File Filter and Language Registry, drives the File Parser and
// Graph Builder, streams results into a storage sink in batches, emits
// progress events, and answers cancellation.
package orchestrator

import (
	"github.com/go-playground/validator/v10"

	"github.com/rohankatakam/codegraph/internal/models"
)

var validate = validator.New()

// ParseRequest is the Orchestrator's validated entry point, matching
// SPEC_FULL §6's start-parse shape.
type ParseRequest struct {
	Name                string   `validate:"required"`
	RepositoryURL       string
	LocalPath           string
	BranchName          string `validate:"omitempty"`
	ArchonSourceID      string
	ArchonProjectID     string
	Languages           []string
	MaxFileSizeKB       int
	ParseTimeoutSeconds int
	EnableCrossFileRefs *bool
}

// Validate checks the request's own field constraints and the
// Source-identity invariant from SPEC_FULL §3: at least one of
// {ArchonSourceID, ArchonProjectID, LocalPath, RepositoryURL} must be
// set. A remote URL alone does not satisfy the Source entity's own
// identity invariant — StartParse substitutes it into LocalPath in
// that case — but it is enough to accept the request.
func (r ParseRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if r.ArchonSourceID == "" && r.ArchonProjectID == "" && r.LocalPath == "" && r.RepositoryURL == "" {
		return errRequiredIdentity
	}
	return nil
}

func (r ParseRequest) branch() string {
	if r.BranchName != "" {
		return r.BranchName
	}
	return "main"
}

func (r ParseRequest) maxFileSizeBytes() int64 {
	if r.MaxFileSizeKB > 0 {
		return int64(r.MaxFileSizeKB) * 1024
	}
	return 500 * 1024
}

func (r ParseRequest) parseTimeoutSeconds() int {
	if r.ParseTimeoutSeconds > 0 {
		return r.ParseTimeoutSeconds
	}
	return 30
}

func (r ParseRequest) crossFileRefsEnabled() bool {
	if r.EnableCrossFileRefs == nil {
		return true
	}
	return *r.EnableCrossFileRefs
}

// newSourceFromRequest builds the Source row StartParse will persist,
// applying the §3 identity substitution: if none of
// ExternalSourceID/ExternalProjectID/LocalPath end up set, the
// RepositoryURL that made the request valid is copied into LocalPath
// so the stored row satisfies its own identity invariant. The caller
// still owns assigning ID and Status.
func newSourceFromRequest(r ParseRequest) *models.Source {
	src := &models.Source{
		Kind:      sourceKindFor(r),
		Name:      r.Name,
		RemoteURL: r.RepositoryURL,
		Branch:    r.branch(),
		LocalPath: r.LocalPath,
		Status:    models.ParsingStatusPending,
	}
	if r.ArchonSourceID != "" {
		src.ExternalSourceID = &r.ArchonSourceID
	}
	if r.ArchonProjectID != "" {
		src.ExternalProjectID = &r.ArchonProjectID
	}
	if src.ExternalSourceID == nil && src.ExternalProjectID == nil && src.LocalPath == "" {
		src.LocalPath = r.RepositoryURL
	}
	return src
}

// sourceKindFor guesses the Source kind from which identity fields the
// request carries; ArchonProjectID implies a tracked project repo,
// ArchonSourceID a previously-crawled source, otherwise an ad hoc
// upload/local path.
func sourceKindFor(r ParseRequest) models.SourceKind {
	switch {
	case r.ArchonProjectID != "":
		return models.SourceKindProjectRepo
	case r.ArchonSourceID != "":
		return models.SourceKindCrawled
	default:
		return models.SourceKindUploaded
	}
}
