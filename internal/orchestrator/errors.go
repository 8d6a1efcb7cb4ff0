package orchestrator

import kgerrors "github.com/rohankatakam/codegraph/internal/errors"

var errRequiredIdentity = kgerrors.InputError("at least one of archon_source_id, archon_project_id, local_path, or repository_url must be set")

// errCancelled is the distinguished cancellation error SPEC_FULL §4.F
// and §5 require the Source to record when a task is cooperatively
// cancelled mid-parse.
var errCancelled = kgerrors.CancelledError("Parsing was cancelled by user")
