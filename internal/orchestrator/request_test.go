package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rohankatakam/codegraph/internal/models"
)

func TestParseRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     ParseRequest
		wantErr bool
	}{
		{"name missing", ParseRequest{LocalPath: "/tmp/repo"}, true},
		{"no identity fields", ParseRequest{Name: "x"}, true},
		{"local path satisfies identity", ParseRequest{Name: "x", LocalPath: "/tmp/repo"}, false},
		{"archon source id satisfies identity", ParseRequest{Name: "x", ArchonSourceID: "src-1"}, false},
		{"archon project id satisfies identity", ParseRequest{Name: "x", ArchonProjectID: "proj-1"}, false},
		{"repository url alone is enough to accept the request", ParseRequest{Name: "x", RepositoryURL: "https://github.com/org/repo"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseRequest_BranchDefault(t *testing.T) {
	assert.Equal(t, "main", ParseRequest{}.branch())
	assert.Equal(t, "develop", ParseRequest{BranchName: "develop"}.branch())
}

func TestParseRequest_MaxFileSizeBytesDefault(t *testing.T) {
	assert.Equal(t, int64(500*1024), ParseRequest{}.maxFileSizeBytes())
	assert.Equal(t, int64(10*1024), ParseRequest{MaxFileSizeKB: 10}.maxFileSizeBytes())
}

func TestParseRequest_CrossFileRefsEnabledDefaultsTrue(t *testing.T) {
	assert.True(t, ParseRequest{}.crossFileRefsEnabled())
	disabled := false
	assert.False(t, ParseRequest{EnableCrossFileRefs: &disabled}.crossFileRefsEnabled())
}

func TestSourceKindFor(t *testing.T) {
	assert.Equal(t, models.SourceKindProjectRepo, sourceKindFor(ParseRequest{ArchonProjectID: "p"}))
	assert.Equal(t, models.SourceKindCrawled, sourceKindFor(ParseRequest{ArchonSourceID: "s"}))
	assert.Equal(t, models.SourceKindUploaded, sourceKindFor(ParseRequest{LocalPath: "/tmp/x"}))
}
