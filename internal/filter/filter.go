// Package filter is the File Filter: it decides per path whether a file
// is eligible for parsing, via a layered deny/allow policy (excluded
// extensions, excluded filename globs, excluded directory segments, a
// size ceiling), and assigns a priority tier to every accepted path.
// The tier rules and the rejection of test-like paths apply the same way
// to every language; no language is exempt from them.
package filter

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

// Tier is a priority tier assigned to an accepted file.
type Tier int

const (
	TierHigh Tier = iota
	TierMedium
	TierLow
)

// DefaultMaxFileSizeBytes is the default size ceiling (500 KB).
const DefaultMaxFileSizeBytes = 500 * 1024

var excludedExtensions = map[string]bool{
	".yaml": true, ".yml": true, ".json": true, ".toml": true, ".ini": true,
	".md": true, ".rst": true, ".txt": true,
	".lock": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true, ".ico": true, ".svg": true,
	".zip": true, ".tar": true, ".gz": true, ".rar": true, ".7z": true,
	".exe": true, ".dll": true, ".so": true, ".dylib": true, ".bin": true,
	".swp": true, ".ds_store": true,
	".log": true,
	".db": true, ".sqlite": true, ".sqlite3": true,
	".pem": true, ".key": true, ".crt": true, ".cer": true,
	".env": true,
}

var excludedFilenameGlobs = []string{
	"*.lock",
	"Makefile", "Dockerfile*",
	"tsconfig*.json",
	"*.yml", "*.yaml",
	"LICENSE*", "README*", "CHANGELOG*",
	"*.min.*", "*.bundle.*",
	"*_pb2.py",
	".env*",
}

var excludedDirSegments = map[string]bool{
	"node_modules": true, "__pycache__": true, "venv": true, ".venv": true, "vendor": true,
	"build": true, "dist": true, "out": true, "target": true,
	".git": true, ".hg": true, ".svn": true,
	".idea": true, ".vscode": true,
	".cache": true, "tmp": true, ".tmp": true,
	"docs": true, "_site": true,
	"test_data": true, "generated": true,
}

var testLikeGlobs = []string{
	"*test*", "*tests*", "conftest.py", "*_test.py", "*examples*", "*demo*",
}

var priorityDirSegments = map[string]bool{
	"src": true, "lib": true, "app": true, "core": true, "main": true,
}

// Filter decides path eligibility. It reads sizes through an afero.Fs so
// production code and tests share the same walking and filtering logic
// (afero.NewOsFs() in production, afero.NewMemMapFs() in tests).
type Filter struct {
	Fs               afero.Fs
	MaxFileSizeBytes int64
}

// New returns a Filter backed by fs, with the default size ceiling.
func New(fs afero.Fs) *Filter {
	return &Filter{Fs: fs, MaxFileSizeBytes: DefaultMaxFileSizeBytes}
}

// Stats summarizes one walk's filtering decisions.
type Stats struct {
	Total             int
	Included          int
	ExcludedExtension int
	ExcludedFilename  int
	ExcludedDir       int
	ExcludedSize      int
	ExcludedTestTier  int
}

// InclusionRate returns Included/Total, or 0 when Total is 0.
func (s Stats) InclusionRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Included) / float64(s.Total)
}

// ShouldSkipDir reports whether a directory named name should be pruned
// entirely from the walk.
func ShouldSkipDir(name string) bool {
	return excludedDirSegments[strings.ToLower(name)]
}

// decision is the layered outcome of ShouldParse, used internally so
// FilterWalk can build Stats without re-running the policy.
type decision int

const (
	decisionInclude decision = iota
	decisionExtension
	decisionFilename
	decisionDir
	decisionSize
	decisionTestTier
)

// ShouldParse applies the full deny/allow policy to path, given its size
// in bytes. It does not itself consult the filesystem.
func (f *Filter) ShouldParse(path string, sizeBytes int64) bool {
	d, _ := f.decide(path, sizeBytes)
	return d == decisionInclude
}

func (f *Filter) decide(path string, sizeBytes int64) (decision, Tier) {
	base := baseName(path)
	lowerBase := strings.ToLower(base)

	for _, seg := range strings.Split(path, "/") {
		if ShouldSkipDir(seg) {
			return decisionDir, TierLow
		}
	}

	ext := extensionOf(lowerBase)
	if excludedExtensions[ext] {
		return decisionExtension, TierLow
	}

	for _, pat := range excludedFilenameGlobs {
		if ok, _ := doublestar.Match(strings.ToLower(pat), lowerBase); ok {
			return decisionFilename, TierLow
		}
	}

	maxSize := f.MaxFileSizeBytes
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSizeBytes
	}
	if sizeBytes > maxSize {
		return decisionSize, TierLow
	}

	if isTestLike(path, lowerBase) {
		return decisionTestTier, TierLow
	}
	return decisionInclude, f.priorityTier(path, lowerBase)
}

// PriorityTier returns the priority tier ShouldParse would assign to an
// accepted path, without re-checking size or extension rules.
func (f *Filter) PriorityTier(path string) Tier {
	return f.priorityTier(path, strings.ToLower(baseName(path)))
}

func (f *Filter) priorityTier(path, lowerBase string) Tier {
	if isTestLike(path, lowerBase) {
		return TierLow
	}
	segs := strings.Split(path, "/")
	for _, seg := range segs {
		if priorityDirSegments[strings.ToLower(seg)] {
			return TierHigh
		}
	}
	if strings.HasPrefix(lowerBase, "_") {
		return TierLow
	}
	// "Near the repo root": file.py or dir/file.py, not nested several
	// directories deep and not already caught by a priority segment above.
	if len(segs) <= 2 {
		return TierMedium
	}
	return TierLow
}

// isTestLike reports whether the filename or any path segment matches a
// test pattern.
func isTestLike(path, lowerBase string) bool {
	for _, pat := range testLikeGlobs {
		if ok, _ := doublestar.Match(pat, lowerBase); ok {
			return true
		}
	}
	for _, seg := range strings.Split(path, "/") {
		if testLikeGlobs0(seg) {
			return true
		}
	}
	return false
}

func testLikeGlobs0(seg string) bool {
	l := strings.ToLower(seg)
	return l == "test" || l == "tests" || l == "examples" || l == "demo"
}

func extensionOf(lowerBase string) string {
	if lowerBase == ".ds_store" {
		return ".ds_store"
	}
	idx := strings.LastIndexByte(lowerBase, '.')
	if idx < 0 {
		return ""
	}
	return lowerBase[idx:]
}

func baseName(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

// FilteringStatistics computes Stats given total candidate count and the
// number actually included, mirroring spec's filtering_statistics(total,
// included) shape plus the static rule-set sizes.
func FilteringStatistics(total, included int) Stats {
	return Stats{Total: total, Included: included}
}

// RuleSetSizes reports the size of each static rule table, for
// diagnostics/telemetry.
func RuleSetSizes() (extensions, filenameGlobs, dirSegments int) {
	return len(excludedExtensions), len(excludedFilenameGlobs), len(excludedDirSegments)
}
