package filter

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Candidate is one accepted file discovered by Walk.
type Candidate struct {
	Path  string
	Size  int64
	Tier  Tier
}

// Walk walks root on fs, applying the directory-segment prune and the
// full ShouldParse policy, and returns every accepted file plus the
// walk-wide Stats. This is the afero-backed generalization of the
// teacher's filepath.WalkDir-based WalkSourceFiles: the same code runs
// against afero.NewOsFs() in production and afero.NewMemMapFs() in
// tests.
func (f *Filter) Walk(root string) ([]Candidate, Stats, error) {
	var candidates []Candidate
	stats := Stats{}

	err := afero.Walk(f.Fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != root && ShouldSkipDir(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		stats.Total++
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		d, tier := f.decide(filepath.ToSlash(rel), info.Size())
		switch d {
		case decisionInclude:
			stats.Included++
			candidates = append(candidates, Candidate{Path: path, Size: info.Size(), Tier: tier})
		case decisionExtension:
			stats.ExcludedExtension++
		case decisionFilename:
			stats.ExcludedFilename++
		case decisionDir:
			stats.ExcludedDir++
		case decisionSize:
			stats.ExcludedSize++
		case decisionTestTier:
			stats.ExcludedTestTier++
		}
		return nil
	})
	if err != nil {
		return nil, stats, err
	}
	return candidates, stats, nil
}
