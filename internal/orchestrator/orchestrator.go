package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/rohankatakam/codegraph/internal/filter"
	"github.com/rohankatakam/codegraph/internal/graph"
	"github.com/rohankatakam/codegraph/internal/langregistry"
	"github.com/rohankatakam/codegraph/internal/logging"
	"github.com/rohankatakam/codegraph/internal/metrics"
	"github.com/rohankatakam/codegraph/internal/models"
	"github.com/rohankatakam/codegraph/internal/parser"
	"github.com/rohankatakam/codegraph/internal/progress"
	"github.com/rohankatakam/codegraph/internal/storage"
)

// Orchestrator coordinates Clone → Filter → Parse → persist → Graph
// Builder for one repository, per SPEC_FULL §4.F.
type Orchestrator struct {
	Store       storage.Store
	Sink        graph.Sink
	Langs       *langregistry.Registry
	Parsers     *parser.Registry
	Broadcaster *progress.Broadcaster
	Checkpoints *CheckpointStore
	Logger      *logrus.Logger

	Workers         int
	StreamBatchSize int
	BulkBatchSize   int

	tasks  *registry
	flight singleflight.Group
}

// New returns an Orchestrator with default concurrency settings
// (20 workers, 25-row streaming batches, 50-row bulk batches — the
// defaults SPEC_FULL §4.F/§4.G name).
func New(store storage.Store, sink graph.Sink, langs *langregistry.Registry, parsers *parser.Registry, bc *progress.Broadcaster, cps *CheckpointStore, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		Store: store, Sink: sink, Langs: langs, Parsers: parsers,
		Broadcaster: bc, Checkpoints: cps, Logger: logger,
		Workers: 20, StreamBatchSize: 25, BulkBatchSize: 50,
		tasks: newRegistry(),
	}
}

// StartParse validates req, creates the Source row, and launches the
// streaming parse-and-store loop in the background, returning
// immediately with the new Source id. Concurrent StartParse calls
// carrying the same (RepositoryURL, LocalPath, BranchName) collapse
// onto one in-flight run via singleflight, so a duplicate webhook
// retry doesn't spawn a second clone.
func (o *Orchestrator) StartParse(ctx context.Context, req ParseRequest) (*models.Source, time.Duration, error) {
	if err := req.Validate(); err != nil {
		return nil, 0, err
	}

	dedupeKey := req.RepositoryURL + "|" + req.LocalPath + "|" + req.branch()

	src := newSourceFromRequest(req)
	src.ID = uuid.NewString()
	if err := o.Store.CreateSource(ctx, src); err != nil {
		return nil, 0, fmt.Errorf("create source: %w", err)
	}

	estimate := 30 * time.Second
	runCtx, cancel := context.WithCancel(context.Background())
	o.tasks.register(src.ID, cancel)

	metrics.RecordParseStarted()
	go func() {
		defer o.tasks.unregister(src.ID)
		defer cancel()
		_, _, _ = o.flight.Do(dedupeKey, func() (any, error) {
			o.run(runCtx, src, req)
			return nil, nil
		})
	}()

	return src, estimate, nil
}

// CancelParse marks the task under parsingID for cancellation and
// reports whether one was active.
func (o *Orchestrator) CancelParse(parsingID string) bool {
	return o.tasks.cancel(parsingID)
}

func (o *Orchestrator) run(ctx context.Context, src *models.Source, req ParseRequest) {
	start := time.Now()
	src.Status = models.ParsingStatusProcessing
	src.StartedAt = &start
	if err := o.Store.UpdateSource(ctx, src); err != nil {
		o.logError(src.ID, "update source to processing", err)
	}
	o.publish(ctx, progress.Event{SourceID: src.ID, Kind: progress.EventStart, Timestamp: time.Now(), Message: "parsing started"})

	repoPath, cleanup, err := o.resolvePath(ctx, req)
	if err != nil {
		o.fail(ctx, src, err.Error())
		return
	}
	if cleanup != nil {
		defer cleanup()
	}

	texts, stats, err := o.walkAndFilter(repoPath, req)
	if err != nil {
		o.fail(ctx, src, err.Error())
		return
	}
	src.FilesFound = stats.Included
	logging.Info("filter complete", append(logging.IngestFields(src.ID, "", "filter"),
		"total", stats.Total, "included", stats.Included)...)

	repo := &models.Repository{
		ID:       uuid.NewString(),
		SourceID: src.ID,
		Name:     req.Name,
		URL:      req.RepositoryURL,
		Branch:   req.branch(),
	}
	repo.Languages = detectLanguages(o.Langs, texts)
	if len(repo.Languages) > 0 {
		repo.PrimaryLanguage = repo.Languages[0]
	}
	repo.TotalFiles = len(texts)
	repo.CreatedAt = time.Now()
	if err := o.Store.CreateRepository(ctx, repo); err != nil {
		o.fail(ctx, src, fmt.Sprintf("create repository: %v", err))
		return
	}

	var resume *checkpoint
	if o.Checkpoints != nil {
		if cp, ok := o.Checkpoints.load(src.ID); ok {
			resume = cp
		}
	}

	builder := graph.NewBuilder(repo.ID)
	totals, recentErrors, parseDuration, err := o.streamParseAndStore(ctx, src, repo, texts, builder, resume)
	if err != nil {
		if err == errCancelled {
			o.cancelled(ctx, src)
			return
		}
		o.fail(ctx, src, err.Error())
		return
	}
	logging.Info("parse pass complete", append(logging.IngestFields(src.ID, repo.ID, "parse"),
		"files_parsed", totals.filesParsed, "files_failed", totals.filesFailed, "duration_ms", parseDuration.Milliseconds())...)

	if req.crossFileRefsEnabled() {
		if err := o.runCrossFilePass(ctx, builder, texts); err != nil {
			o.logError(src.ID, "cross-file graph pass", err)
			recentErrors = appendCapped(recentErrors, "cross-file pass: "+err.Error())
		} else {
			logging.Info("cross-file pass complete", logging.IngestFields(src.ID, repo.ID, "cross_file")...)
		}
	}

	repo.ParsedFiles = totals.filesParsed
	repo.ErrorFiles = totals.filesFailed
	repo.ParsingDuration = parseDuration
	if totals.filesParsed > 0 {
		repo.AvgFileParseMs = float64(parseDuration.Milliseconds()) / float64(totals.filesParsed)
	}
	if err := o.Store.UpdateRepository(ctx, repo); err != nil {
		o.logError(src.ID, "update repository aggregates", err)
	}

	completed := time.Now()
	src.Status = models.ParsingStatusCompleted
	src.CompletedAt = &completed
	src.FilesParsed = totals.filesParsed
	src.NodesCreated = totals.nodes
	src.RelationshipsCreated = totals.relationships
	if err := o.Store.UpdateSource(ctx, src); err != nil {
		o.logError(src.ID, "update source to completed", err)
	}
	if o.Checkpoints != nil {
		o.Checkpoints.clear(src.ID)
	}

	o.publish(ctx, progress.Event{
		SourceID: src.ID, Kind: progress.EventComplete, Timestamp: time.Now(),
		FilesParsed: totals.filesParsed, Nodes: totals.nodes, Relationships: totals.relationships,
		RecentErrors: recentErrors,
		Statistics: map[string]any{
			"streaming_storage": true,
			"duration_ms":       time.Since(start).Milliseconds(),
		},
	})
	if o.Broadcaster != nil {
		o.Broadcaster.Close(src.ID)
	}
	logging.Info("ingestion complete", append(logging.IngestFields(src.ID, repo.ID, "complete"),
		"nodes", totals.nodes, "relationships", totals.relationships, "duration_ms", time.Since(start).Milliseconds())...)
	metrics.RecordParseCompleted()
	metrics.RecordJobDuration(time.Since(start))
}

func (o *Orchestrator) resolvePath(ctx context.Context, req ParseRequest) (string, func(), error) {
	if req.LocalPath != "" {
		if _, err := os.Stat(req.LocalPath); err != nil {
			return "", nil, fmt.Errorf("local path does not exist: %w", err)
		}
		return req.LocalPath, nil, nil
	}
	if req.RepositoryURL == "" {
		return "", nil, fmt.Errorf("neither local_path nor repository_url set")
	}
	path, err := cloneRepository(ctx, req.RepositoryURL, req.branch())
	if err != nil {
		return "", nil, err
	}
	return path, func() { os.RemoveAll(path) }, nil
}

func (o *Orchestrator) walkAndFilter(repoPath string, req ParseRequest) (map[string]string, filter.Stats, error) {
	f := filter.New(afero.NewOsFs())
	if req.maxFileSizeBytes() > 0 {
		f.MaxFileSizeBytes = req.maxFileSizeBytes()
	}
	candidates, stats, err := f.Walk(repoPath)
	if err != nil {
		return nil, stats, fmt.Errorf("walk repository: %w", err)
	}

	texts := make(map[string]string, len(candidates))
	for _, c := range candidates {
		data, err := os.ReadFile(c.Path)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(repoPath, c.Path)
		if err != nil {
			rel = c.Path
		}
		texts[filepath.ToSlash(rel)] = decodeUTF8Lenient(data)
	}
	return texts, stats, nil
}

func decodeUTF8Lenient(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	var b strings.Builder
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		b.WriteRune(r)
		data = data[size:]
	}
	return b.String()
}

func detectLanguages(reg *langregistry.Registry, texts map[string]string) []string {
	seen := map[string]bool{}
	var out []string
	for path := range texts {
		d, ok := reg.DetectLanguage(path)
		if !ok || seen[d.Name] {
			continue
		}
		seen[d.Name] = true
		out = append(out, d.Name)
	}
	sort.Strings(out)
	return out
}

type runTotals struct {
	filesParsed   int
	filesFailed   int
	nodes         int
	relationships int
}

// streamParseAndStore is SPEC_FULL §4.F step 7: parse each file,
// immediately persist its nodes/relationships in batches, accumulate
// totals, and emit a progress event every 5 files. Up to o.Workers
// files are in flight at once via errgroup.SetLimit, the teacher's
// goroutine-per-worker channel pool generalized to errgroup's
// cancellation-aware idiom. If resume carries an xxhash for a path
// that still matches the file's current content, that file is counted
// as already done and neither re-parsed nor re-persisted. The checkpoint
// is looked up under src's own id, and every StartParse creates a new
// Source, so a later StartParse does not pick up an earlier run's
// checkpoint.
func (o *Orchestrator) streamParseAndStore(ctx context.Context, src *models.Source, repo *models.Repository, texts map[string]string, builder *graph.Builder, resume *checkpoint) (runTotals, []string, time.Duration, error) {
	paths := make([]string, 0, len(texts))
	for p := range texts {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var resumeHashes map[string]uint64
	if resume != nil {
		resumeHashes = resume.FileHashes
	}
	doneHashes := make(map[string]uint64, len(paths))

	var (
		mu           sync.Mutex
		totals       runTotals
		recentErrors []string
		filesSeen    int
	)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInt(1, o.Workers))

	for _, path := range paths {
		path := path
		text := texts[path]
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return errCancelled
			default:
			}

			hash := xxhash.Sum64String(text)
			if prev, ok := resumeHashes[path]; ok && prev == hash {
				mu.Lock()
				filesSeen++
				totals.filesParsed++
				doneHashes[path] = hash
				mu.Unlock()
				return nil
			}

			fileStart := time.Now()
			lang, _ := o.Langs.DetectLanguage(path)
			fp, err := o.Parsers.ParseFile(parser.ParseInput{FilePath: path, Language: lang.Name, Content: []byte(text), Cancel: gctx.Done()})
			metrics.RecordFileParseDuration(time.Since(fileStart))

			mu.Lock()
			defer mu.Unlock()
			filesSeen++
			if err != nil {
				totals.filesFailed++
				recentErrors = appendCapped(recentErrors, path+": "+err.Error())
				metrics.RecordFileFailed()
			} else {
				nodes, rels := builder.AbsorbFile(graph.FileParse{FilePath: path, Language: lang.Name, Nodes: fp.Nodes, References: fp.References, Imports: fp.Imports})
				if err := o.persistBatched(ctx, nodes, rels); err != nil {
					totals.filesFailed++
					recentErrors = appendCapped(recentErrors, path+": persist: "+err.Error())
					metrics.RecordFileFailed()
				} else {
					totals.filesParsed++
					totals.nodes += len(nodes)
					totals.relationships += len(rels)
					doneHashes[path] = hash
					metrics.RecordFileParsed()
					metrics.RecordNodesCreated(len(nodes))
					metrics.RecordRelationshipsCreated(len(rels))
				}
			}

			if filesSeen%5 == 0 {
				o.publish(ctx, progress.Event{
					SourceID: src.ID, Kind: progress.EventUpdate, Timestamp: time.Now(),
					FilesFound: src.FilesFound, FilesParsed: totals.filesParsed, CurrentFile: path,
					Nodes: totals.nodes, Relationships: totals.relationships,
					RecentErrors: lastN(recentErrors, 10),
				})
			}
			if o.Checkpoints != nil {
				o.Checkpoints.save(&checkpoint{
					SourceID: src.ID, Nodes: totals.nodes, Relationships: totals.relationships,
					FileHashes: cloneHashes(doneHashes),
				})
			}
			return nil
		})
	}

	err := g.Wait()
	o.publish(ctx, progress.Event{
		SourceID: src.ID, Kind: progress.EventUpdate, Timestamp: time.Now(),
		FilesFound: src.FilesFound, FilesParsed: totals.filesParsed,
		Nodes: totals.nodes, Relationships: totals.relationships, RecentErrors: lastN(recentErrors, 10),
	})
	return totals, lastN(recentErrors, 10), time.Since(start), err
}

// persistBatched writes nodes then relationships in chunks of
// o.StreamBatchSize, matching §4.F's "batches of <=25" rule. A failed
// batch is reported to the caller; the caller records the error and
// continues with the next file rather than aborting the whole job.
func (o *Orchestrator) persistBatched(ctx context.Context, nodes []models.Node, rels []models.Relationship) error {
	size := o.StreamBatchSize
	if size <= 0 {
		size = 25
	}
	for start := 0; start < len(nodes); start += size {
		end := minInt(start+size, len(nodes))
		if err := o.Sink.CreateNodes(ctx, nodes[start:end]); err != nil {
			return err
		}
	}
	for start := 0; start < len(rels); start += size {
		end := minInt(start+size, len(rels))
		if err := o.Sink.CreateRelationships(ctx, rels[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// runCrossFilePass runs Graph Builder passes 2 (cross-file) and
// persists their edges in bulk batches, per §4.F step 7.
func (o *Orchestrator) runCrossFilePass(ctx context.Context, builder *graph.Builder, texts map[string]string) error {
	rels := builder.CrossFileRelationships(ctx, texts)
	size := maxInt(1, o.BulkBatchSize)
	for start := 0; start < len(rels); start += size {
		end := minInt(start+size, len(rels))
		if err := o.Sink.CreateRelationships(ctx, rels[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, src *models.Source, message string) {
	completed := time.Now()
	src.Status = models.ParsingStatusFailed
	src.CompletedAt = &completed
	src.Error = message
	o.Store.UpdateSource(ctx, src)
	o.publish(ctx, progress.Event{SourceID: src.ID, Kind: progress.EventError, Timestamp: time.Now(), Message: message})
	if o.Broadcaster != nil {
		o.Broadcaster.Close(src.ID)
	}
	metrics.RecordParseFailed()
}

func (o *Orchestrator) cancelled(ctx context.Context, src *models.Source) {
	completed := time.Now()
	src.Status = models.ParsingStatusFailed
	src.CompletedAt = &completed
	src.Error = errCancelled.Error()
	o.Store.UpdateSource(ctx, src)
	o.publish(ctx, progress.Event{SourceID: src.ID, Kind: progress.EventCancel, Timestamp: time.Now(), Message: errCancelled.Error()})
	if o.Broadcaster != nil {
		o.Broadcaster.Close(src.ID)
	}
	metrics.RecordParseCancelled()
}

func (o *Orchestrator) publish(ctx context.Context, ev progress.Event) {
	if o.Broadcaster != nil {
		o.Broadcaster.Publish(ctx, ev)
	}
}

func (o *Orchestrator) logError(sourceID, op string, err error) {
	if o.Logger != nil {
		o.Logger.WithError(err).WithField("source_id", sourceID).Warn(op)
	}
}

func appendCapped(errs []string, msg string) []string {
	errs = append(errs, msg)
	return lastN(errs, 10)
}

func lastN(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func cloneHashes(m map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
