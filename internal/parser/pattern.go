package parser

import (
	"strings"

	"github.com/rohankatakam/codegraph/internal/graph"
	"github.com/rohankatakam/codegraph/internal/models"
)

// PatternParser extracts entities with regexes and brace/indent-balancing
// instead of a real grammar. It is the parser used for every language the
// Language Registry knows about; TreeSitterGoParser supersedes it only for
// Go, when enabled.
type PatternParser struct {
	maxExcerptLines int
}

// NewPatternParser returns a PatternParser that caps SourceExcerpt at
// maxExcerptLines lines (0 means no cap).
func NewPatternParser(maxExcerptLines int) *PatternParser {
	return &PatternParser{maxExcerptLines: maxExcerptLines}
}

func (p *PatternParser) Name() string { return "pattern" }

// Ceilings and cadences from §4.C: body-scan line caps per construct kind,
// File-node excerpt char caps, and how often a scan polls its cancellation
// probe.
const (
	classLineCeiling      = 100
	funcLineCeiling       = 50
	fileExcerptChars      = 2000
	fileExcerptCharsBasic = 1000
	cancelCheckLines      = 100
	cancelCheckImports    = 10
)

// scanState accumulates nodes/references/imports as ParseFile walks lines.
type scanState struct {
	lines      []string
	language   string
	filePath   string
	rules      languageRules
	nodes      []models.Node
	references []RefDraft
	imports    []ImportDraft
	cancel     <-chan struct{}
}

// cancelled reports whether st's cancellation probe has fired. A nil
// probe never cancels.
func cancelled(st *scanState) bool {
	if st.cancel == nil {
		return false
	}
	select {
	case <-st.cancel:
		return true
	default:
		return false
	}
}

// RefDraft/ImportDraft mirror graph.RawReference/RawImport but index by
// node name instead of slice position, since node order isn't known until
// the whole file has been scanned.
type RefDraft struct {
	FromName   string
	TargetName string
	Kind       models.RelationKind
	Confidence float64
}

type ImportDraft struct {
	FromName      string
	ImportPath    string
	ImportedNames []string
}

func (p *PatternParser) ParseFile(input ParseInput) (*graph.FileParse, error) {
	rules, known := rulesFor(input.Language)
	lines := strings.Split(string(input.Content), "\n")

	st := &scanState{lines: lines, language: input.Language, filePath: input.FilePath, rules: rules, cancel: input.Cancel}
	fileNode := models.Node{
		Kind:     models.NodeKindFile,
		Name:     baseName(input.FilePath),
		FilePath: input.FilePath,
		Language: input.Language,
		Span:     models.Span{LineStart: 1, LineEnd: len(lines)},
		IsPublic: true,
	}
	fileNode.SourceExcerpt = fileExcerpt(string(input.Content), known && rules.strategy == strategyBasic)
	st.nodes = append(st.nodes, fileNode)

	if !known {
		return p.finish(st), nil
	}
	if rules.strategy == strategyBasic {
		p.scanBasicVariables(st)
		return p.finish(st), nil
	}

	switch rules.strategy {
	case strategyOO:
		p.scanOO(st)
	case strategyProcedural:
		p.scanProcedural(st)
	}
	if !cancelled(st) {
		p.scanImports(st)
	}

	return p.finish(st), nil
}

// fileExcerpt returns the first N characters of a file's text for the
// File Node's SourceExcerpt, 1,000 for basic (config) files and 2,000
// otherwise (§4.C).
func fileExcerpt(content string, basic bool) string {
	limit := fileExcerptChars
	if basic {
		limit = fileExcerptCharsBasic
	}
	if len(content) <= limit {
		return content
	}
	return content[:limit] + "\n... (truncated)"
}

// scanBasicVariables emits a variable Node per top-level key (YAML/JSON/
// TOML) or INI section header, for the structured-config basic languages.
// Everything else that falls into strategyBasic (markdown, shell, sql,
// plaintext, dockerfile) gets only the File Node.
func (p *PatternParser) scanBasicVariables(st *scanState) {
	if !structuredConfigLanguages[st.language] {
		return
	}
	for i, line := range st.lines {
		if i%cancelCheckLines == 0 && cancelled(st) {
			return
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || indentOf(line) > 0 {
			continue
		}
		if st.language == "ini" {
			if m := iniSectionRe.FindStringSubmatch(trimmed); m != nil {
				st.nodes = append(st.nodes, models.Node{
					Kind: models.NodeKindVariable, Name: m[1], FilePath: st.filePath,
					Language: st.language, Span: models.Span{LineStart: i + 1, LineEnd: i + 1},
					Complexity: intPtr(1), IsPublic: true,
				})
			}
			continue
		}
		if m := topLevelKeyRe.FindStringSubmatch(trimmed); m != nil {
			st.nodes = append(st.nodes, models.Node{
				Kind: models.NodeKindVariable, Name: m[1], FilePath: st.filePath,
				Language: st.language, Span: models.Span{LineStart: i + 1, LineEnd: i + 1},
				Complexity: intPtr(1), IsPublic: true,
			})
		}
	}
}

func (p *PatternParser) finish(st *scanState) *graph.FileParse {
	nameToIdx := make(map[string]int, len(st.nodes))
	for i, n := range st.nodes {
		nameToIdx[n.Name] = i
	}

	fp := &graph.FileParse{FilePath: st.filePath, Language: st.language, Nodes: st.nodes}
	for _, ref := range st.references {
		fromIdx, ok := nameToIdx[ref.FromName]
		if !ok {
			continue
		}
		fp.References = append(fp.References, graph.RawReference{
			FromNodeIndex: fromIdx,
			TargetName:    ref.TargetName,
			Kind:          ref.Kind,
			Confidence:    ref.Confidence,
		})
	}
	for _, imp := range st.imports {
		fromIdx, ok := nameToIdx[imp.FromName]
		if !ok {
			fromIdx = 0 // attribute unmatched imports to the File node
		}
		fp.Imports = append(fp.Imports, graph.RawImport{
			FromNodeIndex: fromIdx,
			ImportPath:    imp.ImportPath,
			ImportedNames: imp.ImportedNames,
		})
	}
	return fp
}

// scanOO handles class-bearing languages: classes, their methods, and
// any free functions declared outside a class body.
func (p *PatternParser) scanOO(st *scanState) {
	lines := st.lines
	inClassUntil := -1
	var currentClass string

	for i := 0; i < len(lines); i++ {
		if i%cancelCheckLines == 0 && cancelled(st) {
			return
		}
		if i <= inClassUntil {
			continue
		}
		line := lines[i]

		if st.rules.interfaceRe != nil {
			if m := st.rules.interfaceRe.FindStringSubmatch(line); m != nil {
				end := p.bodyEnd(st, i)
				p.addType(st, models.NodeKindInterface, m[1], i, end, line)
				continue
			}
		}
		if st.rules.enumRe != nil {
			if m := st.rules.enumRe.FindStringSubmatch(line); m != nil {
				end := p.bodyEnd(st, i)
				p.addType(st, models.NodeKindEnum, m[1], i, end, line)
				continue
			}
		}
		if m := st.rules.classRe.FindStringSubmatch(line); m != nil {
			end := p.bodyEnd(st, i)
			p.addType(st, models.NodeKindClass, m[1], i, end, line)
			if len(m) > 2 && m[2] != "" {
				for _, base := range strings.Split(m[2], ",") {
					base = strings.TrimSpace(base)
					if base == "" {
						continue
					}
					st.references = append(st.references, RefDraft{
						FromName: m[1], TargetName: base,
						Kind: models.RelationInherits, Confidence: models.ConfidencePatternInherits,
					})
				}
			}
			currentClass = m[1]
			inClassUntil = end
			p.scanMethods(st, i+1, end, currentClass)
			continue
		}
		if st.rules.funcRe != nil {
			if m := st.rules.funcRe.FindStringSubmatch(line); m != nil {
				end := p.bodyEnd(st, i)
				p.addFunc(st, models.NodeKindFunction, m[1], i, end, line)
			}
		}
	}
}

// scanProcedural handles non-OO languages: struct/interface/enum type
// declarations plus top-level and receiver-bound functions.
func (p *PatternParser) scanProcedural(st *scanState) {
	lines := st.lines
	for i := 0; i < len(lines); i++ {
		if i%cancelCheckLines == 0 && cancelled(st) {
			return
		}
		line := lines[i]

		if st.rules.interfaceRe != nil {
			if m := st.rules.interfaceRe.FindStringSubmatch(line); m != nil {
				end := p.bodyEnd(st, i)
				p.addType(st, models.NodeKindInterface, m[1], i, end, line)
				continue
			}
		}
		if st.rules.enumRe != nil {
			if m := st.rules.enumRe.FindStringSubmatch(line); m != nil {
				end := p.bodyEnd(st, i)
				p.addType(st, models.NodeKindEnum, m[1], i, end, line)
				continue
			}
		}
		if st.rules.classRe != nil {
			if m := st.rules.classRe.FindStringSubmatch(line); m != nil {
				end := p.bodyEnd(st, i)
				p.addType(st, models.NodeKindClass, m[1], i, end, line)
				continue
			}
		}
		if st.rules.methodRe != nil {
			if m := st.rules.methodRe.FindStringSubmatch(line); m != nil && len(m) >= 3 {
				end := p.bodyEnd(st, i)
				p.addFunc(st, models.NodeKindMethod, m[2], i, end, line)
				st.references = append(st.references, RefDraft{
					FromName: m[2], TargetName: m[1],
					Kind: models.RelationDefines, Confidence: models.ConfidenceIntraFileUses,
				})
				continue
			}
		}
		if st.rules.funcRe != nil {
			if m := st.rules.funcRe.FindStringSubmatch(line); m != nil {
				end := p.bodyEnd(st, i)
				p.addFunc(st, models.NodeKindFunction, m[1], i, end, line)
			}
		}
	}
}

// scanMethods scans [start,end] for this class's methods, attributing
// call references to each method rather than the class.
func (p *PatternParser) scanMethods(st *scanState, start, end, className string) {
	if st.rules.methodRe == nil {
		return
	}
	for i := start; i <= end && i < len(st.lines); i++ {
		if m := st.rules.methodRe.FindStringSubmatch(st.lines[i]); m != nil {
			mEnd := p.bodyEnd(st, i)
			p.addFunc(st, models.NodeKindMethod, m[1], i, mEnd, st.lines[i])
			st.references = append(st.references, RefDraft{
				FromName: m[1], TargetName: className,
				Kind: models.RelationDefines, Confidence: models.ConfidenceIntraFileUses,
			})
			if mEnd > i {
				i = mEnd
			}
		}
	}
}

func (p *PatternParser) bodyEnd(st *scanState, declLine int) int {
	if st.rules.braceBody {
		return findBraceBody(st.lines, declLine)
	}
	return findIndentBody(st.lines, declLine, indentOf(st.lines[declLine]))
}

// bodyCeilingFor returns the §4.C hard line ceiling for a construct kind:
// 100 for class-like bodies, 50 for everything else (functions, methods).
func bodyCeilingFor(kind models.NodeKind) int {
	switch kind {
	case models.NodeKindClass, models.NodeKindInterface, models.NodeKindEnum:
		return classLineCeiling
	default:
		return funcLineCeiling
	}
}

// clampBody slices [start,end] from lines and enforces ceiling, the hard
// cap on how many real source lines a construct's body scan may cover
// (§4.C). It returns the body (with a truncation marker appended if the
// raw range ran over) and the number of real lines actually covered, so
// the caller can shrink Span.LineEnd to match what was scanned rather
// than what the open body nominally extends to.
func clampBody(lines []string, start, end, ceiling int) ([]string, int) {
	body := sliceClamp(lines, start, end)
	if len(body) <= ceiling {
		return body, len(body)
	}
	clamped := make([]string, 0, ceiling+1)
	clamped = append(clamped, body[:ceiling]...)
	clamped = append(clamped, "... (truncated)")
	return clamped, ceiling
}

func (p *PatternParser) addType(st *scanState, kind models.NodeKind, name string, start, end int, declLine string) {
	body, used := clampBody(st.lines, start, end, bodyCeilingFor(kind))
	node := models.Node{
		Kind:       kind,
		Name:       name,
		FilePath:   st.filePath,
		Language:   st.language,
		Span:       models.Span{LineStart: start + 1, LineEnd: start + used},
		Complexity: intPtr(cyclomaticComplexity(st.language, body)),
		IsPublic:   isPublicName(st.language, name),
		IsExported: isExportedDeclaration(st.language, declLine, name),
	}
	node.SourceExcerpt = p.excerpt(body)
	node.Docstring = extractDocstring(body)
	st.nodes = append(st.nodes, node)
	p.scanCalls(st, name, body)
}

func (p *PatternParser) addFunc(st *scanState, kind models.NodeKind, name string, start, end int, declLine string) {
	body, used := clampBody(st.lines, start, end, bodyCeilingFor(kind))
	node := models.Node{
		Kind:       kind,
		Name:       name,
		FilePath:   st.filePath,
		Language:   st.language,
		Span:       models.Span{LineStart: start + 1, LineEnd: start + used},
		Complexity: intPtr(cyclomaticComplexity(st.language, body)),
		IsPublic:   isPublicName(st.language, name),
		IsExported: isExportedDeclaration(st.language, declLine, name),
	}
	node.SourceExcerpt = p.excerpt(body)
	node.Docstring = extractDocstring(body)
	st.nodes = append(st.nodes, node)
	p.scanCalls(st, name, body)
}

// scanCalls records a "calls" reference for every call-like token in body,
// skipping language keywords and the function's own name (recursion is a
// legitimate call but rarely interesting to surface as a graph edge here).
func (p *PatternParser) scanCalls(st *scanState, fromName string, body []string) {
	if st.rules.callRe == nil {
		return
	}
	seen := make(map[string]bool)
	for _, line := range body {
		for _, m := range st.rules.callRe.FindAllStringSubmatch(line, -1) {
			name := m[1]
			if name == fromName || keywords[name] || seen[name] {
				continue
			}
			seen[name] = true
			st.references = append(st.references, RefDraft{
				FromName: fromName, TargetName: name,
				Kind: models.RelationCalls, Confidence: models.ConfidenceIntraFileCalls,
			})
		}
	}
}

// scanImports emits an Import Node per import line plus the file-level
// "imports" edge that anchors it to the File Node at confidence 1.0
// (§4.C: "every import line gets an import Node and a file-level imports
// edge"). The cross-file pass later resolves each Import Node's own
// RawImport entry into the 0.7-confidence edge pointing at the imported
// file, once all files are known.
func (p *PatternParser) scanImports(st *scanState) {
	if st.rules.importRe == nil {
		return
	}
	fileName := st.nodes[0].Name
	seen := 0
	for i, line := range st.lines {
		m := st.rules.importRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		path := firstNonEmpty(m[1:])
		if path == "" {
			continue
		}
		st.nodes = append(st.nodes, models.Node{
			Kind:     models.NodeKindImport,
			Name:     path,
			FilePath: st.filePath,
			Language: st.language,
			Span:     models.Span{LineStart: i + 1, LineEnd: i + 1},
			IsPublic: true,
		})
		st.references = append(st.references, RefDraft{
			FromName: fileName, TargetName: path,
			Kind: models.RelationImports, Confidence: models.ConfidenceFileImport,
		})
		st.imports = append(st.imports, ImportDraft{FromName: path, ImportPath: path})
		seen++
		if seen%cancelCheckImports == 0 && cancelled(st) {
			return
		}
	}
}

func (p *PatternParser) excerpt(body []string) string {
	if p.maxExcerptLines <= 0 || len(body) <= p.maxExcerptLines {
		return strings.Join(body, "\n")
	}
	return strings.Join(body[:p.maxExcerptLines], "\n") + "\n... (truncated)"
}

// tripleQuotes are the Python docstring delimiters this pattern parser
// recognizes; other languages simply never match and get no docstring.
var tripleQuotes = []string{`"""`, `'''`}

// extractDocstring captures a triple-quoted docstring (Python convention)
// when it is the first non-blank line inside a construct's body (§4.C
// step 4). body[0] is the declaration line itself, so the search starts
// at body[1].
func extractDocstring(body []string) string {
	for i := 1; i < len(body); i++ {
		trimmed := strings.TrimSpace(body[i])
		if trimmed == "" {
			continue
		}
		for _, quote := range tripleQuotes {
			if strings.HasPrefix(trimmed, quote) {
				return captureTripleQuoted(body, i, quote)
			}
		}
		return ""
	}
	return ""
}

// captureTripleQuoted reads a triple-quoted string starting at body[start],
// which opens with quote, returning its contents with the delimiters
// stripped. Handles both the single-line ("""text""") and multi-line form.
func captureTripleQuoted(body []string, start int, quote string) string {
	first := strings.TrimSpace(body[start])
	rest := strings.TrimPrefix(first, quote)
	if closeIdx := strings.Index(rest, quote); closeIdx != -1 {
		return strings.TrimSpace(rest[:closeIdx])
	}
	doc := []string{rest}
	for i := start + 1; i < len(body); i++ {
		if closeIdx := strings.Index(body[i], quote); closeIdx != -1 {
			doc = append(doc, body[i][:closeIdx])
			break
		}
		doc = append(doc, body[i])
	}
	return strings.TrimSpace(strings.Join(doc, "\n"))
}

func sliceClamp(lines []string, start, end int) []string {
	if start < 0 {
		start = 0
	}
	if end >= len(lines) {
		end = len(lines) - 1
	}
	if end < start {
		return nil
	}
	return lines[start : end+1]
}

func intPtr(v int) *int { return &v }

func baseName(filePath string) string {
	idx := strings.LastIndexAny(filePath, "/\\")
	if idx == -1 {
		return filePath
	}
	return filePath[idx+1:]
}

func firstNonEmpty(vals []string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

var keywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"return": true, "func": true, "function": true, "def": true, "class": true,
	"new": true, "delete": true, "typeof": true, "instanceof": true, "in": true,
	"print": true, "println": true,
}

// LineCount reports a file's line count from its raw content.
func LineCount(content []byte) int {
	return strings.Count(string(content), "\n") + 1
}
