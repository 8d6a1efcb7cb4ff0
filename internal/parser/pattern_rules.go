package parser

import "regexp"

// strategy names the extraction approach a language's syntax calls for.
type strategy int

const (
	strategyOO strategy = iota
	strategyProcedural
	strategyBasic
)

// languageRules bundles the regexes needed to extract entities from one
// language's source text. Rules are intentionally permissive: a pattern
// parser trades false positives for not needing a real grammar.
type languageRules struct {
	strategy   strategy
	braceBody  bool // true when bodies are delimited by {}, false for indentation (python)
	classRe    *regexp.Regexp
	funcRe     *regexp.Regexp
	methodRe   *regexp.Regexp
	importRe   *regexp.Regexp
	interfaceRe *regexp.Regexp
	enumRe     *regexp.Regexp
	callRe     *regexp.Regexp
}

var ruleTable = map[string]languageRules{
	"python": {
		strategy:  strategyOO,
		braceBody: false,
		classRe:   regexp.MustCompile(`^\s*class\s+(\w+)\s*(?:\(([^)]*)\))?\s*:`),
		funcRe:    regexp.MustCompile(`^\s*def\s+(\w+)\s*\(([^)]*)\)`),
		methodRe:  regexp.MustCompile(`^\s+def\s+(\w+)\s*\(([^)]*)\)`),
		importRe:  regexp.MustCompile(`^\s*(?:from\s+(\S+)\s+import\s+(.+)|import\s+(\S+))`),
		callRe:    regexp.MustCompile(`\b([A-Za-z_]\w*)\s*\(`),
	},
	"go": {
		strategy:    strategyProcedural,
		braceBody:   true,
		classRe:     regexp.MustCompile(`^\s*type\s+(\w+)\s+struct\b`),
		interfaceRe: regexp.MustCompile(`^\s*type\s+(\w+)\s+interface\b`),
		funcRe:      regexp.MustCompile(`^\s*func\s+(\w+)\s*\(`),
		methodRe:    regexp.MustCompile(`^\s*func\s*\(\s*\w+\s+\*?(\w+)\s*\)\s*(\w+)\s*\(`),
		importRe:    regexp.MustCompile(`^\s*(?:import\s+)?"([^"]+)"`),
		callRe:      regexp.MustCompile(`\b([A-Za-z_]\w*)\s*\(`),
	},
	"javascript": {
		strategy:  strategyOO,
		braceBody: true,
		classRe:   regexp.MustCompile(`^\s*(?:export\s+)?class\s+(\w+)\s*(?:extends\s+(\w+))?`),
		funcRe:    regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\s+(\w+)\s*\(([^)]*)\)`),
		methodRe:  regexp.MustCompile(`^\s+(?:static\s+)?(?:async\s+)?(\w+)\s*\(([^)]*)\)\s*\{`),
		importRe:  regexp.MustCompile(`^\s*import\s+.*from\s+['"]([^'"]+)['"]`),
		callRe:    regexp.MustCompile(`\b([A-Za-z_$]\w*)\s*\(`),
	},
	"typescript": {
		strategy:    strategyOO,
		braceBody:   true,
		classRe:     regexp.MustCompile(`^\s*(?:export\s+)?(?:abstract\s+)?class\s+(\w+)\s*(?:extends\s+(\w+))?(?:\s+implements\s+([\w, ]+))?`),
		interfaceRe: regexp.MustCompile(`^\s*(?:export\s+)?interface\s+(\w+)`),
		enumRe:      regexp.MustCompile(`^\s*(?:export\s+)?enum\s+(\w+)`),
		funcRe:      regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\s+(\w+)\s*\(([^)]*)\)`),
		methodRe:    regexp.MustCompile(`^\s+(?:public\s+|private\s+|protected\s+)?(?:static\s+)?(?:async\s+)?(\w+)\s*\(([^)]*)\)\s*(?::\s*\w+)?\s*\{`),
		importRe:    regexp.MustCompile(`^\s*import\s+.*from\s+['"]([^'"]+)['"]`),
		callRe:      regexp.MustCompile(`\b([A-Za-z_$]\w*)\s*\(`),
	},
	"java": {
		strategy:  strategyOO,
		braceBody: true,
		classRe:   regexp.MustCompile(`^\s*(?:public|private)?\s*(?:abstract\s+)?class\s+(\w+)\s*(?:extends\s+(\w+))?`),
		interfaceRe: regexp.MustCompile(`^\s*(?:public\s+)?interface\s+(\w+)`),
		methodRe:  regexp.MustCompile(`^\s+(?:public|private|protected)\s+(?:static\s+)?\S+\s+(\w+)\s*\(([^)]*)\)`),
		importRe:  regexp.MustCompile(`^\s*import\s+([\w.]+);`),
		callRe:    regexp.MustCompile(`\b([A-Za-z_]\w*)\s*\(`),
	},
	"csharp": {
		strategy:  strategyOO,
		braceBody: true,
		classRe:   regexp.MustCompile(`^\s*(?:public|private|internal)?\s*class\s+(\w+)\s*(?::\s*([\w, ]+))?`),
		interfaceRe: regexp.MustCompile(`^\s*(?:public\s+)?interface\s+(\w+)`),
		methodRe:  regexp.MustCompile(`^\s+(?:public|private|protected|internal)\s+(?:static\s+)?\S+\s+(\w+)\s*\(([^)]*)\)`),
		importRe:  regexp.MustCompile(`^\s*using\s+([\w.]+);`),
		callRe:    regexp.MustCompile(`\b([A-Za-z_]\w*)\s*\(`),
	},
	"rust": {
		strategy:  strategyProcedural,
		braceBody: true,
		classRe:   regexp.MustCompile(`^\s*(?:pub\s+)?struct\s+(\w+)`),
		interfaceRe: regexp.MustCompile(`^\s*(?:pub\s+)?trait\s+(\w+)`),
		enumRe:    regexp.MustCompile(`^\s*(?:pub\s+)?enum\s+(\w+)`),
		funcRe:    regexp.MustCompile(`^\s*(?:pub\s+)?(?:async\s+)?fn\s+(\w+)\s*\(`),
		importRe:  regexp.MustCompile(`^\s*use\s+([\w:]+)`),
		callRe:    regexp.MustCompile(`\b([A-Za-z_]\w*)\s*\(`),
	},
	"c": {
		strategy:  strategyProcedural,
		braceBody: true,
		classRe:   regexp.MustCompile(`^\s*(?:typedef\s+)?struct\s+(\w+)`),
		funcRe:    regexp.MustCompile(`^\s*[\w\*]+\s+(\w+)\s*\(([^)]*)\)\s*\{?\s*$`),
		importRe:  regexp.MustCompile(`^\s*#include\s*[<"]([^>"]+)[>"]`),
		callRe:    regexp.MustCompile(`\b([A-Za-z_]\w*)\s*\(`),
	},
	"cpp": {
		strategy:  strategyOO,
		braceBody: true,
		classRe:   regexp.MustCompile(`^\s*class\s+(\w+)\s*(?::\s*(?:public|private|protected)\s+(\w+))?`),
		funcRe:    regexp.MustCompile(`^\s*[\w:\*&<>, ]+\s+(\w+)\s*\(([^)]*)\)\s*\{?\s*$`),
		importRe:  regexp.MustCompile(`^\s*#include\s*[<"]([^>"]+)[>"]`),
		callRe:    regexp.MustCompile(`\b([A-Za-z_]\w*)\s*\(`),
	},
	"ruby": {
		strategy:  strategyOO,
		braceBody: false,
		classRe:   regexp.MustCompile(`^\s*class\s+(\w+)\s*(?:<\s*(\w+))?`),
		funcRe:    regexp.MustCompile(`^\s*def\s+(\w+)`),
		methodRe:  regexp.MustCompile(`^\s+def\s+(\w+)`),
		importRe:  regexp.MustCompile(`^\s*require(?:_relative)?\s+['"]([^'"]+)['"]`),
		callRe:    regexp.MustCompile(`\b([A-Za-z_]\w*)\s*\(`),
	},
	"php": {
		strategy:  strategyOO,
		braceBody: true,
		classRe:   regexp.MustCompile(`^\s*class\s+(\w+)\s*(?:extends\s+(\w+))?`),
		interfaceRe: regexp.MustCompile(`^\s*interface\s+(\w+)`),
		methodRe:  regexp.MustCompile(`^\s+(?:public|private|protected)\s+function\s+(\w+)\s*\(([^)]*)\)`),
		funcRe:    regexp.MustCompile(`^\s*function\s+(\w+)\s*\(([^)]*)\)`),
		importRe:  regexp.MustCompile(`^\s*(?:require|include)(?:_once)?\s*\(?['"]([^'"]+)['"]`),
		callRe:    regexp.MustCompile(`\b([A-Za-z_]\w*)\s*\(`),
	},
}

// basicLanguages get only a File node (plus, for structured config, a
// variable Node per top-level key); no class/function extraction makes
// sense for config/data formats.
var basicLanguages = map[string]bool{
	"json": true, "yaml": true, "toml": true, "markdown": true,
	"xml": true, "ini": true, "dockerfile": true, "shell": true,
	"sql": true, "plaintext": true,
}

// structuredConfigLanguages get a variable Node per top-level key (YAML,
// JSON, TOML) or per INI section header, per §4.C's "structured config"
// carve-out from the otherwise File-only basic strategy.
var structuredConfigLanguages = map[string]bool{
	"json": true, "yaml": true, "toml": true, "ini": true,
}

// topLevelKeyRe matches an un-indented YAML/TOML "key:" or JSON "key":
// at the start of a line. INI section headers are matched separately by
// iniSectionRe since their syntax doesn't fit the same pattern.
var topLevelKeyRe = regexp.MustCompile(`^"?([A-Za-z0-9_.\-]+)"?\s*[:=]`)

// iniSectionRe matches an INI section header "[name]".
var iniSectionRe = regexp.MustCompile(`^\[([^\]]+)\]`)

func rulesFor(language string) (languageRules, bool) {
	if basicLanguages[language] {
		return languageRules{strategy: strategyBasic}, true
	}
	r, ok := ruleTable[language]
	return r, ok
}

// complexityKeywords groups each language's control-flow keywords for
// cyclomaticComplexity (§4.C.i), grounded on the Python reference
// implementation's per-language keyword sets.
var complexityKeywords = map[string][]string{
	"python":     {"if", "elif", "else", "for", "while", "try", "except", "with"},
	"javascript": {"if", "else", "for", "while", "switch", "case", "try", "catch"},
	"typescript": {"if", "else", "for", "while", "switch", "case", "try", "catch"},
	"java":       {"if", "else", "for", "while", "switch", "case", "try", "catch"},
	"csharp":     {"if", "else", "for", "while", "switch", "case", "try", "catch"},
	"cpp":        {"if", "else", "for", "while", "switch", "case", "try", "catch"},
	"c":          {"if", "else", "for", "while", "switch", "case"},
	"go":         {"if", "else", "for", "switch", "case", "select"},
	"rust":       {"if", "else", "for", "while", "loop", "match"},
	"ruby":       {"if", "elsif", "else", "for", "while", "case", "when", "rescue"},
	"php":        {"if", "elseif", "else", "for", "while", "switch", "case", "try", "catch"},
}

// keywordsForComplexity returns language's control-flow keyword set,
// falling back to the JS-family set for anything unlisted.
func keywordsForComplexity(language string) []string {
	if kws, ok := complexityKeywords[language]; ok {
		return kws
	}
	return complexityKeywords["javascript"]
}
