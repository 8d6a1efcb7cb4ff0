package parser

import "strings"

// cyclomaticComplexity scores a construct's body on a 1-10 scale: start
// from base 1, add one per occurrence of a language-specific control
// keyword in the lowercased, whitespace-tokenized body, then compress
// into [1, 10] via (1+count)/5+1. Tokenizing (rather than substring-counting)
// keeps "format" from matching "for" and "forEach" from matching twice.
func cyclomaticComplexity(language string, body []string) int {
	set := make(map[string]bool)
	for _, kw := range keywordsForComplexity(language) {
		set[kw] = true
	}
	count := 0
	for _, line := range body {
		for _, tok := range strings.Fields(strings.ToLower(line)) {
			tok = strings.Trim(tok, "(){}[]:;,.!&|")
			if set[tok] {
				count++
			}
		}
	}
	complexity := 1 + count
	scaled := complexity/5 + 1
	if scaled < 1 {
		scaled = 1
	}
	if scaled > 10 {
		scaled = 10
	}
	return scaled
}

// isPublicName applies each language's conventional visibility rule.
func isPublicName(language, name string) bool {
	if name == "" {
		return false
	}
	switch language {
	case "go":
		return name[0] >= 'A' && name[0] <= 'Z'
	case "python", "ruby":
		return name[0] != '_'
	case "javascript", "typescript":
		return !strings.HasPrefix(name, "_") && !strings.HasPrefix(name, "#")
	default:
		return true
	}
}

// isExportedDeclaration checks language-specific export/visibility
// keywords on the declaration line itself (java/csharp/php "public",
// js/ts "export", python/ruby/go fall back to isPublicName).
func isExportedDeclaration(language, declLine, name string) bool {
	lower := strings.ToLower(declLine)
	switch language {
	case "java", "csharp", "php":
		return strings.Contains(lower, "public")
	case "javascript", "typescript":
		return strings.Contains(lower, "export") || isPublicName(language, name)
	default:
		return isPublicName(language, name)
	}
}
