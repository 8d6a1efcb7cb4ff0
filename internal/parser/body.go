package parser

import "strings"

// findBraceBody returns the 0-based index of the line containing the brace
// that closes the one opened on or after startIdx. Quote state is tracked
// per rune (not byte) so multi-byte characters inside string literals never
// desync the brace count.
func findBraceBody(lines []string, startIdx int) int {
	depth := 0
	seenOpen := false
	var inString rune
	for i := startIdx; i < len(lines); i++ {
		prevRune := rune(0)
		for _, r := range lines[i] {
			if inString != 0 {
				if r == inString && prevRune != '\\' {
					inString = 0
				}
				prevRune = r
				continue
			}
			switch r {
			case '"', '\'', '`':
				inString = r
			case '{':
				depth++
				seenOpen = true
			case '}':
				depth--
				if seenOpen && depth <= 0 {
					return i
				}
			}
			prevRune = r
		}
	}
	if len(lines) == 0 {
		return startIdx
	}
	return len(lines) - 1
}

// findIndentBody returns the 0-based index of the last line belonging to
// an indentation-delimited block (python, ruby) that starts on startIdx
// with baseIndent columns of leading whitespace.
func findIndentBody(lines []string, startIdx, baseIndent int) int {
	end := startIdx
	for i := startIdx + 1; i < len(lines); i++ {
		trimmed := strings.TrimRight(lines[i], " \t\r")
		if strings.TrimSpace(trimmed) == "" {
			continue
		}
		if indentOf(lines[i]) <= baseIndent {
			break
		}
		end = i
	}
	return end
}

func indentOf(line string) int {
	n := 0
	for _, r := range line {
		if r == ' ' {
			n++
		} else if r == '\t' {
			n += 4
		} else {
			break
		}
	}
	return n
}
