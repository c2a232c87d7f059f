// Package ignore matches slash-separated paths against gitignore-style
// patterns. The amalgamator uses it to select includes that are written
// through verbatim instead of being inlined.
package ignore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Pattern is one compiled pattern line.
type Pattern struct {
	Regexp *regexp.Regexp // Compiled form of the pattern.
	Negate bool           // The line started with '!'.
	Line   string         // Original pattern line.
	LineNo int            // Line number in the source (1-based).
	Source string         // File the pattern came from, empty for inline patterns.
}

// Matcher is an ordered list of patterns; the last matching pattern wins.
type Matcher struct {
	Patterns []*Pattern
	logger   *zap.Logger
}

// NewMatcher creates an empty Matcher.
func NewMatcher(logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{logger: logger}
}

// Load builds a Matcher from an optional pattern file followed by inline patterns.
// A pattern file that does not exist is not an error.
func Load(file string, lines []string, logger *zap.Logger) (*Matcher, error) {
	m := NewMatcher(logger)

	if file != "" {
		if err := m.AddFile(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	m.AddLines("", lines...)

	return m, nil
}

// AddLines compiles pattern lines and appends them. Blank lines and `#` comments are skipped.
func (m *Matcher) AddLines(source string, lines ...string) {
	for i, line := range lines {
		re, negate := parsePatternLine(line)
		if re == nil {
			continue
		}
		m.Patterns = append(m.Patterns, &Pattern{
			Regexp: re,
			Negate: negate,
			Line:   line,
			LineNo: i + 1,
			Source: source,
		})
	}
}

// AddFile reads a pattern file and appends its patterns.
func (m *Matcher) AddFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read pattern file: %w", err)
	}

	lines := strings.Split(strings.ReplaceAll(string(content), "\r\n", "\n"), "\n")
	before := len(m.Patterns)
	m.AddLines(path, lines...)
	m.logger.Debug("Compiled patterns", zap.String("filePath", path), zap.Int("patterns", len(m.Patterns)-before))
	return nil
}

// Len returns the number of compiled patterns.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Patterns)
}

// MatchesPath reports whether path is selected by the patterns.
func (m *Matcher) MatchesPath(path string) bool {
	matches, _ := m.MatchesPathWithPattern(path)
	return matches
}

// MatchesPathWithPattern reports whether path is selected and which pattern decided it.
func (m *Matcher) MatchesPathWithPattern(path string) (bool, *Pattern) {
	if m == nil {
		return false, nil
	}
	normalized := filepath.ToSlash(path)

	var decided *Pattern
	matches := false
	for _, p := range m.Patterns {
		if p.Regexp.MatchString(normalized) {
			decided = p
			matches = !p.Negate
		}
	}
	return matches, decided
}

// parsePatternLine converts one pattern line into a regexp and a negation flag.
func parsePatternLine(line string) (*regexp.Regexp, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return nil, false
	}

	negate := false
	if strings.HasPrefix(trimmed, "!") {
		negate = true
		trimmed = trimmed[1:]
	}
	if strings.HasPrefix(trimmed, `\#`) || strings.HasPrefix(trimmed, `\!`) {
		trimmed = trimmed[1:]
	}
	if trimmed == "" {
		return nil, false
	}

	expr := escapeSpecialChars(strings.TrimPrefix(trimmed, "/"))
	expr = handleDoubleStar(expr)
	expr = wildcardToRegex(expr)
	expr = anchor(expr, trimmed)

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, false
	}
	return re, negate
}

var (
	doubleStarMiddle   = regexp.MustCompile(`/\*\*/`)
	doubleStarTrailing = regexp.MustCompile(`/\*\*$`)
	doubleStarLeading  = regexp.MustCompile(`^\*\*/`)
)

// Placeholders keep expanded `**` forms away from the single-star rewrite.
const (
	anyDirs     = "\x00DIRS\x00"
	anySuffix   = "\x00SUFFIX\x00"
	anyPrefixes = "\x00PREFIX\x00"
)

// escapeSpecialChars escapes regexp metacharacters except '*', '?' and '/'.
func escapeSpecialChars(pattern string) string {
	for _, char := range `\.+()|^$[]{}` {
		pattern = strings.ReplaceAll(pattern, string(char), `\`+string(char))
	}
	return pattern
}

// handleDoubleStar marks the three `**` forms with placeholders.
func handleDoubleStar(pattern string) string {
	pattern = doubleStarMiddle.ReplaceAllString(pattern, anyDirs)
	pattern = doubleStarTrailing.ReplaceAllString(pattern, anySuffix)
	pattern = doubleStarLeading.ReplaceAllString(pattern, anyPrefixes)
	return pattern
}

// wildcardToRegex converts '*' and '?' and expands the `**` placeholders.
func wildcardToRegex(pattern string) string {
	pattern = strings.ReplaceAll(pattern, "*", `[^/]*`)
	pattern = strings.ReplaceAll(pattern, "?", `[^/]`)
	pattern = strings.ReplaceAll(pattern, anyDirs, `(/|/.+/)`)
	pattern = strings.ReplaceAll(pattern, anySuffix, `(/.*)?`)
	pattern = strings.ReplaceAll(pattern, anyPrefixes, `(.*/)?`)
	return pattern
}

// anchor anchors expr to whole paths. A leading '/' or an inner '/' in the
// original pattern ties it to the root; otherwise it may match at any depth.
func anchor(expr, original string) string {
	if strings.HasSuffix(original, "/") {
		expr = strings.TrimSuffix(expr, "/") + "(/.*)$"
	} else {
		expr += "(/.*)?$"
	}

	inner := strings.Contains(strings.TrimSuffix(strings.TrimPrefix(original, "/"), "/"), "/")
	if strings.HasPrefix(original, "/") || inner {
		return "^" + expr
	}
	return "^(.*/)?" + expr
}
