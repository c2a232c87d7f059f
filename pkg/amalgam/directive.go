// File: pkg/amalgam/directive.go
package amalgam

import (
	"strings"
	"unicode"
)

// LineKind classifies a fragment line for output filtering.
type LineKind int

const (
	KindText       LineKind = iota // Ordinary content, written verbatim.
	KindBlank                      // Empty or whitespace-only line.
	KindPragmaOnce                 // `#pragma once`.
	KindFoldMarker                 // `#pragma region` / `#pragma endregion`.
	KindBanner                     // Separator comment such as `//------`.
)

// byteOrderMark is the UTF-8 encoded U+FEFF.
const byteOrderMark = "\uFEFF"

// minBannerFill is the shortest run of fill characters treated as a banner.
const minBannerFill = 8

// bannerFill lists the characters a separator comment may be drawn with.
const bannerFill = "/-=*"

// String returns a readable name for the kind.
func (k LineKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBlank:
		return "blank"
	case KindPragmaOnce:
		return "pragma-once"
	case KindFoldMarker:
		return "fold-marker"
	case KindBanner:
		return "banner"
	default:
		return "unknown"
	}
}

// Classify determines how the output writer should treat line.
func Classify(line string) LineKind {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return KindBlank
	case strings.HasPrefix(trimmed, "#"):
		return classifyPragma(trimmed)
	case isBanner(trimmed):
		return KindBanner
	default:
		return KindText
	}
}

// classifyPragma recognizes the guard and fold-marker pragmas. Every other
// pragma and preprocessor line is plain text.
func classifyPragma(trimmed string) LineKind {
	rest := strings.TrimLeft(trimmed[1:], " \t")
	if !strings.HasPrefix(rest, "pragma") {
		return KindText
	}
	rest = rest[len("pragma"):]
	if rest == "" || !unicode.IsSpace(rune(rest[0])) {
		return KindText
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return KindText
	}

	switch fields[0] {
	case "once":
		return KindPragmaOnce
	case "region", "endregion":
		return KindFoldMarker
	default:
		return KindText
	}
}

// isBanner reports whether trimmed is a `//` comment made only of one fill
// character, ignoring spaces: `////...`, `//----...`, `// - - - ...`.
func isBanner(trimmed string) bool {
	if !strings.HasPrefix(trimmed, "//") {
		return false
	}

	body := strings.ReplaceAll(trimmed[2:], " ", "")
	body = strings.ReplaceAll(body, "\t", "")
	if len(body) < minBannerFill {
		return false
	}

	fill := body[0]
	if strings.IndexByte(bannerFill, fill) < 0 {
		return false
	}
	for i := 1; i < len(body); i++ {
		if body[i] != fill {
			return false
		}
	}
	return true
}

// StripBOM removes a leading byte order mark.
func StripBOM(line string) string {
	return strings.TrimPrefix(line, byteOrderMark)
}
