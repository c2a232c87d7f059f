package amalgam

import (
	"path"
	"path/filepath"
	"strings"
	"unicode"
)

// ParseInclude extracts the quoted path from a project-local include line.
// Only `#include "path"` is recognized, optionally indented and optionally
// followed by a comment. Angle-bracket includes, macro includes and lines
// with anything else after the closing quote are reported as not an include.
func ParseInclude(line string) (string, bool) {
	rest := strings.TrimLeftFunc(line, unicode.IsSpace)
	if !strings.HasPrefix(rest, "#") {
		return "", false
	}
	rest = strings.TrimLeft(rest[1:], " \t")

	if !strings.HasPrefix(rest, "include") {
		return "", false
	}
	rest = rest[len("include"):]

	// `#include"x.h"` is valid, `#includes "x.h"` is not.
	trimmed := strings.TrimLeft(rest, " \t")
	if !strings.HasPrefix(trimmed, `"`) {
		return "", false
	}
	rest = trimmed[1:]

	closing := strings.IndexByte(rest, '"')
	if closing <= 0 {
		return "", false
	}
	rel := rest[:closing]
	if strings.HasSuffix(rel, "/") {
		return "", false
	}

	tail := strings.TrimSpace(rest[closing+1:])
	if tail != "" && !strings.HasPrefix(tail, "//") && !strings.HasPrefix(tail, "/*") {
		return "", false
	}

	return rel, true
}

// Resolve maps a forward-slash relative include path onto the folder it is
// included from. It returns the folder the target lives in, its file name and
// its dedup key. A bare file name stays in folder; a path with directory
// components descends into them.
func Resolve(folder, rel string) (string, string, string) {
	dir, name := path.Split(rel)
	if dir != "" {
		folder = filepath.Join(folder, filepath.FromSlash(strings.TrimSuffix(dir, "/")))
	}
	return folder, name, name
}
