package amalgam

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseInclude(t *testing.T) {
	tests := []struct {
		description string
		line        string
		path        string
		ok          bool
	}{
		{description: "bare file", line: "#include \"a.h\"\n", path: "a.h", ok: true},
		{description: "subdirectory", line: "#include \"detail/shared/utility.hpp\"\n", path: "detail/shared/utility.hpp", ok: true},
		{description: "indented", line: "\t#include \"a.h\"\n", path: "a.h", ok: true},
		{description: "space after hash", line: "# include \"a.h\"", path: "a.h", ok: true},
		{description: "no space before quote", line: "#include\"a.h\"", path: "a.h", ok: true},
		{description: "trailing line comment", line: "#include \"a.h\" // why\r\n", path: "a.h", ok: true},
		{description: "trailing block comment", line: "#include \"a.h\" /* why */", path: "a.h", ok: true},
		{description: "angle brackets", line: "#include <new>\n"},
		{description: "macro", line: "#include HFSM2_HEADER\n"},
		{description: "commented out", line: "// #include \"a.h\"\n"},
		{description: "trailing junk", line: "#include \"a.h\" junk\n"},
		{description: "unterminated quote", line: "#include \"a.h\n"},
		{description: "empty path", line: "#include \"\"\n"},
		{description: "directory only", line: "#include \"detail/\"\n"},
		{description: "similar directive", line: "#includes \"a.h\"\n"},
		{description: "plain text", line: "int include = 0;\n"},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			path, ok := ParseInclude(tc.line)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.path, path)
		})
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		description string
		folder      string
		rel         string
		wantFolder  string
		wantName    string
	}{
		{
			description: "bare file stays in folder",
			folder:      "dev",
			rel:         "a.h",
			wantFolder:  "dev",
			wantName:    "a.h",
		},
		{
			description: "one level down",
			folder:      "dev",
			rel:         "detail/a.h",
			wantFolder:  filepath.Join("dev", "detail"),
			wantName:    "a.h",
		},
		{
			description: "several levels down",
			folder:      filepath.Join("dev", "detail"),
			rel:         "root/plan/data.h",
			wantFolder:  filepath.Join("dev", "detail", "root", "plan"),
			wantName:    "data.h",
		},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			folder, name, key := Resolve(tc.folder, tc.rel)
			assert.Equal(t, tc.wantFolder, folder)
			assert.Equal(t, tc.wantName, name)
			assert.Equal(t, tc.wantName, key)
		})
	}
}
