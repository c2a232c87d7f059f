package amalgam

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderTree(t *testing.T) {
	_, report := mergeString(t, map[string]string{
		"root/a.h":        "#include \"detail/b.h\"\n#include \"d.h\"\n",
		"root/detail/b.h": "#include \"c.h\"\n#include \"d.h\"\n",
		"root/detail/c.h": "c\n",
		"root/detail/d.h": "d\n",
	}, Options{})

	expected := filepath.Join("root", "a.h") + "\n" +
		"└── b.h\n" +
		"    ├── c.h\n" +
		"    └── d.h\n"
	assert.Equal(t, expected, RenderTree(report))
}

func TestRenderTree_Siblings(t *testing.T) {
	_, report := mergeString(t, map[string]string{
		"root/a.h": "#include \"b.h\"\n#include \"c.h\"\n",
		"root/b.h": "#include \"e.h\"\n",
		"root/c.h": "c\n",
		"root/e.h": "e\n",
	}, Options{})

	expected := filepath.Join("root", "a.h") + "\n" +
		"├── b.h\n" +
		"│   └── e.h\n" +
		"└── c.h\n"
	assert.Equal(t, expected, RenderTree(report))
}

func TestRenderTree_Empty(t *testing.T) {
	assert.Equal(t, "", RenderTree(nil))
	assert.Equal(t, "", RenderTree(&Report{}))
}
