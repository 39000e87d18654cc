package synth

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stubtester/internal/types"
)

func artifact(path, display string) types.Artifact {
	return types.Artifact{Path: path, Display: display, Kind: types.KindInterface}
}

func TestBuild(t *testing.T) {
	a := artifact("/src/pkg/core.pyi", "pkg/core.pyi")
	blocks := []types.Block{
		{Name: "add", Body: "    >>> add(2, 3)\n    5\n", SourceLine: 8, SourceFile: "pkg/core.pyi"},
		{Name: "Box_get", Body: "    >>> b = Box(2)\n    >>> b.get()\n    2\n", SourceLine: 34, SourceFile: "pkg/core.pyi"},
	}

	m, ok := New().Build(a, blocks)
	require.True(t, ok)

	want := `# Generated tests from pkg/core.pyi

# line 8 "pkg/core.pyi"
def test_add():
    """
    >>> add(2, 3)
    5
    """
    pass

# line 34 "pkg/core.pyi"
def test_Box_get():
    """
    >>> b = Box(2)
    >>> b.get()
    2
    """
    pass
`
	if diff := cmp.Diff(want, m.Text); diff != "" {
		t.Errorf("module text mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "core_test.py", m.FileName)
	assert.Equal(t, "core_test", m.Stem())
	assert.Equal(t, "pkg/core.pyi", m.Source)
	assert.Equal(t, []string{"test_add", "test_Box_get"}, m.Tests)

	wantTable := types.ProvenanceTable{
		4:  {File: "pkg/core.pyi", Line: 8},
		12: {File: "pkg/core.pyi", Line: 34},
	}
	if diff := cmp.Diff(wantTable, m.Table); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}

	// Every table entry points at the def line right after its directive.
	lines := strings.Split(m.Text, "\n")
	for gen := range m.Table {
		assert.True(t, strings.HasPrefix(lines[gen-1], "def test_"), "line %d: %q", gen, lines[gen-1])
		assert.True(t, strings.HasPrefix(lines[gen-2], "# line "), "line %d: %q", gen-1, lines[gen-2])
	}
}

func TestBuild_NoBlocks(t *testing.T) {
	s := New()
	_, ok := s.Build(artifact("/a/empty.pyi", "empty.pyi"), nil)
	assert.False(t, ok)

	_, ok = s.Build(artifact("/a/blank.pyi", "blank.pyi"), []types.Block{{Name: "x", Body: "  \n", SourceLine: 1}})
	assert.False(t, ok)
}

func TestBuild_DuplicateTestNames(t *testing.T) {
	blocks := []types.Block{
		{Name: "parse", Body: ">>> parse('1')\n1\n", SourceLine: 3, SourceFile: "p.pyi"},
		{Name: "parse", Body: ">>> parse(b'1')\n1\n", SourceLine: 7, SourceFile: "p.pyi"},
		{Name: "parse", Body: ">>> parse(1)\n1\n", SourceLine: 11, SourceFile: "p.pyi"},
	}
	m, ok := New().Build(artifact("/p.pyi", "p.pyi"), blocks)
	require.True(t, ok)
	assert.Equal(t, []string{"test_parse", "test_parse_2", "test_parse_3"}, m.Tests)
	assert.Len(t, m.Table, 3)
}

func TestBuild_UniqueFileNames(t *testing.T) {
	s := New()
	block := []types.Block{{Name: "x", Body: ">>> 1\n1\n", SourceLine: 1, SourceFile: "f"}}

	m1, _ := s.Build(artifact("/a/core.pyi", "a/core.pyi"), block)
	m2, _ := s.Build(artifact("/b/core.pyi", "b/core.pyi"), block)
	m3, _ := s.Build(artifact("/docs/my-guide.md", "docs/my-guide.md"), block)

	assert.Equal(t, "core_test.py", m1.FileName)
	assert.Equal(t, "core_2_test.py", m2.FileName)
	assert.Equal(t, "my_guide_test.py", m3.FileName)
}

func TestBuild_ReservedStems(t *testing.T) {
	a := artifact("/src/a.pyi", "a.pyi")
	aTest := artifact("/src/a_test.pyi", "a_test.pyi")
	block := []types.Block{{Name: "x", Body: ">>> 1\n1\n", SourceLine: 1, SourceFile: "f"}}

	s := New()
	s.Reserve(a, aTest)
	m1, _ := s.Build(a, block)
	m2, _ := s.Build(aTest, block)
	m3, _ := s.Build(artifact("/other/a.pyi", "other/a.pyi"), block)

	assert.Equal(t, "a_2_test.py", m1.FileName)
	assert.Equal(t, "a_test_test.py", m2.FileName)
	assert.Equal(t, "a_3_test.py", m3.FileName)
}

func TestBuild_MarkdownBlocksDistinct(t *testing.T) {
	a := types.Artifact{Path: "/README.md", Display: "README.md", Kind: types.KindMarkdown}
	blocks := []types.Block{
		{Name: "Usage_0", Body: ">>> 1\n1\n", SourceLine: 4, SourceFile: "README.md"},
		{Name: "Usage_1", Body: ">>> 2\n2\n", SourceLine: 9, SourceFile: "README.md"},
	}
	m, ok := New().Build(a, blocks)
	require.True(t, ok)
	assert.Contains(t, m.Text, "def test_Usage_0():")
	assert.Contains(t, m.Text, "def test_Usage_1():")
	assert.Contains(t, m.Text, `# line 9 "README.md"`)
}

func TestDescribe(t *testing.T) {
	m := Module{FileName: "core_test.py", Source: "pkg/core.pyi", Tests: []string{"test_a"}}
	assert.Equal(t, "pkg/core.pyi: 1 test(s) in core_test.py", m.Describe())
}
