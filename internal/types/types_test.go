package types

import "testing"

func TestArtifactStem(t *testing.T) {
	a := Artifact{Path: "/src/pkg/core.pyi"}
	if got := a.Stem(); got != "core" {
		t.Errorf("Stem() = %q, want core", got)
	}
	a = Artifact{Path: "/docs/README.md"}
	if got := a.Stem(); got != "README" {
		t.Errorf("Stem() = %q, want README", got)
	}
}

func TestTestResult(t *testing.T) {
	r := TestResult{Total: 5, Passed: 3}
	if r.Failed() != 2 {
		t.Errorf("Failed() = %d, want 2", r.Failed())
	}
}

func TestBlockString(t *testing.T) {
	b := Block{Name: "add", SourceFile: "pkg/core.pyi", SourceLine: 12}
	if got := b.String(); got != "pkg/core.pyi:12 add" {
		t.Errorf("String() = %q", got)
	}
}

func TestProvenanceTableFirst(t *testing.T) {
	if _, ok := (ProvenanceTable{}).First(); ok {
		t.Error("empty table must have no first origin")
	}
	table := ProvenanceTable{
		12: {File: "pkg/core.pyi", Line: 40},
		4:  {File: "pkg/core.pyi", Line: 8},
	}
	got, ok := table.First()
	if !ok || got.Line != 8 {
		t.Errorf("First() = %v, %v; want line 8", got, ok)
	}
	if got.String() != "pkg/core.pyi:8" {
		t.Errorf("String() = %q", got.String())
	}
}
