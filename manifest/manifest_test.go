package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "shapes"
version = "0.1.0"

[source]
dirs = ["src", "lib"]

[output]
dir = "out"
archive = "out/classes.db"

[harness]
suffix = "Spec"
header = "== %s =="

[log]
verbosity = 2
file = "kitten.log"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "shapes" || m.Project.Version != "0.1.0" {
		t.Errorf("project = %+v", m.Project)
	}
	if len(m.Source.Dirs) != 2 {
		t.Errorf("source dirs count = %d, want 2", len(m.Source.Dirs))
	}
	if m.OutputDir() != filepath.Join(m.Dir, "out") {
		t.Errorf("output dir = %q", m.OutputDir())
	}
	if m.ArchivePath() != filepath.Join(m.Dir, "out", "classes.db") {
		t.Errorf("archive = %q", m.ArchivePath())
	}
	if m.Log.Verbosity != 2 || m.LogFile() != filepath.Join(m.Dir, "kitten.log") {
		t.Errorf("log = %+v", m.Log)
	}

	opts := m.HarnessOptions()
	if opts.Suffix != "Spec" || opts.Header != "== %s ==" {
		t.Errorf("harness options = %+v", opts)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "minimal"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(m.Source.Dirs) != 1 || m.Source.Dirs[0] != "src" {
		t.Errorf("default source dirs = %v, want [src]", m.Source.Dirs)
	}
	if m.Output.Dir != "build" {
		t.Errorf("default output dir = %q, want build", m.Output.Dir)
	}
	if m.ArchivePath() != "" || m.LogFile() != "" {
		t.Errorf("archive = %q, log file = %q, want both empty", m.ArchivePath(), m.LogFile())
	}
	if opts := m.HarnessOptions(); opts.Suffix != "$Test" || opts.Header != "Running tests for class %s:" {
		t.Errorf("default harness options = %+v", opts)
	}
}

func TestLoadManifestErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(dir); err == nil || !strings.Contains(err.Error(), "cannot read") {
		t.Errorf("missing file: %v", err)
	}

	writeManifest(t, dir, "[project\nname = 1")
	if _, err := Load(dir); err == nil || !strings.Contains(err.Error(), "parse error") {
		t.Errorf("bad toml: %v", err)
	}

	writeManifest(t, dir, "[output]\ndirectory = \"x\"\n")
	if _, err := Load(dir); err == nil || !strings.Contains(err.Error(), "unknown key output.directory") {
		t.Errorf("unknown key: %v", err)
	}
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, dir, `[project]
name = "found-project"
`)

	// Should find manifest when starting from a deep subdirectory
	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Project.Name != "found-project" {
		t.Errorf("project name = %q, want found-project", m.Project.Name)
	}
	if want, _ := filepath.Abs(dir); m.Dir != want {
		t.Errorf("dir = %q, want %q", m.Dir, want)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	m, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no kitten.toml exists")
	}
}

func TestSourceDirPaths(t *testing.T) {
	m := &Manifest{
		Dir: "/app",
		Source: Source{
			Dirs: []string{"src", "/abs/lib"},
		},
	}

	paths := m.SourceDirPaths()
	if len(paths) != 2 {
		t.Fatalf("expected 2 paths, got %d", len(paths))
	}
	if paths[0] != filepath.Join("/app", "src") {
		t.Errorf("paths[0] = %q, want /app/src", paths[0])
	}
	if paths[1] != "/abs/lib" {
		t.Errorf("paths[1] = %q, want /abs/lib", paths[1])
	}
}

func TestSourceFiles(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{"src/b.kit", "src/nested/a.kit", "src/notes.md", "lib/c.kit"} {
		path := filepath.Join(dir, f)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("class X { }"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	m, err := Default(dir)
	if err != nil {
		t.Fatal(err)
	}
	m.Source.Dirs = []string{"src", "lib", "missing"}

	files, err := m.SourceFiles()
	if err != nil {
		t.Fatal(err)
	}
	var rel []string
	for _, f := range files {
		r, _ := filepath.Rel(m.Dir, f)
		rel = append(rel, filepath.ToSlash(r))
	}
	want := "lib/c.kit src/b.kit src/nested/a.kit"
	if got := strings.Join(rel, " "); got != want {
		t.Errorf("SourceFiles = %s, want %s", got, want)
	}
}
